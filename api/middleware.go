package api

import (
	"strings"

	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/spf13/viper"
)

// corsMiddleware mirrors the teacher's permissive-by-default CORS config,
// configurable via the same "api.cors.origins" key.
func corsMiddleware() cors.Config {
	origins := viper.GetStringSlice("api.cors.origins")
	if len(origins) == 0 {
		origins = []string{"*"}
	}
	return cors.Config{
		AllowOrigins: strings.Join(origins, ","),
		AllowHeaders: "Origin, Content-Type, Accept",
	}
}
