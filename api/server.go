// Package api exposes the recon engine over a minimal HTTP/WebSocket
// facade: start a scan, list scans, and stream or fetch their findings.
package api

import (
	"fmt"

	"github.com/gofiber/contrib/fiberzerolog"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/pyneda/sukyan/db"
	"github.com/pyneda/sukyan/pkg/scan/broadcast"
	"github.com/pyneda/sukyan/pkg/scan/manager"
	"github.com/rs/zerolog/log"
	"github.com/spf13/viper"
)

// StartAPI opens the store, wires a Manager to it, and serves the facade
// until the process is killed.
func StartAPI() {
	apiLogger := log.With().Str("type", "api").Logger()
	apiLogger.Info().Msg("Initializing...")

	store, err := db.NewConnection(viper.GetString("database"))
	if err != nil {
		apiLogger.Fatal().Err(err).Msg("failed to open database")
	}
	defer store.Close()

	broadcaster := broadcast.New()
	m := manager.New(store, broadcaster)

	app := fiber.New(fiber.Config{
		ServerHeader: "recon",
		AppName:      "recon API",
	})

	app.Use(cors.New(corsMiddleware()))
	app.Use(fiberzerolog.New(fiberzerolog.Config{Logger: &apiLogger}))

	app.Get("/", func(c *fiber.Ctx) error {
		return c.SendString("recon API running")
	})

	v1 := app.Group("/api/v1")
	v1.Post("/scans", createScan(m))
	v1.Get("/scans", listScans(m))
	v1.Get("/scans/:id", getScan(m))
	v1.Get("/scans/:id/findings", getScanFindings(m))
	v1.Get("/scans/:id/ws", scanWebSocket(broadcaster))
	v1.Get("/targets/:target/findings", getTargetFindings(m))

	listenAddr := fmt.Sprintf("%s:%d", viper.GetString("api.listen.host"), viper.GetInt("api.listen.port"))
	apiLogger.Info().Str("addr", listenAddr).Msg("starting API")
	if err := app.Listen(listenAddr); err != nil {
		apiLogger.Warn().Err(err).Msg("error starting server")
	}
}
