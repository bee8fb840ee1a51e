package config

import (
	"github.com/rs/zerolog/log"
	"github.com/spf13/viper"
)

// LoadConfig reads config.yaml from /etc/recon/ or the working directory,
// falling back to defaults when no file is present. When path is non-empty
// it is read directly instead, as passed via a CLI --config flag.
func LoadConfig(path string) {
	if path != "" {
		viper.SetConfigFile(path)
	} else {
		viper.SetConfigName("config")
		viper.SetConfigType("yaml")
		viper.AddConfigPath("/etc/recon/")
		viper.AddConfigPath(".")
	}

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			log.Warn().Msg("Config file not found, using defaults")
		} else {
			log.Panic().Err(err).Msg("Fatal error reading config file")
		}
	}
	SetDefaultConfig()
}

func SetDefaultConfig() {
	// Storage
	viper.SetDefault("database", "recon.db")

	// Logging
	viper.SetDefault("logging.level", "info")
	viper.SetDefault("logging.file", "recon.log")

	// Rate limiting
	viper.SetDefault("rate_limit", 10.0)

	// Proxy
	viper.SetDefault("proxy.http", "")
	viper.SetDefault("proxy.https", "")
	viper.SetDefault("proxy.use_tor", false)

	// Modules
	viper.SetDefault("modules.enabled.subdomain", []string{"crtsh"})
	viper.SetDefault("modules.enabled.portscan", []string{"scanner"})
	viper.SetDefault("modules.enabled.http", []string{"detector"})
	viper.SetDefault("modules.enabled.shodan", []string{})
	viper.SetDefault("modules.enabled.github", []string{})
	viper.SetDefault("modules.enabled.cloud_buckets", []string{})
	viper.SetDefault("modules.enabled.screenshot", []string{"capturer"})

	viper.SetDefault("modules.portscan.ports", defaultPorts)
	viper.SetDefault("modules.portscan.timeout", 2)
	viper.SetDefault("modules.portscan.concurrency", 100)

	viper.SetDefault("modules.http.timeout", 5)
	viper.SetDefault("modules.http.connect_timeout", 3)
	viper.SetDefault("modules.http.concurrency", 20)
	viper.SetDefault("modules.http.probing_limit", 100)

	viper.SetDefault("modules.screenshot.concurrency", 5)
	viper.SetDefault("modules.screenshot.timeout", 45)
	viper.SetDefault("modules.screenshot.output_dir", "reports/screenshots")

	viper.SetDefault("modules.cloud_buckets.providers", []string{"aws", "azure", "gcp"})
	viper.SetDefault("modules.cloud_buckets.wordlist", []string{
		"{domain}", "{domain}-backup", "{domain}-assets", "backup-{domain}",
	})

	viper.SetDefault("modules.github.dorks", []string{
		`"{domain}"`, `"{domain}" api_key`, `"{domain}" secret`,
	})

	// API keys shared across modules
	viper.SetDefault("api_keys.shodan", "")
	viper.SetDefault("api_keys.virustotal", "")
	viper.SetDefault("api_keys.securitytrails", "")
	viper.SetDefault("api_keys.github", "")

	// HTTP/WebSocket facade
	viper.SetDefault("api.listen.host", "0.0.0.0")
	viper.SetDefault("api.listen.port", 8000)
	viper.SetDefault("api.cors.origins", []string{"*"})
}

var defaultPorts = []int{
	21, 22, 23, 25, 53, 80, 110, 111, 135, 139, 143, 443, 445,
	993, 995, 1723, 3306, 3389, 5900, 8080, 8443,
}
