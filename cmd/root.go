package cmd

import (
	"fmt"
	"os"

	"github.com/pyneda/sukyan/cmd/scanctl"
	"github.com/pyneda/sukyan/db"
	"github.com/pyneda/sukyan/lib"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/pyneda/sukyan/internal/config"
)

var cfgFile string
var dbPath string
var debugLogging bool

// rootCmd represents the base command when called without any subcommands.
var rootCmd = &cobra.Command{
	Use:   "recon",
	Short: "Domain reconnaissance scanner",
	Long: `recon runs a staged pipeline of subdomain discovery, port scanning,
service enrichment, HTTP probing and screenshot capture against a target
domain, storing every finding in a local database.`,
}

// Execute adds all child commands to the root command and sets flags
// appropriately. This is called by main.main().
func Execute() {
	cobra.CheckErr(rootCmd.Execute())
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default searches /etc/recon/config.yaml and ./config.yaml)")
	rootCmd.PersistentFlags().StringVar(&dbPath, "db", "", "path to the sqlite database (overrides config)")
	rootCmd.PersistentFlags().BoolVar(&debugLogging, "debug", false, "use debug level logging")

	rootCmd.AddCommand(scanctl.Cmd)

	rootCmd.PersistentPreRunE = func(cmd *cobra.Command, args []string) error {
		lib.ZeroConsoleAndFileLog("")
		if debugLogging {
			zerolog.SetGlobalLevel(zerolog.DebugLevel)
		}
		return nil
	}
}

func initConfig() {
	config.LoadConfig(cfgFile)
}

func openStore() *db.DatabaseConnection {
	path := dbPath
	if path == "" {
		path = viper.GetString("database")
	}
	conn, err := db.NewConnection(path)
	if err != nil {
		fmt.Fprintln(os.Stderr, "failed to open database:", err)
		os.Exit(1)
	}
	return conn
}
