// Package scanctl provides the "recon scanctl" command group: read-only
// inspection of scans and findings already recorded in the store.
package scanctl

import (
	"fmt"
	"os"

	"github.com/olekukonko/tablewriter"
	"github.com/pyneda/sukyan/db"
	"github.com/pyneda/sukyan/pkg/scan/broadcast"
	"github.com/pyneda/sukyan/pkg/scan/manager"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// Cmd is the "scanctl" command group, wired into the root command by the
// caller.
var Cmd = &cobra.Command{
	Use:   "scanctl",
	Short: "Inspect scans and findings recorded by previous runs",
}

var dbPath string

func init() {
	Cmd.PersistentFlags().StringVar(&dbPath, "db", "", "path to the sqlite database (overrides config)")
	Cmd.AddCommand(listCmd, getCmd, findingsCmd)
}

func openManager() (*manager.Manager, *db.DatabaseConnection) {
	path := dbPath
	if path == "" {
		path = viper.GetString("database")
	}
	store, err := db.NewConnection(path)
	if err != nil {
		fmt.Fprintln(os.Stderr, "failed to open database:", err)
		os.Exit(1)
	}
	return manager.New(store, broadcast.New()), store
}

var listLimit int

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List recorded scans, most recent first",
	Run: func(cmd *cobra.Command, args []string) {
		m, store := openManager()
		defer store.Close()

		scans, err := m.ListScans(listLimit)
		if err != nil {
			fmt.Fprintln(os.Stderr, "failed to list scans:", err)
			os.Exit(1)
		}

		table := tablewriter.NewWriter(os.Stdout)
		table.SetHeader([]string{"Scan ID", "Target", "Status", "Start time"})
		for _, s := range scans {
			table.Append([]string{s.ID, s.Target, string(s.Status), s.StartTime.Format("2006-01-02 15:04:05")})
		}
		table.Render()
	},
}

var getCmd = &cobra.Command{
	Use:   "get <scan-id>",
	Short: "Show a single scan's status and timing",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		m, store := openManager()
		defer store.Close()

		scan, err := m.GetScan(args[0])
		if err != nil {
			fmt.Fprintln(os.Stderr, "scan not found:", err)
			os.Exit(1)
		}

		fmt.Printf("ID:       %s\n", scan.ID)
		fmt.Printf("Target:   %s\n", scan.Target)
		fmt.Printf("Status:   %s\n", scan.Status)
		fmt.Printf("Started:  %s\n", scan.StartTime.Format("2006-01-02 15:04:05"))
		if scan.EndTime != nil {
			fmt.Printf("Ended:    %s\n", scan.EndTime.Format("2006-01-02 15:04:05"))
		}
	},
}

var findingsCmd = &cobra.Command{
	Use:   "findings <scan-id>",
	Short: "List findings recorded for a scan",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		m, store := openManager()
		defer store.Close()

		findings, err := m.GetScanFindings(args[0])
		if err != nil {
			fmt.Fprintln(os.Stderr, "failed to load findings:", err)
			os.Exit(1)
		}

		table := tablewriter.NewWriter(os.Stdout)
		table.SetHeader([]string{"Module", "Type", "Data"})
		for _, f := range findings {
			table.Append([]string{f.Module, string(f.Type), f.Data})
		}
		table.Render()
	},
}

func init() {
	listCmd.Flags().IntVar(&listLimit, "limit", 20, "maximum number of scans to list")
}
