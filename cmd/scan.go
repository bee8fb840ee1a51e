package cmd

import (
	"context"
	"fmt"
	"os"

	"github.com/fatih/color"
	"github.com/olekukonko/tablewriter"
	"github.com/pyneda/sukyan/db"
	"github.com/pyneda/sukyan/pkg/modules"
	"github.com/pyneda/sukyan/pkg/scan/broadcast"
	"github.com/pyneda/sukyan/pkg/scan/engine"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var rateLimit float64

// scanCmd runs a single scan synchronously, printing progress events as
// they're emitted and a summary table once the engine returns.
var scanCmd = &cobra.Command{
	Use:   "scan <target>",
	Short: "Run a reconnaissance scan against a target domain",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		target := args[0]
		store := openStore()
		defer store.Close()

		broadcaster := broadcast.New()
		e := engine.New(store, broadcaster)

		sub, unsubscribe := broadcaster.Subscribe("cli")
		done := make(chan struct{})
		go func() {
			defer close(done)
			for ev := range sub {
				printEvent(ev)
			}
		}()

		rate := rateLimit
		if rate <= 0 {
			rate = viper.GetFloat64("rate_limit")
		}

		opts := engine.RunOptions{
			ScanID:     "cli",
			RateLimit:  rate,
			Proxy:      proxyConfigFromViper(),
			ModulesCfg: modulesConfigFromViper(),
		}

		if err := e.RunScan(context.Background(), target, opts); err != nil {
			log.Error().Err(err).Msg("scan failed")
			os.Exit(1)
		}

		unsubscribe()
		<-done

		printSummaryTable(store, target, "cli")
	},
}

func init() {
	rootCmd.AddCommand(scanCmd)
	scanCmd.Flags().Float64Var(&rateLimit, "rate-limit", 0, "requests per second across all modules of the scan (0 = use the config's rate_limit)")
}

func proxyConfigFromViper() engine.ProxyConfig {
	return engine.ProxyConfig{
		HTTP:  viper.GetString("proxy.http"),
		HTTPS: viper.GetString("proxy.https"),
		Tor:   viper.GetBool("proxy.use_tor"),
	}
}

func modulesConfigFromViper() engine.ModulesConfig {
	enabled := map[modules.Category][]string{
		modules.CategorySubdomain:    viper.GetStringSlice("modules.enabled.subdomain"),
		modules.CategoryPortscan:     viper.GetStringSlice("modules.enabled.portscan"),
		modules.CategoryHTTP:         viper.GetStringSlice("modules.enabled.http"),
		modules.CategoryShodan:       viper.GetStringSlice("modules.enabled.shodan"),
		modules.CategoryGithub:       viper.GetStringSlice("modules.enabled.github"),
		modules.CategoryCloudBuckets: viper.GetStringSlice("modules.enabled.cloud_buckets"),
		modules.CategoryScreenshot:   viper.GetStringSlice("modules.enabled.screenshot"),
	}

	settings := map[modules.Category]map[string]any{
		modules.CategoryPortscan: {
			"ports":       viper.Get("modules.portscan.ports"),
			"timeout":     viper.GetInt("modules.portscan.timeout"),
			"concurrency": viper.GetInt("modules.portscan.concurrency"),
		},
		modules.CategoryHTTP: {
			"timeout":         viper.GetInt("modules.http.timeout"),
			"connect_timeout": viper.GetInt("modules.http.connect_timeout"),
			"concurrency":     viper.GetInt("modules.http.concurrency"),
			"probing_limit":   viper.GetInt("modules.http.probing_limit"),
		},
		modules.CategoryScreenshot: {
			"concurrency": viper.GetInt("modules.screenshot.concurrency"),
			"timeout":     viper.GetInt("modules.screenshot.timeout"),
			"output_dir":  viper.GetString("modules.screenshot.output_dir"),
		},
		modules.CategoryCloudBuckets: {
			"providers": viper.GetStringSlice("modules.cloud_buckets.providers"),
			"wordlist":  viper.GetStringSlice("modules.cloud_buckets.wordlist"),
		},
		modules.CategoryGithub: {
			"dorks": viper.GetStringSlice("modules.github.dorks"),
		},
	}

	apiKeys := map[string]string{
		"shodan":         viper.GetString("api_keys.shodan"),
		"virustotal":     viper.GetString("api_keys.virustotal"),
		"securitytrails": viper.GetString("api_keys.securitytrails"),
		"github":         viper.GetString("api_keys.github"),
	}

	return engine.ModulesConfig{Enabled: enabled, Settings: settings, APIKeys: apiKeys}
}

func printEvent(ev broadcast.Event) {
	switch ev.Type {
	case broadcast.EventPhase:
		color.Cyan("==> phase: %s (%v)", ev.Phase, ev.Modules)
	case broadcast.EventModuleEnd:
		if ev.Error != "" {
			color.Red("  [%s] failed: %s", ev.Module, ev.Error)
		} else {
			color.Green("  [%s] done", ev.Module)
		}
	case broadcast.EventStatus:
		color.Yellow("status: %s", ev.Status)
	case broadcast.EventError:
		color.Red("error: %s", ev.Error)
	default:
		fmt.Println(ev.Message)
	}
}

func printSummaryTable(store *db.DatabaseConnection, target, scanID string) {
	findings, err := store.GetFindings(target, nil, &scanID)
	if err != nil {
		log.Error().Err(err).Msg("failed to load findings for summary")
		return
	}

	counts := make(map[db.FindingType]int)
	for _, f := range findings {
		counts[f.Type]++
	}

	table := tablewriter.NewWriter(os.Stdout)
	table.SetHeader([]string{"Finding type", "Count"})
	for typ, count := range counts {
		table.Append([]string{string(typ), fmt.Sprintf("%d", count)})
	}
	table.Render()
}
