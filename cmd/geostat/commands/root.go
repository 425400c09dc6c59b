package commands

import (
	"context"
	"fmt"
	"os"

	"geostat/internal/components/serviceutil"
	"geostat/internal/components/telemetry"
	"geostat/internal/config"
	"geostat/internal/report"

	"github.com/spf13/cobra"
)

var (
	configPath *string
	dbPath     *string
	format     *string
	debug      *bool
)

var rootCmd = &cobra.Command{
	Use:   "geostat",
	Short: "geostat scrapes your geoguessr game history into sqlite and reports on it.",
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		telemetry.InitSlog(os.Stderr, *debug)
	},
}

func init() {
	flags := rootCmd.PersistentFlags()
	configPath = flags.String("config", "geostat.json5", "The config file, <name>.local.json5 overrides it.")
	dbPath = flags.String("db", "", "The sqlite file to use, overrides store.file in the config.")
	format = flags.String("format", string(report.FormatTable), "Report output format, table or csv.")
	debug = flags.Bool("debug", false, "Log debug output.")
}

func loadConfig() config.Config {
	cfg, err := config.Load(*configPath)
	if err != nil {
		serviceutil.Fatal("failed to read config", err)
	}
	if *dbPath != "" {
		cfg.Store.File = *dbPath
		cfg.Store.Url = ""
	}
	return cfg
}

func ExecuteContext(ctx context.Context) {
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
