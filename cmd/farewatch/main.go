package main

import (
	"fmt"
	"os"
	"strings"

	"farewatch-service/internal/infrastructure/config"
	"farewatch-service/pkg/logger"
	"farewatch-service/pkg/utils"

	"github.com/spf13/cobra"
)

var Version = "dev"

// overrides are the per-invocation flags layered over the environment
type overrides struct {
	origin       string
	dest         string
	travelDate   string
	airlines     string
	cheapestOnly bool
	byDate       bool
	start        string
	months       int
	dataDir      string
	store        string
	notify       bool
	logLevel     string
}

func main() {
	var o overrides
	if err := newRootCmd(&o).Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd(o *overrides) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:          "farewatch",
		Short:        "Farewatch - airfare price tracker and drop alerter",
		Version:      Version,
		SilenceUsage: true,
	}

	flags := rootCmd.PersistentFlags()
	flags.StringVar(&o.origin, "origin", "", "origin IATA code (ORIGIN)")
	flags.StringVar(&o.dest, "dest", "", "destination IATA code (DEST)")
	flags.StringVar(&o.airlines, "airlines", "", "comma separated carrier allow-list (LCC_CODES)")
	flags.StringVar(&o.dataDir, "data-dir", "", "CSV data directory (DATA_DIR)")
	flags.StringVar(&o.store, "store", "", "fare store backend: csv or mongo (FARE_STORE)")
	flags.BoolVar(&o.notify, "notify", false, "send notifications (NOTIFY_ENABLED)")
	flags.StringVar(&o.logLevel, "log-level", "", "debug, info, warn or error (LOG_LEVEL)")
	flags.StringVar(&o.travelDate, "date", "", "travel date YYYY-MM-DD for direct mode (TRAVEL_DATE)")
	flags.BoolVar(&o.cheapestOnly, "cheapest-only", false, "keep only the global cheapest offer (CHEAPEST_ONLY)")
	flags.BoolVar(&o.byDate, "partition-by-date", false, "separate series per travel date (PARTITION_BY_DATE)")
	flags.StringVar(&o.start, "start", "", "first month to scan, YYYY-MM-DD (START_DATE)")
	flags.IntVar(&o.months, "months", 0, "months to scan (MONTHS_AHEAD)")

	rootCmd.AddCommand(directCmd(o))
	rootCmd.AddCommand(monthlyCmd(o))
	rootCmd.AddCommand(watchCmd(o))
	rootCmd.AddCommand(alertsCmd(o))

	return rootCmd
}

// loadConfig reads the environment, applies the flags that were set and
// validates the result
func loadConfig(cmd *cobra.Command, o *overrides) (*config.Config, *logger.ZapLogger, error) {
	cfg, err := config.LoadConfig()
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	flags := cmd.Flags()
	if flags.Changed("origin") {
		cfg.Origin = strings.ToUpper(strings.TrimSpace(o.origin))
	}
	if flags.Changed("dest") {
		cfg.Dest = strings.ToUpper(strings.TrimSpace(o.dest))
	}
	if flags.Changed("airlines") {
		cfg.Airlines = utils.ParseCodes(o.airlines)
	}
	if flags.Changed("data-dir") {
		cfg.DataDir = o.dataDir
	}
	if flags.Changed("store") {
		cfg.FareStore = strings.ToLower(o.store)
	}
	if flags.Changed("notify") {
		cfg.NotifyEnabled = o.notify
	}
	if flags.Changed("log-level") {
		cfg.LogLevel = o.logLevel
	}
	if flags.Changed("date") {
		cfg.TravelDate = o.travelDate
	}
	if flags.Changed("cheapest-only") {
		cfg.CheapestOnly = o.cheapestOnly
	}
	if flags.Changed("partition-by-date") {
		cfg.PartitionByDate = o.byDate
	}
	if flags.Changed("start") {
		cfg.StartDate = o.start
	}
	if flags.Changed("months") {
		cfg.MonthsAhead = o.months
	}
	if err := cfg.Validate(); err != nil {
		return nil, nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, logger.NewLogger(cfg.LogLevel, cfg.LogFormat), nil
}
