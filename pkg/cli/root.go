// Package cli implements the trackdq command-line interface.
package cli

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"trackdq/internal/config"
)

var (
	version = "dev"
	commit  = "none"
)

// errChecksFailed signals a completed run whose overall result was not a
// pass; it maps to exit code 1 without the usage noise of a real error.
var errChecksFailed = errors.New("data quality checks did not pass")

// Execute runs the CLI and returns the process exit code.
func Execute() int {
	rootCmd := newRootCmd()
	if err := rootCmd.Execute(); err != nil {
		if !errors.Is(err, errChecksFailed) {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		}
		return 1
	}
	return 0
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:           "trackdq",
		Short:         "Data-quality engine for the music-catalog warehouse",
		Long:          "trackdq evaluates declarative data-quality checks against the analytics warehouse,\ncaptures failing rows, and aggregates run metrics for dashboards and alerting.",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.PersistentFlags().String("warehouse", "", "DuckDB warehouse path (overrides WAREHOUSE_PATH)")
	rootCmd.PersistentFlags().String("meta-db", "", "SQLite metrics-store path (overrides META_DB_PATH)")
	rootCmd.PersistentFlags().String("suite", "", "check-suite YAML path (overrides CHECK_SUITE_PATH)")
	rootCmd.PersistentFlags().String("log-level", "", "log level: debug, info, warn, error")
	rootCmd.PersistentFlags().Bool("seed", false, "seed demo marts data before running")

	rootCmd.AddCommand(newRunCmd())
	rootCmd.AddCommand(newDiscoverCmd())
	rootCmd.AddCommand(newAlertsCmd())
	rootCmd.AddCommand(newServeCmd())
	rootCmd.AddCommand(newVersionCmd())

	return rootCmd
}

// loadConfig builds the engine config from the environment with persistent
// flags taking precedence.
func loadConfig(cmd *cobra.Command) *config.Config {
	cfg := config.LoadFromEnv()

	if v, _ := cmd.Flags().GetString("warehouse"); cmd.Flags().Changed("warehouse") {
		cfg.WarehousePath = v
	}
	if v, _ := cmd.Flags().GetString("meta-db"); cmd.Flags().Changed("meta-db") {
		cfg.MetaDBPath = v
	}
	if v, _ := cmd.Flags().GetString("suite"); cmd.Flags().Changed("suite") {
		cfg.SuitePath = v
	}
	if v, _ := cmd.Flags().GetString("log-level"); cmd.Flags().Changed("log-level") {
		cfg.LogLevel = v
	}
	if v, _ := cmd.Flags().GetBool("seed"); v {
		cfg.SeedDemo = true
	}
	return cfg
}
