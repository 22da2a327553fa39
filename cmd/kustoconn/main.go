package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/systmms/kustoconn/cmd/kustoconn/commands"
	"github.com/systmms/kustoconn/internal/config"
	dserrors "github.com/systmms/kustoconn/internal/errors"
	"github.com/systmms/kustoconn/internal/logging"
	"github.com/systmms/kustoconn/internal/metrics"
)

var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", dserrors.SimplifyError(err))
		os.Exit(1)
	}
}

func run() error {
	var (
		configFile  string
		noColor     bool
		debug       bool
		metricsFile string
	)

	cfg := &config.Config{}

	rootCmd := &cobra.Command{
		Use:   "kustoconn",
		Short: "Parse, validate and use Kusto connection strings",
		Long: `kustoconn parses Azure Data Explorer (Kusto) connection strings,
normalizes and validates them, and runs queries with the credential they
describe.

Connection strings come from --connection-string, a named --cluster in
kustoconn.yaml, or $KUSTO_CONNECTION_STRING, in that order.`,
		Version:       fmt.Sprintf("%s (commit: %s, built: %s)", version, commit, date),
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			cfg.Path = configFile
			cfg.Logger = logging.New(debug, noColor)
			if metricsFile != "" {
				metrics.InitMetrics()
			}
		},
	}

	rootCmd.PersistentFlags().StringVar(&configFile, "config", config.DefaultPath, "Config file path")
	rootCmd.PersistentFlags().BoolVar(&noColor, "no-color", false, "Disable colored output")
	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false, "Enable debug logging")
	rootCmd.PersistentFlags().StringVar(&metricsFile, "metrics-file", "", "Write Prometheus metrics to this file on exit")

	rootCmd.AddCommand(
		commands.NewParseCommand(cfg),
		commands.NewNormalizeCommand(cfg),
		commands.NewValidateCommand(cfg),
		commands.NewKeywordsCommand(cfg),
		commands.NewClustersCommand(cfg),
		commands.NewQueryCommand(cfg, version),
	)

	err := rootCmd.Execute()
	if metricsFile != "" && metrics.IsMetricsRegistered() {
		if werr := metrics.WriteTextfile(metricsFile); werr != nil && err == nil {
			err = fmt.Errorf("writing metrics: %w", werr)
		}
	}
	return err
}
