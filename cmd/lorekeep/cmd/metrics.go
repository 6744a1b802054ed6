package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/lorekeep/lorekeep/internal/search"
)

// newMetricsCmd creates the metrics command.
func newMetricsCmd() *cobra.Command {
	var format string

	cmd := &cobra.Command{
		Use:   "metrics [query ...]",
		Short: "Run queries and export search telemetry",
		Long: `Run the given queries through the hybrid pipeline, then export the
collected telemetry: latency distribution, strategy usage, failure
rates, and zero-result queries.

This is a diagnostic harness for tuning thresholds offline; a running
server exposes its live telemetry through the query_metrics MCP tool.

Examples:
  lorekeep metrics "spaced repetition" zettelkasten "evergreen notes"
  lorekeep metrics --format csv "inbox zero"`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runMetrics(cmd.Context(), cmd, args, format)
		},
	}

	cmd.Flags().StringVar(&format, "format", "json", "Export format (json, csv)")
	return cmd
}

func runMetrics(ctx context.Context, cmd *cobra.Command, queries []string, format string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	logger := setupLogging(cfg, true)

	a, err := openApp(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer a.Close()

	// The cache would hide per-strategy behavior between repeated runs.
	for _, q := range queries {
		a.coordinator.CoordinateSearch(ctx, q, search.Options{BypassCache: true})
	}

	data, err := a.metrics.Export(format)
	if err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), string(data))
	return nil
}
