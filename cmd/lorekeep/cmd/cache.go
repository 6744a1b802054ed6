package cmd

import (
	"context"
	"encoding/json"

	"github.com/spf13/cobra"

	"github.com/lorekeep/lorekeep/internal/output"
)

// newCacheCmd creates the cache command group.
func newCacheCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "cache",
		Short: "Inspect and manage the result cache",
	}
	cmd.AddCommand(newCacheStatsCmd())
	cmd.AddCommand(newCacheClearCmd())
	return cmd
}

// newCacheStatsCmd creates the cache stats subcommand.
func newCacheStatsCmd() *cobra.Command {
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Show result cache statistics",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCacheStats(cmd.Context(), cmd, jsonOutput)
		},
	}
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output as JSON")
	return cmd
}

func runCacheStats(ctx context.Context, cmd *cobra.Command, jsonOutput bool) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	logger := setupLogging(cfg, jsonOutput)

	a, err := openApp(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer a.Close()

	stats := a.coordinator.CacheStats()
	out := output.New(cmd.OutOrStdout())

	if stats == nil {
		out.Warning("result caching is disabled")
		return nil
	}
	if jsonOutput {
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(stats)
	}

	out.Header("Result cache")
	out.KeyValuef("Entries", "%d", stats.Size)
	out.KeyValuef("Hits", "%d", stats.Hits)
	out.KeyValuef("Misses", "%d", stats.Misses)
	out.KeyValuef("Hit rate", "%.1f%%", stats.HitRate*100)
	out.KeyValuef("Evictions", "%d", stats.Evictions)
	out.KeyValuef("Memory", "%d bytes", stats.MemoryBytes)
	return nil
}

// newCacheClearCmd creates the cache clear subcommand.
func newCacheClearCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "clear",
		Short: "Drop every cached search result",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			logger := setupLogging(cfg, false)

			a, err := openApp(cmd.Context(), cfg, logger)
			if err != nil {
				return err
			}
			defer a.Close()

			a.coordinator.InvalidateCache()
			output.New(cmd.OutOrStdout()).Success("result cache cleared")
			return nil
		},
	}
}
