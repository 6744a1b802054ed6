// Package cmd provides the CLI commands for Lorekeep.
package cmd

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/lorekeep/lorekeep/internal/config"
	"github.com/lorekeep/lorekeep/internal/logging"
	"github.com/lorekeep/lorekeep/internal/profiling"
	"github.com/lorekeep/lorekeep/pkg/version"
)

// Profiling flags.
var (
	profileCPU string
	profileMem string
	profiler   = profiling.NewProfiler()
	cpuCleanup func()
)

// Global flags shared by every subcommand.
var (
	configPath string
	dataDir    string
	logLevel   string
)

// NewRootCmd creates the root command for the lorekeep CLI.
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "lorekeep",
		Short: "Hybrid search MCP server for personal knowledge vaults",
		Long: `Lorekeep provides hybrid search (semantic + keyword + fuzzy) over
markdown note vaults for AI assistants.

Results from every strategy are fused with Reciprocal Rank Fusion and
notes linked to strong matches are boosted, so one ranked list reflects
meaning, exact wording, and the structure of your vault at once.

Run 'lorekeep index <vault>' once, then 'lorekeep serve' to expose the
vault to MCP clients.`,
		Version: version.Version,
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) > 0 {
				return cmd.Help()
			}
			// Default action mirrors `serve`: MCP clients configured with
			// a bare `lorekeep` command get the stdio server.
			return runServe(cmd.Context(), "stdio", false)
		},
	}

	cmd.SetVersionTemplate("lorekeep version {{.Version}}\n")

	cmd.PersistentFlags().StringVar(&configPath, "config", "", "Config file (default ~/.lorekeep/config.yaml)")
	cmd.PersistentFlags().StringVar(&dataDir, "data-dir", "", "Data directory for indexes and collections")
	cmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "Log level (debug, info, warn, error)")

	cmd.PersistentFlags().StringVar(&profileCPU, "profile-cpu", "", "Write CPU profile to file")
	cmd.PersistentFlags().StringVar(&profileMem, "profile-mem", "", "Write memory profile to file")
	cmd.PersistentPreRunE = startProfiling
	cmd.PersistentPostRunE = stopProfiling

	cmd.AddCommand(newServeCmd())
	cmd.AddCommand(newIndexCmd())
	cmd.AddCommand(newSearchCmd())
	cmd.AddCommand(newStatusCmd())
	cmd.AddCommand(newCacheCmd())
	cmd.AddCommand(newMetricsCmd())
	cmd.AddCommand(newConfigCmd())
	cmd.AddCommand(newVersionCmd())

	return cmd
}

// loadConfig resolves configuration for a command run, applying the
// global flag overrides on top of the file and environment.
func loadConfig() (*config.Config, error) {
	path := configPath
	if path == "" {
		path = config.DefaultConfigPath()
	}

	cfg, err := config.Load(path)
	if err != nil {
		return nil, err
	}
	if dataDir != "" {
		cfg.Storage.DataDir = dataDir
	}
	if logLevel != "" {
		cfg.Server.LogLevel = logLevel
	}
	return cfg, nil
}

// startProfiling starts CPU profiling if requested.
func startProfiling(_ *cobra.Command, _ []string) error {
	if profileCPU == "" {
		return nil
	}
	cleanup, err := profiler.StartCPU(profileCPU)
	if err != nil {
		return fmt.Errorf("start CPU profile: %w", err)
	}
	cpuCleanup = cleanup
	return nil
}

// stopProfiling stops CPU profiling and writes the heap profile if
// requested.
func stopProfiling(_ *cobra.Command, _ []string) error {
	if cpuCleanup != nil {
		cpuCleanup()
		cpuCleanup = nil
	}
	if profileMem != "" {
		if err := profiler.WriteHeap(profileMem); err != nil {
			return fmt.Errorf("write memory profile: %w", err)
		}
	}
	return nil
}

// Execute runs the root command.
func Execute() error {
	return NewRootCmd().Execute()
}

// fileExists checks if a file exists.
func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

// setupLogging is shared by commands that log before doing work.
func setupLogging(cfg *config.Config, forceJSON bool) *slog.Logger {
	return logging.Setup(logging.Config{
		Level:     cfg.Server.LogLevel,
		ForceJSON: forceJSON,
	})
}
