package cmd

import (
	"context"
	"encoding/json"

	"github.com/spf13/cobra"

	"github.com/lorekeep/lorekeep/internal/output"
	"github.com/lorekeep/lorekeep/internal/preflight"
	"github.com/lorekeep/lorekeep/internal/provider"
	"github.com/lorekeep/lorekeep/internal/store"
	"github.com/lorekeep/lorekeep/internal/validation"
)

// statusReport is the JSON shape of the status command.
type statusReport struct {
	DataDir      string                  `json:"data_dir"`
	Notes        int                     `json:"notes"`
	Embeddings   int                     `json:"embeddings"`
	HealthScore  int                     `json:"health_score"`
	Healthy      bool                    `json:"healthy"`
	Capabilities map[provider.Type]bool  `json:"capabilities"`
	Dependencies *validation.Result      `json:"dependencies,omitempty"`
	Checks       []preflight.CheckResult `json:"checks"`
}

// newStatusCmd creates the status command.
func newStatusCmd() *cobra.Command {
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show search health and index statistics",
		Long: `Inspect the state of the search stack: which strategies are
available, whether the backing collections are healthy, and how many
notes are indexed. Run this when searches come back degraded.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runStatus(cmd.Context(), cmd, jsonOutput)
		},
	}

	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output as JSON")
	return cmd
}

func runStatus(ctx context.Context, cmd *cobra.Command, jsonOutput bool) error {
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

	report := statusReport{
		DataDir: cfg.Storage.DataDir,
		Checks:  preflight.Run(ctx, preflight.Options{DataDir: cfg.Storage.DataDir, Embedder: a.embedder}),
	}

	health := a.coordinator.HealthStatus(ctx)
	report.HealthScore = health.Score
	report.Healthy = health.Healthy
	report.Capabilities = health.Capabilities

	if n, err := a.store.Count(ctx, store.CollectionNotes); err == nil {
		report.Notes = n
	}
	if n, err := a.store.Count(ctx, store.CollectionEmbeddings); err == nil {
		report.Embeddings = n
	}
	if deps, err := a.validator.ValidateSearchDependencies(ctx, validation.SearchHybrid); err == nil {
		report.Dependencies = deps
	}

	if jsonOutput {
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(report)
	}

	out := output.New(cmd.OutOrStdout())
	renderStatus(out, &report)
	return nil
}

// renderStatus prints the status report for humans.
func renderStatus(out *output.Writer, r *statusReport) {
	out.Header("Lorekeep status")
	out.KeyValue("Data directory", r.DataDir)
	out.KeyValuef("Indexed notes", "%d", r.Notes)
	out.KeyValuef("Embeddings", "%d", r.Embeddings)
	out.Blank()

	if r.Healthy {
		out.Success("Search health: %d/100", r.HealthScore)
	} else {
		out.Warning("Search health: %d/100 (degraded)", r.HealthScore)
	}
	for _, kind := range []provider.Type{provider.TypeSemantic, provider.TypeKeyword, provider.TypeFuzzy} {
		if r.Capabilities[kind] {
			out.Success("  %s available", kind)
		} else {
			out.Error("  %s unavailable", kind)
		}
	}

	if r.Dependencies != nil && !r.Dependencies.Valid {
		out.Blank()
		for _, name := range r.Dependencies.MissingCollections {
			out.Warning("missing collection: %s", name)
		}
		for _, name := range r.Dependencies.CorruptedCollections {
			out.Error("corrupted collection: %s", name)
		}
		out.Detail("run 'lorekeep index <vault>' to rebuild")
	}

	out.Blank()
	for _, c := range r.Checks {
		switch c.Status {
		case preflight.StatusPass:
			out.Success("%s: %s", c.Name, c.Message)
		case preflight.StatusWarn:
			out.Warning("%s: %s", c.Name, c.Message)
		default:
			out.Error("%s: %s", c.Name, c.Message)
		}
	}
}
