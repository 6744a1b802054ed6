package cmd

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/lorekeep/lorekeep/internal/store"
	"github.com/lorekeep/lorekeep/internal/ui"
	"github.com/lorekeep/lorekeep/internal/vault"
)

// indexOptions holds flags for the index command.
type indexOptions struct {
	prune   bool
	noTUI   bool
	noColor bool
}

// newIndexCmd creates the index command.
func newIndexCmd() *cobra.Command {
	opts := &indexOptions{}

	cmd := &cobra.Command{
		Use:   "index [vault-dir]",
		Short: "Index a vault of markdown notes",
		Long: `Scan a vault directory for markdown notes and build the search
indexes: the collection store, the full-text index, and embeddings.

Indexing is incremental: existing notes are re-indexed in place. Pass
--prune to also remove notes that no longer exist on disk.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			vaultDir := "."
			if len(args) > 0 {
				vaultDir = args[0]
			}
			return runIndex(cmd.Context(), cmd, vaultDir, opts)
		},
	}

	cmd.Flags().BoolVar(&opts.prune, "prune", false, "Remove indexed notes that no longer exist on disk")
	cmd.Flags().BoolVar(&opts.noTUI, "no-tui", false, "Force plain text progress output")
	cmd.Flags().BoolVar(&opts.noColor, "no-color", false, "Disable colored output")

	return cmd
}

// runIndex scans the vault and feeds notes to the indexer in batches.
func runIndex(ctx context.Context, cmd *cobra.Command, vaultDir string, opts *indexOptions) error {
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

	renderer := ui.NewRenderer(ui.NewConfig(cmd.OutOrStdout(),
		ui.WithForcePlain(opts.noTUI),
		ui.WithNoColor(opts.noColor),
		ui.WithVaultDir(vaultDir),
	))
	if err := renderer.Start(ctx); err != nil {
		return err
	}
	defer renderer.Stop()

	start := time.Now()
	renderer.UpdateProgress(ui.ProgressEvent{Stage: ui.StageScanning})

	notes, err := vault.Scan(vaultDir)
	if err != nil {
		return fmt.Errorf("scan vault: %w", err)
	}
	renderer.UpdateProgress(ui.ProgressEvent{
		Stage: ui.StageScanning,
		Total: len(notes),
	})

	// Notes go in as one batch: incoming links are resolved across the
	// whole vault, not per chunk.
	renderer.UpdateProgress(ui.ProgressEvent{
		Stage: ui.StageIndexing,
		Total: len(notes),
	})
	errCount := 0
	if len(notes) > 0 {
		if err := a.indexer.IndexNotes(ctx, notes); err != nil {
			renderer.AddError(ui.ErrorEvent{Note: vaultDir, Err: err})
			return fmt.Errorf("index vault: %w", err)
		}
	}

	links := 0
	for _, n := range notes {
		links += len(n.Outgoing)
	}
	renderer.UpdateProgress(ui.ProgressEvent{
		Stage:   ui.StageIndexing,
		Current: len(notes),
		Total:   len(notes),
	})

	if opts.prune {
		if err := pruneMissing(ctx, a, notes, renderer); err != nil {
			return err
		}
	}

	renderer.Complete(ui.CompletionStats{
		Notes:    len(notes),
		Links:    links,
		Errors:   errCount,
		Duration: time.Since(start),
		Embedder: ui.EmbedderInfo{
			Model:      a.embedder.ModelName(),
			Dimensions: a.embedder.Dimensions(),
		},
	})
	return nil
}

// pruneMissing removes indexed notes whose source files are gone.
func pruneMissing(ctx context.Context, a *app, notes []*store.Note, renderer ui.Renderer) error {
	present := make(map[string]struct{}, len(notes))
	for _, n := range notes {
		present[n.ID] = struct{}{}
	}

	indexed, err := a.store.IDs(ctx, store.CollectionNotes)
	if err != nil {
		return fmt.Errorf("list indexed notes: %w", err)
	}

	var stale []string
	for _, id := range indexed {
		if _, ok := present[id]; !ok {
			stale = append(stale, id)
		}
	}
	if len(stale) == 0 {
		return nil
	}

	if err := a.indexer.RemoveNotes(ctx, stale); err != nil {
		return fmt.Errorf("prune %d notes: %w", len(stale), err)
	}
	renderer.UpdateProgress(ui.ProgressEvent{
		Stage:   ui.StagePruning,
		Current: len(stale),
		Total:   len(stale),
	})
	return nil
}
