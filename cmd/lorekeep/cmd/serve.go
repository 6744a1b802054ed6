package cmd

import (
	"context"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/lorekeep/lorekeep/internal/mcp"
	"github.com/lorekeep/lorekeep/internal/store"
	"github.com/lorekeep/lorekeep/internal/vault"
	"github.com/lorekeep/lorekeep/internal/watcher"
)

// newServeCmd creates the serve command.
func newServeCmd() *cobra.Command {
	var transport string
	var watch bool
	var vaultDir string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the MCP server",
		Long: `Run the MCP server over stdio for AI clients.

Nothing is written to stdout except protocol messages; logs go to
stderr as JSON. With --watch, the vault directory is monitored and
changed notes are re-indexed live.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if watch {
				return runServeWatching(cmd.Context(), transport, vaultDir)
			}
			return runServe(cmd.Context(), transport, true)
		},
	}

	cmd.Flags().StringVar(&transport, "transport", "stdio", "MCP transport (stdio)")
	cmd.Flags().BoolVar(&watch, "watch", false, "Re-index notes as they change on disk")
	cmd.Flags().StringVar(&vaultDir, "vault", ".", "Vault directory to watch (with --watch)")

	return cmd
}

// runServe starts the MCP server and blocks until the client disconnects
// or the context is canceled.
func runServe(ctx context.Context, transport string, _ bool) error {
	a, srv, err := openServer(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	return srv.Serve(ctx, transport)
}

// openServer assembles the search stack and the MCP server on top of it.
// Logging is forced to JSON on stderr so stdout stays protocol-only.
func openServer(ctx context.Context) (*app, *mcp.Server, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, nil, err
	}
	logger := setupLogging(cfg, true)

	a, err := openApp(ctx, cfg, logger)
	if err != nil {
		return nil, nil, err
	}

	srv, err := mcp.NewServer(a.coordinator, a.validator, cfg, logger)
	if err != nil {
		a.Close()
		return nil, nil, err
	}
	return a, srv, nil
}

// runServeWatching starts the MCP server alongside a vault watcher that
// re-indexes notes as they change.
func runServeWatching(ctx context.Context, transport, vaultDir string) error {
	a, srv, err := openServer(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	w, err := watcher.NewVaultWatcher(watcher.Options{
		Root:   vaultDir,
		Logger: a.logger,
	})
	if err != nil {
		return err
	}
	defer w.Close()

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	go applyVaultEvents(ctx, a, vaultDir, w.Events())
	if err := w.Start(ctx); err != nil {
		return err
	}

	return srv.Serve(ctx, transport)
}

// applyVaultEvents folds watcher batches into the indexes.
func applyVaultEvents(ctx context.Context, a *app, vaultDir string, events <-chan []watcher.Event) {
	for {
		select {
		case <-ctx.Done():
			return
		case batch, ok := <-events:
			if !ok {
				return
			}
			reindexBatch(ctx, a, vaultDir, batch)
		}
	}
}

// reindexBatch re-parses changed notes and removes deleted ones.
func reindexBatch(ctx context.Context, a *app, vaultDir string, batch []watcher.Event) {
	var removed []string
	for _, ev := range batch {
		if !strings.EqualFold(filepath.Ext(ev.Path), ".md") {
			continue
		}
		rel, err := filepath.Rel(vaultDir, ev.Path)
		if err != nil {
			rel = ev.Path
		}

		if ev.Op == watcher.OpDelete {
			removed = append(removed, vault.NoteID(rel))
			continue
		}

		note, err := vault.Load(vaultDir, rel)
		if err != nil {
			a.logger.Warn("skipping changed note", "path", rel, "error", err)
			continue
		}
		if err := a.indexer.IndexNotes(ctx, []*store.Note{note}); err != nil {
			a.logger.Warn("re-index failed", "path", rel, "error", err)
		}
	}

	if len(removed) > 0 {
		if err := a.indexer.RemoveNotes(ctx, removed); err != nil {
			a.logger.Warn("remove failed", "count", len(removed), "error", err)
		}
	}
}
