package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"

	"github.com/lorekeep/lorekeep/internal/cache"
	"github.com/lorekeep/lorekeep/internal/config"
	"github.com/lorekeep/lorekeep/internal/embed"
	"github.com/lorekeep/lorekeep/internal/provider"
	"github.com/lorekeep/lorekeep/internal/search"
	"github.com/lorekeep/lorekeep/internal/store"
	"github.com/lorekeep/lorekeep/internal/telemetry"
	"github.com/lorekeep/lorekeep/internal/validation"
)

// app wires the full search stack: collection store, indexes, providers,
// coordinator, and validator. Commands open one, use it, and Close it.
type app struct {
	cfg    *config.Config
	logger *slog.Logger

	store    *store.BoltStore
	index    *provider.NoteIndex
	embedder embed.Embedder
	semantic *provider.SemanticProvider
	indexer  *provider.Indexer

	coordinator *search.Coordinator
	validator   *validation.Validator
	metrics     *telemetry.SearchMetrics
}

// openApp opens the store and indexes under cfg.Storage.DataDir and
// assembles the coordinator on top of them.
func openApp(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*app, error) {
	if logger == nil {
		logger = slog.Default()
	}

	bolt, err := store.NewBoltStore(filepath.Join(cfg.Storage.DataDir, "collections.db"))
	if err != nil {
		return nil, fmt.Errorf("open collection store: %w", err)
	}

	index, err := provider.NewNoteIndex(filepath.Join(cfg.Storage.DataDir, "notes.bleve"))
	if err != nil {
		bolt.Close()
		return nil, fmt.Errorf("open note index: %w", err)
	}

	embedder := embed.NewStaticEmbedder()
	semantic := provider.NewSemanticProvider(embedder, bolt)
	if err := semantic.Restore(ctx); err != nil {
		logger.Warn("semantic index restore failed, starting empty", "error", err)
	}

	a := &app{
		cfg:      cfg,
		logger:   logger,
		store:    bolt,
		index:    index,
		embedder: embedder,
		semantic: semantic,
		metrics:  telemetry.NewSearchMetrics(),
	}

	a.validator = validation.NewValidator(bolt, cfg.Validator.HealthCacheTTL, logger)
	a.indexer = provider.NewIndexer(bolt, index, semantic, embedder, logger)

	providers := []provider.Provider{
		semantic,
		provider.NewKeywordProvider(index, bolt),
		provider.NewFuzzyProvider(index, bolt),
	}

	opts := []search.CoordinatorOption{
		search.WithMetrics(a.metrics),
		search.WithLogger(logger),
	}
	if cfg.Cache.Enabled {
		opts = append(opts, search.WithCache(cache.New[[]*search.HybridResult](cache.Config{
			MaxSize:  cfg.Cache.MaxSize,
			TTL:      cfg.Cache.TTL,
			Eviction: cache.EvictionStrategy(cfg.Cache.EvictionStrategy),
		})))
	}
	a.coordinator = search.NewCoordinator(cfg.Search, cfg.Graph, providers, opts...)

	// Keep cached results and cached health verdicts in step with the
	// collections they were computed from.
	a.indexer.OnInvalidate(func(_ []string) {
		a.coordinator.InvalidateCache()
		a.validator.InvalidateHealth()
	})

	return a, nil
}

// Close releases the store and index handles.
func (a *app) Close() error {
	var firstErr error
	if err := a.index.Close(); err != nil {
		firstErr = err
	}
	if err := a.store.Close(); err != nil && firstErr == nil {
		firstErr = err
	}
	return firstErr
}
