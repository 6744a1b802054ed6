package provider

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/lorekeep/lorekeep/internal/embed"
	"github.com/lorekeep/lorekeep/internal/store"
)

// InvalidateFunc is called after index mutations so caches and health
// snapshots covering the mutated notes can be dropped.
type InvalidateFunc func(noteIDs []string)

// Indexer is the single write path for vault notes. Every mutation goes
// through it so the collection store, the text index, and the vector
// graph stay in step.
type Indexer struct {
	notes    store.CollectionStore
	index    *NoteIndex
	semantic *SemanticProvider
	embedder embed.Embedder
	logger   *slog.Logger

	invalidate []InvalidateFunc
}

// NewIndexer builds the vault write path.
func NewIndexer(notes store.CollectionStore, index *NoteIndex, semantic *SemanticProvider, embedder embed.Embedder, logger *slog.Logger) *Indexer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Indexer{
		notes:    notes,
		index:    index,
		semantic: semantic,
		embedder: embedder,
		logger:   logger,
	}
}

// OnInvalidate registers a hook fired after each successful mutation.
func (ix *Indexer) OnInvalidate(fn InvalidateFunc) {
	ix.invalidate = append(ix.invalidate, fn)
}

// IndexNotes upserts notes across the store, the text index, and the
// vector graph. Incoming links are recomputed for the batch before
// writing. Embedding failure degrades to text-only indexing rather than
// failing the batch.
func (ix *Indexer) IndexNotes(ctx context.Context, notes []*store.Note) error {
	if len(notes) == 0 {
		return nil
	}
	start := time.Now()

	now := time.Now()
	for _, n := range notes {
		if n.ID == "" {
			n.ID = noteID(n.Path)
		}
		if n.Title == "" {
			n.Title = titleFromPath(n.Path)
		}
		n.UpdatedAt = now
	}
	resolveIncoming(notes)

	if err := ix.notes.Put(ctx, store.CollectionNotes, notes); err != nil {
		return fmt.Errorf("store notes: %w", err)
	}
	if err := ix.index.Index(ctx, notes); err != nil {
		return fmt.Errorf("index notes: %w", err)
	}

	if err := ix.embedBatch(ctx, notes); err != nil {
		ix.logger.Warn("embedding failed, notes indexed text-only",
			"count", len(notes), "error", err)
	}

	ids := idsOf(notes)
	ix.fireInvalidate(ids)
	ix.logger.Info("indexed notes",
		"count", len(notes), "duration_ms", time.Since(start).Milliseconds())
	return nil
}

// RemoveNotes deletes notes from every index layer.
func (ix *Indexer) RemoveNotes(ctx context.Context, ids []string) error {
	if len(ids) == 0 {
		return nil
	}

	if err := ix.notes.Delete(ctx, store.CollectionNotes, ids); err != nil {
		return fmt.Errorf("delete notes: %w", err)
	}
	if err := ix.notes.Delete(ctx, store.CollectionEmbeddings, ids); err != nil && !errors.Is(err, store.ErrCollectionNotFound) {
		return fmt.Errorf("delete embeddings: %w", err)
	}
	if err := ix.index.Delete(ctx, ids); err != nil {
		return fmt.Errorf("deindex notes: %w", err)
	}
	ix.semantic.Remove(ids)

	ix.fireInvalidate(ids)
	ix.logger.Info("removed notes", "count", len(ids))
	return nil
}

// embedBatch computes and persists embeddings for the batch.
func (ix *Indexer) embedBatch(ctx context.Context, notes []*store.Note) error {
	if !ix.embedder.Available(ctx) {
		return fmt.Errorf("embedder unavailable")
	}

	texts := make([]string, len(notes))
	for i, n := range notes {
		texts[i] = n.Title + "\n" + n.Content
	}
	vectors, err := ix.embedder.EmbedBatch(ctx, texts)
	if err != nil {
		return err
	}

	records := make([]*store.Note, len(notes))
	ids := make([]string, len(notes))
	for i, n := range notes {
		ids[i] = n.ID
		records[i] = &store.Note{
			ID:        n.ID,
			Title:     n.Title,
			Path:      n.Path,
			Embedding: vectors[i],
			UpdatedAt: n.UpdatedAt,
		}
	}
	if err := ix.notes.Put(ctx, store.CollectionEmbeddings, records); err != nil {
		return fmt.Errorf("store embeddings: %w", err)
	}
	return ix.semantic.Add(ids, vectors)
}

func (ix *Indexer) fireInvalidate(ids []string) {
	for _, fn := range ix.invalidate {
		fn(ids)
	}
}

// resolveIncoming rebuilds incoming links within the batch from the
// outgoing references, matched by note title or path basename.
func resolveIncoming(notes []*store.Note) {
	byName := make(map[string]*store.Note, len(notes)*2)
	for _, n := range notes {
		byName[strings.ToLower(n.Title)] = n
		byName[strings.ToLower(basename(n.Path))] = n
	}

	for _, n := range notes {
		n.Incoming = nil
	}
	for _, n := range notes {
		for _, link := range n.Outgoing {
			target, ok := byName[strings.ToLower(link.Target)]
			if !ok || target.ID == n.ID {
				continue
			}
			target.Incoming = append(target.Incoming, store.Link{
				Target: n.Title,
				Path:   n.Path,
			})
		}
	}
}

func idsOf(notes []*store.Note) []string {
	ids := make([]string, len(notes))
	for i, n := range notes {
		ids[i] = n.ID
	}
	return ids
}

// noteID derives a stable ID from the vault path.
func noteID(path string) string {
	return strings.TrimSuffix(strings.ReplaceAll(path, "/", ":"), ".md")
}

// titleFromPath falls back to the filename when a note has no title.
func titleFromPath(path string) string {
	return strings.TrimSuffix(basename(path), ".md")
}

func basename(path string) string {
	if i := strings.LastIndexByte(path, '/'); i >= 0 {
		return path[i+1:]
	}
	return path
}
