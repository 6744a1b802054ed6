package provider

import (
	"context"
	"fmt"
	"sync"

	"github.com/coder/hnsw"

	"github.com/lorekeep/lorekeep/internal/embed"
	verrors "github.com/lorekeep/lorekeep/internal/errors"
	"github.com/lorekeep/lorekeep/internal/store"
)

// SemanticProvider serves conceptual matching: query and notes are
// embedded into the same vector space and ranked by cosine similarity
// over an HNSW graph. Embeddings are also persisted to the embeddings
// collection so the validator can trial-query them.
type SemanticProvider struct {
	mu       sync.RWMutex
	graph    *hnsw.Graph[string]
	embedder embed.Embedder
	notes    store.CollectionStore

	// tombstones marks IDs removed from search without graph surgery.
	// coder/hnsw misbehaves when the last node is deleted, so removal
	// is lazy: the node stays in the graph but is skipped in results.
	tombstones map[string]struct{}
}

// NewSemanticProvider builds a semantic provider over an empty graph.
// Vectors are loaded through IndexNotes or Restore.
func NewSemanticProvider(embedder embed.Embedder, notes store.CollectionStore) *SemanticProvider {
	graph := hnsw.NewGraph[string]()
	graph.Distance = hnsw.CosineDistance
	graph.M = 16
	graph.EfSearch = 20
	graph.Ml = 0.25

	return &SemanticProvider{
		graph:      graph,
		embedder:   embedder,
		notes:      notes,
		tombstones: make(map[string]struct{}),
	}
}

func (p *SemanticProvider) Type() Type { return TypeSemantic }

// Available reports whether the embedder and the embeddings collection
// can serve queries.
func (p *SemanticProvider) Available(ctx context.Context) bool {
	if !p.embedder.Available(ctx) {
		return false
	}
	exists, err := p.notes.HasCollection(ctx, store.CollectionEmbeddings)
	return err == nil && exists
}

// Add inserts or replaces note vectors in the graph.
func (p *SemanticProvider) Add(ids []string, vectors [][]float32) error {
	if len(ids) != len(vectors) {
		return fmt.Errorf("ids/vectors length mismatch: %d != %d", len(ids), len(vectors))
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	for i, id := range ids {
		if len(vectors[i]) != p.embedder.Dimensions() {
			return fmt.Errorf("vector %s: dimension mismatch: expected %d, got %d",
				id, p.embedder.Dimensions(), len(vectors[i]))
		}
		p.graph.Add(hnsw.MakeNode(id, vectors[i]))
		delete(p.tombstones, id)
	}
	return nil
}

// Remove lazily deletes note vectors from search results.
func (p *SemanticProvider) Remove(ids []string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	for _, id := range ids {
		p.tombstones[id] = struct{}{}
	}
}

// Len returns the number of live vectors.
func (p *SemanticProvider) Len() int {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.graph.Len() - len(p.tombstones)
}

// Restore loads persisted embeddings from the embeddings collection into
// the graph. Called at startup so the index survives restarts.
func (p *SemanticProvider) Restore(ctx context.Context) error {
	matches, err := p.notes.Query(ctx, store.CollectionEmbeddings, store.QuerySpec{
		NResults: 1 << 20,
	})
	if err != nil {
		return fmt.Errorf("load embeddings: %w", err)
	}

	ids := make([]string, 0, len(matches))
	vectors := make([][]float32, 0, len(matches))
	for _, m := range matches {
		if len(m.Note.Embedding) == 0 {
			continue
		}
		ids = append(ids, m.Note.ID)
		vectors = append(vectors, m.Note.Embedding)
	}
	return p.Add(ids, vectors)
}

// Search embeds the query and returns the nearest notes above the
// threshold, hydrated from the notes collection.
func (p *SemanticProvider) Search(ctx context.Context, query string, opts Options) ([]*Result, error) {
	limit := opts.Limit
	if limit <= 0 {
		limit = 50
	}

	vec, err := p.embedder.Embed(ctx, query)
	if err != nil {
		return nil, verrors.ProviderFailure("semantic", err)
	}

	p.mu.RLock()
	if p.graph.Len() == 0 {
		p.mu.RUnlock()
		return []*Result{}, nil
	}
	// Over-fetch to cover tombstoned nodes still present in the graph.
	k := limit + len(p.tombstones)
	nodes := p.graph.Search(vec, k)

	hits := make([]*IndexHit, 0, len(nodes))
	for _, node := range nodes {
		if _, dead := p.tombstones[node.Key]; dead {
			continue
		}
		dist := p.graph.Distance(vec, node.Value)
		hits = append(hits, &IndexHit{ID: node.Key, Score: 1 - float64(dist)})
		if len(hits) == limit {
			break
		}
	}
	p.mu.RUnlock()

	return hydrate(ctx, p.notes, hits, TypeSemantic, opts.Threshold)
}

var _ Provider = (*SemanticProvider)(nil)
