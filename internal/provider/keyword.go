package provider

import (
	"context"

	verrors "github.com/lorekeep/lorekeep/internal/errors"
	"github.com/lorekeep/lorekeep/internal/store"
)

// KeywordProvider serves exact term and phrase matching over the note
// index. Scores are normalized to 0-1 by the top hit before the caller's
// threshold applies.
type KeywordProvider struct {
	index *NoteIndex
	notes store.CollectionStore
}

// NewKeywordProvider builds a keyword provider over a shared note index.
func NewKeywordProvider(index *NoteIndex, notes store.CollectionStore) *KeywordProvider {
	return &KeywordProvider{index: index, notes: notes}
}

func (p *KeywordProvider) Type() Type { return TypeKeyword }

// Available reports whether the index and the notes collection can serve
// queries.
func (p *KeywordProvider) Available(ctx context.Context) bool {
	if _, err := p.index.DocCount(); err != nil {
		return false
	}
	exists, err := p.notes.HasCollection(ctx, store.CollectionNotes)
	return err == nil && exists
}

// Search runs the match query and hydrates hits from the notes collection.
func (p *KeywordProvider) Search(ctx context.Context, query string, opts Options) ([]*Result, error) {
	limit := opts.Limit
	if limit <= 0 {
		limit = 50
	}

	hits, err := p.index.SearchMatch(ctx, query, limit)
	if err != nil {
		return nil, verrors.ProviderFailure("keyword", err)
	}
	normalizeHitScores(hits)

	return hydrate(ctx, p.notes, hits, TypeKeyword, opts.Threshold)
}

// hydrate resolves index hits to full results via the notes collection.
// Hits whose note record has disappeared (index ahead of store) are
// dropped rather than surfaced as hollow results.
func hydrate(ctx context.Context, notes store.CollectionStore, hits []*IndexHit, method Type, threshold float64) ([]*Result, error) {
	filtered := make([]*IndexHit, 0, len(hits))
	ids := make([]string, 0, len(hits))
	for _, h := range hits {
		if threshold > 0 && h.Score < threshold {
			continue
		}
		filtered = append(filtered, h)
		ids = append(ids, h.ID)
	}
	if len(ids) == 0 {
		return []*Result{}, nil
	}

	records, err := notes.Get(ctx, store.CollectionNotes, ids)
	if err != nil {
		return nil, verrors.ProviderFailure(string(method), err)
	}
	byID := make(map[string]*store.Note, len(records))
	for _, n := range records {
		byID[n.ID] = n
	}

	results := make([]*Result, 0, len(filtered))
	for _, h := range filtered {
		n, ok := byID[h.ID]
		if !ok {
			continue
		}
		r := resultFromNote(n, method, h.Score)
		r.MatchedTerms = h.MatchedTerms
		results = append(results, r)
	}
	return results, nil
}

var _ Provider = (*KeywordProvider)(nil)
