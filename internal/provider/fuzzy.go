package provider

import (
	"context"
	"strings"

	verrors "github.com/lorekeep/lorekeep/internal/errors"
	"github.com/lorekeep/lorekeep/internal/store"
)

// FuzzyProvider serves typo-tolerant matching: each query term becomes an
// edit-distance query against the note index. It shares the index with
// the keyword provider but scores independently.
type FuzzyProvider struct {
	index *NoteIndex
	notes store.CollectionStore

	// fuzziness is the maximum edit distance per term.
	fuzziness int
}

// NewFuzzyProvider builds a fuzzy provider over a shared note index.
func NewFuzzyProvider(index *NoteIndex, notes store.CollectionStore) *FuzzyProvider {
	return &FuzzyProvider{index: index, notes: notes, fuzziness: 2}
}

func (p *FuzzyProvider) Type() Type { return TypeFuzzy }

// Available reports whether the index and the notes collection can serve
// queries.
func (p *FuzzyProvider) Available(ctx context.Context) bool {
	if _, err := p.index.DocCount(); err != nil {
		return false
	}
	exists, err := p.notes.HasCollection(ctx, store.CollectionNotes)
	return err == nil && exists
}

// Search runs per-term fuzzy queries. Analysis-extracted fuzzy terms are
// preferred when present; otherwise the query is tokenized on whitespace.
func (p *FuzzyProvider) Search(ctx context.Context, query string, opts Options) ([]*Result, error) {
	limit := opts.Limit
	if limit <= 0 {
		limit = 50
	}

	terms := opts.Terms
	if len(terms) == 0 {
		terms = strings.Fields(query)
	}

	hits, err := p.index.SearchFuzzy(ctx, terms, p.fuzziness, limit)
	if err != nil {
		return nil, verrors.ProviderFailure("fuzzy", err)
	}
	normalizeHitScores(hits)

	return hydrate(ctx, p.notes, hits, TypeFuzzy, opts.Threshold)
}

var _ Provider = (*FuzzyProvider)(nil)
