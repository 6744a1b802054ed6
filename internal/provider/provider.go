// Package provider implements the search provider contract: each provider
// executes one retrieval strategy (semantic, keyword, fuzzy) and returns
// provider-local scored results. Scores are not comparable across
// providers; the fusion engine combines them by rank.
package provider

import (
	"context"

	"github.com/lorekeep/lorekeep/internal/store"
)

// Type identifies a search strategy.
type Type string

const (
	TypeSemantic Type = "semantic"
	TypeKeyword  Type = "keyword"
	TypeFuzzy    Type = "fuzzy"
)

// AllTypes lists every known provider type.
func AllTypes() []Type {
	return []Type{TypeSemantic, TypeKeyword, TypeFuzzy}
}

// Options configures a single provider call.
type Options struct {
	// Limit is the maximum number of results to return.
	Limit int

	// Threshold is the minimum normalized score; 0 disables filtering.
	Threshold float64

	// Terms are analysis-extracted terms relevant to this strategy
	// (exact phrases for keyword, fuzzy terms for fuzzy).
	Terms []string
}

// Result is a single provider-local search result. The note payload is
// carried in full so downstream fusion and graph boosting never need to
// re-fetch records.
type Result struct {
	ID       string            `json:"id"`
	Title    string            `json:"title"`
	Snippet  string            `json:"snippet"`
	Content  string            `json:"content"`
	Score    float64           `json:"score"`
	Method   Type              `json:"search_method"`
	FilePath string            `json:"file_path"`

	Frontmatter map[string]string `json:"frontmatter,omitempty"`
	Tags        []string          `json:"tags,omitempty"`
	Outgoing    []store.Link      `json:"outgoing_links,omitempty"`
	Incoming    []store.Link      `json:"incoming_links,omitempty"`

	// MatchedTerms contains query terms that matched (keyword/fuzzy only).
	MatchedTerms []string `json:"matched_terms,omitempty"`
}

// Provider is the strategy contract consumed by the query coordinator.
type Provider interface {
	// Search executes the strategy and returns scored results.
	Search(ctx context.Context, query string, opts Options) ([]*Result, error)

	// Available reports whether the provider can currently serve queries.
	Available(ctx context.Context) bool

	// Type returns the strategy type this provider implements.
	Type() Type
}

// snippetLength bounds result snippets.
const snippetLength = 200

// resultFromNote builds a Result carrying the note payload.
func resultFromNote(n *store.Note, method Type, score float64) *Result {
	return &Result{
		ID:          n.ID,
		Title:       n.Title,
		Snippet:     makeSnippet(n.Content),
		Content:     n.Content,
		Score:       score,
		Method:      method,
		FilePath:    n.Path,
		Frontmatter: n.Frontmatter,
		Tags:        n.Tags,
		Outgoing:    n.Outgoing,
		Incoming:    n.Incoming,
	}
}

// makeSnippet truncates content at a rune boundary.
func makeSnippet(content string) string {
	runes := []rune(content)
	if len(runes) <= snippetLength {
		return content
	}
	return string(runes[:snippetLength]) + "…"
}
