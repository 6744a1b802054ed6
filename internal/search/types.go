// Package search implements hybrid search coordination: a query is
// analyzed, routed to the retrieval strategies it suits, executed
// concurrently, and the disjoint rankings are fused with Reciprocal Rank
// Fusion (RRF) plus a link-graph relevance boost.
package search

import (
	"time"

	"github.com/lorekeep/lorekeep/internal/provider"
)

// QueryType classifies a query by its retrieval character.
type QueryType string

const (
	// QueryExact favors literal matching: quoted phrases or identifiers.
	QueryExact QueryType = "exact"

	// QueryConceptual favors meaning over wording: long natural-language
	// questions.
	QueryConceptual QueryType = "conceptual"

	// QueryExploratory is short and vague; typo tolerance helps most.
	QueryExploratory QueryType = "exploratory"

	// QueryMixed is everything else.
	QueryMixed QueryType = "mixed"
)

// StrategyWeights distributes retrieval effort across strategies.
// Weights roughly sum to 1 but this is not enforced.
type StrategyWeights struct {
	Semantic float64 `json:"semantic"`
	Keyword  float64 `json:"keyword"`
	Fuzzy    float64 `json:"fuzzy"`
}

// For returns the weight assigned to a strategy type.
func (w StrategyWeights) For(t provider.Type) float64 {
	switch t {
	case provider.TypeSemantic:
		return w.Semantic
	case provider.TypeKeyword:
		return w.Keyword
	case provider.TypeFuzzy:
		return w.Fuzzy
	}
	return 0
}

// QueryAnalysis is the analyzer's verdict on a query.
type QueryAnalysis struct {
	Original string          `json:"original"`
	Type     QueryType       `json:"query_type"`
	Weights  StrategyWeights `json:"weights"`

	Keywords       []string `json:"keywords,omitempty"`
	ExactPhrases   []string `json:"exact_phrases,omitempty"`
	FuzzyTerms     []string `json:"fuzzy_terms,omitempty"`
	TechnicalTerms []string `json:"technical_terms,omitempty"`
}

// Strategy is one entry of a search execution plan.
type Strategy struct {
	Type provider.Type `json:"type"`

	// Weight flows into fusion as the strategy's result-set weight.
	Weight float64 `json:"weight"`

	// Threshold is the provider-local minimum score; 0 disables it.
	Threshold float64 `json:"threshold,omitempty"`

	// Priority orders execution and logging. Higher runs/logs first;
	// it never affects inclusion.
	Priority int `json:"priority"`
}

// ResultSet is one strategy's output entering fusion.
type ResultSet struct {
	Results       []*provider.Result `json:"results"`
	Weight        float64            `json:"weight"`
	Method        provider.Type      `json:"method"`
	ExecutionTime time.Duration      `json:"execution_time"`
}

// StrategyOutcome records how one strategy's execution ended. Failures
// stay visible here for metrics and degradation reporting even though
// they never fail the search.
type StrategyOutcome struct {
	Strategy Strategy           `json:"strategy"`
	Results  []*provider.Result `json:"-"`
	Err      error              `json:"-"`
	Error    string             `json:"error,omitempty"`
	Duration time.Duration      `json:"duration"`
}

// Succeeded reports whether the strategy produced a usable result set.
func (o *StrategyOutcome) Succeeded() bool {
	return o.Err == nil
}

// HybridResult is a fused search result. At most one exists per note ID;
// MethodScores accumulates each contributing strategy's original score.
type HybridResult struct {
	provider.Result

	// OriginalMethods lists every strategy that returned this note.
	OriginalMethods []provider.Type `json:"original_methods"`

	// MethodScores holds each method's pre-fusion score.
	MethodScores map[provider.Type]float64 `json:"method_scores"`

	// FinalRank is the 1-based position in the returned ordering.
	FinalRank int `json:"final_rank"`

	// GraphBoosted marks results whose score changed during boosting.
	GraphBoosted bool `json:"graph_boosted,omitempty"`

	// GraphBoostFactor is boosted score / pre-boost score.
	GraphBoostFactor float64 `json:"graph_boost_factor,omitempty"`
}

// Options configures a coordinated search.
type Options struct {
	// Limit caps fused results (default from config, bounded by MaxLimit).
	Limit int `json:"limit,omitempty"`

	// ScoreThreshold filters fused results by minimum score.
	ScoreThreshold float64 `json:"score_threshold,omitempty"`

	// SeedNotes are vault paths whose graph neighborhood gets a
	// pre-propagation boost.
	SeedNotes []string `json:"seed_notes,omitempty"`

	// BypassCache skips cache lookup and storage for this call.
	BypassCache bool `json:"-"`
}

// Response is the outcome of a coordinated search. A degraded search is
// still a success: Results may be shorter or empty, never nil.
type Response struct {
	Results []*HybridResult `json:"results"`

	// Degraded is set when at least one selected strategy failed.
	Degraded bool `json:"degraded,omitempty"`

	// Outcomes reports per-strategy execution, failures included.
	Outcomes []*StrategyOutcome `json:"outcomes,omitempty"`

	// FromCache marks responses served without provider execution.
	FromCache bool `json:"from_cache,omitempty"`

	Duration time.Duration `json:"duration"`
}

// HealthStatus summarizes search capability without running a query.
type HealthStatus struct {
	Capabilities map[provider.Type]bool `json:"capabilities"`

	// Score is 0-100: the weighted share of configured capabilities
	// currently available.
	Score int `json:"score"`

	Healthy bool `json:"healthy"`
}
