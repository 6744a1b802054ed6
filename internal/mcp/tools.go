package mcp

import (
	"github.com/lorekeep/lorekeep/internal/cache"
	"github.com/lorekeep/lorekeep/internal/provider"
	"github.com/lorekeep/lorekeep/internal/search"
	"github.com/lorekeep/lorekeep/internal/telemetry"
	"github.com/lorekeep/lorekeep/internal/validation"
)

// VaultSearchInput defines the input schema for the vault_search tool.
type VaultSearchInput struct {
	Query          string   `json:"query" jsonschema:"the search query to execute"`
	Limit          int      `json:"limit,omitempty" jsonschema:"maximum number of results, default 10"`
	ScoreThreshold float64  `json:"score_threshold,omitempty" jsonschema:"minimum fused score, 0 disables filtering"`
	SeedNotes      []string `json:"seed_notes,omitempty" jsonschema:"vault paths whose linked notes should rank higher"`
	BypassCache    bool     `json:"bypass_cache,omitempty" jsonschema:"skip the result cache for this call"`
}

// VaultSearchOutput defines the output schema for the vault_search tool.
type VaultSearchOutput struct {
	Results   []VaultSearchResult `json:"results" jsonschema:"ordered search results"`
	Degraded  bool                `json:"degraded,omitempty" jsonschema:"true when at least one search strategy failed"`
	FromCache bool                `json:"from_cache,omitempty" jsonschema:"true when served from the result cache"`
}

// VaultSearchResult is a single result with fusion metadata explaining
// why it ranked where it did.
type VaultSearchResult struct {
	Path         string                    `json:"path" jsonschema:"note path relative to the vault root"`
	Title        string                    `json:"title" jsonschema:"note title"`
	Snippet      string                    `json:"snippet" jsonschema:"content excerpt"`
	Score        float64                   `json:"score" jsonschema:"fused relevance score"`
	FinalRank    int                       `json:"final_rank" jsonschema:"1-based position in the ranking"`
	Methods      []provider.Type           `json:"methods" jsonschema:"search strategies that returned this note"`
	MethodScores map[provider.Type]float64 `json:"method_scores,omitempty" jsonschema:"per-strategy pre-fusion scores"`
	MatchedTerms []string                  `json:"matched_terms,omitempty" jsonschema:"query terms that matched"`
	GraphBoosted bool                      `json:"graph_boosted,omitempty" jsonschema:"true when link-graph proximity raised the score"`
	Tags         []string                  `json:"tags,omitempty" jsonschema:"note tags"`
}

// SearchHealthInput defines the input schema for the search_health tool
// (no parameters).
type SearchHealthInput struct{}

// SearchHealthOutput defines the output schema for the search_health tool.
type SearchHealthOutput struct {
	Score        int                    `json:"score" jsonschema:"0-100 weighted capability score"`
	Healthy      bool                   `json:"healthy" jsonschema:"true when every configured strategy is available"`
	Capabilities map[provider.Type]bool `json:"capabilities" jsonschema:"per-strategy availability"`
	Dependencies *validation.Result     `json:"dependencies,omitempty" jsonschema:"backing collection validation for hybrid search"`
}

// CacheStatsInput defines the input schema for the cache_stats tool (no
// parameters).
type CacheStatsInput struct{}

// CacheStatsOutput defines the output schema for the cache_stats tool.
type CacheStatsOutput struct {
	Enabled bool         `json:"enabled" jsonschema:"false when result caching is off"`
	Stats   *cache.Stats `json:"stats,omitempty" jsonschema:"hit/miss, eviction, and memory counters"`
}

// QueryMetricsInput defines the input schema for the query_metrics tool
// (no parameters).
type QueryMetricsInput struct{}

// QueryMetricsOutput defines the output schema for the query_metrics tool.
type QueryMetricsOutput struct {
	Metrics *telemetry.Snapshot `json:"metrics" jsonschema:"search telemetry snapshot"`
}

// toVaultSearchResult converts a fused result to the tool output shape.
func toVaultSearchResult(r *search.HybridResult) VaultSearchResult {
	return VaultSearchResult{
		Path:         r.FilePath,
		Title:        r.Title,
		Snippet:      r.Snippet,
		Score:        r.Score,
		FinalRank:    r.FinalRank,
		Methods:      r.OriginalMethods,
		MethodScores: r.MethodScores,
		MatchedTerms: r.MatchedTerms,
		GraphBoosted: r.GraphBoosted,
		Tags:         r.Tags,
	}
}
