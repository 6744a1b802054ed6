package search

import (
	"strings"

	lru "github.com/hashicorp/golang-lru/v2"
)

// Analyzer turns a query string into a strategy weight distribution plus
// extracted phrases and terms.
type Analyzer interface {
	Analyze(query string) *QueryAnalysis
}

// HeuristicAnalyzer classifies queries without a model: word count,
// quoting, and identifier-shaped tokens decide the weight distribution.
type HeuristicAnalyzer struct{}

// NewHeuristicAnalyzer returns the built-in heuristic analyzer.
func NewHeuristicAnalyzer() *HeuristicAnalyzer {
	return &HeuristicAnalyzer{}
}

// Analyze applies the classification rules in order:
// quoted text favors keyword; one or two plain words favor keyword+fuzzy;
// long queries favor semantic; everything else gets the mixed default.
func (a *HeuristicAnalyzer) Analyze(query string) *QueryAnalysis {
	analysis := &QueryAnalysis{
		Original: query,
		Type:     QueryMixed,
		Weights:  StrategyWeights{Semantic: 0.4, Keyword: 0.4, Fuzzy: 0.2},
	}

	words := strings.Fields(query)
	analysis.ExactPhrases = extractQuotedPhrases(query)

	for _, word := range words {
		token := strings.Trim(word, `"',;:!?`)
		if token == "" {
			continue
		}
		if isTechnicalTerm(token) {
			analysis.TechnicalTerms = append(analysis.TechnicalTerms, token)
			continue
		}
		lower := strings.ToLower(token)
		analysis.Keywords = append(analysis.Keywords, lower)
		if len([]rune(lower)) >= 4 {
			analysis.FuzzyTerms = append(analysis.FuzzyTerms, lower)
		}
	}

	switch {
	case len(analysis.ExactPhrases) > 0:
		analysis.Type = QueryExact
		analysis.Weights = StrategyWeights{Semantic: 0.3, Keyword: 0.6, Fuzzy: 0.1}
	case len(words) <= 2 && !hasSpecialChars(query):
		analysis.Type = QueryExploratory
		analysis.Weights = StrategyWeights{Semantic: 0.2, Keyword: 0.5, Fuzzy: 0.3}
	case len(words) > 6:
		analysis.Type = QueryConceptual
		analysis.Weights = StrategyWeights{Semantic: 0.6, Keyword: 0.3, Fuzzy: 0.1}
	}
	if analysis.Type == QueryMixed && len(analysis.TechnicalTerms) > 0 {
		analysis.Type = QueryExact
	}

	return analysis
}

// hasSpecialChars reports non-alphanumeric content beyond spaces and
// hyphens. Short queries carrying syntax are not plain lookups.
func hasSpecialChars(query string) bool {
	for _, r := range query {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
		case r == ' ' || r == '-':
		default:
			return true
		}
	}
	return false
}

// CachedAnalyzer memoizes analysis results in an LRU cache. Analysis is
// deterministic, so repeated queries skip the regex work.
type CachedAnalyzer struct {
	inner Analyzer
	cache *lru.Cache[string, *QueryAnalysis]
}

// NewCachedAnalyzer wraps an analyzer with an LRU memo of the given size.
func NewCachedAnalyzer(inner Analyzer, size int) (*CachedAnalyzer, error) {
	if size <= 0 {
		size = 10000
	}
	c, err := lru.New[string, *QueryAnalysis](size)
	if err != nil {
		return nil, err
	}
	return &CachedAnalyzer{inner: inner, cache: c}, nil
}

func (a *CachedAnalyzer) Analyze(query string) *QueryAnalysis {
	if cached, ok := a.cache.Get(query); ok {
		return cached
	}
	analysis := a.inner.Analyze(query)
	a.cache.Add(query, analysis)
	return analysis
}
