package search

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHeuristicAnalyzer_WeightRules(t *testing.T) {
	a := NewHeuristicAnalyzer()

	tests := []struct {
		name     string
		query    string
		wantType QueryType
		want     StrategyWeights
	}{
		{
			name:     "quoted text favors keyword",
			query:    `notes about "spaced repetition" scheduling`,
			wantType: QueryExact,
			want:     StrategyWeights{Semantic: 0.3, Keyword: 0.6, Fuzzy: 0.1},
		},
		{
			name:     "short plain query favors keyword and fuzzy",
			query:    "evergreen notes",
			wantType: QueryExploratory,
			want:     StrategyWeights{Semantic: 0.2, Keyword: 0.5, Fuzzy: 0.3},
		},
		{
			name:     "long query favors semantic",
			query:    "how do atomic notes help ideas compound over years",
			wantType: QueryConceptual,
			want:     StrategyWeights{Semantic: 0.6, Keyword: 0.3, Fuzzy: 0.1},
		},
		{
			name:     "default mixed distribution",
			query:    "linking ideas across three projects",
			wantType: QueryMixed,
			want:     StrategyWeights{Semantic: 0.4, Keyword: 0.4, Fuzzy: 0.2},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			analysis := a.Analyze(tt.query)
			assert.Equal(t, tt.wantType, analysis.Type)
			assert.Equal(t, tt.want, analysis.Weights)
		})
	}
}

func TestHeuristicAnalyzer_ShortQueryWithSyntaxIsNotExploratory(t *testing.T) {
	a := NewHeuristicAnalyzer()

	analysis := a.Analyze("cache.Get()")
	assert.NotEqual(t, QueryExploratory, analysis.Type)
}

func TestHeuristicAnalyzer_ExtractsPhrasesAndTerms(t *testing.T) {
	a := NewHeuristicAnalyzer()

	analysis := a.Analyze(`find "zettelkasten method" references in noteIndex and MAX_DEPTH config`)
	assert.Equal(t, []string{"zettelkasten method"}, analysis.ExactPhrases)
	assert.Contains(t, analysis.TechnicalTerms, "noteIndex")
	assert.Contains(t, analysis.TechnicalTerms, "MAX_DEPTH")
	assert.Contains(t, analysis.Keywords, "references")
	assert.Contains(t, analysis.FuzzyTerms, "references")
	assert.NotContains(t, analysis.FuzzyTerms, "in")
}

func TestHeuristicAnalyzer_TechnicalPatterns(t *testing.T) {
	tests := []struct {
		token string
		want  bool
	}{
		{"camelCaseToken", true},
		{"PascalCaseToken", true},
		{"CONSTANT_CASE", true},
		{"pkg.Func", true},
		{"search()", true},
		{"plainword", false},
		{"Capitalized", false},
		{"hyphen-ated", false},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, isTechnicalTerm(tt.token), "token %q", tt.token)
	}
}

func TestCachedAnalyzer_Memoizes(t *testing.T) {
	calls := 0
	inner := analyzerFunc(func(query string) *QueryAnalysis {
		calls++
		return &QueryAnalysis{Original: query}
	})

	cached, err := NewCachedAnalyzer(inner, 8)
	require.NoError(t, err)

	first := cached.Analyze("same query")
	second := cached.Analyze("same query")
	assert.Same(t, first, second)
	assert.Equal(t, 1, calls)

	cached.Analyze("different query")
	assert.Equal(t, 2, calls)
}

type analyzerFunc func(string) *QueryAnalysis

func (f analyzerFunc) Analyze(query string) *QueryAnalysis { return f(query) }
