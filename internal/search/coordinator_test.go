package search

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lorekeep/lorekeep/internal/cache"
	"github.com/lorekeep/lorekeep/internal/config"
	"github.com/lorekeep/lorekeep/internal/provider"
	"github.com/lorekeep/lorekeep/internal/telemetry"
)

// fakeProvider is a scriptable provider for coordinator tests.
type fakeProvider struct {
	kind      provider.Type
	results   []*provider.Result
	err       error
	delay     time.Duration
	available bool
	calls     atomic.Int64
}

func (f *fakeProvider) Type() provider.Type                { return f.kind }
func (f *fakeProvider) Available(context.Context) bool     { return f.available }
func (f *fakeProvider) Search(ctx context.Context, query string, opts provider.Options) ([]*provider.Result, error) {
	f.calls.Add(1)
	if f.delay > 0 {
		select {
		case <-time.After(f.delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if f.err != nil {
		return nil, f.err
	}
	return f.results, nil
}

func fakeResults(ids ...string) []*provider.Result {
	results := make([]*provider.Result, len(ids))
	for i, id := range ids {
		results[i] = &provider.Result{
			ID:       id,
			Title:    id,
			FilePath: "notes/" + id + ".md",
			Score:    1 - float64(i)*0.1,
		}
	}
	return results
}

func testSearchConfig() (config.SearchConfig, config.GraphConfig) {
	cfg := config.NewConfig()
	return cfg.Search, cfg.Graph
}

func newTestCoordinator(t *testing.T, providers []provider.Provider, opts ...CoordinatorOption) *Coordinator {
	t.Helper()
	searchCfg, graphCfg := testSearchConfig()
	return NewCoordinator(searchCfg, graphCfg, providers, opts...)
}

func TestCoordinateSearch_FusesAllStrategies(t *testing.T) {
	semantic := &fakeProvider{kind: provider.TypeSemantic, available: true, results: fakeResults("a", "b")}
	keyword := &fakeProvider{kind: provider.TypeKeyword, available: true, results: fakeResults("b", "c")}
	fuzzy := &fakeProvider{kind: provider.TypeFuzzy, available: true, results: fakeResults("c")}

	c := newTestCoordinator(t, []provider.Provider{semantic, keyword, fuzzy})
	resp := c.CoordinateSearch(context.Background(), "linking ideas across three projects", Options{})

	require.NotEmpty(t, resp.Results)
	assert.False(t, resp.Degraded)
	assert.Len(t, resp.Outcomes, 3)

	seen := make(map[string]bool)
	for _, r := range resp.Results {
		assert.False(t, seen[r.ID], "result %s appears twice", r.ID)
		seen[r.ID] = true
	}
	assert.Equal(t, 1, resp.Results[0].FinalRank)
}

func TestCoordinateSearch_PartialFailureStillRanks(t *testing.T) {
	semantic := &fakeProvider{kind: provider.TypeSemantic, available: false}
	keyword := &fakeProvider{kind: provider.TypeKeyword, available: true, results: []*provider.Result{
		{ID: "f1", FilePath: "notes/f1.md", Score: 0.9},
	}}
	fuzzy := &fakeProvider{kind: provider.TypeFuzzy, available: true, results: []*provider.Result{
		{ID: "f1", FilePath: "notes/f1.md", Score: 0.6},
		{ID: "f2", FilePath: "notes/f2.md", Score: 0.4},
	}}

	c := newTestCoordinator(t, []provider.Provider{semantic, keyword, fuzzy})
	resp := c.CoordinateSearch(context.Background(), "evergreen notes", Options{})

	require.Len(t, resp.Results, 2)
	assert.Equal(t, "f1", resp.Results[0].ID)
	assert.Equal(t, "f2", resp.Results[1].ID)
	// An unavailable capability is not a selected strategy, so nothing
	// failed from the coordinator's point of view.
	assert.False(t, resp.Degraded)
	assert.Zero(t, semantic.calls.Load())
}

func TestCoordinateSearch_FailedStrategyDegrades(t *testing.T) {
	keyword := &fakeProvider{kind: provider.TypeKeyword, available: true, err: errors.New("index exploded")}
	fuzzy := &fakeProvider{kind: provider.TypeFuzzy, available: true, results: fakeResults("survivor")}

	c := newTestCoordinator(t, []provider.Provider{keyword, fuzzy})
	resp := c.CoordinateSearch(context.Background(), "evergreen notes", Options{})

	require.Len(t, resp.Results, 1)
	assert.Equal(t, "survivor", resp.Results[0].ID)
	assert.True(t, resp.Degraded)

	var failed int
	for _, o := range resp.Outcomes {
		if !o.Succeeded() {
			failed++
			assert.NotEmpty(t, o.Error)
		}
	}
	assert.Equal(t, 1, failed)
}

func TestCoordinateSearch_TotalFailureReturnsEmpty(t *testing.T) {
	boom := errors.New("boom")
	providers := []provider.Provider{
		&fakeProvider{kind: provider.TypeSemantic, available: true, err: boom},
		&fakeProvider{kind: provider.TypeKeyword, available: true, err: boom},
		&fakeProvider{kind: provider.TypeFuzzy, available: true, err: boom},
	}

	c := newTestCoordinator(t, providers)
	resp := c.CoordinateSearch(context.Background(), "anything at all", Options{})

	assert.NotNil(t, resp.Results)
	assert.Empty(t, resp.Results)
	assert.True(t, resp.Degraded)
}

func TestCoordinateSearch_NoCapabilities(t *testing.T) {
	c := newTestCoordinator(t, []provider.Provider{
		&fakeProvider{kind: provider.TypeKeyword, available: false},
	})

	resp := c.CoordinateSearch(context.Background(), "anything", Options{})
	assert.Empty(t, resp.Results)
	assert.False(t, resp.Degraded)
}

func TestCoordinateSearch_StrategyTimeout(t *testing.T) {
	searchCfg, graphCfg := testSearchConfig()
	searchCfg.StrategyTimeout = 20 * time.Millisecond

	slow := &fakeProvider{kind: provider.TypeSemantic, available: true, delay: time.Second, results: fakeResults("late")}
	fast := &fakeProvider{kind: provider.TypeKeyword, available: true, results: fakeResults("fast")}

	c := NewCoordinator(searchCfg, graphCfg, []provider.Provider{slow, fast})
	resp := c.CoordinateSearch(context.Background(), "how do notes compound over many years here", Options{})

	require.Len(t, resp.Results, 1)
	assert.Equal(t, "fast", resp.Results[0].ID)
	assert.True(t, resp.Degraded)
}

func TestCoordinateSearch_WeightInclusionThreshold(t *testing.T) {
	semantic := &fakeProvider{kind: provider.TypeSemantic, available: true, results: fakeResults("s")}
	keyword := &fakeProvider{kind: provider.TypeKeyword, available: true, results: fakeResults("k")}
	fuzzy := &fakeProvider{kind: provider.TypeFuzzy, available: true, results: fakeResults("f")}

	c := newTestCoordinator(t, []provider.Provider{semantic, keyword, fuzzy})

	// A long conceptual query weights fuzzy at 0.1, at the inclusion
	// threshold, so the fuzzy provider must not run.
	c.CoordinateSearch(context.Background(), "how do atomic notes help ideas compound over years", Options{})
	assert.Zero(t, fuzzy.calls.Load())
	assert.Equal(t, int64(1), semantic.calls.Load())
	assert.Equal(t, int64(1), keyword.calls.Load())
}

func TestCoordinateSearch_CacheRoundTrip(t *testing.T) {
	keyword := &fakeProvider{kind: provider.TypeKeyword, available: true, results: fakeResults("hit")}
	resultCache := cache.New[[]*HybridResult](cache.Config{MaxSize: 10, TTL: time.Minute})

	c := newTestCoordinator(t, []provider.Provider{keyword}, WithCache(resultCache))

	first := c.CoordinateSearch(context.Background(), "evergreen notes", Options{})
	assert.False(t, first.FromCache)

	second := c.CoordinateSearch(context.Background(), "Evergreen  Notes", Options{})
	assert.True(t, second.FromCache)
	assert.Equal(t, first.Results, second.Results)
	assert.Equal(t, int64(1), keyword.calls.Load())

	c.InvalidateCache("hit")
	third := c.CoordinateSearch(context.Background(), "evergreen notes", Options{})
	assert.False(t, third.FromCache)
	assert.Equal(t, int64(2), keyword.calls.Load())
}

func TestCoordinateSearch_BypassCache(t *testing.T) {
	keyword := &fakeProvider{kind: provider.TypeKeyword, available: true, results: fakeResults("hit")}
	resultCache := cache.New[[]*HybridResult](cache.Config{MaxSize: 10, TTL: time.Minute})

	c := newTestCoordinator(t, []provider.Provider{keyword}, WithCache(resultCache))

	c.CoordinateSearch(context.Background(), "evergreen notes", Options{})
	resp := c.CoordinateSearch(context.Background(), "evergreen notes", Options{BypassCache: true})
	assert.False(t, resp.FromCache)
	assert.Equal(t, int64(2), keyword.calls.Load())
}

func TestCoordinateSearch_RecordsMetrics(t *testing.T) {
	metrics := telemetry.NewSearchMetrics()
	keyword := &fakeProvider{kind: provider.TypeKeyword, available: true, results: fakeResults("m")}
	fuzzy := &fakeProvider{kind: provider.TypeFuzzy, available: true, err: errors.New("down")}

	c := newTestCoordinator(t, []provider.Provider{keyword, fuzzy}, WithMetrics(metrics))
	c.CoordinateSearch(context.Background(), "evergreen notes", Options{})

	snap := metrics.Snapshot()
	assert.Equal(t, int64(1), snap.TotalSearches)
	assert.Equal(t, int64(1), snap.DegradedSearches)
	assert.Equal(t, int64(1), snap.StrategyRuns[provider.TypeKeyword])
	assert.Equal(t, int64(1), snap.StrategyFailures[provider.TypeFuzzy])
}

func TestDetermineStrategies_PriorityOrdering(t *testing.T) {
	c := newTestCoordinator(t, nil)

	analysis := &QueryAnalysis{
		Type:         QueryExact,
		Weights:      StrategyWeights{Semantic: 0.3, Keyword: 0.6, Fuzzy: 0.1},
		ExactPhrases: []string{"spaced repetition"},
	}
	capabilities := map[provider.Type]bool{
		provider.TypeSemantic: true,
		provider.TypeKeyword:  true,
		provider.TypeFuzzy:    true,
	}

	strategies := c.determineStrategies(analysis, capabilities)
	require.Len(t, strategies, 2, "fuzzy weight 0.1 sits at the inclusion threshold")

	// keyword: base 60 + 25 exact = 85; semantic: base 30.
	assert.Equal(t, provider.TypeKeyword, strategies[0].Type)
	assert.Equal(t, 85, strategies[0].Priority)
	assert.Equal(t, provider.TypeSemantic, strategies[1].Type)

	assert.Equal(t, 0.3, strategies[0].Threshold)
	assert.Zero(t, strategies[1].Threshold, "semantic has no default threshold")
}

func TestHealthStatus_WeightedScore(t *testing.T) {
	c := newTestCoordinator(t, []provider.Provider{
		&fakeProvider{kind: provider.TypeSemantic, available: false},
		&fakeProvider{kind: provider.TypeKeyword, available: true},
		&fakeProvider{kind: provider.TypeFuzzy, available: true},
	})

	health := c.HealthStatus(context.Background())
	assert.Equal(t, 60, health.Score)
	assert.False(t, health.Healthy)
	assert.False(t, health.Capabilities[provider.TypeSemantic])

	all := newTestCoordinator(t, []provider.Provider{
		&fakeProvider{kind: provider.TypeKeyword, available: true},
	})
	health = all.HealthStatus(context.Background())
	assert.Equal(t, 100, health.Score, "score is relative to configured providers")
	assert.True(t, health.Healthy)
}
