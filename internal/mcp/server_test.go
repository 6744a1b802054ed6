package mcp

import (
	"context"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lorekeep/lorekeep/internal/cache"
	"github.com/lorekeep/lorekeep/internal/config"
	verrors "github.com/lorekeep/lorekeep/internal/errors"
	"github.com/lorekeep/lorekeep/internal/provider"
	"github.com/lorekeep/lorekeep/internal/search"
	"github.com/lorekeep/lorekeep/internal/telemetry"
)

// staticProvider returns fixed results for handler tests.
type staticProvider struct {
	kind    provider.Type
	results []*provider.Result
}

func (p *staticProvider) Type() provider.Type            { return p.kind }
func (p *staticProvider) Available(context.Context) bool { return true }
func (p *staticProvider) Search(context.Context, string, provider.Options) ([]*provider.Result, error) {
	return p.results, nil
}

func newTestServer(t *testing.T) *Server {
	t.Helper()

	cfg := config.NewConfig()
	coordinator := search.NewCoordinator(cfg.Search, cfg.Graph, []provider.Provider{
		&staticProvider{kind: provider.TypeKeyword, results: []*provider.Result{
			{ID: "n1", Title: "Spaced Repetition", FilePath: "learning/spaced-repetition.md", Score: 0.9, Snippet: "review scheduling"},
		}},
		&staticProvider{kind: provider.TypeFuzzy, results: []*provider.Result{
			{ID: "n1", Title: "Spaced Repetition", FilePath: "learning/spaced-repetition.md", Score: 0.7},
		}},
	},
		search.WithCache(cache.New[[]*search.HybridResult](cache.Config{MaxSize: 10, TTL: time.Minute})),
		search.WithMetrics(telemetry.NewSearchMetrics()),
	)

	s, err := NewServer(coordinator, nil, cfg, slog.Default())
	require.NoError(t, err)
	return s
}

func TestNewServer_RequiresCoordinator(t *testing.T) {
	_, err := NewServer(nil, nil, nil, nil)
	assert.Error(t, err)
}

func TestVaultSearchHandler(t *testing.T) {
	s := newTestServer(t)

	_, output, err := s.vaultSearchHandler(context.Background(), nil, VaultSearchInput{Query: "spaced repetition"})
	require.NoError(t, err)
	require.Len(t, output.Results, 1)

	r := output.Results[0]
	assert.Equal(t, "learning/spaced-repetition.md", r.Path)
	assert.Equal(t, 1, r.FinalRank)
	assert.ElementsMatch(t, []provider.Type{provider.TypeKeyword, provider.TypeFuzzy}, r.Methods)
	assert.False(t, output.Degraded)
}

func TestVaultSearchHandler_EmptyQuery(t *testing.T) {
	s := newTestServer(t)

	_, _, err := s.vaultSearchHandler(context.Background(), nil, VaultSearchInput{Query: "  "})
	require.Error(t, err)

	var mcpErr *MCPError
	require.ErrorAs(t, err, &mcpErr)
	assert.Equal(t, ErrCodeInvalidParams, mcpErr.Code)
}

func TestSearchHealthHandler(t *testing.T) {
	s := newTestServer(t)

	_, output, err := s.searchHealthHandler(context.Background(), nil, SearchHealthInput{})
	require.NoError(t, err)
	assert.True(t, output.Healthy)
	assert.Equal(t, 100, output.Score)
	assert.True(t, output.Capabilities[provider.TypeKeyword])
}

func TestCacheStatsHandler(t *testing.T) {
	s := newTestServer(t)

	// Prime the cache with one search.
	_, _, err := s.vaultSearchHandler(context.Background(), nil, VaultSearchInput{Query: "spaced repetition"})
	require.NoError(t, err)

	_, output, err := s.cacheStatsHandler(context.Background(), nil, CacheStatsInput{})
	require.NoError(t, err)
	require.True(t, output.Enabled)
	assert.Equal(t, 1, output.Stats.Size)
}

func TestQueryMetricsHandler(t *testing.T) {
	s := newTestServer(t)

	_, _, err := s.vaultSearchHandler(context.Background(), nil, VaultSearchInput{Query: "spaced repetition"})
	require.NoError(t, err)

	_, output, err := s.queryMetricsHandler(context.Background(), nil, QueryMetricsInput{})
	require.NoError(t, err)
	assert.Equal(t, int64(1), output.Metrics.TotalSearches)
}

func TestMapError(t *testing.T) {
	missing := verrors.New(verrors.ErrCodeCollectionMissing, "collection gone", nil)
	mapped := MapError(missing)

	var mcpErr *MCPError
	require.ErrorAs(t, mapped, &mcpErr)
	assert.Equal(t, ErrCodeDependencyMissing, mcpErr.Code)

	assert.Nil(t, MapError(nil))

	var generic *MCPError
	require.ErrorAs(t, MapError(assert.AnError), &generic)
	assert.Equal(t, ErrCodeInternalError, generic.Code)
}
