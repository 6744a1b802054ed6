package validation

import (
	"context"
	"log/slog"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	verrors "github.com/lorekeep/lorekeep/internal/errors"
	"github.com/lorekeep/lorekeep/internal/store"
)

func newTestValidator(t *testing.T) (*Validator, *store.BoltStore) {
	t.Helper()
	s, err := store.NewBoltStore(filepath.Join(t.TempDir(), "vault.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return NewValidator(s, time.Second, slog.Default()), s
}

func TestValidator_MissingCollection(t *testing.T) {
	v, s := newTestValidator(t)
	ctx := context.Background()

	require.NoError(t, s.CreateCollection(ctx, store.CollectionNotes))

	result, err := v.ValidateSearchDependencies(ctx, SearchSemantic)
	require.NoError(t, err)
	assert.False(t, result.Valid)
	assert.Equal(t, []string{store.CollectionEmbeddings}, result.MissingCollections)
	assert.True(t, result.FallbackAvailable)
	assert.Contains(t, result.Fallbacks, SearchFuzzy)
}

func TestValidator_AllPresent(t *testing.T) {
	v, s := newTestValidator(t)
	ctx := context.Background()

	require.NoError(t, s.CreateCollection(ctx, store.CollectionNotes))
	require.NoError(t, s.CreateCollection(ctx, store.CollectionEmbeddings))

	result, err := v.ValidateSearchDependencies(ctx, SearchHybrid)
	require.NoError(t, err)
	assert.True(t, result.Valid)
	assert.Empty(t, result.MissingCollections)
	assert.False(t, result.FallbackAvailable)
}

func TestValidator_UnknownSearchType(t *testing.T) {
	v, _ := newTestValidator(t)

	_, err := v.ValidateSearchDependencies(context.Background(), "telepathy")
	require.Error(t, err)
	assert.Equal(t, verrors.ErrCodeInvalidOption, verrors.CodeOf(err))
}

func TestValidator_EnsureCollectionsReadyCreatesMissing(t *testing.T) {
	v, s := newTestValidator(t)
	ctx := context.Background()

	require.NoError(t, v.EnsureCollectionsReady(ctx, SearchHybrid))

	for _, name := range []string{store.CollectionNotes, store.CollectionEmbeddings} {
		exists, err := s.HasCollection(ctx, name)
		require.NoError(t, err)
		assert.True(t, exists, "collection %s should have been created", name)
	}

	result, err := v.ValidateSearchDependencies(ctx, SearchHybrid)
	require.NoError(t, err)
	assert.True(t, result.Valid)
}

func TestValidator_EnsureCollectionsReadyRecoversCorrupted(t *testing.T) {
	v, s := newTestValidator(t)
	ctx := context.Background()

	require.NoError(t, s.Put(ctx, store.CollectionNotes, []*store.Note{
		{ID: "n1", Title: "Healthy"},
	}))
	require.NoError(t, s.CorruptRecord(store.CollectionNotes, "n1"))

	result, err := v.ValidateSearchDependencies(ctx, SearchFuzzy)
	require.NoError(t, err)
	require.False(t, result.Valid)
	assert.Equal(t, []string{store.CollectionNotes}, result.CorruptedCollections)

	require.NoError(t, v.EnsureCollectionsReady(ctx, SearchFuzzy))

	// Recovery drops contents; the collection is healthy but empty.
	count, err := s.Count(ctx, store.CollectionNotes)
	require.NoError(t, err)
	assert.Zero(t, count)
}

func TestValidator_HealthCacheWindow(t *testing.T) {
	v, s := newTestValidator(t)
	ctx := context.Background()

	result, err := v.ValidateSearchDependencies(ctx, SearchFuzzy)
	require.NoError(t, err)
	require.False(t, result.Valid)

	// Creating the collection is not visible until the cached verdict
	// expires or is invalidated.
	require.NoError(t, s.CreateCollection(ctx, store.CollectionNotes))

	result, err = v.ValidateSearchDependencies(ctx, SearchFuzzy)
	require.NoError(t, err)
	assert.False(t, result.Valid, "stale health verdict should still apply")

	v.InvalidateHealth(store.CollectionNotes)
	result, err = v.ValidateSearchDependencies(ctx, SearchFuzzy)
	require.NoError(t, err)
	assert.True(t, result.Valid)
}

func TestValidator_HandleSearchFailureRecovers(t *testing.T) {
	v, s := newTestValidator(t)
	ctx := context.Background()

	status := v.HandleSearchFailure(ctx, SearchSemantic, assert.AnError)
	assert.True(t, status.Recovered)

	exists, err := s.HasCollection(ctx, store.CollectionEmbeddings)
	require.NoError(t, err)
	assert.True(t, exists)
}

func TestValidator_DependencyErrorCarriesRemediation(t *testing.T) {
	s, err := store.NewBoltStore(filepath.Join(t.TempDir(), "vault.db"))
	require.NoError(t, err)
	require.NoError(t, s.Close())

	// A closed store cannot create collections, so recovery must fail.
	v := NewValidator(s, time.Second, slog.Default())
	depErr := v.EnsureCollectionsReady(context.Background(), SearchSemantic)
	require.Error(t, depErr)

	var vErr *verrors.VaultError
	require.ErrorAs(t, depErr, &vErr)
	assert.Equal(t, verrors.CategoryCollection, vErr.Category)
	assert.Equal(t, string(SearchSemantic), vErr.Details["search_type"])
	assert.Contains(t, vErr.Details["fallbacks"], string(SearchFuzzy))
}
