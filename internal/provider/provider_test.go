package provider

import (
	"context"
	"log/slog"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lorekeep/lorekeep/internal/embed"
	"github.com/lorekeep/lorekeep/internal/store"
)

// testVault wires an in-memory text index, a temp collection store, and
// the static embedder into a full provider stack.
type testVault struct {
	notes    *store.BoltStore
	index    *NoteIndex
	semantic *SemanticProvider
	keyword  *KeywordProvider
	fuzzy    *FuzzyProvider
	indexer  *Indexer
}

func newTestVault(t *testing.T) *testVault {
	t.Helper()

	notes, err := store.NewBoltStore(filepath.Join(t.TempDir(), "vault.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = notes.Close() })

	index, err := NewNoteIndex("")
	require.NoError(t, err)
	t.Cleanup(func() { _ = index.Close() })

	embedder := embed.NewStaticEmbedder()
	semantic := NewSemanticProvider(embedder, notes)
	indexer := NewIndexer(notes, index, semantic, embedder, slog.Default())

	return &testVault{
		notes:    notes,
		index:    index,
		semantic: semantic,
		keyword:  NewKeywordProvider(index, notes),
		fuzzy:    NewFuzzyProvider(index, notes),
		indexer:  indexer,
	}
}

func vaultNotes() []*store.Note {
	return []*store.Note{
		{
			ID:      "spaced-repetition",
			Title:   "Spaced Repetition",
			Path:    "learning/spaced-repetition.md",
			Content: "Review scheduling that spaces recall practice over growing intervals.",
			Tags:    []string{"learning"},
			Outgoing: []store.Link{
				{Target: "Active Recall"},
			},
		},
		{
			ID:      "active-recall",
			Title:   "Active Recall",
			Path:    "learning/active-recall.md",
			Content: "Retrieval practice strengthens memory more than rereading notes.",
			Tags:    []string{"learning", "memory"},
		},
		{
			ID:      "garden-log",
			Title:   "Garden Log",
			Path:    "journal/garden-log.md",
			Content: "Tomato seedlings moved outside. Soil still cold at night.",
		},
	}
}

func TestIndexer_IndexNotes(t *testing.T) {
	v := newTestVault(t)
	ctx := context.Background()

	var invalidated []string
	v.indexer.OnInvalidate(func(ids []string) { invalidated = append(invalidated, ids...) })

	require.NoError(t, v.indexer.IndexNotes(ctx, vaultNotes()))

	count, err := v.index.DocCount()
	require.NoError(t, err)
	assert.Equal(t, uint64(3), count)

	stored, err := v.notes.Count(ctx, store.CollectionNotes)
	require.NoError(t, err)
	assert.Equal(t, 3, stored)

	embedded, err := v.notes.Count(ctx, store.CollectionEmbeddings)
	require.NoError(t, err)
	assert.Equal(t, 3, embedded)
	assert.Equal(t, 3, v.semantic.Len())

	assert.ElementsMatch(t, []string{"spaced-repetition", "active-recall", "garden-log"}, invalidated)
}

func TestIndexer_ResolvesIncomingLinks(t *testing.T) {
	v := newTestVault(t)
	ctx := context.Background()

	require.NoError(t, v.indexer.IndexNotes(ctx, vaultNotes()))

	notes, err := v.notes.Get(ctx, store.CollectionNotes, []string{"active-recall"})
	require.NoError(t, err)
	require.Len(t, notes, 1)
	require.Len(t, notes[0].Incoming, 1)
	assert.Equal(t, "Spaced Repetition", notes[0].Incoming[0].Target)
}

func TestIndexer_RemoveNotes(t *testing.T) {
	v := newTestVault(t)
	ctx := context.Background()

	require.NoError(t, v.indexer.IndexNotes(ctx, vaultNotes()))
	require.NoError(t, v.indexer.RemoveNotes(ctx, []string{"garden-log"}))

	count, err := v.index.DocCount()
	require.NoError(t, err)
	assert.Equal(t, uint64(2), count)
	assert.Equal(t, 2, v.semantic.Len())

	results, err := v.keyword.Search(ctx, "tomato seedlings", Options{Limit: 10})
	require.NoError(t, err)
	assert.Empty(t, results)
}

func TestKeywordProvider_Search(t *testing.T) {
	v := newTestVault(t)
	ctx := context.Background()
	require.NoError(t, v.indexer.IndexNotes(ctx, vaultNotes()))

	results, err := v.keyword.Search(ctx, "retrieval practice", Options{Limit: 10})
	require.NoError(t, err)
	require.NotEmpty(t, results)

	top := results[0]
	assert.Equal(t, "active-recall", top.ID)
	assert.Equal(t, TypeKeyword, top.Method)
	assert.InDelta(t, 1.0, top.Score, 1e-9)
	assert.NotEmpty(t, top.MatchedTerms)
	assert.Equal(t, "learning/active-recall.md", top.FilePath)
	assert.NotEmpty(t, top.Snippet)

	for i := 1; i < len(results); i++ {
		assert.LessOrEqual(t, results[i].Score, results[i-1].Score)
	}
}

func TestKeywordProvider_ThresholdFilters(t *testing.T) {
	v := newTestVault(t)
	ctx := context.Background()
	require.NoError(t, v.indexer.IndexNotes(ctx, vaultNotes()))

	all, err := v.keyword.Search(ctx, "practice notes recall", Options{Limit: 10})
	require.NoError(t, err)

	strict, err := v.keyword.Search(ctx, "practice notes recall", Options{Limit: 10, Threshold: 0.99})
	require.NoError(t, err)
	assert.LessOrEqual(t, len(strict), len(all))
	for _, r := range strict {
		assert.GreaterOrEqual(t, r.Score, 0.99)
	}
}

func TestFuzzyProvider_ToleratesTypos(t *testing.T) {
	v := newTestVault(t)
	ctx := context.Background()
	require.NoError(t, v.indexer.IndexNotes(ctx, vaultNotes()))

	results, err := v.fuzzy.Search(ctx, "retreival practise", Options{Limit: 10})
	require.NoError(t, err)
	require.NotEmpty(t, results)
	assert.Equal(t, "active-recall", results[0].ID)
	assert.Equal(t, TypeFuzzy, results[0].Method)
}

func TestSemanticProvider_Search(t *testing.T) {
	v := newTestVault(t)
	ctx := context.Background()
	require.NoError(t, v.indexer.IndexNotes(ctx, vaultNotes()))

	results, err := v.semantic.Search(ctx, "recall practice strengthens memory", Options{Limit: 3})
	require.NoError(t, err)
	require.NotEmpty(t, results)
	assert.Equal(t, "active-recall", results[0].ID)
	assert.Equal(t, TypeSemantic, results[0].Method)
}

func TestSemanticProvider_EmptyGraph(t *testing.T) {
	v := newTestVault(t)

	results, err := v.semantic.Search(context.Background(), "anything", Options{Limit: 5})
	require.NoError(t, err)
	assert.Empty(t, results)
}

func TestSemanticProvider_Restore(t *testing.T) {
	v := newTestVault(t)
	ctx := context.Background()
	require.NoError(t, v.indexer.IndexNotes(ctx, vaultNotes()))

	fresh := NewSemanticProvider(embed.NewStaticEmbedder(), v.notes)
	require.NoError(t, fresh.Restore(ctx))
	assert.Equal(t, 3, fresh.Len())

	results, err := fresh.Search(ctx, "tomato seedlings soil", Options{Limit: 1})
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "garden-log", results[0].ID)
}

func TestProviders_Availability(t *testing.T) {
	v := newTestVault(t)
	ctx := context.Background()

	// Before any indexing the notes collection does not exist.
	assert.False(t, v.keyword.Available(ctx))
	assert.False(t, v.semantic.Available(ctx))

	require.NoError(t, v.indexer.IndexNotes(ctx, vaultNotes()))
	assert.True(t, v.keyword.Available(ctx))
	assert.True(t, v.fuzzy.Available(ctx))
	assert.True(t, v.semantic.Available(ctx))
}

func TestNoteIndex_EmptyQuery(t *testing.T) {
	v := newTestVault(t)
	require.NoError(t, v.indexer.IndexNotes(context.Background(), vaultNotes()))

	hits, err := v.index.SearchMatch(context.Background(), "   ", 10)
	require.NoError(t, err)
	assert.Empty(t, hits)
}
