package store

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) *BoltStore {
	t.Helper()
	s, err := NewBoltStore(filepath.Join(t.TempDir(), "vault.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func sampleNotes() []*Note {
	return []*Note{
		{
			ID:      "n1",
			Title:   "Zettelkasten Method",
			Path:    "methods/zettelkasten.md",
			Content: "Atomic notes linked by context beat hierarchical folders.",
			Tags:    []string{"pkm"},
			Outgoing: []Link{
				{Target: "Evergreen Notes"},
			},
			Frontmatter: map[string]string{"status": "evergreen"},
		},
		{
			ID:      "n2",
			Title:   "Evergreen Notes",
			Path:    "methods/evergreen-notes.md",
			Content: "Evergreen notes are written to evolve across projects.",
			Frontmatter: map[string]string{"status": "draft"},
		},
	}
}

func TestBoltStore_CollectionLifecycle(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	exists, err := s.HasCollection(ctx, CollectionNotes)
	require.NoError(t, err)
	assert.False(t, exists)

	require.NoError(t, s.CreateCollection(ctx, CollectionNotes))

	exists, err = s.HasCollection(ctx, CollectionNotes)
	require.NoError(t, err)
	assert.True(t, exists)

	count, err := s.Count(ctx, CollectionNotes)
	require.NoError(t, err)
	assert.Zero(t, count)

	require.NoError(t, s.DeleteCollection(ctx, CollectionNotes))
	exists, err = s.HasCollection(ctx, CollectionNotes)
	require.NoError(t, err)
	assert.False(t, exists)
}

func TestBoltStore_PutGetDelete(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.Put(ctx, CollectionNotes, sampleNotes()))

	count, err := s.Count(ctx, CollectionNotes)
	require.NoError(t, err)
	assert.Equal(t, 2, count)

	notes, err := s.Get(ctx, CollectionNotes, []string{"n1", "missing", "n2"})
	require.NoError(t, err)
	require.Len(t, notes, 2)
	assert.Equal(t, "Zettelkasten Method", notes[0].Title)
	assert.Equal(t, "Evergreen Notes", notes[0].Outgoing[0].Target)

	require.NoError(t, s.Delete(ctx, CollectionNotes, []string{"n1"}))
	count, err = s.Count(ctx, CollectionNotes)
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

func TestBoltStore_CountMissingCollection(t *testing.T) {
	s := newTestStore(t)

	_, err := s.Count(context.Background(), "ghost")
	assert.ErrorIs(t, err, ErrCollectionNotFound)
}

func TestBoltStore_QueryByText(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	require.NoError(t, s.Put(ctx, CollectionNotes, sampleNotes()))

	matches, err := s.Query(ctx, CollectionNotes, QuerySpec{
		QueryTexts: []string{"evergreen"},
		NResults:   10,
	})
	require.NoError(t, err)
	require.Len(t, matches, 1)
	assert.Equal(t, "n2", matches[0].Note.ID)
}

func TestBoltStore_QueryByEmbedding(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	notes := []*Note{
		{ID: "e1", Title: "close", Embedding: []float32{1, 0, 0}},
		{ID: "e2", Title: "far", Embedding: []float32{0, 1, 0}},
	}
	require.NoError(t, s.Put(ctx, CollectionEmbeddings, notes))

	matches, err := s.Query(ctx, CollectionEmbeddings, QuerySpec{
		QueryEmbeddings: [][]float32{{1, 0, 0}},
		NResults:        1,
	})
	require.NoError(t, err)
	require.Len(t, matches, 1)
	assert.Equal(t, "e1", matches[0].Note.ID)
	assert.InDelta(t, 0.0, matches[0].Distance, 1e-6)
}

func TestBoltStore_QueryWhereFilter(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	require.NoError(t, s.Put(ctx, CollectionNotes, sampleNotes()))

	matches, err := s.Query(ctx, CollectionNotes, QuerySpec{
		QueryTexts: []string{"notes"},
		Where:      map[string]string{"status": "draft"},
		NResults:   10,
	})
	require.NoError(t, err)
	require.Len(t, matches, 1)
	assert.Equal(t, "n2", matches[0].Note.ID)
}

func TestBoltStore_QueryCorruptedRecordFails(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	require.NoError(t, s.Put(ctx, CollectionNotes, sampleNotes()))
	require.NoError(t, s.CorruptRecord(CollectionNotes, "n1"))

	_, err := s.Query(ctx, CollectionNotes, QuerySpec{QueryTexts: []string{"notes"}})
	assert.Error(t, err)
}

func TestBoltStore_ClosedRejects(t *testing.T) {
	s := newTestStore(t)
	require.NoError(t, s.Close())

	_, err := s.HasCollection(context.Background(), CollectionNotes)
	assert.Error(t, err)
}
