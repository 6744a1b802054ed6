// Package store provides the backing collection store consumed by the
// search providers and the dependency validator. A collection is a named
// partition of note records; the store exposes existence, count, and query
// operations plus the mutations needed to populate it.
package store

import (
	"context"
	"errors"
	"time"
)

// Collection names used by the search stack.
const (
	CollectionNotes          = "vault_notes"
	CollectionEmbeddings     = "note_embeddings"
	CollectionMemoryTraces   = "memory_traces"
	CollectionSessions       = "session_snapshots"
	CollectionWorkspaceMeta  = "workspace_meta"
)

// ErrCollectionNotFound is returned when a named collection does not exist.
var ErrCollectionNotFound = errors.New("collection not found")

// Link is a reference from one note to another. Target preserves the
// textual reference as written; Path is the resolved vault path, empty
// while unresolved.
type Link struct {
	Target string `json:"target"`
	Path   string `json:"path,omitempty"`
}

// Note is the unit of storage in vault collections.
type Note struct {
	ID          string            `json:"id"`
	Title       string            `json:"title"`
	Path        string            `json:"path"`
	Content     string            `json:"content"`
	Frontmatter map[string]string `json:"frontmatter,omitempty"`
	Tags        []string          `json:"tags,omitempty"`
	Outgoing    []Link            `json:"outgoing,omitempty"`
	Incoming    []Link            `json:"incoming,omitempty"`

	// Embedding is populated for records in embedding collections.
	Embedding []float32 `json:"embedding,omitempty"`

	UpdatedAt time.Time `json:"updated_at"`
}

// QuerySpec describes a trial or retrieval query against a collection.
// Exactly one of QueryTexts or QueryEmbeddings is typically set.
type QuerySpec struct {
	QueryTexts      []string
	QueryEmbeddings [][]float32
	NResults        int
	Where           map[string]string
}

// QueryMatch is a single match from a collection query.
type QueryMatch struct {
	Note     *Note
	Distance float64
}

// CollectionStore is the backing store contract consumed by the semantic
// provider and the dependency validator.
type CollectionStore interface {
	// HasCollection reports whether the named collection exists.
	HasCollection(ctx context.Context, name string) (bool, error)

	// Count returns the number of records in the collection.
	Count(ctx context.Context, name string) (int, error)

	// Query runs a retrieval query against the collection.
	Query(ctx context.Context, name string, spec QuerySpec) ([]QueryMatch, error)

	// CreateCollection creates an empty collection if absent.
	CreateCollection(ctx context.Context, name string) error

	// DeleteCollection removes a collection and all its records.
	DeleteCollection(ctx context.Context, name string) error

	// Put upserts note records into the collection.
	Put(ctx context.Context, name string, notes []*Note) error

	// Get fetches records by ID, skipping missing IDs.
	Get(ctx context.Context, name string, ids []string) ([]*Note, error)

	// Delete removes records by ID.
	Delete(ctx context.Context, name string, ids []string) error

	// Close releases resources.
	Close() error
}
