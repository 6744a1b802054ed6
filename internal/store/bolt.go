package store

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	bolt "go.etcd.io/bbolt"
)

// BoltStore implements CollectionStore on top of bbolt. Each collection
// maps to a top-level bucket; records are JSON-encoded notes keyed by ID.
type BoltStore struct {
	mu     sync.RWMutex
	db     *bolt.DB
	path   string
	closed bool
}

// NewBoltStore opens (or creates) a bolt-backed collection store at path.
func NewBoltStore(path string) (*BoltStore, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create store directory: %w", err)
	}

	db, err := bolt.Open(path, 0o600, nil)
	if err != nil {
		return nil, fmt.Errorf("open collection store: %w", err)
	}

	return &BoltStore{db: db, path: path}, nil
}

// HasCollection reports whether the named collection exists.
func (s *BoltStore) HasCollection(ctx context.Context, name string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return false, fmt.Errorf("store is closed")
	}

	var exists bool
	err := s.db.View(func(tx *bolt.Tx) error {
		exists = tx.Bucket([]byte(name)) != nil
		return nil
	})
	return exists, err
}

// Count returns the number of records in the collection.
func (s *BoltStore) Count(ctx context.Context, name string) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return 0, fmt.Errorf("store is closed")
	}

	var count int
	err := s.db.View(func(tx *bolt.Tx) error {
		b := tx.Bucket([]byte(name))
		if b == nil {
			return ErrCollectionNotFound
		}
		count = b.Stats().KeyN
		return nil
	})
	return count, err
}

// CreateCollection creates an empty collection if absent.
func (s *BoltStore) CreateCollection(ctx context.Context, name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return fmt.Errorf("store is closed")
	}

	return s.db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists([]byte(name))
		return err
	})
}

// DeleteCollection removes a collection and all its records.
func (s *BoltStore) DeleteCollection(ctx context.Context, name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return fmt.Errorf("store is closed")
	}

	return s.db.Update(func(tx *bolt.Tx) error {
		if tx.Bucket([]byte(name)) == nil {
			return nil
		}
		return tx.DeleteBucket([]byte(name))
	})
}

// Put upserts note records into the collection, creating it if needed.
func (s *BoltStore) Put(ctx context.Context, name string, notes []*Note) error {
	if len(notes) == 0 {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return fmt.Errorf("store is closed")
	}

	return s.db.Update(func(tx *bolt.Tx) error {
		b, err := tx.CreateBucketIfNotExists([]byte(name))
		if err != nil {
			return err
		}
		for _, n := range notes {
			if n.ID == "" {
				return fmt.Errorf("note missing ID (path=%s)", n.Path)
			}
			data, err := json.Marshal(n)
			if err != nil {
				return fmt.Errorf("encode note %s: %w", n.ID, err)
			}
			if err := b.Put([]byte(n.ID), data); err != nil {
				return err
			}
		}
		return nil
	})
}

// Get fetches records by ID, skipping missing IDs.
func (s *BoltStore) Get(ctx context.Context, name string, ids []string) ([]*Note, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return nil, fmt.Errorf("store is closed")
	}

	notes := make([]*Note, 0, len(ids))
	err := s.db.View(func(tx *bolt.Tx) error {
		b := tx.Bucket([]byte(name))
		if b == nil {
			return ErrCollectionNotFound
		}
		for _, id := range ids {
			data := b.Get([]byte(id))
			if data == nil {
				continue
			}
			var n Note
			if err := json.Unmarshal(data, &n); err != nil {
				return fmt.Errorf("decode note %s: %w", id, err)
			}
			notes = append(notes, &n)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return notes, nil
}

// IDs returns every record ID in the collection.
func (s *BoltStore) IDs(ctx context.Context, name string) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return nil, fmt.Errorf("store is closed")
	}

	var ids []string
	err := s.db.View(func(tx *bolt.Tx) error {
		b := tx.Bucket([]byte(name))
		if b == nil {
			return ErrCollectionNotFound
		}
		return b.ForEach(func(k, _ []byte) error {
			ids = append(ids, string(k))
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	return ids, nil
}

// Delete removes records by ID. Missing IDs are ignored.
func (s *BoltStore) Delete(ctx context.Context, name string, ids []string) error {
	if len(ids) == 0 {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return fmt.Errorf("store is closed")
	}

	return s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket([]byte(name))
		if b == nil {
			return ErrCollectionNotFound
		}
		for _, id := range ids {
			if err := b.Delete([]byte(id)); err != nil {
				return err
			}
		}
		return nil
	})
}

// Query runs a retrieval query against the collection.
//
// Embedding queries rank by cosine distance against stored embeddings
// (linear scan — the semantic provider keeps its own ANN index; this path
// serves trial queries and small collections). Text queries match on
// lowercase substring over title and content.
func (s *BoltStore) Query(ctx context.Context, name string, spec QuerySpec) ([]QueryMatch, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return nil, fmt.Errorf("store is closed")
	}

	limit := spec.NResults
	if limit <= 0 {
		limit = 10
	}

	var matches []QueryMatch
	err := s.db.View(func(tx *bolt.Tx) error {
		b := tx.Bucket([]byte(name))
		if b == nil {
			return ErrCollectionNotFound
		}

		return b.ForEach(func(k, v []byte) error {
			var n Note
			if err := json.Unmarshal(v, &n); err != nil {
				return fmt.Errorf("decode note %s: %w", string(k), err)
			}
			if !matchesWhere(&n, spec.Where) {
				return nil
			}

			switch {
			case len(spec.QueryEmbeddings) > 0:
				if len(n.Embedding) == 0 {
					return nil
				}
				dist := cosineDistance(spec.QueryEmbeddings[0], n.Embedding)
				if dist < 0 {
					return nil
				}
				matches = append(matches, QueryMatch{Note: &n, Distance: dist})
			case len(spec.QueryTexts) > 0:
				if containsText(&n, spec.QueryTexts[0]) {
					matches = append(matches, QueryMatch{Note: &n})
				}
			default:
				matches = append(matches, QueryMatch{Note: &n})
			}
			return nil
		})
	})
	if err != nil {
		return nil, err
	}

	sort.Slice(matches, func(i, j int) bool {
		if matches[i].Distance != matches[j].Distance {
			return matches[i].Distance < matches[j].Distance
		}
		return matches[i].Note.ID < matches[j].Note.ID
	})
	if len(matches) > limit {
		matches = matches[:limit]
	}
	return matches, nil
}

// matchesWhere checks frontmatter equality filters.
func matchesWhere(n *Note, where map[string]string) bool {
	for k, v := range where {
		if n.Frontmatter[k] != v {
			return false
		}
	}
	return true
}

// containsText reports a lowercase substring match on title or content.
func containsText(n *Note, query string) bool {
	q := strings.ToLower(strings.TrimSpace(query))
	if q == "" {
		return true
	}
	return strings.Contains(strings.ToLower(n.Title), q) ||
		strings.Contains(strings.ToLower(n.Content), q)
}

// cosineDistance returns 1 - cosine similarity, or -1 on dimension mismatch.
func cosineDistance(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return -1
	}
	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 1
	}
	return 1 - dot/(sqrtf(normA)*sqrtf(normB))
}

func sqrtf(x float64) float64 {
	if x <= 0 {
		return 0
	}
	z := x / 2
	for i := 0; i < 12; i++ {
		z = z - (z*z-x)/(2*z)
	}
	return z
}

// Path returns the on-disk location of the store.
func (s *BoltStore) Path() string {
	return s.path
}

// Close releases the underlying database.
func (s *BoltStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true
	return s.db.Close()
}

// Ensure BoltStore implements CollectionStore.
var _ CollectionStore = (*BoltStore)(nil)

// CorruptRecord writes undecodable bytes for an ID. Test hook used to
// exercise validator recovery paths.
func (s *BoltStore) CorruptRecord(name, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket([]byte(name))
		if b == nil {
			return ErrCollectionNotFound
		}
		return b.Put([]byte(id), bytes.Repeat([]byte{0xff}, 8))
	})
}
