package provider

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/blevesearch/bleve/v2"
	"github.com/blevesearch/bleve/v2/mapping"
	"github.com/blevesearch/bleve/v2/search"

	"github.com/lorekeep/lorekeep/internal/store"
)

// NoteIndex wraps a Bleve index over vault notes, shared by the keyword
// and fuzzy providers. Hits carry IDs only; payloads live in the
// collection store.
type NoteIndex struct {
	mu     sync.RWMutex
	index  bleve.Index
	path   string
	closed bool
}

// indexedNote is the document shape stored in Bleve.
type indexedNote struct {
	Title   string   `json:"title"`
	Content string   `json:"content"`
	Tags    []string `json:"tags"`
	Path    string   `json:"path"`
}

// IndexHit is a single Bleve hit.
type IndexHit struct {
	ID           string
	Score        float64
	MatchedTerms []string
}

// NewNoteIndex creates a note index at path. An empty path creates an
// in-memory index (used by tests).
func NewNoteIndex(path string) (*NoteIndex, error) {
	indexMapping := createNoteMapping()

	var idx bleve.Index
	var err error
	if path == "" {
		idx, err = bleve.NewMemOnly(indexMapping)
	} else {
		if mkErr := os.MkdirAll(filepath.Dir(path), 0o755); mkErr != nil {
			return nil, fmt.Errorf("create index directory: %w", mkErr)
		}
		idx, err = bleve.Open(path)
		if err == bleve.ErrorIndexPathDoesNotExist {
			idx, err = bleve.New(path, indexMapping)
		}
	}
	if err != nil {
		return nil, fmt.Errorf("open note index: %w", err)
	}

	return &NoteIndex{index: idx, path: path}, nil
}

// createNoteMapping builds the Bleve mapping for note documents.
func createNoteMapping() *mapping.IndexMappingImpl {
	noteMapping := bleve.NewDocumentMapping()

	text := bleve.NewTextFieldMapping()
	noteMapping.AddFieldMappingsAt("title", text)
	noteMapping.AddFieldMappingsAt("content", text)
	noteMapping.AddFieldMappingsAt("tags", text)

	keyword := bleve.NewTextFieldMapping()
	keyword.Index = false
	noteMapping.AddFieldMappingsAt("path", keyword)

	indexMapping := bleve.NewIndexMapping()
	indexMapping.DefaultMapping = noteMapping
	return indexMapping
}

// Index adds notes to the index in a single batch.
func (ni *NoteIndex) Index(ctx context.Context, notes []*store.Note) error {
	if len(notes) == 0 {
		return nil
	}

	ni.mu.Lock()
	defer ni.mu.Unlock()
	if ni.closed {
		return fmt.Errorf("index is closed")
	}

	batch := ni.index.NewBatch()
	for _, n := range notes {
		doc := indexedNote{
			Title:   n.Title,
			Content: n.Content,
			Tags:    n.Tags,
			Path:    n.Path,
		}
		if err := batch.Index(n.ID, doc); err != nil {
			return fmt.Errorf("index note %s: %w", n.ID, err)
		}
	}

	if err := ni.index.Batch(batch); err != nil {
		return fmt.Errorf("execute index batch: %w", err)
	}
	return nil
}

// Delete removes notes from the index.
func (ni *NoteIndex) Delete(ctx context.Context, ids []string) error {
	if len(ids) == 0 {
		return nil
	}

	ni.mu.Lock()
	defer ni.mu.Unlock()
	if ni.closed {
		return fmt.Errorf("index is closed")
	}

	batch := ni.index.NewBatch()
	for _, id := range ids {
		batch.Delete(id)
	}
	return ni.index.Batch(batch)
}

// SearchMatch runs an analyzed match query across title, content, and
// tags. Title matches are boosted: a note titled after the query is a
// stronger signal than a passing mention.
func (ni *NoteIndex) SearchMatch(ctx context.Context, query string, limit int) ([]*IndexHit, error) {
	ni.mu.RLock()
	defer ni.mu.RUnlock()
	if ni.closed {
		return nil, fmt.Errorf("index is closed")
	}

	if strings.TrimSpace(query) == "" {
		return []*IndexHit{}, nil
	}

	titleQuery := bleve.NewMatchQuery(query)
	titleQuery.SetField("title")
	titleQuery.SetBoost(2.0)

	contentQuery := bleve.NewMatchQuery(query)
	contentQuery.SetField("content")

	tagsQuery := bleve.NewMatchQuery(query)
	tagsQuery.SetField("tags")

	combined := bleve.NewDisjunctionQuery(titleQuery, contentQuery, tagsQuery)

	req := bleve.NewSearchRequest(combined)
	req.Size = limit
	req.IncludeLocations = true

	return ni.run(ctx, req)
}

// SearchFuzzy runs per-term fuzzy (edit distance) queries across title
// and content. Terms shorter than the fuzziness gain nothing from edit
// distance and are matched exactly.
func (ni *NoteIndex) SearchFuzzy(ctx context.Context, terms []string, fuzziness, limit int) ([]*IndexHit, error) {
	ni.mu.RLock()
	defer ni.mu.RUnlock()
	if ni.closed {
		return nil, fmt.Errorf("index is closed")
	}

	if len(terms) == 0 {
		return []*IndexHit{}, nil
	}

	combined := bleve.NewDisjunctionQuery()
	for _, term := range terms {
		term = strings.ToLower(strings.TrimSpace(term))
		if term == "" {
			continue
		}

		for _, field := range []string{"title", "content"} {
			fq := bleve.NewFuzzyQuery(term)
			fq.SetField(field)
			if len(term) > fuzziness+1 {
				fq.SetFuzziness(fuzziness)
			} else {
				fq.SetFuzziness(0)
			}
			combined.AddQuery(fq)
		}
	}

	req := bleve.NewSearchRequest(combined)
	req.Size = limit
	req.IncludeLocations = true

	return ni.run(ctx, req)
}

// run executes a prepared request and converts hits.
func (ni *NoteIndex) run(ctx context.Context, req *bleve.SearchRequest) ([]*IndexHit, error) {
	result, err := ni.index.SearchInContext(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("search note index: %w", err)
	}

	hits := make([]*IndexHit, 0, len(result.Hits))
	for _, hit := range result.Hits {
		hits = append(hits, &IndexHit{
			ID:           hit.ID,
			Score:        hit.Score,
			MatchedTerms: matchedTermsOf(hit),
		})
	}
	return hits, nil
}

// matchedTermsOf extracts the distinct matched terms from a hit.
func matchedTermsOf(hit *search.DocumentMatch) []string {
	seen := make(map[string]struct{})
	for _, locations := range hit.Locations {
		for term := range locations {
			seen[term] = struct{}{}
		}
	}
	if len(seen) == 0 {
		return nil
	}
	terms := make([]string, 0, len(seen))
	for term := range seen {
		terms = append(terms, term)
	}
	sort.Strings(terms)
	return terms
}

// DocCount returns the number of indexed notes.
func (ni *NoteIndex) DocCount() (uint64, error) {
	ni.mu.RLock()
	defer ni.mu.RUnlock()
	if ni.closed {
		return 0, fmt.Errorf("index is closed")
	}
	return ni.index.DocCount()
}

// Close releases the index.
func (ni *NoteIndex) Close() error {
	ni.mu.Lock()
	defer ni.mu.Unlock()
	if ni.closed {
		return nil
	}
	ni.closed = true
	return ni.index.Close()
}

// normalizeHitScores scales hit scores to 0-1 by the maximum score.
// Bleve scores are query-dependent and unbounded; thresholds apply to
// the normalized values.
func normalizeHitScores(hits []*IndexHit) {
	if len(hits) == 0 {
		return
	}
	sort.Slice(hits, func(i, j int) bool {
		if hits[i].Score != hits[j].Score {
			return hits[i].Score > hits[j].Score
		}
		return hits[i].ID < hits[j].ID
	})
	max := hits[0].Score
	if max == 0 {
		return
	}
	for _, h := range hits {
		h.Score /= max
	}
}
