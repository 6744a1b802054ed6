// Package telemetry collects search metrics for optimization. All data
// stays local; nothing is reported externally.
package telemetry

import (
	"encoding/csv"
	"encoding/json"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/lorekeep/lorekeep/internal/provider"
)

// LatencyBucket is a latency histogram bucket.
type LatencyBucket string

const (
	BucketP10   LatencyBucket = "p10"   // <10ms
	BucketP50   LatencyBucket = "p50"   // 10-50ms
	BucketP100  LatencyBucket = "p100"  // 50-100ms
	BucketP500  LatencyBucket = "p500"  // 100-500ms
	BucketP1000 LatencyBucket = "p1000" // >=500ms
)

// LatencyToBucket converts a duration to its histogram bucket.
func LatencyToBucket(d time.Duration) LatencyBucket {
	ms := d.Milliseconds()
	switch {
	case ms < 10:
		return BucketP10
	case ms < 50:
		return BucketP50
	case ms < 100:
		return BucketP100
	case ms < 500:
		return BucketP500
	default:
		return BucketP1000
	}
}

// SearchEvent is one coordinated search, as seen by metrics.
type SearchEvent struct {
	Query            string
	ResultCount      int
	Latency          time.Duration
	FromCache        bool
	Degraded         bool
	StrategiesRun    []provider.Type
	StrategiesFailed []provider.Type
	Timestamp        time.Time
}

// IsZeroResult reports whether the search returned nothing.
func (e SearchEvent) IsZeroResult() bool {
	return e.ResultCount == 0
}

// TermCount pairs a query term with its frequency.
type TermCount struct {
	Term  string `json:"term"`
	Count int64  `json:"count"`
}

// Snapshot is an immutable view of collected metrics.
type Snapshot struct {
	TotalSearches       int64                   `json:"total_searches"`
	CacheHits           int64                   `json:"cache_hits"`
	CacheHitRate        float64                 `json:"cache_hit_rate"`
	DegradedSearches    int64                   `json:"degraded_searches"`
	ZeroResultCount     int64                   `json:"zero_result_count"`
	ZeroResultQueries   []string                `json:"zero_result_queries"`
	StrategyRuns        map[provider.Type]int64 `json:"strategy_runs"`
	StrategyFailures    map[provider.Type]int64 `json:"strategy_failures"`
	ErrorRate           float64                 `json:"error_rate"`
	LatencyDistribution map[LatencyBucket]int64 `json:"latency_distribution"`
	TopTerms            []TermCount             `json:"top_terms"`
	Since               time.Time               `json:"since"`
}

// ZeroResultPercentage returns the share of searches with no results.
func (s *Snapshot) ZeroResultPercentage() float64 {
	if s.TotalSearches == 0 {
		return 0
	}
	return float64(s.ZeroResultCount) / float64(s.TotalSearches) * 100
}

// SearchMetrics accumulates search telemetry. Owned by the coordinator
// as explicit instance state, never a process-wide singleton.
type SearchMetrics struct {
	mu sync.Mutex

	totalSearches    int64
	cacheHits        int64
	degradedSearches int64
	zeroResultCount  int64

	strategyRuns     map[provider.Type]int64
	strategyFailures map[provider.Type]int64
	latency          map[LatencyBucket]int64

	zeroResults *CircularBuffer[string]
	topTerms    *lru.Cache[string, int64]

	since time.Time
}

// topTermsCapacity bounds the term-frequency LRU; rarely-seen terms age
// out rather than growing the map forever.
const topTermsCapacity = 200

// zeroResultsCapacity bounds the zero-result query buffer.
const zeroResultsCapacity = 100

// NewSearchMetrics builds an empty metrics collector.
func NewSearchMetrics() *SearchMetrics {
	terms, _ := lru.New[string, int64](topTermsCapacity)
	return &SearchMetrics{
		strategyRuns:     make(map[provider.Type]int64),
		strategyFailures: make(map[provider.Type]int64),
		latency:          make(map[LatencyBucket]int64),
		zeroResults:      NewCircularBuffer[string](zeroResultsCapacity),
		topTerms:         terms,
		since:            time.Now(),
	}
}

// Record folds one search event into the counters.
func (m *SearchMetrics) Record(event SearchEvent) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.totalSearches++
	if event.FromCache {
		m.cacheHits++
	}
	if event.Degraded {
		m.degradedSearches++
	}
	if event.IsZeroResult() {
		m.zeroResultCount++
		m.zeroResults.Add(event.Query)
	}

	for _, s := range event.StrategiesRun {
		m.strategyRuns[s]++
	}
	for _, s := range event.StrategiesFailed {
		m.strategyFailures[s]++
	}

	if !event.FromCache {
		m.latency[LatencyToBucket(event.Latency)]++
	}

	for _, term := range ExtractTerms(event.Query) {
		count, _ := m.topTerms.Get(term)
		m.topTerms.Add(term, count+1)
	}
}

// Snapshot returns a copy of the current metrics.
func (m *SearchMetrics) Snapshot() *Snapshot {
	m.mu.Lock()
	defer m.mu.Unlock()

	snap := &Snapshot{
		TotalSearches:       m.totalSearches,
		CacheHits:           m.cacheHits,
		DegradedSearches:    m.degradedSearches,
		ZeroResultCount:     m.zeroResultCount,
		ZeroResultQueries:   m.zeroResults.Items(),
		StrategyRuns:        make(map[provider.Type]int64, len(m.strategyRuns)),
		StrategyFailures:    make(map[provider.Type]int64, len(m.strategyFailures)),
		LatencyDistribution: make(map[LatencyBucket]int64, len(m.latency)),
		Since:               m.since,
	}
	for k, v := range m.strategyRuns {
		snap.StrategyRuns[k] = v
	}
	for k, v := range m.strategyFailures {
		snap.StrategyFailures[k] = v
	}
	for k, v := range m.latency {
		snap.LatencyDistribution[k] = v
	}

	if m.totalSearches > 0 {
		snap.CacheHitRate = float64(m.cacheHits) / float64(m.totalSearches)
	}
	var runs, failures int64
	for _, v := range m.strategyRuns {
		runs += v
	}
	for _, v := range m.strategyFailures {
		failures += v
	}
	if runs > 0 {
		snap.ErrorRate = float64(failures) / float64(runs)
	}

	for _, term := range m.topTerms.Keys() {
		if count, ok := m.topTerms.Peek(term); ok {
			snap.TopTerms = append(snap.TopTerms, TermCount{Term: term, Count: count})
		}
	}
	sort.Slice(snap.TopTerms, func(i, j int) bool {
		if snap.TopTerms[i].Count != snap.TopTerms[j].Count {
			return snap.TopTerms[i].Count > snap.TopTerms[j].Count
		}
		return snap.TopTerms[i].Term < snap.TopTerms[j].Term
	})

	return snap
}

// Reset clears all counters.
func (m *SearchMetrics) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.totalSearches, m.cacheHits, m.degradedSearches, m.zeroResultCount = 0, 0, 0, 0
	m.strategyRuns = make(map[provider.Type]int64)
	m.strategyFailures = make(map[provider.Type]int64)
	m.latency = make(map[LatencyBucket]int64)
	m.zeroResults.Clear()
	m.topTerms.Purge()
	m.since = time.Now()
}

// Export serializes a snapshot as "json" or "csv".
func (m *SearchMetrics) Export(format string) ([]byte, error) {
	snap := m.Snapshot()

	switch strings.ToLower(format) {
	case "", "json":
		return json.MarshalIndent(snap, "", "  ")
	case "csv":
		return exportCSV(snap)
	default:
		return nil, &UnsupportedFormatError{Format: format}
	}
}

// UnsupportedFormatError reports an unknown export format.
type UnsupportedFormatError struct {
	Format string
}

func (e *UnsupportedFormatError) Error() string {
	return "unsupported export format: " + e.Format
}

// exportCSV flattens the snapshot into metric,label,value rows.
func exportCSV(snap *Snapshot) ([]byte, error) {
	var sb strings.Builder
	w := csv.NewWriter(&sb)

	rows := [][]string{
		{"metric", "label", "value"},
		{"total_searches", "", strconv.FormatInt(snap.TotalSearches, 10)},
		{"cache_hits", "", strconv.FormatInt(snap.CacheHits, 10)},
		{"cache_hit_rate", "", strconv.FormatFloat(snap.CacheHitRate, 'f', 4, 64)},
		{"degraded_searches", "", strconv.FormatInt(snap.DegradedSearches, 10)},
		{"zero_result_count", "", strconv.FormatInt(snap.ZeroResultCount, 10)},
		{"error_rate", "", strconv.FormatFloat(snap.ErrorRate, 'f', 4, 64)},
	}
	for _, t := range provider.AllTypes() {
		rows = append(rows,
			[]string{"strategy_runs", string(t), strconv.FormatInt(snap.StrategyRuns[t], 10)},
			[]string{"strategy_failures", string(t), strconv.FormatInt(snap.StrategyFailures[t], 10)},
		)
	}
	for _, b := range []LatencyBucket{BucketP10, BucketP50, BucketP100, BucketP500, BucketP1000} {
		rows = append(rows, []string{"latency", string(b), strconv.FormatInt(snap.LatencyDistribution[b], 10)})
	}
	for _, t := range snap.TopTerms {
		rows = append(rows, []string{"top_term", t.Term, strconv.FormatInt(t.Count, 10)})
	}

	if err := w.WriteAll(rows); err != nil {
		return nil, err
	}
	w.Flush()
	return []byte(sb.String()), w.Error()
}

// ExtractTerms lowercases a query and keeps terms of length >= 3.
func ExtractTerms(query string) []string {
	query = strings.ToLower(strings.TrimSpace(query))
	if query == "" {
		return nil
	}

	var terms []string
	for _, w := range strings.Fields(query) {
		if len(w) >= 3 {
			terms = append(terms, w)
		}
	}
	return terms
}
