// Package cache provides the hybrid search result cache: TTL-bounded
// entries keyed by normalized query plus an options hash, with pluggable
// eviction.
package cache

import (
	"encoding/json"
	"fmt"
	"hash/fnv"
	"regexp"
	"strings"
	"sync"
	"time"
)

// EvictionStrategy selects the policy used when the cache is full.
type EvictionStrategy string

const (
	// EvictLRU removes the entry with the oldest access time.
	EvictLRU EvictionStrategy = "lru"

	// EvictFIFO removes the entry with the oldest insertion time.
	EvictFIFO EvictionStrategy = "fifo"

	// EvictTTL removes expired entries first, falling back to LRU when
	// nothing has expired.
	EvictTTL EvictionStrategy = "ttl"
)

// Config is the cache's runtime configuration.
type Config struct {
	MaxSize  int              `json:"max_size"`
	TTL      time.Duration    `json:"ttl"`
	Eviction EvictionStrategy `json:"eviction"`
}

// Stats is a point-in-time snapshot of cache behavior.
type Stats struct {
	Size        int     `json:"size"`
	Hits        int64   `json:"hits"`
	Misses      int64   `json:"misses"`
	HitRate     float64 `json:"hit_rate"`
	Evictions   int64   `json:"evictions"`
	MemoryBytes int64   `json:"memory_bytes"`
}

type entry[V any] struct {
	value      V
	insertedAt time.Time
	accessedAt time.Time
	hits       int64

	// size is the serialized-size approximation captured at insert.
	size int64
}

// Cache is a mutex-guarded result cache. Expiry is lazy: an expired
// entry is detected and deleted on the Get that finds it.
type Cache[V any] struct {
	mu      sync.Mutex
	cfg     Config
	entries map[string]*entry[V]

	hits      int64
	misses    int64
	evictions int64

	// now is a clock hook for expiry tests.
	now func() time.Time
}

// New builds a cache, filling zero config values with defaults.
func New[V any](cfg Config) *Cache[V] {
	if cfg.MaxSize <= 0 {
		cfg.MaxSize = 500
	}
	if cfg.TTL <= 0 {
		cfg.TTL = 5 * time.Minute
	}
	if cfg.Eviction == "" {
		cfg.Eviction = EvictLRU
	}
	return &Cache[V]{
		cfg:     cfg,
		entries: make(map[string]*entry[V]),
		now:     time.Now,
	}
}

// Key derives a cache key from the query and its options: the query is
// normalized (lowercase, collapsed whitespace) and the options are
// hashed structurally, so equivalent calls share an entry.
func Key(query string, options any) string {
	normalized := strings.Join(strings.Fields(strings.ToLower(query)), " ")

	h := fnv.New64a()
	if data, err := json.Marshal(options); err == nil {
		_, _ = h.Write(data)
	}
	return fmt.Sprintf("%s|%016x", normalized, h.Sum64())
}

// Get returns the cached value and increments its hit count. An expired
// entry is removed and reported as a miss.
func (c *Cache[V]) Get(key string) (V, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	var zero V
	e, ok := c.entries[key]
	if !ok {
		c.misses++
		return zero, false
	}

	now := c.now()
	if now.Sub(e.insertedAt) > c.cfg.TTL {
		delete(c.entries, key)
		c.misses++
		return zero, false
	}

	e.hits++
	e.accessedAt = now
	c.hits++
	return e.value, true
}

// Set stores a value, evicting first when at capacity.
func (c *Cache[V]) Set(key string, value V) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, exists := c.entries[key]; !exists && len(c.entries) >= c.cfg.MaxSize {
		c.evictOne()
	}

	now := c.now()
	c.entries[key] = &entry[V]{
		value:      value,
		insertedAt: now,
		accessedAt: now,
		size:       approximateSize(value),
	}
}

// Invalidate removes entries matching the pattern. "*" clears
// everything; any other pattern is a glob matched against keys. Returns
// the number of entries removed.
func (c *Cache[V]) Invalidate(pattern string) int {
	c.mu.Lock()
	defer c.mu.Unlock()

	if pattern == "*" {
		removed := len(c.entries)
		c.entries = make(map[string]*entry[V])
		return removed
	}

	re, err := globToRegexp(pattern)
	if err != nil {
		return 0
	}
	removed := 0
	for key := range c.entries {
		if re.MatchString(key) {
			delete(c.entries, key)
			removed++
		}
	}
	return removed
}

// Clear removes all entries and resets counters.
func (c *Cache[V]) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = make(map[string]*entry[V])
	c.hits, c.misses, c.evictions = 0, 0, 0
}

// Stats returns a snapshot of cache behavior.
func (c *Cache[V]) Stats() Stats {
	c.mu.Lock()
	defer c.mu.Unlock()

	var memory int64
	for _, e := range c.entries {
		memory += e.size
	}
	total := c.hits + c.misses
	var hitRate float64
	if total > 0 {
		hitRate = float64(c.hits) / float64(total)
	}
	return Stats{
		Size:        len(c.entries),
		Hits:        c.hits,
		Misses:      c.misses,
		HitRate:     hitRate,
		Evictions:   c.evictions,
		MemoryBytes: memory,
	}
}

// Configuration returns the active configuration.
func (c *Cache[V]) Configuration() Config {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.cfg
}

// UpdateConfiguration applies new settings, evicting down to a reduced
// MaxSize immediately.
func (c *Cache[V]) UpdateConfiguration(cfg Config) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if cfg.MaxSize > 0 {
		c.cfg.MaxSize = cfg.MaxSize
	}
	if cfg.TTL > 0 {
		c.cfg.TTL = cfg.TTL
	}
	if cfg.Eviction != "" {
		c.cfg.Eviction = cfg.Eviction
	}
	for len(c.entries) > c.cfg.MaxSize {
		c.evictOne()
	}
}

// evictOne removes a single entry per the configured strategy. Caller
// holds the lock.
func (c *Cache[V]) evictOne() {
	if len(c.entries) == 0 {
		return
	}

	var victim string
	switch c.cfg.Eviction {
	case EvictFIFO:
		victim = c.oldestBy(func(e *entry[V]) time.Time { return e.insertedAt })
	case EvictTTL:
		now := c.now()
		for key, e := range c.entries {
			if now.Sub(e.insertedAt) > c.cfg.TTL {
				victim = key
				break
			}
		}
		if victim == "" {
			victim = c.oldestBy(func(e *entry[V]) time.Time { return e.accessedAt })
		}
	default: // lru
		victim = c.oldestBy(func(e *entry[V]) time.Time { return e.accessedAt })
	}

	delete(c.entries, victim)
	c.evictions++
}

// oldestBy returns the key with the minimum timestamp, breaking ties by
// key for determinism.
func (c *Cache[V]) oldestBy(ts func(*entry[V]) time.Time) string {
	var oldest string
	var oldestTime time.Time
	for key, e := range c.entries {
		t := ts(e)
		if oldest == "" || t.Before(oldestTime) || (t.Equal(oldestTime) && key < oldest) {
			oldest = key
			oldestTime = t
		}
	}
	return oldest
}

// approximateSize estimates an entry's memory footprint from its JSON
// serialization.
func approximateSize(value any) int64 {
	data, err := json.Marshal(value)
	if err != nil {
		return 0
	}
	return int64(len(data))
}

// globToRegexp converts a glob pattern to an anchored regexp: '*'
// becomes '.*', everything else is matched literally.
func globToRegexp(pattern string) (*regexp.Regexp, error) {
	var sb strings.Builder
	sb.WriteString("^")
	for _, part := range strings.Split(pattern, "*") {
		sb.WriteString(regexp.QuoteMeta(part))
		sb.WriteString(".*")
	}
	expr := strings.TrimSuffix(sb.String(), ".*") + "$"
	return regexp.Compile(expr)
}

// SetClock replaces the cache's clock. Test hook.
func (c *Cache[V]) SetClock(now func() time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = now
}
