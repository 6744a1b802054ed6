package cache

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestKey_NormalizesQuery(t *testing.T) {
	opts := map[string]int{"limit": 10}
	assert.Equal(t, Key("Spaced  Repetition", opts), Key("spaced repetition", opts))
	assert.NotEqual(t, Key("spaced repetition", opts), Key("spaced repetition", map[string]int{"limit": 20}))
}

func TestCache_RoundTrip(t *testing.T) {
	c := New[[]string](Config{MaxSize: 10, TTL: time.Minute})

	c.Set("k", []string{"a", "b"})
	got, ok := c.Get("k")
	require.True(t, ok)
	assert.Equal(t, []string{"a", "b"}, got)

	stats := c.Stats()
	assert.Equal(t, int64(1), stats.Hits)
	assert.Equal(t, 1, stats.Size)
	assert.Greater(t, stats.MemoryBytes, int64(0))
}

func TestCache_MissCounts(t *testing.T) {
	c := New[int](Config{MaxSize: 10, TTL: time.Minute})

	_, ok := c.Get("absent")
	assert.False(t, ok)
	assert.Equal(t, int64(1), c.Stats().Misses)
}

func TestCache_TTLExpiryRemovesEntry(t *testing.T) {
	c := New[int](Config{MaxSize: 10, TTL: time.Minute})

	now := time.Now()
	c.SetClock(func() time.Time { return now })
	c.Set("k", 42)

	// Just inside the TTL the entry is still served.
	c.SetClock(func() time.Time { return now.Add(time.Minute) })
	_, ok := c.Get("k")
	assert.True(t, ok)

	// Past the TTL the entry is gone and the size drops.
	c.SetClock(func() time.Time { return now.Add(time.Minute + time.Nanosecond) })
	_, ok = c.Get("k")
	assert.False(t, ok)
	assert.Equal(t, 0, c.Stats().Size)
}

func TestCache_LRUEvictsLeastRecentlyAccessed(t *testing.T) {
	c := New[int](Config{MaxSize: 3, TTL: time.Minute, Eviction: EvictLRU})

	now := time.Now()
	clock := func(offset time.Duration) func() time.Time {
		return func() time.Time { return now.Add(offset) }
	}

	c.SetClock(clock(0))
	c.Set("a", 1)
	c.SetClock(clock(time.Second))
	c.Set("b", 2)
	c.SetClock(clock(2 * time.Second))
	c.Set("c", 3)

	// Touch a and c so b is the least recently accessed.
	c.SetClock(clock(3 * time.Second))
	c.Get("a")
	c.Get("c")

	c.SetClock(clock(4 * time.Second))
	c.Set("d", 4)

	_, ok := c.Get("b")
	assert.False(t, ok, "least-recently-accessed entry should be evicted")
	for _, key := range []string{"a", "c", "d"} {
		_, ok := c.Get(key)
		assert.True(t, ok, "entry %s should survive", key)
	}
	assert.Equal(t, int64(1), c.Stats().Evictions)
}

func TestCache_FIFOEvictsOldestInsert(t *testing.T) {
	c := New[int](Config{MaxSize: 2, TTL: time.Minute, Eviction: EvictFIFO})

	now := time.Now()
	c.SetClock(func() time.Time { return now })
	c.Set("first", 1)
	c.SetClock(func() time.Time { return now.Add(time.Second) })
	c.Set("second", 2)

	// Accessing first does not save it under FIFO.
	c.Get("first")
	c.SetClock(func() time.Time { return now.Add(2 * time.Second) })
	c.Set("third", 3)

	_, ok := c.Get("first")
	assert.False(t, ok)
}

func TestCache_TTLEvictionPrefersExpired(t *testing.T) {
	c := New[int](Config{MaxSize: 2, TTL: time.Second, Eviction: EvictTTL})

	now := time.Now()
	c.SetClock(func() time.Time { return now })
	c.Set("stale", 1)

	c.SetClock(func() time.Time { return now.Add(2 * time.Second) })
	c.Set("fresh", 2)
	c.Set("newer", 3)

	_, ok := c.Get("stale")
	assert.False(t, ok)
	_, ok = c.Get("fresh")
	assert.True(t, ok)
}

func TestCache_InvalidateGlob(t *testing.T) {
	c := New[int](Config{MaxSize: 10, TTL: time.Minute})
	c.Set("note:alpha", 1)
	c.Set("note:beta", 2)
	c.Set("other", 3)

	removed := c.Invalidate("note:*")
	assert.Equal(t, 2, removed)
	assert.Equal(t, 1, c.Stats().Size)

	removed = c.Invalidate("*")
	assert.Equal(t, 1, removed)
	assert.Equal(t, 0, c.Stats().Size)
}

func TestCache_UpdateConfigurationShrinks(t *testing.T) {
	c := New[int](Config{MaxSize: 5, TTL: time.Minute})
	for i := 0; i < 5; i++ {
		c.Set(fmt.Sprintf("k%d", i), i)
	}

	c.UpdateConfiguration(Config{MaxSize: 2})
	assert.Equal(t, 2, c.Stats().Size)
	assert.Equal(t, 2, c.Configuration().MaxSize)
}
