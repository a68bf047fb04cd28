// Package cache provides the in-memory TTL caches used while assembling documents.
package cache

import (
	"sort"
	"sync"
	"time"

	"github.com/lexandro/contextor-mcp/metrics"
)

// Options configures a Cache.
type Options struct {
	Name    string           // label used in stats and metrics
	MaxSize int              // maximum number of entries (default 100)
	TTL     time.Duration    // maximum entry age; <= 0 disables expiry
	Now     func() time.Time // clock, defaults to time.Now
}

// Stats is a point-in-time snapshot of a cache.
type Stats struct {
	Name      string
	Entries   int
	MaxSize   int
	TTL       time.Duration
	Hits      uint64
	Misses    uint64
	Evictions uint64
	Expired   uint64
}

type entry[V any] struct {
	value     V
	createdAt time.Time
	seq       uint64 // insertion order, breaks createdAt ties
}

// Cache is a capacity-bounded map with lazy TTL expiry.
// Eviction is by insertion time, not access time: when a new key arrives at
// capacity, the oldest quarter of entries (at least one) is dropped first.
// All operations take a single mutex.
type Cache[K comparable, V any] struct {
	mu      sync.Mutex
	name    string
	entries map[K]*entry[V]
	maxSize int
	ttl     time.Duration
	now     func() time.Time
	seq     uint64

	hits      uint64
	misses    uint64
	evictions uint64
	expired   uint64
}

// New creates an empty cache.
func New[K comparable, V any](options Options) *Cache[K, V] {
	if options.MaxSize <= 0 {
		options.MaxSize = 100
	}
	if options.Now == nil {
		options.Now = time.Now
	}
	if options.Name == "" {
		options.Name = "cache"
	}
	return &Cache[K, V]{
		name:    options.Name,
		entries: make(map[K]*entry[V]),
		maxSize: options.MaxSize,
		ttl:     options.TTL,
		now:     options.Now,
	}
}

// Get returns the cached value. An entry older than the TTL counts as a miss
// and is removed.
func (c *Cache[K, V]) Get(key K) (V, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	var zero V
	e, ok := c.entries[key]
	if !ok {
		c.misses++
		metrics.RecordCacheLookup(c.name, false)
		return zero, false
	}

	if c.ttl > 0 && c.now().Sub(e.createdAt) >= c.ttl {
		delete(c.entries, key)
		c.misses++
		c.expired++
		metrics.RecordCacheLookup(c.name, false)
		metrics.RecordCacheEviction(c.name, "expired", 1)
		return zero, false
	}

	c.hits++
	metrics.RecordCacheLookup(c.name, true)
	return e.value, true
}

// Put stores a value, replacing any previous entry for the key.
func (c *Cache[K, V]) Put(key K, value V) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, exists := c.entries[key]; !exists && len(c.entries) >= c.maxSize {
		c.evictOldest()
	}

	c.seq++
	c.entries[key] = &entry[V]{value: value, createdAt: c.now(), seq: c.seq}
}

// evictOldest removes the oldest 25% of entries (minimum 1).
// Must be called with lock held.
func (c *Cache[K, V]) evictOldest() {
	count := c.maxSize / 4
	if count < 1 {
		count = 1
	}

	type aged struct {
		key       K
		createdAt time.Time
		seq       uint64
	}
	all := make([]aged, 0, len(c.entries))
	for key, e := range c.entries {
		all = append(all, aged{key: key, createdAt: e.createdAt, seq: e.seq})
	}
	sort.Slice(all, func(i, j int) bool {
		if !all[i].createdAt.Equal(all[j].createdAt) {
			return all[i].createdAt.Before(all[j].createdAt)
		}
		return all[i].seq < all[j].seq
	})

	if count > len(all) {
		count = len(all)
	}
	for _, victim := range all[:count] {
		delete(c.entries, victim.key)
	}
	c.evictions += uint64(count)
	metrics.RecordCacheEviction(c.name, "capacity", count)
}

// Delete removes a single entry.
func (c *Cache[K, V]) Delete(key K) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.entries, key)
}

// DeleteFunc removes every entry whose key satisfies match.
func (c *Cache[K, V]) DeleteFunc(match func(K) bool) int {
	c.mu.Lock()
	defer c.mu.Unlock()

	removed := 0
	for key := range c.entries {
		if match(key) {
			delete(c.entries, key)
			removed++
		}
	}
	return removed
}

// Clear removes all entries. Counters are kept.
func (c *Cache[K, V]) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = make(map[K]*entry[V])
}

// Len returns the number of stored entries, including ones not yet found to be expired.
func (c *Cache[K, V]) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

// Stats returns a snapshot of the cache counters.
func (c *Cache[K, V]) Stats() Stats {
	c.mu.Lock()
	defer c.mu.Unlock()
	return Stats{
		Name:      c.name,
		Entries:   len(c.entries),
		MaxSize:   c.maxSize,
		TTL:       c.ttl,
		Hits:      c.hits,
		Misses:    c.misses,
		Evictions: c.evictions,
		Expired:   c.expired,
	}
}
