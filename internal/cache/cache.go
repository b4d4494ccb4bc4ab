// Package cache memoizes validated review results by canonical-context
// fingerprint. The cache is shared across principals: a fingerprint is
// derived purely from the input text, and no review content is
// principal-specific.
package cache

import (
	"sync"

	"github.com/gridline/design-review-service/internal/models"
)

// DefaultMaxEntries bounds the cache when no limit is configured.
const DefaultMaxEntries = 256

// Stats reports cache performance counters.
type Stats struct {
	Entries int   `json:"entries"`
	Hits    int64 `json:"hits"`
	Misses  int64 `json:"misses"`
}

// Cache is a bounded memo cache with wholesale-clear eviction: once the
// entry count reaches the limit, the entire map is dropped before the
// next insert. No per-entry LRU, no TTL. The mutex guards map memory
// safety only; it is never held across an engine call, so two identical
// concurrent misses both reach the engine and the last write wins.
type Cache struct {
	mu         sync.Mutex
	maxEntries int
	entries    map[string]*models.ReviewResult
	hits       int64
	misses     int64
}

func New(maxEntries int) *Cache {
	if maxEntries <= 0 {
		maxEntries = DefaultMaxEntries
	}
	return &Cache{
		maxEntries: maxEntries,
		entries:    make(map[string]*models.ReviewResult),
	}
}

// Get returns the memoized result for a fingerprint, if any.
func (c *Cache) Get(fingerprint string) (*models.ReviewResult, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	result, ok := c.entries[fingerprint]
	if ok {
		c.hits++
	} else {
		c.misses++
	}
	return result, ok
}

// Put stores a validated result. When the cache is full the whole map
// is cleared first; the insert always succeeds.
func (c *Cache) Put(fingerprint string, result *models.ReviewResult) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, exists := c.entries[fingerprint]; !exists && len(c.entries) >= c.maxEntries {
		c.entries = make(map[string]*models.ReviewResult)
	}
	c.entries[fingerprint] = result
}

// Len returns the current entry count.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

// Stats returns a snapshot of the hit/miss counters.
func (c *Cache) Stats() Stats {
	c.mu.Lock()
	defer c.mu.Unlock()
	return Stats{
		Entries: len(c.entries),
		Hits:    c.hits,
		Misses:  c.misses,
	}
}
