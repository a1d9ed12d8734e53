package services

import (
	"fmt"
	"sync"
	"time"

	"github.com/custodia-labs/recall-cli/internal/core/domain"
)

// Query cache defaults: small and short-lived. Invalidation is wholesale
// on any content change, so precision is not worth chasing.
const (
	defaultCacheSize = 100
	defaultCacheTTL  = 5 * time.Minute
)

// cacheEntry holds one cached result set.
type cacheEntry struct {
	results  []domain.SearchResult
	storedAt time.Time
}

// queryCache is a bounded, TTL-bounded cache of search results keyed by
// (query, limit).
type queryCache struct {
	mu      sync.Mutex
	entries map[string]cacheEntry
	size    int
	ttl     time.Duration
	now     func() time.Time
}

func newQueryCache(size int, ttl time.Duration) *queryCache {
	if size <= 0 {
		size = defaultCacheSize
	}
	if ttl <= 0 {
		ttl = defaultCacheTTL
	}
	return &queryCache{
		entries: make(map[string]cacheEntry),
		size:    size,
		ttl:     ttl,
		now:     time.Now,
	}
}

func cacheKey(query string, limit int) string {
	return fmt.Sprintf("%d|%s", limit, query)
}

// get returns the cached results for a key, or false if absent or expired.
func (c *queryCache) get(query string, limit int) ([]domain.SearchResult, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	key := cacheKey(query, limit)
	entry, ok := c.entries[key]
	if !ok {
		return nil, false
	}
	if c.now().Sub(entry.storedAt) > c.ttl {
		delete(c.entries, key)
		return nil, false
	}

	out := make([]domain.SearchResult, len(entry.results))
	copy(out, entry.results)
	return out, true
}

// put stores results for a key, evicting expired entries first and then
// the oldest entry if the cache is still full.
func (c *queryCache) put(query string, limit int, results []domain.SearchResult) {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	for key, entry := range c.entries {
		if now.Sub(entry.storedAt) > c.ttl {
			delete(c.entries, key)
		}
	}

	if len(c.entries) >= c.size {
		var oldestKey string
		var oldestAt time.Time
		for key, entry := range c.entries {
			if oldestKey == "" || entry.storedAt.Before(oldestAt) {
				oldestKey = key
				oldestAt = entry.storedAt
			}
		}
		delete(c.entries, oldestKey)
	}

	stored := make([]domain.SearchResult, len(results))
	copy(stored, results)
	c.entries[cacheKey(query, limit)] = cacheEntry{results: stored, storedAt: now}
}

// invalidateAll clears the cache. Called after any indexing pass that
// changed content: new content may affect any cached query.
func (c *queryCache) invalidateAll() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = make(map[string]cacheEntry)
}

// len returns the number of cached result sets.
func (c *queryCache) len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}
