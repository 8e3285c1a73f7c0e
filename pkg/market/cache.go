package market

import (
	"fmt"
	"sync"
	"time"
)

const defaultRetrievalTTL = 5 * time.Minute

// RetrievalCache is the short-lived read-through cache in front of the
// orchestrator. Entries are keyed by every input that influences provider
// selection, so a request with fallback disabled never sees a series fetched
// with fallback enabled. Stored series are cloned on the way in and out;
// callers can never mutate a cached snapshot.
type RetrievalCache struct {
	ttl time.Duration

	mu      sync.RWMutex
	entries map[string]cacheEntry
}

type cacheEntry struct {
	series   *Series
	storedAt time.Time
}

// NewRetrievalCache builds a cache with the given TTL (defaulted when
// non-positive).
func NewRetrievalCache(ttl time.Duration) *RetrievalCache {
	if ttl <= 0 {
		ttl = defaultRetrievalTTL
	}
	return &RetrievalCache{
		ttl:     ttl,
		entries: make(map[string]cacheEntry),
	}
}

func cacheKey(req SeriesRequest, useFallback bool) string {
	return fmt.Sprintf("%s|%s|%d|%t", req.Symbol.String(), req.Timeframe, req.Lookback, useFallback)
}

// Get returns a copy of the cached series for the request, if fresh.
func (c *RetrievalCache) Get(req SeriesRequest, useFallback bool) (*Series, bool) {
	if c == nil {
		return nil, false
	}
	c.mu.RLock()
	entry, ok := c.entries[cacheKey(req, useFallback)]
	c.mu.RUnlock()
	if !ok || time.Since(entry.storedAt) > c.ttl {
		return nil, false
	}
	return entry.series.Clone(), true
}

// Put stores a copy of the series for the request key.
func (c *RetrievalCache) Put(req SeriesRequest, useFallback bool, series *Series) {
	if c == nil || series == nil {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[cacheKey(req, useFallback)] = cacheEntry{
		series:   series.Clone(),
		storedAt: time.Now(),
	}
}

// Purge drops expired entries. Called opportunistically by long-running
// ingest loops; correctness does not depend on it.
func (c *RetrievalCache) Purge() {
	if c == nil {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	for key, entry := range c.entries {
		if time.Since(entry.storedAt) > c.ttl {
			delete(c.entries, key)
		}
	}
}
