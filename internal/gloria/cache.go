package gloria

import (
	"sync"
	"time"
)

// respCache caches upstream response bodies to prevent duplicate round-trips
// for slow-changing data (the category list). Keys are request paths plus
// encoded query. Thread-safe; expired entries are removed lazily on read.
type respCache struct {
	mu         sync.RWMutex
	items      map[string]cacheEntry
	ttl        time.Duration
	maxEntries int
	nextIdx    int64
}

type cacheEntry struct {
	body      []byte
	expiry    time.Time
	insertIdx int64
}

func newRespCache(ttl time.Duration, maxEntries int) *respCache {
	return &respCache{
		items:      make(map[string]cacheEntry),
		ttl:        ttl,
		maxEntries: maxEntries,
	}
}

// get returns a cached body if found and not expired.
func (c *respCache) get(key string) ([]byte, bool) {
	c.mu.RLock()
	e, ok := c.items[key]
	c.mu.RUnlock()

	if !ok {
		return nil, false
	}

	if time.Now().After(e.expiry) {
		c.mu.Lock()
		if e2, ok2 := c.items[key]; ok2 && time.Now().After(e2.expiry) {
			delete(c.items, key)
		}
		c.mu.Unlock()
		return nil, false
	}

	return e.body, true
}

// set stores a body. Evicts the oldest entry if at capacity.
func (c *respCache) set(key string, body []byte) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e := cacheEntry{
		body:      body,
		expiry:    time.Now().Add(c.ttl),
		insertIdx: c.nextIdx,
	}
	c.nextIdx++

	if _, exists := c.items[key]; exists {
		c.items[key] = e
		return
	}

	if len(c.items) >= c.maxEntries {
		c.evictOldest()
	}

	c.items[key] = e
}

// evictOldest removes the entry with the lowest insertIdx. Must be called with mu held.
func (c *respCache) evictOldest() {
	var oldestKey string
	var oldestIdx int64 = -1

	for key, e := range c.items {
		if oldestIdx == -1 || e.insertIdx < oldestIdx {
			oldestIdx = e.insertIdx
			oldestKey = key
		}
	}

	if oldestKey != "" {
		delete(c.items, oldestKey)
	}
}
