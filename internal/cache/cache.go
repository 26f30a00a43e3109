// Package cache holds finished search results for a short TTL.
package cache

import (
	"sync"
	"time"

	"github.com/RobertM05/car-sniper/internal/model"
)

type entry struct {
	listings []model.CanonicalListing
	expires  time.Time
}

// ResultCache is a fingerprint-keyed TTL cache over finished result
// sets. Expired entries are dropped lazily on lookup; a Purge pass can
// reclaim entries that are never asked for again. Concurrent searches
// for the same query each run the pipeline; the last writer wins, which
// is harmless because both computed the same answer.
type ResultCache struct {
	mu      sync.RWMutex
	ttl     time.Duration
	entries map[string]entry
	now     func() time.Time
}

// New creates a ResultCache with the given TTL.
func New(ttl time.Duration) *ResultCache {
	return &ResultCache{
		ttl:     ttl,
		entries: make(map[string]entry),
		now:     time.Now,
	}
}

// Get returns the cached result set for a query, or false when absent
// or expired.
func (c *ResultCache) Get(q model.SearchQuery) ([]model.CanonicalListing, bool) {
	key := q.Fingerprint()

	c.mu.RLock()
	e, ok := c.entries[key]
	c.mu.RUnlock()
	if !ok {
		return nil, false
	}
	if c.now().After(e.expires) {
		c.mu.Lock()
		if cur, still := c.entries[key]; still && c.now().After(cur.expires) {
			delete(c.entries, key)
		}
		c.mu.Unlock()
		return nil, false
	}
	return e.listings, true
}

// Put stores a finished result set under the query fingerprint.
func (c *ResultCache) Put(q model.SearchQuery, listings []model.CanonicalListing) {
	if c.ttl <= 0 {
		return
	}
	c.mu.Lock()
	c.entries[q.Fingerprint()] = entry{listings: listings, expires: c.now().Add(c.ttl)}
	c.mu.Unlock()
}

// Purge drops all expired entries and returns how many were removed.
func (c *ResultCache) Purge() int {
	now := c.now()
	c.mu.Lock()
	defer c.mu.Unlock()
	removed := 0
	for k, e := range c.entries {
		if now.After(e.expires) {
			delete(c.entries, k)
			removed++
		}
	}
	return removed
}

// Len reports the number of entries, expired ones included.
func (c *ResultCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}
