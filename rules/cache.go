package rules

import (
	"sync"
	"time"
)

// CatalogCache holds the most recently listed catalog so callers that
// evaluate repeatedly can skip the store. Thread-safe.
type CatalogCache struct {
	catalog  []*Rule
	cachedAt time.Time
	ttl      time.Duration
	valid    bool
	gen      uint64 // bumped by Invalidate
	now      func() time.Time
	mu       sync.RWMutex
}

// NewCatalogCache creates an empty cache. A ttl of 0 disables expiry, leaving
// Invalidate as the only way to drop the cached catalog.
func NewCatalogCache(ttl time.Duration) *CatalogCache {
	return &CatalogCache{
		ttl: ttl,
		now: time.Now,
	}
}

// Get returns a copy of the cached catalog, or nil on a miss or after expiry
func (c *CatalogCache) Get() []*Rule {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if !c.fresh() {
		return nil
	}

	out := make([]*Rule, len(c.catalog))
	copy(out, c.catalog)
	return out
}

// Set stores a copy of catalog
func (c *CatalogCache) Set(catalog []*Rule) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.catalog = make([]*Rule, len(catalog))
	copy(c.catalog, catalog)
	c.cachedAt = c.now()
	c.valid = true
}

// Invalidate clears the cache, forcing a reload on the next Load
func (c *CatalogCache) Invalidate() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.valid = false
	c.catalog = nil
	c.gen++
}

// Load returns the cached catalog, listing and caching it from store on a miss.
// A listing that overlaps an Invalidate is returned but not cached, so a
// change made while it ran is picked up by the next Load.
func (c *CatalogCache) Load(store RuleStore) ([]*Rule, error) {
	if catalog := c.Get(); catalog != nil {
		return catalog, nil
	}

	c.mu.RLock()
	gen := c.gen
	c.mu.RUnlock()

	catalog, err := store.List()
	if err != nil {
		return nil, err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.gen == gen {
		c.catalog = make([]*Rule, len(catalog))
		copy(c.catalog, catalog)
		c.cachedAt = c.now()
		c.valid = true
	}
	return catalog, nil
}

// fresh must be called with mu held
func (c *CatalogCache) fresh() bool {
	if !c.valid {
		return false
	}
	if c.ttl > 0 && c.now().Sub(c.cachedAt) > c.ttl {
		return false
	}
	return true
}
