package api

import (
	"sync"
	"time"
)

// HealthCache provides TTL-based caching for the database health check
// so frequent probes of /api/health do not ping the pool every time.
type HealthCache struct {
	mu        sync.RWMutex
	healthy   bool
	checkedAt time.Time
	ttl       time.Duration
	now       func() time.Time
}

// NewHealthCache creates a new HealthCache with the specified TTL.
// A TTL of 0 effectively disables caching.
func NewHealthCache(ttl time.Duration) *HealthCache {
	return &HealthCache{
		ttl: ttl,
		now: time.Now,
	}
}

// Get returns the cached health status and whether the cache is valid.
func (c *HealthCache) Get() (healthy bool, valid bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	valid = !c.checkedAt.IsZero() && c.now().Sub(c.checkedAt) < c.ttl
	return c.healthy, valid
}

// Set updates the cached health status.
func (c *HealthCache) Set(healthy bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.healthy = healthy
	c.checkedAt = c.now()
}

// Invalidate clears the cache, forcing the next check to ping the database.
func (c *HealthCache) Invalidate() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.checkedAt = time.Time{}
}

// DefaultHealthCacheTTL is the default TTL for database health caching.
const DefaultHealthCacheTTL = 10 * time.Second
