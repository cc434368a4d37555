// Package cache provides the process-local result cache shared by the
// producer adapters, the orchestrator and the analysis service.
package cache

import (
	"context"
	"sync"
	"time"

	"tradelens/observability"
)

// Cache is the result cache contract. A miss is not an error; callers
// compute the value and Put it.
type Cache interface {
	Get(key Key) (any, bool)
	Put(key Key, value any, class TTLClass)
	// PutUntil stores value until expiresAt. Derived values use it to
	// expire no later than the inputs they were built from.
	PutUntil(key Key, value any, expiresAt time.Time)
	// Expiry reports when a live entry expires
	Expiry(key Key) (time.Time, bool)
}

type entry struct {
	value      any
	insertedAt time.Time
	expiresAt  time.Time
}

func (e entry) expired(now time.Time) bool {
	return !now.Before(e.expiresAt)
}

// MemoryCache is a thread-safe in-memory Cache with per-class TTLs.
// Expired entries are ignored on read and removed by Sweep.
type MemoryCache struct {
	mu         sync.RWMutex
	entries    map[string]entry
	ttls       TTLs
	maxEntries int
	now        func() time.Time
}

// Option configures a MemoryCache
type Option func(*MemoryCache)

// WithMaxEntries bounds the number of stored entries. 0 means unbounded.
func WithMaxEntries(n int) Option {
	return func(c *MemoryCache) {
		c.maxEntries = n
	}
}

// WithClock overrides the time source
func WithClock(now func() time.Time) Option {
	return func(c *MemoryCache) {
		c.now = now
	}
}

// NewMemoryCache creates a new MemoryCache with the given TTL table
func NewMemoryCache(ttls TTLs, opts ...Option) *MemoryCache {
	c := &MemoryCache{
		entries: make(map[string]entry),
		ttls:    ttls,
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Get returns the value for key if present and not expired.
// It never modifies the cache.
func (c *MemoryCache) Get(key Key) (any, bool) {
	c.mu.RLock()
	e, ok := c.entries[key.String()]
	c.mu.RUnlock()

	if !ok || e.expired(c.now()) {
		observability.GetMetrics().RecordCacheMiss(key.Kind())
		return nil, false
	}
	observability.GetMetrics().RecordCacheHit(key.Kind())
	return e.value, true
}

// Put stores value under key for the duration of its TTL class.
// Re-putting the same key replaces the entry and restarts its TTL.
func (c *MemoryCache) Put(key Key, value any, class TTLClass) {
	ttl := c.ttls.Duration(class)
	if ttl <= 0 {
		return
	}
	now := c.now()
	c.store(key, value, now, now.Add(ttl))
}

// PutUntil stores value under key until expiresAt. A deadline that has
// already passed stores nothing.
func (c *MemoryCache) PutUntil(key Key, value any, expiresAt time.Time) {
	now := c.now()
	if !now.Before(expiresAt) {
		return
	}
	c.store(key, value, now, expiresAt)
}

func (c *MemoryCache) store(key Key, value any, now, expiresAt time.Time) {
	k := key.String()
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, exists := c.entries[k]; !exists && c.maxEntries > 0 && len(c.entries) >= c.maxEntries {
		c.makeRoomLocked()
	}
	c.entries[k] = entry{value: value, insertedAt: now, expiresAt: expiresAt}
	observability.GetMetrics().SetCacheEntries(len(c.entries))
}

// Expiry returns when the entry for key expires. Missing and expired
// entries report false.
func (c *MemoryCache) Expiry(key Key) (time.Time, bool) {
	c.mu.RLock()
	e, ok := c.entries[key.String()]
	c.mu.RUnlock()

	if !ok || e.expired(c.now()) {
		return time.Time{}, false
	}
	return e.expiresAt, true
}

// makeRoomLocked drops expired entries, then the oldest entry if still full
func (c *MemoryCache) makeRoomLocked() {
	if removed := c.sweepLocked(); removed > 0 && len(c.entries) < c.maxEntries {
		return
	}

	var oldestKey string
	var oldest time.Time
	for k, e := range c.entries {
		if oldestKey == "" || e.insertedAt.Before(oldest) {
			oldestKey, oldest = k, e.insertedAt
		}
	}
	if oldestKey != "" {
		delete(c.entries, oldestKey)
		observability.GetMetrics().RecordCacheEviction("capacity", 1)
	}
}

// Invalidate removes a single key
func (c *MemoryCache) Invalidate(key Key) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.entries, key.String())
	observability.GetMetrics().SetCacheEntries(len(c.entries))
}

// Flush removes every entry
func (c *MemoryCache) Flush() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = make(map[string]entry)
	observability.GetMetrics().SetCacheEntries(0)
}

// Len returns the number of stored entries, expired or not
func (c *MemoryCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

// TTLs returns the cache's TTL table
func (c *MemoryCache) TTLs() TTLs {
	return c.ttls
}

// Sweep removes expired entries and returns how many were removed
func (c *MemoryCache) Sweep() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	removed := c.sweepLocked()
	observability.GetMetrics().SetCacheEntries(len(c.entries))
	return removed
}

func (c *MemoryCache) sweepLocked() int {
	now := c.now()
	removed := 0
	for k, e := range c.entries {
		if e.expired(now) {
			delete(c.entries, k)
			removed++
		}
	}
	if removed > 0 {
		observability.GetMetrics().RecordCacheEviction("expired", removed)
	}
	return removed
}

// StartSweeper runs Sweep every interval until ctx is cancelled.
// A non-positive interval disables the sweeper.
func (c *MemoryCache) StartSweeper(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		return
	}
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if n := c.Sweep(); n > 0 {
					observability.Debug("result cache sweep", "removed", n)
				}
			}
		}
	}()
}
