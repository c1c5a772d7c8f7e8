// Package cache implements the TTL-bounded mapping from request path to
// pre-framed response bytes described in spec.md §4.2: many concurrent
// readers, a single exclusive writer, lazy eviction, no size bound.
package cache

import (
	"sync"
	"time"
)

// DefaultTTL is used when a Cache is constructed with a non-positive TTL.
const DefaultTTL = 30 * time.Second

// entry is one cached, fully framed response together with its insertion
// time.
type entry struct {
	bytes     []byte
	insertedAt time.Time
}

// Cache is a concurrent path -> framed-response-bytes map with TTL expiry.
// It stores wire-ready bytes, not raw file contents, so a hit skips the
// codec entirely, per spec.md §4.2.
type Cache struct {
	mu      sync.RWMutex
	entries map[string]entry
	ttl     time.Duration
	enabled bool
}

// New returns a Cache with the given TTL. enabled gates Get/Put at the
// call site's discretion — spec.md permits either a process-wide or a
// per-instance cache, as long as a single instance's TTL and enabled flags
// are respected; this type supports both uses.
func New(ttl time.Duration, enabled bool) *Cache {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Cache{
		entries: make(map[string]entry),
		ttl:     ttl,
		enabled: enabled,
	}
}

// Enabled reports whether this cache instance is active.
func (c *Cache) Enabled() bool {
	return c.enabled
}

// Get returns the cached bytes for path if present and still fresh. A miss
// (absent or expired) returns ok=false; an expired entry is opportunistically
// evicted before returning.
func (c *Cache) Get(path string) (data []byte, ok bool) {
	c.mu.RLock()
	e, found := c.entries[path]
	c.mu.RUnlock()

	if !found {
		return nil, false
	}
	if time.Since(e.insertedAt) >= c.ttl {
		c.evict(path, e.insertedAt)
		return nil, false
	}
	return e.bytes, true
}

// evict removes path's entry under an exclusive lock, but only if the
// entry present at eviction time is still the stale one we observed — a
// concurrent Put may have refreshed it in the meantime.
func (c *Cache) evict(path string, staleInsertedAt time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if e, ok := c.entries[path]; ok && e.insertedAt.Equal(staleInsertedAt) {
		delete(c.entries, path)
	}
}

// Put installs or overwrites the cached bytes for path with the current
// timestamp.
func (c *Cache) Put(path string, data []byte) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[path] = entry{bytes: data, insertedAt: time.Now()}
}

// Len returns the number of entries currently resident, stale or not —
// intended for diagnostics/tests, not for enforcing any size bound (the
// cache has none, per spec.md §4.2).
func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}
