// Package cache holds short-lived copies of Rundeck listings
package cache

import (
	"time"

	gocache "github.com/patrickmn/go-cache"
)

// Cache defines the interface for typed caching operations
type Cache[V any] interface {
	Get(key string) (V, bool)
	Set(key string, value V)
	Delete(key string)
	Clear()
}

// TTLCache implements Cache over go-cache. A non-positive TTL disables it:
// Set is a no-op and Get always misses.
type TTLCache[V any] struct {
	data *gocache.Cache
	ttl  time.Duration
}

// New creates a cache whose entries live for ttl
func New[V any](ttl time.Duration) *TTLCache[V] {
	if ttl <= 0 {
		return &TTLCache[V]{data: gocache.New(gocache.NoExpiration, 0)}
	}
	return &TTLCache[V]{
		data: gocache.New(ttl, ttl*2),
		ttl:  ttl,
	}
}

// Get retrieves a value from the cache
func (c *TTLCache[V]) Get(key string) (V, bool) {
	var zero V
	cached, ok := c.data.Get(key)
	if !ok {
		return zero, false
	}
	value, ok := cached.(V)
	if !ok {
		return zero, false
	}
	return value, true
}

// Set stores a value for the cache TTL
func (c *TTLCache[V]) Set(key string, value V) {
	if c.ttl <= 0 {
		return
	}
	c.data.Set(key, value, gocache.DefaultExpiration)
}

// Delete removes a value from the cache
func (c *TTLCache[V]) Delete(key string) {
	c.data.Delete(key)
}

// Clear removes all values from the cache
func (c *TTLCache[V]) Clear() {
	c.data.Flush()
}
