// Package cache keeps recently resolved destinations in a ristretto cache.
package cache

import (
	"fmt"
	"sync"
	"time"

	"github.com/dgraph-io/ristretto"
)

type Cache struct {
	client *ristretto.Cache
	ttl    time.Duration

	// version counts invalidations. mu orders SetIfCurrent against Invalidate.
	mu      sync.Mutex
	version uint64
}

// New sizes the cache for maxItems destinations; every entry costs 1.
func New(maxItems int64, ttl time.Duration) (*Cache, error) {
	if maxItems <= 0 {
		return nil, fmt.Errorf("cache size must be positive, got %d", maxItems)
	}
	client, err := ristretto.NewCache(&ristretto.Config{
		NumCounters: maxItems * 10,
		MaxCost:     maxItems,
		BufferItems: 64,
	})
	if err != nil {
		return nil, fmt.Errorf("error creating cache: %w", err)
	}

	return &Cache{client: client, ttl: ttl}, nil
}

// Get is safe on a nil *Cache, which always misses.
func (c *Cache) Get(code string) (string, bool) {
	if c == nil {
		return "", false
	}
	v, ok := c.client.Get(code)
	if !ok {
		return "", false
	}
	dest, ok := v.(string)
	return dest, ok
}

// Version is the invalidation count. Read it before loading a value from the
// store and hand it to SetIfCurrent.
func (c *Cache) Version() uint64 {
	if c == nil {
		return 0
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.version
}

// SetIfCurrent stores destination unless some code was invalidated after
// version was read, so a lookup racing a delete cannot re-cache the link.
// Like any ristretto set it is asynchronous and the value may be dropped.
func (c *Cache) SetIfCurrent(code, destination string, version uint64) bool {
	if c == nil {
		return false
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.version != version {
		return false
	}
	return c.client.SetWithTTL(code, destination, 1, c.ttl)
}

func (c *Cache) Invalidate(code string) {
	if c == nil {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.version++
	c.client.Del(code)
}

// Wait blocks until pending sets are applied.
func (c *Cache) Wait() {
	if c == nil {
		return
	}
	c.client.Wait()
}

func (c *Cache) Close() {
	if c == nil {
		return
	}
	c.client.Close()
}
