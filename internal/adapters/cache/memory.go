package cache

import (
	"fmt"
	"sync"
	"time"
)

// MemoryCache is an in-memory cache with TTL support.
type MemoryCache[V any] struct {
	entries sync.Map
	ttl     time.Duration
	now     func() time.Time
	stop    chan struct{}
	once    sync.Once
}

// cacheEntry holds a cached value with expiration metadata.
type cacheEntry[V any] struct {
	value     V
	expiresAt time.Time
}

// NewMemoryCache creates a new in-memory cache with the specified TTL.
// Close stops its cleanup loop.
func NewMemoryCache[V any](ttl time.Duration) *MemoryCache[V] {
	c := &MemoryCache[V]{ttl: ttl, now: time.Now, stop: make(chan struct{})}
	go c.cleanup(time.Minute)
	return c
}

// NormalizedKey returns the cache key for a tweet: /{screen_name}/status/{id}
func NormalizedKey(screenName, tweetID string) string {
	return fmt.Sprintf("/%s/status/%s", screenName, tweetID)
}

// Get returns the value and true if found and not expired.
func (c *MemoryCache[V]) Get(key string) (V, bool) {
	var zero V
	value, ok := c.entries.Load(key)
	if !ok {
		return zero, false
	}

	entry := value.(*cacheEntry[V])
	if c.now().After(entry.expiresAt) {
		c.entries.Delete(key)
		return zero, false
	}

	return entry.value, true
}

// Set stores a value with the configured TTL.
func (c *MemoryCache[V]) Set(key string, value V) {
	c.entries.Store(key, &cacheEntry[V]{
		value:     value,
		expiresAt: c.now().Add(c.ttl),
	})
}

// Delete drops a key.
func (c *MemoryCache[V]) Delete(key string) {
	c.entries.Delete(key)
}

// Close stops the cleanup loop.
func (c *MemoryCache[V]) Close() {
	c.once.Do(func() { close(c.stop) })
}

// cleanup periodically removes expired entries from the cache.
func (c *MemoryCache[V]) cleanup(every time.Duration) {
	ticker := time.NewTicker(every)
	defer ticker.Stop()
	for {
		select {
		case <-c.stop:
			return
		case <-ticker.C:
			c.sweep()
		}
	}
}

func (c *MemoryCache[V]) sweep() {
	now := c.now()
	c.entries.Range(func(key, value any) bool {
		if now.After(value.(*cacheEntry[V]).expiresAt) {
			c.entries.Delete(key)
		}
		return true
	})
}
