package shop

import (
	"sync"
	"time"
)

// TTLCache holds one loaded value for a short time. A zero or negative TTL
// disables caching.
type TTLCache[T any] struct {
	ttl time.Duration
	now func() time.Time

	mu       sync.Mutex
	value    T
	loadedAt time.Time
	valid    bool
	hits     int
	misses   int
}

func NewTTLCache[T any](ttl time.Duration) *TTLCache[T] {
	return &TTLCache[T]{ttl: ttl, now: time.Now}
}

func (c *TTLCache[T]) Get() (T, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.valid && c.ttl > 0 && c.now().Sub(c.loadedAt) < c.ttl {
		c.hits++
		return c.value, true
	}
	c.misses++
	var zero T
	return zero, false
}

func (c *TTLCache[T]) Set(value T) {
	if c.ttl <= 0 {
		return
	}
	c.mu.Lock()
	c.value = value
	c.loadedAt = c.now()
	c.valid = true
	c.mu.Unlock()
}

func (c *TTLCache[T]) Invalidate() {
	c.mu.Lock()
	var zero T
	c.value = zero
	c.valid = false
	c.mu.Unlock()
}

func (c *TTLCache[T]) Stats() (hits, misses int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.hits, c.misses
}
