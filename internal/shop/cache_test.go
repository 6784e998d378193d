package shop

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestTTLCache(t *testing.T) {
	now := testNow
	c := NewTTLCache[[]string](30 * time.Second)
	c.now = func() time.Time { return now }

	_, ok := c.Get()
	assert.False(t, ok)

	c.Set([]string{"a"})
	v, ok := c.Get()
	assert.True(t, ok)
	assert.Equal(t, []string{"a"}, v)

	now = now.Add(31 * time.Second)
	_, ok = c.Get()
	assert.False(t, ok)

	c.Set([]string{"b"})
	c.Invalidate()
	_, ok = c.Get()
	assert.False(t, ok)

	hits, misses := c.Stats()
	assert.Equal(t, 1, hits)
	assert.Equal(t, 3, misses)
}

func TestTTLCacheDisabled(t *testing.T) {
	c := NewTTLCache[int](0)
	c.Set(5)
	_, ok := c.Get()
	assert.False(t, ok)
}
