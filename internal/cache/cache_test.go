package cache

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCache(t *testing.T) {
	c, err := New(100, time.Minute)
	require.NoError(t, err)
	defer c.Close()

	_, ok := c.Get("abc")
	assert.False(t, ok)

	require.True(t, c.SetIfCurrent("abc", "https://example.com", c.Version()))
	c.Wait()

	dest, ok := c.Get("abc")
	assert.True(t, ok)
	assert.Equal(t, "https://example.com", dest)

	c.Invalidate("abc")
	_, ok = c.Get("abc")
	assert.False(t, ok)
}

func TestCache_SetIfCurrent(t *testing.T) {
	c, err := New(100, time.Minute)
	require.NoError(t, err)
	defer c.Close()

	stale := c.Version()
	c.Invalidate("abc")
	assert.False(t, c.SetIfCurrent("abc", "https://example.com/old", stale))
	c.Wait()
	_, ok := c.Get("abc")
	assert.False(t, ok, "a load started before the invalidation must not be cached")

	assert.True(t, c.SetIfCurrent("abc", "https://example.com/new", c.Version()))
	c.Wait()
	dest, ok := c.Get("abc")
	assert.True(t, ok)
	assert.Equal(t, "https://example.com/new", dest)
}

func TestCache_TTL(t *testing.T) {
	c, err := New(100, 50*time.Millisecond)
	require.NoError(t, err)
	defer c.Close()

	require.True(t, c.SetIfCurrent("abc", "https://example.com", c.Version()))
	c.Wait()

	assert.Eventually(t, func() bool {
		_, ok := c.Get("abc")
		return !ok
	}, 3*time.Second, 20*time.Millisecond)
}

func TestCache_Nil(t *testing.T) {
	var c *Cache
	c.Wait()
	c.Invalidate("abc")
	assert.Zero(t, c.Version())
	assert.False(t, c.SetIfCurrent("abc", "https://example.com", 0))
	_, ok := c.Get("abc")
	assert.False(t, ok)
	c.Close()
}

func TestNew_BadSize(t *testing.T) {
	_, err := New(0, time.Minute)
	assert.Error(t, err)
}
