package cache_test

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/warp/payroll-engine/cache"
)

type clock struct{ now time.Time }

func (c *clock) Now() time.Time          { return c.now }
func (c *clock) Advance(d time.Duration) { c.now = c.now.Add(d) }

func newCache(ttl time.Duration) (*cache.Cache[string, int], *clock) {
	clk := &clock{now: time.Date(2024, time.March, 1, 0, 0, 0, 0, time.UTC)}
	c := cache.New[string, int](ttl)
	c.Now = clk.Now
	return c, clk
}

func TestCache_GetSetExpire(t *testing.T) {
	// GIVEN: a one-minute cache
	c, clk := newCache(time.Minute)
	c.Set("a", 1)

	// THEN: fresh entry is served
	v, ok := c.Get("a")
	require.True(t, ok)
	assert.Equal(t, 1, v)

	// WHEN: the TTL elapses
	clk.Advance(time.Minute)

	// THEN: the entry is gone and dropped from the map
	_, ok = c.Get("a")
	assert.False(t, ok)
	assert.Equal(t, 0, c.Len())
}

func TestCache_NoTTL(t *testing.T) {
	c, clk := newCache(0)
	c.Set("a", 1)
	clk.Advance(24 * 365 * time.Hour)

	_, ok := c.Get("a")
	assert.True(t, ok)
	assert.Equal(t, 0, c.Purge())
}

func TestCache_Invalidate(t *testing.T) {
	c, _ := newCache(time.Hour)
	c.Set("results:2024-03-01", 1)
	c.Set("results:2024-04-01", 2)
	c.Set("periods:10", 3)

	c.Invalidate("periods:10")
	_, ok := c.Get("periods:10")
	assert.False(t, ok)

	assert.Equal(t, 2, cache.InvalidatePrefix(c, "results:"))
	assert.Equal(t, 0, c.Len())

	c.Set("x", 1)
	c.Clear()
	assert.Equal(t, 0, c.Len())
}

func TestCache_Purge(t *testing.T) {
	c, clk := newCache(time.Minute)
	c.Set("old", 1)
	clk.Advance(30 * time.Second)
	c.Set("new", 2)
	clk.Advance(45 * time.Second)

	assert.Equal(t, 1, c.Purge())
	_, ok := c.Get("new")
	assert.True(t, ok)
}

func TestCache_GetOrLoad(t *testing.T) {
	c, _ := newCache(time.Minute)
	calls := 0
	load := func() (int, error) { calls++; return 42, nil }

	v, err := c.GetOrLoad("k", load)
	require.NoError(t, err)
	assert.Equal(t, 42, v)
	_, _ = c.GetOrLoad("k", load)
	assert.Equal(t, 1, calls)

	boom := errors.New("boom")
	_, err = c.GetOrLoad("bad", func() (int, error) { return 0, boom })
	assert.ErrorIs(t, err, boom)
	_, ok := c.Get("bad")
	assert.False(t, ok, "errors are not cached")
}
