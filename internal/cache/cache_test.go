package cache

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newMemory(t *testing.T) Cache {
	t.Helper()
	c := NewMemoryCache(DefaultConfig(), zap.NewNop())
	t.Cleanup(func() { c.Close() })
	return c
}

func TestMemoryCacheSetGet(t *testing.T) {
	c := newMemory(t)
	ctx := context.Background()

	require.NoError(t, c.Set(ctx, "key", "value", time.Minute))

	got, found := c.Get(ctx, "key")
	require.True(t, found)
	assert.Equal(t, "value", got)

	_, found = c.Get(ctx, "missing")
	assert.False(t, found)
}

func TestMemoryCacheExpiry(t *testing.T) {
	c := newMemory(t)
	ctx := context.Background()

	require.NoError(t, c.Set(ctx, "short", "value", -time.Second))

	_, found := c.Get(ctx, "short")
	assert.False(t, found)
	assert.False(t, c.Exists(ctx, "short"))
}

func TestMemoryCacheDelete(t *testing.T) {
	c := newMemory(t)
	ctx := context.Background()

	require.NoError(t, c.Set(ctx, "key", "value", time.Minute))
	require.NoError(t, c.Delete(ctx, "key"))
	assert.False(t, c.Exists(ctx, "key"))

	// Deleting an absent key is not an error
	assert.NoError(t, c.Delete(ctx, "key"))
}

func TestMemoryCacheDeletePattern(t *testing.T) {
	c := newMemory(t)
	ctx := context.Background()

	require.NoError(t, c.Set(ctx, "application:user:1", 1, time.Minute))
	require.NoError(t, c.Set(ctx, "application:user:2", 2, time.Minute))
	require.NoError(t, c.Set(ctx, "session:abc", 3, time.Minute))

	require.NoError(t, c.DeletePattern(ctx, "application:*"))

	assert.False(t, c.Exists(ctx, "application:user:1"))
	assert.False(t, c.Exists(ctx, "application:user:2"))
	assert.True(t, c.Exists(ctx, "session:abc"))
}

func TestMemoryCacheIncrement(t *testing.T) {
	c := newMemory(t)
	ctx := context.Background()

	n, err := c.Increment(ctx, "counter", 1)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	n, err = c.Increment(ctx, "counter", 2)
	require.NoError(t, err)
	assert.Equal(t, int64(3), n)

	require.NoError(t, c.Set(ctx, "text", "not a number", time.Minute))
	_, err = c.Increment(ctx, "text", 1)
	assert.Error(t, err)
}

func TestMemoryCacheEviction(t *testing.T) {
	cfg := DefaultConfig()
	cfg.MaxKeys = 2
	c := NewMemoryCache(cfg, zap.NewNop())
	t.Cleanup(func() { c.Close() })
	ctx := context.Background()

	require.NoError(t, c.Set(ctx, "a", 1, time.Minute))
	time.Sleep(time.Millisecond)
	require.NoError(t, c.Set(ctx, "b", 2, time.Minute))
	time.Sleep(time.Millisecond)

	// Touch "a" so "b" becomes the least recently used
	_, found := c.Get(ctx, "a")
	require.True(t, found)
	time.Sleep(time.Millisecond)

	require.NoError(t, c.Set(ctx, "c", 3, time.Minute))

	assert.True(t, c.Exists(ctx, "a"))
	assert.False(t, c.Exists(ctx, "b"))
	assert.True(t, c.Exists(ctx, "c"))
}

func TestMemoryCacheStats(t *testing.T) {
	c := newMemory(t)
	ctx := context.Background()

	require.NoError(t, c.Set(ctx, "key", "value", time.Minute))
	c.Get(ctx, "key")
	c.Get(ctx, "missing")

	stats, err := c.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), stats.Hits)
	assert.Equal(t, int64(1), stats.Misses)
	assert.Equal(t, int64(1), stats.Sets)
	assert.InDelta(t, 0.5, stats.HitRatio, 0.001)
}

func TestMemoryCacheClear(t *testing.T) {
	c := newMemory(t)
	ctx := context.Background()

	require.NoError(t, c.Set(ctx, "a", 1, time.Minute))
	require.NoError(t, c.Set(ctx, "b", 2, time.Minute))
	require.NoError(t, c.Clear(ctx))

	assert.False(t, c.Exists(ctx, "a"))
	assert.False(t, c.Exists(ctx, "b"))
}

func TestMemoryCacheHealth(t *testing.T) {
	c := newMemory(t)
	assert.NoError(t, c.Health(context.Background()))
}

func TestNewSelectsMemoryProvider(t *testing.T) {
	c, err := New(&Config{}, zap.NewNop())
	require.NoError(t, err)
	t.Cleanup(func() { c.Close() })
	assert.NoError(t, c.Health(context.Background()))
}
