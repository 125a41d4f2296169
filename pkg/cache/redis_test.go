package cache

import (
	"context"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestCache(t *testing.T) (*RedisCache, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	c, err := NewRedisCache(context.Background(),
		WithRedisClient(redis.NewClient(&redis.Options{Addr: mr.Addr()})),
		WithRedisPrefix("test"),
	)
	require.NoError(t, err)
	t.Cleanup(func() { _ = c.Close() })
	return c, mr
}

func TestRedisCache_SetGet(t *testing.T) {
	c, mr := newTestCache(t)
	ctx := context.Background()

	type payload struct {
		Counter int `json:"counter"`
	}
	require.NoError(t, c.Set(ctx, "state", payload{Counter: 3}, 0))
	assert.True(t, mr.Exists("test:state"))

	var got payload
	require.NoError(t, c.Get(ctx, "state", &got))
	assert.Equal(t, 3, got.Counter)

	var s string
	require.NoError(t, c.Set(ctx, "raw", "hello", 0))
	require.NoError(t, c.Get(ctx, "raw", &s))
	assert.Equal(t, "hello", s)

	assert.ErrorIs(t, c.Get(ctx, "missing", &s), ErrCacheMiss)

	require.NoError(t, c.Delete(ctx, "raw"))
	assert.False(t, mr.Exists("test:raw"))
}

func TestRedisCache_MGetAndIncrement(t *testing.T) {
	c, _ := newTestCache(t)
	ctx := context.Background()

	n, err := c.IncrementBy(ctx, "quota:news:used", 5)
	require.NoError(t, err)
	assert.Equal(t, int64(5), n)
	require.NoError(t, c.Set(ctx, "quota:news:max", "100", 0))

	got, err := c.MGet(ctx, "quota:news:used", "quota:news:max", "quota:news:other")
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"quota:news:used": "5", "quota:news:max": "100"}, got)

	typed, err := MGetTyped[int](ctx, c, "quota:news:used", "quota:news:max")
	require.NoError(t, err)
	assert.Equal(t, map[string]int{"quota:news:used": 5, "quota:news:max": 100}, typed)
}

func TestNewRedisCache_Unreachable(t *testing.T) {
	mr := miniredis.RunT(t)
	addr := mr.Addr()
	mr.Close()
	_, err := NewRedisCache(context.Background(), WithRedisAddr(addr))
	assert.Error(t, err)
}
