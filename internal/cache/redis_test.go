package cache

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/require"

	"github.com/floworc/engine/internal/config"
)

func newTestCache(t *testing.T) *RedisCache {
	t.Helper()
	mr := miniredis.RunT(t)
	c, err := NewRedisCache(config.RedisConfig{URL: "redis://" + mr.Addr(), PoolSize: 5})
	require.NoError(t, err)
	t.Cleanup(func() { _ = c.Close() })
	return c
}

func TestRedisCache_SetGetDelete(t *testing.T) {
	c := newTestCache(t)
	ctx := context.Background()

	require.NoError(t, c.Set(ctx, "k1", "v1", 0))
	val, err := c.Get(ctx, "k1")
	require.NoError(t, err)
	require.Equal(t, "v1", val)

	n, err := c.Exists(ctx, "k1")
	require.NoError(t, err)
	require.Equal(t, int64(1), n)

	require.NoError(t, c.Delete(ctx, "k1"))
	n, err = c.Exists(ctx, "k1")
	require.NoError(t, err)
	require.Equal(t, int64(0), n)
}

func TestRedisCache_SetJSONGetJSON(t *testing.T) {
	c := newTestCache(t)
	ctx := context.Background()

	type payload struct {
		Name string `json:"name"`
	}
	require.NoError(t, c.SetJSON(ctx, "obj", payload{Name: "wf1"}, time.Minute))

	var out payload
	require.NoError(t, c.GetJSON(ctx, "obj", &out))
	require.Equal(t, "wf1", out.Name)
}

func TestRedisCache_IncrementDecrement(t *testing.T) {
	c := newTestCache(t)
	ctx := context.Background()

	n, err := c.Increment(ctx, "counter")
	require.NoError(t, err)
	require.Equal(t, int64(1), n)

	n, err = c.Increment(ctx, "counter")
	require.NoError(t, err)
	require.Equal(t, int64(2), n)

	n, err = c.Decrement(ctx, "counter")
	require.NoError(t, err)
	require.Equal(t, int64(1), n)
}

func TestRedisCache_ExpireSetsTTL(t *testing.T) {
	c := newTestCache(t)
	ctx := context.Background()
	require.NoError(t, c.Set(ctx, "k1", "v1", 0))
	require.NoError(t, c.Expire(ctx, "k1", time.Minute))

	ttl, err := c.Client().TTL(ctx, "k1").Result()
	require.NoError(t, err)
	require.Equal(t, time.Minute, ttl)
}

func TestRedisCache_HealthReportsUp(t *testing.T) {
	c := newTestCache(t)
	require.NoError(t, c.Health(context.Background()))
}

func TestRedisCache_PublishJSONSucceeds(t *testing.T) {
	c := newTestCache(t)
	require.NoError(t, c.PublishJSON(context.Background(), "events", map[string]any{"type": "test"}))
}
