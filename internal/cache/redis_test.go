// SPDX-License-Identifier: MIT

package cache

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ubsdigital/tvsaude/internal/config"
)

func redisTestCache(t *testing.T) (*RedisCache, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	c, err := NewRedisCache(config.RedisConfig{Addr: mr.Addr()})
	require.NoError(t, err)
	t.Cleanup(func() { c.Close() })
	return c, mr
}

func TestRedisCacheGetSet(t *testing.T) {
	c, _ := redisTestCache(t)
	ctx := context.Background()

	_, found := c.Get(ctx, "announcements")
	assert.False(t, found)

	c.Set(ctx, "announcements", []byte(`{"total":2}`), time.Minute)
	data, found := c.Get(ctx, "announcements")
	require.True(t, found)
	assert.Equal(t, `{"total":2}`, string(data))

	stats := c.Stats()
	assert.Equal(t, int64(1), stats.Hits)
	assert.Equal(t, int64(1), stats.Misses)
}

func TestRedisCacheTTL(t *testing.T) {
	c, mr := redisTestCache(t)
	ctx := context.Background()

	c.Set(ctx, "k", []byte("v"), 5*time.Second)
	mr.FastForward(10 * time.Second)

	_, found := c.Get(ctx, "k")
	assert.False(t, found)
}

func TestRedisCacheDelete(t *testing.T) {
	c, _ := redisTestCache(t)
	ctx := context.Background()

	c.Set(ctx, "k", []byte("v"), time.Minute)
	c.Delete(ctx, "k")
	_, found := c.Get(ctx, "k")
	assert.False(t, found)
}

func TestRedisCachePing(t *testing.T) {
	c, mr := redisTestCache(t)
	require.NoError(t, c.Ping(context.Background()))

	mr.Close()
	assert.Error(t, c.Ping(context.Background()))
}

func TestSelectFallsBackToMemory(t *testing.T) {
	// No address configured: memory backend.
	c := Select(config.RedisConfig{}, 0)
	_, isRedis := c.(*RedisCache)
	assert.False(t, isRedis)

	// Unreachable address: degrade to memory instead of failing startup.
	c = Select(config.RedisConfig{Addr: "127.0.0.1:1"}, 0)
	_, isRedis = c.(*RedisCache)
	assert.False(t, isRedis)
}

func TestSelectPicksRedisWhenReachable(t *testing.T) {
	mr := miniredis.RunT(t)
	c := Select(config.RedisConfig{Addr: mr.Addr()}, 0)
	rc, isRedis := c.(*RedisCache)
	require.True(t, isRedis)
	rc.Close()
}
