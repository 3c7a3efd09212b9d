package delivery

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupTestRedis(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)

	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	return mr, client
}

func TestCacheKey(t *testing.T) {
	assert.Equal(t, "geo:postal:in:560001", cacheKey("in", "560001"))
}

func TestRedisCacheRoundTripAndExpiry(t *testing.T) {
	mr, client := setupTestRedis(t)
	cache := NewRedisCache(client)
	ctx := context.Background()

	_, ok, err := cache.Get(ctx, "geo:postal:in:560001")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, cache.Set(ctx, "geo:postal:in:560001", Coordinates{Lat: 12.97, Lng: 77.59}, time.Hour))

	got, ok, err := cache.Get(ctx, "geo:postal:in:560001")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, Coordinates{Lat: 12.97, Lng: 77.59}, got)

	mr.FastForward(time.Hour + time.Second)
	_, ok, err = cache.Get(ctx, "geo:postal:in:560001")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestRedisCacheReportsConnectionErrors(t *testing.T) {
	mr, client := setupTestRedis(t)
	cache := NewRedisCache(client)
	mr.Close()

	_, ok, err := cache.Get(context.Background(), "geo:postal:in:560001")
	assert.Error(t, err)
	assert.False(t, ok)
}

func TestMemoryCacheExpiry(t *testing.T) {
	cache := NewMemoryCache()
	now := time.Date(2026, 1, 9, 10, 0, 0, 0, time.UTC)
	cache.now = func() time.Time { return now }
	ctx := context.Background()

	require.NoError(t, cache.Set(ctx, "k", Coordinates{NotFound: true}, time.Minute))

	got, ok, _ := cache.Get(ctx, "k")
	require.True(t, ok)
	assert.True(t, got.NotFound)

	now = now.Add(time.Minute)
	_, ok, _ = cache.Get(ctx, "k")
	assert.False(t, ok)
	assert.Equal(t, 0, cache.Len())
}
