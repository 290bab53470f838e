package poli

import (
	"context"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRedisContactCacheRoundTrip(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	cache := NewRedisContactCache(client, time.Hour)
	ctx := context.Background()

	_, ok, err := cache.Lookup(ctx, "5511988887777")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, cache.Remember(ctx, "5511988887777", "ctc_1"))

	id, ok, err := cache.Lookup(ctx, "5511988887777")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "ctc_1", id)
	assert.Equal(t, time.Hour, mr.TTL("poli:contact:5511988887777"))
}

func TestRedisContactCacheExpires(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	cache := NewRedisContactCache(client, time.Minute)
	ctx := context.Background()

	require.NoError(t, cache.Remember(ctx, "5511", "ctc_1"))
	mr.FastForward(2 * time.Minute)

	_, ok, err := cache.Lookup(ctx, "5511")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestRedisContactCacheErrors(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	cache := NewRedisContactCache(client, 0)
	ctx := context.Background()

	assert.Equal(t, 24*time.Hour, cache.ttl)
	_, _, err := cache.Lookup(ctx, " ")
	assert.Error(t, err)
	assert.Error(t, cache.Remember(ctx, "5511", ""))

	mr.Close()
	_, _, err = cache.Lookup(ctx, "5511")
	assert.Error(t, err)
}

func TestNilContactCacheIsNoop(t *testing.T) {
	cache := NewRedisContactCache(nil, time.Hour)
	assert.Nil(t, cache)

	_, ok, err := cache.Lookup(context.Background(), "5511")
	assert.NoError(t, err)
	assert.False(t, ok)
	assert.NoError(t, cache.Remember(context.Background(), "5511", "ctc"))
}
