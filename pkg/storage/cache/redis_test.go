package cache

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sta4152/datahub/pkg/storage"
)

func setupRedisCache(t *testing.T) (*RedisCache, *miniredis.Miniredis) {
	t.Helper()

	mr := miniredis.RunT(t)
	c, err := NewRedisCache(context.Background(), RedisConfig{
		URL: "redis://" + mr.Addr(),
		TTL: time.Minute,
	}, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = c.Close() })

	return c, mr
}

func TestNewRedisCacheInvalidURL(t *testing.T) {
	_, err := NewRedisCache(context.Background(), RedisConfig{URL: "not a url"}, nil)
	assert.Error(t, err)
}

func TestRedisCacheGetSet(t *testing.T) {
	ctx := context.Background()
	c, mr := setupRedisCache(t)

	_, err := c.Get(ctx, "ownership@abc")
	assert.ErrorIs(t, err, storage.ErrCacheMiss)

	require.NoError(t, c.Set(ctx, "ownership@abc", sampleRecord("ownership")))
	assert.True(t, mr.Exists(keyPrefix+"ownership@abc"))

	got, err := c.Get(ctx, "ownership@abc")
	require.NoError(t, err)
	assert.Equal(t, "ownership", got.Name)
	require.Len(t, got.Fields, 1)
	assert.Equal(t, "/urn", got.Fields[0].Path)

	assert.NoError(t, c.Ping(ctx))
}

func TestRedisCacheExpiry(t *testing.T) {
	ctx := context.Background()
	c, mr := setupRedisCache(t)

	require.NoError(t, c.Set(ctx, "a", sampleRecord("a")))
	mr.FastForward(2 * time.Minute)

	_, err := c.Get(ctx, "a")
	assert.ErrorIs(t, err, storage.ErrCacheMiss)
}

func TestRedisCacheCorruptEntry(t *testing.T) {
	ctx := context.Background()
	c, mr := setupRedisCache(t)

	require.NoError(t, mr.Set(keyPrefix+"a", "{not json"))

	_, err := c.Get(ctx, "a")
	assert.ErrorIs(t, err, storage.ErrCacheMiss)
}

func TestRedisCachePurgeKeepsForeignKeys(t *testing.T) {
	ctx := context.Background()
	c, mr := setupRedisCache(t)

	require.NoError(t, c.Set(ctx, "a", sampleRecord("a")))
	require.NoError(t, c.Set(ctx, "b", sampleRecord("b")))
	require.NoError(t, mr.Set("other:key", "v"))

	require.NoError(t, c.Purge(ctx))

	assert.False(t, mr.Exists(keyPrefix+"a"))
	assert.False(t, mr.Exists(keyPrefix+"b"))
	assert.True(t, mr.Exists("other:key"))
}
