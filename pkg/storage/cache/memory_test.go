package cache

import (
	"context"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sta4152/datahub/pkg/observability"
	"github.com/sta4152/datahub/pkg/storage"
)

func sampleRecord(name string) *storage.AspectRecord {
	return &storage.AspectRecord{
		Name:       name,
		SchemaName: "com.example." + name,
		Fields: []storage.FieldRecord{
			{Aspect: name, Path: "/urn", FieldName: "urn", SchemaType: "STRING"},
		},
	}
}

func TestMemoryCacheGetSet(t *testing.T) {
	ctx := context.Background()
	metrics := observability.NewMetrics(prometheus.NewRegistry())
	c := NewMemoryCache(10, time.Minute, metrics)

	_, err := c.Get(ctx, "ownership@abc")
	assert.ErrorIs(t, err, storage.ErrCacheMiss)

	require.NoError(t, c.Set(ctx, "ownership@abc", sampleRecord("ownership")))

	got, err := c.Get(ctx, "ownership@abc")
	require.NoError(t, err)
	assert.Equal(t, "ownership", got.Name)

	stats := c.Stats()
	assert.Equal(t, int64(1), stats.Hits)
	assert.Equal(t, int64(1), stats.Misses)
	assert.Equal(t, int64(1), stats.ItemCount)
	assert.InDelta(t, 0.5, stats.HitRate, 0.001)

	assert.Equal(t, float64(1), testutil.ToFloat64(metrics.CacheHitsTotal.WithLabelValues("memory")))
	assert.Equal(t, float64(1), testutil.ToFloat64(metrics.CacheMissesTotal.WithLabelValues("memory")))
}

func TestMemoryCacheRejectsNil(t *testing.T) {
	c := NewMemoryCache(0, 0, nil)
	assert.Error(t, c.Set(context.Background(), "k", nil))
}

func TestMemoryCacheEviction(t *testing.T) {
	ctx := context.Background()
	c := NewMemoryCache(2, time.Minute, nil)

	require.NoError(t, c.Set(ctx, "a", sampleRecord("a")))
	require.NoError(t, c.Set(ctx, "b", sampleRecord("b")))
	require.NoError(t, c.Set(ctx, "c", sampleRecord("c")))

	_, err := c.Get(ctx, "a")
	assert.ErrorIs(t, err, storage.ErrCacheMiss)
	_, err = c.Get(ctx, "c")
	assert.NoError(t, err)
}

func TestMemoryCachePurge(t *testing.T) {
	ctx := context.Background()
	c := NewMemoryCache(10, time.Minute, nil)
	require.NoError(t, c.Set(ctx, "a", sampleRecord("a")))

	require.NoError(t, c.Purge(ctx))
	assert.Equal(t, int64(0), c.Stats().ItemCount)
	assert.NoError(t, c.Close())
}

func TestTiered(t *testing.T) {
	ctx := context.Background()
	local := NewMemoryCache(10, time.Minute, nil)
	shared := NewMemoryCache(10, time.Minute, nil)
	tiered := NewTiered(local, shared)

	require.NoError(t, shared.Set(ctx, "a", sampleRecord("a")))

	got, err := tiered.Get(ctx, "a")
	require.NoError(t, err)
	assert.Equal(t, "a", got.Name)

	// filled from the shared tier
	_, err = local.Get(ctx, "a")
	assert.NoError(t, err)

	require.NoError(t, tiered.Set(ctx, "b", sampleRecord("b")))
	_, err = shared.Get(ctx, "b")
	assert.NoError(t, err)

	_, err = tiered.Get(ctx, "missing")
	assert.ErrorIs(t, err, storage.ErrCacheMiss)

	require.NoError(t, tiered.Purge(ctx))
	assert.Equal(t, int64(0), local.Stats().ItemCount)
	assert.Equal(t, int64(0), shared.Stats().ItemCount)
}
