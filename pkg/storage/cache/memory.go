// Package cache implements storage.SpecCache in memory and on Redis.
package cache

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	lru "github.com/hashicorp/golang-lru/v2/expirable"

	"github.com/sta4152/datahub/pkg/observability"
	"github.com/sta4152/datahub/pkg/storage"
)

const (
	DefaultMaxEntries = 1024
	DefaultTTL        = time.Hour
)

// Stats holds cache statistics
type Stats struct {
	Hits      int64   `json:"hits"`
	Misses    int64   `json:"misses"`
	ItemCount int64   `json:"itemCount"`
	HitRate   float64 `json:"hitRate"`
}

// MemoryCache is an in-process LRU cache with per-entry expiry
type MemoryCache struct {
	cache   *lru.LRU[string, *storage.AspectRecord]
	metrics *observability.Metrics
	hits    atomic.Int64
	misses  atomic.Int64
}

// NewMemoryCache creates a cache holding at most maxEntries records for ttl
func NewMemoryCache(maxEntries int, ttl time.Duration, metrics *observability.Metrics) *MemoryCache {
	if maxEntries <= 0 {
		maxEntries = DefaultMaxEntries
	}
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &MemoryCache{
		cache:   lru.NewLRU[string, *storage.AspectRecord](maxEntries, nil, ttl),
		metrics: metrics,
	}
}

// Get returns the record stored under key, or storage.ErrCacheMiss
func (c *MemoryCache) Get(ctx context.Context, key string) (*storage.AspectRecord, error) {
	record, ok := c.cache.Get(key)
	if !ok {
		c.misses.Add(1)
		recordMiss(c.metrics, "memory")
		return nil, storage.ErrCacheMiss
	}
	c.hits.Add(1)
	recordHit(c.metrics, "memory")
	return record, nil
}

// Set stores record under key
func (c *MemoryCache) Set(ctx context.Context, key string, record *storage.AspectRecord) error {
	if record == nil {
		return fmt.Errorf("record cannot be nil")
	}
	c.cache.Add(key, record)
	return nil
}

// Purge removes every entry
func (c *MemoryCache) Purge(ctx context.Context) error {
	c.cache.Purge()
	return nil
}

// Stats returns cache statistics
func (c *MemoryCache) Stats() Stats {
	stats := Stats{
		Hits:      c.hits.Load(),
		Misses:    c.misses.Load(),
		ItemCount: int64(c.cache.Len()),
	}
	if total := stats.Hits + stats.Misses; total > 0 {
		stats.HitRate = float64(stats.Hits) / float64(total)
	}
	return stats
}

// Close releases resources
func (c *MemoryCache) Close() error {
	c.cache.Purge()
	return nil
}

func recordHit(m *observability.Metrics, cacheType string) {
	if m != nil {
		m.CacheHitsTotal.WithLabelValues(cacheType).Inc()
	}
}

func recordMiss(m *observability.Metrics, cacheType string) {
	if m != nil {
		m.CacheMissesTotal.WithLabelValues(cacheType).Inc()
	}
}
