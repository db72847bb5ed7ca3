package storage

import (
	"context"
	"errors"
)

var (
	// ErrCacheMiss is returned by SpecCache.Get when the key is absent or expired
	ErrCacheMiss = errors.New("cache miss")
	// ErrNotFound is returned when a store holds no snapshot
	ErrNotFound = errors.New("not found")
)

// SpecCache caches built aspect records between registry loads
type SpecCache interface {
	Get(ctx context.Context, key string) (*AspectRecord, error)
	Set(ctx context.Context, key string, record *AspectRecord) error
	Purge(ctx context.Context) error
	Close() error
}

// SpecStore persists registry snapshots
type SpecStore interface {
	// SaveSnapshot writes the snapshot with all of its aspects and fields
	SaveSnapshot(ctx context.Context, snapshot *SnapshotRecord) error
	// LoadLatest returns the most recently loaded snapshot, or ErrNotFound
	LoadLatest(ctx context.Context) (*SnapshotRecord, error)
	// SearchableFieldsByName returns the fields of the latest snapshot indexed
	// under any of names, in aspect then path order
	SearchableFieldsByName(ctx context.Context, names []string) ([]FieldRecord, error)
	Ping(ctx context.Context) error
	Close() error
}
