package cache

import (
	"context"
	"errors"

	"github.com/sta4152/datahub/pkg/storage"
)

// Tiered checks a local cache before a shared one and fills the local cache
// on shared hits.
type Tiered struct {
	local  storage.SpecCache
	shared storage.SpecCache
}

// NewTiered layers local in front of shared
func NewTiered(local, shared storage.SpecCache) *Tiered {
	return &Tiered{local: local, shared: shared}
}

// Get returns the record from the first tier that holds it
func (t *Tiered) Get(ctx context.Context, key string) (*storage.AspectRecord, error) {
	record, err := t.local.Get(ctx, key)
	if err == nil {
		return record, nil
	}
	if !errors.Is(err, storage.ErrCacheMiss) {
		return nil, err
	}

	record, err = t.shared.Get(ctx, key)
	if err != nil {
		return nil, err
	}
	_ = t.local.Set(ctx, key, record)
	return record, nil
}

// Set writes record to both tiers
func (t *Tiered) Set(ctx context.Context, key string, record *storage.AspectRecord) error {
	if err := t.local.Set(ctx, key, record); err != nil {
		return err
	}
	return t.shared.Set(ctx, key, record)
}

// Purge clears both tiers
func (t *Tiered) Purge(ctx context.Context) error {
	return errors.Join(t.local.Purge(ctx), t.shared.Purge(ctx))
}

// Close closes both tiers
func (t *Tiered) Close() error {
	return errors.Join(t.local.Close(), t.shared.Close())
}
