// Package storage defines the persistence and caching contracts of the entity
// registry.
//
// A SnapshotRecord is the flattened, serializable form of one registry load:
// every aspect with its searchable fields in extraction order. SpecStore
// implementations live in storage/sqlstore and SpecCache implementations in
// storage/cache.
package storage
