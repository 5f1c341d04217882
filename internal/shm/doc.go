// Package shm provides the fixed-capacity slot storage behind memdb tables.
//
// # Sharded slab
//
// Sharded keeps every row in one preallocated slab of capacity × width bytes.
// Keys are spread over 64 shards by maphash; each shard owns a map from key
// to slot index and a RWMutex. A slot is only read or written while the lock
// of the shard that owns its key is held, so per-key operations are atomic.
//
// Slot indexes are handed out by an allocator that bumps a high-water mark
// until capacity is reached and afterwards recycles freed slots, tracked in
// a Roaring bitmap. Inserting a new key when no slot is left fails with
// ErrCapacityExceeded; existing keys are never evicted.
//
// Range copies one shard at a time under its read lock and yields the copies
// after unlocking, so callbacks may mutate the storage. Concurrent writers
// may therefore be visible for some shards and not for others.
package shm
