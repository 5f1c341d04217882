package shm

import "errors"

// ErrCapacityExceeded is returned when a new key is inserted into a full storage.
var ErrCapacityExceeded = errors.New("capacity exceeded")

// Storage is a concurrent, capacity-bounded mapping from key to a fixed-width slot.
//
// Slot slices passed to callbacks are only valid for the duration of the
// callback. Implementations must be safe for concurrent use.
type Storage interface {
	// Width returns the slot size in bytes.
	Width() int
	// Capacity returns the maximum number of keys.
	Capacity() int
	// Len returns the number of stored keys.
	Len() int
	// View calls fn with the key's slot under a read lock. It reports whether the key exists.
	View(key string, fn func(slot []byte)) bool
	// Update calls fn with the key's slot under a write lock. It reports whether the key exists.
	Update(key string, fn func(slot []byte) error) (bool, error)
	// Upsert calls fn with the key's slot under a write lock, allocating a zeroed
	// slot for new keys. A new key is only stored if fn returns nil.
	Upsert(key string, fn func(slot []byte, exists bool) error) error
	// Delete removes the key and reports whether it existed.
	Delete(key string) bool
	// Exists reports whether the key is stored.
	Exists(key string) bool
	// Range calls fn for every key with a copy of its slot until fn returns false.
	Range(fn func(key string, slot []byte) bool)
	// Clear removes every key.
	Clear()
}
