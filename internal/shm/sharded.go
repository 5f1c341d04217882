package shm

import (
	"fmt"
	"hash/maphash"
	"math"
	"sync"
	"sync/atomic"

	"golang.org/x/sys/cpu"
)

const numShards = 64

type shard struct {
	mu    sync.RWMutex
	slots map[string]uint32
	_     cpu.CacheLinePad
}

// Sharded is a Storage backed by a single preallocated slab.
// It spreads keys across 64 shards to reduce lock contention.
type Sharded struct {
	width    int
	capacity int
	slab     []byte
	alloc    *allocator
	count    atomic.Int64
	seed     maphash.Seed
	shards   [numShards]shard
}

// NewSharded allocates a storage for capacity slots of width bytes each.
func NewSharded(capacity, width int) (*Sharded, error) {
	if capacity <= 0 || uint64(capacity) > math.MaxUint32 {
		return nil, fmt.Errorf("shm: invalid capacity %d", capacity)
	}
	if width <= 0 {
		return nil, fmt.Errorf("shm: invalid slot width %d", width)
	}
	if uint64(capacity)*uint64(width) > math.MaxInt {
		return nil, fmt.Errorf("shm: slab of %d×%d bytes is too large", capacity, width)
	}

	s := &Sharded{
		width:    width,
		capacity: capacity,
		slab:     make([]byte, capacity*width),
		alloc:    newAllocator(uint32(capacity)),
		seed:     maphash.MakeSeed(),
	}

	for i := range numShards {
		s.shards[i].slots = make(map[string]uint32)
	}

	return s, nil
}

// shard returns the shard owning key.
func (s *Sharded) shard(key string) *shard {
	return &s.shards[maphash.String(s.seed, key)%numShards]
}

func (s *Sharded) slot(id uint32) []byte {
	off := int(id) * s.width
	return s.slab[off : off+s.width : off+s.width]
}

// Width returns the slot size in bytes.
func (s *Sharded) Width() int { return s.width }

// Capacity returns the maximum number of keys.
func (s *Sharded) Capacity() int { return s.capacity }

// Len returns the number of stored keys.
func (s *Sharded) Len() int { return int(s.count.Load()) }

// SizeBytes returns the size of the slab.
func (s *Sharded) SizeBytes() int64 { return int64(len(s.slab)) }

// View calls fn with the key's slot under the shard's read lock.
func (s *Sharded) View(key string, fn func(slot []byte)) bool {
	sh := s.shard(key)
	sh.mu.RLock()
	defer sh.mu.RUnlock()

	id, ok := sh.slots[key]
	if !ok {
		return false
	}
	fn(s.slot(id))
	return true
}

// Update calls fn with the key's slot under the shard's write lock.
func (s *Sharded) Update(key string, fn func(slot []byte) error) (bool, error) {
	sh := s.shard(key)
	sh.mu.Lock()
	defer sh.mu.Unlock()

	id, ok := sh.slots[key]
	if !ok {
		return false, nil
	}
	return true, fn(s.slot(id))
}

// Upsert calls fn with the key's slot, allocating a zeroed one for new keys.
func (s *Sharded) Upsert(key string, fn func(slot []byte, exists bool) error) error {
	sh := s.shard(key)
	sh.mu.Lock()
	defer sh.mu.Unlock()

	if id, ok := sh.slots[key]; ok {
		return fn(s.slot(id), true)
	}

	id, ok := s.alloc.alloc()
	if !ok {
		return ErrCapacityExceeded
	}

	slot := s.slot(id)
	clear(slot)

	if err := fn(slot, false); err != nil {
		s.alloc.release(id)
		return err
	}

	sh.slots[key] = id
	s.count.Add(1)

	return nil
}

// Delete removes the key and returns its slot to the allocator.
func (s *Sharded) Delete(key string) bool {
	sh := s.shard(key)
	sh.mu.Lock()
	defer sh.mu.Unlock()

	id, ok := sh.slots[key]
	if !ok {
		return false
	}

	delete(sh.slots, key)
	s.alloc.release(id)
	s.count.Add(-1)

	return true
}

// Exists reports whether the key is stored.
func (s *Sharded) Exists(key string) bool {
	sh := s.shard(key)
	sh.mu.RLock()
	_, ok := sh.slots[key]
	sh.mu.RUnlock()
	return ok
}

// Range calls fn for every key with a copy of its slot.
// Each shard is copied under its read lock; fn runs unlocked.
func (s *Sharded) Range(fn func(key string, slot []byte) bool) {
	for i := range numShards {
		sh := &s.shards[i]

		sh.mu.RLock()
		if len(sh.slots) == 0 {
			sh.mu.RUnlock()
			continue
		}
		keys := make([]string, 0, len(sh.slots))
		buf := make([]byte, 0, len(sh.slots)*s.width)
		for k, id := range sh.slots {
			keys = append(keys, k)
			buf = append(buf, s.slot(id)...)
		}
		sh.mu.RUnlock()

		for j, k := range keys {
			off := j * s.width
			if !fn(k, buf[off:off+s.width:off+s.width]) {
				return
			}
		}
	}
}

// Clear removes every key. All shards are locked for the duration.
func (s *Sharded) Clear() {
	for i := range numShards {
		s.shards[i].mu.Lock()
	}

	for i := range numShards {
		clear(s.shards[i].slots)
	}
	s.alloc.reset()
	s.count.Store(0)

	for i := numShards - 1; i >= 0; i-- {
		s.shards[i].mu.Unlock()
	}
}

var _ Storage = (*Sharded)(nil)
