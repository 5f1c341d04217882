package shm

import (
	"sync"

	"github.com/RoaringBitmap/roaring/v2"
)

// allocator hands out slot indexes in [0, capacity).
type allocator struct {
	mu       sync.Mutex
	next     uint32
	capacity uint32
	free     *roaring.Bitmap
}

func newAllocator(capacity uint32) *allocator {
	return &allocator{
		capacity: capacity,
		free:     roaring.New(),
	}
}

// alloc returns the lowest recycled slot, or the next unused one.
func (a *allocator) alloc() (uint32, bool) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if !a.free.IsEmpty() {
		id := a.free.Minimum()
		a.free.Remove(id)
		return id, true
	}
	if a.next < a.capacity {
		id := a.next
		a.next++
		return id, true
	}
	return 0, false
}

func (a *allocator) release(id uint32) {
	a.mu.Lock()
	a.free.Add(id)
	a.mu.Unlock()
}

func (a *allocator) reset() {
	a.mu.Lock()
	a.next = 0
	a.free.Clear()
	a.mu.Unlock()
}

// inUse returns the number of allocated slots.
func (a *allocator) inUse() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return int(uint64(a.next) - a.free.GetCardinality())
}
