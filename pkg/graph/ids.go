package graph

import (
	"fmt"
	"math"

	"github.com/RoaringBitmap/roaring"
)

// NodeID identifies a live node. Ids are recycled after the node is removed.
type NodeID uint32

// EdgeID identifies a live edge. Edge ids live in their own space and are
// never compared with node ids.
type EdgeID uint32

// IDAllocator issues integer ids from a watermark and recycles released ids,
// smallest first, before growing the watermark.
//
// The released set is a roaring bitmap so that finding the smallest free id
// stays cheap even after many removals.
type IDAllocator[T ~uint32] struct {
	next     uint64 // watermark: every id below it has been issued at least once
	limit    uint64 // ids are issued in [0, limit)
	released *roaring.Bitmap
}

// NewIDAllocator creates an allocator issuing ids in [0, limit).
// A limit of 0 means the full uint32 range.
func NewIDAllocator[T ~uint32](limit uint64) *IDAllocator[T] {
	if limit == 0 || limit > math.MaxUint32+1 {
		limit = math.MaxUint32 + 1
	}
	return &IDAllocator[T]{
		limit:    limit,
		released: roaring.New(),
	}
}

// Allocate returns the smallest released id, or the watermark if nothing has
// been released.
func (a *IDAllocator[T]) Allocate() (T, error) {
	if !a.released.IsEmpty() {
		id := a.released.Minimum()
		a.released.Remove(id)
		return T(id), nil
	}
	if a.next >= a.limit {
		return 0, fmt.Errorf("%w: %d ids issued", ErrAllocatorExhausted, a.next)
	}
	id := T(a.next)
	a.next++
	return id, nil
}

// Release hands an id back for reuse. Releasing an id that was never issued,
// or releasing it twice, is a caller bug and is reported rather than absorbed.
func (a *IDAllocator[T]) Release(id T) error {
	if uint64(id) >= a.next {
		return fmt.Errorf("%w: %d was never allocated", ErrInvalidID, id)
	}
	if !a.released.CheckedAdd(uint32(id)) {
		return fmt.Errorf("%w: %d already released", ErrInvalidID, id)
	}
	return nil
}

// IsLive reports whether id is currently issued.
func (a *IDAllocator[T]) IsLive(id T) bool {
	return uint64(id) < a.next && !a.released.Contains(uint32(id))
}

// Live returns the number of ids currently issued.
func (a *IDAllocator[T]) Live() int {
	return int(a.next - a.released.GetCardinality())
}

// Free returns the number of released ids waiting for reuse.
func (a *IDAllocator[T]) Free() int {
	return int(a.released.GetCardinality())
}

// Reset forgets every issued id.
func (a *IDAllocator[T]) Reset() {
	a.next = 0
	a.released.Clear()
}
