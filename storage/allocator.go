package storage

import (
	"github.com/rotisserie/eris"

	"github.com/azimuth-engine/azimuth/types"
)

// Allocator hands out generational entity IDs. Slot indices are recycled
// through a LIFO free list; each recycle bumps the slot's generation so IDs
// held by callers after a despawn stop matching.
//
// The allocator is not safe for concurrent use. The Store serializes access
// to it under its own lock.
type Allocator struct {
	generations []uint32
	alive       []bool
	freeList    []uint32
}

func NewAllocator() *Allocator {
	return &Allocator{
		generations: make([]uint32, 0, 256),
		alive:       make([]bool, 0, 256),
		freeList:    make([]uint32, 0, 64),
	}
}

// Allocate returns a live entity ID, preferring recycled slots over growing
// the slot table. A recycled slot carries the generation its last recycle
// assigned, so the returned ID never collides with a previously issued one.
func (a *Allocator) Allocate() types.EntityID {
	if n := len(a.freeList); n > 0 {
		idx := a.freeList[n-1]
		a.freeList = a.freeList[:n-1]
		a.alive[idx] = true
		return types.NewEntityID(idx, a.generations[idx])
	}
	idx := uint32(len(a.generations))
	a.generations = append(a.generations, 0)
	a.alive = append(a.alive, true)
	return types.NewEntityID(idx, 0)
}

// Recycle returns the ID's slot to the free pool and increments its
// generation. Recycling a slot that is already free, or an ID whose
// generation is stale, is a bookkeeping bug in the caller and panics with
// ErrAllocatorInvariantViolation.
func (a *Allocator) Recycle(id types.EntityID) {
	idx := id.Index()
	if idx >= uint32(len(a.generations)) {
		panic(eris.Wrapf(ErrAllocatorInvariantViolation, "recycle of out-of-range slot %d", idx))
	}
	if !a.alive[idx] {
		panic(eris.Wrapf(ErrAllocatorInvariantViolation, "double recycle of slot %d", idx))
	}
	if a.generations[idx] != id.Generation() {
		panic(eris.Wrapf(
			ErrAllocatorInvariantViolation,
			"recycle of stale ID %d (slot %d at generation %d, ID carries %d)",
			id, idx, a.generations[idx], id.Generation(),
		))
	}
	a.generations[idx]++
	a.alive[idx] = false
	a.freeList = append(a.freeList, idx)
}

// IsAlive reports whether the ID refers to a currently live entity, i.e. its
// slot is occupied and its generation matches the slot's. An out-of-range
// slot index can only come from an ID this allocator never issued, so it
// panics rather than answering.
func (a *Allocator) IsAlive(id types.EntityID) bool {
	idx := id.Index()
	if idx >= uint32(len(a.generations)) {
		panic(eris.Wrapf(ErrAllocatorInvariantViolation, "liveness check on out-of-range slot %d", idx))
	}
	return a.alive[idx] && a.generations[idx] == id.Generation()
}

// Len returns the number of live entities.
func (a *Allocator) Len() int {
	return len(a.generations) - len(a.freeList)
}

// Cap returns the total number of slots ever created, live or free.
func (a *Allocator) Cap() int {
	return len(a.generations)
}
