package storage

import (
	"github.com/rotisserie/eris"

	"github.com/azimuth-engine/azimuth/types"
)

var (
	// ErrStaleEntity is returned when an operation references an entity ID
	// whose generation no longer matches the allocator's slot generation,
	// i.e. the entity was despawned (and possibly replaced) after the ID
	// was handed out.
	ErrStaleEntity = eris.New("entity ID is stale")

	// ErrAllocatorInvariantViolation signals a caller bug in the allocator's
	// bookkeeping (double recycle, out-of-range slot). It is used as a panic
	// value, never as a returned error.
	ErrAllocatorInvariantViolation = eris.New("entity allocator invariant violated")

	// ErrSpawnRollback is returned when an observer rejects a freshly spawned
	// entity and the spawn is undone.
	ErrSpawnRollback = eris.New("spawn rolled back by observer")

	ErrArchetypeNotFound                 = eris.New("archetype for components not found")
	ErrComponentAlreadyOnEntity          = eris.New("component already on entity")
	ErrComponentNotOnEntity              = eris.New("component not on entity")
	ErrComponentNotRegistered            = eris.New("component not registered")
	ErrEntityMustHaveAtLeastOneComponent = eris.New("entities must be created with at least 1 component")
	ErrBatchTooLarge                     = eris.New("batch size exceeds the configured limit")
)

const badArchetypeID = types.ArchetypeID(-1)
