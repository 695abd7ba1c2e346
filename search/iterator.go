package search

import (
	"math"

	"github.com/azimuth-engine/azimuth/types"
)

// BadID is returned by First when the search matches no entities.
var BadID types.EntityID = math.MaxUint64

// HasEntitiesForArchetype supplies the entity list for one archetype. The
// returned slice is a snapshot, so callers may mutate the store while holding
// it.
type HasEntitiesForArchetype interface {
	GetEntitiesForArchID(archID types.ArchetypeID) ([]types.EntityID, error)
}

// EntityIterator walks the matched archetypes one entity list at a time.
type EntityIterator struct {
	pos     int
	source  HasEntitiesForArchetype
	archIDs []types.ArchetypeID
}

func NewEntityIterator(source HasEntitiesForArchetype, archIDs []types.ArchetypeID) EntityIterator {
	return EntityIterator{source: source, archIDs: archIDs}
}

// HasNext reports whether any archetypes remain.
func (it *EntityIterator) HasNext() bool {
	return it.pos < len(it.archIDs)
}

// Next returns the entity list of the next archetype.
func (it *EntityIterator) Next() ([]types.EntityID, error) {
	id := it.archIDs[it.pos]
	it.pos++
	return it.source.GetEntitiesForArchID(id)
}
