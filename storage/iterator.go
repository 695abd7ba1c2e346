package storage

import "github.com/azimuth-engine/azimuth/types"

// ArchetypeIterator yields the archetype ids a filter matched, in scan order.
type ArchetypeIterator struct {
	pos int
	IDs []types.ArchetypeID
}

func (a *ArchetypeIterator) HasNext() bool {
	return a.pos < len(a.IDs)
}

func (a *ArchetypeIterator) Next() types.ArchetypeID {
	id := a.IDs[a.pos]
	a.pos++
	return id
}
