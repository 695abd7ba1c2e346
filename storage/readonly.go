package storage

import (
	"encoding/json"

	"github.com/azimuth-engine/azimuth/filter"
	"github.com/azimuth-engine/azimuth/spatial"
	"github.com/azimuth-engine/azimuth/types"
)

// readOnlyStore narrows a Store to its Reader surface so read-only world
// contexts cannot be cast back into a writer.
type readOnlyStore struct {
	store *Store
}

var _ Reader = &readOnlyStore{}

func (r *readOnlyStore) GetComponentForEntity(ct types.ComponentMetadata, id types.EntityID) (any, error) {
	return r.store.GetComponentForEntity(ct, id)
}

func (r *readOnlyStore) GetComponentForEntityInRawJSON(ct types.ComponentMetadata, id types.EntityID) (json.RawMessage, error) {
	return r.store.GetComponentForEntityInRawJSON(ct, id)
}

func (r *readOnlyStore) GetComponentTypesForEntity(id types.EntityID) ([]types.ComponentMetadata, error) {
	return r.store.GetComponentTypesForEntity(id)
}

func (r *readOnlyStore) GetComponentTypesForArchID(archID types.ArchetypeID) []types.ComponentMetadata {
	return r.store.GetComponentTypesForArchID(archID)
}

func (r *readOnlyStore) GetArchIDForComponents(components []types.ComponentMetadata) (types.ArchetypeID, error) {
	return r.store.GetArchIDForComponents(components)
}

func (r *readOnlyStore) GetEntitiesForArchID(archID types.ArchetypeID) ([]types.EntityID, error) {
	return r.store.GetEntitiesForArchID(archID)
}

func (r *readOnlyStore) SearchFrom(f filter.ComponentFilter, start int) *ArchetypeIterator {
	return r.store.SearchFrom(f, start)
}

func (r *readOnlyStore) ArchetypeCount() int {
	return r.store.ArchetypeCount()
}

func (r *readOnlyStore) IsAlive(id types.EntityID) bool {
	return r.store.IsAlive(id)
}

func (r *readOnlyStore) LastWriteTick(id types.EntityID) (uint64, error) {
	return r.store.LastWriteTick(id)
}

func (r *readOnlyStore) Len() int {
	return r.store.Len()
}

func (r *readOnlyStore) QuerySphere(center spatial.Position, radius float64) []types.EntityID {
	return r.store.QuerySphere(center, radius)
}

func (r *readOnlyStore) QueryBox(min, max spatial.Position) []types.EntityID {
	return r.store.QueryBox(min, max)
}
