package storage

import (
	"encoding/json"

	"github.com/rs/zerolog"

	"github.com/azimuth-engine/azimuth/filter"
	"github.com/azimuth-engine/azimuth/spatial"
	"github.com/azimuth-engine/azimuth/types"
)

// Reader is the read-only surface of the store. All methods are safe to call
// concurrently with each other; the store holds its read lock for the
// duration of each call.
type Reader interface {
	GetComponentForEntity(ct types.ComponentMetadata, id types.EntityID) (any, error)
	GetComponentForEntityInRawJSON(ct types.ComponentMetadata, id types.EntityID) (json.RawMessage, error)
	GetComponentTypesForEntity(id types.EntityID) ([]types.ComponentMetadata, error)
	GetComponentTypesForArchID(archID types.ArchetypeID) []types.ComponentMetadata
	GetArchIDForComponents(components []types.ComponentMetadata) (types.ArchetypeID, error)
	GetEntitiesForArchID(archID types.ArchetypeID) ([]types.EntityID, error)
	SearchFrom(filter filter.ComponentFilter, start int) *ArchetypeIterator
	ArchetypeCount() int
	IsAlive(id types.EntityID) bool
	LastWriteTick(id types.EntityID) (uint64, error)
	Len() int
	QuerySphere(center spatial.Position, radius float64) []types.EntityID
	QueryBox(min, max spatial.Position) []types.EntityID
}

// Writer is the mutating surface of the store. Structural mutations are
// serialized by the store's write lock and are atomic: a failed operation
// leaves no partial rows, locations, or grid entries behind.
type Writer interface {
	RegisterComponents([]types.ComponentMetadata) error
	CreateEntity(components ...types.Component) (types.EntityID, error)
	CreateManyEntities(num int, components ...types.Component) ([]types.EntityID, error)
	SetComponentForEntity(ct types.ComponentMetadata, id types.EntityID, value any) error
	AddComponentToEntity(ct types.ComponentMetadata, id types.EntityID, value any) error
	RemoveComponentFromEntity(ct types.ComponentMetadata, id types.EntityID) error
	RemoveEntity(id types.EntityID) error
	AddObserver(obs EntityObserver)
	InjectLogger(logger *zerolog.Logger)
}

// Manager is the full store surface the world operates on.
type Manager interface {
	Reader
	Writer
	ToReadOnly() Reader
}
