package storage

import "github.com/azimuth-engine/azimuth/types"

// EntityEvent describes a structural change to the store. Exactly one of the
// concrete event types below is delivered per change.
type EntityEvent interface {
	EntityID() types.EntityID
}

// EntitySpawned is delivered after a new entity's row is written. Observers
// may reject the spawn by returning an error from HandleEntityEvent; the
// store then removes the row, recycles the ID, and surfaces ErrSpawnRollback
// to the caller.
type EntitySpawned struct {
	ID types.EntityID
}

// EntityDespawned is delivered after an entity's row and location are gone.
// It is informational only; the despawn cannot be vetoed.
type EntityDespawned struct {
	ID types.EntityID
}

// ComponentAdded is delivered after an entity migrates to an archetype that
// includes the component.
type ComponentAdded struct {
	ID        types.EntityID
	Component types.ComponentID
}

// ComponentRemoved is delivered after an entity migrates to an archetype
// without the component.
type ComponentRemoved struct {
	ID        types.EntityID
	Component types.ComponentID
}

func (e EntitySpawned) EntityID() types.EntityID    { return e.ID }
func (e EntityDespawned) EntityID() types.EntityID  { return e.ID }
func (e ComponentAdded) EntityID() types.EntityID   { return e.ID }
func (e ComponentRemoved) EntityID() types.EntityID { return e.ID }

// EntityObserver receives structural change events. Only EntitySpawned
// honors a returned error (it vetoes the spawn); errors from the other
// events are logged and otherwise ignored.
type EntityObserver interface {
	HandleEntityEvent(ev EntityEvent) error
}

// EntityObserverFunc adapts a plain function to the EntityObserver interface.
type EntityObserverFunc func(ev EntityEvent) error

func (f EntityObserverFunc) HandleEntityEvent(ev EntityEvent) error {
	return f(ev)
}
