package storage_test

import (
	"sync/atomic"
	"testing"

	"github.com/rotisserie/eris"

	"github.com/azimuth-engine/azimuth/assert"
	"github.com/azimuth-engine/azimuth/component"
	"github.com/azimuth-engine/azimuth/filter"
	"github.com/azimuth-engine/azimuth/spatial"
	"github.com/azimuth-engine/azimuth/storage"
	"github.com/azimuth-engine/azimuth/types"
)

type Health struct {
	Value int64
}

func (Health) Name() string { return "health" }

type Velocity struct {
	DX float64
	DZ float64
}

func (Velocity) Name() string { return "velocity" }

type Marker struct{}

func (Marker) Name() string { return "marker" }

type storeFixture struct {
	*storage.Store
	tick     *atomic.Uint64
	health   types.ComponentMetadata
	velocity types.ComponentMetadata
	marker   types.ComponentMetadata
	position types.ComponentMetadata
}

func newStoreForTest(t *testing.T) *storeFixture {
	t.Helper()
	manager := component.NewManager(component.NewMapSchemaStorage())

	health, err := component.NewComponentMetadata[Health]()
	assert.NilError(t, err)
	velocity, err := component.NewComponentMetadata[Velocity]()
	assert.NilError(t, err)
	marker, err := component.NewComponentMetadata[Marker]()
	assert.NilError(t, err)
	position, err := component.NewComponentMetadata[spatial.Position]()
	assert.NilError(t, err)
	for _, meta := range []types.ComponentMetadata{health, velocity, marker, position} {
		assert.NilError(t, manager.RegisterComponent(meta))
	}

	tick := &atomic.Uint64{}
	store := storage.NewStore(spatial.NewGrid(50), tick)
	assert.NilError(t, store.RegisterComponents(manager.GetComponents()))
	return &storeFixture{
		Store:    store,
		tick:     tick,
		health:   health,
		velocity: velocity,
		marker:   marker,
		position: position,
	}
}

func (f *storeFixture) healthOf(t *testing.T, id types.EntityID) Health {
	t.Helper()
	value, err := f.GetComponentForEntity(f.health, id)
	assert.NilError(t, err)
	return value.(Health)
}

func TestCreateEntityRoundTripsValues(t *testing.T) {
	fixture := newStoreForTest(t)
	id, err := fixture.CreateEntity(Health{Value: 50}, Velocity{DX: 1.5, DZ: -2})
	assert.NilError(t, err)
	assert.True(t, fixture.IsAlive(id))
	assert.Equal(t, 1, fixture.Len())

	assert.Equal(t, Health{Value: 50}, fixture.healthOf(t, id))
	velocity, err := fixture.GetComponentForEntity(fixture.velocity, id)
	assert.NilError(t, err)
	assert.Equal(t, Velocity{DX: 1.5, DZ: -2}, velocity.(Velocity))
}

func TestCreateEntityRequiresAtLeastOneComponent(t *testing.T) {
	fixture := newStoreForTest(t)
	_, err := fixture.CreateEntity()
	assert.ErrorIs(t, err, storage.ErrEntityMustHaveAtLeastOneComponent)
}

type unregistered struct{}

func (unregistered) Name() string { return "unregistered" }

func TestCreateEntityRejectsUnregisteredComponent(t *testing.T) {
	fixture := newStoreForTest(t)
	_, err := fixture.CreateEntity(unregistered{})
	assert.ErrorIs(t, err, storage.ErrComponentNotRegistered)
}

func TestCreateEntityRejectsDuplicateComponent(t *testing.T) {
	fixture := newStoreForTest(t)
	_, err := fixture.CreateEntity(Health{Value: 1}, Health{Value: 2})
	assert.ErrorIs(t, err, storage.ErrComponentAlreadyOnEntity)
}

func TestRemoveEntityMakesIDStale(t *testing.T) {
	fixture := newStoreForTest(t)
	id, err := fixture.CreateEntity(Health{Value: 10})
	assert.NilError(t, err)
	assert.NilError(t, fixture.RemoveEntity(id))

	assert.False(t, fixture.IsAlive(id))
	assert.Equal(t, 0, fixture.Len())
	_, err = fixture.GetComponentForEntity(fixture.health, id)
	assert.ErrorIs(t, err, storage.ErrStaleEntity)
	assert.ErrorIs(t, fixture.RemoveEntity(id), storage.ErrStaleEntity)
}

func TestRemoveEntityPatchesSwappedRow(t *testing.T) {
	fixture := newStoreForTest(t)
	first, err := fixture.CreateEntity(Health{Value: 1})
	assert.NilError(t, err)
	second, err := fixture.CreateEntity(Health{Value: 2})
	assert.NilError(t, err)
	third, err := fixture.CreateEntity(Health{Value: 3})
	assert.NilError(t, err)

	// Removing the first row swaps the last row into its place; the moved
	// entity must still resolve to its own value.
	assert.NilError(t, fixture.RemoveEntity(first))
	assert.Equal(t, Health{Value: 2}, fixture.healthOf(t, second))
	assert.Equal(t, Health{Value: 3}, fixture.healthOf(t, third))
}

func TestDespawnThenSpawnBumpsGeneration(t *testing.T) {
	fixture := newStoreForTest(t)
	old, err := fixture.CreateEntity(Health{Value: 1})
	assert.NilError(t, err)
	assert.NilError(t, fixture.RemoveEntity(old))

	reused, err := fixture.CreateEntity(Health{Value: 2})
	assert.NilError(t, err)
	assert.Equal(t, old.Index(), reused.Index())
	assert.Equal(t, old.Generation()+1, reused.Generation())

	assert.False(t, fixture.IsAlive(old))
	assert.True(t, fixture.IsAlive(reused))
	_, err = fixture.GetComponentForEntity(fixture.health, old)
	assert.ErrorIs(t, err, storage.ErrStaleEntity)
	assert.Equal(t, Health{Value: 2}, fixture.healthOf(t, reused))
}

func TestGetComponentAbsentFromEntity(t *testing.T) {
	fixture := newStoreForTest(t)
	id, err := fixture.CreateEntity(Health{Value: 1})
	assert.NilError(t, err)
	_, err = fixture.GetComponentForEntity(fixture.velocity, id)
	assert.ErrorIs(t, err, storage.ErrComponentNotOnEntity)
}

func TestAddComponentMigratesEntity(t *testing.T) {
	fixture := newStoreForTest(t)
	id, err := fixture.CreateEntity(Health{Value: 40})
	assert.NilError(t, err)
	assert.Equal(t, 1, fixture.ArchetypeCount())

	assert.NilError(t, fixture.AddComponentToEntity(fixture.velocity, id, Velocity{DX: 3, DZ: 4}))
	assert.Equal(t, 2, fixture.ArchetypeCount())

	assert.Equal(t, Health{Value: 40}, fixture.healthOf(t, id))
	velocity, err := fixture.GetComponentForEntity(fixture.velocity, id)
	assert.NilError(t, err)
	assert.Equal(t, Velocity{DX: 3, DZ: 4}, velocity.(Velocity))

	err = fixture.AddComponentToEntity(fixture.velocity, id, nil)
	assert.ErrorIs(t, err, storage.ErrComponentAlreadyOnEntity)
}

func TestAddComponentWithNilValueUsesDefault(t *testing.T) {
	fixture := newStoreForTest(t)
	id, err := fixture.CreateEntity(Health{Value: 1})
	assert.NilError(t, err)
	assert.NilError(t, fixture.AddComponentToEntity(fixture.velocity, id, nil))
	velocity, err := fixture.GetComponentForEntity(fixture.velocity, id)
	assert.NilError(t, err)
	assert.Equal(t, Velocity{}, velocity.(Velocity))
}

func TestAddComponentPatchesSwappedRow(t *testing.T) {
	fixture := newStoreForTest(t)
	first, err := fixture.CreateEntity(Health{Value: 1})
	assert.NilError(t, err)
	second, err := fixture.CreateEntity(Health{Value: 2})
	assert.NilError(t, err)

	// Migrating the first entity swap-removes its old row, moving the second
	// entity into row 0 of the original archetype.
	assert.NilError(t, fixture.AddComponentToEntity(fixture.velocity, first, Velocity{DX: 1}))
	assert.Equal(t, Health{Value: 1}, fixture.healthOf(t, first))
	assert.Equal(t, Health{Value: 2}, fixture.healthOf(t, second))
}

func TestRemoveComponentMigratesEntity(t *testing.T) {
	fixture := newStoreForTest(t)
	id, err := fixture.CreateEntity(Health{Value: 7}, Velocity{DX: 1})
	assert.NilError(t, err)

	assert.NilError(t, fixture.RemoveComponentFromEntity(fixture.velocity, id))
	_, err = fixture.GetComponentForEntity(fixture.velocity, id)
	assert.ErrorIs(t, err, storage.ErrComponentNotOnEntity)
	assert.Equal(t, Health{Value: 7}, fixture.healthOf(t, id))
}

func TestRemoveComponentNotOnEntity(t *testing.T) {
	fixture := newStoreForTest(t)
	id, err := fixture.CreateEntity(Health{Value: 1})
	assert.NilError(t, err)
	err = fixture.RemoveComponentFromEntity(fixture.velocity, id)
	assert.ErrorIs(t, err, storage.ErrComponentNotOnEntity)
}

func TestRemoveLastComponentIsRejected(t *testing.T) {
	fixture := newStoreForTest(t)
	id, err := fixture.CreateEntity(Health{Value: 1})
	assert.NilError(t, err)
	err = fixture.RemoveComponentFromEntity(fixture.health, id)
	assert.ErrorIs(t, err, storage.ErrEntityMustHaveAtLeastOneComponent)
	assert.Equal(t, Health{Value: 1}, fixture.healthOf(t, id))
}

func TestStructuralOpsRejectStaleIDs(t *testing.T) {
	fixture := newStoreForTest(t)
	id, err := fixture.CreateEntity(Health{Value: 1}, Velocity{})
	assert.NilError(t, err)
	assert.NilError(t, fixture.RemoveEntity(id))

	assert.ErrorIs(t, fixture.AddComponentToEntity(fixture.marker, id, nil), storage.ErrStaleEntity)
	assert.ErrorIs(t, fixture.RemoveComponentFromEntity(fixture.velocity, id), storage.ErrStaleEntity)
	assert.ErrorIs(t, fixture.SetComponentForEntity(fixture.health, id, Health{Value: 2}), storage.ErrStaleEntity)
	_, err = fixture.LastWriteTick(id)
	assert.ErrorIs(t, err, storage.ErrStaleEntity)
}

func TestZeroSizeComponent(t *testing.T) {
	fixture := newStoreForTest(t)
	id, err := fixture.CreateEntity(Marker{})
	assert.NilError(t, err)
	value, err := fixture.GetComponentForEntity(fixture.marker, id)
	assert.NilError(t, err)
	assert.Equal(t, Marker{}, value.(Marker))

	other, err := fixture.CreateEntity(Marker{}, Health{Value: 3})
	assert.NilError(t, err)
	assert.Equal(t, Health{Value: 3}, fixture.healthOf(t, other))
}

func TestObserverVetoRollsBackSpawn(t *testing.T) {
	fixture := newStoreForTest(t)
	fixture.AddObserver(storage.EntityObserverFunc(func(ev storage.EntityEvent) error {
		if _, ok := ev.(storage.EntitySpawned); ok {
			return eris.New("region is at capacity")
		}
		return nil
	}))

	_, err := fixture.CreateEntity(Health{Value: 1}, spatial.Position{X: 10, Z: 10})
	assert.ErrorIs(t, err, storage.ErrSpawnRollback)
	assert.Equal(t, 0, fixture.Len())
	assert.Len(t, fixture.QuerySphere(spatial.Position{X: 10, Z: 10}, 100), 0)
}

func TestObserverVetoRecyclesTheID(t *testing.T) {
	fixture := newStoreForTest(t)
	reject := true
	fixture.AddObserver(storage.EntityObserverFunc(func(ev storage.EntityEvent) error {
		if _, ok := ev.(storage.EntitySpawned); ok && reject {
			return eris.New("not yet")
		}
		return nil
	}))

	_, err := fixture.CreateEntity(Health{Value: 1})
	assert.ErrorIs(t, err, storage.ErrSpawnRollback)

	reject = false
	id, err := fixture.CreateEntity(Health{Value: 1})
	assert.NilError(t, err)
	// The vetoed spawn's slot was recycled, so the next spawn reuses it at a
	// later generation.
	assert.Equal(t, uint32(0), id.Index())
	assert.Equal(t, uint32(1), id.Generation())
}

func TestCreateManyEntities(t *testing.T) {
	fixture := newStoreForTest(t)
	ids, err := fixture.CreateManyEntities(5, Health{Value: 9})
	assert.NilError(t, err)
	assert.Len(t, ids, 5)
	assert.Equal(t, 5, fixture.Len())
	for _, id := range ids {
		assert.Equal(t, Health{Value: 9}, fixture.healthOf(t, id))
	}
}

func TestCreateManyEntitiesAggregatesVetoes(t *testing.T) {
	fixture := newStoreForTest(t)
	spawned := 0
	fixture.AddObserver(storage.EntityObserverFunc(func(ev storage.EntityEvent) error {
		if _, ok := ev.(storage.EntitySpawned); !ok {
			return nil
		}
		spawned++
		if spawned%3 == 0 {
			return eris.New("every third spawn is rejected")
		}
		return nil
	}))

	ids, err := fixture.CreateManyEntities(10, Health{Value: 1})
	assert.ErrorIs(t, err, storage.ErrSpawnRollback)
	assert.Len(t, ids, 7)
	assert.Equal(t, 7, fixture.Len())
	for _, id := range ids {
		assert.True(t, fixture.IsAlive(id))
	}
}

func TestCreateManyEntitiesRespectsBatchLimit(t *testing.T) {
	fixture := newStoreForTest(t)
	fixture.SetBatchSpawnLimit(5)
	_, err := fixture.CreateManyEntities(6, Health{Value: 1})
	assert.ErrorIs(t, err, storage.ErrBatchTooLarge)
	assert.Equal(t, 0, fixture.Len())

	ids, err := fixture.CreateManyEntities(5, Health{Value: 1})
	assert.NilError(t, err)
	assert.Len(t, ids, 5)
}

func TestLastWriteTickFollowsWrites(t *testing.T) {
	fixture := newStoreForTest(t)
	fixture.tick.Store(5)
	id, err := fixture.CreateEntity(Health{Value: 1})
	assert.NilError(t, err)
	tick, err := fixture.LastWriteTick(id)
	assert.NilError(t, err)
	assert.Equal(t, uint64(5), tick)

	fixture.tick.Store(9)
	assert.NilError(t, fixture.SetComponentForEntity(fixture.health, id, Health{Value: 2}))
	tick, err = fixture.LastWriteTick(id)
	assert.NilError(t, err)
	assert.Equal(t, uint64(9), tick)

	fixture.tick.Store(12)
	assert.NilError(t, fixture.AddComponentToEntity(fixture.velocity, id, nil))
	tick, err = fixture.LastWriteTick(id)
	assert.NilError(t, err)
	assert.Equal(t, uint64(12), tick)
}

func TestPositionWritesKeepGridInSync(t *testing.T) {
	fixture := newStoreForTest(t)
	id, err := fixture.CreateEntity(Health{Value: 1}, spatial.Position{X: 10, Z: 10})
	assert.NilError(t, err)
	assert.DeepEqual(t, []types.EntityID{id}, fixture.QuerySphere(spatial.Position{}, 20))

	// Moving across a cell boundary follows the entity.
	assert.NilError(t, fixture.SetComponentForEntity(fixture.position, id, spatial.Position{X: 500, Z: 500}))
	assert.Len(t, fixture.QuerySphere(spatial.Position{}, 20), 0)
	assert.DeepEqual(t, []types.EntityID{id}, fixture.QuerySphere(spatial.Position{X: 500, Z: 500}, 1))

	// Dropping the position component removes the entity from the index.
	assert.NilError(t, fixture.RemoveComponentFromEntity(fixture.position, id))
	assert.Len(t, fixture.QuerySphere(spatial.Position{X: 500, Z: 500}, 1), 0)

	// Adding it back re-indexes at the new location.
	assert.NilError(t, fixture.AddComponentToEntity(fixture.position, id, spatial.Position{X: -75, Z: -75}))
	assert.DeepEqual(t, []types.EntityID{id}, fixture.QuerySphere(spatial.Position{X: -75, Z: -75}, 5))
}

func TestDespawnRemovesGridEntry(t *testing.T) {
	fixture := newStoreForTest(t)
	id, err := fixture.CreateEntity(spatial.Position{X: 1, Z: 1})
	assert.NilError(t, err)
	assert.Len(t, fixture.QuerySphere(spatial.Position{}, 10), 1)
	assert.NilError(t, fixture.RemoveEntity(id))
	assert.Len(t, fixture.QuerySphere(spatial.Position{}, 10), 0)
}

func TestEntitiesWithoutPositionStayOutOfGrid(t *testing.T) {
	fixture := newStoreForTest(t)
	_, err := fixture.CreateEntity(Health{Value: 1})
	assert.NilError(t, err)
	assert.Len(t, fixture.QuerySphere(spatial.Position{}, 1e9), 0)
}

func TestSearchFromScansIncrementally(t *testing.T) {
	fixture := newStoreForTest(t)
	_, err := fixture.CreateEntity(Health{Value: 1})
	assert.NilError(t, err)
	_, err = fixture.CreateEntity(Health{Value: 1}, Velocity{})
	assert.NilError(t, err)

	healthFilter := filter.Contains(filter.Component[Health]())
	itr := fixture.SearchFrom(healthFilter, 0)
	assert.Len(t, itr.IDs, 2)
	seen := fixture.ArchetypeCount()

	// A scan resumed at the seen count only reports archetypes created since.
	itr = fixture.SearchFrom(healthFilter, seen)
	assert.Len(t, itr.IDs, 0)

	_, err = fixture.CreateEntity(Health{Value: 1}, Marker{})
	assert.NilError(t, err)
	itr = fixture.SearchFrom(healthFilter, seen)
	assert.Len(t, itr.IDs, 1)
	assert.Equal(t, types.ArchetypeID(2), itr.IDs[0])
}

func TestGetArchIDForComponents(t *testing.T) {
	fixture := newStoreForTest(t)
	_, err := fixture.CreateEntity(Health{Value: 1}, Velocity{})
	assert.NilError(t, err)

	archID, err := fixture.GetArchIDForComponents([]types.ComponentMetadata{fixture.velocity, fixture.health})
	assert.NilError(t, err)
	assert.Equal(t, types.ArchetypeID(0), archID)

	_, err = fixture.GetArchIDForComponents([]types.ComponentMetadata{fixture.marker})
	assert.ErrorIs(t, err, storage.ErrArchetypeNotFound)

	_, err = fixture.GetArchIDForComponents(nil)
	assert.ErrorIs(t, err, storage.ErrEntityMustHaveAtLeastOneComponent)
}

func TestGetEntitiesForArchID(t *testing.T) {
	fixture := newStoreForTest(t)
	first, err := fixture.CreateEntity(Health{Value: 1})
	assert.NilError(t, err)
	second, err := fixture.CreateEntity(Health{Value: 2})
	assert.NilError(t, err)

	ids, err := fixture.GetEntitiesForArchID(types.ArchetypeID(0))
	assert.NilError(t, err)
	assert.DeepEqual(t, []types.EntityID{first, second}, ids)

	_, err = fixture.GetEntitiesForArchID(types.ArchetypeID(42))
	assert.ErrorIs(t, err, storage.ErrArchetypeNotFound)
}

func TestGetComponentForEntityInRawJSON(t *testing.T) {
	fixture := newStoreForTest(t)
	id, err := fixture.CreateEntity(Health{Value: 33})
	assert.NilError(t, err)
	raw, err := fixture.GetComponentForEntityInRawJSON(fixture.health, id)
	assert.NilError(t, err)
	assert.Equal(t, `{"Value":33}`, string(raw))
}

func TestReadOnlyViewSeesWrites(t *testing.T) {
	fixture := newStoreForTest(t)
	reader := fixture.ToReadOnly()
	id, err := fixture.CreateEntity(Health{Value: 4})
	assert.NilError(t, err)

	value, err := reader.GetComponentForEntity(fixture.health, id)
	assert.NilError(t, err)
	assert.Equal(t, Health{Value: 4}, value.(Health))
	assert.Equal(t, 1, reader.Len())
	assert.Equal(t, 1, reader.ArchetypeCount())
}
