package storage

import (
	"encoding/json"
	"slices"
	"sync"
	"sync/atomic"

	"github.com/rotisserie/eris"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/azimuth-engine/azimuth/filter"
	"github.com/azimuth-engine/azimuth/spatial"
	"github.com/azimuth-engine/azimuth/types"
)

// DefaultBatchSpawnLimit caps CreateManyEntities when no limit is configured.
const DefaultBatchSpawnLimit = 10_000_000

type location struct {
	arch types.ArchetypeID
	row  int
}

// Store is the world index: generational IDs, archetype tables, the entity
// location map, and the spatial grid, kept consistent under one lock.
//
// Structural mutations (spawn, despawn, component add/remove) take the write
// lock; reads take the read lock and may run concurrently with each other.
// The archetype registry is append-only, which lets search caches extend
// incrementally instead of being invalidated.
type Store struct {
	mu     sync.RWMutex
	logger *zerolog.Logger

	allocator *Allocator
	tick      *atomic.Uint64
	grid      *spatial.Grid

	tables     []*Table
	tableByKey map[string]types.ArchetypeID
	locations  map[types.EntityID]location

	registered   map[types.ComponentID]types.ComponentMetadata
	byName       map[string]types.ComponentMetadata
	positionMeta types.ComponentMetadata

	observers  []EntityObserver
	batchLimit int
}

var _ Manager = &Store{}

// NewStore creates an empty store. The grid supplies spatial indexing and the
// tick counter stamps row writes; nil arguments fall back to a default-size
// grid and a store-private counter.
func NewStore(grid *spatial.Grid, tick *atomic.Uint64) *Store {
	if grid == nil {
		grid = spatial.NewGrid(spatial.DefaultCellSize)
	}
	if tick == nil {
		tick = &atomic.Uint64{}
	}
	return &Store{
		logger:     &log.Logger,
		allocator:  NewAllocator(),
		tick:       tick,
		grid:       grid,
		tableByKey: make(map[string]types.ArchetypeID),
		locations:  make(map[types.EntityID]location),
		registered: make(map[types.ComponentID]types.ComponentMetadata),
		byName:     make(map[string]types.ComponentMetadata),
		batchLimit: DefaultBatchSpawnLimit,
	}
}

func (s *Store) InjectLogger(logger *zerolog.Logger) {
	s.logger = logger
}

// SetBatchSpawnLimit replaces the CreateManyEntities cap. Non-positive values
// restore the default.
func (s *Store) SetBatchSpawnLimit(limit int) {
	if limit <= 0 {
		limit = DefaultBatchSpawnLimit
	}
	s.batchLimit = limit
}

// AddObserver subscribes an observer to structural change events. Observers
// run while the store's write lock is held, so they must not call back into
// the store.
func (s *Store) AddObserver(obs EntityObserver) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.observers = append(s.observers, obs)
}

// RegisterComponents makes the given component types spawnable. Components
// registered under the position name with the spatial Position layout bind
// the store to its grid: rows carrying that component are mirrored into the
// index on every structural change and position write.
func (s *Store) RegisterComponents(metas []types.ComponentMetadata) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, meta := range metas {
		if existing, ok := s.byName[meta.Name()]; ok && existing.ID() != meta.ID() {
			return eris.Errorf("component name %q is already registered under a different ID", meta.Name())
		}
		s.registered[meta.ID()] = meta
		s.byName[meta.Name()] = meta
		if meta.Name() == spatial.ComponentName {
			if _, ok := meta.FromBytes(meta.New()).(spatial.Position); ok {
				s.positionMeta = meta
			}
		}
	}
	s.logger.Debug().Int("component_count", len(metas)).Msg("registered components with store")
	return nil
}

// CreateEntity spawns one entity carrying the given component values. The row
// is fully written, located, and spatially indexed before observers are told;
// any observer error undoes all of it and surfaces as ErrSpawnRollback.
func (s *Store) CreateEntity(components ...types.Component) (types.EntityID, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	table, cells, err := s.stageSpawn(components)
	if err != nil {
		return 0, err
	}
	return s.spawnRow(table, cells)
}

// CreateManyEntities spawns num entities, every one carrying the same
// component values. Entities vetoed by an observer are rolled back
// individually while the rest of the batch proceeds; the returned slice
// holds the surviving IDs and the returned error reports how many were
// rolled back, wrapped around ErrSpawnRollback.
func (s *Store) CreateManyEntities(num int, components ...types.Component) ([]types.EntityID, error) {
	if num < 0 {
		return nil, eris.Errorf("cannot create %d entities", num)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if num > s.batchLimit {
		return nil, eris.Wrapf(ErrBatchTooLarge, "requested %d entities with a limit of %d", num, s.batchLimit)
	}
	table, cells, err := s.stageSpawn(components)
	if err != nil {
		return nil, err
	}
	ids := make([]types.EntityID, 0, num)
	rolledBack := 0
	for i := 0; i < num; i++ {
		id, err := s.spawnRow(table, cells)
		if err != nil {
			rolledBack++
			continue
		}
		ids = append(ids, id)
	}
	if rolledBack > 0 {
		return ids, eris.Wrapf(ErrSpawnRollback, "%d of %d entities rolled back by observers", rolledBack, num)
	}
	return ids, nil
}

// stageSpawn resolves a component value bundle into the destination table and
// the raw cells to write. Must be called with the write lock held.
func (s *Store) stageSpawn(components []types.Component) (*Table, map[types.ComponentID][]byte, error) {
	if len(components) == 0 {
		return nil, nil, eris.Wrap(ErrEntityMustHaveAtLeastOneComponent, "")
	}
	metas := make([]types.ComponentMetadata, 0, len(components))
	cells := make(map[types.ComponentID][]byte, len(components))
	for _, comp := range components {
		meta, ok := s.byName[comp.Name()]
		if !ok {
			return nil, nil, eris.Wrapf(ErrComponentNotRegistered, "component %q must be registered before use", comp.Name())
		}
		if _, dup := cells[meta.ID()]; dup {
			return nil, nil, eris.Wrapf(ErrComponentAlreadyOnEntity, "component %q appears twice in spawn", comp.Name())
		}
		cell, err := meta.ToBytes(comp)
		if err != nil {
			return nil, nil, err
		}
		metas = append(metas, meta)
		cells[meta.ID()] = cell
	}
	return s.getOrCreateTable(metas), cells, nil
}

// spawnRow writes one row and runs the spawn broadcast. Must be called with
// the write lock held.
func (s *Store) spawnRow(table *Table, cells map[types.ComponentID][]byte) (types.EntityID, error) {
	id := s.allocator.Allocate()
	row := table.Push(id, cells, s.tick.Load())
	s.locations[id] = location{arch: table.ID(), row: row}
	if pos, ok := s.rowPosition(table, row); ok {
		s.grid.Insert(id, pos)
	}
	if err := s.broadcast(EntitySpawned{ID: id}); err != nil {
		// The freshly pushed row is always last, so no other entity moves.
		table.SwapRemove(row)
		delete(s.locations, id)
		s.grid.Remove(id)
		s.allocator.Recycle(id)
		s.logger.Warn().Uint64("entity_id", uint64(id)).Err(err).Msg("spawn rolled back by observer")
		return 0, eris.Wrapf(ErrSpawnRollback, "observer rejected spawn: %s", err.Error())
	}
	return id, nil
}

// RemoveEntity despawns an entity: its row is swap-removed (patching the
// location of whichever row moved), its grid entry dropped, and its ID
// recycled so stale copies of it stop resolving. Observers are told after
// the fact; despawns cannot be vetoed.
func (s *Store) RemoveEntity(id types.EntityID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.allocator.IsAlive(id) {
		return eris.Wrapf(ErrStaleEntity, "cannot remove entity %d", id)
	}
	loc := s.locations[id]
	table := s.tables[loc.arch]
	if moved, ok := table.SwapRemove(loc.row); ok {
		s.locations[moved] = location{arch: loc.arch, row: loc.row}
	}
	delete(s.locations, id)
	s.grid.Remove(id)
	s.allocator.Recycle(id)
	s.announce(EntityDespawned{ID: id})
	return nil
}

// AddComponentToEntity migrates an entity to the archetype extended by the
// given component. The entity's cells are copied across, the vacated row is
// swap-removed, and both affected locations are repointed. A nil value adds
// the component's default.
func (s *Store) AddComponentToEntity(ct types.ComponentMetadata, id types.EntityID, value any) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.allocator.IsAlive(id) {
		return eris.Wrapf(ErrStaleEntity, "cannot add component to entity %d", id)
	}
	loc := s.locations[id]
	src := s.tables[loc.arch]
	if src.Has(ct.ID()) {
		return eris.Wrapf(ErrComponentAlreadyOnEntity, "component %q", ct.Name())
	}
	cell, err := s.cellForValue(ct, value)
	if err != nil {
		return err
	}
	destMetas := append(slices.Clone(src.Metadata()), ct)
	dest := s.getOrCreateTable(destMetas)
	cells := s.copyRowCells(src, loc.row)
	cells[ct.ID()] = cell
	s.moveRow(id, loc, src, dest, cells)
	if s.positionMeta != nil && ct.ID() == s.positionMeta.ID() {
		if pos, ok := s.rowPosition(dest, s.locations[id].row); ok {
			s.grid.Insert(id, pos)
		}
	}
	s.announce(ComponentAdded{ID: id, Component: ct.ID()})
	return nil
}

// RemoveComponentFromEntity migrates an entity to the archetype without the
// given component. Removing the last component is rejected; entities always
// carry at least one.
func (s *Store) RemoveComponentFromEntity(ct types.ComponentMetadata, id types.EntityID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.allocator.IsAlive(id) {
		return eris.Wrapf(ErrStaleEntity, "cannot remove component from entity %d", id)
	}
	loc := s.locations[id]
	src := s.tables[loc.arch]
	if !src.Has(ct.ID()) {
		return eris.Wrapf(ErrComponentNotOnEntity, "component %q", ct.Name())
	}
	if len(src.Signature()) == 1 {
		return eris.Wrap(ErrEntityMustHaveAtLeastOneComponent, "cannot remove the last component")
	}
	destMetas := make([]types.ComponentMetadata, 0, len(src.Metadata())-1)
	for _, meta := range src.Metadata() {
		if meta.ID() != ct.ID() {
			destMetas = append(destMetas, meta)
		}
	}
	dest := s.getOrCreateTable(destMetas)
	cells := s.copyRowCells(src, loc.row)
	delete(cells, ct.ID())
	s.moveRow(id, loc, src, dest, cells)
	if s.positionMeta != nil && ct.ID() == s.positionMeta.ID() {
		s.grid.Remove(id)
	}
	s.announce(ComponentRemoved{ID: id, Component: ct.ID()})
	return nil
}

// SetComponentForEntity overwrites one component value in place and stamps
// the row with the current tick. Position writes are mirrored into the grid.
func (s *Store) SetComponentForEntity(ct types.ComponentMetadata, id types.EntityID, value any) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.allocator.IsAlive(id) {
		return eris.Wrapf(ErrStaleEntity, "cannot set component on entity %d", id)
	}
	loc := s.locations[id]
	table := s.tables[loc.arch]
	cell, err := ct.ToBytes(value)
	if err != nil {
		return err
	}
	if err := table.SetCell(ct.ID(), loc.row, cell, s.tick.Load()); err != nil {
		return eris.Wrapf(err, "component %q", ct.Name())
	}
	if s.positionMeta != nil && ct.ID() == s.positionMeta.ID() {
		if pos, ok := s.rowPosition(table, loc.row); ok {
			s.grid.Update(id, pos)
		}
	}
	return nil
}

// GetComponentForEntity returns a copy of one component value. Asking for a
// component the entity does not carry is an expected condition and comes
// back as ErrComponentNotOnEntity rather than a fault.
func (s *Store) GetComponentForEntity(ct types.ComponentMetadata, id types.EntityID) (any, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if !s.allocator.IsAlive(id) {
		return nil, eris.Wrapf(ErrStaleEntity, "cannot get component from entity %d", id)
	}
	loc := s.locations[id]
	cell, err := s.tables[loc.arch].Cell(ct.ID(), loc.row)
	if err != nil {
		return nil, eris.Wrapf(err, "component %q", ct.Name())
	}
	return ct.FromBytes(cell), nil
}

// GetComponentForEntityInRawJSON returns one component value marshaled to
// JSON, primarily for state dumps and debugging surfaces.
func (s *Store) GetComponentForEntityInRawJSON(ct types.ComponentMetadata, id types.EntityID) (json.RawMessage, error) {
	value, err := s.GetComponentForEntity(ct, id)
	if err != nil {
		return nil, err
	}
	return ct.Encode(value)
}

// GetComponentTypesForEntity returns the metadata of every component on the
// entity's current archetype.
func (s *Store) GetComponentTypesForEntity(id types.EntityID) ([]types.ComponentMetadata, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if !s.allocator.IsAlive(id) {
		return nil, eris.Wrapf(ErrStaleEntity, "cannot get component types for entity %d", id)
	}
	loc := s.locations[id]
	return s.tables[loc.arch].Metadata(), nil
}

func (s *Store) GetComponentTypesForArchID(archID types.ArchetypeID) []types.ComponentMetadata {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if archID < 0 || int(archID) >= len(s.tables) {
		return nil
	}
	return s.tables[archID].Metadata()
}

// GetArchIDForComponents returns the ID of the archetype holding exactly the
// given component set, without creating it.
func (s *Store) GetArchIDForComponents(components []types.ComponentMetadata) (types.ArchetypeID, error) {
	if len(components) == 0 {
		return badArchetypeID, eris.Wrap(ErrEntityMustHaveAtLeastOneComponent, "")
	}
	ids := make([]types.ComponentID, 0, len(components))
	for _, meta := range components {
		ids = append(ids, meta.ID())
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	archID, ok := s.tableByKey[types.NewSignature(ids...).Key()]
	if !ok {
		return badArchetypeID, eris.Wrap(ErrArchetypeNotFound, "")
	}
	return archID, nil
}

func (s *Store) GetEntitiesForArchID(archID types.ArchetypeID) ([]types.EntityID, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if archID < 0 || int(archID) >= len(s.tables) {
		return nil, eris.Wrapf(ErrArchetypeNotFound, "archetype %d", archID)
	}
	return slices.Clone(s.tables[archID].Entities()), nil
}

// SearchFrom returns the archetypes at or after start whose component sets
// match the filter. Because the registry is append-only, a caller that
// remembers how many archetypes it has already seen can pass that count as
// start and extend its cached matches incrementally.
func (s *Store) SearchFrom(f filter.ComponentFilter, start int) *ArchetypeIterator {
	s.mu.RLock()
	defer s.mu.RUnlock()
	itr := &ArchetypeIterator{}
	for i := start; i < len(s.tables); i++ {
		if f.MatchesComponents(s.tables[i].Components()) {
			itr.IDs = append(itr.IDs, s.tables[i].ID())
		}
	}
	return itr
}

func (s *Store) ArchetypeCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.tables)
}

// IsAlive reports whether the ID refers to a live entity. Stale IDs from
// despawned entities report false; IDs this store never issued are a caller
// bug and panic.
func (s *Store) IsAlive(id types.EntityID) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.allocator.IsAlive(id)
}

// LastWriteTick returns the tick any component of the entity's row was last
// written, spawn included.
func (s *Store) LastWriteTick(id types.EntityID) (uint64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if !s.allocator.IsAlive(id) {
		return 0, eris.Wrapf(ErrStaleEntity, "cannot get last write tick for entity %d", id)
	}
	loc := s.locations[id]
	return s.tables[loc.arch].Tick(loc.row), nil
}

// Len returns the number of live entities.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.allocator.Len()
}

// QuerySphere returns the IDs of spatially indexed entities within radius of
// center, boundary included, in ascending ID order.
func (s *Store) QuerySphere(center spatial.Position, radius float64) []types.EntityID {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.grid.QuerySphere(center, radius)
}

// QueryBox returns the IDs of spatially indexed entities inside the
// axis-aligned box spanned by min and max, boundary included, in ascending
// ID order.
func (s *Store) QueryBox(min, max spatial.Position) []types.EntityID {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.grid.QueryBox(min, max)
}

// ToReadOnly returns a view of the store that only exposes the Reader
// surface.
func (s *Store) ToReadOnly() Reader {
	return &readOnlyStore{store: s}
}

// getOrCreateTable returns the table for the archetype made of exactly the
// given components, appending a new one to the registry on first use. Must
// be called with the write lock held.
func (s *Store) getOrCreateTable(metas []types.ComponentMetadata) *Table {
	sorted := slices.Clone(metas)
	slices.SortFunc(sorted, func(a, b types.ComponentMetadata) int {
		return int(a.ID()) - int(b.ID())
	})
	ids := make([]types.ComponentID, 0, len(sorted))
	for _, meta := range sorted {
		ids = append(ids, meta.ID())
	}
	key := types.NewSignature(ids...).Key()
	if archID, ok := s.tableByKey[key]; ok {
		return s.tables[archID]
	}
	archID := types.ArchetypeID(len(s.tables))
	table := newTable(archID, sorted)
	s.tables = append(s.tables, table)
	s.tableByKey[key] = archID
	s.logger.Debug().
		Int("archetype_id", int(archID)).
		Str("signature", key).
		Msg("created new archetype")
	return table
}

// copyRowCells snapshots every cell of a row into fresh buffers so the row
// can be re-pushed after the source table mutates.
func (s *Store) copyRowCells(t *Table, row int) map[types.ComponentID][]byte {
	cells := make(map[types.ComponentID][]byte, len(t.Metadata()))
	for _, meta := range t.Metadata() {
		cell, _ := t.Cell(meta.ID(), row)
		cells[meta.ID()] = slices.Clone(cell)
	}
	return cells
}

// moveRow migrates an entity's row from src to dest, patching the location
// of whichever src row was swapped into the hole. Must be called with the
// write lock held.
func (s *Store) moveRow(id types.EntityID, loc location, src, dest *Table, cells map[types.ComponentID][]byte) {
	row := dest.Push(id, cells, s.tick.Load())
	if moved, ok := src.SwapRemove(loc.row); ok {
		s.locations[moved] = location{arch: loc.arch, row: loc.row}
	}
	s.locations[id] = location{arch: dest.ID(), row: row}
}

func (s *Store) cellForValue(ct types.ComponentMetadata, value any) ([]byte, error) {
	if value == nil {
		return ct.New(), nil
	}
	return ct.ToBytes(value)
}

// rowPosition reads the spatial position stored on a row, if the archetype
// carries the bound position component.
func (s *Store) rowPosition(t *Table, row int) (spatial.Position, bool) {
	if s.positionMeta == nil || !t.Has(s.positionMeta.ID()) {
		return spatial.Position{}, false
	}
	cell, err := t.Cell(s.positionMeta.ID(), row)
	if err != nil {
		return spatial.Position{}, false
	}
	pos, ok := s.positionMeta.FromBytes(cell).(spatial.Position)
	return pos, ok
}

// broadcast delivers an event to every observer and stops at the first error.
func (s *Store) broadcast(ev EntityEvent) error {
	for _, obs := range s.observers {
		if err := obs.HandleEntityEvent(ev); err != nil {
			return err
		}
	}
	return nil
}

// announce delivers an event to every observer, logging errors instead of
// honoring them. Used for events that cannot be vetoed.
func (s *Store) announce(ev EntityEvent) {
	for _, obs := range s.observers {
		if err := obs.HandleEntityEvent(ev); err != nil {
			s.logger.Warn().
				Uint64("entity_id", uint64(ev.EntityID())).
				Err(err).
				Msg("entity observer failed")
		}
	}
}
