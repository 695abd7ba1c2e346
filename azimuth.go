package azimuth

import (
	"errors"

	"github.com/rotisserie/eris"

	"github.com/azimuth-engine/azimuth/component"
	"github.com/azimuth-engine/azimuth/filter"
	"github.com/azimuth-engine/azimuth/search"
	"github.com/azimuth-engine/azimuth/storage"
	"github.com/azimuth-engine/azimuth/types"
	"github.com/azimuth-engine/azimuth/types/engine"
	"github.com/azimuth-engine/azimuth/worldstage"
)

var (
	ErrEntityMutationOnReadOnly          = errors.New("cannot modify entities through a read only context")
	ErrStaleEntity                       = storage.ErrStaleEntity
	ErrEntityMustHaveAtLeastOneComponent = storage.ErrEntityMustHaveAtLeastOneComponent
	ErrComponentNotOnEntity              = storage.ErrComponentNotOnEntity
	ErrComponentAlreadyOnEntity          = storage.ErrComponentAlreadyOnEntity
	ErrComponentNotRegistered            = storage.ErrComponentNotRegistered
	ErrSpawnRollback                     = storage.ErrSpawnRollback
	ErrBatchTooLarge                     = storage.ErrBatchTooLarge
)

func RegisterSystems(w *World, sys ...System) error {
	if w.stage.Current() != worldstage.Init {
		return eris.Errorf(
			"engine state is %s, expected %s to register systems",
			w.stage.Current(),
			worldstage.Init,
		)
	}
	return w.systems.RegisterSystems(sys...)
}

func RegisterInitSystems(w *World, sys ...System) error {
	if w.stage.Current() != worldstage.Init {
		return eris.Errorf(
			"engine state is %s, expected %s to register init systems",
			w.stage.Current(),
			worldstage.Init,
		)
	}
	return w.systems.RegisterInitSystems(sys...)
}

// RegisterSystemWithAccess registers a single system together with the
// component names it reads and writes. The declaration is surfaced through
// World.SystemAccessSets so tooling can reason about which systems could run
// concurrently; overlapping declarations are reported at debug level.
func RegisterSystemWithAccess(w *World, sys System, access AccessSet) error {
	if w.stage.Current() != worldstage.Init {
		return eris.Errorf(
			"engine state is %s, expected %s to register systems",
			w.stage.Current(),
			worldstage.Init,
		)
	}
	if err := w.systems.RegisterSystemWithAccess(sys, access); err != nil {
		return err
	}
	name := deriveSystemName(sys)
	for otherName, otherAccess := range w.systems.AccessSets() {
		if otherName == name {
			continue
		}
		if access.ConflictsWith(otherAccess) {
			w.logger.Debug().
				Str("system", name).
				Str("conflicts_with", otherName).
				Msg("systems declare overlapping component access")
		}
	}
	return nil
}

func RegisterComponent[T types.Component](w *World) error {
	if w.stage.Current() != worldstage.Init {
		return eris.Errorf(
			"engine state is %s, expected %s to register component",
			w.stage.Current(),
			worldstage.Init,
		)
	}
	meta, err := component.NewComponentMetadata[T]()
	if err != nil {
		return err
	}
	return w.components.RegisterComponent(meta)
}

func MustRegisterComponent[T types.Component](w *World) {
	if err := RegisterComponent[T](w); err != nil {
		panic(err)
	}
}

// NewSearch creates a search against the world state visible through wCtx.
// Use the filter package to describe the component makeup to match.
func NewSearch(wCtx engine.Context, componentFilter filter.ComponentFilter) *search.Search {
	return search.NewSearch(wCtx, componentFilter)
}

// Create spawns one entity carrying the given component values and returns
// its id. Every entity carries at least one component.
func Create(wCtx engine.Context, components ...types.Component) (types.EntityID, error) {
	// CreateMany owns the fatal-error handling for both paths.
	ids, err := CreateMany(wCtx, 1, components...)
	if err != nil {
		return 0, err
	}
	return ids[0], nil
}

// CreateMany spawns num entities, all carrying the given component values,
// and returns their ids. When spawn observers veto part of the batch, the
// surviving ids come back along with an error wrapping ErrSpawnRollback.
func CreateMany(wCtx engine.Context, num int, components ...types.Component) (entityIDs []types.EntityID, err error) {
	defer func() { panicOnFatalError(wCtx, err) }()
	if wCtx.IsReadOnly() {
		return nil, ErrEntityMutationOnReadOnly
	}
	return wCtx.StoreManager().CreateManyEntities(num, components...)
}

// SetComponent overwrites the value of component T on the entity.
func SetComponent[T types.Component](wCtx engine.Context, id types.EntityID, component *T) (err error) {
	defer func() { panicOnFatalError(wCtx, err) }()
	if wCtx.IsReadOnly() {
		return ErrEntityMutationOnReadOnly
	}
	var zero T
	meta, err := wCtx.GetComponentByName(zero.Name())
	if err != nil {
		return err
	}
	if err := wCtx.StoreManager().SetComponentForEntity(meta, id, component); err != nil {
		return err
	}
	wCtx.Logger().Debug().
		Uint64("entity_id", uint64(id)).
		Str("component_name", meta.Name()).
		Int("component_id", int(meta.ID())).
		Msg("entity updated")
	return nil
}

// GetComponent returns a copy of component T on the entity. An entity that is
// alive but does not carry T yields ErrComponentNotOnEntity.
func GetComponent[T types.Component](wCtx engine.Context, id types.EntityID) (comp *T, err error) {
	defer func() { panicOnFatalError(wCtx, err) }()
	var zero T
	meta, err := wCtx.GetComponentByName(zero.Name())
	if err != nil {
		return nil, err
	}
	value, err := wCtx.StoreReader().GetComponentForEntity(meta, id)
	if err != nil {
		return nil, err
	}
	switch v := value.(type) {
	case T:
		comp = &v
	case *T:
		comp = v
	default:
		return nil, eris.Errorf("type assertion for component %q failed", meta.Name())
	}
	return comp, nil
}

// UpdateComponent applies fn to the current value of component T and stores
// the result, a read-modify-write in one call.
func UpdateComponent[T types.Component](wCtx engine.Context, id types.EntityID, fn func(*T) *T) (err error) {
	defer func() { panicOnFatalError(wCtx, err) }()
	if wCtx.IsReadOnly() {
		return ErrEntityMutationOnReadOnly
	}
	val, err := GetComponent[T](wCtx, id)
	if err != nil {
		return err
	}
	return SetComponent[T](wCtx, id, fn(val))
}

// AddComponentTo adds component T, with its zero value, to an existing
// entity. The entity migrates to the archetype that includes T.
func AddComponentTo[T types.Component](wCtx engine.Context, id types.EntityID) (err error) {
	defer func() { panicOnFatalError(wCtx, err) }()
	if wCtx.IsReadOnly() {
		return ErrEntityMutationOnReadOnly
	}
	var zero T
	meta, err := wCtx.GetComponentByName(zero.Name())
	if err != nil {
		return err
	}
	return wCtx.StoreManager().AddComponentToEntity(meta, id, zero)
}

// RemoveComponentFrom removes component T from the entity. The entity
// migrates to the archetype without T; removing its last component is an
// error.
func RemoveComponentFrom[T types.Component](wCtx engine.Context, id types.EntityID) (err error) {
	defer func() { panicOnFatalError(wCtx, err) }()
	if wCtx.IsReadOnly() {
		return ErrEntityMutationOnReadOnly
	}
	var zero T
	meta, err := wCtx.GetComponentByName(zero.Name())
	if err != nil {
		return err
	}
	return wCtx.StoreManager().RemoveComponentFromEntity(meta, id)
}

// Remove despawns the entity. Its id goes stale immediately and the slot is
// recycled under a new generation.
func Remove(wCtx engine.Context, id types.EntityID) (err error) {
	defer func() { panicOnFatalError(wCtx, err) }()
	if wCtx.IsReadOnly() {
		return ErrEntityMutationOnReadOnly
	}
	return wCtx.StoreManager().RemoveEntity(id)
}
