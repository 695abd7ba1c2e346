package log

import (
	"slices"

	"github.com/rs/zerolog"

	"github.com/azimuth-engine/azimuth/types"
)

// Loggable is the view of a world the helpers in this package need: its
// registered components and system names.
type Loggable interface {
	GetRegisteredComponents() []types.ComponentMetadata
	GetRegisteredSystems() []string
}

func componentArray(components []types.ComponentMetadata) *zerolog.Array {
	arr := zerolog.Arr()
	for _, comp := range components {
		arr = arr.Dict(zerolog.Dict().
			Int("component_id", int(comp.ID())).
			Str("component_name", comp.Name()))
	}
	return arr
}

func appendComponents(ev *zerolog.Event, target Loggable) *zerolog.Event {
	components := target.GetRegisteredComponents()
	slices.SortFunc(components, func(a, b types.ComponentMetadata) int {
		return int(a.ID()) - int(b.ID())
	})
	ev.Int("total_components", len(components))
	return ev.Array("components", componentArray(components))
}

func appendSystems(ev *zerolog.Event, target Loggable) *zerolog.Event {
	systems := target.GetRegisteredSystems()
	ev.Int("total_systems", len(systems))
	arr := zerolog.Arr()
	for _, name := range systems {
		arr = arr.Str(name)
	}
	return ev.Array("systems", arr)
}

// Components emits one event listing the registered components.
func Components(logger *zerolog.Logger, target Loggable, level zerolog.Level) {
	appendComponents(logger.WithLevel(level), target).Send()
}

// System emits one event listing the registered system names.
func System(logger *zerolog.Logger, target Loggable, level zerolog.Level) {
	appendSystems(logger.WithLevel(level), target).Send()
}

// Entity emits one event describing an entity: its id, archetype, and the
// components it carries.
func Entity(
	logger *zerolog.Logger,
	level zerolog.Level, entityID types.EntityID, archID types.ArchetypeID,
	components []types.ComponentMetadata,
) {
	logger.WithLevel(level).
		Array("components", componentArray(components)).
		Uint64("entity_id", uint64(entityID)).
		Int("archetype_id", int(archID)).
		Send()
}

// World emits one event describing the whole world, components and systems
// both. Worlds log this at startup.
func World(logger *zerolog.Logger, target Loggable, level zerolog.Level) {
	ev := logger.WithLevel(level)
	ev = appendComponents(ev, target)
	ev = appendSystems(ev, target)
	ev.Send()
}

// CreateSystemLogger returns a sub logger tagged with the system's name, so
// every line a system emits carries {"system": name}.
func CreateSystemLogger(logger *zerolog.Logger, systemName string) *zerolog.Logger {
	sub := logger.With().Str("system", systemName).Logger()
	return &sub
}
