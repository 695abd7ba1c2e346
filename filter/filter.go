// Package filter describes which archetypes a query matches. Filters look
// only at an archetype's component makeup, never at component values, so a
// match decision is valid for every entity in the table.
package filter

import (
	"github.com/azimuth-engine/azimuth/types"
)

// ComponentFilter decides whether an archetype table, described by the set of
// components its entities carry, satisfies a query.
type ComponentFilter interface {
	// MatchesComponents returns true if the component set matches the filter.
	MatchesComponents(components []types.Component) bool
}

// ComponentWrapper carries a zero value of a component type into Contains and
// Exact. Build one with Component[T]; the zero value is only ever asked for
// its Name.
type ComponentWrapper struct {
	Component types.Component
}

// Component names component type T in a filter expression.
func Component[T types.Component]() ComponentWrapper {
	var zero T
	return ComponentWrapper{Component: zero}
}

// MatchComponent reports whether the slice holds a component with the same
// name as target. Names identify component types everywhere in the engine.
func MatchComponent(components []types.Component, target types.Component) bool {
	for _, c := range components {
		if target.Name() == c.Name() {
			return true
		}
	}
	return false
}

func unwrap(wrapped []ComponentWrapper) []types.Component {
	components := make([]types.Component, 0, len(wrapped))
	for _, w := range wrapped {
		components = append(components, w.Component)
	}
	return components
}
