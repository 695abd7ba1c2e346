package filter

import (
	"github.com/azimuth-engine/azimuth/types"
)

type contains struct {
	components []types.Component
}

// Contains matches archetypes that carry at least the named components, the
// superset match every archetype query is built on.
func Contains(components ...ComponentWrapper) ComponentFilter {
	return &contains{components: unwrap(components)}
}

func (f *contains) MatchesComponents(components []types.Component) bool {
	for _, want := range f.components {
		if !MatchComponent(components, want) {
			return false
		}
	}
	return true
}
