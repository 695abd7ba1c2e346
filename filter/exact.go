package filter

import (
	"github.com/azimuth-engine/azimuth/types"
)

type exact struct {
	components []types.Component
}

// Exact matches archetypes whose component set is exactly the named
// components, no more and no fewer.
func Exact(components ...ComponentWrapper) ComponentFilter {
	return &exact{components: unwrap(components)}
}

func (f *exact) MatchesComponents(components []types.Component) bool {
	if len(components) != len(f.components) {
		return false
	}
	for _, have := range components {
		if !MatchComponent(f.components, have) {
			return false
		}
	}
	return true
}
