package filter

import (
	"github.com/azimuth-engine/azimuth/types"
)

type and struct {
	filters []ComponentFilter
}

// And matches archetypes that satisfy every sub-filter.
func And(filters ...ComponentFilter) ComponentFilter {
	return &and{filters: filters}
}

func (f *and) MatchesComponents(components []types.Component) bool {
	for _, sub := range f.filters {
		if !sub.MatchesComponents(components) {
			return false
		}
	}
	return true
}
