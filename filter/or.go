package filter

import (
	"github.com/azimuth-engine/azimuth/types"
)

type or struct {
	filters []ComponentFilter
}

// Or matches archetypes that satisfy at least one sub-filter.
func Or(filters ...ComponentFilter) ComponentFilter {
	return &or{filters: filters}
}

func (f *or) MatchesComponents(components []types.Component) bool {
	for _, sub := range f.filters {
		if sub.MatchesComponents(components) {
			return true
		}
	}
	return false
}
