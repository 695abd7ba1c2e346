package filter

import (
	"github.com/azimuth-engine/azimuth/types"
)

type not struct {
	inner ComponentFilter
}

// Not matches archetypes the wrapped filter rejects.
func Not(inner ComponentFilter) ComponentFilter {
	return &not{inner: inner}
}

func (f *not) MatchesComponents(components []types.Component) bool {
	return !f.inner.MatchesComponents(components)
}
