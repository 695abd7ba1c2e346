package filter

import (
	"github.com/azimuth-engine/azimuth/types"
)

type all struct{}

// All matches every archetype, whatever components it carries.
func All() ComponentFilter {
	return &all{}
}

func (f *all) MatchesComponents(_ []types.Component) bool {
	return true
}
