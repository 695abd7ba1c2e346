package azimuth

import (
	"github.com/rotisserie/eris"

	"github.com/azimuth-engine/azimuth/dormancy"
	"github.com/azimuth-engine/azimuth/filter"
	"github.com/azimuth-engine/azimuth/spatial"
	"github.com/azimuth-engine/azimuth/types"
	"github.com/azimuth-engine/azimuth/types/engine"
)

// DormancyClassifierSystem grades every entity carrying both Position and
// Dormancy against the observer reference point. It is the first system
// registered on every world, so game systems always see tiers graded on the
// current tick.
//
// The frame counter advances before grading, and a tier change resets it to
// zero. An entity entering the Dormant tier therefore satisfies ShouldUpdate
// on its entry pass instead of idling for a full interval first.
//
// When no observer has been set the pass is skipped outright: tiers keep
// their last value rather than being graded against a made-up reference.
func DormancyClassifierSystem(wCtx engine.Context) error {
	observer, err := wCtx.ObserverPosition()
	if err != nil {
		if eris.Is(err, dormancy.ErrMissingReference) {
			wCtx.Logger().Debug().Msg("no observer set, dormancy pass skipped")
			return nil
		}
		return err
	}

	thresholds := wCtx.DormancyThresholds()
	currentTick := wCtx.CurrentTick()

	var eachErr error
	err = NewSearch(wCtx, filter.Contains(
		filter.Component[spatial.Position](),
		filter.Component[dormancy.Dormancy](),
	)).Each(func(id types.EntityID) bool {
		pos, err := GetComponent[spatial.Position](wCtx, id)
		if err != nil {
			eachErr = err
			return false
		}
		d, err := GetComponent[dormancy.Dormancy](wCtx, id)
		if err != nil {
			eachErr = err
			return false
		}

		d.FrameCounter++
		tier := thresholds.Classify(pos.DistanceSquaredTo(observer))
		if d.Transition(tier, currentTick) {
			wCtx.Logger().Debug().
				Uint64("entity_id", uint64(id)).
				Str("tier", tier.String()).
				Msg("dormancy tier changed")
		}
		if err := SetComponent[dormancy.Dormancy](wCtx, id, d); err != nil {
			eachErr = err
			return false
		}
		return true
	})
	if err != nil {
		return err
	}
	return eachErr
}
