// Package dormancy grades entities by their distance to an observer so
// simulation systems can spend their budget near the action. Entities close
// to the observer are Active and update every tick, entities in a middle
// band are Dormant and update on a fixed cadence, and entities beyond that
// are Unloaded and skipped entirely.
package dormancy

import "github.com/rotisserie/eris"

// ErrMissingReference is returned when a classification pass runs before any
// observer reference point has been set.
var ErrMissingReference = eris.New("no observer reference point is set")

// Tier is an entity's level of simulation detail.
type Tier uint8

const (
	TierActive Tier = iota
	TierDormant
	TierUnloaded
)

func (t Tier) String() string {
	switch t {
	case TierActive:
		return "active"
	case TierDormant:
		return "dormant"
	case TierUnloaded:
		return "unloaded"
	}
	return "unknown"
}

// Thresholds holds the two distances that split the world into tiers around
// the observer. Comparisons happen in squared space, so the squares are
// precomputed once here instead of per entity.
type Thresholds struct {
	activeSq  float64
	dormantSq float64
}

// NewThresholds builds classification thresholds. The active distance must be
// positive and strictly inside the dormant distance, otherwise the middle
// band would be empty or inverted.
func NewThresholds(activeDistance, dormantDistance float64) (Thresholds, error) {
	if activeDistance <= 0 {
		return Thresholds{}, eris.Errorf("active distance must be positive, got %v", activeDistance)
	}
	if dormantDistance <= activeDistance {
		return Thresholds{}, eris.Errorf(
			"dormant distance %v must be greater than active distance %v",
			dormantDistance, activeDistance,
		)
	}
	return Thresholds{
		activeSq:  activeDistance * activeDistance,
		dormantSq: dormantDistance * dormantDistance,
	}, nil
}

// Classify grades a squared distance to the observer. An entity sitting
// exactly on a threshold falls into the farther tier. Classification is pure
// distance: an entity jumping from far to near flips straight to Active with
// no intermediate states.
func (th Thresholds) Classify(distanceSq float64) Tier {
	switch {
	case distanceSq < th.activeSq:
		return TierActive
	case distanceSq < th.dormantSq:
		return TierDormant
	default:
		return TierUnloaded
	}
}

// ComponentName is the name the Dormancy component registers under.
const ComponentName = "dormancy"

// Dormancy is the component carrying an entity's current tier. The embedded
// frame counter advances once per classification pass and drives the dormant
// update cadence.
type Dormancy struct {
	Tier           Tier
	LastChangeTick uint64
	FrameCounter   uint64
}

func (Dormancy) Name() string {
	return ComponentName
}

// Transition moves the component to tier, recording the tick when the tier
// actually changed and restarting the frame counter so the dormant cadence
// fires on the entry step. It reports whether a change happened.
func (d *Dormancy) Transition(tier Tier, tick uint64) bool {
	if d.Tier == tier {
		return false
	}
	d.Tier = tier
	d.LastChangeTick = tick
	d.FrameCounter = 0
	return true
}

// ShouldUpdate reports whether a simulation system should process the entity
// this pass. Active entities always update, Unloaded entities never do, and
// Dormant entities update once every updateInterval passes.
func (d Dormancy) ShouldUpdate(updateInterval uint64) bool {
	switch d.Tier {
	case TierActive:
		return true
	case TierUnloaded:
		return false
	default:
		if updateInterval <= 1 {
			return true
		}
		return d.FrameCounter%updateInterval == 0
	}
}
