package azimuth

import (
	"time"

	"github.com/azimuth-engine/azimuth/spatial"
	"github.com/azimuth-engine/azimuth/storage"
)

// WorldOption adjusts how a World is built and run. Options apply inside
// NewWorld, after config loads and before any system runs.
type WorldOption struct {
	worldOption func(*World)
}

// WithTickChannel drives the game loop from ch: one tick per value received.
// The default is a 1 second interval; tests usually pass their own channel to
// step ticks by hand.
func WithTickChannel(ch <-chan time.Time) WorldOption {
	return WorldOption{
		worldOption: func(world *World) {
			world.tickChannel = ch
		},
	}
}

// WithTickDoneChannel sends each completed tick number on ch as it finishes,
// which lets a test make assertions at a known tick boundary.
func WithTickDoneChannel(ch chan<- uint64) WorldOption {
	return WorldOption{
		worldOption: func(world *World) {
			world.tickDoneChannel = ch
		},
	}
}

// WithObserver sets the initial reference point dormancy classification is
// graded against, as if SetObserver had been called before the first tick.
func WithObserver(pos spatial.Position) WorldOption {
	return WorldOption{
		worldOption: func(world *World) {
			world.SetObserver(pos)
		},
	}
}

// WithEntityObserver subscribes an observer to entity lifecycle events
// before any entities exist. A spawn observer returning an error vetoes the
// spawn and rolls the entity back.
func WithEntityObserver(observer storage.EntityObserver) WorldOption {
	return WorldOption{
		worldOption: func(world *World) {
			world.store.AddObserver(observer)
		},
	}
}

// WithPrettyLog enables the console log writer regardless of the configured
// log format.
func WithPrettyLog() WorldOption {
	return WorldOption{
		worldOption: func(world *World) {
			world.prettyLog = true
		},
	}
}
