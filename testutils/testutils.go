// Package testutils helps tests stand up short-lived worlds whose tick loop
// is driven by hand instead of by a timer.
package testutils

import (
	"os"
	"sync"
	"testing"
	"time"

	"github.com/azimuth-engine/azimuth"
)

// NewTestWorld creates a World object suitable for unit tests. World logs are
// silenced unless the test sets AZIMUTH_LOG_LEVEL itself.
func NewTestWorld(t testing.TB, opts ...azimuth.WorldOption) *azimuth.World {
	if os.Getenv("AZIMUTH_LOG_LEVEL") == "" {
		t.Setenv("AZIMUTH_LOG_LEVEL", "error")
	}
	world, err := azimuth.NewWorld(opts...)
	if err != nil {
		t.Fatalf("unable to initialize test world: %v", err)
	}
	return world
}

// MakeWorldAndTicker creates a test world whose game loop is driven by the
// returned doTick function. The world is started on the first doTick call and
// shut down automatically when the test finishes.
func MakeWorldAndTicker(t *testing.T, opts ...azimuth.WorldOption) (world *azimuth.World, doTick func()) {
	tickStart := make(chan time.Time)
	tickDone := make(chan uint64)
	opts = append(opts, azimuth.WithTickChannel(tickStart), azimuth.WithTickDoneChannel(tickDone))
	world = NewTestWorld(t, opts...)

	t.Cleanup(func() {
		if world.IsGameRunning() {
			if err := world.Shutdown(); err != nil {
				t.Errorf("unable to shut down world: %v", err)
			}
		}
	})

	var startOnce sync.Once
	doTick = func() {
		timeout := time.After(5 * time.Second) //nolint:gomnd // test timeout.
		startOnce.Do(func() {
			startErr := make(chan error)
			go func() {
				// StartGame blocks until shutdown, so hearing from it
				// before the world reports running means startup failed.
				// The error goes out on a channel because t.Fatal off the
				// main goroutine would not stop the test until it ends on
				// its own.
				startErr <- world.StartGame()
			}()
			for !world.IsGameRunning() {
				select {
				case err := <-startErr:
					t.Fatalf("world failed to start: %v", err)
				case <-timeout:
					t.Fatal("world did not reach running in time")
				default:
					time.Sleep(10 * time.Millisecond) //nolint:gomnd // startup poll.
				}
			}
		})

		select {
		case tickStart <- time.Now():
		case <-timeout:
			t.Fatal("the game loop never picked up the tick")
		}
		select {
		case <-tickDone:
		case <-timeout:
			t.Fatal("the tick never finished")
		}
	}

	return world, doTick
}
