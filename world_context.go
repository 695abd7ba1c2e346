package azimuth

import (
	"github.com/rs/zerolog"

	"github.com/azimuth-engine/azimuth/dormancy"
	"github.com/azimuth-engine/azimuth/spatial"
	"github.com/azimuth-engine/azimuth/storage"
	"github.com/azimuth-engine/azimuth/types"
	"github.com/azimuth-engine/azimuth/types/engine"
)

// interface guard
var _ engine.Context = (*worldContext)(nil)

// worldContext is the engine.Context handed to systems and queries. Systems
// running inside a tick get a mutable context; queries and inspection
// surfaces get a read-only one whose store view rejects mutation.
type worldContext struct {
	world    *World
	logger   *zerolog.Logger
	readOnly bool
}

// newWorldContextForTick returns the mutable context systems run against
// during a tick.
func newWorldContextForTick(world *World) engine.Context {
	return &worldContext{
		world:    world,
		logger:   &world.logger,
		readOnly: false,
	}
}

// NewWorldContext returns a mutable context for code that runs outside the
// tick loop, such as tests mutating entities between ticks. The store
// serializes access, so using it concurrently with a running tick is safe.
func NewWorldContext(world *World) engine.Context {
	return &worldContext{
		world:    world,
		logger:   &world.logger,
		readOnly: false,
	}
}

// NewReadOnlyWorldContext returns a context whose store surface cannot be
// used to modify entities. Queries and debug endpoints use it.
func NewReadOnlyWorldContext(world *World) engine.Context {
	return &worldContext{
		world:    world,
		logger:   &world.logger,
		readOnly: true,
	}
}

// Timestamp returns the UNIX time the current tick started at.
func (w *worldContext) Timestamp() uint64 {
	return w.world.timestamp.Load()
}

func (w *worldContext) CurrentTick() uint64 {
	return w.world.CurrentTick()
}

func (w *worldContext) Logger() *zerolog.Logger {
	return w.logger
}

// SetLogger swaps the context's logger. The system manager uses this to tag
// log lines with the name of the system currently running.
func (w *worldContext) SetLogger(logger zerolog.Logger) {
	w.logger = &logger
}

func (w *worldContext) Namespace() string {
	return w.world.Namespace()
}

func (w *worldContext) ObserverPosition() (spatial.Position, error) {
	return w.world.ObserverPosition()
}

func (w *worldContext) DormancyThresholds() dormancy.Thresholds {
	return w.world.thresholds
}

func (w *worldContext) UpdateInterval() uint64 {
	return w.world.updateInterval
}

func (w *worldContext) GetComponentByName(name string) (types.ComponentMetadata, error) {
	return w.world.GetComponentByName(name)
}

func (w *worldContext) StoreReader() storage.Reader {
	if w.readOnly {
		return w.world.store.ToReadOnly()
	}
	return w.world.store
}

func (w *worldContext) StoreManager() storage.Manager {
	return w.world.store
}

func (w *worldContext) IsReadOnly() bool {
	return w.readOnly
}
