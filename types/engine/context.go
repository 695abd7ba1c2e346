package engine

import (
	"github.com/rs/zerolog"

	"github.com/azimuth-engine/azimuth/dormancy"
	"github.com/azimuth-engine/azimuth/spatial"
	"github.com/azimuth-engine/azimuth/storage"
	"github.com/azimuth-engine/azimuth/types"
)

// Context is the surface a system or query sees during a tick. It carries
// tick metadata, the logger for the current system, world configuration the
// simulation layer cares about, and access to the store.
type Context interface {
	// Timestamp returns the UNIX time the current tick started at.
	Timestamp() uint64

	// CurrentTick returns the number of the tick in progress.
	CurrentTick() uint64

	// Logger returns the logger systems and queries should emit through. It
	// is already tagged with the running system's name.
	Logger() *zerolog.Logger

	// SetLogger swaps the logger an existing context hands out.
	SetLogger(logger zerolog.Logger)

	// Namespace identifies which world this context belongs to.
	Namespace() string

	// ObserverPosition returns the reference point spatial awareness is
	// graded against. It returns dormancy.ErrMissingReference when no
	// observer has been set yet.
	ObserverPosition() (spatial.Position, error)

	// DormancyThresholds returns the distance thresholds entities are
	// graded against.
	DormancyThresholds() dormancy.Thresholds

	// UpdateInterval returns the cadence, in ticks, at which dormant
	// entities are simulated.
	UpdateInterval() uint64

	// GetComponentByName looks up registered component metadata by name.
	GetComponentByName(name string) (types.ComponentMetadata, error)

	// StoreReader returns the read-only view of the store.
	StoreReader() storage.Reader

	// StoreManager returns the full store surface. It must not be used from
	// a read-only context.
	StoreManager() storage.Manager

	// IsReadOnly reports whether mutations through this context are
	// disallowed.
	IsReadOnly() bool
}
