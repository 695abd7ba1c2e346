package azimuth

import (
	"github.com/JeremyLoy/config"
	"github.com/rotisserie/eris"
	"github.com/rs/zerolog"

	"github.com/azimuth-engine/azimuth/dormancy"
	"github.com/azimuth-engine/azimuth/storage"
	"github.com/azimuth-engine/azimuth/types"
)

const (
	DefaultNamespace       = "azimuth-world"
	DefaultLogLevel        = "info"
	DefaultCellSize        = 50.0
	DefaultActiveDistance  = 300.0
	DefaultDormantDistance = 800.0
	DefaultUpdateInterval  = 10
)

var defaultConfig = WorldConfig{
	AzimuthNamespace:       DefaultNamespace,
	AzimuthLogLevel:        DefaultLogLevel,
	AzimuthLogPretty:       false,
	AzimuthCellSize:        DefaultCellSize,
	AzimuthActiveDistance:  DefaultActiveDistance,
	AzimuthDormantDistance: DefaultDormantDistance,
	AzimuthUpdateInterval:  DefaultUpdateInterval,
	AzimuthBatchSpawnLimit: storage.DefaultBatchSpawnLimit,
	StatsdAddress:          "",
}

// WorldConfig is loaded from the environment once in NewWorld and is immutable
// afterwards.
type WorldConfig struct {
	// AzimuthNamespace tags every log line and metric the world emits so
	// multiple worlds can coexist in one deployment.
	AzimuthNamespace string `config:"AZIMUTH_NAMESPACE"`

	// AzimuthLogLevel is any level accepted by zerolog.ParseLevel.
	AzimuthLogLevel string `config:"AZIMUTH_LOG_LEVEL"`

	// AzimuthLogPretty switches from JSON logs to the human-readable console writer.
	AzimuthLogPretty bool `config:"AZIMUTH_LOG_PRETTY"`

	// AzimuthCellSize is the edge length of one spatial grid cell.
	AzimuthCellSize float64 `config:"AZIMUTH_CELL_SIZE"`

	// AzimuthActiveDistance is the observer distance below which entities are
	// simulated every tick.
	AzimuthActiveDistance float64 `config:"AZIMUTH_ACTIVE_DISTANCE"`

	// AzimuthDormantDistance is the observer distance at and beyond which
	// entities are unloaded. Must be greater than the active distance.
	AzimuthDormantDistance float64 `config:"AZIMUTH_DORMANT_DISTANCE"`

	// AzimuthUpdateInterval is the cadence, in ticks, at which dormant
	// entities are simulated.
	AzimuthUpdateInterval uint64 `config:"AZIMUTH_UPDATE_INTERVAL"`

	// AzimuthBatchSpawnLimit caps how many entities one CreateMany call may request.
	AzimuthBatchSpawnLimit int `config:"AZIMUTH_BATCH_SPAWN_LIMIT"`

	// StatsdAddress is the address metrics are shipped to. Empty disables
	// metrics via the no-op client.
	StatsdAddress string `config:"AZIMUTH_STATSD_ADDRESS"`
}

// loadConfig loads the world config from environment variables, falling
// back to the defaults for anything unset.
func loadConfig() (*WorldConfig, error) {
	cfg := defaultConfig
	if err := config.FromEnv().To(&cfg); err != nil {
		return nil, eris.Wrap(err, "failed to load config from environment variables")
	}
	if err := cfg.Validate(); err != nil {
		return nil, eris.Wrap(err, "invalid world config")
	}
	return &cfg, nil
}

// Validate validates the world config.
func (w *WorldConfig) Validate() error {
	if err := types.Namespace(w.AzimuthNamespace).Validate(); err != nil {
		return err
	}
	if w.AzimuthLogLevel == "" {
		return eris.New("log level must not be empty")
	}
	if _, err := zerolog.ParseLevel(w.AzimuthLogLevel); err != nil {
		return eris.Wrapf(err, "log level %q is invalid", w.AzimuthLogLevel)
	}
	if w.AzimuthCellSize <= 0 {
		return eris.Errorf("cell size must be positive, got %v", w.AzimuthCellSize)
	}
	if _, err := dormancy.NewThresholds(w.AzimuthActiveDistance, w.AzimuthDormantDistance); err != nil {
		return err
	}
	if w.AzimuthUpdateInterval == 0 {
		return eris.New("update interval must be at least 1 tick")
	}
	if w.AzimuthBatchSpawnLimit <= 0 {
		return eris.Errorf("batch spawn limit must be positive, got %d", w.AzimuthBatchSpawnLimit)
	}
	return nil
}
