package azimuth

import (
	"encoding/json"
	"errors"
	"os"
	"os/signal"
	"sync"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/azimuth-engine/azimuth/aql"
	"github.com/azimuth-engine/azimuth/component"
	"github.com/azimuth-engine/azimuth/dormancy"
	"github.com/azimuth-engine/azimuth/filter"
	azlog "github.com/azimuth-engine/azimuth/log"
	"github.com/azimuth-engine/azimuth/search"
	"github.com/azimuth-engine/azimuth/spatial"
	"github.com/azimuth-engine/azimuth/statsd"
	"github.com/azimuth-engine/azimuth/storage"
	"github.com/azimuth-engine/azimuth/types"
	"github.com/azimuth-engine/azimuth/worldstage"
)

var _ azlog.Loggable = &World{}

type World struct {
	id        string
	namespace types.Namespace
	logger    zerolog.Logger
	prettyLog bool

	// Spatial awareness
	thresholds     dormancy.Thresholds
	updateInterval uint64
	observerMu     sync.RWMutex
	observer       *spatial.Position

	// Storage
	store *storage.Store

	// Core modules
	stage      *worldstage.Manager
	systems    *SystemManager
	components *component.Manager

	// Tick
	tick            *atomic.Uint64
	timestamp       *atomic.Uint64
	tickChannel     <-chan time.Time
	tickDoneChannel chan<- uint64
	// Channels registered here are closed by the game loop when the next
	// tick completes. WaitForNextTick blocks on one.
	tickWaiters chan chan struct{}
}

// NewWorld creates a new World object backed by the in-memory archetype store.
// Configuration is loaded from AZIMUTH_* environment variables, then the given
// options are applied on top. The Position and Dormancy components and the
// dormancy classification system are registered on every world.
func NewWorld(opts ...WorldOption) (*World, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, eris.Wrap(err, "failed to load config to start world")
	}

	thresholds, err := dormancy.NewThresholds(cfg.AzimuthActiveDistance, cfg.AzimuthDormantDistance)
	if err != nil {
		return nil, err
	}

	tickCounter := new(atomic.Uint64)
	store := storage.NewStore(spatial.NewGrid(cfg.AzimuthCellSize), tickCounter)
	store.SetBatchSpawnLimit(cfg.AzimuthBatchSpawnLimit)

	world := &World{
		id:        uuid.New().String(),
		namespace: types.Namespace(cfg.AzimuthNamespace),
		prettyLog: cfg.AzimuthLogPretty,

		// Spatial awareness
		thresholds:     thresholds,
		updateInterval: cfg.AzimuthUpdateInterval,

		// Storage
		store: store,

		// Core modules
		stage:      worldstage.NewManager(),
		systems:    NewSystemManager(),
		components: component.NewManager(component.NewMapSchemaStorage()),

		// Tick
		tick:            tickCounter,
		timestamp:       new(atomic.Uint64),
		tickChannel:     time.Tick(time.Second), //nolint:staticcheck // world lives for the process.
		tickDoneChannel: nil,                    // options may set this
		tickWaiters:     make(chan chan struct{}),
	}

	for _, o := range opts {
		if o.worldOption != nil {
			o.worldOption(world)
		}
	}

	world.setupLogger(cfg.AzimuthLogLevel)
	world.store.InjectLogger(&world.logger)

	// Every world carries the spatial awareness components and the
	// classification system that drives them.
	if err := RegisterComponent[spatial.Position](world); err != nil {
		return nil, err
	}
	if err := RegisterComponent[dormancy.Dormancy](world); err != nil {
		return nil, err
	}
	err = world.systems.RegisterSystemWithAccess(DormancyClassifierSystem, AccessSet{
		Reads:  []string{spatial.ComponentName},
		Writes: []string{dormancy.ComponentName},
	})
	if err != nil {
		return nil, err
	}

	if cfg.StatsdAddress != "" {
		tags := []string{"azimuth_namespace:" + cfg.AzimuthNamespace}
		if err := statsd.Init(cfg.StatsdAddress, tags); err != nil {
			return nil, eris.Wrap(err, "statsd client failed to start")
		}
	} else {
		world.logger.Warn().Msg("statsd is disabled")
	}

	world.logger.Info().Msg("Created a new world")
	return world, nil
}

// setupLogger builds the world logger that lifecycle logs and tick contexts
// derive from. The level string was already validated with the config.
func (w *World) setupLogger(level string) {
	logLevel, err := zerolog.ParseLevel(level)
	if err != nil {
		logLevel = zerolog.InfoLevel
	}
	logger := log.Logger
	if w.prettyLog {
		logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	}
	w.logger = logger.Level(logLevel).With().
		Str("world_id", w.id).
		Str("namespace", w.Namespace()).
		Logger()
}

func (w *World) CurrentTick() uint64 {
	return w.tick.Load()
}

// doTick performs one game tick: it classifies nothing by itself, it simply
// runs every registered system in order against a fresh tick context.
func (w *World) doTick(timestamp uint64) error {
	// Wall-clock start for the tick duration metric. The timestamp argument
	// is the simulation time systems see through Context.Timestamp().
	start := time.Now()

	// A tick may run while the world is Running, or once more while it is
	// ShuttingDown to drain the loop.
	if s := w.stage.Current(); s != worldstage.Running && s != worldstage.ShuttingDown {
		return eris.Errorf("invalid world state to tick: %s", s)
	}

	// A panic below is re-raised after logging which tick and which system
	// it happened in.
	defer w.handleTickPanic()

	w.logger.Info().Int("tick", int(w.CurrentTick())).Msg("Tick started")

	w.timestamp.Store(timestamp)
	wCtx := newWorldContextForTick(w)

	// Init systems are folded in by the manager when the tick is 0.
	if err := w.systems.RunSystems(wCtx); err != nil {
		return err
	}

	// The tick number only advances after every system succeeded.
	w.tick.Add(1)

	statsd.EmitTickStat(start, "full_tick")
	statsd.EmitEntityCountStat(w.store.Len())

	return nil
}

// StartGame closes registration, loads component metadata into the store,
// and runs the game loop: one tick per value on the tick channel. On success
// it blocks until the world has shut down, so callers usually run it in its
// own goroutine.
func (w *World) StartGame() error {
	// Init -> Starting. Only the first caller gets past this.
	if !w.stage.CompareAndSwap(worldstage.Init, worldstage.Starting) {
		return errors.New("game has already been started")
	}

	// Load the registered component metadata into the store so entities can
	// be spawned against it.
	if err := w.store.RegisterComponents(w.components.GetComponents()); err != nil {
		return err
	}

	w.stage.Store(worldstage.Ready)

	// The dormancy classifier is always registered, so a count of one means
	// the game itself brought no systems.
	if len(w.systems.GetRegisteredSystemNames()) <= 1 {
		w.logger.Warn().Msg("No game systems registered")
	}

	azlog.World(&w.logger, w, zerolog.InfoLevel)

	// Ready -> Running
	w.stage.Store(worldstage.Running)

	w.startGameLoop(w.tickChannel, w.tickDoneChannel)

	// SIGINT and SIGTERM also shut the loop down.
	w.handleShutdown()
	<-w.stage.NotifyOnStage(worldstage.ShutDown)
	return nil
}

func (w *World) startGameLoop(tickStart <-chan time.Time, tickDone chan<- uint64) {
	w.logger.Info().Msg("Game loop started")
	go func() {
		var waiters []chan struct{}
		for {
			select {
			case _, ok := <-tickStart:
				if !ok {
					panic("tick channel closed out from under the game loop")
				}
				w.tickOnce(tickDone)
				releaseWaiters(waiters)
				waiters = waiters[:0]
			case <-w.stage.NotifyOnStage(worldstage.ShuttingDown):
				w.drainTickWaiters()
				releaseWaiters(waiters)
				if tickDone != nil {
					close(tickDone)
				}
				w.stage.Store(worldstage.ShutDown)
				return
			case ch := <-w.tickWaiters:
				waiters = append(waiters, ch)
			}
		}
	}()
}

func (w *World) tickOnce(tickDone chan<- uint64) {
	tickNumber := w.CurrentTick()
	// A tick error is unrecoverable state corruption, so it terminates the
	// process here. The panic value is the full error serialized as JSON;
	// the trace that matters is in there, not in the panic's own stack.
	if err := w.doTick(uint64(time.Now().Unix())); err != nil {
		blob, marshalErr := json.Marshal(eris.ToJSON(err, true))
		if marshalErr != nil {
			panic(marshalErr)
		}
		panic(string(blob))
	}
	if tickDone != nil {
		tickDone <- tickNumber
	}
}

func (w *World) IsGameRunning() bool {
	return w.stage.Current() == worldstage.Running
}

// Shutdown stops the game loop and waits for it to drain. Calling it again
// while another shutdown is in flight just waits for that one, so concurrent
// calls are safe; calling it on a world that never started is an error.
func (w *World) Shutdown() error {
	w.logger.Info().Msg("Shutting down game loop")
	if !w.stage.CompareAndSwap(worldstage.Running, worldstage.ShuttingDown) {
		select {
		case <-w.stage.NotifyOnStage(worldstage.ShuttingDown):
			// Another goroutine won the race; ride along until the world
			// is fully down.
			<-w.stage.NotifyOnStage(worldstage.ShutDown)
			return nil
		default:
		}
		return errors.New("shutdown attempted before the world was started")
	}

	<-w.stage.NotifyOnStage(worldstage.ShutDown)

	if err := statsd.Close(); err != nil {
		w.logger.Warn().Err(err).Msg("failed to close statsd client")
	}

	w.logger.Info().Msg("Game loop shut down")
	return nil
}

func (w *World) handleShutdown() {
	sigCh := make(chan os.Signal, 1)
	go func() {
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		<-sigCh
		if err := w.Shutdown(); err != nil {
			w.logger.Err(err).Msg("shutdown on signal failed")
		}
	}()
}

func (w *World) handleTickPanic() {
	if r := recover(); r != nil {
		w.logger.Error().
			Uint64("tick", w.CurrentTick()).
			Str("system", w.systems.GetCurrentSystem()).
			Msg("tick panicked")
		panic(r)
	}
}

func releaseWaiters(waiters []chan struct{}) {
	for _, ch := range waiters {
		close(ch)
	}
}

// drainTickWaiters keeps closing channels registered for the
// next tick once the loop is gone, so WaitForNextTick calls made after a
// shutdown return instead of blocking forever.
func (w *World) drainTickWaiters() {
	go func() {
		for ch := range w.tickWaiters {
			close(ch)
		}
	}()
}

// WaitForNextTick blocks until a tick completes and reports whether one did.
// It returns false when the world shut down while waiting.
func (w *World) WaitForNextTick() (success bool) {
	before := w.CurrentTick()
	waitCh := make(chan struct{})
	w.tickWaiters <- waitCh
	<-waitCh
	return w.CurrentTick() > before
}

func (w *World) Namespace() string {
	return string(w.namespace)
}

// SetObserver sets the reference point dormancy is graded against, typically
// the player or camera position. It is safe to call from systems mid-tick.
func (w *World) SetObserver(pos spatial.Position) {
	w.observerMu.Lock()
	defer w.observerMu.Unlock()
	w.observer = &pos
}

// AddEntityObserver subscribes an observer to entity lifecycle events. See
// WithEntityObserver for subscribing before any entities exist.
func (w *World) AddEntityObserver(observer storage.EntityObserver) {
	w.store.AddObserver(observer)
}

// ObserverPosition returns the current reference point. It returns
// dormancy.ErrMissingReference when no observer has been set yet.
func (w *World) ObserverPosition() (spatial.Position, error) {
	w.observerMu.RLock()
	defer w.observerMu.RUnlock()
	if w.observer == nil {
		return spatial.Position{}, eris.Wrap(dormancy.ErrMissingReference, "cannot resolve observer")
	}
	return *w.observer, nil
}

// Search runs a component filter query against a read-only view of the world.
func (w *World) Search(componentFilter filter.ComponentFilter) *search.Search {
	return search.NewSearch(NewReadOnlyWorldContext(w), componentFilter)
}

// QuerySphere returns the ids of all entities whose position lies within
// radius of center.
func (w *World) QuerySphere(center spatial.Position, radius float64) []types.EntityID {
	return w.store.QuerySphere(center, radius)
}

// QueryBox returns the ids of all entities whose position lies within the
// axis-aligned box spanned by min and max.
func (w *World) QueryBox(min, max spatial.Position) []types.EntityID {
	return w.store.QueryBox(min, max)
}

func (w *World) StoreReader() storage.Reader {
	return w.store.ToReadOnly()
}

func (w *World) GetRegisteredComponents() []types.ComponentMetadata {
	return w.components.GetComponents()
}

func (w *World) GetRegisteredSystems() []string {
	return w.systems.GetRegisteredSystemNames()
}

func (w *World) GetComponentByName(name string) (types.ComponentMetadata, error) {
	return w.components.GetComponentByName(name)
}

// SystemAccessSets returns the declared component access of every registered
// system, keyed by system name.
func (w *World) SystemAccessSets() map[string]AccessSet {
	return w.systems.AccessSets()
}

// EvalAQL evaluates an awareness query language expression against a
// read-only view of the world and returns the matched entities with their
// component values marshaled to JSON.
func (w *World) EvalAQL(aqlQuery string) ([]aql.QueryResponse, error) {
	resultFilter, err := aql.Parse(aqlQuery, w.GetComponentByName)
	if err != nil {
		return nil, err
	}

	wCtx := NewReadOnlyWorldContext(w)
	result := make([]aql.QueryResponse, 0)
	var eachErr error
	searchErr := search.NewSearch(wCtx, resultFilter).Each(func(id types.EntityID) bool {
		components, err := wCtx.StoreReader().GetComponentTypesForEntity(id)
		if err != nil {
			eachErr = err
			return false
		}
		resultElement := aql.QueryResponse{
			ID:   id,
			Data: make([]json.RawMessage, 0, len(components)),
		}
		for _, c := range components {
			data, err := wCtx.StoreReader().GetComponentForEntityInRawJSON(c, id)
			if err != nil {
				eachErr = err
				return false
			}
			resultElement.Data = append(resultElement.Data, data)
		}
		result = append(result, resultElement)
		return true
	})
	if searchErr != nil {
		return nil, searchErr
	}
	if eachErr != nil {
		return nil, eachErr
	}
	return result, nil
}

// DebugState returns the full component state of every live entity. It is
// meant for inspection tooling and tests, not for hot paths.
func (w *World) DebugState() ([]types.EntityState, error) {
	result := make([]types.EntityState, 0)
	reader := w.StoreReader()
	var eachErr error
	searchErr := w.Search(filter.All()).Each(func(id types.EntityID) bool {
		components, err := reader.GetComponentTypesForEntity(id)
		if err != nil {
			eachErr = err
			return false
		}
		state := make(map[string]json.RawMessage, len(components))
		for _, c := range components {
			data, err := reader.GetComponentForEntityInRawJSON(c, id)
			if err != nil {
				eachErr = err
				return false
			}
			state[c.Name()] = data
		}
		result = append(result, types.EntityState{ID: id, Components: state})
		return true
	})
	if searchErr != nil {
		return nil, searchErr
	}
	if eachErr != nil {
		return nil, eachErr
	}
	return result, nil
}
