package azimuth_test

import (
	"testing"
	"time"

	"github.com/azimuth-engine/azimuth"
	"github.com/azimuth-engine/azimuth/assert"
	"github.com/azimuth-engine/azimuth/dormancy"
	"github.com/azimuth-engine/azimuth/spatial"
	"github.com/azimuth-engine/azimuth/testutils"
	"github.com/azimuth-engine/azimuth/types"
	"github.com/azimuth-engine/azimuth/types/engine"
)

type Probe struct {
	Fuel float64
}

func (Probe) Name() string { return "probe" }

func tierOf(t *testing.T, world *azimuth.World, id types.EntityID) dormancy.Dormancy {
	t.Helper()
	d, err := azimuth.GetComponent[dormancy.Dormancy](azimuth.NewReadOnlyWorldContext(world), id)
	assert.NilError(t, err)
	return *d
}

func TestDormancyTiersFollowTheObserver(t *testing.T) {
	world, doTick := testutils.MakeWorldAndTicker(t, azimuth.WithObserver(spatial.Position{}))

	var near, mid, far types.EntityID
	assert.NilError(t, azimuth.RegisterInitSystems(world, func(wCtx engine.Context) error {
		var err error
		near, err = azimuth.Create(wCtx, spatial.Position{X: 250}, dormancy.Dormancy{})
		assert.NilError(t, err)
		mid, err = azimuth.Create(wCtx, spatial.Position{X: 500}, dormancy.Dormancy{})
		assert.NilError(t, err)
		far, err = azimuth.Create(wCtx, spatial.Position{X: 1000}, dormancy.Dormancy{})
		assert.NilError(t, err)
		return nil
	}))

	doTick()

	assert.Equal(t, dormancy.TierActive, tierOf(t, world, near).Tier)
	assert.Equal(t, dormancy.TierDormant, tierOf(t, world, mid).Tier)
	assert.Equal(t, dormancy.TierUnloaded, tierOf(t, world, far).Tier)

	// Teleport the far entity next to the observer. There is no intermediate
	// tier on the way in: it flips straight to Active.
	wCtx := azimuth.NewWorldContext(world)
	assert.NilError(t, azimuth.SetComponent(wCtx, far, &spatial.Position{X: 250}))

	doTick()

	got := tierOf(t, world, far)
	assert.Equal(t, dormancy.TierActive, got.Tier)
	assert.Equal(t, uint64(1), got.LastChangeTick)
}

func TestDormancyBoundariesAreStrict(t *testing.T) {
	world, doTick := testutils.MakeWorldAndTicker(t, azimuth.WithObserver(spatial.Position{}))

	// Entities sitting exactly on a threshold fall into the farther tier.
	var onActive, onDormant types.EntityID
	assert.NilError(t, azimuth.RegisterInitSystems(world, func(wCtx engine.Context) error {
		var err error
		onActive, err = azimuth.Create(wCtx, spatial.Position{X: 300}, dormancy.Dormancy{})
		assert.NilError(t, err)
		onDormant, err = azimuth.Create(wCtx, spatial.Position{X: 800}, dormancy.Dormancy{})
		assert.NilError(t, err)
		return nil
	}))

	doTick()

	assert.Equal(t, dormancy.TierDormant, tierOf(t, world, onActive).Tier)
	assert.Equal(t, dormancy.TierUnloaded, tierOf(t, world, onDormant).Tier)
}

func TestDormantEntitiesUpdateOnCadence(t *testing.T) {
	t.Setenv("AZIMUTH_UPDATE_INTERVAL", "5")
	world, doTick := testutils.MakeWorldAndTicker(t, azimuth.WithObserver(spatial.Position{}))

	var active, dormant, unloaded types.EntityID
	assert.NilError(t, azimuth.RegisterInitSystems(world, func(wCtx engine.Context) error {
		var err error
		active, err = azimuth.Create(wCtx, spatial.Position{X: 100}, dormancy.Dormancy{})
		assert.NilError(t, err)
		dormant, err = azimuth.Create(wCtx, spatial.Position{X: 500}, dormancy.Dormancy{})
		assert.NilError(t, err)
		unloaded, err = azimuth.Create(wCtx, spatial.Position{X: 2000}, dormancy.Dormancy{})
		assert.NilError(t, err)
		return nil
	}))

	updates := map[types.EntityID]int{}
	assert.NilError(t, azimuth.RegisterSystems(world, func(wCtx engine.Context) error {
		for _, id := range []types.EntityID{active, dormant, unloaded} {
			d, err := azimuth.GetComponent[dormancy.Dormancy](wCtx, id)
			assert.NilError(t, err)
			if d.ShouldUpdate(wCtx.UpdateInterval()) {
				updates[id]++
			}
		}
		return nil
	}))

	ticks := 6
	for i := 0; i < ticks; i++ {
		doTick()
	}

	// Active entities update every pass. A dormant entity updates on the pass
	// it enters the tier (tick 0) and then once every 5 passes (tick 5).
	// Unloaded entities never update.
	assert.Equal(t, ticks, updates[active])
	assert.Equal(t, 2, updates[dormant])
	assert.Equal(t, 0, updates[unloaded])
}

func TestSpatialQueriesTrackMovingEntities(t *testing.T) {
	world, doTick := testutils.MakeWorldAndTicker(t)

	var roamer, sentry types.EntityID
	assert.NilError(t, azimuth.RegisterInitSystems(world, func(wCtx engine.Context) error {
		var err error
		roamer, err = azimuth.Create(wCtx, spatial.Position{X: 10, Y: 10}, Probe{Fuel: 50})
		assert.NilError(t, err)
		sentry, err = azimuth.Create(wCtx, spatial.Position{X: 500}, Probe{Fuel: 100})
		assert.NilError(t, err)
		return nil
	}))
	assert.NilError(t, azimuth.RegisterComponent[Probe](world))

	doTick()

	assert.ElementsMatch(t, []types.EntityID{roamer}, world.QuerySphere(spatial.Position{}, 50))
	assert.ElementsMatch(t,
		[]types.EntityID{roamer, sentry},
		world.QueryBox(spatial.Position{X: -100, Y: -100, Z: -100}, spatial.Position{X: 600, Y: 100, Z: 100}),
	)

	// Moving an entity relocates it in the index as well.
	assert.NilError(t, azimuth.SetComponent(azimuth.NewWorldContext(world), roamer, &spatial.Position{X: 480}))
	assert.Len(t, world.QuerySphere(spatial.Position{}, 50), 0)
	assert.ElementsMatch(t,
		[]types.EntityID{roamer, sentry},
		world.QuerySphere(spatial.Position{X: 490}, 30),
	)
}

func TestEvalAQL(t *testing.T) {
	world, doTick := testutils.MakeWorldAndTicker(t)
	assert.NilError(t, azimuth.RegisterComponent[Probe](world))

	var drifting types.EntityID
	assert.NilError(t, azimuth.RegisterInitSystems(world, func(wCtx engine.Context) error {
		var err error
		drifting, err = azimuth.Create(wCtx, Probe{Fuel: 25})
		assert.NilError(t, err)
		_, err = azimuth.Create(wCtx, Probe{Fuel: 75}, spatial.Position{X: 1})
		assert.NilError(t, err)
		return nil
	}))

	doTick()

	got, err := world.EvalAQL("CONTAINS(probe) & !CONTAINS(position)")
	assert.NilError(t, err)
	assert.Len(t, got, 1)
	assert.Equal(t, drifting, got[0].ID)
	assert.Len(t, got[0].Data, 1)

	_, err = world.EvalAQL("CONTAINS(no_such_component)")
	assert.IsError(t, err)
}

func TestDebugStateListsEveryEntity(t *testing.T) {
	world, doTick := testutils.MakeWorldAndTicker(t)
	assert.NilError(t, azimuth.RegisterComponent[Probe](world))

	wantEntities := 3
	assert.NilError(t, azimuth.RegisterInitSystems(world, func(wCtx engine.Context) error {
		_, err := azimuth.CreateMany(wCtx, wantEntities, Probe{Fuel: 10}, spatial.Position{X: 5})
		assert.NilError(t, err)
		return nil
	}))

	doTick()

	state, err := world.DebugState()
	assert.NilError(t, err)
	assert.Len(t, state, wantEntities)
	for _, element := range state {
		_, hasProbe := element.Components["probe"]
		_, hasPosition := element.Components["position"]
		assert.True(t, hasProbe)
		assert.True(t, hasPosition)
	}
}

func TestStartGameRejectsASecondStart(t *testing.T) {
	world, doTick := testutils.MakeWorldAndTicker(t)
	doTick()

	err := world.StartGame()
	assert.ErrorContains(t, err, "already been started")
}

func TestShutdownStopsTheGameLoop(t *testing.T) {
	world, doTick := testutils.MakeWorldAndTicker(t)
	doTick()
	assert.True(t, world.IsGameRunning())

	assert.NilError(t, world.Shutdown())
	assert.False(t, world.IsGameRunning())

	// A second shutdown is a no-op, not an error.
	assert.NilError(t, world.Shutdown())
}

func TestShutdownBeforeStartFails(t *testing.T) {
	world := testutils.NewTestWorld(t)
	assert.IsError(t, world.Shutdown())
}

// startManualWorld spins up a running world whose ticks the test feeds by
// hand through the returned channels.
func startManualWorld(t *testing.T) (*azimuth.World, chan time.Time, chan uint64) {
	t.Helper()
	tickFeed := make(chan time.Time)
	tickDone := make(chan uint64)
	world := testutils.NewTestWorld(t,
		azimuth.WithTickChannel(tickFeed),
		azimuth.WithTickDoneChannel(tickDone),
	)
	go func() { _ = world.StartGame() }()
	for !world.IsGameRunning() {
		time.Sleep(10 * time.Millisecond)
	}
	return world, tickFeed, tickDone
}

func TestWaitForNextTickBlocksUntilTheTickCompletes(t *testing.T) {
	world, tickFeed, tickDone := startManualWorld(t)
	t.Cleanup(func() {
		if world.IsGameRunning() {
			assert.NilError(t, world.Shutdown())
		}
	})

	// Prove one tick goes through before involving WaitForNextTick.
	tickFeed <- time.Now()
	<-tickDone

	waiterDone := make(chan struct{})
	go func() {
		for i := 0; i < 10; i++ {
			assert.Check(t, world.WaitForNextTick())
		}
		close(waiterDone)
	}()

	// Keep feeding ticks until the waiter has seen its ten.
	for {
		select {
		case tickFeed <- time.Now():
			<-tickDone
		case <-waiterDone:
			return
		}
	}
}

func TestWaitForNextTickReportsShutdown(t *testing.T) {
	world, tickFeed, tickDone := startManualWorld(t)

	// Prove one tick goes through before involving WaitForNextTick.
	tickFeed <- time.Now()
	<-tickDone

	waiterDone := make(chan struct{})
	go func() {
		// Spin on WaitForNextTick. The loop can only end with a false
		// return, which is what shutdown must produce.
		for world.WaitForNextTick() {
		}
		close(waiterDone)
	}()

	time.AfterFunc(100*time.Millisecond, func() {
		assert.NilError(t, world.Shutdown())
	})

	// Keep feeding ticks until the waiter observes the shutdown.
	for {
		select {
		case tickFeed <- time.Now():
			<-tickDone
		case <-waiterDone:
			return
		}
	}
}
