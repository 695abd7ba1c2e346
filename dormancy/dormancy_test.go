package dormancy_test

import (
	"testing"

	"github.com/azimuth-engine/azimuth/assert"
	"github.com/azimuth-engine/azimuth/dormancy"
)

func mustThresholds(t *testing.T, active, dormant float64) dormancy.Thresholds {
	t.Helper()
	th, err := dormancy.NewThresholds(active, dormant)
	assert.NilError(t, err)
	return th
}

func TestThresholdsValidation(t *testing.T) {
	_, err := dormancy.NewThresholds(0, 800)
	assert.Error(t, err, "active distance must be positive, got 0")
	_, err = dormancy.NewThresholds(-10, 800)
	assert.Error(t, err, "active distance must be positive, got -10")
	_, err = dormancy.NewThresholds(300, 300)
	assert.Error(t, err, "dormant distance 300 must be greater than active distance 300")
	_, err = dormancy.NewThresholds(300, 100)
	assert.Error(t, err, "dormant distance 100 must be greater than active distance 300")
}

func TestClassifyGradesByDistance(t *testing.T) {
	th := mustThresholds(t, 300, 800)
	testCases := []struct {
		distance float64
		want     dormancy.Tier
	}{
		{0, dormancy.TierActive},
		{250, dormancy.TierActive},
		{299, dormancy.TierActive},
		// An entity exactly on a threshold falls into the farther tier.
		{300, dormancy.TierDormant},
		{500, dormancy.TierDormant},
		{799, dormancy.TierDormant},
		{800, dormancy.TierUnloaded},
		{1000, dormancy.TierUnloaded},
	}
	for _, tc := range testCases {
		got := th.Classify(tc.distance * tc.distance)
		assert.Equal(t, tc.want, got, "distance %v", tc.distance)
	}
}

func TestClassifyFlipsTiersDirectly(t *testing.T) {
	th := mustThresholds(t, 300, 800)
	d := dormancy.Dormancy{}

	assert.True(t, d.Transition(th.Classify(1000*1000), 7))
	assert.Equal(t, dormancy.TierUnloaded, d.Tier)
	assert.Equal(t, uint64(7), d.LastChangeTick)

	// Teleporting from far outside to right next to the observer lands on
	// Active immediately, with no pass through Dormant.
	assert.True(t, d.Transition(th.Classify(250*250), 8))
	assert.Equal(t, dormancy.TierActive, d.Tier)
	assert.Equal(t, uint64(8), d.LastChangeTick)
}

func TestTransitionOnlyRecordsRealChanges(t *testing.T) {
	d := dormancy.Dormancy{Tier: dormancy.TierDormant, LastChangeTick: 3, FrameCounter: 6}
	assert.False(t, d.Transition(dormancy.TierDormant, 9))
	assert.Equal(t, uint64(3), d.LastChangeTick)
	assert.Equal(t, uint64(6), d.FrameCounter)

	assert.True(t, d.Transition(dormancy.TierActive, 9))
	assert.Equal(t, uint64(9), d.LastChangeTick)
	assert.Equal(t, uint64(0), d.FrameCounter, "a tier change restarts the cadence")
}

func TestShouldUpdateCadence(t *testing.T) {
	active := dormancy.Dormancy{Tier: dormancy.TierActive}
	unloaded := dormancy.Dormancy{Tier: dormancy.TierUnloaded}
	for frame := uint64(0); frame < 25; frame++ {
		active.FrameCounter = frame
		unloaded.FrameCounter = frame
		assert.True(t, active.ShouldUpdate(10))
		assert.False(t, unloaded.ShouldUpdate(10))
	}

	dormant := dormancy.Dormancy{Tier: dormancy.TierDormant}
	updates := 0
	for frame := uint64(0); frame < 30; frame++ {
		dormant.FrameCounter = frame
		if dormant.ShouldUpdate(10) {
			updates++
			assert.Equal(t, uint64(0), frame%10)
		}
	}
	assert.Equal(t, 3, updates)
}

func TestShouldUpdateTinyInterval(t *testing.T) {
	dormant := dormancy.Dormancy{Tier: dormancy.TierDormant, FrameCounter: 7}
	assert.True(t, dormant.ShouldUpdate(0))
	assert.True(t, dormant.ShouldUpdate(1))
	assert.False(t, dormant.ShouldUpdate(2))
}

func TestTierString(t *testing.T) {
	assert.Equal(t, "active", dormancy.TierActive.String())
	assert.Equal(t, "dormant", dormancy.TierDormant.String())
	assert.Equal(t, "unloaded", dormancy.TierUnloaded.String())
	assert.Equal(t, "unknown", dormancy.Tier(99).String())
}
