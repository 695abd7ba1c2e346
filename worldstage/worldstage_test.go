package worldstage

import (
	"testing"

	"github.com/azimuth-engine/azimuth/assert"
)

func TestNewManagerStartsAtInit(t *testing.T) {
	stage := NewManager()
	assert.Equal(t, Init, stage.Current())

	old := stage.Swap(ShutDown)
	assert.Equal(t, Init, old)
	assert.Equal(t, ShutDown, stage.Current())
}

func TestCompareAndSwapChecksTheOldStage(t *testing.T) {
	stage := NewManager()
	ok := stage.CompareAndSwap(ShutDown, ShutDown)
	assert.Check(t, !ok, "a fresh manager is at Init")

	ok = stage.CompareAndSwap(Init, ShutDown)
	assert.Check(t, ok, "compare and swap should succeed with correct old value")

	assert.Equal(t, ShutDown, stage.Current())
}

func TestOnlyOneCompareAndSwapSuccess(t *testing.T) {
	successCh := make(chan bool)
	stage := NewManager()

	for i := 0; i < 10; i++ {
		go func() {
			successCh <- stage.CompareAndSwap(Init, ShutDown)
		}()
	}

	successCount := 0
	failureCount := 0
	for i := 0; i < 10; i++ {
		if <-successCh {
			successCount++
		} else {
			failureCount++
		}
	}
	assert.Equal(t, 1, successCount)
	assert.Equal(t, 9, failureCount)
}

func TestNotifyOnStageFiresWhenStageIsReached(t *testing.T) {
	stage := NewManager()
	ch := stage.NotifyOnStage(Running)

	select {
	case <-ch:
		t.Fatal("Running has not been reached yet")
	default:
	}

	stage.Store(Running)
	select {
	case <-ch:
	default:
		t.Fatal("channel should be closed once Running is reached")
	}
}

func TestNotifyOnStageForCurrentStageIsAlreadyClosed(t *testing.T) {
	stage := NewManager()
	stage.Store(ShuttingDown)

	select {
	case <-stage.NotifyOnStage(ShuttingDown):
	default:
		t.Fatal("channel for an already-reached stage should be closed")
	}
}
