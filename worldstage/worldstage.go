package worldstage

import (
	"sync"
)

type Stage string

const (
	Init         Stage = "Init"         // fresh world, registration still open
	Starting     Stage = "Starting"     // StartGame has been called, loading state
	Ready        Stage = "Ready"        // loaded, waiting for the first tick
	Running      Stage = "Running"      // game loop is ticking
	ShuttingDown Stage = "ShuttingDown" // shutdown requested, draining the loop
	ShutDown     Stage = "ShutDown"     // loop drained, world is inert
)

// Manager tracks the lifecycle stage of a world. Stage transitions are
// one-way over the lifetime of a world, so the channel returned by
// NotifyOnStage stays closed once its stage has been reached.
type Manager struct {
	mu      sync.Mutex
	current Stage
	reached map[Stage]chan struct{}
}

func NewManager() *Manager {
	m := &Manager{
		reached: make(map[Stage]chan struct{}),
	}
	m.store(Init)
	return m
}

func (m *Manager) CompareAndSwap(oldStage, newStage Stage) (swapped bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.current != oldStage {
		return false
	}
	m.store(newStage)
	return true
}

func (m *Manager) Current() Stage {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.current
}

func (m *Manager) Store(val Stage) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.store(val)
}

func (m *Manager) Swap(newStage Stage) (oldStage Stage) {
	m.mu.Lock()
	defer m.mu.Unlock()
	oldStage = m.current
	m.store(newStage)
	return oldStage
}

// NotifyOnStage returns a channel that is closed once the manager reaches the
// given stage. If the stage has already been reached the channel comes back
// closed, so selects against it fire immediately.
func (m *Manager) NotifyOnStage(stage Stage) <-chan struct{} {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.channel(stage)
}

func (m *Manager) store(stage Stage) {
	m.current = stage
	ch := m.channel(stage)
	select {
	case <-ch:
	default:
		close(ch)
	}
}

func (m *Manager) channel(stage Stage) chan struct{} {
	ch, ok := m.reached[stage]
	if !ok {
		ch = make(chan struct{})
		m.reached[stage] = ch
	}
	return ch
}
