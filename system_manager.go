package azimuth

import (
	"path/filepath"
	"reflect"
	"runtime"
	"slices"
	"time"

	"github.com/rotisserie/eris"

	azlog "github.com/azimuth-engine/azimuth/log"
	"github.com/azimuth-engine/azimuth/statsd"
	"github.com/azimuth-engine/azimuth/types/engine"
)

// System is a function that is run once per tick against the world state.
type System func(wCtx engine.Context) error

// systemEntry pairs a registered system with its derived name and the
// component access it declared at registration time.
type systemEntry struct {
	name   string
	fn     System
	access AccessSet
}

type SystemManager struct {
	// Registration order is execution order, so both lists are slices.
	registeredSystems     []systemEntry
	registeredInitSystems []systemEntry

	// currentSystem names the system running right now, nil between ticks.
	currentSystem *string
}

func NewSystemManager() *SystemManager {
	return &SystemManager{
		registeredSystems:     make([]systemEntry, 0),
		registeredInitSystems: make([]systemEntry, 0),
		currentSystem:         nil,
	}
}

// RegisterSystems appends systems to the per-tick execution list. A system's
// name derives from its function name and must be unique; one duplicate
// anywhere in the batch aborts the whole call.
func (m *SystemManager) RegisterSystems(systems ...System) error {
	return m.registerSystems(false, systems...)
}

// RegisterInitSystems registers systems that run exactly once, on tick 0,
// before the regular systems. They share the regular systems' name space.
func (m *SystemManager) RegisterInitSystems(systems ...System) error {
	return m.registerSystems(true, systems...)
}

func (m *SystemManager) registerSystems(isInit bool, systems ...System) error {
	// Validate the whole batch before touching either list, so a duplicate
	// anywhere means nothing registers.
	systemNames := make([]string, 0, len(systems))
	for _, system := range systems {
		systemName := deriveSystemName(system)
		if slices.Contains(systemNames, systemName) {
			return eris.Errorf("duplicate system %q in slice", systemName)
		}
		if err := m.isNotDuplicate(systemName); err != nil {
			return err
		}
		systemNames = append(systemNames, systemName)
	}

	for i, systemName := range systemNames {
		entry := systemEntry{name: systemName, fn: systems[i]}
		if isInit {
			m.registeredInitSystems = append(m.registeredInitSystems, entry)
		} else {
			m.registeredSystems = append(m.registeredSystems, entry)
		}
	}

	return nil
}

// RegisterSystemWithAccess registers a single system along with the component
// names it reads and writes. The declaration is advisory metadata for
// schedulers and debugging surfaces; execution stays sequential in
// registration order regardless of what is declared.
func (m *SystemManager) RegisterSystemWithAccess(system System, access AccessSet) error {
	systemName := deriveSystemName(system)
	if err := m.isNotDuplicate(systemName); err != nil {
		return err
	}
	m.registeredSystems = append(m.registeredSystems, systemEntry{
		name:   systemName,
		fn:     system,
		access: access,
	})
	return nil
}

// RunSystems runs every registered system in registration order. On tick 0
// the init systems run first. The first error stops the tick; systems after
// the failing one do not run.
func (m *SystemManager) RunSystems(wCtx engine.Context) error {
	allSystemStartTime := time.Now()

	systems := m.registeredSystems
	if wCtx.CurrentTick() == 0 && len(m.registeredInitSystems) > 0 {
		systems = make([]systemEntry, 0, len(m.registeredInitSystems)+len(m.registeredSystems))
		systems = append(systems, m.registeredInitSystems...)
		systems = append(systems, m.registeredSystems...)
	}

	// Each system gets the tick logger tagged with its own name, not the
	// logger left behind by the previous system.
	tickLogger := wCtx.Logger()

	for _, system := range systems {
		sysName := system.name
		m.currentSystem = &sysName
		wCtx.SetLogger(*azlog.CreateSystemLogger(tickLogger, system.name))

		systemStartTime := time.Now()
		if err := system.fn(wCtx); err != nil {
			m.currentSystem = nil
			return eris.Wrapf(err, "system %s failed", system.name)
		}
		statsd.EmitTickStat(systemStartTime, system.name)
	}

	m.currentSystem = nil
	statsd.EmitTickStat(allSystemStartTime, "all_systems")

	return nil
}

func (m *SystemManager) IsSystemsRegistered() bool {
	return len(m.registeredSystems) > 0
}

func (m *SystemManager) GetRegisteredSystemNames() []string {
	names := make([]string, 0, len(m.registeredSystems))
	for _, system := range m.registeredSystems {
		names = append(names, system.name)
	}
	return names
}

func (m *SystemManager) GetCurrentSystem() string {
	if m.currentSystem == nil {
		return "no_system"
	}
	return *m.currentSystem
}

// AccessSets returns the declared component access of every registered
// system, keyed by system name. Systems registered without a declaration map
// to an empty AccessSet.
func (m *SystemManager) AccessSets() map[string]AccessSet {
	sets := make(map[string]AccessSet, len(m.registeredSystems))
	for _, system := range m.registeredSystems {
		sets[system.name] = system.access
	}
	return sets
}

// isNotDuplicate checks the name against both lists, since init and regular
// systems share one name space.
func (m *SystemManager) isNotDuplicate(systemName string) error {
	for _, system := range m.registeredSystems {
		if system.name == systemName {
			return eris.Errorf("system %q is already registered", systemName)
		}
	}
	for _, system := range m.registeredInitSystems {
		if system.name == systemName {
			return eris.Errorf("system %q is already registered", systemName)
		}
	}
	return nil
}

// deriveSystemName names a system after its function, package qualified, so
// a func MoveSystem in package game registers as "game.MoveSystem".
func deriveSystemName(system System) string {
	return filepath.Base(runtime.FuncForPC(reflect.ValueOf(system).Pointer()).Name())
}
