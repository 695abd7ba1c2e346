package component

import (
	"github.com/rotisserie/eris"

	"github.com/azimuth-engine/azimuth/types"
)

var ErrComponentNotRegistered = eris.New("component not registered")

// Manager owns the name -> metadata registry for one world. Component names
// are unique, ids are handed out in registration order starting at 1, and a
// component only becomes visible once its schema has been recorded or
// validated.
type Manager struct {
	registeredComponents map[string]types.ComponentMetadata
	nextComponentID      types.ComponentID
	schemaStorage        SchemaStorage
}

func NewManager(schemaStorage SchemaStorage) *Manager {
	return &Manager{
		registeredComponents: make(map[string]types.ComponentMetadata),
		nextComponentID:      1,
		schemaStorage:        schemaStorage,
	}
}

// RegisterComponent adds one component type to the registry. The name comes
// from the type's Name() method and must be unused. A schema already on
// record for that name must match the type being registered, which catches a
// component whose Go definition drifted from previously written state.
func (m *Manager) RegisterComponent(meta types.ComponentMetadata) error {
	if _, exists := m.registeredComponents[meta.Name()]; exists {
		return eris.Errorf("component %q is already registered", meta.Name())
	}
	storedSchema, err := m.schemaStorage.GetSchema(meta.Name())
	if err != nil && !eris.Is(err, ErrNoSchemaFound) {
		return err
	}
	if storedSchema == nil {
		// First registration under this name records the schema.
		if err := m.schemaStorage.SetSchema(meta.Name(), meta.GetSchema()); err != nil {
			return err
		}
	} else if err := meta.ValidateAgainstSchema(storedSchema); err != nil {
		if eris.Is(err, types.ErrComponentSchemaMismatch) {
			return eris.Wrapf(err, "component %q does not match its stored schema", meta.Name())
		}
		return eris.Wrap(err, "schema validation failed")
	}
	// The id is assigned only after the schema work succeeds, so a failed
	// registration leaves no trace.
	if err := meta.SetID(m.nextComponentID); err != nil {
		return err
	}
	m.registeredComponents[meta.Name()] = meta
	m.nextComponentID++
	return nil
}

// GetComponents returns every registered component. Map iteration order, so
// callers needing stable output sort by id or name themselves.
func (m *Manager) GetComponents() []types.ComponentMetadata {
	out := make([]types.ComponentMetadata, 0, len(m.registeredComponents))
	for _, comp := range m.registeredComponents {
		out = append(out, comp)
	}
	return out
}

// GetComponentByName looks up one component's metadata.
func (m *Manager) GetComponentByName(name string) (types.ComponentMetadata, error) {
	meta, ok := m.registeredComponents[name]
	if !ok {
		return nil, eris.Wrapf(ErrComponentNotRegistered, "component %q is not registered", name)
	}
	return meta, nil
}
