package types

import (
	"github.com/invopop/jsonschema"
	"github.com/rotisserie/eris"
	"github.com/wI2L/jsondiff"
)

type ComponentID int

var ErrComponentSchemaMismatch = eris.New("component schema does not match target schema")

// Component is the user-defined struct a component type is declared with.
// Component structs must be plain fixed-size data: no pointers, maps, slices,
// strings, channels, funcs, or interfaces. Values are stored as raw bytes in
// archetype columns, so a push/read round trip preserves the bit pattern
// exactly.
type Component interface {
	// Name identifies the component type. Names are unique within a world.
	Name() string
}

// ComponentMetadata wraps the user-defined Component struct and provides the
// functionality the engine needs to store values of it in archetype columns
// and to move them across serialization boundaries.
type ComponentMetadata interface { //revive:disable-line:exported
	// SetID sets the ComponentID of this component. It must only be set once.
	SetID(ComponentID) error
	// ID returns the ComponentID of the component.
	ID() ComponentID
	// Size returns the byte stride of one value inside a column.
	Size() int
	// New returns the raw bytes of the default value for the component struct,
	// used when a component is added to an entity without an explicit value.
	New() []byte
	// ToBytes returns the raw fixed-size bytes of a concrete component value.
	ToBytes(any) ([]byte, error)
	// FromBytes copies a concrete component value out of column bytes.
	FromBytes([]byte) any
	// Encode marshals a component value to JSON.
	Encode(any) ([]byte, error)
	// Decode unmarshals a component value from JSON.
	Decode([]byte) (any, error)
	GetSchema() []byte
	ValidateAgainstSchema(targetSchema []byte) error

	Component
}

// SerializeComponentSchema reflects a component struct into its JSON schema.
// The schema is what registration compares against previously recorded state.
func SerializeComponentSchema(component Component) ([]byte, error) {
	reflected := jsonschema.Reflect(component)
	schema, err := reflected.MarshalJSON()
	if err != nil {
		return nil, eris.Wrap(err, "component must be json serializable")
	}
	return schema, nil
}

// IsSchemaValid reports whether two JSON schemas describe the same shape. The
// comparison is structural, so key order and formatting do not matter.
func IsSchemaValid(schema []byte, targetSchema []byte) (bool, error) {
	patch, err := jsondiff.CompareJSON(schema, targetSchema)
	if err != nil {
		return false, eris.Wrap(err, "")
	}
	return len(patch) == 0, nil
}
