package component

import (
	"reflect"
	"unsafe"

	"github.com/invopop/jsonschema"
	"github.com/rotisserie/eris"
	"github.com/wI2L/jsondiff"

	"github.com/azimuth-engine/azimuth/codec"
	"github.com/azimuth-engine/azimuth/types"
)

var _ types.ComponentMetadata = (*componentMetadata[types.Component])(nil)

// Option customizes a component type at metadata creation.
type Option[T types.Component] func(c *componentMetadata[T])

// WithDefault sets the value a freshly added component starts with when the
// caller does not provide one.
func WithDefault[T types.Component](value T) Option[T] {
	return func(c *componentMetadata[T]) {
		c.defaultVal = &value
	}
}

// componentMetadata represents a type of component. It is used to identify a
// component when getting or setting the component of an entity, and it owns
// the raw-byte conversion used by archetype columns.
type componentMetadata[T types.Component] struct {
	isIDSet    bool
	id         types.ComponentID
	goType     reflect.Type
	name       string
	size       int
	schema     []byte
	defaultVal *T
}

// NewComponentMetadata creates a new component type. The component struct must
// be plain fixed-size data; pointer-bearing fields are rejected so that column
// bytes fully own every value.
func NewComponentMetadata[T types.Component](opts ...Option[T]) (
	types.ComponentMetadata, error,
) {
	var t T
	rt := reflect.TypeOf(t)

	if err := validateLayout(rt); err != nil {
		return nil, eris.Wrapf(err, "component %q has an unsupported layout", t.Name())
	}

	schema, err := jsonschema.ReflectFromType(rt).MarshalJSON()
	if err != nil {
		return nil, eris.Wrapf(err, "component %q has no JSON schema", t.Name())
	}

	meta := &componentMetadata[T]{
		goType: rt,
		name:   t.Name(),
		size:   int(rt.Size()),
		schema: schema,
	}
	for _, opt := range opts {
		opt(meta)
	}

	return meta, nil
}

// validateLayout rejects component types whose values do not live entirely in
// their own bytes. Anything reachable through a pointer would escape the
// column and break the bit-pattern round-trip contract.
func validateLayout(t reflect.Type) error {
	switch t.Kind() {
	case reflect.Bool,
		reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr,
		reflect.Float32, reflect.Float64,
		reflect.Complex64, reflect.Complex128:
		return nil
	case reflect.Array:
		return validateLayout(t.Elem())
	case reflect.Struct:
		for i := 0; i < t.NumField(); i++ {
			if err := validateLayout(t.Field(i).Type); err != nil {
				return err
			}
		}
		return nil
	default:
		return eris.Errorf("field kind %s cannot be stored in a column", t.Kind())
	}
}

func (c *componentMetadata[T]) GetSchema() []byte {
	return c.schema
}

// SetID records the id registration assigned to this component type.
func (c *componentMetadata[T]) SetID(id types.ComponentID) error {
	if c.isIDSet {
		// In tests it is useful to reuse one component type across multiple
		// worlds. Re-initialization is allowed as long as the ID is unchanged.
		if id == c.id {
			return nil
		}
		return eris.Errorf("component %q already has id %v, refusing to renumber to %v", c.name, c.id, id)
	}
	c.id = id
	c.isIDSet = true
	return nil
}

func (c *componentMetadata[T]) String() string {
	return c.name
}

func (c *componentMetadata[T]) Name() string {
	return c.name
}

func (c *componentMetadata[T]) ID() types.ComponentID {
	return c.id
}

// Size returns the byte stride of one value inside a column.
func (c *componentMetadata[T]) Size() int {
	return c.size
}

// New returns the raw bytes a freshly added component starts with: the
// registered default value if one was set, the zero value otherwise.
func (c *componentMetadata[T]) New() []byte {
	bz := make([]byte, c.size)
	if c.defaultVal != nil {
		copy(bz, unsafe.Slice((*byte)(unsafe.Pointer(c.defaultVal)), c.size))
	}
	return bz
}

// ToBytes returns the raw fixed-size bytes of a concrete component value. The
// value may be passed as T or *T.
func (c *componentMetadata[T]) ToBytes(value any) ([]byte, error) {
	var v T
	switch typed := value.(type) {
	case T:
		v = typed
	case *T:
		v = *typed
	default:
		return nil, eris.Errorf("value of type %T cannot be stored as %s", value, c.goType)
	}
	bz := make([]byte, c.size)
	copy(bz, unsafe.Slice((*byte)(unsafe.Pointer(&v)), c.size))
	return bz, nil
}

// FromBytes copies a component value out of column bytes into a fresh T, so
// the returned value stays valid across later row moves.
func (c *componentMetadata[T]) FromBytes(bz []byte) any {
	var v T
	copy(unsafe.Slice((*byte)(unsafe.Pointer(&v)), c.size), bz)
	return v
}

func (c *componentMetadata[T]) Encode(v any) ([]byte, error) {
	return codec.Encode(v)
}

func (c *componentMetadata[T]) Decode(bz []byte) (any, error) {
	return codec.Decode[T](bz)
}

func (c *componentMetadata[T]) ValidateAgainstSchema(targetSchema []byte) error {
	diff, err := jsondiff.CompareJSON(c.schema, targetSchema)
	if err != nil {
		return eris.Wrap(err, "schema comparison failed")
	}
	if len(diff) != 0 {
		return eris.Wrap(types.ErrComponentSchemaMismatch, diff.String())
	}
	return nil
}
