package component

import "github.com/rotisserie/eris"

var ErrNoSchemaFound = eris.New("no schema found")

// SchemaStorage records the JSON schema of every registered component so a
// later registration of the same name with a different struct shape is caught
// instead of silently corrupting previously serialized state.
type SchemaStorage interface {
	GetSchema(componentName string) ([]byte, error)
	SetSchema(componentName string, schemaData []byte) error
}

// MapSchemaStorage is the in-process SchemaStorage. Tools that persist state
// can swap in their own implementation backed by whatever holds their
// fixtures.
type MapSchemaStorage struct {
	schemas map[string][]byte
}

func NewMapSchemaStorage() *MapSchemaStorage {
	return &MapSchemaStorage{schemas: make(map[string][]byte)}
}

func (s *MapSchemaStorage) GetSchema(componentName string) ([]byte, error) {
	schema, ok := s.schemas[componentName]
	if !ok {
		return nil, eris.Wrap(ErrNoSchemaFound, componentName)
	}
	return schema, nil
}

func (s *MapSchemaStorage) SetSchema(componentName string, schemaData []byte) error {
	s.schemas[componentName] = schemaData
	return nil
}
