package types

import "encoding/json"

// EntityState is one live entity's full component state, keyed by
// component name. Produced by World.DebugState for inspection and tests.
type EntityState struct {
	ID         EntityID                   `json:"id"`
	Components map[string]json.RawMessage `json:"components"`
}
