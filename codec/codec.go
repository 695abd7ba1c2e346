// Package codec is the single place component values cross a JSON boundary
// (debug state dumps, schema fixtures, tests).
package codec

import (
	"github.com/goccy/go-json"
	"github.com/rotisserie/eris"
)

// Decode unmarshals bz into a value of type T.
func Decode[T any](bz []byte) (T, error) {
	var out T
	if err := json.Unmarshal(bz, &out); err != nil {
		return out, eris.Wrap(err, "")
	}
	return out, nil
}

// Encode marshals value to JSON.
func Encode(value any) ([]byte, error) {
	bz, err := json.Marshal(value)
	if err != nil {
		return nil, eris.Wrap(err, "")
	}
	return bz, nil
}
