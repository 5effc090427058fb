//go:build !sonicjson

package jsoncompat

import (
	"encoding/json"
	"io"
)

// Marshal proxies to the standard library json.Marshal when the sonicjson
// build tag is absent.
func Marshal(v any) ([]byte, error) { return json.Marshal(v) }

// Unmarshal proxies to the standard library json.Unmarshal when the sonicjson
// build tag is absent.
func Unmarshal(data []byte, v any) error { return json.Unmarshal(data, v) }

// Encode writes v as JSON to w.
func Encode(w io.Writer, v any) error { return json.NewEncoder(w).Encode(v) }

// Decode reads JSON from r into v.
func Decode(r io.Reader, v any) error { return json.NewDecoder(r).Decode(v) }
