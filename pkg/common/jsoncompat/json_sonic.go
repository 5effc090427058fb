//go:build sonicjson

package jsoncompat

import (
	"io"

	"github.com/bytedance/sonic"
)

// Marshal proxies to sonic.Marshal when the sonicjson build tag is present.
func Marshal(v any) ([]byte, error) { return sonic.Marshal(v) }

// Unmarshal proxies to sonic.Unmarshal when the sonicjson build tag is present.
func Unmarshal(data []byte, v any) error { return sonic.Unmarshal(data, v) }

// Encode writes v as JSON to w.
func Encode(w io.Writer, v any) error {
	return sonic.ConfigDefault.NewEncoder(w).Encode(v)
}

// Decode reads JSON from r into v.
func Decode(r io.Reader, v any) error {
	return sonic.ConfigDefault.NewDecoder(r).Decode(v)
}
