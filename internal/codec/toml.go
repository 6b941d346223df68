// SPDX-License-Identifier: Apache-2.0

package codec

import (
	"bytes"
	"encoding/json"
	"errors"

	"github.com/BurntSushi/toml"

	"github.com/sam-fredrickson/jsonmerge"
)

// UnmarshalTOML decodes TOML into v (a *any). TOML tables do not carry an order
// through the decoder, so their keys come out sorted.
func UnmarshalTOML(data []byte, v any) error {
	var raw map[string]any
	if _, err := toml.Decode(string(data), &raw); err != nil {
		return err
	}
	return setTarget(v, fromTOML(raw))
}

// MarshalTOML encodes doc as TOML. The document root must be an object.
func MarshalTOML(doc any) ([]byte, error) {
	root, ok := toTOML(doc).(map[string]any)
	if !ok {
		return nil, errors.New("TOML documents must have a table at the root")
	}

	var buf bytes.Buffer
	if err := toml.NewEncoder(&buf).Encode(root); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func fromTOML(v any) any {
	switch x := v.(type) {
	case map[string]any:
		m := make(map[string]any, len(x))
		for k, val := range x {
			m[k] = fromTOML(val)
		}
		return jsonmerge.Clone(m)
	case []map[string]any:
		out := make([]any, len(x))
		for i, item := range x {
			out[i] = fromTOML(item)
		}
		return out
	case []any:
		out := make([]any, len(x))
		for i, item := range x {
			out[i] = fromTOML(item)
		}
		return out
	default:
		return v
	}
}

func toTOML(v any) any {
	switch x := v.(type) {
	case *jsonmerge.Object:
		m := make(map[string]any, x.Len())
		for pair := x.Oldest(); pair != nil; pair = pair.Next() {
			m[pair.Key] = toTOML(pair.Value)
		}
		return m
	case map[string]any:
		m := make(map[string]any, len(x))
		for k, val := range x {
			m[k] = toTOML(val)
		}
		return m
	case []any:
		out := make([]any, len(x))
		for i, item := range x {
			out[i] = toTOML(item)
		}
		return out
	case json.Number:
		return numberValue(x)
	default:
		return v
	}
}
