// SPDX-License-Identifier: Apache-2.0

package codec

import (
	"encoding/json"
	"fmt"

	"github.com/goccy/go-yaml"

	"github.com/sam-fredrickson/jsonmerge"
)

// UnmarshalYAML decodes YAML into v (a *any), keeping mapping key order.
func UnmarshalYAML(data []byte, v any) error {
	var raw any
	if err := yaml.UnmarshalWithOptions(data, &raw, yaml.UseOrderedMap()); err != nil {
		return err
	}
	return setTarget(v, fromYAML(raw))
}

// MarshalYAML encodes doc as YAML, keeping object key order.
func MarshalYAML(doc any) ([]byte, error) {
	return yaml.Marshal(toYAML(doc))
}

func fromYAML(v any) any {
	switch x := v.(type) {
	case yaml.MapSlice:
		obj := jsonmerge.NewObject()
		for _, item := range x {
			obj.Set(fmt.Sprint(item.Key), fromYAML(item.Value))
		}
		return obj
	case map[string]any:
		m := make(map[string]any, len(x))
		for k, val := range x {
			m[k] = fromYAML(val)
		}
		return jsonmerge.Clone(m)
	case []any:
		out := make([]any, len(x))
		for i, item := range x {
			out[i] = fromYAML(item)
		}
		return out
	default:
		return v
	}
}

func toYAML(v any) any {
	switch x := v.(type) {
	case *jsonmerge.Object:
		out := make(yaml.MapSlice, 0, x.Len())
		for pair := x.Oldest(); pair != nil; pair = pair.Next() {
			out = append(out, yaml.MapItem{Key: pair.Key, Value: toYAML(pair.Value)})
		}
		return out
	case map[string]any:
		return toYAML(jsonmerge.Clone(x))
	case []any:
		out := make([]any, len(x))
		for i, item := range x {
			out[i] = toYAML(item)
		}
		return out
	case json.Number:
		return numberValue(x)
	default:
		return v
	}
}

// numberValue converts a json.Number to int64 when it is integral, else float64.
func numberValue(n json.Number) any {
	if i, err := n.Int64(); err == nil {
		return i
	}
	if f, err := n.Float64(); err == nil {
		return f
	}
	return n.String()
}
