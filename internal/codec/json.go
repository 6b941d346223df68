// SPDX-License-Identifier: Apache-2.0

package codec

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/tailscale/hujson"

	"github.com/sam-fredrickson/jsonmerge"
)

// UnmarshalJSON decodes standard JSON into v (a *any), keeping object key order.
// Objects become *jsonmerge.Object and numbers json.Number.
func UnmarshalJSON(data []byte, v any) error {
	doc, err := decodeJSON(data, false)
	if err != nil {
		return err
	}
	return setTarget(v, doc)
}

// UnmarshalJWCC is like [UnmarshalJSON] but also accepts comments and trailing commas.
func UnmarshalJWCC(data []byte, v any) error {
	doc, err := decodeJSON(data, true)
	if err != nil {
		return err
	}
	return setTarget(v, doc)
}

// MarshalJSON encodes doc with two-space indentation and no trailing newline.
// Object keys keep their order and HTML characters are not escaped.
func MarshalJSON(doc any) ([]byte, error) {
	var compact bytes.Buffer
	if err := encodeJSON(&compact, doc); err != nil {
		return nil, err
	}
	var out bytes.Buffer
	if err := json.Indent(&out, compact.Bytes(), "", "  "); err != nil {
		return nil, err
	}
	return out.Bytes(), nil
}

// encodeJSON writes v as compact JSON. Objects are walked here rather than
// through their MarshalJSON methods, which escape HTML in nested values.
func encodeJSON(buf *bytes.Buffer, v any) error {
	switch x := v.(type) {
	case *jsonmerge.Object:
		if x == nil {
			buf.WriteString("null")
			return nil
		}
		buf.WriteByte('{')
		for pair := x.Oldest(); pair != nil; pair = pair.Next() {
			if pair != x.Oldest() {
				buf.WriteByte(',')
			}
			if err := encodeScalar(buf, pair.Key); err != nil {
				return err
			}
			buf.WriteByte(':')
			if err := encodeJSON(buf, pair.Value); err != nil {
				return err
			}
		}
		buf.WriteByte('}')
		return nil
	case map[string]any:
		if x == nil {
			buf.WriteString("null")
			return nil
		}
		return encodeJSON(buf, jsonmerge.Clone(x))
	case []any:
		if x == nil {
			buf.WriteString("null")
			return nil
		}
		buf.WriteByte('[')
		for i, item := range x {
			if i > 0 {
				buf.WriteByte(',')
			}
			if err := encodeJSON(buf, item); err != nil {
				return err
			}
		}
		buf.WriteByte(']')
		return nil
	default:
		return encodeScalar(buf, v)
	}
}

func encodeScalar(buf *bytes.Buffer, v any) error {
	var tmp bytes.Buffer
	enc := json.NewEncoder(&tmp)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return err
	}
	buf.Write(bytes.TrimSuffix(tmp.Bytes(), []byte("\n")))
	return nil
}

func decodeJSON(data []byte, jwcc bool) (any, error) {
	root, err := hujson.Parse(data)
	if err != nil {
		return nil, err
	}

	if !jwcc {
		standard := root.Clone()
		standard.Standardize()
		if standard.String() != root.String() {
			return nil, errors.New("comments and trailing commas are not allowed in JSON")
		}
	}

	return fromHuJSON(root)
}

func fromHuJSON(v hujson.Value) (any, error) {
	switch x := v.Value.(type) {
	case *hujson.Object:
		obj := jsonmerge.NewObject()
		for _, member := range x.Members {
			name, ok := member.Name.Value.(hujson.Literal)
			if !ok {
				return nil, fmt.Errorf("unexpected object member name %T", member.Name.Value)
			}
			var key string
			if err := json.Unmarshal(name, &key); err != nil {
				return nil, err
			}
			val, err := fromHuJSON(member.Value)
			if err != nil {
				return nil, err
			}
			obj.Set(key, val)
		}
		return obj, nil
	case *hujson.Array:
		out := make([]any, 0, len(x.Elements))
		for _, element := range x.Elements {
			val, err := fromHuJSON(element)
			if err != nil {
				return nil, err
			}
			out = append(out, val)
		}
		return out, nil
	case hujson.Literal:
		switch x.Kind() {
		case 'n':
			return nil, nil
		case 't':
			return true, nil
		case 'f':
			return false, nil
		case '"':
			var s string
			if err := json.Unmarshal(x, &s); err != nil {
				return nil, err
			}
			return s, nil
		case '0':
			return json.Number(string(x)), nil
		}
		return nil, fmt.Errorf("unexpected literal %q", string(x))
	default:
		return nil, fmt.Errorf("unexpected value %T", v.Value)
	}
}
