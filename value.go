// SPDX-License-Identifier: Apache-2.0

package jsonmerge

import (
	"encoding/json"
	"errors"
	"math"
	"reflect"
	"slices"
	"strconv"

	orderedmap "github.com/wk8/go-ordered-map/v2"
)

// Object is a JSON object that remembers the order in which its keys were inserted.
//
// Decoders in this module produce *Object for every JSON object so that a merged
// document keeps the key order of its inputs.
type Object = orderedmap.OrderedMap[string, any]

// NewObject returns an empty [Object].
func NewObject() *Object {
	return orderedmap.New[string, any]()
}

// asObject reports whether v is a JSON object.
// A map[string]any is converted to an [Object] with its keys in sorted order.
func asObject(v any) (*Object, bool) {
	switch o := v.(type) {
	case *Object:
		return o, o != nil
	case map[string]any:
		keys := make([]string, 0, len(o))
		for k := range o {
			keys = append(keys, k)
		}
		slices.Sort(keys)
		obj := NewObject()
		for _, k := range keys {
			obj.Set(k, o[k])
		}
		return obj, true
	default:
		return nil, false
	}
}

// asArray reports whether v is a JSON array.
func asArray(v any) ([]any, bool) {
	arr, ok := v.([]any)
	return arr, ok
}

// Clone returns a deep copy of a JSON value.
// Objects and arrays are copied recursively; scalars are returned as is.
func Clone(v any) any {
	switch x := v.(type) {
	case *Object:
		if x == nil {
			return nil
		}
		out := NewObject()
		for pair := x.Oldest(); pair != nil; pair = pair.Next() {
			out.Set(pair.Key, Clone(pair.Value))
		}
		return out
	case map[string]any:
		obj, _ := asObject(x)
		return Clone(obj)
	case []any:
		out := make([]any, len(x))
		for i, item := range x {
			out[i] = Clone(item)
		}
		return out
	default:
		return v
	}
}

// number returns the numeric value of v if v is a JSON number.
func number(v any) (float64, bool) {
	if n, ok := v.(json.Number); ok {
		// Out-of-range literals parse to ±Inf with ErrRange
		f, err := strconv.ParseFloat(string(n), 64)
		if err != nil && !errors.Is(err, strconv.ErrRange) {
			return math.NaN(), true
		}
		return f, true
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return float64(rv.Int()), true
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return float64(rv.Uint()), true
	case reflect.Float32, reflect.Float64:
		return rv.Float(), true
	default:
		return 0, false
	}
}

// truthy mirrors JavaScript truthiness for JSON values:
// null, false, 0, NaN and "" are falsy, everything else (including empty
// objects and arrays) is truthy.
func truthy(v any) bool {
	switch x := v.(type) {
	case nil:
		return false
	case bool:
		return x
	case string:
		return x != ""
	case *Object:
		return x != nil
	}
	if f, ok := number(v); ok {
		return f != 0 && !math.IsNaN(f)
	}
	return true
}

// kind names the JSON type of v for error messages.
func kind(v any) string {
	switch v.(type) {
	case nil:
		return "null"
	case bool:
		return "boolean"
	case string:
		return "string"
	case []any:
		return "array"
	case *Object, map[string]any:
		return "object"
	}
	if _, ok := number(v); ok {
		return "number"
	}
	return reflect.TypeOf(v).String()
}
