// SPDX-License-Identifier: Apache-2.0

package jsonmerge

import (
	"bytes"
	"encoding/json"
	"math"
	"strconv"
	"strings"
)

// unionNode is a trie of array-union paths. A node with a non-nil list marks the
// end of a path and holds the precomputed union for it.
type unionNode struct {
	children map[string]*unionNode
	list     []any
}

// child returns the node for key, or nil. It is safe to call on a nil node.
func (n *unionNode) child(key string) *unionNode {
	if n == nil {
		return nil
	}
	return n.children[key]
}

func (n *unionNode) insert(path []string, list []any) {
	node := n
	for _, segment := range path {
		next, ok := node.children[segment]
		if !ok {
			next = &unionNode{children: make(map[string]*unionNode)}
			node.children[segment] = next
		}
		node = next
	}
	node.list = list
}

// plan resolves every array-union path in both documents and computes the unions.
// It stops at the first path that fails to resolve.
func (m *Merger) plan(base, override any) (*unionNode, error) {
	if len(m.paths) == 0 {
		return nil, nil
	}

	root := &unionNode{children: make(map[string]*unionNode)}
	for i, path := range m.paths {
		dotted := m.opts.ArrayUnionPaths[i]

		baseList, err := resolveArray(base, path, dotted, DocMain)
		if err != nil {
			return nil, err
		}
		overrideList, err := resolveArray(override, path, dotted, DocUpdate)
		if err != nil {
			return nil, err
		}

		list, err := m.union(baseList, overrideList)
		if err != nil {
			return nil, err
		}
		root.insert(path, list)
	}
	return root, nil
}

// resolveArray walks path through nested objects of doc and returns the array
// found at its end.
func resolveArray(doc any, path []string, dotted string, which Doc) ([]any, error) {
	current := doc
	for _, segment := range path {
		obj, ok := asObject(current)
		if !ok {
			return nil, &KeyPathError{Doc: which, Path: dotted, Segment: segment}
		}
		next, exists := obj.Get(segment)
		if !exists || !truthy(next) {
			return nil, &KeyPathError{Doc: which, Path: dotted, Segment: segment}
		}
		current = next
	}

	list, ok := asArray(current)
	if !ok {
		return nil, &NotArrayError{Doc: which, Path: dotted, Value: current}
	}
	return list, nil
}

// union returns base's elements followed by the elements of override that are
// not already present. Duplicates inside base are kept; duplicates inside
// override are dropped after their first occurrence.
func (m *Merger) union(base, override []any) ([]any, error) {
	result := make([]any, 0, len(base)+len(override))
	seen := make(map[string]struct{}, len(base)+len(override))

	for _, item := range base {
		key, err := m.elementKey(item)
		if err != nil {
			return nil, &MarshalError{Err: err, Doc: DocMain}
		}
		seen[key] = struct{}{}
		result = append(result, item)
	}

	for _, item := range override {
		key, err := m.elementKey(item)
		if err != nil {
			return nil, &MarshalError{Err: err, Doc: DocUpdate}
		}
		if _, exists := seen[key]; exists {
			continue
		}
		seen[key] = struct{}{}
		result = append(result, item)
	}

	return result, nil
}

// elementKey returns the canonical serialized text of v used to detect duplicates.
func (m *Merger) elementKey(v any) (string, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(canonical(v, m.opts.Equality == EqualityStructural)); err != nil {
		return "", err
	}
	return strings.TrimSuffix(buf.String(), "\n"), nil
}

// canonical rewrites v into a form whose JSON text identifies it. Numbers are
// compared by their float64 value, so 1, 1.0 and 1e0 are equal; NaN and ±Inf
// become null as they would in JSON text. With sortKeys, objects become maps,
// which encoding/json writes with sorted keys.
func canonical(v any, sortKeys bool) any {
	switch x := v.(type) {
	case nil, bool, string:
		return x
	case []any:
		out := make([]any, len(x))
		for i, item := range x {
			out[i] = canonical(item, sortKeys)
		}
		return out
	case *Object, map[string]any:
		obj, ok := asObject(x)
		if !ok {
			return nil
		}
		if sortKeys {
			out := make(map[string]any, obj.Len())
			for pair := obj.Oldest(); pair != nil; pair = pair.Next() {
				out[pair.Key] = canonical(pair.Value, sortKeys)
			}
			return out
		}
		out := NewObject()
		for pair := obj.Oldest(); pair != nil; pair = pair.Next() {
			out.Set(pair.Key, canonical(pair.Value, sortKeys))
		}
		return out
	}
	if f, ok := number(v); ok {
		if math.IsNaN(f) || math.IsInf(f, 0) {
			return nil
		}
		return json.Number(strconv.FormatFloat(f, 'g', -1, 64))
	}
	return v
}
