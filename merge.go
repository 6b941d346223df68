// SPDX-License-Identifier: Apache-2.0

// Package jsonmerge deep-merges JSON configuration documents.
//
// Objects are merged key by key with the update document winning every conflict.
// Arrays are replaced wholesale, except at the key paths listed in
// [Options.ArrayUnionPaths], where the two arrays are combined into a
// deduplicated union.
package jsonmerge

import (
	"errors"
	"fmt"
	"strings"
)

// Sentinel errors for simple error checking with [errors.Is].
// For detailed error information, use [errors.As] with the typed errors below.
var (
	// ErrKeyPathNotFound indicates an array-union key path does not resolve in a document.
	ErrKeyPathNotFound = errors.New("key path not found")
	// ErrNotArray indicates an array-union key path resolves to something other than an array.
	ErrNotArray = errors.New("key path is not an array")
	// ErrMarshal indicates a marshaling or unmarshaling operation failed.
	ErrMarshal = errors.New("marshal error")
	// ErrInvalidOptions indicates invalid merge options were provided.
	ErrInvalidOptions = errors.New("invalid options")
)

// Doc identifies one of the two documents taking part in a merge.
type Doc int

const (
	// DocMain is the base document, the one being updated.
	DocMain Doc = iota
	// DocUpdate is the override document supplying new values.
	DocUpdate
)

func (d Doc) String() string {
	switch d {
	case DocMain:
		return "main"
	case DocUpdate:
		return "update"
	default:
		return fmt.Sprintf("Doc(%d)", d)
	}
}

// Equality selects how array-union decides that two elements are the same.
type Equality int

const (
	// EqualityInsertionOrder compares the serialized text of elements, so objects
	// with the same members in a different key order are distinct (default behavior).
	EqualityInsertionOrder Equality = iota
	// EqualityStructural compares elements with object keys sorted, so key order
	// does not matter.
	EqualityStructural
)

func (e Equality) String() string {
	switch e {
	case EqualityInsertionOrder:
		return "EqualityInsertionOrder"
	case EqualityStructural:
		return "EqualityStructural"
	default:
		return fmt.Sprintf("Equality(%d)", e)
	}
}

// KeyPathError is returned when an array-union key path cannot be resolved
// to a present value in one of the documents.
type KeyPathError struct {
	// Doc is the document the path failed to resolve in.
	Doc Doc
	// Path is the dotted key path as supplied in [Options.ArrayUnionPaths].
	Path string
	// Segment is the first segment that was missing or falsy.
	Segment string
}

func (e *KeyPathError) Error() string {
	return fmt.Sprintf("key path %q not found in %s document (missing %q)", e.Path, e.Doc, e.Segment)
}

func (e *KeyPathError) Is(target error) bool {
	return target == ErrKeyPathNotFound
}

// NotArrayError is returned when an array-union key path resolves to a value
// that is not an array.
type NotArrayError struct {
	// Doc is the document holding the offending value.
	Doc Doc
	// Path is the dotted key path as supplied in [Options.ArrayUnionPaths].
	Path string
	// Value is the value found at the path.
	Value any
}

func (e *NotArrayError) Error() string {
	return fmt.Sprintf("key path %q in %s document is not an array (got %s)", e.Path, e.Doc, kind(e.Value))
}

func (e *NotArrayError) Is(target error) bool {
	return target == ErrNotArray
}

// MarshalError is returned when unmarshaling or marshaling a document fails.
type MarshalError struct {
	// Err is the underlying error returned by a marshaling function.
	Err error
	// Doc tells which document the error occurred in.
	Doc Doc
}

func (e *MarshalError) Error() string {
	return fmt.Sprintf("cannot marshal %s document: %v", e.Doc, e.Err)
}

func (e *MarshalError) Unwrap() error {
	return e.Err
}

func (e *MarshalError) Is(target error) bool {
	return target == ErrMarshal
}

// Options configures merge behavior.
//
// The zero value is valid: a plain deep merge where arrays are replaced.
type Options struct {
	// ArrayUnionPaths lists dotted key paths (e.g. "plugins.enabled") whose arrays are
	// merged by union instead of being replaced. Every path must resolve to an array
	// in both documents or the merge fails. Paths are checked in order.
	ArrayUnionPaths []string

	// Equality selects how duplicate array elements are detected.
	// Default is [EqualityInsertionOrder].
	Equality Equality
}

// Merger performs document merging with the configured options.
//
// A Merger holds no per-merge state and can be reused, including concurrently.
type Merger struct {
	opts  Options
	paths [][]string // ArrayUnionPaths split into segments
}

// NewMerger creates a new [Merger] with the given options.
// Returns an error if the options are invalid.
func NewMerger(opts Options) (*Merger, error) {
	switch opts.Equality {
	case EqualityInsertionOrder, EqualityStructural:
	default:
		return nil, fmt.Errorf("%w: unknown equality %v", ErrInvalidOptions, opts.Equality)
	}
	paths := make([][]string, 0, len(opts.ArrayUnionPaths))
	for _, p := range opts.ArrayUnionPaths {
		segments := strings.Split(p, ".")
		for _, s := range segments {
			if s == "" {
				return nil, fmt.Errorf("%w: empty segment in array-union path %q", ErrInvalidOptions, p)
			}
		}
		paths = append(paths, segments)
	}
	return &Merger{opts: opts, paths: paths}, nil
}

// Options returns the merge options configured for this [Merger].
func (m *Merger) Options() Options {
	return m.opts
}

// Merge merges override into base. See [Merger.Merge] for details.
func Merge(opts Options, base, override any) (any, error) {
	m, err := NewMerger(opts)
	if err != nil {
		return nil, err
	}
	return m.Merge(base, override)
}

// MergeMarshal merges byte documents using provided unmarshal and marshal functions.
// See [Merger.MergeMarshal] for details.
func MergeMarshal(
	opts Options,
	unmarshal func([]byte, any) error,
	marshal func(any) ([]byte, error),
	base, override []byte,
) ([]byte, error) {
	m, err := NewMerger(opts)
	if err != nil {
		return nil, err
	}
	return m.MergeMarshal(unmarshal, marshal, base, override)
}

// Merge deep-merges override into base and returns a new document.
//
// Objects are merged recursively; for keys present on one side only, that side's
// value is copied. Every other combination (arrays, scalars, null, or an object
// paired with a non-object) takes override's value. The result behaves as if base
// and then override were merged into a fresh empty object; neither input is
// modified and the result shares no objects or arrays with them.
//
// Before merging, each path in [Options.ArrayUnionPaths] is resolved in both
// documents. If any path is missing or falsy ([KeyPathError]) or is not an array
// ([NotArrayError]), Merge returns that error and no result. Otherwise the array
// at that path in the result is the union of base's elements followed by
// override's elements not already present.
//
// Input documents should hold *Object, map[string]any, []any, or scalar values.
// Objects in the result are always *Object.
//
// Example:
//
//	base := map[string]any{"plugins": []any{"a", "b"}, "port": 80}
//	override := map[string]any{"plugins": []any{"b", "c"}, "port": 8080}
//	result, _ := Merge(Options{ArrayUnionPaths: []string{"plugins"}}, base, override)
//	// Result: {"plugins": ["a", "b", "c"], "port": 8080}
func (m *Merger) Merge(base, override any) (any, error) {
	unions, err := m.plan(base, override)
	if err != nil {
		return nil, err
	}

	var result any = NewObject()
	result = m.mergeValues(result, base, nil)
	result = m.mergeValues(result, override, unions)
	return result, nil
}

// MergeMarshal merges byte documents using provided unmarshal and marshal functions.
//
// Both documents are unmarshaled, merged with [Merger.Merge], then marshaled back to bytes.
// Works with any serialization format via custom marshal functions; pair it with an
// order-preserving decoder to keep the documents' key order.
//
// Example:
//
//	result, _ := MergeMarshal(Options{}, json.Unmarshal, json.Marshal,
//		[]byte(`{"a": 1}`), []byte(`{"b": 2}`))
func (m *Merger) MergeMarshal(
	unmarshal func([]byte, any) error,
	marshal func(any) ([]byte, error),
	base, override []byte,
) ([]byte, error) {
	var baseDoc, overrideDoc any
	if err := unmarshal(base, &baseDoc); err != nil {
		return nil, &MarshalError{Err: err, Doc: DocMain}
	}
	if err := unmarshal(override, &overrideDoc); err != nil {
		return nil, &MarshalError{Err: err, Doc: DocUpdate}
	}

	result, err := m.Merge(baseDoc, overrideDoc)
	if err != nil {
		return nil, err
	}

	return marshal(result)
}

func (m *Merger) mergeValues(base, override any, unions *unionNode) any {
	if unions != nil && unions.list != nil {
		return Clone(unions.list)
	}

	baseObj, baseIsObj := asObject(base)
	overrideObj, overrideIsObj := asObject(override)
	if baseIsObj && overrideIsObj {
		return m.mergeObjects(baseObj, overrideObj, unions)
	}

	// Arrays, scalars, null and type mismatches: override wins
	return Clone(override)
}

func (m *Merger) mergeObjects(base, override *Object, unions *unionNode) *Object {
	result := NewObject()

	// Copy base, keeping its key order
	for pair := base.Oldest(); pair != nil; pair = pair.Next() {
		result.Set(pair.Key, Clone(pair.Value))
	}

	// Merge override; keys new to base are appended in override's order
	for pair := override.Oldest(); pair != nil; pair = pair.Next() {
		child := unions.child(pair.Key)
		if baseVal, exists := result.Get(pair.Key); exists {
			result.Set(pair.Key, m.mergeValues(baseVal, pair.Value, child))
		} else {
			result.Set(pair.Key, Clone(pair.Value))
		}
	}

	return result
}
