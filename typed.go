// SPDX-License-Identifier: Apache-2.0

package jsonmerge

import (
	"errors"
	"fmt"
	"reflect"
	"slices"
	"strings"
)

// ErrInvalidTag indicates a jm struct tag contains an invalid directive.
var ErrInvalidTag = errors.New("invalid tag")

// TagKind identifies which jm struct tag directive had an error.
type TagKind int

const (
	// UnknownTag indicates an unknown or unsupported jm tag directive.
	UnknownTag TagKind = iota
	// UnionTag indicates an error with jm:"union" directive.
	UnionTag
	// FieldTag indicates an error with jm:"field=..." directive.
	FieldTag
)

func (k TagKind) String() string {
	switch k {
	case UnknownTag:
		return "unknown"
	case UnionTag:
		return "union"
	case FieldTag:
		return "field"
	default:
		return fmt.Sprintf("TagKind(%d)", k)
	}
}

// InvalidTagError is returned when a jm struct tag contains an invalid directive or value.
type InvalidTagError struct {
	// Kind indicates which jm tag directive had the error.
	Kind TagKind
	// FieldName is the struct field name where the error occurred.
	FieldName string
	// Value is the invalid value.
	Value string
	// Message provides details about what went wrong.
	Message string
}

func (e *InvalidTagError) Error() string {
	if e.Value != "" {
		return fmt.Sprintf("field %s: invalid %s tag: %s (value: %q)",
			e.FieldName, e.Kind.String(), e.Message, e.Value)
	}
	return fmt.Sprintf("field %s: invalid %s tag: %s",
		e.FieldName, e.Kind.String(), e.Message)
}

func (e *InvalidTagError) Is(target error) bool {
	return target == ErrInvalidTag
}

// TypedMerger is a [Merger] whose array-union paths come from the struct tags of T.
//
// Struct tag format:
//   - jm:"union" - merge this slice field by union instead of replacing it
//   - jm:"field=name" - overrides field name detection
//
// Directives can be combined: jm:"field=plugins,union"
//
// Field names are detected from json, yaml and toml struct tags, in that order.
// Nested struct fields (including pointers to structs) yield dotted paths.
// Slices of structs are not descended into, since key paths cannot cross arrays.
//
// Example:
//
//	type Config struct {
//		Plugins []string `json:"plugins" jm:"union"`
//		Server  struct {
//			Hosts []string `json:"hosts" jm:"union"`
//		} `json:"server"`
//	}
//
//	merger, _ := NewTypedMerger[Config](Options{})
//	// merger.Options().ArrayUnionPaths == []string{"plugins", "server.hosts"}
type TypedMerger[T any] struct {
	*Merger
}

// NewTypedMerger creates a new [TypedMerger] with array-union paths extracted
// from type T's struct tags, appended to any paths already in opts.
//
// Returns an error if the options are invalid or if struct tags contain invalid directives.
func NewTypedMerger[T any](opts Options) (*TypedMerger[T], error) {
	paths, err := unionPaths(reflect.TypeOf((*T)(nil)).Elem(), nil, nil)
	if err != nil {
		return nil, err
	}

	opts.ArrayUnionPaths = append(slices.Clone(opts.ArrayUnionPaths), paths...)
	merger, err := NewMerger(opts)
	if err != nil {
		return nil, err
	}
	return &TypedMerger[T]{Merger: merger}, nil
}

// unionPaths recursively collects the dotted paths of union-tagged fields.
// visiting holds the struct types on the current branch to stop on recursive types.
func unionPaths(t reflect.Type, prefix []string, visiting []reflect.Type) ([]string, error) {
	for t.Kind() == reflect.Ptr {
		t = t.Elem()
	}
	if t.Kind() != reflect.Struct || slices.Contains(visiting, t) {
		return nil, nil
	}
	visiting = append(visiting, t)

	var paths []string
	for i := 0; i < t.NumField(); i++ {
		field := t.Field(i)
		if !field.IsExported() {
			continue
		}

		fieldName, skip, err := getFieldName(field)
		if err != nil {
			return nil, err
		}
		if skip {
			continue
		}
		if strings.Contains(fieldName, ".") {
			// Dotted names cannot be addressed by a key path
			continue
		}

		union, err := parseJMTag(field)
		if err != nil {
			return nil, err
		}

		path := append(slices.Clone(prefix), fieldName)
		fieldType := field.Type
		for fieldType.Kind() == reflect.Ptr {
			fieldType = fieldType.Elem()
		}

		if union {
			if fieldType.Kind() != reflect.Slice && fieldType.Kind() != reflect.Array {
				return nil, &InvalidTagError{
					Kind:      UnionTag,
					FieldName: field.Name,
					Message:   fmt.Sprintf("union field must be a slice or array, got %s", field.Type.String()),
				}
			}
			paths = append(paths, strings.Join(path, "."))
			continue
		}

		if fieldType.Kind() == reflect.Struct {
			nested, err := unionPaths(fieldType, path, visiting)
			if err != nil {
				return nil, fmt.Errorf("field %s: %w", field.Name, err)
			}
			paths = append(paths, nested...)
		}
	}

	return paths, nil
}

// getFieldName extracts the serialized field name from struct tags.
// Priority: jm:field override > json > yaml > toml > struct field name.
// skip reports a field excluded from serialization with "-".
func getFieldName(field reflect.StructField) (name string, skip bool, err error) {
	if jmTag := field.Tag.Get("jm"); jmTag != "" {
		fieldName, err := extractFieldDirective(jmTag)
		if err != nil {
			return "", false, fmt.Errorf("field %s: %w", field.Name, err)
		}
		if fieldName != "" {
			return fieldName, false, nil
		}
	}

	for _, tagName := range []string{"json", "yaml", "toml"} {
		tag, ok := field.Tag.Lookup(tagName)
		if !ok {
			continue
		}
		if tag == "-" {
			return "", true, nil
		}
		// Handle "name,omitempty" format - take first part
		if idx := strings.Index(tag, ","); idx != -1 {
			tag = tag[:idx]
		}
		if tag != "" {
			return tag, false, nil
		}
	}

	return field.Name, false, nil
}

// extractFieldDirective extracts the field=name directive from a jm tag.
func extractFieldDirective(jmTag string) (string, error) {
	for _, part := range strings.Split(jmTag, ",") {
		part = strings.TrimSpace(part)
		if strings.HasPrefix(part, "field=") {
			fieldName := strings.TrimPrefix(part, "field=")
			if fieldName == "" {
				return "", &InvalidTagError{
					Kind:    FieldTag,
					Value:   part,
					Message: "field name cannot be empty",
				}
			}
			return fieldName, nil
		}
	}
	return "", nil
}

// parseJMTag parses the jm struct tag and reports whether the field is union-merged.
func parseJMTag(field reflect.StructField) (bool, error) {
	tag := field.Tag.Get("jm")
	if tag == "" {
		return false, nil
	}

	union := false
	for _, part := range strings.Split(tag, ",") {
		part = strings.TrimSpace(part)
		switch {
		case part == "union":
			union = true
		case strings.HasPrefix(part, "field="):
			// handled in getFieldName
		default:
			return false, &InvalidTagError{
				Kind:      UnknownTag,
				FieldName: field.Name,
				Value:     part,
				Message:   "unknown jm tag directive",
			}
		}
	}
	return union, nil
}
