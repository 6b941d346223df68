// SPDX-License-Identifier: Apache-2.0

// Package codec reads and writes configuration documents as jsonmerge trees.
//
// JSON is the primary format. YAML and TOML documents are also supported and are
// selected by file extension.
package codec

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// ErrParse indicates a document's content could not be parsed.
var ErrParse = errors.New("parse error")

// Format is a document serialization format.
type Format string

const (
	// JSON is the default format, also used for unknown extensions.
	JSON Format = "json"
	// YAML is used for .yaml and .yml files.
	YAML Format = "yaml"
	// TOML is used for .toml files.
	TOML Format = "toml"
)

// FormatOf returns the format implied by path's extension.
// Unknown extensions are treated as JSON.
func FormatOf(path string) Format {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return YAML
	case ".toml":
		return TOML
	default:
		return JSON
	}
}

// ParseError is returned when a file's content is not a valid document.
type ParseError struct {
	// Path is the file that failed to parse.
	Path string
	// Format is the format the file was parsed as.
	Format Format
	// Err is the underlying parser error.
	Err error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("failed to parse the %s content of file at path %s because of error: %v",
		strings.ToUpper(string(e.Format)), e.Path, e.Err)
}

func (e *ParseError) Unwrap() error {
	return e.Err
}

func (e *ParseError) Is(target error) bool {
	return target == ErrParse
}

// Unmarshal returns the unmarshal function for f, with the signature expected by
// jsonmerge.MergeMarshal. jwcc only affects JSON.
func (f Format) Unmarshal(jwcc bool) func([]byte, any) error {
	switch f {
	case YAML:
		return UnmarshalYAML
	case TOML:
		return UnmarshalTOML
	default:
		if jwcc {
			return UnmarshalJWCC
		}
		return UnmarshalJSON
	}
}

// Marshal serializes doc in format f.
func (f Format) Marshal(doc any) ([]byte, error) {
	switch f {
	case JSON:
		return MarshalJSON(doc)
	case YAML:
		return MarshalYAML(doc)
	case TOML:
		return MarshalTOML(doc)
	default:
		return nil, fmt.Errorf("invalid format %q", string(f))
	}
}

// ReadFile reads and decodes the document at path in the format implied by its extension.
// A content error is returned as a *ParseError.
func ReadFile(path string, jwcc bool) (any, Format, error) {
	f := FormatOf(path)

	contents, err := os.ReadFile(path)
	if err != nil {
		return nil, f, err
	}

	var doc any
	if err := f.Unmarshal(jwcc)(contents, &doc); err != nil {
		return nil, f, &ParseError{Path: path, Format: f, Err: err}
	}
	return doc, f, nil
}

// setTarget stores doc in v, which must be a non-nil *any.
func setTarget(v any, doc any) error {
	ptr, ok := v.(*any)
	if !ok || ptr == nil {
		return fmt.Errorf("unmarshal target must be a non-nil *any, got %T", v)
	}
	*ptr = doc
	return nil
}
