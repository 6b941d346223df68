// SPDX-License-Identifier: Apache-2.0

package jsonmerge_test

import (
	"encoding/json"
	"errors"
	"reflect"
	"strings"
	"testing"

	"github.com/goccy/go-yaml"

	"github.com/sam-fredrickson/jsonmerge"
	"github.com/sam-fredrickson/jsonmerge/internal/codec"
)

func TestTypedMerger_Paths(t *testing.T) {
	type TLS struct {
		Ciphers []string `json:"ciphers" jm:"union"`
	}

	type Server struct {
		Hosts []string `json:"hosts" jm:"union"`
		Ports []int    `json:"ports"`
		TLS   *TLS     `json:"tls,omitempty"`
	}

	type Config struct {
		Plugins  []string          `json:"plugins" jm:"union"`
		Server   Server            `json:"server"`
		Servers  []Server          `json:"servers"`
		Labels   map[string]string `json:"labels" jm:"union"`
		Renamed  []string          `json:"ignored" jm:"field=extra,union"`
		YAMLOnly []string          `yaml:"yaml_only" jm:"union"`
		Plain    []string          `jm:"union"`
		Skipped  []string          `json:"-" jm:"union"`
		hidden   []string
	}

	_, err := jsonmerge.NewTypedMerger[Config](jsonmerge.Options{})
	var tagErr *jsonmerge.InvalidTagError
	if !errors.As(err, &tagErr) {
		t.Fatalf("expected InvalidTagError for union on a map, got %v", err)
	}
	if tagErr.Kind != jsonmerge.UnionTag || tagErr.FieldName != "Labels" {
		t.Fatalf("unexpected error details: %+v", tagErr)
	}

	type ValidConfig struct {
		Plugins  []string `json:"plugins" jm:"union"`
		Server   Server   `json:"server"`
		Servers  []Server `json:"servers"`
		Renamed  []string `json:"ignored" jm:"field=extra,union"`
		YAMLOnly []string `yaml:"yaml_only" jm:"union"`
		Plain    []string `jm:"union"`
		Skipped  []string `json:"-" jm:"union"`
		hidden   []string
	}

	merger, err := jsonmerge.NewTypedMerger[ValidConfig](jsonmerge.Options{ArrayUnionPaths: []string{"first"}})
	if err != nil {
		t.Fatal(err)
	}

	expected := []string{"first", "plugins", "server.hosts", "server.tls.ciphers", "extra", "yaml_only", "Plain"}
	if actual := merger.Options().ArrayUnionPaths; !reflect.DeepEqual(actual, expected) {
		t.Fatalf("expected %v, got %v", expected, actual)
	}
}

func TestTypedMerger_DoesNotModifyCallerOptions(t *testing.T) {
	type Config struct {
		Tags []string `json:"tags" jm:"union"`
	}

	paths := make([]string, 1, 4)
	paths[0] = "base"
	opts := jsonmerge.Options{ArrayUnionPaths: paths}

	if _, err := jsonmerge.NewTypedMerger[Config](opts); err != nil {
		t.Fatal(err)
	}
	if len(opts.ArrayUnionPaths) != 1 || paths[:2][1] != "" {
		t.Fatalf("caller options modified: %v", paths[:2])
	}
}

func TestTypedMerger_Merge(t *testing.T) {
	type Config struct {
		Name     string   `yaml:"name"`
		Tags     []string `yaml:"tags" jm:"union"`
		Replaced []string `yaml:"replaced"`
		Network  struct {
			DNS []string `yaml:"dns" jm:"union"`
		} `yaml:"network"`
	}

	merger, err := jsonmerge.NewTypedMerger[Config](jsonmerge.Options{})
	if err != nil {
		t.Fatal(err)
	}

	base := []byte(`
name: base
tags: [prod, stable]
replaced: [a, b]
network:
  dns: [1.1.1.1]
`)
	overlay := []byte(`
name: overlay
tags: [stable, latest]
replaced: [c]
network:
  dns: [8.8.8.8, 1.1.1.1]
`)

	result, err := merger.MergeMarshal(codec.UnmarshalYAML, codec.MarshalYAML, base, overlay)
	if err != nil {
		t.Fatal(err)
	}

	var config Config
	if err := yaml.Unmarshal(result, &config); err != nil {
		t.Fatal(err)
	}

	if config.Name != "overlay" {
		t.Errorf("expected name overlay, got %s", config.Name)
	}
	if expected := []string{"prod", "stable", "latest"}; !reflect.DeepEqual(config.Tags, expected) {
		t.Errorf("expected tags %v, got %v", expected, config.Tags)
	}
	if expected := []string{"c"}; !reflect.DeepEqual(config.Replaced, expected) {
		t.Errorf("expected replaced %v, got %v", expected, config.Replaced)
	}
	if expected := []string{"1.1.1.1", "8.8.8.8"}; !reflect.DeepEqual(config.Network.DNS, expected) {
		t.Errorf("expected dns %v, got %v", expected, config.Network.DNS)
	}
}

func TestTypedMerger_MissingUnionField(t *testing.T) {
	type Config struct {
		Tags []string `json:"tags" jm:"union"`
	}

	merger, err := jsonmerge.NewTypedMerger[Config](jsonmerge.Options{})
	if err != nil {
		t.Fatal(err)
	}

	_, err = merger.MergeMarshal(codec.UnmarshalJSON, json.Marshal,
		[]byte(`{"tags":["a"]}`), []byte(`{"other":1}`))
	if !errors.Is(err, jsonmerge.ErrKeyPathNotFound) {
		t.Fatalf("expected ErrKeyPathNotFound, got %v", err)
	}
}

func TestTypedMerger_RecursiveType(t *testing.T) {
	type Node struct {
		Values []int `json:"values" jm:"union"`
		Next   *Node `json:"next"`
	}

	merger, err := jsonmerge.NewTypedMerger[Node](jsonmerge.Options{})
	if err != nil {
		t.Fatal(err)
	}

	if actual := merger.Options().ArrayUnionPaths; !reflect.DeepEqual(actual, []string{"values"}) {
		t.Fatalf("expected [values], got %v", actual)
	}
}

func TestTypedMerger_NonStruct(t *testing.T) {
	merger, err := jsonmerge.NewTypedMerger[map[string]any](jsonmerge.Options{})
	if err != nil {
		t.Fatal(err)
	}
	if len(merger.Options().ArrayUnionPaths) != 0 {
		t.Fatalf("expected no paths, got %v", merger.Options().ArrayUnionPaths)
	}
}

func TestTypedMerger_InvalidTags(t *testing.T) {
	tests := []struct {
		name    string
		build   func() error
		kind    jsonmerge.TagKind
		message string
	}{
		{
			name: "unknown directive",
			build: func() error {
				type Config struct {
					Tags []string `json:"tags" jm:"onion"`
				}
				_, err := jsonmerge.NewTypedMerger[Config](jsonmerge.Options{})
				return err
			},
			kind:    jsonmerge.UnknownTag,
			message: "unknown jm tag directive",
		},
		{
			name: "empty field override",
			build: func() error {
				type Config struct {
					Tags []string `json:"tags" jm:"field=,union"`
				}
				_, err := jsonmerge.NewTypedMerger[Config](jsonmerge.Options{})
				return err
			},
			kind:    jsonmerge.FieldTag,
			message: "field name cannot be empty",
		},
		{
			name: "union on scalar",
			build: func() error {
				type Config struct {
					Name string `json:"name" jm:"union"`
				}
				_, err := jsonmerge.NewTypedMerger[Config](jsonmerge.Options{})
				return err
			},
			kind:    jsonmerge.UnionTag,
			message: "must be a slice or array",
		},
		{
			name: "nested error",
			build: func() error {
				type Inner struct {
					Count int `json:"count" jm:"union"`
				}
				type Config struct {
					Inner Inner `json:"inner"`
				}
				_, err := jsonmerge.NewTypedMerger[Config](jsonmerge.Options{})
				return err
			},
			kind:    jsonmerge.UnionTag,
			message: "field Inner",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.build()
			if !errors.Is(err, jsonmerge.ErrInvalidTag) {
				t.Fatalf("expected ErrInvalidTag, got %v", err)
			}
			var tagErr *jsonmerge.InvalidTagError
			if !errors.As(err, &tagErr) {
				t.Fatalf("expected InvalidTagError, got %T", err)
			}
			if tagErr.Kind != tt.kind {
				t.Errorf("expected kind %s, got %s", tt.kind, tagErr.Kind)
			}
			if !strings.Contains(err.Error(), tt.message) {
				t.Errorf("expected %q in %q", tt.message, err.Error())
			}
		})
	}
}

func TestTagKindString(t *testing.T) {
	tests := map[jsonmerge.TagKind]string{
		jsonmerge.UnknownTag:  "unknown",
		jsonmerge.UnionTag:    "union",
		jsonmerge.FieldTag:    "field",
		jsonmerge.TagKind(42): "TagKind(42)",
	}
	for kind, expected := range tests {
		if actual := kind.String(); actual != expected {
			t.Errorf("expected %q, got %q", expected, actual)
		}
	}
}
