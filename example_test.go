// SPDX-License-Identifier: Apache-2.0

package jsonmerge_test

import (
	"fmt"
	"log"

	"github.com/sam-fredrickson/jsonmerge"
	"github.com/sam-fredrickson/jsonmerge/internal/codec"
)

func ExampleMerge() {
	mainDoc := []byte(`{
  "editor": {"tabSize": 4, "rulers": [80]},
  "plugins": {"enabled": ["lint", "fmt"]}
}`)
	update := []byte(`{
  "editor": {"tabSize": 2},
  "plugins": {"enabled": ["fmt", "spell"]}
}`)

	result, err := jsonmerge.MergeMarshal(
		jsonmerge.Options{ArrayUnionPaths: []string{"plugins.enabled"}},
		codec.UnmarshalJSON, codec.MarshalJSON,
		mainDoc, update)
	if err != nil {
		log.Fatal(err)
	}
	fmt.Println(string(result))

	// Output:
	// {
	//   "editor": {
	//     "tabSize": 2,
	//     "rulers": [
	//       80
	//     ]
	//   },
	//   "plugins": {
	//     "enabled": [
	//       "lint",
	//       "fmt",
	//       "spell"
	//     ]
	//   }
	// }
}

// Example using TypedMerger to take array-union paths from struct tags.
func ExampleTypedMerger() {
	type Config struct {
		Name   string   `json:"name"`
		Tags   []string `json:"tags" jm:"union"`
		Server struct {
			Hosts []string `json:"hosts" jm:"union"`
			Ports []int    `json:"ports"`
		} `json:"server"`
	}

	merger, err := jsonmerge.NewTypedMerger[Config](jsonmerge.Options{})
	if err != nil {
		log.Fatal(err)
	}
	fmt.Println(merger.Options().ArrayUnionPaths)

	base := []byte(`{"name":"a","tags":["prod","stable"],"server":{"hosts":["h1"],"ports":[80]}}`)
	overlay := []byte(`{"name":"b","tags":["stable","latest"],"server":{"hosts":["h2"],"ports":[443]}}`)

	result, err := merger.MergeMarshal(codec.UnmarshalJSON, codec.MarshalJSON, base, overlay)
	if err != nil {
		log.Fatal(err)
	}

	var doc any
	if err := codec.UnmarshalJSON(result, &doc); err != nil {
		log.Fatal(err)
	}
	obj := doc.(*jsonmerge.Object)
	for _, key := range []string{"name", "tags", "server"} {
		v, _ := obj.Get(key)
		raw, _ := codec.MarshalJSON(v)
		fmt.Printf("%s: %s\n", key, compactJSON(raw))
	}

	// Output:
	// [tags server.hosts]
	// name: "b"
	// tags: ["prod","stable","latest"]
	// server: {"hosts":["h1","h2"],"ports":[443]}
}

func compactJSON(raw []byte) string {
	var out []byte
	inString := false
	escaped := false
	for _, c := range raw {
		switch {
		case escaped:
			escaped = false
		case c == '\\' && inString:
			escaped = true
		case c == '"':
			inString = !inString
		case !inString && (c == ' ' || c == '\n'):
			continue
		}
		out = append(out, c)
	}
	return string(out)
}
