// Copyright 2024 SUPREMATIC Technology Arts GmbH
// SPDX-License-Identifier: BSD-2-Clause

// Package yedit splices new scalar values into a YAML byte stream while
// preserving the formatting, quoting and comments of everything else.
package yedit

import (
	"fmt"

	yamled "github.com/vmware-labs/go-yaml-edit"
	"github.com/vmware-labs/go-yaml-edit/splice"
	"golang.org/x/text/transform"
	yaml "gopkg.in/yaml.v3"

	"xyaml.io/pkg/ypath"
)

// A Mapping pairs a path with the new scalar value for the node it addresses.
type Mapping struct {
	Path  string
	Value string
}

// Apply rewrites src, replacing each addressed scalar with its new value.
// Unlike a decode/re-encode round trip this keeps the rest of the stream
// byte for byte intact. Only scalar targets are supported.
func Apply(src []byte, ms []Mapping) ([]byte, error) {
	var root yaml.Node
	if err := yaml.Unmarshal(src, &root); err != nil {
		return nil, fmt.Errorf("cannot parse YAML: %w", err)
	}

	var ops []splice.Op
	for _, m := range ms {
		n, err := ypath.Find(&root, m.Path)
		if err != nil {
			return nil, err
		}
		if n.Kind != yaml.ScalarNode {
			return nil, fmt.Errorf("only scalar values can be edited in place, path `%s` addresses a %s", m.Path, kindString(n.Kind))
		}
		ops = append(ops, yamled.Node(n).With(m.Value))
	}

	b, _, err := transform.Bytes(yamled.T(ops...), src)
	return b, err
}

func kindString(k yaml.Kind) string {
	switch k {
	case yaml.DocumentNode:
		return "document"
	case yaml.SequenceNode:
		return "sequence"
	case yaml.MappingNode:
		return "mapping"
	case yaml.ScalarNode:
		return "scalar"
	case yaml.AliasNode:
		return "alias"
	}
	return fmt.Sprintf("kind(%d)", k)
}
