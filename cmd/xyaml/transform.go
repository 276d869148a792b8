// Copyright 2024 SUPREMATIC Technology Arts GmbH
// SPDX-License-Identifier: BSD-2-Clause

package main

import (
	"bytes"
	"fmt"

	yaml "gopkg.in/yaml.v3"

	"xyaml.io/pkg/envsubst"
	"xyaml.io/pkg/ypath"
)

// transform runs the two document passes in order: path replacements
// first, applied in flag order against the evolving document, then the
// placeholder substitution pass. The first error aborts the run, before
// anything is emitted.
func transform(src []byte, reps []Setter, substVars []string, requireNull bool) ([]byte, error) {
	var root yaml.Node
	if err := yaml.Unmarshal(src, &root); err != nil {
		return nil, fmt.Errorf("cannot parse YAML: %w", err)
	}
	if root.Kind == 0 {
		// an empty input parses to nothing; treat it as a null document
		root = yaml.Node{
			Kind:    yaml.DocumentNode,
			Content: []*yaml.Node{{Kind: yaml.ScalarNode, Tag: "!!null", Value: "null"}},
		}
	}

	for _, r := range reps {
		if err := ypath.Update(&root, r.Path, r.Value, requireNull); err != nil {
			return nil, err
		}
	}
	if err := envsubst.Substitute(&root, substVars); err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(&root); err != nil {
		return nil, fmt.Errorf("cannot serialize YAML: %w", err)
	}
	if err := enc.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
