// Copyright 2024 SUPREMATIC Technology Arts GmbH
// SPDX-License-Identifier: BSD-2-Clause

/*
Package ypath addresses and rewrites single nodes inside a yaml.Node tree.

A path is itself YAML: a sequence whose elements select one hop each. A
plain element is a mapping key, compared against the parsed key value (so
integer, boolean and even structured keys work). An element that is a
one-element sequence wrapping a non-negative integer selects that position
in a sequence node:

	[a, b]        the value of key "b" inside the mapping at key "a"
	[a, b, [1]]   element 1 of the sequence found there
	[1]           the value of the integer mapping key 1
	[[1]]         element 1 of the top-level sequence
	[]            the document root

Any other sequence shape at a segment position is rejected: multiple
sequence indexes per hop are deliberately not supported, and neither are
wildcards, slices or filters.

A path starting with "/" is instead interpreted as a JSON Pointer
(RFC 6901); numeric tokens select sequence positions, all other tokens
mapping keys.

Resolution keeps a cursor of the segments consumed so far, including the
one being attempted, and reports it on failure so an error names the exact
hop that did not resolve.
*/
package ypath

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/go-openapi/jsonpointer"
	yaml "gopkg.in/yaml.v3"
)

var (
	// ErrMalformedPath means a path spec did not decode to a YAML sequence,
	// or a sequence index was negative or not an integer.
	ErrMalformedPath = errors.New("malformed path")
	// ErrUnsupportedPath means a segment used a path feature this package
	// deliberately lacks.
	ErrUnsupportedPath = errors.New("unsupported path")
	// ErrNotFound means a segment did not resolve against the document.
	ErrNotFound = errors.New("not found")
	// ErrPreconditionFailed means the target was required to hold null but did not.
	ErrPreconditionFailed = errors.New("precondition failed")
	// ErrInvalidValue means a replacement value is not valid YAML.
	ErrInvalidValue = errors.New("invalid value")
)

// Find locates the node addressed by path in the tree rooted at root.
// The returned node aliases the tree, so overwriting it mutates the document.
func Find(root *yaml.Node, path string) (*yaml.Node, error) {
	segs, err := decode(path)
	if err != nil {
		return nil, err
	}

	current := root
	if current.Kind == yaml.DocumentNode {
		if len(current.Content) == 0 {
			return nil, fmt.Errorf("empty document: %w", ErrNotFound)
		}
		current = current.Content[0]
	}

	var cursor []string
	for _, seg := range segs {
		// The cursor grows before the segment is resolved so that a failure
		// message names the failing segment itself.
		cursor = append(cursor, nodeString(seg))
		next, err := match(current, seg)
		if err != nil {
			return nil, fmt.Errorf("%w\n  cursor=%q\n  path=`%s`", err, cursor, path)
		}
		current = next
	}
	return current, nil
}

// Update overwrites the node addressed by path with the YAML value parsed
// from value. When requireNull is set the node must currently hold null.
// The document is left untouched on every failure path.
func Update(root *yaml.Node, path, value string, requireNull bool) error {
	target, err := Find(root, path)
	if err != nil {
		return err
	}
	if requireNull && !isNull(target) {
		return fmt.Errorf("value at path is not null:\n  value=`%s`\n  path=`%s`: %w",
			nodeString(target), path, ErrPreconditionFailed)
	}
	n, err := ParseValue(value)
	if err != nil {
		return fmt.Errorf("%w\n  path=`%s`", err, path)
	}
	*target = *n
	return nil
}

// ParseValue parses a YAML literal into a node. An empty literal parses to
// an explicit null, which is what the YAML spec says about empty documents.
func ParseValue(s string) (*yaml.Node, error) {
	var n yaml.Node
	if err := yaml.Unmarshal([]byte(s), &n); err != nil {
		return nil, fmt.Errorf("%w:\n  new_value=`%s`\n  error=`%v`", ErrInvalidValue, s, err)
	}
	if n.Kind != yaml.DocumentNode || len(n.Content) == 0 {
		return &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!null", Value: "null"}, nil
	}
	return n.Content[0], nil
}

// decode splits a path spec into its segment nodes.
func decode(path string) ([]*yaml.Node, error) {
	if strings.HasPrefix(path, "/") {
		return decodePointer(path)
	}
	var n yaml.Node
	if err := yaml.Unmarshal([]byte(path), &n); err != nil {
		return nil, fmt.Errorf("cannot parse path as YAML:\n`%s`\nerror: %v: %w", path, err, ErrMalformedPath)
	}
	if n.Kind != yaml.DocumentNode || len(n.Content) == 0 || n.Content[0].Kind != yaml.SequenceNode {
		return nil, fmt.Errorf("path is not a YAML sequence:\n`%s`: %w", path, ErrMalformedPath)
	}
	return n.Content[0].Content, nil
}

// decodePointer turns a JSON Pointer into the equivalent segment list.
// Numeric tokens address sequence positions; mapping keys that look like
// numbers cannot be addressed this way, use the YAML sequence syntax.
func decodePointer(path string) ([]*yaml.Node, error) {
	p, err := jsonpointer.New(path)
	if err != nil {
		return nil, fmt.Errorf("cannot parse path as JSON Pointer:\n`%s`\nerror: %v: %w", path, err, ErrMalformedPath)
	}

	var segs []*yaml.Node
	for _, tok := range p.DecodedTokens() {
		if i, err := strconv.Atoi(tok); err == nil && i >= 0 {
			segs = append(segs, &yaml.Node{
				Kind:    yaml.SequenceNode,
				Content: []*yaml.Node{{Kind: yaml.ScalarNode, Tag: "!!int", Value: tok}},
			})
			continue
		}
		segs = append(segs, &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: tok})
	}
	return segs, nil
}

// match resolves one segment against a node, returning the child node.
func match(node, seg *yaml.Node) (*yaml.Node, error) {
	if node.Kind == yaml.DocumentNode {
		node = node.Content[0]
	}
	if node.Kind == yaml.AliasNode {
		node = node.Alias
	}

	if seg.Kind == yaml.SequenceNode {
		if len(seg.Content) != 1 {
			return nil, fmt.Errorf("multiple sequence indexes are not supported: %w", ErrUnsupportedPath)
		}
		idx := seg.Content[0]
		i, err := strconv.Atoi(idx.Value)
		if idx.ShortTag() != "!!int" || err != nil || i < 0 {
			return nil, fmt.Errorf("invalid sequence index `%s`: %w", nodeString(idx), ErrMalformedPath)
		}
		if node.Kind != yaml.SequenceNode || i >= len(node.Content) {
			return nil, fmt.Errorf("no entry at index %d: %w", i, ErrNotFound)
		}
		return node.Content[i], nil
	}

	if node.Kind != yaml.MappingNode {
		return nil, fmt.Errorf("no key `%s`: %w", nodeString(seg), ErrNotFound)
	}
	for i := 0; i+1 < len(node.Content); i += 2 {
		if equalNode(node.Content[i], seg) {
			return node.Content[i+1], nil
		}
	}
	return nil, fmt.Errorf("no key `%s`: %w", nodeString(seg), ErrNotFound)
}

// nodeString returns the canonical YAML form of a node, without the
// trailing newline emitted by the encoder.
func nodeString(n *yaml.Node) string {
	b, err := yaml.Marshal(n)
	if err != nil {
		return fmt.Sprintf("%v", n)
	}
	return strings.TrimRight(string(b), "\n")
}

func isNull(n *yaml.Node) bool {
	return n.Kind == yaml.ScalarNode && n.ShortTag() == "!!null"
}
