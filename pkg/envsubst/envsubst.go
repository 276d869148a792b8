// Copyright 2024 SUPREMATIC Technology Arts GmbH
// SPDX-License-Identifier: BSD-2-Clause

// Package envsubst replaces placeholder scalars in a YAML tree with
// YAML-parsed values taken from the environment.
//
// A placeholder is a string scalar that is exactly "{{VAR}}" for one of
// the declared variable names. Partial occurrences inside longer strings
// and mapping keys are never substituted.
package envsubst

import (
	"errors"
	"fmt"
	"os"

	yaml "gopkg.in/yaml.v3"

	"xyaml.io/pkg/ypath"
)

// ErrMissingEnv means a placeholder referenced an environment variable
// that is not set.
var ErrMissingEnv = errors.New("missing environment variable")

// Substitute walks the tree and replaces every placeholder scalar for the
// declared vars with the parsed value of the corresponding environment
// variable. It is meant to run after all path replacements, so replacement
// values containing placeholders are substituted too.
func Substitute(root *yaml.Node, vars []string) error {
	table := make(map[string]string, len(vars))
	for _, v := range vars {
		table[fmt.Sprintf("{{%s}}", v)] = v
	}
	return substitute(root, table)
}

func substitute(n *yaml.Node, table map[string]string) error {
	switch n.Kind {
	case yaml.DocumentNode, yaml.SequenceNode:
		for _, c := range n.Content {
			if err := substitute(c, table); err != nil {
				return err
			}
		}

	case yaml.MappingNode:
		// values only; keys are never substituted
		for i := 1; i < len(n.Content); i += 2 {
			if err := substitute(n.Content[i], table); err != nil {
				return err
			}
		}

	case yaml.ScalarNode:
		if n.ShortTag() != "!!str" {
			return nil
		}
		v, ok := table[n.Value]
		if !ok {
			return nil
		}
		raw, ok := os.LookupEnv(v)
		if !ok {
			return fmt.Errorf("%w: `%s`", ErrMissingEnv, v)
		}
		parsed, err := ypath.ParseValue(raw)
		if err != nil {
			return fmt.Errorf("%w\n  env_var=`%s`", err, v)
		}
		*n = *parsed
	}
	return nil
}
