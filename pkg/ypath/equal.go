package ypath

import (
	"strings"

	yaml "gopkg.in/yaml.v3"
)

// equalNode returns true if the trees a and b hold the same value: same
// kind, same resolved tag, equivalent scalar value and structurally equal
// children. Mapping equality ignores key order; sequence equality does not.
func equalNode(a, b *yaml.Node) bool {
	if a.Kind == yaml.DocumentNode {
		a = a.Content[0]
	}
	if b.Kind == yaml.DocumentNode {
		b = b.Content[0]
	}
	if a.Kind == yaml.AliasNode {
		a = a.Alias
	}
	if b.Kind == yaml.AliasNode {
		b = b.Alias
	}

	if a.Kind != b.Kind || a.ShortTag() != b.ShortTag() {
		return false
	}

	switch a.Kind {
	case yaml.ScalarNode:
		switch a.ShortTag() {
		case "!!null":
			// all spellings of null (~, null, empty) are the same value
			return true
		case "!!bool":
			return strings.EqualFold(a.Value, b.Value)
		}
		return a.Value == b.Value

	case yaml.SequenceNode:
		if len(a.Content) != len(b.Content) {
			return false
		}
		for i := range a.Content {
			if !equalNode(a.Content[i], b.Content[i]) {
				return false
			}
		}

	case yaml.MappingNode:
		if len(a.Content) != len(b.Content) {
			return false
		}
		for i := 0; i+1 < len(a.Content); i += 2 {
			found := false
			for j := 0; j+1 < len(b.Content); j += 2 {
				if equalNode(a.Content[i], b.Content[j]) && equalNode(a.Content[i+1], b.Content[j+1]) {
					found = true
					break
				}
			}
			if !found {
				return false
			}
		}
	}

	return true
}
