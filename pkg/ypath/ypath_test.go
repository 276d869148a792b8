// Copyright 2024 SUPREMATIC Technology Arts GmbH
// SPDX-License-Identifier: BSD-2-Clause

package ypath

import (
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	yaml "gopkg.in/yaml.v3"
)

func mustParse(t *testing.T, src string) *yaml.Node {
	t.Helper()
	var n yaml.Node
	if err := yaml.Unmarshal([]byte(src), &n); err != nil {
		t.Fatal(err)
	}
	return &n
}

// reencode normalizes a tree for structural comparison, dropping style
// and formatting information.
func reencode(t *testing.T, n *yaml.Node) string {
	t.Helper()
	var v interface{}
	if err := n.Decode(&v); err != nil {
		t.Fatal(err)
	}
	b, err := yaml.Marshal(v)
	if err != nil {
		t.Fatal(err)
	}
	return string(b)
}

func TestUpdate(t *testing.T) {
	testCases := []struct {
		src   string
		path  string
		value string
		want  string
	}{
		{`{a: 1}`, `[a]`, `2`, `{a: 2}`},
		{`{a: {b: [1, 2, 3]}}`, `[a, b, [1]]`, `99`, `{a: {b: [1, 99, 3]}}`},
		{`{a: 1}`, `[a]`, `[1, 2]`, `{a: [1, 2]}`},
		{`{a: 1}`, `[a]`, `{b: 1}`, `{a: {b: 1}}`},
		{`{a: 1}`, `[a]`, `true`, `{a: true}`},
		{`{a: 1}`, `[a]`, ``, `{a: null}`},
		{`{1: x}`, `[1]`, `y`, `{1: y}`},
		{`{true: x}`, `[true]`, `y`, `{true: y}`},
		{`{a: {b: 1}, c: 2}`, `[a, b]`, `3`, `{a: {b: 3}, c: 2}`},
		{`[x, y]`, `[[0]]`, `z`, `[z, y]`},
		{`[x, [y, z]]`, `[[1], [0]]`, `w`, `[x, [w, z]]`},
		{`{a: 1}`, `[]`, `{b: 2}`, `{b: 2}`},
		{`{a: {b: [1, 2, 3]}}`, `/a/b/1`, `99`, `{a: {b: [1, 99, 3]}}`},
		{`{a/b: 1}`, `/a~1b`, `2`, `{a/b: 2}`},
	}

	for i, tc := range testCases {
		t.Run(fmt.Sprint(i), func(t *testing.T) {
			root := mustParse(t, tc.src)
			if err := Update(root, tc.path, tc.value, false); err != nil {
				t.Fatal(err)
			}
			want := reencode(t, mustParse(t, tc.want))
			if diff := cmp.Diff(want, reencode(t, root)); diff != "" {
				t.Errorf("document mismatch (-want +got):\n%s", diff)
			}

			// applying the same update again must be idempotent
			if err := Update(root, tc.path, tc.value, false); err != nil {
				t.Fatal(err)
			}
			if diff := cmp.Diff(want, reencode(t, root)); diff != "" {
				t.Errorf("second update not idempotent (-want +got):\n%s", diff)
			}
		})
	}
}

func TestUpdateErrors(t *testing.T) {
	testCases := []struct {
		src   string
		path  string
		value string
		err   error
	}{
		{`{a: 1}`, `[b]`, `2`, ErrNotFound},
		{`{a: 1}`, `[a, b]`, `2`, ErrNotFound},        // scalar is not a mapping
		{`{a: [1]}`, `[a, [1]]`, `2`, ErrNotFound},    // index out of bounds
		{`{a: {b: 1}}`, `[a, [0]]`, `2`, ErrNotFound}, // mapping is not a sequence
		{`{a: [1, 2]}`, `[a, [0, 1]]`, `2`, ErrUnsupportedPath},
		{`{a: [1, 2]}`, `[a, []]`, `2`, ErrUnsupportedPath},
		{`{a: [1, 2]}`, `[a, [-1]]`, `2`, ErrMalformedPath},
		{`{a: [1, 2]}`, `[a, [x]]`, `2`, ErrMalformedPath},
		{`{a: [1, 2]}`, `[a, [1.5]]`, `2`, ErrMalformedPath},
		{`{a: 1}`, `a: b`, `2`, ErrMalformedPath}, // path is a mapping, not a sequence
		{`{a: 1}`, `just a string`, `2`, ErrMalformedPath},
		{`{a: 1}`, ``, `2`, ErrMalformedPath},
		{`{a: 1}`, `[a`, `2`, ErrMalformedPath},
		{`{a: 1}`, `[a]`, `{bad: [`, ErrInvalidValue},
	}

	for i, tc := range testCases {
		t.Run(fmt.Sprint(i), func(t *testing.T) {
			root := mustParse(t, tc.src)
			before := reencode(t, root)

			err := Update(root, tc.path, tc.value, false)
			if !errors.Is(err, tc.err) {
				t.Fatalf("got error %v, want %v", err, tc.err)
			}
			if diff := cmp.Diff(before, reencode(t, root)); diff != "" {
				t.Errorf("document changed by a failed update (-want +got):\n%s", diff)
			}
		})
	}
}

func TestUpdateRequireNull(t *testing.T) {
	root := mustParse(t, `{a: null, b: false}`)

	if err := Update(root, `[a]`, `5`, true); err != nil {
		t.Fatal(err)
	}
	want := reencode(t, mustParse(t, `{a: 5, b: false}`))
	if diff := cmp.Diff(want, reencode(t, root)); diff != "" {
		t.Errorf("document mismatch (-want +got):\n%s", diff)
	}

	// the first update filled the slot, a second one must be refused
	if err := Update(root, `[a]`, `5`, true); !errors.Is(err, ErrPreconditionFailed) {
		t.Fatalf("got error %v, want %v", err, ErrPreconditionFailed)
	}
	if err := Update(root, `[b]`, `5`, true); !errors.Is(err, ErrPreconditionFailed) {
		t.Fatalf("got error %v, want %v", err, ErrPreconditionFailed)
	}
	// and must not have mutated anything
	if diff := cmp.Diff(want, reencode(t, root)); diff != "" {
		t.Errorf("document changed by a failed update (-want +got):\n%s", diff)
	}
}

func TestErrorCursor(t *testing.T) {
	root := mustParse(t, `{a: {b: 1}}`)

	_, err := Find(root, `[a, b, c]`)
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("got error %v, want %v", err, ErrNotFound)
	}
	// the cursor includes every consumed segment, the failing one last
	if got, want := err.Error(), `cursor=["a" "b" "c"]`; !strings.Contains(got, want) {
		t.Errorf("error %q does not contain %q", got, want)
	}
	if got, want := err.Error(), "path=`[a, b, c]`"; !strings.Contains(got, want) {
		t.Errorf("error %q does not contain %q", got, want)
	}
}

func TestFindStructuredKey(t *testing.T) {
	root := mustParse(t, "? {k: v}\n: x\n")

	n, err := Find(root, `[{k: v}]`)
	if err != nil {
		t.Fatal(err)
	}
	if got, want := n.Value, "x"; got != want {
		t.Errorf("got: %q, want: %q", got, want)
	}
}

func TestFindScalarTypedKeys(t *testing.T) {
	testCases := []struct {
		src  string
		path string
		want string
	}{
		{`{1: int, "1": str}`, `[1]`, `int`},
		{`{1: int, "1": str}`, `["1"]`, `str`},
		{`{true: b, "true": s}`, `[true]`, `b`},
		{`{~: n}`, `[null]`, `n`},
	}

	for i, tc := range testCases {
		t.Run(fmt.Sprint(i), func(t *testing.T) {
			n, err := Find(mustParse(t, tc.src), tc.path)
			if err != nil {
				t.Fatal(err)
			}
			if got, want := n.Value, tc.want; got != want {
				t.Errorf("got: %q, want: %q", got, want)
			}
		})
	}
}

func TestParseValue(t *testing.T) {
	testCases := []struct {
		in   string
		tag  string
		want string
	}{
		{`42`, "!!int", "42"},
		{`true`, "!!bool", "true"},
		{`hello`, "!!str", "hello"},
		{``, "!!null", "null"},
	}

	for i, tc := range testCases {
		t.Run(fmt.Sprint(i), func(t *testing.T) {
			n, err := ParseValue(tc.in)
			if err != nil {
				t.Fatal(err)
			}
			if got, want := n.ShortTag(), tc.tag; got != want {
				t.Errorf("got: %q, want: %q", got, want)
			}
			if got, want := n.Value, tc.want; got != want {
				t.Errorf("got: %q, want: %q", got, want)
			}
		})
	}

	if _, err := ParseValue("{bad: ["); !errors.Is(err, ErrInvalidValue) {
		t.Fatalf("got error %v, want %v", err, ErrInvalidValue)
	}
}
