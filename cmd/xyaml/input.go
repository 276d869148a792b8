// Copyright 2024 SUPREMATIC Technology Arts GmbH
// SPDX-License-Identifier: BSD-2-Clause

package main

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/go-jsonnet"
	"github.com/hashicorp/go-getter"
	"github.com/mattn/go-isatty"
	"github.com/pelletier/go-toml"
	yaml "gopkg.in/yaml.v3"
)

// read returns the raw input bytes: stdin when no --input is given, a
// go-getter URL when the value carries a scheme, a local file otherwise.
func (f *InputFlags) read() ([]byte, error) {
	switch {
	case f.Input == "" || f.Input == "-":
		if isatty.IsTerminal(os.Stdin.Fd()) {
			fmt.Fprintf(os.Stderr, "(reading YAML from standard input; hit ctrl-c if this is not what you wanted)\n")
		}
		return io.ReadAll(os.Stdin)
	case strings.Contains(f.Input, "://"):
		return fetch(f.Input)
	default:
		b, err := os.ReadFile(f.Input)
		if err != nil {
			return nil, fmt.Errorf("cannot read the input file `%s`: %w", f.Input, err)
		}
		return b, nil
	}
}

// fetch downloads a remote input into a temporary file.
func fetch(url string) ([]byte, error) {
	tmp, err := os.CreateTemp("", "xyaml")
	if err != nil {
		return nil, err
	}
	tmp.Close()
	defer os.Remove(tmp.Name())

	opt := func(c *getter.Client) (err error) {
		c.Pwd, err = os.Getwd()
		return
	}
	if err := getter.GetFile(tmp.Name(), url, opt); err != nil {
		return nil, fmt.Errorf("cannot fetch the input `%s`: %w", url, err)
	}
	return os.ReadFile(tmp.Name())
}

// format resolves the effective input format, sniffing the file extension
// when --format=auto.
func (f *InputFlags) format() string {
	if f.Format != "" && f.Format != "auto" {
		return f.Format
	}
	switch filepath.Ext(f.Input) {
	case ".toml":
		return "toml"
	case ".jsonnet", ".libsonnet":
		return "jsonnet"
	default:
		return "yaml"
	}
}

// slurp reads the input and converts it to YAML bytes.
func (f *InputFlags) slurp() ([]byte, error) {
	b, err := f.read()
	if err != nil {
		return nil, err
	}
	return convert(b, f.format(), f.Input)
}

// convert renders TOML or Jsonnet input down to YAML bytes. JSON emitted
// by jsonnet is already valid YAML.
func convert(b []byte, format, name string) ([]byte, error) {
	switch format {
	case "toml":
		t, err := toml.LoadBytes(b)
		if err != nil {
			return nil, fmt.Errorf("cannot parse TOML: %w", err)
		}
		return yaml.Marshal(t.ToMap())
	case "jsonnet":
		if name == "" {
			name = "<stdin>"
		}
		vm := jsonnet.MakeVM()
		s, err := vm.EvaluateAnonymousSnippet(name, string(b))
		if err != nil {
			return nil, fmt.Errorf("cannot evaluate jsonnet: %w", err)
		}
		return []byte(s), nil
	default:
		return b, nil
	}
}
