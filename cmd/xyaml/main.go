// Copyright 2024 SUPREMATIC Technology Arts GmbH
// SPDX-License-Identifier: BSD-2-Clause

// Command xyaml transforms a YAML document: it rewrites values at given
// paths, substitutes {{VAR}} placeholders with environment-derived YAML
// values, and can then exec a child process once the result is written.
package main

import (
	"fmt"
	"os"
	"os/exec"
	"strings"

	"github.com/alecthomas/kong"
	"github.com/mkmik/multierror"
	yaml "gopkg.in/yaml.v3"

	"xyaml.io/pkg/atomicfile"
	"xyaml.io/pkg/yedit"
	"xyaml.io/pkg/ypath"
)

type Context struct {
}

var cli struct {
	Transform TransformCmd `cmd:"" default:"withargs" hidden:"" help:"Transform the document (default command)."`
	Exec      ExecCmd      `cmd:"" help:"Transform the document, then run a command."`
	Get       GetCmd       `cmd:"" help:"Print the value at a path."`
	Edit      EditCmd      `cmd:"" help:"Rewrite scalar values in place, preserving formatting and comments."`

	Version kong.VersionFlag `name:"version" help:"Print version information and quit"`
}

type InputFlags struct {
	Input  string `name:"input" short:"i" placeholder:"FILE" help:"Read the YAML from FILE (or go-getter URL) instead of stdin."`
	Format string `name:"format" enum:"auto,yaml,toml,jsonnet" default:"auto" help:"Input format; auto picks by file extension."`
}

type TransformFlags struct {
	InputFlags

	Output      string   `name:"output" short:"o" placeholder:"FILE" help:"Write the result into FILE instead of stdout."`
	Set         []Setter `name:"set" placeholder:"PATH=VALUE" help:"Set the value at PATH, given as a YAML sequence such as '[a, b, [1]]' or as a JSON Pointer. Repeatable; applied in order."`
	EnvSubst    []string `name:"env-subst" placeholder:"VAR" help:"Replace the {{VAR}} placeholder with the environment variable value. Substitutions happen after all --set replacements."`
	EnvValues   bool     `name:"env-values" help:"The values given to --set are names of environment variables."`
	RequireNull bool     `name:"require-null" help:"Require every replaced value to currently be null."`
}

// A Setter holds one replacement request. The flag format is PATH=VALUE;
// a VALUE of @filename loads the value from a file, and a leading @ can be
// escaped with a backslash.
type Setter struct {
	Path  string
	Value string
}

func (s *Setter) UnmarshalText(in []byte) error {
	c := strings.SplitN(string(in), "=", 2)
	if len(c) != 2 {
		return fmt.Errorf("bad --set format %q, missing '='", in)
	}
	s.Path, s.Value = c[0], c[1]

	if strings.HasPrefix(s.Value, "@") {
		b, err := os.ReadFile(strings.TrimPrefix(s.Value, "@"))
		if err != nil {
			return err
		}
		s.Value = string(b)
	} else if strings.HasPrefix(s.Value, `\@`) {
		s.Value = strings.TrimPrefix(s.Value, `\`)
	}

	return nil
}

type TransformCmd struct {
	TransformFlags
}

func (c *TransformCmd) Run(ctx *Context) error {
	return c.TransformFlags.run()
}

// run executes the whole pipeline: read, replace, substitute, encode, emit.
func (f *TransformFlags) run() error {
	src, err := f.slurp()
	if err != nil {
		return err
	}
	reps, err := f.replacements()
	if err != nil {
		return err
	}
	out, err := transform(src, reps, f.EnvSubst, f.RequireNull)
	if err != nil {
		return err
	}
	return f.emit(out)
}

// replacements resolves the --env-values indirection. All missing
// variables are reported together.
func (f *TransformFlags) replacements() ([]Setter, error) {
	if !f.EnvValues {
		return f.Set, nil
	}

	reps := make([]Setter, len(f.Set))
	var errs []error
	for i, s := range f.Set {
		v, ok := os.LookupEnv(s.Value)
		if !ok {
			errs = append(errs, fmt.Errorf("cannot read the referred env variable `%s`", s.Value))
			continue
		}
		reps[i] = Setter{Path: s.Path, Value: v}
	}
	if errs != nil {
		return nil, multierror.Join(errs)
	}
	return reps, nil
}

func (f *TransformFlags) emit(b []byte) error {
	if f.Output == "" || f.Output == "-" {
		_, err := os.Stdout.Write(b)
		return err
	}
	if err := atomicfile.WriteFile(f.Output, b, 0o644); err != nil {
		return fmt.Errorf("cannot write the output file `%s`: %w", f.Output, err)
	}
	return nil
}

type ExecCmd struct {
	TransformFlags

	SubstArgsWithEnv bool     `name:"subst-args-with-env" help:"Substitute arguments of the form {{VAR}} with the corresponding environment variable values."`
	Args             []string `arg:"" optional:"" passthrough:"" placeholder:"CMD" help:"The executable and its arguments."`
}

func (c *ExecCmd) Run(ctx *Context) error {
	if len(c.Args) == 0 {
		return fmt.Errorf("exec: missing command")
	}
	args := c.Args[1:]
	if c.SubstArgsWithEnv {
		var err error
		if args, err = substituteArgs(args); err != nil {
			return err
		}
	}

	if err := c.TransformFlags.run(); err != nil {
		return err
	}

	cmd := exec.Command(c.Args[0], args...)
	cmd.Stdin, cmd.Stdout, cmd.Stderr = os.Stdin, os.Stdout, os.Stderr
	if err := cmd.Start(); err != nil {
		return fmt.Errorf("exec: cannot spawn `%s`: %w", c.Args[0], err)
	}
	// The child's exit status is deliberately not propagated.
	_ = cmd.Wait()
	return nil
}

// substituteArgs replaces arguments of the exact shape {{VAR}} with the
// raw string value of the environment variable VAR.
func substituteArgs(args []string) ([]string, error) {
	res := make([]string, len(args))
	for i, a := range args {
		res[i] = a
		if strings.HasPrefix(a, "{{") && strings.HasSuffix(a, "}}") && len(a) >= 4 {
			name := a[2 : len(a)-2]
			v, ok := os.LookupEnv(name)
			if !ok {
				return nil, fmt.Errorf("exec: cannot read the referred env variable `%s`", name)
			}
			res[i] = v
		}
	}
	return res, nil
}

type GetCmd struct {
	InputFlags

	Path string `arg:"" help:"Path to resolve, given as a YAML sequence or a JSON Pointer."`
}

func (c *GetCmd) Run(ctx *Context) error {
	src, err := c.slurp()
	if err != nil {
		return err
	}

	var root yaml.Node
	if err := yaml.Unmarshal(src, &root); err != nil {
		return fmt.Errorf("cannot parse YAML: %w", err)
	}
	n, err := ypath.Find(&root, c.Path)
	if err != nil {
		return err
	}

	enc := yaml.NewEncoder(os.Stdout)
	enc.SetIndent(2)
	if err := enc.Encode(n); err != nil {
		return err
	}
	return enc.Close()
}

type EditCmd struct {
	InputFlags

	Output string   `name:"output" short:"o" placeholder:"FILE" help:"Write the result into FILE instead of stdout."`
	Values []Setter `arg:"" help:"Edits to apply. Format: PATH=VALUE."`
}

func (c *EditCmd) Run(ctx *Context) error {
	if f := c.format(); f != "yaml" {
		return fmt.Errorf("edit requires YAML input, got %s", f)
	}
	src, err := c.read()
	if err != nil {
		return err
	}

	ms := make([]yedit.Mapping, len(c.Values))
	for i, v := range c.Values {
		ms[i] = yedit.Mapping{Path: v.Path, Value: v.Value}
	}
	out, err := yedit.Apply(src, ms)
	if err != nil {
		return err
	}

	if c.Output == "" || c.Output == "-" {
		_, err := os.Stdout.Write(out)
		return err
	}
	return atomicfile.WriteFile(c.Output, out, 0o644)
}

func main() {
	ctx := kong.Parse(&cli,
		kong.Description("xyaml - YAML configuration transformer"),
		kong.UsageOnError(),
		kong.Vars{
			"version": "0.1.0",
		},
		kong.ConfigureHelp(kong.HelpOptions{
			Compact: true,
			Summary: true,
		}),
	)
	err := ctx.Run(&Context{})
	ctx.FatalIfErrorf(err)
}
