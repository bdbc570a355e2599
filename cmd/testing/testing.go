// Copyright 2026 Canonical Ltd.
// Licensed under the AGPLv3, see LICENCE file for details.

// Package testing holds helpers for testing commands.
package testing

import (
	"bytes"
	"io"

	jc "github.com/juju/testing/checkers"
	gc "gopkg.in/check.v1"

	"github.com/juju/userrelay/cmd"
)

// Context returns a command context rooted in a fresh directory with
// in-memory streams.
func Context(c *gc.C) *cmd.Context {
	return &cmd.Context{
		Dir:    c.MkDir(),
		Stdin:  &bytes.Buffer{},
		Stdout: &bytes.Buffer{},
		Stderr: &bytes.Buffer{},
	}
}

// Stdout returns what was written to a Context's stdout.
func Stdout(ctx *cmd.Context) string {
	return ctx.Stdout.(*bytes.Buffer).String()
}

// Stderr returns what was written to a Context's stderr.
func Stderr(ctx *cmd.Context) string {
	return ctx.Stderr.(*bytes.Buffer).String()
}

// InitCommand parses args on com without running it.
func InitCommand(com cmd.Command, args []string) error {
	return cmd.Parse(com, io.Discard, args)
}

// RunCommand parses args on com and runs it in a fresh Context.
func RunCommand(c *gc.C, com cmd.Command, args ...string) (*cmd.Context, error) {
	ctx := Context(c)
	if err := InitCommand(com, args); err != nil {
		return ctx, err
	}
	return ctx, com.Run(ctx)
}

// RunCommandInBackground parses args on com, then runs it on its own
// goroutine. The returned channel receives the result of Run.
func RunCommandInBackground(c *gc.C, ctx *cmd.Context, com cmd.Command, args ...string) <-chan error {
	c.Assert(InitCommand(com, args), jc.ErrorIsNil)
	errc := make(chan error, 1)
	go func() {
		errc <- com.Run(ctx)
	}()
	return errc
}

// HelpText returns a command's formatted help text.
func HelpText(com cmd.Command) string {
	var buf bytes.Buffer
	cmd.PrintUsage(com, &buf)
	return buf.String()
}
