// Copyright 2026 Canonical Ltd.
// Licensed under the AGPLv3, see LICENCE file for details.

package cmd_test

import (
	"os"
	"path/filepath"

	jc "github.com/juju/testing/checkers"
	gc "gopkg.in/check.v1"

	"github.com/juju/userrelay/cmd"
)

type commandSuite struct{}

var _ = gc.Suite(&commandSuite{})

func (s *commandSuite) TestMainSuccess(c *gc.C) {
	ctx := newContext(c)
	command := &testCommand{name: "verb"}
	code := cmd.Main(command, ctx, []string{"--option", "echo"})
	c.Check(code, gc.Equals, 0)
	c.Check(stdout(ctx), gc.Equals, "hello\n")
	c.Check(command.ran, jc.IsTrue)
}

func (s *commandSuite) TestMainRunError(c *gc.C) {
	ctx := newContext(c)
	code := cmd.Main(&testCommand{name: "verb"}, ctx, []string{"--option", "error"})
	c.Check(code, gc.Equals, 1)
	c.Check(stderr(ctx), gc.Equals, "ERROR BAM!\n")
}

func (s *commandSuite) TestMainSilentError(c *gc.C) {
	ctx := newContext(c)
	code := cmd.Main(&testCommand{name: "verb"}, ctx, []string{"--option", "silent"})
	c.Check(code, gc.Equals, 1)
	c.Check(stderr(ctx), gc.Equals, "")
}

func (s *commandSuite) TestMainUnknownFlag(c *gc.C) {
	ctx := newContext(c)
	command := &testCommand{name: "verb"}
	code := cmd.Main(command, ctx, []string{"--cheese"})
	c.Check(code, gc.Equals, 2)
	c.Check(stderr(ctx), gc.Matches, `(?s).*ERROR flag provided but not defined: -*cheese.*`)
	c.Check(command.ran, jc.IsFalse)
}

func (s *commandSuite) TestMainUnexpectedArgs(c *gc.C) {
	ctx := newContext(c)
	code := cmd.Main(&testCommand{name: "verb"}, ctx, []string{"extra"})
	c.Check(code, gc.Equals, 2)
	c.Check(stderr(ctx), gc.Equals, "ERROR unrecognized args: [\"extra\"]\n")
}

func (s *commandSuite) TestMainHelp(c *gc.C) {
	ctx := newContext(c)
	code := cmd.Main(&testCommand{name: "verb"}, ctx, []string{"--help"})
	c.Check(code, gc.Equals, 0)
	c.Check(stdout(ctx), jc.Contains, "Usage: verb\n")
	c.Check(stdout(ctx), jc.Contains, "verb the users")
	c.Check(stdout(ctx), jc.Contains, "option-doc")
	c.Check(stdout(ctx), jc.Contains, "verb-doc")
}

func (s *commandSuite) TestAbsPath(c *gc.C) {
	ctx := &cmd.Context{Dir: "/srv/relay"}
	c.Check(ctx.AbsPath("static"), gc.Equals, filepath.Join("/srv/relay", "static"))
	c.Check(ctx.AbsPath("/etc/userrelay.yaml"), gc.Equals, "/etc/userrelay.yaml")
}

func (s *commandSuite) TestDefaultContext(c *gc.C) {
	ctx, err := cmd.DefaultContext()
	c.Assert(err, jc.ErrorIsNil)
	wd, err := os.Getwd()
	c.Assert(err, jc.ErrorIsNil)
	c.Check(ctx.Dir, gc.Equals, wd)
	c.Check(ctx.Stdout, gc.Equals, os.Stdout)
}
