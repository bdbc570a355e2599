// Copyright 2026 Canonical Ltd.
// Licensed under the AGPLv3, see LICENCE file for details.

package cmd_test

import (
	"os"
	"path/filepath"

	"github.com/juju/gnuflag"
	jc "github.com/juju/testing/checkers"
	gc "gopkg.in/check.v1"

	"github.com/juju/userrelay/cmd"
)

type outputSuite struct{}

var _ = gc.Suite(&outputSuite{})

type versionInfo struct {
	Version string `json:"version" yaml:"version"`
	Go      string `json:"go" yaml:"go"`
}

func (s *outputSuite) write(c *gc.C, ctx *cmd.Context, value any, args ...string) {
	var output cmd.Output
	f := gnuflag.NewFlagSet("test", gnuflag.ContinueOnError)
	output.AddFlags(f, "smart", cmd.DefaultFormatters)
	c.Assert(f.Parse(true, args), jc.ErrorIsNil)
	c.Assert(output.Write(ctx, value), jc.ErrorIsNil)
}

func (s *outputSuite) TestFormats(c *gc.C) {
	value := versionInfo{Version: "1.2.3", Go: "go1.23.3"}
	tests := []struct {
		args     []string
		value    any
		expected string
	}{{
		value:    "1.2.3",
		expected: "1.2.3\n",
	}, {
		value:    value,
		expected: "version: 1.2.3\ngo: go1.23.3\n",
	}, {
		args:     []string{"--format", "json"},
		value:    value,
		expected: `{"version":"1.2.3","go":"go1.23.3"}` + "\n",
	}, {
		args:     []string{"--format=yaml"},
		value:    nil,
		expected: "",
	}}
	for i, test := range tests {
		c.Logf("test %d: %v", i, test.args)
		ctx := newContext(c)
		s.write(c, ctx, test.value, test.args...)
		c.Check(stdout(ctx), gc.Equals, test.expected)
	}
}

func (s *outputSuite) TestOutputFile(c *gc.C) {
	ctx := newContext(c)
	s.write(c, ctx, "1.2.3", "-o", "version.txt")
	c.Check(stdout(ctx), gc.Equals, "")

	data, err := os.ReadFile(filepath.Join(ctx.Dir, "version.txt"))
	c.Assert(err, jc.ErrorIsNil)
	c.Check(string(data), gc.Equals, "1.2.3\n")
}

func (s *outputSuite) TestUnknownFormat(c *gc.C) {
	var output cmd.Output
	f := gnuflag.NewFlagSet("test", gnuflag.ContinueOnError)
	f.SetOutput(discard{})
	output.AddFlags(f, "smart", cmd.DefaultFormatters)
	err := f.Parse(true, []string{"--format", "xml"})
	c.Check(err, gc.ErrorMatches, `.*unknown format "xml".*`)
}

type discard struct{}

func (discard) Write(p []byte) (int, error) { return len(p), nil }
