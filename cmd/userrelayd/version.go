// Copyright 2026 Canonical Ltd.
// Licensed under the AGPLv3, see LICENCE file for details.

package main

import (
	"runtime"

	"github.com/juju/gnuflag"
	"github.com/juju/version/v2"

	"github.com/juju/userrelay/cmd"
)

// Version is the current version of userrelayd.
var Version = version.MustParse("1.0.0")

type versionDetail struct {
	Version  string `json:"version" yaml:"version"`
	Compiler string `json:"compiler" yaml:"compiler"`
	Go       string `json:"go" yaml:"go"`
	OS       string `json:"os" yaml:"os"`
	Arch     string `json:"arch" yaml:"arch"`
}

type versionCommand struct {
	cmd.CommandBase
	out cmd.Output
	all bool
}

func newVersionCommand() *versionCommand {
	return &versionCommand{}
}

// Info is part of the cmd.Command interface.
func (c *versionCommand) Info() *cmd.Info {
	return &cmd.Info{
		Name:        "version",
		Purpose:     "print the current version",
		Intersperse: true,
	}
}

// SetFlags is part of the cmd.Command interface.
func (c *versionCommand) SetFlags(f *gnuflag.FlagSet) {
	c.out.AddFlags(f, "smart", cmd.DefaultFormatters)
	f.BoolVar(&c.all, "all", false, "print build details")
}

// Run is part of the cmd.Command interface.
func (c *versionCommand) Run(ctx *cmd.Context) error {
	if !c.all {
		return c.out.Write(ctx, Version.String())
	}
	return c.out.Write(ctx, versionDetail{
		Version:  Version.String(),
		Compiler: runtime.Compiler,
		Go:       runtime.Version(),
		OS:       runtime.GOOS,
		Arch:     runtime.GOARCH,
	})
}
