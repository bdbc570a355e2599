// Copyright 2026 Canonical Ltd.
// Licensed under the AGPLv3, see LICENCE file for details.

package cmd

import (
	"fmt"
	"os"
	"runtime"
	"sort"
	"strings"

	"github.com/juju/errors"
	"github.com/juju/gnuflag"
	"github.com/juju/loggo/v2"
)

// LoggingConfigEnvKey names the environment variable holding the initial
// logging configuration.
const LoggingConfigEnvKey = "USERRELAY_LOGGING_CONFIG"

func init() {
	// If the environment key is empty, ConfigureLoggers returns nil and does
	// nothing.
	err := loggo.ConfigureLoggers(os.Getenv(LoggingConfigEnvKey))
	if err != nil {
		fmt.Fprintf(os.Stderr, "ERROR parsing %s: %s\n\n", LoggingConfigEnvKey, err)
	}
}

var logger = loggo.GetLogger("userrelay.cmd")

// SuperCommandParams describes a SuperCommand.
type SuperCommandParams struct {
	Name    string
	Purpose string
	Doc     string
	Version string
}

// SuperCommand dispatches to one of its registered subcommands.
type SuperCommand struct {
	CommandBase
	params  SuperCommandParams
	subcmds map[string]Command
	action  Command
	help    bool
}

// NewSuperCommand returns a SuperCommand with no subcommands.
func NewSuperCommand(params SuperCommandParams) *SuperCommand {
	return &SuperCommand{
		params:  params,
		subcmds: make(map[string]Command),
	}
}

// Register makes a subcommand available. Registering a name twice panics.
func (c *SuperCommand) Register(sub Command) {
	name := sub.Info().Name
	if _, found := c.subcmds[name]; found {
		panic(fmt.Sprintf("command already registered: %q", name))
	}
	c.subcmds[name] = sub
}

// Info is part of the Command interface.
func (c *SuperCommand) Info() *Info {
	names := make([]string, 0, len(c.subcmds))
	for name := range c.subcmds {
		names = append(names, name)
	}
	sort.Strings(names)
	var doc strings.Builder
	if c.params.Doc != "" {
		doc.WriteString(strings.TrimSpace(c.params.Doc))
		doc.WriteString("\n\n")
	}
	doc.WriteString("Commands:\n")
	for _, name := range names {
		fmt.Fprintf(&doc, "    %-12s - %s\n", name, c.subcmds[name].Info().Purpose)
	}
	return &Info{
		Name:    c.params.Name,
		Args:    "<command> ...",
		Purpose: c.params.Purpose,
		Doc:     doc.String(),
	}
}

// Init is part of the Command interface.
func (c *SuperCommand) Init(args []string) error {
	if len(args) == 0 {
		return errors.New("no command specified")
	}
	name, args := args[0], args[1:]
	if name == "help" {
		c.help = true
		if len(args) == 0 {
			c.action = c
			return nil
		}
		name, args = args[0], nil
	}
	sub, found := c.subcmds[name]
	if !found {
		return errors.NotFoundf("command %q", name)
	}
	c.action = sub
	if c.help {
		return nil
	}
	err := Parse(sub, os.Stderr, args)
	if err == gnuflag.ErrHelp {
		c.help = true
		return nil
	}
	return err
}

// Run is part of the Command interface.
func (c *SuperCommand) Run(ctx *Context) error {
	if c.action == nil {
		return errors.New("no command specified")
	}
	if c.help {
		PrintUsage(c.action, ctx.Stdout)
		return nil
	}
	logger.Infof("running %s %s [%s %s]",
		c.params.Name, c.action.Info().Name, c.params.Version, runtime.Version())
	return c.action.Run(ctx)
}
