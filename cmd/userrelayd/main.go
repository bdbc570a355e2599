// Copyright 2026 Canonical Ltd.
// Licensed under the AGPLv3, see LICENCE file for details.

// Command userrelayd runs the user command relay: the edge daemon that owns
// websocket connections, the data daemon that owns the user store, or both
// in one process.
package main

import (
	"fmt"
	"os"

	"github.com/juju/loggo/v2"

	"github.com/juju/userrelay/cmd"
)

var logger = loggo.GetLogger("userrelay.cmd.userrelayd")

const superDoc = `
userrelayd relays user management commands between browser connections and
the user store, over two durable broker queues.

Run "edge" next to the web front end and "data" next to the database, or
"standalone" to run both over an in-process broker.
`

func main() {
	ctx, err := cmd.DefaultContext()
	if err != nil {
		fmt.Fprintf(os.Stderr, "ERROR %v\n", err)
		os.Exit(2)
	}
	os.Exit(Main(ctx, os.Args[1:]))
}

// Main runs the userrelayd command line and returns the exit code.
func Main(ctx *cmd.Context, args []string) int {
	return cmd.Main(NewSuperCommand(), ctx, args)
}

// NewSuperCommand returns the userrelayd command with every subcommand
// registered.
func NewSuperCommand() *cmd.SuperCommand {
	super := cmd.NewSuperCommand(cmd.SuperCommandParams{
		Name:    "userrelayd",
		Purpose: "relay user management commands",
		Doc:     superDoc,
		Version: Version.String(),
	})
	super.Register(newEdgeCommand())
	super.Register(newDataCommand())
	super.Register(newStandaloneCommand())
	super.Register(newVersionCommand())
	return super
}
