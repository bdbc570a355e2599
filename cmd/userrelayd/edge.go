// Copyright 2026 Canonical Ltd.
// Licensed under the AGPLv3, see LICENCE file for details.

package main

import (
	"context"

	"github.com/juju/errors"
	"github.com/juju/gnuflag"
	"github.com/juju/worker/v4"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/juju/userrelay/cmd"
	"github.com/juju/userrelay/internal/broker"
	"github.com/juju/userrelay/internal/broker/rabbitmq"
	"github.com/juju/userrelay/internal/config"
	"github.com/juju/userrelay/internal/worker/edgerelay"
)

const edgeDoc = `
edge accepts websocket connections at /ws. Every text frame a connection
sends is forwarded to the requests queue; results from the responses queue
are delivered back to the connections. Prometheus metrics are served at
/metrics, and the files in --static-dir, if given, at /.
`

type edgeCommand struct {
	cmd.CommandBase
	daemon
	dial broker.DialFunc
}

func newEdgeCommand() *edgeCommand {
	return &edgeCommand{
		daemon: newDaemon(),
		dial:   rabbitmq.Dial,
	}
}

// Info is part of the cmd.Command interface.
func (c *edgeCommand) Info() *cmd.Info {
	return &cmd.Info{
		Name:        "edge",
		Purpose:     "relay commands from websocket connections",
		Doc:         edgeDoc,
		Intersperse: true,
	}
}

// SetFlags is part of the cmd.Command interface.
func (c *edgeCommand) SetFlags(f *gnuflag.FlagSet) {
	c.setFlags(f, config.AMQPURLKey, config.PortKey, config.StaticDirKey)
}

// Init is part of the cmd.Command interface.
func (c *edgeCommand) Init(args []string) error {
	return c.init(args)
}

// Run is part of the cmd.Command interface.
func (c *edgeCommand) Run(ctx *cmd.Context) error {
	metrics := edgerelay.NewMetricsCollector()
	registry := newRegistry(metrics, collectors.NewGoCollector())
	return c.run(ctx, "edge", func(ctx context.Context) (worker.Worker, error) {
		workers, err := c.edgeWorkers(ctx, c.dial, metrics, registry)
		if err != nil {
			return nil, errors.Trace(err)
		}
		return newSession(workers, nil)
	})
}
