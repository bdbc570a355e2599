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
	"github.com/juju/userrelay/internal/worker/datarelay"
	"github.com/juju/userrelay/internal/worker/httpserver"
)

const dataDoc = `
data consumes commands from the requests queue, executes them against the
user store and publishes one result per command to the responses queue.
With --metrics-port, Prometheus metrics are served at /metrics.
`

type dataCommand struct {
	cmd.CommandBase
	daemon
	dial broker.DialFunc
}

func newDataCommand() *dataCommand {
	return &dataCommand{
		daemon: newDaemon(),
		dial:   rabbitmq.Dial,
	}
}

// Info is part of the cmd.Command interface.
func (c *dataCommand) Info() *cmd.Info {
	return &cmd.Info{
		Name:        "data",
		Purpose:     "execute relayed commands against the user store",
		Doc:         dataDoc,
		Intersperse: true,
	}
}

// SetFlags is part of the cmd.Command interface.
func (c *dataCommand) SetFlags(f *gnuflag.FlagSet) {
	c.setFlags(f,
		config.AMQPURLKey,
		config.StoreKey,
		config.MongoHostKey,
		config.MongoPortKey,
		config.MongoDatabaseKey,
		config.MongoCollectionKey,
		config.MongoTimeoutKey,
		config.MetricsPortKey,
	)
}

// Init is part of the cmd.Command interface.
func (c *dataCommand) Init(args []string) error {
	return c.init(args)
}

// Run is part of the cmd.Command interface.
func (c *dataCommand) Run(ctx *cmd.Context) error {
	metrics := datarelay.NewMetricsCollector()
	registry := newRegistry(metrics, collectors.NewGoCollector())
	return c.run(ctx, "data", func(ctx context.Context) (worker.Worker, error) {
		store, closeStore, err := c.openStore()
		if err != nil {
			return nil, errors.Trace(err)
		}
		workers, err := c.dataWorkers(ctx, c.dial, store, metrics)
		if err != nil {
			closeStore()
			return nil, errors.Trace(err)
		}
		if c.config.MetricsPort != 0 {
			server, err := c.serve(c.config.MetricsPort, httpserver.NewRouter(httpserver.RouterConfig{
				Metrics: registry,
			}))
			if err != nil {
				stopAll(workers)
				closeStore()
				return nil, errors.Trace(err)
			}
			workers = append(workers, server)
		}
		return newSession(workers, closeStore)
	})
}
