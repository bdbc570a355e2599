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
	"github.com/juju/userrelay/internal/broker/localbroker"
	"github.com/juju/userrelay/internal/config"
	"github.com/juju/userrelay/internal/worker/datarelay"
	"github.com/juju/userrelay/internal/worker/edgerelay"
)

const standaloneDoc = `
standalone runs the edge and data relays in one process, joined by an
in-process broker. It is meant for development: use --store=memory to run
without MongoDB.
`

type standaloneCommand struct {
	cmd.CommandBase
	daemon
}

func newStandaloneCommand() *standaloneCommand {
	return &standaloneCommand{
		daemon: newDaemon(),
	}
}

// Info is part of the cmd.Command interface.
func (c *standaloneCommand) Info() *cmd.Info {
	return &cmd.Info{
		Name:        "standalone",
		Purpose:     "run both relays over an in-process broker",
		Doc:         standaloneDoc,
		Intersperse: true,
	}
}

// SetFlags is part of the cmd.Command interface.
func (c *standaloneCommand) SetFlags(f *gnuflag.FlagSet) {
	c.setFlags(f,
		config.PortKey,
		config.StaticDirKey,
		config.StoreKey,
		config.MongoHostKey,
		config.MongoPortKey,
		config.MongoDatabaseKey,
		config.MongoCollectionKey,
		config.MongoTimeoutKey,
	)
}

// Init is part of the cmd.Command interface.
func (c *standaloneCommand) Init(args []string) error {
	return c.init(args)
}

// Run is part of the cmd.Command interface.
func (c *standaloneCommand) Run(ctx *cmd.Context) error {
	local := localbroker.New()
	edgeMetrics := edgerelay.NewMetricsCollector()
	dataMetrics := datarelay.NewMetricsCollector()
	registry := newRegistry(edgeMetrics, dataMetrics, collectors.NewGoCollector())

	return c.run(ctx, "standalone", func(ctx context.Context) (worker.Worker, error) {
		store, closeStore, err := c.openStore()
		if err != nil {
			return nil, errors.Trace(err)
		}
		data, err := c.dataWorkers(ctx, local.Dial, store, dataMetrics)
		if err != nil {
			closeStore()
			return nil, errors.Trace(err)
		}
		edge, err := c.edgeWorkers(ctx, local.Dial, edgeMetrics, registry)
		if err != nil {
			stopAll(data)
			closeStore()
			return nil, errors.Trace(err)
		}
		return newSession(append(data, edge...), closeStore)
	})
}
