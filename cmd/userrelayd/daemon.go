// Copyright 2026 Canonical Ltd.
// Licensed under the AGPLv3, see LICENCE file for details.

package main

import (
	"context"
	"net"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/juju/clock"
	"github.com/juju/errors"
	"github.com/juju/gnuflag"
	"github.com/juju/loggo/v2"
	"github.com/juju/worker/v4"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/juju/userrelay/cmd"
	"github.com/juju/userrelay/internal/broker"
	"github.com/juju/userrelay/internal/config"
	"github.com/juju/userrelay/internal/dispatcher"
	"github.com/juju/userrelay/internal/logsink"
	"github.com/juju/userrelay/internal/store/memstore"
	"github.com/juju/userrelay/internal/store/mongostore"
	"github.com/juju/userrelay/internal/worker/datarelay"
	"github.com/juju/userrelay/internal/worker/edgerelay"
	"github.com/juju/userrelay/internal/worker/httpserver"
	"github.com/juju/userrelay/internal/worker/simplesignalhandler"
)

const (
	logSinkName      = "logsink"
	logBatchSize     = 64
	logFlushInterval = 2 * time.Second
	logFileMaxSizeMB = 100
	logFileBackups   = 3
)

// Logger is the logging the daemon plumbing needs.
type Logger interface {
	Infof(string, ...any)
	Warningf(string, ...any)
}

// daemon holds what the edge, data and standalone commands share: the
// settings, how they listen, and how they learn to stop.
type daemon struct {
	flags  *config.Flags
	config config.Config
	clock  clock.Clock

	listen  func(network, address string) (net.Listener, error)
	signals func() (<-chan os.Signal, func())

	// memory is shared by every session of one run, so users survive
	// a restart of the session.
	memory *memstore.Store
}

func newDaemon() daemon {
	return daemon{
		clock:   clock.WallClock,
		listen:  net.Listen,
		signals: notifySignals,
	}
}

func notifySignals() (<-chan os.Signal, func()) {
	ch := make(chan os.Signal, 1)
	signal.Notify(ch, os.Interrupt, syscall.SIGTERM)
	return ch, func() { signal.Stop(ch) }
}

func (d *daemon) setFlags(f *gnuflag.FlagSet, keys ...string) {
	keys = append(keys, config.LogFileKey, config.LoggingConfigKey)
	d.flags = config.NewFlags(f, keys...)
}

func (d *daemon) init(args []string) error {
	if err := cmd.CheckEmpty(args); err != nil {
		return errors.Trace(err)
	}
	cfg, err := d.flags.Resolve()
	if err != nil {
		return errors.Trace(err)
	}
	d.config = cfg
	return nil
}

// run supervises sessions created by start until a termination signal
// arrives.
func (d *daemon) run(ctx *cmd.Context, name string, start StartFunc) error {
	stopLogging, err := d.setupLogging(ctx)
	if err != nil {
		return errors.Trace(err)
	}
	defer stopLogging()

	sigCh, stopSignals := d.signals()
	defer stopSignals()
	watcher, err := simplesignalhandler.NewSignalWatcher(logger, sigCh,
		simplesignalhandler.SignalHandler(simplesignalhandler.ErrTerminated, nil))
	if err != nil {
		return errors.Trace(err)
	}
	defer func() { _ = worker.Stop(watcher) }()

	stop := make(chan struct{})
	go func() {
		_ = watcher.Wait()
		close(stop)
	}()

	logger.Infof("%s %s starting", name, Version)
	err = supervise(superviseParams{
		Start:  start,
		Stop:   stop,
		Clock:  d.clock,
		Logger: logger,
	})
	logger.Infof("%s stopped", name)
	return errors.Trace(err)
}

func (d *daemon) setupLogging(ctx *cmd.Context) (func(), error) {
	if d.config.LoggingConfig != "" {
		if err := loggo.ConfigureLoggers(d.config.LoggingConfig); err != nil {
			return nil, errors.Annotate(err, "configuring logging")
		}
	}
	if d.config.LogFile == "" {
		return func() {}, nil
	}
	sink, err := logsink.NewLogSink(logsink.Config{
		Writer:        logsink.OpenFile(ctx.AbsPath(d.config.LogFile), logFileMaxSizeMB, logFileBackups),
		BatchSize:     logBatchSize,
		FlushInterval: logFlushInterval,
		Clock:         d.clock,
	})
	if err != nil {
		return nil, errors.Trace(err)
	}
	if err := loggo.RegisterWriter(logSinkName, sink); err != nil {
		_ = sink.Close()
		return nil, errors.Annotate(err, "registering log sink")
	}
	return func() {
		_, _ = loggo.RemoveWriter(logSinkName)
		_ = sink.Close()
	}, nil
}

// openStore returns the configured user store and a func releasing it.
func (d *daemon) openStore() (dispatcher.Store, func(), error) {
	switch d.config.Store {
	case config.StoreMemory:
		if d.memory == nil {
			d.memory = memstore.New()
		}
		return d.memory, func() {}, nil
	default:
		store, err := mongostore.Open(mongostore.Config{
			Host:       d.config.MongoHost,
			Port:       d.config.MongoPort,
			Database:   d.config.MongoDatabase,
			Collection: d.config.MongoCollection,
			Timeout:    d.config.MongoTimeout,
		})
		if err != nil {
			return nil, nil, errors.Trace(err)
		}
		return store, store.Close, nil
	}
}

// serve starts an HTTP server worker on port.
func (d *daemon) serve(port int, handler http.Handler) (worker.Worker, error) {
	listener, err := d.listen("tcp", net.JoinHostPort("", strconv.Itoa(port)))
	if err != nil {
		return nil, errors.Annotatef(err, "listening on port %d", port)
	}
	w, err := httpserver.NewWorker(httpserver.Config{
		Listener: listener,
		Handler:  handler,
		Logger:   loggo.GetLogger("userrelay.httpserver"),
	})
	if err != nil {
		_ = listener.Close()
		return nil, errors.Trace(err)
	}
	return w, nil
}

// edgeWorkers connects an edge relay to the broker and serves it.
func (d *daemon) edgeWorkers(
	ctx context.Context, dial broker.DialFunc, metrics *edgerelay.Collector, gatherer prometheus.Gatherer,
) ([]worker.Worker, error) {
	conn, err := broker.Setup(ctx, dial, d.config.AMQPURL, broker.RequestsQueue, broker.ResponsesQueue)
	if err != nil {
		return nil, errors.Trace(err)
	}
	edgeLogger := loggo.GetLogger("userrelay.edge")
	relay, err := edgerelay.NewWorker(edgerelay.Config{
		Connection: conn,
		Logger:     edgeLogger,
		Metrics:    metrics,
	})
	if err != nil {
		_ = worker.Stop(conn)
		return nil, errors.Trace(err)
	}
	router := httpserver.NewRouter(httpserver.RouterConfig{
		Websocket: edgerelay.NewWebsocketHandler(relay, edgeLogger),
		Metrics:   gatherer,
		StaticDir: d.config.StaticDir,
	})
	server, err := d.serve(d.config.Port, router)
	if err != nil {
		_ = worker.Stop(relay)
		return nil, errors.Trace(err)
	}
	return []worker.Worker{relay, server}, nil
}

// dataWorkers connects a data relay over store to the broker.
func (d *daemon) dataWorkers(
	ctx context.Context, dial broker.DialFunc, store dispatcher.Store, metrics *datarelay.Collector,
) ([]worker.Worker, error) {
	conn, err := broker.Setup(ctx, dial, d.config.AMQPURL, broker.RequestsQueue, broker.ResponsesQueue)
	if err != nil {
		return nil, errors.Trace(err)
	}
	relay, err := datarelay.NewWorker(datarelay.Config{
		Connection: conn,
		Dispatcher: dispatcher.New(store, loggo.GetLogger("userrelay.dispatcher")),
		Clock:      d.clock,
		Logger:     loggo.GetLogger("userrelay.data"),
		Metrics:    metrics,
	})
	if err != nil {
		_ = worker.Stop(conn)
		return nil, errors.Trace(err)
	}
	return []worker.Worker{relay}, nil
}

func stopAll(workers []worker.Worker) {
	for _, w := range workers {
		_ = worker.Stop(w)
	}
}

func newRegistry(collectors ...prometheus.Collector) *prometheus.Registry {
	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors...)
	return registry
}
