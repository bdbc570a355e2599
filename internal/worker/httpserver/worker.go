// Copyright 2026 Canonical Ltd.
// Licensed under the AGPLv3, see LICENCE file for details.

// Package httpserver provides the worker that serves the relay's HTTP
// endpoints.
package httpserver

import (
	"context"
	"net"
	"net/http"
	"time"

	"github.com/juju/errors"
	"gopkg.in/tomb.v2"
)

// defaultShutdownTimeout bounds how long in-flight requests are given to
// complete once the worker is killed.
const defaultShutdownTimeout = 30 * time.Second

// Logger is the logging the worker needs.
type Logger interface {
	Debugf(string, ...any)
	Infof(string, ...any)
}

// Config holds the configuration for the http server worker.
type Config struct {
	// Listener is the listener to serve on. The worker closes it.
	Listener net.Listener

	// Handler serves every request.
	Handler http.Handler

	// Logger logs stuff.
	Logger Logger

	// ShutdownTimeout defaults to 30 seconds.
	ShutdownTimeout time.Duration
}

// Validate ensures that the configuration is correctly populated.
func (config Config) Validate() error {
	if config.Listener == nil {
		return errors.NotValidf("nil Listener")
	}
	if config.Handler == nil {
		return errors.NotValidf("nil Handler")
	}
	if config.Logger == nil {
		return errors.NotValidf("nil Logger")
	}
	if config.ShutdownTimeout < 0 {
		return errors.NotValidf("negative ShutdownTimeout")
	}
	return nil
}

// Worker serves HTTP until it is killed.
type Worker struct {
	tomb   tomb.Tomb
	config Config
	server *http.Server
}

// NewWorker starts serving on the configured listener.
func NewWorker(config Config) (*Worker, error) {
	if err := config.Validate(); err != nil {
		return nil, errors.Trace(err)
	}
	if config.ShutdownTimeout == 0 {
		config.ShutdownTimeout = defaultShutdownTimeout
	}
	w := &Worker{
		config: config,
		server: &http.Server{
			Handler:           config.Handler,
			ReadHeaderTimeout: 10 * time.Second,
		},
	}
	w.tomb.Go(w.loop)
	w.tomb.Go(w.serve)
	return w, nil
}

// Kill is part of the worker.Worker interface.
func (w *Worker) Kill() {
	w.tomb.Kill(nil)
}

// Wait is part of the worker.Worker interface.
func (w *Worker) Wait() error {
	return w.tomb.Wait()
}

// Addr returns the address the worker is serving on.
func (w *Worker) Addr() net.Addr {
	return w.config.Listener.Addr()
}

func (w *Worker) serve() error {
	w.config.Logger.Infof("listening on %s", w.config.Listener.Addr())
	err := w.server.Serve(w.config.Listener)
	if err == http.ErrServerClosed {
		return nil
	}
	return errors.Annotate(err, "serving http")
}

func (w *Worker) loop() error {
	<-w.tomb.Dying()

	ctx, cancel := context.WithTimeout(context.Background(), w.config.ShutdownTimeout)
	defer cancel()
	w.config.Logger.Debugf("shutting down http server on %s", w.config.Listener.Addr())
	if err := w.server.Shutdown(ctx); err != nil {
		w.config.Logger.Debugf("http server shutdown: %v", err)
	}
	return tomb.ErrDying
}
