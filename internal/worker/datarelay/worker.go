// Copyright 2026 Canonical Ltd.
// Licensed under the AGPLv3, see LICENCE file for details.

// Package datarelay consumes command envelopes from the requests queue,
// executes them and publishes one result envelope per command onto the
// responses queue.
package datarelay

import (
	"context"
	"time"

	"github.com/juju/clock"
	"github.com/juju/errors"
	"github.com/juju/worker/v4"
	"github.com/juju/worker/v4/catacomb"

	"github.com/juju/userrelay/core/envelope"
	"github.com/juju/userrelay/internal/broker"
)

// consumerGrace is how long the relay waits for a closed consumer's
// connection to report why it died.
const consumerGrace = 5 * time.Second

// malformedPrefix starts the failure message for undecodable requests.
const malformedPrefix = "malformed command envelope: "

// Logger is the logging the relay needs.
type Logger interface {
	Debugf(string, ...any)
	Infof(string, ...any)
	Warningf(string, ...any)
	Errorf(string, ...any)
}

// Dispatcher executes a decoded command.
type Dispatcher interface {
	Execute(ctx context.Context, cmd envelope.Command) envelope.Result
}

// Config holds the dependencies of the data relay.
type Config struct {
	// Connection is the broker connection, with both queues declared. The
	// relay takes ownership of it.
	Connection broker.Connection

	// Dispatcher executes commands.
	Dispatcher Dispatcher

	// Clock times commands.
	Clock clock.Clock

	// Logger logs stuff.
	Logger Logger

	// Metrics is optional.
	Metrics *Collector
}

// Validate ensures that the configuration is correctly populated.
func (config Config) Validate() error {
	if config.Connection == nil {
		return errors.NotValidf("nil Connection")
	}
	if config.Dispatcher == nil {
		return errors.NotValidf("nil Dispatcher")
	}
	if config.Clock == nil {
		return errors.NotValidf("nil Clock")
	}
	if config.Logger == nil {
		return errors.NotValidf("nil Logger")
	}
	return nil
}

type dataRelay struct {
	catacomb catacomb.Catacomb
	config   Config
}

// NewWorker returns a worker relaying requests to the dispatcher until the
// broker connection dies or the worker is killed.
func NewWorker(config Config) (worker.Worker, error) {
	if err := config.Validate(); err != nil {
		return nil, errors.Trace(err)
	}
	w := &dataRelay{config: config}
	if err := catacomb.Invoke(catacomb.Plan{
		Site: &w.catacomb,
		Work: w.loop,
		Init: []worker.Worker{config.Connection},
	}); err != nil {
		return nil, errors.Trace(err)
	}
	return w, nil
}

// Kill is part of the worker.Worker interface.
func (w *dataRelay) Kill() {
	w.catacomb.Kill(nil)
}

// Wait is part of the worker.Worker interface.
func (w *dataRelay) Wait() error {
	return w.catacomb.Wait()
}

func (w *dataRelay) loop() error {
	ctx := w.catacomb.Context(context.Background())

	deliveries, err := w.config.Connection.Consume(ctx, broker.RequestsQueue)
	if err != nil {
		return errors.Annotatef(err, "consuming %q", broker.RequestsQueue)
	}
	w.config.Logger.Infof("relaying commands from %q to %q", broker.RequestsQueue, broker.ResponsesQueue)

	for {
		select {
		case <-w.catacomb.Dying():
			return w.catacomb.ErrDying()
		case d, ok := <-deliveries:
			if !ok {
				select {
				case <-w.catacomb.Dying():
					return w.catacomb.ErrDying()
				case <-w.config.Clock.After(consumerGrace):
					return errors.Errorf("consumer of %q closed", broker.RequestsQueue)
				}
			}
			if err := w.handle(ctx, d); err != nil {
				select {
				case <-w.catacomb.Dying():
					return w.catacomb.ErrDying()
				default:
					return errors.Trace(err)
				}
			}
		}
	}
}

// handle answers one request. The request is acknowledged only after its
// result has been published.
func (w *dataRelay) handle(ctx context.Context, d broker.Delivery) error {
	start := w.config.Clock.Now()

	result, label := w.execute(ctx, d.Body)
	body, err := envelope.EncodeResult(result)
	if err != nil {
		w.config.Logger.Errorf("cannot encode result of %s: %v", label, err)
		result = envelope.Failed(commandOf(result), "encoding result: "+err.Error())
		if body, err = envelope.EncodeResult(result); err != nil {
			return errors.Trace(err)
		}
	}

	if err := w.config.Connection.Publish(ctx, broker.ResponsesQueue, broker.Message{
		Body:          body,
		CorrelationID: d.CorrelationID,
	}); err != nil {
		return errors.Annotate(err, "publishing result")
	}
	if err := d.Ack(); err != nil {
		return errors.Annotate(err, "acknowledging request")
	}

	w.config.Metrics.observe(label, result, w.config.Clock.Now().Sub(start))
	return nil
}

// execute decodes and dispatches one request body, returning its result and
// the metrics label of the command.
func (w *dataRelay) execute(ctx context.Context, body []byte) (envelope.Result, string) {
	cmd, err := envelope.DecodeCommand(body)
	if err != nil {
		w.config.Logger.Warningf("dropping malformed request: %v", err)
		return envelope.Failed(nil, malformedPrefix+err.Error()), labelMalformed
	}
	w.config.Logger.Debugf("executing %q", cmd.Name)
	return w.config.Dispatcher.Execute(ctx, cmd), commandLabel(cmd)
}

func commandOf(result envelope.Result) *string {
	switch {
	case result.OK != nil:
		name := result.OK.Command
		return &name
	case result.Error != nil:
		return result.Error.Command
	}
	return nil
}
