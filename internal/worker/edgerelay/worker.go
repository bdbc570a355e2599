// Copyright 2026 Canonical Ltd.
// Licensed under the AGPLv3, see LICENCE file for details.

// Package edgerelay owns the user-facing connections. It forwards their
// commands onto the requests queue and delivers results from the responses
// queue back to them.
package edgerelay

import (
	"context"

	"github.com/google/uuid"
	"github.com/juju/errors"
	"github.com/juju/worker/v4"
	"github.com/juju/worker/v4/catacomb"

	"github.com/juju/userrelay/core/envelope"
	"github.com/juju/userrelay/internal/broker"
)

// Logger is the logging the relay needs.
type Logger interface {
	Tracef(string, ...any)
	Debugf(string, ...any)
	Infof(string, ...any)
	Warningf(string, ...any)
	Errorf(string, ...any)
}

// Config holds the dependencies of the edge relay.
type Config struct {
	// Connection is the broker connection, with both queues declared. The
	// relay takes ownership of it.
	Connection broker.Connection

	// NewCorrelationID returns a fresh correlation id. It defaults to a
	// random UUID.
	NewCorrelationID func() string

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
	if config.Logger == nil {
		return errors.NotValidf("nil Logger")
	}
	return nil
}

type inboundMessage struct {
	connID string
	body   []byte
}

// Relay is the edge relay worker. A single loop goroutine owns the
// registry and the pending correlation table; connections reach it through
// Open, Inbound and Close.
type Relay struct {
	catacomb catacomb.Catacomb
	config   Config

	opens   chan Conn
	closes  chan Conn
	inbound chan inboundMessage

	registry *Registry

	// pending maps correlation ids of forwarded commands to the id of the
	// connection that sent them.
	pending map[string]string
}

// NewWorker starts an edge relay.
func NewWorker(config Config) (*Relay, error) {
	if err := config.Validate(); err != nil {
		return nil, errors.Trace(err)
	}
	if config.NewCorrelationID == nil {
		config.NewCorrelationID = uuid.NewString
	}
	w := &Relay{
		config:   config,
		opens:    make(chan Conn),
		closes:   make(chan Conn),
		inbound:  make(chan inboundMessage),
		registry: NewRegistry(),
		pending:  make(map[string]string),
	}
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
func (w *Relay) Kill() {
	w.catacomb.Kill(nil)
}

// Wait is part of the worker.Worker interface.
func (w *Relay) Wait() error {
	return w.catacomb.Wait()
}

// Open registers conn and binds it as command receiver.
func (w *Relay) Open(conn Conn) error {
	select {
	case <-w.catacomb.Dying():
		return w.catacomb.ErrDying()
	case w.opens <- conn:
		return nil
	}
}

// Close deregisters conn. Closing an unknown connection is not an error.
func (w *Relay) Close(conn Conn) {
	select {
	case <-w.catacomb.Dying():
	case w.closes <- conn:
	}
}

// Inbound forwards body, sent by conn, to the requests queue.
func (w *Relay) Inbound(conn Conn, body []byte) error {
	select {
	case <-w.catacomb.Dying():
		return w.catacomb.ErrDying()
	case w.inbound <- inboundMessage{connID: conn.ID(), body: body}:
		return nil
	}
}

func (w *Relay) loop() error {
	defer w.closeAll()

	ctx := w.catacomb.Context(context.Background())
	replies, err := w.config.Connection.Consume(ctx, broker.ResponsesQueue)
	if err != nil {
		return errors.Annotatef(err, "consuming %q", broker.ResponsesQueue)
	}

	for {
		select {
		case <-w.catacomb.Dying():
			return w.catacomb.ErrDying()

		case conn := <-w.opens:
			w.open(conn)

		case conn := <-w.closes:
			w.remove(conn.ID())

		case msg := <-w.inbound:
			if err := w.forward(ctx, msg); err != nil {
				return w.fatal(err)
			}

		case d, ok := <-replies:
			if !ok {
				// The connection is dying and the catacomb will report why.
				<-w.catacomb.Dying()
				return w.catacomb.ErrDying()
			}
			w.deliver(d.Message)
			if err := d.Ack(); err != nil {
				return w.fatal(errors.Annotate(err, "acknowledging reply"))
			}
		}
	}
}

func (w *Relay) fatal(err error) error {
	select {
	case <-w.catacomb.Dying():
		return w.catacomb.ErrDying()
	default:
		return errors.Trace(err)
	}
}

func (w *Relay) open(conn Conn) {
	if !w.registry.Add(conn) {
		w.config.Logger.Debugf("connection %s already registered", conn.ID())
	}
	w.registry.Bind(conn.ID())
	w.config.Logger.Debugf("connection %s opened", conn.ID())
	w.config.Metrics.setConnections(w.registry.Len())
}

// remove deregisters a connection and forgets its pending commands.
func (w *Relay) remove(id string) {
	if !w.registry.Remove(id) {
		return
	}
	for correlationID, connID := range w.pending {
		if connID == id {
			delete(w.pending, correlationID)
		}
	}
	w.config.Logger.Debugf("connection %s closed", id)
	w.config.Metrics.setConnections(w.registry.Len())
}

func (w *Relay) forward(ctx context.Context, msg inboundMessage) error {
	correlationID := w.config.NewCorrelationID()
	if err := w.config.Connection.Publish(ctx, broker.RequestsQueue, broker.Message{
		Body:          msg.body,
		CorrelationID: correlationID,
	}); err != nil {
		return errors.Annotate(err, "forwarding command")
	}
	if w.registry.Contains(msg.connID) {
		w.pending[correlationID] = msg.connID
	}
	w.config.Logger.Tracef("forwarded command %s from %s", correlationID, msg.connID)
	w.config.Metrics.forwarded()
	return nil
}

// deliver routes one reply. A successful list goes to the connection that
// asked for it, falling back to the bound receiver; everything else is
// broadcast.
func (w *Relay) deliver(msg broker.Message) {
	defer delete(w.pending, msg.CorrelationID)

	result, err := envelope.DecodeResult(msg.Body)
	if err != nil {
		w.config.Logger.Warningf("broadcasting undecodable reply: %v", err)
		w.broadcast(msg.Body)
		return
	}
	if !result.IsSuccessFor(envelope.GetUserList) {
		w.broadcast(msg.Body)
		return
	}

	if connID, ok := w.pending[msg.CorrelationID]; ok {
		if conn, ok := w.registry.Get(connID); ok {
			w.send(conn, msg.Body)
			w.config.Metrics.replied(deliveryCorrelated)
			return
		}
	}
	if conn, ok := w.registry.Bound(); ok {
		w.send(conn, msg.Body)
		w.config.Metrics.replied(deliveryBound)
		return
	}
	w.config.Logger.Debugf("dropping %s reply %q: no receiver", envelope.GetUserList, msg.CorrelationID)
	w.config.Metrics.replied(deliveryDropped)
}

func (w *Relay) broadcast(body []byte) {
	for _, conn := range w.registry.All() {
		w.send(conn, body)
	}
	w.config.Metrics.replied(deliveryBroadcast)
}

// send delivers body to conn. A connection that cannot take it is
// deregistered and closed.
func (w *Relay) send(conn Conn, body []byte) {
	if err := conn.Send(body); err != nil {
		w.config.Logger.Warningf("dropping connection %s: %v", conn.ID(), err)
		w.config.Metrics.sendFailed()
		w.remove(conn.ID())
		if err := conn.Close(); err != nil {
			w.config.Logger.Debugf("closing connection %s: %v", conn.ID(), err)
		}
	}
}

func (w *Relay) closeAll() {
	for _, conn := range w.registry.All() {
		_ = conn.Close()
		w.registry.Remove(conn.ID())
	}
	w.config.Metrics.setConnections(0)
}
