// Copyright 2026 Canonical Ltd.
// Licensed under the AGPLv3, see LICENCE file for details.

// Package broker describes the message broker capability shared by the
// edge and data relays: durable queues with publish, consume and per
// delivery acknowledgement.
package broker

import (
	"context"

	"github.com/juju/errors"
	"github.com/juju/worker/v4"
)

const (
	// RequestsQueue carries command envelopes from the edge to the data
	// service.
	RequestsQueue = "web_to_data"

	// ResponsesQueue carries result envelopes from the data service back to
	// the edge.
	ResponsesQueue = "data_to_web"
)

const (
	// ErrConsumerCancelled is returned by a connection whose consumer was
	// cancelled by the broker.
	ErrConsumerCancelled = errors.ConstError("consumer cancelled by broker")

	// ErrConnectionClosed is returned by a connection that the broker
	// closed.
	ErrConnectionClosed = errors.ConstError("broker connection closed")
)

// Message is a message body plus the metadata the relays thread through
// both queues.
type Message struct {
	Body          []byte
	CorrelationID string
}

// Delivery is a consumed message that must be acknowledged once handled.
type Delivery struct {
	Message

	ack func() error
}

// NewDelivery returns a delivery acknowledged by calling ack.
func NewDelivery(msg Message, ack func() error) Delivery {
	return Delivery{
		Message: msg,
		ack:     ack,
	}
}

// Ack acknowledges the delivery.
func (d Delivery) Ack() error {
	if d.ack == nil {
		return errors.NotSupportedf("ack on detached delivery")
	}
	return d.ack()
}

// Connection is a live broker channel. It is a worker: when the broker
// connection is lost or a consumer is cancelled the worker dies with the
// reason.
type Connection interface {
	worker.Worker

	// DeclareQueue declares a durable queue. Declaring an existing queue
	// is a no-op.
	DeclareQueue(ctx context.Context, name string) error

	// Publish sends msg to the named queue. It returns once the broker has
	// taken the message.
	Publish(ctx context.Context, queue string, msg Message) error

	// Consume starts consuming the named queue. The channel is closed when
	// the connection dies.
	Consume(ctx context.Context, queue string) (<-chan Delivery, error)
}

// DialFunc opens a broker connection.
type DialFunc func(ctx context.Context, url string) (Connection, error)

// Setup dials the broker and declares every queue. On failure the
// connection is stopped and a single annotated error returned.
func Setup(ctx context.Context, dial DialFunc, url string, queues ...string) (Connection, error) {
	conn, err := dial(ctx, url)
	if err != nil {
		return nil, errors.Annotatef(err, "connecting to broker")
	}
	for _, queue := range queues {
		if err := conn.DeclareQueue(ctx, queue); err != nil {
			_ = worker.Stop(conn)
			return nil, errors.Annotatef(err, "declaring queue %q", queue)
		}
	}
	return conn, nil
}
