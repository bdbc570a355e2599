// Copyright 2026 Canonical Ltd.
// Licensed under the AGPLv3, see LICENCE file for details.

// Package rabbitmq implements the broker capability over AMQP 0-9-1.
package rabbitmq

import (
	"context"
	"sync"
	"time"

	"github.com/juju/errors"
	amqp091 "github.com/rabbitmq/amqp091-go"
	"gopkg.in/tomb.v2"

	"github.com/juju/userrelay/internal/broker"
)

const (
	dialTimeout = 30 * time.Second

	// contentType is the content type of every published body.
	contentType = "application/json"

	connectionName = "userrelay"
)

// Connection is one AMQP connection carrying a single channel in confirm
// mode with a prefetch of one.
type Connection struct {
	tomb tomb.Tomb

	conn *amqp091.Connection
	ch   *amqp091.Channel

	mu     sync.Mutex
	closed bool
}

// Dial connects to the broker at url. It satisfies broker.DialFunc.
func Dial(ctx context.Context, url string) (broker.Connection, error) {
	if err := ctx.Err(); err != nil {
		return nil, errors.Trace(err)
	}
	properties := amqp091.NewConnectionProperties()
	properties.SetClientConnectionName(connectionName)
	conn, err := amqp091.DialConfig(url, amqp091.Config{
		Dial:       amqp091.DefaultDial(dialTimeout),
		Properties: properties,
	})
	if err != nil {
		return nil, errors.Trace(err)
	}

	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, errors.Annotate(err, "opening channel")
	}
	if err := ch.Qos(1, 0, false); err != nil {
		_ = conn.Close()
		return nil, errors.Annotate(err, "setting prefetch")
	}
	if err := ch.Confirm(false); err != nil {
		_ = conn.Close()
		return nil, errors.Annotate(err, "enabling publisher confirms")
	}

	c := &Connection{
		conn: conn,
		ch:   ch,
	}
	connClosed := conn.NotifyClose(make(chan *amqp091.Error, 1))
	chClosed := ch.NotifyClose(make(chan *amqp091.Error, 1))
	cancelled := ch.NotifyCancel(make(chan string, 1))
	c.tomb.Go(func() error {
		return c.loop(connClosed, chClosed, cancelled)
	})
	return c, nil
}

// Kill is part of the worker.Worker interface.
func (c *Connection) Kill() {
	c.tomb.Kill(nil)
}

// Wait is part of the worker.Worker interface.
func (c *Connection) Wait() error {
	return c.tomb.Wait()
}

func (c *Connection) loop(connClosed, chClosed <-chan *amqp091.Error, cancelled <-chan string) error {
	defer func() {
		c.mu.Lock()
		c.closed = true
		c.mu.Unlock()
		if !c.conn.IsClosed() {
			_ = c.conn.Close()
		}
	}()

	select {
	case <-c.tomb.Dying():
		return tomb.ErrDying
	case amqpErr := <-connClosed:
		return closeReason("connection", amqpErr)
	case amqpErr := <-chClosed:
		return closeReason("channel", amqpErr)
	case tag := <-cancelled:
		_ = c.ch.Close()
		return errors.Annotatef(broker.ErrConsumerCancelled, "consumer %q", tag)
	}
}

// closeReason turns a close notification into the worker's exit error. A
// nil amqpErr means a graceful close.
func closeReason(what string, amqpErr *amqp091.Error) error {
	if amqpErr == nil {
		return errors.Annotatef(broker.ErrConnectionClosed, "%s closed", what)
	}
	return errors.Annotatef(broker.ErrConnectionClosed, "%s closed: %s (%d)", what, amqpErr.Reason, amqpErr.Code)
}

// DeclareQueue is part of the broker.Connection interface.
func (c *Connection) DeclareQueue(ctx context.Context, name string) error {
	if err := ctx.Err(); err != nil {
		return errors.Trace(err)
	}
	_, err := c.ch.QueueDeclare(name, true, false, false, false, nil)
	return errors.Trace(err)
}

// Publish is part of the broker.Connection interface. It waits for the
// broker's confirmation.
func (c *Connection) Publish(ctx context.Context, queue string, msg broker.Message) error {
	confirm, err := c.ch.PublishWithDeferredConfirmWithContext(ctx, "", queue, false, false, publishing(msg))
	if err != nil {
		return errors.Annotatef(err, "publishing to %q", queue)
	}
	acked, err := confirm.WaitContext(ctx)
	if err != nil {
		return errors.Annotatef(err, "waiting for confirmation from %q", queue)
	}
	if !acked {
		return errors.Errorf("broker rejected message for %q", queue)
	}
	return nil
}

// Consume is part of the broker.Connection interface.
func (c *Connection) Consume(ctx context.Context, queue string) (<-chan broker.Delivery, error) {
	if err := ctx.Err(); err != nil {
		return nil, errors.Trace(err)
	}
	msgs, err := c.ch.Consume(queue, "", false, false, false, false, nil)
	if err != nil {
		return nil, errors.Annotatef(err, "consuming %q", queue)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return nil, broker.ErrConnectionClosed
	}

	out := make(chan broker.Delivery)
	c.tomb.Go(func() error {
		defer close(out)
		for {
			select {
			case <-c.tomb.Dying():
				return nil
			case d, ok := <-msgs:
				if !ok {
					return nil
				}
				select {
				case <-c.tomb.Dying():
					return nil
				case out <- delivery(d):
				}
			}
		}
	})
	return out, nil
}

func publishing(msg broker.Message) amqp091.Publishing {
	return amqp091.Publishing{
		ContentType:   contentType,
		DeliveryMode:  amqp091.Persistent,
		CorrelationId: msg.CorrelationID,
		Body:          msg.Body,
	}
}

func delivery(d amqp091.Delivery) broker.Delivery {
	return broker.NewDelivery(broker.Message{
		Body:          d.Body,
		CorrelationID: d.CorrelationId,
	}, func() error {
		return errors.Trace(d.Ack(false))
	})
}
