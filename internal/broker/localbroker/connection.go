// Copyright 2026 Canonical Ltd.
// Licensed under the AGPLv3, see LICENCE file for details.

package localbroker

import (
	"context"
	"sync"

	"github.com/juju/errors"
	"gopkg.in/tomb.v2"

	"github.com/juju/userrelay/internal/broker"
)

// Connection is a connection to a local Broker. Each consumer holds at most
// one unacknowledged delivery.
type Connection struct {
	tomb   tomb.Tomb
	broker *Broker

	mu        sync.Mutex
	closed    bool
	consumers sync.WaitGroup
}

func newConnection(b *Broker) *Connection {
	c := &Connection{broker: b}
	c.tomb.Go(func() error {
		<-c.tomb.Dying()
		c.mu.Lock()
		c.closed = true
		c.mu.Unlock()
		c.consumers.Wait()
		return tomb.ErrDying
	})
	return c
}

// Kill is part of the worker.Worker interface.
func (c *Connection) Kill() {
	c.tomb.Kill(nil)
}

// Wait is part of the worker.Worker interface.
func (c *Connection) Wait() error {
	return c.tomb.Wait()
}

// Sever kills the connection with the given reason, as a broker-side close
// or consumer cancellation would.
func (c *Connection) Sever(reason error) {
	c.tomb.Kill(reason)
}

// DeclareQueue is part of the broker.Connection interface.
func (c *Connection) DeclareQueue(ctx context.Context, name string) error {
	if err := c.check(ctx); err != nil {
		return errors.Trace(err)
	}
	c.broker.declare(name)
	return nil
}

// Publish is part of the broker.Connection interface.
func (c *Connection) Publish(ctx context.Context, queue string, msg broker.Message) error {
	if err := c.check(ctx); err != nil {
		return errors.Trace(err)
	}
	return errors.Trace(c.broker.publish(queue, msg))
}

// Consume is part of the broker.Connection interface.
func (c *Connection) Consume(ctx context.Context, queue string) (<-chan broker.Delivery, error) {
	if err := ctx.Err(); err != nil {
		return nil, errors.Trace(err)
	}
	if !c.broker.declared(queue) {
		return nil, errors.NotFoundf("queue %q", queue)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return nil, broker.ErrConnectionClosed
	}
	c.consumers.Add(1)

	out := make(chan broker.Delivery)
	go func() {
		defer c.consumers.Done()
		defer close(out)
		c.consume(queue, out)
	}()
	return out, nil
}

func (c *Connection) consume(queue string, out chan<- broker.Delivery) {
	for {
		msg, ok, changed := c.broker.next(queue)
		if !ok {
			select {
			case <-c.tomb.Dying():
				return
			case <-changed:
				continue
			}
		}

		d := &delivery{acked: make(chan struct{})}
		select {
		case <-c.tomb.Dying():
			c.broker.requeue(queue, msg)
			return
		case out <- broker.NewDelivery(msg, d.ack):
		}

		select {
		case <-d.acked:
		case <-c.tomb.Dying():
			if d.settle() {
				c.broker.requeue(queue, msg)
			}
			return
		}
	}
}

func (c *Connection) check(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	select {
	case <-c.tomb.Dying():
		return broker.ErrConnectionClosed
	default:
		return nil
	}
}

type delivery struct {
	mu      sync.Mutex
	settled bool
	acked   chan struct{}
}

func (d *delivery) ack() error {
	if !d.settle() {
		return errors.Errorf("delivery already acknowledged or requeued")
	}
	close(d.acked)
	return nil
}

// settle marks the delivery as handled and reports whether this call did
// so.
func (d *delivery) settle() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.settled {
		return false
	}
	d.settled = true
	return true
}
