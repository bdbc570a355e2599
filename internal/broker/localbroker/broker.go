// Copyright 2026 Canonical Ltd.
// Licensed under the AGPLv3, see LICENCE file for details.

// Package localbroker is an in-process broker with durable queues and per
// delivery acknowledgement. Unacknowledged deliveries are requeued at the
// head of their queue when the consuming connection dies.
package localbroker

import (
	"context"
	"sync"

	"github.com/juju/errors"

	"github.com/juju/userrelay/internal/broker"
)

// Broker holds the queues shared by every connection dialled from it.
type Broker struct {
	mu     sync.Mutex
	queues map[string]*queue
}

type queue struct {
	ready []broker.Message

	// changed is closed and replaced whenever ready grows.
	changed chan struct{}
}

// New returns a broker with no queues.
func New() *Broker {
	return &Broker{
		queues: make(map[string]*queue),
	}
}

// Dial opens a connection to the broker. The url is ignored. It satisfies
// broker.DialFunc.
func (b *Broker) Dial(ctx context.Context, _ string) (broker.Connection, error) {
	if err := ctx.Err(); err != nil {
		return nil, errors.Trace(err)
	}
	return newConnection(b), nil
}

// QueueLen returns the number of ready messages in the named queue.
func (b *Broker) QueueLen(name string) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	q, ok := b.queues[name]
	if !ok {
		return 0
	}
	return len(q.ready)
}

func (b *Broker) declare(name string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if _, ok := b.queues[name]; ok {
		return
	}
	b.queues[name] = &queue{changed: make(chan struct{})}
}

func (b *Broker) publish(name string, msg broker.Message) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	q, ok := b.queues[name]
	if !ok {
		return errors.NotFoundf("queue %q", name)
	}
	q.ready = append(q.ready, copyMessage(msg))
	q.signal()
	return nil
}

// requeue puts msg back at the head of the named queue.
func (b *Broker) requeue(name string, msg broker.Message) {
	b.mu.Lock()
	defer b.mu.Unlock()
	q := b.queues[name]
	q.ready = append([]broker.Message{msg}, q.ready...)
	q.signal()
}

// next pops the head of the named queue. When the queue is empty it returns
// a channel closed on the next publish.
func (b *Broker) next(name string) (broker.Message, bool, <-chan struct{}) {
	b.mu.Lock()
	defer b.mu.Unlock()
	q := b.queues[name]
	if len(q.ready) == 0 {
		return broker.Message{}, false, q.changed
	}
	msg := q.ready[0]
	q.ready = q.ready[1:]
	return msg, true, nil
}

func (b *Broker) declared(name string) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	_, ok := b.queues[name]
	return ok
}

func (q *queue) signal() {
	close(q.changed)
	q.changed = make(chan struct{})
}

func copyMessage(msg broker.Message) broker.Message {
	return broker.Message{
		Body:          append([]byte(nil), msg.Body...),
		CorrelationID: msg.CorrelationID,
	}
}
