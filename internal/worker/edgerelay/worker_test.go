// Copyright 2026 Canonical Ltd.
// Licensed under the AGPLv3, see LICENCE file for details.

package edgerelay_test

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/juju/errors"
	"github.com/juju/loggo/v2"
	jc "github.com/juju/testing/checkers"
	"github.com/juju/worker/v4/workertest"
	"github.com/prometheus/client_golang/prometheus"
	gc "gopkg.in/check.v1"

	"github.com/juju/userrelay/internal/broker"
	"github.com/juju/userrelay/internal/broker/localbroker"
	"github.com/juju/userrelay/internal/testhelpers"
	"github.com/juju/userrelay/internal/worker/edgerelay"
)

// fakeConn records what is sent to it.
type fakeConn struct {
	id       string
	received chan []byte

	mu       sync.Mutex
	sendErr  error
	closed   bool
	closedCh chan struct{}
}

func newFakeConn(id string) *fakeConn {
	return &fakeConn{
		id:       id,
		received: make(chan []byte, 16),
		closedCh: make(chan struct{}),
	}
}

func (f *fakeConn) ID() string { return f.id }

func (f *fakeConn) Send(body []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.sendErr != nil {
		return f.sendErr
	}
	f.received <- body
	return nil
}

func (f *fakeConn) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if !f.closed {
		f.closed = true
		close(f.closedCh)
	}
	return nil
}

func (f *fakeConn) failSends(err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sendErr = err
}

func (f *fakeConn) expect(c *gc.C, body string) {
	select {
	case got := <-f.received:
		c.Check(string(got), gc.Equals, body)
	case <-time.After(testhelpers.LongWait):
		c.Fatalf("timed out waiting for %s to receive %s", f.id, body)
	}
}

func (f *fakeConn) expectNothing(c *gc.C) {
	select {
	case got := <-f.received:
		c.Fatalf("%s unexpectedly received %s", f.id, got)
	case <-time.After(testhelpers.ShortWait):
	}
}

func (f *fakeConn) expectClosed(c *gc.C) {
	select {
	case <-f.closedCh:
	case <-time.After(testhelpers.LongWait):
		c.Fatalf("timed out waiting for %s to close", f.id)
	}
}

const (
	addReply  = `{"ok":{"command":"add_user","result":{"id":"1","name":"x"}}}`
	listReply = `{"ok":{"command":"get_user_list","result":[{"id":"1","name":"x"}]}}`
	listError = `{"error":{"command":"get_user_list","message":"no reachable servers"}}`
)

type workerSuite struct {
	broker   *localbroker.Broker
	conn     *localbroker.Connection
	data     broker.Connection
	requests <-chan broker.Delivery
	metrics  *edgerelay.Collector

	nextID int
	relay  *edgerelay.Relay
}

var _ = gc.Suite(&workerSuite{})

func (s *workerSuite) SetUpTest(c *gc.C) {
	s.broker = localbroker.New()
	ctx := context.Background()

	conn, err := broker.Setup(ctx, s.broker.Dial, "", broker.RequestsQueue, broker.ResponsesQueue)
	c.Assert(err, jc.ErrorIsNil)
	s.conn = conn.(*localbroker.Connection)

	s.data, err = broker.Setup(ctx, s.broker.Dial, "", broker.RequestsQueue, broker.ResponsesQueue)
	c.Assert(err, jc.ErrorIsNil)
	s.requests, err = s.data.Consume(ctx, broker.RequestsQueue)
	c.Assert(err, jc.ErrorIsNil)

	s.metrics = edgerelay.NewMetricsCollector()
	s.nextID = 0
	s.relay, err = edgerelay.NewWorker(edgerelay.Config{
		Connection: s.conn,
		NewCorrelationID: func() string {
			s.nextID++
			return fmt.Sprintf("corr-%d", s.nextID)
		},
		Logger:  loggo.GetLogger("userrelay.edge.test"),
		Metrics: s.metrics,
	})
	c.Assert(err, jc.ErrorIsNil)
}

func (s *workerSuite) TearDownTest(c *gc.C) {
	workertest.DirtyKill(c, s.relay)
	workertest.CleanKill(c, s.data)
}

func (s *workerSuite) open(c *gc.C, id string) *fakeConn {
	conn := newFakeConn(id)
	c.Assert(s.relay.Open(conn), jc.ErrorIsNil)
	return conn
}

// request sends body from conn and returns the forwarded request as the
// data side sees it.
func (s *workerSuite) request(c *gc.C, conn *fakeConn, body string) broker.Message {
	c.Assert(s.relay.Inbound(conn, []byte(body)), jc.ErrorIsNil)
	select {
	case d := <-s.requests:
		c.Assert(d.Ack(), jc.ErrorIsNil)
		return d.Message
	case <-time.After(testhelpers.LongWait):
		c.Fatalf("timed out waiting for forwarded request")
	}
	panic("unreachable")
}

func (s *workerSuite) reply(c *gc.C, body, correlationID string) {
	err := s.data.Publish(context.Background(), broker.ResponsesQueue, broker.Message{
		Body:          []byte(body),
		CorrelationID: correlationID,
	})
	c.Assert(err, jc.ErrorIsNil)
}

// metric returns the value of the named metric whose label matches, or
// zero when it has not been recorded.
func (s *workerSuite) metric(c *gc.C, name, label, value string) float64 {
	reg := prometheus.NewRegistry()
	c.Assert(reg.Register(s.metrics), jc.ErrorIsNil)
	families, err := reg.Gather()
	c.Assert(err, jc.ErrorIsNil)
	for _, family := range families {
		if family.GetName() != name {
			continue
		}
		for _, m := range family.GetMetric() {
			matched := label == ""
			for _, pair := range m.GetLabel() {
				if pair.GetName() == label && pair.GetValue() == value {
					matched = true
				}
			}
			if !matched {
				continue
			}
			if m.GetGauge() != nil {
				return m.GetGauge().GetValue()
			}
			return m.GetCounter().GetValue()
		}
	}
	return 0
}

func (s *workerSuite) waitForMetric(c *gc.C, name, label, value string, expected float64) {
	what := fmt.Sprintf("%s{%s=%q} to reach %v", name, label, value, expected)
	testhelpers.WaitUntil(c, what, func() bool {
		return s.metric(c, name, label, value) == expected
	})
}

func (s *workerSuite) TestInboundForwardedUnmodified(c *gc.C) {
	a := s.open(c, "a")

	body := `{"command":"add_user", "name" : "x"}`
	msg := s.request(c, a, body)
	c.Check(string(msg.Body), gc.Equals, body)
	c.Check(msg.CorrelationID, gc.Equals, "corr-1")

	msg = s.request(c, a, body)
	c.Check(msg.CorrelationID, gc.Equals, "corr-2")
}

func (s *workerSuite) TestNonListRepliesBroadcast(c *gc.C) {
	a := s.open(c, "a")
	b := s.open(c, "b")

	s.reply(c, addReply, "corr-9")
	a.expect(c, addReply)
	b.expect(c, addReply)
}

func (s *workerSuite) TestListFailuresBroadcast(c *gc.C) {
	a := s.open(c, "a")
	b := s.open(c, "b")

	msg := s.request(c, a, `{"command":"get_user_list"}`)
	s.reply(c, listError, msg.CorrelationID)
	a.expect(c, listError)
	b.expect(c, listError)
}

func (s *workerSuite) TestUndecodableRepliesBroadcast(c *gc.C) {
	a := s.open(c, "a")
	b := s.open(c, "b")

	s.reply(c, `garbage`, "")
	a.expect(c, `garbage`)
	b.expect(c, `garbage`)
}

func (s *workerSuite) TestListReplyGoesToRequester(c *gc.C) {
	a := s.open(c, "a")
	b := s.open(c, "b")

	msg := s.request(c, a, `{"command":"get_user_list"}`)
	s.reply(c, listReply, msg.CorrelationID)
	a.expect(c, listReply)
	b.expectNothing(c)
}

func (s *workerSuite) TestListReplyWithoutCorrelationGoesToBoundReceiver(c *gc.C) {
	a := s.open(c, "a")
	b := s.open(c, "b")

	s.reply(c, listReply, "")
	b.expect(c, listReply)
	a.expectNothing(c)
}

func (s *workerSuite) TestListReplyForClosedRequesterGoesToBoundReceiver(c *gc.C) {
	a := s.open(c, "a")
	b := s.open(c, "b")
	msg := s.request(c, b, `{"command":"get_user_list"}`)

	s.relay.Close(b)
	s.reply(c, listReply, msg.CorrelationID)
	a.expect(c, listReply)
}

func (s *workerSuite) TestListReplyWithNoConnectionsDropped(c *gc.C) {
	s.reply(c, listReply, "")
	s.waitForMetric(c, "userrelay_edge_replies_total", "delivery", "dropped", 1)
	a := s.open(c, "a")

	s.reply(c, addReply, "")
	a.expect(c, addReply)
	a.expectNothing(c)
}

func (s *workerSuite) TestSendFailureDropsOnlyThatConnection(c *gc.C) {
	a := s.open(c, "a")
	b := s.open(c, "b")
	a.failSends(errors.New("outbound buffer full"))

	s.reply(c, addReply, "")
	b.expect(c, addReply)
	a.expectClosed(c)

	s.reply(c, addReply, "")
	b.expect(c, addReply)
	c.Check(s.metric(c, "userrelay_edge_send_failures_total", "", ""), gc.Equals, 1.0)
	c.Check(s.metric(c, "userrelay_edge_connections", "", ""), gc.Equals, 1.0)
}

func (s *workerSuite) TestMetrics(c *gc.C) {
	a := s.open(c, "a")
	s.open(c, "b")
	c.Check(s.metric(c, "userrelay_edge_connections", "", ""), gc.Equals, 2.0)

	msg := s.request(c, a, `{"command":"get_user_list"}`)
	c.Check(s.metric(c, "userrelay_edge_commands_forwarded_total", "", ""), gc.Equals, 1.0)

	s.reply(c, listReply, msg.CorrelationID)
	s.reply(c, listReply, "")
	s.reply(c, addReply, "")
	s.waitForMetric(c, "userrelay_edge_replies_total", "delivery", "broadcast", 1)
	c.Check(s.metric(c, "userrelay_edge_replies_total", "delivery", "correlated"), gc.Equals, 1.0)
	c.Check(s.metric(c, "userrelay_edge_replies_total", "delivery", "bound"), gc.Equals, 1.0)
}

func (s *workerSuite) TestCloseUnknownConnection(c *gc.C) {
	s.relay.Close(newFakeConn("ghost"))
	workertest.CheckAlive(c, s.relay)
}

func (s *workerSuite) TestKillClosesConnections(c *gc.C) {
	a := s.open(c, "a")
	b := s.open(c, "b")

	workertest.CleanKill(c, s.relay)
	a.expectClosed(c)
	b.expectClosed(c)

	err := s.relay.Open(newFakeConn("late"))
	c.Check(err, gc.NotNil)
}

func (s *workerSuite) TestBrokerLossKillsRelay(c *gc.C) {
	s.open(c, "a")

	s.conn.Sever(broker.ErrConnectionClosed)
	err := workertest.CheckKilled(c, s.relay)
	c.Check(errors.Is(err, broker.ErrConnectionClosed), jc.IsTrue)
}

func (s *workerSuite) TestRepliesAcknowledged(c *gc.C) {
	a := s.open(c, "a")
	s.reply(c, addReply, "")
	a.expect(c, addReply)

	workertest.CleanKill(c, s.relay)
	c.Check(s.broker.QueueLen(broker.ResponsesQueue), gc.Equals, 0)
}

func (s *workerSuite) TestValidate(c *gc.C) {
	err := edgerelay.Config{Logger: loggo.GetLogger("test")}.Validate()
	c.Check(err, gc.ErrorMatches, "nil Connection not valid")

	err = edgerelay.Config{Connection: s.conn}.Validate()
	c.Check(err, gc.ErrorMatches, "nil Logger not valid")
}
