// Copyright 2026 Canonical Ltd.
// Licensed under the AGPLv3, see LICENCE file for details.

package edgerelay_test

import (
	"net/http/httptest"
	"strings"
	"time"

	"github.com/gorilla/websocket"
	"github.com/juju/loggo/v2"
	jc "github.com/juju/testing/checkers"
	"github.com/juju/worker/v4/workertest"
	gc "gopkg.in/check.v1"

	"github.com/juju/userrelay/internal/broker"
	"github.com/juju/userrelay/internal/testhelpers"
	"github.com/juju/userrelay/internal/worker/edgerelay"
)

type websocketSuite struct {
	base   workerSuite
	server *httptest.Server
}

var _ = gc.Suite(&websocketSuite{})

func (s *websocketSuite) SetUpTest(c *gc.C) {
	s.base.SetUpTest(c)
	handler := edgerelay.NewWebsocketHandler(s.base.relay, loggo.GetLogger("userrelay.edge.test"))
	s.server = httptest.NewServer(handler)
}

func (s *websocketSuite) TearDownTest(c *gc.C) {
	s.server.Close()
	s.base.TearDownTest(c)
}

// dial opens a websocket to the relay and waits for it to be registered.
func (s *websocketSuite) dial(c *gc.C, expectConnections float64) *websocket.Conn {
	url := "ws" + strings.TrimPrefix(s.server.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	c.Assert(err, jc.ErrorIsNil)
	s.base.waitForMetric(c, "userrelay_edge_connections", "", "", expectConnections)
	return conn
}

func (s *websocketSuite) nextRequest(c *gc.C) broker.Message {
	select {
	case d := <-s.base.requests:
		c.Assert(d.Ack(), jc.ErrorIsNil)
		return d.Message
	case <-time.After(testhelpers.LongWait):
		c.Fatalf("timed out waiting for forwarded request")
	}
	panic("unreachable")
}

func readText(c *gc.C, conn *websocket.Conn) string {
	c.Assert(conn.SetReadDeadline(time.Now().Add(testhelpers.LongWait)), jc.ErrorIsNil)
	kind, body, err := conn.ReadMessage()
	c.Assert(err, jc.ErrorIsNil)
	c.Check(kind, gc.Equals, websocket.TextMessage)
	return string(body)
}

func (s *websocketSuite) TestCommandRoundTrip(c *gc.C) {
	conn := s.dial(c, 1)
	defer conn.Close()

	body := `{"command":"get_user_list"}`
	c.Assert(conn.WriteMessage(websocket.TextMessage, []byte(body)), jc.ErrorIsNil)
	msg := s.nextRequest(c)
	c.Check(string(msg.Body), gc.Equals, body)

	s.base.reply(c, listReply, msg.CorrelationID)
	c.Check(readText(c, conn), gc.Equals, listReply)
}

func (s *websocketSuite) TestNonTextFramesIgnored(c *gc.C) {
	conn := s.dial(c, 1)
	defer conn.Close()

	c.Assert(conn.WriteMessage(websocket.BinaryMessage, []byte(`{"command":"add_user"}`)), jc.ErrorIsNil)
	c.Assert(conn.WriteMessage(websocket.TextMessage, []byte(`{"command":"get_user"}`)), jc.ErrorIsNil)

	msg := s.nextRequest(c)
	c.Check(string(msg.Body), gc.Equals, `{"command":"get_user"}`)
}

func (s *websocketSuite) TestBroadcastReachesEveryClient(c *gc.C) {
	a := s.dial(c, 1)
	defer a.Close()
	b := s.dial(c, 2)
	defer b.Close()

	s.base.reply(c, addReply, "")
	c.Check(readText(c, a), gc.Equals, addReply)
	c.Check(readText(c, b), gc.Equals, addReply)
}

func (s *websocketSuite) TestDisconnectDeregisters(c *gc.C) {
	conn := s.dial(c, 1)
	c.Assert(conn.Close(), jc.ErrorIsNil)

	s.base.waitForMetric(c, "userrelay_edge_connections", "", "", 0)
}

func (s *websocketSuite) TestKillClosesSockets(c *gc.C) {
	conn := s.dial(c, 1)
	defer conn.Close()

	workertest.CleanKill(c, s.base.relay)

	c.Assert(conn.SetReadDeadline(time.Now().Add(testhelpers.LongWait)), jc.ErrorIsNil)
	_, _, err := conn.ReadMessage()
	c.Check(websocket.IsCloseError(err, websocket.CloseNormalClosure), jc.IsTrue)
}
