// Copyright 2026 Canonical Ltd.
// Licensed under the AGPLv3, see LICENCE file for details.

package edgerelay

import (
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/juju/errors"
	"github.com/rs/xid"
)

const (
	// pingPeriod is how often the server pings each connection.
	pingPeriod = 30 * time.Second

	// pongDelay is how long a connection may go without a pong before it is
	// closed.
	pongDelay = 60 * time.Second

	// writeWait bounds every write to a connection.
	writeWait = 10 * time.Second

	// outboundBuffer is the number of replies queued per connection before
	// sends to it fail.
	outboundBuffer = 64
)

var websocketUpgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// Endpoint is the part of the relay the websocket handler drives.
type Endpoint interface {
	Open(Conn) error
	Close(Conn)
	Inbound(Conn, []byte) error
}

// NewWebsocketHandler returns an http.Handler that upgrades requests to
// websockets and attaches each one to the endpoint. Every inbound text
// frame is one command envelope; every outbound frame one result envelope.
func NewWebsocketHandler(endpoint Endpoint, logger Logger) http.Handler {
	return &websocketHandler{
		endpoint: endpoint,
		logger:   logger,
	}
}

type websocketHandler struct {
	endpoint Endpoint
	logger   Logger
}

// ServeHTTP implements the http.Handler interface.
func (h *websocketHandler) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	socket, err := websocketUpgrader.Upgrade(w, req, nil)
	if err != nil {
		h.logger.Errorf("problem initiating websocket: %v", err)
		return
	}

	conn := newWebsocketConn(socket)
	if err := h.endpoint.Open(conn); err != nil {
		h.logger.Debugf("refusing connection from %s: %v", req.RemoteAddr, err)
		_ = socket.Close()
		return
	}
	h.logger.Debugf("connection %s from %s", conn.ID(), req.RemoteAddr)

	go conn.writeLoop(h.logger)
	conn.readLoop(h.endpoint, h.logger)

	h.endpoint.Close(conn)
	_ = conn.Close()
}

// websocketConn is a Conn over a websocket. Sends are queued on a bounded
// buffer drained by a writer goroutine.
type websocketConn struct {
	id     string
	socket *websocket.Conn
	out    chan []byte

	mu     sync.Mutex
	closed bool
	done   chan struct{}
}

func newWebsocketConn(socket *websocket.Conn) *websocketConn {
	return &websocketConn{
		id:     xid.New().String(),
		socket: socket,
		out:    make(chan []byte, outboundBuffer),
		done:   make(chan struct{}),
	}
}

// ID is part of the Conn interface.
func (c *websocketConn) ID() string {
	return c.id
}

// Send is part of the Conn interface.
func (c *websocketConn) Send(body []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return errors.Errorf("connection closed")
	}
	select {
	case c.out <- body:
		return nil
	default:
		return errors.Errorf("outbound buffer full")
	}
}

// Close is part of the Conn interface. The writer goroutine closes the
// socket.
func (c *websocketConn) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.closed {
		c.closed = true
		close(c.done)
	}
	return nil
}

func (c *websocketConn) readLoop(endpoint Endpoint, logger Logger) {
	_ = c.socket.SetReadDeadline(time.Now().Add(pongDelay))
	c.socket.SetPongHandler(func(string) error {
		return c.socket.SetReadDeadline(time.Now().Add(pongDelay))
	})
	for {
		// ReadMessage is unblocked when the writer closes the socket.
		kind, body, err := c.socket.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				logger.Debugf("connection %s read error: %v", c.id, err)
			}
			return
		}
		if kind != websocket.TextMessage {
			logger.Debugf("connection %s: ignoring non-text frame", c.id)
			continue
		}
		if err := endpoint.Inbound(c, body); err != nil {
			logger.Debugf("connection %s: %v", c.id, err)
			return
		}
	}
}

func (c *websocketConn) writeLoop(logger Logger) {
	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()
	defer func() { _ = c.socket.Close() }()
	defer func() { _ = c.Close() }()

	for {
		select {
		case <-c.done:
			deadline := time.Now().Add(writeWait)
			_ = c.socket.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), deadline)
			return
		case body := <-c.out:
			_ = c.socket.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.socket.WriteMessage(websocket.TextMessage, body); err != nil {
				logger.Debugf("connection %s write error: %v", c.id, err)
				return
			}
		case <-ticker.C:
			deadline := time.Now().Add(writeWait)
			if err := c.socket.WriteControl(websocket.PingMessage, []byte{}, deadline); err != nil {
				// This error is expected if the other end goes away.
				logger.Debugf("connection %s failed to write ping: %v", c.id, err)
				return
			}
		}
	}
}
