// Copyright 2026 Canonical Ltd.
// Licensed under the AGPLv3, see LICENCE file for details.

package edgerelay

// Conn is a live user-facing connection.
type Conn interface {
	// ID uniquely identifies the connection.
	ID() string

	// Send queues body for delivery. It must not block.
	Send(body []byte) error

	// Close closes the connection.
	Close() error
}

// Registry tracks live connections in the order they were opened, and the
// connection bound as command receiver. It is not safe for concurrent use.
type Registry struct {
	order []string
	conns map[string]Conn
	bound string
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		conns: make(map[string]Conn),
	}
}

// Add registers conn and reports whether it was not already registered.
func (r *Registry) Add(conn Conn) bool {
	id := conn.ID()
	if _, ok := r.conns[id]; ok {
		return false
	}
	r.conns[id] = conn
	r.order = append(r.order, id)
	return true
}

// Remove deregisters the connection with the given id and reports whether
// it was registered. Removing the bound connection rebinds the most
// recently opened remaining connection, if any.
func (r *Registry) Remove(id string) bool {
	if _, ok := r.conns[id]; !ok {
		return false
	}
	delete(r.conns, id)
	for i, v := range r.order {
		if v == id {
			r.order = append(r.order[:i], r.order[i+1:]...)
			break
		}
	}
	if r.bound == id {
		r.bound = ""
		if n := len(r.order); n > 0 {
			r.bound = r.order[n-1]
		}
	}
	return true
}

// Get returns the connection with the given id.
func (r *Registry) Get(id string) (Conn, bool) {
	conn, ok := r.conns[id]
	return conn, ok
}

// Contains reports whether a connection with the given id is registered.
func (r *Registry) Contains(id string) bool {
	_, ok := r.conns[id]
	return ok
}

// All returns the registered connections in the order they were opened.
func (r *Registry) All() []Conn {
	conns := make([]Conn, 0, len(r.order))
	for _, id := range r.order {
		conns = append(conns, r.conns[id])
	}
	return conns
}

// Len returns the number of registered connections.
func (r *Registry) Len() int {
	return len(r.order)
}

// Bind makes the registered connection with the given id the command
// receiver. Unregistered ids are ignored.
func (r *Registry) Bind(id string) {
	if _, ok := r.conns[id]; ok {
		r.bound = id
	}
}

// Bound returns the command receiver, if any.
func (r *Registry) Bound() (Conn, bool) {
	if r.bound == "" {
		return nil, false
	}
	return r.Get(r.bound)
}
