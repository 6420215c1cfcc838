package router

import (
	"errors"
	"slices"
	"sync"
	"sync/atomic"
)

// ErrConnClosed is returned when sending on a connection that is closing.
var ErrConnClosed = errors.New("router: connection closed")

// Transport is the frame-level connection the transport layer hands to the
// dispatcher after a successful upgrade.
type Transport interface {
	// Receive blocks until the next frame arrives.
	// Any error ends the connection.
	Receive() ([]byte, error)

	// Send writes one frame. It is never called concurrently.
	Send(payload []byte) error

	// Close tears down the connection and unblocks Receive.
	Close() error
}

var connSeq atomic.Uint64

// Conn is a live WebSocket connection on a route.
type Conn struct {
	id        uint64
	entry     *Entry
	params    Params
	transport Transport

	writeMu sync.Mutex
	closing atomic.Bool
	values  sync.Map
}

// NewConn wraps a transport in a Conn with a process-unique ID.
// The entry may be nil for connections not bound to a route.
func NewConn(t Transport, e *Entry, params Params) *Conn {
	return &Conn{
		id:        connSeq.Add(1),
		entry:     e,
		params:    params,
		transport: t,
	}
}

// ID returns the connection ID.
func (c *Conn) ID() uint64 { return c.id }

// Pattern returns the canonical pattern of the route the connection is on.
func (c *Conn) Pattern() string {
	if c.entry == nil {
		return ""
	}
	return c.entry.String()
}

// Peers returns the registry of the route the connection is on, including
// the connection itself once it has been accepted.
func (c *Conn) Peers() *Registry {
	if c.entry == nil {
		return nil
	}
	return c.entry.conns
}

// Params returns the parameters bound when the connection was accepted.
func (c *Conn) Params() Params { return c.params }

// Send writes a frame. Writes from different goroutines are serialized.
func (c *Conn) Send(payload []byte) error {
	if c.closing.Load() {
		return ErrConnClosed
	}
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	if c.closing.Load() {
		return ErrConnClosed
	}
	return c.transport.Send(payload)
}

// Close marks the connection as closing and closes the transport.
// It is safe to call more than once.
func (c *Conn) Close() error {
	if !c.closing.CompareAndSwap(false, true) {
		return nil
	}
	return c.transport.Close()
}

// Closing reports whether teardown has started.
func (c *Conn) Closing() bool {
	return c.closing.Load()
}

// Set stores a per-connection value.
func (c *Conn) Set(key string, value any) {
	c.values.Store(key, value)
}

// Get returns a per-connection value.
func (c *Conn) Get(key string) (any, bool) {
	return c.values.Load(key)
}

// Registry is the set of live connections on one route. Add and Remove are
// O(1); Snapshot returns an immutable slice so a broadcast never holds the
// lock while sending.
type Registry struct {
	mu    sync.Mutex
	conns map[uint64]*Conn

	// snap caches the sorted slice for the current set; nil after a change.
	snap atomic.Pointer[[]*Conn]
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{conns: make(map[uint64]*Conn)}
}

// Add inserts a connection.
func (r *Registry) Add(c *Conn) {
	r.mu.Lock()
	r.conns[c.id] = c
	r.snap.Store(nil)
	r.mu.Unlock()
}

// Remove deletes a connection and reports whether it was present.
func (r *Registry) Remove(c *Conn) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.conns[c.id]; !ok {
		return false
	}
	delete(r.conns, c.id)
	r.snap.Store(nil)
	return true
}

// Len returns the number of connections.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.conns)
}

// Snapshot returns the connections present at the time of the call,
// ordered by ID. The returned slice must not be modified.
func (r *Registry) Snapshot() []*Conn {
	if s := r.snap.Load(); s != nil {
		return *s
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if s := r.snap.Load(); s != nil {
		return *s
	}
	out := make([]*Conn, 0, len(r.conns))
	for _, c := range r.conns {
		out = append(out, c)
	}
	slices.SortFunc(out, func(a, b *Conn) int {
		switch {
		case a.id < b.id:
			return -1
		case a.id > b.id:
			return 1
		}
		return 0
	})
	r.snap.Store(&out)
	return out
}

// Broadcast sends payload to every connection in the current snapshot,
// skipping connections that are tearing down. It returns the number of
// connections the frame was delivered to and the joined send errors.
func (r *Registry) Broadcast(payload []byte) (int, error) {
	var (
		sent int
		errs []error
	)
	for _, c := range r.Snapshot() {
		if c.Closing() {
			continue
		}
		if err := c.Send(payload); err != nil {
			if !errors.Is(err, ErrConnClosed) {
				errs = append(errs, err)
			}
			continue
		}
		sent++
	}
	return sent, errors.Join(errs...)
}
