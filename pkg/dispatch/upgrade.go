package dispatch

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"runtime/debug"
	"sync"

	"github.com/vango-dev/vroute/pkg/router"
)

// Upgrade is the response of a WebSocket dispatch. The transport completes
// the handshake and then calls Serve with the established connection.
type Upgrade struct {
	entry     *router.Entry
	params    router.Params
	handler   router.WebSocketHandler
	observers []ConnObserver
	logger    *slog.Logger
}

// Pattern returns the canonical pattern of the WebSocket route.
func (u *Upgrade) Pattern() string {
	return u.entry.String()
}

// Serve runs the connection lifecycle and blocks until it ends:
//
//  1. the connection joins the route's registry,
//  2. OnConnect runs,
//  3. each received frame is passed to OnMessage, one at a time,
//  4. on close, error, OnConnect/OnMessage failure or ctx cancellation the
//     connection is closed, leaves the registry and OnClose runs once.
//
// A clean close (io.EOF from Receive, or Close called locally) returns nil.
func (u *Upgrade) Serve(ctx context.Context, t router.Transport) error {
	conn := router.NewConn(t, u.entry, u.params)
	reg := u.entry.Conns()
	pattern := u.Pattern()

	reg.Add(conn)
	for _, o := range u.observers {
		o.ConnOpened(pattern)
	}
	u.logger.Debug("websocket connected", "route", pattern, "conn", conn.ID())

	var once sync.Once
	teardown := func() {
		once.Do(func() {
			conn.Close()
			reg.Remove(conn)
			if u.handler.OnClose != nil {
				if perr := safeCall(func() error { u.handler.OnClose(conn); return nil }); perr != nil {
					u.logger.Error("websocket close callback failed", "route", pattern, "conn", conn.ID(), "error", perr)
				}
			}
			for _, o := range u.observers {
				o.ConnClosed(pattern)
			}
			u.logger.Debug("websocket closed", "route", pattern, "conn", conn.ID())
		})
	}
	defer teardown()

	stop := context.AfterFunc(ctx, func() { conn.Close() })
	defer stop()

	if u.handler.OnConnect != nil {
		if err := safeCall(func() error { return u.handler.OnConnect(ctx, conn) }); err != nil {
			return fmt.Errorf("dispatch: websocket connect on %s: %w", pattern, err)
		}
	}

	for {
		payload, rerr := t.Receive()
		if rerr != nil {
			if conn.Closing() || errors.Is(rerr, io.EOF) {
				return nil
			}
			return fmt.Errorf("dispatch: websocket receive on %s: %w", pattern, rerr)
		}
		if u.handler.OnMessage == nil {
			continue
		}
		if err := safeCall(func() error { return u.handler.OnMessage(ctx, conn, payload) }); err != nil {
			return fmt.Errorf("dispatch: websocket message on %s: %w", pattern, err)
		}
	}
}

// safeCall runs fn, converting a panic into a *PanicError.
func safeCall(fn func() error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = &PanicError{Value: r, Stack: debug.Stack()}
		}
	}()
	return fn()
}
