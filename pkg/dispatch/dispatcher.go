// Package dispatch runs matched requests through their middleware chain to
// the selected handler, and drives WebSocket connections on their routes.
//
// A Dispatcher is transport-neutral: the caller matches the path, builds a
// router.Request and renders whatever Dispatch returns.
//
//	m, ok := r.Match(path)
//	if !ok {
//		// not found
//	}
//	resp, err := d.Dispatch(ctx, m, &router.Request{Method: router.MethodGet, Path: path})
//
// For a WebSocket request the response is an *Upgrade; the transport performs
// the handshake and hands the connection to Upgrade.Serve.
package dispatch

import (
	"context"
	"errors"
	"log/slog"
	"runtime/debug"

	"github.com/vango-dev/vroute/pkg/router"
)

// ConnObserver is notified when WebSocket connections open and close.
type ConnObserver interface {
	ConnOpened(pattern string)
	ConnClosed(pattern string)
}

// Dispatcher selects handlers and runs middleware chains.
// It is safe for concurrent use once configured.
type Dispatcher struct {
	middleware []router.Middleware
	observers  []ConnObserver
	logger     *slog.Logger
}

// Option configures a Dispatcher.
type Option func(*Dispatcher)

// WithLogger sets the dispatcher logger.
func WithLogger(l *slog.Logger) Option {
	return func(d *Dispatcher) {
		if l != nil {
			d.logger = l
		}
	}
}

// WithMiddleware adds middleware that runs before every route's own chain.
func WithMiddleware(mw ...router.Middleware) Option {
	return func(d *Dispatcher) {
		d.middleware = append(d.middleware, mw...)
	}
}

// WithConnObserver registers an observer for WebSocket connection counts.
func WithConnObserver(o ConnObserver) Option {
	return func(d *Dispatcher) {
		d.observers = append(d.observers, o)
	}
}

// New creates a dispatcher.
func New(opts ...Option) *Dispatcher {
	d := &Dispatcher{
		logger: slog.Default().With("component", "dispatch"),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Use appends global middleware. It must not be called concurrently with
// Dispatch.
func (d *Dispatcher) Use(mw ...router.Middleware) {
	d.middleware = append(d.middleware, mw...)
}

// Logger returns the dispatcher logger.
func (d *Dispatcher) Logger() *slog.Logger {
	return d.logger
}

// Dispatch runs req against the matched route. It fills req.Pattern and
// req.Params from m before the chain starts.
//
// Global middleware runs first, then the route's, then the handler. The
// context is checked before every link and before the handler. Failures are
// returned as *Error; a WebSocket request that passes the chain yields an
// *Upgrade response.
func (d *Dispatcher) Dispatch(ctx context.Context, m *router.Match, req *router.Request) (router.Response, error) {
	entry := m.Entry
	bundle := entry.Bundle()
	req.Pattern = entry.String()
	req.Params = m.Params

	fail := func(kind Kind, err error) *Error {
		return &Error{Kind: kind, Pattern: req.Pattern, Method: req.Method, Err: err}
	}

	var final router.Next
	switch {
	case req.Method == router.MethodWebSocket && bundle.WebSocket != nil:
		ws := *bundle.WebSocket
		final = func(ctx context.Context) (router.Response, error) {
			return &Upgrade{
				entry:     entry,
				params:    m.Params,
				handler:   ws,
				observers: d.observers,
				logger:    d.logger,
			}, nil
		}

	case req.Method.IsHTTP() && bundle.Handler(req.Method) != nil:
		h := bundle.Handler(req.Method)
		final = func(ctx context.Context) (resp router.Response, err error) {
			defer func() {
				if r := recover(); r != nil {
					resp, err = nil, &PanicError{Value: r, Stack: debug.Stack()}
				}
			}()
			return h(ctx, req)
		}

	default:
		e := fail(KindMethodNotAllowed, nil)
		e.Allow = bundle.Methods()
		return nil, e
	}

	// The handler link reports its own failures as KindHandlerFailed.
	terminal := func(ctx context.Context) (router.Response, error) {
		if err := ctx.Err(); err != nil {
			return nil, fail(KindCanceled, err)
		}
		resp, err := final(ctx)
		if err != nil {
			if ctx.Err() != nil && isContextErr(err) {
				return nil, fail(KindCanceled, err)
			}
			return nil, fail(KindHandlerFailed, err)
		}
		return resp, nil
	}

	chain := terminal
	links := make([]router.Middleware, 0, len(d.middleware)+len(bundle.Middleware))
	links = append(links, d.middleware...)
	links = append(links, bundle.Middleware...)
	for i := len(links) - 1; i >= 0; i-- {
		chain = link(links[i], req, chain, fail)
	}

	resp, err := chain(ctx)
	if err != nil {
		if de, ok := AsError(err); ok {
			return nil, de
		}
		return nil, fail(KindMiddlewareFailed, err)
	}
	return resp, nil
}

// link wraps one middleware: cancellation is observed before it runs, and
// errors it originates are tagged KindMiddlewareFailed. Errors coming back
// from downstream already carry their kind and pass through.
func link(mw router.Middleware, req *router.Request, next router.Next, fail func(Kind, error) *Error) router.Next {
	return func(ctx context.Context) (resp router.Response, err error) {
		if err := ctx.Err(); err != nil {
			return nil, fail(KindCanceled, err)
		}
		defer func() {
			if r := recover(); r != nil {
				resp, err = nil, fail(KindMiddlewareFailed, &PanicError{Value: r, Stack: debug.Stack()})
			}
		}()

		resp, err = mw.Handle(ctx, req, next)
		if err == nil {
			return resp, nil
		}
		if _, ok := AsError(err); ok {
			return nil, err
		}
		if ctx.Err() != nil && isContextErr(err) {
			return nil, fail(KindCanceled, err)
		}
		return nil, fail(KindMiddlewareFailed, err)
	}
}

func isContextErr(err error) bool {
	return errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
}
