package router

import (
	"context"
	"fmt"
	"net/http"
)

// Method identifies the kind of inbound request a handler serves.
type Method string

// Supported methods. MethodWebSocket marks a WebSocket upgrade request.
const (
	MethodGet       Method = http.MethodGet
	MethodPost      Method = http.MethodPost
	MethodPut       Method = http.MethodPut
	MethodDelete    Method = http.MethodDelete
	MethodWebSocket Method = "WEBSOCKET"
)

// httpMethods is the canonical order used for Allow listings.
var httpMethods = [...]Method{MethodGet, MethodPost, MethodPut, MethodDelete}

// ParseMethod maps an HTTP method name to a Method.
// It returns false for methods the router does not dispatch (HEAD, PATCH, ...).
func ParseMethod(s string) (Method, bool) {
	for _, m := range httpMethods {
		if string(m) == s {
			return m, true
		}
	}
	return "", false
}

// IsHTTP reports whether m is a plain request/response method.
func (m Method) IsHTTP() bool {
	switch m {
	case MethodGet, MethodPost, MethodPut, MethodDelete:
		return true
	}
	return false
}

// Request is the inbound request seen by middleware and handlers.
type Request struct {
	// Method is the request method, or MethodWebSocket for upgrades.
	Method Method

	// Path is the request path as received.
	Path string

	// Body is an opaque accessor owned by the transport (for the HTTP
	// adapter it is the *http.Request). The router never inspects it.
	Body any

	// Pattern is the canonical pattern of the matched route.
	// Set by the dispatcher.
	Pattern string

	// Params are the parameters bound by the matched route.
	// Set by the dispatcher.
	Params Params
}

// Response is an opaque value produced by a handler or middleware.
type Response = any

// StatusCoder is implemented by responses and errors that carry an
// HTTP-equivalent status code.
type StatusCoder interface {
	StatusCode() int
}

// ClientError is a typed client-error outcome. Middleware and handlers
// return it to reject a request with a 4xx status instead of a server error.
type ClientError struct {
	Status  int
	Message string
}

// NewClientError creates a ClientError.
func NewClientError(status int, message string) *ClientError {
	return &ClientError{Status: status, Message: message}
}

// Error returns the error message.
func (e *ClientError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("router: client error %d", e.Status)
	}
	return fmt.Sprintf("router: client error %d: %s", e.Status, e.Message)
}

// StatusCode implements StatusCoder.
func (e *ClientError) StatusCode() int {
	return e.Status
}

// HandlerFunc handles a request, returning a response or an error.
type HandlerFunc func(ctx context.Context, req *Request) (Response, error)

// Next invokes the rest of a middleware chain.
type Next func(ctx context.Context) (Response, error)

// Middleware processes requests before they reach the handler.
type Middleware interface {
	// Handle processes the request and optionally calls next.
	// Return a response without calling next to short-circuit the chain.
	// Return an error to abort the chain.
	Handle(ctx context.Context, req *Request, next Next) (Response, error)
}

// MiddlewareFunc is a function adapter for Middleware.
type MiddlewareFunc func(ctx context.Context, req *Request, next Next) (Response, error)

// Handle implements Middleware.
func (f MiddlewareFunc) Handle(ctx context.Context, req *Request, next Next) (Response, error) {
	return f(ctx, req, next)
}

// WebSocketHandler holds the lifecycle callbacks of a WebSocket route.
// Any callback may be nil.
type WebSocketHandler struct {
	// OnConnect runs after the connection joined the route's registry.
	// Returning an error closes the connection.
	OnConnect func(ctx context.Context, conn *Conn) error

	// OnMessage runs once per received frame, never concurrently for the
	// same connection. Returning an error closes the connection.
	OnMessage func(ctx context.Context, conn *Conn, payload []byte) error

	// OnClose runs exactly once when the connection ends, including when
	// OnConnect failed.
	OnClose func(conn *Conn)
}

// Bundle is the set of handlers and middleware bound to one pattern.
// Each slot is optional; a route may declare any subset.
type Bundle struct {
	Get    HandlerFunc
	Post   HandlerFunc
	Put    HandlerFunc
	Delete HandlerFunc

	WebSocket *WebSocketHandler

	// Middleware runs in order, first to last, before the handler.
	Middleware []Middleware
}

// Handler returns the handler for an HTTP method, or nil.
func (b *Bundle) Handler(m Method) HandlerFunc {
	switch m {
	case MethodGet:
		return b.Get
	case MethodPost:
		return b.Post
	case MethodPut:
		return b.Put
	case MethodDelete:
		return b.Delete
	}
	return nil
}

// Methods returns the declared HTTP methods in canonical order.
func (b *Bundle) Methods() []Method {
	var out []Method
	for _, m := range httpMethods {
		if b.Handler(m) != nil {
			out = append(out, m)
		}
	}
	return out
}

// Empty reports whether the bundle declares no handler at all.
func (b *Bundle) Empty() bool {
	return len(b.Methods()) == 0 && b.WebSocket == nil
}

// clone copies the bundle so later changes to the caller's slices do not
// leak into a built table.
func (b Bundle) clone() Bundle {
	if b.Middleware != nil {
		mw := make([]Middleware, len(b.Middleware))
		copy(mw, b.Middleware)
		b.Middleware = mw
	}
	if b.WebSocket != nil {
		ws := *b.WebSocket
		b.WebSocket = &ws
	}
	return b
}

// Declaration pairs a pattern string with its handler bundle.
// A list of declarations is the input to Build.
type Declaration struct {
	Pattern string
	Bundle  Bundle
}
