package dispatch

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/vango-dev/vroute/pkg/router"
)

// Kind classifies a dispatch failure.
type Kind uint8

const (
	// KindMethodNotAllowed means the route has no handler for the method.
	KindMethodNotAllowed Kind = iota + 1
	// KindMiddlewareFailed means a middleware returned an error or panicked.
	KindMiddlewareFailed
	// KindHandlerFailed means the terminal handler returned an error or panicked.
	KindHandlerFailed
	// KindCanceled means the request context ended before the handler ran
	// or while it was running.
	KindCanceled
)

// StatusClientClosedRequest is reported for canceled dispatches.
const StatusClientClosedRequest = 499

// String returns the kind name used in logs and metric labels.
func (k Kind) String() string {
	switch k {
	case KindMethodNotAllowed:
		return "method_not_allowed"
	case KindMiddlewareFailed:
		return "middleware_failed"
	case KindHandlerFailed:
		return "handler_failed"
	case KindCanceled:
		return "canceled"
	default:
		return fmt.Sprintf("kind(%d)", uint8(k))
	}
}

// Sentinel errors, one per kind. A *Error matches its kind's sentinel with
// errors.Is.
var (
	ErrMethodNotAllowed = errors.New("dispatch: method not allowed")
	ErrMiddlewareFailed = errors.New("dispatch: middleware failed")
	ErrHandlerFailed    = errors.New("dispatch: handler failed")
	ErrCanceled         = errors.New("dispatch: canceled")
)

func (k Kind) sentinel() error {
	switch k {
	case KindMethodNotAllowed:
		return ErrMethodNotAllowed
	case KindMiddlewareFailed:
		return ErrMiddlewareFailed
	case KindHandlerFailed:
		return ErrHandlerFailed
	case KindCanceled:
		return ErrCanceled
	}
	return nil
}

// Error is a per-request dispatch failure.
type Error struct {
	Kind Kind

	// Pattern is the canonical pattern of the matched route.
	Pattern string

	// Method is the request method.
	Method router.Method

	// Allow lists the methods the route declares, for KindMethodNotAllowed.
	Allow []router.Method

	// Err is the underlying cause, if any.
	Err error
}

// Error returns the error message.
func (e *Error) Error() string {
	msg := e.Kind.sentinel().Error()
	if e.Kind == KindMethodNotAllowed {
		return fmt.Sprintf("%s: %s %s (allow: %s)", msg, e.Method, e.Pattern, e.AllowHeader())
	}
	if e.Err == nil {
		return fmt.Sprintf("%s: %s %s", msg, e.Method, e.Pattern)
	}
	return fmt.Sprintf("%s: %s %s: %v", msg, e.Method, e.Pattern, e.Err)
}

// Unwrap returns the cause.
func (e *Error) Unwrap() error {
	return e.Err
}

// Is matches the sentinel of the error's kind.
func (e *Error) Is(target error) bool {
	return target != nil && target == e.Kind.sentinel()
}

// AllowHeader renders Allow as an HTTP Allow header value.
func (e *Error) AllowHeader() string {
	parts := make([]string, len(e.Allow))
	for i, m := range e.Allow {
		parts[i] = string(m)
	}
	return strings.Join(parts, ", ")
}

// StatusCode maps the failure to an HTTP-equivalent status. A cause that is
// a *router.ClientError (or any StatusCoder with a 4xx code) keeps its own
// status; other middleware and handler failures are 500.
func (e *Error) StatusCode() int {
	switch e.Kind {
	case KindMethodNotAllowed:
		return http.StatusMethodNotAllowed
	case KindCanceled:
		return StatusClientClosedRequest
	}
	if status, ok := ClientStatus(e.Err); ok {
		return status
	}
	return http.StatusInternalServerError
}

// ClientError reports whether the failure is the caller's fault rather than
// a server error.
func (e *Error) ClientError() bool {
	return e.StatusCode() < http.StatusInternalServerError
}

// ClientStatus extracts a 4xx status carried by err.
func ClientStatus(err error) (int, bool) {
	var ce *router.ClientError
	if errors.As(err, &ce) && ce.Status >= 400 && ce.Status < 500 {
		return ce.Status, true
	}
	var sc router.StatusCoder
	if errors.As(err, &sc) {
		if s := sc.StatusCode(); s >= 400 && s < 500 {
			return s, true
		}
	}
	return 0, false
}

// PanicError wraps a value recovered from a panicking middleware or handler.
type PanicError struct {
	Value any
	Stack []byte
}

// Error returns the error message.
func (e *PanicError) Error() string {
	return fmt.Sprintf("dispatch: panic: %v", e.Value)
}

// AsError returns err as a *Error when it is or wraps one.
func AsError(err error) (*Error, bool) {
	var de *Error
	if errors.As(err, &de) {
		return de, true
	}
	return nil, false
}
