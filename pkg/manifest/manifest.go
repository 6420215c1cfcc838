// Package manifest declares routes as JSON and binds them to registered
// handlers.
//
// A manifest names handlers instead of containing code:
//
//	{
//	  "routes": [
//	    {"pattern": "/", "handlers": {"GET": "static"}},
//	    {"pattern": "/blog/[id]", "handlers": {"GET": "params", "POST": "echo"}},
//	    {"pattern": "/chat/[room]", "websocket": "chat", "middleware": ["auth"]}
//	  ]
//	}
//
// Resolve turns a Document into router declarations using a Registry. A
// Watcher polls a Source and republishes the route table when the manifest
// changes.
package manifest

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/vango-dev/vroute/pkg/router"
)

// Manifest errors.
var (
	// ErrInvalidDocument is returned for manifests that are not valid JSON
	// or do not follow the document schema.
	ErrInvalidDocument = errors.New("manifest: invalid document")

	// ErrUnknownHandler is returned when a route names an unregistered
	// handler or WebSocket handler.
	ErrUnknownHandler = errors.New("manifest: unknown handler")

	// ErrUnknownMiddleware is returned when a route names an unregistered
	// middleware.
	ErrUnknownMiddleware = errors.New("manifest: unknown middleware")

	// ErrSourceUnavailable wraps failures to read a manifest source.
	ErrSourceUnavailable = errors.New("manifest: source unavailable")
)

// Document is a parsed manifest.
type Document struct {
	Routes []Route `json:"routes"`
}

// Route declares one pattern and the names of its handlers.
type Route struct {
	Pattern string `json:"pattern"`

	// Handlers maps an HTTP method (GET, POST, PUT, DELETE) to a handler name.
	Handlers map[string]string `json:"handlers,omitempty"`

	// WebSocket names the WebSocket handler, if any.
	WebSocket string `json:"websocket,omitempty"`

	// Middleware names route middleware, outermost first.
	Middleware []string `json:"middleware,omitempty"`
}

// SyntaxError locates a JSON syntax or type error in a manifest.
type SyntaxError struct {
	Offset int64
	Line   int
	Column int
	Err    error
}

// Error returns the error message.
func (e *SyntaxError) Error() string {
	return fmt.Sprintf("%v: line %d, column %d: %v", ErrInvalidDocument, e.Line, e.Column, e.Err)
}

// Unwrap returns both the document sentinel and the decoder error.
func (e *SyntaxError) Unwrap() []error {
	return []error{ErrInvalidDocument, e.Err}
}

// Parse decodes and validates a manifest. Unknown fields are rejected.
func Parse(data []byte) (*Document, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()

	var doc Document
	if err := dec.Decode(&doc); err != nil {
		return nil, syntaxError(data, err)
	}
	if _, err := dec.Token(); err != io.EOF {
		return nil, fmt.Errorf("%w: trailing data after document", ErrInvalidDocument)
	}
	if err := doc.Validate(); err != nil {
		return nil, err
	}
	return &doc, nil
}

func syntaxError(data []byte, err error) error {
	var offset int64 = -1
	var se *json.SyntaxError
	var te *json.UnmarshalTypeError
	switch {
	case errors.As(err, &se):
		offset = se.Offset
	case errors.As(err, &te):
		offset = te.Offset
	}
	if offset < 0 {
		return fmt.Errorf("%w: %v", ErrInvalidDocument, err)
	}
	line, col := Position(data, offset)
	return &SyntaxError{Offset: offset, Line: line, Column: col, Err: err}
}

// Position converts a byte offset into a 1-based line and column.
func Position(data []byte, offset int64) (line, column int) {
	if offset > int64(len(data)) {
		offset = int64(len(data))
	}
	line, column = 1, 1
	for _, b := range data[:offset] {
		if b == '\n' {
			line++
			column = 1
			continue
		}
		column++
	}
	return line, column
}

// Validate checks the document schema: every route has a pattern and at
// least one handler, and handler keys are supported methods. Pattern syntax
// and conflicts are checked later by router.Build.
func (d *Document) Validate() error {
	var errs []error
	for i, r := range d.Routes {
		if strings.TrimSpace(r.Pattern) == "" {
			errs = append(errs, fmt.Errorf("%w: route %d has no pattern", ErrInvalidDocument, i))
			continue
		}
		if len(r.Handlers) == 0 && r.WebSocket == "" {
			errs = append(errs, fmt.Errorf("%w: route %q names no handlers", ErrInvalidDocument, r.Pattern))
		}
		for method := range r.Handlers {
			if m, ok := router.ParseMethod(strings.ToUpper(method)); !ok || !m.IsHTTP() {
				errs = append(errs, fmt.Errorf("%w: route %q: unsupported method %q", ErrInvalidDocument, r.Pattern, method))
			}
		}
	}
	return errors.Join(errs...)
}
