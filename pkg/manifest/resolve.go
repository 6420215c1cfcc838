package manifest

import (
	"errors"
	"fmt"
	"strings"

	"github.com/vango-dev/vroute/pkg/router"
)

// ResolveError reports a name in a route that the registry cannot supply.
type ResolveError struct {
	Pattern string
	Name    string
	Err     error // ErrUnknownHandler or ErrUnknownMiddleware
}

// Error returns the error message.
func (e *ResolveError) Error() string {
	return fmt.Sprintf("%v %q (route %q)", e.Err, e.Name, e.Pattern)
}

// Unwrap returns the sentinel cause.
func (e *ResolveError) Unwrap() error {
	return e.Err
}

// Resolve binds every route of doc to handlers from reg and returns the
// declarations in document order. All unresolved names are reported
// together.
func Resolve(doc *Document, reg *Registry) ([]router.Declaration, error) {
	reg.mu.RLock()
	defer reg.mu.RUnlock()

	decls := make([]router.Declaration, 0, len(doc.Routes))
	var errs []error

	for _, r := range doc.Routes {
		var b router.Bundle
		unknown := func(name string, err error) {
			errs = append(errs, &ResolveError{Pattern: r.Pattern, Name: name, Err: err})
		}

		for method, name := range r.Handlers {
			h, ok := reg.handlers[name]
			if !ok {
				unknown(name, ErrUnknownHandler)
				continue
			}
			m, _ := router.ParseMethod(strings.ToUpper(method))
			switch m {
			case router.MethodGet:
				b.Get = h
			case router.MethodPost:
				b.Post = h
			case router.MethodPut:
				b.Put = h
			case router.MethodDelete:
				b.Delete = h
			}
		}

		if r.WebSocket != "" {
			ws, ok := reg.websockets[r.WebSocket]
			if !ok {
				unknown(r.WebSocket, ErrUnknownHandler)
			} else {
				b.WebSocket = ws
			}
		}

		for _, name := range r.Middleware {
			mw, ok := reg.middleware[name]
			if !ok {
				unknown(name, ErrUnknownMiddleware)
				continue
			}
			b.Middleware = append(b.Middleware, mw)
		}

		decls = append(decls, router.Declaration{Pattern: r.Pattern, Bundle: b})
	}

	if len(errs) > 0 {
		return nil, errors.Join(errs...)
	}
	return decls, nil
}

// Load parses data, resolves it against reg and builds a route table.
func Load(data []byte, reg *Registry) (*router.Table, error) {
	doc, err := Parse(data)
	if err != nil {
		return nil, err
	}
	decls, err := Resolve(doc, reg)
	if err != nil {
		return nil, err
	}
	return router.Build(decls)
}
