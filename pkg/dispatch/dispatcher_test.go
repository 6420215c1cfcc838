package dispatch

import (
	"context"
	"errors"
	"net/http"
	"reflect"
	"sync"
	"testing"

	"github.com/vango-dev/vroute/pkg/router"
)

func handler(resp router.Response) router.HandlerFunc {
	return func(ctx context.Context, req *router.Request) (router.Response, error) {
		return resp, nil
	}
}

func mustMatch(t *testing.T, decls []router.Declaration, path string) *router.Match {
	t.Helper()
	table, err := router.Build(decls)
	if err != nil {
		t.Fatalf("Build() error = %v", err)
	}
	m, ok := table.Match(path)
	if !ok {
		t.Fatalf("Match(%q) found nothing", path)
	}
	return m
}

func TestDispatchSelectsHandler(t *testing.T) {
	m := mustMatch(t, []router.Declaration{{
		Pattern: "/blog/[id]",
		Bundle: router.Bundle{
			Get: func(ctx context.Context, req *router.Request) (router.Response, error) {
				return "get " + req.Params.Value("id") + " " + req.Pattern, nil
			},
			Post: handler("post"),
		},
	}}, "/blog/42")

	d := New()
	resp, err := d.Dispatch(context.Background(), m, &router.Request{Method: router.MethodGet, Path: "/blog/42"})
	if err != nil {
		t.Fatalf("Dispatch() error = %v", err)
	}
	if resp != "get 42 /blog/[id]" {
		t.Errorf("resp = %v", resp)
	}

	resp, _ = d.Dispatch(context.Background(), m, &router.Request{Method: router.MethodPost})
	if resp != "post" {
		t.Errorf("POST resp = %v", resp)
	}
}

func TestDispatchMethodNotAllowed(t *testing.T) {
	m := mustMatch(t, []router.Declaration{{Pattern: "/items", Bundle: router.Bundle{Get: handler("ok")}}}, "/items")

	called := false
	d := New(WithMiddleware(router.MiddlewareFunc(func(ctx context.Context, req *router.Request, next router.Next) (router.Response, error) {
		called = true
		return next(ctx)
	})))

	_, err := d.Dispatch(context.Background(), m, &router.Request{Method: router.MethodPost})
	if !errors.Is(err, ErrMethodNotAllowed) {
		t.Fatalf("Dispatch() error = %v, want ErrMethodNotAllowed", err)
	}
	de, ok := AsError(err)
	if !ok {
		t.Fatalf("error %T is not *Error", err)
	}
	if !reflect.DeepEqual(de.Allow, []router.Method{router.MethodGet}) {
		t.Errorf("Allow = %v, want [GET]", de.Allow)
	}
	if de.AllowHeader() != "GET" {
		t.Errorf("AllowHeader() = %q", de.AllowHeader())
	}
	if de.StatusCode() != http.StatusMethodNotAllowed {
		t.Errorf("StatusCode() = %d", de.StatusCode())
	}
	if called {
		t.Error("middleware ran for a method without handler")
	}
}

func TestDispatchWebSocketOnHTTPRoute(t *testing.T) {
	m := mustMatch(t, []router.Declaration{{Pattern: "/", Bundle: router.Bundle{Get: handler("x"), Delete: handler("y")}}}, "/")
	_, err := New().Dispatch(context.Background(), m, &router.Request{Method: router.MethodWebSocket})
	de, ok := AsError(err)
	if !ok || de.Kind != KindMethodNotAllowed {
		t.Fatalf("Dispatch() error = %v", err)
	}
	if de.AllowHeader() != "GET, DELETE" {
		t.Errorf("AllowHeader() = %q", de.AllowHeader())
	}
}

func TestDispatchMiddlewareOrder(t *testing.T) {
	var order []string
	rec := func(name string) router.Middleware {
		return router.MiddlewareFunc(func(ctx context.Context, req *router.Request, next router.Next) (router.Response, error) {
			order = append(order, name)
			return next(ctx)
		})
	}

	m := mustMatch(t, []router.Declaration{{
		Pattern: "/",
		Bundle: router.Bundle{
			Get: func(ctx context.Context, req *router.Request) (router.Response, error) {
				order = append(order, "handler")
				return nil, nil
			},
			Middleware: []router.Middleware{rec("route1"), rec("route2")},
		},
	}}, "/")

	d := New(WithMiddleware(rec("global1")))
	d.Use(rec("global2"))

	if _, err := d.Dispatch(context.Background(), m, &router.Request{Method: router.MethodGet}); err != nil {
		t.Fatal(err)
	}
	want := []string{"global1", "global2", "route1", "route2", "handler"}
	if !reflect.DeepEqual(order, want) {
		t.Errorf("order = %v, want %v", order, want)
	}
}

func TestDispatchShortCircuit(t *testing.T) {
	handlerCalled := false
	m := mustMatch(t, []router.Declaration{{
		Pattern: "/",
		Bundle: router.Bundle{
			Get: func(ctx context.Context, req *router.Request) (router.Response, error) {
				handlerCalled = true
				return nil, nil
			},
			Middleware: []router.Middleware{router.MiddlewareFunc(func(ctx context.Context, req *router.Request, next router.Next) (router.Response, error) {
				return "cached", nil
			})},
		},
	}}, "/")

	resp, err := New().Dispatch(context.Background(), m, &router.Request{Method: router.MethodGet})
	if err != nil || resp != "cached" {
		t.Errorf("Dispatch() = %v, %v", resp, err)
	}
	if handlerCalled {
		t.Error("handler ran after short circuit")
	}
}

func TestDispatchFailures(t *testing.T) {
	boom := errors.New("boom")
	failing := router.MiddlewareFunc(func(ctx context.Context, req *router.Request, next router.Next) (router.Response, error) {
		return nil, boom
	})
	rejecting := router.MiddlewareFunc(func(ctx context.Context, req *router.Request, next router.Next) (router.Response, error) {
		return nil, router.NewClientError(http.StatusUnauthorized, "login required")
	})
	panicking := router.MiddlewareFunc(func(ctx context.Context, req *router.Request, next router.Next) (router.Response, error) {
		panic("middleware exploded")
	})
	passthrough := router.MiddlewareFunc(func(ctx context.Context, req *router.Request, next router.Next) (router.Response, error) {
		return next(ctx)
	})

	tests := []struct {
		name       string
		bundle     router.Bundle
		wantKind   Kind
		wantStatus int
		wantCause  error
	}{
		{
			name:       "middleware error",
			bundle:     router.Bundle{Get: handler("ok"), Middleware: []router.Middleware{failing}},
			wantKind:   KindMiddlewareFailed,
			wantStatus: http.StatusInternalServerError,
			wantCause:  boom,
		},
		{
			name:       "middleware client error",
			bundle:     router.Bundle{Get: handler("ok"), Middleware: []router.Middleware{rejecting}},
			wantKind:   KindMiddlewareFailed,
			wantStatus: http.StatusUnauthorized,
		},
		{
			name:       "middleware panic",
			bundle:     router.Bundle{Get: handler("ok"), Middleware: []router.Middleware{panicking}},
			wantKind:   KindMiddlewareFailed,
			wantStatus: http.StatusInternalServerError,
		},
		{
			name: "handler error through middleware",
			bundle: router.Bundle{
				Get: func(ctx context.Context, req *router.Request) (router.Response, error) {
					return nil, boom
				},
				Middleware: []router.Middleware{passthrough},
			},
			wantKind:   KindHandlerFailed,
			wantStatus: http.StatusInternalServerError,
			wantCause:  boom,
		},
		{
			name: "handler client error",
			bundle: router.Bundle{Get: func(ctx context.Context, req *router.Request) (router.Response, error) {
				return nil, router.NewClientError(http.StatusNotFound, "no such post")
			}},
			wantKind:   KindHandlerFailed,
			wantStatus: http.StatusNotFound,
		},
		{
			name: "handler panic",
			bundle: router.Bundle{Get: func(ctx context.Context, req *router.Request) (router.Response, error) {
				panic("handler exploded")
			}},
			wantKind:   KindHandlerFailed,
			wantStatus: http.StatusInternalServerError,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := mustMatch(t, []router.Declaration{{Pattern: "/", Bundle: tt.bundle}}, "/")
			_, err := New().Dispatch(context.Background(), m, &router.Request{Method: router.MethodGet})
			de, ok := AsError(err)
			if !ok {
				t.Fatalf("Dispatch() error = %v, want *Error", err)
			}
			if de.Kind != tt.wantKind {
				t.Errorf("Kind = %v, want %v", de.Kind, tt.wantKind)
			}
			if de.StatusCode() != tt.wantStatus {
				t.Errorf("StatusCode() = %d, want %d", de.StatusCode(), tt.wantStatus)
			}
			if tt.wantCause != nil && !errors.Is(err, tt.wantCause) {
				t.Errorf("error %v does not wrap %v", err, tt.wantCause)
			}
			if !errors.Is(err, tt.wantKind.sentinel()) {
				t.Errorf("errors.Is(err, %v) = false", tt.wantKind.sentinel())
			}
		})
	}
}

func TestDispatchPanicCause(t *testing.T) {
	m := mustMatch(t, []router.Declaration{{Pattern: "/", Bundle: router.Bundle{
		Get: func(ctx context.Context, req *router.Request) (router.Response, error) { panic("x") },
	}}}, "/")
	_, err := New().Dispatch(context.Background(), m, &router.Request{Method: router.MethodGet})
	var pe *PanicError
	if !errors.As(err, &pe) || pe.Value != "x" || len(pe.Stack) == 0 {
		t.Errorf("error = %v, want *PanicError", err)
	}
}

func TestDispatchCanceledBeforeHandler(t *testing.T) {
	handlerCalled := false
	m := mustMatch(t, []router.Declaration{{Pattern: "/", Bundle: router.Bundle{
		Get: func(ctx context.Context, req *router.Request) (router.Response, error) {
			handlerCalled = true
			return nil, nil
		},
	}}}, "/")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := New().Dispatch(ctx, m, &router.Request{Method: router.MethodGet})
	if !errors.Is(err, ErrCanceled) {
		t.Fatalf("Dispatch() error = %v, want ErrCanceled", err)
	}
	if !errors.Is(err, context.Canceled) {
		t.Errorf("error %v should wrap context.Canceled", err)
	}
	if handlerCalled {
		t.Error("handler ran on a canceled context")
	}
}

func TestDispatchCanceledAtLinkBoundary(t *testing.T) {
	var ran []string
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	first := router.MiddlewareFunc(func(ctx context.Context, req *router.Request, next router.Next) (router.Response, error) {
		ran = append(ran, "first")
		cancel()
		return next(ctx)
	})
	second := router.MiddlewareFunc(func(ctx context.Context, req *router.Request, next router.Next) (router.Response, error) {
		ran = append(ran, "second")
		return next(ctx)
	})
	m := mustMatch(t, []router.Declaration{{Pattern: "/", Bundle: router.Bundle{
		Get:        handler("ok"),
		Middleware: []router.Middleware{first, second},
	}}}, "/")

	_, err := New().Dispatch(ctx, m, &router.Request{Method: router.MethodGet})
	de, ok := AsError(err)
	if !ok || de.Kind != KindCanceled {
		t.Fatalf("Dispatch() error = %v, want canceled", err)
	}
	if de.StatusCode() != StatusClientClosedRequest || !de.ClientError() {
		t.Errorf("StatusCode() = %d", de.StatusCode())
	}
	if !reflect.DeepEqual(ran, []string{"first"}) {
		t.Errorf("ran = %v, want [first]", ran)
	}
}

func TestDispatchHandlerObservesCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	m := mustMatch(t, []router.Declaration{{Pattern: "/", Bundle: router.Bundle{
		Get: func(ctx context.Context, req *router.Request) (router.Response, error) {
			cancel()
			<-ctx.Done()
			return nil, ctx.Err()
		},
	}}}, "/")

	_, err := New().Dispatch(ctx, m, &router.Request{Method: router.MethodGet})
	if !errors.Is(err, ErrCanceled) {
		t.Errorf("Dispatch() error = %v, want ErrCanceled", err)
	}
}

func TestDispatchConcurrentRequests(t *testing.T) {
	m := mustMatch(t, []router.Declaration{{Pattern: "/echo/[v]", Bundle: router.Bundle{
		Get: func(ctx context.Context, req *router.Request) (router.Response, error) {
			return req.Path, nil
		},
		Middleware: []router.Middleware{router.MiddlewareFunc(func(ctx context.Context, req *router.Request, next router.Next) (router.Response, error) {
			return next(ctx)
		})},
	}}}, "/echo/x")

	d := New()
	var wg sync.WaitGroup
	for i := 0; i < 100; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			path := "/echo/" + string(rune('a'+i%26))
			resp, err := d.Dispatch(context.Background(), m, &router.Request{Method: router.MethodGet, Path: path})
			if err != nil || resp != path {
				t.Errorf("Dispatch(%s) = %v, %v", path, resp, err)
			}
		}(i)
	}
	wg.Wait()
}

func TestKindString(t *testing.T) {
	if KindMiddlewareFailed.String() != "middleware_failed" {
		t.Errorf("String() = %q", KindMiddlewareFailed.String())
	}
	if Kind(42).String() != "kind(42)" {
		t.Errorf("String() = %q", Kind(42).String())
	}
}
