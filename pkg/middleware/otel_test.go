package middleware

import (
	"context"
	"errors"
	"testing"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
	"go.opentelemetry.io/otel/trace"

	"github.com/vango-dev/vroute/pkg/dispatch"
	"github.com/vango-dev/vroute/pkg/router"
)

func newRecorder() (*tracetest.SpanRecorder, trace.TracerProvider) {
	sr := tracetest.NewSpanRecorder()
	return sr, sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(sr))
}

func spanAttrs(s sdktrace.ReadOnlySpan) map[attribute.Key]attribute.Value {
	out := make(map[attribute.Key]attribute.Value)
	for _, kv := range s.Attributes() {
		out[kv.Key] = kv.Value
	}
	return out
}

func TestOpenTelemetryConfig(t *testing.T) {
	config := defaultOTelConfig()
	if config.TracerName != "vroute" || !config.IncludePath || config.IncludeParams {
		t.Errorf("defaults = %+v", config)
	}

	WithTracerName("app")(&config)
	WithIncludePath(false)(&config)
	WithIncludeParams(true)(&config)
	if config.TracerName != "app" || config.IncludePath || !config.IncludeParams {
		t.Errorf("config = %+v", config)
	}
}

func TestOpenTelemetrySpan(t *testing.T) {
	sr, tp := newRecorder()
	mw := OpenTelemetry(
		WithTracerProvider(tp),
		WithIncludeParams(true),
		WithAttributeExtractor(func(*router.Request) []attribute.KeyValue {
			return []attribute.KeyValue{attribute.String("test.attr", "ok")}
		}),
	)

	var inHandler trace.Span
	handler := func(ctx context.Context, req *router.Request) (router.Response, error) {
		inHandler = SpanFromContext(ctx)
		return "ok", nil
	}
	_, err := dispatchThrough(t, dispatch.New(dispatch.WithMiddleware(mw)),
		router.Bundle{Get: handler}, "/users/[id]/[[tab]]", router.MethodGet, "/users/7")
	if err != nil {
		t.Fatal(err)
	}

	spans := sr.Ended()
	if len(spans) != 1 {
		t.Fatalf("ended spans = %d, want 1", len(spans))
	}
	s := spans[0]
	if s.Name() != "GET /users/[id]/[[tab]]" {
		t.Errorf("span name = %q", s.Name())
	}
	if s.SpanKind() != trace.SpanKindServer {
		t.Errorf("span kind = %v", s.SpanKind())
	}
	if s.Status().Code != codes.Ok {
		t.Errorf("status = %v", s.Status())
	}

	attrs := spanAttrs(s)
	want := map[attribute.Key]string{
		"vroute.route":    "/users/[id]/[[tab]]",
		"vroute.method":   "GET",
		"vroute.path":     "/users/7",
		"vroute.param.id": "7",
		"test.attr":       "ok",
	}
	for k, v := range want {
		if attrs[k].AsString() != v {
			t.Errorf("attr %s = %q, want %q", k, attrs[k].AsString(), v)
		}
	}
	if _, ok := attrs["vroute.param.tab"]; ok {
		t.Error("absent optional parameter recorded")
	}
	if attrs["vroute.status"].AsInt64() != 200 {
		t.Errorf("vroute.status = %v", attrs["vroute.status"])
	}

	if inHandler == nil || inHandler.SpanContext().SpanID() != s.SpanContext().SpanID() {
		t.Error("handler did not receive the dispatch span in its context")
	}
}

func TestOpenTelemetryErrors(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		wantCode codes.Code
		wantKind string
	}{
		{"server error", errors.New("boom"), codes.Error, "handler_failed"},
		{"client error", router.NewClientError(403, "no"), codes.Unset, "handler_failed"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sr, tp := newRecorder()
			d := dispatch.New(dispatch.WithMiddleware(OpenTelemetry(WithTracerProvider(tp))))

			_, err := dispatchThrough(t, d, router.Bundle{Get: fails(tt.err)}, "/x", router.MethodGet, "/x")
			if !errors.Is(err, tt.err) {
				t.Fatalf("error = %v, want to wrap %v", err, tt.err)
			}

			s := sr.Ended()[0]
			if s.Status().Code != tt.wantCode {
				t.Errorf("status code = %v, want %v", s.Status().Code, tt.wantCode)
			}
			if got := spanAttrs(s)["vroute.error_kind"].AsString(); got != tt.wantKind {
				t.Errorf("error kind = %q", got)
			}
			if len(s.Events()) == 0 {
				t.Error("error not recorded as span event")
			}
		})
	}
}

func TestOpenTelemetryFilterSkipsTracing(t *testing.T) {
	sr, tp := newRecorder()
	mw := OpenTelemetry(
		WithTracerProvider(tp),
		WithFilter(func(req *router.Request) bool { return req.Path != "/healthz" }),
	)

	nextCalled := false
	handler := func(ctx context.Context, req *router.Request) (router.Response, error) {
		nextCalled = true
		if SpanFromContext(ctx) != nil {
			t.Error("expected no span when filter skips tracing")
		}
		return nil, nil
	}
	if _, err := dispatchThrough(t, dispatch.New(dispatch.WithMiddleware(mw)),
		router.Bundle{Get: handler}, "/healthz", router.MethodGet, "/healthz"); err != nil {
		t.Fatal(err)
	}
	if !nextCalled {
		t.Fatal("expected next to be called")
	}
	if len(sr.Ended()) != 0 {
		t.Errorf("recorded %d spans", len(sr.Ended()))
	}
}

func TestSpanFromContextNoSpan(t *testing.T) {
	if SpanFromContext(context.Background()) != nil {
		t.Fatal("expected nil span for a bare context")
	}
}
