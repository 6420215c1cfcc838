package middleware

import (
	"context"
	"fmt"
	"net/http"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/vango-dev/vroute/pkg/router"
)

const defaultTracerName = "vroute"

// OTelConfig configures the OpenTelemetry middleware.
type OTelConfig struct {
	// TracerName is the name of the tracer (default: "vroute").
	TracerName string

	// TracerProvider supplies the tracer.
	// Default: the global provider.
	TracerProvider trace.TracerProvider

	// IncludePath records the concrete request path. Paths may carry
	// identifiers; the canonical route is always recorded.
	// Enabled by default.
	IncludePath bool

	// IncludeParams records each present parameter as vroute.param.<name>.
	// Disabled by default.
	IncludeParams bool

	// Filter determines which requests to trace.
	// If nil, all requests are traced.
	Filter func(req *router.Request) bool

	// AttributeExtractor adds custom attributes to each span.
	AttributeExtractor func(req *router.Request) []attribute.KeyValue
}

// OTelOption configures the OpenTelemetry middleware.
type OTelOption func(*OTelConfig)

// WithTracerName sets the tracer name.
func WithTracerName(name string) OTelOption {
	return func(c *OTelConfig) {
		c.TracerName = name
	}
}

// WithTracerProvider sets the tracer provider.
func WithTracerProvider(tp trace.TracerProvider) OTelOption {
	return func(c *OTelConfig) {
		c.TracerProvider = tp
	}
}

// WithIncludePath enables/disables recording the request path.
func WithIncludePath(include bool) OTelOption {
	return func(c *OTelConfig) {
		c.IncludePath = include
	}
}

// WithIncludeParams enables/disables recording route parameters.
func WithIncludeParams(include bool) OTelOption {
	return func(c *OTelConfig) {
		c.IncludeParams = include
	}
}

// WithFilter sets a filter function for requests.
func WithFilter(filter func(req *router.Request) bool) OTelOption {
	return func(c *OTelConfig) {
		c.Filter = filter
	}
}

// WithAttributeExtractor sets a custom attribute extractor.
func WithAttributeExtractor(extractor func(req *router.Request) []attribute.KeyValue) OTelOption {
	return func(c *OTelConfig) {
		c.AttributeExtractor = extractor
	}
}

func defaultOTelConfig() OTelConfig {
	return OTelConfig{
		TracerName:  defaultTracerName,
		IncludePath: true,
	}
}

// OpenTelemetry creates middleware that traces every dispatch.
//
// The middleware:
//   - starts a server span named "<METHOD> <route>" with route, method and path
//   - passes the span's context down the chain
//   - records the resulting status, error kind and error
func OpenTelemetry(opts ...OTelOption) router.Middleware {
	config := defaultOTelConfig()
	for _, opt := range opts {
		opt(&config)
	}
	tp := config.TracerProvider
	if tp == nil {
		tp = otel.GetTracerProvider()
	}
	tracer := tp.Tracer(config.TracerName)

	return router.MiddlewareFunc(func(ctx context.Context, req *router.Request, next router.Next) (router.Response, error) {
		if config.Filter != nil && !config.Filter(req) {
			return next(ctx)
		}

		attrs := []attribute.KeyValue{
			attribute.String("vroute.route", routeLabel(req)),
			attribute.String("vroute.method", string(req.Method)),
		}
		if config.IncludePath {
			attrs = append(attrs, attribute.String("vroute.path", req.Path))
		}
		if config.IncludeParams {
			for _, p := range req.Params {
				if p.Present {
					attrs = append(attrs, attribute.String("vroute.param."+p.Name, p.Value))
				}
			}
		}
		if config.AttributeExtractor != nil {
			attrs = append(attrs, config.AttributeExtractor(req)...)
		}

		spanCtx, span := tracer.Start(ctx, formatSpanName(req),
			trace.WithSpanKind(trace.SpanKindServer),
			trace.WithAttributes(attrs...),
		)
		defer span.End()

		resp, err := next(spanCtx)

		out := outcomeOf(resp, err)
		span.SetAttributes(attribute.Int("vroute.status", out.status))
		if err != nil {
			span.SetAttributes(attribute.String("vroute.error_kind", out.kind))
			span.RecordError(err)
		}
		if out.status >= http.StatusInternalServerError {
			span.SetStatus(codes.Error, http.StatusText(out.status))
		} else if err == nil {
			span.SetStatus(codes.Ok, "")
		}
		return resp, err
	})
}

// SpanFromContext returns the span started by OpenTelemetry, or nil when ctx
// carries no valid span.
func SpanFromContext(ctx context.Context) trace.Span {
	span := trace.SpanFromContext(ctx)
	if !span.SpanContext().IsValid() {
		return nil
	}
	return span
}

func formatSpanName(req *router.Request) string {
	return fmt.Sprintf("%s %s", req.Method, routeLabel(req))
}
