// Package middleware provides observability middleware for vroute dispatchers.
//
// This package includes:
//   - Prometheus metrics for dispatches and WebSocket connections
//   - OpenTelemetry tracing of every dispatch
//   - structured request logging
//
// # Prometheus Metrics
//
// Metrics are labelled with the canonical route pattern, never the raw path,
// so cardinality stays bounded by the route table:
//
//	m := middleware.NewMetrics(middleware.WithNamespace("myapp"))
//	d := dispatch.New(
//	    dispatch.WithMiddleware(m.Middleware()),
//	    dispatch.WithConnObserver(m),
//	)
//
//	http.Handle("/metrics", promhttp.Handler())
//
// # OpenTelemetry
//
// OpenTelemetry starts a server span per dispatch and passes the span's
// context down the chain, so handlers and outgoing calls inherit it:
//
//	d := dispatch.New(dispatch.WithMiddleware(
//	    middleware.OpenTelemetry(middleware.WithTracerName("myapp")),
//	))
//
// The tracer comes from the global provider unless WithTracerProvider is
// given. Configure it in main() before serving:
//
//	tp := sdktrace.NewTracerProvider(sdktrace.WithBatcher(exporter))
//	otel.SetTracerProvider(tp)
package middleware
