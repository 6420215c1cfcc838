package middleware

import (
	"context"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/vango-dev/vroute/pkg/router"
)

// MetricsConfig configures the Prometheus metrics.
type MetricsConfig struct {
	// Namespace is the metrics namespace (default: "vroute").
	Namespace string

	// Subsystem is the metrics subsystem (default: "").
	Subsystem string

	// ConstLabels are constant labels added to all metrics.
	ConstLabels prometheus.Labels

	// Buckets are the histogram buckets for dispatch duration.
	// Default: prometheus.DefBuckets
	Buckets []float64

	// Registry is the Prometheus registry to use.
	// Default: prometheus.DefaultRegisterer
	Registry prometheus.Registerer
}

// MetricsOption configures the Prometheus metrics.
type MetricsOption func(*MetricsConfig)

// WithNamespace sets the metrics namespace.
func WithNamespace(namespace string) MetricsOption {
	return func(c *MetricsConfig) {
		c.Namespace = namespace
	}
}

// WithSubsystem sets the metrics subsystem.
func WithSubsystem(subsystem string) MetricsOption {
	return func(c *MetricsConfig) {
		c.Subsystem = subsystem
	}
}

// WithConstLabels sets constant labels for all metrics.
func WithConstLabels(labels prometheus.Labels) MetricsOption {
	return func(c *MetricsConfig) {
		c.ConstLabels = labels
	}
}

// WithBuckets sets the histogram buckets.
func WithBuckets(buckets []float64) MetricsOption {
	return func(c *MetricsConfig) {
		c.Buckets = buckets
	}
}

// WithRegistry sets the Prometheus registry.
func WithRegistry(registry prometheus.Registerer) MetricsOption {
	return func(c *MetricsConfig) {
		c.Registry = registry
	}
}

func defaultMetricsConfig() MetricsConfig {
	return MetricsConfig{
		Namespace: "vroute",
		Buckets:   prometheus.DefBuckets,
		Registry:  prometheus.DefaultRegisterer,
	}
}

// Metrics collects dispatch and WebSocket metrics:
//
//   - vroute_dispatch_total{route,method,status}
//   - vroute_dispatch_duration_seconds{route,method}
//   - vroute_dispatch_errors_total{route,kind}
//   - vroute_websocket_connections{route}
//   - vroute_websocket_connections_total{route}
//
// Metrics implements dispatch.ConnObserver; register it with
// dispatch.WithConnObserver to track live connections.
type Metrics struct {
	dispatchTotal    *prometheus.CounterVec
	dispatchDuration *prometheus.HistogramVec
	dispatchErrors   *prometheus.CounterVec
	wsConnections    *prometheus.GaugeVec
	wsOpened         *prometheus.CounterVec
	tableRoutes      prometheus.Gauge
	tableSwaps       prometheus.Counter
}

// NewMetrics creates and registers the metrics. It panics if they are
// already registered with the configured registry.
func NewMetrics(opts ...MetricsOption) *Metrics {
	config := defaultMetricsConfig()
	for _, opt := range opts {
		opt(&config)
	}
	factory := promauto.With(config.Registry)

	return &Metrics{
		dispatchTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "dispatch_total",
			Help:        "Total number of dispatched requests",
			ConstLabels: config.ConstLabels,
		}, []string{"route", "method", "status"}),

		dispatchDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "dispatch_duration_seconds",
			Help:        "Time spent in the middleware chain and handler in seconds",
			ConstLabels: config.ConstLabels,
			Buckets:     config.Buckets,
		}, []string{"route", "method"}),

		dispatchErrors: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "dispatch_errors_total",
			Help:        "Total number of failed dispatches by failure kind",
			ConstLabels: config.ConstLabels,
		}, []string{"route", "kind"}),

		wsConnections: factory.NewGaugeVec(prometheus.GaugeOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "websocket_connections",
			Help:        "Number of open WebSocket connections",
			ConstLabels: config.ConstLabels,
		}, []string{"route"}),

		wsOpened: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "websocket_connections_total",
			Help:        "Total number of accepted WebSocket connections",
			ConstLabels: config.ConstLabels,
		}, []string{"route"}),

		tableRoutes: factory.NewGauge(prometheus.GaugeOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "routes",
			Help:        "Number of routes in the published route table",
			ConstLabels: config.ConstLabels,
		}),

		tableSwaps: factory.NewCounter(prometheus.CounterOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "route_table_swaps_total",
			Help:        "Total number of route table publications",
			ConstLabels: config.ConstLabels,
		}),
	}
}

// Prometheus creates metrics with opts and returns their middleware.
//
// Example:
//
//	d := dispatch.New(dispatch.WithMiddleware(
//	    middleware.Prometheus(middleware.WithNamespace("myapp")),
//	))
func Prometheus(opts ...MetricsOption) router.Middleware {
	return NewMetrics(opts...).Middleware()
}

// Middleware returns middleware that times and counts every dispatch.
// Place it first so the duration covers the whole chain.
func (m *Metrics) Middleware() router.Middleware {
	return router.MiddlewareFunc(func(ctx context.Context, req *router.Request, next router.Next) (router.Response, error) {
		route := routeLabel(req)
		method := string(req.Method)

		start := time.Now()
		resp, err := next(ctx)
		m.dispatchDuration.WithLabelValues(route, method).Observe(time.Since(start).Seconds())

		out := outcomeOf(resp, err)
		m.dispatchTotal.WithLabelValues(route, method, strconv.Itoa(out.status)).Inc()
		if out.kind != "" {
			m.dispatchErrors.WithLabelValues(route, out.kind).Inc()
		}
		return resp, err
	})
}

// ConnOpened implements dispatch.ConnObserver.
func (m *Metrics) ConnOpened(pattern string) {
	m.wsConnections.WithLabelValues(pattern).Inc()
	m.wsOpened.WithLabelValues(pattern).Inc()
}

// ConnClosed implements dispatch.ConnObserver.
func (m *Metrics) ConnClosed(pattern string) {
	m.wsConnections.WithLabelValues(pattern).Dec()
}

// ObserveSwap records a route table publication. Its signature matches
// router.WithSwapHook.
func (m *Metrics) ObserveSwap(_, next *router.Table) {
	m.tableSwaps.Inc()
	m.tableRoutes.Set(float64(next.Len()))
}
