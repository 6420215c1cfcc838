package middleware

import (
	"errors"
	"testing"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/vango-dev/vroute/pkg/dispatch"
	"github.com/vango-dev/vroute/pkg/router"
)

func TestMetricsConfig(t *testing.T) {
	config := defaultMetricsConfig()
	if config.Namespace != "vroute" {
		t.Errorf("Namespace = %q", config.Namespace)
	}
	if config.Registry != prometheus.DefaultRegisterer {
		t.Error("Registry should default to the default registerer")
	}

	reg := prometheus.NewRegistry()
	for _, opt := range []MetricsOption{
		WithNamespace("app"),
		WithSubsystem("edge"),
		WithConstLabels(prometheus.Labels{"zone": "a"}),
		WithBuckets([]float64{0.1, 1}),
		WithRegistry(reg),
	} {
		opt(&config)
	}
	if config.Namespace != "app" || config.Subsystem != "edge" || config.ConstLabels["zone"] != "a" || len(config.Buckets) != 2 || config.Registry != reg {
		t.Errorf("config = %+v", config)
	}
}

func TestMetricsRecordsDispatches(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewMetrics(WithRegistry(reg))
	d := dispatch.New(dispatch.WithMiddleware(m.Middleware()))

	bundle := router.Bundle{
		Get:    ok("hello"),
		Post:   fails(errors.New("disk full")),
		Delete: fails(router.NewClientError(404, "no such user")),
	}

	for _, method := range []router.Method{router.MethodGet, router.MethodGet, router.MethodPost, router.MethodDelete} {
		dispatchThrough(t, d, bundle, "/users/[id]", method, "/users/7")
	}

	tests := []struct {
		method, status string
		want           float64
	}{
		{"GET", "200", 2},
		{"POST", "500", 1},
		{"DELETE", "404", 1},
	}
	for _, tt := range tests {
		if got := metricCounterValue(t, m.dispatchTotal.WithLabelValues("/users/[id]", tt.method, tt.status)); got != tt.want {
			t.Errorf("dispatch_total{%s,%s} = %v, want %v", tt.method, tt.status, got, tt.want)
		}
	}
	if got := metricCounterValue(t, m.dispatchErrors.WithLabelValues("/users/[id]", "handler_failed")); got != 2 {
		t.Errorf("dispatch_errors_total{handler_failed} = %v, want 2", got)
	}
	if got := metricHistogramCount(t, m.dispatchDuration.WithLabelValues("/users/[id]", "GET")); got != 2 {
		t.Errorf("duration samples = %d, want 2", got)
	}
}

func TestMetricsConnObserver(t *testing.T) {
	m := NewMetrics(WithRegistry(prometheus.NewRegistry()))

	m.ConnOpened("/chat/[room]")
	m.ConnOpened("/chat/[room]")
	m.ConnClosed("/chat/[room]")

	if got := metricGaugeValue(t, m.wsConnections.WithLabelValues("/chat/[room]")); got != 1 {
		t.Errorf("websocket_connections = %v, want 1", got)
	}
	if got := metricCounterValue(t, m.wsOpened.WithLabelValues("/chat/[room]")); got != 2 {
		t.Errorf("websocket_connections_total = %v, want 2", got)
	}
}

func TestMetricsObserveSwap(t *testing.T) {
	m := NewMetrics(WithRegistry(prometheus.NewRegistry()))
	r := router.New(router.WithSwapHook(m.ObserveSwap))

	err := r.Load([]router.Declaration{
		{Pattern: "/", Bundle: router.Bundle{Get: ok("home")}},
		{Pattern: "/about", Bundle: router.Bundle{Get: ok("about")}},
	})
	if err != nil {
		t.Fatal(err)
	}
	if got := metricGaugeValue(t, m.tableRoutes); got != 2 {
		t.Errorf("routes = %v, want 2", got)
	}
	if got := metricCounterValue(t, m.tableSwaps); got != 1 {
		t.Errorf("route_table_swaps_total = %v, want 1", got)
	}
}

func TestNewMetricsDuplicateRegistrationPanics(t *testing.T) {
	reg := prometheus.NewRegistry()
	NewMetrics(WithRegistry(reg))

	defer func() {
		if recover() == nil {
			t.Error("second registration on the same registry should panic")
		}
	}()
	NewMetrics(WithRegistry(reg))
}
