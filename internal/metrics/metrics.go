// Package metrics exposes Prometheus counters for catalog traffic and cart
// activity. All methods are safe on a nil *Metrics.
package metrics

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "shopapp"

type Metrics struct {
	Registry *prometheus.Registry

	catalogRequests *prometheus.CounterVec
	catalogDuration *prometheus.HistogramVec
	cartOps         *prometheus.CounterVec
	sessions        prometheus.Gauge
}

// New registers every collector on a private registry.
func New() *Metrics {
	m := &Metrics{
		Registry: prometheus.NewRegistry(),
		catalogRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "catalog_requests_total",
			Help:      "Catalog API requests by endpoint and outcome.",
		}, []string{"endpoint", "outcome"}),
		catalogDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "catalog_request_duration_seconds",
			Help:      "Catalog API request latency.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"endpoint"}),
		cartOps: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cart_operations_total",
			Help:      "Cart state changes by operation.",
		}, []string{"op"}),
		sessions: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "sessions_active",
			Help:      "Shopper sessions currently held in memory.",
		}),
	}
	m.Registry.MustRegister(m.catalogRequests, m.catalogDuration, m.cartOps, m.sessions)
	return m
}

func (m *Metrics) ObserveCatalog(endpoint, outcome string, d time.Duration) {
	if m == nil {
		return
	}
	m.catalogRequests.WithLabelValues(endpoint, outcome).Inc()
	m.catalogDuration.WithLabelValues(endpoint).Observe(d.Seconds())
}

func (m *Metrics) CartOp(op string) {
	if m == nil {
		return
	}
	m.cartOps.WithLabelValues(op).Inc()
}

func (m *Metrics) SetSessions(n int) {
	if m == nil {
		return
	}
	m.sessions.Set(float64(n))
}

// Handler serves the registry in the Prometheus text format.
func (m *Metrics) Handler() fiber.Handler {
	return adaptor.HTTPHandler(promhttp.HandlerFor(m.Registry, promhttp.HandlerOpts{}))
}

// CatalogRequests is exported for tests.
func (m *Metrics) CatalogRequests() *prometheus.CounterVec { return m.catalogRequests }

// CartOps is exported for tests.
func (m *Metrics) CartOps() *prometheus.CounterVec { return m.cartOps }

func (m *Metrics) Sessions() prometheus.Gauge { return m.sessions }
