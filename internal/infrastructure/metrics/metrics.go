// Package metrics exposes Prometheus counters for HTTP traffic, mock
// fallbacks and checkout outcomes.
package metrics

import (
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const (
	MetricRequestsTotal          = "freshcart_http_requests_total"
	MetricRequestDurationSeconds = "freshcart_http_request_duration_seconds"
	MetricFallbacksTotal         = "freshcart_backend_fallbacks_total"
	MetricCheckoutsTotal         = "freshcart_checkouts_total"

	Path = "/metrics"
)

// Metrics owns a private registry so tests can build as many as they like.
type Metrics struct {
	registry  *prometheus.Registry
	requests  *prometheus.CounterVec
	duration  *prometheus.HistogramVec
	fallbacks *prometheus.CounterVec
	checkouts *prometheus.CounterVec
}

func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: MetricRequestsTotal,
			Help: "HTTP requests served, by method, route and status.",
		}, []string{"method", "route", "status"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    MetricRequestDurationSeconds,
			Help:    "HTTP request latency, by method and route.",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "route"}),
		fallbacks: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: MetricFallbacksTotal,
			Help: "Backend calls answered from mock data, by operation.",
		}, []string{"op"}),
		checkouts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: MetricCheckoutsTotal,
			Help: "Checkout attempts, by outcome.",
		}, []string{"outcome"}),
	}
	m.registry.MustRegister(
		m.requests, m.duration, m.fallbacks, m.checkouts,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

func (m *Metrics) Registry() *prometheus.Registry { return m.registry }

func (m *Metrics) FallbackUsed(op string) {
	m.fallbacks.WithLabelValues(op).Inc()
}

func (m *Metrics) CheckoutFinished(outcome string) {
	m.checkouts.WithLabelValues(outcome).Inc()
}

// Middleware records every request except scrapes of the metrics endpoint.
// Routes are labelled by their pattern so ids do not explode cardinality.
func (m *Metrics) Middleware() fiber.Handler {
	return func(c *fiber.Ctx) error {
		if c.Path() == Path {
			return c.Next()
		}
		start := time.Now()
		err := c.Next()

		status := c.Response().StatusCode()
		if fe, ok := err.(*fiber.Error); ok {
			status = fe.Code
		} else if err != nil {
			status = fiber.StatusInternalServerError
		}
		route := c.Route().Path
		if route == "" || (route == "/" && c.Path() != "/") {
			route = "unmatched"
		}
		m.requests.WithLabelValues(c.Method(), route, strconv.Itoa(status)).Inc()
		m.duration.WithLabelValues(c.Method(), route).Observe(time.Since(start).Seconds())
		return err
	}
}

// Handler serves the registry in the Prometheus text format.
func (m *Metrics) Handler() fiber.Handler {
	return adaptor.HTTPHandler(promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{}))
}
