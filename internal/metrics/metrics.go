package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the HTTP and authentication collectors. A nil *Metrics is
// valid and records nothing.
type Metrics struct {
	RequestsTotal   *prometheus.CounterVec
	RequestDuration *prometheus.HistogramVec
	InFlight        prometheus.Gauge
	AuthAttempts    *prometheus.CounterVec

	gatherer prometheus.Gatherer
}

// New creates the collectors and registers them with reg.
func New(reg *prometheus.Registry) *Metrics {
	m := &Metrics{
		RequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "oshikatsu_http_requests_total",
				Help: "Total number of HTTP requests by method, route and status.",
			},
			[]string{"method", "route", "status"},
		),
		RequestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "oshikatsu_http_request_duration_seconds",
				Help:    "HTTP request latencies in seconds.",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "route"},
		),
		InFlight: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "oshikatsu_http_in_flight_requests",
			Help: "In-flight HTTP requests.",
		}),
		AuthAttempts: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "oshikatsu_auth_attempts_total",
				Help: "Registration and login attempts by flow and outcome.",
			},
			[]string{"flow", "outcome"},
		),
		gatherer: reg,
	}

	reg.MustRegister(m.RequestsTotal, m.RequestDuration, m.InFlight, m.AuthAttempts)
	return m
}

// Middleware records request count, latency and in-flight requests per route.
func (m *Metrics) Middleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if m == nil {
				return next(c)
			}
			m.InFlight.Inc()
			defer m.InFlight.Dec()

			start := time.Now()
			err := next(c)

			status := c.Response().Status
			if err != nil {
				if he, ok := err.(*echo.HTTPError); ok {
					status = he.Code
				} else {
					status = http.StatusInternalServerError
				}
			}
			route := c.Path()
			if route == "" {
				route = "unmatched"
			}
			m.RequestsTotal.WithLabelValues(c.Request().Method, route, strconv.Itoa(status)).Inc()
			m.RequestDuration.WithLabelValues(c.Request().Method, route).Observe(time.Since(start).Seconds())
			return err
		}
	}
}

// ObserveAuth counts one registration or login attempt.
func (m *Metrics) ObserveAuth(flow string, err error) {
	if m == nil {
		return
	}
	outcome := "success"
	if err != nil {
		outcome = "failure"
	}
	m.AuthAttempts.WithLabelValues(flow, outcome).Inc()
}

// Handler exposes the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	if m == nil || m.gatherer == nil {
		return promhttp.Handler()
	}
	return promhttp.HandlerFor(m.gatherer, promhttp.HandlerOpts{})
}
