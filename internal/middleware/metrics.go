package middleware

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const metricsNamespace = "catalog"

// Change feed upgrade outcomes.
const (
	upgradeAccepted = "accepted"
	upgradeRejected = "rejected"
)

// HTTPMetrics holds the request collectors used by the Metrics middleware.
type HTTPMetrics struct {
	requests     *prometheus.CounterVec
	duration     *prometheus.HistogramVec
	inFlight     prometheus.Gauge
	feedUpgrades *prometheus.CounterVec
}

// NewHTTPMetrics registers the HTTP request collectors with reg. It panics
// if they are already registered there.
func NewHTTPMetrics(reg prometheus.Registerer) *HTTPMetrics {
	factory := promauto.With(reg)

	return &HTTPMetrics{
		requests: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Name:      "http_requests_total",
				Help:      "Catalog HTTP requests by method, route template and status.",
			},
			[]string{"method", "route", "status"},
		),
		duration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: metricsNamespace,
				Name:      "http_request_duration_seconds",
				Help:      "Catalog HTTP request latency by method and route template.",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"method", "route"},
		),
		inFlight: factory.NewGauge(
			prometheus.GaugeOpts{
				Namespace: metricsNamespace,
				Name:      "http_requests_in_flight",
				Help:      "Catalog HTTP requests currently being served.",
			},
		),
		feedUpgrades: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Name:      "feed_upgrades_total",
				Help:      "Change feed websocket upgrade attempts by result.",
			},
			[]string{"result"},
		),
	}
}

// Metrics returns a middleware that records request metrics into m.
// Websocket upgrades are only counted by outcome: the subscription outlives
// the request, so its duration would skew the latency histogram.
func Metrics(m *HTTPMetrics) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			rw := newResponseWriter(w)

			if websocket.IsWebSocketUpgrade(r) {
				next.ServeHTTP(rw, r)
				result := upgradeRejected
				if rw.hijacked {
					result = upgradeAccepted
				}
				m.feedUpgrades.WithLabelValues(result).Inc()
				return
			}

			start := time.Now()
			m.inFlight.Inc()
			defer m.inFlight.Dec()

			next.ServeHTTP(rw, r)

			route := routeTemplate(r)
			m.requests.WithLabelValues(r.Method, route, strconv.Itoa(rw.statusCode)).Inc()
			m.duration.WithLabelValues(r.Method, route).Observe(time.Since(start).Seconds())
		})
	}
}
