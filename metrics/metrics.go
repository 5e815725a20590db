package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the proxy's collectors. A nil *Metrics is a no-op.
type Metrics struct {
	gatherer prometheus.Gatherer

	httpRequests     *prometheus.CounterVec
	responseTime     *prometheus.HistogramVec
	upstreamResults  *prometheus.CounterVec
	upstreamDuration prometheus.Histogram
}

// New creates the collectors and registers them with reg.
func New(reg *prometheus.Registry) *Metrics {
	m := &Metrics{
		gatherer: reg,
		httpRequests: prometheus.NewCounterVec(
			prometheus.CounterOpts{Name: "proxy_http_requests_total", Help: "http requests by code, route and method"},
			[]string{"code", "route", "method"},
		),
		responseTime: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "proxy_http_response_seconds",
				Help:    "http response time.",
				Buckets: []float64{0.05, 0.25, 0.5, 1, 5, 10, 30, 60},
			},
			[]string{"route"},
		),
		upstreamResults: prometheus.NewCounterVec(
			prometheus.CounterOpts{Name: "proxy_upstream_results_total", Help: "upstream calls by assistant and result"},
			[]string{"assistant", "result"},
		),
		upstreamDuration: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "proxy_upstream_seconds",
				Help:    "upstream call duration.",
				Buckets: []float64{0.25, 0.5, 1, 2.5, 5, 10, 30, 60},
			},
		),
	}
	reg.MustRegister(m.httpRequests, m.responseTime, m.upstreamResults, m.upstreamDuration)
	return m
}

// Collect records every request except scrapes of /metrics itself.
func (m *Metrics) Collect(next http.Handler) http.Handler {
	if m == nil {
		return next
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()

		defer func() {
			if r.URL.Path == "/metrics" {
				return
			}
			// route pattern rather than raw path; avoid cardinality explosion
			route := r.URL.Path
			if rctx := chi.RouteContext(r.Context()); rctx != nil && rctx.RoutePattern() != "" {
				route = rctx.RoutePattern()
			}
			m.httpRequests.WithLabelValues(strconv.Itoa(ww.Status()), route, r.Method).Inc()
			m.responseTime.WithLabelValues(route).Observe(time.Since(start).Seconds())
		}()

		next.ServeHTTP(ww, r)
	})
}

// ObserveUpstream records the outcome of one upstream call.
func (m *Metrics) ObserveUpstream(assistant, result string, d time.Duration) {
	if m == nil {
		return
	}
	m.upstreamResults.WithLabelValues(assistant, result).Inc()
	m.upstreamDuration.Observe(d.Seconds())
}

// Handler exposes the registry in the prometheus text format.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.gatherer, promhttp.HandlerOpts{})
}
