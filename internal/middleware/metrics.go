package middleware

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/bryanwahyu/prodpulse/internal/domain/analysis"
)

const namespace = "prodpulse"

// Metrics stores application metrics
type Metrics struct {
	requestsTotal      *prometheus.CounterVec
	requestDuration    *prometheus.HistogramVec
	requestsInProgress prometheus.Gauge
	diagnosesTotal     *prometheus.CounterVec
	rejectionsTotal    *prometheus.CounterVec
	fallbacksTotal     *prometheus.CounterVec
	burstRejected      prometheus.Counter

	gatherer prometheus.Gatherer
}

// NewMetrics registers all collectors on reg. Pass prometheus.NewRegistry()
// in tests to keep runs isolated.
func NewMetrics(reg *prometheus.Registry) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		requestsTotal: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "HTTP requests by method, route and status code.",
		}, []string{"method", "route", "status"}),
		requestDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency.",
			Buckets:   []float64{0.01, 0.05, 0.1, 0.5, 1, 2.5, 5, 10, 30, 60},
		}, []string{"method", "route"}),
		requestsInProgress: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "http_requests_in_progress",
			Help:      "HTTP requests currently being served.",
		}),
		diagnosesTotal: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "diagnoses_total",
			Help:      "Completed diagnoses by severity.",
		}, []string{"severity"}),
		rejectionsTotal: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "analysis_rejections_total",
			Help:      "Analysis requests that ended in an error, by kind.",
		}, []string{"kind"}),
		fallbacksTotal: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "diagnosis_fallbacks_total",
			Help:      "Fallback documents served, by failing backend.",
		}, []string{"backend"}),
		burstRejected: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "burst_rejections_total",
			Help:      "Requests rejected by the per-client burst limiter.",
		}),
		gatherer: reg,
	}
}

func (m *Metrics) ObserveDiagnosis(severity analysis.Severity) {
	m.diagnosesTotal.WithLabelValues(string(severity)).Inc()
}

func (m *Metrics) ObserveRejected(kind analysis.Kind) {
	m.rejectionsTotal.WithLabelValues(string(kind)).Inc()
}

func (m *Metrics) ObserveFallback(backend string) {
	m.fallbacksTotal.WithLabelValues(backend).Inc()
}

func (m *Metrics) ObserveBurstRejected() {
	m.burstRejected.Inc()
}

// Middleware tracks request metrics. Routes are labelled by chi pattern.
func (m *Metrics) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		m.requestsInProgress.Inc()
		defer m.requestsInProgress.Dec()
		start := time.Now()

		wrapped := wrap(w)
		next.ServeHTTP(wrapped, r)

		route := "unmatched"
		if rctx := chi.RouteContext(r.Context()); rctx != nil {
			if p := rctx.RoutePattern(); p != "" {
				route = p
			}
		}
		m.requestsTotal.WithLabelValues(r.Method, route, strconv.Itoa(wrapped.statusCode)).Inc()
		m.requestDuration.WithLabelValues(r.Method, route).Observe(time.Since(start).Seconds())
	})
}

// Handler exposes the registry in Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.gatherer, promhttp.HandlerOpts{})
}
