package api

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics uses its own registry so several services can live in one process
// (tests) without duplicate registration.
type Metrics struct {
	requests      *prometheus.CounterVec
	jobs          *prometheus.CounterVec
	jobDuration   *prometheus.HistogramVec
	jobsInFlight  prometheus.Gauge
	rateLimitHits prometheus.Counter
	registry      *prometheus.Registry
}

func NewMetrics() *Metrics {
	registry := prometheus.NewRegistry()

	m := &Metrics{
		requests: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "tmpl_http_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"method", "route", "status"},
		),
		jobs: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "tmpl_inference_jobs_total",
				Help: "Inference jobs by outcome",
			},
			[]string{"outcome"},
		),
		jobDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "tmpl_inference_job_duration_seconds",
				Help:    "Wall time of inference processes",
				Buckets: []float64{0.5, 1, 2.5, 5, 10, 30, 60, 120, 300, 600},
			},
			[]string{"model_variant"},
		),
		jobsInFlight: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "tmpl_inference_jobs_in_flight",
			Help: "Inference processes currently running",
		}),
		rateLimitHits: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "tmpl_rate_limit_hits_total",
			Help: "Submissions rejected by the rate limiter",
		}),
		registry: registry,
	}

	registry.MustRegister(m.requests, m.jobs, m.jobDuration, m.jobsInFlight, m.rateLimitHits)

	return m
}

func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Middleware counts requests by route pattern, never by raw path.
func (m *Metrics) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		route := "unmatched"
		if rctx := chi.RouteContext(r.Context()); rctx != nil && rctx.RoutePattern() != "" {
			route = rctx.RoutePattern()
		}
		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		m.requests.WithLabelValues(r.Method, route, strconv.Itoa(status)).Inc()
	})
}

func (m *Metrics) jobStarted() {
	m.jobsInFlight.Inc()
}

func (m *Metrics) jobFinished(variant string, outcome string, duration time.Duration) {
	m.jobsInFlight.Dec()
	m.jobs.WithLabelValues(outcome).Inc()
	m.jobDuration.WithLabelValues(variant).Observe(duration.Seconds())
}

func (m *Metrics) jobRejected(outcome string) {
	m.jobs.WithLabelValues(outcome).Inc()
}
