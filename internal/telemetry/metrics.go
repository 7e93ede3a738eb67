package telemetry

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
)

var (
	httpReqs = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total HTTP requests",
		},
		[]string{"route", "method", "status"},
	)
	httpDur = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"route", "method"},
	)

	// Evaluations counts flag evaluations by provider, value type and
	// outcome (ok, error, degraded).
	Evaluations = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "flag_evaluations_total",
			Help: "Flag evaluations by provider, value type and outcome",
		},
		[]string{"provider", "type", "outcome"},
	)

	// DocumentReloads counts on-disk flag document re-reads per provider.
	DocumentReloads = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "flag_document_reloads_total",
			Help: "Flag document reloads triggered by mtime changes",
		},
		[]string{"provider"},
	)

	// AdaptersReady tracks how many providers initialized successfully.
	AdaptersReady = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "flag_adapters_ready",
		Help: "Number of provider adapters that initialized successfully",
	})
)

func Init() {
	prometheus.MustRegister(httpReqs, httpDur, Evaluations, DocumentReloads, AdaptersReady)
}

func Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// get route pattern if available
		route := r.URL.Path
		if rc := chi.RouteContext(r.Context()); rc != nil && rc.RoutePattern() != "" {
			route = rc.RoutePattern()
		}

		start := time.Now()
		ww := &statusWriter{ResponseWriter: w, status: 200}
		next.ServeHTTP(ww, r)

		httpReqs.WithLabelValues(route, r.Method, http.StatusText(ww.status)).Inc()
		httpDur.WithLabelValues(route, r.Method).Observe(time.Since(start).Seconds())
	})
}

type statusWriter struct {
	http.ResponseWriter
	status int
}

func (w *statusWriter) WriteHeader(code int) {
	w.status = code
	w.ResponseWriter.WriteHeader(code)
}

func (w *statusWriter) Flush() {
	if f, ok := w.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}
