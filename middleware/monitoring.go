package middleware

import (
	"net/http"
	"os"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	httpRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"path", "method", "status"},
	)
	httpRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "Duration of HTTP requests",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"path", "method"},
	)
	plannerSnapshotsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "planner_snapshots_delivered_total",
			Help: "Month and settings snapshots delivered by the document store",
		},
	)
	plannerMutationsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "planner_mutations_total",
			Help: "Document store mutations by operation and outcome",
		},
		[]string{"op", "status"},
	)
	plannerActiveSessions = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "planner_active_sessions",
			Help: "Currently connected planner WebSocket sessions",
		},
	)
)

// InitPrometheus registers the metrics. Call this from main.go
func InitPrometheus() {
	prometheus.MustRegister(httpRequestsTotal)
	prometheus.MustRegister(httpRequestDuration)
	prometheus.MustRegister(plannerSnapshotsTotal)
	prometheus.MustRegister(plannerMutationsTotal)
	prometheus.MustRegister(plannerActiveSessions)
}

// RecordSnapshot counts one delivered subscription snapshot.
func RecordSnapshot() {
	plannerSnapshotsTotal.Inc()
}

// RecordMutation counts one store mutation and its outcome.
func RecordMutation(op string, err error) {
	status := "ok"
	if err != nil {
		status = "error"
	}
	plannerMutationsTotal.WithLabelValues(op, status).Inc()
}

func SessionOpened() { plannerActiveSessions.Inc() }
func SessionClosed() { plannerActiveSessions.Dec() }

// MonitorMiddleware wraps the router to track all request stats
func MonitorMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		// Initialize with 200 OK in case WriteHeader isn't called explicitly
		ww := &responseWriter{w, http.StatusOK}

		next.ServeHTTP(ww, r)

		duration := time.Since(start).Seconds()

		// r.URL.Path is fine here: the API has no high-cardinality path
		// segments outside /days/{id}, and those share a template.
		httpRequestsTotal.WithLabelValues(r.URL.Path, r.Method, http.StatusText(ww.statusCode)).Inc()
		httpRequestDuration.WithLabelValues(r.URL.Path, r.Method).Observe(duration)
	})
}

// BasicAuthMiddleware protects /metrics
func BasicAuthMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user, pass, ok := r.BasicAuth()

		metricsUser := os.Getenv("METRICS_USER")
		metricsPass := os.Getenv("METRICS_PASS")

		if !ok || user != metricsUser || pass != metricsPass {
			w.Header().Set("WWW-Authenticate", `Basic realm="Metrics"`)
			http.Error(w, "Unauthorized", http.StatusUnauthorized)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// PprofSecurityMiddleware protects /debug/pprof
func PprofSecurityMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("X-Pprof-Secret") != os.Getenv("PPROF_SECRET") {
			http.Error(w, "Forbidden", http.StatusForbidden)
			return
		}
		next.ServeHTTP(w, r)
	})
}

type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}
