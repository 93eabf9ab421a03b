package observability

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus metrics
type Metrics struct {
	// HTTP metrics
	HTTPRequestsTotal   *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec
	HTTPResponseSize    *prometheus.HistogramVec

	// Admission metrics
	AdmissionDecisionsTotal *prometheus.CounterVec
	AdmissionTrackedClients prometheus.Gauge
	AdmissionSweptTotal     prometheus.Counter

	// Identity metrics
	AuthFailuresTotal   *prometheus.CounterVec
	AuthSuccessTotal    *prometheus.CounterVec
	ForbiddenTotal      *prometheus.CounterVec
	PasswordHashLatency *prometheus.HistogramVec

	// Account metrics
	RegistrationsTotal *prometheus.CounterVec
	LoginsTotal        *prometheus.CounterVec

	// Background task metrics
	BackgroundTasksTotal *prometheus.CounterVec
}

// NewMetrics creates and registers all Prometheus metrics
func NewMetrics(registry prometheus.Registerer) *Metrics {
	m := &Metrics{
		HTTPRequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "learner_http_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"method", "route", "status"},
		),
		HTTPRequestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "learner_http_request_duration_seconds",
				Help:    "HTTP request duration in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "route"},
		),
		HTTPResponseSize: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "learner_http_response_size_bytes",
				Help:    "HTTP response size in bytes",
				Buckets: prometheus.ExponentialBuckets(100, 10, 6),
			},
			[]string{"method", "route"},
		),

		AdmissionDecisionsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "learner_admission_decisions_total",
				Help: "Admission limiter decisions by outcome",
			},
			[]string{"outcome"},
		),
		AdmissionTrackedClients: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "learner_admission_tracked_clients",
				Help: "Number of client addresses with a live admission record",
			},
		),
		AdmissionSweptTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "learner_admission_swept_total",
				Help: "Expired admission records removed by the sweeper",
			},
		),

		AuthFailuresTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "learner_auth_failures_total",
				Help: "Identity resolution failures by reason",
			},
			[]string{"reason"},
		),
		AuthSuccessTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "learner_auth_success_total",
				Help: "Successful identity resolutions by credential type",
			},
			[]string{"credential"},
		),
		ForbiddenTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "learner_auth_forbidden_total",
				Help: "Role checks that denied access",
			},
			[]string{"required_role"},
		),
		PasswordHashLatency: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "learner_password_hash_duration_seconds",
				Help:    "Time spent hashing or verifying passwords",
				Buckets: []float64{.01, .025, .05, .1, .25, .5, 1, 2.5},
			},
			[]string{"operation"},
		),

		RegistrationsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "learner_registrations_total",
				Help: "Registration attempts by outcome",
			},
			[]string{"outcome"},
		),
		LoginsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "learner_logins_total",
				Help: "Login attempts by outcome",
			},
			[]string{"outcome"},
		),

		BackgroundTasksTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "learner_background_tasks_total",
				Help: "Detached background tasks by outcome",
			},
			[]string{"task", "outcome"},
		),
	}

	registry.MustRegister(
		m.HTTPRequestsTotal,
		m.HTTPRequestDuration,
		m.HTTPResponseSize,
		m.AdmissionDecisionsTotal,
		m.AdmissionTrackedClients,
		m.AdmissionSweptTotal,
		m.AuthFailuresTotal,
		m.AuthSuccessTotal,
		m.ForbiddenTotal,
		m.PasswordHashLatency,
		m.RegistrationsTotal,
		m.LoginsTotal,
		m.BackgroundTasksTotal,
	)

	return m
}

// NewNopMetrics returns metrics registered on a private registry, for tests
// and for running with metrics disabled.
func NewNopMetrics() *Metrics {
	return NewMetrics(prometheus.NewRegistry())
}

// responseWriter wraps http.ResponseWriter to capture status code and size
type responseWriter struct {
	http.ResponseWriter
	statusCode   int
	bytesWritten int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

func (rw *responseWriter) Write(b []byte) (int, error) {
	n, err := rw.ResponseWriter.Write(b)
	rw.bytesWritten += n
	return n, err
}

// routeLabel returns the mux route template so that label cardinality stays
// bounded; unmatched paths collapse to "unmatched".
func routeLabel(r *http.Request) string {
	if route := mux.CurrentRoute(r); route != nil {
		if tmpl, err := route.GetPathTemplate(); err == nil {
			return tmpl
		}
	}
	return "unmatched"
}

// HTTPMetricsMiddleware instruments HTTP requests with Prometheus metrics.
// It is meant to be installed with router.Use so the matched route is known.
func HTTPMetricsMiddleware(metrics *Metrics) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()

			rw := &responseWriter{
				ResponseWriter: w,
				statusCode:     http.StatusOK,
			}

			next.ServeHTTP(rw, r)

			route := routeLabel(r)
			duration := time.Since(start).Seconds()
			status := strconv.Itoa(rw.statusCode)

			metrics.HTTPRequestsTotal.WithLabelValues(r.Method, route, status).Inc()
			metrics.HTTPRequestDuration.WithLabelValues(r.Method, route).Observe(duration)
			metrics.HTTPResponseSize.WithLabelValues(r.Method, route).Observe(float64(rw.bytesWritten))
		})
	}
}

// MetricsHandler returns the /metrics exposition handler for registry
func MetricsHandler(registry *prometheus.Registry) http.Handler {
	return promhttp.HandlerFor(registry, promhttp.HandlerOpts{})
}
