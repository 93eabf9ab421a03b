package api

import (
	"context"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/MannuMourya/Learner-API/pkg/auth"
	"github.com/MannuMourya/Learner-API/pkg/httputil"
	"github.com/MannuMourya/Learner-API/pkg/middleware"
	"github.com/MannuMourya/Learner-API/pkg/observability"
)

const (
	defaultMaxBodyBytes      = 1 << 20
	defaultHeavyTaskDuration = 2 * time.Second
	metricsPath              = "/metrics"
)

// Accounts registers identities and logs them in
type Accounts interface {
	Register(ctx context.Context, email, password string) (*auth.User, error)
	Login(ctx context.Context, email, password string) (*auth.LoginResult, error)
}

// TaskSubmitter queues detached background work
type TaskSubmitter interface {
	Submit(name string, fn func(context.Context) error) error
}

// Deps are the collaborators the server routes to
type Deps struct {
	Accounts Accounts
	Resolver middleware.IdentityResolver
	Limiter  *middleware.AdmissionLimiter
	Tasks    TaskSubmitter
	Health   *observability.HealthChecker
	Logger   *observability.Logger
	Metrics  *observability.Metrics
	// Registry is exposed on /metrics when set
	Registry *prometheus.Registry
}

// Options tune HTTP behaviour
type Options struct {
	AllowedOrigins    []string
	TrustProxyHeaders bool
	// Tracing wraps requests in otelhttp spans
	Tracing           bool
	MaxBodyBytes      int64
	HeavyTaskDuration time.Duration
}

// Server is the HTTP API server
type Server struct {
	router   *mux.Router
	handler  http.Handler
	accounts Accounts
	authn    *middleware.AuthMiddleware
	limiter  *middleware.AdmissionLimiter
	tasks    TaskSubmitter
	health   *observability.HealthChecker
	logger   *observability.Logger
	metrics  *observability.Metrics
	registry *prometheus.Registry
	opts     Options
}

// NewServer creates a new API server
func NewServer(deps Deps, opts Options) *Server {
	if opts.MaxBodyBytes <= 0 {
		opts.MaxBodyBytes = defaultMaxBodyBytes
	}
	if opts.HeavyTaskDuration <= 0 {
		opts.HeavyTaskDuration = defaultHeavyTaskDuration
	}
	if len(opts.AllowedOrigins) == 0 {
		opts.AllowedOrigins = []string{"*"}
	}
	if deps.Health == nil {
		deps.Health = observability.NewHealthChecker("", nil)
	}

	s := &Server{
		router:   mux.NewRouter(),
		accounts: deps.Accounts,
		authn:    middleware.NewAuthMiddleware(deps.Resolver, deps.Logger, deps.Metrics),
		limiter:  deps.Limiter,
		tasks:    deps.Tasks,
		health:   deps.Health,
		logger:   deps.Logger,
		metrics:  deps.Metrics,
		registry: deps.Registry,
		opts:     opts,
	}

	s.setupRoutes()
	s.handler = s.buildChain()
	return s
}

// setupRoutes configures all the API routes
func (s *Server) setupRoutes() {
	s.router.Use(observability.HTTPMetricsMiddleware(s.metrics))
	s.router.NotFoundHandler = observability.HTTPMetricsMiddleware(s.metrics)(http.HandlerFunc(notFound))
	s.router.MethodNotAllowedHandler = observability.HTTPMetricsMiddleware(s.metrics)(http.HandlerFunc(methodNotAllowed))

	// Account routes
	s.router.HandleFunc("/auth/register", s.register).Methods(http.MethodPost)
	s.router.HandleFunc("/auth/login", s.login).Methods(http.MethodPost)

	// Identity-bearing routes
	s.router.Handle("/whoami", s.authn.Handler(http.HandlerFunc(s.whoami))).Methods(http.MethodGet)
	s.router.Handle("/tasks/heavy", s.authn.Handler(http.HandlerFunc(s.heavyTask))).Methods(http.MethodPost)
	s.router.Handle("/admin/stats",
		s.authn.Handler(s.authn.RequireRole(auth.RoleAdmin)(http.HandlerFunc(s.adminStats))),
	).Methods(http.MethodGet)

	// Probes
	s.router.HandleFunc("/health", s.health.Liveness).Methods(http.MethodGet)
	s.router.HandleFunc("/ready", s.health.Readiness).Methods(http.MethodGet)

	if s.registry != nil {
		s.router.Handle(metricsPath, observability.MetricsHandler(s.registry)).Methods(http.MethodGet)
	}
}

// buildChain wraps the router: recovery, request ID, logging, tracing,
// CORS, body limit, then admission for everything except /metrics.
func (s *Server) buildChain() http.Handler {
	admission := middleware.NewRateLimitMiddleware(s.limiter, s.logger, s.metrics, s.opts.TrustProxyHeaders)

	chain := []func(http.Handler) http.Handler{
		httputil.RecoveryMiddleware(s.logger),
		httputil.RequestIDMiddleware,
		httputil.LoggingMiddleware(s.logger),
	}
	if s.opts.Tracing {
		chain = append(chain, otelhttp.NewMiddleware("learner-api",
			otelhttp.WithSpanNameFormatter(func(operation string, r *http.Request) string {
				return operation + " " + r.Method
			}),
		))
	}
	chain = append(chain,
		httputil.CORSMiddleware(s.opts.AllowedOrigins),
		httputil.MaxBytesMiddleware(s.opts.MaxBodyBytes),
		exceptPath(metricsPath, admission.Handler),
	)

	return httputil.Chain(chain...)(s.router)
}

// exceptPath applies mw to every request whose path is not path
func exceptPath(path string, mw func(http.Handler) http.Handler) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		wrapped := mw(next)
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.URL.Path == path {
				next.ServeHTTP(w, r)
				return
			}
			wrapped.ServeHTTP(w, r)
		})
	}
}

// ServeHTTP implements http.Handler
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.handler.ServeHTTP(w, r)
}

func notFound(w http.ResponseWriter, r *http.Request) {
	httputil.WriteDetail(w, http.StatusNotFound, "Not Found")
}

func methodNotAllowed(w http.ResponseWriter, r *http.Request) {
	httputil.WriteDetail(w, http.StatusMethodNotAllowed, "Method Not Allowed")
}
