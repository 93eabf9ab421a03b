package middleware

import (
	"math"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/MannuMourya/Learner-API/pkg/auth"
	"github.com/MannuMourya/Learner-API/pkg/contextkeys"
	"github.com/MannuMourya/Learner-API/pkg/httputil"
	"github.com/MannuMourya/Learner-API/pkg/observability"
)

// RateLimitMiddleware applies the admission limiter to every request before
// routing, keyed by client address.
type RateLimitMiddleware struct {
	limiter    *AdmissionLimiter
	logger     *observability.Logger
	metrics    *observability.Metrics
	audit      *auth.AuditLogger
	trustProxy bool
	now        func() time.Time
}

// NewRateLimitMiddleware creates the admission middleware. With trustProxy
// the client address comes from X-Forwarded-For or X-Real-IP.
func NewRateLimitMiddleware(limiter *AdmissionLimiter, logger *observability.Logger, metrics *observability.Metrics, trustProxy bool) *RateLimitMiddleware {
	return &RateLimitMiddleware{
		limiter:    limiter,
		logger:     logger,
		metrics:    metrics,
		audit:      auth.NewAuditLogger(logger),
		trustProxy: trustProxy,
		now:        time.Now,
	}
}

// Handler wraps an HTTP handler with admission control
func (m *RateLimitMiddleware) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		now := m.now()
		addr := clientAddr(r, m.trustProxy)
		ctx := contextkeys.WithClientAddr(r.Context(), addr)

		d := m.limiter.Admit(addr, now)
		setRateLimitHeaders(w, d)

		if !d.Allowed {
			m.metrics.AdmissionDecisionsTotal.WithLabelValues("rejected").Inc()
			_ = m.audit.LogEvent(ctx, auth.AuditEvent{
				Action: auth.ActionRateLimitExceeded,
				Status: auth.StatusDenied,
				Reason: auth.ErrRateLimited.Error(),
			})
			w.Header().Set("Retry-After", strconv.Itoa(retryAfterSeconds(d.ResetAt, now)))
			httputil.WriteTooManyRequests(w)
			return
		}

		m.metrics.AdmissionDecisionsTotal.WithLabelValues("allowed").Inc()
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func setRateLimitHeaders(w http.ResponseWriter, d Decision) {
	h := w.Header()
	h.Set("X-RateLimit-Limit", strconv.Itoa(d.Limit))
	h.Set("X-RateLimit-Remaining", strconv.Itoa(d.Remaining))
	h.Set("X-RateLimit-Reset", strconv.FormatInt(d.ResetAt.Unix(), 10))
}

// retryAfterSeconds rounds the wait up to whole seconds, at least 1
func retryAfterSeconds(resetAt, now time.Time) int {
	secs := int(math.Ceil(resetAt.Sub(now).Seconds()))
	if secs < 1 {
		return 1
	}
	return secs
}

// clientAddr returns the host that requests are counted against
func clientAddr(r *http.Request, trustProxy bool) string {
	if trustProxy {
		if forwarded := r.Header.Get("X-Forwarded-For"); forwarded != "" {
			first, _, _ := strings.Cut(forwarded, ",")
			if first = strings.TrimSpace(first); first != "" {
				return first
			}
		}
		if realIP := strings.TrimSpace(r.Header.Get("X-Real-IP")); realIP != "" {
			return realIP
		}
	}

	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
