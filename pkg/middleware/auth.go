package middleware

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/MannuMourya/Learner-API/pkg/auth"
	"github.com/MannuMourya/Learner-API/pkg/contextkeys"
	"github.com/MannuMourya/Learner-API/pkg/httputil"
	"github.com/MannuMourya/Learner-API/pkg/observability"
)

// APIKeyHeader carries the API key credential
const APIKeyHeader = "X-API-Key"

// IdentityResolver resolves request credentials to an identity
type IdentityResolver interface {
	Resolve(ctx context.Context, creds auth.Credentials) (*auth.User, error)
}

// AuthMiddleware provides authentication middleware
type AuthMiddleware struct {
	resolver IdentityResolver
	logger   *observability.Logger
	metrics  *observability.Metrics
	audit    *auth.AuditLogger
}

// NewAuthMiddleware creates a new authentication middleware
func NewAuthMiddleware(resolver IdentityResolver, logger *observability.Logger, metrics *observability.Metrics) *AuthMiddleware {
	return &AuthMiddleware{
		resolver: resolver,
		logger:   logger,
		metrics:  metrics,
		audit:    auth.NewAuditLogger(logger),
	}
}

// Handler wraps an HTTP handler with authentication. Every resolution
// failure is answered with the same 401; the reason is only logged.
func (m *AuthMiddleware) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		creds := CredentialsFromRequest(r)

		user, err := m.resolver.Resolve(ctx, creds)
		if err != nil {
			if errors.Is(err, auth.ErrUnauthorized) {
				reason, _ := auth.ReasonOf(err)
				m.metrics.AuthFailuresTotal.WithLabelValues(string(reason)).Inc()
				_ = m.audit.LogEvent(ctx, auth.AuditEvent{
					Action: auth.ActionAuthFailure,
					Status: auth.StatusFailure,
					Reason: string(reason),
				})
				httputil.WriteUnauthorized(w, httputil.DetailNotAuthenticated)
				return
			}

			m.logger.ForRequest(ctx).WithError(err).Error("identity resolution failed")
			httputil.WriteInternalError(w)
			return
		}

		credential := "bearer"
		if creds.APIKey != "" {
			credential = "api_key"
		}
		m.metrics.AuthSuccessTotal.WithLabelValues(credential).Inc()

		next.ServeHTTP(w, r.WithContext(contextkeys.WithUser(ctx, user)))
	})
}

// RequireRole creates middleware that admits only identities whose role is
// exactly role. It must run after Handler.
func (m *AuthMiddleware) RequireRole(role auth.Role) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			user, _ := UserFromContext(r.Context())
			if _, err := auth.RequireRole(user, role); err != nil {
				m.metrics.ForbiddenTotal.WithLabelValues(string(role)).Inc()
				event := auth.AuditEvent{
					Action: auth.ActionAccessDenied,
					Status: auth.StatusDenied,
					Reason: "requires role " + string(role),
				}
				if user != nil {
					event.UserID = user.ID
					event.Email = user.Email
				}
				_ = m.audit.LogEvent(r.Context(), event)
				httputil.WriteForbidden(w)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// CredentialsFromRequest extracts the bearer token and API key headers. Only
// the Bearer scheme (case-insensitive) yields a token.
func CredentialsFromRequest(r *http.Request) auth.Credentials {
	creds := auth.Credentials{
		APIKey: strings.TrimSpace(r.Header.Get(APIKeyHeader)),
	}

	header, present := r.Header["Authorization"]
	if !present || len(header) == 0 {
		return creds
	}
	creds.AuthorizationPresent = true

	scheme, token, _ := strings.Cut(strings.TrimSpace(header[0]), " ")
	if strings.EqualFold(scheme, "bearer") {
		creds.BearerToken = strings.TrimSpace(token)
	}
	return creds
}

// UserFromContext returns the identity stored by AuthMiddleware
func UserFromContext(ctx context.Context) (*auth.User, bool) {
	user, ok := ctx.Value(contextkeys.UserKey).(*auth.User)
	return user, ok && user != nil
}
