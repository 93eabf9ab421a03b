package api

import (
	"errors"
	"net/http"

	"github.com/MannuMourya/Learner-API/pkg/auth"
	"github.com/MannuMourya/Learner-API/pkg/httputil"
)

// writeServiceError maps the auth error taxonomy to HTTP responses. Anything
// outside the taxonomy is logged in full and answered with a generic 500.
func (s *Server) writeServiceError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, auth.ErrInvalidCredentials):
		httputil.WriteUnauthorized(w, "Invalid credentials")
	case errors.Is(err, auth.ErrDuplicateIdentity):
		httputil.WriteBadRequest(w, "Email already registered")
	case errors.Is(err, auth.ErrUnauthorized):
		httputil.WriteUnauthorized(w, httputil.DetailNotAuthenticated)
	case errors.Is(err, auth.ErrForbidden):
		httputil.WriteForbidden(w)
	case errors.Is(err, auth.ErrRateLimited):
		httputil.WriteTooManyRequests(w)
	default:
		s.logger.ForRequest(r.Context()).WithError(err).WithFields(map[string]interface{}{
			"method": r.Method,
			"path":   r.URL.Path,
		}).Error("request failed")
		httputil.WriteInternalError(w)
	}
}
