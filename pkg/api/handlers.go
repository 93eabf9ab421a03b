package api

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/MannuMourya/Learner-API/pkg/async"
	"github.com/MannuMourya/Learner-API/pkg/auth"
	"github.com/MannuMourya/Learner-API/pkg/httputil"
	"github.com/MannuMourya/Learner-API/pkg/middleware"
)

// register handles POST /auth/register
func (s *Server) register(w http.ResponseWriter, r *http.Request) {
	var req RegisterRequest
	if !httputil.DecodeAndValidate(w, r, &req) {
		return
	}

	user, err := s.accounts.Register(r.Context(), req.Email, req.Password)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}

	httputil.WriteCreated(w, UserResponse{
		ID:     user.ID,
		Email:  user.Email,
		Role:   user.Role,
		APIKey: user.APIKey,
	})
}

// login handles POST /auth/login
func (s *Server) login(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if !httputil.DecodeAndValidate(w, r, &req) {
		return
	}

	result, err := s.accounts.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}

	httputil.WriteSuccess(w, result)
}

// whoami handles GET /whoami
func (s *Server) whoami(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.UserFromContext(r.Context())
	if !ok {
		s.writeServiceError(w, r, auth.ErrUnauthorized)
		return
	}

	httputil.WriteSuccess(w, WhoAmIResponse{
		ID:    user.ID,
		Email: user.Email,
		Role:  user.Role,
	})
}

// adminStats handles GET /admin/stats
func (s *Server) adminStats(w http.ResponseWriter, r *http.Request) {
	httputil.WriteSuccess(w, StatsResponse{
		Users:          "redacted",
		Server:         "running",
		TrackedClients: s.limiter.Len(),
	})
}

// heavyTask handles POST /tasks/heavy. The task runs detached from the
// request; its outcome is only visible in logs and metrics.
func (s *Server) heavyTask(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.UserFromContext(r.Context())
	if !ok {
		s.writeServiceError(w, r, auth.ErrUnauthorized)
		return
	}

	logger := s.logger.ForRequest(r.Context()).WithField("user_id", user.ID)
	duration := s.opts.HeavyTaskDuration

	err := s.tasks.Submit("heavy", func(ctx context.Context) error {
		logger.Info("heavy task started")
		select {
		case <-time.After(duration):
		case <-ctx.Done():
			return ctx.Err()
		}
		logger.Info("heavy task complete")
		return nil
	})
	if errors.Is(err, async.ErrPoolClosed) || errors.Is(err, async.ErrQueueFull) {
		logger.WithError(err).Warn("heavy task rejected")
		httputil.WriteServiceUnavailable(w, "Task queue unavailable")
		return
	}
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}

	httputil.WriteAccepted(w, TaskResponse{Status: "queued"})
}
