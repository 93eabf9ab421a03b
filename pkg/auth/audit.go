package auth

import (
	"context"
	"fmt"

	"github.com/MannuMourya/Learner-API/pkg/observability"
)

// Audit action constants
const (
	ActionRegister          = "user.register"
	ActionLogin             = "user.login"
	ActionAPIKeyIssue       = "apikey.issue"
	ActionAuthFailure       = "auth.failure"
	ActionAccessDenied      = "auth.forbidden"
	ActionRateLimitExceeded = "ratelimit.exceeded"
)

// Status constants
const (
	StatusSuccess = "success"
	StatusFailure = "failure"
	StatusDenied  = "denied"
)

// AuditEvent is one security relevant event. Secrets never appear here.
type AuditEvent struct {
	Action string
	Status string
	UserID int64
	Email  string
	Reason string
}

// AuditLogger writes security audit events to the structured log
type AuditLogger struct {
	logger *observability.Logger
}

// NewAuditLogger creates a new audit logger
func NewAuditLogger(logger *observability.Logger) *AuditLogger {
	return &AuditLogger{logger: logger.WithField("audit", true)}
}

// LogEvent records event, annotated with request metadata from ctx
func (al *AuditLogger) LogEvent(ctx context.Context, event AuditEvent) error {
	if event.Action == "" {
		return fmt.Errorf("action is required")
	}
	if event.Status == "" {
		return fmt.Errorf("status is required")
	}

	fields := map[string]interface{}{
		"action": event.Action,
		"status": event.Status,
	}
	if event.UserID != 0 {
		fields["user_id"] = event.UserID
	}
	if event.Email != "" {
		fields["email"] = event.Email
	}
	if event.Reason != "" {
		fields["reason"] = event.Reason
	}

	logger := al.logger.ForRequest(ctx).WithFields(fields)
	switch event.Status {
	case StatusSuccess:
		logger.Info("audit event")
	default:
		logger.Warn("audit event")
	}
	return nil
}
