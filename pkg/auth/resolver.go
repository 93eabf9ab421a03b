package auth

import (
	"context"
	"errors"
	"fmt"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/MannuMourya/Learner-API/pkg/observability"
	"github.com/MannuMourya/Learner-API/pkg/storage"
)

// TokenVerifier returns the subject of a valid bearer token
type TokenVerifier interface {
	Verify(token string) (string, error)
}

// Resolver determines the identity behind a request's credentials.
//
// A present API key is checked first and exclusively: an invalid key fails
// resolution even when a valid bearer token accompanies it. Without an API
// key the bearer token is required.
type Resolver struct {
	users  UserReader
	tokens TokenVerifier
}

// NewResolver creates a Resolver
func NewResolver(users UserReader, tokens TokenVerifier) *Resolver {
	return &Resolver{users: users, tokens: tokens}
}

// Resolve returns the identity for creds. Credential failures are *AuthError
// values matching ErrUnauthorized; storage faults are returned unchanged.
func (r *Resolver) Resolve(ctx context.Context, creds Credentials) (*User, error) {
	ctx, span := observability.Tracer().Start(ctx, "auth.Resolve")
	defer span.End()

	user, err := r.resolve(ctx, creds)
	if err != nil {
		if reason, ok := ReasonOf(err); ok {
			span.SetAttributes(attribute.String("auth.failure_reason", string(reason)))
		} else {
			span.RecordError(err)
			span.SetStatus(codes.Error, "identity resolution failed")
		}
		return nil, err
	}

	span.SetAttributes(attribute.Int64("auth.user_id", user.ID))
	return user, nil
}

func (r *Resolver) resolve(ctx context.Context, creds Credentials) (*User, error) {
	if creds.APIKey != "" {
		user, err := r.users.FindByAPIKey(ctx, creds.APIKey)
		if errors.Is(err, storage.ErrNotFound) {
			return nil, unauthorized(ReasonInvalidAPIKey, nil)
		}
		if err != nil {
			return nil, fmt.Errorf("failed to look up api key: %w", err)
		}
		return user, nil
	}

	if creds.BearerToken == "" {
		if !creds.AuthorizationPresent {
			return nil, unauthorized(ReasonNoCredential, nil)
		}
		return nil, unauthorized(ReasonMissingToken, nil)
	}

	subject, err := r.tokens.Verify(creds.BearerToken)
	if err != nil {
		return nil, unauthorized(ReasonInvalidToken, err)
	}

	user, err := r.users.FindByEmail(ctx, subject)
	if errors.Is(err, storage.ErrNotFound) {
		return nil, unauthorized(ReasonIdentityNotFound, nil)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to look up token subject: %w", err)
	}
	return user, nil
}

// RequireRole returns user when its role equals role exactly. There is no
// role hierarchy; a nil user is forbidden.
func RequireRole(user *User, role Role) (*User, error) {
	if user == nil || user.Role != role {
		return nil, ErrForbidden
	}
	return user, nil
}
