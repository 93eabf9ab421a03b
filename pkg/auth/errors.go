package auth

import (
	"errors"
	"fmt"

	"github.com/MannuMourya/Learner-API/pkg/storage"
)

var (
	// ErrInvalidCredentials is returned by Login for an unknown email or a wrong password
	ErrInvalidCredentials = errors.New("invalid credentials")

	// ErrDuplicateIdentity is returned by Register when the email is taken
	ErrDuplicateIdentity = errors.New("email already registered")

	// ErrUnauthorized is the boundary outcome for every identity resolution failure
	ErrUnauthorized = errors.New("not authenticated")

	// ErrForbidden is returned when an identity lacks the required role
	ErrForbidden = errors.New("forbidden")

	// ErrRateLimited is returned when the admission limiter rejects a request
	ErrRateLimited = errors.New("rate limit exceeded")

	// ErrInvalidToken covers every bearer token verification failure
	ErrInvalidToken = errors.New("invalid token")

	// ErrUnknownRole is returned for role values outside the closed set
	ErrUnknownRole = errors.New("unknown role")

	// ErrAPIKeyConflict is returned when API key issuance keeps colliding with
	// existing keys. It wraps storage.ErrConflict and may be retried.
	ErrAPIKeyConflict = fmt.Errorf("api key issuance conflict: %w", storage.ErrConflict)
)

// Reason distinguishes identity resolution failures internally. Reasons are
// logged and counted but never returned to clients.
type Reason string

const (
	ReasonNoCredential     Reason = "no_credential_supplied"
	ReasonInvalidAPIKey    Reason = "invalid_api_key"
	ReasonMissingToken     Reason = "missing_token"
	ReasonInvalidToken     Reason = "invalid_token"
	ReasonIdentityNotFound Reason = "identity_not_found"
)

// AuthError is an identity resolution failure. errors.Is(err, ErrUnauthorized)
// holds for every AuthError.
type AuthError struct {
	Reason Reason
	Err    error
}

func (e *AuthError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("unauthorized (%s): %v", e.Reason, e.Err)
	}
	return fmt.Sprintf("unauthorized (%s)", e.Reason)
}

// Is matches ErrUnauthorized
func (e *AuthError) Is(target error) bool {
	return target == ErrUnauthorized
}

func (e *AuthError) Unwrap() error {
	return e.Err
}

func unauthorized(reason Reason, cause error) *AuthError {
	return &AuthError{Reason: reason, Err: cause}
}

// ReasonOf returns the failure reason carried by err, if any
func ReasonOf(err error) (Reason, bool) {
	var authErr *AuthError
	if errors.As(err, &authErr) {
		return authErr.Reason, true
	}
	return "", false
}
