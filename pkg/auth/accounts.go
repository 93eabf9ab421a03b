package auth

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/MannuMourya/Learner-API/pkg/observability"
	"github.com/MannuMourya/Learner-API/pkg/storage"
)

// AccountService registers identities and exchanges passwords for tokens
type AccountService struct {
	store   UserStore
	hasher  *Hasher
	tokens  *TokenService
	keys    *APIKeyIssuer
	audit   *AuditLogger
	logger  *observability.Logger
	metrics *observability.Metrics

	// dummyHash is compared against when the email is unknown so that
	// unknown and known emails take the same time to reject.
	dummyOnce sync.Once
	dummyHash string
}

// NewAccountService creates an AccountService
func NewAccountService(
	store UserStore,
	hasher *Hasher,
	tokens *TokenService,
	keys *APIKeyIssuer,
	logger *observability.Logger,
	metrics *observability.Metrics,
) *AccountService {
	return &AccountService{
		store:   store,
		hasher:  hasher,
		tokens:  tokens,
		keys:    keys,
		audit:   NewAuditLogger(logger),
		logger:  logger,
		metrics: metrics,
	}
}

// Register creates a user account with role user and issues its API key
func (s *AccountService) Register(ctx context.Context, email, password string) (*User, error) {
	user, err := s.register(ctx, email, password)
	switch {
	case err == nil:
		s.metrics.RegistrationsTotal.WithLabelValues(StatusSuccess).Inc()
		_ = s.audit.LogEvent(ctx, AuditEvent{Action: ActionRegister, Status: StatusSuccess, UserID: user.ID, Email: email})
	case errors.Is(err, ErrDuplicateIdentity):
		s.metrics.RegistrationsTotal.WithLabelValues("duplicate").Inc()
		_ = s.audit.LogEvent(ctx, AuditEvent{Action: ActionRegister, Status: StatusFailure, Email: email, Reason: "duplicate"})
	default:
		s.metrics.RegistrationsTotal.WithLabelValues("error").Inc()
	}
	return user, err
}

// Provision creates an account with the given role unless the email is
// already registered, in which case the existing account is returned as is.
// It is used at startup to bootstrap an administrator.
func (s *AccountService) Provision(ctx context.Context, email, password string, role Role) (*User, bool, error) {
	if _, err := ParseRole(string(role)); err != nil {
		return nil, false, err
	}

	existing, err := s.store.FindByEmail(ctx, email)
	if err == nil {
		if existing.Role != role {
			s.logger.WithFields(map[string]interface{}{
				"user_id": existing.ID,
				"role":    string(existing.Role),
			}).Warn("Provisioned account already exists with a different role")
		}
		return existing, false, nil
	}
	if !errors.Is(err, storage.ErrNotFound) {
		return nil, false, fmt.Errorf("failed to check email: %w", err)
	}

	user, err := s.create(ctx, email, password, role)
	if err != nil {
		return nil, false, err
	}
	return user, true, nil
}

func (s *AccountService) register(ctx context.Context, email, password string) (*User, error) {
	if _, err := s.store.FindByEmail(ctx, email); err == nil {
		return nil, ErrDuplicateIdentity
	} else if !errors.Is(err, storage.ErrNotFound) {
		return nil, fmt.Errorf("failed to check email: %w", err)
	}

	return s.create(ctx, email, password, RoleUser)
}

func (s *AccountService) create(ctx context.Context, email, password string, role Role) (*User, error) {
	hashed, err := s.hash(ctx, password)
	if err != nil {
		return nil, err
	}

	user, err := s.store.Create(ctx, &User{
		Email:          email,
		HashedPassword: hashed,
		Role:           role,
	})
	if errors.Is(err, storage.ErrConflict) {
		return nil, ErrDuplicateIdentity
	}
	if err != nil {
		return nil, fmt.Errorf("failed to create user: %w", err)
	}

	return s.ensureKey(ctx, user)
}

// Login verifies email and password and returns a bearer token together with
// the account's API key.
func (s *AccountService) Login(ctx context.Context, email, password string) (*LoginResult, error) {
	result, user, err := s.login(ctx, email, password)
	switch {
	case err == nil:
		s.metrics.LoginsTotal.WithLabelValues(StatusSuccess).Inc()
		_ = s.audit.LogEvent(ctx, AuditEvent{Action: ActionLogin, Status: StatusSuccess, UserID: user.ID, Email: email})
	case errors.Is(err, ErrInvalidCredentials):
		s.metrics.LoginsTotal.WithLabelValues("invalid_credentials").Inc()
		_ = s.audit.LogEvent(ctx, AuditEvent{Action: ActionLogin, Status: StatusFailure, Email: email, Reason: "invalid_credentials"})
	default:
		s.metrics.LoginsTotal.WithLabelValues("error").Inc()
	}
	return result, err
}

func (s *AccountService) login(ctx context.Context, email, password string) (*LoginResult, *User, error) {
	user, err := s.store.FindByEmail(ctx, email)
	if errors.Is(err, storage.ErrNotFound) {
		s.verify(ctx, password, s.dummy())
		return nil, nil, ErrInvalidCredentials
	}
	if err != nil {
		return nil, nil, fmt.Errorf("failed to look up user: %w", err)
	}

	if !s.verify(ctx, password, user.HashedPassword) {
		if ctx.Err() != nil {
			return nil, nil, ctx.Err()
		}
		return nil, nil, ErrInvalidCredentials
	}

	user, err = s.ensureKey(ctx, user)
	if err != nil {
		return nil, nil, err
	}

	token, err := s.tokens.Issue(user.Email, 0)
	if err != nil {
		return nil, nil, err
	}

	return &LoginResult{
		AccessToken: token,
		TokenType:   TokenType,
		APIKey:      *user.APIKey,
	}, user, nil
}

func (s *AccountService) ensureKey(ctx context.Context, user *User) (*User, error) {
	hadKey := user.HasAPIKey()
	user, err := s.keys.Ensure(ctx, s.store, user)
	if err != nil {
		return nil, err
	}
	if !hadKey {
		_ = s.audit.LogEvent(ctx, AuditEvent{Action: ActionAPIKeyIssue, Status: StatusSuccess, UserID: user.ID})
	}
	return user, nil
}

func (s *AccountService) hash(ctx context.Context, password string) (string, error) {
	start := time.Now()
	defer func() {
		s.metrics.PasswordHashLatency.WithLabelValues("hash").Observe(time.Since(start).Seconds())
	}()
	return s.hasher.Hash(ctx, password)
}

func (s *AccountService) verify(ctx context.Context, password, hash string) bool {
	start := time.Now()
	defer func() {
		s.metrics.PasswordHashLatency.WithLabelValues("verify").Observe(time.Since(start).Seconds())
	}()
	return s.hasher.Verify(ctx, password, hash)
}

// dummy is built once, detached from any request so a cancelled caller cannot
// leave it empty
func (s *AccountService) dummy() string {
	s.dummyOnce.Do(func() {
		hashed, err := s.hasher.Hash(context.Background(), "learner-api-dummy-password")
		if err != nil {
			s.logger.WithError(err).Warn("Failed to prepare dummy password hash")
			return
		}
		s.dummyHash = hashed
	})
	return s.dummyHash
}
