package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// TokenType is the token_type reported to clients
const TokenType = "bearer"

// TokenService issues and verifies HS256 bearer tokens carrying a subject
// and an expiry.
type TokenService struct {
	secret     []byte
	defaultTTL time.Duration
	now        func() time.Time
	parser     *jwt.Parser
}

// TokenOption configures a TokenService
type TokenOption func(*TokenService)

// WithClock overrides the time source
func WithClock(now func() time.Time) TokenOption {
	return func(ts *TokenService) {
		ts.now = now
	}
}

// NewTokenService creates a TokenService signing with secret
func NewTokenService(secret []byte, defaultTTL time.Duration, opts ...TokenOption) (*TokenService, error) {
	if len(secret) == 0 {
		return nil, errors.New("token signing secret must not be empty")
	}
	if defaultTTL <= 0 {
		return nil, fmt.Errorf("default token lifetime must be positive, got %s", defaultTTL)
	}

	ts := &TokenService{
		secret:     secret,
		defaultTTL: defaultTTL,
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(ts)
	}

	ts.parser = jwt.NewParser(
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithStrictDecoding(),
		jwt.WithTimeFunc(ts.now),
	)
	return ts, nil
}

// DefaultTTL returns the lifetime used when Issue is called with ttl <= 0
func (ts *TokenService) DefaultTTL() time.Duration {
	return ts.defaultTTL
}

// Issue signs a token for subject that expires ttl from now
func (ts *TokenService) Issue(subject string, ttl time.Duration) (string, error) {
	if subject == "" {
		return "", errors.New("token subject must not be empty")
	}
	if ttl <= 0 {
		ttl = ts.defaultTTL
	}

	now := ts.now()
	claims := jwt.RegisteredClaims{
		Subject:   subject,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(expiryAt(now, ttl)),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(ts.secret)
	if err != nil {
		return "", fmt.Errorf("failed to sign token: %w", err)
	}
	return signed, nil
}

// expiryAt rounds now+ttl up to a whole second. NumericDate drops fractions,
// so rounding down would let a sub-second ttl expire before it is issued.
func expiryAt(now time.Time, ttl time.Duration) time.Time {
	expiry := now.Add(ttl)
	if whole := expiry.Truncate(time.Second); whole.Before(expiry) {
		return whole.Add(time.Second)
	}
	return expiry
}

// Verify checks the signature and expiry of token and returns its subject.
// Every failure returns ErrInvalidToken.
func (ts *TokenService) Verify(token string) (string, error) {
	if token == "" {
		return "", ErrInvalidToken
	}

	claims := &jwt.RegisteredClaims{}
	parsed, err := ts.parser.ParseWithClaims(token, claims, func(t *jwt.Token) (interface{}, error) {
		return ts.secret, nil
	})
	if err != nil || !parsed.Valid {
		return "", ErrInvalidToken
	}

	if claims.Subject == "" {
		return "", ErrInvalidToken
	}
	return claims.Subject, nil
}
