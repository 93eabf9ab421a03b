package auth

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeClock struct{ t time.Time }

func (c *fakeClock) Now() time.Time          { return c.t }
func (c *fakeClock) Advance(d time.Duration) { c.t = c.t.Add(d) }

func newTestTokenService(t *testing.T, clock *fakeClock) *TokenService {
	t.Helper()
	ts, err := NewTokenService([]byte("test-secret"), time.Hour, WithClock(clock.Now))
	require.NoError(t, err)
	return ts
}

func TestNewTokenService_Validation(t *testing.T) {
	_, err := NewTokenService(nil, time.Hour)
	assert.Error(t, err)

	_, err = NewTokenService([]byte("s"), 0)
	assert.Error(t, err)
}

func TestTokenService_RoundTrip(t *testing.T) {
	clock := &fakeClock{t: time.Unix(1_700_000_000, 0)}
	ts := newTestTokenService(t, clock)

	for _, subject := range []string{"a@x.com", "admin@example.org", "ü@x.com"} {
		token, err := ts.Issue(subject, time.Minute)
		require.NoError(t, err)

		got, err := ts.Verify(token)
		require.NoError(t, err)
		assert.Equal(t, subject, got)
	}
}

func TestTokenService_Expiry(t *testing.T) {
	tests := []struct {
		name string
		ttl  time.Duration
	}{
		{"one second", time.Second},
		{"one minute", time.Minute},
		{"default ttl", 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clock := &fakeClock{t: time.Unix(1_700_000_000, 0)}
			ts := newTestTokenService(t, clock)

			token, err := ts.Issue("a@x.com", tt.ttl)
			require.NoError(t, err)

			ttl := tt.ttl
			if ttl <= 0 {
				ttl = ts.DefaultTTL()
			}

			clock.Advance(ttl - time.Second)
			_, err = ts.Verify(token)
			assert.NoError(t, err, "token should be valid before expiry")

			// Exactly at the expiry instant the token is no longer valid.
			clock.Advance(time.Second)
			_, err = ts.Verify(token)
			assert.ErrorIs(t, err, ErrInvalidToken)

			clock.Advance(time.Second)
			_, err = ts.Verify(token)
			assert.ErrorIs(t, err, ErrInvalidToken)
		})
	}
}

func TestTokenService_SubSecondTTL(t *testing.T) {
	clock := &fakeClock{t: time.Unix(1_700_000_000, int64(900*time.Millisecond))}
	ts := newTestTokenService(t, clock)

	token, err := ts.Issue("a@x.com", 500*time.Millisecond)
	require.NoError(t, err)

	got, err := ts.Verify(token)
	require.NoError(t, err)
	assert.Equal(t, "a@x.com", got)

	// The lifetime is rounded up to the next whole second, never down.
	clock.Advance(500 * time.Millisecond)
	_, err = ts.Verify(token)
	assert.NoError(t, err)

	clock.Advance(600 * time.Millisecond)
	_, err = ts.Verify(token)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestTokenService_SubSecondTTLWallClock(t *testing.T) {
	ts, err := NewTokenService([]byte("test-secret"), time.Hour)
	require.NoError(t, err)

	for i := 0; i < 50; i++ {
		token, err := ts.Issue("a@x.com", 500*time.Millisecond)
		require.NoError(t, err)

		got, err := ts.Verify(token)
		require.NoError(t, err, "iteration %d", i)
		assert.Equal(t, "a@x.com", got)
	}
}

func TestExpiryAt(t *testing.T) {
	base := time.Unix(1_700_000_000, 0)

	assert.Equal(t, base.Add(time.Minute), expiryAt(base, time.Minute))
	assert.Equal(t, base.Add(time.Second), expiryAt(base, time.Millisecond))
	assert.Equal(t, base.Add(2*time.Second), expiryAt(base.Add(900*time.Millisecond), 500*time.Millisecond))
}

func TestTokenService_BitFlip(t *testing.T) {
	clock := &fakeClock{t: time.Unix(1_700_000_000, 0)}
	ts := newTestTokenService(t, clock)

	token, err := ts.Issue("a@x.com", time.Hour)
	require.NoError(t, err)

	for i := 0; i < len(token); i++ {
		for bit := 0; bit < 8; bit++ {
			tampered := []byte(token)
			tampered[i] ^= 1 << bit

			_, err := ts.Verify(string(tampered))
			if !assert.ErrorIs(t, err, ErrInvalidToken, "byte %d bit %d", i, bit) {
				return
			}
		}
	}
}

func TestTokenService_RejectsForeignTokens(t *testing.T) {
	clock := &fakeClock{t: time.Unix(1_700_000_000, 0)}
	ts := newTestTokenService(t, clock)

	claims := jwt.RegisteredClaims{
		Subject:   "a@x.com",
		ExpiresAt: jwt.NewNumericDate(clock.Now().Add(time.Hour)),
	}

	t.Run("other secret", func(t *testing.T) {
		token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("other"))
		require.NoError(t, err)
		_, err = ts.Verify(token)
		assert.ErrorIs(t, err, ErrInvalidToken)
	})

	t.Run("other algorithm", func(t *testing.T) {
		token, err := jwt.NewWithClaims(jwt.SigningMethodHS512, claims).SignedString([]byte("test-secret"))
		require.NoError(t, err)
		_, err = ts.Verify(token)
		assert.ErrorIs(t, err, ErrInvalidToken)
	})

	t.Run("unsigned", func(t *testing.T) {
		token, err := jwt.NewWithClaims(jwt.SigningMethodNone, claims).SignedString(jwt.UnsafeAllowNoneSignatureType)
		require.NoError(t, err)
		_, err = ts.Verify(token)
		assert.ErrorIs(t, err, ErrInvalidToken)
	})

	t.Run("missing expiry", func(t *testing.T) {
		token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{Subject: "a@x.com"}).
			SignedString([]byte("test-secret"))
		require.NoError(t, err)
		_, err = ts.Verify(token)
		assert.ErrorIs(t, err, ErrInvalidToken)
	})

	t.Run("empty subject", func(t *testing.T) {
		token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(clock.Now().Add(time.Hour)),
		}).SignedString([]byte("test-secret"))
		require.NoError(t, err)
		_, err = ts.Verify(token)
		assert.ErrorIs(t, err, ErrInvalidToken)
	})

	t.Run("garbage", func(t *testing.T) {
		for _, token := range []string{"", "not-a-token", "a.b.c"} {
			_, err := ts.Verify(token)
			assert.ErrorIs(t, err, ErrInvalidToken)
		}
	})
}

func TestTokenService_IssueRejectsEmptySubject(t *testing.T) {
	ts := newTestTokenService(t, &fakeClock{t: time.Now()})
	_, err := ts.Issue("", time.Minute)
	assert.Error(t, err)
}
