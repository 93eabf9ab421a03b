package auth_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MannuMourya/Learner-API/pkg/auth"
	"github.com/MannuMourya/Learner-API/pkg/storage/memory"
)

type resolverFixture struct {
	store    *memory.Store
	tokens   *auth.TokenService
	resolver *auth.Resolver
	user     *auth.User
	token    string
}

func newResolverFixture(t *testing.T) *resolverFixture {
	t.Helper()
	ctx := context.Background()

	store := memory.New()
	tokens, err := auth.NewTokenService([]byte("resolver-secret"), time.Hour)
	require.NoError(t, err)

	user, err := store.Create(ctx, &auth.User{Email: "a@x.com", HashedPassword: "h", Role: auth.RoleUser})
	require.NoError(t, err)
	user, err = auth.NewAPIKeyIssuer().Ensure(ctx, store, user)
	require.NoError(t, err)

	token, err := tokens.Issue(user.Email, 0)
	require.NoError(t, err)

	return &resolverFixture{
		store:    store,
		tokens:   tokens,
		resolver: auth.NewResolver(store, tokens),
		user:     user,
		token:    token,
	}
}

func TestResolver_Resolve(t *testing.T) {
	f := newResolverFixture(t)

	orphanToken, err := f.tokens.Issue("gone@x.com", 0)
	require.NoError(t, err)

	tests := []struct {
		name       string
		creds      auth.Credentials
		wantReason auth.Reason
	}{
		{
			name:  "valid api key",
			creds: auth.Credentials{APIKey: *f.user.APIKey},
		},
		{
			name:  "valid bearer token",
			creds: auth.Credentials{AuthorizationPresent: true, BearerToken: f.token},
		},
		{
			name:       "nothing supplied",
			creds:      auth.Credentials{},
			wantReason: auth.ReasonNoCredential,
		},
		{
			name:       "authorization header without bearer token",
			creds:      auth.Credentials{AuthorizationPresent: true},
			wantReason: auth.ReasonMissingToken,
		},
		{
			name:       "unknown api key",
			creds:      auth.Credentials{APIKey: "nope"},
			wantReason: auth.ReasonInvalidAPIKey,
		},
		{
			name:       "invalid api key wins over valid token",
			creds:      auth.Credentials{APIKey: "nope", AuthorizationPresent: true, BearerToken: f.token},
			wantReason: auth.ReasonInvalidAPIKey,
		},
		{
			name:       "tampered token",
			creds:      auth.Credentials{AuthorizationPresent: true, BearerToken: f.token + "x"},
			wantReason: auth.ReasonInvalidToken,
		},
		{
			name:       "token for deleted identity",
			creds:      auth.Credentials{AuthorizationPresent: true, BearerToken: orphanToken},
			wantReason: auth.ReasonIdentityNotFound,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			user, err := f.resolver.Resolve(context.Background(), tt.creds)
			if tt.wantReason == "" {
				require.NoError(t, err)
				assert.Equal(t, f.user.ID, user.ID)
				return
			}

			assert.Nil(t, user)
			assert.ErrorIs(t, err, auth.ErrUnauthorized)
			reason, ok := auth.ReasonOf(err)
			require.True(t, ok)
			assert.Equal(t, tt.wantReason, reason)
		})
	}
}

func TestResolver_ValidAPIKeyIgnoresBadToken(t *testing.T) {
	f := newResolverFixture(t)

	user, err := f.resolver.Resolve(context.Background(), auth.Credentials{
		APIKey:               *f.user.APIKey,
		AuthorizationPresent: true,
		BearerToken:          "garbage",
	})
	require.NoError(t, err)
	assert.Equal(t, f.user.Email, user.Email)
}

type failingReader struct{ err error }

func (r failingReader) FindByEmail(ctx context.Context, email string) (*auth.User, error) {
	return nil, r.err
}

func (r failingReader) FindByAPIKey(ctx context.Context, key string) (*auth.User, error) {
	return nil, r.err
}

func (r failingReader) CountUsers(ctx context.Context) (int64, error) {
	return 0, r.err
}

func TestResolver_StorageFaultIsNotUnauthorized(t *testing.T) {
	f := newResolverFixture(t)
	boom := errors.New("database is down")
	resolver := auth.NewResolver(failingReader{err: boom}, f.tokens)

	_, err := resolver.Resolve(context.Background(), auth.Credentials{APIKey: "k"})
	assert.ErrorIs(t, err, boom)
	assert.NotErrorIs(t, err, auth.ErrUnauthorized)

	_, err = resolver.Resolve(context.Background(), auth.Credentials{AuthorizationPresent: true, BearerToken: f.token})
	assert.ErrorIs(t, err, boom)
	assert.NotErrorIs(t, err, auth.ErrUnauthorized)
}
