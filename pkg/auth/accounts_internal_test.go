package auth

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/MannuMourya/Learner-API/pkg/observability"
	"github.com/MannuMourya/Learner-API/pkg/storage"
)

// emptyStore knows no identities
type emptyStore struct {
	scriptedWriter
}

func (emptyStore) FindByEmail(context.Context, string) (*User, error) {
	return nil, storage.ErrNotFound
}

func (emptyStore) FindByAPIKey(context.Context, string) (*User, error) {
	return nil, storage.ErrNotFound
}

func (emptyStore) CountUsers(context.Context) (int64, error) {
	return 0, nil
}

func TestAccountService_DummyHashSurvivesCancelledCaller(t *testing.T) {
	tokens, err := NewTokenService([]byte("accounts-secret"), time.Hour)
	require.NoError(t, err)
	svc := NewAccountService(&emptyStore{}, NewHasher(bcrypt.MinCost, 1), tokens, NewAPIKeyIssuer(),
		observability.NewNopLogger(), observability.NewNopMetrics())

	// The first unknown-email login arrives with a context that is already done.
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = svc.Login(ctx, "ghost@x.com", "secret1")
	require.Error(t, err)

	assert.True(t, strings.HasPrefix(svc.dummyHash, "$2"), "dummy hash %q", svc.dummyHash)

	_, err = svc.Login(context.Background(), "ghost@x.com", "secret1")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
	assert.NotEmpty(t, svc.dummy())
}
