package auth

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"io"

	"github.com/MannuMourya/Learner-API/pkg/storage"
)

const (
	// APIKeyBytes is the amount of randomness in an API key (160 bits)
	APIKeyBytes = 20

	maxIssueAttempts = 3
)

// APIKeyIssuer assigns each identity a unique random API key exactly once
type APIKeyIssuer struct {
	random io.Reader
}

// NewAPIKeyIssuer creates an issuer reading from crypto/rand
func NewAPIKeyIssuer() *APIKeyIssuer {
	return &APIKeyIssuer{random: rand.Reader}
}

// GenerateKey returns a new hex encoded random key
func (ki *APIKeyIssuer) GenerateKey() (string, error) {
	b := make([]byte, APIKeyBytes)
	if _, err := io.ReadFull(ki.random, b); err != nil {
		return "", fmt.Errorf("failed to generate api key: %w", err)
	}
	return hex.EncodeToString(b), nil
}

// Ensure gives user an API key if it has none. It is a no-op when a key is
// already set. Key collisions are retried with fresh keys; after
// maxIssueAttempts the result is ErrAPIKeyConflict.
func (ki *APIKeyIssuer) Ensure(ctx context.Context, store UserWriter, user *User) (*User, error) {
	if user.HasAPIKey() {
		return user, nil
	}

	for attempt := 0; attempt < maxIssueAttempts; attempt++ {
		key, err := ki.GenerateKey()
		if err != nil {
			return nil, err
		}

		stored, err := store.SetAPIKey(ctx, user.ID, key)
		if errors.Is(err, storage.ErrConflict) {
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("failed to store api key: %w", err)
		}

		user.APIKey = &stored
		return user, nil
	}

	return nil, ErrAPIKeyConflict
}
