package auth

import (
	"context"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"fmt"
	"runtime"

	"golang.org/x/crypto/bcrypt"
	"golang.org/x/sync/semaphore"

	"github.com/MannuMourya/Learner-API/pkg/observability"
)

// Hasher hashes and verifies passwords with bcrypt. Concurrent bcrypt work is
// bounded so a burst of logins cannot monopolize every CPU.
//
// Plaintexts are reduced to a base64 SHA-256 digest before bcrypt, which only
// reads the first 72 bytes of its input, so passwords of any length hash and
// verify.
type Hasher struct {
	cost   int
	sem    *semaphore.Weighted
	logger *observability.Logger
}

// HasherOption configures a Hasher
type HasherOption func(*Hasher)

// WithHasherLogger sets the logger that records bcrypt failures at debug level
func WithHasherLogger(logger *observability.Logger) HasherOption {
	return func(h *Hasher) {
		if logger != nil {
			h.logger = logger
		}
	}
}

// NewHasher creates a Hasher. cost <= 0 selects bcrypt.DefaultCost and
// maxConcurrent <= 0 selects GOMAXPROCS.
func NewHasher(cost int, maxConcurrent int64, opts ...HasherOption) *Hasher {
	if cost <= 0 {
		cost = bcrypt.DefaultCost
	}
	if maxConcurrent <= 0 {
		maxConcurrent = int64(runtime.GOMAXPROCS(0))
	}
	h := &Hasher{
		cost:   cost,
		sem:    semaphore.NewWeighted(maxConcurrent),
		logger: observability.NewNopLogger(),
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Hash returns a salted bcrypt hash of plaintext
func (h *Hasher) Hash(ctx context.Context, plaintext string) (string, error) {
	if err := h.sem.Acquire(ctx, 1); err != nil {
		return "", err
	}
	defer h.sem.Release(1)

	hashed, err := bcrypt.GenerateFromPassword(prehash(plaintext), h.cost)
	if err != nil {
		return "", fmt.Errorf("failed to hash password: %w", err)
	}
	return string(hashed), nil
}

// Verify reports whether plaintext matches hash. Malformed hashes and a
// cancelled ctx both yield false.
func (h *Hasher) Verify(ctx context.Context, plaintext, hash string) bool {
	if err := h.sem.Acquire(ctx, 1); err != nil {
		h.logger.WithError(err).Debug("password verification aborted")
		return false
	}
	defer h.sem.Release(1)

	err := bcrypt.CompareHashAndPassword([]byte(hash), prehash(plaintext))
	if err != nil && !errors.Is(err, bcrypt.ErrMismatchedHashAndPassword) {
		h.logger.WithError(err).Debug("password hash could not be compared")
	}
	return err == nil
}

// prehash maps plaintext to 44 bytes, well under bcrypt's 72-byte input limit
func prehash(plaintext string) []byte {
	sum := sha256.Sum256([]byte(plaintext))
	out := make([]byte, base64.StdEncoding.EncodedLen(len(sum)))
	base64.StdEncoding.Encode(out, sum[:])
	return out
}
