// Package memory is an in-process auth.UserStore used by tests and local runs.
package memory

import (
	"context"
	"sync"
	"time"

	"github.com/MannuMourya/Learner-API/pkg/auth"
	"github.com/MannuMourya/Learner-API/pkg/storage"
)

// Store keeps identities in maps guarded by a single RWMutex. Returned users
// are copies; mutating them does not change stored state.
type Store struct {
	mu      sync.RWMutex
	nextID  int64
	byID    map[int64]*auth.User
	byEmail map[string]int64
	byKey   map[string]int64
	now     func() time.Time
}

// New creates an empty Store
func New() *Store {
	return &Store{
		nextID:  1,
		byID:    make(map[int64]*auth.User),
		byEmail: make(map[string]int64),
		byKey:   make(map[string]int64),
		now:     time.Now,
	}
}

var _ auth.UserStore = (*Store)(nil)

// FindByEmail returns the user with exactly this email
func (s *Store) FindByEmail(ctx context.Context, email string) (*auth.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	id, ok := s.byEmail[email]
	if !ok {
		return nil, storage.ErrNotFound
	}
	return clone(s.byID[id]), nil
}

// FindByAPIKey returns the user owning key
func (s *Store) FindByAPIKey(ctx context.Context, key string) (*auth.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	id, ok := s.byKey[key]
	if !ok {
		return nil, storage.ErrNotFound
	}
	return clone(s.byID[id]), nil
}

// CountUsers returns the number of stored users
func (s *Store) CountUsers(ctx context.Context) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return int64(len(s.byID)), nil
}

// Create inserts user, assigning ID and CreatedAt
func (s *Store) Create(ctx context.Context, user *auth.User) (*auth.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, taken := s.byEmail[user.Email]; taken {
		return nil, storage.ErrConflict
	}
	if user.HasAPIKey() {
		if _, taken := s.byKey[*user.APIKey]; taken {
			return nil, storage.ErrConflict
		}
	}

	stored := clone(user)
	stored.ID = s.nextID
	stored.CreatedAt = s.now().UTC()
	s.nextID++

	s.byID[stored.ID] = stored
	s.byEmail[stored.Email] = stored.ID
	if stored.HasAPIKey() {
		s.byKey[*stored.APIKey] = stored.ID
	}
	return clone(stored), nil
}

// SetAPIKey sets the key only if the user has none yet
func (s *Store) SetAPIKey(ctx context.Context, userID int64, key string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	user, ok := s.byID[userID]
	if !ok {
		return "", storage.ErrNotFound
	}
	if user.HasAPIKey() {
		return *user.APIKey, nil
	}
	if _, taken := s.byKey[key]; taken {
		return "", storage.ErrConflict
	}

	k := key
	user.APIKey = &k
	s.byKey[key] = userID
	return key, nil
}

// PingContext always succeeds
func (s *Store) PingContext(ctx context.Context) error {
	return nil
}

// Close is a no-op
func (s *Store) Close() error {
	return nil
}

func clone(u *auth.User) *auth.User {
	c := *u
	if u.APIKey != nil {
		k := *u.APIKey
		c.APIKey = &k
	}
	return &c
}
