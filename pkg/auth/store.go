package auth

import "context"

// UserReader looks up identities. Lookups that match nothing return
// storage.ErrNotFound.
type UserReader interface {
	FindByEmail(ctx context.Context, email string) (*User, error)
	FindByAPIKey(ctx context.Context, key string) (*User, error)
	CountUsers(ctx context.Context) (int64, error)
}

// UserWriter persists identities
type UserWriter interface {
	// Create inserts a new identity and returns it with ID and CreatedAt set.
	// A taken email yields storage.ErrConflict.
	Create(ctx context.Context, user *User) (*User, error)

	// SetAPIKey stores key for the identity only if it has no key yet, and
	// returns the key that is stored afterwards. A key already owned by
	// another identity yields storage.ErrConflict.
	SetAPIKey(ctx context.Context, userID int64, key string) (string, error)
}

// UserStore is the persistence collaborator required by identity resolution
// and account management.
type UserStore interface {
	UserReader
	UserWriter
}
