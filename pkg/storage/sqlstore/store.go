// Package sqlstore is the database/sql implementation of auth.UserStore for
// PostgreSQL and SQLite.
package sqlstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/MannuMourya/Learner-API/pkg/auth"
	"github.com/MannuMourya/Learner-API/pkg/storage"
)

const (
	selectUserColumns = `SELECT id, email, hashed_password, role, api_key, created_at FROM users`

	queryFindByEmail  = selectUserColumns + ` WHERE email = ?`
	queryFindByAPIKey = selectUserColumns + ` WHERE api_key = ?`
	queryCountUsers   = `SELECT COUNT(*) FROM users`
	queryInsertUser   = `INSERT INTO users (email, hashed_password, role, api_key, created_at) VALUES (?, ?, ?, ?, ?) RETURNING id`
	querySetAPIKey    = `UPDATE users SET api_key = ? WHERE id = ? AND api_key IS NULL`
	queryGetAPIKey    = `SELECT api_key FROM users WHERE id = ?`
)

// Store persists identities in a SQL database
type Store struct {
	db      *sql.DB
	dialect Dialect
	now     func() time.Time
}

var _ auth.UserStore = (*Store)(nil)

// New wraps an open database handle
func New(db *sql.DB, dialect Dialect) *Store {
	return &Store{db: db, dialect: dialect, now: time.Now}
}

// DB returns the underlying handle
func (s *Store) DB() *sql.DB {
	return s.db
}

// FindByEmail returns the user with exactly this email
func (s *Store) FindByEmail(ctx context.Context, email string) (*auth.User, error) {
	return s.findOne(ctx, queryFindByEmail, email)
}

// FindByAPIKey returns the user owning key
func (s *Store) FindByAPIKey(ctx context.Context, key string) (*auth.User, error) {
	return s.findOne(ctx, queryFindByAPIKey, key)
}

func (s *Store) findOne(ctx context.Context, query string, arg any) (*auth.User, error) {
	row := s.db.QueryRowContext(ctx, s.dialect.Rebind(query), arg)

	var (
		user   auth.User
		apiKey sql.NullString
	)
	err := row.Scan(&user.ID, &user.Email, &user.HashedPassword, &user.Role, &apiKey, &user.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, storage.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query user: %w", err)
	}

	if apiKey.Valid {
		user.APIKey = &apiKey.String
	}
	user.CreatedAt = user.CreatedAt.UTC()
	return &user, nil
}

// CountUsers returns the number of stored users
func (s *Store) CountUsers(ctx context.Context) (int64, error) {
	var n int64
	if err := s.db.QueryRowContext(ctx, queryCountUsers).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count users: %w", err)
	}
	return n, nil
}

// Create inserts user, assigning ID and CreatedAt
func (s *Store) Create(ctx context.Context, user *auth.User) (*auth.User, error) {
	created := *user
	created.CreatedAt = s.now().UTC().Truncate(time.Microsecond)

	var apiKey sql.NullString
	if user.HasAPIKey() {
		k := *user.APIKey
		created.APIKey = &k
		apiKey = sql.NullString{String: k, Valid: true}
	}

	err := s.db.QueryRowContext(ctx, s.dialect.Rebind(queryInsertUser),
		created.Email, created.HashedPassword, created.Role, apiKey, created.CreatedAt,
	).Scan(&created.ID)
	if err != nil {
		if s.dialect.IsUniqueViolation(err) {
			return nil, storage.ErrConflict
		}
		return nil, fmt.Errorf("failed to insert user: %w", err)
	}
	return &created, nil
}

// SetAPIKey sets the key only if the user has none yet. The conditional
// UPDATE makes concurrent callers agree on a single key.
func (s *Store) SetAPIKey(ctx context.Context, userID int64, key string) (string, error) {
	_, err := s.db.ExecContext(ctx, s.dialect.Rebind(querySetAPIKey), key, userID)
	if err != nil {
		if s.dialect.IsUniqueViolation(err) {
			return "", storage.ErrConflict
		}
		return "", fmt.Errorf("failed to set api key: %w", err)
	}

	var stored sql.NullString
	err = s.db.QueryRowContext(ctx, s.dialect.Rebind(queryGetAPIKey), userID).Scan(&stored)
	if errors.Is(err, sql.ErrNoRows) {
		return "", storage.ErrNotFound
	}
	if err != nil {
		return "", fmt.Errorf("failed to read api key: %w", err)
	}
	if !stored.Valid {
		return "", fmt.Errorf("api key for user %d was not stored", userID)
	}
	return stored.String, nil
}

// PingContext checks database connectivity
func (s *Store) PingContext(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Close closes the database handle
func (s *Store) Close() error {
	return s.db.Close()
}
