package auth

import (
	"database/sql/driver"
	"fmt"
	"time"
)

// Role is the closed set of authorization roles
type Role string

const (
	RoleUser  Role = "user"  // Default role for registered accounts
	RoleAdmin Role = "admin" // Operational endpoints
)

// ParseRole returns the Role named by s, or ErrUnknownRole
func ParseRole(s string) (Role, error) {
	switch r := Role(s); r {
	case RoleUser, RoleAdmin:
		return r, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownRole, s)
	}
}

// Scan implements sql.Scanner. Unknown role values in storage are errors.
func (r *Role) Scan(src interface{}) error {
	var s string
	switch v := src.(type) {
	case string:
		s = v
	case []byte:
		s = string(v)
	case nil:
		return fmt.Errorf("%w: NULL", ErrUnknownRole)
	default:
		return fmt.Errorf("cannot scan %T into Role", src)
	}
	parsed, err := ParseRole(s)
	if err != nil {
		return err
	}
	*r = parsed
	return nil
}

// Value implements driver.Valuer
func (r Role) Value() (driver.Value, error) {
	if _, err := ParseRole(string(r)); err != nil {
		return nil, err
	}
	return string(r), nil
}

// User is a registered identity
type User struct {
	ID             int64     `json:"id"`
	Email          string    `json:"email"`
	HashedPassword string    `json:"-"`
	Role           Role      `json:"role"`
	APIKey         *string   `json:"api_key,omitempty"`
	CreatedAt      time.Time `json:"created_at"`
}

// HasAPIKey reports whether an API key has been issued
func (u *User) HasAPIKey() bool {
	return u.APIKey != nil && *u.APIKey != ""
}

// Credentials are the raw credentials presented with a request. Empty fields
// mean the corresponding header was absent.
type Credentials struct {
	// AuthorizationPresent is true when an Authorization header was sent,
	// even if it did not carry a bearer token.
	AuthorizationPresent bool
	BearerToken          string
	APIKey               string
}

// LoginResult is returned by a successful login
type LoginResult struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
	APIKey      string `json:"api_key"`
}
