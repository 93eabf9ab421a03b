package storage

import "errors"

var (
	// ErrNotFound is returned when a lookup matches no record
	ErrNotFound = errors.New("not found")

	// ErrConflict is returned when a write violates a uniqueness constraint
	// (email or API key). Callers may retry with different values.
	ErrConflict = errors.New("uniqueness conflict")
)
