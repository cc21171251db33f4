package storage

import "errors"

// Sentinel errors for storage operations.
var (
	// ErrNotFound is returned when a sandbox record does not exist.
	ErrNotFound = errors.New("sandbox not found")

	// ErrConflict is returned when a record collides with an existing one,
	// either on id or on the per-owner slug.
	ErrConflict = errors.New("sandbox already exists")
)
