package storage

import "errors"

// Storage errors shared by every backend.
var (
	// ErrNotFound is returned when a record does not exist or is owned by another user.
	ErrNotFound = errors.New("not found")

	// ErrDuplicateKey is returned when a record with the same id is already stored.
	// Results and signals are immutable once written; they can only be deleted.
	ErrDuplicateKey = errors.New("duplicate key")

	// ErrInvalidInput is returned for a nil record or one missing its id or owner.
	ErrInvalidInput = errors.New("invalid input")
)
