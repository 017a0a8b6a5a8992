package persistence

import "errors"

var (
	// ErrNotFound is returned when the requested record does not exist.
	ErrNotFound = errors.New("persistence: not found")
	// ErrConflict is returned when a conditional write finds a different
	// version than the caller expected. Nothing is written.
	ErrConflict = errors.New("persistence: version conflict")
	// ErrDuplicate is returned when inserting a record whose id already exists.
	ErrDuplicate = errors.New("persistence: duplicate record")
	// ErrConstraintViolation is returned when the store rejects a record shape.
	ErrConstraintViolation = errors.New("persistence: constraint violation")
)
