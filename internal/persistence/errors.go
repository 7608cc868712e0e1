package persistence

import "errors"

var (
	// ErrNotFound is returned when the requested record does not exist.
	ErrNotFound = errors.New("persistence: not found")
	// ErrVersionConflict is returned when a room changed since it was loaded.
	ErrVersionConflict = errors.New("persistence: room was modified by another request")
	// ErrDuplicate is returned when a unique code is already taken.
	ErrDuplicate = errors.New("persistence: duplicate record")
	// ErrConstraintViolation is returned when a stored value breaks a schema constraint.
	ErrConstraintViolation = errors.New("persistence: constraint violation")
)
