package errors

import "errors"

var (
	ErrNotFound = errors.New("user not found")

	ErrInvalidID = errors.New("invalid user ID format")

	// ErrDuplicate covers both a taken email and an id that already has a
	// profile.
	ErrDuplicate = errors.New("user already exists")
)
