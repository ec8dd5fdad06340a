package storage

import "errors"

var (
	// ErrNotFound is returned when a requested output does not exist.
	ErrNotFound = errors.New("storage: not found")

	// ErrDuplicate is returned when an output id is already in the vault.
	ErrDuplicate = errors.New("storage: duplicate output id")
)
