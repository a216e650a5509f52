package store

import "errors"

// Common errors.
var (
	ErrNotFound = errors.New("note not found")
	ErrConflict = errors.New("note was modified concurrently")
	ErrReadOnly = errors.New("operation denied: application is in read-only mode")
)
