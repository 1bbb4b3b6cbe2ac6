package repository

import "errors"

var (
	// ErrNotFound is returned when no record matches the lookup
	ErrNotFound = errors.New("record not found")
	// ErrConflict is returned when an optimistic update lost against a concurrent writer
	ErrConflict = errors.New("record changed concurrently")
	// ErrUnavailable is returned when every store in the fallback chain failed
	ErrUnavailable = errors.New("record store unavailable")
)
