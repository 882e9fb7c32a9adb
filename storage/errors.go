package storage

import "errors"

// Common storage errors.
var (
	// ErrNotFound is returned when a session or instant has no recorded facts.
	ErrNotFound = errors.New("not found")

	// ErrNotConfigured is returned when a store is used before it is opened.
	ErrNotConfigured = errors.New("storage is not configured")
)
