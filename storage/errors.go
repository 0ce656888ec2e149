package storage

import "errors"

// Common storage errors.
var (
	// ErrNotFound is returned when an entity is not found.
	ErrNotFound = errors.New("entity not found")

	// ErrLocked is returned for writes against a human-approved asset.
	ErrLocked = errors.New("asset locked by human approval")
)
