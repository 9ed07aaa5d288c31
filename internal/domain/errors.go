package domain

import "errors"

// Sentinel errors shared by repositories, use cases and transport adapters.
// Callers wrap them with context and match them with errors.Is.
var (
	// ErrNotFound is returned when a referenced asset, lot or snapshot does not exist
	ErrNotFound = errors.New("not found")

	// ErrInvalidInput is returned when a request is rejected before any mutation
	ErrInvalidInput = errors.New("invalid input")

	// ErrConflict is returned when a create collides with an existing unique record
	ErrConflict = errors.New("conflict")

	// ErrUpstreamUnavailable is returned when a price or rate source cannot supply a value
	ErrUpstreamUnavailable = errors.New("upstream unavailable")
)
