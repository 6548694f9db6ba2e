package domain

import "errors"

var (
	// ErrNotFound is returned when a store lookup matches nothing, e.g. the
	// target organization does not exist. Treated as fatal during startup.
	ErrNotFound = errors.New("not found")
	// ErrSessionClosed indicates the session instance was already logged out.
	ErrSessionClosed = errors.New("session closed")
	// ErrInvalidPoint marks a point that cannot be persisted; the write buffer
	// skips such points instead of aborting the batch.
	ErrInvalidPoint = errors.New("invalid point")
)
