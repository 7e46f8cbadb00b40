package store

import "errors"

var (
	// ErrPersist is returned when a mutation could not be written to the backing store.
	// The in-memory change has been rolled back when this error is returned.
	ErrPersist = errors.New("store: failed to persist licenses")

	// ErrLoad is returned when the backing store could not be read or decoded.
	ErrLoad = errors.New("store: failed to load licenses")

	// ErrInvalidEntry is returned when a loaded entry violates the store invariants.
	ErrInvalidEntry = errors.New("store: invalid license entry")

	// ErrDuplicateKey is returned when two loaded entries share a license key.
	ErrDuplicateKey = errors.New("store: duplicate license key")

	// ErrClosed is returned by operations on a closed store.
	ErrClosed = errors.New("store: closed")
)
