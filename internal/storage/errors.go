package storage

import "errors"

var (
	// ErrClosed is returned by every operation after the engine is closed.
	ErrClosed = errors.New("storage: engine closed")

	// ErrNoKey is returned by TTL when the key does not exist.
	ErrNoKey = errors.New("storage: no such key")

	// ErrNoExpiry is returned by TTL when the key exists without a timeout.
	ErrNoExpiry = errors.New("storage: key has no expiry")

	// ErrDBIndex is returned by Select for an index outside [0, Databases()).
	ErrDBIndex = errors.New("storage: db index out of range")
)
