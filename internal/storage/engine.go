package storage

import "time"

// Engine is a set of numbered databases sharing one backing store.
//
// Implementations must be safe for concurrent use. Each Keyspace method is
// atomic with respect to the others on the same database.
type Engine interface {
	// Select returns database index. It fails with ErrDBIndex when index is
	// out of range and ErrClosed after Close.
	Select(index int) (Keyspace, error)

	// Databases returns the number of databases.
	Databases() int

	// Close stops background work and releases the store. Close is
	// idempotent.
	Close() error
}

// Keyspace is one database of an Engine. Keys and values passed in are not
// retained; values returned must not be modified by the caller.
type Keyspace interface {
	// Get returns the value of key, or ok=false when it is absent or expired.
	Get(key []byte) (value []byte, ok bool, err error)

	// Keys returns every live key matching the glob pattern in byte order.
	Keys(pattern []byte) ([][]byte, error)

	// Set stores value under key. It reports false without writing when an
	// NX or XX condition fails.
	Set(key, value []byte, opts SetOptions) (bool, error)

	// Delete removes keys and returns how many existed.
	Delete(keys ...[]byte) (int, error)

	// Exists returns how many of keys exist. A key named twice counts twice.
	Exists(keys ...[]byte) (int, error)

	// Expire sets an absolute expiry on key. It returns false when the key is
	// absent. A time not after now deletes the key.
	Expire(key []byte, at time.Time) (bool, error)

	// Persist removes the expiry of key. It returns false when the key is
	// absent or has no expiry.
	Persist(key []byte) (bool, error)

	// TTL returns the remaining time to live of key. It fails with ErrNoKey
	// or ErrNoExpiry.
	TTL(key []byte) (time.Duration, error)

	// Len returns the number of live keys.
	Len() (int, error)

	// Stats returns key counts for INFO keyspace.
	Stats() (KeyspaceStats, error)

	// Flush removes every key.
	Flush() error
}

// SetOptions carries the modifiers of SET.
type SetOptions struct {
	// ExpireAt is the absolute expiry. Zero means none.
	ExpireAt time.Time

	// KeepTTL retains the existing expiry of an overwritten key.
	KeepTTL bool

	// NX only sets the key if it does not exist.
	NX bool

	// XX only sets the key if it already exists.
	XX bool
}

// KeyspaceStats summarizes one database.
type KeyspaceStats struct {
	Keys    int
	Expires int

	// AvgTTL is the mean remaining TTL of keys with an expiry.
	AvgTTL time.Duration
}

// ExpiryCounter is implemented by engines that evict expired keys
// themselves and count them.
type ExpiryCounter interface {
	ExpiredKeys() int64
}
