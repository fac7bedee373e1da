// Package storage defines the keyspace abstraction served by the RESP
// front end.
//
// An Engine owns a fixed number of numbered databases. Each database is a
// Keyspace: a flat map from opaque byte-string keys to byte-string values,
// with optional per-key expiry. Two implementations exist:
//
//   - memory: ordered in-memory index with lazy and active expiry
//   - badgerstore: durable LSM storage on Badger v3
//
// The package also provides the Redis glob matcher used by KEYS.
package storage
