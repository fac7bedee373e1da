// Package memory provides the in-memory storage engine.
//
// Each database keeps its entries in a B-tree ordered by key, so KEYS
// returns keys in byte order and prefix patterns scan only the matching
// range. A per-database map indexes the keys that carry a timeout.
//
// Expiry is enforced two ways, as in Redis:
//
//   - Lazily: reads treat an expired entry as absent and writes remove it.
//   - Actively: a sweeper samples keys with a timeout hz times per second and
//     deletes the expired ones.
//
// Thread Safety:
//
// Each database is guarded by its own sync.RWMutex. Reads take RLock,
// writes take Lock. Stored values are copied on write and never modified
// afterwards, so a reader never observes a partially written value.
package memory
