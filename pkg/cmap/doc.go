// Package cmap provides a sharded concurrent map.
//
// Keys are spread over a power-of-two number of shards by their murmur3
// hash; each shard is a plain map behind its own RWMutex. The server uses
// it as the registry of connected clients, which is written on every
// accept and close and read by CLIENT LIST and INFO.
//
// Usage:
//
//	m := cmap.New[int64, *Client]()
//	m.Set(id, c)
//	c, ok := m.Get(id)
//
// Thread Safety:
//
// All operations are thread-safe. Read operations (Get, Has, Range) use
// RLock, write operations (Set, Delete, Pop) use Lock.
package cmap
