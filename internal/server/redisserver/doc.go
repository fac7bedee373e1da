// Package redisserver serves a RESP2 key-value protocol over TCP.
//
// Each accepted connection runs a read, dispatch, write loop on its own
// goroutine. Requests are decoded with internal/protocol/resp, routed
// through a fixed command registry and executed against a storage.Engine.
//
// Supported commands:
//   - PING, ECHO, QUIT, AUTH, SELECT, CLIENT
//   - GET, SET
//   - DEL, EXISTS, EXPIRE, PEXPIRE, TTL, PTTL, PERSIST, KEYS
//   - DBSIZE, FLUSHDB, FLUSHALL, COMMAND, INFO
package redisserver
