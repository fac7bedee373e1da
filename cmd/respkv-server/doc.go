// Package main provides the entry point for respkv-server.
//
// respkv-server is a Redis-compatible key-value server speaking RESP2 over
// TCP and, optionally, TLS. It provides:
//
//   - the string and key command subset used by common Redis clients
//   - an in-memory engine and a disk engine backed by Badger
//   - a Prometheus endpoint and structured JSON logs
//
// Usage:
//
//	respkv-server [flags]
//	respkv-server --config /etc/respkv/respkv.yaml
//	respkv-server hash-password
//	respkv-server version
//
// Configuration is read from the file, then RESPKV_ environment variables,
// then command line flags; later sources win.
package main
