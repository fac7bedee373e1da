// Package connection provides the RESP client used by respkv-cli.
//
//   - client.go: a single RESP connection over TCP or TLS
//   - manager.go: connection state, AUTH/SELECT replay and reconnection
package connection
