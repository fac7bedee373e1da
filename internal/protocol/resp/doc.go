// Package resp implements the RESP2 wire format used by the respkv server.
//
// The package has three parts:
//
//   - decoder.go: incremental request decoder (multi-bulk frames only)
//   - encoder.go: reply encoder for every Value kind
//   - reader.go: blocking reply reader, the client side of the encoder
//
// Requests are always arrays of bulk strings:
//
//	*2\r\n$3\r\nGET\r\n$3\r\nfoo\r\n
//
// Inline commands ("PING\r\n") are not accepted; a request that does not
// start with '*' is a protocol error.
package resp
