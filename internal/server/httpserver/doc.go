// Package httpserver serves the administrative HTTP endpoints of
// respkv-server.
//
// The server is separate from the RESP listener and exposes:
//
//   - GET /metrics: Prometheus exposition of the server registry
//   - GET /healthz: liveness, always 200 while the process serves HTTP
//   - GET /readyz: readiness, 503 while the storage engine is unusable
//
// Every route runs behind the same middleware chain: panic recovery,
// request IDs, an optional client address allowlist, an optional per-client
// rate limit and access logging.
package httpserver
