// Package metric provides Prometheus metrics for the server.
//
//   - prometheus.go: registry, server metrics and the /metrics handler
//   - collector.go: per-database key counts collected from the engine
//
// Metrics include:
//
//   - Connection gauges and counters
//   - Command counters and latency histograms by command and result
//   - Protocol error and keyspace hit/miss counters
//   - Keys and expiring keys per database
//
// Metrics are exposed at /metrics in Prometheus format when enabled.
package metric
