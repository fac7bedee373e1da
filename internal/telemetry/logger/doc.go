// Package logger provides structured logging for the server.
//
// It wraps log/slog:
//
//   - logger.go: Logger interface, handler construction, dynamic level
//   - context.go: per-connection loggers carried in a context
//   - redact.go: masking of credentials in attributes and command lines
//
// The level is held in a process-wide slog.LevelVar so a configuration
// reload can change it without rebuilding loggers.
package logger
