package logger

import "context"

type contextKey string

const (
	loggerKey   contextKey = "respkv.logger"
	clientIDKey contextKey = "respkv.client_id"
)

// WithLogger adds a logger to the context.
func WithLogger(ctx context.Context, l Logger) context.Context {
	return context.WithValue(ctx, loggerKey, l)
}

// FromContext extracts the logger from context, or the default logger.
func FromContext(ctx context.Context) Logger {
	if l, ok := ctx.Value(loggerKey).(Logger); ok {
		return l
	}
	return Default()
}

// WithClientID tags the context with a connection's client id.
func WithClientID(ctx context.Context, id int64) context.Context {
	return context.WithValue(ctx, clientIDKey, id)
}

// ClientIDFromContext returns the client id, or 0 if none is set.
func ClientIDFromContext(ctx context.Context) int64 {
	if id, ok := ctx.Value(clientIDKey).(int64); ok {
		return id
	}
	return 0
}

// L returns the context logger enriched with the client id, if any.
func L(ctx context.Context) Logger {
	l := FromContext(ctx)
	if id := ClientIDFromContext(ctx); id != 0 {
		l = l.With("client_id", id)
	}
	return l
}
