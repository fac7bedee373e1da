package logger

import (
	"log/slog"
	"strings"
)

// Attribute keys containing one of these are redacted.
var sensitiveKeyPatterns = []string{
	"pass",
	"secret",
	"credential",
	"auth",
}

// Commands whose arguments carry credentials.
var sensitiveCommands = map[string]bool{
	"auth":  true,
	"hello": true,
}

const redactedValue = "***REDACTED***"

// redactSensitive replaces non-empty string values of sensitive keys.
func redactSensitive(a slog.Attr) slog.Attr {
	switch a.Value.Kind() {
	case slog.KindString:
		if a.Value.String() != "" && IsSensitiveKey(a.Key) {
			return slog.String(a.Key, redactedValue)
		}
	case slog.KindGroup:
		attrs := a.Value.Group()
		out := make([]slog.Attr, len(attrs))
		for i, attr := range attrs {
			out[i] = redactSensitive(attr)
		}
		return slog.Attr{Key: a.Key, Value: slog.GroupValue(out...)}
	}
	return a
}

// IsSensitiveKey reports whether a key name suggests a credential.
func IsSensitiveKey(key string) bool {
	keyLower := strings.ToLower(key)
	for _, pattern := range sensitiveKeyPatterns {
		if strings.Contains(keyLower, pattern) {
			return true
		}
	}
	return false
}

// RedactCommand renders a command line for logging. Arguments of commands
// that carry credentials are replaced.
func RedactCommand(args [][]byte) []string {
	out := make([]string, len(args))
	if len(args) == 0 {
		return out
	}
	out[0] = string(args[0])
	hide := sensitiveCommands[strings.ToLower(out[0])]
	for i := 1; i < len(args); i++ {
		if hide {
			out[i] = redactedValue
			continue
		}
		out[i] = string(args[i])
	}
	return out
}
