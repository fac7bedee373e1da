package output

import (
	"fmt"
	"io"
	"strings"

	"github.com/yndnr/respkv/internal/protocol/resp"
)

// Format represents the output format.
type Format string

const (
	FormatText Format = "text"
	FormatRaw  Format = "raw"
	FormatJSON Format = "json"
	FormatYAML Format = "yaml"
)

// Formatter writes one reply.
type Formatter interface {
	Format(w io.Writer, v resp.Value) error
}

// NewFormatter creates a formatter for the given format. Unknown formats
// use text.
func NewFormatter(format Format) Formatter {
	switch format {
	case FormatRaw:
		return &RawFormatter{}
	case FormatJSON:
		return &JSONFormatter{}
	case FormatYAML:
		return &YAMLFormatter{}
	default:
		return &TextFormatter{}
	}
}

// ParseFormat validates a --output value.
func ParseFormat(s string) (Format, error) {
	switch f := Format(strings.ToLower(s)); f {
	case FormatText, FormatRaw, FormatJSON, FormatYAML:
		return f, nil
	}
	return "", fmt.Errorf("unknown output format %q (want text, raw, json or yaml)", s)
}

// toAny converts a reply into plain Go values for structured encoders.
// Errors become {"error": message}.
func toAny(v resp.Value) any {
	switch v.Kind {
	case resp.KindSimpleString:
		return v.Str
	case resp.KindError:
		return map[string]string{"error": v.Str}
	case resp.KindInteger:
		return v.Int
	case resp.KindBulkString:
		if v.Null {
			return nil
		}
		return string(v.Bulk)
	case resp.KindArray:
		if v.Null {
			return nil
		}
		out := make([]any, len(v.Array))
		for i, item := range v.Array {
			out[i] = toAny(item)
		}
		return out
	}
	return nil
}

// ForCommand returns the formatter for the reply of args. In text mode the
// multi-line replies of INFO and CLIENT LIST are printed raw.
func ForCommand(format Format, args []string) Formatter {
	if format == FormatText && rawReply(args) {
		return &RawFormatter{}
	}
	return NewFormatter(format)
}

func rawReply(args []string) bool {
	if len(args) == 0 {
		return false
	}
	switch strings.ToLower(args[0]) {
	case "info":
		return true
	case "client":
		return len(args) > 1 && strings.EqualFold(args[1], "list")
	}
	return false
}
