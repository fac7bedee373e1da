package resp

import (
	"bytes"
	"fmt"
	"strings"
)

// Kind identifies the RESP2 type carried by a Value.
type Kind uint8

const (
	KindSimpleString Kind = iota + 1
	KindError
	KindInteger
	KindBulkString
	KindArray
)

func (k Kind) String() string {
	switch k {
	case KindSimpleString:
		return "simple-string"
	case KindError:
		return "error"
	case KindInteger:
		return "integer"
	case KindBulkString:
		return "bulk-string"
	case KindArray:
		return "array"
	default:
		return fmt.Sprintf("kind(%d)", uint8(k))
	}
}

// Value is a RESP2 reply. Exactly one payload field is meaningful for a
// given Kind: Str for simple strings and errors, Int for integers, Bulk for
// bulk strings and Array for arrays. Null marks the nil bulk string and the
// nil array.
type Value struct {
	Kind  Kind
	Str   string
	Int   int64
	Bulk  []byte
	Array []Value
	Null  bool
}

var (
	okValue   = Value{Kind: KindSimpleString, Str: "OK"}
	pongValue = Value{Kind: KindSimpleString, Str: "PONG"}
)

// OK returns the +OK status reply.
func OK() Value { return okValue }

// Pong returns the +PONG status reply.
func Pong() Value { return pongValue }

// SimpleString returns a status reply.
func SimpleString(s string) Value {
	return Value{Kind: KindSimpleString, Str: s}
}

// Error returns an error reply. msg should start with an error code such as
// "ERR" or "WRONGTYPE".
func Error(msg string) Value {
	return Value{Kind: KindError, Str: msg}
}

// Errorf formats an error reply.
func Errorf(format string, args ...any) Value {
	return Error(fmt.Sprintf(format, args...))
}

// Integer returns an integer reply.
func Integer(n int64) Value {
	return Value{Kind: KindInteger, Int: n}
}

// Bulk returns a bulk string reply. A nil slice encodes as the null bulk
// string; use an empty non-nil slice for "".
func Bulk(b []byte) Value {
	if b == nil {
		return NullBulk()
	}
	return Value{Kind: KindBulkString, Bulk: b}
}

// BulkString returns a bulk string reply holding s.
func BulkString(s string) Value {
	return Value{Kind: KindBulkString, Bulk: []byte(s)}
}

// NullBulk returns the nil bulk string ($-1).
func NullBulk() Value {
	return Value{Kind: KindBulkString, Null: true}
}

// Array returns an array reply.
func Array(items ...Value) Value {
	if items == nil {
		items = []Value{}
	}
	return Value{Kind: KindArray, Array: items}
}

// BulkArray returns an array of bulk strings.
func BulkArray(items [][]byte) Value {
	out := make([]Value, len(items))
	for i, b := range items {
		out[i] = Bulk(b)
	}
	return Value{Kind: KindArray, Array: out}
}

// NullArray returns the nil array (*-1).
func NullArray() Value {
	return Value{Kind: KindArray, Null: true}
}

// IsError reports whether v is an error reply.
func (v Value) IsError() bool {
	return v.Kind == KindError
}

// Equal reports whether two values encode to the same bytes.
func (v Value) Equal(o Value) bool {
	if v.Kind != o.Kind || v.Null != o.Null {
		return false
	}
	switch v.Kind {
	case KindSimpleString, KindError:
		return v.Str == o.Str
	case KindInteger:
		return v.Int == o.Int
	case KindBulkString:
		return v.Null || bytes.Equal(v.Bulk, o.Bulk)
	case KindArray:
		if v.Null {
			return true
		}
		if len(v.Array) != len(o.Array) {
			return false
		}
		for i := range v.Array {
			if !v.Array[i].Equal(o.Array[i]) {
				return false
			}
		}
		return true
	}
	return false
}

// String renders v for logs and test failures.
func (v Value) String() string {
	switch v.Kind {
	case KindSimpleString:
		return "+" + v.Str
	case KindError:
		return "-" + v.Str
	case KindInteger:
		return fmt.Sprintf(":%d", v.Int)
	case KindBulkString:
		if v.Null {
			return "(nil)"
		}
		return fmt.Sprintf("%q", v.Bulk)
	case KindArray:
		if v.Null {
			return "(nil array)"
		}
		parts := make([]string, len(v.Array))
		for i, item := range v.Array {
			parts[i] = item.String()
		}
		return "[" + strings.Join(parts, " ") + "]"
	}
	return "(invalid)"
}

// Frame is one decoded client request: the command name followed by its
// arguments, exactly as sent.
type Frame struct {
	Args [][]byte
}

// Name returns the lower-cased command name used for dispatch.
func (f Frame) Name() string {
	if len(f.Args) == 0 {
		return ""
	}
	return normalizeCommandName(f.Args[0])
}

// normalizeCommandName lower-cases ASCII without allocating twice for names
// that are already lower case.
func normalizeCommandName(b []byte) string {
	if len(b) == 0 {
		return ""
	}
	if bytes.ContainsAny(b, "ABCDEFGHIJKLMNOPQRSTUVWXYZ") {
		return strings.ToLower(string(b))
	}
	return string(b)
}
