package resp

import (
	"bufio"
	"io"
	"strconv"
)

const crlf = "\r\n"

var (
	nullBulkBytes  = []byte("$-1\r\n")
	nullArrayBytes = []byte("*-1\r\n")
)

// AppendValue appends the wire encoding of v to dst and returns the
// extended slice. Arrays are encoded recursively.
func AppendValue(dst []byte, v Value) []byte {
	switch v.Kind {
	case KindSimpleString:
		dst = append(dst, '+')
		dst = appendLine(dst, v.Str)
	case KindError:
		dst = append(dst, '-')
		dst = appendLine(dst, v.Str)
	case KindInteger:
		dst = append(dst, ':')
		dst = strconv.AppendInt(dst, v.Int, 10)
		dst = append(dst, crlf...)
	case KindBulkString:
		if v.Null {
			return append(dst, nullBulkBytes...)
		}
		dst = appendBulk(dst, v.Bulk)
	case KindArray:
		if v.Null {
			return append(dst, nullArrayBytes...)
		}
		dst = append(dst, '*')
		dst = strconv.AppendInt(dst, int64(len(v.Array)), 10)
		dst = append(dst, crlf...)
		for _, item := range v.Array {
			dst = AppendValue(dst, item)
		}
	default:
		dst = append(dst, '-')
		dst = appendLine(dst, "ERR invalid reply kind "+v.Kind.String())
	}
	return dst
}

// AppendCommand appends args encoded as a multi-bulk request.
func AppendCommand(dst []byte, args ...[]byte) []byte {
	dst = append(dst, '*')
	dst = strconv.AppendInt(dst, int64(len(args)), 10)
	dst = append(dst, crlf...)
	for _, arg := range args {
		dst = appendBulk(dst, arg)
	}
	return dst
}

// EncodeCommand encodes string arguments as a multi-bulk request.
func EncodeCommand(args ...string) []byte {
	raw := make([][]byte, len(args))
	for i, a := range args {
		raw[i] = []byte(a)
	}
	return AppendCommand(nil, raw...)
}

func appendBulk(dst, b []byte) []byte {
	dst = append(dst, '$')
	dst = strconv.AppendInt(dst, int64(len(b)), 10)
	dst = append(dst, crlf...)
	dst = append(dst, b...)
	return append(dst, crlf...)
}

// appendLine writes s followed by CRLF. Status and error lines are not
// length-prefixed, so embedded CR and LF are replaced with spaces.
func appendLine(dst []byte, s string) []byte {
	for i := 0; i < len(s); i++ {
		c := s[i]
		if c == '\r' || c == '\n' {
			c = ' '
		}
		dst = append(dst, c)
	}
	return append(dst, crlf...)
}

// Writer buffers encoded replies for a single connection.
type Writer struct {
	bw      *bufio.Writer
	scratch []byte
}

// NewWriter wraps w with a buffered reply writer.
func NewWriter(w io.Writer) *Writer {
	return &Writer{bw: bufio.NewWriter(w)}
}

// WriteValue encodes v into the buffer.
func (w *Writer) WriteValue(v Value) error {
	w.scratch = AppendValue(w.scratch[:0], v)
	_, err := w.bw.Write(w.scratch)
	return err
}

// Flush writes buffered replies to the underlying writer.
func (w *Writer) Flush() error {
	return w.bw.Flush()
}

// Buffered returns the number of bytes waiting to be flushed.
func (w *Writer) Buffered() int {
	return w.bw.Buffered()
}
