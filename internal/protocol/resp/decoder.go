package resp

import (
	"bytes"
	"strconv"
)

// Protocol limits, matching the defaults of Redis.
const (
	// MaxArgs bounds the argument count of a single request.
	MaxArgs = 1024 * 1024

	// MaxBulkLen bounds a single argument (512 MiB).
	MaxBulkLen = 512 * 1024 * 1024

	// MaxHeaderLen bounds a "*<n>" or "$<n>" line that has no CRLF yet.
	MaxHeaderLen = 64 * 1024
)

// Decoder turns a connection's byte stream into request frames. Bytes are
// appended with Feed and frames are taken with Next. A frame may arrive in
// any number of Feed calls; the decoder keeps its parse position between
// calls. Consumed bytes are reclaimed by the next Feed, so draining a batch
// of pipelined frames copies the leftover at most once.
//
// A Decoder is owned by a single connection and is not safe for concurrent
// use.
type Decoder struct {
	buf   []byte
	start int // first byte not yet part of a produced frame

	// progress of the frame being decoded; pos indexes buf
	pos  int
	argc int
	args [][]byte
}

// NewDecoder returns an empty decoder.
func NewDecoder() *Decoder {
	return &Decoder{argc: -1}
}

// Feed appends p to the input buffer. p may be reused by the caller after
// Feed returns.
func (d *Decoder) Feed(p []byte) {
	if d.start > 0 {
		n := copy(d.buf, d.buf[d.start:])
		d.buf = d.buf[:n]
		d.pos -= d.start
		d.start = 0
	}
	d.buf = append(d.buf, p...)
}

// Buffered returns the number of bytes held but not yet consumed by a
// completed frame.
func (d *Decoder) Buffered() int {
	return len(d.buf) - d.start
}

// Next returns the next complete frame. It returns ErrIncomplete when more
// input is needed and a *ProtocolError when the stream is malformed. After a
// protocol error the decoder state is undefined.
func (d *Decoder) Next() (Frame, error) {
	if d.argc < 0 {
		line, n, err := d.line(d.pos, "mbulk count")
		if err != nil {
			return Frame{}, err
		}
		if len(line) == 0 || line[0] != '*' {
			return Frame{}, unexpectedByte('*', line)
		}
		argc, ok := parseLength(line[1:])
		if !ok || argc <= 0 || argc > MaxArgs {
			return Frame{}, protocolErrorf("invalid multibulk length")
		}
		d.pos += n
		d.argc = int(argc)
		d.args = make([][]byte, 0, min(d.argc, 64))
	}

	for len(d.args) < d.argc {
		line, n, err := d.line(d.pos, "bulk count")
		if err != nil {
			return Frame{}, err
		}
		if len(line) == 0 || line[0] != '$' {
			return Frame{}, unexpectedByte('$', line)
		}
		size, ok := parseLength(line[1:])
		if !ok || size < 0 || size > MaxBulkLen {
			return Frame{}, protocolErrorf("invalid bulk length")
		}

		start := d.pos + n
		end := start + int(size)
		if len(d.buf) < end+2 {
			// The header is parsed again on the next call; pos stays at it.
			return Frame{}, ErrIncomplete
		}
		if d.buf[end] != '\r' || d.buf[end+1] != '\n' {
			return Frame{}, protocolErrorf("invalid bulk terminator")
		}

		arg := make([]byte, size)
		copy(arg, d.buf[start:end])
		d.args = append(d.args, arg)
		d.pos = end + 2
	}

	frame := Frame{Args: d.args}
	d.consume()
	return frame, nil
}

// consume marks the frame just produced as read and resets progress.
func (d *Decoder) consume() {
	d.start = d.pos
	if d.start == len(d.buf) {
		d.buf = d.buf[:0]
		if cap(d.buf) > 64*1024 {
			// Release the backing array retained by a large argument.
			d.buf = nil
		}
		d.start, d.pos = 0, 0
	}
	d.argc = -1
	d.args = nil
}

// line returns the CRLF-terminated line starting at from (without CRLF) and
// the number of bytes it occupies including CRLF.
func (d *Decoder) line(from int, what string) ([]byte, int, error) {
	rest := d.buf[from:]
	i := bytes.Index(rest, []byte(crlf))
	if i < 0 {
		if len(rest) > MaxHeaderLen {
			return nil, 0, protocolErrorf("too big %s string", what)
		}
		return nil, 0, ErrIncomplete
	}
	return rest[:i], i + 2, nil
}

func unexpectedByte(want byte, line []byte) *ProtocolError {
	if len(line) == 0 {
		return protocolErrorf("expected '%c', got end of line", want)
	}
	return protocolErrorf("expected '%c', got '%c'", want, line[0])
}

// parseLength parses a decimal length. Signs other than a leading '-' and
// surrounding whitespace are rejected.
func parseLength(b []byte) (int64, bool) {
	if len(b) == 0 || len(b) > 20 || b[0] == '+' {
		return 0, false
	}
	n, err := strconv.ParseInt(string(b), 10, 64)
	if err != nil {
		return 0, false
	}
	return n, true
}
