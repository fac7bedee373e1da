package resp

import (
	"bufio"
	"bytes"
	"errors"
	"io"
	"strconv"
)

// ReadValue reads one reply from r. It is the inverse of AppendValue and is
// what a client uses to consume server replies.
func ReadValue(r *bufio.Reader) (Value, error) {
	line, err := readLine(r)
	if err != nil {
		return Value{}, err
	}
	if len(line) == 0 {
		return Value{}, protocolErrorf("empty reply line")
	}

	body := line[1:]
	switch line[0] {
	case '+':
		return SimpleString(string(body)), nil
	case '-':
		return Error(string(body)), nil
	case ':':
		n, err := strconv.ParseInt(string(body), 10, 64)
		if err != nil {
			return Value{}, protocolErrorf("invalid integer %q", body)
		}
		return Integer(n), nil
	case '$':
		size, ok := parseLength(body)
		if !ok || size < -1 || size > MaxBulkLen {
			return Value{}, protocolErrorf("invalid bulk length")
		}
		if size == -1 {
			return NullBulk(), nil
		}
		buf := make([]byte, size+2)
		if _, err := io.ReadFull(r, buf); err != nil {
			return Value{}, err
		}
		if !bytes.HasSuffix(buf, []byte(crlf)) {
			return Value{}, protocolErrorf("invalid bulk terminator")
		}
		return Value{Kind: KindBulkString, Bulk: buf[:size]}, nil
	case '*':
		n, ok := parseLength(body)
		if !ok || n < -1 || n > MaxArgs {
			return Value{}, protocolErrorf("invalid multibulk length")
		}
		if n == -1 {
			return NullArray(), nil
		}
		items := make([]Value, 0, min(int(n), 1024))
		for i := int64(0); i < n; i++ {
			item, err := ReadValue(r)
			if err != nil {
				return Value{}, err
			}
			items = append(items, item)
		}
		return Value{Kind: KindArray, Array: items}, nil
	default:
		return Value{}, protocolErrorf("unknown reply type '%c'", line[0])
	}
}

func readLine(r *bufio.Reader) ([]byte, error) {
	var buf []byte
	for {
		frag, err := r.ReadSlice('\n')
		if err == nil {
			buf = append(buf, frag...)
			break
		}
		if errors.Is(err, bufio.ErrBufferFull) {
			buf = append(buf, frag...)
			continue
		}
		return nil, err
	}
	if !bytes.HasSuffix(buf, []byte(crlf)) {
		return nil, protocolErrorf("missing CRLF")
	}
	return buf[:len(buf)-2], nil
}
