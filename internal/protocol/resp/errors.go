package resp

import (
	"errors"
	"fmt"
)

var (
	// ErrProtocol matches every *ProtocolError via errors.Is.
	ErrProtocol = errors.New("resp: protocol error")

	// ErrIncomplete is returned by Decoder.Next when the buffer does not yet
	// hold a complete frame. It is not fatal: feed more bytes and retry.
	ErrIncomplete = errors.New("resp: incomplete frame")
)

// ProtocolError reports a malformed request stream. The stream cannot be
// resynchronized after one, so the connection must be closed.
type ProtocolError struct {
	Msg string
}

func protocolErrorf(format string, args ...any) *ProtocolError {
	return &ProtocolError{Msg: fmt.Sprintf(format, args...)}
}

// Error renders the message the way Redis reports it to clients.
func (e *ProtocolError) Error() string {
	return "Protocol error: " + e.Msg
}

// Is makes errors.Is(err, ErrProtocol) true.
func (e *ProtocolError) Is(target error) bool {
	return target == ErrProtocol
}
