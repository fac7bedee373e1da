package resp

import (
	"bytes"
	"errors"
	"math/rand"
	"strings"
	"testing"
)

// ============================================================
// Decoder - complete frames
// ============================================================

func TestDecoder_Next(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  []string
	}{
		{
			name:  "PING",
			input: "*1\r\n$4\r\nPING\r\n",
			want:  []string{"PING"},
		},
		{
			name:  "GET foo",
			input: "*2\r\n$3\r\nGET\r\n$3\r\nfoo\r\n",
			want:  []string{"GET", "foo"},
		},
		{
			name:  "INFO server",
			input: "*2\r\n$4\r\nINFO\r\n$6\r\nserver\r\n",
			want:  []string{"INFO", "server"},
		},
		{
			name:  "binary value containing CRLF",
			input: "*3\r\n$3\r\nSET\r\n$1\r\nk\r\n$4\r\na\r\nb\r\n",
			want:  []string{"SET", "k", "a\r\nb"},
		},
		{
			name:  "empty argument",
			input: "*2\r\n$4\r\nECHO\r\n$0\r\n\r\n",
			want:  []string{"ECHO", ""},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := NewDecoder()
			d.Feed([]byte(tt.input))

			frame, err := d.Next()
			if err != nil {
				t.Fatalf("Next() error = %v", err)
			}
			if len(frame.Args) != len(tt.want) {
				t.Fatalf("len(Args) = %d, want %d", len(frame.Args), len(tt.want))
			}
			for i, want := range tt.want {
				if string(frame.Args[i]) != want {
					t.Errorf("Args[%d] = %q, want %q", i, frame.Args[i], want)
				}
			}
			if d.Buffered() != 0 {
				t.Errorf("Buffered() = %d, want 0", d.Buffered())
			}
		})
	}
}

func TestFrame_Name(t *testing.T) {
	tests := []struct {
		arg  string
		want string
	}{
		{"GET", "get"},
		{"get", "get"},
		{"GeT", "get"},
		{"CLIENT", "client"},
	}

	for _, tt := range tests {
		f := Frame{Args: [][]byte{[]byte(tt.arg)}}
		if got := f.Name(); got != tt.want {
			t.Errorf("Name(%q) = %q, want %q", tt.arg, got, tt.want)
		}
		if string(f.Args[0]) != tt.arg {
			t.Errorf("Name() modified original bytes: %q", f.Args[0])
		}
	}
}

// ============================================================
// Decoder - partial reads and pipelining
// ============================================================

func TestDecoder_ByteByByte(t *testing.T) {
	input := []byte("*2\r\n$4\r\nINFO\r\n$6\r\nserver\r\n")
	d := NewDecoder()

	for i := 0; i < len(input)-1; i++ {
		d.Feed(input[i : i+1])
		if _, err := d.Next(); !errors.Is(err, ErrIncomplete) {
			t.Fatalf("after %d bytes: Next() error = %v, want ErrIncomplete", i+1, err)
		}
	}

	d.Feed(input[len(input)-1:])
	frame, err := d.Next()
	if err != nil {
		t.Fatalf("Next() error = %v", err)
	}
	if frame.Name() != "info" || string(frame.Args[1]) != "server" {
		t.Errorf("frame = %q, want [INFO server]", frame.Args)
	}
}

func TestDecoder_SplitInsideBulk(t *testing.T) {
	d := NewDecoder()
	d.Feed([]byte("*2\r\n$3\r\nGET\r\n$5\r\nhel"))

	if _, err := d.Next(); !errors.Is(err, ErrIncomplete) {
		t.Fatalf("Next() error = %v, want ErrIncomplete", err)
	}
	// Nothing is discarded until the frame completes.
	if d.Buffered() != len("*2\r\n$3\r\nGET\r\n$5\r\nhel") {
		t.Errorf("Buffered() = %d, bytes were discarded early", d.Buffered())
	}

	d.Feed([]byte("lo\r\n"))
	frame, err := d.Next()
	if err != nil {
		t.Fatalf("Next() error = %v", err)
	}
	if string(frame.Args[1]) != "hello" {
		t.Errorf("Args[1] = %q, want %q", frame.Args[1], "hello")
	}
}

func TestDecoder_Pipelined(t *testing.T) {
	d := NewDecoder()
	d.Feed([]byte("*1\r\n$4\r\nPING\r\n*2\r\n$3\r\nGET\r\n$1\r\na\r\n*1\r\n$4\r\nIN"))

	first, err := d.Next()
	if err != nil || first.Name() != "ping" {
		t.Fatalf("first = %q, %v; want PING", first.Args, err)
	}
	second, err := d.Next()
	if err != nil || second.Name() != "get" {
		t.Fatalf("second = %q, %v; want GET", second.Args, err)
	}
	if _, err := d.Next(); !errors.Is(err, ErrIncomplete) {
		t.Fatalf("third Next() error = %v, want ErrIncomplete", err)
	}

	d.Feed([]byte("FO\r\n"))
	third, err := d.Next()
	if err != nil || third.Name() != "info" {
		t.Fatalf("third = %q, %v; want INFO", third.Args, err)
	}
	if d.Buffered() != 0 {
		t.Errorf("Buffered() = %d, want 0", d.Buffered())
	}
}

func TestDecoder_CompactsOnFeed(t *testing.T) {
	d := NewDecoder()
	input := "*1\r\n$4\r\nPING\r\n*1\r\n$4\r\nPING\r\n*2\r\n$3\r\nGET\r\n$3\r\nke"
	d.Feed([]byte(input))

	for i := 0; i < 2; i++ {
		if f, err := d.Next(); err != nil || f.Name() != "ping" {
			t.Fatalf("frame %d = %q, %v; want PING", i, f.Args, err)
		}
	}
	// Produced frames are skipped, not copied out of the buffer.
	if len(d.buf) != len(input) {
		t.Errorf("len(buf) = %d after Next, want %d", len(d.buf), len(input))
	}
	if _, err := d.Next(); !errors.Is(err, ErrIncomplete) {
		t.Fatalf("Next() error = %v, want ErrIncomplete", err)
	}
	if want := len("*2\r\n$3\r\nGET\r\n$3\r\nke"); d.Buffered() != want {
		t.Errorf("Buffered() = %d, want %d", d.Buffered(), want)
	}

	// Feed reclaims the consumed prefix while a frame is half decoded.
	d.Feed([]byte("y\r\n"))
	if d.start != 0 {
		t.Errorf("start = %d after Feed, want 0", d.start)
	}
	f, err := d.Next()
	if err != nil {
		t.Fatalf("Next() error = %v", err)
	}
	if f.Name() != "get" || string(f.Args[1]) != "key" {
		t.Errorf("frame = %q, want GET key", f.Args)
	}
	if d.Buffered() != 0 {
		t.Errorf("Buffered() = %d, want 0", d.Buffered())
	}
}

func TestDecoder_ArgsSurviveBufferReuse(t *testing.T) {
	d := NewDecoder()
	d.Feed([]byte("*2\r\n$3\r\nGET\r\n$3\r\nfoo\r\n"))
	frame, err := d.Next()
	if err != nil {
		t.Fatal(err)
	}

	d.Feed([]byte("*2\r\n$3\r\nGET\r\n$3\r\nbar\r\n"))
	if _, err := d.Next(); err != nil {
		t.Fatal(err)
	}

	if string(frame.Args[1]) != "foo" {
		t.Errorf("earlier frame changed to %q", frame.Args[1])
	}
}

// ============================================================
// Decoder - protocol errors
// ============================================================

func TestDecoder_ProtocolErrors(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		wantMsg string
	}{
		{"zero argc", "*0\r\n", "invalid multibulk length"},
		{"negative argc", "*-1\r\n", "invalid multibulk length"},
		{"non-numeric argc", "*abc\r\n", "invalid multibulk length"},
		{"plus sign argc", "*+1\r\n", "invalid multibulk length"},
		{"argc over limit", "*2000000\r\n", "invalid multibulk length"},
		{"inline command", "PING\r\n", "expected '*', got 'P'"},
		{"empty line", "\r\n", "expected '*', got end of line"},
		{"integer instead of bulk", "*1\r\n:5\r\n", "expected '$', got ':'"},
		{"null bulk argument", "*1\r\n$-1\r\n", "invalid bulk length"},
		{"non-numeric bulk length", "*1\r\n$x\r\n", "invalid bulk length"},
		{"bulk over limit", "*1\r\n$999999999999\r\n", "invalid bulk length"},
		{"bad terminator", "*1\r\n$3\r\nfooXY", "invalid bulk terminator"},
		{"header too long", "*" + strings.Repeat("1", MaxHeaderLen+1), "too big mbulk count string"},
		{"bulk header too long", "*1\r\n$" + strings.Repeat("1", MaxHeaderLen+1), "too big bulk count string"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := NewDecoder()
			d.Feed([]byte(tt.input))

			_, err := d.Next()
			if !errors.Is(err, ErrProtocol) {
				t.Fatalf("Next() error = %v, want ErrProtocol", err)
			}
			var pe *ProtocolError
			if !errors.As(err, &pe) {
				t.Fatalf("error %T is not *ProtocolError", err)
			}
			if pe.Msg != tt.wantMsg {
				t.Errorf("Msg = %q, want %q", pe.Msg, tt.wantMsg)
			}
			if !strings.HasPrefix(err.Error(), "Protocol error: ") {
				t.Errorf("Error() = %q, want Protocol error prefix", err.Error())
			}
		})
	}
}

// ============================================================
// Round trip over the request grammar
// ============================================================

func TestDecoder_RequestRoundTrip(t *testing.T) {
	rng := rand.New(rand.NewSource(42))

	for i := 0; i < 200; i++ {
		argc := 1 + rng.Intn(8)
		args := make([][]byte, argc)
		for j := range args {
			arg := make([]byte, rng.Intn(64))
			rng.Read(arg)
			args[j] = arg
		}

		d := NewDecoder()
		encoded := AppendCommand(nil, args...)
		// Feed in random chunk sizes to exercise resumption.
		for len(encoded) > 0 {
			n := 1 + rng.Intn(len(encoded))
			d.Feed(encoded[:n])
			encoded = encoded[n:]
		}

		frame, err := d.Next()
		if err != nil {
			t.Fatalf("case %d: Next() error = %v", i, err)
		}
		if len(frame.Args) != argc {
			t.Fatalf("case %d: len(Args) = %d, want %d", i, len(frame.Args), argc)
		}
		for j := range args {
			if !bytes.Equal(frame.Args[j], args[j]) {
				t.Fatalf("case %d: Args[%d] mismatch", i, j)
			}
		}
	}
}
