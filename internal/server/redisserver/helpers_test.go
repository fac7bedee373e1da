package redisserver

import (
	"bufio"
	"io"
	"net"
	"sync/atomic"
	"testing"
	"time"

	"github.com/yndnr/respkv/internal/protocol/resp"
	"github.com/yndnr/respkv/internal/storage"
	"github.com/yndnr/respkv/internal/storage/memory"
	"github.com/yndnr/respkv/internal/telemetry/logger"
	"github.com/yndnr/respkv/internal/telemetry/metric"
)

// fakeClock is a settable time source shared by the server and engine.
type fakeClock struct {
	nanos atomic.Int64
}

func newFakeClock() *fakeClock {
	c := &fakeClock{}
	c.nanos.Store(time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC).UnixNano())
	return c
}

func (c *fakeClock) Now() time.Time { return time.Unix(0, c.nanos.Load()) }

func (c *fakeClock) Advance(d time.Duration) { c.nanos.Add(int64(d)) }

type testEnv struct {
	t      *testing.T
	srv    *Server
	engine storage.Engine
	clock  *fakeClock
}

func newTestEnv(t *testing.T, cfg *Config) *testEnv {
	t.Helper()
	clock := newFakeClock()
	engine := memory.New(
		memory.WithHz(0),
		memory.WithDatabases(4),
		memory.WithClock(clock.Now),
		memory.WithLogger(logger.Discard()),
	)
	t.Cleanup(func() { _ = engine.Close() })
	return newTestEnvWithEngine(t, cfg, engine, clock)
}

func newTestEnvWithEngine(t *testing.T, cfg *Config, engine storage.Engine, clock *fakeClock) *testEnv {
	t.Helper()
	if cfg == nil {
		cfg = DefaultConfig()
	}
	srv, err := New(cfg, engine,
		WithLogger(logger.Discard()),
		WithMetrics(metric.NewRegistry()),
		WithClock(clock.Now),
	)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	return &testEnv{t: t, srv: srv, engine: engine, clock: clock}
}

// testConn is the client side of a piped connection.
type testConn struct {
	t    *testing.T
	conn net.Conn
	br   *bufio.Reader
	done chan struct{}
}

func (e *testEnv) connect() *testConn {
	e.t.Helper()
	serverSide, clientSide := net.Pipe()
	done := make(chan struct{})
	go func() {
		defer close(done)
		e.srv.ServeConn(serverSide)
	}()

	tc := &testConn{t: e.t, conn: clientSide, br: bufio.NewReader(clientSide), done: done}
	e.t.Cleanup(func() {
		_ = clientSide.Close()
		<-done
	})
	return tc
}

// do sends one command and reads one reply.
func (c *testConn) do(args ...string) resp.Value {
	c.t.Helper()
	c.send(string(resp.EncodeCommand(args...)))
	return c.read()
}

func (c *testConn) send(raw string) {
	c.t.Helper()
	_ = c.conn.SetWriteDeadline(time.Now().Add(5 * time.Second))
	if _, err := io.WriteString(c.conn, raw); err != nil {
		c.t.Fatalf("write %q: %v", raw, err)
	}
}

func (c *testConn) read() resp.Value {
	c.t.Helper()
	_ = c.conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	v, err := resp.ReadValue(c.br)
	if err != nil {
		c.t.Fatalf("read reply: %v", err)
	}
	return v
}

// expectRaw reads exactly len(want) bytes and compares them with want.
func (c *testConn) expectRaw(want string) {
	c.t.Helper()
	_ = c.conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	got := make([]byte, len(want))
	if _, err := io.ReadFull(c.br, got); err != nil {
		c.t.Fatalf("read raw reply: %v (got %q)", err, got)
	}
	if string(got) != want {
		c.t.Fatalf("reply = %q, want %q", got, want)
	}
}

// expectClosed waits for the server to close the connection.
func (c *testConn) expectClosed() {
	c.t.Helper()
	_ = c.conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	if b, err := c.br.ReadByte(); err != io.EOF {
		c.t.Fatalf("expected EOF, got byte %q err %v", b, err)
	}
	select {
	case <-c.done:
	case <-time.After(5 * time.Second):
		c.t.Fatal("connection loop did not return")
	}
}

func expectValue(t *testing.T, got, want resp.Value) {
	t.Helper()
	if !got.Equal(want) {
		t.Fatalf("reply = %s, want %s", got, want)
	}
}
