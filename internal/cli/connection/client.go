package connection

import (
	"bufio"
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"net"
	"time"

	"github.com/yndnr/respkv/internal/protocol/resp"
)

// ErrNotConnected is returned by Do on a closed client.
var ErrNotConnected = errors.New("not connected")

// Options describes how to reach a server.
type Options struct {
	// Addr is host:port.
	Addr string
	// Socket is a Unix socket path. It takes precedence over Addr.
	Socket string

	// Password and Username are sent with AUTH after connecting when
	// Password is non-empty.
	Username string
	Password string

	// DB is selected after connecting when non-zero.
	DB int

	// TLS enables TLS with TLSConfig, or a default config when nil.
	TLS       bool
	TLSConfig *tls.Config

	DialTimeout time.Duration
	// Timeout bounds each command round trip; zero means no limit.
	Timeout time.Duration
}

// Target returns the network and address Dial connects to.
func (o Options) Target() (network, address string) {
	if o.Socket != "" {
		return "unix", o.Socket
	}
	return "tcp", o.Addr
}

// Client is one RESP connection. It is not safe for concurrent use.
type Client struct {
	conn    net.Conn
	br      *bufio.Reader
	timeout time.Duration
}

// Dial connects to opts.Socket or opts.Addr. It does not send AUTH or
// SELECT.
func Dial(ctx context.Context, opts Options) (*Client, error) {
	dialer := &net.Dialer{Timeout: opts.DialTimeout}
	network, address := opts.Target()

	var (
		conn net.Conn
		err  error
	)
	if opts.TLS {
		cfg := opts.TLSConfig
		if cfg == nil {
			cfg = &tls.Config{MinVersion: tls.VersionTLS12}
		}
		td := &tls.Dialer{NetDialer: dialer, Config: cfg}
		conn, err = td.DialContext(ctx, network, address)
	} else {
		conn, err = dialer.DialContext(ctx, network, address)
	}
	if err != nil {
		return nil, fmt.Errorf("connect %s: %w", address, err)
	}

	return &Client{
		conn:    conn,
		br:      bufio.NewReader(conn),
		timeout: opts.Timeout,
	}, nil
}

// Do sends one command and reads its reply. Error replies are returned as
// values; the error result reports transport failures only.
func (c *Client) Do(args ...string) (resp.Value, error) {
	if c.conn == nil {
		return resp.Value{}, ErrNotConnected
	}
	if c.timeout > 0 {
		if err := c.conn.SetDeadline(time.Now().Add(c.timeout)); err != nil {
			return resp.Value{}, err
		}
	}

	if _, err := c.conn.Write(resp.EncodeCommand(args...)); err != nil {
		return resp.Value{}, fmt.Errorf("send: %w", err)
	}
	v, err := resp.ReadValue(c.br)
	if err != nil {
		return resp.Value{}, fmt.Errorf("read reply: %w", err)
	}
	return v, nil
}

// RemoteAddr returns the server address.
func (c *Client) RemoteAddr() net.Addr {
	if c.conn == nil {
		return nil
	}
	return c.conn.RemoteAddr()
}

// Close closes the connection.
func (c *Client) Close() error {
	if c.conn == nil {
		return nil
	}
	err := c.conn.Close()
	c.conn = nil
	return err
}
