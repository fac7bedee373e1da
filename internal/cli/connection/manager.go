package connection

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/yndnr/respkv/internal/protocol/resp"
)

// Manager owns the CLI's connection. It authenticates and selects the
// database on every (re)connect and reconnects once when a command fails
// on a broken connection.
type Manager struct {
	opts   Options
	client *Client
	db     int
}

// NewManager returns a manager for opts. It does not connect.
func NewManager(opts Options) *Manager {
	return &Manager{opts: opts, db: opts.DB}
}

// Connect dials the server and replays AUTH and SELECT.
func (m *Manager) Connect(ctx context.Context) error {
	m.Disconnect()

	c, err := Dial(ctx, m.opts)
	if err != nil {
		return err
	}

	if m.opts.Password != "" {
		args := []string{"AUTH", m.opts.Password}
		if m.opts.Username != "" {
			args = []string{"AUTH", m.opts.Username, m.opts.Password}
		}
		if err := expectOK(c, args...); err != nil {
			_ = c.Close()
			return fmt.Errorf("AUTH failed: %w", err)
		}
	}

	if m.db != 0 {
		if err := expectOK(c, "SELECT", strconv.Itoa(m.db)); err != nil {
			_ = c.Close()
			return fmt.Errorf("SELECT %d failed: %w", m.db, err)
		}
	}

	m.client = c
	return nil
}

func expectOK(c *Client, args ...string) error {
	v, err := c.Do(args...)
	if err != nil {
		return err
	}
	if v.IsError() {
		return errors.New(v.Str)
	}
	return nil
}

// Do runs one command, connecting first when needed. A transport failure
// triggers one reconnect and retry. A successful SELECT updates the
// database replayed on reconnect.
func (m *Manager) Do(ctx context.Context, args ...string) (resp.Value, error) {
	if len(args) == 0 {
		return resp.Value{}, errors.New("empty command")
	}

	if m.client == nil {
		if err := m.Connect(ctx); err != nil {
			return resp.Value{}, err
		}
	}

	v, err := m.client.Do(args...)
	if err != nil && !isQuit(args) {
		if cerr := m.Connect(ctx); cerr != nil {
			return resp.Value{}, fmt.Errorf("%w (reconnect: %v)", err, cerr)
		}
		v, err = m.client.Do(args...)
	}
	if err != nil {
		m.Disconnect()
		return resp.Value{}, err
	}

	if strings.EqualFold(args[0], "select") && len(args) == 2 && !v.IsError() {
		if n, perr := strconv.Atoi(args[1]); perr == nil {
			m.db = n
		}
	}
	if isQuit(args) {
		m.Disconnect()
	}
	return v, nil
}

func isQuit(args []string) bool {
	return strings.EqualFold(args[0], "quit")
}

// Disconnect closes the current connection, if any.
func (m *Manager) Disconnect() {
	if m.client != nil {
		_ = m.client.Close()
		m.client = nil
	}
}

// IsConnected reports whether a connection is open.
func (m *Manager) IsConnected() bool {
	return m.client != nil
}

// DB returns the selected database.
func (m *Manager) DB() int {
	return m.db
}

// Addr returns the configured server address.
func (m *Manager) Addr() string {
	_, addr := m.opts.Target()
	return addr
}
