package memory

import (
	"fmt"
	"sync/atomic"
	"time"

	"github.com/yndnr/respkv/internal/storage"
	"github.com/yndnr/respkv/internal/telemetry/logger"
)

// Default configuration values.
const (
	DefaultDatabases = 16
	DefaultHz        = 10
)

// Engine is an in-memory storage.Engine.
type Engine struct {
	dbs    []*keyspace
	hz     int
	now    func() time.Time
	logger logger.Logger

	expired atomic.Int64
	closed  atomic.Bool

	// Shutdown
	stopCh chan struct{}
	doneCh chan struct{}
}

var (
	_ storage.Engine        = (*Engine)(nil)
	_ storage.ExpiryCounter = (*Engine)(nil)
)

// Option configures the Engine.
type Option func(*Engine)

// WithDatabases sets the number of databases.
func WithDatabases(n int) Option {
	return func(e *Engine) {
		if n > 0 {
			e.dbs = make([]*keyspace, n)
		}
	}
}

// WithHz sets how many active-expiry cycles run per second. Zero disables
// the sweeper; expired keys are then only removed lazily.
func WithHz(hz int) Option {
	return func(e *Engine) {
		e.hz = hz
	}
}

// WithClock replaces time.Now. Used by tests.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) {
		e.now = now
	}
}

// WithLogger sets the logger.
func WithLogger(l logger.Logger) Option {
	return func(e *Engine) {
		e.logger = l
	}
}

// New creates an engine and starts its expiry sweeper.
func New(opts ...Option) *Engine {
	e := &Engine{
		dbs:    make([]*keyspace, DefaultDatabases),
		hz:     DefaultHz,
		now:    time.Now,
		stopCh: make(chan struct{}),
		doneCh: make(chan struct{}),
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.logger == nil {
		e.logger = logger.Default()
	}

	for i := range e.dbs {
		e.dbs[i] = newKeyspace(e)
	}

	if e.hz > 0 {
		go e.sweepLoop()
	} else {
		close(e.doneCh)
	}

	e.logger.Info("memory engine started",
		"databases", len(e.dbs),
		"hz", e.hz)

	return e
}

// Select returns database index.
func (e *Engine) Select(index int) (storage.Keyspace, error) {
	if e.closed.Load() {
		return nil, storage.ErrClosed
	}
	if index < 0 || index >= len(e.dbs) {
		return nil, fmt.Errorf("%w: %d", storage.ErrDBIndex, index)
	}
	return e.dbs[index], nil
}

// Databases returns the number of databases.
func (e *Engine) Databases() int {
	return len(e.dbs)
}

// ExpiredKeys returns the number of keys removed because their timeout
// passed.
func (e *Engine) ExpiredKeys() int64 {
	return e.expired.Load()
}

// Close stops the sweeper. Keyspaces obtained earlier fail with
// storage.ErrClosed afterwards.
func (e *Engine) Close() error {
	if !e.closed.CompareAndSwap(false, true) {
		return nil
	}
	if e.hz > 0 {
		close(e.stopCh)
	}
	<-e.doneCh

	e.logger.Info("memory engine closed")
	return nil
}
