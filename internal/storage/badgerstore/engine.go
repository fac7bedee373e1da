package badgerstore

import (
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/dgraph-io/badger/v3"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/yndnr/respkv/internal/storage"
	"github.com/yndnr/respkv/internal/telemetry/logger"
)

// MaxDatabases is the number of databases addressable by the one-byte key
// prefix.
const MaxDatabases = 256

// maxConflictRetries bounds retries of a read-modify-write transaction.
const maxConflictRetries = 16

// Config configures the Badger engine.
type Config struct {
	// Dir is the storage directory. Ignored when InMemory is set.
	Dir string

	// Databases is the number of databases. Default: 16
	Databases int

	// GCInterval is the interval between value log GC runs. Default: 10m
	GCInterval time.Duration

	// GCThreshold is the discard ratio that triggers a rewrite (0.0-1.0).
	// Default: 0.5
	GCThreshold float64

	// SyncWrites fsyncs after each write.
	SyncWrites bool

	// InMemory keeps all data in memory. Used by tests.
	InMemory bool
}

// DefaultConfig returns the default configuration for dir.
func DefaultConfig(dir string) Config {
	return Config{
		Dir:         dir,
		Databases:   16,
		GCInterval:  10 * time.Minute,
		GCThreshold: 0.5,
	}
}

// Engine implements storage.Engine on Badger.
type Engine struct {
	db     *badger.DB
	cfg    Config
	logger logger.Logger
	now    func() time.Time
	dbs    []*keyspace

	closed atomic.Bool

	// Metrics (internal counters)
	lastGCTime atomic.Int64 // Unix milliseconds
	gcRuns     atomic.Uint64

	// Prometheus metrics
	metricsLSMSize      prometheus.Gauge
	metricsValueLogSize prometheus.Gauge
	metricsLastGCTime   prometheus.Gauge
	metricsGCRewrites   prometheus.Counter

	// Shutdown
	stopCh chan struct{}
	doneCh chan struct{}
}

var _ storage.Engine = (*Engine)(nil)

// Option configures the Engine.
type Option func(*Engine)

// WithClock replaces time.Now for expiry checks. Used by tests.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) {
		e.now = now
	}
}

// Open opens or creates a Badger engine.
func Open(cfg Config, log logger.Logger, opts ...Option) (*Engine, error) {
	if cfg.Dir == "" && !cfg.InMemory {
		return nil, fmt.Errorf("badger: dir is required")
	}
	if cfg.Databases <= 0 {
		cfg.Databases = 16
	}
	if cfg.Databases > MaxDatabases {
		return nil, fmt.Errorf("badger: databases must be <= %d, got %d", MaxDatabases, cfg.Databases)
	}
	if cfg.GCInterval <= 0 {
		cfg.GCInterval = 10 * time.Minute
	}
	if cfg.GCThreshold <= 0 || cfg.GCThreshold >= 1 {
		cfg.GCThreshold = 0.5
	}
	if log == nil {
		log = logger.Default()
	}

	// Build Badger options
	dir := cfg.Dir
	if cfg.InMemory {
		dir = ""
	}
	bopts := badger.DefaultOptions(dir).
		WithInMemory(cfg.InMemory).
		WithSyncWrites(cfg.SyncWrites).
		WithLogger(&badgerLogger{logger: log})

	db, err := badger.Open(bopts)
	if err != nil {
		return nil, fmt.Errorf("badger: open db: %w", err)
	}

	e := &Engine{
		db:     db,
		cfg:    cfg,
		logger: log,
		now:    time.Now,
		stopCh: make(chan struct{}),
		doneCh: make(chan struct{}),
	}
	for _, opt := range opts {
		opt(e)
	}

	e.dbs = make([]*keyspace, cfg.Databases)
	for i := range e.dbs {
		e.dbs[i] = &keyspace{engine: e, prefix: byte(i)}
	}

	// Start background GC loop
	go e.gcLoop()

	log.Info("badger engine started",
		"dir", cfg.Dir,
		"in_memory", cfg.InMemory,
		"databases", cfg.Databases,
		"gc_interval", cfg.GCInterval)

	return e, nil
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

// GC runs value log GC until Badger finds nothing to rewrite and returns
// the number of rewritten log files.
func (e *Engine) GC() (int, error) {
	if e.closed.Load() {
		return 0, storage.ErrClosed
	}

	startTime := time.Now()
	rewrites := 0
	for {
		err := e.db.RunValueLogGC(e.cfg.GCThreshold)
		if err != nil {
			if errors.Is(err, badger.ErrNoRewrite) ||
				errors.Is(err, badger.ErrRejected) ||
				errors.Is(err, badger.ErrGCInMemoryMode) {
				break
			}
			return rewrites, fmt.Errorf("gc: %w", err)
		}
		rewrites++
	}

	e.lastGCTime.Store(time.Now().UnixMilli())
	e.gcRuns.Add(1)
	if e.metricsGCRewrites != nil {
		e.metricsGCRewrites.Add(float64(rewrites))
		e.metricsLastGCTime.Set(float64(time.Now().Unix()))
	}

	e.logger.Debug("gc completed",
		"rewrites", rewrites,
		"elapsed", time.Since(startTime))

	return rewrites, nil
}

// Close stops the GC loop and closes the database.
func (e *Engine) Close() error {
	if !e.closed.CompareAndSwap(false, true) {
		return nil
	}
	e.logger.Info("shutting down badger engine")

	// Stop GC loop
	close(e.stopCh)
	<-e.doneCh

	if err := e.db.Close(); err != nil {
		return fmt.Errorf("close db: %w", err)
	}

	e.logger.Info("badger engine shutdown complete")
	return nil
}

// RegisterMetrics registers Badger size and GC metrics with registry.
// It should be called once during initialization.
func (e *Engine) RegisterMetrics(registry prometheus.Registerer) *Engine {
	e.metricsLSMSize = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "respkv",
		Subsystem: "badger",
		Name:      "lsm_size_bytes",
		Help:      "Badger LSM tree size in bytes",
	})

	e.metricsValueLogSize = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "respkv",
		Subsystem: "badger",
		Name:      "value_log_size_bytes",
		Help:      "Badger value log size in bytes",
	})

	e.metricsLastGCTime = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "respkv",
		Subsystem: "badger",
		Name:      "last_gc_timestamp_seconds",
		Help:      "Unix timestamp of the last Badger GC run",
	})

	e.metricsGCRewrites = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "respkv",
		Subsystem: "badger",
		Name:      "gc_rewrites_total",
		Help:      "Value log files rewritten by Badger garbage collection",
	})

	registry.MustRegister(
		e.metricsLSMSize,
		e.metricsValueLogSize,
		e.metricsLastGCTime,
		e.metricsGCRewrites,
	)
	e.updateSizeMetrics()

	return e
}

func (e *Engine) updateSizeMetrics() {
	if e.metricsLSMSize == nil {
		return
	}
	lsm, vlog := e.db.Size()
	e.metricsLSMSize.Set(float64(lsm))
	e.metricsValueLogSize.Set(float64(vlog))
}

// gcLoop runs periodic garbage collection and refreshes size metrics.
func (e *Engine) gcLoop() {
	defer close(e.doneCh)

	ticker := time.NewTicker(e.cfg.GCInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if _, err := e.GC(); err != nil {
				e.logger.Error("auto gc failed", "error", err)
			}
			e.updateSizeMetrics()

		case <-e.stopCh:
			return
		}
	}
}

// view runs a read-only transaction.
func (e *Engine) view(fn func(txn *badger.Txn) error) error {
	if e.closed.Load() {
		return storage.ErrClosed
	}
	return e.mapError(e.db.View(fn))
}

// update runs a read-write transaction, retrying on conflict. fn must reset
// any state it accumulates since it may run more than once.
func (e *Engine) update(fn func(txn *badger.Txn) error) error {
	if e.closed.Load() {
		return storage.ErrClosed
	}
	for attempt := 0; ; attempt++ {
		err := e.db.Update(fn)
		if errors.Is(err, badger.ErrConflict) && attempt < maxConflictRetries {
			continue
		}
		return e.mapError(err)
	}
}

func (e *Engine) mapError(err error) error {
	if errors.Is(err, badger.ErrDBClosed) {
		return storage.ErrClosed
	}
	return err
}

// badgerLogger adapts logger.Logger to Badger's Logger interface.
type badgerLogger struct {
	logger logger.Logger
}

func (l *badgerLogger) Errorf(format string, args ...interface{}) {
	l.logger.Error(fmt.Sprintf(format, args...))
}

func (l *badgerLogger) Warningf(format string, args ...interface{}) {
	l.logger.Warn(fmt.Sprintf(format, args...))
}

func (l *badgerLogger) Infof(format string, args ...interface{}) {
	l.logger.Debug(fmt.Sprintf(format, args...))
}

func (l *badgerLogger) Debugf(format string, args ...interface{}) {
	l.logger.Debug(fmt.Sprintf(format, args...))
}
