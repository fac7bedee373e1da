package redisserver

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"io/fs"
	"net"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/yndnr/respkv/internal/server/localserver"
	"github.com/yndnr/respkv/internal/storage"
	"github.com/yndnr/respkv/internal/telemetry/logger"
	"github.com/yndnr/respkv/internal/telemetry/metric"
	"github.com/yndnr/respkv/internal/telemetry/procstat"
	"github.com/yndnr/respkv/pkg/cmap"
)

// Config holds the RESP server configuration.
type Config struct {
	// Addr is the plain TCP listen address. Empty disables the listener.
	Addr string
	// TLSAddr is the TLS listen address. Empty disables the listener.
	TLSAddr string
	// TLSConfig is required when TLSAddr is set.
	TLSConfig *tls.Config
	// UnixSocket is the path of a Unix domain socket listener. Empty
	// disables it.
	UnixSocket     string
	UnixSocketPerm fs.FileMode

	// RequirePass enables AUTH. It is either a plain password or an
	// argon2id PHC string ($argon2id$v=19$m=...,t=...,p=...$salt$hash).
	RequirePass string

	// MaxClients bounds concurrently connected clients.
	MaxClients int
	// IdleTimeout closes a connection that sent nothing for this long.
	// Zero disables it.
	IdleTimeout time.Duration
	// WriteTimeout bounds each flush of replies. Zero disables it.
	WriteTimeout time.Duration

	// RateLimit is the per-connection command rate per second. Zero
	// disables limiting.
	RateLimit float64
	RateBurst int

	// Hz and ConfigFile are reported by INFO server; StorageEngine by
	// INFO persistence.
	Hz            int
	ConfigFile    string
	StorageEngine string
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		Addr:          "127.0.0.1:6379",
		MaxClients:    10000,
		WriteTimeout:  30 * time.Second,
		RateBurst:     100,
		Hz:            10,
		StorageEngine: "memory",
	}
}

// Server is the RESP protocol server.
type Server struct {
	cfg      *Config
	engine   storage.Engine
	logger   logger.Logger
	metrics  *metric.Registry
	procstat *procstat.Sampler
	now      func() time.Time

	commands map[string]*Command
	auth     *authenticator

	clients   *cmap.Map[int64, *client]
	nextID    atomic.Int64
	stats     serverStats
	runID     string
	startTime time.Time

	mu        sync.Mutex
	listeners []net.Listener
	running   atomic.Bool
	wg        sync.WaitGroup
}

// Option configures a Server.
type Option func(*Server)

// WithLogger sets the server logger.
func WithLogger(l logger.Logger) Option {
	return func(s *Server) {
		s.logger = l
	}
}

// WithMetrics records server metrics in r.
func WithMetrics(r *metric.Registry) Option {
	return func(s *Server) {
		s.metrics = r
	}
}

// WithProcStat enables process memory and CPU figures in INFO.
func WithProcStat(p *procstat.Sampler) Option {
	return func(s *Server) {
		s.procstat = p
	}
}

// WithClock sets the clock used for expiry arithmetic.
func WithClock(now func() time.Time) Option {
	return func(s *Server) {
		s.now = now
	}
}

// New creates a server executing commands against engine.
func New(cfg *Config, engine storage.Engine, opts ...Option) (*Server, error) {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	if engine == nil {
		return nil, errors.New("redisserver: engine is required")
	}
	if cfg.TLSAddr != "" && cfg.TLSConfig == nil {
		return nil, errors.New("redisserver: TLS address set without TLS config")
	}

	s := &Server{
		cfg:       cfg,
		engine:    engine,
		logger:    logger.Default(),
		now:       time.Now,
		clients:   cmap.New[int64, *client](),
		runID:     strings.ToLower(ulid.Make().String()),
		startTime: time.Now(),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.metrics == nil {
		s.metrics = metric.NewRegistry()
	}

	s.commands = newCommandTable()

	if cfg.RequirePass != "" {
		a, err := newAuthenticator(cfg.RequirePass)
		if err != nil {
			return nil, fmt.Errorf("redisserver: requirepass: %w", err)
		}
		s.auth = a
	}

	return s, nil
}

// Start binds the configured listeners and serves them in the background.
// It returns once every listener is bound.
func (s *Server) Start(ctx context.Context) error {
	if s.cfg.Addr == "" && s.cfg.TLSAddr == "" && s.cfg.UnixSocket == "" {
		return errors.New("redisserver: no listen address configured")
	}

	if s.cfg.Addr != "" {
		ln, err := net.Listen("tcp", s.cfg.Addr)
		if err != nil {
			return fmt.Errorf("redisserver: listen %s: %w", s.cfg.Addr, err)
		}
		s.logger.Info("resp server listening", "address", ln.Addr().String(), "tls", false)
		s.serveAsync(ctx, ln)
	}

	if s.cfg.TLSAddr != "" {
		ln, err := tls.Listen("tcp", s.cfg.TLSAddr, s.cfg.TLSConfig)
		if err != nil {
			_ = s.closeListeners()
			return fmt.Errorf("redisserver: listen tls %s: %w", s.cfg.TLSAddr, err)
		}
		s.logger.Info("resp server listening", "address", ln.Addr().String(), "tls", true)
		s.serveAsync(ctx, ln)
	}

	if s.cfg.UnixSocket != "" {
		ln, err := localserver.Listen(s.cfg.UnixSocket, s.cfg.UnixSocketPerm)
		if err != nil {
			_ = s.closeListeners()
			return fmt.Errorf("redisserver: %w", err)
		}
		s.logger.Info("resp server listening", "socket", s.cfg.UnixSocket)
		s.serveAsync(ctx, ln)
	}

	return nil
}

func (s *Server) serveAsync(ctx context.Context, ln net.Listener) {
	s.track(ln)
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		if err := s.Serve(ctx, ln); err != nil {
			s.logger.Error("accept loop stopped", "address", ln.Addr().String(), "error", err)
		}
	}()
}

// Serve accepts connections on ln until it is closed or ctx is done.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	s.track(ln)
	s.running.Store(true)

	stop := context.AfterFunc(ctx, func() { _ = ln.Close() })
	defer stop()

	var tempDelay time.Duration
	for {
		nc, err := ln.Accept()
		if err != nil {
			if !s.running.Load() || errors.Is(err, net.ErrClosed) || ctx.Err() != nil {
				return nil
			}
			var ne net.Error
			if errors.As(err, &ne) && ne.Timeout() {
				tempDelay = backoff(tempDelay)
				s.logger.Error("accept failed, retrying", "error", err, "delay", tempDelay)
				time.Sleep(tempDelay)
				continue
			}
			return err
		}
		tempDelay = 0

		s.wg.Add(1)
		go func() {
			defer s.wg.Done()
			s.ServeConn(nc)
		}()
	}
}

// track records ln so that Shutdown closes it.
func (s *Server) track(ln net.Listener) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, l := range s.listeners {
		if l == ln {
			return
		}
	}
	s.listeners = append(s.listeners, ln)
}

func backoff(d time.Duration) time.Duration {
	if d == 0 {
		return 5 * time.Millisecond
	}
	d *= 2
	if d > time.Second {
		d = time.Second
	}
	return d
}

// Addr returns the address of the first bound listener, or nil.
func (s *Server) Addr() net.Addr {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.listeners) == 0 {
		return nil
	}
	return s.listeners[0].Addr()
}

// ConnectedClients returns the number of open client connections.
func (s *Server) ConnectedClients() int {
	return s.clients.Count()
}

// Shutdown stops accepting, closes every client connection and waits for
// connection goroutines to finish or ctx to be done. Commands already
// executing run to completion.
func (s *Server) Shutdown(ctx context.Context) error {
	s.running.Store(false)
	firstErr := s.closeListeners()

	s.clients.Range(func(_ int64, c *client) bool {
		_ = c.close()
		return true
	})

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
	case <-ctx.Done():
		return ctx.Err()
	}

	s.logger.Info("resp server stopped")
	return firstErr
}

func (s *Server) closeListeners() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	var firstErr error
	for _, ln := range s.listeners {
		if err := ln.Close(); err != nil && !errors.Is(err, net.ErrClosed) && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}
