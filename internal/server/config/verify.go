package config

import (
	"errors"
	"fmt"
	"net"
	"os"
	"strings"

	"github.com/yndnr/respkv/internal/telemetry/logger"
)

// ErrInvalid is wrapped by every validation failure.
var ErrInvalid = errors.New("invalid configuration")

// Verify validates the configuration.
func Verify(cfg *ServerConfig) error {
	if err := verifyServer(&cfg.Server); err != nil {
		return err
	}
	if err := verifyStorage(&cfg.Storage); err != nil {
		return err
	}
	if err := verifyMetrics(&cfg.Metrics); err != nil {
		return err
	}
	if !logger.ValidLevel(cfg.Log.Level) {
		return invalid("log.level %q is not one of debug, info, warn, error", cfg.Log.Level)
	}
	if cfg.Log.Format != "json" && cfg.Log.Format != "text" {
		return invalid("log.format %q is not one of json, text", cfg.Log.Format)
	}
	return nil
}

func verifyServer(cfg *ServerSection) error {
	if net.ParseIP(cfg.Bind) == nil && cfg.Bind != "localhost" && cfg.Bind != "" {
		return invalid("server.bind %q is not an IP address", cfg.Bind)
	}
	if err := verifyPort("server.port", cfg.Port); err != nil {
		return err
	}
	if cfg.Databases < 1 || cfg.Databases > MaxDatabases {
		return invalid("server.databases must be between 1 and %d", MaxDatabases)
	}
	if cfg.MaxClients < 1 {
		return invalid("server.maxclients must be at least 1")
	}
	if cfg.Timeout < 0 || cfg.WriteTimeout < 0 {
		return invalid("server timeouts must not be negative")
	}
	if cfg.RateLimit < 0 {
		return invalid("server.rate_limit must not be negative")
	}
	if cfg.RateLimit > 0 && cfg.RateBurst < 1 {
		return invalid("server.rate_burst must be at least 1 when rate_limit is set")
	}
	if cfg.Hz < 0 || cfg.Hz > 500 {
		return invalid("server.hz must be between 0 and 500")
	}
	if _, err := cfg.SocketMode(); err != nil {
		return err
	}

	if cfg.TLS.Enabled {
		if err := verifyPort("server.tls.port", cfg.TLS.Port); err != nil {
			return err
		}
		if cfg.TLS.Port == cfg.Port {
			return invalid("server.tls.port conflicts with server.port")
		}
		for _, f := range []string{cfg.TLS.CertFile, cfg.TLS.KeyFile} {
			if f == "" {
				return invalid("server.tls requires cert_file and key_file")
			}
			if _, err := os.Stat(f); err != nil {
				return fmt.Errorf("%w: server.tls: %w", ErrInvalid, err)
			}
		}
		if cfg.TLS.CAFile != "" {
			if _, err := os.Stat(cfg.TLS.CAFile); err != nil {
				return fmt.Errorf("%w: server.tls.ca_file: %w", ErrInvalid, err)
			}
		}
	}
	return nil
}

func verifyStorage(cfg *StorageSection) error {
	switch cfg.Engine {
	case EngineMemory:
		return nil
	case EngineBadger:
	default:
		return invalid("storage.engine %q is not one of %s, %s", cfg.Engine, EngineMemory, EngineBadger)
	}

	if cfg.Dir == "" {
		return invalid("storage.dir is required for the badger engine")
	}
	if err := os.MkdirAll(cfg.Dir, 0o750); err != nil {
		return fmt.Errorf("%w: cannot create data directory: %w", ErrInvalid, err)
	}
	if cfg.Badger.GCThreshold <= 0 || cfg.Badger.GCThreshold >= 1 {
		return invalid("storage.badger.gc_threshold must be in (0, 1)")
	}
	if cfg.Badger.GCInterval < 0 {
		return invalid("storage.badger.gc_interval must not be negative")
	}
	return nil
}

func verifyMetrics(cfg *MetricsSection) error {
	if !cfg.Enabled {
		return nil
	}
	if _, _, err := net.SplitHostPort(cfg.Addr); err != nil {
		return fmt.Errorf("%w: metrics.addr: %w", ErrInvalid, err)
	}
	for _, entry := range cfg.Allow {
		if strings.Contains(entry, "/") {
			if _, _, err := net.ParseCIDR(entry); err != nil {
				return invalid("metrics.allow entry %q is not a CIDR block", entry)
			}
			continue
		}
		if net.ParseIP(entry) == nil {
			return invalid("metrics.allow entry %q is not an IP address", entry)
		}
	}
	if cfg.RateLimit < 0 || cfg.RateBurst < 0 {
		return invalid("metrics.rate_limit and metrics.rate_burst must not be negative")
	}
	return nil
}

func verifyPort(name string, port int) error {
	if port < 1 || port > 65535 {
		return invalid("%s %d is out of range", name, port)
	}
	return nil
}

func invalid(format string, args ...any) error {
	return fmt.Errorf("%w: "+format, append([]any{ErrInvalid}, args...)...)
}
