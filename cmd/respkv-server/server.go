package main

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"os"
	"strconv"

	"github.com/urfave/cli/v2"

	"github.com/yndnr/respkv/internal/infra/buildinfo"
	"github.com/yndnr/respkv/internal/infra/confloader"
	"github.com/yndnr/respkv/internal/infra/pidfile"
	"github.com/yndnr/respkv/internal/infra/shutdown"
	"github.com/yndnr/respkv/internal/infra/tlsconf"
	"github.com/yndnr/respkv/internal/server/config"
	"github.com/yndnr/respkv/internal/server/httpserver"
	"github.com/yndnr/respkv/internal/server/redisserver"
	"github.com/yndnr/respkv/internal/storage"
	"github.com/yndnr/respkv/internal/storage/badgerstore"
	"github.com/yndnr/respkv/internal/storage/memory"
	"github.com/yndnr/respkv/internal/telemetry/logger"
	"github.com/yndnr/respkv/internal/telemetry/metric"
	"github.com/yndnr/respkv/internal/telemetry/procstat"
)

func runServer(c *cli.Context) error {
	cfg, err := loadConfig(c.String("config"), flagOverrides(c))
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	log, err := logger.New(logger.Config{
		Level:  cfg.Log.Level,
		Format: cfg.Log.Format,
		Output: os.Stdout,
	})
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	logger.SetDefault(log)

	log.Info("starting respkv-server",
		"version", buildinfo.Version,
		"commit", buildinfo.Get().ShortCommit(),
		"config", cfg.ConfigFile,
		"settings", config.Sanitize(cfg))

	shutdownHandler := shutdown.NewHandler(config.DefaultShutdownGrace, log)

	if cfg.PIDFile != "" {
		pf, err := pidfile.Create(cfg.PIDFile)
		if err != nil {
			return err
		}
		shutdownHandler.OnShutdown("pidfile", func(context.Context) error {
			return pf.Remove()
		})
	}

	metrics := metric.NewRegistry()

	engine, err := openEngine(cfg, metrics, log)
	if err != nil {
		return fmt.Errorf("init storage: %w", err)
	}
	shutdownHandler.OnShutdown("storage", func(context.Context) error {
		return engine.Close()
	})

	if err := metrics.RegisterKeyspace(engine); err != nil {
		return fmt.Errorf("register keyspace metrics: %w", err)
	}

	srvCfg, err := serverConfig(cfg, log, shutdownHandler)
	if err != nil {
		return err
	}

	opts := []redisserver.Option{
		redisserver.WithLogger(log),
		redisserver.WithMetrics(metrics),
	}
	if ps, err := procstat.New(); err != nil {
		log.Warn("process statistics unavailable", "error", err)
	} else {
		opts = append(opts, redisserver.WithProcStat(ps))
	}

	srv, err := redisserver.New(srvCfg, engine, opts...)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := srv.Start(ctx); err != nil {
		return err
	}
	shutdownHandler.OnShutdown("resp server", srv.Shutdown)

	if cfg.Metrics.Enabled {
		admin := httpserver.New(cfg.Metrics.Addr, adminRouter(cfg, metrics, engine, log), log.With("component", "admin"))
		if err := admin.Start(); err != nil {
			return err
		}
		shutdownHandler.OnShutdown("admin server", admin.Shutdown)
	}

	if cfg.ConfigFile != "" {
		if err := watchLogLevel(cfg.ConfigFile, log, shutdownHandler); err != nil {
			log.Warn("configuration reload disabled", "error", err)
		}
	}

	log.Info("server started, press Ctrl+C to stop")
	if err := shutdownHandler.Wait(ctx); err != nil {
		log.Error("shutdown error", "error", err)
		return err
	}

	log.Info("server stopped gracefully")
	return nil
}

// loadConfig layers defaults, the file, the environment and flags, then
// verifies the result.
func loadConfig(configFile string, flags map[string]any) (*config.ServerConfig, error) {
	cfg := config.Default()

	opts := []confloader.Option{confloader.WithFlags(flags)}
	if configFile != "" {
		opts = append(opts, confloader.WithConfigFile(configFile))
	}

	if err := confloader.NewLoader(opts...).Load(cfg); err != nil {
		return nil, err
	}
	cfg.ConfigFile = configFile

	if err := config.Verify(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func openEngine(cfg *config.ServerConfig, metrics *metric.Registry, log logger.Logger) (storage.Engine, error) {
	switch cfg.Storage.Engine {
	case config.EngineBadger:
		bcfg := badgerstore.DefaultConfig(cfg.Storage.Dir)
		bcfg.Databases = cfg.Server.Databases
		bcfg.GCInterval = cfg.Storage.Badger.GCInterval
		bcfg.GCThreshold = cfg.Storage.Badger.GCThreshold
		bcfg.SyncWrites = cfg.Storage.Badger.SyncWrites

		e, err := badgerstore.Open(bcfg, log.With("component", "badger"))
		if err != nil {
			return nil, err
		}
		return e.RegisterMetrics(metrics.Registerer()), nil

	default:
		return memory.New(
			memory.WithDatabases(cfg.Server.Databases),
			memory.WithHz(cfg.Server.Hz),
			memory.WithLogger(log.With("component", "memory")),
		), nil
	}
}

// serverConfig translates the file configuration into listener settings
// and prepares TLS when enabled.
func serverConfig(cfg *config.ServerConfig, log logger.Logger, sh *shutdown.Handler) (*redisserver.Config, error) {
	s := cfg.Server
	out := &redisserver.Config{
		Addr:          s.Addr(),
		RequirePass:   s.RequirePass,
		MaxClients:    s.MaxClients,
		IdleTimeout:   s.Timeout,
		WriteTimeout:  s.WriteTimeout,
		RateLimit:     s.RateLimit,
		RateBurst:     s.RateBurst,
		Hz:            s.Hz,
		ConfigFile:    cfg.ConfigFile,
		StorageEngine: cfg.Storage.Engine,
	}

	if s.UnixSocket != "" {
		mode, err := s.SocketMode()
		if err != nil {
			return nil, err
		}
		out.UnixSocket = s.UnixSocket
		out.UnixSocketPerm = mode
	}

	if !s.TLS.Enabled {
		return out, nil
	}

	tlsCfg, reloader, err := tlsconf.ServerConfig(tlsconf.Options{
		CertFile: s.TLS.CertFile,
		KeyFile:  s.TLS.KeyFile,
		CAFile:   s.TLS.CAFile,
	}, tlsconf.WithLogger(log.With("component", "tls")))
	if err != nil {
		return nil, fmt.Errorf("init tls: %w", err)
	}
	reloader.WatchAsync()
	sh.OnShutdown("tls reloader", func(context.Context) error {
		reloader.Stop()
		return nil
	})

	out.TLSAddr = net.JoinHostPort(s.Bind, strconv.Itoa(s.TLS.Port))
	out.TLSConfig = tlsCfg
	return out, nil
}

func adminRouter(cfg *config.ServerConfig, metrics *metric.Registry, engine storage.Engine, log logger.Logger) http.Handler {
	return httpserver.NewRouter(&httpserver.RouterConfig{
		Metrics:   metrics.Handler(),
		Ready:     engineReady(engine),
		Logger:    log.With("component", "admin"),
		AllowList: cfg.Metrics.Allow,
		RateLimit: cfg.Metrics.RateLimit,
		RateBurst: cfg.Metrics.RateBurst,
	})
}

// engineReady probes database 0 of the engine.
func engineReady(engine storage.Engine) func(context.Context) error {
	return func(ctx context.Context) error {
		if err := ctx.Err(); err != nil {
			return err
		}
		ks, err := engine.Select(0)
		if err != nil {
			return err
		}
		_, err = ks.Len()
		return err
	}
}

// watchLogLevel applies log.level changes from the configuration file
// without a restart. Other settings need a restart.
func watchLogLevel(path string, log logger.Logger, sh *shutdown.Handler) error {
	w, err := confloader.NewWatcher(confloader.WithWatcherLogger(log.With("component", "config")))
	if err != nil {
		return err
	}
	if err := w.Watch(path); err != nil {
		_ = w.Stop()
		return err
	}

	w.OnChange(func(string) {
		l := confloader.NewLoader(confloader.WithConfigFile(path))
		if err := l.LoadFile(path); err != nil {
			log.Warn("cannot reload configuration", "error", err)
			return
		}
		level := l.GetString("log.level")
		if level == "" || level == logger.GetLevel() {
			return
		}
		if !logger.ValidLevel(level) {
			log.Warn("ignoring invalid log level", "level", level)
			return
		}
		logger.SetLevel(level)
		log.Info("log level changed", "level", level)
	})
	w.StartAsync()

	sh.OnShutdown("config watcher", func(context.Context) error {
		return w.Stop()
	})
	return nil
}
