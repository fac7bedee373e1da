package config

import "time"

// Storage engine names.
const (
	EngineMemory = "memory"
	EngineBadger = "badger"
)

// Default configuration values.
const (
	DefaultBind         = "127.0.0.1"
	DefaultPort         = 6379
	DefaultTLSPort      = 6380
	DefaultDatabases    = 16
	DefaultMaxClients   = 10000
	DefaultWriteTimeout = 30 * time.Second
	DefaultRateBurst    = 100
	DefaultHz           = 10

	DefaultEngine         = EngineMemory
	DefaultDataDir        = "./data"
	DefaultGCInterval     = 10 * time.Minute
	DefaultGCThreshold    = 0.5
	DefaultMetricsAddr    = "127.0.0.1:9121"
	DefaultUnixSocketPerm = "0700"
	DefaultLogLevel       = "info"
	DefaultLogFormat      = "json"
	DefaultShutdownGrace  = 10 * time.Second
)

// MaxDatabases bounds server.databases. The Badger engine stores the
// database index in a single key byte.
const MaxDatabases = 256

// Default returns the default server configuration.
func Default() *ServerConfig {
	return &ServerConfig{
		Server: ServerSection{
			Bind: DefaultBind,
			Port: DefaultPort,
			TLS: TLSConfig{
				Port: DefaultTLSPort,
			},
			Databases:    DefaultDatabases,
			MaxClients:   DefaultMaxClients,
			WriteTimeout: DefaultWriteTimeout,
			RateBurst:    DefaultRateBurst,
			Hz:           DefaultHz,

			UnixSocketPerm: DefaultUnixSocketPerm,
		},
		Storage: StorageSection{
			Engine: DefaultEngine,
			Dir:    DefaultDataDir,
			Badger: BadgerConfig{
				GCInterval:  DefaultGCInterval,
				GCThreshold: DefaultGCThreshold,
			},
		},
		Metrics: MetricsSection{
			Addr: DefaultMetricsAddr,
		},
		Log: LogSection{
			Level:  DefaultLogLevel,
			Format: DefaultLogFormat,
		},
	}
}
