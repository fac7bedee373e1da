package config

import (
	"io/fs"
	"net"
	"strconv"
	"time"
)

// ServerConfig is the root configuration for respkv-server.
type ServerConfig struct {
	Server  ServerSection  `koanf:"server"`
	Storage StorageSection `koanf:"storage"`
	Metrics MetricsSection `koanf:"metrics"`
	Log     LogSection     `koanf:"log"`

	// PIDFile is written and locked at startup when non-empty.
	PIDFile string `koanf:"pidfile"`

	// ConfigFile is the file the configuration was read from. It is not
	// itself loaded from configuration.
	ConfigFile string `koanf:"-"`
}

// ServerSection configures the RESP listener and connection handling.
type ServerSection struct {
	Bind string    `koanf:"bind"`
	Port int       `koanf:"port"`
	TLS  TLSConfig `koanf:"tls"`

	// RequirePass enables AUTH when non-empty.
	RequirePass string `koanf:"requirepass"`

	Databases  int `koanf:"databases"`
	MaxClients int `koanf:"maxclients"`

	// Timeout closes idle connections; zero disables it.
	Timeout      time.Duration `koanf:"timeout"`
	WriteTimeout time.Duration `koanf:"write_timeout"`

	// RateLimit is the per-connection command rate in commands per second;
	// zero disables limiting.
	RateLimit float64 `koanf:"rate_limit"`
	RateBurst int     `koanf:"rate_burst"`

	// Hz is how many times per second the memory engine samples keys for
	// active expiry.
	Hz int `koanf:"hz"`

	// UnixSocket adds a Unix domain socket listener when non-empty.
	// UnixSocketPerm is its file mode as an octal string such as "0700".
	UnixSocket     string `koanf:"unixsocket"`
	UnixSocketPerm string `koanf:"unixsocketperm"`
}

// Addr returns the plain TCP listen address.
func (s ServerSection) Addr() string {
	return net.JoinHostPort(s.Bind, strconv.Itoa(s.Port))
}

// SocketMode parses UnixSocketPerm. An empty value yields zero.
func (s ServerSection) SocketMode() (fs.FileMode, error) {
	if s.UnixSocketPerm == "" {
		return 0, nil
	}
	mode, err := strconv.ParseUint(s.UnixSocketPerm, 8, 32)
	if err != nil || mode > 0o777 {
		return 0, invalid("server.unixsocketperm %q is not an octal file mode", s.UnixSocketPerm)
	}
	return fs.FileMode(mode), nil
}

// TLSConfig configures the optional TLS listener.
type TLSConfig struct {
	Enabled  bool   `koanf:"enabled"`
	Port     int    `koanf:"port"`
	CertFile string `koanf:"cert_file"`
	KeyFile  string `koanf:"key_file"`

	// CAFile enables client certificate verification when set.
	CAFile string `koanf:"ca_file"`
}

// StorageSection selects and configures the storage engine.
type StorageSection struct {
	Engine string       `koanf:"engine"`
	Dir    string       `koanf:"dir"`
	Badger BadgerConfig `koanf:"badger"`
}

// BadgerConfig tunes the Badger engine.
type BadgerConfig struct {
	GCInterval  time.Duration `koanf:"gc_interval"`
	GCThreshold float64       `koanf:"gc_threshold"`
	SyncWrites  bool          `koanf:"sync_writes"`
}

// MetricsSection configures the admin HTTP endpoint serving /metrics,
// /healthz and /readyz.
type MetricsSection struct {
	Enabled bool   `koanf:"enabled"`
	Addr    string `koanf:"addr"`

	// Allow lists the IPs and CIDR blocks permitted to connect. Empty allows
	// every client.
	Allow []string `koanf:"allow"`

	// RateLimit is requests per second per client; zero disables limiting.
	RateLimit float64 `koanf:"rate_limit"`
	RateBurst int     `koanf:"rate_burst"`
}

// LogSection configures logging.
type LogSection struct {
	Level  string `koanf:"level"`
	Format string `koanf:"format"`
}
