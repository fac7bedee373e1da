package confloader

import (
	"os"
	"path/filepath"
	"testing"
)

type testConfig struct {
	Server struct {
		Bind         string `koanf:"bind"`
		Port         int    `koanf:"port"`
		WriteTimeout string `koanf:"write_timeout"`
	} `koanf:"server"`
	Storage struct {
		Engine string `koanf:"engine"`
	} `koanf:"storage"`
}

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "respkv.yaml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestNewLoader(t *testing.T) {
	l := NewLoader()
	if l == nil {
		t.Fatal("NewLoader() returned nil")
	}
	if l.envPrefix != DefaultEnvPrefix {
		t.Errorf("envPrefix = %q, want %q", l.envPrefix, DefaultEnvPrefix)
	}
}

func TestNewLoader_WithOptions(t *testing.T) {
	l := NewLoader(
		WithEnvPrefix("TEST_"),
		WithConfigFile("/path/to/respkv.yaml"),
		WithFlags(map[string]any{"server.port": 1}),
	)

	if l.envPrefix != "TEST_" {
		t.Errorf("envPrefix = %q, want %q", l.envPrefix, "TEST_")
	}
	if l.filePath != "/path/to/respkv.yaml" {
		t.Errorf("filePath = %q", l.filePath)
	}
	if len(l.flags) != 1 {
		t.Errorf("flags = %v", l.flags)
	}
}

// ============================================================================
// Sources
// ============================================================================

func TestLoader_LoadFile(t *testing.T) {
	path := writeConfig(t, `
server:
  bind: "0.0.0.0"
  port: 6380
storage:
  engine: badger
`)

	l := NewLoader()
	if err := l.LoadFile(path); err != nil {
		t.Fatalf("LoadFile() error = %v", err)
	}

	if got := l.GetString("server.bind"); got != "0.0.0.0" {
		t.Errorf("server.bind = %q", got)
	}
	if got := l.GetInt("server.port"); got != 6380 {
		t.Errorf("server.port = %d", got)
	}
	if got := l.GetString("storage.engine"); got != "badger" {
		t.Errorf("storage.engine = %q", got)
	}
}

func TestLoader_LoadFile_NotFound(t *testing.T) {
	l := NewLoader()
	if err := l.LoadFile("/nonexistent/respkv.yaml"); err == nil {
		t.Error("LoadFile() should return error for nonexistent file")
	}
}

func TestLoader_LoadFile_Empty(t *testing.T) {
	l := NewLoader()
	if err := l.LoadFile(""); err != nil {
		t.Errorf("LoadFile(\"\") should not error, got: %v", err)
	}
}

func TestEnvKey(t *testing.T) {
	tests := []struct {
		name string
		want string
	}{
		{"RESPKV_SERVER_PORT", "server.port"},
		{"RESPKV_SERVER_WRITE__TIMEOUT", "server.write_timeout"},
		{"RESPKV_STORAGE_BADGER_GC__INTERVAL", "storage.badger.gc_interval"},
		{"RESPKV_PIDFILE", "pidfile"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := EnvKey("RESPKV_", tt.name); got != tt.want {
				t.Errorf("EnvKey(%q) = %q, want %q", tt.name, got, tt.want)
			}
		})
	}
}

func TestLoader_LoadEnv(t *testing.T) {
	t.Setenv("RESPKV_SERVER_BIND", "127.0.0.1")
	t.Setenv("RESPKV_SERVER_WRITE__TIMEOUT", "5s")

	l := NewLoader()
	if err := l.LoadEnv(); err != nil {
		t.Fatalf("LoadEnv() error = %v", err)
	}

	if got := l.GetString("server.bind"); got != "127.0.0.1" {
		t.Errorf("server.bind = %q", got)
	}
	if got := l.GetString("server.write_timeout"); got != "5s" {
		t.Errorf("server.write_timeout = %q", got)
	}
}

func TestLoader_LoadEnv_CustomPrefix(t *testing.T) {
	t.Setenv("MYAPP_SERVER_PORT", "9090")

	l := NewLoader(WithEnvPrefix("MYAPP_"))
	if err := l.LoadEnv(); err != nil {
		t.Fatalf("LoadEnv() error = %v", err)
	}

	if port := l.GetString("server.port"); port != "9090" {
		t.Errorf("server.port = %q, want %q", port, "9090")
	}
}

func TestLoader_LoadMap(t *testing.T) {
	l := NewLoader()

	data := map[string]any{
		"server.bind": "localhost",
		"debug":       true,
	}
	if err := l.LoadMap(data); err != nil {
		t.Fatalf("LoadMap() error = %v", err)
	}

	if got := l.GetString("server.bind"); got != "localhost" {
		t.Errorf("server.bind = %q", got)
	}
	if !l.GetBool("debug") {
		t.Error("debug should be true")
	}

	// The caller's map is not modified by unflattening.
	if _, ok := data["server.bind"]; !ok {
		t.Error("LoadMap() mutated its argument")
	}
}

func TestLoader_LoadMap_Unmarshal(t *testing.T) {
	l := NewLoader()
	if err := l.LoadMap(map[string]any{"server.port": 7000}); err != nil {
		t.Fatalf("LoadMap() error = %v", err)
	}

	var cfg testConfig
	if err := l.Unmarshal(&cfg); err != nil {
		t.Fatalf("Unmarshal() error = %v", err)
	}
	if cfg.Server.Port != 7000 {
		t.Errorf("Server.Port = %d, want 7000", cfg.Server.Port)
	}
}

// ============================================================================
// Layering
// ============================================================================

func TestLoader_Load_Priority(t *testing.T) {
	path := writeConfig(t, `
server:
  bind: "file"
  port: 1000
  write_timeout: "1s"
storage:
  engine: memory
`)
	t.Setenv("RESPKV_SERVER_PORT", "2000")
	t.Setenv("RESPKV_SERVER_WRITE__TIMEOUT", "2s")

	l := NewLoader(
		WithConfigFile(path),
		WithFlags(map[string]any{"server.write_timeout": "3s"}),
	)

	var cfg testConfig
	if err := l.Load(&cfg); err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Server.Bind != "file" {
		t.Errorf("Server.Bind = %q, want file", cfg.Server.Bind)
	}
	if cfg.Server.Port != 2000 {
		t.Errorf("Server.Port = %d, env should override file", cfg.Server.Port)
	}
	if cfg.Server.WriteTimeout != "3s" {
		t.Errorf("Server.WriteTimeout = %q, flags should override env", cfg.Server.WriteTimeout)
	}
	if !l.IsLoaded() {
		t.Error("IsLoaded() should be true after Load")
	}
}

func TestLoader_Load_KeepsDefaults(t *testing.T) {
	path := writeConfig(t, "server:\n  port: 6390\n")

	var cfg testConfig
	cfg.Server.Bind = "127.0.0.1"
	cfg.Storage.Engine = "memory"

	if err := NewLoader(WithConfigFile(path)).Load(&cfg); err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Server.Port != 6390 {
		t.Errorf("Server.Port = %d", cfg.Server.Port)
	}
	if cfg.Server.Bind != "127.0.0.1" || cfg.Storage.Engine != "memory" {
		t.Errorf("defaults lost: %+v", cfg)
	}
}

func TestLoader_Load_BadFile(t *testing.T) {
	path := writeConfig(t, "server: [unclosed\n")

	var cfg testConfig
	if err := NewLoader(WithConfigFile(path)).Load(&cfg); err == nil {
		t.Error("Load() should fail on malformed YAML")
	}
}

func TestLoader_Keys(t *testing.T) {
	l := NewLoader()
	if err := l.LoadMap(map[string]any{"a.b": 1, "c": 2}); err != nil {
		t.Fatalf("LoadMap() error = %v", err)
	}

	keys := l.Keys()
	if len(keys) != 2 {
		t.Errorf("Keys() = %v, want 2 keys", keys)
	}
}

func TestMapProvider_ReadBytes(t *testing.T) {
	p := newMapProvider(map[string]any{}, ".")
	if _, err := p.ReadBytes(); err != ErrReadBytesNotSupported {
		t.Errorf("ReadBytes() error = %v", err)
	}
}
