package metric

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/yndnr/respkv/internal/storage"
	"github.com/yndnr/respkv/internal/storage/memory"
)

func scrape(t *testing.T, h http.Handler) string {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", rec.Code)
	}
	body, _ := io.ReadAll(rec.Body)
	return string(body)
}

func TestNewRegistry(t *testing.T) {
	r := NewRegistry()
	if r.registry == nil {
		t.Fatal("registry field is nil")
	}
	if r.CommandsTotal == nil || r.CommandDuration == nil || r.ConnectionsActive == nil {
		t.Error("metrics not initialized")
	}
}

func TestHandler(t *testing.T) {
	body := scrape(t, NewRegistry().Handler())

	if !strings.Contains(body, "go_goroutines") {
		t.Error("expected go_goroutines metric")
	}
}

func TestConnectionMetrics(t *testing.T) {
	r := NewRegistry()

	r.ConnectionOpened()
	r.ConnectionOpened()
	r.ConnectionClosed()
	r.ConnectionRejected()

	body := scrape(t, r.Handler())
	for _, want := range []string{
		"respkv_connected_clients 1",
		"respkv_connections_received_total 2",
		"respkv_connections_rejected_total 1",
	} {
		if !strings.Contains(body, want) {
			t.Errorf("expected %q", want)
		}
	}
}

func TestCommandMetrics(t *testing.T) {
	r := NewRegistry()

	r.ObserveCommand("get", ResultOK, time.Millisecond)
	r.ObserveCommand("get", ResultOK, time.Millisecond)
	r.ObserveCommand("set", ResultError, time.Millisecond)
	r.IncProtocolError()
	r.KeyspaceLookup(true)
	r.KeyspaceLookup(false)
	r.KeyspaceLookup(false)

	body := scrape(t, r.Handler())
	for _, want := range []string{
		`respkv_commands_total{command="get",result="ok"} 2`,
		`respkv_commands_total{command="set",result="error"} 1`,
		`respkv_command_duration_seconds_count{command="get"} 2`,
		"respkv_protocol_errors_total 1",
		"respkv_keyspace_hits_total 1",
		"respkv_keyspace_misses_total 2",
	} {
		if !strings.Contains(body, want) {
			t.Errorf("expected %q", want)
		}
	}
}

func TestKeyspaceCollector(t *testing.T) {
	engine := memory.New(memory.WithHz(0), memory.WithDatabases(3))
	defer engine.Close()

	db2, _ := engine.Select(2)
	db2.Set([]byte("a"), []byte("1"), storage.SetOptions{})
	db2.Set([]byte("b"), []byte("2"), storage.SetOptions{ExpireAt: time.Now().Add(time.Hour)})

	r := NewRegistry()
	if err := r.RegisterKeyspace(engine); err != nil {
		t.Fatal(err)
	}

	body := scrape(t, r.Handler())
	if !strings.Contains(body, `respkv_db_keys{db="2"} 2`) {
		t.Error(`expected respkv_db_keys{db="2"} 2`)
	}
	if !strings.Contains(body, `respkv_db_expiring_keys{db="2"} 1`) {
		t.Error(`expected respkv_db_expiring_keys{db="2"} 1`)
	}
	if strings.Contains(body, `db="0"`) {
		t.Error("empty databases should not be reported")
	}
}

func TestConcurrentMetricUpdates(t *testing.T) {
	r := NewRegistry()
	var wg sync.WaitGroup

	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				r.ObserveCommand("ping", ResultOK, time.Microsecond)
				r.ConnectionOpened()
				r.ConnectionClosed()
			}
		}()
	}
	wg.Wait()

	body := scrape(t, r.Handler())
	if !strings.Contains(body, `respkv_commands_total{command="ping",result="ok"} 1000`) {
		t.Error("expected 1000 ping commands")
	}
}
