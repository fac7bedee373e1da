package memory

import (
	"bytes"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/yndnr/respkv/internal/storage"
)

// fakeClock is a settable time source.
type fakeClock struct {
	nanos atomic.Int64
}

func newFakeClock() *fakeClock {
	c := &fakeClock{}
	c.nanos.Store(time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC).UnixNano())
	return c
}

func (c *fakeClock) Now() time.Time { return time.Unix(0, c.nanos.Load()) }

func (c *fakeClock) Advance(d time.Duration) { c.nanos.Add(int64(d)) }

func newTestEngine(t *testing.T, clock *fakeClock) *Engine {
	t.Helper()
	e := New(WithHz(0), WithDatabases(4), WithClock(clock.Now))
	t.Cleanup(func() { e.Close() })
	return e
}

func selectDB(t *testing.T, e *Engine, index int) storage.Keyspace {
	t.Helper()
	ks, err := e.Select(index)
	if err != nil {
		t.Fatalf("Select(%d) error = %v", index, err)
	}
	return ks
}

// ============================================================
// Engine
// ============================================================

func TestEngine_Select(t *testing.T) {
	e := newTestEngine(t, newFakeClock())

	if e.Databases() != 4 {
		t.Errorf("Databases() = %d, want 4", e.Databases())
	}

	for _, idx := range []int{-1, 4, 100} {
		if _, err := e.Select(idx); !errors.Is(err, storage.ErrDBIndex) {
			t.Errorf("Select(%d) error = %v, want ErrDBIndex", idx, err)
		}
	}

	db0 := selectDB(t, e, 0)
	db1 := selectDB(t, e, 1)
	db0.Set([]byte("k"), []byte("v"), storage.SetOptions{})

	if _, ok, _ := db1.Get([]byte("k")); ok {
		t.Error("databases are not isolated")
	}
}

func TestEngine_Close(t *testing.T) {
	e := New(WithHz(100))
	ks := selectDB(t, e, 0)

	if err := e.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}
	if err := e.Close(); err != nil {
		t.Fatalf("second Close() error = %v", err)
	}

	if _, err := e.Select(0); !errors.Is(err, storage.ErrClosed) {
		t.Errorf("Select after Close error = %v, want ErrClosed", err)
	}
	if _, _, err := ks.Get([]byte("k")); !errors.Is(err, storage.ErrClosed) {
		t.Errorf("Get after Close error = %v, want ErrClosed", err)
	}
}

// ============================================================
// Keyspace basics
// ============================================================

func TestKeyspace_GetSet(t *testing.T) {
	ks := selectDB(t, newTestEngine(t, newFakeClock()), 0)

	if _, ok, err := ks.Get([]byte("missing")); ok || err != nil {
		t.Fatalf("Get(missing) = ok %v, err %v", ok, err)
	}

	value := []byte("bar")
	if ok, err := ks.Set([]byte("foo"), value, storage.SetOptions{}); !ok || err != nil {
		t.Fatalf("Set() = %v, %v", ok, err)
	}
	value[0] = 'X'

	got, ok, err := ks.Get([]byte("foo"))
	if err != nil || !ok {
		t.Fatalf("Get() = ok %v, err %v", ok, err)
	}
	if string(got) != "bar" {
		t.Errorf("Get() = %q, want %q (value must be copied on write)", got, "bar")
	}

	ks.Set([]byte("empty"), nil, storage.SetOptions{})
	got, ok, _ = ks.Get([]byte("empty"))
	if !ok || got == nil || len(got) != 0 {
		t.Errorf("Get(empty) = %q, %v, want empty non-nil value", got, ok)
	}
}

func TestKeyspace_SetConditions(t *testing.T) {
	ks := selectDB(t, newTestEngine(t, newFakeClock()), 0)
	key := []byte("k")

	tests := []struct {
		name  string
		opts  storage.SetOptions
		value string
		want  bool
		final string
	}{
		{"XX on missing key", storage.SetOptions{XX: true}, "1", false, ""},
		{"NX on missing key", storage.SetOptions{NX: true}, "2", true, "2"},
		{"NX on existing key", storage.SetOptions{NX: true}, "3", false, "2"},
		{"XX on existing key", storage.SetOptions{XX: true}, "4", true, "4"},
		{"plain overwrite", storage.SetOptions{}, "5", true, "5"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ok, err := ks.Set(key, []byte(tt.value), tt.opts)
			if err != nil {
				t.Fatal(err)
			}
			if ok != tt.want {
				t.Errorf("Set() = %v, want %v", ok, tt.want)
			}
			got, _, _ := ks.Get(key)
			if string(got) != tt.final {
				t.Errorf("value = %q, want %q", got, tt.final)
			}
		})
	}
}

func TestKeyspace_DeleteExists(t *testing.T) {
	ks := selectDB(t, newTestEngine(t, newFakeClock()), 0)
	ks.Set([]byte("a"), []byte("1"), storage.SetOptions{})
	ks.Set([]byte("b"), []byte("2"), storage.SetOptions{})

	n, _ := ks.Exists([]byte("a"), []byte("a"), []byte("b"), []byte("c"))
	if n != 3 {
		t.Errorf("Exists() = %d, want 3 (duplicates counted)", n)
	}

	n, _ = ks.Delete([]byte("a"), []byte("c"), []byte("a"))
	if n != 1 {
		t.Errorf("Delete() = %d, want 1", n)
	}

	if l, _ := ks.Len(); l != 1 {
		t.Errorf("Len() = %d, want 1", l)
	}
}

func TestKeyspace_Keys(t *testing.T) {
	ks := selectDB(t, newTestEngine(t, newFakeClock()), 0)
	for _, k := range []string{"user:2", "b", "user:1", "a", "user:10", "usex"} {
		ks.Set([]byte(k), []byte("v"), storage.SetOptions{})
	}

	tests := []struct {
		pattern string
		want    []string
	}{
		{"*", []string{"a", "b", "user:1", "user:10", "user:2", "usex"}},
		{"user:*", []string{"user:1", "user:10", "user:2"}},
		{"user:?", []string{"user:1", "user:2"}},
		{"[ab]", []string{"a", "b"}},
		{"nomatch*", []string{}},
	}

	for _, tt := range tests {
		t.Run(tt.pattern, func(t *testing.T) {
			keys, err := ks.Keys([]byte(tt.pattern))
			if err != nil {
				t.Fatal(err)
			}
			if keys == nil {
				t.Fatal("Keys() returned nil slice")
			}
			got := make([]string, len(keys))
			for i, k := range keys {
				got[i] = string(k)
			}
			if fmt.Sprint(got) != fmt.Sprint(tt.want) {
				t.Errorf("Keys(%q) = %v, want %v", tt.pattern, got, tt.want)
			}
		})
	}
}

func TestKeyspace_Flush(t *testing.T) {
	ks := selectDB(t, newTestEngine(t, newFakeClock()), 0)
	ks.Set([]byte("a"), []byte("1"), storage.SetOptions{})
	ks.Set([]byte("b"), []byte("2"), storage.SetOptions{ExpireAt: time.Now().Add(time.Hour)})

	if err := ks.Flush(); err != nil {
		t.Fatal(err)
	}
	stats, _ := ks.Stats()
	if stats.Keys != 0 || stats.Expires != 0 {
		t.Errorf("Stats() after Flush = %+v, want zero", stats)
	}
}

// ============================================================
// Expiry
// ============================================================

func TestKeyspace_Expiry(t *testing.T) {
	clock := newFakeClock()
	e := newTestEngine(t, clock)
	ks := selectDB(t, e, 0)
	key := []byte("session")

	ks.Set(key, []byte("v"), storage.SetOptions{ExpireAt: clock.Now().Add(10 * time.Second)})

	ttl, err := ks.TTL(key)
	if err != nil || ttl != 10*time.Second {
		t.Fatalf("TTL() = %v, %v, want 10s", ttl, err)
	}

	clock.Advance(9 * time.Second)
	if _, ok, _ := ks.Get(key); !ok {
		t.Fatal("key expired early")
	}

	clock.Advance(time.Second)
	if _, ok, _ := ks.Get(key); ok {
		t.Fatal("key visible after expiry")
	}
	if _, err := ks.TTL(key); !errors.Is(err, storage.ErrNoKey) {
		t.Errorf("TTL() error = %v, want ErrNoKey", err)
	}
	if keys, _ := ks.Keys([]byte("*")); len(keys) != 0 {
		t.Errorf("Keys() = %q, want none", keys)
	}
	if l, _ := ks.Len(); l != 0 {
		t.Errorf("Len() = %d, want 0", l)
	}

	// A write evicts the stale entry and counts it.
	if ok, _ := ks.Set(key, []byte("new"), storage.SetOptions{NX: true}); !ok {
		t.Error("NX set on expired key failed")
	}
	if e.ExpiredKeys() != 1 {
		t.Errorf("ExpiredKeys() = %d, want 1", e.ExpiredKeys())
	}
}

func TestKeyspace_ExpirePersist(t *testing.T) {
	clock := newFakeClock()
	ks := selectDB(t, newTestEngine(t, clock), 0)
	key := []byte("k")

	if ok, _ := ks.Expire(key, clock.Now().Add(time.Minute)); ok {
		t.Error("Expire() on missing key = true")
	}

	ks.Set(key, []byte("v"), storage.SetOptions{})
	if _, err := ks.TTL(key); !errors.Is(err, storage.ErrNoExpiry) {
		t.Errorf("TTL() error = %v, want ErrNoExpiry", err)
	}
	if ok, _ := ks.Persist(key); ok {
		t.Error("Persist() without expiry = true")
	}

	if ok, _ := ks.Expire(key, clock.Now().Add(time.Minute)); !ok {
		t.Fatal("Expire() = false")
	}
	stats, _ := ks.Stats()
	if stats.Expires != 1 || stats.AvgTTL != time.Minute {
		t.Errorf("Stats() = %+v, want 1 expiring key with 1m avg ttl", stats)
	}

	if ok, _ := ks.Persist(key); !ok {
		t.Fatal("Persist() = false")
	}
	if _, err := ks.TTL(key); !errors.Is(err, storage.ErrNoExpiry) {
		t.Errorf("TTL() after Persist error = %v, want ErrNoExpiry", err)
	}

	// An expiry not after now deletes the key.
	if ok, _ := ks.Expire(key, clock.Now()); !ok {
		t.Fatal("Expire(now) = false")
	}
	if _, ok, _ := ks.Get(key); ok {
		t.Error("key survived Expire(now)")
	}
}

func TestKeyspace_SetTTLHandling(t *testing.T) {
	clock := newFakeClock()
	ks := selectDB(t, newTestEngine(t, clock), 0)
	key := []byte("k")

	ks.Set(key, []byte("v1"), storage.SetOptions{ExpireAt: clock.Now().Add(time.Minute)})

	ks.Set(key, []byte("v2"), storage.SetOptions{KeepTTL: true})
	if ttl, err := ks.TTL(key); err != nil || ttl != time.Minute {
		t.Errorf("TTL() with KEEPTTL = %v, %v, want 1m", ttl, err)
	}

	ks.Set(key, []byte("v3"), storage.SetOptions{})
	if _, err := ks.TTL(key); !errors.Is(err, storage.ErrNoExpiry) {
		t.Errorf("plain SET kept the expiry: err = %v", err)
	}
}

func TestEngine_Sweep(t *testing.T) {
	clock := newFakeClock()
	e := newTestEngine(t, clock)
	ks := selectDB(t, e, 2)

	for i := 0; i < 100; i++ {
		ks.Set([]byte(fmt.Sprintf("tmp:%d", i)), []byte("v"), storage.SetOptions{ExpireAt: clock.Now().Add(time.Second)})
	}
	ks.Set([]byte("keep"), []byte("v"), storage.SetOptions{})

	clock.Advance(2 * time.Second)

	removed := e.sweep(time.Second)
	if removed != 100 {
		t.Errorf("sweep() = %d, want 100", removed)
	}
	if e.ExpiredKeys() != 100 {
		t.Errorf("ExpiredKeys() = %d, want 100", e.ExpiredKeys())
	}
	if l, _ := ks.Len(); l != 1 {
		t.Errorf("Len() = %d, want 1", l)
	}
}

// ============================================================
// Concurrency
// ============================================================

func TestKeyspace_ConcurrentGetSetNoTornValue(t *testing.T) {
	ks := selectDB(t, newTestEngine(t, newFakeClock()), 0)
	key := []byte("shared")

	const size = 4096
	valueA := bytes.Repeat([]byte{'a'}, size)
	valueB := bytes.Repeat([]byte{'b'}, size)
	ks.Set(key, valueA, storage.SetOptions{})

	var (
		wg   sync.WaitGroup
		stop atomic.Bool
		torn atomic.Int64
	)

	for w := 0; w < 4; w++ {
		wg.Add(1)
		go func(w int) {
			defer wg.Done()
			for i := 0; !stop.Load(); i++ {
				v := valueA
				if (i+w)%2 == 0 {
					v = valueB
				}
				ks.Set(key, v, storage.SetOptions{})
			}
		}(w)
	}

	for r := 0; r < 8; r++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < 2000; i++ {
				got, ok, err := ks.Get(key)
				if err != nil || !ok {
					torn.Add(1)
					continue
				}
				if !bytes.Equal(got, valueA) && !bytes.Equal(got, valueB) {
					torn.Add(1)
				}
			}
		}()
	}

	time.Sleep(50 * time.Millisecond)
	stop.Store(true)
	wg.Wait()

	if n := torn.Load(); n != 0 {
		t.Errorf("observed %d torn or missing values", n)
	}
}
