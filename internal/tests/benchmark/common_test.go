package benchmark

import (
	"fmt"
	"runtime"
	"testing"

	"github.com/yndnr/respkv/internal/storage"
	"github.com/yndnr/respkv/internal/storage/badgerstore"
	"github.com/yndnr/respkv/internal/storage/memory"
	"github.com/yndnr/respkv/internal/telemetry/logger"
)

// KeyCounts defines the keyspace sizes for benchmarking.
var KeyCounts = []int{5000, 10000, 50000, 100000, 500000}

// SmallKeyCounts for quick benchmarks.
var SmallKeyCounts = []int{1000, 10000, 50000}

// valueSizes are the payload sizes used by SET benchmarks.
var valueSizes = []int{16, 256, 4096}

type engineFactory struct {
	name string
	open func(b *testing.B) storage.Engine
}

var engines = []engineFactory{
	{"memory", openMemory},
	{"badger", openBadger},
}

func openMemory(b *testing.B) storage.Engine {
	b.Helper()
	e := memory.New(memory.WithHz(0), memory.WithLogger(logger.Discard()))
	b.Cleanup(func() { _ = e.Close() })
	return e
}

func openBadger(b *testing.B) storage.Engine {
	b.Helper()
	cfg := badgerstore.DefaultConfig(b.TempDir())
	e, err := badgerstore.Open(cfg, logger.Discard())
	if err != nil {
		b.Fatalf("badgerstore.Open: %v", err)
	}
	b.Cleanup(func() { _ = e.Close() })
	return e
}

func benchKey(i int) []byte {
	return []byte(fmt.Sprintf("key:%08d", i))
}

func benchValue(size int) []byte {
	v := make([]byte, size)
	for i := range v {
		v[i] = byte('a' + i%26)
	}
	return v
}

// prefill writes count keys into database 0 and returns it.
func prefill(b *testing.B, e storage.Engine, count int) storage.Keyspace {
	b.Helper()
	ks, err := e.Select(0)
	if err != nil {
		b.Fatalf("Select: %v", err)
	}
	value := benchValue(64)
	for i := 0; i < count; i++ {
		if _, err := ks.Set(benchKey(i), value, storage.SetOptions{}); err != nil {
			b.Fatalf("Set: %v", err)
		}
	}
	return ks
}

// reportMemory reports memory usage.
func reportMemory(b *testing.B, prefix string) {
	var m runtime.MemStats
	runtime.GC()
	runtime.ReadMemStats(&m)
	b.ReportMetric(float64(m.Alloc)/(1024*1024), prefix+"_MB")
	b.ReportMetric(float64(m.NumGC), prefix+"_GC")
}

// runWithKeyCounts runs a benchmark function with various keyspace sizes.
func runWithKeyCounts(b *testing.B, counts []int, benchFn func(b *testing.B, count int)) {
	for _, count := range counts {
		b.Run(fmt.Sprintf("keys_%d", count), func(b *testing.B) {
			benchFn(b, count)
		})
	}
}
