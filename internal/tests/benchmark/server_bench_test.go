package benchmark

import (
	"bufio"
	"context"
	"fmt"
	"net"
	"testing"
	"time"

	"github.com/yndnr/respkv/internal/protocol/resp"
	"github.com/yndnr/respkv/internal/server/redisserver"
	"github.com/yndnr/respkv/internal/storage"
	"github.com/yndnr/respkv/internal/telemetry/logger"
)

// startServer serves e on a loopback port for the duration of b.
func startServer(b *testing.B, e storage.Engine) string {
	b.Helper()
	cfg := redisserver.DefaultConfig()
	cfg.Addr = "127.0.0.1:0"
	cfg.WriteTimeout = 0

	srv, err := redisserver.New(cfg, e, redisserver.WithLogger(logger.Discard()))
	if err != nil {
		b.Fatalf("redisserver.New: %v", err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	if err := srv.Start(ctx); err != nil {
		cancel()
		b.Fatalf("Start: %v", err)
	}
	b.Cleanup(func() {
		cancel()
		sctx, scancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer scancel()
		_ = srv.Shutdown(sctx)
	})
	return srv.Addr().String()
}

func dialServer(b *testing.B, addr string) (net.Conn, *bufio.Reader) {
	b.Helper()
	nc, err := net.Dial("tcp", addr)
	if err != nil {
		b.Fatalf("dial: %v", err)
	}
	b.Cleanup(func() { _ = nc.Close() })
	return nc, bufio.NewReader(nc)
}

// BenchmarkServerGet benchmarks GET round trips through the full server.
func BenchmarkServerGet(b *testing.B) {
	for _, eng := range engines {
		b.Run(eng.name, func(b *testing.B) {
			e := eng.open(b)
			prefill(b, e, 10000)
			nc, br := dialServer(b, startServer(b, e))

			b.ResetTimer()
			b.ReportAllocs()

			for i := 0; i < b.N; i++ {
				if _, err := nc.Write(resp.EncodeCommand("GET", string(benchKey(i%10000)))); err != nil {
					b.Fatalf("write: %v", err)
				}
				v, err := resp.ReadValue(br)
				if err != nil || v.Kind != resp.KindBulkString {
					b.Fatalf("GET reply %s, %v", v, err)
				}
			}
		})
	}
}

// BenchmarkServerPipeline benchmarks pipelined SET/GET batches.
func BenchmarkServerPipeline(b *testing.B) {
	for _, depth := range []int{16, 128} {
		b.Run(fmt.Sprintf("depth_%d", depth), func(b *testing.B) {
			nc, br := dialServer(b, startServer(b, openMemory(b)))

			var batch []byte
			for i := 0; i < depth; i++ {
				key := string(benchKey(i))
				if i%2 == 0 {
					batch = append(batch, resp.EncodeCommand("SET", key, "value")...)
				} else {
					batch = append(batch, resp.EncodeCommand("GET", key)...)
				}
			}

			b.ResetTimer()
			b.ReportAllocs()

			for i := 0; i < b.N; i++ {
				if _, err := nc.Write(batch); err != nil {
					b.Fatalf("write: %v", err)
				}
				for j := 0; j < depth; j++ {
					if _, err := resp.ReadValue(br); err != nil {
						b.Fatalf("read: %v", err)
					}
				}
			}
		})
	}
}

// BenchmarkServerParallelClients benchmarks many connections issuing GET.
func BenchmarkServerParallelClients(b *testing.B) {
	e := openMemory(b)
	prefill(b, e, 1000)
	addr := startServer(b, e)

	b.ResetTimer()
	b.ReportAllocs()

	b.RunParallel(func(pb *testing.PB) {
		nc, err := net.Dial("tcp", addr)
		if err != nil {
			b.Errorf("dial: %v", err)
			return
		}
		defer nc.Close()
		br := bufio.NewReader(nc)

		i := 0
		for pb.Next() {
			if _, err := nc.Write(resp.EncodeCommand("GET", string(benchKey(i%1000)))); err != nil {
				b.Errorf("write: %v", err)
				return
			}
			if _, err := resp.ReadValue(br); err != nil {
				b.Errorf("read: %v", err)
				return
			}
			i++
		}
	})
}
