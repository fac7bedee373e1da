package benchmark

import (
	"bufio"
	"bytes"
	"fmt"
	"io"
	"testing"

	"github.com/yndnr/respkv/internal/protocol/resp"
)

// BenchmarkDecoder benchmarks frame decoding for typical requests.
func BenchmarkDecoder(b *testing.B) {
	cases := []struct {
		name string
		wire []byte
	}{
		{"get", resp.EncodeCommand("GET", "key:00000001")},
		{"set_256", resp.EncodeCommand("SET", "key:00000001", string(benchValue(256)))},
		{"set_64k", resp.EncodeCommand("SET", "key:00000001", string(benchValue(64*1024)))},
		{"keys", resp.EncodeCommand("KEYS", "user:*")},
	}

	for _, tc := range cases {
		b.Run(tc.name, func(b *testing.B) {
			dec := resp.NewDecoder()
			b.ReportAllocs()
			b.SetBytes(int64(len(tc.wire)))

			for i := 0; i < b.N; i++ {
				dec.Feed(tc.wire)
				if _, err := dec.Next(); err != nil {
					b.Fatalf("Next failed: %v", err)
				}
			}
		})
	}
}

// BenchmarkDecoderPipelined benchmarks decoding a pipelined batch fed in
// small chunks.
func BenchmarkDecoderPipelined(b *testing.B) {
	for _, depth := range []int{1, 16, 128} {
		b.Run(fmt.Sprintf("depth_%d", depth), func(b *testing.B) {
			var batch []byte
			for i := 0; i < depth; i++ {
				batch = append(batch, resp.EncodeCommand("GET", string(benchKey(i)))...)
			}
			b.ReportAllocs()
			b.SetBytes(int64(len(batch)))

			for i := 0; i < b.N; i++ {
				dec := resp.NewDecoder()
				for off := 0; off < len(batch); off += 512 {
					dec.Feed(batch[off:min(off+512, len(batch))])
					for {
						if _, err := dec.Next(); err != nil {
							break
						}
					}
				}
			}
		})
	}
}

// BenchmarkEncoder benchmarks reply encoding.
func BenchmarkEncoder(b *testing.B) {
	keys := make([][]byte, 1000)
	for i := range keys {
		keys[i] = benchKey(i)
	}

	cases := []struct {
		name  string
		value resp.Value
	}{
		{"ok", resp.OK()},
		{"bulk_256", resp.Bulk(benchValue(256))},
		{"null", resp.NullBulk()},
		{"keys_1000", resp.BulkArray(keys)},
	}

	for _, tc := range cases {
		b.Run(tc.name, func(b *testing.B) {
			w := resp.NewWriter(io.Discard)
			b.ReportAllocs()

			for i := 0; i < b.N; i++ {
				if err := w.WriteValue(tc.value); err != nil {
					b.Fatalf("WriteValue failed: %v", err)
				}
			}
			if err := w.Flush(); err != nil {
				b.Fatalf("Flush failed: %v", err)
			}
		})
	}
}

// BenchmarkReadValue benchmarks the client-side reply reader.
func BenchmarkReadValue(b *testing.B) {
	wire := resp.AppendValue(nil, resp.Bulk(benchValue(256)))
	r := bytes.NewReader(wire)
	b.ReportAllocs()

	for i := 0; i < b.N; i++ {
		r.Reset(wire)
		if _, err := resp.ReadValue(bufio.NewReader(r)); err != nil {
			b.Fatalf("ReadValue failed: %v", err)
		}
	}
}
