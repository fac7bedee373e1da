package output

import (
	"io"
	"strconv"

	"github.com/yndnr/respkv/internal/protocol/resp"
)

// RawFormatter writes payloads without quoting or type prefixes, one array
// element per line.
type RawFormatter struct{}

// Format writes v followed by a newline.
func (f *RawFormatter) Format(w io.Writer, v resp.Value) error {
	buf := appendRaw(nil, v)
	_, err := w.Write(buf)
	return err
}

func appendRaw(dst []byte, v resp.Value) []byte {
	switch v.Kind {
	case resp.KindSimpleString, resp.KindError:
		dst = append(dst, v.Str...)
	case resp.KindInteger:
		dst = strconv.AppendInt(dst, v.Int, 10)
	case resp.KindBulkString:
		dst = append(dst, v.Bulk...)
	case resp.KindArray:
		for i, item := range v.Array {
			if i == len(v.Array)-1 {
				return appendRaw(dst, item)
			}
			dst = appendRaw(dst, item)
		}
	}
	return append(dst, '\n')
}
