package output

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/yndnr/respkv/internal/protocol/resp"
)

// TextFormatter renders replies the way redis-cli does on a terminal.
type TextFormatter struct{}

// Format writes v followed by a newline.
func (f *TextFormatter) Format(w io.Writer, v resp.Value) error {
	var b strings.Builder
	writeText(&b, v, "")
	_, err := io.WriteString(w, b.String())
	return err
}

// writeText appends v. indent prefixes every line after the first.
func writeText(b *strings.Builder, v resp.Value, indent string) {
	switch v.Kind {
	case resp.KindSimpleString:
		b.WriteString(v.Str)
		b.WriteByte('\n')
	case resp.KindError:
		b.WriteString("(error) ")
		b.WriteString(v.Str)
		b.WriteByte('\n')
	case resp.KindInteger:
		fmt.Fprintf(b, "(integer) %d\n", v.Int)
	case resp.KindBulkString:
		if v.Null {
			b.WriteString("(nil)\n")
			return
		}
		b.WriteString(Quote(v.Bulk))
		b.WriteByte('\n')
	case resp.KindArray:
		if v.Null {
			b.WriteString("(nil)\n")
			return
		}
		if len(v.Array) == 0 {
			b.WriteString("(empty array)\n")
			return
		}
		width := len(strconv.Itoa(len(v.Array)))
		pad := indent + strings.Repeat(" ", width+2)
		for i, item := range v.Array {
			if i > 0 {
				b.WriteString(indent)
			}
			fmt.Fprintf(b, "%*d) ", width, i+1)
			writeText(b, item, pad)
		}
	}
}

// Quote renders b as a double-quoted string with non-printable bytes
// escaped.
func Quote(b []byte) string {
	var sb strings.Builder
	sb.WriteByte('"')
	for _, c := range b {
		switch c {
		case '\\', '"':
			sb.WriteByte('\\')
			sb.WriteByte(c)
		case '\n':
			sb.WriteString(`\n`)
		case '\r':
			sb.WriteString(`\r`)
		case '\t':
			sb.WriteString(`\t`)
		case '\a':
			sb.WriteString(`\a`)
		case '\b':
			sb.WriteString(`\b`)
		default:
			if c < 0x20 || c > 0x7e {
				fmt.Fprintf(&sb, `\x%02x`, c)
			} else {
				sb.WriteByte(c)
			}
		}
	}
	sb.WriteByte('"')
	return sb.String()
}
