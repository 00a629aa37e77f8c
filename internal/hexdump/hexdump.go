// Package hexdump renders byte buffers as offset / hex / ASCII tables
// for the relay's observability stream.
//
//	0000 70 79 74 68 6F 6E 20 72 6F 63 6B 73 0A 20 61 6E  python rocks. an
//	0010 64 20 70 72 6F 78 69 65 73 20 72 6F 6C 6C 0A     d proxies roll.
//
// The column layout is fixed: tooling built on top of the dumps splits
// on it, so keep it stable.
package hexdump

import (
	"fmt"
	"io"
	"strings"
)

// DefaultWidth is the number of bytes rendered per line.
const DefaultWidth = 16

// printable maps every byte value to itself when it is printable ASCII
// and to '.' otherwise.
var printable = func() (t [256]byte) {
	for i := range t {
		if i >= 0x20 && i <= 0x7e {
			t[i] = byte(i)
		} else {
			t[i] = '.'
		}
	}
	return t
}()

const hexDigits = "0123456789ABCDEF"

// Lines returns the dump of data, width bytes per line.  A width of
// zero or less selects [DefaultWidth].  Empty input yields no lines.
func Lines(data []byte, width int) []string {
	if width <= 0 {
		width = DefaultWidth
	}
	if len(data) == 0 {
		return nil
	}

	hexCol := width * 3
	out := make([]string, 0, (len(data)+width-1)/width)

	var hexa, ascii strings.Builder
	for off := 0; off < len(data); off += width {
		end := off + width
		if end > len(data) {
			end = len(data)
		}
		word := data[off:end]

		hexa.Reset()
		ascii.Reset()
		for i, b := range word {
			if i > 0 {
				hexa.WriteByte(' ')
			}
			hexa.WriteByte(hexDigits[b>>4])
			hexa.WriteByte(hexDigits[b&0x0f])
			ascii.WriteByte(printable[b])
		}

		out = append(out, fmt.Sprintf("%04x %-*s %s", off, hexCol, hexa.String(), ascii.String()))
	}
	return out
}

// Fprint writes the dump of data to w, one line per row.  The only
// error it can return is the writer's.
func Fprint(w io.Writer, data []byte, width int) error {
	for _, line := range Lines(data, width) {
		if _, err := io.WriteString(w, line+"\n"); err != nil {
			return err
		}
	}
	return nil
}

// Dump returns the default-width dump of data as a single string with
// a trailing newline per row.
func Dump(data []byte) string {
	var sb strings.Builder
	_ = Fprint(&sb, data, DefaultWidth)
	return sb.String()
}

// Printable reports the rendering of b in the ASCII column.
func Printable(b byte) byte { return printable[b] }
