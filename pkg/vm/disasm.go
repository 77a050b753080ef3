package vm

import (
	"fmt"
	"io"
	"strings"
)

// DisasmOne decodes the instruction at pc and renders one listing line
// of the form "0005: JZ       +8 ; -> 0010". It returns the number of
// bytes consumed; 0 means pc is at or past the end of code.
func DisasmOne(code []byte, pc int) (string, int) {
	if pc < 0 || pc >= len(code) {
		return "", 0
	}

	info, _ := Lookup(code[pc])

	var b strings.Builder
	fmt.Fprintf(&b, "%04x: %-8s", pc, info.Name)

	consumed := 1
	off := pc + 1

	switch info.Imm {
	case ImmNone:

	case ImmI8:
		if off+1 > len(code) {
			b.WriteString(" <trunc-i8>")
			return b.String(), len(code) - pc
		}
		fmt.Fprintf(&b, " %d", int8(code[off]))
		consumed += 1

	case ImmI16, ImmIdx16:
		if off+2 > len(code) {
			b.WriteString(" <trunc-i16>")
			return b.String(), len(code) - pc
		}
		v := int16(uint16(code[off]) | uint16(code[off+1])<<8)
		if info.Imm == ImmIdx16 {
			fmt.Fprintf(&b, " @%d", uint16(v))
		} else {
			fmt.Fprintf(&b, " %d", v)
		}
		consumed += 2

	case ImmI32:
		if off+4 > len(code) {
			b.WriteString(" <trunc-i32>")
			return b.String(), len(code) - pc
		}
		v := int32(uint32(code[off]) | uint32(code[off+1])<<8 |
			uint32(code[off+2])<<16 | uint32(code[off+3])<<24)
		fmt.Fprintf(&b, " %d", v)
		consumed += 4

	case ImmRel16:
		if off+2 > len(code) {
			b.WriteString(" <trunc-rel16>")
			return b.String(), len(code) - pc
		}
		rel := int16(uint16(code[off]) | uint16(code[off+1])<<8)
		target := pc + 3 + int(rel)
		if rel >= 0 {
			fmt.Fprintf(&b, " +%d ; -> %04x", rel, target)
		} else {
			fmt.Fprintf(&b, " %d ; -> %04x", rel, target)
		}
		consumed += 2
	}

	return b.String(), consumed
}

// DisasmAll decodes an entire buffer into listing lines.
func DisasmAll(code []byte) []string {
	var lines []string
	pc := 0
	for pc < len(code) {
		line, n := DisasmOne(code, pc)
		if n == 0 {
			break
		}
		lines = append(lines, line)
		pc += n
	}
	return lines
}

// DisasmPrint writes the listing for code to w, one line per
// instruction.
func DisasmPrint(code []byte, w io.Writer) error {
	for _, line := range DisasmAll(code) {
		if _, err := fmt.Fprintln(w, line); err != nil {
			return err
		}
	}
	return nil
}
