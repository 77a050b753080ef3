package vm_test

import (
	"strings"
	"testing"

	"github.com/V4-project/v4front/pkg/vm"
)

func TestDisasmOne(t *testing.T) {
	tests := []struct {
		name     string
		code     []byte
		want     string
		consumed int
	}{
		{
			"plain primitive",
			[]byte{vm.OP_DUP},
			"0000: DUP",
			1,
		},
		{
			"literal",
			[]byte{vm.OP_LIT, 0x2A, 0x00, 0x00, 0x00},
			"0000: LIT      42",
			5,
		},
		{
			"negative literal",
			[]byte{vm.OP_LIT, 0xFF, 0xFF, 0xFF, 0xFF},
			"0000: LIT      -1",
			5,
		},
		{
			"call",
			[]byte{vm.OP_CALL, 0x03, 0x00},
			"0000: CALL     @3",
			3,
		},
		{
			"forward branch",
			[]byte{vm.OP_JZ, 0x08, 0x00},
			"0000: JZ       +8 ; -> 000b",
			3,
		},
		{
			"backward branch",
			[]byte{vm.OP_JMP, 0xFD, 0xFF},
			"0000: JMP      -3 ; -> 0000",
			3,
		},
		{
			"local fetch",
			[]byte{vm.OP_LGET, 0x05},
			"0000: LGET     5",
			2,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			line, n := vm.DisasmOne(tt.code, 0)
			if strings.TrimRight(line, " ") != tt.want {
				t.Errorf("got %q, want %q", line, tt.want)
			}
			if n != tt.consumed {
				t.Errorf("consumed: got %d, want %d", n, tt.consumed)
			}
		})
	}
}

func TestDisasmTruncatedImmediate(t *testing.T) {
	line, n := vm.DisasmOne([]byte{vm.OP_LIT, 0x01}, 0)
	if !strings.Contains(line, "<trunc-i32>") {
		t.Errorf("got %q, want trunc marker", line)
	}
	if n != 2 {
		t.Errorf("consumed: got %d, want 2", n)
	}
}

func TestDisasmAll(t *testing.T) {
	code := []byte{
		vm.OP_LIT, 0x05, 0x00, 0x00, 0x00,
		vm.OP_LIT, 0x03, 0x00, 0x00, 0x00,
		vm.OP_ADD,
		vm.OP_RET,
	}
	lines := vm.DisasmAll(code)
	if len(lines) != 4 {
		t.Fatalf("got %d lines: %v", len(lines), lines)
	}
	if !strings.HasPrefix(lines[2], "000a: ADD") {
		t.Errorf("line 2: %q", lines[2])
	}
	if !strings.HasPrefix(lines[3], "000b: RET") {
		t.Errorf("line 3: %q", lines[3])
	}
}

func TestDisasmEmpty(t *testing.T) {
	if lines := vm.DisasmAll(nil); len(lines) != 0 {
		t.Errorf("got %v", lines)
	}
	if _, n := vm.DisasmOne(nil, 0); n != 0 {
		t.Errorf("consumed %d on empty input", n)
	}
}
