package forth_test

import (
	"bytes"
	"strconv"
	"testing"

	"github.com/V4-project/v4front/pkg/compiler/forth"
	"github.com/V4-project/v4front/pkg/vm"
)

func TestSimpleDefinition(t *testing.T) {
	unit := compile(t, ": DOUBLE DUP + ;")

	if len(unit.Words) != 1 {
		t.Fatalf("word count: got %d, want 1", len(unit.Words))
	}
	w := unit.Words[0]
	if w.Name != "DOUBLE" || w.Kind != forth.KindWord {
		t.Errorf("word: got %q kind %d", w.Name, w.Kind)
	}
	if !bytes.Equal(w.Code, []byte{vm.OP_DUP, vm.OP_ADD, vm.OP_RET}) {
		t.Errorf("word code: got % x", w.Code)
	}

	// No main code: just RET.
	if len(unit.Main) != 1 || unit.Main[0] != vm.OP_RET {
		t.Errorf("main: got % x, want single RET", unit.Main)
	}
}

func TestDefinitionAndCall(t *testing.T) {
	unit := compile(t, ": DOUBLE DUP + ; 5 DOUBLE")

	if len(unit.Words) != 1 {
		t.Fatalf("word count: got %d", len(unit.Words))
	}

	want := []byte{
		vm.OP_LIT, 0x05, 0x00, 0x00, 0x00,
		vm.OP_CALL, 0x00, 0x00,
		vm.OP_RET,
	}
	if !bytes.Equal(unit.Main, want) {
		t.Errorf("main: got % x, want % x", unit.Main, want)
	}
}

func TestMultipleDefinitions(t *testing.T) {
	unit := compile(t, ": DOUBLE DUP + ; : TRIPLE DUP DUP + + ; 5 DOUBLE 3 TRIPLE")

	if len(unit.Words) != 2 {
		t.Fatalf("word count: got %d", len(unit.Words))
	}
	if unit.Words[0].Name != "DOUBLE" || unit.Words[1].Name != "TRIPLE" {
		t.Errorf("names: %q, %q", unit.Words[0].Name, unit.Words[1].Name)
	}
	if !bytes.Equal(unit.Words[1].Code, []byte{vm.OP_DUP, vm.OP_DUP, vm.OP_ADD, vm.OP_ADD, vm.OP_RET}) {
		t.Errorf("TRIPLE code: % x", unit.Words[1].Code)
	}

	m := unit.Main
	// LIT 5, CALL 0, LIT 3, CALL 1, RET
	if m[5] != vm.OP_CALL || readI16(m[6:8]) != 0 {
		t.Errorf("first call: % x", m[5:8])
	}
	if m[13] != vm.OP_CALL || readI16(m[14:16]) != 1 {
		t.Errorf("second call: % x", m[13:16])
	}
}

func TestWordCallingWord(t *testing.T) {
	unit := compile(t, ": DOUBLE DUP + ; : QUADRUPLE DOUBLE DOUBLE ;")

	q := unit.Words[1].Code
	want := []byte{
		vm.OP_CALL, 0x00, 0x00,
		vm.OP_CALL, 0x00, 0x00,
		vm.OP_RET,
	}
	if !bytes.Equal(q, want) {
		t.Errorf("QUADRUPLE code: got % x, want % x", q, want)
	}
}

func TestEmptyDefinition(t *testing.T) {
	unit := compile(t, ": NOOP ;")
	if len(unit.Words) != 1 || !bytes.Equal(unit.Words[0].Code, []byte{vm.OP_RET}) {
		t.Errorf("got %+v", unit.Words)
	}
}

func TestCaseInsensitiveWordNames(t *testing.T) {
	unit := compile(t, ": double dup + ; 5 DOUBLE")
	if unit.Main[5] != vm.OP_CALL {
		t.Errorf("call not emitted: % x", unit.Main)
	}
}

func TestDefinitionWithControlFlow(t *testing.T) {
	unit := compile(t, ": MYABS DUP 0 < IF 0 SWAP - THEN ;")
	w := unit.Words[0]
	if w.Code[0] != vm.OP_DUP {
		t.Errorf("head: % x", w.Code)
	}
	if w.Code[len(w.Code)-1] != vm.OP_RET {
		t.Errorf("word does not end in RET: % x", w.Code)
	}
	checkStream(t, w.Code)
}

func TestRecurse(t *testing.T) {
	unit := compile(t, ": COUNTDOWN DUP IF DUP 1 - RECURSE THEN DROP ;")

	code := unit.Words[0].Code
	found := false
	for i := 0; i+2 < len(code); i++ {
		if code[i] == vm.OP_CALL && readI16(code[i+1:i+3]) == 0 {
			found = true
			break
		}
	}
	if !found {
		t.Errorf("no self CALL in % x", code)
	}
	checkStream(t, code)
}

func TestRecurseSecondWord(t *testing.T) {
	unit := compile(t, ": HELPER 1 + ; : FACT DUP 1 > IF DUP 1 - RECURSE * ELSE DROP 1 THEN ;")

	if len(unit.Words) != 2 {
		t.Fatalf("word count: got %d", len(unit.Words))
	}
	code := unit.Words[1].Code
	found := false
	for i := 0; i+2 < len(code); i++ {
		if code[i] == vm.OP_CALL && readI16(code[i+1:i+3]) == 1 {
			found = true
			break
		}
	}
	if !found {
		t.Errorf("FACT does not call itself (index 1): % x", code)
	}
}

func TestRecurseOutsideWord(t *testing.T) {
	ce := compileErr(t, "1 RECURSE")
	if ce.Code != forth.ErrRecurseOutsideWord {
		t.Errorf("got code %d, want RecurseOutsideWord", ce.Code)
	}
}

func TestDefinitionErrors(t *testing.T) {
	tests := []struct {
		src  string
		code forth.Code
	}{
		{":", forth.ErrColonWithoutName},
		{": ", forth.ErrColonWithoutName},
		{"5 5 + ;", forth.ErrSemicolonWithoutColon},
		{": DOUBLE DUP +", forth.ErrUnclosedColon},
		{": OUTER : INNER + ; ;", forth.ErrNestedColon},
		{": A : B ;", forth.ErrNestedColon},
		{": DOUBLE DUP + ; : DOUBLE DUP ;", forth.ErrDuplicateWord},
		{": double dup + ; : DOUBLE dup ;", forth.ErrDuplicateWord},
		{": F 1 IF ;", forth.ErrUnclosedIf},
		{": F BEGIN ;", forth.ErrUnclosedBegin},
	}

	for _, tt := range tests {
		t.Run(tt.src, func(t *testing.T) {
			ce := compileErr(t, tt.src)
			if ce.Code != tt.code {
				t.Errorf("got code %d (%s), want %d (%s)",
					ce.Code, forth.ErrString(ce.Code), tt.code, forth.ErrString(tt.code))
			}
		})
	}
}

func TestCommentBetweenColonAndName(t *testing.T) {
	unit := compile(t, ": ( comment ) FOO 42 ;")
	if len(unit.Words) != 1 || unit.Words[0].Name != "FOO" {
		t.Errorf("got %+v", unit.Words)
	}
}

func TestStackCommentInDefinition(t *testing.T) {
	unit := compile(t, ": DOUBLE ( n -- 2n ) 2 * ; \\ doubles\n 5 DOUBLE")
	if len(unit.Words) != 1 || unit.Words[0].Name != "DOUBLE" {
		t.Fatalf("got %+v", unit.Words)
	}
}

func TestConstant(t *testing.T) {
	unit := compile(t, "42 CONSTANT ANSWER")

	if len(unit.Words) != 1 {
		t.Fatalf("word count: got %d", len(unit.Words))
	}
	w := unit.Words[0]
	if w.Name != "ANSWER" || w.Kind != forth.KindConstant {
		t.Errorf("word: %q kind %d", w.Name, w.Kind)
	}
	want := []byte{vm.OP_LIT, 0x2A, 0x00, 0x00, 0x00, vm.OP_RET}
	if !bytes.Equal(w.Code, want) {
		t.Errorf("code: got % x, want % x", w.Code, want)
	}

	// The literal is taken back off the main stream.
	if len(unit.Main) != 1 || unit.Main[0] != vm.OP_RET {
		t.Errorf("main: got % x, want single RET", unit.Main)
	}
}

func TestConstantInExpression(t *testing.T) {
	unit := compile(t, "10 CONSTANT TEN  TEN 5 +")

	m := unit.Main
	// CALL TEN, LIT 5, ADD, RET
	if m[0] != vm.OP_CALL || readI16(m[1:3]) != 0 {
		t.Fatalf("head: % x", m[:3])
	}
	if m[3] != vm.OP_LIT || readI32(m[4:8]) != 5 {
		t.Errorf("literal: % x", m[3:8])
	}
	if m[8] != vm.OP_ADD || m[9] != vm.OP_RET {
		t.Errorf("tail: % x", m[8:])
	}
}

func TestMultipleConstants(t *testing.T) {
	unit := compile(t, "100 CONSTANT BASE  10 CONSTANT OFFSET  BASE OFFSET +")

	if len(unit.Words) != 2 {
		t.Fatalf("word count: got %d", len(unit.Words))
	}
	if readI32(unit.Words[0].Code[1:5]) != 100 || readI32(unit.Words[1].Code[1:5]) != 10 {
		t.Errorf("constant values wrong")
	}
}

func TestConstantErrors(t *testing.T) {
	tests := []struct {
		src  string
		code forth.Code
	}{
		{"CONSTANT X", forth.ErrConstantWithoutValue},
		{"DUP CONSTANT X", forth.ErrConstantWithoutValue},
		{"42 CONSTANT", forth.ErrConstantWithoutName},
		{"1 CONSTANT A 2 CONSTANT A", forth.ErrDuplicateWord},
	}
	for _, tt := range tests {
		t.Run(tt.src, func(t *testing.T) {
			ce := compileErr(t, tt.src)
			if ce.Code != tt.code {
				t.Errorf("got code %d, want %d", ce.Code, tt.code)
			}
		})
	}
}

func TestVariable(t *testing.T) {
	unit := compile(t, "VARIABLE counter")

	if len(unit.Words) != 1 {
		t.Fatalf("word count: got %d", len(unit.Words))
	}
	w := unit.Words[0]
	if w.Name != "counter" || w.Kind != forth.KindVariable {
		t.Errorf("word: %q kind %d", w.Name, w.Kind)
	}
	if w.Code[0] != vm.OP_LIT || readI32(w.Code[1:5]) != 0x10000 {
		t.Errorf("code: % x", w.Code)
	}
	if w.Code[5] != vm.OP_RET {
		t.Errorf("no RET: % x", w.Code)
	}
}

func TestVariableAddressesProgress(t *testing.T) {
	unit := compile(t, "VARIABLE X  VARIABLE Y  VARIABLE Z")

	want := []int32{0x10000, 0x10004, 0x10008}
	for i, w := range unit.Words {
		if got := readI32(w.Code[1:5]); got != want[i] {
			t.Errorf("%s: got 0x%x, want 0x%x", w.Name, got, want[i])
		}
	}
}

func TestVariableCustomBase(t *testing.T) {
	cc := &forth.Compiler{DataSpaceBase: 0x20000}
	unit, err := cc.Compile([]byte("VARIABLE A VARIABLE B"))
	if err != nil {
		t.Fatalf("Compile failed: %v", err)
	}
	if got := readI32(unit.Words[0].Code[1:5]); got != 0x20000 {
		t.Errorf("A: got 0x%x", got)
	}
	if got := readI32(unit.Words[1].Code[1:5]); got != 0x20004 {
		t.Errorf("B: got 0x%x", got)
	}
}

func TestVariableWithStoreFetch(t *testing.T) {
	unit := compile(t, "VARIABLE X  100 X !  X @")

	m := unit.Main
	// LIT 100, CALL X, STORE, CALL X, LOAD, RET
	if m[0] != vm.OP_LIT || readI32(m[1:5]) != 100 {
		t.Fatalf("head: % x", m[:5])
	}
	if m[5] != vm.OP_CALL || m[8] != vm.OP_STORE {
		t.Errorf("store: % x", m[5:9])
	}
	if m[9] != vm.OP_CALL || m[12] != vm.OP_LOAD {
		t.Errorf("fetch: % x", m[9:13])
	}
}

func TestVariableErrors(t *testing.T) {
	tests := []struct {
		src  string
		code forth.Code
	}{
		{"VARIABLE", forth.ErrVariableWithoutName},
		{"VARIABLE X VARIABLE X", forth.ErrDuplicateWord},
	}
	for _, tt := range tests {
		t.Run(tt.src, func(t *testing.T) {
			ce := compileErr(t, tt.src)
			if ce.Code != tt.code {
				t.Errorf("got code %d, want %d", ce.Code, tt.code)
			}
		})
	}
}

func TestDictionaryFull(t *testing.T) {
	var src bytes.Buffer
	for i := 0; i < forth.MaxWords+1; i++ {
		src.WriteString(": W" + strconv.Itoa(i) + " ;\n")
	}
	ce := compileErr(t, src.String())
	if ce.Code != forth.ErrDictionaryFull {
		t.Errorf("got code %d (%s), want DictionaryFull", ce.Code, forth.ErrString(ce.Code))
	}
}

func TestLocalInstructions(t *testing.T) {
	tests := []struct {
		src string
		op  uint8
		idx uint8
	}{
		{"L@ 0", vm.OP_LGET, 0},
		{"L@ 0x10", vm.OP_LGET, 0x10},
		{"L@ 255", vm.OP_LGET, 255},
		{"l@ 5", vm.OP_LGET, 5},
		{"L! 0", vm.OP_LSET, 0},
		{"l! 3", vm.OP_LSET, 3},
		{"L++ 0", vm.OP_LINC, 0},
		{"L-- 7", vm.OP_LDEC, 7},
	}

	for _, tt := range tests {
		t.Run(tt.src, func(t *testing.T) {
			unit := compile(t, tt.src)
			if unit.Main[0] != tt.op || unit.Main[1] != tt.idx {
				t.Errorf("got % x, want [%02x %02x RET]", unit.Main, tt.op, tt.idx)
			}
			if unit.Main[2] != vm.OP_RET {
				t.Errorf("no RET: % x", unit.Main)
			}
		})
	}
}

func TestLocalWithComment(t *testing.T) {
	unit := compile(t, "L@ ( get local ) 0")
	if unit.Main[0] != vm.OP_LGET || unit.Main[1] != 0 {
		t.Errorf("got % x", unit.Main)
	}
}

func TestLocalErrors(t *testing.T) {
	tests := []struct {
		src  string
		code forth.Code
	}{
		{"L@", forth.ErrMissingLocalIdx},
		{"L@ 256", forth.ErrInvalidLocalIdx},
		{"L@ -1", forth.ErrInvalidLocalIdx},
		{"L! FOO", forth.ErrInvalidLocalIdx},
		{"L++", forth.ErrMissingLocalIdx},
	}
	for _, tt := range tests {
		t.Run(tt.src, func(t *testing.T) {
			ce := compileErr(t, tt.src)
			if ce.Code != tt.code {
				t.Errorf("got code %d, want %d", ce.Code, tt.code)
			}
		})
	}
}
