package forth

import "github.com/V4-project/v4front/pkg/vm"

// Primitive word names. Alphabetic names match case-insensitively;
// symbolic tokens match exactly.
type primEntry struct {
	name     string
	opcode   uint8
	symbolic bool
}

var primTable = []primEntry{
	// stack
	{"DUP", vm.OP_DUP, false},
	{"DROP", vm.OP_DROP, false},
	{"SWAP", vm.OP_SWAP, false},
	{"OVER", vm.OP_OVER, false},

	// return stack
	{">R", vm.OP_TOR, false},
	{"R>", vm.OP_FROMR, false},
	{"R@", vm.OP_RFETCH, false},

	// arithmetic
	{"+", vm.OP_ADD, true},
	{"-", vm.OP_SUB, true},
	{"*", vm.OP_MUL, true},
	{"/", vm.OP_DIV, true},
	{"MOD", vm.OP_MOD, false},

	// comparison
	{"=", vm.OP_EQ, true},
	{"==", vm.OP_EQ, true},
	{"<>", vm.OP_NE, true},
	{"!=", vm.OP_NE, true},
	{"<", vm.OP_LT, true},
	{"<=", vm.OP_LE, true},
	{">", vm.OP_GT, true},
	{">=", vm.OP_GE, true},

	// bitwise
	{"AND", vm.OP_AND, false},
	{"OR", vm.OP_OR, false},
	{"XOR", vm.OP_XOR, false},
	{"INVERT", vm.OP_INVERT, false},

	// memory
	{"@", vm.OP_LOAD, true},
	{"!", vm.OP_STORE, true},
	{"C@", vm.OP_LOAD8U, false},
	{"C!", vm.OP_STORE8, false},
	{"W@", vm.OP_LOAD16U, false},
	{"W!", vm.OP_STORE16, false},

	// system; the call id is supplied on the stack by a preceding LIT
	{"SYS", vm.OP_SYS, false},

	// tasks
	{"SPAWN", vm.OP_TASK_SPAWN, false},
	{"TASK-EXIT", vm.OP_TASK_EXIT, false},
	{"SLEEP", vm.OP_TASK_SLEEP, false},
	{"MS", vm.OP_TASK_SLEEP, false},
	{"YIELD", vm.OP_TASK_YIELD, false},
	{"PAUSE", vm.OP_TASK_YIELD, false},
	{"CRITICAL", vm.OP_CRITICAL_ENTER, false},
	{"UNCRITICAL", vm.OP_CRITICAL_EXIT, false},
	{"SEND", vm.OP_TASK_SEND, false},
	{"RECEIVE", vm.OP_TASK_RECEIVE, false},
	{"RECEIVE-BLOCKING", vm.OP_TASK_RECEIVE_BLK, false},
	{"ME", vm.OP_TASK_SELF, false},
	{"TASKS", vm.OP_TASK_COUNT, false},
}

// lookupPrimitive resolves a token to a single-opcode primitive.
func lookupPrimitive(tok []byte) (uint8, bool) {
	for i := range primTable {
		e := &primTable[i]
		if e.symbolic {
			if string(tok) == e.name {
				return e.opcode, true
			}
		} else if eqFoldBytes(tok, e.name) {
			return e.opcode, true
		}
	}
	return 0, false
}

// Composite words expand to canned byte sequences over primitives.
// Internal JZ/JMP offsets are pre-resolved relative constants, so the
// sequences can be appended verbatim at any position.
var compositeTable = map[string][]byte{
	// ( a b c -- b c a )
	"ROT": {vm.OP_TOR, vm.OP_SWAP, vm.OP_FROMR, vm.OP_SWAP},
	// ( a b -- b )
	"NIP": {vm.OP_SWAP, vm.OP_DROP},
	// ( a b -- b a b )
	"TUCK": {vm.OP_SWAP, vm.OP_OVER},
	// ( a b -- a b a b )
	"2DUP": {vm.OP_OVER, vm.OP_OVER},
	// ( a b -- )
	"2DROP": {vm.OP_DROP, vm.OP_DROP},
	// ( n -- -n )
	"NEGATE": {vm.OP_LIT0, vm.OP_SWAP, vm.OP_SUB},
	// ( n -- |n| ): DUP 0 < IF NEGATE THEN
	"ABS": {vm.OP_DUP, vm.OP_LIT0, vm.OP_LT, vm.OP_JZ, 0x03, 0x00,
		vm.OP_LIT0, vm.OP_SWAP, vm.OP_SUB},
	// ( x -- 0 | x x )
	"?DUP": {vm.OP_DUP, vm.OP_DUP, vm.OP_JZ, 0x01, 0x00, vm.OP_DUP},
	// ( a b -- min )
	"MIN": {vm.OP_OVER, vm.OP_OVER, vm.OP_LT, vm.OP_JZ, 0x04, 0x00,
		vm.OP_DROP, vm.OP_JMP, 0x02, 0x00, vm.OP_SWAP, vm.OP_DROP},
	// ( a b -- max )
	"MAX": {vm.OP_OVER, vm.OP_OVER, vm.OP_GT, vm.OP_JZ, 0x04, 0x00,
		vm.OP_DROP, vm.OP_JMP, 0x02, 0x00, vm.OP_SWAP, vm.OP_DROP},
	// ( n addr -- )
	"+!": {vm.OP_SWAP, vm.OP_OVER, vm.OP_LOAD, vm.OP_ADD, vm.OP_SWAP, vm.OP_STORE},

	// loop index accessors
	"I": {vm.OP_RFETCH},
	"J": {vm.OP_FROMR, vm.OP_FROMR, vm.OP_FROMR, vm.OP_DUP,
		vm.OP_TOR, vm.OP_TOR, vm.OP_TOR},
	"K": {vm.OP_FROMR, vm.OP_FROMR, vm.OP_FROMR, vm.OP_FROMR, vm.OP_FROMR,
		vm.OP_DUP, vm.OP_TOR, vm.OP_TOR, vm.OP_TOR, vm.OP_TOR, vm.OP_TOR},

	// console io over SYS
	"EMIT": {vm.OP_LIT, 0x30, 0x00, 0x00, 0x00, vm.OP_SYS},
	"KEY":  {vm.OP_LIT, 0x31, 0x00, 0x00, 0x00, vm.OP_SYS},
}

// lookupComposite resolves a token to its expansion, case-insensitively.
func lookupComposite(tok []byte) ([]byte, bool) {
	for name, seq := range compositeTable {
		if eqFoldBytes(tok, name) {
			return seq, true
		}
	}
	return nil, false
}
