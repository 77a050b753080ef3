package vm

// V4 opcode byte values. The assignments are part of the bytecode ABI
// and must not be renumbered.
const (
	OP_LIT  uint8 = 0x00
	OP_LIT0 uint8 = 0x01

	OP_ADD uint8 = 0x10
	OP_SUB uint8 = 0x11
	OP_MUL uint8 = 0x12
	OP_DIV uint8 = 0x13
	OP_MOD uint8 = 0x14

	OP_EQ uint8 = 0x20
	OP_NE uint8 = 0x21
	OP_LT uint8 = 0x22
	OP_LE uint8 = 0x23
	OP_GT uint8 = 0x24
	OP_GE uint8 = 0x25

	OP_AND    uint8 = 0x30
	OP_OR     uint8 = 0x31
	OP_XOR    uint8 = 0x32
	OP_INVERT uint8 = 0x33

	OP_DUP  uint8 = 0x40
	OP_DROP uint8 = 0x41
	OP_SWAP uint8 = 0x42
	OP_OVER uint8 = 0x43

	OP_TOR    uint8 = 0x44
	OP_FROMR  uint8 = 0x45
	OP_RFETCH uint8 = 0x46

	OP_LOAD    uint8 = 0x48
	OP_STORE   uint8 = 0x49
	OP_LOAD8U  uint8 = 0x4A
	OP_STORE8  uint8 = 0x4B
	OP_LOAD16U uint8 = 0x4C
	OP_STORE16 uint8 = 0x4D

	OP_JMP uint8 = 0x4E
	OP_JZ  uint8 = 0x4F

	OP_CALL uint8 = 0x50
	OP_RET  uint8 = 0x51

	OP_SYS uint8 = 0x60

	OP_LGET uint8 = 0x79
	OP_LSET uint8 = 0x7A
	OP_LINC uint8 = 0x80
	OP_LDEC uint8 = 0x81

	OP_TASK_SPAWN       uint8 = 0x90
	OP_TASK_EXIT        uint8 = 0x91
	OP_TASK_SLEEP       uint8 = 0x92
	OP_TASK_YIELD       uint8 = 0x93
	OP_CRITICAL_ENTER   uint8 = 0x94
	OP_CRITICAL_EXIT    uint8 = 0x95
	OP_TASK_SEND        uint8 = 0x96
	OP_TASK_RECEIVE     uint8 = 0x97
	OP_TASK_RECEIVE_BLK uint8 = 0x98
	OP_TASK_SELF        uint8 = 0x99
	OP_TASK_COUNT       uint8 = 0x9A
)

// ImmKind classifies the immediate operand that follows an opcode.
type ImmKind uint8

const (
	ImmNone  ImmKind = iota
	ImmI8            // signed 8-bit
	ImmI16           // signed 16-bit little-endian
	ImmI32           // signed 32-bit little-endian
	ImmRel16         // signed 16-bit branch offset, relative to the byte after it
	ImmIdx16         // unsigned 16-bit word index
)

// Size returns the immediate's width in bytes.
func (k ImmKind) Size() int {
	switch k {
	case ImmI8:
		return 1
	case ImmI16, ImmRel16, ImmIdx16:
		return 2
	case ImmI32:
		return 4
	default:
		return 0
	}
}

// OpInfo describes one opcode: mnemonic and immediate kind.
type OpInfo struct {
	Name string
	Code uint8
	Imm  ImmKind
}

var opTable = [...]OpInfo{
	{"LIT", OP_LIT, ImmI32},
	{"LIT0", OP_LIT0, ImmNone},
	{"ADD", OP_ADD, ImmNone},
	{"SUB", OP_SUB, ImmNone},
	{"MUL", OP_MUL, ImmNone},
	{"DIV", OP_DIV, ImmNone},
	{"MOD", OP_MOD, ImmNone},
	{"EQ", OP_EQ, ImmNone},
	{"NE", OP_NE, ImmNone},
	{"LT", OP_LT, ImmNone},
	{"LE", OP_LE, ImmNone},
	{"GT", OP_GT, ImmNone},
	{"GE", OP_GE, ImmNone},
	{"AND", OP_AND, ImmNone},
	{"OR", OP_OR, ImmNone},
	{"XOR", OP_XOR, ImmNone},
	{"INVERT", OP_INVERT, ImmNone},
	{"DUP", OP_DUP, ImmNone},
	{"DROP", OP_DROP, ImmNone},
	{"SWAP", OP_SWAP, ImmNone},
	{"OVER", OP_OVER, ImmNone},
	{"TOR", OP_TOR, ImmNone},
	{"FROMR", OP_FROMR, ImmNone},
	{"RFETCH", OP_RFETCH, ImmNone},
	{"LOAD", OP_LOAD, ImmNone},
	{"STORE", OP_STORE, ImmNone},
	{"LOAD8U", OP_LOAD8U, ImmNone},
	{"STORE8", OP_STORE8, ImmNone},
	{"LOAD16U", OP_LOAD16U, ImmNone},
	{"STORE16", OP_STORE16, ImmNone},
	{"JMP", OP_JMP, ImmRel16},
	{"JZ", OP_JZ, ImmRel16},
	{"CALL", OP_CALL, ImmIdx16},
	{"RET", OP_RET, ImmNone},
	{"SYS", OP_SYS, ImmNone},
	{"LGET", OP_LGET, ImmI8},
	{"LSET", OP_LSET, ImmI8},
	{"LINC", OP_LINC, ImmI8},
	{"LDEC", OP_LDEC, ImmI8},
	{"TASK_SPAWN", OP_TASK_SPAWN, ImmNone},
	{"TASK_EXIT", OP_TASK_EXIT, ImmNone},
	{"TASK_SLEEP", OP_TASK_SLEEP, ImmNone},
	{"TASK_YIELD", OP_TASK_YIELD, ImmNone},
	{"CRITICAL_ENTER", OP_CRITICAL_ENTER, ImmNone},
	{"CRITICAL_EXIT", OP_CRITICAL_EXIT, ImmNone},
	{"TASK_SEND", OP_TASK_SEND, ImmNone},
	{"TASK_RECEIVE", OP_TASK_RECEIVE, ImmNone},
	{"TASK_RECEIVE_BLOCKING", OP_TASK_RECEIVE_BLK, ImmNone},
	{"TASK_SELF", OP_TASK_SELF, ImmNone},
	{"TASK_COUNT", OP_TASK_COUNT, ImmNone},
}

var opByCode [256]*OpInfo

func init() {
	for i := range opTable {
		opByCode[opTable[i].Code] = &opTable[i]
	}
}

// Lookup returns the OpInfo for a byte value. The second result is
// false for bytes outside the opcode set.
func Lookup(code uint8) (OpInfo, bool) {
	if info := opByCode[code]; info != nil {
		return *info, true
	}
	return OpInfo{Name: "???", Code: code, Imm: ImmNone}, false
}
