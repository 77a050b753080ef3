package forth

import (
	"github.com/V4-project/v4front/pkg/compiler/emitter"
	"github.com/V4-project/v4front/pkg/compiler/lexer"
	"github.com/V4-project/v4front/pkg/vm"
)

// DefaultDataSpaceBase is the address assigned to the first VARIABLE.
const DefaultDataSpaceBase uint32 = 0x10000

// Compiler configures a compilation. The zero value compiles without
// cross-call context at the default data-space base.
type Compiler struct {
	// Context resolves word references across Compile calls. May be nil.
	Context *Context
	// DataSpaceBase overrides the VARIABLE allocation base when nonzero.
	DataSpaceBase uint32
}

// Compile translates source into a Unit. On failure the Unit is nil
// and the error is a *Error carrying the stable code and the source
// position of the offending token.
func Compile(source []byte) (*Unit, error) {
	return (&Compiler{}).Compile(source)
}

// CompileNamed is Compile with a reserved name parameter, kept for
// ABI compatibility. The name is currently unused.
func CompileNamed(name string, source []byte) (*Unit, error) {
	_ = name
	return Compile(source)
}

// CompileWithContext compiles source against an existing word
// registry, so the source may call words registered on ctx.
func CompileWithContext(ctx *Context, source []byte) (*Unit, error) {
	return (&Compiler{Context: ctx}).Compile(source)
}

// Compile runs a full single-pass compilation.
func (cc *Compiler) Compile(source []byte) (*Unit, error) {
	base := cc.DataSpaceBase
	if base == 0 {
		base = DefaultDataSpaceBase
	}
	c := &compilation{
		scan:    lexer.NewScanner(source),
		src:     source,
		main:    emitter.New(),
		ctx:     cc.Context,
		dataPtr: base,
	}
	c.cur = c.main
	return c.run()
}

// lastLit remembers the most recent integer literal emission so that
// CONSTANT can take it back off the stream.
type lastLit struct {
	valid  bool
	value  int32
	pos    int
	stream *emitter.Emitter
}

type compilation struct {
	scan *lexer.Scanner
	src  []byte

	main *emitter.Emitter
	word *emitter.Emitter // per-word stream while a definition is open
	cur  *emitter.Emitter

	words   []Word
	ctx     *Context
	dataPtr uint32

	frames     [maxControlDepth]frame
	depth      int
	frameFloor int // frames below this index belong to the enclosing stream

	inDef   bool
	defName string

	lit lastLit
}

func (c *compilation) run() (*Unit, error) {
	for {
		tok, err := c.scan.Next()
		if err != nil {
			return nil, c.errEOF(ErrUnterminatedComment)
		}
		if tok.Kind == lexer.KindEOF {
			break
		}
		if err := c.dispatch(tok); err != nil {
			return nil, err
		}
	}

	if c.inDef {
		return nil, c.errEOF(ErrUnclosedColon)
	}
	if c.depth > 0 {
		return nil, c.errEOF(c.unclosedCode())
	}

	// A JMP in the last three bytes means AGAIN/REPEAT ended the
	// stream; the trailing RET would be unreachable.
	if !c.endsWithJmp() {
		c.main.AppendU8(vm.OP_RET)
	}

	return &Unit{Main: c.main.Detach(), Words: c.words}, nil
}

func (c *compilation) endsWithJmp() bool {
	b := c.main.Bytes()
	return len(b) >= 3 && b[len(b)-3] == vm.OP_JMP
}

func (c *compilation) unclosedCode() Code {
	switch c.frames[c.depth-1].kind {
	case frameIf:
		return ErrUnclosedIf
	case frameBegin:
		return ErrUnclosedBegin
	default:
		return ErrUnclosedDo
	}
}

// dispatch routes one token. Order matters: definition keywords,
// control flow, defining words, integer literals, dictionary words,
// primitives, composites.
func (c *compilation) dispatch(tok lexer.Token) error {
	text := c.scan.Text(tok)

	// CONSTANT consumes the literal emitted by the previous token, so
	// the marker must be cleared for every other path.
	lit := c.lit
	c.lit = lastLit{}

	if len(text) == 1 {
		switch text[0] {
		case ':':
			return c.compileColon(tok)
		case ';':
			return c.compileSemicolon(tok)
		}
	}

	switch {
	case eqFoldBytes(text, "IF"):
		return c.compileIf(tok)
	case eqFoldBytes(text, "ELSE"):
		return c.compileElse(tok)
	case eqFoldBytes(text, "THEN"):
		return c.compileThen(tok)
	case eqFoldBytes(text, "BEGIN"):
		return c.compileBegin(tok)
	case eqFoldBytes(text, "UNTIL"):
		return c.compileUntil(tok)
	case eqFoldBytes(text, "WHILE"):
		return c.compileWhile(tok)
	case eqFoldBytes(text, "REPEAT"):
		return c.compileRepeat(tok)
	case eqFoldBytes(text, "AGAIN"):
		return c.compileAgain(tok)
	case eqFoldBytes(text, "DO"):
		return c.compileDo(tok)
	case eqFoldBytes(text, "LOOP"):
		return c.compileLoop(tok, false)
	case eqFoldBytes(text, "+LOOP"):
		return c.compileLoop(tok, true)
	case eqFoldBytes(text, "LEAVE"):
		return c.compileLeave(tok)
	case eqFoldBytes(text, "EXIT"):
		c.cur.AppendU8(vm.OP_RET)
		return nil
	case eqFoldBytes(text, "RECURSE"):
		return c.compileRecurse(tok)
	case eqFoldBytes(text, "CONSTANT"):
		return c.compileConstant(tok, lit)
	case eqFoldBytes(text, "VARIABLE"):
		return c.compileVariable(tok)
	case eqFoldBytes(text, "L@"):
		return c.compileLocal(tok, vm.OP_LGET)
	case eqFoldBytes(text, "L!"):
		return c.compileLocal(tok, vm.OP_LSET)
	case eqFoldBytes(text, "L++"):
		return c.compileLocal(tok, vm.OP_LINC)
	case eqFoldBytes(text, "L--"):
		return c.compileLocal(tok, vm.OP_LDEC)
	}

	// Integer literal: decimal, 0x hex, leading-0 octal.
	if v, st := parseInt32(text); st == intOK {
		pos := c.cur.Len()
		c.cur.AppendU8(vm.OP_LIT)
		c.cur.AppendI32(v)
		c.lit = lastLit{valid: true, value: v, pos: pos, stream: c.cur}
		return nil
	} else if st == intRange {
		return c.errAt(ErrInvalidInteger, tok)
	}

	// Dictionary word.
	if idx, ok := c.findWord(text); ok {
		c.cur.AppendU8(vm.OP_CALL)
		c.cur.AppendI16(int16(idx))
		return nil
	}

	// Primitive.
	if op, ok := lookupPrimitive(text); ok {
		c.cur.AppendU8(op)
		return nil
	}

	// Composite expansion.
	if seq, ok := lookupComposite(text); ok {
		for _, b := range seq {
			c.cur.AppendU8(b)
		}
		return nil
	}

	return c.errAt(ErrUnknownToken, tok)
}

// findWord resolves a name to a CALL index: unit-local words first
// (offset past the context's registrations), then the context.
func (c *compilation) findWord(name []byte) (int, bool) {
	off := 0
	if c.ctx != nil {
		off = c.ctx.WordCount()
	}
	for i := range c.words {
		if eqFoldBytes(name, c.words[i].Name) {
			return off + i, true
		}
	}
	if c.ctx != nil {
		if idx := c.ctx.FindWord(string(name)); idx >= 0 {
			return idx, true
		}
	}
	return 0, false
}

func (c *compilation) nameExists(name string) bool {
	for i := range c.words {
		if eqFold(name, c.words[i].Name) {
			return true
		}
	}
	return c.ctx != nil && c.ctx.FindWord(name) >= 0
}

// errAt builds an Error anchored at a token.
func (c *compilation) errAt(code Code, tok lexer.Token) *Error {
	return &Error{
		Code:     code,
		Position: int(tok.Offset),
		Line:     int(tok.Line),
		Column:   int(tok.Column),
		Token:    string(c.scan.Text(tok)),
		Context:  sourceLine(c.src, int(tok.Offset)),
	}
}

// errEOF builds an Error for conditions detected at end of input.
func (c *compilation) errEOF(code Code) *Error {
	pos := len(c.src)
	return &Error{
		Code:     code,
		Position: pos,
		Line:     countLines(c.src),
		Column:   lastColumn(c.src),
		Context:  sourceLine(c.src, pos),
	}
}

func sourceLine(src []byte, pos int) string {
	if pos > len(src) {
		pos = len(src)
	}
	start := pos
	for start > 0 && src[start-1] != '\n' {
		start--
	}
	end := pos
	for end < len(src) && src[end] != '\n' {
		end++
	}
	return string(src[start:end])
}

func countLines(src []byte) int {
	line := 1
	for _, b := range src {
		if b == '\n' {
			line++
		}
	}
	return line
}

func lastColumn(src []byte) int {
	col := 1
	for _, b := range src {
		if b == '\n' {
			col = 1
		} else {
			col++
		}
	}
	return col
}

type intStatus int

const (
	intOK intStatus = iota
	intNotInt
	intRange
)

// parseInt32 parses decimal, 0x-prefixed hex, and leading-zero octal
// with an optional sign. The whole token must be consumed; values
// outside int32 report intRange.
func parseInt32(text []byte) (int32, intStatus) {
	if len(text) == 0 {
		return 0, intNotInt
	}

	i := 0
	neg := false
	if text[i] == '+' || text[i] == '-' {
		neg = text[i] == '-'
		i++
	}
	if i >= len(text) {
		return 0, intNotInt
	}

	base := int64(10)
	if text[i] == '0' && i+1 < len(text) {
		if text[i+1] == 'x' || text[i+1] == 'X' {
			base = 16
			i += 2
			if i >= len(text) {
				return 0, intNotInt
			}
		} else {
			base = 8
			i++
		}
	}

	var value int64
	digits := 0
	for ; i < len(text); i++ {
		d := digitValue(text[i])
		if d < 0 || int64(d) >= base {
			return 0, intNotInt
		}
		value = value*base + int64(d)
		digits++
		if value > 1<<33 {
			// Far enough past the int32 range to call it overflow
			// without risking int64 wraparound on long tokens.
			return 0, intRange
		}
	}
	if digits == 0 {
		return 0, intNotInt
	}

	if neg {
		value = -value
	}
	if value < -2147483648 || value > 2147483647 {
		return 0, intRange
	}
	return int32(value), intOK
}

func digitValue(b byte) int {
	switch {
	case b >= '0' && b <= '9':
		return int(b - '0')
	case b >= 'a' && b <= 'f':
		return int(b-'a') + 10
	case b >= 'A' && b <= 'F':
		return int(b-'A') + 10
	default:
		return -1
	}
}
