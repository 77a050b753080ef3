package forth

import (
	"github.com/V4-project/v4front/pkg/compiler/emitter"
	"github.com/V4-project/v4front/pkg/compiler/lexer"
	"github.com/V4-project/v4front/pkg/vm"
)

// nextToken pulls the operand token for defining words and
// operand-carrying instructions. ok is false at end of input.
func (c *compilation) nextToken() (lexer.Token, bool, error) {
	tok, err := c.scan.Next()
	if err != nil {
		return tok, false, c.errEOF(ErrUnterminatedComment)
	}
	if tok.Kind == lexer.KindEOF {
		return tok, false, nil
	}
	return tok, true, nil
}

// wordIndexBase is the global index of the first unit-local word.
func (c *compilation) wordIndexBase() int {
	if c.ctx != nil {
		return c.ctx.WordCount()
	}
	return 0
}

func (c *compilation) compileColon(tok lexer.Token) error {
	if c.inDef {
		return c.errAt(ErrNestedColon, tok)
	}

	name, ok, err := c.nextToken()
	if err != nil {
		return err
	}
	if !ok {
		return c.errAt(ErrColonWithoutName, tok)
	}
	text := string(c.scan.Text(name))
	if len(text) > MaxNameLen {
		text = text[:MaxNameLen]
	}
	if c.nameExists(text) {
		return c.errAt(ErrDuplicateWord, name)
	}
	if len(c.words) >= MaxWords {
		return c.errAt(ErrDictionaryFull, name)
	}

	c.word = emitter.New()
	c.cur = c.word
	c.inDef = true
	c.defName = text
	c.frameFloor = c.depth
	c.lit = lastLit{}
	return nil
}

func (c *compilation) compileSemicolon(tok lexer.Token) error {
	if !c.inDef {
		return c.errAt(ErrSemicolonWithoutColon, tok)
	}
	if c.depth > c.frameFloor {
		return c.errAt(c.unclosedCode(), tok)
	}

	c.word.AppendU8(vm.OP_RET)
	c.words = append(c.words, Word{Name: c.defName, Kind: KindWord, Code: c.word.Detach()})

	c.word = nil
	c.cur = c.main
	c.inDef = false
	c.defName = ""
	c.frameFloor = 0
	return nil
}

// compileConstant rewrites the literal emitted by the previous token
// into a dictionary entry whose body is LIT <value> RET.
func (c *compilation) compileConstant(tok lexer.Token, lit lastLit) error {
	if !lit.valid || lit.stream != c.cur || lit.pos+5 != c.cur.Len() {
		return c.errAt(ErrConstantWithoutValue, tok)
	}

	name, ok, err := c.nextToken()
	if err != nil {
		return err
	}
	if !ok {
		return c.errAt(ErrConstantWithoutName, tok)
	}
	text := string(c.scan.Text(name))
	if len(text) > MaxNameLen {
		text = text[:MaxNameLen]
	}
	if c.nameExists(text) {
		return c.errAt(ErrDuplicateWord, name)
	}
	if len(c.words) >= MaxWords {
		return c.errAt(ErrDictionaryFull, name)
	}

	c.cur.Truncate(lit.pos)

	body := emitter.New()
	body.AppendU8(vm.OP_LIT)
	body.AppendI32(lit.value)
	body.AppendU8(vm.OP_RET)
	c.words = append(c.words, Word{Name: text, Kind: KindConstant, Code: body.Detach()})
	return nil
}

// compileVariable allocates four bytes of data space and defines a
// word pushing the cell's address.
func (c *compilation) compileVariable(tok lexer.Token) error {
	name, ok, err := c.nextToken()
	if err != nil {
		return err
	}
	if !ok {
		return c.errAt(ErrVariableWithoutName, tok)
	}
	text := string(c.scan.Text(name))
	if len(text) > MaxNameLen {
		text = text[:MaxNameLen]
	}
	if c.nameExists(text) {
		return c.errAt(ErrDuplicateWord, name)
	}
	if len(c.words) >= MaxWords {
		return c.errAt(ErrDictionaryFull, name)
	}

	addr := c.dataPtr
	c.dataPtr += 4

	body := emitter.New()
	body.AppendU8(vm.OP_LIT)
	body.AppendI32(int32(addr))
	body.AppendU8(vm.OP_RET)
	c.words = append(c.words, Word{Name: text, Kind: KindVariable, Code: body.Detach()})
	return nil
}

// compileRecurse calls the definition currently being compiled; its
// index is the one the open definition will occupy once sealed.
func (c *compilation) compileRecurse(tok lexer.Token) error {
	if !c.inDef {
		return c.errAt(ErrRecurseOutsideWord, tok)
	}
	idx := c.wordIndexBase() + len(c.words)
	c.cur.AppendU8(vm.OP_CALL)
	c.cur.AppendI16(int16(idx))
	return nil
}

// compileLocal handles L@/L!/L++/L--, which take an unsigned 8-bit
// local slot index from the following token.
func (c *compilation) compileLocal(tok lexer.Token, op uint8) error {
	idxTok, ok, err := c.nextToken()
	if err != nil {
		return err
	}
	if !ok {
		return c.errAt(ErrMissingLocalIdx, tok)
	}
	v, st := parseInt32(c.scan.Text(idxTok))
	if st != intOK || v < 0 || v > 255 {
		return c.errAt(ErrInvalidLocalIdx, idxTok)
	}

	c.cur.AppendU8(op)
	c.cur.AppendU8(uint8(v))
	return nil
}
