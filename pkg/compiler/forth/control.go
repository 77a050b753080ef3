package forth

import (
	"github.com/V4-project/v4front/pkg/compiler/lexer"
	"github.com/V4-project/v4front/pkg/vm"
)

const (
	maxControlDepth = 32
	maxLeaves       = 8
)

type frameKind uint8

const (
	frameIf frameKind = iota
	frameBegin
	frameDo
)

// frame tracks one open IF, BEGIN, or DO construct. Patch sites are
// byte indices into the stream that was current when the construct
// opened.
type frame struct {
	kind frameKind

	// IF
	jzPatch  int
	jmpPatch int
	hasElse  bool

	// BEGIN
	beginAddr  int
	whilePatch int
	hasWhile   bool

	// DO
	doAddr       int
	leavePatches [maxLeaves]int
	leaveCount   int
}

// top returns the innermost frame opened in the current stream, or
// nil. Frames opened before a colon definition are not visible inside
// it.
func (c *compilation) top() *frame {
	if c.depth <= c.frameFloor {
		return nil
	}
	return &c.frames[c.depth-1]
}

func (c *compilation) push(f frame) bool {
	if c.depth >= maxControlDepth {
		return false
	}
	c.frames[c.depth] = f
	c.depth++
	return true
}

// relTo computes the Rel16 offset stored at patchPos so that the
// branch lands on target: target - (patchPos + 2).
func relTo(target, patchPos int) int16 {
	return int16(target - (patchPos + 2))
}

func (c *compilation) compileIf(tok lexer.Token) error {
	if c.depth >= maxControlDepth {
		return c.errAt(ErrControlDepthExceeded, tok)
	}
	c.cur.AppendU8(vm.OP_JZ)
	patch := c.cur.Len()
	c.cur.AppendI16(0)
	c.push(frame{kind: frameIf, jzPatch: patch})
	return nil
}

func (c *compilation) compileElse(tok lexer.Token) error {
	f := c.top()
	if f == nil || f.kind != frameIf {
		return c.errAt(ErrElseWithoutIf, tok)
	}
	if f.hasElse {
		return c.errAt(ErrDuplicateElse, tok)
	}

	c.cur.AppendU8(vm.OP_JMP)
	jmpPatch := c.cur.Len()
	c.cur.AppendI16(0)

	// The false branch starts after this JMP.
	c.cur.PatchI16(f.jzPatch, relTo(c.cur.Len(), f.jzPatch))

	f.jmpPatch = jmpPatch
	f.hasElse = true
	return nil
}

func (c *compilation) compileThen(tok lexer.Token) error {
	f := c.top()
	if f == nil || f.kind != frameIf {
		return c.errAt(ErrThenWithoutIf, tok)
	}
	c.depth--

	if f.hasElse {
		c.cur.PatchI16(f.jmpPatch, relTo(c.cur.Len(), f.jmpPatch))
	} else {
		c.cur.PatchI16(f.jzPatch, relTo(c.cur.Len(), f.jzPatch))
	}
	return nil
}

func (c *compilation) compileBegin(tok lexer.Token) error {
	if c.depth >= maxControlDepth {
		return c.errAt(ErrControlDepthExceeded, tok)
	}
	c.push(frame{kind: frameBegin, beginAddr: c.cur.Len()})
	return nil
}

func (c *compilation) compileUntil(tok lexer.Token) error {
	f := c.top()
	if f == nil || f.kind != frameBegin {
		return c.errAt(ErrUntilWithoutBegin, tok)
	}
	if f.hasWhile {
		return c.errAt(ErrUntilAfterWhile, tok)
	}

	c.cur.AppendU8(vm.OP_JZ)
	pos := c.cur.Len()
	c.cur.AppendI16(relTo(f.beginAddr, pos))
	c.depth--
	return nil
}

func (c *compilation) compileWhile(tok lexer.Token) error {
	f := c.top()
	if f == nil || f.kind != frameBegin {
		return c.errAt(ErrWhileWithoutBegin, tok)
	}
	if f.hasWhile {
		return c.errAt(ErrDuplicateWhile, tok)
	}

	c.cur.AppendU8(vm.OP_JZ)
	f.whilePatch = c.cur.Len()
	c.cur.AppendI16(0)
	f.hasWhile = true
	return nil
}

func (c *compilation) compileRepeat(tok lexer.Token) error {
	f := c.top()
	if f == nil || f.kind != frameBegin {
		return c.errAt(ErrRepeatWithoutBegin, tok)
	}
	if !f.hasWhile {
		return c.errAt(ErrRepeatWithoutWhile, tok)
	}

	c.cur.AppendU8(vm.OP_JMP)
	pos := c.cur.Len()
	c.cur.AppendI16(relTo(f.beginAddr, pos))

	// WHILE's JZ exits to just past the back jump.
	c.cur.PatchI16(f.whilePatch, relTo(c.cur.Len(), f.whilePatch))
	c.depth--
	return nil
}

func (c *compilation) compileAgain(tok lexer.Token) error {
	f := c.top()
	if f == nil || f.kind != frameBegin {
		return c.errAt(ErrAgainWithoutBegin, tok)
	}
	if f.hasWhile {
		return c.errAt(ErrAgainAfterWhile, tok)
	}

	c.cur.AppendU8(vm.OP_JMP)
	pos := c.cur.Len()
	c.cur.AppendI16(relTo(f.beginAddr, pos))
	c.depth--
	return nil
}

// compileDo emits the ( limit index -- ) preamble SWAP TOR TOR; the
// recorded address is the loop body start, after the preamble.
func (c *compilation) compileDo(tok lexer.Token) error {
	if c.depth >= maxControlDepth {
		return c.errAt(ErrControlDepthExceeded, tok)
	}
	c.cur.AppendU8(vm.OP_SWAP)
	c.cur.AppendU8(vm.OP_TOR)
	c.cur.AppendU8(vm.OP_TOR)
	c.push(frame{kind: frameDo, doAddr: c.cur.Len()})
	return nil
}

// compileLoop closes DO with the LOOP or +LOOP macro: pull (index,
// limit) off the return stack, advance the index, compare, either
// re-enter the body or fall through to the DROP DROP cleanup.
func (c *compilation) compileLoop(tok lexer.Token, plus bool) error {
	f := c.top()
	if f == nil || f.kind != frameDo {
		if plus {
			return c.errAt(ErrPLoopWithoutDo, tok)
		}
		return c.errAt(ErrLoopWithoutDo, tok)
	}

	c.cur.AppendU8(vm.OP_FROMR)
	if !plus {
		c.cur.AppendU8(vm.OP_LIT)
		c.cur.AppendI32(1)
	}
	c.cur.AppendU8(vm.OP_ADD)
	c.cur.AppendU8(vm.OP_FROMR)
	c.cur.AppendU8(vm.OP_OVER)
	c.cur.AppendU8(vm.OP_OVER)
	c.cur.AppendU8(vm.OP_LT)

	c.cur.AppendU8(vm.OP_JZ)
	jzPatch := c.cur.Len()
	c.cur.AppendI16(0)

	c.cur.AppendU8(vm.OP_SWAP)
	c.cur.AppendU8(vm.OP_TOR)
	c.cur.AppendU8(vm.OP_TOR)

	c.cur.AppendU8(vm.OP_JMP)
	pos := c.cur.Len()
	c.cur.AppendI16(relTo(f.doAddr, pos))

	// Loop-exhausted path: drop the copies left by the test.
	c.cur.PatchI16(jzPatch, relTo(c.cur.Len(), jzPatch))
	c.cur.AppendU8(vm.OP_DROP)
	c.cur.AppendU8(vm.OP_DROP)

	// LEAVE already unwound the return stack; it lands after the
	// cleanup.
	exit := c.cur.Len()
	for i := 0; i < f.leaveCount; i++ {
		c.cur.PatchI16(f.leavePatches[i], relTo(exit, f.leavePatches[i]))
	}

	c.depth--
	return nil
}

// compileLeave exits the innermost DO loop: unwind (index, limit)
// from the return stack, then jump past the loop's cleanup.
func (c *compilation) compileLeave(tok lexer.Token) error {
	var f *frame
	for i := c.depth - 1; i >= c.frameFloor; i-- {
		if c.frames[i].kind == frameDo {
			f = &c.frames[i]
			break
		}
	}
	if f == nil {
		return c.errAt(ErrLeaveWithoutDo, tok)
	}
	if f.leaveCount >= maxLeaves {
		return c.errAt(ErrLeaveDepthExceeded, tok)
	}

	c.cur.AppendU8(vm.OP_FROMR)
	c.cur.AppendU8(vm.OP_FROMR)
	c.cur.AppendU8(vm.OP_DROP)
	c.cur.AppendU8(vm.OP_DROP)
	c.cur.AppendU8(vm.OP_JMP)
	f.leavePatches[f.leaveCount] = c.cur.Len()
	f.leaveCount++
	c.cur.AppendI16(0)
	return nil
}
