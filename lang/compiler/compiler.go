// Package compiler implements lox's single-pass compiler: a recursive
// descent parser that emits bytecode directly as it recognizes each
// construct, with no separate AST. Scope resolution and closure capture
// tracking happen inline, in the same pass.
package compiler

import (
	"fmt"
	"strings"

	"github.com/google/uuid"
	"golang.org/x/exp/slices"

	"github.com/loxlang/lox/lang/machine"
	"github.com/loxlang/lox/lang/native"
	"github.com/loxlang/lox/lang/opcode"
	"github.com/loxlang/lox/lang/scanner"
	"github.com/loxlang/lox/lang/token"
	"github.com/loxlang/lox/lang/value"
)

type localVar struct {
	name  string
	scope int
}

// Compiler holds all in-progress compilation state: the stack of
// functions being compiled (top = currently compiled), a per-function
// stack of local tables, the current scope depth, the globals declared
// at scope 0, and the accumulated error list.
type Compiler struct {
	vm *machine.VM
	sc scanner.Scanner
	cur scanner.TokenAndValue

	scopeDepth int
	globals    []string
	errs       ErrorList
	functions  []*machine.Function
	locals     [][]localVar
}

// New constructs a Compiler that will compile source into vm's constant
// pool, function table and loop table.
func New(vm *machine.VM, source string) *Compiler {
	c := &Compiler{vm: vm}
	c.functions = []*machine.Function{machine.NewMainFunction()}
	c.locals = [][]localVar{nil}
	c.sc.Init(source, func(pos token.Pos, msg string) {
		c.errs = append(c.errs, &CompileError{Pos: pos, Msg: msg})
	})
	c.cur = c.sc.Scan()
	return c
}

// Compile compiles the entire source unit and returns the finished
// top-level function. If any error was recorded during compilation, it
// returns a non-empty ErrorList instead and the returned function is nil.
func (c *Compiler) Compile() (*machine.Function, error) {
	for c.cur.Token != token.EOF {
		c.compileDeclaration()
	}
	if len(c.errs) > 0 {
		return nil, c.errs
	}
	return c.functions[0], nil
}

// --- token stream helpers ---

func (c *Compiler) advance() scanner.TokenAndValue {
	tok := c.cur
	c.cur = c.sc.Scan()
	return tok
}

func (c *Compiler) expect(tok token.Token) {
	if c.cur.Token != tok {
		c.errorf(c.cur.Pos, "expected %#v, got %#v", tok, c.cur.Token)
		return
	}
	c.advance()
}

func (c *Compiler) errorf(pos token.Pos, format string, args ...any) {
	c.errs = append(c.errs, &CompileError{Pos: pos, Msg: fmt.Sprintf(format, args...)})
}

func (c *Compiler) function() *machine.Function {
	return c.functions[len(c.functions)-1]
}

func (c *Compiler) localsTable() []localVar {
	return c.locals[len(c.locals)-1]
}

func (c *Compiler) pushLocal(name string, scope int) {
	i := len(c.locals) - 1
	c.locals[i] = append(c.locals[i], localVar{name: name, scope: scope})
}

// resolveLocal searches the current function's local table from newest
// to oldest, returning its slot (its position in the table, which is
// also its position in the callee's runtime frame).
func (c *Compiler) resolveLocal(name string) (int, bool) {
	table := c.localsTable()
	for i := len(table) - 1; i >= 0; i-- {
		if table[i].name == name {
			return i, true
		}
	}
	return 0, false
}

// resolveCapture searches enclosing (already-open) function scopes, from
// innermost to outermost, for name. The returned frame index is the
// absolute position of that scope in c.locals (and, not coincidentally,
// in the runtime frame stack at the moment the enclosing MakeClosure
// runs), and slot is the variable's position within that scope's table.
func (c *Compiler) resolveCapture(name string) (frame, slot int, ok bool) {
	if len(c.locals) < 2 {
		return 0, 0, false
	}
	for frameIdx := len(c.locals) - 2; frameIdx >= 0; frameIdx-- {
		table := c.locals[frameIdx]
		for slotIdx := len(table) - 1; slotIdx >= 0; slotIdx-- {
			if table[slotIdx].name == name {
				return frameIdx, slotIdx, true
			}
		}
	}
	return 0, 0, false
}

func (c *Compiler) emitConstant(v value.Value) {
	idx := c.vm.AddConstant(v)
	c.function().AddOp(opcode.Constant)
	c.function().AddWord(idx)
}

func (c *Compiler) constantIndex(v value.Value) int {
	return c.vm.AddConstant(v)
}

// markLine stamps the current function's bytecode with the line of the
// token about to be compiled, so a runtime error raised while executing
// it can report that line back.
func (c *Compiler) markLine() {
	line, _ := c.cur.Pos.LineCol()
	c.function().SetLine(line)
}

// --- declarations ---

func (c *Compiler) compileDeclaration() {
	c.markLine()
	switch c.cur.Token {
	case token.LET:
		c.advance()
		c.compileLet()
	case token.FUN:
		c.advance()
		c.compileFun()
	case token.ENUM:
		c.advance()
		c.compileEnum()
	case token.RETURN:
		c.advance()
		c.compileReturn()
	default:
		c.compileStatement(true)
	}
}

func (c *Compiler) compileLet() {
	tok := c.advance()
	if tok.Token != token.IDENT {
		c.errorf(tok.Pos, "expected identifier, got %#v", tok.Token)
		return
	}
	name := tok.Raw

	if c.cur.Token == token.EQ {
		c.advance()
		c.compileExpression()
	} else {
		c.function().AddOp(opcode.NilOp)
	}
	c.expect(token.SEMI)

	if c.scopeDepth == 0 {
		c.globals = append(c.globals, name)
		c.function().AddOp(opcode.DefGlobal)
		c.function().AddWord(c.constantIndex(value.String(name)))
		return
	}

	if name == "_" {
		return
	}
	scope := c.scopeDepth
	if slices.IndexFunc(c.localsTable(), func(lv localVar) bool {
		return lv.name == name && lv.scope == scope
	}) >= 0 {
		c.errorf(tok.Pos, "variable %q is already defined", name)
		return
	}
	c.pushLocal(name, c.scopeDepth)
}

func (c *Compiler) compileFun() {
	tok := c.advance()
	if tok.Token != token.IDENT {
		c.errorf(tok.Pos, "expected function name, got %#v", tok.Token)
		return
	}
	name := tok.Raw

	if c.vm.FunctionExists(c.scopeDepth, name) {
		c.errorf(tok.Pos, "function %q already exists", name)
		return
	}
	if _, ok := native.Resolve(name); ok {
		c.errorf(tok.Pos, "function %q already exists", name)
		return
	}
	if slices.Contains(c.globals, name) {
		c.errorf(tok.Pos, "function %q collides with a global variable", name)
		return
	}

	c.expect(token.LPAREN)
	c.scopeDepth++
	c.locals = append(c.locals, nil)
	arity := 0
	if c.cur.Token != token.RPAREN {
		for {
			pt := c.advance()
			if pt.Token != token.IDENT {
				c.errorf(pt.Pos, "expected parameter name, got %#v", pt.Token)
				break
			}
			arity++
			c.pushLocal(pt.Raw, c.scopeDepth)
			if c.cur.Token == token.COMMA {
				c.advance()
				continue
			}
			break
		}
	}
	c.expect(token.RPAREN)

	c.functions = append(c.functions, machine.NewFunction(name, arity))
	c.compileStatement(false)
	if hr := c.function().HasReturn; hr != nil && !*hr {
		c.function().AddOp(opcode.NilOp)
		c.function().AddOp(opcode.Return)
	}

	c.scopeDepth--
	fn := c.functions[len(c.functions)-1]
	c.functions = c.functions[:len(c.functions)-1]
	c.locals = c.locals[:len(c.locals)-1]
	address := c.vm.AddFunction(c.scopeDepth, fn)
	if c.scopeDepth > 0 {
		c.function().AddOp(opcode.MakeClosure)
		c.function().AddWord(address)
	}
}

// compileEnum registers each option of NAME as a global EnumOption value,
// named by the bare option name (the grammar has no member-access
// operator, so an option is read back simply as an identifier — the
// same path an ordinary global takes), regardless of the scope the
// declaration appears in: an enum is process-wide, like a native.
func (c *Compiler) compileEnum() {
	tok := c.advance()
	if tok.Token != token.IDENT {
		c.errorf(tok.Pos, "expected enum name, got %#v", tok.Token)
		return
	}
	enumName := tok.Raw
	c.expect(token.LBRACE)
	for c.cur.Token == token.IDENT {
		opt := c.advance()
		if c.vm.FunctionExists(c.scopeDepth, opt.Raw) {
			c.errorf(opt.Pos, "enum option %q collides with a function", opt.Raw)
		}
		c.globals = append(c.globals, opt.Raw)
		c.emitConstant(value.EnumOption{Tag: enumName, Payload: opt.Raw})
		c.function().AddOp(opcode.DefGlobal)
		c.function().AddWord(c.constantIndex(value.String(opt.Raw)))
		c.expect(token.SEMI)
	}
	c.expect(token.RBRACE)
}

// compileReturn emits the expression and a Return into the current
// function. A `return` always escapes the entire enclosing function, not
// just an enclosing while loop: if the current function is a loop body,
// each enclosing loop function in turn is finalized (popped, registered
// in the loop table) with its own Return, and a matching `Loop name` is
// emitted one level out so that call unwinds the moment it runs. Once
// the cascade reaches a non-loop function, the trailing Return below
// still applies to it, so the return keeps propagating out of the real
// function that encloses the whole loop nest.
func (c *Compiler) compileReturn() {
	c.compileExpression()
	c.expect(token.SEMI)

	if c.function().IsLoop {
		for {
			c.scopeDepth--
			c.function().AddOp(opcode.Return)
			fn := c.functions[len(c.functions)-1]
			c.functions = c.functions[:len(c.functions)-1]
			c.locals = c.locals[:len(c.locals)-1]
			c.vm.AddLoop(fn)

			c.function().AddOp(opcode.Loop)
			c.function().AddWord(c.constantIndex(value.String(fn.Name)))

			if !c.function().IsLoop {
				break
			}
		}
	}

	c.function().AddOp(opcode.Return)
	c.function().AlreadyReturns()
}

// --- statements ---

func (c *Compiler) compileStatement(manageScope bool) {
	c.markLine()
	switch c.cur.Token {
	case token.IF:
		c.advance()
		c.compileIf()

	case token.WHILE:
		c.advance()
		c.compileWhile()

	case token.LBRACE:
		c.advance()
		if manageScope {
			c.scopeDepth++
		}
		for c.cur.Token != token.RBRACE && c.cur.Token != token.EOF {
			c.compileDeclaration()
		}
		c.expect(token.RBRACE)

		scope := c.scopeDepth
		i := len(c.locals) - 1
		kept := c.locals[i][:0]
		for _, lv := range c.locals[i] {
			if lv.scope != scope {
				kept = append(kept, lv)
			}
		}
		c.locals[i] = kept

		if manageScope {
			c.scopeDepth--
		}

	default:
		c.compileExpression()
		c.expect(token.SEMI)
	}
}

func (c *Compiler) compileIf() {
	c.compileExpression()
	jumpAddr := c.function().AddJump(true)
	c.function().AddOp(opcode.Pop)
	c.compileStatement(true)
	elseJumpAddr := c.function().AddJump(false)
	c.function().PatchJump(jumpAddr)
	c.function().AddOp(opcode.Pop)

	if c.cur.Token == token.ELSE {
		c.advance()
		c.compileStatement(true)
	}
	c.function().PatchJump(elseJumpAddr)
}

func (c *Compiler) compileWhile() {
	name := randomLoopName()

	c.scopeDepth++
	c.locals = append(c.locals, nil)
	c.functions = append(c.functions, machine.NewLoopFunction(name))
	c.markLine()

	c.compileExpression()
	jumpAddr := c.function().AddJump(true)
	c.function().AddOp(opcode.Pop)

	c.compileStatement(false)

	if c.function().IsLoop {
		c.function().AddOp(opcode.Loop)
		c.function().AddWord(c.constantIndex(value.String(name)))

		c.function().PatchJump(jumpAddr)
		c.function().AddOp(opcode.Pop)

		c.scopeDepth--
		fn := c.functions[len(c.functions)-1]
		c.functions = c.functions[:len(c.functions)-1]
		c.locals = c.locals[:len(c.locals)-1]
		c.vm.AddLoop(fn)

		c.function().AddOp(opcode.Loop)
		c.function().AddWord(c.constantIndex(value.String(name)))
	}
}

func randomLoopName() string {
	return "loop$" + strings.ReplaceAll(uuid.New().String(), "-", "")
}

// --- expressions ---
//
// Precedence, lowest to highest: additive (which also folds in `or`),
// multiplicative (which also folds in `and` and the comparison operators,
// per the source grammar), unary, primary.

func (c *Compiler) compileExpression() {
	c.compileTerm(true)
	for {
		switch c.cur.Token {
		case token.PLUS:
			c.advance()
			c.compileTerm(false)
			c.function().AddOp(opcode.Add)

		case token.MINUS:
			c.advance()
			c.compileTerm(false)
			c.function().AddOp(opcode.Negate)
			c.function().AddOp(opcode.Add)

		case token.CONCAT:
			c.advance()
			c.compileTerm(false)
			c.function().AddOp(opcode.Concat)

		case token.OR:
			c.advance()
			elseJump := c.function().AddJump(true)
			endJump := c.function().AddJump(false)
			c.function().PatchJump(elseJump)
			c.function().AddOp(opcode.Pop)
			c.compileTerm(false)
			c.function().PatchJump(endJump)

		default:
			return
		}
	}
}

func (c *Compiler) compileTerm(canAssign bool) {
	c.compileFactor(canAssign)
	for {
		switch c.cur.Token {
		case token.STAR:
			c.advance()
			c.compileFactor(false)
			c.function().AddOp(opcode.Multiply)

		case token.SLASH:
			c.advance()
			c.compileFactor(false)
			c.function().AddOp(opcode.Divide)

		case token.PERCENT:
			c.advance()
			c.compileFactor(false)
			c.function().AddOp(opcode.Rem)

		case token.AND:
			c.advance()
			jumpAddr := c.function().AddJump(true)
			c.function().AddOp(opcode.Pop)
			c.compileFactor(false)
			c.function().PatchJump(jumpAddr)

		case token.EQEQ:
			c.advance()
			c.compileFactor(false)
			c.function().AddOp(opcode.Equal)

		case token.BANGEQ:
			c.advance()
			c.compileFactor(false)
			c.function().AddOp(opcode.NotEqual)

		case token.GE:
			c.advance()
			c.compileFactor(false)
			c.function().AddOp(opcode.GreaterEqual)

		case token.GT:
			c.advance()
			c.compileFactor(false)
			c.function().AddOp(opcode.Greater)

		case token.LE:
			c.advance()
			c.compileFactor(false)
			c.function().AddOp(opcode.LessEqual)

		case token.LT:
			c.advance()
			c.compileFactor(false)
			c.function().AddOp(opcode.Less)

		default:
			return
		}
	}
}

func (c *Compiler) compileFactor(canAssign bool) {
	tok := c.advance()
	switch tok.Token {
	case token.NIL:
		c.function().AddOp(opcode.NilOp)

	case token.NUMBER:
		c.emitConstant(value.Number(tok.Number))

	case token.STRING:
		c.emitConstant(value.String(tok.String))

	case token.TRUE:
		c.emitConstant(value.True)

	case token.FALSE:
		c.emitConstant(value.False)

	case token.NOT:
		c.compileFactor(canAssign)
		c.function().AddOp(opcode.Not)

	case token.MINUS:
		c.compileFactor(canAssign)
		c.function().AddOp(opcode.Negate)

	case token.LPAREN:
		c.compileExpression()
		c.expect(token.RPAREN)

	case token.IDENT:
		c.compileIdentifier(tok, canAssign)

	default:
		c.errorf(tok.Pos, "unexpected %#v", tok.Token)
	}
}

func (c *Compiler) compileIdentifier(tok scanner.TokenAndValue, canAssign bool) {
	name := tok.Raw
	slot, isLocal := c.resolveLocal(name)

	switch {
	case c.cur.Token == token.EQ && canAssign:
		c.advance()
		c.compileExpression()
		if isLocal {
			c.function().AddOp(opcode.SetLocal)
			c.function().AddWord(slot)
			return
		}
		if slices.Contains(c.globals, name) {
			c.function().AddOp(opcode.SetGlobal)
			c.function().AddWord(c.constantIndex(value.String(name)))
			return
		}
		c.errorf(tok.Pos, "cannot assign to captured variable %q", name)

	case c.cur.Token == token.EQ:
		c.advance()
		c.errorf(tok.Pos, "invalid assignment target")

	case c.cur.Token == token.LPAREN:
		c.advance()
		args := 0
		if c.cur.Token != token.RPAREN {
			for {
				c.compileExpression()
				args++
				if c.cur.Token == token.COMMA {
					c.advance()
					continue
				}
				break
			}
		}
		c.expect(token.RPAREN)

		c.function().AddOp(opcode.Call)
		c.function().AddWord(c.scopeDepth)
		c.function().AddWord(args)
		c.function().AddWord(c.constantIndex(value.String(name)))

	case isLocal:
		c.function().AddOp(opcode.GetLocal)
		c.function().AddWord(slot)

	case c.vm.FunctionExists(c.scopeDepth, name):
		address, _ := c.vm.ResolveFunction(name, c.scopeDepth)
		fn, _ := c.vm.Function(address)
		c.emitConstant(&value.Function{Name: name, Address: address, Arity: fn.Arity, IsLoop: fn.IsLoop})

	default:
		if frame, capSlot, ok := c.resolveCapture(name); ok {
			c.function().AddOp(opcode.GetCaptured)
			c.function().AddWord(c.constantIndex(value.String(name)))
			c.function().AddCapture(name, frame, capSlot)
			return
		}
		c.function().AddOp(opcode.GetGlobal)
		c.function().AddWord(c.constantIndex(value.String(name)))
	}
}
