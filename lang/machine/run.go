package machine

import (
	"fmt"
	"io"

	"github.com/loxlang/lox/lang/native"
	"github.com/loxlang/lox/lang/opcode"
	"github.com/loxlang/lox/lang/value"
)

// execFrame is one activation of a function or loop body: the descriptor
// being executed, the materialized captures visible to it (if any), its
// locals-and-operand-stack window, and its instruction cursor.
//
// lastOp and lastOpPC track the instruction currently being dispatched,
// so a runtime error raised anywhere underneath (an opcode handler, an
// invoked call, a nested dispatch) can be attributed back to it.
type execFrame struct {
	fn       *Function
	captures map[string]value.Value
	locals   []value.Value
	pc       int

	lastOp   opcode.Opcode
	lastOpPC int
}

func (f *execFrame) push(v value.Value) {
	f.locals = append(f.locals, v)
}

func (f *execFrame) pop() (value.Value, bool) {
	if len(f.locals) == 0 {
		return nil, false
	}
	v := f.locals[len(f.locals)-1]
	f.locals = f.locals[:len(f.locals)-1]
	return v, true
}

func (f *execFrame) peek() (value.Value, bool) {
	if len(f.locals) == 0 {
		return nil, false
	}
	return f.locals[len(f.locals)-1], true
}

// --- native.Stack ---

// nativeStack is the native.Stack handed to built-ins: it promotes vm's
// Push, Pop and StartTime and turns the Stdout field into the Stdout
// method the interface requires.
type nativeStack struct{ *VM }

func (s nativeStack) Stdout() io.Writer { return s.VM.Stdout }

// Push is native.Stack's Push, pushing onto the currently executing frame.
func (vm *VM) Push(v value.Value) {
	vm.frames[len(vm.frames)-1].push(v)
}

// Pop is native.Stack's Pop, popping off the currently executing frame.
func (vm *VM) Pop() (value.Value, bool) {
	return vm.frames[len(vm.frames)-1].pop()
}

// Run executes top, the compiled top-level unit, to completion.
func (vm *VM) Run(top *Function) error {
	vm.frames = []*execFrame{{fn: top}}
	return vm.runTop()
}

// runTop drives the top-level frame; Call and Loop recurse into dispatch
// for their own pushed frame and resume here once it returns.
func (vm *VM) runTop() error {
	return vm.dispatch()
}

// dispatch interprets the current top frame's code until it returns,
// errors, or runs off the end of its code (the implicit contract for the
// top-level unit, which never has an implicit Return appended). Any
// *RuntimeError it sees bubble out is stamped with the opcode, frame and
// source line it was dispatching at the time, unless it is already
// stamped (it came from a deeper, recursive dispatch call).
func (vm *VM) dispatch() error {
	frame := vm.frames[len(vm.frames)-1]
	err := vm.dispatchLoop(frame)
	if rerr, ok := err.(*RuntimeError); ok {
		rerr.annotate(frame, frame.lastOp, frame.fn.LineAt(frame.lastOpPC))
	}
	return err
}

func (vm *VM) dispatchLoop(frame *execFrame) error {
	code := frame.fn.Code

	for frame.pc < code.Len() {
		op := opcode.Opcode(mustGet(code, frame.pc))
		frame.pc++
		frame.lastOp = op
		frame.lastOpPC = frame.pc - 1

		if vm.Debug {
			fmt.Fprintf(vm.Stderr, "%04d  %s  %v\n", frame.pc-1, op, frame.locals)
		}

		switch op {
		case opcode.Nop:
			// no-op

		case opcode.Constant:
			idx := mustGet(code, frame.pc)
			frame.pc++
			c, ok := vm.constants.Get(idx)
			if !ok {
				return runtimeErrorf("missing constant at index %d", idx)
			}
			if fv, ok := c.(*value.Function); ok && fv.Captures == nil {
				if closure, ok := vm.closures[fv.Address]; ok {
					c = closure
				}
			}
			frame.push(c)

		case opcode.GetLocal:
			slot := mustGet(code, frame.pc)
			frame.pc++
			if slot < 0 || slot >= len(frame.locals) {
				return runtimeErrorf("local slot %d out of range", slot)
			}
			frame.push(frame.locals[slot])

		case opcode.SetLocal:
			slot := mustGet(code, frame.pc)
			frame.pc++
			v, ok := frame.peek()
			if !ok {
				return runtimeErrorf("stack underflow in set_local")
			}
			if slot < 0 || slot >= len(frame.locals) {
				return runtimeErrorf("local slot %d out of range", slot)
			}
			frame.locals[slot] = v

		case opcode.DefGlobal:
			nameIdx := mustGet(code, frame.pc)
			frame.pc++
			name, err := vm.constantString(nameIdx)
			if err != nil {
				return err
			}
			v, ok := frame.pop()
			if !ok {
				return runtimeErrorf("stack underflow in def_global")
			}
			vm.globals.Put(name, v)

		case opcode.GetGlobal:
			nameIdx := mustGet(code, frame.pc)
			frame.pc++
			name, err := vm.constantString(nameIdx)
			if err != nil {
				return err
			}
			v, ok := vm.globals.Get(name)
			if !ok {
				return runtimeErrorf("undefined global %q", name)
			}
			frame.push(v)

		case opcode.SetGlobal:
			nameIdx := mustGet(code, frame.pc)
			frame.pc++
			name, err := vm.constantString(nameIdx)
			if err != nil {
				return err
			}
			v, ok := frame.peek()
			if !ok {
				return runtimeErrorf("stack underflow in set_global")
			}
			if _, ok := vm.globals.Get(name); !ok {
				return runtimeErrorf("assignment to undefined global %q", name)
			}
			vm.globals.Put(name, v)

		case opcode.GetCaptured:
			nameIdx := mustGet(code, frame.pc)
			frame.pc++
			name, err := vm.constantString(nameIdx)
			if err != nil {
				return err
			}
			v, ok := frame.captures[name]
			if !ok {
				return runtimeErrorf("unresolved capture %q", name)
			}
			frame.push(v)

		case opcode.SetCaptured:
			nameIdx := mustGet(code, frame.pc)
			frame.pc++
			name, err := vm.constantString(nameIdx)
			if err != nil {
				return err
			}
			v, ok := frame.peek()
			if !ok {
				return runtimeErrorf("stack underflow in set_captured")
			}
			if frame.captures == nil {
				return runtimeErrorf("unresolved capture %q", name)
			}
			frame.captures[name] = v

		case opcode.MakeClosure:
			addr := mustGet(code, frame.pc)
			frame.pc++
			if err := vm.makeClosure(addr); err != nil {
				return err
			}

		case opcode.Loop:
			nameIdx := mustGet(code, frame.pc)
			frame.pc++
			name, err := vm.constantString(nameIdx)
			if err != nil {
				return err
			}
			if err := vm.invokeLoop(name); err != nil {
				return err
			}

		case opcode.Call:
			scope := mustGet(code, frame.pc)
			frame.pc++
			argc := mustGet(code, frame.pc)
			frame.pc++
			nameIdx := mustGet(code, frame.pc)
			frame.pc++
			name, err := vm.constantString(nameIdx)
			if err != nil {
				return err
			}
			if err := vm.invokeCall(name, argc, scope); err != nil {
				return err
			}

		case opcode.Jump:
			disp := mustGet(code, frame.pc)
			frame.pc++
			frame.pc += disp

		case opcode.JumpIfFalse:
			disp := mustGet(code, frame.pc)
			frame.pc++
			v, ok := frame.peek()
			if !ok {
				return runtimeErrorf("stack underflow in jump_if_false")
			}
			truth, ok := v.Truth()
			if !ok {
				return runtimeErrorf("%s has no truth value", v.Type())
			}
			if !bool(truth) {
				frame.pc += disp
			}

		case opcode.Add, opcode.Multiply, opcode.Divide, opcode.Rem:
			if err := vm.arith(frame, op); err != nil {
				return err
			}

		case opcode.Negate:
			v, ok := frame.pop()
			if !ok {
				return runtimeErrorf("stack underflow in negate")
			}
			n, ok := v.(value.Number)
			if !ok {
				return runtimeErrorf("cannot negate a %s", v.Type())
			}
			frame.push(-n)

		case opcode.Concat:
			right, ok1 := frame.pop()
			left, ok2 := frame.pop()
			if !ok1 || !ok2 {
				return runtimeErrorf("stack underflow in concat")
			}
			frame.push(value.String(left.String() + right.String()))

		case opcode.Equal, opcode.NotEqual:
			right, ok1 := frame.pop()
			left, ok2 := frame.pop()
			if !ok1 || !ok2 {
				return runtimeErrorf("stack underflow in comparison")
			}
			eq := value.Equal(left, right)
			if op == opcode.NotEqual {
				eq = !eq
			}
			frame.push(value.Bool(eq))

		case opcode.Greater, opcode.GreaterEqual, opcode.Less, opcode.LessEqual:
			if err := vm.compare(frame, op); err != nil {
				return err
			}

		case opcode.Not:
			v, ok := frame.pop()
			if !ok {
				return runtimeErrorf("stack underflow in not")
			}
			truth, ok := v.Truth()
			if !ok {
				return runtimeErrorf("%s has no truth value", v.Type())
			}
			frame.push(!truth)

		case opcode.NilOp:
			frame.push(value.Nil)

		case opcode.Pop:
			if _, ok := frame.pop(); !ok {
				return runtimeErrorf("stack underflow in pop")
			}

		case opcode.Return:
			return vm.doReturn(frame)

		default:
			return runtimeErrorf("illegal opcode %v", op)
		}
	}
	return nil
}

func mustGet(code interface{ Get(int) (int, bool) }, i int) int {
	v, _ := code.Get(i)
	return v
}

func (vm *VM) constantString(idx int) (string, error) {
	c, ok := vm.constants.Get(idx)
	if !ok {
		return "", runtimeErrorf("missing constant at index %d", idx)
	}
	s, ok := c.(value.String)
	if !ok {
		return "", runtimeErrorf("constant at index %d is not a string", idx)
	}
	return string(s), nil
}

func (vm *VM) arith(frame *execFrame, op opcode.Opcode) error {
	right, ok1 := frame.pop()
	left, ok2 := frame.pop()
	if !ok1 || !ok2 {
		return runtimeErrorf("stack underflow in arithmetic")
	}
	l, lok := left.(value.Number)
	r, rok := right.(value.Number)
	if !lok || !rok {
		return runtimeErrorf("arithmetic requires numbers, got %s and %s", left.Type(), right.Type())
	}
	var result value.Number
	switch op {
	case opcode.Add:
		result = l + r
	case opcode.Multiply:
		result = l * r
	case opcode.Divide:
		if r == 0 {
			return runtimeErrorf("division by zero")
		}
		result = l / r
	case opcode.Rem:
		if r == 0 {
			return runtimeErrorf("division by zero")
		}
		result = value.Number(int64(l) % int64(r))
	}
	frame.push(result)
	return nil
}

func (vm *VM) compare(frame *execFrame, op opcode.Opcode) error {
	right, ok1 := frame.pop()
	left, ok2 := frame.pop()
	if !ok1 || !ok2 {
		return runtimeErrorf("stack underflow in comparison")
	}
	if _, ok := left.(*value.Function); ok {
		return runtimeErrorf("functions are not comparable")
	}
	if _, ok := right.(*value.Function); ok {
		return runtimeErrorf("functions are not comparable")
	}
	c := value.Compare(left, right)
	var result bool
	switch op {
	case opcode.Greater:
		result = c > 0
	case opcode.GreaterEqual:
		result = c >= 0
	case opcode.Less:
		result = c < 0
	case opcode.LessEqual:
		result = c <= 0
	}
	frame.push(value.Bool(result))
	return nil
}

// makeClosure materializes the captures declared by the function
// registered at addr, reading each from the currently active frame
// stack, and records the resulting closure for later Constant loads and
// Calls of that address.
func (vm *VM) makeClosure(addr int) error {
	fn, ok := vm.Function(addr)
	if !ok {
		return runtimeErrorf("unresolved function address %d", addr)
	}
	captures := make(map[string]value.Value, len(fn.Captures))
	for name, site := range fn.Captures {
		if site.Frame < 0 || site.Frame >= len(vm.frames) {
			return runtimeErrorf("capture %q: frame %d out of range", name, site.Frame)
		}
		src := vm.frames[site.Frame]
		if site.Slot < 0 || site.Slot >= len(src.locals) {
			return runtimeErrorf("capture %q: slot %d out of range", name, site.Slot)
		}
		captures[name] = src.locals[site.Slot]
	}
	vm.closures[addr] = &value.Function{
		Name:     fn.Name,
		Address:  addr,
		Arity:    fn.Arity,
		IsLoop:   fn.IsLoop,
		Captures: captures,
	}
	return nil
}

// invokeCall resolves name first against the native registry, then
// against a global variable bound to a function value (so a closure
// returned from one call and stored with `let` at top level remains
// callable by that name regardless of where it was originally declared
// — the "first-class functions" testable property), then finally the
// function table (most recently registered visible-from-scope wins).
// It pops argc arguments (last argument first) into a fresh frame laid
// out in call order, and recurses the dispatch loop.
func (vm *VM) invokeCall(name string, argc, scope int) error {
	if b, ok := native.Resolve(name); ok {
		if b.Arity >= 0 && b.Arity != argc {
			return runtimeErrorf("%s expects %d arguments, got %d", name, b.Arity, argc)
		}
		if err := b.Call(nativeStack{vm}, argc); err != nil {
			if _, ok := err.(*RuntimeError); ok {
				return err
			}
			return runtimeErrorf("%s: %s", name, err)
		}
		return nil
	}

	if v, ok := vm.globals.Get(name); ok {
		if fn, ok := v.(*value.Function); ok {
			return vm.invokeFunctionValue(fn, argc)
		}
	}

	addr, ok := vm.ResolveFunction(name, scope)
	if !ok {
		return runtimeErrorf("unresolved function %q", name)
	}
	fn, _ := vm.Function(addr)
	if fn.Arity != argc {
		return runtimeErrorf("%s expects %d arguments, got %d", name, fn.Arity, argc)
	}

	caller := vm.frames[len(vm.frames)-1]
	args := make([]value.Value, argc)
	for i := argc - 1; i >= 0; i-- {
		v, ok := caller.pop()
		if !ok {
			return runtimeErrorf("stack underflow gathering arguments to %s", name)
		}
		args[i] = v
	}

	newFrame := &execFrame{fn: fn, locals: args}
	if closure, ok := vm.closures[addr]; ok {
		newFrame.captures = closure.Captures
	}
	vm.frames = append(vm.frames, newFrame)
	err := vm.dispatch()
	return err
}

// invokeFunctionValue calls a first-class function value directly: its
// own stored address gives the code template, its own Captures (taken
// at the MakeClosure that produced it) give its environment, regardless
// of the scope from which it is now being called.
func (vm *VM) invokeFunctionValue(fn *value.Function, argc int) error {
	target, ok := vm.Function(fn.Address)
	if !ok {
		return runtimeErrorf("unresolved function address %d", fn.Address)
	}
	if target.Arity != argc {
		return runtimeErrorf("%s expects %d arguments, got %d", fn.Name, target.Arity, argc)
	}

	caller := vm.frames[len(vm.frames)-1]
	args := make([]value.Value, argc)
	for i := argc - 1; i >= 0; i-- {
		v, ok := caller.pop()
		if !ok {
			return runtimeErrorf("stack underflow gathering arguments to %s", fn.Name)
		}
		args[i] = v
	}

	newFrame := &execFrame{fn: target, locals: args, captures: fn.Captures}
	vm.frames = append(vm.frames, newFrame)
	return vm.dispatch()
}

// invokeLoop pushes a fresh empty frame for the named loop body and
// recurses the dispatch loop; the loop is removed from the table once
// its body has run, matching a while-loop's single live invocation.
func (vm *VM) invokeLoop(name string) error {
	fn, ok := vm.loops.Get(name)
	if !ok {
		return runtimeErrorf("unresolved loop %q", name)
	}
	newFrame := &execFrame{fn: fn}
	vm.frames = append(vm.frames, newFrame)
	err := vm.dispatch()
	if len(vm.frames) > 0 && vm.frames[len(vm.frames)-1] == newFrame {
		vm.frames = vm.frames[:len(vm.frames)-1]
	}
	vm.loops.Delete(name)
	return err
}

// doReturn implements the Return opcode: pop the return value (or Nil if
// the frame is empty), pop the frame unless it is a loop body, and push
// the result onto the new top frame.
func (vm *VM) doReturn(frame *execFrame) error {
	retval, ok := frame.pop()
	if !ok {
		retval = value.Nil
	}
	if !frame.fn.IsLoop {
		vm.frames = vm.frames[:len(vm.frames)-1]
	}
	if len(vm.frames) == 0 {
		return nil
	}
	vm.frames[len(vm.frames)-1].push(retval)
	return nil
}
