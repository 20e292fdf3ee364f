package machine

import (
	"io"
	"os"
	"time"

	"github.com/dolthub/swiss"

	"github.com/loxlang/lox/lang/chunk"
	"github.com/loxlang/lox/lang/value"
)

// VM owns every piece of mutable state a running lox program touches:
// the constant pool, the function and loop tables, the globals map, and
// the call-frame stack. A VM is constructed once per program; a runtime
// error poisons it (per spec, the caller should not keep using it).
type VM struct {
	// Stdout and Stderr default to os.Stdout/os.Stderr; tests substitute
	// an in-memory buffer to capture program output.
	Stdout io.Writer
	Stderr io.Writer

	// Debug enables verbose opcode/stack dispatch logging to Stderr,
	// mirroring the DEBUG environment variable.
	Debug bool

	constants *chunk.Chunk[value.Value]
	globals   *swiss.Map[string, value.Value]
	functions []FunctionEntry
	loops     *swiss.Map[string, *Function]
	// closures holds the most recently materialized closure for a given
	// function-table address, keyed by address. A function that never
	// underwent MakeClosure has no entry here and carries no captures.
	closures map[int]*value.Function

	frames    []*execFrame
	startTime time.Time
}

// New returns a freshly constructed VM, ready for a Compiler to populate
// its constants, function table and loop table before Run executes the
// top-level function.
func New() *VM {
	return &VM{
		Stdout:    os.Stdout,
		Stderr:    os.Stderr,
		constants: chunk.New[value.Value](),
		globals:   swiss.NewMap[string, value.Value](8),
		loops:     swiss.NewMap[string, *Function](4),
		closures:  make(map[int]*value.Function),
		startTime: time.Now(),
	}
}

// StartTime is native.Stack's StartTime, used by the clock() native.
func (vm *VM) StartTime() time.Time { return vm.startTime }

// --- compiler-facing API ---

// AddConstant appends v to the constant pool and returns its index.
func (vm *VM) AddConstant(v value.Value) int {
	return vm.constants.Add(v)
}

// AddFunction registers fn in the function table under the given defining
// scope depth and returns its address.
func (vm *VM) AddFunction(scope int, fn *Function) int {
	vm.functions = append(vm.functions, FunctionEntry{Fn: fn, Scope: scope})
	return len(vm.functions) - 1
}

// AddLoop registers fn, a compiled while-body, in the loop table under its
// own name.
func (vm *VM) AddLoop(fn *Function) {
	vm.loops.Put(fn.Name, fn)
}

// FunctionExists reports whether a function named name is visible from
// scope (i.e. registered at a defining scope <= scope).
func (vm *VM) FunctionExists(scope int, name string) bool {
	_, ok := vm.resolveFunction(name, scope)
	return ok
}

// ResolveFunction returns the address of the most recently registered
// function named name that is visible from scope, per the "callee sees
// outer scopes but not vice versa" rule: the defining scope must be <=
// the requested scope, and among candidates the most recently registered
// (highest address) wins.
func (vm *VM) ResolveFunction(name string, scope int) (int, bool) {
	return vm.resolveFunction(name, scope)
}

func (vm *VM) resolveFunction(name string, scope int) (int, bool) {
	for i := len(vm.functions) - 1; i >= 0; i-- {
		entry := vm.functions[i]
		if entry.Fn.Name == name && entry.Scope <= scope {
			return i, true
		}
	}
	return 0, false
}

// Function returns the registered function descriptor at address.
func (vm *VM) Function(address int) (*Function, bool) {
	if address < 0 || address >= len(vm.functions) {
		return nil, false
	}
	return vm.functions[address].Fn, true
}

// --- disassembler-facing API ---

// Functions returns every function registered in the function table, in
// address order.
func (vm *VM) Functions() []FunctionEntry {
	return vm.functions
}

// Loops returns every while-body registered in the loop table, in no
// particular order.
func (vm *VM) Loops() []*Function {
	loops := make([]*Function, 0, vm.loops.Count())
	vm.loops.Iter(func(_ string, fn *Function) (stop bool) {
		loops = append(loops, fn)
		return false
	})
	return loops
}

// ConstantAt returns the constant pool entry at idx.
func (vm *VM) ConstantAt(idx int) (value.Value, bool) {
	return vm.constants.Get(idx)
}
