package machine

import (
	"fmt"

	"github.com/loxlang/lox/lang/chunk"
	"github.com/loxlang/lox/lang/opcode"
)

// Capture records where a closure's captured variable lives in its defining
// scope at compile time: the absolute frame index (0 is the top-level
// unit), and the slot within that frame.
type Capture struct {
	Frame int
	Slot  int
}

// Function is the compiler's in-progress or finalized description of a
// function or while-loop body: a name, arity, bytecode, and whatever
// closure bookkeeping the compiler accumulated while compiling it.
//
// HasReturn is nil for the top-level unit (no implicit nil-return is ever
// appended), and otherwise points to whether a `return` has been compiled
// so far.
type Function struct {
	Name      string
	Arity     int
	Code      *chunk.Chunk[int]
	HasReturn *bool
	IsLoop    bool
	Captures  map[string]Capture

	// Lines mirrors Code: Lines[i] is the source line the compiler was
	// at when Code[i] was appended, so a runtime error raised while
	// executing the opcode at a given word offset can report the line
	// it came from. Set via SetLine, read back via LineAt.
	Lines   []int
	curLine int
}

// NewFunction starts a plain `fun`-declared function.
func NewFunction(name string, arity int) *Function {
	f := false
	return &Function{Name: name, Arity: arity, Code: chunk.New[int](), HasReturn: &f}
}

// NewMainFunction starts the top-level compilation unit.
func NewMainFunction() *Function {
	return &Function{Name: "##MAIN##", Code: chunk.New[int]()}
}

// NewLoopFunction starts an anonymous while-body, callable under name.
func NewLoopFunction(name string) *Function {
	f := false
	return &Function{Name: name, Code: chunk.New[int](), IsLoop: true, HasReturn: &f}
}

// SetLine records the source line the compiler is currently emitting
// from; every subsequent AddOp/AddWord until the next SetLine call is
// attributed to it. The compiler calls this once per statement, which
// is all the granularity a runtime error's "at line N" needs.
func (f *Function) SetLine(line int) {
	f.curLine = line
}

// AddOp appends an opcode word.
func (f *Function) AddOp(op opcode.Opcode) {
	f.Code.Add(int(op))
	f.Lines = append(f.Lines, f.curLine)
}

// AddWord appends a raw operand word and returns its address.
func (f *Function) AddWord(w int) int {
	addr := f.Code.Add(w)
	f.Lines = append(f.Lines, f.curLine)
	return addr
}

// LineAt returns the source line attributed to the instruction word at
// offset, or 0 (unknown) if offset is out of range.
func (f *Function) LineAt(offset int) int {
	if offset < 0 || offset >= len(f.Lines) {
		return 0
	}
	return f.Lines[offset]
}

// AddJump appends a Jump or JumpIfFalse opcode followed by a placeholder
// displacement, and returns the address of that placeholder for PatchJump.
func (f *Function) AddJump(ifFalse bool) int {
	if ifFalse {
		f.AddOp(opcode.JumpIfFalse)
	} else {
		f.AddOp(opcode.Jump)
	}
	return f.AddWord(0)
}

// PatchJump fills in the displacement at address so that it lands exactly
// past the code emitted since the jump was added.
func (f *Function) PatchJump(address int) {
	f.Code.Set(address, f.Code.Len()-address-1)
}

// AlreadyReturns marks that a `return` has been compiled into f.
func (f *Function) AlreadyReturns() {
	t := true
	f.HasReturn = &t
}

// AddCapture records that f reads an outer-scope variable named name,
// living at (frame, slot), frame being an absolute frame index.
// The first recorded site for a given name wins.
func (f *Function) AddCapture(name string, frame, slot int) {
	if f.Captures == nil {
		f.Captures = make(map[string]Capture)
	}
	if _, ok := f.Captures[name]; !ok {
		f.Captures[name] = Capture{Frame: frame, Slot: slot}
	}
}

func (f *Function) String() string {
	return fmt.Sprintf("%s/%d", f.Name, f.Arity)
}

// FunctionEntry is a function registered in the VM's function table,
// tagged with the scope depth at which it was declared.
type FunctionEntry struct {
	Fn    *Function
	Scope int
}
