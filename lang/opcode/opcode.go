// Package opcode enumerates the bytecode instructions emitted by the
// compiler and interpreted by the machine, one operand word per logical
// operand (the compiler never emits the original pad-word encoding; see
// DESIGN.md).
package opcode

import "fmt"

type Opcode uint8

//nolint:revive
const (
	Nop Opcode = iota

	Constant
	GetLocal
	SetLocal
	DefGlobal
	GetGlobal
	SetGlobal
	GetCaptured
	SetCaptured
	MakeClosure
	Loop
	Call
	Jump
	JumpIfFalse

	Add
	Multiply
	Divide
	Rem
	Negate
	Concat

	Equal
	NotEqual
	Greater
	GreaterEqual
	Less
	LessEqual
	Not

	NilOp
	Pop
	Return

	maxOpcode
)

var names = [...]string{
	Nop:          "nop",
	Constant:     "constant",
	GetLocal:     "get_local",
	SetLocal:     "set_local",
	DefGlobal:    "def_global",
	GetGlobal:    "get_global",
	SetGlobal:    "set_global",
	GetCaptured:  "get_captured",
	SetCaptured:  "set_captured",
	MakeClosure:  "make_closure",
	Loop:         "loop",
	Call:         "call",
	Jump:         "jump",
	JumpIfFalse:  "jump_if_false",
	Add:          "add",
	Multiply:     "multiply",
	Divide:       "divide",
	Rem:          "rem",
	Negate:       "negate",
	Concat:       "concat",
	Equal:        "equal",
	NotEqual:     "not_equal",
	Greater:      "greater",
	GreaterEqual: "greater_equal",
	Less:         "less",
	LessEqual:    "less_equal",
	Not:          "not",
	NilOp:        "nil",
	Pop:          "pop",
	Return:       "return",
}

// operands gives the fixed number of operand words following each opcode
// in the instruction stream. Call takes three: the calling scope depth,
// the argument count, and the callee-name-const-index.
var operands = [...]int{
	Nop:          0,
	Constant:     1,
	GetLocal:     1,
	SetLocal:     1,
	DefGlobal:    1,
	GetGlobal:    1,
	SetGlobal:    1,
	GetCaptured:  1,
	SetCaptured:  1,
	MakeClosure:  1,
	Loop:         1,
	Call:         3,
	Jump:         1,
	JumpIfFalse:  1,
	Add:          0,
	Multiply:     0,
	Divide:       0,
	Rem:          0,
	Negate:       0,
	Concat:       0,
	Equal:        0,
	NotEqual:     0,
	Greater:      0,
	GreaterEqual: 0,
	Less:         0,
	LessEqual:    0,
	Not:          0,
	NilOp:        0,
	Pop:          0,
	Return:       0,
}

func (op Opcode) String() string {
	if op < maxOpcode {
		if name := names[op]; name != "" {
			return name
		}
	}
	return fmt.Sprintf("illegal op (%d)", op)
}

// Operands returns how many operand words follow op in an encoded chunk.
func (op Opcode) Operands() int {
	if op < maxOpcode {
		return operands[op]
	}
	return 0
}
