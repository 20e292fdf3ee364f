package machine

import (
	"fmt"

	"github.com/loxlang/lox/lang/opcode"
)

// RuntimeError is returned by Run when execution cannot continue: a type
// mismatch in an opcode, an unresolved global, function or loop, an
// arity mismatch, or a stack underflow. It propagates unchanged through
// every recursive Call/Loop invocation back to the top-level caller.
//
// Op, Frame and Line identify where it occurred: the opcode being
// dispatched, the name of the function or loop body executing it, and
// the source line the compiler attributed to that instruction. dispatch
// fills these in once, at the frame where the error originated, the
// first time it sees an unannotated *RuntimeError bubble out of a
// dispatch call.
type RuntimeError struct {
	Msg   string
	Op    opcode.Opcode
	Frame string
	Line  int

	annotated bool
}

func (e *RuntimeError) Error() string {
	if e.Line == 0 {
		return fmt.Sprintf("runtime error: %s", e.Msg)
	}
	return fmt.Sprintf("runtime error: %s at line %d", e.Msg, e.Line)
}

func runtimeErrorf(format string, args ...any) error {
	return &RuntimeError{Msg: fmt.Sprintf(format, args...)}
}

// annotate fills in e's Op, Frame and Line from frame and op, the
// instruction being dispatched when the error was first raised. It is a
// no-op if e is already annotated, so the innermost dispatch call wins
// as the error bubbles up through recursive Call/Loop invocations.
func (e *RuntimeError) annotate(frame *execFrame, op opcode.Opcode, line int) {
	if e.annotated {
		return
	}
	e.Op = op
	e.Frame = frame.fn.Name
	e.Line = line
	e.annotated = true
}
