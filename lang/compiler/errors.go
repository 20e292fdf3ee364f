package compiler

import (
	"fmt"
	"strings"

	"github.com/loxlang/lox/lang/token"
)

// CompileError is one diagnostic produced while compiling a unit.
// Compilation accumulates every CompileError it encounters and keeps
// going, so a single run can report more than one problem.
type CompileError struct {
	Pos token.Pos
	Msg string
}

func (e *CompileError) Error() string {
	line, _ := e.Pos.LineCol()
	if line == 0 {
		return fmt.Sprintf("compile error: %s", e.Msg)
	}
	return fmt.Sprintf("compile error: %s at line %d", e.Msg, line)
}

// ErrorList is the accumulated set of CompileErrors from one compilation.
// Compile returns it as an ErrorList value (satisfying error) whenever at
// least one error was recorded.
type ErrorList []*CompileError

func (el ErrorList) Error() string {
	lines := make([]string, len(el))
	for i, e := range el {
		lines[i] = e.Error()
	}
	return strings.Join(lines, "\n")
}
