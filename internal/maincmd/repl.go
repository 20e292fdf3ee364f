package maincmd

import (
	"bufio"
	"context"
	"fmt"
	"strings"

	"github.com/mna/mainer"

	"github.com/loxlang/lox/lang/compiler"
	"github.com/loxlang/lox/lang/machine"
)

const (
	defaultPrompt      = "lox -> "
	continuationPrompt = "......  "
)

// RunREPL reads source from stdio.Stdin one unit at a time, compiling and
// running each against a single VM shared for the whole session: a
// global `let` or a `fun` declared in one unit can still be read or
// called in the next. Each unit gets a fresh Compiler, so assigning to a
// global declared in an earlier unit is a compile error.
//
// A unit is normally one line. A line ending with `{` opens a
// continuation: the prompt switches to continuationPrompt and further
// lines are appended, unbroken, until one ends with `}`, at which point
// the accumulated text is compiled and run as a single unit.
func RunREPL(ctx context.Context, stdio mainer.Stdio, debug bool, prompt string) error {
	vm := machine.New()
	vm.Stdout = stdio.Stdout
	vm.Stderr = stdio.Stderr
	vm.Debug = debug

	scan := bufio.NewScanner(stdio.Stdin)
	var pending []string

	currentPrompt := func() string {
		if len(pending) > 0 {
			return continuationPrompt
		}
		return prompt
	}

	fmt.Fprint(stdio.Stdout, currentPrompt())
	for scan.Scan() {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		line := scan.Text()
		switch {
		case len(pending) > 0:
			pending = append(pending, line)
			if strings.HasSuffix(strings.TrimSpace(line), "}") {
				interpret(vm, stdio, strings.Join(pending, "\n"))
				pending = nil
			}

		case strings.HasSuffix(strings.TrimSpace(line), "{"):
			pending = append(pending, line)

		case line != "":
			interpret(vm, stdio, line)
		}

		fmt.Fprint(stdio.Stdout, currentPrompt())
	}
	return scan.Err()
}

// interpret compiles and runs src against vm, reporting either a compile
// or a runtime error to stdio.Stderr without terminating the REPL.
func interpret(vm *machine.VM, stdio mainer.Stdio, src string) {
	top, err := compiler.New(vm, src).Compile()
	if err != nil {
		fmt.Fprintln(stdio.Stderr, err)
		return
	}
	if err := vm.Run(top); err != nil {
		fmt.Fprintln(stdio.Stderr, err)
	}
}
