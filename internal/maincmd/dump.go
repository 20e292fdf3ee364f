package maincmd

import (
	"context"
	"fmt"
	"os"

	"github.com/mna/mainer"

	"github.com/loxlang/lox/lang/compiler"
	"github.com/loxlang/lox/lang/machine"
)

// DumpFile compiles the lox source file at path and prints the
// disassembled bytecode of every function and loop body it produced,
// without running any of it.
func DumpFile(_ context.Context, stdio mainer.Stdio, path string) error {
	src, err := os.ReadFile(path)
	if err != nil {
		fmt.Fprintln(stdio.Stderr, err)
		return err
	}

	vm := machine.New()
	top, err := compiler.New(vm, string(src)).Compile()
	if err != nil {
		fmt.Fprintln(stdio.Stderr, err)
		return err
	}

	fmt.Fprintf(stdio.Stdout, "function %s:\n", top)
	if err := compiler.Disassemble(stdio.Stdout, vm, top); err != nil {
		fmt.Fprintln(stdio.Stderr, err)
		return err
	}
	return nil
}
