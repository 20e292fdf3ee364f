package maincmd

import (
	"context"
	"fmt"
	"os"

	"github.com/mna/mainer"

	"github.com/loxlang/lox/lang/compiler"
	"github.com/loxlang/lox/lang/machine"
)

// RunFile compiles and runs the lox source file at path, reporting
// compile or runtime errors to stdio.Stderr.
func RunFile(_ context.Context, stdio mainer.Stdio, path string, debug bool) error {
	src, err := os.ReadFile(path)
	if err != nil {
		fmt.Fprintln(stdio.Stderr, err)
		return err
	}

	vm := machine.New()
	vm.Stdout = stdio.Stdout
	vm.Stderr = stdio.Stderr
	vm.Debug = debug

	top, err := compiler.New(vm, string(src)).Compile()
	if err != nil {
		fmt.Fprintln(stdio.Stderr, err)
		return err
	}

	if err := vm.Run(top); err != nil {
		fmt.Fprintln(stdio.Stderr, err)
		return err
	}
	return nil
}
