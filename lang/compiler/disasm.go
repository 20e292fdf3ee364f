package compiler

import (
	"fmt"
	"io"

	"github.com/loxlang/lox/lang/machine"
	"github.com/loxlang/lox/lang/opcode"
)

// Disassemble writes a textual listing of top and every function and loop
// body registered alongside it in vm's function and loop tables. Each
// instruction is printed as its word offset, mnemonic, and operand words;
// a Constant operand additionally shows the resolved constant value.
func Disassemble(w io.Writer, vm *machine.VM, top *machine.Function) error {
	if err := disasmOne(w, vm, top); err != nil {
		return err
	}
	for _, entry := range vm.Functions() {
		fmt.Fprintf(w, "\nfunction %s:\n", entry.Fn)
		if err := disasmOne(w, vm, entry.Fn); err != nil {
			return err
		}
	}
	for _, fn := range vm.Loops() {
		fmt.Fprintf(w, "\nloop %s:\n", fn.Name)
		if err := disasmOne(w, vm, fn); err != nil {
			return err
		}
	}
	return nil
}

func disasmOne(w io.Writer, vm *machine.VM, fn *machine.Function) error {
	code := fn.Code.All()
	for offset := 0; offset < len(code); {
		op := opcode.Opcode(code[offset])
		n := op.Operands()
		if offset+n >= len(code) {
			return fmt.Errorf("%s: truncated instruction at offset %d", fn.Name, offset)
		}

		words := code[offset+1 : offset+1+n]
		fmt.Fprintf(w, "%04d  %-14s", offset, op)
		for _, word := range words {
			fmt.Fprintf(w, " %4d", word)
		}
		if op == opcode.Constant && len(words) == 1 {
			if v, ok := vm.ConstantAt(words[0]); ok {
				fmt.Fprintf(w, "  ; %s", v.String())
			}
		}
		fmt.Fprintln(w)

		offset += 1 + n
	}
	return nil
}
