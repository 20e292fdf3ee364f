// Package native implements lox's built-in functions: print, println,
// clock, now, parse, type_of, div and the is_* type predicates. Natives
// pop their own arguments from the current frame and push their result,
// mirroring how a compiled function call returns a value.
package native

import (
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/loxlang/lox/lang/value"
)

// Stack is the slice of machine state a native needs: the current frame's
// top, the program's stdout, and the VM's construction time for clock().
type Stack interface {
	Pop() (value.Value, bool)
	Push(v value.Value)
	Stdout() io.Writer
	StartTime() time.Time
}

// Builtin is a registered native function.
type Builtin struct {
	Name string
	// Arity is the fixed argument count, or -1 for variadic.
	Arity int
	Call  func(s Stack, argc int) error
}

var builtins = map[string]Builtin{}

func register(b Builtin) {
	builtins[b.Name] = b
}

// Resolve looks up a native by name.
func Resolve(name string) (Builtin, bool) {
	b, ok := builtins[name]
	return b, ok
}

func init() {
	register(Builtin{Name: "print", Arity: -1, Call: callPrint})
	register(Builtin{Name: "println", Arity: -1, Call: callPrintln})
	register(Builtin{Name: "clock", Arity: 0, Call: callClock})
	register(Builtin{Name: "now", Arity: 0, Call: callNow})
	register(Builtin{Name: "parse", Arity: 1, Call: callParse})
	register(Builtin{Name: "type_of", Arity: 1, Call: callTypeOf})
	register(Builtin{Name: "div", Arity: 2, Call: callDiv})
	register(Builtin{Name: "is_nil", Arity: 1, Call: isType("nil")})
	register(Builtin{Name: "is_number", Arity: 1, Call: isType("number")})
	register(Builtin{Name: "is_string", Arity: 1, Call: isType("string")})
	register(Builtin{Name: "is_boolean", Arity: 1, Call: isType("boolean")})
	register(Builtin{Name: "is_function", Arity: 1, Call: isType("function")})
}

func popN(s Stack, argc int) ([]value.Value, error) {
	args := make([]value.Value, argc)
	for i := argc - 1; i >= 0; i-- {
		v, ok := s.Pop()
		if !ok {
			return nil, fmt.Errorf("native call: stack underflow")
		}
		args[i] = v
	}
	return args, nil
}

func callPrint(s Stack, argc int) error {
	args, err := popN(s, argc)
	if err != nil {
		return err
	}
	for _, a := range args {
		fmt.Fprint(s.Stdout(), a.String())
	}
	return nil
}

func callPrintln(s Stack, argc int) error {
	if err := callPrint(s, argc); err != nil {
		return err
	}
	fmt.Fprintln(s.Stdout())
	return nil
}

func callClock(s Stack, _ int) error {
	s.Push(value.Number(time.Since(s.StartTime()).Nanoseconds()))
	return nil
}

func callNow(s Stack, _ int) error {
	s.Push(value.Number(float64(time.Now().UnixNano())))
	return nil
}

func callParse(s Stack, argc int) error {
	args, err := popN(s, argc)
	if err != nil {
		return err
	}
	str, ok := args[0].(value.String)
	if !ok {
		return fmt.Errorf("parse: argument must be a string, got %s", args[0].Type())
	}
	switch string(str) {
	case "nil":
		s.Push(value.Nil)
	case "true":
		s.Push(value.True)
	case "false":
		s.Push(value.False)
	default:
		n, err := strconv.ParseFloat(string(str), 64)
		if err != nil {
			return fmt.Errorf("parse: cannot parse %q as a number", string(str))
		}
		s.Push(value.Number(n))
	}
	return nil
}

func callTypeOf(s Stack, argc int) error {
	args, err := popN(s, argc)
	if err != nil {
		return err
	}
	s.Push(value.String(args[0].Type()))
	return nil
}

func callDiv(s Stack, argc int) error {
	args, err := popN(s, argc)
	if err != nil {
		return err
	}
	left, lok := args[0].(value.Number)
	right, rok := args[1].(value.Number)
	if !lok || !rok {
		return fmt.Errorf("div: arguments must be numbers")
	}
	if right == 0 {
		return fmt.Errorf("div: division by zero")
	}
	s.Push(value.Number(float64(int64(left) / int64(right))))
	return nil
}

func isType(typeName string) func(Stack, int) error {
	return func(s Stack, argc int) error {
		args, err := popN(s, argc)
		if err != nil {
			return err
		}
		s.Push(value.Bool(args[0].Type() == typeName))
		return nil
	}
}
