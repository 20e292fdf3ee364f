// Package value defines the runtime value model shared by the compiler
// (for constants) and the machine (for the operand stack, locals, globals
// and captures): Nil, Number, Boolean, String, Function and EnumOption.
package value

import "fmt"

// Value is the interface implemented by every value the machine can push
// onto the stack, store in a local/global, or capture in a closure.
type Value interface {
	// String returns the value's textual representation, as produced by
	// Concat and the print/println natives.
	String() string
	// Type returns a short string describing the value's type, as returned
	// by the type_of native.
	Type() string
	// Truth returns the value's truthiness per the falsey rule: Nil and
	// false are falsey, numeric 0 is falsey, the empty string is falsey,
	// everything else is truthy. Functions have no defined truthiness.
	Truth() (Bool, bool)
}

// Bool is the boolean value type.
type Bool bool

const (
	True  Bool = true
	False Bool = false
)

func (b Bool) String() string {
	if b {
		return "true"
	}
	return "false"
}
func (b Bool) Type() string          { return "boolean" }
func (b Bool) Truth() (Bool, bool)   { return b, true }

// Number is the single numeric type, a 64-bit float.
type Number float64

func (n Number) String() string { return formatNumber(float64(n)) }
func (n Number) Type() string   { return "number" }
func (n Number) Truth() (Bool, bool) {
	return Bool(n != 0), true
}

func formatNumber(f float64) string {
	if f == float64(int64(f)) {
		return fmt.Sprintf("%d", int64(f))
	}
	return fmt.Sprintf("%g", f)
}

// String is the text value type.
type String string

func (s String) String() string { return string(s) }
func (s String) Type() string   { return "string" }
func (s String) Truth() (Bool, bool) {
	return Bool(len(s) != 0), true
}

// Nil is the singleton nil value type.
type NilType struct{}

var Nil = NilType{}

func (NilType) String() string       { return "nil" }
func (NilType) Type() string         { return "nil" }
func (NilType) Truth() (Bool, bool)  { return False, true }

// EnumOption is a value produced by an `enum` declaration: a tag (the
// enum's name) paired with the option's own name as payload.
type EnumOption struct {
	Tag     string
	Payload string
}

func (e EnumOption) String() string { return e.Tag + "." + e.Payload }
func (e EnumOption) Type() string   { return "enum" }
func (e EnumOption) Truth() (Bool, bool) {
	return True, true
}

func (e EnumOption) Equal(o EnumOption) bool {
	return e.Tag == o.Tag && e.Payload == o.Payload
}
