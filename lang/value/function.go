package value

// Function is a compiled function value: a fixed code address paired, for
// closures, with a materialized capture environment. Two functions are
// never equal to each other, even if they share an address: a closure is
// its own distinct value from the moment MakeClosure runs.
type Function struct {
	// Name is the function's declared name, or a synthesized name for an
	// anonymous while-body.
	Name string
	// Address is the index into the machine's function table.
	Address int
	// Arity is the number of declared parameters.
	Arity int
	// IsLoop marks a while-body compiled as a callable: Return inside it
	// unwinds past the loop frame without popping it, so the enclosing
	// function's frame stays coherent.
	IsLoop bool
	// Captures holds the closure's own copy of every outer-scope variable
	// it references, taken at MakeClosure time. Nil for a function that
	// captures nothing.
	Captures map[string]Value
}

func (f *Function) String() string {
	if f.Name == "" {
		return "<function>"
	}
	return "<function " + f.Name + ">"
}
func (f *Function) Type() string { return "function" }

// Truth is undefined for functions: probing a function's truthiness is a
// runtime error, so ok is always false.
func (f *Function) Truth() (Bool, bool) { return False, false }
