package machine_test

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/loxlang/lox/lang/compiler"
	"github.com/loxlang/lox/lang/machine"
)

// run compiles and executes src against a fresh VM, returning the VM (so
// a test can inspect globals via stdout side effects) and any error from
// either phase.
func run(t *testing.T, src string) (*machine.VM, *bytes.Buffer, error) {
	t.Helper()
	var out bytes.Buffer
	vm := machine.New()
	vm.Stdout = &out

	top, err := compiler.New(vm, src).Compile()
	if err != nil {
		return vm, &out, err
	}
	return vm, &out, vm.Run(top)
}

func TestArithmeticAndPrecedence(t *testing.T) {
	_, out, err := run(t, `print(1 + 2 * 3);`)
	require.NoError(t, err)
	assert.Equal(t, "7", out.String())
}

func TestConcatAndComparison(t *testing.T) {
	_, out, err := run(t, `print("a" <> "b"); print(1 < 2);`)
	require.NoError(t, err)
	assert.Equal(t, "abtrue", out.String())
}

func TestLetGlobalAndAssignment(t *testing.T) {
	_, out, err := run(t, `
let x = 10;
x = x + 5;
print(x);
`)
	require.NoError(t, err)
	assert.Equal(t, "15", out.String())
}

func TestIfElse(t *testing.T) {
	_, out, err := run(t, `
let x = 0;
if x == 0 {
	print("zero");
} else {
	print("nonzero");
}
`)
	require.NoError(t, err)
	assert.Equal(t, "zero", out.String())
}

func TestWhileLoop(t *testing.T) {
	_, out, err := run(t, `
let i = 0;
while i < 5 {
	print(i);
	i = i + 1;
}
`)
	require.NoError(t, err)
	assert.Equal(t, "01234", out.String())
}

func TestFunctionCallAndReturn(t *testing.T) {
	_, out, err := run(t, `
fun add(a, b) {
	return a + b;
}
print(add(3, 4));
`)
	require.NoError(t, err)
	assert.Equal(t, "7", out.String())
}

func TestRecursiveFunction(t *testing.T) {
	_, out, err := run(t, `
fun fact(n) {
	if n <= 1 {
		return 1;
	}
	return n * fact(n - 1);
}
print(fact(5));
`)
	require.NoError(t, err)
	assert.Equal(t, "120", out.String())
}

// TestFirstClassFunctionReturnedAndCalledByGlobalName mirrors spec scenario
// 4: a function nested inside another is returned, bound to a top-level
// global under any name, and remains callable through that global even
// though its own declaration scope would not otherwise be visible there.
func TestFirstClassFunctionReturnedAndCalledByGlobalName(t *testing.T) {
	_, out, err := run(t, `
fun creator() {
	fun join(a, b) {
		return a <> b;
	}
	return join;
}
let join = creator();
println(join("U-", 235));
`)
	require.NoError(t, err)
	assert.Equal(t, "U-235\n", out.String())
}

func TestClosureCapturesOuterLocal(t *testing.T) {
	_, out, err := run(t, `
fun makeAdder(x) {
	fun adder(y) {
		return x + y;
	}
	return adder;
}
let add5 = makeAdder(5);
print(add5(3));
`)
	require.NoError(t, err)
	assert.Equal(t, "8", out.String())
}

func TestLogicalAndOr(t *testing.T) {
	_, out, err := run(t, `print(true and false); print(false or true);`)
	require.NoError(t, err)
	assert.Equal(t, "falsetrue", out.String())
}

func TestEnumOptionIsGlobal(t *testing.T) {
	_, out, err := run(t, `
enum Color {
	Red;
	Blue;
}
print(type_of(Red));
print(Red == Red);
print(Red == Blue);
`)
	require.NoError(t, err)
	assert.Equal(t, "enumtruefalse", out.String())
}

func TestNativePredicatesAndDiv(t *testing.T) {
	_, out, err := run(t, `
print(is_number(1));
print(is_string("a"));
print(div(7, 2));
`)
	require.NoError(t, err)
	assert.Equal(t, "truetrue3", out.String())
}

func TestParseCoercionAndShortCircuit(t *testing.T) {
	_, out, err := run(t, `
print(parse("2"<>"5")+5);
print(parse("2"<>".5")+1.5);
print(parse("2"<>".5")+2);
print(parse("false") and true);
`)
	require.NoError(t, err)
	assert.Equal(t, "3044.5false", out.String())
}

func TestUndefinedGlobalIsRuntimeError(t *testing.T) {
	_, _, err := run(t, `print(doesNotExist);`)
	require.Error(t, err)
	var rerr *machine.RuntimeError
	require.ErrorAs(t, err, &rerr)
}

func TestDivisionByZeroIsRuntimeError(t *testing.T) {
	_, _, err := run(t, `print(1 / 0);`)
	require.Error(t, err)
}

func TestFalseyRule(t *testing.T) {
	_, out, err := run(t, `
if nil { print("a"); } else { print("b"); }
if 0 { print("a"); } else { print("b"); }
if "" { print("a"); } else { print("b"); }
if "x" { print("a"); } else { print("b"); }
`)
	require.NoError(t, err)
	assert.Equal(t, "bbba", out.String())
}
