package compiler

import (
	"bytes"
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ember/vm"
)

// run compiles and executes source against a fresh VM, returning
// everything printed to stdout and the error (if any) Interpret
// returned. Mirrors abdielwilsn-pidgin-lang's integration style,
// adapted from "assert on the returned value" to "assert on stdout",
// since this is a print-statement language rather than an
// expression-oriented one.
func run(t *testing.T, source string) (string, error) {
	t.Helper()
	out := &bytes.Buffer{}
	machine := vm.New(out)
	fn, err := Compile(source, machine.Interner)
	require.NoError(t, err, "compile error for: %s", source)
	err = machine.Interpret(fn)
	return out.String(), err
}

func TestEndToEndIntArithmetic(t *testing.T) {
	out, err := run(t, "print 1 + 2;")
	require.NoError(t, err)
	assert.Equal(t, "3\n", out)
}

func TestEndToEndFloatArithmetic(t *testing.T) {
	out, err := run(t, "float a = 1.5; float b = 2.25; print a * b;")
	require.NoError(t, err)
	assert.Equal(t, "3.375\n", out)
}

func TestEndToEndClosureUpvalueCapture(t *testing.T) {
	src := `
fun mk() {
    int count = 0;
    fun inc() {
        count = count + 1;
        return count;
    }
    return inc;
}
int f = mk();
print f();
print f();
`
	out, err := run(t, src)
	require.NoError(t, err)
	assert.Equal(t, "1\n2\n", out)
}

func TestEndToEndClassInheritanceAndFields(t *testing.T) {
	src := `
class A {
    init() {
        this.v = 3;
    }
}
class B < A {
    init() {
        super.init();
        this.v = this.v + 4;
    }
}
print B().v;
`
	out, err := run(t, src)
	require.NoError(t, err)
	assert.Equal(t, "7\n", out)
}

func TestEndToEndStaticTypeMismatchIsDeferredRuntimeError(t *testing.T) {
	out, err := run(t, `int x = 1; print x + "hi";`)
	assert.Equal(t, "", out)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Type mismatch.")
}

func TestEndToEndUnboundedSelfCallIsStackOverflow(t *testing.T) {
	src := `
fun f() {
    return f() + 1;
}
f();
`
	_, err := run(t, src)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Stack overflow.")
}

func TestEndToEndGenericArithmeticOnFunctionParameters(t *testing.T) {
	src := `
fun add(a, b) {
    return a + b;
}
print add(2, 3);
`
	out, err := run(t, src)
	require.NoError(t, err)
	assert.Equal(t, "5\n", out)
}

func TestEndToEndTypedGlobalSetEnforcesDeclaredTag(t *testing.T) {
	src := `
int x = 1;
x = "oops";
`
	_, err := run(t, src)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Expected int value for variable 'x'.")
}

func TestEndToEndTypedGlobalMayHoldClosureAtDefine(t *testing.T) {
	// A typed DEFINE is unchecked (only reassignment is), so binding a
	// closure to an int-declared global and calling it is legal.
	src := `
fun mk() {
    return 9;
}
int f = mk;
print f();
`
	out, err := run(t, src)
	require.NoError(t, err)
	assert.Equal(t, "9\n", out)
}

func TestEndToEndWhileLoopAndComparison(t *testing.T) {
	src := `
int i = 0;
int sum = 0;
while (i < 5) {
    sum = sum + i;
	i = i + 1;
}
print sum;
`
	out, err := run(t, src)
	require.NoError(t, err)
	assert.Equal(t, "10\n", out)
}

func TestEndToEndForLoopWithTypedInit(t *testing.T) {
	out, err := run(t, `for (int i = 0; i < 3; i = i + 1) { print i; }`)
	require.NoError(t, err)
	assert.Equal(t, "0\n1\n2\n", out)
}

func TestEndToEndIntDivisionByZeroIsRuntimeError(t *testing.T) {
	_, err := run(t, `int a = 1; int b = 0; print a / b;`)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Division by zero.")
}

func TestEndToEndStringConcatenation(t *testing.T) {
	out, err := run(t, `print "foo" + "bar";`)
	require.NoError(t, err)
	assert.Equal(t, "foobar\n", out)
}

func TestEndToEndReturnFromTopLevelIsCompileError(t *testing.T) {
	machine := vm.New(&bytes.Buffer{})
	_, err := Compile("return 1;", machine.Interner)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Can't return from top-level code.")
}

func TestEndToEndCannotInheritFromSelf(t *testing.T) {
	machine := vm.New(&bytes.Buffer{})
	_, err := Compile("class A < A {}", machine.Interner)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "A class can't inherit from itself.")
}

func TestEndToEndOwnInitializerReadIsCompileError(t *testing.T) {
	machine := vm.New(&bytes.Buffer{})
	_, err := Compile("{ int a = a; }", machine.Interner)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Can't read local variable in its own initializer.")
}

func TestEndToEndClosuresSurviveValueStackGrowth(t *testing.T) {
	// A tiny initial stack capacity forces append to reallocate the
	// backing array many times over as recurse()'s frames and counter()'s
	// locals pile up. bump() then captures n from the deep end of that
	// grown stack, and the captured cell must keep counting correctly
	// across calls after counter() has returned and closed it.
	var src bytes.Buffer
	src.WriteString("fun counter() {\n")
	for i := 0; i < 40; i++ {
		src.WriteString("    int pad")
		src.WriteString(strconv.Itoa(i))
		src.WriteString(" = ")
		src.WriteString(strconv.Itoa(i))
		src.WriteString(";\n")
	}
	src.WriteString(`    int n = 0;
    fun bump() {
        n = n + 1;
        return n;
    }
    return bump;
}
fun recurse(depth) {
    if (depth == 0) {
        return counter();
    }
    int keepAlive = depth;
    return recurse(depth - 1);
}
int f = recurse(40);
print f();
print f();
print f();
`)
	out := &bytes.Buffer{}
	machine := vm.NewWithLimits(out, vm.FramesMax, 8)
	fn, err := Compile(src.String(), machine.Interner)
	require.NoError(t, err)
	require.NoError(t, machine.Interpret(fn))
	assert.Equal(t, "1\n2\n3\n", out.String())
}

func TestEndToEndTooManyParametersIsCompileError(t *testing.T) {
	var src bytes.Buffer
	src.WriteString("fun f(")
	for i := 0; i < 256; i++ {
		if i > 0 {
			src.WriteString(", ")
		}
		src.WriteString("p")
		src.WriteString(strconv.Itoa(i))
	}
	src.WriteString(") {}")

	machine := vm.New(&bytes.Buffer{})
	_, err := Compile(src.String(), machine.Interner)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Can't have more than 255 parameters.")
}
