package vm

import (
	"bytes"
	"math"
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// newTestVM returns a VM wired to an in-memory stdout buffer, so tests
// can assert on printed output without touching the real console.
func newTestVM() (*VM, *bytes.Buffer) {
	var buf bytes.Buffer
	return New(&buf), &buf
}

// scriptFunction wraps chunk as a zero-arity, unnamed top-level
// function, the shape VM.Interpret expects.
func scriptFunction(chunk *Chunk) *Function {
	return &Function{Chunk: chunk}
}

func TestVMArithmeticIntAndPrint(t *testing.T) {
	machine, out := newTestVM()
	chunk := NewChunk()
	chunk.WriteOp(OpConstInt, 1)
	chunk.Write(byte(chunk.AddConstant(IntVal(5))), 1)
	chunk.WriteOp(OpConstInt, 1)
	chunk.Write(byte(chunk.AddConstant(IntVal(3))), 1)
	chunk.WriteOp(OpAddInt, 1)
	chunk.WriteOp(OpPrint, 1)
	chunk.WriteOp(OpNil, 1)
	chunk.WriteOp(OpReturn, 1)

	require.NoError(t, machine.Interpret(scriptFunction(chunk)))
	assert.Equal(t, "8\n", out.String())
}

func TestVMIntDivisionByZeroIsRuntimeError(t *testing.T) {
	machine, _ := newTestVM()
	chunk := NewChunk()
	chunk.WriteOp(OpConstInt, 1)
	chunk.Write(byte(chunk.AddConstant(IntVal(1))), 1)
	chunk.WriteOp(OpConstInt, 1)
	chunk.Write(byte(chunk.AddConstant(IntVal(0))), 1)
	chunk.WriteOp(OpDivInt, 1)
	chunk.WriteOp(OpReturn, 1)

	err := machine.Interpret(scriptFunction(chunk))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Division by zero.")
}

func TestVMFloatDivisionByZeroFollowsIEEE754(t *testing.T) {
	machine, out := newTestVM()
	chunk := NewChunk()
	chunk.WriteOp(OpConstFloat, 1)
	chunk.Write(byte(chunk.AddConstant(FloatVal(1))), 1)
	chunk.WriteOp(OpConstFloat, 1)
	chunk.Write(byte(chunk.AddConstant(FloatVal(0))), 1)
	chunk.WriteOp(OpDivFloat, 1)
	chunk.WriteOp(OpPrint, 1)
	chunk.WriteOp(OpNil, 1)
	chunk.WriteOp(OpReturn, 1)

	require.NoError(t, machine.Interpret(scriptFunction(chunk)))
	f, err := strconv.ParseFloat(out.String()[:len(out.String())-1], 64)
	require.NoError(t, err)
	assert.True(t, math.IsInf(f, 1))
}

func TestVMStackAndFramesEmptyAfterNormalCompletion(t *testing.T) {
	machine, _ := newTestVM()
	chunk := NewChunk()
	chunk.WriteOp(OpConstInt, 1)
	chunk.Write(byte(chunk.AddConstant(IntVal(1))), 1)
	chunk.WriteOp(OpPop, 1)
	chunk.WriteOp(OpNil, 1)
	chunk.WriteOp(OpReturn, 1)

	require.NoError(t, machine.Interpret(scriptFunction(chunk)))
	assert.Empty(t, machine.stack)
	assert.Empty(t, machine.frames)
}

func TestVMGetUndefinedGlobalIsRuntimeError(t *testing.T) {
	machine, _ := newTestVM()
	chunk := NewChunk()
	name := machine.Interner.Intern("missing")
	chunk.WriteOp(OpGetGlobal, 1)
	chunk.Write(byte(chunk.AddConstant(ObjVal(name))), 1)
	chunk.WriteOp(OpReturn, 1)

	err := machine.Interpret(scriptFunction(chunk))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Undefined variable 'missing'.")
}

func TestVMSetUndefinedGlobalIsRuntimeErrorNotImplicitDefine(t *testing.T) {
	machine, _ := newTestVM()
	chunk := NewChunk()
	name := machine.Interner.Intern("ghost")
	chunk.WriteOp(OpConstInt, 1)
	chunk.Write(byte(chunk.AddConstant(IntVal(1))), 1)
	chunk.WriteOp(OpSetGlobal, 1)
	chunk.Write(byte(chunk.AddConstant(ObjVal(name))), 1)
	chunk.WriteOp(OpReturn, 1)

	err := machine.Interpret(scriptFunction(chunk))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Undefined variable 'ghost'.")
	_, ok := machine.Globals.Get(name)
	assert.False(t, ok, "SET_GLOBAL on an undefined name must not define it")
}

func TestVMSetGlobalTypedMismatchIsRejected(t *testing.T) {
	machine, _ := newTestVM()
	name := machine.Interner.Intern("x")
	machine.Globals.Define(name, IntVal(1))

	chunk := NewChunk()
	chunk.WriteOp(OpConstString, 1)
	chunk.Write(byte(chunk.AddConstant(ObjVal(machine.Interner.Intern("oops")))), 1)
	chunk.WriteOp(OpSetGlobalInt, 1)
	chunk.Write(byte(chunk.AddConstant(ObjVal(name))), 1)
	chunk.WriteOp(OpReturn, 1)

	err := machine.Interpret(scriptFunction(chunk))
	require.Error(t, err)
	rerr, ok := err.(*RuntimeError)
	require.True(t, ok, "typed-global mismatch must produce a *RuntimeError, not a bare error")
	assert.Contains(t, rerr.Message, "Expected int value for variable 'x'.")
	assert.NotEmpty(t, rerr.Backtrace, "typed-global mismatch must carry a backtrace like every other runtime error")
	assert.Empty(t, machine.stack, "a runtime error must reset the stack")
	assert.Empty(t, machine.frames, "a runtime error must reset the frames")
}

func TestVMDefineGlobalTypedDoesNotCheckInitialValue(t *testing.T) {
	// A non-int value (here nil) bound through a typed declaration is
	// legal at the DEFINE site (original_source/vm.c's own IS_INT guard
	// on OP_DEFINE_GLOBAL_INT is commented out); only reassignment is
	// checked against the declared tag.
	machine, _ := newTestVM()
	name := machine.Interner.Intern("f")

	chunk := NewChunk()
	chunk.WriteOp(OpNil, 1)
	chunk.WriteOp(OpDefineGlobalInt, 1)
	chunk.Write(byte(chunk.AddConstant(ObjVal(name))), 1)
	chunk.WriteOp(OpReturn, 1)

	require.NoError(t, machine.Interpret(scriptFunction(chunk)))
	v, ok := machine.Globals.Get(name)
	require.True(t, ok)
	assert.True(t, v.IsNil())
}

// selfCallingClosure builds a closure whose body reads a global (by
// the name it is itself bound to) and calls it with zero arguments,
// unconditionally recursing.
func selfCallingClosure(interner *Interner, name string) (*StringObj, *Closure) {
	chunk := NewChunk()
	nameObj := interner.Intern(name)
	chunk.WriteOp(OpGetGlobal, 1)
	chunk.Write(byte(chunk.AddConstant(ObjVal(nameObj))), 1)
	chunk.WriteOp(OpCall, 1)
	chunk.Write(0, 1)
	chunk.WriteOp(OpPop, 1)
	chunk.WriteOp(OpNil, 1)
	chunk.WriteOp(OpReturn, 1)

	fn := &Function{Name: nameObj, Arity: 0, Chunk: chunk}
	return nameObj, &Closure{Function: fn}
}

func TestVMUnboundedRecursionIsStackOverflow(t *testing.T) {
	machine, _ := newTestVM()
	name, closure := selfCallingClosure(machine.Interner, "f")
	machine.Globals.Define(name, ObjVal(closure))

	err := machine.Interpret(closure.Function)
	require.Error(t, err)
	rerr, ok := err.(*RuntimeError)
	require.True(t, ok)
	assert.Contains(t, rerr.Message, "Stack overflow.")
	assert.NotEmpty(t, rerr.Backtrace)
}

func TestVMCallArityMismatchIsRuntimeError(t *testing.T) {
	machine, _ := newTestVM()
	inner := NewChunk()
	inner.WriteOp(OpNil, 1)
	inner.WriteOp(OpReturn, 1)
	fn := &Function{Name: machine.Interner.Intern("needsOne"), Arity: 1, Chunk: inner}
	closure := &Closure{Function: fn}

	outer := NewChunk()
	name := machine.Interner.Intern("needsOne")
	machine.Globals.Define(name, ObjVal(closure))
	outer.WriteOp(OpGetGlobal, 1)
	outer.Write(byte(outer.AddConstant(ObjVal(name))), 1)
	outer.WriteOp(OpCall, 1)
	outer.Write(0, 1)
	outer.WriteOp(OpReturn, 1)

	err := machine.Interpret(scriptFunction(outer))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Expected 1 arguments but got 0.")
}
