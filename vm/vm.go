package vm

import (
	"fmt"
	"io"
)

// VM executes compiled chunks: one shared value stack sliced into
// per-call frame windows, plus the globals table, string interner, and
// open-upvalue list spec.md §4.3 describes. Grounded on
// original_source/vm.c's struct VM and its run() dispatch loop, with
// OP_RETURN's original bug (an unreachable early `return INTERPRET_OK`
// before the frame is actually torn down) fixed per the expectation
// that function calls return real values.
type VM struct {
	stack        []Value
	frames       []CallFrame
	Globals      *Globals
	Interner     *Interner
	openUpvalues *Upvalue
	initString   *StringObj
	Stdout       io.Writer

	// maxFrames defaults to FramesMax but can be narrowed (never widened
	// past FramesMax) through internal/config, so an operator can lower
	// the recursion ceiling without rebuilding the binary.
	maxFrames int

	// lastCallError carries a call-site failure (arity mismatch, stack
	// overflow, uncallable value) out of call()/callValue()/invoke()/
	// bindMethod(), which original_source/vm.c reports via the
	// bool-return-plus-global-runtimeError idiom; Go prefers returning
	// the error value directly, so these helpers stash it here and
	// return false, and every caller that sees false returns
	// lastCallError immediately.
	lastCallError error
}

// New creates a VM with an empty stack and a globals table seeded with
// the clock() native, matching original_source/vm.c's initVM.
func New(stdout io.Writer) *VM {
	return NewWithLimits(stdout, FramesMax, StackMax)
}

// NewWithLimits is New with an operator-supplied frame ceiling and
// initial value-stack capacity, called by internal/driver with the
// values internal/config loads, so EMBER_MAX_FRAMES/EMBER_MAX_STACK (or
// their YAML equivalents) can tighten the defaults without touching
// vm.FramesMax/vm.StackMax. Values that are zero, negative, or above
// those constants fall back to them. maxFrames is a hard limit on call
// depth; maxStack only sizes the stack's initial allocation, and the
// stack grows past it by append.
func NewWithLimits(stdout io.Writer, maxFrames, maxStack int) *VM {
	if maxFrames <= 0 || maxFrames > FramesMax {
		maxFrames = FramesMax
	}
	if maxStack <= 0 || maxStack > StackMax {
		maxStack = StackMax
	}
	interner := NewInterner()
	v := &VM{
		stack:      make([]Value, 0, maxStack),
		frames:     make([]CallFrame, 0, maxFrames),
		Globals:    NewGlobals(),
		Interner:   interner,
		initString: interner.Intern("init"),
		Stdout:     stdout,
		maxFrames:  maxFrames,
	}
	v.defineNative(NativeClock())
	return v
}

func (v *VM) defineNative(n *NativeFunction) {
	name := v.Interner.Intern(n.Name)
	v.Globals.Define(name, ObjVal(n))
}

func (v *VM) push(value Value) {
	v.stack = append(v.stack, value)
}

func (v *VM) pop() Value {
	n := len(v.stack) - 1
	val := v.stack[n]
	v.stack = v.stack[:n]
	return val
}

func (v *VM) peek(distance int) Value {
	return v.stack[len(v.stack)-1-distance]
}

func (v *VM) resetStack() {
	v.stack = v.stack[:0]
	v.frames = v.frames[:0]
	v.openUpvalues = nil
}

func (v *VM) runtimeError(format string, args ...interface{}) *RuntimeError {
	err := newRuntimeError(v.frames, format, args...)
	v.resetStack()
	return err
}

// Interpret runs an already-compiled top-level function in a fresh call
// frame. Package vm never imports package compiler; the driver compiles
// source to a *Function first and hands it here.
func (v *VM) Interpret(fn *Function) error {
	closure := &Closure{Function: fn, Upvalues: make([]*Upvalue, fn.UpvalueCount)}
	v.push(ObjVal(closure))
	if !v.call(closure, 0) {
		return v.lastCallError
	}
	return v.run()
}

func (v *VM) call(closure *Closure, argCount int) bool {
	if argCount != closure.Function.Arity {
		v.lastCallError = v.runtimeError("Expected %d arguments but got %d.", closure.Function.Arity, argCount)
		return false
	}
	if len(v.frames) == v.maxFrames {
		v.lastCallError = v.runtimeError("Stack overflow.")
		return false
	}
	v.frames = append(v.frames, CallFrame{
		Closure: closure,
		IP:      0,
		Slots:   len(v.stack) - argCount - 1,
	})
	return true
}

func (v *VM) callValue(callee Value, argCount int) bool {
	if callee.IsObj() {
		switch obj := callee.Obj.(type) {
		case *BoundMethod:
			v.stack[len(v.stack)-argCount-1] = obj.Receiver
			return v.call(obj.Method, argCount)
		case *Class:
			v.stack[len(v.stack)-argCount-1] = ObjVal(NewInstance(obj))
			if initializer, ok := obj.FindMethod(v.initString); ok {
				return v.call(initializer, argCount)
			}
			if argCount != 0 {
				v.lastCallError = v.runtimeError("Expected 0 arguments but got %d.", argCount)
				return false
			}
			return true
		case *Closure:
			return v.call(obj, argCount)
		case *NativeFunction:
			args := v.stack[len(v.stack)-argCount:]
			result, err := obj.Fn(args)
			if err != nil {
				v.lastCallError = v.runtimeError("%s", err.Error())
				return false
			}
			v.stack = v.stack[:len(v.stack)-argCount-1]
			v.push(result)
			return true
		}
	}
	v.lastCallError = v.runtimeError("Can only call functions and classes.")
	return false
}

func (v *VM) invokeFromClass(class *Class, name *StringObj, argCount int) bool {
	method, ok := class.FindMethod(name)
	if !ok {
		v.lastCallError = v.runtimeError("Undefined property '%s'.", name.Value)
		return false
	}
	return v.call(method, argCount)
}

func (v *VM) invoke(name *StringObj, argCount int) bool {
	receiver := v.peek(argCount)
	if !receiver.IsInstance() {
		v.lastCallError = v.runtimeError("Only instances have methods.")
		return false
	}
	instance := receiver.AsInstance()
	if value, ok := instance.Fields.Get(name); ok {
		v.stack[len(v.stack)-argCount-1] = value
		return v.callValue(value, argCount)
	}
	return v.invokeFromClass(instance.Class, name, argCount)
}

func (v *VM) bindMethod(class *Class, name *StringObj) bool {
	method, ok := class.FindMethod(name)
	if !ok {
		v.lastCallError = v.runtimeError("Undefined property '%s'.", name.Value)
		return false
	}
	bound := &BoundMethod{Receiver: v.peek(0), Method: method}
	v.pop()
	v.push(ObjVal(bound))
	return true
}

func (v *VM) captureUpvalue(index int) *Upvalue {
	var prev *Upvalue
	up := v.openUpvalues
	for up != nil && up.StackIndex > index {
		prev = up
		up = up.Next
	}
	if up != nil && up.StackIndex == index {
		return up
	}
	created := &Upvalue{StackIndex: index, open: true}
	created.Next = up
	if prev == nil {
		v.openUpvalues = created
	} else {
		prev.Next = created
	}
	return created
}

func (v *VM) closeUpvalues(fromIndex int) {
	for v.openUpvalues != nil && v.openUpvalues.StackIndex >= fromIndex {
		up := v.openUpvalues
		up.Close(v.stack)
		v.openUpvalues = up.Next
	}
}

func (v *VM) defineMethod(name *StringObj) {
	method := v.peek(0)
	class := v.peek(1).AsClass()
	class.Methods.Put(name, method.AsClosure())
	v.pop()
}

// run is the bytecode dispatch loop, grounded on original_source/vm.c's
// run().
func (v *VM) run() error {
	frame := &v.frames[len(v.frames)-1]

	for {
		instruction := Opcode(frame.readByte())
		switch instruction {
		case OpConst, OpConstInt, OpConstFloat, OpConstString:
			v.push(frame.readConstant())

		case OpNil:
			v.push(Nil())
		case OpTrue:
			v.push(BoolVal(true))
		case OpFalse:
			v.push(BoolVal(false))
		case OpPop:
			v.pop()

		case OpGetLocal:
			slot := frame.readByte()
			v.push(v.stack[frame.Slots+int(slot)])
		case OpSetLocal:
			slot := frame.readByte()
			v.stack[frame.Slots+int(slot)] = v.peek(0)

		case OpGetGlobal, OpGetGlobalInt, OpGetGlobalFloat, OpGetGlobalString:
			// Typed GET is a passthrough: the tag was already enforced at
			// the point of assignment (OP_SET_GLOBAL_*), so re-checking on
			// every read would only reject values a prior DEFINE legally
			// put there (e.g. a closure bound through a typed declaration
			// used purely as a named slot, never reassigned).
			name := frame.readConstant().AsString()
			value, ok := v.Globals.Get(name)
			if !ok {
				return v.runtimeError("Undefined variable '%s'.", name.Value)
			}
			v.push(value)

		case OpDefineGlobal, OpDefineGlobalInt, OpDefineGlobalFloat, OpDefineGlobalString:
			// Initial definition never enforces the tag, matching
			// original_source/vm.c's OP_DEFINE_GLOBAL_INT (its IS_INT guard
			// is commented out): the declared type governs reassignment,
			// not the first binding.
			name := frame.readConstant().AsString()
			value := v.pop()
			v.Globals.Define(name, value)

		case OpSetGlobal, OpSetGlobalInt, OpSetGlobalFloat, OpSetGlobalString:
			name := frame.readConstant().AsString()
			value := v.peek(0)
			if msg, ok := checkGlobalKind(defineCounterpart(instruction), value, name); !ok {
				return v.runtimeError("%s", msg)
			}
			if !v.Globals.Set(name, value) {
				return v.runtimeError("Undefined variable '%s'.", name.Value)
			}

		case OpGetUpvalue:
			slot := frame.readByte()
			v.push(frame.Closure.Upvalues[slot].Get(v.stack))
		case OpSetUpvalue:
			slot := frame.readByte()
			frame.Closure.Upvalues[slot].Set(v.stack, v.peek(0))
		case OpCloseUpvalue:
			v.closeUpvalues(len(v.stack) - 1)
			v.pop()

		case OpGetProperty:
			if !v.peek(0).IsInstance() {
				return v.runtimeError("Only instances have properties.")
			}
			instance := v.peek(0).AsInstance()
			name := frame.readConstant().AsString()
			if value, ok := instance.Fields.Get(name); ok {
				v.pop()
				v.push(value)
				break
			}
			if !v.bindMethod(instance.Class, name) {
				return v.lastCallError
			}

		case OpSetProperty:
			if !v.peek(1).IsInstance() {
				return v.runtimeError("Only instances have fields.")
			}
			instance := v.peek(1).AsInstance()
			name := frame.readConstant().AsString()
			instance.Fields.Put(name, v.peek(0))
			value := v.pop()
			v.pop()
			v.push(value)

		case OpGetSuper:
			name := frame.readConstant().AsString()
			superclass := v.pop().AsClass()
			if !v.bindMethod(superclass, name) {
				return v.lastCallError
			}

		case OpEqual:
			b := v.pop()
			a := v.pop()
			v.push(BoolVal(Equal(a, b)))

		case OpGreater:
			if err := v.comparison(">"); err != nil {
				return err
			}
		case OpLess:
			if err := v.comparison("<"); err != nil {
				return err
			}

		case OpAdd:
			if err := v.add(); err != nil {
				return err
			}
		case OpSub:
			if err := v.dynamicArith("-"); err != nil {
				return err
			}
		case OpMul:
			if err := v.dynamicArith("*"); err != nil {
				return err
			}
		case OpDiv:
			if err := v.dynamicArith("/"); err != nil {
				return err
			}
		case OpAddInt:
			if err := v.binaryInt("+"); err != nil {
				return err
			}
		case OpSubInt:
			if err := v.binaryInt("-"); err != nil {
				return err
			}
		case OpMulInt:
			if err := v.binaryInt("*"); err != nil {
				return err
			}
		case OpDivInt:
			if err := v.binaryInt("/"); err != nil {
				return err
			}
		case OpAddFloat:
			if err := v.binaryFloat("+"); err != nil {
				return err
			}
		case OpSubFloat:
			if err := v.binaryFloat("-"); err != nil {
				return err
			}
		case OpMulFloat:
			if err := v.binaryFloat("*"); err != nil {
				return err
			}
		case OpDivFloat:
			if err := v.binaryFloat("/"); err != nil {
				return err
			}

		case OpNot:
			v.push(BoolVal(v.pop().IsFalsey()))
		case OpNegateInt:
			if !v.peek(0).IsInt() {
				return v.runtimeError("Operand must be a number.")
			}
			v.push(IntVal(-v.pop().Int))
		case OpNegateFloat:
			if !v.peek(0).IsFloat() {
				return v.runtimeError("Operand must be a number.")
			}
			v.push(FloatVal(-v.pop().Float))

		case OpPrint:
			fmt.Fprintln(v.Stdout, v.pop().String())

		case OpJump:
			offset := frame.readShort()
			frame.IP += int(offset)
		case OpJumpIfFalse:
			offset := frame.readShort()
			if v.peek(0).IsFalsey() {
				frame.IP += int(offset)
			}
		case OpLoop:
			offset := frame.readShort()
			frame.IP -= int(offset)

		case OpCall:
			argCount := int(frame.readByte())
			if !v.callValue(v.peek(argCount), argCount) {
				return v.lastCallError
			}
			frame = &v.frames[len(v.frames)-1]

		case OpInvoke:
			method := frame.readConstant().AsString()
			argCount := int(frame.readByte())
			if !v.invoke(method, argCount) {
				return v.lastCallError
			}
			frame = &v.frames[len(v.frames)-1]

		case OpSuperInvoke:
			method := frame.readConstant().AsString()
			argCount := int(frame.readByte())
			superclass := v.pop().AsClass()
			if !v.invokeFromClass(superclass, method, argCount) {
				return v.lastCallError
			}
			frame = &v.frames[len(v.frames)-1]

		case OpClosure:
			function := frame.readConstant().AsFunction()
			closure := &Closure{Function: function, Upvalues: make([]*Upvalue, function.UpvalueCount)}
			v.push(ObjVal(closure))
			for i := 0; i < function.UpvalueCount; i++ {
				isLocal := frame.readByte()
				index := frame.readByte()
				if isLocal != 0 {
					idx := frame.Slots + int(index)
					closure.Upvalues[i] = v.captureUpvalue(idx)
				} else {
					closure.Upvalues[i] = frame.Closure.Upvalues[index]
				}
			}

		case OpReturn:
			result := v.pop()
			v.closeUpvalues(frame.Slots)
			v.frames = v.frames[:len(v.frames)-1]
			if len(v.frames) == 0 {
				v.pop()
				return nil
			}
			v.stack = v.stack[:frame.Slots]
			v.push(result)
			frame = &v.frames[len(v.frames)-1]

		case OpClass:
			name := frame.readConstant().AsString()
			v.push(ObjVal(NewClass(name)))

		case OpInherit:
			superVal := v.peek(1)
			if !superVal.IsClass() {
				return v.runtimeError("Superclass must be a class.")
			}
			subclass := v.peek(0).AsClass()
			super := superVal.AsClass()
			subclass.Superclass = super
			v.pop()

		case OpMethod:
			name := frame.readConstant().AsString()
			v.defineMethod(name)

		case OpTypeError:
			return v.runtimeError("Type mismatch.")
		case OpRuntimeError:
			return v.runtimeError("An error occurred.")

		default:
			return v.runtimeError("Unknown opcode %d.", byte(instruction))
		}
	}
}

func (v *VM) comparison(op string) error {
	a, b := v.peek(1), v.peek(0)
	switch {
	case a.IsInt() && b.IsInt():
		bv := v.pop().Int
		av := v.pop().Int
		v.push(BoolVal(intCompare(op, av, bv)))
	case a.IsFloat() && b.IsFloat():
		bv := v.pop().Float
		av := v.pop().Float
		v.push(BoolVal(floatCompare(op, av, bv)))
	default:
		return v.runtimeError("Operands must be numbers.")
	}
	return nil
}

func intCompare(op string, a, b int32) bool {
	if op == ">" {
		return a > b
	}
	return a < b
}

func floatCompare(op string, a, b float64) bool {
	if op == ">" {
		return a > b
	}
	return a < b
}

// add implements the generic OP_ADD the compiler emits whenever at
// least one operand's type could not be inferred statically (a
// parameter, a call result, a field read): string concatenation
// (grounded on original_source/vm.c's concatenate()) plus a dynamic
// fallback for the numeric cases the typed OP_ADD_INT/OP_ADD_FLOAT
// opcodes normally cover when both operand types are known at compile
// time.
func (v *VM) add() error {
	b, a := v.peek(0), v.peek(1)
	switch {
	case a.IsString() && b.IsString():
		bs := v.pop().AsString()
		as := v.pop().AsString()
		v.push(ObjVal(v.Interner.Intern(as.Value + bs.Value)))
		return nil
	case a.IsInt() && b.IsInt():
		return v.binaryInt("+")
	case a.IsFloat() && b.IsFloat():
		return v.binaryFloat("+")
	default:
		return v.runtimeError("Type mismatch.")
	}
}

// dynamicArith implements the generic OP_SUB/OP_MUL/OP_DIV opcodes the
// compiler emits for the same reason as add(): one or both operands of
// a -, *, or / expression had no statically known type.
func (v *VM) dynamicArith(op string) error {
	a, b := v.peek(1), v.peek(0)
	switch {
	case a.IsInt() && b.IsInt():
		return v.binaryInt(op)
	case a.IsFloat() && b.IsFloat():
		return v.binaryFloat(op)
	default:
		return v.runtimeError("Type mismatch.")
	}
}

func (v *VM) binaryInt(op string) error {
	if !v.peek(0).IsInt() || !v.peek(1).IsInt() {
		return v.runtimeError("Operands must be numbers.")
	}
	bv := v.pop().Int
	av := v.pop().Int
	switch op {
	case "+":
		v.push(IntVal(av + bv))
	case "-":
		v.push(IntVal(av - bv))
	case "*":
		v.push(IntVal(av * bv))
	case "/":
		if bv == 0 {
			return v.runtimeError("Division by zero.")
		}
		v.push(IntVal(av / bv))
	}
	return nil
}

func (v *VM) binaryFloat(op string) error {
	if !v.peek(0).IsFloat() || !v.peek(1).IsFloat() {
		return v.runtimeError("Operands must be numbers.")
	}
	bv := v.pop().Float
	av := v.pop().Float
	switch op {
	case "+":
		v.push(FloatVal(av + bv))
	case "-":
		v.push(FloatVal(av - bv))
	case "*":
		v.push(FloatVal(av * bv))
	case "/":
		// Float division by zero follows IEEE 754 (±Inf/NaN), per spec;
		// only integer division by zero is a runtime error.
		v.push(FloatVal(av / bv))
	}
	return nil
}

// checkGlobalKind enforces the typed-global discipline on reassignment:
// a mismatch reports false and the message to report, which the caller
// turns into a proper runtime error via v.runtimeError (so it gets a
// backtrace and resets the stack like every other failure in run()).
// Initial definition (OP_DEFINE_GLOBAL_*) and reads (OP_GET_GLOBAL_*)
// are intentionally exempt — see the comments at those cases in run()
// — so only OP_SET_GLOBAL_* ever calls this.
func checkGlobalKind(op Opcode, value Value, name *StringObj) (string, bool) {
	switch op {
	case OpGetGlobalInt:
		if !value.IsInt() {
			return fmt.Sprintf("Expected int value for variable '%s'.", name.Value), false
		}
	case OpGetGlobalFloat:
		if !value.IsFloat() {
			return fmt.Sprintf("Expected float value for variable '%s'.", name.Value), false
		}
	case OpGetGlobalString:
		if !value.IsString() {
			return fmt.Sprintf("Expected string value for variable '%s'.", name.Value), false
		}
	}
	return "", true
}

// defineCounterpart maps a SET_GLOBAL_* opcode onto the GET_GLOBAL_*
// member checkGlobalKind switches on, since both name the same
// declared-type discipline.
func defineCounterpart(op Opcode) Opcode {
	switch op {
	case OpDefineGlobalInt, OpSetGlobalInt:
		return OpGetGlobalInt
	case OpDefineGlobalFloat, OpSetGlobalFloat:
		return OpGetGlobalFloat
	case OpDefineGlobalString, OpSetGlobalString:
		return OpGetGlobalString
	}
	return OpGetGlobal
}
