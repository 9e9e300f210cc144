package compiler

import "ember/vm"

// maxLocals/maxUpvalues/maxConstants mirror spec.md §3's fixed-capacity
// compiler-frame arrays (UINT8_COUNT in original_source/compiler.c):
// every slot index fits in one operand byte, so 256 is a hard ceiling,
// not a tuning knob.
const (
	maxLocals    = 256
	maxUpvalues  = 256
	maxConstants = 256
)

// functionType tags what kind of callable a funcState is compiling,
// spec.md §3's "function-type tag (script|function|method|initializer)".
type functionType int

const (
	typeScript functionType = iota
	typeFunction
	typeMethod
	typeInitializer
)

// exprType is the compiler's static type-inference lattice, spec.md
// §4.2's `currentType`. Tracked per-expression so binary operators can
// pick the typed opcode variant without a runtime tag check.
type exprType int

const (
	typeUnknown exprType = iota
	typeNilExpr
	typeBoolExpr
	typeIntExpr
	typeFloatExpr
	typeStringExpr
)

func (t exprType) String() string {
	switch t {
	case typeNilExpr:
		return "nil"
	case typeBoolExpr:
		return "bool"
	case typeIntExpr:
		return "int"
	case typeFloatExpr:
		return "float"
	case typeStringExpr:
		return "string"
	default:
		return "unknown"
	}
}

// local is one entry in a funcState's fixed-size local-variable array,
// spec.md §3's Compiler frame "locals[256] (name token, lexical depth,
// captured-flag, declared type)".
type local struct {
	name       string
	depth      int // -1 until the initializer completes (markInitialized)
	isCaptured bool
	declType   exprType
}

// upvalueDesc records how one upvalue slot of a compiling function was
// resolved: from a local slot of the immediately enclosing function
// (isLocal true) or forwarded from that function's own upvalue vector.
type upvalueDesc struct {
	index   byte
	isLocal bool
}

// funcState is one compiler frame: the function currently being built,
// plus every piece of compile-time state scoped to it. Grounded on
// original_source/compiler.c's `struct Compiler`.
type funcState struct {
	enclosing *funcState
	function  *vm.Function
	funcType  functionType

	locals     [maxLocals]local
	localCount int
	scopeDepth int

	upvalues     [maxUpvalues]upvalueDesc
	upvalueCount int
}

// classState is one class-compiler frame, spec.md §3's "Class compiler
// (enclosing, whether a superclass is in scope)", consulted by `super`
// resolution.
type classState struct {
	enclosing      *classState
	hasSuperclass  bool
}
