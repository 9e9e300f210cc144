package vm

// Opcode is a single bytecode instruction tag, spec.md §4.1.
type Opcode byte

const (
	OpConst Opcode = iota
	OpConstInt
	OpConstFloat
	OpConstString
	OpNil
	OpTrue
	OpFalse

	OpPop

	OpGetLocal
	OpSetLocal

	OpDefineGlobal
	OpDefineGlobalInt
	OpDefineGlobalFloat
	OpDefineGlobalString
	OpGetGlobal
	OpGetGlobalInt
	OpGetGlobalFloat
	OpGetGlobalString
	OpSetGlobal
	OpSetGlobalInt
	OpSetGlobalFloat
	OpSetGlobalString

	OpGetUpvalue
	OpSetUpvalue
	OpCloseUpvalue

	OpGetProperty
	OpSetProperty
	OpGetSuper

	OpEqual
	OpGreater
	OpLess

	OpAdd
	OpSub
	OpMul
	OpDiv
	OpAddInt
	OpAddFloat
	OpSubInt
	OpSubFloat
	OpMulInt
	OpMulFloat
	OpDivInt
	OpDivFloat
	OpNegateInt
	OpNegateFloat
	OpNot

	OpJump
	OpJumpIfFalse
	OpLoop
	OpCall
	OpInvoke
	OpSuperInvoke
	OpReturn

	OpClosure
	OpClass
	OpInherit
	OpMethod

	OpTypeError
	OpRuntimeError

	OpPrint
)

var opcodeNames = [...]string{
	OpConst:               "CONST",
	OpConstInt:             "CONST_INT",
	OpConstFloat:           "CONST_FLOAT",
	OpConstString:          "CONST_STRING",
	OpNil:                  "NIL",
	OpTrue:                 "TRUE",
	OpFalse:                "FALSE",
	OpPop:                  "POP",
	OpGetLocal:             "GET_LOCAL",
	OpSetLocal:             "SET_LOCAL",
	OpDefineGlobal:         "DEFINE_GLOBAL",
	OpDefineGlobalInt:      "DEFINE_GLOBAL_INT",
	OpDefineGlobalFloat:    "DEFINE_GLOBAL_FLOAT",
	OpDefineGlobalString:   "DEFINE_GLOBAL_STRING",
	OpGetGlobal:            "GET_GLOBAL",
	OpGetGlobalInt:         "GET_GLOBAL_INT",
	OpGetGlobalFloat:       "GET_GLOBAL_FLOAT",
	OpGetGlobalString:      "GET_GLOBAL_STRING",
	OpSetGlobal:            "SET_GLOBAL",
	OpSetGlobalInt:         "SET_GLOBAL_INT",
	OpSetGlobalFloat:       "SET_GLOBAL_FLOAT",
	OpSetGlobalString:      "SET_GLOBAL_STRING",
	OpGetUpvalue:           "GET_UPVALUE",
	OpSetUpvalue:           "SET_UPVALUE",
	OpCloseUpvalue:         "CLOSE_UPVALUE",
	OpGetProperty:          "GET_PROPERTY",
	OpSetProperty:          "SET_PROPERTY",
	OpGetSuper:             "GET_SUPER",
	OpEqual:                "EQUAL",
	OpGreater:              "GREATER",
	OpLess:                 "LESS",
	OpAdd:                  "ADD",
	OpSub:                  "SUB",
	OpMul:                  "MUL",
	OpDiv:                  "DIV",
	OpAddInt:               "ADD_INT",
	OpAddFloat:             "ADD_FLOAT",
	OpSubInt:               "SUB_INT",
	OpSubFloat:             "SUB_FLOAT",
	OpMulInt:               "MUL_INT",
	OpMulFloat:             "MUL_FLOAT",
	OpDivInt:               "DIV_INT",
	OpDivFloat:             "DIV_FLOAT",
	OpNegateInt:            "NEGATE_INT",
	OpNegateFloat:          "NEGATE_FLOAT",
	OpNot:                  "NOT",
	OpJump:                 "JUMP",
	OpJumpIfFalse:          "JUMP_IF_FALSE",
	OpLoop:                 "LOOP",
	OpCall:                 "CALL",
	OpInvoke:               "INVOKE",
	OpSuperInvoke:          "SUPER_INVOKE",
	OpReturn:               "RETURN",
	OpClosure:              "CLOSURE",
	OpClass:                "CLASS",
	OpInherit:              "INHERIT",
	OpMethod:               "METHOD",
	OpTypeError:            "TYPE_ERROR",
	OpRuntimeError:         "RUNTIME_ERROR",
	OpPrint:                "PRINT",
}

func (op Opcode) String() string {
	if int(op) < len(opcodeNames) && opcodeNames[op] != "" {
		return opcodeNames[op]
	}
	return "UNKNOWN"
}

// operandWidth gives the number of fixed inline operand bytes following
// each opcode, matching spec.md §4.1's instruction table. OpClosure is
// variable-length (a 1-byte function constant index followed by one
// (is_local, index) pair per upvalue) and is handled specially by the
// disassembler, the one consumer of these widths.
var operandWidth = [...]int{
	OpConst:             1,
	OpConstInt:          1,
	OpConstFloat:        1,
	OpConstString:       1,
	OpGetLocal:          1,
	OpSetLocal:          1,
	OpDefineGlobal:       1,
	OpDefineGlobalInt:    1,
	OpDefineGlobalFloat:  1,
	OpDefineGlobalString: 1,
	OpGetGlobal:          1,
	OpGetGlobalInt:       1,
	OpGetGlobalFloat:     1,
	OpGetGlobalString:    1,
	OpSetGlobal:          1,
	OpSetGlobalInt:       1,
	OpSetGlobalFloat:     1,
	OpSetGlobalString:    1,
	OpGetUpvalue:         1,
	OpSetUpvalue:         1,
	OpGetProperty:        1,
	OpSetProperty:        1,
	OpGetSuper:           1,
	OpJump:               2,
	OpJumpIfFalse:        2,
	OpLoop:               2,
	OpCall:               1,
	OpInvoke:             2,
	OpSuperInvoke:        2,
	OpClass:              1,
	OpMethod:             1,
}

// OperandWidth returns the number of fixed operand bytes for op (0 for
// operand-less opcodes, -1 for OpClosure's variable-length encoding).
func OperandWidth(op Opcode) int {
	if op == OpClosure {
		return -1
	}
	if int(op) < len(operandWidth) {
		return operandWidth[op]
	}
	return 0
}
