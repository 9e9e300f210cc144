// Package compiler implements the single-pass Pratt-parser compiler:
// tokens in, a top-level *vm.Function (chunk) out. There is no separate
// AST stage — every parse rule emits bytecode directly into the chunk
// of the funcState currently being compiled, grounded throughout on
// original_source/compiler.c.
package compiler

import (
	"fmt"

	"ember/lexer"
	"ember/token"
	"ember/vm"
)

// Compiler holds all parser and compile-time state for one compilation
// unit: the token stream, the chain of function-compiler frames, the
// chain of class-compiler frames, and panic-mode bookkeeping. Grounded
// on original_source/compiler.c's file-scope `Parser parser` / `Compiler*
// current` / `ClassCompiler* currentClass` globals, threaded explicitly
// instead of kept as process-wide singletons (spec.md §9's "reimplement
// as explicit contexts" design note).
type Compiler struct {
	lex      *lexer.Lexer
	interner *vm.Interner

	current  token.Token
	previous token.Token

	hadError  bool
	panicMode bool
	errors    []string

	// currentType is the static type of the most recently parsed
	// expression, spec.md §4.2's per-operand type inference.
	currentType exprType

	fn    *funcState
	class *classState

	// globalTypes records the declared type of every top-level typed
	// variable seen so far, so a later reference can pick the typed
	// GET/SET/DEFINE_GLOBAL_* opcode family. original_source/compiler.c
	// attempts the same dispatch in namedVariable by switching on the
	// *name* token's type, which is always TOKEN_IDENTIFIER for a
	// variable reference and so never actually selects a typed opcode;
	// tracking the declared type directly here is what the source
	// evidently intended.
	globalTypes map[string]exprType
}

// Compile scans and compiles source into a top-level function. interner
// is the same string table the VM uses at runtime, so string constants
// baked into the chunk are pointer-identical to equal strings produced
// during execution (spec.md §3's interned-identity guarantee).
func Compile(source string, interner *vm.Interner) (*vm.Function, error) {
	c := &Compiler{
		lex:         lexer.New(source),
		interner:    interner,
		globalTypes: make(map[string]exprType),
	}
	c.fn = newFuncState(nil, typeScript, "")

	c.advance()
	for !c.match(token.EOF) {
		c.declaration()
	}
	fn := c.endFuncState()

	if c.hadError {
		return nil, &vm.CompileError{Errors: c.errors}
	}
	return fn, nil
}

func newFuncState(enclosing *funcState, ft functionType, name string) *funcState {
	fs := &funcState{
		enclosing: enclosing,
		funcType:  ft,
		function:  &vm.Function{Chunk: vm.NewChunk()},
	}
	if name != "" {
		fs.function.Name = &vm.StringObj{Value: name}
	}
	// Slot 0 of every frame is reserved: `this` for methods/initializers,
	// the callee closure itself otherwise (original_source/compiler.c's
	// initCompiler).
	slotName := ""
	if ft != typeFunction && ft != typeScript {
		slotName = "this"
	}
	fs.locals[0] = local{name: slotName, depth: 0}
	fs.localCount = 1
	return fs
}

// --- token stream plumbing ---

func (c *Compiler) advance() {
	c.previous = c.current
	for {
		c.current = c.lex.NextToken()
		if c.current.Type != token.ILLEGAL {
			break
		}
		c.errorAtCurrent(fmt.Sprintf("Unexpected character '%s'.", c.current.Lexeme))
	}
}

func (c *Compiler) check(t token.Type) bool {
	return c.current.Type == t
}

func (c *Compiler) match(t token.Type) bool {
	if !c.check(t) {
		return false
	}
	c.advance()
	return true
}

func (c *Compiler) consume(t token.Type, message string) {
	if c.current.Type == t {
		c.advance()
		return
	}
	c.errorAtCurrent(message)
}

// --- error reporting & panic-mode recovery ---

func (c *Compiler) errorAt(tok token.Token, message string) {
	if c.panicMode {
		return
	}
	c.panicMode = true
	c.hadError = true
	where := fmt.Sprintf("at '%s'", tok.Lexeme)
	if tok.Type == token.EOF {
		where = "at end"
	}
	c.errors = append(c.errors, fmt.Sprintf("[line %d] Error %s: %s", tok.Line, where, message))
}

func (c *Compiler) errorAtCurrent(message string) { c.errorAt(c.current, message) }
func (c *Compiler) error(message string)          { c.errorAt(c.previous, message) }

// synchronize discards tokens until a likely declaration boundary,
// spec.md §7's panic-mode recovery.
func (c *Compiler) synchronize() {
	c.panicMode = false
	for c.current.Type != token.EOF {
		if c.previous.Type == token.SEMICOLON {
			return
		}
		switch c.current.Type {
		case token.CLASS, token.FUN, token.INT, token.FLOAT, token.STRING,
			token.FOR, token.IF, token.WHILE, token.PRINT, token.RETURN:
			return
		}
		c.advance()
	}
}

// --- bytecode emission ---

func (c *Compiler) currentChunk() *vm.Chunk { return c.fn.function.Chunk }

func (c *Compiler) emitByte(b byte) {
	c.currentChunk().Write(b, c.previous.Line)
}

func (c *Compiler) emitOp(op vm.Opcode) { c.emitByte(byte(op)) }

func (c *Compiler) emitBytes(b1, b2 byte) {
	c.emitByte(b1)
	c.emitByte(b2)
}

func (c *Compiler) emitOpByte(op vm.Opcode, b byte) { c.emitBytes(byte(op), b) }

func (c *Compiler) emitLoop(loopStart int) {
	c.emitOp(vm.OpLoop)
	offset := len(c.currentChunk().Code) - loopStart + 2
	if offset > 0xFFFF {
		c.error("Loop body too large.")
	}
	c.emitByte(byte(offset >> 8))
	c.emitByte(byte(offset & 0xFF))
}

// emitJump emits op followed by a two-byte placeholder and returns the
// offset of the placeholder's first byte, for patchJump to fill in
// later (spec.md §4.2's emit_jump/patch_jump handle API).
func (c *Compiler) emitJump(op vm.Opcode) int {
	c.emitOp(op)
	c.emitByte(0xFF)
	c.emitByte(0xFF)
	return len(c.currentChunk().Code) - 2
}

func (c *Compiler) patchJump(offset int) {
	jump := len(c.currentChunk().Code) - offset - 2
	if jump > 0xFFFF {
		c.error("Too much code to jump over.")
	}
	c.currentChunk().Code[offset] = byte(jump >> 8)
	c.currentChunk().Code[offset+1] = byte(jump & 0xFF)
}

func (c *Compiler) emitReturn() {
	if c.fn.funcType == typeInitializer {
		c.emitOpByte(vm.OpGetLocal, 0)
	} else {
		c.emitOp(vm.OpNil)
	}
	c.emitOp(vm.OpReturn)
}

func (c *Compiler) makeConstant(v vm.Value) byte {
	chunk := c.currentChunk()
	if chunk.ConstantCount() >= maxConstants {
		c.error("Too many constants in one chunk.")
		return 0
	}
	return byte(chunk.AddConstant(v))
}

func (c *Compiler) identifierConstant(name string) byte {
	return c.makeConstant(vm.ObjVal(c.interner.Intern(name)))
}

func (c *Compiler) endFuncState() *vm.Function {
	c.emitReturn()
	fn := c.fn.function
	fn.UpvalueCount = c.fn.upvalueCount
	c.fn = c.fn.enclosing
	return fn
}

// --- scope management ---

func (c *Compiler) beginScope() { c.fn.scopeDepth++ }

func (c *Compiler) endScope() {
	c.fn.scopeDepth--
	for c.fn.localCount > 0 && c.fn.locals[c.fn.localCount-1].depth > c.fn.scopeDepth {
		if c.fn.locals[c.fn.localCount-1].isCaptured {
			c.emitOp(vm.OpCloseUpvalue)
		} else {
			c.emitOp(vm.OpPop)
		}
		c.fn.localCount--
	}
}

// --- name resolution ---

// resolveLocal looks up name among fs's locals, innermost scope first.
// A local whose depth is still -1 is mid-initialization (its own
// initializer expression is being compiled); reading it there is a
// compile error rather than a local otherwise shadowed by its own
// declaration, per spec.md §3's "local's depth is -1 from introduction
// until its initializer completes" invariant.
// original_source/compiler.c:392-393 has this exact check present but
// commented out.
func (c *Compiler) resolveLocal(fs *funcState, name string) int {
	for i := fs.localCount - 1; i >= 0; i-- {
		if fs.locals[i].name == name {
			if fs.locals[i].depth == -1 {
				c.error("Can't read local variable in its own initializer.")
			}
			return i
		}
	}
	return -1
}

func addUpvalue(fs *funcState, index byte, isLocal bool) int {
	for i := 0; i < fs.upvalueCount; i++ {
		if fs.upvalues[i].index == index && fs.upvalues[i].isLocal == isLocal {
			return i
		}
	}
	if fs.upvalueCount == maxUpvalues {
		return -1
	}
	fs.upvalues[fs.upvalueCount] = upvalueDesc{index: index, isLocal: isLocal}
	fs.upvalueCount++
	return fs.upvalueCount - 1
}

func (c *Compiler) resolveUpvalue(fs *funcState, name string) int {
	if fs.enclosing == nil {
		return -1
	}
	if local := c.resolveLocal(fs.enclosing, name); local != -1 {
		fs.enclosing.locals[local].isCaptured = true
		return addUpvalue(fs, byte(local), true)
	}
	if up := c.resolveUpvalue(fs.enclosing, name); up != -1 {
		return addUpvalue(fs, byte(up), false)
	}
	return -1
}

func (c *Compiler) addLocal(name string, declType exprType) {
	if c.fn.localCount == maxLocals {
		c.error("Too many local variables in function.")
		return
	}
	c.fn.locals[c.fn.localCount] = local{name: name, depth: -1, declType: declType}
	c.fn.localCount++
}

// declareVariable registers c.previous (an identifier token) as a new
// local, rejecting a redeclaration in the same scope. At top level it
// is a no-op; top-level bindings live in the globals table instead.
func (c *Compiler) declareVariable(declType exprType) {
	if c.fn.scopeDepth == 0 {
		return
	}
	name := c.previous.Lexeme
	for i := c.fn.localCount - 1; i >= 0; i-- {
		l := &c.fn.locals[i]
		if l.depth != -1 && l.depth < c.fn.scopeDepth {
			break
		}
		if l.name == name {
			c.error("Already a variable with this name in this scope.")
		}
	}
	c.addLocal(name, declType)
}

// parseVariable consumes an identifier, declares it as a local (if
// scoped), and returns the constant-pool index to use for a global
// definition (meaningless, but harmless, when scoped).
func (c *Compiler) parseVariable(errMessage string, declType exprType) byte {
	c.consume(token.IDENTIFIER, errMessage)
	c.declareVariable(declType)
	if c.fn.scopeDepth > 0 {
		return 0
	}
	return c.identifierConstant(c.previous.Lexeme)
}

func (c *Compiler) markInitialized() {
	if c.fn.scopeDepth == 0 {
		return
	}
	c.fn.locals[c.fn.localCount-1].depth = c.fn.scopeDepth
}

// defineVariable finishes a declaration: a scoped binding just needs
// its local marked initialized; a top-level binding emits the
// DEFINE_GLOBAL variant matching declType.
func (c *Compiler) defineVariable(global byte, declType exprType) {
	if c.fn.scopeDepth > 0 {
		c.markInitialized()
		return
	}
	c.emitOpByte(defineOpFor(declType), global)
}

func defineOpFor(t exprType) vm.Opcode {
	switch t {
	case typeIntExpr:
		return vm.OpDefineGlobalInt
	case typeFloatExpr:
		return vm.OpDefineGlobalFloat
	case typeStringExpr:
		return vm.OpDefineGlobalString
	default:
		return vm.OpDefineGlobal
	}
}

func getOpFor(t exprType) vm.Opcode {
	switch t {
	case typeIntExpr:
		return vm.OpGetGlobalInt
	case typeFloatExpr:
		return vm.OpGetGlobalFloat
	case typeStringExpr:
		return vm.OpGetGlobalString
	default:
		return vm.OpGetGlobal
	}
}

func setOpFor(t exprType) vm.Opcode {
	switch t {
	case typeIntExpr:
		return vm.OpSetGlobalInt
	case typeFloatExpr:
		return vm.OpSetGlobalFloat
	case typeStringExpr:
		return vm.OpSetGlobalString
	default:
		return vm.OpSetGlobal
	}
}

// --- expressions ---

func (c *Compiler) parsePrecedence(prec precedence) {
	c.advance()
	prefix := getRule(c.previous.Type).prefix
	if prefix == nil {
		c.error("Expect expression.")
		return
	}
	canAssign := prec <= precAssignment
	prefix(c, canAssign)

	for prec <= getRule(c.current.Type).prec {
		c.advance()
		infix := getRule(c.previous.Type).infix
		infix(c, canAssign)
	}

	if canAssign && c.match(token.EQUAL) {
		c.error("Invalid assignment target.")
	}
}

func (c *Compiler) expression() {
	c.parsePrecedence(precAssignment)
}

func grouping(c *Compiler, _ bool) {
	c.expression()
	c.consume(token.RIGHT_PAREN, "Expect ')' after expression.")
}

func intLiteral(c *Compiler, _ bool) {
	c.currentType = typeIntExpr
	idx := c.makeConstant(vm.IntVal(c.previous.IntValue))
	c.emitOpByte(vm.OpConstInt, idx)
}

func floatLiteral(c *Compiler, _ bool) {
	c.currentType = typeFloatExpr
	idx := c.makeConstant(vm.FloatVal(c.previous.FloatValue))
	c.emitOpByte(vm.OpConstFloat, idx)
}

func stringLiteral(c *Compiler, _ bool) {
	c.currentType = typeStringExpr
	idx := c.makeConstant(vm.ObjVal(c.interner.Intern(c.previous.StringValue)))
	c.emitOpByte(vm.OpConstString, idx)
}

func literal(c *Compiler, _ bool) {
	switch c.previous.Type {
	case token.FALSE:
		c.currentType = typeBoolExpr
		c.emitOp(vm.OpFalse)
	case token.TRUE:
		c.currentType = typeBoolExpr
		c.emitOp(vm.OpTrue)
	case token.NIL:
		c.currentType = typeNilExpr
		c.emitOp(vm.OpNil)
	}
}

// binary implements spec.md §4.2's per-operand static type inference:
// capture the left type, parse the right operand at one precedence
// higher, then pick the opcode from the (left, right) type pair.
func binary(c *Compiler, _ bool) {
	opType := c.previous.Type
	rule := getRule(opType)
	leftType := c.currentType
	c.parsePrecedence(rule.prec + 1)
	rightType := c.currentType

	switch opType {
	case token.BANG_EQUAL:
		c.emitOp(vm.OpEqual)
		c.emitOp(vm.OpNot)
		c.currentType = typeBoolExpr
		return
	case token.EQUAL_EQUAL:
		c.emitOp(vm.OpEqual)
		c.currentType = typeBoolExpr
		return
	case token.GREATER:
		c.emitOp(vm.OpGreater)
		c.currentType = typeBoolExpr
		return
	case token.GREATER_EQUAL:
		c.emitOp(vm.OpLess)
		c.emitOp(vm.OpNot)
		c.currentType = typeBoolExpr
		return
	case token.LESS:
		c.emitOp(vm.OpLess)
		c.currentType = typeBoolExpr
		return
	case token.LESS_EQUAL:
		c.emitOp(vm.OpGreater)
		c.emitOp(vm.OpNot)
		c.currentType = typeBoolExpr
		return
	}

	switch opType {
	case token.PLUS:
		c.currentType = c.emitArith(leftType, rightType, vm.OpAddInt, vm.OpAddFloat, vm.OpAdd, true)
	case token.MINUS:
		c.currentType = c.emitArith(leftType, rightType, vm.OpSubInt, vm.OpSubFloat, vm.OpSub, false)
	case token.STAR:
		c.currentType = c.emitArith(leftType, rightType, vm.OpMulInt, vm.OpMulFloat, vm.OpMul, false)
	case token.SLASH:
		c.currentType = c.emitArith(leftType, rightType, vm.OpDivInt, vm.OpDivFloat, vm.OpDiv, false)
	}
}

// emitArith picks the opcode for one arithmetic operator from the
// statically inferred operand types. Both sides int, or both sides
// float, selects the typed fast-path opcode. For PLUS only, both sides
// known strings selects the dynamic opcode, which concatenates. Any
// other pair of known types (disagreeing types such as int and float,
// or matching bool, nil, or non-PLUS string operands) is a statically
// detectable mismatch (spec boundary case: numeric `+` of int and float
// is a deferred TYPE_ERROR) and bakes in OP_TYPE_ERROR directly. Either side
// unknown — a function parameter, a call result, a field read — defers
// entirely to the dynamic opcode, which resolves operand kinds at
// runtime instead of failing a perfectly valid program just because the
// compiler couldn't prove its type in advance.
func (c *Compiler) emitArith(leftType, rightType exprType, intOp, floatOp, dynamicOp vm.Opcode, allowString bool) exprType {
	switch {
	case leftType == typeIntExpr && rightType == typeIntExpr:
		c.emitOp(intOp)
		return typeIntExpr
	case leftType == typeFloatExpr && rightType == typeFloatExpr:
		c.emitOp(floatOp)
		return typeFloatExpr
	case allowString && leftType == typeStringExpr && rightType == typeStringExpr:
		c.emitOp(dynamicOp)
		return typeStringExpr
	case leftType == typeUnknown || rightType == typeUnknown:
		c.emitOp(dynamicOp)
		return typeUnknown
	default:
		c.emitOp(vm.OpTypeError)
		return typeUnknown
	}
}

func unary(c *Compiler, _ bool) {
	opType := c.previous.Type
	c.parsePrecedence(precUnary)
	switch opType {
	case token.BANG:
		c.emitOp(vm.OpNot)
		c.currentType = typeBoolExpr
	case token.MINUS:
		// The source always emits OP_NEGATE_INT here regardless of
		// operand type; per the redesigned behavior, pick the typed
		// negate opcode from the inferred operand type and reject
		// anything else at compile time.
		switch c.currentType {
		case typeIntExpr:
			c.emitOp(vm.OpNegateInt)
		case typeFloatExpr:
			c.emitOp(vm.OpNegateFloat)
		default:
			c.error("Operand must be a number.")
		}
	}
}

func and_(c *Compiler, _ bool) {
	endJump := c.emitJump(vm.OpJumpIfFalse)
	c.emitOp(vm.OpPop)
	c.parsePrecedence(precAnd)
	c.patchJump(endJump)
	c.currentType = typeBoolExpr
}

func or_(c *Compiler, _ bool) {
	elseJump := c.emitJump(vm.OpJumpIfFalse)
	endJump := c.emitJump(vm.OpJump)
	c.patchJump(elseJump)
	c.emitOp(vm.OpPop)
	c.parsePrecedence(precOr)
	c.patchJump(endJump)
	c.currentType = typeBoolExpr
}

func call(c *Compiler, _ bool) {
	argCount := c.argumentList()
	c.emitOpByte(vm.OpCall, argCount)
	c.currentType = typeUnknown
}

func dot(c *Compiler, canAssign bool) {
	c.consume(token.IDENTIFIER, "Expect property name after '.'.")
	name := c.identifierConstant(c.previous.Lexeme)
	switch {
	case canAssign && c.match(token.EQUAL):
		c.expression()
		c.emitOpByte(vm.OpSetProperty, name)
	case c.match(token.LEFT_PAREN):
		argCount := c.argumentList()
		c.emitOpByte(vm.OpInvoke, name)
		c.emitByte(argCount)
	default:
		c.emitOpByte(vm.OpGetProperty, name)
	}
	c.currentType = typeUnknown
}

func (c *Compiler) argumentList() byte {
	var argCount int
	if !c.check(token.RIGHT_PAREN) {
		for {
			c.expression()
			if argCount == 255 {
				c.error("Can't have more than 255 arguments.")
			}
			argCount++
			if !c.match(token.COMMA) {
				break
			}
		}
	}
	c.consume(token.RIGHT_PAREN, "Expect ')' after arguments.")
	return byte(argCount)
}

func syntheticToken(text string) token.Token {
	return token.Token{Type: token.IDENTIFIER, Lexeme: text}
}

func (c *Compiler) namedVariable(name token.Token, canAssign bool) {
	var getOp, setOp vm.Opcode
	var arg int
	var declType exprType

	if local := c.resolveLocal(c.fn, name.Lexeme); local != -1 {
		getOp, setOp = vm.OpGetLocal, vm.OpSetLocal
		arg = local
		declType = c.fn.locals[local].declType
	} else if up := c.resolveUpvalue(c.fn, name.Lexeme); up != -1 {
		getOp, setOp = vm.OpGetUpvalue, vm.OpSetUpvalue
		arg = up
	} else {
		arg = int(c.identifierConstant(name.Lexeme))
		declType = c.globalTypes[name.Lexeme]
		getOp, setOp = getOpFor(declType), setOpFor(declType)
	}

	if canAssign && c.match(token.EQUAL) {
		c.expression()
		c.emitOpByte(setOp, byte(arg))
	} else {
		c.emitOpByte(getOp, byte(arg))
	}
	c.currentType = declType
}

func variable(c *Compiler, canAssign bool) {
	c.namedVariable(c.previous, canAssign)
}

func superExpr(c *Compiler, _ bool) {
	if c.class == nil {
		c.error("Can't use 'super' outside of a class.")
	} else if !c.class.hasSuperclass {
		c.error("Can't use 'super' in a class with no superclass.")
	}
	c.consume(token.DOT, "Expect '.' after 'super'.")
	c.consume(token.IDENTIFIER, "Expect superclass method name.")
	name := c.identifierConstant(c.previous.Lexeme)

	c.namedVariable(syntheticToken("this"), false)
	if c.match(token.LEFT_PAREN) {
		argCount := c.argumentList()
		c.namedVariable(syntheticToken("super"), false)
		c.emitOpByte(vm.OpSuperInvoke, name)
		c.emitByte(argCount)
	} else {
		c.namedVariable(syntheticToken("super"), false)
		c.emitOpByte(vm.OpGetSuper, name)
	}
	c.currentType = typeUnknown
}

func thisExpr(c *Compiler, _ bool) {
	if c.class == nil {
		c.error("Can't use 'this' outside of a class.")
		return
	}
	variable(c, false)
}

// --- statements & declarations ---

func (c *Compiler) block() {
	for !c.check(token.RIGHT_BRACE) && !c.check(token.EOF) {
		c.declaration()
	}
	c.consume(token.RIGHT_BRACE, "Expect '}' after block.")
}

func (c *Compiler) function(ft functionType, name string) {
	enclosing := c.fn
	c.fn = newFuncState(enclosing, ft, name)
	c.beginScope()

	c.consume(token.LEFT_PAREN, "Expect '(' after function name.")
	if !c.check(token.RIGHT_PAREN) {
		for {
			c.fn.function.Arity++
			if c.fn.function.Arity > 255 {
				c.errorAtCurrent("Can't have more than 255 parameters.")
			}
			// Parameters are untyped-at-the-call-site locals; their
			// declared type stays unknown for the whole body.
			constant := c.parseVariable("Expect parameter name.", typeUnknown)
			c.defineVariable(constant, typeUnknown)
			if !c.match(token.COMMA) {
				break
			}
		}
	}
	c.consume(token.RIGHT_PAREN, "Expect ')' after parameters.")
	c.consume(token.LEFT_BRACE, "Expect '{' before function body.")
	c.block()

	fs := c.fn
	fn := c.endFuncState()
	idx := c.makeConstant(vm.ObjVal(fn))
	c.emitOpByte(vm.OpClosure, idx)
	for i := 0; i < fs.upvalueCount; i++ {
		isLocal := byte(0)
		if fs.upvalues[i].isLocal {
			isLocal = 1
		}
		c.emitByte(isLocal)
		c.emitByte(fs.upvalues[i].index)
	}
}

func (c *Compiler) method() {
	c.consume(token.IDENTIFIER, "Expect method name.")
	name := c.previous.Lexeme
	constant := c.identifierConstant(name)
	ft := typeMethod
	if name == "init" {
		ft = typeInitializer
	}
	c.function(ft, name)
	c.emitOpByte(vm.OpMethod, constant)
}

func (c *Compiler) classDeclaration() {
	c.consume(token.IDENTIFIER, "Expect class name.")
	className := c.previous
	nameConstant := c.identifierConstant(className.Lexeme)
	c.declareVariable(typeUnknown)

	c.emitOpByte(vm.OpClass, nameConstant)
	c.defineVariable(nameConstant, typeUnknown)

	cs := &classState{enclosing: c.class}
	c.class = cs

	if c.match(token.LESS) {
		c.consume(token.IDENTIFIER, "Expect superclass name.")
		variable(c, false)
		if c.previous.Lexeme == className.Lexeme {
			c.error("A class can't inherit from itself.")
		}
		c.beginScope()
		c.addLocal("super", typeUnknown)
		c.defineVariable(0, typeUnknown)

		c.namedVariable(className, false)
		c.emitOp(vm.OpInherit)
		cs.hasSuperclass = true
	}

	c.namedVariable(className, false)
	c.consume(token.LEFT_BRACE, "Expect '{' before class body.")
	for !c.check(token.RIGHT_BRACE) && !c.check(token.EOF) {
		c.method()
	}
	c.consume(token.RIGHT_BRACE, "Expect '}' after class body.")
	c.emitOp(vm.OpPop)

	if cs.hasSuperclass {
		c.endScope()
	}
	c.class = c.class.enclosing
}

func (c *Compiler) funDeclaration() {
	global := c.parseVariable("Expect function name.", typeUnknown)
	c.markInitialized()
	c.function(typeFunction, c.previous.Lexeme)
	c.defineVariable(global, typeUnknown)
}

// typedVarDeclaration compiles `int|float|string IDENT [= expr];`,
// spec.md §4.2's "Typed variable" declaration form. declType is the
// type named by the already-consumed leading type keyword.
func (c *Compiler) typedVarDeclaration(declType exprType) {
	global := c.parseVariable("Expect variable name.", declType)
	name := c.previous.Lexeme

	if c.match(token.EQUAL) {
		c.expression()
	} else {
		c.emitOp(vm.OpNil)
		c.currentType = declType
	}
	c.consume(token.SEMICOLON, "Expect ';' after variable declaration.")

	if c.fn.scopeDepth == 0 {
		c.globalTypes[name] = declType
	}
	c.defineVariable(global, declType)
}

func (c *Compiler) expressionStatement() {
	c.expression()
	c.consume(token.SEMICOLON, "Expect ';' after expression.")
	c.emitOp(vm.OpPop)
}

func (c *Compiler) forStatement() {
	c.beginScope()
	c.consume(token.LEFT_PAREN, "Expect '(' after 'for'.")
	switch {
	case c.match(token.SEMICOLON):
		// no initializer
	case c.match(token.INT):
		c.typedVarDeclaration(typeIntExpr)
	case c.match(token.FLOAT):
		c.typedVarDeclaration(typeFloatExpr)
	case c.match(token.STRING):
		c.typedVarDeclaration(typeStringExpr)
	default:
		c.expressionStatement()
	}

	loopStart := len(c.currentChunk().Code)
	exitJump := -1
	if !c.match(token.SEMICOLON) {
		c.expression()
		c.consume(token.SEMICOLON, "Expect ';' after loop condition.")
		exitJump = c.emitJump(vm.OpJumpIfFalse)
		c.emitOp(vm.OpPop)
	}

	if !c.match(token.RIGHT_PAREN) {
		bodyJump := c.emitJump(vm.OpJump)
		incrementStart := len(c.currentChunk().Code)
		c.expression()
		c.emitOp(vm.OpPop)
		c.consume(token.RIGHT_PAREN, "Expect ')' after for clauses.")

		c.emitLoop(loopStart)
		loopStart = incrementStart
		c.patchJump(bodyJump)
	}

	c.statement()
	c.emitLoop(loopStart)
	if exitJump != -1 {
		c.patchJump(exitJump)
		c.emitOp(vm.OpPop)
	}
	c.endScope()
}

func (c *Compiler) ifStatement() {
	c.consume(token.LEFT_PAREN, "Expect '(' after 'if'.")
	c.expression()
	c.consume(token.RIGHT_PAREN, "Expect ')' after condition.")

	thenJump := c.emitJump(vm.OpJumpIfFalse)
	c.emitOp(vm.OpPop)
	c.statement()
	elseJump := c.emitJump(vm.OpJump)

	c.patchJump(thenJump)
	c.emitOp(vm.OpPop)
	if c.match(token.ELSE) {
		c.statement()
	}
	c.patchJump(elseJump)
}

func (c *Compiler) printStatement() {
	c.expression()
	c.consume(token.SEMICOLON, "Expect ';' after value.")
	c.emitOp(vm.OpPrint)
}

func (c *Compiler) returnStatement() {
	if c.fn.funcType == typeScript {
		c.error("Can't return from top-level code.")
	}
	if c.match(token.SEMICOLON) {
		c.emitReturn()
		return
	}
	if c.fn.funcType == typeInitializer {
		c.error("Can't return a value from an initializer.")
	}
	c.expression()
	c.consume(token.SEMICOLON, "Expect ';' after return value.")
	c.emitOp(vm.OpReturn)
}

func (c *Compiler) whileStatement() {
	loopStart := len(c.currentChunk().Code)
	c.consume(token.LEFT_PAREN, "Expect '(' after 'while'.")
	c.expression()
	c.consume(token.RIGHT_PAREN, "Expect ')' after condition.")

	exitJump := c.emitJump(vm.OpJumpIfFalse)
	c.emitOp(vm.OpPop)
	c.statement()
	c.emitLoop(loopStart)

	c.patchJump(exitJump)
	c.emitOp(vm.OpPop)
}

func (c *Compiler) declaration() {
	switch {
	case c.match(token.CLASS):
		c.classDeclaration()
	case c.match(token.FUN):
		c.funDeclaration()
	case c.match(token.INT):
		c.typedVarDeclaration(typeIntExpr)
	case c.match(token.FLOAT):
		c.typedVarDeclaration(typeFloatExpr)
	case c.match(token.STRING):
		c.typedVarDeclaration(typeStringExpr)
	default:
		c.statement()
	}
	if c.panicMode {
		c.synchronize()
	}
}

func (c *Compiler) statement() {
	switch {
	case c.match(token.PRINT):
		c.printStatement()
	case c.match(token.FOR):
		c.forStatement()
	case c.match(token.IF):
		c.ifStatement()
	case c.match(token.RETURN):
		c.returnStatement()
	case c.match(token.WHILE):
		c.whileStatement()
	case c.match(token.LEFT_BRACE):
		c.beginScope()
		c.block()
		c.endScope()
	default:
		c.expressionStatement()
	}
}
