package compiler

import "ember/token"

// precedence mirrors spec.md §4.2's ordered set NONE < ASSIGNMENT < OR <
// AND < EQUALITY < COMPARISON < TERM < FACTOR < UNARY < CALL < PRIMARY.
type precedence int

const (
	precNone precedence = iota
	precAssignment
	precOr
	precAnd
	precEquality
	precComparison
	precTerm
	precFactor
	precUnary
	precCall
	precPrimary
)

// parseFn is a Pratt parselet: a prefix or infix handler bound to one
// token type.
type parseFn func(c *Compiler, canAssign bool)

// parseRule is one row of the Pratt table: (prefix, infix, precedence),
// spec.md §4.2 and §9's "table of (prefix, infix, precedence) per
// token". Keyed by token.Type rather than laid out as a literal
// integer-indexed array, since token.Type here is a string enum (this
// scanner's idiom, unlike original_source/scanner.h's integer
// TokenType) — the table itself is still a single flat literal, not
// dynamic dispatch built up from registrations.
var rules map[token.Type]parseRule

type parseRule struct {
	prefix parseFn
	infix  parseFn
	prec   precedence
}

func init() {
	rules = map[token.Type]parseRule{
		token.LEFT_PAREN:     {prefix: grouping, infix: call, prec: precCall},
		token.DOT:            {infix: dot, prec: precCall},
		token.MINUS:          {prefix: unary, infix: binary, prec: precTerm},
		token.PLUS:           {infix: binary, prec: precTerm},
		token.SLASH:          {infix: binary, prec: precFactor},
		token.STAR:           {infix: binary, prec: precFactor},
		token.BANG:           {prefix: unary},
		token.BANG_EQUAL:     {infix: binary, prec: precEquality},
		token.EQUAL_EQUAL:    {infix: binary, prec: precEquality},
		token.GREATER:        {infix: binary, prec: precComparison},
		token.GREATER_EQUAL:  {infix: binary, prec: precComparison},
		token.LESS:           {infix: binary, prec: precComparison},
		token.LESS_EQUAL:     {infix: binary, prec: precComparison},
		token.IDENTIFIER:     {prefix: variable},
		token.STRING_LITERAL: {prefix: stringLiteral},
		token.INT_LITERAL:    {prefix: intLiteral},
		token.FLOAT_LITERAL:  {prefix: floatLiteral},
		token.AND:            {infix: and_, prec: precAnd},
		token.OR:             {infix: or_, prec: precOr},
		token.FALSE:          {prefix: literal},
		token.NIL:            {prefix: literal},
		token.TRUE:           {prefix: literal},
		token.SUPER:          {prefix: superExpr},
		token.THIS:           {prefix: thisExpr},
	}
}

func getRule(t token.Type) parseRule {
	return rules[t]
}
