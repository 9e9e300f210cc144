package vm

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestValuePredicatesAndFalsey(t *testing.T) {
	assert.True(t, Nil().IsNil())
	assert.True(t, Nil().IsFalsey())
	assert.True(t, BoolVal(false).IsFalsey())
	assert.False(t, BoolVal(true).IsFalsey())
	assert.False(t, IntVal(0).IsFalsey())
	assert.False(t, FloatVal(0).IsFalsey())

	assert.True(t, IntVal(3).IsInt())
	assert.True(t, FloatVal(1.5).IsFloat())
	assert.True(t, BoolVal(true).IsBool())
}

func TestValueEqualByTagThenPayload(t *testing.T) {
	assert.True(t, Equal(IntVal(3), IntVal(3)))
	assert.False(t, Equal(IntVal(3), FloatVal(3)), "cross-kind equality must be false even with equal numeric payload")
	assert.True(t, Equal(Nil(), Nil()))
	assert.False(t, Equal(BoolVal(true), BoolVal(false)))
}

func TestValueEqualInternedStrings(t *testing.T) {
	in := NewInterner()
	a := in.Intern("hello")
	b := in.Intern("hello")
	assert.Same(t, a, b, "interning the same content twice must return the identical pointer")
	assert.True(t, Equal(ObjVal(a), ObjVal(b)))
}

func TestValueTypeName(t *testing.T) {
	assert.Equal(t, "int", IntVal(1).TypeName())
	assert.Equal(t, "float", FloatVal(1).TypeName())
	assert.Equal(t, "bool", BoolVal(true).TypeName())
	assert.Equal(t, "nil", Nil().TypeName())
}

func TestValueString(t *testing.T) {
	assert.Equal(t, "3", IntVal(3).String())
	assert.Equal(t, "true", BoolVal(true).String())
	assert.Equal(t, "nil", Nil().String())
}
