// Package vm implements the Chunk & Value data model (spec.md §3, §4.1) and
// the stack-and-frame virtual machine (spec.md §4.3) that executes it.
package vm

import "fmt"

// Kind tags a Value the way spec.md §3 describes: bool, nil, int32, float64,
// or heap-object.
type Kind uint8

const (
	KindNil Kind = iota
	KindBool
	KindInt
	KindFloat
	KindObj
)

// Value is the tagged variant every evaluation-stack slot, local, global,
// and constant-pool entry holds.
//
// The teacher implementation (abdielwilsn-pidgin-lang/vm/value.go) NaN-boxes
// every value into a single uint64, hiding heap-object pointers in the
// mantissa via unsafe.Pointer. That trick requires a custom allocator and a
// GC that knows to unbox and scan those words; Go's garbage collector does
// not, so a NaN-boxed pointer with no ordinarily-typed reference keeping it
// alive is eligible for collection while still "in use" on the value stack.
// This Value keeps the teacher's tagged-word intent (a small fixed-shape
// struct, fast type dispatch via Kind) but stores heap references in a real
// Go interface field (Obj) so spec.md §5's rooting discipline — "everything
// in [stack_bottom, stackTop)" is already valid Go pointer data — is
// satisfied for free by the host runtime. That is the entirety of this
// spec's out-of-scope GC collaborator: there is no mark/sweep code anywhere
// in this module because the Go runtime already does it correctly.
type Value struct {
	Kind  Kind
	Bool  bool
	Int   int32
	Float float64
	Obj   Obj
}

func Nil() Value              { return Value{Kind: KindNil} }
func BoolVal(b bool) Value    { return Value{Kind: KindBool, Bool: b} }
func IntVal(i int32) Value    { return Value{Kind: KindInt, Int: i} }
func FloatVal(f float64) Value { return Value{Kind: KindFloat, Float: f} }
func ObjVal(o Obj) Value      { return Value{Kind: KindObj, Obj: o} }

func (v Value) IsNil() bool   { return v.Kind == KindNil }
func (v Value) IsBool() bool  { return v.Kind == KindBool }
func (v Value) IsInt() bool   { return v.Kind == KindInt }
func (v Value) IsFloat() bool { return v.Kind == KindFloat }
func (v Value) IsObj() bool   { return v.Kind == KindObj }

func (v Value) IsObjType(t ObjType) bool {
	return v.Kind == KindObj && v.Obj != nil && v.Obj.ObjType() == t
}

func (v Value) IsString() bool      { return v.IsObjType(ObjTypeString) }
func (v Value) IsClosure() bool     { return v.IsObjType(ObjTypeClosure) }
func (v Value) IsClass() bool       { return v.IsObjType(ObjTypeClass) }
func (v Value) IsInstance() bool    { return v.IsObjType(ObjTypeInstance) }
func (v Value) IsBoundMethod() bool { return v.IsObjType(ObjTypeBoundMethod) }
func (v Value) IsNative() bool      { return v.IsObjType(ObjTypeNative) }

func (v Value) AsString() *StringObj           { return v.Obj.(*StringObj) }
func (v Value) AsClosure() *Closure            { return v.Obj.(*Closure) }
func (v Value) AsClass() *Class                { return v.Obj.(*Class) }
func (v Value) AsInstance() *Instance          { return v.Obj.(*Instance) }
func (v Value) AsBoundMethod() *BoundMethod    { return v.Obj.(*BoundMethod) }
func (v Value) AsNative() *NativeFunction      { return v.Obj.(*NativeFunction) }
func (v Value) AsFunction() *Function          { return v.Obj.(*Function) }

// IsFalsey reports falsiness per spec.md §4.1: only nil and false are
// falsey.
func (v Value) IsFalsey() bool {
	return v.Kind == KindNil || (v.Kind == KindBool && !v.Bool)
}

// TypeName returns the human-readable type name used in runtime error
// messages.
func (v Value) TypeName() string {
	switch v.Kind {
	case KindNil:
		return "nil"
	case KindBool:
		return "bool"
	case KindInt:
		return "int"
	case KindFloat:
		return "float"
	case KindObj:
		if v.Obj == nil {
			return "obj"
		}
		return v.Obj.ObjType().String()
	default:
		return "unknown"
	}
}

func (v Value) String() string {
	switch v.Kind {
	case KindNil:
		return "nil"
	case KindBool:
		if v.Bool {
			return "true"
		}
		return "false"
	case KindInt:
		return fmt.Sprintf("%d", v.Int)
	case KindFloat:
		return fmt.Sprintf("%g", v.Float)
	case KindObj:
		if v.Obj == nil {
			return "<nil obj>"
		}
		return v.Obj.String()
	default:
		return "<unknown>"
	}
}

// Equal implements spec.md §3's "Equality is by-tag then by-payload" rule.
func Equal(a, b Value) bool {
	if a.Kind != b.Kind {
		return false
	}
	switch a.Kind {
	case KindNil:
		return true
	case KindBool:
		return a.Bool == b.Bool
	case KindInt:
		return a.Int == b.Int
	case KindFloat:
		return a.Float == b.Float
	case KindObj:
		return objEqual(a.Obj, b.Obj)
	default:
		return false
	}
}

func objEqual(a, b Obj) bool {
	if a == nil || b == nil {
		return a == b
	}
	if as, ok := a.(*StringObj); ok {
		bs, ok := b.(*StringObj)
		if !ok {
			return false
		}
		if as == bs {
			return true
		}
		// Defensive fallback only: every string-producing opcode interns
		// through the same table, so pointers should already agree whenever
		// content does.
		return as.Value == bs.Value
	}
	// Every other heap kind (closures, classes, instances, bound methods,
	// upvalues) compares by reference identity, per spec.md §3.
	return a == b
}

// ObjType discriminates the heap-object variants spec.md §3 lists.
type ObjType uint8

const (
	ObjTypeString ObjType = iota
	ObjTypeFunction
	ObjTypeNative
	ObjTypeClosure
	ObjTypeClass
	ObjTypeInstance
	ObjTypeBoundMethod
	ObjTypeUpvalue
)

func (t ObjType) String() string {
	switch t {
	case ObjTypeString:
		return "string"
	case ObjTypeFunction:
		return "function"
	case ObjTypeNative:
		return "native function"
	case ObjTypeClosure:
		return "function"
	case ObjTypeClass:
		return "class"
	case ObjTypeInstance:
		return "instance"
	case ObjTypeBoundMethod:
		return "bound method"
	case ObjTypeUpvalue:
		return "upvalue"
	default:
		return "object"
	}
}

// Obj is implemented by every heap-allocated value variant.
type Obj interface {
	ObjType() ObjType
	String() string
}

// StringObj is the canonical, interned representation of a string value.
// Two StringObj pointers are interchangeable iff their Value fields are
// equal (see Interner).
type StringObj struct {
	Value string
}

func (s *StringObj) ObjType() ObjType { return ObjTypeString }
func (s *StringObj) String() string   { return s.Value }
