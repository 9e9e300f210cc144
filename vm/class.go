package vm

import (
	"fmt"

	"github.com/dolthub/swiss"
)

// Class is a user-defined class object, spec.md §4.3's class model: a
// name, an optional superclass link (FindMethod follows it for every
// method lookup when a method is not found locally), and its own
// method table.
//
// Methods are stored keyed by the method's interned *StringObj pointer
// rather than by plain string, so lookups reuse the identical pointer
// compare/hash path that property and global lookups already use.
type Class struct {
	Name       *StringObj
	Superclass *Class
	Methods    *swiss.Map[*StringObj, *Closure]
}

// NewClass creates an empty class named name.
func NewClass(name *StringObj) *Class {
	return &Class{Name: name, Methods: swiss.NewMap[*StringObj, *Closure](8)}
}

func (c *Class) ObjType() ObjType { return ObjTypeClass }
func (c *Class) String() string   { return fmt.Sprintf("<class %s>", c.Name.Value) }

// FindMethod walks this class then its superclass chain looking for
// name, implementing spec.md §4.3's single-inheritance method
// resolution order.
func (c *Class) FindMethod(name *StringObj) (*Closure, bool) {
	for cls := c; cls != nil; cls = cls.Superclass {
		if m, ok := cls.Methods.Get(name); ok {
			return m, true
		}
	}
	return nil, false
}

// Instance is a runtime instance of a Class: its class pointer plus a
// field table, spec.md §4.3.
type Instance struct {
	Class  *Class
	Fields *swiss.Map[*StringObj, Value]
}

// NewInstance creates a fresh, fieldless instance of cls.
func NewInstance(cls *Class) *Instance {
	return &Instance{Class: cls, Fields: swiss.NewMap[*StringObj, Value](4)}
}

func (i *Instance) ObjType() ObjType { return ObjTypeInstance }
func (i *Instance) String() string   { return fmt.Sprintf("<%s instance>", i.Class.Name.Value) }

// BoundMethod pairs a receiver instance with one of its class's methods,
// produced whenever a GET_PROPERTY resolves to a method rather than a
// field (spec.md §4.3's "method access closes over the receiver" rule).
type BoundMethod struct {
	Receiver Value
	Method   *Closure
}

func (b *BoundMethod) ObjType() ObjType { return ObjTypeBoundMethod }
func (b *BoundMethod) String() string   { return b.Method.String() }
