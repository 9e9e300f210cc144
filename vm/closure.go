package vm

import "fmt"

// Function is a compiled, not-yet-closed-over function body: its own
// Chunk, arity, and upvalue count, produced entirely by the compiler
// package. spec.md §4.3 calls this the callee's "blueprint"; the VM never
// executes a bare *Function, only a *Closure wrapping one.
type Function struct {
	Name         *StringObj
	Arity        int
	UpvalueCount int
	Chunk        *Chunk
}

func (f *Function) ObjType() ObjType { return ObjTypeFunction }

func (f *Function) String() string {
	if f.Name == nil {
		return "<script>"
	}
	return fmt.Sprintf("<fn %s>", f.Name.Value)
}

// Upvalue is a single captured-variable cell, open or closed per spec.md
// §4.3's closure model. While open it addresses its slot by StackIndex
// into the VM's value stack rather than by a raw *Value pointer: the
// stack is a Go slice that grows by append and can reallocate to a new
// backing array, which would leave a stored pointer reading and writing
// a dead array while the real locals moved on. Resolving the slot by
// index against the live stack on every access keeps the cell correct
// across reallocation. Close snapshots the slot's current value into
// Closed, after which the cell survives the frame's return regardless
// of what StackIndex used to mean.
type Upvalue struct {
	StackIndex int
	open       bool
	Closed     Value
	Next       *Upvalue // next cell in the VM's open-upvalue list, by descending StackIndex
}

func (u *Upvalue) ObjType() ObjType { return ObjTypeUpvalue }
func (u *Upvalue) String() string   { return "upvalue" }

// IsOpen reports whether this cell still aliases a live stack slot.
func (u *Upvalue) IsOpen() bool {
	return u.open
}

// Close snapshots the stack slot this cell aliased into Closed. stack
// must be the VM's live value stack at the moment of closing.
func (u *Upvalue) Close(stack []Value) {
	u.Closed = stack[u.StackIndex]
	u.open = false
}

// Get reads this cell's current value: the live stack slot while open,
// the snapshot once closed.
func (u *Upvalue) Get(stack []Value) Value {
	if u.open {
		return stack[u.StackIndex]
	}
	return u.Closed
}

// Set writes value into this cell: the live stack slot while open, the
// snapshot once closed.
func (u *Upvalue) Set(stack []Value, value Value) {
	if u.open {
		stack[u.StackIndex] = value
		return
	}
	u.Closed = value
}

// Closure pairs a Function with the upvalue cells it captured at
// creation time, spec.md §4.3. This is the only callable heap object the
// VM's CALL/OP_CLOSURE machinery produces for user-defined functions and
// methods.
type Closure struct {
	Function *Function
	Upvalues []*Upvalue
}

func (c *Closure) ObjType() ObjType { return ObjTypeClosure }
func (c *Closure) String() string   { return c.Function.String() }
