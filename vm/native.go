package vm

import "time"

// NativeFn is the Go-side signature every native (builtin) function
// implements. args is the callee's argument slice, a view of the top of
// the live value stack; the VM's call machinery pops the arguments and
// the callee only after the native returns.
type NativeFn func(args []Value) (Value, error)

// NativeFunction wraps a NativeFn as a callable heap Obj, spec.md §4.3's
// "natives are called through the same CALL opcode as user functions"
// rule — the VM's callValue dispatches on ObjType, not on a separate
// native-call opcode.
type NativeFunction struct {
	Name  string
	Arity int
	Fn    NativeFn
}

func (n *NativeFunction) ObjType() ObjType { return ObjTypeNative }
func (n *NativeFunction) String() string   { return "<native fn " + n.Name + ">" }

// clockStart anchors the clock() native so repeated calls within one
// process report a monotonically increasing elapsed time rather than a
// wall-clock epoch, which would overflow float64 seconds-since-epoch
// precision far sooner.
var clockStart = time.Now()

// NativeClock implements the clock() builtin spec.md's Glossary lists
// alongside print as a REPL/debugging convenience: seconds elapsed
// since clockStart, taken once when the vm package is initialised (not
// per VM), as a float.
func NativeClock() *NativeFunction {
	return &NativeFunction{
		Name:  "clock",
		Arity: 0,
		Fn: func(args []Value) (Value, error) {
			return FloatVal(time.Since(clockStart).Seconds()), nil
		},
	}
}
