package vm

import (
	"github.com/dolthub/swiss"
	"golang.org/x/exp/slices"
)

// Globals is the process-wide name-to-value table spec.md §4.3 describes
// for top-level `int`/`float`/`string`/`fun`/`class` declarations. Keyed
// by the interned *StringObj pointer produced for the identifier, so
// lookups are a pointer hash rather than a string hash on every access.
type Globals struct {
	table *swiss.Map[*StringObj, Value]
}

// NewGlobals creates an empty global table.
func NewGlobals() *Globals {
	return &Globals{table: swiss.NewMap[*StringObj, Value](64)}
}

// Define binds name to value, overwriting any prior binding. The VM
// calls it from DEFINE_GLOBAL* and when seeding natives; SET_GLOBAL*
// uses Set instead, since assigning an undefined name is an error.
func (g *Globals) Define(name *StringObj, value Value) {
	g.table.Put(name, value)
}

// Get looks up name, reporting whether it is bound.
func (g *Globals) Get(name *StringObj) (Value, bool) {
	return g.table.Get(name)
}

// Set overwrites an existing binding for name, reporting whether it
// existed. Callers must treat a false result as a runtime error
// ("undefined variable") rather than silently defining it, per
// spec.md's SET_GLOBAL semantics decision.
func (g *Globals) Set(name *StringObj, value Value) bool {
	if _, ok := g.table.Get(name); !ok {
		return false
	}
	g.table.Put(name, value)
	return true
}

// Delete removes a binding outright, used by the REPL's `:undef` command
// to clear a name without restarting the session (top-level `fun`/`class`
// redefinition doesn't need this — Define already overwrites).
func (g *Globals) Delete(name *StringObj) {
	g.table.Delete(name)
}

// Names returns every bound global name in sorted order, for the REPL's
// `:globals` introspection command. swiss.Map's iteration order is
// randomized per the open-addressing probe sequence, so the sort is
// what makes two successive dumps comparable.
func (g *Globals) Names() []string {
	names := make([]string, 0, g.table.Count())
	g.table.Iter(func(name *StringObj, _ Value) bool {
		names = append(names, name.Value)
		return false
	})
	slices.Sort(names)
	return names
}
