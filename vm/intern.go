package vm

import "github.com/dolthub/swiss"

// Interner is the collaborator described in spec.md §6's allocator
// contract ("copyString/takeString, both interning"): it hands back a
// canonical *StringObj for any given content so that two strings with
// equal content are also pointer-identical, satisfying spec.md §3's
// "strings compare by interned identity" guarantee.
//
// Backed by dolthub/swiss: both the globals table and this table are
// long-lived, lookup-dominated, process-wide maps, which is exactly the
// profile SwissTable open addressing is built for (and the profile
// mna-nenuphar reaches for the same structure for, in its machine/map.go).
type Interner struct {
	table *swiss.Map[string, *StringObj]
}

// NewInterner creates an empty Interner with room for an initial working
// set of strings, grown automatically beyond that.
func NewInterner() *Interner {
	return &Interner{table: swiss.NewMap[string, *StringObj](256)}
}

// Intern returns the canonical *StringObj for s, allocating it on first
// sight.
func (in *Interner) Intern(s string) *StringObj {
	if obj, ok := in.table.Get(s); ok {
		return obj
	}
	obj := &StringObj{Value: s}
	in.table.Put(s, obj)
	return obj
}

// Count reports how many distinct strings have been interned, mostly
// useful for tests and diagnostics.
func (in *Interner) Count() int {
	return in.table.Count()
}
