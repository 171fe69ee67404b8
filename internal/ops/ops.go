// Package ops holds the lifecycle operators attached to types and resolves
// the operator the destructor pass must call for a given type.
//
// User-defined operators are registered per type. Everything else is
// synthesized on demand: objects, tuples and arrays lift their operators
// from their components, seq/string/ref/closure use built-in ones. The
// table is shared by all routine passes of a unit, so resolution is guarded
// by a mutex; the type table itself is only read.
package ops

import (
	"cmp"
	"slices"
	"sync"

	"dtorpass/internal/ir"
	"dtorpass/internal/source"
	"dtorpass/internal/types"
)

// Kind names a lifecycle operation.
type Kind uint8

const (
	Destroy Kind = iota
	Copy
	Sink
)

func (k Kind) String() string {
	switch k {
	case Destroy:
		return "=destroy"
	case Copy:
		return "=copy"
	case Sink:
		return "=sink"
	default:
		return "=?"
	}
}

// ParseKind maps an operator name back to its Kind.
func ParseKind(s string) (Kind, bool) {
	for _, k := range []Kind{Destroy, Copy, Sink} {
		if k.String() == s {
			return k, true
		}
	}
	return 0, false
}

type key struct {
	typ  types.TypeID
	kind Kind
}

// Entry is one user registration, as listed by Entries.
type Entry struct {
	Type     types.TypeID
	Kind     Kind
	Op       *ir.Symbol // nil for disabled entries
	Disabled bool
}

// Table maps (type, operation) to operator symbols.
type Table struct {
	types *types.Table
	ids   *ir.IDGen

	mu       sync.Mutex
	user     map[key]*ir.Symbol
	disabled map[key]bool
	synth    map[key]*ir.Symbol
	branch   map[types.TypeID]*ir.Symbol
	lifetime map[types.TypeID]bool
	magics   map[ir.Magic]*ir.Symbol
}

// New creates an empty table over tt. Synthesized symbols draw ids from ids.
func New(tt *types.Table, ids *ir.IDGen) *Table {
	return &Table{
		types:    tt,
		ids:      ids,
		user:     make(map[key]*ir.Symbol),
		disabled: make(map[key]bool),
		synth:    make(map[key]*ir.Symbol),
		branch:   make(map[types.TypeID]*ir.Symbol),
		lifetime: make(map[types.TypeID]bool),
		magics:   make(map[ir.Magic]*ir.Symbol),
	}
}

// Types returns the type table the operators belong to.
func (t *Table) Types() *types.Table {
	return t.types
}

// Register attaches a user-defined operator to typ.
func (t *Table) Register(typ types.TypeID, kind Kind, op *ir.Symbol) {
	t.mu.Lock()
	defer t.mu.Unlock()
	op.Flags |= ir.SymOverridden
	t.user[key{typ, kind}] = op
	clear(t.lifetime)
	clear(t.synth)
}

// Disable marks the operation as explicitly unavailable for typ.
func (t *Table) Disable(typ types.TypeID, kind Kind) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.disabled[key{typ, kind}] = true
	// synthesized operators of enclosing types may now be unavailable
	clear(t.synth)
}

// Entries lists user registrations and disabled markers ordered by type and kind.
func (t *Table) Entries() []Entry {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make([]Entry, 0, len(t.user)+len(t.disabled))
	for k, op := range t.user {
		out = append(out, Entry{Type: k.typ, Kind: k.kind, Op: op})
	}
	for k := range t.disabled {
		out = append(out, Entry{Type: k.typ, Kind: k.kind, Disabled: true})
	}
	slices.SortFunc(out, func(a, b Entry) int {
		if c := cmp.Compare(a.Type, b.Type); c != 0 {
			return c
		}
		if c := cmp.Compare(a.Kind, b.Kind); c != 0 {
			return c
		}
		// a disabled marker sorts after an operator of the same slot
		switch {
		case a.Disabled == b.Disabled:
			return 0
		case a.Disabled:
			return 1
		default:
			return -1
		}
	})
	return out
}

// Magic returns the shared symbol of a compiler magic (wasMoved, default, ==, not).
func (t *Table) Magic(m ir.Magic) *ir.Symbol {
	t.mu.Lock()
	defer t.mu.Unlock()
	if s := t.magics[m]; s != nil {
		return s
	}
	s := t.ids.NewSymbol(ir.SymProc, m.String(), nil, types.NoTypeID, source.Span{})
	s.Magic = m
	s.Flags |= ir.SymGenerated
	t.magics[m] = s
	return s
}
