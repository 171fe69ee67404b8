// Package ir provides the typed tree the destructor pass reads and writes.
//
// The tree is a closed vocabulary of node kinds. Every expression node carries
// the TypeID assigned by the front end; statements carry types.NoTypeID.
// Symbols are shared between nodes: two Sym nodes denote the same entity iff
// they point at the same *Symbol.
package ir

import (
	"sync/atomic"

	"dtorpass/internal/source"
	"dtorpass/internal/types"
)

// SymID identifies a symbol within a unit.
type SymID uint32

// NoSymID is the zero, invalid id.
const NoSymID SymID = 0

// SymKind classifies what a symbol names.
type SymKind uint8

const (
	SymParam SymKind = iota
	SymVar
	SymLet
	SymTemp
	SymResult
	SymGlobal
	SymProc
	SymField
	SymLabel
)

func (k SymKind) String() string {
	switch k {
	case SymParam:
		return "param"
	case SymVar:
		return "var"
	case SymLet:
		return "let"
	case SymTemp:
		return "temp"
	case SymResult:
		return "result"
	case SymGlobal:
		return "global"
	case SymProc:
		return "proc"
	case SymField:
		return "field"
	case SymLabel:
		return "label"
	default:
		return "?"
	}
}

// SymFlags represents symbol modifiers as a bitmask.
type SymFlags uint32

const (
	// SymCursor marks a non-owning alias: never moved from, never destroyed.
	SymCursor SymFlags = 1 << iota
	// SymSink marks a parameter that takes ownership of its argument.
	SymSink
	// SymSingleUsedTemp marks a temporary written once and read once.
	SymSingleUsedTemp
	// SymNoInit marks a variable whose storage starts out uninitialized.
	SymNoInit
	// SymDiscriminant marks the tag field of an object variant.
	SymDiscriminant
	// SymCanRaise marks a routine whose calls may raise.
	SymCanRaise
	// SymCompileTime marks compile-time only entities, left untouched.
	SymCompileTime
	// SymOverridden marks a lifecycle operator written by the user.
	SymOverridden
	// SymGenerated marks a compiler-synthesized routine.
	SymGenerated
	// SymGenericOp marks a lifecycle operator that is still generic.
	SymGenericOp
	// SymUnavailable marks a lifecycle operator the type explicitly disabled.
	SymUnavailable
	// SymCaptured marks a variable that lives in a closure environment.
	SymCaptured
	// SymThreadVar marks thread-local globals, never destroyed by the pass.
	SymThreadVar
)

// Has returns true if the given flag is set.
func (f SymFlags) Has(flag SymFlags) bool {
	return f&flag != 0
}

// Magic identifies compiler built-ins that are called like routines.
type Magic uint8

const (
	MagicNone Magic = iota
	// MagicWasMoved resets a location to its moved-from state.
	MagicWasMoved
	// MagicDefault produces the default value of the call's type.
	MagicDefault
	// MagicNew allocates a fresh ref into its first argument.
	MagicNew
	// MagicEq is structural equality on the compared type.
	MagicEq
	MagicNot
	MagicAnd
	MagicOr
)

func (m Magic) String() string {
	switch m {
	case MagicWasMoved:
		return "wasMoved"
	case MagicDefault:
		return "default"
	case MagicNew:
		return "new"
	case MagicEq:
		return "=="
	case MagicNot:
		return "not"
	case MagicAnd:
		return "and"
	case MagicOr:
		return "or"
	default:
		return ""
	}
}

// Symbol is a named entity: variable, parameter, temporary, routine, field.
type Symbol struct {
	ID       SymID
	Name     string
	Kind     SymKind
	Owner    *Symbol // owning routine; nil for globals and fields
	Type     types.TypeID
	Flags    SymFlags
	Magic    Magic
	Position int // field index for fields, parameter index for params
	Span     source.Span
}

// Has reports whether the symbol carries flag.
func (s *Symbol) Has(flag SymFlags) bool {
	return s != nil && s.Flags.Has(flag)
}

// IsLocal reports whether s is storage owned by routine.
func (s *Symbol) IsLocal(routine *Symbol) bool {
	if s == nil || s.Owner != routine {
		return false
	}
	switch s.Kind {
	case SymParam, SymVar, SymLet, SymTemp, SymResult:
		return true
	}
	return false
}

// IDGen hands out symbol ids. It is shared by all pass instances of a unit
// and therefore atomic.
type IDGen struct {
	next atomic.Uint32
}

// NewIDGen returns a generator whose first id is after start.
func NewIDGen(start SymID) *IDGen {
	g := &IDGen{}
	g.next.Store(uint32(start))
	return g
}

// Next returns a fresh id.
func (g *IDGen) Next() SymID {
	return SymID(g.next.Add(1))
}

// Last returns the most recently issued id.
func (g *IDGen) Last() SymID {
	return SymID(g.next.Load())
}

// NewSymbol allocates a symbol with a fresh id.
func (g *IDGen) NewSymbol(kind SymKind, name string, owner *Symbol, typ types.TypeID, span source.Span) *Symbol {
	return &Symbol{
		ID:    g.Next(),
		Name:  name,
		Kind:  kind,
		Owner: owner,
		Type:  typ,
		Span:  span,
	}
}
