// Package unit holds a compilation unit as the destructor pass consumes it:
// the type table, the operator table and the typed routine bodies, plus the
// msgpack codec the CLI reads unit files with.
package unit

import (
	"golang.org/x/text/unicode/norm"

	"dtorpass/internal/ir"
	"dtorpass/internal/ops"
	"dtorpass/internal/source"
	"dtorpass/internal/types"
)

// Unit is one compilation unit. All routines share the tables.
type Unit struct {
	Name     string
	Files    *source.FileSet
	Types    *types.Table
	IDs      *ir.IDGen
	Ops      *ops.Table
	Routines []*ir.Routine
}

// New creates an empty unit with fresh tables.
func New(name string) *Unit {
	tt := types.NewTable()
	ids := ir.NewIDGen(0)
	return &Unit{
		Name:  name,
		Files: source.NewFileSet(),
		Types: tt,
		IDs:   ids,
		Ops:   ops.New(tt, ids),
	}
}

// Add appends routines to the unit.
func (u *Unit) Add(rs ...*ir.Routine) {
	u.Routines = append(u.Routines, rs...)
}

// Routine finds a routine by name. Names compare in NFC, so a name typed
// in decomposed form still matches.
func (u *Unit) Routine(name string) (*ir.Routine, bool) {
	for _, r := range u.Routines {
		if SameName(r.Name(), name) {
			return r, true
		}
	}
	return nil, false
}

// SameName reports whether two routine names are canonically equal.
func SameName(a, b string) bool {
	return a == b || norm.NFC.String(a) == norm.NFC.String(b)
}
