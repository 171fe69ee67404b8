// Package testkit builds small typed routines for the pass tests and checks
// the invariants every rewritten tree must satisfy.
package testkit

import (
	"dtorpass/internal/ir"
	"dtorpass/internal/ops"
	"dtorpass/internal/source"
	"dtorpass/internal/types"
)

// Kit owns the tables of one test unit and builds nodes with increasing
// line numbers, so every node has a distinct position.
type Kit struct {
	Types *types.Table
	IDs   *ir.IDGen
	Ops   *ops.Table
	Files *source.FileSet

	file   source.FileID
	line   uint32
	owner  *ir.Symbol
	params []*ir.Symbol
	result *ir.Symbol
	fields map[fieldKey]*ir.Symbol
}

type fieldKey struct {
	obj  types.TypeID
	name string
}

// New creates a kit with empty tables and one file "test.dt".
func New() *Kit {
	tt := types.NewTable()
	ids := ir.NewIDGen(0)
	fs := source.NewFileSet()
	return &Kit{
		Types:  tt,
		IDs:    ids,
		Ops:    ops.New(tt, ids),
		Files:  fs,
		file:   fs.Add("test.dt"),
		fields: make(map[fieldKey]*ir.Symbol),
	}
}

// Span returns a fresh position.
func (k *Kit) Span() source.Span {
	k.line++
	return source.Span{File: k.file, Line: k.line, Col: 1}
}

// Begin starts a new routine; locals and params created afterwards belong to it.
func (k *Kit) Begin(name string) *ir.Symbol {
	k.owner = k.IDs.NewSymbol(ir.SymProc, name, nil, types.NoTypeID, k.Span())
	k.params = nil
	k.result = nil
	return k.owner
}

// Owner returns the routine under construction.
func (k *Kit) Owner() *ir.Symbol {
	return k.owner
}

// Param declares a parameter of the current routine.
func (k *Kit) Param(name string, typ types.TypeID, sink bool) *ir.Symbol {
	p := k.IDs.NewSymbol(ir.SymParam, name, k.owner, typ, k.Span())
	p.Position = len(k.params)
	if sink {
		p.Flags |= ir.SymSink
	}
	k.params = append(k.params, p)
	return p
}

// Result declares the result variable of the current routine.
func (k *Kit) Result(typ types.TypeID) *ir.Symbol {
	k.result = k.IDs.NewSymbol(ir.SymResult, "result", k.owner, typ, k.Span())
	return k.result
}

// Local creates a var owned by the current routine.
func (k *Kit) Local(name string, typ types.TypeID) *ir.Symbol {
	return k.IDs.NewSymbol(ir.SymVar, name, k.owner, typ, k.Span())
}

// Global creates a global variable.
func (k *Kit) Global(name string, typ types.TypeID) *ir.Symbol {
	return k.IDs.NewSymbol(ir.SymGlobal, name, nil, typ, k.Span())
}

// Finish wraps body into the routine started by Begin.
func (k *Kit) Finish(body ...*ir.Node) *ir.Routine {
	return &ir.Routine{Sym: k.owner, Params: k.params, Result: k.result, Body: k.Stmts(body...)}
}

// Func declares a callable routine with the given signature.
func (k *Kit) Func(name string, info types.ProcInfo) *ir.Symbol {
	fn := k.IDs.NewSymbol(ir.SymProc, name, nil, k.Types.Proc(info), k.Span())
	if info.Raises {
		fn.Flags |= ir.SymCanRaise
	}
	return fn
}

// Object registers an object type with the given fields.
func (k *Kit) Object(name string, fields ...types.Field) types.TypeID {
	return k.Types.RegisterObject(name, fields...)
}

// Field returns the field symbol name of obj; one symbol per field.
func (k *Kit) Field(obj types.TypeID, name string) *ir.Symbol {
	fk := fieldKey{obj, name}
	if f := k.fields[fk]; f != nil {
		return f
	}
	info, ok := k.Types.Object(obj)
	if !ok {
		panic("testkit: not an object type")
	}
	for i, fd := range info.Fields {
		if fd.Name != name {
			continue
		}
		f := k.IDs.NewSymbol(ir.SymField, name, nil, fd.Type, source.Span{})
		f.Position = i
		if fd.Cursor {
			f.Flags |= ir.SymCursor
		}
		if info.Variant != nil && info.Variant.Discriminant == i {
			f.Flags |= ir.SymDiscriminant
		}
		k.fields[fk] = f
		return f
	}
	panic("testkit: unknown field " + name)
}
