package testkit

import (
	"dtorpass/internal/ir"
	"dtorpass/internal/types"
)

// S references a symbol.
func (k *Kit) S(s *ir.Symbol) *ir.Node {
	return ir.NewSym(s, k.Span())
}

func (k *Kit) Int(v int64) *ir.Node {
	return ir.NewIntLit(v, k.Types.Builtins().Int, k.Span())
}

func (k *Kit) Str(v string) *ir.Node {
	return ir.NewStrLit(v, k.Types.Builtins().String, k.Span())
}

func (k *Kit) Bool(v bool) *ir.Node {
	n := ir.NewNode(ir.KindBoolLit, k.Span(), k.Types.Builtins().Bool)
	if v {
		n.Int = 1
	}
	return n
}

// Nil is a nil literal of typ.
func (k *Kit) Nil(typ types.TypeID) *ir.Node {
	return ir.NewNode(ir.KindNilLit, k.Span(), typ)
}

func (k *Kit) tree(kind ir.Kind, typ types.TypeID, kids ...*ir.Node) *ir.Node {
	n := ir.NewTree(kind, typ, kids...)
	n.Span = k.Span()
	return n
}

// Call calls fn; the node is typed with the signature's result.
func (k *Kit) Call(fn *ir.Symbol, args ...*ir.Node) *ir.Node {
	typ := types.NoTypeID
	if info, ok := k.Types.ProcInfo(fn.Type); ok {
		typ = info.Result
	}
	return k.tree(ir.KindCall, typ, append([]*ir.Node{k.S(fn)}, args...)...)
}

// Magic calls a compiler magic (==, not, and, or).
func (k *Kit) Magic(m ir.Magic, typ types.TypeID, args ...*ir.Node) *ir.Node {
	return k.tree(ir.KindCall, typ, append([]*ir.Node{k.S(k.Ops.Magic(m))}, args...)...)
}

// Dot accesses field name of x.
func (k *Kit) Dot(x *ir.Node, name string) *ir.Node {
	f := k.Field(k.Types.Skip(x.Type, types.KindRef, types.KindPtr, types.KindVar, types.KindDistinct, types.KindGenericInst), name)
	return k.tree(ir.KindDot, f.Type, x, ir.NewSym(f, k.Span()))
}

// Index reads element i of x.
func (k *Kit) Index(x, i *ir.Node) *ir.Node {
	tt, _ := k.Types.Lookup(k.Types.Skip(x.Type, types.KindVar, types.KindDistinct))
	elem := tt.Elem
	if tt.Kind == types.KindString {
		elem = k.Types.Builtins().Char
	}
	return k.tree(ir.KindIndex, elem, x, i)
}

// Deref dereferences a ref or ptr.
func (k *Kit) Deref(x *ir.Node) *ir.Node {
	tt, _ := k.Types.Lookup(x.Type)
	return k.tree(ir.KindDeref, tt.Elem, x)
}

func (k *Kit) Conv(typ types.TypeID, x *ir.Node) *ir.Node {
	return k.tree(ir.KindConv, typ, x)
}

func (k *Kit) Asgn(dst, src *ir.Node) *ir.Node {
	return k.tree(ir.KindAsgn, types.NoTypeID, dst, src)
}

// Var declares s; a nil init leaves it uninitialized.
func (k *Kit) Var(s *ir.Symbol, init *ir.Node) *ir.Node {
	if init == nil {
		init = ir.NewEmpty(k.Span())
	}
	return k.tree(ir.KindVarSection, types.NoTypeID, k.tree(ir.KindIdentDefs, types.NoTypeID, k.S(s), init))
}

func (k *Kit) Stmts(stmts ...*ir.Node) *ir.Node {
	return k.tree(ir.KindStmtList, types.NoTypeID, stmts...)
}

// Expr is a statement list yielding its last element.
func (k *Kit) Expr(stmts ...*ir.Node) *ir.Node {
	return k.tree(ir.KindStmtListExpr, stmts[len(stmts)-1].Type, stmts...)
}

// If builds "if cond: then else: els"; els may be nil.
func (k *Kit) If(cond, then, els *ir.Node) *ir.Node {
	n := k.tree(ir.KindIf, types.NoTypeID, k.tree(ir.KindElifBranch, types.NoTypeID, cond, then))
	if els != nil {
		n.Add(k.tree(ir.KindElse, types.NoTypeID, els))
	}
	return n
}

// IfExpr is an if used as an expression of the branches' type.
func (k *Kit) IfExpr(cond, then, els *ir.Node) *ir.Node {
	return k.tree(ir.KindIf, then.Type,
		k.tree(ir.KindElifBranch, types.NoTypeID, cond, then),
		k.tree(ir.KindElse, types.NoTypeID, els))
}

// Case builds "case sel" with one of-branch per label and an optional else.
func (k *Kit) Case(sel *ir.Node, branches [][2]*ir.Node, els *ir.Node) *ir.Node {
	n := k.tree(ir.KindCase, types.NoTypeID, sel)
	for _, br := range branches {
		n.Add(k.tree(ir.KindOfBranch, types.NoTypeID, br[0], br[1]))
	}
	if els != nil {
		n.Add(k.tree(ir.KindElse, types.NoTypeID, els))
	}
	return n
}

func (k *Kit) While(cond *ir.Node, body ...*ir.Node) *ir.Node {
	return k.tree(ir.KindWhile, types.NoTypeID, cond, k.Stmts(body...))
}

// Block is an unlabeled block when label is nil.
func (k *Kit) Block(label *ir.Symbol, body ...*ir.Node) *ir.Node {
	lbl := ir.NewEmpty(k.Span())
	if label != nil {
		lbl = k.S(label)
	}
	return k.tree(ir.KindBlock, types.NoTypeID, lbl, k.Stmts(body...))
}

// Label creates a block label of the current routine.
func (k *Kit) Label(name string) *ir.Symbol {
	return k.IDs.NewSymbol(ir.SymLabel, name, k.owner, types.NoTypeID, k.Span())
}

// Try builds try/except/finally; except and finally may be nil.
func (k *Kit) Try(body, except, finally *ir.Node) *ir.Node {
	n := k.tree(ir.KindTry, types.NoTypeID, body)
	if except != nil {
		n.Add(k.tree(ir.KindExcept, types.NoTypeID, except))
	}
	if finally != nil {
		n.Add(k.tree(ir.KindFinally, types.NoTypeID, finally))
	}
	return n
}

func (k *Kit) Raise(x *ir.Node) *ir.Node {
	if x == nil {
		x = ir.NewEmpty(k.Span())
	}
	return k.tree(ir.KindRaise, types.NoTypeID, x)
}

func (k *Kit) Return(x *ir.Node) *ir.Node {
	if x == nil {
		x = ir.NewEmpty(k.Span())
	}
	return k.tree(ir.KindReturn, types.NoTypeID, x)
}

// Break leaves the innermost loop or block, or the labeled one.
func (k *Kit) Break(label *ir.Symbol) *ir.Node {
	lbl := ir.NewEmpty(k.Span())
	if label != nil {
		lbl = k.S(label)
	}
	return k.tree(ir.KindBreak, types.NoTypeID, lbl)
}

func (k *Kit) Discard(x *ir.Node) *ir.Node {
	return k.tree(ir.KindDiscard, types.NoTypeID, x)
}

// ObjConstr builds typ(f1: v1, ...); names[i] is initialized with values[i].
func (k *Kit) ObjConstr(typ types.TypeID, names []string, values ...*ir.Node) *ir.Node {
	obj := k.Types.Skip(typ, types.KindRef)
	n := k.tree(ir.KindObjConstr, typ)
	for i, name := range names {
		n.Add(k.tree(ir.KindFieldInit, types.NoTypeID, ir.NewSym(k.Field(obj, name), k.Span()), values[i]))
	}
	return n
}

func (k *Kit) Array(typ types.TypeID, elems ...*ir.Node) *ir.Node {
	return k.tree(ir.KindArrayConstr, typ, elems...)
}

func (k *Kit) Tuple(typ types.TypeID, elems ...*ir.Node) *ir.Node {
	return k.tree(ir.KindTupleConstr, typ, elems...)
}

// Closure pairs a routine with its environment.
func (k *Kit) Closure(typ types.TypeID, fn *ir.Symbol, env *ir.Node) *ir.Node {
	return k.tree(ir.KindClosure, typ, k.S(fn), env)
}

// Render prints n with type names.
func (k *Kit) Render(n *ir.Node) string {
	return ir.Printer{Types: k.Types}.Render(n)
}
