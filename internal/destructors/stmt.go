package destructors

import (
	"dtorpass/internal/ir"
	"dtorpass/internal/types"
)

// pVarSection turns "var x = y" into a declaration at the top of the scope
// and a move or copy into x; x is destroyed when the scope closes.
func (c *pass) pVarSection(n *ir.Node, s scopeID) *ir.Node {
	out := stmts(n.Span)
	for _, it := range n.Kids {
		v, init := it.Kids[0], it.Kids[1]
		sym := v.Sym
		if sym.Has(ir.SymCompileTime) {
			out.Add(ir.NewTree(ir.KindVarSection, types.NoTypeID, it))
			continue
		}
		if init.Kind == ir.KindEmpty && !sym.Has(ir.SymNoInit) && c.needsDefault(sym) {
			init = c.genDefault(sym.Type, v.Span)
		}
		if !c.hasDestructor(sym.Type) || sym.Has(ir.SymCursor) {
			def := it.ShallowCopy()
			def.Kids[0] = v
			def.Kids[1] = init
			if init.Kind != ir.KindEmpty {
				def.Kids[1] = c.p(init, s, normal)
			}
			out.Add(ir.NewTree(ir.KindVarSection, types.NoTypeID, def))
			continue
		}
		c.declare(v, s)
		if init.Kind != ir.KindEmpty {
			out.Add(c.moveOrCopy(v, init, s, isDecl))
		}
	}
	if len(out.Kids) == 1 {
		return out.Kids[0]
	}
	return out
}

// needsDefault: a variable without initializer gets an explicit default
// value when some path reads it before a write, or when it owns resources
// and is declared in a loop body, where the previous iteration's value
// would otherwise be seen.
func (c *pass) needsDefault(v *ir.Symbol) bool {
	if c.inLoopBody() && c.hasDestructor(v.Type) {
		return true
	}
	return c.oracle.MaybeUninit(v)
}

// declare hoists v into s and schedules its destruction. Globals declared
// at the top scope are destroyed with the unit; thread-locals never.
func (c *pass) declare(v *ir.Node, s scopeID) {
	sym := v.Sym
	sc := c.scope(s)
	sc.vars = append(sc.vars, sym)
	c.declared[sym] = s
	switch {
	case sym.Has(ir.SymThreadVar):
	case sym.Kind == ir.SymGlobal && sc.parent == noScope:
		if d := c.genDestroy(v); d.Kind != ir.KindEmpty {
			c.globals = append(c.globals, d)
		}
	default:
		c.addFinal(s, c.genDestroy(v))
	}
}

// declScope returns the open scope that declared sym, s when unknown.
func (c *pass) declScope(sym *ir.Symbol, s scopeID) scopeID {
	if d, ok := c.declared[sym]; ok && int(d) < len(c.scopes) {
		return d
	}
	return s
}

func (c *pass) pAsgn(n *ir.Node, s scopeID) *ir.Node {
	dest, src := n.Kids[0], n.Kids[1]
	switch {
	case c.hasDestructor(dest.Type) && !isCursor(dest):
		if dest.Kind == ir.KindDot {
			c.cycleCheck(n)
		}
		return c.moveOrCopy(c.p(dest, s, normal), src, s, 0)
	case isDiscriminantField(dest):
		return c.genDiscriminantAsgn(n, s)
	}
	out := n.ShallowCopy()
	out.Kids[0] = c.p(dest, s, normal)
	out.Kids[1] = c.p(src, s, consumed)
	return out
}

// pReturn stores the value in the result variable before leaving; the
// finalizers of every enclosing scope still run.
func (c *pass) pReturn(n *ir.Node, s scopeID) *ir.Node {
	c.markNeedsTry(s)
	v := n.Kids[0]
	if v.Kind == ir.KindEmpty {
		return n
	}
	if res := c.routine.Result; res != nil {
		asgn := ir.NewTree(ir.KindAsgn, types.NoTypeID, c.sym(res, v.Span), v)
		ret := ir.NewTree(ir.KindReturn, types.NoTypeID, ir.NewEmpty(n.Span))
		ret.Span = n.Span
		return stmts(n.Span, c.pAsgn(asgn, s), ret)
	}
	out := n.ShallowCopy()
	out.Kids[0] = c.p(v, s, sinkArg)
	return out
}

// pRaise hands the exception its own copy of a raised location and resets
// the location if this routine owns it, so unwinding cannot destroy the
// payload a second time.
func (c *pass) pRaise(n *ir.Node, s scopeID) *ir.Node {
	c.markNeedsTry(s)
	v := n.Kids[0]
	switch {
	case v.Kind == ir.KindEmpty:
		return n
	case v.Kind == ir.KindCall || isConstructor(v) || !c.hasDestructor(v.Type):
		out := n.ShallowCopy()
		out.Kids[0] = c.p(v, s, consumed)
		return out
	}
	tmp := c.newTemp(s, v.Type, v.Span)
	out := stmts(n.Span, c.genWasMoved(tmp), c.genCopy(tmp, c.p(v, s, normal), v))
	disarm := v
	if disarm.Kind == ir.KindStmtListExpr {
		disarm = disarm.Last()
	}
	if disarm.Kind == ir.KindSym && c.ownsStorage(disarm.Sym) {
		out.Add(c.genWasMoved(disarm))
	}
	raise := ir.NewTree(ir.KindRaise, types.NoTypeID, tmp.CopyTree())
	raise.Span = n.Span
	return out.Add(raise)
}

// ownsStorage reports symbols this routine destroys itself.
func (c *pass) ownsStorage(s *ir.Symbol) bool {
	if !s.IsLocal(c.owner) || s.Has(ir.SymCursor) {
		return false
	}
	return s.Kind != ir.SymParam || s.Has(ir.SymSink)
}
