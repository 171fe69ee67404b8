package destructors

import (
	"dtorpass/internal/cfg"
	"dtorpass/internal/diag"
	"dtorpass/internal/ir"
	"dtorpass/internal/types"
)

// processFn rewrites the value a nested construct yields in scope s.
type processFn func(n *ir.Node, s scopeID) *ir.Node

// p rewrites n in scope s. m says what happens to the value n produces:
// normal evaluation, ownership taken by the caller (consumed), or handed
// to a sink parameter (sinkArg).
func (c *pass) p(n *ir.Node, s scopeID, m mode) *ir.Node {
	switch n.Kind {
	case ir.KindStmtList, ir.KindStmtListExpr, ir.KindBlock, ir.KindIf, ir.KindCase,
		ir.KindWhile, ir.KindTry:
		return c.handleNested(n, s, func(child *ir.Node, cs scopeID) *ir.Node {
			return c.p(child, cs, m)
		}, false)
	}
	if m == sinkArg {
		return c.pSinkArg(n, s)
	}

	switch n.Kind {
	case ir.KindEmpty, ir.KindSym, ir.KindIntLit, ir.KindStrLit, ir.KindBoolLit, ir.KindNilLit:
		return n
	case ir.KindArrayConstr, ir.KindTupleConstr, ir.KindClosure:
		return c.pConstr(n, s, m)
	case ir.KindObjConstr:
		return c.pObjConstr(n, s, m)
	case ir.KindCall:
		return c.pCall(n, s, m)
	case ir.KindDiscard:
		out := n.ShallowCopy()
		out.Kids[0] = c.p(n.Kids[0], s, normal)
		return out
	case ir.KindVarSection:
		return c.pVarSection(n, s)
	case ir.KindAsgn, ir.KindFastAsgn:
		return c.pAsgn(n, s)
	case ir.KindRaise:
		return c.pRaise(n, s)
	case ir.KindBreak:
		c.markNeedsTry(s)
		return n
	case ir.KindReturn:
		return c.pReturn(n, s)
	case ir.KindDot:
		if isPureLocation(n) {
			return n
		}
		out := n.ShallowCopy()
		out.Kids[0] = c.p(n.Kids[0], s, normal)
		out.Kids[1] = n.Kids[1]
		return out
	case ir.KindIndex, ir.KindDeref, ir.KindAddr, ir.KindConv, ir.KindUpConv, ir.KindDownConv, ir.KindCast:
		if isPureLocation(n) {
			return n
		}
		out := n.ShallowCopy()
		for i, k := range n.Kids {
			out.Kids[i] = c.p(k, s, normal)
		}
		return out
	}
	internalError(n, "cannot inject destructors into node kind %s", n.Kind)
	return nil
}

// pSinkArg produces a value a sink parameter may own.
func (c *pass) pSinkArg(n *ir.Node, s scopeID) *ir.Node {
	switch {
	case c.containsConstSeq(n):
		// read-only storage cannot be taken over
		return c.passCopyToSink(n, s)
	case isConstructor(n) || n.Kind == ir.KindCall || n.Kind.IsLiteral():
		return c.p(n, s, consumed)
	case c.isVoid(n.Type):
		// raise inside a case expression and the like
		return c.p(n, s, normal)
	case !c.hasDestructor(n.Type):
		if c.kindOf(n.Type) == types.KindOpenArray {
			c.errorAt(diag.DtorOpenArraySinkCopy, n.Span,
				"cannot create an implicit openArray copy to be passed to a sink parameter; routine: "+c.routine.Name())
		}
		return c.p(n, s, normal)
	case (isSinkParam(n) || c.isAnalysable(n)) && !isCursor(n) && c.isLastRead(n):
		return c.destructiveMoveVar(n)
	case n.Kind == ir.KindConv:
		out := n.ShallowCopy()
		if c.kindOf(n.Type) == c.kindOf(n.Kids[0].Type) {
			out.Kids[0] = c.p(n.Kids[0], s, sinkArg)
		} else {
			out.Kids[0] = c.p(n.Kids[0], s, normal)
		}
		return out
	case n.Kind == ir.KindUpConv || n.Kind == ir.KindDownConv:
		out := n.ShallowCopy()
		out.Kids[0] = c.p(n.Kids[0], s, sinkArg)
		return out
	case n.Kind == ir.KindCast && (c.kindOf(n.Type) == types.KindString || c.kindOf(n.Type) == types.KindSeq):
		out := n.ShallowCopy()
		out.Kids[0] = c.p(n.Kids[0], s, sinkArg)
		return out
	}
	// not a temporary: the receiver gets a copy
	return c.passCopyToSink(n, s)
}

// pConstr handles array, tuple and closure constructors. A stack aggregate
// only owns its elements when something takes it over; a seq literal or a
// closure environment lives on the heap and is always owned, and destroyed
// when nobody takes it over.
func (c *pass) pConstr(n *ir.Node, s scopeID, m mode) *ir.Node {
	heap := (n.Kind == ir.KindArrayConstr && c.kindOf(n.Type) == types.KindSeq && !c.types.IsConstSeq(n.Type)) ||
		(n.Kind == ir.KindClosure && n.Kids[1].Kind != ir.KindNilLit)
	em := sinkArg
	if m == normal && !heap {
		em = normal
	}
	if n.Kind == ir.KindArrayConstr && c.types.IsConstSeq(n.Type) {
		em = normal
	}
	out := n.ShallowCopy()
	for i, k := range n.Kids {
		if n.Kind == ir.KindClosure && i == 0 {
			out.Kids[i] = k
			continue
		}
		out.Kids[i] = c.p(k, s, em)
	}
	if m == normal && heap {
		return c.ensureDestruction(out, s)
	}
	return out
}

// pObjConstr: a ref constructor always owns its fields. Cursor fields
// never take ownership.
func (c *pass) pObjConstr(n *ir.Node, s scopeID, m mode) *ir.Node {
	isRef := c.kindOf(n.Type) == types.KindRef
	em := sinkArg
	if m == normal && !isRef {
		em = normal
	}
	out := n.ShallowCopy()
	for i, fi := range n.Kids {
		cp := fi.ShallowCopy()
		cp.Kids[0] = fi.Kids[0]
		if fi.Kids[0].Sym.Has(ir.SymCursor) {
			cp.Kids[1] = c.p(fi.Kids[1], s, normal)
		} else {
			cp.Kids[1] = c.p(fi.Kids[1], s, em)
		}
		out.Kids[i] = cp
	}
	if m == normal && isRef {
		return c.ensureDestruction(out, s)
	}
	return out
}

// signature returns the parameter list of the callee, through closures.
func (c *pass) signature(callee *ir.Node) *types.ProcInfo {
	typ := c.types.SkipAbstract(callee.Type)
	if tt, ok := c.types.Lookup(typ); ok && tt.Kind == types.KindClosure {
		typ = tt.Elem
	}
	info, ok := c.types.ProcInfo(typ)
	if !ok {
		return nil
	}
	return info
}

func (c *pass) pCall(n *ir.Node, s scopeID, m mode) *ir.Node {
	callee := n.Kids[0]
	sig := c.signature(callee)
	out := n.ShallowCopy()
	for i, arg := range n.Kids[1:] {
		var prm *types.Param
		if sig != nil && i < len(sig.Params) {
			prm = &sig.Params[i]
		}
		switch {
		case prm != nil && prm.CompileTime:
			out.Kids[i+1] = arg
		case prm != nil && prm.Sink:
			out.Kids[i+1] = c.p(arg, s, sinkArg)
		default:
			out.Kids[i+1] = c.p(arg, s, normal)
		}
	}
	var res *ir.Node = out
	if callee.Kind == ir.KindSym && callee.Sym.Magic == ir.MagicNew {
		out.Kids[0] = callee
		if len(n.Kids) > 1 && c.hasDestructor(n.Kids[1].Type) {
			// the ref may still hold a value
			res = stmts(n.Span, c.genDestroy(out.Kids[1]), out)
		}
	} else {
		out.Kids[0] = c.p(callee, s, normal)
	}
	if cfg.CanRaise(c.types, n) {
		c.markNeedsTry(s)
	}
	if m == normal {
		return c.ensureDestruction(res, s)
	}
	return res
}
