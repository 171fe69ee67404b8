package destructors

import (
	"slices"

	"dtorpass/internal/ir"
	"dtorpass/internal/source"
	"dtorpass/internal/types"
)

// scopeID indexes the scope arena of a pass. Scopes are pushed and popped
// with the recursion, so a parent always has a smaller index than its child.
type scopeID int

const noScope scopeID = -1

// scope collects the obligations of one lexical region.
type scope struct {
	vars     []*ir.Symbol // declared at the start of the region
	wasMoved []*ir.Node   // moved-from markers run before the finalizers
	final    []*ir.Node   // destroy calls, in declaration order
	needsTry bool         // an exit other than fall-through is possible
	parent   scopeID
}

func (sc *scope) empty() bool {
	return len(sc.wasMoved) == 0 && len(sc.final) == 0
}

func (c *pass) openScope(parent scopeID) scopeID {
	c.scopes = append(c.scopes, scope{parent: parent})
	return scopeID(len(c.scopes) - 1)
}

// scope returns the record of s. The pointer is valid until the next openScope.
func (c *pass) scope(s scopeID) *scope {
	return &c.scopes[s]
}

// closeScope pops s and hands its needsTry flag to the parent.
func (c *pass) closeScope(s scopeID) {
	if int(s) != len(c.scopes)-1 {
		internalError(nil, "scope %d closed out of order (depth %d)", s, len(c.scopes))
	}
	sc := c.scopes[s]
	c.scopes = c.scopes[:s]
	if sc.parent != noScope && sc.needsTry {
		c.scopes[sc.parent].needsTry = true
	}
}

func (c *pass) markNeedsTry(s scopeID) {
	c.scope(s).needsTry = true
}

// addWasMoved schedules a moved-from marker for the location of n, once.
func (c *pass) addWasMoved(s scopeID, n *ir.Node) {
	sc := c.scope(s)
	for _, w := range sc.wasMoved {
		if ir.SameLocation(w.Kids[1], n) {
			return
		}
	}
	sc.wasMoved = append(sc.wasMoved, c.genWasMoved(n))
}

func (c *pass) addFinal(s scopeID, n *ir.Node) {
	if n == nil || n.Kind == ir.KindEmpty {
		return
	}
	sc := c.scope(s)
	sc.final = append(sc.final, n)
}

// declSection declares vars without initializers.
func declSection(vars []*ir.Symbol, span source.Span) *ir.Node {
	sec := ir.NewNode(ir.KindVarSection, span, types.NoTypeID)
	for _, v := range vars {
		sec.Add(ir.NewTree(ir.KindIdentDefs, types.NoTypeID, ir.NewSym(v, span), ir.NewEmpty(span)))
	}
	return sec
}

// finSection lists the moved-from markers, then the destroy calls
// last-declared first.
func finSection(sc *scope, span source.Span) *ir.Node {
	fin := ir.NewNode(ir.KindStmtList, span, types.NoTypeID)
	fin.Add(sc.wasMoved...)
	for _, f := range slices.Backward(sc.final) {
		fin.Add(f)
	}
	return fin
}

func tryFinally(body, fin *ir.Node, typ types.TypeID) *ir.Node {
	t := ir.NewTree(ir.KindTry, typ, body, ir.NewTree(ir.KindFinally, types.NoTypeID, fin))
	t.Span = body.Span
	return t
}

// processScope closes s around the statement ret: declarations first, then
// the body, then the finalizers; a try/finally keeps the finalizers on every
// exit path when the region can be left early.
func (c *pass) processScope(s scopeID, ret *ir.Node) *ir.Node {
	sc := *c.scope(s)
	c.closeScope(s)
	if len(sc.vars) == 0 && sc.empty() {
		return ret
	}
	out := ir.NewNode(ir.KindStmtList, ret.Span, types.NoTypeID)
	if len(sc.vars) > 0 {
		out.Add(declSection(sc.vars, ret.Span))
	}
	switch {
	case sc.empty():
		out.Add(ret)
	case sc.needsTry:
		out.Add(tryFinally(ret, finSection(&sc, ret.Span), types.NoTypeID))
	default:
		out.Add(ret, finSection(&sc, ret.Span))
	}
	return out
}

// processScopeExpr closes s around the value expression ret. The value is
// first captured in a temporary of the parent scope so the region's own
// finalizers can run before the value is handed on by process.
func (c *pass) processScopeExpr(s scopeID, ret *ir.Node, process processFn) *ir.Node {
	parent := c.scope(s).parent
	tmp := c.newTemp(parent, ret.Type, ret.Span)
	tmp.Sym.Flags |= ir.SymSingleUsedTemp

	var cpy *ir.Node
	if c.hasDestructor(ret.Type) {
		c.addFinal(parent, c.genDestroy(tmp))
		cpy = c.moveOrCopy(tmp, ret, s, isDecl)
	} else {
		cpy = c.fastAsgn(tmp, c.p(ret, s, normal))
	}

	sc := *c.scope(s)
	c.closeScope(s)
	yield := process(tmp, parent)

	out := ir.NewNode(ir.KindStmtListExpr, ret.Span, ret.Type)
	if len(sc.vars) > 0 {
		out.Add(declSection(sc.vars, ret.Span))
	}
	switch {
	case sc.needsTry && !sc.empty():
		body := ir.NewTree(ir.KindStmtListExpr, ret.Type, cpy, yield)
		out.Add(tryFinally(body, finSection(&sc, ret.Span), ret.Type))
	case !sc.empty():
		out.Add(cpy, finSection(&sc, ret.Span), yield)
	default:
		out.Add(cpy, yield)
	}
	return out
}
