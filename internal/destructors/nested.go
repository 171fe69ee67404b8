package destructors

import (
	"dtorpass/internal/ir"
	"dtorpass/internal/types"
)

// handleNested rewrites statement lists and control flow. Every branch,
// loop body and block gets its own scope; a branch whose value is used gets
// it through processScopeExpr. process handles the yielded values; with
// asStmt the construct is known to end up as a statement (the values were
// assigned to their destination by process).
func (c *pass) handleNested(n *ir.Node, s scopeID, process processFn, asStmt bool) *ir.Node {
	maybeVoid := func(child *ir.Node, cs scopeID) *ir.Node {
		if c.isVoid(child.Type) {
			return c.p(child, cs, normal)
		}
		return process(child, cs)
	}
	// branch rewrites the body of one arm in a fresh scope.
	branch := func(body *ir.Node, stmt bool) *ir.Node {
		bs := c.openScope(s)
		if stmt || asStmt || c.isVoid(body.Type) {
			return c.processScope(bs, maybeVoid(body, bs))
		}
		return c.processScopeExpr(bs, body, process)
	}
	shell := func() *ir.Node {
		out := n.CopyNode()
		if asStmt {
			out.Type = types.NoTypeID
			if out.Kind == ir.KindStmtListExpr {
				out.Kind = ir.KindStmtList
			}
		}
		return out
	}

	switch n.Kind {
	case ir.KindStmtList, ir.KindStmtListExpr:
		// a statement list does not open a scope
		out := shell()
		if len(n.Kids) == 0 {
			return out
		}
		for _, k := range n.Kids[:len(n.Kids)-1] {
			out.Add(c.p(k, s, normal))
		}
		return out.Add(maybeVoid(n.Last(), s))

	case ir.KindIf:
		out := shell()
		stmt := c.isVoid(n.Type)
		for _, br := range n.Kids {
			cp := br.CopyNode()
			if br.Kind == ir.KindElifBranch {
				// the condition's temporaries belong to the enclosing scope
				cp.Add(c.p(br.Kids[0], s, normal))
			}
			out.Add(cp.Add(branch(br.Last(), stmt)))
		}
		return out

	case ir.KindCase:
		out := shell()
		out.Add(c.p(n.Kids[0], s, normal))
		stmt := c.isVoid(n.Type)
		for _, br := range n.Kids[1:] {
			cp := br.CopyNode()
			for _, label := range br.Kids[:len(br.Kids)-1] {
				cp.Add(label.CopyTree())
			}
			out.Add(cp.Add(branch(br.Last(), stmt)))
		}
		return out

	case ir.KindWhile:
		out := n.CopyNode()
		c.inLoop++
		c.inLoopCond++
		out.Add(c.p(n.Kids[0], s, normal))
		c.inLoopCond--
		bs := c.openScope(s)
		out.Add(c.processScope(bs, c.p(n.Kids[1], bs, normal)))
		c.inLoop--
		return out

	case ir.KindBlock:
		out := shell()
		out.Add(n.Kids[0])
		return out.Add(branch(n.Kids[1], c.isVoid(n.Type)))

	case ir.KindTry:
		out := shell()
		stmt := c.isVoid(n.Type)
		out.Add(branch(n.Kids[0], stmt))
		for _, h := range n.Kids[1:] {
			cp := h.CopyNode()
			if h.Kind == ir.KindFinally {
				fs := c.openScope(s)
				out.Add(cp.Add(c.processScope(fs, c.p(h.Kids[0], fs, normal))))
				continue
			}
			out.Add(cp.Add(branch(h.Kids[0], stmt)))
		}
		return out
	}
	internalError(n, "unexpected nested node %s", n.Kind)
	return nil
}

// inLoopBody reports whether the statement being rewritten runs once per
// iteration of some loop. Loop conditions count as outside their loop.
func (c *pass) inLoopBody() bool {
	return c.inLoop-c.inLoopCond > 0
}
