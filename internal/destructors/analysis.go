package destructors

import (
	"dtorpass/internal/ir"
	"dtorpass/internal/types"
)

// isAnalysable reports whether n is a location the liveness oracle can
// reason about: a path of field and index steps rooted at storage owned by
// this routine. Derefs leave the routine's storage.
func (c *pass) isAnalysable(n *ir.Node) bool {
	for {
		switch n.Kind {
		case ir.KindDot, ir.KindIndex, ir.KindConv, ir.KindUpConv, ir.KindDownConv:
			n = n.Kids[0]
			continue
		}
		break
	}
	if n.Kind != ir.KindSym {
		return false
	}
	s := n.Sym
	if s.Owner != c.owner || s.Has(ir.SymThreadVar) || s.Has(ir.SymCursor) {
		return false
	}
	switch s.Kind {
	case ir.SymVar, ir.SymLet, ir.SymTemp, ir.SymResult:
		return true
	case ir.SymParam:
		return s.Has(ir.SymSink)
	}
	return false
}

// isLastRead asks the oracle, short-cutting temporaries the pass made
// single-use and values without a destructor.
func (c *pass) isLastRead(n *ir.Node) bool {
	c.otherRead = nil
	if !c.hasDestructor(n.Type) {
		return true
	}
	if m := ir.SkipConv(n); m.Kind == ir.KindSym && m.Sym.Has(ir.SymSingleUsedTemp) {
		return true
	}
	ok := c.oracle.IsLastRead(n)
	if !ok {
		c.otherRead = c.oracle.OtherRead()
	}
	return ok
}

func isSinkParam(n *ir.Node) bool {
	return n.Kind == ir.KindSym && n.Sym.Kind == ir.SymParam && n.Sym.Has(ir.SymSink)
}

func isCursor(n *ir.Node) bool {
	switch n.Kind {
	case ir.KindSym:
		return n.Sym.Has(ir.SymCursor)
	case ir.KindDot:
		return isCursor(n.Kids[1])
	}
	return false
}

func isNoInit(n *ir.Node) bool {
	switch n.Kind {
	case ir.KindSym:
		return n.Sym.Has(ir.SymNoInit)
	case ir.KindDot:
		return n.Kids[1].Sym.Has(ir.SymNoInit)
	}
	return false
}

func isDiscriminantField(n *ir.Node) bool {
	return n.Kind == ir.KindDot && n.Kids[1].Sym.Has(ir.SymDiscriminant)
}

// isUnpackedTuple reports a temporary holding a tuple being destructured;
// its elements are taken over one by one.
func (c *pass) isUnpackedTuple(n *ir.Node) bool {
	return n.Kind == ir.KindSym && n.Sym.Kind == ir.SymTemp && c.kindOf(n.Type) == types.KindTuple
}

func isLValue(n *ir.Node) bool {
	switch n.Kind {
	case ir.KindSym:
		switch n.Sym.Kind {
		case ir.SymVar, ir.SymLet, ir.SymTemp, ir.SymResult, ir.SymParam, ir.SymGlobal:
			return true
		}
	case ir.KindDot, ir.KindIndex, ir.KindConv, ir.KindUpConv, ir.KindDownConv:
		return isLValue(n.Kids[0])
	case ir.KindDeref:
		return true
	}
	return false
}

func isCaptured(n *ir.Node) bool {
	return ir.Root(n).Has(ir.SymCaptured)
}

func isConstructor(n *ir.Node) bool {
	switch n.Kind {
	case ir.KindArrayConstr, ir.KindObjConstr, ir.KindTupleConstr, ir.KindClosure:
		return true
	}
	return false
}

// containsConstSeq finds read-only seq literals, which a sink parameter
// must never receive without a copy.
func (c *pass) containsConstSeq(n *ir.Node) bool {
	if n.Kind == ir.KindArrayConstr && len(n.Kids) > 0 && c.types.IsConstSeq(n.Type) {
		return true
	}
	switch n.Kind {
	case ir.KindFieldInit, ir.KindConv, ir.KindCast:
		return c.containsConstSeq(n.Last())
	case ir.KindObjConstr, ir.KindArrayConstr, ir.KindTupleConstr:
		for _, k := range n.Kids {
			if c.containsConstSeq(k) {
				return true
			}
		}
	case ir.KindClosure:
		return c.containsConstSeq(n.Kids[1])
	}
	return false
}

// isPureLocation reports a location whose evaluation has no effects: a
// symbol reached through fields, derefs and constant or symbol indices.
// The rewriter hands such nodes on unchanged so liveness queries still find
// them.
func isPureLocation(n *ir.Node) bool {
	for {
		switch n.Kind {
		case ir.KindSym:
			return true
		case ir.KindDot, ir.KindDeref, ir.KindConv, ir.KindUpConv, ir.KindDownConv, ir.KindAddr:
			n = n.Kids[0]
		case ir.KindIndex:
			if i := n.Kids[1]; i.Kind != ir.KindSym && i.Kind != ir.KindIntLit {
				return false
			}
			n = n.Kids[0]
		default:
			return false
		}
	}
}
