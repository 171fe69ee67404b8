package destructors

import (
	"dtorpass/internal/cfg"
	"dtorpass/internal/ir"
)

type moveFlags uint8

const (
	// isDecl: dest is being declared and holds no value yet.
	isDecl moveFlags = 1 << iota
)

// moveOrCopy stores ri into dest, moving when ri is a temporary or a last
// read of a movable location and copying otherwise.
func (c *pass) moveOrCopy(dest, ri *ir.Node, s scopeID, flags moveFlags) *ir.Node {
	c.otherRead = nil
	if ir.SameLocation(dest, ri) {
		c.point("self", ri)
		return ir.NewEmpty(ri.Span)
	}
	switch ri.Kind {
	case ir.KindCall:
		return c.genSink(dest, c.p(ri, s, consumed), flags)

	case ir.KindArrayConstr:
		if len(ri.Kids) > 0 && c.types.IsConstSeq(ri.Type) {
			return c.genCopy(dest, c.p(ri, s, consumed), ri)
		}
		return c.genSink(dest, c.p(ri, s, consumed), flags)

	case ir.KindObjConstr, ir.KindTupleConstr, ir.KindClosure,
		ir.KindIntLit, ir.KindStrLit, ir.KindBoolLit, ir.KindNilLit:
		return c.genSink(dest, c.p(ri, s, consumed), flags)

	case ir.KindSym:
		if isSinkParam(ri) && c.isLastRead(ri) {
			return c.sinkAndDisarm(dest, ri, flags)
		}
		if ri.Sym.Kind != ir.SymParam && ri.Sym.IsLocal(c.owner) && !isCursor(ri) &&
			c.isLastRead(ri) && c.env.Ops.CanMove(dest.Type) {
			return c.sinkAndDisarm(dest, ri, flags)
		}
		return c.genCopy(dest, c.p(ri, s, consumed), ri)

	case ir.KindIndex, ir.KindDot:
		if ri.Kind == ir.KindIndex && c.isUnpackedTuple(ri.Kids[0]) {
			// the elements are taken one by one, the tuple itself is never destroyed
			c.addWasMoved(c.declScope(ri.Kids[0].Sym, s), ri.Kids[0])
			return c.genSink(dest, c.p(ri, s, consumed), flags)
		}
		if c.isAnalysable(ri) && !isCursor(ri) && c.isLastRead(ri) &&
			cfg.Aliases(dest, ri) == cfg.No && c.env.Ops.CanMove(dest.Type) {
			return c.sinkAndDisarm(dest, ri, flags)
		}
		return c.genCopy(dest, c.p(ri, s, consumed), ri)

	case ir.KindConv, ir.KindUpConv, ir.KindDownConv, ir.KindCast:
		return c.genSink(dest, c.p(ri, s, sinkArg), flags)

	case ir.KindStmtListExpr, ir.KindBlock, ir.KindIf, ir.KindCase, ir.KindTry:
		// every yield point decides on its own
		return c.handleNested(ri, s, func(child *ir.Node, cs scopeID) *ir.Node {
			return c.moveOrCopy(dest, child, cs, flags)
		}, true)

	case ir.KindRaise:
		return c.pRaise(ri, s)
	}
	if c.isAnalysable(ri) && c.isLastRead(ri) && c.env.Ops.CanMove(dest.Type) {
		return c.sinkAndDisarm(dest, ri, flags)
	}
	return c.genCopy(dest, c.p(ri, s, consumed), ri)
}
