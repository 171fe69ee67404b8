package destructors

import (
	"fmt"

	"dtorpass/internal/diag"
	"dtorpass/internal/ir"
	"dtorpass/internal/types"
)

// cycleCheck warns about "x.f = x" on cyclic ref types: the object ends up
// owning itself and is never freed. Cursor fields do not own.
func (c *pass) cycleCheck(n *ir.Node) {
	if !c.env.Options.CycleWarnings {
		return
	}
	value := n.Kids[1]
	if value.Kind == ir.KindClosure {
		value = value.Kids[1]
	}
	if value.Kind == ir.KindNilLit {
		return
	}
	switch c.kindOf(n.Kids[0].Type) {
	case types.KindRef, types.KindClosure:
	default:
		return
	}
	if !c.types.Cyclic(n.Kids[0].Type) {
		return
	}
	x := n.Kids[0]
	var field *ir.Node
	for {
		switch x.Kind {
		case ir.KindDot:
			field = x.Kids[1]
			if field.Sym.Has(ir.SymCursor) {
				return
			}
			x = x.Kids[0]
		case ir.KindIndex, ir.KindDeref:
			x = x.Kids[0]
		default:
			return
		}
		if ir.StructurallyEqual(x, value) {
			msg := fmt.Sprintf("'%s' creates an uncollectable ref cycle", c.printer.Expr(n))
			if field != nil {
				msg += fmt.Sprintf("; annotate '%s' with .cursor", field.Sym.Name)
			}
			c.warn(diag.DtorCycleCreated, n.Span, msg)
			return
		}
	}
}
