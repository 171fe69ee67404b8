package destructors

import (
	"fmt"

	"dtorpass/internal/diag"
	"dtorpass/internal/ir"
	"dtorpass/internal/ops"
	"dtorpass/internal/types"
)

// genDiscriminantAsgn switches the active branch of an object variant:
//
//	:tmpD := new tag
//	if not (x.kind == :tmpD): =destroyBranch(x)
//	x.kind := :tmpD
//
// The temporary keeps "x.kind = x.kind" and reads of x in the new value
// correct. Objects with a user destructor cannot have just their old
// branch destroyed; that is an error and the tag is stored unguarded.
func (c *pass) genDiscriminantAsgn(n *ir.Node, s scopeID) *ir.Node {
	dest, src := n.Kids[0], n.Kids[1]
	tmp := c.newTemp(s, src.Type, n.Span)
	out := stmts(n.Span, c.fastAsgn(tmp, c.p(src, s, consumed)))

	le := c.p(dest, s, normal)
	obj := le.Kids[0]
	if c.hasDestructor(obj.Type) {
		if c.env.Ops.IsUserDefined(obj.Type, ops.Destroy) {
			c.errorAt(diag.DtorDiscriminantDestructor, n.Span, fmt.Sprintf(
				"assignment to discriminant '%s' for objects with a user defined destructor is not supported, "+
					"the object must have the default destructor; factor the part that needs the custom "+
					"destructor out into a separate object; routine: %s",
				c.printer.Expr(dest), c.routine.Name()))
			return out.Add(c.fastAsgn(le, tmp.CopyTree()))
		}
		op, err := c.env.Ops.BranchDestroy(obj.Type)
		if err != nil {
			c.reportOp(err, obj.Type, ops.Destroy, n, nil)
		} else {
			boolT := c.types.Builtins().Bool
			changed := c.magic(ir.MagicNot, boolT, n.Span,
				c.magic(ir.MagicEq, boolT, n.Span, le.CopyTree(), tmp.CopyTree()))
			destroy := c.call(op, types.NoTypeID, n.Span, obj.CopyTree())
			elif := ir.NewTree(ir.KindElifBranch, types.NoTypeID, changed, destroy)
			out.Add(ir.NewTree(ir.KindIf, types.NoTypeID, elif))
		}
	}
	return out.Add(c.fastAsgn(le, tmp.CopyTree()))
}
