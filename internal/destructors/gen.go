package destructors

import (
	"errors"
	"fmt"
	"strconv"

	"dtorpass/internal/diag"
	"dtorpass/internal/ir"
	"dtorpass/internal/ops"
	"dtorpass/internal/source"
	"dtorpass/internal/types"
)

func (c *pass) sym(s *ir.Symbol, span source.Span) *ir.Node {
	return ir.NewSym(s, span)
}

// tempName numbers temporaries per base name: :tmpD, :tmpD_1, ...
func (c *pass) tempName(base string) string {
	c.temps++
	k := c.names[base]
	c.names[base]++
	if k == 0 {
		return base
	}
	return base + "_" + strconv.Itoa(k)
}

// newTemp declares a fresh temporary in scope s.
func (c *pass) newTemp(s scopeID, typ types.TypeID, span source.Span) *ir.Node {
	tmp := c.env.IDs.NewSymbol(ir.SymTemp, c.tempName(":tmpD"), c.owner, typ, span)
	sc := c.scope(s)
	sc.vars = append(sc.vars, tmp)
	return c.sym(tmp, span)
}

func (c *pass) hasDestructor(typ types.TypeID) bool {
	if c.types.IsEmpty(typ) {
		return false
	}
	return c.env.Ops.HasDestructor(typ)
}

func (c *pass) isVoid(typ types.TypeID) bool {
	return c.types.IsEmpty(typ)
}

func (c *pass) kindOf(typ types.TypeID) types.Kind {
	return c.types.KindOf(c.types.SkipAbstract(typ))
}

func stmts(span source.Span, kids ...*ir.Node) *ir.Node {
	n := ir.NewNode(ir.KindStmtList, span, types.NoTypeID)
	return n.Add(kids...)
}

func (c *pass) fastAsgn(dest, src *ir.Node) *ir.Node {
	return ir.NewTree(ir.KindFastAsgn, types.NoTypeID, dest, src)
}

func (c *pass) call(fn *ir.Symbol, typ types.TypeID, span source.Span, args ...*ir.Node) *ir.Node {
	n := ir.NewNode(ir.KindCall, span, typ)
	n.Add(c.sym(fn, span))
	return n.Add(args...)
}

func (c *pass) magic(m ir.Magic, typ types.TypeID, span source.Span, args ...*ir.Node) *ir.Node {
	return c.call(c.env.Ops.Magic(m), typ, span, args...)
}

func (c *pass) genWasMoved(n *ir.Node) *ir.Node {
	return c.magic(ir.MagicWasMoved, types.NoTypeID, n.Span, ir.SkipConv(n).CopyTree())
}

func (c *pass) genDefault(typ types.TypeID, span source.Span) *ir.Node {
	return c.magic(ir.MagicDefault, typ, span)
}

// resolve looks up kind for typ and reports failures. The message follows
// the form "'=copy' is not available for type <T>; ...; routine: f".
func (c *pass) resolve(typ types.TypeID, kind ops.Kind, at *ir.Node) *ir.Symbol {
	op, err := c.env.Ops.Resolve(typ, kind)
	if err == nil {
		return op
	}
	if errors.Is(err, ops.ErrTrivial) {
		return nil
	}
	c.reportOp(err, typ, kind, at, nil)
	return nil
}

func (c *pass) reportOp(err error, typ types.TypeID, kind ops.Kind, at, src *ir.Node) {
	code := diag.DtorOpMissing
	msg := fmt.Sprintf("'%s' operator not found for type <%s>", kind, c.types.String(typ))
	switch {
	case errors.Is(err, ops.ErrUnavailable):
		code = diag.DtorOpUnavailable
		msg = fmt.Sprintf("'%s' is not available for type <%s>", kind, c.types.String(typ))
	case errors.Is(err, ops.ErrGeneric):
		code = diag.DtorOpGeneric
		msg = fmt.Sprintf("'%s' operator is generic for type <%s>", kind, c.types.String(typ))
	}
	var notes []diag.Note
	if kind == ops.Copy && src != nil {
		msg += fmt.Sprintf("; requires a copy because it's not the last read of '%s'", c.printer.Expr(src))
		switch {
		case c.otherRead != nil:
			notes = append(notes, diag.Note{Span: c.otherRead.Span, Msg: "another read is done here"})
		case src.Kind == ir.KindSym && src.Sym.Kind == ir.SymParam && !src.Sym.Has(ir.SymSink):
			notes = append(notes, diag.Note{
				Span: src.Sym.Span,
				Msg:  fmt.Sprintf("try to make %s a 'sink' parameter", src.Sym.Name),
			})
		}
	}
	msg += "; routine: " + c.routine.Name()
	c.errorAt(code, at.Span, msg, notes...)
}

// genOp calls the kind operator of dest's type on dest and args.
func (c *pass) genOp(kind ops.Kind, dest *ir.Node, args ...*ir.Node) *ir.Node {
	op := c.resolve(dest.Type, kind, dest)
	if op == nil {
		return nil
	}
	return c.call(op, types.NoTypeID, dest.Span, append([]*ir.Node{dest.CopyTree()}, args...)...)
}

func (c *pass) genDestroy(dest *ir.Node) *ir.Node {
	if n := c.genOp(ops.Destroy, dest); n != nil {
		return n
	}
	return ir.NewEmpty(dest.Span)
}

// genSink moves ri into dest. A bitwise relocation suffices when dest holds
// no live value yet; otherwise the old value is destroyed first, or the
// user's sink operator does both.
func (c *pass) genSink(dest, ri *ir.Node, flags moveFlags) *ir.Node {
	fresh := flags&isDecl != 0 || c.isUnpackedTuple(dest) ||
		(c.isAnalysable(dest) && c.oracle.IsFirstWrite(dest))
	if (c.inLoopCond == 0 && fresh) || isNoInit(dest) {
		c.point("fastAsgn", dest)
		return c.fastAsgn(dest, ri)
	}
	if c.env.Ops.IsUserDefined(dest.Type, ops.Sink) {
		if n := c.genOp(ops.Sink, dest, ri); n != nil {
			c.point("sink", dest)
			return n
		}
	}
	c.point("destroy+fastAsgn", dest)
	return stmts(dest.Span, c.genDestroy(dest), c.fastAsgn(dest, ri))
}

// genCopy copies the already processed src into dest. ri is the source as
// written, used to explain why no move was possible.
func (c *pass) genCopy(dest, src, ri *ir.Node) *ir.Node {
	c.point("copy", ri)
	op, err := c.env.Ops.Resolve(dest.Type, ops.Copy)
	if err != nil {
		if !errors.Is(err, ops.ErrTrivial) {
			c.reportOp(err, dest.Type, ops.Copy, ri, ri)
		}
		return ir.NewTree(ir.KindAsgn, types.NoTypeID, dest, src)
	}
	return c.call(op, types.NoTypeID, dest.Span, dest.CopyTree(), src)
}

// sinkAndDisarm moves ri into dest and resets ri so its own destroy is a no-op.
func (c *pass) sinkAndDisarm(dest, ri *ir.Node, flags moveFlags) *ir.Node {
	return stmts(ri.Span, c.genSink(dest, ri, flags), c.genWasMoved(ri))
}

// ensureDestruction binds a produced value to a temporary of s that is
// destroyed when s closes.
func (c *pass) ensureDestruction(arg *ir.Node, s scopeID) *ir.Node {
	if c.isVoid(arg.Type) || !c.hasDestructor(arg.Type) {
		return arg
	}
	tmp := c.newTemp(s, arg.Type, arg.Span)
	out := ir.NewNode(ir.KindStmtListExpr, arg.Span, arg.Type)
	out.Add(c.genSink(tmp, arg, isDecl), tmp)
	c.addFinal(s, c.genDestroy(tmp))
	return out
}

// passCopyToSink hands a sink parameter a copy it may own:
// (wasMoved(tmp); =copy(tmp, n); tmp).
func (c *pass) passCopyToSink(n *ir.Node, s scopeID) *ir.Node {
	out := ir.NewNode(ir.KindStmtListExpr, n.Span, n.Type)
	tmp := c.newTemp(s, n.Type, n.Span)
	if c.hasDestructor(n.Type) {
		out.Add(c.genWasMoved(tmp))
		out.Add(c.genCopy(tmp, c.p(n, s, normal), n))
		if c.env.Options.PerfHints && isLValue(n) && !isCaptured(n) && c.kindOf(n.Type) != types.KindRef {
			c.hint(diag.DtorImplicitCopy, n.Span, fmt.Sprintf(
				"passing '%s' to a sink parameter introduces an implicit copy; "+
					"if possible, rearrange your program's control flow to prevent it", c.printer.Expr(n)))
		}
	} else {
		out.Add(ir.NewTree(ir.KindAsgn, types.NoTypeID, tmp, c.p(n, s, normal)))
	}
	// the receiver owns tmp now, it is not destroyed here
	return out.Add(tmp.CopyTree())
}

// destructiveMoveVar moves out of n: (var blitTmp = n; wasMoved(n); blitTmp).
func (c *pass) destructiveMoveVar(n *ir.Node) *ir.Node {
	if !c.hasDestructor(n.Type) {
		return n
	}
	c.point("move", n)
	blit := c.env.IDs.NewSymbol(ir.SymLet, c.tempName("blitTmp"), c.owner, n.Type, n.Span)
	out := ir.NewNode(ir.KindStmtListExpr, n.Span, n.Type)
	def := ir.NewTree(ir.KindIdentDefs, types.NoTypeID, c.sym(blit, n.Span), n)
	out.Add(ir.NewTree(ir.KindVarSection, types.NoTypeID, def))
	out.Add(c.genWasMoved(n))
	return out.Add(c.sym(blit, n.Span))
}
