package cfg

import (
	"dtorpass/internal/ir"
	"dtorpass/internal/types"
)

type block struct {
	label  *ir.Symbol // nil for loops and unlabeled blocks
	fixups []int
}

type builder struct {
	code      []Instr
	blocks    []block
	tryFixups []int
	inTry     int
	tracked   func(*ir.Symbol) bool
	types     *types.Table
}

// Build constructs the graph of r. Only storage owned by r is tracked;
// globals, fields and routines never appear as def or use.
func Build(r *ir.Routine, tt *types.Table) *Graph {
	owner := r.Sym
	return BuildBody(r.Body, tt, func(s *ir.Symbol) bool { return s.IsLocal(owner) })
}

// BuildBody constructs the graph of body with a custom tracking predicate.
func BuildBody(body *ir.Node, tt *types.Table, tracked func(*ir.Symbol) bool) *Graph {
	b := &builder{tracked: tracked, types: tt}
	b.gen(body)
	return &Graph{Code: b.code}
}

// CanRaise reports whether call may leave through an exception.
func CanRaise(tt *types.Table, call *ir.Node) bool {
	if call.Kind != ir.KindCall {
		return false
	}
	callee := call.Kids[0]
	if callee.Kind == ir.KindSym && callee.Sym.Has(ir.SymCanRaise) {
		return true
	}
	if tt == nil {
		return false
	}
	info, ok := tt.ProcInfo(callee.Type)
	return ok && info.Raises
}

func (b *builder) emit(kind InstrKind, n *ir.Node) int {
	b.code = append(b.code, Instr{Kind: kind, N: n})
	return len(b.code) - 1
}

func (b *builder) patch(at int) {
	b.code[at].Dest = len(b.code) - at
}

func (b *builder) exit(n *ir.Node) {
	if b.inTry > 0 {
		b.tryFixups = append(b.tryFixups, b.emit(Goto, n))
		return
	}
	at := b.emit(Goto, n)
	b.code[at].Dest = exitTarget - at
}

func (b *builder) isTracked(n *ir.Node) bool {
	p, ok := pathOf(n)
	return ok && b.tracked(p.root)
}

func (b *builder) gen(n *ir.Node) {
	if n == nil {
		return
	}
	switch n.Kind {
	case ir.KindSym:
		if b.tracked(n.Sym) {
			b.emit(Use, n)
		}
	case ir.KindDot, ir.KindIndex, ir.KindDeref:
		if b.isTracked(n) {
			b.genOperands(n)
			b.emit(Use, n)
			return
		}
		b.gen(n.Kids[0])
		if n.Kind == ir.KindIndex {
			b.gen(n.Kids[1])
		}
	case ir.KindAddr, ir.KindConv, ir.KindUpConv, ir.KindDownConv, ir.KindCast,
		ir.KindDiscard:
		b.gen(n.Kids[0])
	case ir.KindCall:
		b.genCall(n)
	case ir.KindFieldInit, ir.KindClosure:
		b.gen(n.Kids[1])
	case ir.KindObjConstr, ir.KindArrayConstr, ir.KindTupleConstr,
		ir.KindStmtList, ir.KindStmtListExpr:
		for _, k := range n.Kids {
			b.gen(k)
		}
	case ir.KindBlock:
		var label *ir.Symbol
		if n.Kids[0].Kind == ir.KindSym {
			label = n.Kids[0].Sym
		}
		b.withBlock(label, func() { b.gen(n.Kids[1]) })
	case ir.KindIf:
		b.genIf(n)
	case ir.KindCase:
		b.genCase(n)
	case ir.KindWhile:
		b.genWhile(n)
	case ir.KindTry:
		b.genTry(n)
	case ir.KindRaise, ir.KindReturn:
		b.gen(n.Kids[0])
		b.exit(n)
	case ir.KindBreak:
		b.genBreak(n)
	case ir.KindAsgn, ir.KindFastAsgn:
		b.gen(n.Kids[1])
		b.genDef(n.Kids[0])
	case ir.KindVarSection:
		for _, it := range n.Kids {
			if it.Kids[1].Kind == ir.KindEmpty {
				continue
			}
			b.gen(it.Kids[1])
			b.genDef(it.Kids[0])
		}
	}
}

// genOperands evaluates the non-location parts of a path: index expressions.
func (b *builder) genOperands(n *ir.Node) {
	for n != nil {
		switch n.Kind {
		case ir.KindIndex:
			b.gen(n.Kids[1])
		case ir.KindDot, ir.KindDeref, ir.KindConv, ir.KindUpConv, ir.KindDownConv, ir.KindCast, ir.KindAddr:
		default:
			return
		}
		n = n.Kids[0]
	}
}

// genDef records a write. Writes through a deref are reads of the pointer.
func (b *builder) genDef(n *ir.Node) {
	p, ok := pathOf(n)
	switch {
	case !ok || !b.tracked(p.root):
		b.gen(n)
	case p.hasDeref():
		b.genOperands(n)
		b.emit(Use, n)
	default:
		b.genOperands(n)
		b.emit(Def, n)
	}
}

func (b *builder) genCall(n *ir.Node) {
	callee := n.Kids[0]
	if callee.Kind == ir.KindSym && len(n.Kids) == 3 &&
		(callee.Sym.Magic == ir.MagicAnd || callee.Sym.Magic == ir.MagicOr) {
		b.gen(n.Kids[1])
		skip := b.emit(Fork, n)
		b.gen(n.Kids[2])
		b.patch(skip)
		return
	}
	b.gen(callee)
	// passing to a var parameter is a "might def", only the read is recorded
	for _, arg := range n.Kids[1:] {
		b.gen(arg)
	}
	if b.inTry > 0 && CanRaise(b.types, n) {
		normal := b.emit(Fork, n)
		b.tryFixups = append(b.tryFixups, b.emit(Goto, n))
		b.patch(normal)
	}
}

func (b *builder) withBlock(label *ir.Symbol, body func()) {
	b.blocks = append(b.blocks, block{label: label})
	body()
	top := b.blocks[len(b.blocks)-1]
	b.blocks = b.blocks[:len(b.blocks)-1]
	for _, f := range top.fixups {
		b.patch(f)
	}
}

func (b *builder) genBreak(n *ir.Node) {
	at := b.emit(Goto, n)
	target := len(b.blocks) - 1
	if lbl := n.Kids[0]; lbl.Kind == ir.KindSym {
		for target >= 0 && b.blocks[target].label != lbl.Sym {
			target--
		}
	}
	if target < 0 {
		// break without an enclosing block leaves the routine
		b.code[at].Dest = exitTarget - at
		return
	}
	b.blocks[target].fixups = append(b.blocks[target].fixups, at)
}

func (b *builder) genIf(n *ir.Node) {
	var endings []int
	for _, br := range n.Kids {
		if br.Kind == ir.KindElse {
			b.gen(br.Kids[0])
			continue
		}
		b.gen(br.Kids[0])
		next := b.emit(Fork, br)
		b.gen(br.Kids[1])
		endings = append(endings, b.emit(Goto, br))
		b.patch(next)
	}
	for _, e := range endings {
		b.patch(e)
	}
}

func (b *builder) genCase(n *ir.Node) {
	b.gen(n.Kids[0])
	var endings []int
	for _, br := range n.Kids[1:] {
		body := br.Last()
		if br.Kind == ir.KindElse {
			b.gen(body)
			continue
		}
		next := b.emit(Fork, br)
		b.gen(body)
		endings = append(endings, b.emit(Goto, br))
		b.patch(next)
	}
	for _, e := range endings {
		b.patch(e)
	}
}

func isTrue(n *ir.Node) bool {
	return n.Kind == ir.KindBoolLit && n.Int != 0
}

// genWhile unrolls the loop three times: reads in a later iteration of a
// location defined or read in an earlier one become visible without back edges.
func (b *builder) genWhile(n *ir.Node) {
	cond, body := n.Kids[0], n.Kids[1]
	b.withBlock(nil, func() {
		if isTrue(cond) {
			for range 3 {
				b.gen(body)
			}
			return
		}
		var endings [3]int
		for i := range endings {
			b.gen(cond)
			endings[i] = b.emit(Fork, n)
			b.gen(body)
		}
		for i := len(endings) - 1; i >= 0; i-- {
			b.patch(endings[i])
		}
	})
}

func (b *builder) genTry(n *ir.Node) {
	oldFixups := len(b.tryFixups)
	b.inTry++
	b.gen(n.Kids[0])
	b.inTry--
	for _, f := range b.tryFixups[oldFixups:] {
		b.patch(f)
	}
	b.tryFixups = b.tryFixups[:oldFixups]

	var endings []int
	var fin *ir.Node
	for _, h := range n.Kids[1:] {
		if h.Kind == ir.KindFinally {
			fin = h
			continue
		}
		skip := b.emit(Fork, h)
		b.gen(h.Kids[0])
		endings = append(endings, b.emit(Goto, h))
		b.patch(skip)
	}
	for i := len(endings) - 1; i >= 0; i-- {
		b.patch(endings[i])
	}
	if fin != nil {
		b.gen(fin.Kids[0])
	}
}
