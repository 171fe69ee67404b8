package cfg

import "dtorpass/internal/ir"

// AliasKind answers "is field stored inside obj".
type AliasKind uint8

const (
	No AliasKind = iota
	Yes
	Maybe
)

func (k AliasKind) String() string {
	switch k {
	case No:
		return "no"
	case Yes:
		return "yes"
	default:
		return "maybe"
	}
}

type stepKind uint8

const (
	stepField stepKind = iota
	stepIndex
	stepAnyIndex
	stepDeref
)

type step struct {
	kind  stepKind
	field *ir.Symbol
	index int64
}

// path is a location as root symbol plus access steps, outermost first.
type path struct {
	root  *ir.Symbol
	steps []step
}

// pathOf decomposes a location expression; ok is false for anything that
// is not rooted at a symbol (calls, constructors, literals).
func pathOf(n *ir.Node) (path, bool) {
	var rev []step
	for n != nil {
		switch n.Kind {
		case ir.KindSym:
			steps := make([]step, len(rev))
			for i, s := range rev {
				steps[len(rev)-1-i] = s
			}
			return path{root: n.Sym, steps: steps}, true
		case ir.KindDot:
			rev = append(rev, step{kind: stepField, field: n.Kids[1].Sym})
		case ir.KindIndex:
			if idx := n.Kids[1]; idx.Kind == ir.KindIntLit {
				rev = append(rev, step{kind: stepIndex, index: idx.Int})
			} else {
				rev = append(rev, step{kind: stepAnyIndex})
			}
		case ir.KindDeref:
			rev = append(rev, step{kind: stepDeref})
		case ir.KindConv, ir.KindUpConv, ir.KindDownConv, ir.KindCast, ir.KindAddr:
		default:
			return path{}, false
		}
		n = n.Kids[0]
	}
	return path{}, false
}

func (p path) hasDeref() bool {
	for _, s := range p.steps {
		if s.kind == stepDeref {
			return true
		}
	}
	return false
}

// Aliases reports whether the storage of field lies within obj: Yes when
// obj is a definite prefix of field, Maybe when they may overlap, No when
// they are disjoint or not comparable locations.
func Aliases(obj, field *ir.Node) AliasKind {
	po, ok := pathOf(obj)
	if !ok {
		return No
	}
	pf, ok := pathOf(field)
	if !ok || po.root != pf.root {
		return No
	}
	result := Yes
	n := min(len(po.steps), len(pf.steps))
	for i := range n {
		a, b := po.steps[i], pf.steps[i]
		switch {
		case a.kind == stepField && b.kind == stepField:
			if a.field != b.field {
				return No
			}
		case a.kind == stepIndex && b.kind == stepIndex:
			if a.index != b.index {
				return No
			}
		case a.kind == stepDeref && b.kind == stepDeref:
		case (a.kind == stepIndex || a.kind == stepAnyIndex) && (b.kind == stepIndex || b.kind == stepAnyIndex):
			result = Maybe
		default:
			return Maybe
		}
	}
	if len(po.steps) > len(pf.steps) {
		// field is the enclosing location
		return Maybe
	}
	return result
}

// Overlaps reports whether a and b may share storage in either direction.
func Overlaps(a, b *ir.Node) bool {
	return Aliases(a, b) != No || Aliases(b, a) != No
}
