package ir

// SkipConv strips value conversions that keep the location intact.
func SkipConv(n *Node) *Node {
	for n != nil {
		switch n.Kind {
		case KindConv, KindUpConv, KindDownConv:
			n = n.Kids[0]
		default:
			return n
		}
	}
	return n
}

// Root returns the symbol a location expression is rooted at, or nil.
func Root(n *Node) *Symbol {
	for n != nil {
		switch n.Kind {
		case KindSym:
			return n.Sym
		case KindDot, KindIndex, KindDeref, KindAddr, KindConv, KindUpConv, KindDownConv, KindCast:
			n = n.Kids[0]
		default:
			return nil
		}
	}
	return nil
}

// SameLocation reports whether a and b denote the identical storage.
func SameLocation(a, b *Node) bool {
	if isEndPoint(a) && isEndPoint(b) {
		if a.Kind != b.Kind {
			return false
		}
		switch a.Kind {
		case KindSym:
			return a.Sym == b.Sym
		case KindDot:
			return SameLocation(a.Kids[0], b.Kids[0]) && a.Kids[1].Sym == b.Kids[1].Sym
		case KindIndex:
			return SameLocation(a.Kids[0], b.Kids[0]) && sameConstant(a.Kids[1], b.Kids[1])
		}
		return false
	}
	switch a.Kind {
	case KindSym, KindDot, KindIndex:
		// reached an endpoint, flip to recurse the other side
		return SameLocation(b, a)
	case KindAddr, KindDeref, KindUpConv, KindDownConv, KindConv:
		return SameLocation(a.Kids[0], b)
	}
	return false
}

func isEndPoint(n *Node) bool {
	switch n.Kind {
	case KindSym, KindDot, KindIndex:
		return true
	}
	return false
}

func sameConstant(a, b *Node) bool {
	return a.Kind == KindIntLit && b.Kind == KindIntLit && a.Int == b.Int
}

// StructurallyEqual compares two expressions by shape, symbol identity and literal value.
func StructurallyEqual(a, b *Node) bool {
	if a == b {
		return true
	}
	if a == nil || b == nil || a.Kind != b.Kind {
		return false
	}
	switch a.Kind {
	case KindSym:
		return a.Sym == b.Sym
	case KindIntLit, KindBoolLit:
		return a.Int == b.Int
	case KindStrLit:
		return a.Str == b.Str
	case KindNilLit, KindEmpty:
		return true
	}
	if len(a.Kids) != len(b.Kids) {
		return false
	}
	for i := range a.Kids {
		if !StructurallyEqual(a.Kids[i], b.Kids[i]) {
			return false
		}
	}
	return true
}
