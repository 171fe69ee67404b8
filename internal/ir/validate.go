package ir

import (
	"errors"
	"fmt"
)

// Validate checks the structural invariants of a tree: the kid layout of
// every kind and the placement of branch kinds. It returns all violations.
func Validate(n *Node) error {
	var errs []error
	validateNode(n, &errs)
	return errors.Join(errs...)
}

func validateNode(n *Node, errs *[]error) {
	if n == nil {
		*errs = append(*errs, errors.New("nil node"))
		return
	}
	bad := func(format string, args ...any) {
		*errs = append(*errs, fmt.Errorf("%s at %s: %s", n.Kind, n.Span, fmt.Sprintf(format, args...)))
	}
	for i, k := range n.Kids {
		if k == nil {
			bad("kid %d is nil", i)
			return
		}
	}
	want := func(count int) bool {
		if len(n.Kids) != count {
			bad("expected %d kids, got %d", count, len(n.Kids))
			return false
		}
		return true
	}

	switch n.Kind {
	case KindEmpty, KindIntLit, KindStrLit, KindBoolLit, KindNilLit:
		want(0)
	case KindSym:
		if n.Sym == nil {
			bad("missing symbol")
		}
	case KindCall:
		if len(n.Kids) == 0 {
			bad("call without callee")
		}
	case KindDot:
		if want(2) && (n.Kids[1].Kind != KindSym || n.Kids[1].Sym == nil || n.Kids[1].Sym.Kind != SymField) {
			bad("field position must be a field symbol")
		}
	case KindIndex, KindClosure, KindWhile, KindAsgn, KindFastAsgn, KindBlock:
		want(2)
	case KindDeref, KindAddr, KindConv, KindUpConv, KindDownConv, KindCast,
		KindRaise, KindReturn, KindBreak, KindDiscard, KindElse, KindExcept, KindFinally:
		want(1)
	case KindFieldInit, KindIdentDefs:
		if want(2) && n.Kids[0].Kind != KindSym {
			bad("first kid must be a symbol")
		}
	case KindElifBranch:
		want(2)
	case KindOfBranch:
		if len(n.Kids) < 2 {
			bad("of-branch needs labels and a body")
		}
	case KindIf:
		for i, br := range n.Kids {
			if br.Kind != KindElifBranch && br.Kind != KindElse {
				bad("unexpected %s branch", br.Kind)
			}
			if br.Kind == KindElse && i != len(n.Kids)-1 {
				bad("else must be the last branch")
			}
		}
	case KindCase:
		if len(n.Kids) == 0 {
			bad("case without selector")
			break
		}
		for i, br := range n.Kids[1:] {
			if br.Kind != KindOfBranch && br.Kind != KindElse {
				bad("unexpected %s branch", br.Kind)
			}
			if br.Kind == KindElse && i != len(n.Kids)-2 {
				bad("else must be the last branch")
			}
		}
	case KindTry:
		if len(n.Kids) < 2 {
			bad("try needs at least one handler")
		}
		for i, br := range n.Kids[1:] {
			if br.Kind != KindExcept && br.Kind != KindFinally {
				bad("unexpected %s handler", br.Kind)
			}
			if br.Kind == KindFinally && i != len(n.Kids)-2 {
				bad("finally must be the last handler")
			}
		}
	case KindVarSection:
		for _, it := range n.Kids {
			if it.Kind != KindIdentDefs {
				bad("unexpected %s in var section", it.Kind)
			}
		}
	case KindObjConstr:
		for _, it := range n.Kids {
			if it.Kind != KindFieldInit {
				bad("unexpected %s in object constructor", it.Kind)
			}
		}
	case KindStmtListExpr:
		if len(n.Kids) == 0 {
			bad("expression list without value")
		}
	case KindStmtList, KindArrayConstr, KindTupleConstr:
	default:
		bad("unknown kind")
	}
	for _, k := range n.Kids {
		validateNode(k, errs)
	}
}
