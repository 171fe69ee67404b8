package testkit

import (
	"errors"
	"fmt"

	"dtorpass/internal/ir"
)

// CheckRewriteInvariants runs the structural checks on a rewritten body:
//  1. the tree passes ir.Validate
//  2. every temporary referenced by the body is declared
//  3. no symbol is declared twice
func CheckRewriteInvariants(out *ir.Node) error {
	var errs []error
	if err := ir.Validate(out); err != nil {
		errs = append(errs, err)
	}
	declared := make(map[*ir.Symbol]int)
	used := make(map[*ir.Symbol]bool)
	Walk(out, func(n *ir.Node) {
		switch n.Kind {
		case ir.KindIdentDefs:
			declared[n.Kids[0].Sym]++
		case ir.KindSym:
			used[n.Sym] = true
		}
	})
	for s := range used {
		if s.Kind != ir.SymTemp && s.Kind != ir.SymLet {
			continue
		}
		if declared[s] == 0 {
			errs = append(errs, fmt.Errorf("temporary %s used but never declared", s.Name))
		}
	}
	for s, n := range declared {
		if n > 1 {
			errs = append(errs, fmt.Errorf("%s declared %d times", s.Name, n))
		}
	}
	return errors.Join(errs...)
}

// Walk visits n and its descendants in pre-order.
func Walk(n *ir.Node, visit func(*ir.Node)) {
	if n == nil {
		return
	}
	visit(n)
	for _, k := range n.Kids {
		Walk(k, visit)
	}
}

// Calls returns every call of a routine named name.
func Calls(n *ir.Node, name string) []*ir.Node {
	var out []*ir.Node
	Walk(n, func(c *ir.Node) {
		if c.Kind == ir.KindCall && c.Kids[0].Kind == ir.KindSym && c.Kids[0].Sym.Name == name {
			out = append(out, c)
		}
	})
	return out
}

// CountCalls counts calls of name whose first argument refers to target.
func CountCalls(n *ir.Node, name string, target *ir.Symbol) int {
	count := 0
	for _, c := range Calls(n, name) {
		if len(c.Kids) > 1 && ir.Root(c.Kids[1]) == target {
			count++
		}
	}
	return count
}
