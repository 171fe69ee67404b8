// Package liveness answers the location questions the destructor pass asks
// about one routine: is this read the last one, is this write the first one,
// and which variables may be read before they are initialized.
//
// All queries walk the forward-only graph built by package cfg. A fork is
// answered by scanning both successors until they meet again; the query
// fails as soon as one of them fails.
package liveness

import (
	"maps"
	"math"

	"dtorpass/internal/cfg"
	"dtorpass/internal/ir"
)

// Oracle holds the graph of one routine and the per-routine caches.
// It is not safe for concurrent use; every pass instance owns its own.
type Oracle struct {
	g         *cfg.Graph
	otherRead *ir.Node
	uninit    map[*ir.Symbol]bool
}

// New wraps g.
func New(g *cfg.Graph) *Oracle {
	return &Oracle{g: g}
}

// OtherRead returns the competing read found by the last failed IsLastRead.
func (o *Oracle) OtherRead() *ir.Node {
	return o.otherRead
}

// IsLastRead reports whether the read n is followed, on every path, by
// neither another read nor a partial write of its location before the
// location is redefined or the routine ends. Locations the graph does not
// track are never last reads.
func (o *Oracle) IsLastRead(n *ir.Node) bool {
	m := ir.SkipConv(n)
	pc := o.g.Find(m)
	if pc < 0 {
		return false
	}
	o.otherRead = nil
	if pc+1 >= o.g.Len() {
		return true
	}
	return o.lastRead(m, pc+1, math.MaxInt) >= 0
}

// lastRead scans from pc up to until. It returns -1 on a competing access,
// otherwise the position where the scan stopped.
func (o *Oracle) lastRead(loc *ir.Node, pc, until int) int {
	code := o.g.Code
	for pc < len(code) && pc < until {
		in := code[pc]
		switch in.Kind {
		case cfg.Def:
			if cfg.Aliases(in.N, loc) == cfg.Yes {
				// redefined: this path never reads the old value
				return len(code)
			}
			if cfg.Overlaps(in.N, loc) {
				o.otherRead = in.N
				return -1
			}
			pc++
		case cfg.Use:
			if cfg.Overlaps(in.N, loc) {
				o.otherRead = in.N
				return -1
			}
			pc++
		case cfg.Goto:
			pc += in.Dest
		case cfg.Fork:
			a, b := pc+1, pc+in.Dest
			for a != b {
				if min(a, b) < 0 {
					return -1
				}
				if max(a, b) >= len(code) || min(a, b) >= until {
					break
				}
				if a < b {
					a = o.lastRead(loc, a, min(b, until))
				} else {
					b = o.lastRead(loc, b, min(a, until))
				}
			}
			pc = min(a, b)
			if pc < 0 {
				return -1
			}
		}
	}
	return pc
}

// IsFirstWrite reports whether no path from the routine entry touches the
// location of n before the write n.
func (o *Oracle) IsFirstWrite(n *ir.Node) bool {
	m := ir.SkipConv(n)
	pc := o.g.FindLast(m)
	if pc < 0 {
		return false
	}
	if pc == 0 {
		return true
	}
	return o.firstWrite(m, 0, pc) >= 0
}

func (o *Oracle) firstWrite(loc *ir.Node, pc, until int) int {
	code := o.g.Code
	for pc < until {
		in := code[pc]
		switch in.Kind {
		case cfg.Def, cfg.Use:
			if cfg.Overlaps(in.N, loc) {
				return -1
			}
			pc++
		case cfg.Goto:
			pc += in.Dest
		case cfg.Fork:
			a, b := pc+1, pc+in.Dest
			for a != b {
				if min(a, b) < 0 {
					return -1
				}
				if max(a, b) > until {
					break
				}
				if a < b {
					a = o.firstWrite(loc, a, min(b, until))
				} else {
					b = o.firstWrite(loc, b, min(a, until))
				}
			}
			pc = min(a, b)
			if pc < 0 {
				return -1
			}
		}
	}
	return pc
}

// Uninit returns the variables some path reads before a full definition.
// Parameters are initialized by the caller and never reported. The set is
// computed on first use and cached for the routine.
func (o *Oracle) Uninit() map[*ir.Symbol]bool {
	if o.uninit == nil {
		o.uninit = make(map[*ir.Symbol]bool)
		o.initialized(0, make(map[*ir.Symbol]bool), o.g.Len())
	}
	return o.uninit
}

// MaybeUninit reports whether s may be read before it is initialized.
func (o *Oracle) MaybeUninit(s *ir.Symbol) bool {
	return o.Uninit()[s]
}

// initialized tracks definitely-initialized variables in init; a variable
// is initialized after a join only if both branches initialized it.
func (o *Oracle) initialized(pc int, init map[*ir.Symbol]bool, until int) int {
	code := o.g.Code
	for pc < len(code) && pc < until {
		in := code[pc]
		switch in.Kind {
		case cfg.Goto:
			pc += in.Dest
		case cfg.Fork:
			initA, initB := maps.Clone(init), maps.Clone(init)
			a, b := pc+1, pc+in.Dest
			for a != b {
				if max(a, b) > until {
					break
				}
				if a < b {
					a = o.initialized(a, initA, min(b, until))
				} else {
					b = o.initialized(b, initB, min(a, until))
				}
			}
			pc = min(a, b)
			for v := range initA {
				if initB[v] {
					init[v] = true
				}
			}
		case cfg.Use:
			if root := ir.Root(in.N); root != nil && root.Kind != ir.SymParam && !init[root] {
				o.uninit[root] = true
			}
			pc++
		case cfg.Def:
			if in.N.Kind == ir.KindSym {
				init[in.N.Sym] = true
			}
			pc++
		}
	}
	return pc
}
