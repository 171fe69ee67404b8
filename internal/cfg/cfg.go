// Package cfg lowers a routine body into the linear control-flow graph the
// liveness oracle walks.
//
// The graph has four instructions: def and use of a location, an
// unconditional goto and a two-way fork. Jumps are relative and always
// point forward; loops are unrolled three times instead of jumping back,
// which is enough for "is there another read" questions. return and raise
// outside of a try jump past the end of the graph.
package cfg

import (
	"fmt"
	"io"
	"math"
	"strings"

	"dtorpass/internal/ir"
)

// InstrKind is the opcode of an instruction.
type InstrKind uint8

const (
	Goto InstrKind = iota
	Fork
	Def
	Use
)

func (k InstrKind) String() string {
	switch k {
	case Goto:
		return "goto"
	case Fork:
		return "fork"
	case Def:
		return "def"
	case Use:
		return "use"
	default:
		return "?"
	}
}

// Instr is one graph instruction. N is the location for def/use and the
// originating node for jumps. Dest is relative to the instruction.
type Instr struct {
	Kind InstrKind
	N    *ir.Node
	Dest int
}

// exitTarget is where return and raise land: beyond any graph.
const exitTarget = math.MaxInt32

// Graph is the instruction list of one routine.
type Graph struct {
	Code []Instr
}

// Len returns the number of instructions.
func (g *Graph) Len() int {
	return len(g.Code)
}

// Find returns the first instruction whose node is n, or -1.
func (g *Graph) Find(n *ir.Node) int {
	for i := range g.Code {
		if g.Code[i].N == n && (g.Code[i].Kind == Use || g.Code[i].Kind == Def) {
			return i
		}
	}
	return -1
}

// FindLast returns the last instruction whose node is n, or -1.
func (g *Graph) FindLast(n *ir.Node) int {
	for i := len(g.Code) - 1; i >= 0; i-- {
		if g.Code[i].N == n && (g.Code[i].Kind == Use || g.Code[i].Kind == Def) {
			return i
		}
	}
	return -1
}

// Dump writes one instruction per line; jump targets are absolute.
func (g *Graph) Dump(w io.Writer, p ir.Printer) error {
	var sb strings.Builder
	for pc, in := range g.Code {
		switch in.Kind {
		case Goto, Fork:
			target := pc + in.Dest
			if target >= exitTarget {
				fmt.Fprintf(&sb, "%3d: %s exit\n", pc, in.Kind)
			} else {
				fmt.Fprintf(&sb, "%3d: %s L%d\n", pc, in.Kind, target)
			}
		default:
			fmt.Fprintf(&sb, "%3d: %s %s\n", pc, in.Kind, p.Expr(in.N))
		}
	}
	_, err := io.WriteString(w, sb.String())
	return err
}

// String renders the graph without type information.
func (g *Graph) String() string {
	var sb strings.Builder
	_ = g.Dump(&sb, ir.Printer{})
	return sb.String()
}
