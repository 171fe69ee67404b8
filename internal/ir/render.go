package ir

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"dtorpass/internal/types"
)

// Printer renders trees as indented pseudo-source.
// Types is optional; without it conversions and constructors print generically.
type Printer struct {
	Types *types.Table
}

// Render renders n without type information.
func Render(n *Node) string {
	return Printer{}.Render(n)
}

// Render renders n as statement text, one statement per line.
func (p Printer) Render(n *Node) string {
	var sb strings.Builder
	p.stmt(&sb, n, 0)
	return strings.TrimRight(sb.String(), "\n")
}

// Fprint writes the rendering of n to w.
func (p Printer) Fprint(w io.Writer, n *Node) error {
	_, err := io.WriteString(w, p.Render(n)+"\n")
	return err
}

func writeIndent(sb *strings.Builder, indent int) {
	for range indent {
		sb.WriteString("  ")
	}
}

func (p Printer) line(sb *strings.Builder, indent int, text string) {
	writeIndent(sb, indent)
	sb.WriteString(text)
	sb.WriteByte('\n')
}

func (p Printer) stmt(sb *strings.Builder, n *Node, indent int) {
	if n == nil {
		return
	}
	switch n.Kind {
	case KindEmpty:
	case KindStmtList, KindStmtListExpr:
		for _, k := range n.Kids {
			p.stmt(sb, k, indent)
		}
	case KindVarSection:
		p.line(sb, indent, "var")
		for _, it := range n.Kids {
			p.line(sb, indent+1, p.identDefs(it))
		}
	case KindIf:
		for i, br := range n.Kids {
			switch {
			case br.Kind == KindElse:
				p.line(sb, indent, "else:")
			case i == 0:
				p.line(sb, indent, "if "+p.Expr(br.Kids[0])+":")
			default:
				p.line(sb, indent, "elif "+p.Expr(br.Kids[0])+":")
			}
			p.body(sb, br.Last(), indent+1)
		}
	case KindCase:
		p.line(sb, indent, "case "+p.Expr(n.Kids[0]))
		for _, br := range n.Kids[1:] {
			if br.Kind == KindElse {
				p.line(sb, indent, "else:")
			} else {
				labels := make([]string, 0, len(br.Kids)-1)
				for _, l := range br.Kids[:len(br.Kids)-1] {
					labels = append(labels, p.Expr(l))
				}
				p.line(sb, indent, "of "+strings.Join(labels, ", ")+":")
			}
			p.body(sb, br.Last(), indent+1)
		}
	case KindWhile:
		p.line(sb, indent, "while "+p.Expr(n.Kids[0])+":")
		p.body(sb, n.Kids[1], indent+1)
	case KindBlock:
		if n.Kids[0].Kind == KindSym {
			p.line(sb, indent, "block "+n.Kids[0].Sym.Name+":")
		} else {
			p.line(sb, indent, "block:")
		}
		p.body(sb, n.Kids[1], indent+1)
	case KindTry:
		p.line(sb, indent, "try:")
		p.body(sb, n.Kids[0], indent+1)
		for _, br := range n.Kids[1:] {
			if br.Kind == KindFinally {
				p.line(sb, indent, "finally:")
			} else {
				p.line(sb, indent, "except:")
			}
			p.body(sb, br.Last(), indent+1)
		}
	default:
		p.line(sb, indent, p.Expr(n))
	}
}

func (p Printer) body(sb *strings.Builder, n *Node, indent int) {
	before := sb.Len()
	p.stmt(sb, n, indent)
	if sb.Len() == before {
		p.line(sb, indent, "discard")
	}
}

func (p Printer) identDefs(it *Node) string {
	name := p.Expr(it.Kids[0])
	if it.Kids[1].Kind == KindEmpty {
		return name
	}
	return name + " = " + p.Expr(it.Kids[1])
}

// Expr renders n on a single line.
func (p Printer) Expr(n *Node) string {
	if n == nil {
		return "<nil>"
	}
	switch n.Kind {
	case KindEmpty:
		return ""
	case KindSym:
		return n.Sym.Name
	case KindIntLit:
		return strconv.FormatInt(n.Int, 10)
	case KindStrLit:
		return strconv.Quote(n.Str)
	case KindBoolLit:
		return strconv.FormatBool(n.Int != 0)
	case KindNilLit:
		return "nil"
	case KindCall:
		return p.call(n)
	case KindDot:
		return p.Expr(n.Kids[0]) + "." + p.Expr(n.Kids[1])
	case KindIndex:
		return p.Expr(n.Kids[0]) + "[" + p.Expr(n.Kids[1]) + "]"
	case KindDeref:
		return p.Expr(n.Kids[0]) + "[]"
	case KindAddr:
		return "addr " + p.Expr(n.Kids[0])
	case KindConv:
		return p.typeName(n.Type, "conv") + "(" + p.Expr(n.Kids[0]) + ")"
	case KindUpConv:
		return "upconv(" + p.Expr(n.Kids[0]) + ")"
	case KindDownConv:
		return "downconv(" + p.Expr(n.Kids[0]) + ")"
	case KindCast:
		return "cast[" + p.typeName(n.Type, "T") + "](" + p.Expr(n.Kids[0]) + ")"
	case KindObjConstr:
		parts := make([]string, 0, len(n.Kids))
		for _, f := range n.Kids {
			parts = append(parts, p.Expr(f))
		}
		return p.typeName(n.Type, "obj") + "(" + strings.Join(parts, ", ") + ")"
	case KindFieldInit:
		return p.Expr(n.Kids[0]) + ": " + p.Expr(n.Kids[1])
	case KindArrayConstr:
		return "[" + p.list(n.Kids) + "]"
	case KindTupleConstr:
		if len(n.Kids) == 1 {
			return "(" + p.Expr(n.Kids[0]) + ",)"
		}
		return "(" + p.list(n.Kids) + ")"
	case KindClosure:
		return "closure(" + p.list(n.Kids) + ")"
	case KindAsgn:
		return p.Expr(n.Kids[0]) + " = " + p.Expr(n.Kids[1])
	case KindFastAsgn:
		return p.Expr(n.Kids[0]) + " := " + p.Expr(n.Kids[1])
	case KindReturn:
		return keyword("return", p.Expr(n.Kids[0]))
	case KindRaise:
		return keyword("raise", p.Expr(n.Kids[0]))
	case KindBreak:
		return keyword("break", p.Expr(n.Kids[0]))
	case KindDiscard:
		return keyword("discard", p.Expr(n.Kids[0]))
	case KindStmtListExpr, KindStmtList:
		parts := make([]string, 0, len(n.Kids))
		for _, k := range n.Kids {
			if s := p.inline(k); s != "" {
				parts = append(parts, s)
			}
		}
		return "(" + strings.Join(parts, "; ") + ")"
	default:
		return p.inline(n)
	}
}

// inline flattens a statement rendering to a single line.
func (p Printer) inline(n *Node) string {
	switch n.Kind {
	case KindVarSection:
		parts := make([]string, 0, len(n.Kids))
		for _, it := range n.Kids {
			parts = append(parts, p.identDefs(it))
		}
		return "var " + strings.Join(parts, ", ")
	case KindStmtList, KindStmtListExpr, KindIf, KindCase, KindWhile, KindBlock, KindTry:
		var sb strings.Builder
		p.stmt(&sb, n, 0)
		lines := strings.Split(strings.TrimRight(sb.String(), "\n"), "\n")
		for i := range lines {
			lines[i] = strings.TrimSpace(lines[i])
		}
		return strings.Join(lines, "; ")
	}
	return p.Expr(n)
}

func keyword(kw, arg string) string {
	if arg == "" {
		return kw
	}
	return kw + " " + arg
}

func (p Printer) list(kids []*Node) string {
	parts := make([]string, 0, len(kids))
	for _, k := range kids {
		parts = append(parts, p.Expr(k))
	}
	return strings.Join(parts, ", ")
}

func (p Printer) call(n *Node) string {
	callee := n.Kids[0]
	args := n.Kids[1:]
	if callee.Kind == KindSym {
		switch callee.Sym.Magic {
		case MagicEq, MagicAnd, MagicOr:
			if len(args) == 2 {
				return fmt.Sprintf("(%s %s %s)", p.Expr(args[0]), callee.Sym.Magic, p.Expr(args[1]))
			}
		case MagicNot:
			if len(args) == 1 {
				return "not " + p.Expr(args[0])
			}
		}
	}
	return p.Expr(callee) + "(" + p.list(args) + ")"
}

func (p Printer) typeName(id types.TypeID, fallback string) string {
	if p.Types == nil {
		return fallback
	}
	if s := p.Types.String(id); s != "" && s != "<no type>" {
		return s
	}
	return fallback
}
