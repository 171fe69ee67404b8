package ir

import (
	"dtorpass/internal/source"
	"dtorpass/internal/types"
)

// Kind enumerates node kinds. The set is closed: the pass handles every
// member explicitly and treats anything else as an internal error.
type Kind uint8

const (
	KindEmpty Kind = iota
	KindSym
	KindIntLit
	KindStrLit
	KindBoolLit
	KindNilLit
	// KindCall: Kids[0] is the callee, Kids[1:] the arguments.
	KindCall
	// KindDot: Kids[0] object, Kids[1] field symbol.
	KindDot
	// KindIndex: Kids[0] container, Kids[1] index.
	KindIndex
	KindDeref
	KindAddr
	// KindConv is a value conversion; Kids[0] is the operand.
	KindConv
	KindUpConv
	KindDownConv
	KindCast
	// KindObjConstr: Kids are KindFieldInit nodes.
	KindObjConstr
	// KindFieldInit: Kids[0] field symbol, Kids[1] value.
	KindFieldInit
	KindArrayConstr
	KindTupleConstr
	// KindClosure: Kids[0] routine symbol, Kids[1] environment or nil literal.
	KindClosure
	KindStmtList
	// KindStmtListExpr: statements followed by the yielded value.
	KindStmtListExpr
	// KindBlock: Kids[0] label symbol or empty, Kids[1] body.
	KindBlock
	// KindIf: Kids are KindElifBranch (cond, body) optionally ending with KindElse (body).
	KindIf
	KindElifBranch
	KindElse
	// KindCase: Kids[0] selector, then KindOfBranch (labels..., body) and KindElse.
	KindCase
	KindOfBranch
	// KindWhile: Kids[0] condition, Kids[1] body.
	KindWhile
	// KindTry: Kids[0] body, then KindExcept (body) and optionally KindFinally (body).
	KindTry
	KindExcept
	KindFinally
	// KindRaise: Kids[0] value or empty (re-raise).
	KindRaise
	// KindReturn: Kids[0] value or empty.
	KindReturn
	// KindBreak: Kids[0] label symbol or empty.
	KindBreak
	KindAsgn
	// KindFastAsgn is a bitwise relocation: no hooks run on either side.
	KindFastAsgn
	// KindVarSection: Kids are KindIdentDefs (symbol, initializer or empty).
	KindVarSection
	KindIdentDefs
	KindDiscard
)

var kindNames = [...]string{
	KindEmpty:        "Empty",
	KindSym:          "Sym",
	KindIntLit:       "IntLit",
	KindStrLit:       "StrLit",
	KindBoolLit:      "BoolLit",
	KindNilLit:       "NilLit",
	KindCall:         "Call",
	KindDot:          "Dot",
	KindIndex:        "Index",
	KindDeref:        "Deref",
	KindAddr:         "Addr",
	KindConv:         "Conv",
	KindUpConv:       "UpConv",
	KindDownConv:     "DownConv",
	KindCast:         "Cast",
	KindObjConstr:    "ObjConstr",
	KindFieldInit:    "FieldInit",
	KindArrayConstr:  "ArrayConstr",
	KindTupleConstr:  "TupleConstr",
	KindClosure:      "Closure",
	KindStmtList:     "StmtList",
	KindStmtListExpr: "StmtListExpr",
	KindBlock:        "Block",
	KindIf:           "If",
	KindElifBranch:   "ElifBranch",
	KindElse:         "Else",
	KindCase:         "Case",
	KindOfBranch:     "OfBranch",
	KindWhile:        "While",
	KindTry:          "Try",
	KindExcept:       "Except",
	KindFinally:      "Finally",
	KindRaise:        "Raise",
	KindReturn:       "Return",
	KindBreak:        "Break",
	KindAsgn:         "Asgn",
	KindFastAsgn:     "FastAsgn",
	KindVarSection:   "VarSection",
	KindIdentDefs:    "IdentDefs",
	KindDiscard:      "Discard",
}

// String returns a human-readable name for the node kind.
func (k Kind) String() string {
	if int(k) < len(kindNames) && kindNames[k] != "" {
		return kindNames[k]
	}
	return "Unknown"
}

// IsLiteral reports literal kinds, nil included.
func (k Kind) IsLiteral() bool {
	switch k {
	case KindIntLit, KindStrLit, KindBoolLit, KindNilLit:
		return true
	}
	return false
}

// IsConv reports value-preserving conversions.
func (k Kind) IsConv() bool {
	switch k {
	case KindConv, KindUpConv, KindDownConv, KindCast:
		return true
	}
	return false
}

// Node is one element of the typed tree.
type Node struct {
	Kind Kind
	Type types.TypeID
	Span source.Span
	Sym  *Symbol // KindSym only
	Int  int64   // KindIntLit and KindBoolLit (0/1)
	Str  string  // KindStrLit
	Kids []*Node
}

// NewNode creates a leaf-less node of the given kind.
func NewNode(kind Kind, span source.Span, typ types.TypeID) *Node {
	return &Node{Kind: kind, Span: span, Type: typ}
}

// NewTree creates a node with the given kids; the span is taken from the first kid.
func NewTree(kind Kind, typ types.TypeID, kids ...*Node) *Node {
	n := &Node{Kind: kind, Type: typ, Kids: kids}
	for _, k := range kids {
		if k != nil && !k.Span.Unknown() {
			n.Span = k.Span
			break
		}
	}
	return n
}

// NewSym creates a symbol reference typed like the symbol.
func NewSym(s *Symbol, span source.Span) *Node {
	return &Node{Kind: KindSym, Sym: s, Type: s.Type, Span: span.Or(s.Span)}
}

// NewEmpty creates the placeholder node.
func NewEmpty(span source.Span) *Node {
	return &Node{Kind: KindEmpty, Span: span}
}

// NewIntLit creates an integer literal.
func NewIntLit(v int64, typ types.TypeID, span source.Span) *Node {
	return &Node{Kind: KindIntLit, Int: v, Type: typ, Span: span}
}

// NewStrLit creates a string literal.
func NewStrLit(v string, typ types.TypeID, span source.Span) *Node {
	return &Node{Kind: KindStrLit, Str: v, Type: typ, Span: span}
}

// Len returns the number of kids.
func (n *Node) Len() int {
	if n == nil {
		return 0
	}
	return len(n.Kids)
}

// Last returns the last kid.
func (n *Node) Last() *Node {
	return n.Kids[len(n.Kids)-1]
}

// Add appends kids and returns n.
func (n *Node) Add(kids ...*Node) *Node {
	n.Kids = append(n.Kids, kids...)
	return n
}

// ShallowCopy copies n with an empty kid list of the same capacity.
func (n *Node) ShallowCopy() *Node {
	cp := *n
	cp.Kids = make([]*Node, len(n.Kids))
	return &cp
}

// CopyNode copies n without kids.
func (n *Node) CopyNode() *Node {
	cp := *n
	cp.Kids = nil
	return &cp
}

// CopyTree copies n recursively. Symbols are shared.
func (n *Node) CopyTree() *Node {
	if n == nil {
		return nil
	}
	cp := *n
	if n.Kids != nil {
		cp.Kids = make([]*Node, len(n.Kids))
		for i, k := range n.Kids {
			cp.Kids[i] = k.CopyTree()
		}
	}
	return &cp
}

// IsSym reports whether n refers to s.
func (n *Node) IsSym(s *Symbol) bool {
	return n != nil && n.Kind == KindSym && n.Sym == s
}
