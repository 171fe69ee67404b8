package ir

import (
	"strings"
	"testing"

	"dtorpass/internal/source"
	"dtorpass/internal/types"
)

type fixture struct {
	tt    *types.Table
	ids   *IDGen
	owner *Symbol
	obj   types.TypeID
	field *Symbol
}

func newFixture() *fixture {
	tt := types.NewTable()
	ids := NewIDGen(0)
	owner := ids.NewSymbol(SymProc, "f", nil, types.NoTypeID, source.Span{})
	field := ids.NewSymbol(SymField, "data", nil, tt.Seq(tt.Builtins().Int), source.Span{})
	obj := tt.RegisterObject("Obj", types.Field{Name: "data", Type: field.Type})
	return &fixture{tt: tt, ids: ids, owner: owner, obj: obj, field: field}
}

func (f *fixture) local(name string, typ types.TypeID) *Symbol {
	return f.ids.NewSymbol(SymVar, name, f.owner, typ, source.Span{})
}

func (f *fixture) ref(s *Symbol) *Node { return NewSym(s, source.Span{}) }

func (f *fixture) dot(obj *Node) *Node {
	return NewTree(KindDot, f.field.Type, obj, f.ref(f.field))
}

func (f *fixture) index(arr *Node, i int64) *Node {
	return NewTree(KindIndex, f.tt.Builtins().Int, arr, NewIntLit(i, f.tt.Builtins().Int, source.Span{}))
}

func TestSameLocation(t *testing.T) {
	f := newFixture()
	a := f.local("a", f.obj)
	b := f.local("b", f.obj)
	s := f.local("s", f.tt.Seq(f.tt.Builtins().Int))
	i := f.local("i", f.tt.Builtins().Int)

	tests := []struct {
		name string
		x, y *Node
		want bool
	}{
		{"same symbol", f.ref(a), f.ref(a), true},
		{"different symbols", f.ref(a), f.ref(b), false},
		{"same field", f.dot(f.ref(a)), f.dot(f.ref(a)), true},
		{"field of different roots", f.dot(f.ref(a)), f.dot(f.ref(b)), false},
		{"const index", f.index(f.ref(s), 1), f.index(f.ref(s), 1), true},
		{"different const index", f.index(f.ref(s), 1), f.index(f.ref(s), 2), false},
		{"variable index", NewTree(KindIndex, 0, f.ref(s), f.ref(i)), NewTree(KindIndex, 0, f.ref(s), f.ref(i)), false},
		{"through conversion", NewTree(KindConv, f.obj, f.ref(a)), f.ref(a), true},
		{"through addr and deref", f.ref(a), NewTree(KindDeref, f.obj, NewTree(KindAddr, 0, f.ref(a))), true},
		{"literal", NewIntLit(1, 0, source.Span{}), NewIntLit(1, 0, source.Span{}), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := SameLocation(tt.x, tt.y); got != tt.want {
				t.Fatalf("SameLocation(%s, %s) = %v, want %v", Render(tt.x), Render(tt.y), got, tt.want)
			}
		})
	}
}

func TestRootAndSkipConv(t *testing.T) {
	f := newFixture()
	a := f.local("a", f.obj)
	expr := NewTree(KindConv, f.obj, f.dot(NewTree(KindDeref, f.obj, f.ref(a))))
	if got := Root(expr); got != a {
		t.Fatalf("Root = %v, want a", got)
	}
	if got := SkipConv(expr); got.Kind != KindDot {
		t.Fatalf("SkipConv kind = %s, want Dot", got.Kind)
	}
	call := NewTree(KindCall, f.obj, f.ref(f.owner))
	if Root(call) != nil {
		t.Fatalf("calls are not rooted")
	}
}

func TestStructurallyEqual(t *testing.T) {
	f := newFixture()
	a := f.local("a", f.obj)
	x := f.dot(f.ref(a))
	if !StructurallyEqual(x, x.CopyTree()) {
		t.Fatalf("a tree must equal its copy")
	}
	if StructurallyEqual(x, f.dot(f.ref(f.local("a", f.obj)))) {
		t.Fatalf("distinct symbols with one name must differ")
	}
}

func TestRender(t *testing.T) {
	f := newFixture()
	intT := f.tt.Builtins().Int
	x := f.local("x", intT)
	y := f.local("y", intT)
	cond := f.ids.NewSymbol(SymVar, "c", f.owner, f.tt.Builtins().Bool, source.Span{})
	eq := f.ids.NewSymbol(SymProc, "==", nil, 0, source.Span{})
	eq.Magic = MagicEq

	body := NewTree(KindStmtList, 0,
		NewTree(KindVarSection, 0, NewTree(KindIdentDefs, 0, f.ref(x), NewIntLit(1, intT, source.Span{}))),
		NewTree(KindIf, 0,
			NewTree(KindElifBranch, 0, f.ref(cond), NewTree(KindAsgn, 0, f.ref(y), f.ref(x))),
			NewTree(KindElse, 0, NewTree(KindStmtList, 0)),
		),
		NewTree(KindWhile, 0,
			NewTree(KindCall, f.tt.Builtins().Bool, f.ref(eq), f.ref(x), f.ref(y)),
			NewTree(KindFastAsgn, 0, f.ref(x), f.ref(y)),
		),
	)
	want := strings.Join([]string{
		"var",
		"  x = 1",
		"if c:",
		"  y = x",
		"else:",
		"  discard",
		"while (x == y):",
		"  x := y",
	}, "\n")
	if got := Render(body); got != want {
		t.Fatalf("render mismatch\n got:\n%s\nwant:\n%s", got, want)
	}
}

func TestRenderInlineExpression(t *testing.T) {
	f := newFixture()
	intT := f.tt.Builtins().Int
	tmp := f.local(":tmpD", intT)
	x := f.local("x", intT)
	e := NewTree(KindStmtListExpr, intT,
		NewTree(KindFastAsgn, 0, f.ref(tmp), f.ref(x)),
		f.ref(tmp),
	)
	if got, want := Render(NewTree(KindDiscard, 0, e)), "discard (:tmpD := x; :tmpD)"; got != want {
		t.Fatalf("got %q, want %q", got, want)
	}
}

func TestValidate(t *testing.T) {
	f := newFixture()
	x := f.local("x", f.tt.Builtins().Int)
	good := NewTree(KindAsgn, 0, f.ref(x), NewIntLit(2, f.tt.Builtins().Int, source.Span{}))
	if err := Validate(good); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	bad := NewTree(KindIf, 0,
		NewTree(KindElse, 0, NewTree(KindStmtList, 0)),
		NewTree(KindElifBranch, 0, f.ref(x), NewTree(KindStmtList, 0)),
		NewTree(KindAsgn, 0, f.ref(x)),
	)
	err := Validate(bad)
	if err == nil {
		t.Fatalf("expected violations")
	}
	for _, frag := range []string{"else must be the last branch", "unexpected Asgn branch", "expected 2 kids"} {
		if !strings.Contains(err.Error(), frag) {
			t.Errorf("error %q does not mention %q", err, frag)
		}
	}
}

func TestValidateNilKid(t *testing.T) {
	f := newFixture()
	x := f.local("x", f.tt.Builtins().Int)
	err := Validate(NewTree(KindDot, 0, f.ref(x), nil))
	if err == nil || !strings.Contains(err.Error(), "kid 1 is nil") {
		t.Fatalf("Validate = %v, want a nil-kid violation", err)
	}
}

func TestIDGenMonotonic(t *testing.T) {
	g := NewIDGen(10)
	a, b := g.Next(), g.Next()
	if a != 11 || b != 12 || g.Last() != 12 {
		t.Fatalf("ids = %d, %d (last %d)", a, b, g.Last())
	}
}
