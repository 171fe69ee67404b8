package liveness

import (
	"testing"

	"dtorpass/internal/cfg"
	"dtorpass/internal/ir"
	"dtorpass/internal/testkit"
	"dtorpass/internal/types"
)

type fixture struct {
	k   *testkit.Kit
	str types.TypeID
	c   *ir.Symbol
	x   *ir.Symbol
	f   *ir.Symbol
}

func newFixture() *fixture {
	k := testkit.New()
	str := k.Types.Builtins().String
	fx := &fixture{k: k, str: str}
	fx.f = k.Func("f", types.ProcInfo{Params: []types.Param{{Type: str}}})
	k.Begin("p")
	fx.c = k.Local("c", k.Types.Builtins().Bool)
	fx.x = k.Local("x", str)
	return fx
}

func (fx *fixture) oracle(body ...*ir.Node) *Oracle {
	return New(cfg.Build(fx.k.Finish(body...), fx.k.Types))
}

func TestIsLastReadStraightLine(t *testing.T) {
	fx := newFixture()
	k := fx.k
	r1, r2 := k.S(fx.x), k.S(fx.x)
	o := fx.oracle(
		k.Var(fx.x, k.Str("a")),
		k.Call(fx.f, r1),
		k.Call(fx.f, r2),
	)
	if o.IsLastRead(r1) {
		t.Fatalf("first read reported as last")
	}
	if o.OtherRead() != r2 {
		t.Fatalf("other read = %v, want the second read", o.OtherRead())
	}
	if !o.IsLastRead(r2) {
		t.Fatalf("second read is the last one")
	}
	// asking twice gives the same answer
	if o.IsLastRead(r1) || !o.IsLastRead(r2) {
		t.Fatalf("answers changed on repeated queries")
	}
}

func TestIsLastReadBranches(t *testing.T) {
	tests := []struct {
		name  string
		build func(fx *fixture, r1, r2 *ir.Node) []*ir.Node
		want1 bool
		want2 bool
	}{
		{
			name: "read in branch then after join",
			build: func(fx *fixture, r1, r2 *ir.Node) []*ir.Node {
				k := fx.k
				return []*ir.Node{k.If(k.S(fx.c), k.Call(fx.f, r1), nil), k.Call(fx.f, r2)}
			},
			want1: false,
			want2: true,
		},
		{
			name: "one read per branch",
			build: func(fx *fixture, r1, r2 *ir.Node) []*ir.Node {
				k := fx.k
				return []*ir.Node{k.If(k.S(fx.c), k.Call(fx.f, r1), k.Call(fx.f, r2))}
			},
			want1: true,
			want2: true,
		},
		{
			name: "redefined in one branch",
			build: func(fx *fixture, r1, r2 *ir.Node) []*ir.Node {
				k := fx.k
				return []*ir.Node{
					k.Call(fx.f, r1),
					k.If(k.S(fx.c), k.Asgn(k.S(fx.x), k.Str("b")), nil),
					k.Call(fx.f, k.S(fx.c)),
					k.Discard(r2),
				}
			},
			want1: false,
			want2: true,
		},
		{
			name: "redefined on every path",
			build: func(fx *fixture, r1, r2 *ir.Node) []*ir.Node {
				k := fx.k
				return []*ir.Node{
					k.Call(fx.f, r1),
					k.If(k.S(fx.c), k.Asgn(k.S(fx.x), k.Str("b")), k.Asgn(k.S(fx.x), k.Str("c"))),
					k.Call(fx.f, r2),
				}
			},
			want1: true,
			want2: true,
		},
		{
			name: "read inside a loop",
			build: func(fx *fixture, r1, r2 *ir.Node) []*ir.Node {
				k := fx.k
				return []*ir.Node{k.While(k.S(fx.c), k.Call(fx.f, r1)), k.Call(fx.f, r2)}
			},
			want1: false,
			want2: true,
		},
		{
			name: "and operand",
			build: func(fx *fixture, r1, r2 *ir.Node) []*ir.Node {
				k := fx.k
				b := k.Types.Builtins().Bool
				return []*ir.Node{k.Discard(k.Magic(ir.MagicAnd, b, k.S(fx.c), k.Call(fx.f, r1))), k.Call(fx.f, r2)}
			},
			want1: false,
			want2: true,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fx := newFixture()
			r1, r2 := fx.k.S(fx.x), fx.k.S(fx.x)
			body := append([]*ir.Node{fx.k.Var(fx.x, fx.k.Str("a"))}, tt.build(fx, r1, r2)...)
			o := fx.oracle(body...)
			if got := o.IsLastRead(r1); got != tt.want1 {
				t.Errorf("IsLastRead(first) = %v, want %v", got, tt.want1)
			}
			if got := o.IsLastRead(r2); got != tt.want2 {
				t.Errorf("IsLastRead(second) = %v, want %v", got, tt.want2)
			}
		})
	}
}

func TestIsLastReadLoopLocal(t *testing.T) {
	fx := newFixture()
	k := fx.k
	mk := k.Func("mk", types.ProcInfo{Result: fx.str})
	y := k.Local("y", fx.str)
	r := k.S(y)
	o := fx.oracle(k.While(k.S(fx.c), k.Var(y, k.Call(mk)), k.Call(fx.f, r)))
	if !o.IsLastRead(r) {
		t.Fatalf("loop-local value is redefined before the next read")
	}
}

func TestIsLastReadPartialWrite(t *testing.T) {
	k := testkit.New()
	str := k.Types.Builtins().String
	pair := k.Object("Pair", types.Field{Name: "a", Type: str}, types.Field{Name: "b", Type: str})
	use := k.Func("use", types.ProcInfo{Params: []types.Param{{Type: pair}}})
	k.Begin("p")
	x := k.Local("x", pair)
	whole, field := k.S(x), k.Dot(k.S(x), "a")
	g := cfg.Build(k.Finish(
		k.Var(x, k.ObjConstr(pair, nil)),
		k.Call(use, whole),
		k.Discard(field),
		k.Asgn(k.Dot(k.S(x), "b"), k.Str("z")),
	), k.Types)
	o := New(g)
	if o.IsLastRead(whole) {
		t.Fatalf("whole object is read again through a field")
	}
	if !o.IsLastRead(field) {
		t.Fatalf("writing a sibling field does not touch x.a")
	}
}

func TestIsLastReadUntracked(t *testing.T) {
	fx := newFixture()
	k := fx.k
	g := k.Global("g", fx.str)
	r := k.S(g)
	o := fx.oracle(k.Call(fx.f, r))
	if o.IsLastRead(r) {
		t.Fatalf("globals are never last reads")
	}
}

func TestIsFirstWrite(t *testing.T) {
	k := testkit.New()
	str := k.Types.Builtins().String
	pair := k.Object("Pair", types.Field{Name: "a", Type: str})
	use := k.Func("use", types.ProcInfo{Params: []types.Param{{Type: pair}}})
	k.Begin("p")
	x, y := k.Local("x", pair), k.Local("y", pair)
	w1, w2 := k.Dot(k.S(x), "a"), k.Dot(k.S(x), "a")
	w3 := k.Dot(k.S(y), "a")
	g := cfg.Build(k.Finish(
		k.Var(x, nil),
		k.Var(y, nil),
		k.Asgn(w1, k.Str("1")),
		k.Asgn(w2, k.Str("2")),
		k.Call(use, k.S(y)),
		k.Asgn(w3, k.Str("3")),
	), k.Types)
	o := New(g)
	if !o.IsFirstWrite(w1) {
		t.Errorf("first write of x.a not detected")
	}
	if o.IsFirstWrite(w2) {
		t.Errorf("second write of x.a reported as first")
	}
	if o.IsFirstWrite(w3) {
		t.Errorf("y is read before y.a is written")
	}
}

func TestUninit(t *testing.T) {
	fx := newFixture()
	k := fx.k
	b := k.Types.Builtins()
	y := k.Local("y", fx.str)
	z := k.Local("z", fx.str)
	p := k.Param("p", fx.str, false)
	o := fx.oracle(
		k.Var(fx.x, nil),
		k.Var(y, nil),
		k.Var(z, nil),
		k.If(k.S(fx.c), k.Asgn(k.S(fx.x), k.Str("a")), nil),
		k.If(k.Magic(ir.MagicNot, b.Bool, k.S(fx.c)), k.Asgn(k.S(y), k.Str("a")), k.Asgn(k.S(y), k.Str("b"))),
		k.Asgn(k.S(z), k.S(p)),
		k.Call(fx.f, k.S(fx.x)),
		k.Call(fx.f, k.S(y)),
		k.Call(fx.f, k.S(z)),
	)
	if !o.MaybeUninit(fx.x) {
		t.Errorf("x is only initialized on one branch")
	}
	if o.MaybeUninit(y) {
		t.Errorf("y is initialized on both branches")
	}
	if o.MaybeUninit(z) {
		t.Errorf("z is assigned before use")
	}
	if o.MaybeUninit(p) {
		t.Errorf("parameters are initialized by the caller")
	}
	// c is read without ever being assigned
	if !o.MaybeUninit(fx.c) {
		t.Errorf("c is never assigned")
	}
}
