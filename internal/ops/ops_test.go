package ops

import (
	"errors"
	"sync"
	"testing"

	"dtorpass/internal/ir"
	"dtorpass/internal/source"
	"dtorpass/internal/types"
)

func newTable() (*Table, *types.Table, *ir.IDGen) {
	tt := types.NewTable()
	ids := ir.NewIDGen(0)
	return New(tt, ids), tt, ids
}

func userOp(ids *ir.IDGen, name string) *ir.Symbol {
	return ids.NewSymbol(ir.SymProc, name, nil, types.NoTypeID, source.Span{})
}

func TestHasDestructorIsTransitive(t *testing.T) {
	tab, tt, _ := newTable()
	b := tt.Builtins()
	plain := tt.RegisterObject("Plain", types.Field{Name: "x", Type: b.Int})
	holder := tt.RegisterObject("Holder", types.Field{Name: "s", Type: tt.Seq(b.Int)})
	nested := tt.Tuple(b.Int, holder)
	cursorOnly := tt.RegisterObject("View", types.Field{Name: "s", Type: tt.Seq(b.Int), Cursor: true})

	tests := []struct {
		name string
		typ  types.TypeID
		want bool
	}{
		{"int", b.Int, false},
		{"string", b.String, true},
		{"plain object", plain, false},
		{"object with seq", holder, true},
		{"tuple with object", nested, true},
		{"array of holders", tt.Array(holder, 4), true},
		{"ref", tt.Ref(plain), true},
		{"ptr", tt.Ptr(holder), false},
		{"cursor field", cursorOnly, false},
		{"distinct", tt.Distinct("Handle", holder), true},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if got := tab.HasDestructor(tc.typ); got != tc.want {
				t.Fatalf("HasDestructor(%s) = %v, want %v", tt.String(tc.typ), got, tc.want)
			}
		})
	}
}

func TestResolvePrefersUserOperator(t *testing.T) {
	tab, tt, ids := newTable()
	file := tt.RegisterObject("File", types.Field{Name: "fd", Type: tt.Builtins().Int})
	destroy := userOp(ids, "=destroy")
	tab.Register(file, Destroy, destroy)

	got, err := tab.Resolve(file, Destroy)
	if err != nil || got != destroy {
		t.Fatalf("Resolve = %v, %v; want user op", got, err)
	}
	if !destroy.Has(ir.SymOverridden) || !tab.IsUserDefined(file, Destroy) {
		t.Fatalf("registered operator must be marked overridden")
	}
	if !tab.HasDestructor(file) {
		t.Fatalf("a user destroy gives the type a destructor")
	}
	copyOp, err := tab.Resolve(file, Copy)
	if err != nil || copyOp == nil || !copyOp.Has(ir.SymGenerated) {
		t.Fatalf("copy should be synthesized, got %v, %v", copyOp, err)
	}
	if tab.IsUserDefined(file, Copy) {
		t.Fatalf("synthesized copy reported as user-defined")
	}
}

func TestResolveSynthesizesOncePerType(t *testing.T) {
	tab, tt, _ := newTable()
	s := tt.Seq(tt.Builtins().String)
	a, err := tab.Resolve(s, Sink)
	if err != nil {
		t.Fatal(err)
	}
	b, _ := tab.Resolve(s, Sink)
	if a != b {
		t.Fatalf("synthesized operator not cached")
	}
	if a.Name != "=sink" {
		t.Fatalf("name = %q", a.Name)
	}
}

func TestResolveErrors(t *testing.T) {
	tab, tt, ids := newTable()
	b := tt.Builtins()
	lock := tt.RegisterObject("Lock", types.Field{Name: "h", Type: tt.Ref(tt.RegisterObject("Raw"))})
	tab.Disable(lock, Copy)
	wrapper := tt.RegisterObject("Guarded", types.Field{Name: "l", Type: lock})

	gp := tt.GenericParam("T")
	generic := tt.Seq(gp)

	inst := tt.Instance("Box", []types.TypeID{b.Int}, tt.RegisterObject("BoxImpl", types.Field{Name: "v", Type: tt.Seq(b.Int)}))
	genericOp := userOp(ids, "=copy")
	genericOp.Flags |= ir.SymGenericOp
	tab.Register(inst, Copy, genericOp)

	orphan := tt.Instance("Orphan", []types.TypeID{gp}, tt.RegisterObject("OrphanImpl", types.Field{Name: "v", Type: generic}))
	orphanOp := userOp(ids, "=copy")
	orphanOp.Flags |= ir.SymGenericOp
	tab.Register(orphan, Copy, orphanOp)

	tests := []struct {
		name string
		typ  types.TypeID
		kind Kind
		want error
	}{
		{"disabled", lock, Copy, ErrUnavailable},
		{"disabled component", wrapper, Copy, ErrUnavailable},
		{"destroy unaffected", wrapper, Destroy, nil},
		{"unresolved generic", generic, Destroy, ErrGeneric},
		{"generic op with canonical fallback", inst, Copy, nil},
		{"generic op without fallback", orphan, Copy, ErrGeneric},
		{"trivial", b.Int, Copy, ErrTrivial},
		{"unknown type", types.TypeID(9999), Destroy, ErrMissing},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			op, err := tab.Resolve(tc.typ, tc.kind)
			if tc.want == nil {
				if err != nil || op == nil {
					t.Fatalf("Resolve = %v, %v; want operator", op, err)
				}
				return
			}
			if !errors.Is(err, tc.want) {
				t.Fatalf("err = %v, want %v", err, tc.want)
			}
			var opErr *OpError
			if !errors.As(err, &opErr) || opErr.Op != tc.kind {
				t.Fatalf("err %v is not an *OpError for %s", err, tc.kind)
			}
		})
	}
	if tab.CanMove(wrapper) != true {
		t.Fatalf("disabling copy must not disable sink")
	}
	tab.Disable(lock, Sink)
	if tab.CanMove(wrapper) {
		t.Fatalf("sink of a component is disabled")
	}
}

func TestRecursiveTypesResolve(t *testing.T) {
	tab, tt, _ := newTable()
	node := tt.RegisterObject("Node")
	tt.SetFields(node, types.Field{Name: "kids", Type: tt.Seq(node)}, types.Field{Name: "name", Type: tt.Builtins().String})
	if !tab.HasDestructor(node) {
		t.Fatalf("Node owns a seq")
	}
	if _, err := tab.Resolve(node, Copy); err != nil {
		t.Fatalf("Resolve = %v", err)
	}
}

func TestBranchDestroy(t *testing.T) {
	tab, tt, _ := newTable()
	b := tt.Builtins()
	shape := tt.RegisterObject("Shape",
		types.Field{Name: "kind", Type: b.Int},
		types.Field{Name: "points", Type: tt.Seq(b.Float)},
	)
	tt.SetVariant(shape, types.Variant{Discriminant: 0, Branches: []types.Branch{{Values: []int64{1}, Fields: []int{1}}}})
	op, err := tab.BranchDestroy(shape)
	if err != nil || op == nil {
		t.Fatalf("BranchDestroy = %v, %v", op, err)
	}
	again, _ := tab.BranchDestroy(shape)
	if again != op {
		t.Fatalf("branch destroy not cached")
	}
	if _, err := tab.BranchDestroy(b.Int); !errors.Is(err, ErrMissing) {
		t.Fatalf("err = %v, want ErrMissing", err)
	}
}

func TestConcurrentResolve(t *testing.T) {
	tab, tt, _ := newTable()
	obj := tt.RegisterObject("Obj", types.Field{Name: "s", Type: tt.Builtins().String})
	var wg sync.WaitGroup
	got := make([]*ir.Symbol, 8)
	for i := range got {
		wg.Add(1)
		go func() {
			defer wg.Done()
			got[i], _ = tab.Resolve(obj, Destroy)
		}()
	}
	wg.Wait()
	for _, op := range got[1:] {
		if op != got[0] {
			t.Fatalf("concurrent resolution produced distinct operators")
		}
	}
}

func TestMagicSymbolsAreShared(t *testing.T) {
	tab, _, _ := newTable()
	a := tab.Magic(ir.MagicWasMoved)
	if a != tab.Magic(ir.MagicWasMoved) || a.Name != "wasMoved" {
		t.Fatalf("magic symbol not shared: %+v", a)
	}
}

func TestEntriesOrder(t *testing.T) {
	tab, tt, ids := newTable()
	a := tt.RegisterObject("A", types.Field{Name: "s", Type: tt.Builtins().String})
	tab.Register(a, Sink, userOp(ids, "=sink"))
	tab.Register(a, Destroy, userOp(ids, "=destroy"))
	tab.Disable(a, Copy)
	got := tab.Entries()
	if len(got) != 3 || got[0].Kind != Destroy || got[1].Kind != Copy || !got[1].Disabled || got[2].Kind != Sink {
		t.Fatalf("entries = %+v", got)
	}
}
