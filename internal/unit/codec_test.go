package unit

import (
	"bytes"
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/vmihailenco/msgpack/v5"

	"dtorpass/internal/destructors"
	"dtorpass/internal/diag"
	"dtorpass/internal/ir"
	"dtorpass/internal/ops"
	"dtorpass/internal/testkit"
	"dtorpass/internal/types"
)

// sample builds a unit with a user destructor, a disabled copy and two
// routines exercising moves, branches and field reads.
func sample() *Unit {
	k := testkit.New()
	str := k.Types.Builtins().String
	boolT := k.Types.Builtins().Bool
	file := k.Object("File", types.Field{Name: "fd", Type: k.Types.Builtins().Int}, types.Field{Name: "name", Type: str})
	closeFile := k.IDs.NewSymbol(ir.SymProc, "closeFile", nil, types.NoTypeID, k.Span())
	k.Ops.Register(file, ops.Destroy, closeFile)
	k.Ops.Disable(file, ops.Copy)

	use := k.Func("use", types.ProcInfo{Params: []types.Param{{Type: str}}})
	sinkIt := k.Func("sinkIt", types.ProcInfo{Params: []types.Param{{Type: str, Sink: true}}})

	k.Begin("branches")
	c := k.Param("c", boolT, false)
	x := k.Local("x", str)
	branches := k.Finish(
		k.Var(x, k.Str("a")),
		k.If(k.S(c), k.Call(sinkIt, k.S(x)), k.Call(use, k.S(x))),
	)

	k.Begin("files")
	f := k.Local("f", file)
	res := k.Result(str)
	files := k.Finish(
		k.Var(f, k.ObjConstr(file, []string{"fd", "name"}, k.Int(3), k.Str("log"))),
		k.Asgn(k.S(res), k.Dot(k.S(f), "name")),
	)

	return &Unit{
		Name:     "sample",
		Files:    k.Files,
		Types:    k.Types,
		IDs:      k.IDs,
		Ops:      k.Ops,
		Routines: []*ir.Routine{branches, files},
	}
}

func roundTrip(t *testing.T, u *Unit) *Unit {
	t.Helper()
	var buf bytes.Buffer
	if err := Write(&buf, u); err != nil {
		t.Fatalf("Write: %v", err)
	}
	got, err := Read(&buf)
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	return got
}

func renders(u *Unit) []string {
	pr := ir.Printer{Types: u.Types}
	out := make([]string, 0, len(u.Routines))
	for _, r := range u.Routines {
		out = append(out, r.Name()+"\n"+pr.Render(r.Body))
	}
	return out
}

type entry struct {
	Type     string
	Kind     string
	Op       string
	Disabled bool
}

func entries(u *Unit) []entry {
	var out []entry
	for _, e := range u.Ops.Entries() {
		en := entry{Type: u.Types.String(e.Type), Kind: e.Kind.String(), Disabled: e.Disabled}
		if e.Op != nil {
			en.Op = e.Op.Name
		}
		out = append(out, en)
	}
	return out
}

func TestRoundTripKeepsTrees(t *testing.T) {
	u := sample()
	got := roundTrip(t, u)

	if got.Name != u.Name {
		t.Fatalf("name = %q, want %q", got.Name, u.Name)
	}
	if diff := cmp.Diff(u.Files.Paths(), got.Files.Paths()); diff != "" {
		t.Fatalf("files mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff(renders(u), renders(got)); diff != "" {
		t.Fatalf("routines mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff(entries(u), entries(got)); diff != "" {
		t.Fatalf("operator entries mismatch (-want +got):\n%s", diff)
	}
	fresh := got.IDs.Next()
	for _, r := range got.Routines {
		if r.Sym.ID >= fresh {
			t.Fatalf("fresh id %d collides with routine %s (%d)", fresh, r.Name(), r.Sym.ID)
		}
	}
}

func TestRoundTripSharesSymbols(t *testing.T) {
	got := roundTrip(t, sample())
	r, ok := got.Routine("branches")
	if !ok {
		t.Fatal("routine branches missing")
	}
	var xs []*ir.Symbol
	testkit.Walk(r.Body, func(n *ir.Node) {
		if n.Kind == ir.KindSym && n.Sym.Name == "x" {
			xs = append(xs, n.Sym)
		}
	})
	if len(xs) < 2 {
		t.Fatalf("found %d references to x", len(xs))
	}
	for _, s := range xs[1:] {
		if s != xs[0] {
			t.Fatal("references to x decode to distinct symbols")
		}
	}
	if !xs[0].IsLocal(r.Sym) {
		t.Fatal("x lost its owner")
	}
	if got.Types.Builtins().String == types.NoTypeID {
		t.Fatal("builtins not restored")
	}
}

// The pass must produce the same result for a decoded unit as for the
// in-memory one it was written from.
func TestDecodedUnitRewritesTheSame(t *testing.T) {
	orig := sample()
	dec := roundTrip(t, orig)

	rewrite := func(u *Unit) []string {
		bag := diag.NewBag(100)
		pr := ir.Printer{Types: u.Types}
		var out []string
		for _, r := range u.Routines {
			res, err := destructors.Run(context.Background(), r, destructors.Env{
				Types:    u.Types,
				Ops:      u.Ops,
				IDs:      u.IDs,
				Reporter: diag.BagReporter{Bag: bag},
				Options:  destructors.DefaultOptions(),
			})
			if err != nil {
				t.Fatalf("%s: %v", r.Name(), err)
			}
			out = append(out, pr.Render(res.Body))
		}
		for _, d := range bag.Items() {
			out = append(out, d.Code.ID()+": "+d.Message)
		}
		return out
	}
	if diff := cmp.Diff(rewrite(orig), rewrite(dec)); diff != "" {
		t.Fatalf("rewrite differs after decoding (-orig +decoded):\n%s", diff)
	}
}

func TestReadRejectsOtherSchema(t *testing.T) {
	p, err := toPayload(sample())
	if err != nil {
		t.Fatal(err)
	}
	p.Schema = SchemaVersion + 1
	var buf bytes.Buffer
	if err := msgpack.NewEncoder(&buf).Encode(p); err != nil {
		t.Fatal(err)
	}
	if _, err := Read(&buf); !errors.Is(err, ErrSchema) {
		t.Fatalf("Read error = %v, want ErrSchema", err)
	}
}

func TestReadRejectsDanglingReferences(t *testing.T) {
	tests := []struct {
		name    string
		corrupt func(p *payload)
	}{
		{"unknown symbol", func(p *payload) { p.Routines[0].Body.Kids[0].Sym = 1 << 30 }},
		{"type out of range", func(p *payload) { p.Routines[0].Body.Type = 1 << 30 }},
		{"unknown file", func(p *payload) { p.Routines[0].Body.Span.File = 7 }},
		{"bad node kind", func(p *payload) { p.Routines[0].Body.Kind = 250 }},
		{"bad operator kind", func(p *payload) { p.Ops[0].Kind = 9 }},
		{"missing sentinel", func(p *payload) { p.Types.Types = p.Types.Types[1:] }},
		{"call without callee", func(p *payload) {
			body := p.Routines[0].Body
			body.Kids = append(body.Kids, &nodeWire{Kind: uint8(ir.KindCall), Span: body.Span})
		}},
		{"nil kid", func(p *payload) {
			body := p.Routines[0].Body
			body.Kids = append(body.Kids, nil)
		}},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			p, err := toPayload(sample())
			if err != nil {
				t.Fatal(err)
			}
			tc.corrupt(p)
			var buf bytes.Buffer
			if err := msgpack.NewEncoder(&buf).Encode(p); err != nil {
				t.Fatal(err)
			}
			if _, err := Read(&buf); !errors.Is(err, ErrCorrupt) {
				t.Fatalf("Read error = %v, want ErrCorrupt", err)
			}
		})
	}
}

func TestWriteRejectsSharedIDs(t *testing.T) {
	u := sample()
	r := u.Routines[0]
	impostor := *r.Params[0]
	impostor.Name = "impostor"
	r.Body.Kids = append(r.Body.Kids, ir.NewSym(&impostor, r.Body.Span))
	if err := Write(&bytes.Buffer{}, u); err == nil {
		t.Fatal("Write accepted two symbols with one id")
	}
}

func TestSaveLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sample.dtu")
	u := sample()
	if err := Save(path, u); err != nil {
		t.Fatalf("Save: %v", err)
	}
	got, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if diff := cmp.Diff(renders(u), renders(got)); diff != "" {
		t.Fatalf("routines mismatch (-want +got):\n%s", diff)
	}
	if _, err := Load(filepath.Join(t.TempDir(), "missing.dtu")); err == nil {
		t.Fatal("Load of a missing file succeeded")
	}
}
