package types

import "testing"

func TestTableBuiltins(t *testing.T) {
	in := NewTable()
	b := in.Builtins()
	if b.Void == NoTypeID || b.String == NoTypeID {
		t.Fatalf("builtins not initialized")
	}
	if k := in.KindOf(b.String); k != KindString {
		t.Fatalf("expected string kind, got %v", k)
	}
}

func TestTableDeduplicatesStructuralTypes(t *testing.T) {
	in := NewTable()
	b := in.Builtins()
	if in.Seq(b.Int) != in.Seq(b.Int) {
		t.Fatalf("seq types should be deduplicated")
	}
	if in.Tuple(b.Int, b.String) != in.Tuple(b.Int, b.String) {
		t.Fatalf("tuple types should be deduplicated")
	}
	if in.Tuple(b.Int, b.String) == in.Tuple(b.String, b.Int) {
		t.Fatalf("tuple element order must affect identity")
	}
	if in.Seq(b.Int) == in.ConstSeq(b.Int) {
		t.Fatalf("const seq must differ from seq")
	}
}

func TestNominalTypesAreDistinct(t *testing.T) {
	in := NewTable()
	a := in.RegisterObject("Obj")
	b := in.RegisterObject("Obj")
	if a == b {
		t.Fatalf("objects with the same name must get distinct ids")
	}
}

func TestStringRendering(t *testing.T) {
	in := NewTable()
	b := in.Builtins()
	obj := in.RegisterObject("Node")
	tests := []struct {
		id   TypeID
		want string
	}{
		{in.Seq(b.String), "seq[string]"},
		{in.Ref(obj), "ref Node"},
		{in.Array(b.Int, 3), "array[3, int]"},
		{in.Tuple(b.Int, in.Seq(b.Int)), "(int, seq[int])"},
		{in.Proc(ProcInfo{Params: []Param{{Type: b.String, Sink: true}}, Result: b.Int}), "proc (sink string): int"},
		{in.Instance("Box", []TypeID{b.Int}, obj), "Box[int]"},
	}
	for _, tt := range tests {
		if got := in.String(tt.id); got != tt.want {
			t.Errorf("String = %q, want %q", got, tt.want)
		}
	}
}

func TestCyclic(t *testing.T) {
	in := NewTable()
	b := in.Builtins()
	node := in.RegisterObject("Node")
	nodeRef := in.Ref(node)
	in.SetFields(node, Field{Name: "next", Type: nodeRef}, Field{Name: "val", Type: b.Int})

	leaf := in.RegisterObject("Leaf", Field{Name: "s", Type: b.String})
	if !in.Cyclic(nodeRef) {
		t.Errorf("ref Node with a ref field should be cyclic")
	}
	if in.Cyclic(in.Ref(leaf)) {
		t.Errorf("ref Leaf without refs should not be cyclic")
	}
	if in.Cyclic(in.AcyclicRef(node)) {
		t.Errorf("acyclic ref should not be cyclic")
	}
	in.MarkAcyclic(node)
	if in.Cyclic(nodeRef) {
		t.Errorf("ref to acyclic object should not be cyclic")
	}
}

func TestContainsGenericParam(t *testing.T) {
	in := NewTable()
	tp := in.GenericParam("T")
	if !in.ContainsGenericParam(in.Seq(tp)) {
		t.Fatalf("seq[T] mentions a generic parameter")
	}
	if in.ContainsGenericParam(in.Seq(in.Builtins().Int)) {
		t.Fatalf("seq[int] is concrete")
	}
}
