package types

import (
	"fmt"
	"slices"
	"strings"

	"fortio.org/safecast"
)

// Builtins stores TypeIDs for common primitive types.
type Builtins struct {
	Invalid TypeID
	Void    TypeID
	Bool    TypeID
	Int     TypeID
	Float   TypeID
	Char    TypeID
	Nil     TypeID
	String  TypeID
}

// Table provides stable TypeIDs by hashing structural descriptors.
type Table struct {
	types    []Type
	index    map[typeKey]TypeID
	builtins Builtins
	objects  []ObjectInfo
	tuples   [][]TypeID
	procs    []ProcInfo
	insts    []InstInfo
	names    []string // distinct and generic-param names
}

type typeKey struct {
	Kind    Kind
	Elem    TypeID
	Count   uint32
	Payload uint32
	Flags   Flags
}

// NewTable constructs a table seeded with built-in primitives.
func NewTable() *Table {
	in := &Table{
		index: make(map[typeKey]TypeID, 64),
	}
	// reserve slot 0 of every side table as invalid sentinel
	in.objects = append(in.objects, ObjectInfo{})
	in.tuples = append(in.tuples, nil)
	in.procs = append(in.procs, ProcInfo{})
	in.insts = append(in.insts, InstInfo{})
	in.names = append(in.names, "")
	in.builtins.Invalid = in.internRaw(Type{Kind: KindInvalid})
	in.builtins.Void = in.Intern(Type{Kind: KindVoid})
	in.builtins.Bool = in.Intern(Type{Kind: KindBool})
	in.builtins.Int = in.Intern(Type{Kind: KindInt})
	in.builtins.Float = in.Intern(Type{Kind: KindFloat})
	in.builtins.Char = in.Intern(Type{Kind: KindChar})
	in.builtins.Nil = in.Intern(Type{Kind: KindNil})
	in.builtins.String = in.Intern(Type{Kind: KindString})
	return in
}

// Builtins returns TypeIDs for primitive types.
func (in *Table) Builtins() Builtins {
	return in.builtins
}

// Len returns the number of allocated TypeIDs including the invalid sentinel.
func (in *Table) Len() int {
	return len(in.types)
}

// Intern ensures the provided descriptor has a stable TypeID.
func (in *Table) Intern(t Type) TypeID {
	if t.Kind == KindInvalid {
		return NoTypeID
	}
	key := typeKey(t)
	if id, ok := in.index[key]; ok {
		return id
	}
	return in.internRaw(t)
}

// internRaw adds the descriptor to the storage without consulting the map.
func (in *Table) internRaw(t Type) TypeID {
	lenTypes, err := safecast.Conv[uint32](len(in.types))
	if err != nil {
		panic(fmt.Errorf("len(types) overflow: %w", err))
	}
	id := TypeID(lenTypes)
	in.types = append(in.types, t)
	in.index[typeKey(t)] = id
	return id
}

func slotOf(n int) uint32 {
	slot, err := safecast.Conv[uint32](n - 1)
	if err != nil {
		panic(fmt.Errorf("type info slot overflow: %w", err))
	}
	return slot
}

// Lookup returns the descriptor for a TypeID.
func (in *Table) Lookup(id TypeID) (Type, bool) {
	if id == NoTypeID || int(id) >= len(in.types) {
		return Type{}, false
	}
	return in.types[id], true
}

// MustLookup panics when id is invalid.
func (in *Table) MustLookup(id TypeID) Type {
	tt, ok := in.Lookup(id)
	if !ok {
		panic("types: invalid TypeID")
	}
	return tt
}

// KindOf returns the kind of id, KindInvalid for unknown ids.
func (in *Table) KindOf(id TypeID) Kind {
	tt, _ := in.Lookup(id)
	return tt.Kind
}

// Seq describes a growable heap-owned sequence.
func (in *Table) Seq(elem TypeID) TypeID {
	return in.Intern(Type{Kind: KindSeq, Elem: elem})
}

// ConstSeq describes a seq literal living in read-only memory.
func (in *Table) ConstSeq(elem TypeID) TypeID {
	return in.Intern(Type{Kind: KindSeq, Elem: elem, Flags: FlagConstSeq})
}

// Ref describes a reference-counted heap box.
func (in *Table) Ref(elem TypeID) TypeID {
	return in.Intern(Type{Kind: KindRef, Elem: elem})
}

// AcyclicRef describes a ref that is declared never to participate in cycles.
func (in *Table) AcyclicRef(elem TypeID) TypeID {
	return in.Intern(Type{Kind: KindRef, Elem: elem, Flags: FlagAcyclic})
}

// Ptr describes an untraced raw pointer.
func (in *Table) Ptr(elem TypeID) TypeID {
	return in.Intern(Type{Kind: KindPtr, Elem: elem})
}

// Var describes a by-reference parameter type.
func (in *Table) Var(elem TypeID) TypeID {
	return in.Intern(Type{Kind: KindVar, Elem: elem})
}

// OpenArray describes a borrowed view over contiguous elements.
func (in *Table) OpenArray(elem TypeID) TypeID {
	return in.Intern(Type{Kind: KindOpenArray, Elem: elem})
}

// Array describes a fixed-size array.
func (in *Table) Array(elem TypeID, count uint32) TypeID {
	return in.Intern(Type{Kind: KindArray, Elem: elem, Count: count})
}

// Tuple describes an anonymous product type; equal element lists share an id.
func (in *Table) Tuple(elems ...TypeID) TypeID {
	for id := TypeID(1); int(id) < len(in.types); id++ {
		tt := in.types[id]
		if tt.Kind == KindTuple && slices.Equal(in.tuples[tt.Payload], elems) {
			return id
		}
	}
	in.tuples = append(in.tuples, slices.Clone(elems))
	return in.internRaw(Type{Kind: KindTuple, Payload: slotOf(len(in.tuples))})
}

// Proc allocates a routine type.
func (in *Table) Proc(info ProcInfo) TypeID {
	info.Params = slices.Clone(info.Params)
	in.procs = append(in.procs, info)
	return in.internRaw(Type{Kind: KindProc, Payload: slotOf(len(in.procs))})
}

// Closure describes a (routine, environment) pair for the given proc type.
func (in *Table) Closure(proc TypeID) TypeID {
	return in.Intern(Type{Kind: KindClosure, Elem: proc})
}

// Distinct allocates a nominal copy of base.
func (in *Table) Distinct(name string, base TypeID) TypeID {
	in.names = append(in.names, name)
	return in.internRaw(Type{Kind: KindDistinct, Elem: base, Payload: slotOf(len(in.names))})
}

// GenericParam allocates an unresolved generic parameter type.
func (in *Table) GenericParam(name string) TypeID {
	in.names = append(in.names, name)
	return in.internRaw(Type{Kind: KindGenericParam, Payload: slotOf(len(in.names))})
}

// Instance registers a generic instantiation whose concrete layout is body.
func (in *Table) Instance(name string, args []TypeID, body TypeID) TypeID {
	in.insts = append(in.insts, InstInfo{Name: name, Args: slices.Clone(args)})
	return in.internRaw(Type{Kind: KindGenericInst, Elem: body, Payload: slotOf(len(in.insts))})
}

// RegisterObject allocates a nominal object type slot and returns its TypeID.
func (in *Table) RegisterObject(name string, fields ...Field) TypeID {
	in.objects = append(in.objects, ObjectInfo{Name: name, Fields: slices.Clone(fields)})
	return in.internRaw(Type{Kind: KindObject, Payload: slotOf(len(in.objects))})
}

// SetFields replaces the fields of an object type. Used for recursive types
// whose field types refer back to the object.
func (in *Table) SetFields(obj TypeID, fields ...Field) {
	if info := in.objectInfo(obj); info != nil {
		info.Fields = slices.Clone(fields)
	}
}

// SetVariant attaches a tagged part to an object type.
func (in *Table) SetVariant(obj TypeID, v Variant) {
	info := in.objectInfo(obj)
	if info == nil {
		return
	}
	v.Branches = slices.Clone(v.Branches)
	info.Variant = &v
}

// MarkAcyclic sets FlagAcyclic on an object type.
func (in *Table) MarkAcyclic(obj TypeID) {
	if int(obj) < len(in.types) && in.types[obj].Kind == KindObject {
		in.types[obj].Flags |= FlagAcyclic
	}
}

func (in *Table) objectInfo(id TypeID) *ObjectInfo {
	tt, ok := in.Lookup(id)
	if !ok || tt.Kind != KindObject || int(tt.Payload) >= len(in.objects) {
		return nil
	}
	return &in.objects[tt.Payload]
}

// Object returns metadata for the provided object TypeID.
func (in *Table) Object(id TypeID) (*ObjectInfo, bool) {
	info := in.objectInfo(id)
	return info, info != nil
}

// TupleElems returns the element types of a tuple.
func (in *Table) TupleElems(id TypeID) []TypeID {
	tt, ok := in.Lookup(id)
	if !ok || tt.Kind != KindTuple {
		return nil
	}
	return in.tuples[tt.Payload]
}

// ProcInfo returns the signature of a proc type; closures resolve to their proc.
func (in *Table) ProcInfo(id TypeID) (*ProcInfo, bool) {
	tt, ok := in.Lookup(id)
	if ok && tt.Kind == KindClosure {
		tt, ok = in.Lookup(tt.Elem)
	}
	if !ok || tt.Kind != KindProc {
		return nil, false
	}
	return &in.procs[tt.Payload], true
}

// InstInfo returns metadata for a generic instance.
func (in *Table) InstInfo(id TypeID) (*InstInfo, bool) {
	tt, ok := in.Lookup(id)
	if !ok || tt.Kind != KindGenericInst {
		return nil, false
	}
	return &in.insts[tt.Payload], true
}

// Name returns the nominal name of objects, distinct types, generic params and instances.
func (in *Table) Name(id TypeID) string {
	tt, ok := in.Lookup(id)
	if !ok {
		return ""
	}
	switch tt.Kind {
	case KindObject:
		return in.objects[tt.Payload].Name
	case KindDistinct, KindGenericParam:
		return in.names[tt.Payload]
	case KindGenericInst:
		return in.insts[tt.Payload].Name
	}
	return ""
}

// String renders a type for diagnostics and dumps.
func (in *Table) String(id TypeID) string {
	tt, ok := in.Lookup(id)
	if !ok {
		return "<no type>"
	}
	switch tt.Kind {
	case KindSeq:
		return "seq[" + in.String(tt.Elem) + "]"
	case KindRef:
		return "ref " + in.String(tt.Elem)
	case KindPtr:
		return "ptr " + in.String(tt.Elem)
	case KindVar:
		return "var " + in.String(tt.Elem)
	case KindOpenArray:
		return "openArray[" + in.String(tt.Elem) + "]"
	case KindArray:
		return fmt.Sprintf("array[%d, %s]", tt.Count, in.String(tt.Elem))
	case KindTuple:
		parts := make([]string, 0, len(in.tuples[tt.Payload]))
		for _, e := range in.tuples[tt.Payload] {
			parts = append(parts, in.String(e))
		}
		return "(" + strings.Join(parts, ", ") + ")"
	case KindProc:
		return in.procString(tt.Payload)
	case KindClosure:
		return in.String(tt.Elem) + " {.closure.}"
	case KindObject, KindDistinct, KindGenericParam:
		return in.Name(id)
	case KindGenericInst:
		info := in.insts[tt.Payload]
		args := make([]string, 0, len(info.Args))
		for _, a := range info.Args {
			args = append(args, in.String(a))
		}
		return info.Name + "[" + strings.Join(args, ", ") + "]"
	default:
		return tt.Kind.String()
	}
}

func (in *Table) procString(slot uint32) string {
	info := in.procs[slot]
	var sb strings.Builder
	sb.WriteString("proc (")
	for i, p := range info.Params {
		if i > 0 {
			sb.WriteString(", ")
		}
		if p.Sink {
			sb.WriteString("sink ")
		}
		sb.WriteString(in.String(p.Type))
	}
	sb.WriteString(")")
	if info.Result != NoTypeID {
		sb.WriteString(": ")
		sb.WriteString(in.String(info.Result))
	}
	return sb.String()
}
