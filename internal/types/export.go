package types

import (
	"errors"
	"fmt"
	"slices"

	"fortio.org/safecast"
)

// Data is the flat form of a Table. Slot 0 of every slice is the invalid
// sentinel, exactly as NewTable lays it out.
type Data struct {
	Types   []Type       `msgpack:"types"`
	Objects []ObjectInfo `msgpack:"objects"`
	Tuples  [][]TypeID   `msgpack:"tuples"`
	Procs   []ProcInfo   `msgpack:"procs"`
	Insts   []InstInfo   `msgpack:"insts"`
	Names   []string     `msgpack:"names"`
}

// Export copies the table into its flat form.
func (in *Table) Export() Data {
	d := Data{
		Types:   slices.Clone(in.types),
		Objects: make([]ObjectInfo, len(in.objects)),
		Tuples:  make([][]TypeID, len(in.tuples)),
		Procs:   make([]ProcInfo, len(in.procs)),
		Insts:   make([]InstInfo, len(in.insts)),
		Names:   slices.Clone(in.names),
	}
	for i, o := range in.objects {
		o.Fields = slices.Clone(o.Fields)
		if o.Variant != nil {
			v := *o.Variant
			v.Branches = slices.Clone(v.Branches)
			o.Variant = &v
		}
		d.Objects[i] = o
	}
	for i, t := range in.tuples {
		d.Tuples[i] = slices.Clone(t)
	}
	for i, p := range in.procs {
		p.Params = slices.Clone(p.Params)
		d.Procs[i] = p
	}
	for i, inst := range in.insts {
		inst.Args = slices.Clone(inst.Args)
		d.Insts[i] = inst
	}
	return d
}

var errBadTable = errors.New("types: malformed table data")

// FromData rebuilds a table from its flat form. Payload slots and element
// ids are checked so a corrupt unit fails here instead of in the pass.
func FromData(d Data) (*Table, error) {
	if len(d.Types) == 0 || d.Types[0].Kind != KindInvalid {
		return nil, fmt.Errorf("%w: missing invalid sentinel", errBadTable)
	}
	if len(d.Objects) == 0 || len(d.Tuples) == 0 || len(d.Procs) == 0 || len(d.Insts) == 0 || len(d.Names) == 0 {
		return nil, fmt.Errorf("%w: missing side-table sentinel", errBadTable)
	}
	in := &Table{
		types:   slices.Clone(d.Types),
		index:   make(map[typeKey]TypeID, len(d.Types)),
		objects: d.Objects,
		tuples:  d.Tuples,
		procs:   d.Procs,
		insts:   d.Insts,
		names:   d.Names,
	}
	var errs []error
	if _, err := safecast.Conv[uint32](len(in.types)); err != nil {
		return nil, fmt.Errorf("%w: %w", errBadTable, err)
	}
	for i, t := range in.types {
		id := TypeID(uint32(i)) //nolint:gosec // checked above
		if err := in.checkSlot(id, t); err != nil {
			errs = append(errs, err)
			continue
		}
		key := typeKey(t)
		if _, dup := in.index[key]; !dup {
			in.index[key] = id
		}
		in.noteBuiltin(id, t)
	}
	if err := errors.Join(errs...); err != nil {
		return nil, err
	}
	return in, nil
}

func (in *Table) checkSlot(id TypeID, t Type) error {
	inRange := func(n int) bool { return int(t.Payload) < n }
	switch t.Kind {
	case KindSeq, KindRef, KindPtr, KindVar, KindOpenArray, KindArray, KindClosure, KindDistinct, KindGenericInst:
		if int(t.Elem) >= len(in.types) {
			return fmt.Errorf("%w: type %d: element %d out of range", errBadTable, id, t.Elem)
		}
	}
	ok := true
	switch t.Kind {
	case KindObject:
		ok = inRange(len(in.objects))
	case KindTuple:
		ok = inRange(len(in.tuples))
	case KindProc:
		ok = inRange(len(in.procs))
	case KindGenericInst:
		ok = inRange(len(in.insts))
	case KindDistinct, KindGenericParam:
		ok = inRange(len(in.names))
	}
	if !ok {
		return fmt.Errorf("%w: type %d (%s): payload slot %d out of range", errBadTable, id, t.Kind, t.Payload)
	}
	return nil
}

func (in *Table) noteBuiltin(id TypeID, t Type) {
	if t.Flags != 0 {
		return
	}
	b := &in.builtins
	switch t.Kind {
	case KindVoid:
		b.Void = id
	case KindBool:
		b.Bool = id
	case KindInt:
		b.Int = id
	case KindFloat:
		b.Float = id
	case KindChar:
		b.Char = id
	case KindNil:
		b.Nil = id
	case KindString:
		b.String = id
	}
}
