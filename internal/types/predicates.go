package types

import "slices"

// Skip follows Elem while the kind of id is one of kinds.
func (in *Table) Skip(id TypeID, kinds ...Kind) TypeID {
	for {
		tt, ok := in.Lookup(id)
		if !ok || !slices.Contains(kinds, tt.Kind) {
			return id
		}
		id = tt.Elem
	}
}

// SkipAbstract strips distinct and generic-instance wrappers.
func (in *Table) SkipAbstract(id TypeID) TypeID {
	return in.Skip(id, KindDistinct, KindGenericInst)
}

// IsEmpty reports whether id is the type of a statement.
func (in *Table) IsEmpty(id TypeID) bool {
	k := in.KindOf(id)
	return k == KindInvalid || k == KindVoid
}

// IsConstSeq reports whether id is a seq literal living in read-only memory.
func (in *Table) IsConstSeq(id TypeID) bool {
	tt, ok := in.Lookup(in.SkipAbstract(id))
	return ok && tt.Kind == KindSeq && tt.Has(FlagConstSeq)
}

// Components lists the types whose lifecycle operators make up the
// lifecycle of id: object fields (cursor fields excluded), tuple and array
// elements, and the body of distinct/instance wrappers.
func (in *Table) Components(id TypeID) []TypeID {
	tt, ok := in.Lookup(id)
	if !ok {
		return nil
	}
	switch tt.Kind {
	case KindObject:
		info := in.objects[tt.Payload]
		out := make([]TypeID, 0, len(info.Fields))
		for _, f := range info.Fields {
			if !f.Cursor {
				out = append(out, f.Type)
			}
		}
		return out
	case KindTuple:
		return in.tuples[tt.Payload]
	case KindArray, KindDistinct, KindGenericInst:
		return []TypeID{tt.Elem}
	}
	return nil
}

// ContainsGenericParam reports whether id still mentions an unresolved generic parameter.
func (in *Table) ContainsGenericParam(id TypeID) bool {
	return in.containsGeneric(id, make(map[TypeID]bool))
}

func (in *Table) containsGeneric(id TypeID, seen map[TypeID]bool) bool {
	if seen[id] {
		return false
	}
	seen[id] = true
	tt, ok := in.Lookup(id)
	if !ok {
		return false
	}
	switch tt.Kind {
	case KindGenericParam:
		return true
	case KindSeq, KindRef, KindPtr, KindVar, KindOpenArray, KindClosure:
		return in.containsGeneric(tt.Elem, seen)
	}
	for _, c := range in.Components(id) {
		if in.containsGeneric(c, seen) {
			return true
		}
	}
	return false
}

// Cyclic reports whether values of id may participate in a reference cycle.
// Only refs and closures are candidates; an acyclic annotation on the ref or
// on its pointee object rules a type out.
func (in *Table) Cyclic(id TypeID) bool {
	tt, ok := in.Lookup(in.SkipAbstract(id))
	if !ok {
		return false
	}
	switch tt.Kind {
	case KindClosure:
		return true
	case KindRef:
		if tt.Has(FlagAcyclic) {
			return false
		}
		return in.canFormCycle(tt.Elem, make(map[TypeID]bool))
	}
	return false
}

func (in *Table) canFormCycle(id TypeID, seen map[TypeID]bool) bool {
	id = in.SkipAbstract(id)
	if seen[id] {
		return false
	}
	seen[id] = true
	tt, ok := in.Lookup(id)
	if !ok || tt.Has(FlagAcyclic) {
		return false
	}
	switch tt.Kind {
	case KindRef:
		return true
	case KindClosure:
		return true
	case KindSeq:
		return in.canFormCycle(tt.Elem, seen)
	}
	for _, c := range in.Components(id) {
		if in.canFormCycle(c, seen) {
			return true
		}
	}
	return false
}

// Canonical returns the type whose operators stand in for id when id has
// none of its own: generic instances collapse onto their concrete body.
// Distinct types keep their identity.
func (in *Table) Canonical(id TypeID) TypeID {
	return in.Skip(id, KindGenericInst)
}

// OwnsHeap reports the kinds with built-in lifecycle operators.
func (in *Table) OwnsHeap(id TypeID) bool {
	switch in.KindOf(id) {
	case KindSeq, KindString, KindRef, KindClosure:
		return true
	}
	return false
}
