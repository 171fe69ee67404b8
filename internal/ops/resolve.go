package ops

import (
	"errors"

	"dtorpass/internal/ir"
	"dtorpass/internal/source"
	"dtorpass/internal/types"
)

// Resolve returns the operator implementing kind for typ.
//
// Order: an explicit "unavailable" marker wins; then a user operator; a
// generic user operator or a missing one falls back to the canonical type;
// finally the operator is synthesized and cached. Errors are *OpError
// wrapping one of the package sentinels.
func (t *Table) Resolve(typ types.TypeID, kind Kind) (*ir.Symbol, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.resolve(typ, kind, make(map[key]bool))
}

func (t *Table) resolve(typ types.TypeID, kind Kind, visiting map[key]bool) (*ir.Symbol, error) {
	if _, ok := t.types.Lookup(typ); !ok {
		return nil, t.fail(typ, kind, ErrMissing)
	}
	k := key{typ, kind}
	if t.disabled[k] {
		return nil, t.fail(typ, kind, ErrUnavailable)
	}
	canon := t.types.Canonical(typ)
	if op := t.user[k]; op != nil {
		if !op.Has(ir.SymGenericOp) {
			return op, nil
		}
		if canon != typ {
			if cop, err := t.resolve(canon, kind, visiting); err == nil {
				return cop, nil
			}
		}
		return nil, t.fail(typ, kind, ErrGeneric)
	}
	if canon != typ {
		return t.resolve(canon, kind, visiting)
	}
	if !t.needsLifecycle(typ, make(map[types.TypeID]bool)) {
		return nil, t.fail(typ, kind, ErrTrivial)
	}
	if t.types.ContainsGenericParam(typ) {
		return nil, t.fail(typ, kind, ErrGeneric)
	}
	if op := t.synth[k]; op != nil {
		return op, nil
	}
	if visiting[k] {
		// recursive through a seq; the outer frame synthesizes
		return nil, nil
	}
	visiting[k] = true
	for _, part := range t.parts(typ) {
		if !t.needsLifecycle(part, make(map[types.TypeID]bool)) {
			continue
		}
		if _, err := t.resolve(part, kind, visiting); err != nil && !errors.Is(err, ErrTrivial) {
			return nil, t.fail(typ, kind, err)
		}
	}
	op := t.ids.NewSymbol(ir.SymProc, kind.String(), nil, types.NoTypeID, source.Span{})
	op.Flags |= ir.SymGenerated
	t.synth[k] = op
	return op, nil
}

// parts lists the types whose operators a synthesized operator calls.
// Refs and closures stop the walk: their operators only touch the count.
func (t *Table) parts(typ types.TypeID) []types.TypeID {
	if tt, ok := t.types.Lookup(typ); ok && tt.Kind == types.KindSeq {
		return []types.TypeID{tt.Elem}
	}
	return t.types.Components(typ)
}

func (t *Table) hasUser(typ types.TypeID) bool {
	for _, kind := range []Kind{Destroy, Copy, Sink} {
		if t.user[key{typ, kind}] != nil {
			return true
		}
	}
	return false
}

func (t *Table) needsLifecycle(typ types.TypeID, seen map[types.TypeID]bool) bool {
	if v, ok := t.lifetime[typ]; ok {
		return v
	}
	if seen[typ] {
		return false
	}
	seen[typ] = true
	v := t.hasUser(typ) || t.types.OwnsHeap(typ)
	if !v {
		for _, part := range t.parts(typ) {
			if t.needsLifecycle(part, seen) {
				v = true
				break
			}
		}
	}
	t.lifetime[typ] = v
	return v
}

// HasDestructor reports whether values of typ need a destroy call, directly
// or through any field or element.
func (t *Table) HasDestructor(typ types.TypeID) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.needsLifecycle(typ, make(map[types.TypeID]bool))
}

// CanMove reports whether values of typ may be sunk rather than copied.
func (t *Table) CanMove(typ types.TypeID) bool {
	_, err := t.Resolve(typ, Sink)
	return !errors.Is(err, ErrUnavailable)
}

// IsUserDefined reports whether kind on typ (or its canonical type) is a
// user-overridden operator.
func (t *Table) IsUserDefined(typ types.TypeID, kind Kind) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	for _, id := range []types.TypeID{typ, t.types.Canonical(typ)} {
		if op := t.user[key{id, kind}]; op != nil && op.Has(ir.SymOverridden) {
			return true
		}
	}
	return false
}

// BranchDestroy returns the operator destroying the payload fields of the
// active variant of obj.
func (t *Table) BranchDestroy(obj types.TypeID) (*ir.Symbol, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	obj = t.types.Canonical(obj)
	info, ok := t.types.Object(obj)
	if !ok || info.Variant == nil {
		return nil, t.fail(obj, Destroy, ErrMissing)
	}
	if op := t.branch[obj]; op != nil {
		return op, nil
	}
	op := t.ids.NewSymbol(ir.SymProc, "=destroyBranch", nil, types.NoTypeID, source.Span{})
	op.Flags |= ir.SymGenerated
	t.branch[obj] = op
	return op, nil
}
