package ops

import (
	"errors"
	"fmt"

	"dtorpass/internal/types"
)

var (
	// ErrMissing: the type is unknown to the table, nothing can be resolved.
	ErrMissing = errors.New("operator not found")
	// ErrGeneric: only a generic operator exists and no concrete one stands in.
	ErrGeneric = errors.New("operator is generic")
	// ErrUnavailable: the type, or one of its components, disables the operation.
	ErrUnavailable = errors.New("operator is not available")
	// ErrTrivial: the type has no lifecycle, callers use plain assignment.
	ErrTrivial = errors.New("type has no lifecycle operators")
)

// OpError describes a failed resolution.
type OpError struct {
	Op       Kind
	Type     types.TypeID
	TypeName string
	Err      error
}

func (e *OpError) Error() string {
	return fmt.Sprintf("'%s' for type <%s>: %v", e.Op, e.TypeName, e.Err)
}

func (e *OpError) Unwrap() error {
	return e.Err
}

func (t *Table) fail(typ types.TypeID, kind Kind, err error) error {
	return &OpError{Op: kind, Type: typ, TypeName: t.types.String(typ), Err: err}
}
