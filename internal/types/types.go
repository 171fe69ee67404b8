// Package types holds the semantic type table consumed by the destructor pass.
//
// Types are interned: structural descriptors (seq, ref, array, tuple, ...)
// get one TypeID per shape, nominal ones (objects, distinct types, generic
// instances) get a fresh TypeID per registration.
package types

import "fmt"

// TypeID uniquely identifies a type inside the table.
type TypeID uint32

// NoTypeID marks the absence of a type (statements have no type).
const NoTypeID TypeID = 0

// Kind enumerates all supported kinds of types.
type Kind uint8

const (
	KindInvalid Kind = iota
	KindVoid
	KindBool
	KindInt
	KindFloat
	KindChar
	KindNil
	KindString
	KindSeq
	KindRef
	KindPtr
	KindVar
	KindOpenArray
	KindObject
	KindArray
	KindTuple
	KindProc
	KindClosure
	KindDistinct
	KindGenericInst
	KindGenericParam
)

func (k Kind) String() string {
	switch k {
	case KindInvalid:
		return "invalid"
	case KindVoid:
		return "void"
	case KindBool:
		return "bool"
	case KindInt:
		return "int"
	case KindFloat:
		return "float"
	case KindChar:
		return "char"
	case KindNil:
		return "nil"
	case KindString:
		return "string"
	case KindSeq:
		return "seq"
	case KindRef:
		return "ref"
	case KindPtr:
		return "ptr"
	case KindVar:
		return "var"
	case KindOpenArray:
		return "openArray"
	case KindObject:
		return "object"
	case KindArray:
		return "array"
	case KindTuple:
		return "tuple"
	case KindProc:
		return "proc"
	case KindClosure:
		return "closure"
	case KindDistinct:
		return "distinct"
	case KindGenericInst:
		return "generic-inst"
	case KindGenericParam:
		return "generic-param"
	default:
		return fmt.Sprintf("Kind(%d)", k)
	}
}

// Flags annotate a type descriptor.
type Flags uint8

const (
	// FlagAcyclic marks ref/object types the user declared as never forming cycles.
	FlagAcyclic Flags = 1 << iota
	// FlagConstSeq marks a seq literal type whose storage lives in read-only memory.
	FlagConstSeq
)

// Type is a compact descriptor for any supported type.
type Type struct {
	Kind    Kind
	Elem    TypeID // seq/ref/ptr/var/openArray/array element, distinct base, inst body, closure proc type
	Count   uint32 // array length
	Payload uint32 // slot in the per-kind info table (objects, tuples, procs, nominal names)
	Flags   Flags
}

// Has reports whether the flag is set.
func (t Type) Has(f Flags) bool {
	return t.Flags&f != 0
}

// Field describes a single object field.
type Field struct {
	Name   string
	Type   TypeID
	Cursor bool // non-owning alias, never destroyed nor moved
}

// Branch is one arm of an object variant: the discriminant values that select
// it and the indices of the payload fields it makes active.
type Branch struct {
	Values []int64
	Fields []int
}

// Variant describes the tagged part of an object.
type Variant struct {
	Discriminant int // field index of the tag
	Branches     []Branch
}

// ObjectInfo stores metadata for a nominal object type.
type ObjectInfo struct {
	Name    string
	Fields  []Field
	Variant *Variant
}

// Param describes one routine parameter as seen by callers.
type Param struct {
	Type TypeID
	Sink bool // callee takes ownership
	// CompileTime params are evaluated by the front end and left untouched.
	CompileTime bool
}

// ProcInfo stores the signature of a routine type.
type ProcInfo struct {
	Params []Param
	Result TypeID
	Raises bool
}

// InstInfo links a generic instance to its generic origin and concrete body.
type InstInfo struct {
	Name string
	Args []TypeID
}
