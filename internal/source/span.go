package source

import (
	"fmt"
)

// Span locates a node of the typed tree in its originating file.
// Line and Col are 1-based; the zero Span means "unknown".
type Span struct {
	File FileID
	Line uint32
	Col  uint32
}

// Unknown reports whether the span carries no position.
func (s Span) Unknown() bool {
	return s.Line == 0
}

func (s Span) String() string {
	if s.Unknown() {
		return "?"
	}
	return fmt.Sprintf("%d:%d:%d", s.File, s.Line, s.Col)
}

// Before orders spans by file, line and column.
func (s Span) Before(other Span) bool {
	if s.File != other.File {
		return s.File < other.File
	}
	if s.Line != other.Line {
		return s.Line < other.Line
	}
	return s.Col < other.Col
}

// Or returns s unless it is unknown, in which case fallback is returned.
func (s Span) Or(fallback Span) Span {
	if s.Unknown() {
		return fallback
	}
	return s
}
