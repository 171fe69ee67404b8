package source

import (
	"fmt"
	"path/filepath"

	"fortio.org/safecast"
)

// FileID uniquely identifies a source file within a FileSet.
type FileID uint32

// FileSet maps FileIDs carried by spans to file paths.
// The pass never reads file contents; the set only exists to print locations.
type FileSet struct {
	paths []string
	index map[string]FileID // path -> id
}

// NewFileSet creates a new empty FileSet.
func NewFileSet() *FileSet {
	return &FileSet{
		paths: make([]string, 0, 4),
		index: make(map[string]FileID),
	}
}

// Add registers path and returns its FileID. Adding a known path returns the existing id.
func (fileSet *FileSet) Add(path string) FileID {
	normalized := filepath.ToSlash(filepath.Clean(path))
	if id, ok := fileSet.index[normalized]; ok {
		return id
	}
	lenPaths, err := safecast.Conv[uint32](len(fileSet.paths))
	if err != nil {
		panic(fmt.Errorf("len paths overflow: %w", err))
	}
	id := FileID(lenPaths)
	fileSet.paths = append(fileSet.paths, normalized)
	fileSet.index[normalized] = id
	return id
}

// Path returns the registered path for id, or "<unknown>".
func (fileSet *FileSet) Path(id FileID) string {
	if fileSet == nil || int(id) >= len(fileSet.paths) {
		return "<unknown>"
	}
	return fileSet.paths[id]
}

// Paths returns the registered paths in FileID order.
func (fileSet *FileSet) Paths() []string {
	if fileSet == nil {
		return nil
	}
	return fileSet.paths
}

// Len returns the number of registered files.
func (fileSet *FileSet) Len() int {
	if fileSet == nil {
		return 0
	}
	return len(fileSet.paths)
}

// Format renders span as path:line:col.
func (fileSet *FileSet) Format(span Span) string {
	if span.Unknown() {
		return fileSet.Path(span.File)
	}
	return fmt.Sprintf("%s:%d:%d", fileSet.Path(span.File), span.Line, span.Col)
}
