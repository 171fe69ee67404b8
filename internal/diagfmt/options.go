package diagfmt

import (
	"os"
	"path/filepath"

	"dtorpass/internal/source"
)

// PathMode specifies how file paths are displayed.
type PathMode uint8

const (
	// PathModeAuto keeps short or relative paths and shortens long absolute ones to the basename.
	PathModeAuto PathMode = iota
	// PathModeAbsolute always uses absolute paths.
	PathModeAbsolute
	PathModeRelative
	PathModeBasename
)

// PrettyOpts configures pretty-printing of diagnostics.
type PrettyOpts struct {
	Color     bool
	PathMode  PathMode
	BaseDir   string // для PathModeRelative, по умолчанию рабочая директория
	ShowNotes bool
	// Short prints one line per diagnostic and drops the code title.
	Short bool
}

// JSONOpts configures JSON output of diagnostics.
type JSONOpts struct {
	PathMode     PathMode
	BaseDir      string
	Max          int // обрезка вывода, не Bag
	IncludeNotes bool
}

func formatPath(fs *source.FileSet, id source.FileID, mode PathMode, baseDir string) string {
	path := fs.Path(id)
	switch mode {
	case PathModeAbsolute:
		if abs, err := filepath.Abs(path); err == nil {
			return filepath.ToSlash(abs)
		}
	case PathModeRelative:
		if baseDir == "" {
			if wd, err := os.Getwd(); err == nil {
				baseDir = wd
			}
		}
		abs, err := filepath.Abs(path)
		if err != nil {
			return path
		}
		if rel, err := filepath.Rel(baseDir, abs); err == nil {
			return filepath.ToSlash(rel)
		}
	case PathModeBasename:
		return filepath.Base(path)
	case PathModeAuto:
		if len(path) >= 40 && filepath.IsAbs(path) {
			return filepath.Base(path)
		}
	}
	return path
}

func formatLocation(fs *source.FileSet, sp source.Span, mode PathMode, baseDir string) string {
	path := formatPath(fs, sp.File, mode, baseDir)
	if sp.Unknown() {
		return path
	}
	return path + ":" + itoa(sp.Line) + ":" + itoa(sp.Col)
}
