package source

import (
	"path/filepath"
	"strings"
)

// SourceFile is one unit of work: a bundled script and where it came from.
type SourceFile struct {
	Name    string // Display name (e.g., "bundle.js", "<stdin>")
	Path    string // Full file path (empty for stdin)
	RelPath string // Path relative to the batch input root (empty outside a batch)
	Content string
	lines   []string // Cached split lines (lazy initialization)
}

// NewSourceFile creates a new source file.
func NewSourceFile(name, path, content string) *SourceFile {
	return &SourceFile{
		Name:    name,
		Path:    path,
		Content: content,
	}
}

// NewStdinSource creates a source file for stdin input.
func NewStdinSource(content string) *SourceFile {
	return &SourceFile{
		Name:    "<stdin>",
		Content: content,
	}
}

// FromFile creates a SourceFile from a file path and content.
func FromFile(filePath, content string) *SourceFile {
	return NewSourceFile(filepath.Base(filePath), filePath, content)
}

// FromBatch creates a SourceFile for a file found under a batch input root.
func FromBatch(root, relPath, content string) *SourceFile {
	sf := FromFile(filepath.Join(root, relPath), content)
	sf.RelPath = relPath
	return sf
}

// Lines returns the source split into lines (cached).
func (sf *SourceFile) Lines() []string {
	if sf.lines == nil {
		sf.lines = strings.Split(sf.Content, "\n")
	}
	return sf.lines
}

// DisplayPath returns the best path for display (prefers RelPath, then Path,
// falls back to Name).
func (sf *SourceFile) DisplayPath() string {
	switch {
	case sf.RelPath != "":
		return sf.RelPath
	case sf.Path != "":
		return sf.Path
	}
	return sf.Name
}

// IsFile returns true if this represents an actual file (has a path).
func (sf *SourceFile) IsFile() bool {
	return sf.Path != ""
}

// OutputName maps a relative input path to its output path by swapping the
// extension, e.g. "app/main.js" with ".jsx" becomes "app/main.jsx".
func OutputName(relPath, ext string) string {
	return strings.TrimSuffix(relPath, filepath.Ext(relPath)) + ext
}
