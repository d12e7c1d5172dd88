package errors

import "debundle/pkg/source"

// Position represents a specific location in the source code.
// Line and Column are 1-based for human readability; Offset is the 0-based
// byte offset for tooling.
type Position struct {
	Line   int
	Column int
	Offset int
	Source *source.SourceFile
}

// IsZero reports whether the position carries no location.
func (p Position) IsZero() bool { return p.Line == 0 }
