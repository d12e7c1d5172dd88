package errors

import (
	"fmt"
	"io"
	"strings"
)

// DebundleError is the interface implemented by all positioned errors.
type DebundleError interface {
	error // Embed the standard error interface
	Pos() Position
	Kind() string // "Syntax" or "Transform"
	// Message returns the specific error message without position info.
	Message() string
	Unwrap() error // For error wrapping support (errors.Is/As)
}

// --- Concrete Error Types ---

// SyntaxError represents input the parser could not turn into a tree.
type SyntaxError struct {
	Position
	Msg   string
	Cause error // Underlying cause, if any
}

func (e *SyntaxError) Error() string {
	return fmt.Sprintf("Syntax Error at %d:%d: %s", e.Line, e.Column, e.Msg)
}
func (e *SyntaxError) Pos() Position   { return e.Position }
func (e *SyntaxError) Kind() string    { return "Syntax" }
func (e *SyntaxError) Message() string { return e.Msg }
func (e *SyntaxError) Unwrap() error   { return e.Cause }
func (e *SyntaxError) CausedBy(cause error) *SyntaxError {
	e.Cause = cause
	return e
}

// TransformError represents a reconstruction that had to abort the whole
// file, e.g. a props argument with no attribute form.
type TransformError struct {
	Position
	Msg   string
	Cause error // Underlying cause, if any
}

func (e *TransformError) Error() string {
	if e.Position.IsZero() {
		return fmt.Sprintf("Transform Error: %s", e.Msg)
	}
	return fmt.Sprintf("Transform Error at %d:%d: %s", e.Line, e.Column, e.Msg)
}
func (e *TransformError) Pos() Position   { return e.Position }
func (e *TransformError) Kind() string    { return "Transform" }
func (e *TransformError) Message() string { return e.Msg }
func (e *TransformError) Unwrap() error   { return e.Cause }
func (e *TransformError) CausedBy(cause error) *TransformError {
	e.Cause = cause
	return e
}

// --- Error Reporting ---

// DisplayErrors prints errors to w in a user-friendly format, including the
// source line and a position marker when the error carries one.
func DisplayErrors(w io.Writer, errs []DebundleError) {
	for _, err := range errs {
		pos := err.Pos()
		kind := err.Kind()
		msg := err.Message()

		var lines []string
		if pos.Source != nil {
			lines = pos.Source.Lines()
		}

		lineIdx := pos.Line - 1
		if lineIdx < 0 || lineIdx >= len(lines) {
			fmt.Fprintf(w, "%s Error: %s\n", kind, msg)
			continue
		}

		sourceLine := strings.TrimRight(lines[lineIdx], "\r\n\t ")
		if pos.Source.IsFile() {
			fmt.Fprintf(w, "%s:%d:%d: %s Error: %s\n", pos.Source.DisplayPath(), pos.Line, pos.Column, kind, msg)
		} else {
			fmt.Fprintf(w, "%s Error at %d:%d: %s\n", kind, pos.Line, pos.Column, msg)
		}
		fmt.Fprintf(w, "  %s\n", sourceLine)
		marker := strings.Repeat(" ", max(pos.Column-1, 0)) + "^"
		fmt.Fprintf(w, "  %s\n", marker)
		fmt.Fprintln(w)
	}
}
