// Package ux renders batch tallies and file errors for the terminal.
package ux

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-isatty"

	"debundle/pkg/batch"
	"debundle/pkg/driver"
	"debundle/pkg/reconstruct"
	"debundle/pkg/source"
)

var (
	ColorSuccess = lipgloss.Color("#2CD7C7")
	ColorWarning = lipgloss.Color("#F4D03F")
	ColorError   = lipgloss.Color("#E74C3C")
	ColorMuted   = lipgloss.Color("#5C7A84")
)

const (
	IconSuccess = "✓"
	IconError   = "✗"
	IconWarning = "⚠"
)

type styles struct {
	Bold    lipgloss.Style
	Muted   lipgloss.Style
	Success lipgloss.Style
	Warning lipgloss.Style
	Error   lipgloss.Style
}

func plainStyles() styles {
	s := lipgloss.NewStyle()
	return styles{Bold: s, Muted: s, Success: s, Warning: s, Error: s}
}

func colorStyles(r *lipgloss.Renderer) styles {
	return styles{
		Bold:    r.NewStyle().Bold(true),
		Muted:   r.NewStyle().Foreground(ColorMuted),
		Success: r.NewStyle().Foreground(ColorSuccess),
		Warning: r.NewStyle().Foreground(ColorWarning),
		Error:   r.NewStyle().Foreground(ColorError).Bold(true),
	}
}

// Printer writes styled output to w.
type Printer struct {
	w      io.Writer
	styles styles
}

// NewPrinter returns a Printer that uses color only when w is a terminal.
func NewPrinter(w io.Writer) *Printer {
	return NewPrinterWithColor(w, IsTerminal(w))
}

// NewPrinterWithColor returns a Printer with color forced on or off.
func NewPrinterWithColor(w io.Writer, color bool) *Printer {
	p := &Printer{w: w, styles: plainStyles()}
	if color {
		p.styles = colorStyles(lipgloss.NewRenderer(w))
	}
	return p
}

// IsTerminal reports whether w is a terminal file and NO_COLOR is unset.
func IsTerminal(w io.Writer) bool {
	if os.Getenv("NO_COLOR") != "" {
		return false
	}
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}

// Tally prints the failures of a run followed by a summary.
func (p *Printer) Tally(t *batch.Tally) {
	for _, res := range t.Failed {
		p.FileError(res.RelPath, res.Err)
	}

	s := p.styles
	var b strings.Builder
	b.WriteString(s.Success.Render(fmt.Sprintf("%s %d transformed", IconSuccess, len(t.Succeeded))))
	if len(t.Failed) > 0 {
		b.WriteString("  ")
		b.WriteString(s.Error.Render(fmt.Sprintf("%s %d failed", IconError, len(t.Failed))))
	}
	b.WriteString(s.Muted.Render(fmt.Sprintf("  in %s", t.Duration.Round(time.Millisecond))))
	if t.RunID != "" {
		b.WriteString(s.Muted.Render(fmt.Sprintf("  (run %s)", shortID(t.RunID))))
	}
	fmt.Fprintln(p.w, b.String())
	fmt.Fprintln(p.w, "  "+p.Report(t.Totals()))
}

// Report formats the counters of a reconstruction report on one line.
func (p *Printer) Report(r *reconstruct.Report) string {
	s := p.styles
	field := func(name string, n int) string {
		return s.Muted.Render(name) + " " + s.Bold.Render(fmt.Sprint(n))
	}
	parts := []string{
		field("elements", r.Elements),
		field("imports", r.Imports),
		field("exports", r.Exports),
		field("classes", classCount(r)),
		field("booleans", r.Booleans),
		field("indirect calls", r.IndirectCalls),
	}
	line := strings.Join(parts, "  ")
	if kinds := classBreakdown(r); kinds != "" {
		line += s.Muted.Render(" [" + kinds + "]")
	}
	if r.Diagnostics > 0 {
		line += "  " + s.Warning.Render(fmt.Sprintf("%s %d markup calls skipped", IconWarning, r.Diagnostics))
	}
	return line
}

// FileError prints one file failure with its position when known.
func (p *Printer) FileError(relPath string, err error) {
	fmt.Fprintln(p.w, p.styles.Error.Render(IconError)+" "+Describe(relPath, err))
}

// Describe formats err as "path:line:col: message", or "path: message"
// when err carries no position.
func Describe(relPath string, err error) string {
	msg := driver.Describe(&source.SourceFile{RelPath: relPath}, err)
	if relPath != "" && !strings.HasPrefix(msg, relPath+":") {
		msg = relPath + ": " + msg
	}
	return msg
}

func classCount(r *reconstruct.Report) int {
	n := 0
	for enc, c := range r.Classes {
		if enc != reconstruct.ClassInvalid {
			n += c
		}
	}
	return n
}

func classBreakdown(r *reconstruct.Report) string {
	var parts []string
	for _, enc := range []reconstruct.ClassEncoding{
		reconstruct.ClassPlain,
		reconstruct.ClassParenthesized,
		reconstruct.ClassPrototypeAlias,
		reconstruct.ClassNewWrapped,
	} {
		if n := r.Classes[enc]; n > 0 {
			parts = append(parts, fmt.Sprintf("%s %d", enc, n))
		}
	}
	return strings.Join(parts, ", ")
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
