// Package driver is the text-in, text-out entry point: it parses a bundled
// script, runs the reconstruction pass and prints the result.
package driver

import (
	"context"
	stderrors "errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"debundle/pkg/errors"
	"debundle/pkg/parser"
	"debundle/pkg/printer"
	"debundle/pkg/reconstruct"
	"debundle/pkg/source"
)

// Options configures one Transform call.
type Options struct {
	Parser      []parser.Option
	Reconstruct []reconstruct.Option
}

// Result is the outcome of transforming one source file.
type Result struct {
	Source   *source.SourceFile
	Output   string
	Report   *reconstruct.Report
	Duration time.Duration
}

// Transform parses src, reconstructs it and prints the rewritten program.
//
// A fatal reconstruction error comes back as *errors.TransformError with
// its position bound to src, so errors.DisplayErrors can show the line.
func Transform(ctx context.Context, src *source.SourceFile, opts Options) (*Result, error) {
	start := time.Now()
	arena, root, err := parser.New(opts.Parser...).Parse(ctx, src)
	if err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	report, err := reconstruct.Run(arena, root, opts.Reconstruct...)
	if err != nil {
		var terr *errors.TransformError
		if stderrors.As(err, &terr) && terr.Source == nil {
			terr.Source = src
		}
		return nil, err
	}

	return &Result{
		Source:   src,
		Output:   printer.Print(arena, root),
		Report:   report,
		Duration: time.Since(start),
	}, nil
}

// TransformString is Transform for in-memory code.
func TransformString(ctx context.Context, code string, opts Options) (string, error) {
	res, err := Transform(ctx, source.NewStdinSource(code), opts)
	if err != nil {
		return "", err
	}
	return res.Output, nil
}

// TransformFile reads filename and transforms its content.
func TransformFile(ctx context.Context, filename string, opts Options) (*Result, error) {
	content, err := os.ReadFile(filename)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", filename, err)
	}
	return Transform(ctx, source.FromFile(filename, string(content)), opts)
}

// WriteFile transforms inputFilename and writes the result to
// outputFilename, which defaults to the input path with a .jsx extension.
func WriteFile(ctx context.Context, inputFilename, outputFilename string, opts Options) (*Result, error) {
	if outputFilename == "" {
		outputFilename = source.OutputName(inputFilename, ".jsx")
	}
	res, err := TransformFile(ctx, inputFilename, opts)
	if err != nil {
		return nil, err
	}
	if dir := filepath.Dir(outputFilename); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create output directory: %w", err)
		}
	}
	if err := os.WriteFile(outputFilename, []byte(res.Output), 0o644); err != nil {
		return nil, fmt.Errorf("write %s: %w", outputFilename, err)
	}
	return res, nil
}

// Positioned extracts the positioned errors from err for DisplayErrors.
// Errors without a position are returned as a nil slice.
func Positioned(err error) []errors.DebundleError {
	var out []errors.DebundleError
	var syn *errors.SyntaxError
	if stderrors.As(err, &syn) {
		out = append(out, syn)
	}
	var terr *errors.TransformError
	if stderrors.As(err, &terr) {
		out = append(out, terr)
	}
	return out
}

// Describe renders err as a single line, prefixed with the file's display
// path when the error carries a position.
func Describe(src *source.SourceFile, err error) string {
	for _, e := range Positioned(err) {
		pos := e.Pos()
		if pos.IsZero() {
			break
		}
		var b strings.Builder
		if src != nil {
			b.WriteString(src.DisplayPath())
			b.WriteString(":")
		}
		fmt.Fprintf(&b, "%d:%d: %s", pos.Line, pos.Column, e.Message())
		return b.String()
	}
	return err.Error()
}
