package parser

import (
	"context"
	"errors"
	"fmt"
	"unicode/utf8"

	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/javascript"

	"debundle/pkg/ast"
	dberrors "debundle/pkg/errors"
	"debundle/pkg/source"
)

var (
	// ErrFileTooLarge is returned when the input exceeds MaxFileSize.
	ErrFileTooLarge = errors.New("file exceeds maximum parse size")
	// ErrInvalidContent is returned for input that is not valid UTF-8.
	ErrInvalidContent = errors.New("content is not valid UTF-8")
)

// Parser turns JavaScript source into an ast.Arena.
//
// Parsing is delegated to tree-sitter; the concrete syntax tree is then
// lowered into the arena's typed nodes. A Parser holds only options and is
// safe for concurrent use: every Parse call creates its own tree-sitter
// parser instance and its own arena.
type Parser struct {
	options Options
}

// Options configures Parser behavior.
type Options struct {
	// MaxFileSize is the maximum file size in bytes to parse.
	// Default: 32MB
	MaxFileSize int
}

// DefaultOptions returns the default options.
func DefaultOptions() Options {
	return Options{
		MaxFileSize: 32 * 1024 * 1024,
	}
}

// Option is a functional option for configuring Parser.
type Option func(*Options)

// WithMaxFileSize sets the maximum file size for parsing.
func WithMaxFileSize(size int) Option {
	return func(o *Options) {
		o.MaxFileSize = size
	}
}

// New creates a Parser with the given options.
func New(opts ...Option) *Parser {
	options := DefaultOptions()
	for _, opt := range opts {
		opt(&options)
	}
	return &Parser{options: options}
}

// Parse parses src into a fresh arena and returns the arena together with
// the handle of its Program node.
//
// Syntax errors in the input are reported as *errors.SyntaxError pointing at
// the first ERROR or MISSING node tree-sitter produced.
func (p *Parser) Parse(ctx context.Context, src *source.SourceFile) (*ast.Arena, ast.NodeID, error) {
	if err := ctx.Err(); err != nil {
		return nil, ast.NoNode, fmt.Errorf("parse canceled before start: %w", err)
	}

	content := []byte(src.Content)
	if len(content) > p.options.MaxFileSize {
		return nil, ast.NoNode, ErrFileTooLarge
	}
	if !utf8.Valid(content) {
		return nil, ast.NoNode, ErrInvalidContent
	}

	tsParser := sitter.NewParser()
	tsParser.SetLanguage(javascript.GetLanguage())

	tree, err := tsParser.ParseCtx(ctx, nil, content)
	if err != nil {
		return nil, ast.NoNode, fmt.Errorf("tree-sitter parse failed: %w", err)
	}
	defer tree.Close()

	if err := ctx.Err(); err != nil {
		return nil, ast.NoNode, fmt.Errorf("parse canceled after tree-sitter: %w", err)
	}

	root := tree.RootNode()
	if root.HasError() {
		bad := firstError(root)
		if bad == nil {
			bad = root
		}
		pt := bad.StartPoint()
		msg := fmt.Sprintf("unexpected %q", truncate(bad.Content(content), 40))
		if bad.IsMissing() {
			msg = fmt.Sprintf("missing %s", bad.Type())
		}
		return nil, ast.NoNode, &dberrors.SyntaxError{
			Position: dberrors.Position{
				Line:   int(pt.Row) + 1,
				Column: int(pt.Column) + 1,
				Offset: int(bad.StartByte()),
				Source: src,
			},
			Msg: msg,
		}
	}

	c := &converter{arena: ast.NewArena(), src: content}
	program := c.program(root)
	return c.arena, program, nil
}

// firstError returns the first ERROR or MISSING node in document order.
func firstError(n *sitter.Node) *sitter.Node {
	if n.Type() == "ERROR" || n.IsMissing() {
		return n
	}
	for i := 0; i < int(n.ChildCount()); i++ {
		child := n.Child(i)
		if child == nil || !(child.HasError() || child.IsMissing()) {
			continue
		}
		if found := firstError(child); found != nil {
			return found
		}
	}
	return nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
