// Package reconstruct rewrites a parsed bundle back into higher-level source
// constructs: markup elements, class declarations and ES module
// import/export statements.
//
// A single call to Run owns all of its state. Nothing is shared between
// calls, so independent files can be processed concurrently.
package reconstruct

import (
	"errors"
	"log/slog"

	"debundle/pkg/ast"
)

// ErrUnsupportedProps is wrapped by the fatal error raised when a markup
// props argument has a shape with no attribute form.
var ErrUnsupportedProps = errors.New("unsupported props expression")

// Options configures a reconstruction pass.
type Options struct {
	// Logger receives diagnostics. Defaults to a discarding logger.
	Logger *slog.Logger

	// AliasExceptions maps binding names to fixed import names, bypassing
	// the underscore-strip and capitalize rule.
	AliasExceptions map[string]string

	// HostObjects are receivers whose createElement method is a DOM call,
	// not a markup factory.
	HostObjects []string

	// UnwrapIndirectCalls rewrites `(0, obj.fn)(...)` to `obj.fn(...)`.
	UnwrapIndirectCalls bool

	// RestoreBooleans rewrites `!0` and `!1` to `true` and `false`.
	RestoreBooleans bool
}

// DefaultAliasExceptions returns the built-in binding name exceptions.
func DefaultAliasExceptions() map[string]string {
	return map[string]string{
		"_invariant": "invariant",
		"_lodash":    "_",
		"_moment":    "moment",
		"superagent": "superagent",
	}
}

// DefaultHostObjects returns the built-in DOM receivers.
func DefaultHostObjects() []string {
	return []string{"document", "ownerDocument", "window.document"}
}

// DefaultOptions returns the default options.
func DefaultOptions() Options {
	return Options{
		AliasExceptions:     DefaultAliasExceptions(),
		HostObjects:         DefaultHostObjects(),
		UnwrapIndirectCalls: true,
		RestoreBooleans:     true,
	}
}

// Option is a functional option for configuring Run.
type Option func(*Options)

// WithLogger sets the diagnostics logger.
func WithLogger(logger *slog.Logger) Option {
	return func(o *Options) {
		o.Logger = logger
	}
}

// WithAliasExceptions replaces the binding name exceptions.
func WithAliasExceptions(exceptions map[string]string) Option {
	return func(o *Options) {
		o.AliasExceptions = exceptions
	}
}

// WithHostObjects replaces the DOM receiver list.
func WithHostObjects(hosts []string) Option {
	return func(o *Options) {
		o.HostObjects = hosts
	}
}

// WithIndirectCallUnwrapping toggles `(0, fn)(...)` unwrapping.
func WithIndirectCallUnwrapping(enabled bool) Option {
	return func(o *Options) {
		o.UnwrapIndirectCalls = enabled
	}
}

// WithBooleanRestoration toggles `!0`/`!1` restoration.
func WithBooleanRestoration(enabled bool) Option {
	return func(o *Options) {
		o.RestoreBooleans = enabled
	}
}

// Report counts what a pass reconstructed.
type Report struct {
	Elements      int
	Classes       map[ClassEncoding]int
	Imports       int
	Exports       int
	Booleans      int
	IndirectCalls int
	// Diagnostics counts markup calls left alone because of their parent
	// shape or a conservative bail-out.
	Diagnostics int
}

// Total returns the number of constructs rewritten.
func (r *Report) Total() int {
	total := r.Elements + r.Imports + r.Exports
	for _, n := range r.Classes {
		total += n
	}
	return total
}

// Run reconstructs the program rooted at root in place.
//
// The only error Run returns is a fatal *errors.TransformError; every other
// pattern that fails to match is left as it was.
func Run(arena *ast.Arena, root ast.NodeID, opts ...Option) (*Report, error) {
	options := DefaultOptions()
	for _, opt := range opts {
		opt(&options)
	}
	if options.Logger == nil {
		options.Logger = slog.New(slog.DiscardHandler)
	}

	p := newPass(arena, root, options)
	w := &walker{p: p}
	if err := w.walk(root); err != nil {
		return nil, err
	}
	p.finish()
	return p.report, nil
}

// pass is the per-file context threaded through every detector.
type pass struct {
	arena  *ast.Arena
	root   ast.NodeID
	opts   Options
	logger *slog.Logger
	report *Report

	// version increases on every structural rewrite so the walker knows
	// when to re-check which children are still attached.
	version int

	renames         map[string]string // original binding -> import name
	defaultBindings map[string]bool   // default-style import names, both spellings
	usedNames       map[string]bool
	pendingImports  []ast.NodeID
	wrappers        map[string]importStyle // interop wrapper functions declared in the program
	usedWrappers    map[string]bool

	classes       map[string]*classCandidate
	customRuntime string
}

func newPass(arena *ast.Arena, root ast.NodeID, opts Options) *pass {
	p := &pass{
		arena:           arena,
		root:            root,
		opts:            opts,
		logger:          opts.Logger,
		report:          &Report{Classes: make(map[ClassEncoding]int)},
		renames:         make(map[string]string),
		defaultBindings: make(map[string]bool),
		usedNames:       make(map[string]bool),
		wrappers:        make(map[string]importStyle),
		usedWrappers:    make(map[string]bool),
		classes:         make(map[string]*classCandidate),
	}
	p.refs(root, func(_, _ ast.NodeID, ident *ast.Ident) {
		p.usedNames[ident.Name] = true
	})
	p.scanProgram()
	return p
}

// scanProgram records program-wide facts detectors consult: the custom
// markup factory and the interop wrappers.
func (p *pass) scanProgram() {
	prog, ok := ast.As[*ast.Program](p.arena, p.root)
	if !ok {
		return
	}
	for _, stmt := range prog.Body {
		fn, ok := ast.As[*ast.Function](p.arena, stmt)
		if !ok || !fn.Declaration {
			continue
		}
		name, ok := p.identName(fn.ID)
		if !ok {
			continue
		}
		if p.customRuntime == "" && p.isCustomRuntime(fn) {
			p.customRuntime = name
			p.logger.Debug("custom markup factory detected", slog.String("name", name))
		}
		if style, ok := p.wrapperStyle(fn); ok {
			p.wrappers[name] = style
		}
	}
}

// touch records a structural rewrite.
func (p *pass) touch() {
	p.version++
}

// replace swaps the node behind id.
func (p *pass) replace(id ast.NodeID, n ast.Node) {
	p.arena.Replace(id, n)
	p.touch()
}

// finish runs the whole-program steps that follow the traversal.
func (p *pass) finish() {
	p.applyRenames(p.root)
	if p.report.Exports > 0 {
		p.removeExportResidue()
	}
	p.removeUnusedWrappers()
	p.removeEmptyStatements(p.root)
	p.spliceImports()
}
