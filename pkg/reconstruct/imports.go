package reconstruct

import (
	"log/slog"
	"slices"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/dlclark/regexp2"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"debundle/pkg/ast"
)

// importStyle is the binding form an import declaration takes.
type importStyle int

const (
	importNamespace importStyle = iota // import * as X from "m"
	importDefault                      // import X from "m"
)

const runtimeHelpers = "@babel/runtime/helpers/"

var (
	defaultInterop   = regexp2.MustCompile(`interopRequireDefault$`, regexp2.None)
	namespaceInterop = regexp2.MustCompile(`interopRequireWildcard$`, regexp2.None)
	upper            = cases.Upper(language.Und)
)

// wrapperStyle recognizes a declared interop wrapper by its body: a
// leading `return obj && obj.__esModule ? obj : {default: obj}` marks the
// default form, a leading `if (obj && obj.__esModule)` the namespace form.
func (p *pass) wrapperStyle(fn *ast.Function) (importStyle, bool) {
	if len(fn.Params) == 0 {
		return 0, false
	}
	body, ok := ast.As[*ast.Block](p.arena, fn.Body)
	if !ok || len(body.Body) == 0 {
		return 0, false
	}
	switch n := p.arena.Get(body.Body[0]).(type) {
	case *ast.Return:
		if len(body.Body) == 1 && p.arena.KindOf(p.strip(n.Arg)) == ast.KindConditional {
			return importDefault, true
		}
	case *ast.If:
		if p.arena.KindOf(p.strip(n.Test)) == ast.KindLogical {
			return importNamespace, true
		}
	}
	return 0, false
}

// reconstructImport turns a top-level `var x = require("m")`, optionally
// wrapped in interop helpers, into an import declaration.
func (p *pass) reconstructImport(id ast.NodeID, d *ast.Declarator, stack []ast.NodeID) {
	parent, grand := parentOf(stack), grandparentOf(stack)
	if p.arena.KindOf(grand) != ast.KindProgram {
		return
	}
	decl, ok := ast.As[*ast.VarDecl](p.arena, parent)
	if !ok {
		return
	}
	local, ok := p.identName(d.ID)
	if !ok {
		return
	}
	module, style, ok := p.loadOf(d.Init, importNamespace, 0)
	if !ok || strings.HasPrefix(module, runtimeHelpers) {
		return
	}

	name := p.importName(local)
	if name != local {
		p.renames[local] = name
	}
	if style == importDefault {
		p.defaultBindings[local] = true
		p.defaultBindings[name] = true
	}

	kind := ast.SpecNamespace
	if style == importDefault {
		kind = ast.SpecDefault
	}
	spec := p.arena.New(&ast.ImportSpec{SpecKind: kind, Local: p.arena.NewIdent(name)})
	imp := p.arena.New(&ast.ImportDecl{Specifiers: []ast.NodeID{spec}, Source: p.arena.NewString(module)})
	p.arena.SetPos(imp, p.arena.PosOf(parent))
	p.pendingImports = append(p.pendingImports, imp)

	if len(decl.Decls) == 1 {
		p.removeStatement(parent)
	} else {
		decl.Decls = slices.DeleteFunc(decl.Decls, func(x ast.NodeID) bool { return x == id })
		p.touch()
	}
	p.report.Imports++
	p.logger.Debug("import reconstructed",
		slog.String("module", module),
		slog.String("binding", name),
	)
}

// reconstructBareImport turns a top-level `require("m");` statement into
// `import "m";`.
func (p *pass) reconstructBareImport(id ast.NodeID, s *ast.ExprStmt, stack []ast.NodeID) bool {
	if p.arena.KindOf(parentOf(stack)) != ast.KindProgram {
		return false
	}
	call, ok := ast.As[*ast.Call](p.arena, p.strip(s.Expr))
	if !ok {
		return false
	}
	module, ok := p.requireOf(call)
	if !ok || strings.HasPrefix(module, runtimeHelpers) {
		return false
	}
	imp := p.arena.New(&ast.ImportDecl{Source: p.arena.NewString(module)})
	p.pendingImports = append(p.pendingImports, imp)
	p.removeStatement(id)
	p.report.Imports++
	return true
}

// loadOf unwraps up to two interop layers around a require call. The
// outermost wrapper decides the style.
func (p *pass) loadOf(init ast.NodeID, style importStyle, depth int) (string, importStyle, bool) {
	call, ok := ast.As[*ast.Call](p.arena, p.strip(init))
	if !ok {
		return "", 0, false
	}
	if module, ok := p.requireOf(call); ok {
		return module, style, true
	}
	if depth == 2 || len(call.Args) == 0 {
		return "", 0, false
	}
	wrapper, ok := p.wrapperName(call.Callee)
	if !ok {
		return "", 0, false
	}
	s, ok := p.wrappers[wrapper]
	if !ok {
		switch {
		case matches(defaultInterop, wrapper):
			s = importDefault
		case matches(namespaceInterop, wrapper):
			s = importNamespace
		default:
			return "", 0, false
		}
	}
	if depth == 0 {
		style = s
	}
	module, style, ok := p.loadOf(call.Args[0], style, depth+1)
	if ok {
		p.usedWrappers[wrapper] = true
	}
	return module, style, ok
}

// wrapperName names the helper called by `w(...)` or, for an imported
// helper, `w.default(...)`.
func (p *pass) wrapperName(callee ast.NodeID) (string, bool) {
	callee = p.strip(callee)
	if name, ok := p.identName(callee); ok {
		return name, true
	}
	if obj, ok := p.member(callee, "default"); ok {
		return p.identName(obj)
	}
	return "", false
}

// requireOf matches `require("m")` and returns m.
func (p *pass) requireOf(call *ast.Call) (string, bool) {
	if !p.isIdent(p.strip(call.Callee), "require") || len(call.Args) != 1 {
		return "", false
	}
	return p.stringValue(call.Args[0])
}

// importName derives the binding name for an import. Alias exceptions win;
// otherwise one leading underscore is dropped and the first letter
// upper-cased.
func (p *pass) importName(local string) string {
	name, ok := p.opts.AliasExceptions[local]
	if !ok {
		name = local
		if len(name) > 1 && name[0] == '_' {
			name = name[1:]
		}
		r, size := utf8.DecodeRuneInString(name)
		name = upper.String(string(r)) + name[size:]
	}
	if name == local {
		return name
	}
	return p.freshName(name)
}

// freshName returns name, or name with a numeric suffix when it is already
// used in the file, and marks the result as used.
func (p *pass) freshName(name string) string {
	candidate := name
	for i := 2; p.usedNames[candidate]; i++ {
		candidate = name + strconv.Itoa(i)
	}
	p.usedNames[candidate] = true
	return candidate
}

// removeUnusedWrappers deletes interop helpers that no longer have
// callers: top-level wrapper declarations and the runtime helper requires
// they were loaded from.
func (p *pass) removeUnusedWrappers() {
	prog, ok := ast.As[*ast.Program](p.arena, p.root)
	if !ok || len(p.usedWrappers) == 0 {
		return
	}
	for _, stmt := range prog.Body {
		var name string
		switch n := p.arena.Get(stmt).(type) {
		case *ast.Function:
			name, _ = p.identName(n.ID)
		case *ast.VarDecl:
			if len(n.Decls) != 1 {
				continue
			}
			d, _ := ast.As[*ast.Declarator](p.arena, n.Decls[0])
			call, ok := ast.As[*ast.Call](p.arena, p.strip(d.Init))
			if !ok {
				continue
			}
			if module, ok := p.requireOf(call); !ok || !strings.HasPrefix(module, runtimeHelpers) {
				continue
			}
			name, _ = p.identName(d.ID)
		}
		if name == "" || !p.usedWrappers[name] {
			continue
		}
		// Every remaining reference sits in the declaration itself.
		if p.countRefs(p.root, name) == p.countRefs(stmt, name) {
			p.removeStatement(stmt)
		}
	}
}
