package reconstruct

import (
	"context"
	"log/slog"
	"slices"

	"debundle/pkg/ast"
)

// walker drives one post-order traversal. stack holds the ancestors of the
// node being visited; its last element is the immediate parent.
type walker struct {
	p     *pass
	stack []ast.NodeID
}

func (w *walker) walk(id ast.NodeID) error {
	n := w.p.arena.Get(id)
	if n == nil {
		return nil
	}

	w.stack = append(w.stack, id)
	children := ast.Children(n)
	version := w.p.version
	for _, child := range children {
		// A visit below may have detached later siblings.
		if w.p.version != version && !slices.Contains(ast.Children(w.p.arena.Get(id)), child) {
			continue
		}
		if err := w.walk(child); err != nil {
			return err
		}
	}
	w.stack = w.stack[:len(w.stack)-1]

	return w.visit(id)
}

func (w *walker) visit(id ast.NodeID) error {
	p := w.p
	switch n := p.arena.Get(id).(type) {
	case *ast.Ident:
		p.renameIdent(n, parentOf(w.stack), id)

	case *ast.Member:
		p.collapseDefault(id, n)

	case *ast.Call:
		if p.opts.UnwrapIndirectCalls {
			p.unwrapIndirectCall(n)
		}
		return p.reconstructMarkup(id, n, w.stack)

	case *ast.Function:
		p.applyDisplayName(n, parentOf(w.stack))

	case *ast.Declarator:
		if p.reconstructClass(id, n, w.stack) {
			return nil
		}
		p.reconstructImport(id, n, w.stack)

	case *ast.ExprStmt:
		if p.reconstructBareImport(id, n, w.stack) {
			return nil
		}
		p.reconstructExport(id, n, w.stack)

	case *ast.Unary:
		if p.opts.RestoreBooleans {
			p.restoreBoolean(id, n)
		}
	}
	return nil
}

// renameIdent applies the binding rename table to one identifier.
func (p *pass) renameIdent(ident *ast.Ident, parent, id ast.NodeID) {
	to, ok := p.renames[ident.Name]
	if !ok || !isReference(p.arena.Get(parent), id) {
		return
	}
	ident.Name = to
}

// applyDisplayName renames a top-level function declaration after the
// string assigned to its `displayName`. The old name joins the rename table
// so every reference follows.
func (p *pass) applyDisplayName(fn *ast.Function, parent ast.NodeID) {
	if !fn.Declaration || p.arena.KindOf(parent) != ast.KindProgram {
		return
	}
	ident, ok := ast.As[*ast.Ident](p.arena, fn.ID)
	if !ok {
		return
	}
	if _, ok := p.renames[ident.Name]; ok {
		return
	}
	display, ok := p.displayName(ident.Name)
	if !ok || display == ident.Name || !isBindingName(display) {
		return
	}
	to := p.freshName(display)
	p.renames[ident.Name] = to
	p.logger.Debug("function renamed from displayName",
		slog.String("from", ident.Name),
		slog.String("to", to),
	)
	if p.customRuntime == ident.Name {
		p.customRuntime = to
	}
	if style, ok := p.wrappers[ident.Name]; ok {
		p.wrappers[to] = style
	}
	ident.Name = to
	p.touch()
}

// displayName finds the top-level `name.displayName = "..."` statement and
// returns the assigned string.
func (p *pass) displayName(name string) (string, bool) {
	prog, ok := ast.As[*ast.Program](p.arena, p.root)
	if !ok {
		return "", false
	}
	for _, stmt := range prog.Body {
		es, ok := ast.As[*ast.ExprStmt](p.arena, stmt)
		if !ok {
			continue
		}
		assign, ok := ast.As[*ast.Assign](p.arena, p.strip(es.Expr))
		if !ok || assign.Op != "=" {
			continue
		}
		obj, ok := p.member(assign.Left, "displayName")
		if !ok || !p.isIdent(obj, name) {
			continue
		}
		return p.stringValue(assign.Right)
	}
	return "", false
}

// collapseDefault rewrites `X.default` to `X` for default-style imports.
func (p *pass) collapseDefault(id ast.NodeID, m *ast.Member) {
	name, ok := p.identName(m.Object)
	if !ok || !p.defaultBindings[name] {
		return
	}
	if prop, ok := p.propName(m); !ok || prop != "default" {
		return
	}
	if to, ok := p.renames[name]; ok {
		name = to
	}
	p.replace(id, &ast.Ident{Name: name})
}

// unwrapIndirectCall rewrites the `(0, obj.fn)(...)` call-without-receiver
// idiom to a plain member call.
func (p *pass) unwrapIndirectCall(call *ast.Call) {
	seq, ok := ast.As[*ast.Sequence](p.arena, p.strip(call.Callee))
	if !ok || len(seq.Exprs) != 2 {
		return
	}
	if lit, ok := ast.As[*ast.Literal](p.arena, seq.Exprs[0]); !ok || lit.LitKind != ast.LitNumber {
		return
	}
	target := seq.Exprs[1]
	switch p.arena.KindOf(target) {
	case ast.KindMember, ast.KindIdent:
	default:
		return
	}
	call.Callee = target
	p.touch()
	p.report.IndirectCalls++
}

// restoreBoolean rewrites `!0` to `true` and `!1` to `false`.
func (p *pass) restoreBoolean(id ast.NodeID, u *ast.Unary) {
	if u.Op != "!" {
		return
	}
	lit, ok := ast.As[*ast.Literal](p.arena, u.Arg)
	if !ok || lit.LitKind != ast.LitNumber {
		return
	}
	raw := "false"
	if numericZero(lit.Raw) {
		raw = "true"
	}
	p.replace(id, &ast.Literal{LitKind: ast.LitBool, Raw: raw})
	p.report.Booleans++
}

// applyRenames is the closing sweep: identifiers visited before their
// import was recognized are renamed, and `.default` reads collapsed.
func (p *pass) applyRenames(root ast.NodeID) {
	if len(p.renames) == 0 && len(p.defaultBindings) == 0 {
		return
	}
	var visit func(id, parent ast.NodeID)
	visit = func(id, parent ast.NodeID) {
		n := p.arena.Get(id)
		for _, child := range ast.Children(n) {
			visit(child, id)
		}
		switch n := n.(type) {
		case *ast.Ident:
			p.renameIdent(n, parent, id)
		case *ast.Member:
			p.collapseDefault(id, n)
		}
	}
	visit(root, ast.NoNode)
}

// removeEmptyStatements drops empty statements from every statement list.
// Loop and branch bodies keep theirs.
func (p *pass) removeEmptyStatements(root ast.NodeID) {
	p.arena.Inspect(root, func(id ast.NodeID, _ ast.Node) bool {
		list := p.statementList(id)
		if list == nil {
			return true
		}
		*list = slices.DeleteFunc(*list, func(stmt ast.NodeID) bool {
			return p.arena.KindOf(stmt) == ast.KindEmpty
		})
		return true
	})
}

// spliceImports inserts the collected import declarations at the top of
// the program, after any directive prologue.
func (p *pass) spliceImports() {
	if len(p.pendingImports) == 0 {
		return
	}
	prog, ok := ast.As[*ast.Program](p.arena, p.root)
	if !ok {
		return
	}
	at := 0
	for at < len(prog.Body) && p.isDirective(prog.Body[at]) {
		at++
	}
	prog.Body = slices.Insert(prog.Body, at, p.pendingImports...)
	p.touch()
}

func (p *pass) isDirective(id ast.NodeID) bool {
	stmt, ok := ast.As[*ast.ExprStmt](p.arena, id)
	if !ok {
		return false
	}
	lit, ok := ast.As[*ast.Literal](p.arena, stmt.Expr)
	return ok && lit.LitKind == ast.LitString
}

// logParent records a markup call left alone because of where it sits.
func (p *pass) logParent(parent ast.NodeID, reason string) {
	p.report.Diagnostics++
	if !p.logger.Enabled(context.Background(), slog.LevelDebug) {
		return
	}
	pos := p.arena.PosOf(parent)
	p.logger.Debug("markup call left unchanged",
		slog.String("reason", reason),
		slog.String("parent", p.arena.KindOf(parent).String()),
		slog.Int("line", pos.Line),
		slog.Int("column", pos.Column),
	)
}
