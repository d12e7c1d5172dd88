package reconstruct

import (
	"slices"

	"debundle/pkg/ast"
)

// reconstructExport turns a top-level `exports.key = X` statement into an
// export declaration. When X is declared at the top level and used nowhere
// else, its declaration moves into the export.
func (p *pass) reconstructExport(id ast.NodeID, s *ast.ExprStmt, stack []ast.NodeID) {
	if p.arena.KindOf(parentOf(stack)) != ast.KindProgram {
		return
	}
	assign, ok := ast.As[*ast.Assign](p.arena, p.strip(s.Expr))
	if !ok || assign.Op != "=" {
		return
	}
	key, ok := p.exportKey(assign.Left)
	if !ok || (key != "default" && !matches(identPattern, key)) {
		return
	}
	local, ok := p.identName(p.strip(assign.Right))
	if !ok || local == "undefined" {
		return
	}
	stmt, declarator, ok := p.topLevelDeclaration(local)
	if !ok {
		return
	}

	// One reference is the export itself, one is the binding.
	others := p.countRefs(p.root, local) - 1
	if p.arena.KindOf(stmt) != ast.KindImportDecl {
		others--
	}
	if others > 0 || !p.moveIntoExport(id, key, local, stmt, declarator) {
		p.replace(id, p.exportBinding(key, local))
	}
	p.report.Exports++
}

// exportKey matches `exports.key` and `module.exports`, the latter being
// the default export.
func (p *pass) exportKey(target ast.NodeID) (string, bool) {
	m, ok := ast.As[*ast.Member](p.arena, target)
	if !ok {
		return "", false
	}
	if p.isIdent(m.Object, "exports") {
		return p.propName(m)
	}
	if name, ok := p.propName(m); ok && name == "exports" && p.isIdent(m.Object, "module") {
		return "default", true
	}
	return "", false
}

// topLevelDeclaration finds the statement declaring name at the top level,
// including imports reconstructed earlier in this pass. declarator is set
// for variable declarations.
func (p *pass) topLevelDeclaration(name string) (stmt, declarator ast.NodeID, ok bool) {
	prog, ok := ast.As[*ast.Program](p.arena, p.root)
	if !ok {
		return ast.NoNode, ast.NoNode, false
	}
	for _, id := range slices.Concat(prog.Body, p.pendingImports) {
		switch n := p.arena.Get(id).(type) {
		case *ast.VarDecl:
			for _, d := range n.Decls {
				if decl, ok := ast.As[*ast.Declarator](p.arena, d); ok && p.isIdent(decl.ID, name) {
					return id, d, true
				}
			}
		case *ast.Function:
			if n.Declaration && p.isIdent(n.ID, name) {
				return id, ast.NoNode, true
			}
		case *ast.Class:
			if n.Declaration && p.isIdent(n.ID, name) {
				return id, ast.NoNode, true
			}
		case *ast.ImportDecl:
			for _, spec := range n.Specifiers {
				if s, ok := ast.As[*ast.ImportSpec](p.arena, spec); ok && p.isIdent(s.Local, name) {
					return id, ast.NoNode, true
				}
			}
		}
	}
	return ast.NoNode, ast.NoNode, false
}

// moveIntoExport replaces the export statement at id with an export that
// carries the declaration itself. It reports false when the declaration
// cannot move.
func (p *pass) moveIntoExport(id ast.NodeID, key, local string, stmt, declarator ast.NodeID) bool {
	switch n := p.arena.Get(stmt).(type) {
	case *ast.VarDecl:
		d, _ := ast.As[*ast.Declarator](p.arena, declarator)
		if d == nil || !d.Init.Valid() {
			return false
		}
		if key != "default" && key != local && (p.usedNames[key] || reservedWords[key]) {
			return false
		}
		init := d.Init
		if len(n.Decls) == 1 {
			p.removeStatement(stmt)
		} else {
			n.Decls = slices.DeleteFunc(n.Decls, func(x ast.NodeID) bool { return x == declarator })
		}
		if key == "default" {
			p.replace(id, &ast.ExportDefault{Decl: init})
			return true
		}
		decl := p.arena.New(&ast.VarDecl{Keyword: "const", Decls: []ast.NodeID{
			p.arena.New(&ast.Declarator{ID: p.arena.NewIdent(key), Init: init}),
		}})
		p.replace(id, &ast.ExportNamed{Decl: decl})
		return true

	case *ast.Function, *ast.Class:
		if key != "default" && key != local {
			return false
		}
		// The declaration node moves to a fresh handle; its old slot
		// becomes an empty statement.
		moved := p.arena.New(n)
		p.arena.SetPos(moved, p.arena.PosOf(stmt))
		p.removeStatement(stmt)
		if key == "default" {
			p.replace(id, &ast.ExportDefault{Decl: moved})
		} else {
			p.replace(id, &ast.ExportNamed{Decl: moved})
		}
		return true
	}
	return false
}

// exportBinding builds `export default local` or `export { local as key }`.
func (p *pass) exportBinding(key, local string) ast.Node {
	if key == "default" {
		return &ast.ExportDefault{Decl: p.arena.NewIdent(local)}
	}
	spec := p.arena.New(&ast.ExportSpec{Local: p.arena.NewIdent(local), Exported: key})
	return &ast.ExportNamed{Specifiers: []ast.NodeID{spec}}
}

// removeExportResidue drops the CommonJS interop markers once nothing
// else reads `exports`: the `__esModule` flag and `exports.a = void 0`
// placeholder chains.
func (p *pass) removeExportResidue() {
	prog, ok := ast.As[*ast.Program](p.arena, p.root)
	if !ok {
		return
	}
	var residue []ast.NodeID
	refs := 0
	for _, stmt := range prog.Body {
		es, ok := ast.As[*ast.ExprStmt](p.arena, stmt)
		if !ok || !(p.isModuleFlag(es.Expr) || p.isPlaceholderChain(es.Expr)) {
			continue
		}
		residue = append(residue, stmt)
		refs += p.countRefs(stmt, "exports")
	}
	if len(residue) == 0 || p.countRefs(p.root, "exports") != refs {
		return
	}
	for _, stmt := range residue {
		p.removeStatement(stmt)
	}
}

// isModuleFlag matches `Object.defineProperty(exports, "__esModule", ...)`
// and `exports.__esModule = true`.
func (p *pass) isModuleFlag(id ast.NodeID) bool {
	id = p.strip(id)
	if call, ok := ast.As[*ast.Call](p.arena, id); ok {
		obj, ok := p.member(call.Callee, "defineProperty")
		if !ok || !p.isIdent(obj, "Object") || len(call.Args) < 2 || !p.isIdent(call.Args[0], "exports") {
			return false
		}
		name, ok := p.stringValue(call.Args[1])
		return ok && name == "__esModule"
	}
	assign, ok := ast.As[*ast.Assign](p.arena, id)
	if !ok || assign.Op != "=" {
		return false
	}
	obj, ok := p.member(assign.Left, "__esModule")
	return ok && p.isIdent(obj, "exports")
}

// isPlaceholderChain matches `exports.a = exports.b = void 0`.
func (p *pass) isPlaceholderChain(id ast.NodeID) bool {
	assign, ok := ast.As[*ast.Assign](p.arena, p.strip(id))
	if !ok || assign.Op != "=" {
		return false
	}
	if _, ok := p.exportKey(assign.Left); !ok {
		return false
	}
	if p.isVoid(assign.Right) {
		return true
	}
	return p.isPlaceholderChain(assign.Right)
}
