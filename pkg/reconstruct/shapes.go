package reconstruct

import (
	"slices"
	"strconv"

	"debundle/pkg/ast"
	"debundle/pkg/printer"
)

// Small structural predicates shared by the detectors. All of them treat
// NoNode and unexpected kinds as a non-match.

// reservedWords cannot be used as binding names.
var reservedWords = map[string]bool{
	"await": true, "break": true, "case": true, "catch": true, "class": true,
	"const": true, "continue": true, "debugger": true, "default": true,
	"delete": true, "do": true, "else": true, "enum": true, "export": true,
	"extends": true, "false": true, "finally": true, "for": true,
	"function": true, "if": true, "implements": true, "import": true,
	"in": true, "instanceof": true, "interface": true, "let": true,
	"new": true, "null": true, "package": true, "private": true,
	"protected": true, "public": true, "return": true, "static": true,
	"super": true, "switch": true, "this": true, "throw": true, "true": true,
	"try": true, "typeof": true, "var": true, "void": true, "while": true,
	"with": true, "yield": true,
}

// isBindingName reports whether name can be declared as a variable.
func isBindingName(name string) bool {
	return matches(identPattern, name) && !reservedWords[name]
}

func (p *pass) strip(id ast.NodeID) ast.NodeID {
	for {
		paren, ok := ast.As[*ast.Paren](p.arena, id)
		if !ok {
			return id
		}
		id = paren.Expr
	}
}

func (p *pass) identName(id ast.NodeID) (string, bool) {
	ident, ok := ast.As[*ast.Ident](p.arena, id)
	if !ok {
		return "", false
	}
	return ident.Name, true
}

func (p *pass) isIdent(id ast.NodeID, name string) bool {
	got, ok := p.identName(id)
	return ok && got == name
}

func (p *pass) isThis(id ast.NodeID) bool {
	return p.arena.KindOf(p.strip(id)) == ast.KindThis
}

func (p *pass) stringValue(id ast.NodeID) (string, bool) {
	lit, ok := ast.As[*ast.Literal](p.arena, id)
	if !ok || lit.LitKind != ast.LitString {
		return "", false
	}
	return lit.Value, true
}

// propName returns the static property name of a member access: `a.b`
// and `a["b"]` both name "b".
func (p *pass) propName(m *ast.Member) (string, bool) {
	if !m.Computed {
		return p.identName(m.Property)
	}
	return p.stringValue(m.Property)
}

// member matches `object.name` and returns the object handle.
func (p *pass) member(id ast.NodeID, name string) (ast.NodeID, bool) {
	m, ok := ast.As[*ast.Member](p.arena, id)
	if !ok {
		return ast.NoNode, false
	}
	if got, ok := p.propName(m); ok && got == name {
		return m.Object, true
	}
	return ast.NoNode, false
}

// isVoid reports whether id is a `void <literal>` sentinel or the
// identifier undefined.
func (p *pass) isVoid(id ast.NodeID) bool {
	id = p.strip(id)
	if p.isIdent(id, "undefined") {
		return true
	}
	u, ok := ast.As[*ast.Unary](p.arena, id)
	return ok && u.Op == "void" && p.arena.KindOf(u.Arg) == ast.KindLiteral
}

func (p *pass) isNull(id ast.NodeID) bool {
	lit, ok := ast.As[*ast.Literal](p.arena, p.strip(id))
	return ok && lit.LitKind == ast.LitNull
}

// isTruthyFlag matches `true` and `!0`.
func (p *pass) isTruthyFlag(id ast.NodeID) bool {
	id = p.strip(id)
	if lit, ok := ast.As[*ast.Literal](p.arena, id); ok {
		return lit.LitKind == ast.LitBool && lit.Raw == "true"
	}
	if u, ok := ast.As[*ast.Unary](p.arena, id); ok && u.Op == "!" {
		lit, ok := ast.As[*ast.Literal](p.arena, u.Arg)
		return ok && lit.LitKind == ast.LitNumber && numericZero(lit.Raw)
	}
	return false
}

func numericZero(raw string) bool {
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		if n, err := strconv.ParseInt(raw, 0, 64); err == nil {
			return n == 0
		}
		return false
	}
	return v == 0
}

// isPure reports whether evaluating id can have no side effects, so it may
// be duplicated or moved.
func (p *pass) isPure(id ast.NodeID) bool {
	switch n := p.arena.Get(p.strip(id)).(type) {
	case *ast.Ident, *ast.Literal, *ast.This:
		return true
	case *ast.Member:
		return !n.Computed && p.isPure(n.Object)
	case *ast.Unary:
		return n.Op == "void" && p.arena.KindOf(n.Arg) == ast.KindLiteral
	}
	return false
}

// print renders id for comparisons and tag names.
func (p *pass) print(id ast.NodeID) string {
	return printer.Expr(p.arena, id)
}

// isReference reports whether the identifier child of parent is a variable
// reference rather than a property, key or label name.
func isReference(parent ast.Node, child ast.NodeID) bool {
	switch n := parent.(type) {
	case *ast.Member:
		return n.Computed || n.Property != child
	case *ast.Property:
		return n.Computed || n.Key != child
	case *ast.Method:
		return n.Computed || n.Key != child
	case *ast.Field:
		return n.Computed || n.Key != child
	case *ast.ImportSpec:
		return false
	}
	return true
}

// refs calls fn for every identifier reference in the subtree rooted at
// root. fn may rewrite or replace the identifier it is given.
func (p *pass) refs(root ast.NodeID, fn func(id, parent ast.NodeID, ident *ast.Ident)) {
	var visit func(id, parent ast.NodeID)
	visit = func(id, parent ast.NodeID) {
		n := p.arena.Get(id)
		if ident, ok := n.(*ast.Ident); ok {
			if isReference(p.arena.Get(parent), id) {
				fn(id, parent, ident)
			}
			return
		}
		for _, child := range ast.Children(n) {
			visit(child, id)
		}
	}
	visit(root, ast.NoNode)
}

// countRefs counts references to name under root.
func (p *pass) countRefs(root ast.NodeID, name string) int {
	count := 0
	p.refs(root, func(_, _ ast.NodeID, ident *ast.Ident) {
		if ident.Name == name {
			count++
		}
	})
	return count
}

// statementList returns the statement slice owned by a Program, Block or
// switch Case.
func (p *pass) statementList(container ast.NodeID) *[]ast.NodeID {
	switch n := p.arena.Get(container).(type) {
	case *ast.Program:
		return &n.Body
	case *ast.Block:
		return &n.Body
	case *ast.Case:
		return &n.Body
	}
	return nil
}

// insertAfter places stmts right after anchor in container's statement
// list. It reports false when container has no list holding anchor.
func (p *pass) insertAfter(container, anchor ast.NodeID, stmts ...ast.NodeID) bool {
	list := p.statementList(container)
	if list == nil {
		return false
	}
	i := slices.Index(*list, anchor)
	if i < 0 {
		return false
	}
	*list = slices.Insert(*list, i+1, stmts...)
	p.touch()
	return true
}

// removeStatement turns the statement behind id into an empty statement.
func (p *pass) removeStatement(id ast.NodeID) {
	p.replace(id, &ast.Empty{})
}

// parentOf returns the last entry of an ancestor stack.
func parentOf(stack []ast.NodeID) ast.NodeID {
	if len(stack) == 0 {
		return ast.NoNode
	}
	return stack[len(stack)-1]
}

// grandparentOf returns the second-to-last entry of an ancestor stack.
func grandparentOf(stack []ast.NodeID) ast.NodeID {
	if len(stack) < 2 {
		return ast.NoNode
	}
	return stack[len(stack)-2]
}

// replaceWithCopy puts a deep copy of src behind id.
func (p *pass) replaceWithCopy(id, src ast.NodeID) {
	p.replace(id, p.arena.Get(p.arena.Clone(src)))
}

func (p *pass) mentionsThis(id ast.NodeID) bool {
	found := false
	p.arena.Inspect(id, func(_ ast.NodeID, n ast.Node) bool {
		if n.Kind() == ast.KindThis {
			found = true
		}
		return !found
	})
	return found
}

// isWriteTarget reports whether child is written through by parent.
func (p *pass) isWriteTarget(parent, child ast.NodeID) bool {
	switch n := p.arena.Get(parent).(type) {
	case *ast.Assign:
		return n.Left == child
	case *ast.Update:
		return n.Arg == child
	case *ast.ForIn:
		return n.Left == child
	}
	return false
}

// isAssigned reports whether name is assigned or updated anywhere under
// root.
func (p *pass) isAssigned(root ast.NodeID, name string) bool {
	assigned := false
	p.refs(root, func(id, parent ast.NodeID, ident *ast.Ident) {
		if ident.Name == name && p.isWriteTarget(parent, id) {
			assigned = true
		}
	})
	return assigned
}

// usesOwnBindings reports whether fn reads its own this or arguments,
// ignoring nested non-arrow functions and classes.
func (p *pass) usesOwnBindings(fn *ast.Function) bool {
	found := false
	var visit func(id ast.NodeID)
	visit = func(id ast.NodeID) {
		if found {
			return
		}
		switch n := p.arena.Get(id).(type) {
		case *ast.This, *ast.Super:
			found = true
			return
		case *ast.Ident:
			found = n.Name == "arguments"
			return
		case *ast.Function:
			if !n.Arrow {
				return
			}
		case *ast.Class:
			return
		}
		for _, child := range ast.Children(p.arena.Get(id)) {
			visit(child)
		}
	}
	for _, param := range fn.Params {
		visit(param)
	}
	visit(fn.Body)
	return found
}
