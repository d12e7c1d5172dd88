package reconstruct

import (
	"fmt"
	"slices"

	"debundle/pkg/ast"
)

// normalizeConstructor rewrites the lowered superclass call of a derived
// constructor to `super(...)` and drops the trailing `return this`.
func (b *classBuilder) normalizeConstructor(fn *ast.Function) error {
	p := b.p
	body, ok := ast.As[*ast.Block](p.arena, fn.Body)
	if !ok {
		return fmt.Errorf("constructor has no block body")
	}

	var alias string
	if b.superExpr.Valid() {
		at, name, rest, ok := b.replaceSuperCall(body)
		if !ok {
			return fmt.Errorf("derived constructor without a recognized super call")
		}
		alias = name
		if rest != "" {
			loop := slices.IndexFunc(body.Body[:at], func(stmt ast.NodeID) bool { return p.declaresInLoop(stmt, rest) })
			if loop < 0 {
				return fmt.Errorf("spread constructor without an argument copy loop")
			}
			p.removeStatement(body.Body[loop])
			fn.Params = append(fn.Params, p.arena.New(&ast.Spread{Arg: p.arena.NewIdent(rest)}))
		}
		if alias != "" {
			self := p.arena.New(&ast.VarDecl{Keyword: "var", Decls: []ast.NodeID{
				p.arena.New(&ast.Declarator{ID: p.arena.NewIdent(alias), Init: p.arena.New(&ast.This{})}),
			}})
			body.Body = slices.Insert(body.Body, at+1, self)
		}
	}

	body.Body = slices.DeleteFunc(body.Body, func(stmt ast.NodeID) bool {
		return p.arena.KindOf(stmt) == ast.KindEmpty
	})
	if n := len(body.Body); n > 0 {
		if ret, ok := ast.As[*ast.Return](p.arena, body.Body[n-1]); ok {
			if !ret.Arg.Valid() || p.isThis(ret.Arg) || (alias != "" && p.isIdent(ret.Arg, alias)) {
				body.Body = body.Body[:n-1]
			}
		}
	}
	p.touch()
	return nil
}

// replaceSuperCall finds the statement invoking the superclass and turns
// it into `super(...)`. It returns the statement index, the local the
// result was stored in and, for the spread form, the name of the copied
// arguments array.
func (b *classBuilder) replaceSuperCall(body *ast.Block) (at int, alias, rest string, ok bool) {
	p := b.p
	for i, stmt := range body.Body {
		switch n := p.arena.Get(stmt).(type) {
		case *ast.ExprStmt:
			expr := p.strip(n.Expr)
			if a, ok := ast.As[*ast.Assign](p.arena, expr); ok && a.Op == "=" {
				name, ok := p.identName(a.Left)
				inner, ok2 := b.orThis(a.Right)
				if !ok || !ok2 {
					continue
				}
				args, spread, ok := b.superInvocation(inner)
				if !ok {
					continue
				}
				p.replace(n.Expr, b.superCall(args))
				b.dropBareDeclaration(body, name)
				return i, name, spread, true
			}
			if inner, ok := b.orThis(expr); ok {
				expr = inner
			}
			args, spread, ok := b.superInvocation(expr)
			if !ok {
				continue
			}
			p.replace(n.Expr, b.superCall(args))
			return i, "", spread, true

		case *ast.VarDecl:
			if len(n.Decls) != 1 {
				continue
			}
			d, _ := ast.As[*ast.Declarator](p.arena, n.Decls[0])
			name, ok := p.identName(d.ID)
			if !ok {
				continue
			}
			inner, ok := b.orThis(d.Init)
			if !ok {
				continue
			}
			args, spread, ok := b.superInvocation(inner)
			if !ok {
				continue
			}
			body.Body[i] = b.superStatement(stmt, args)
			return i, name, spread, true

		case *ast.Return:
			inner, ok := b.orThis(n.Arg)
			if !ok {
				continue
			}
			args, spread, ok := b.superInvocation(inner)
			if !ok {
				continue
			}
			body.Body[i] = b.superStatement(stmt, args)
			return i, "", spread, true
		}
	}
	return 0, "", "", false
}

// superStatement builds `super(args);` in place of stmt.
func (b *classBuilder) superStatement(stmt ast.NodeID, args []ast.NodeID) ast.NodeID {
	p := b.p
	id := p.arena.NewExprStmt(p.arena.New(b.superCall(args)))
	p.arena.SetPos(id, p.arena.PosOf(stmt))
	p.touch()
	return id
}

func (b *classBuilder) superCall(args []ast.NodeID) *ast.Call {
	return &ast.Call{Callee: b.p.arena.New(&ast.Super{}), Args: args}
}

// orThis matches `expr || this` and returns expr.
func (b *classBuilder) orThis(id ast.NodeID) (ast.NodeID, bool) {
	l, ok := ast.As[*ast.Logical](b.p.arena, b.p.strip(id))
	if !ok || l.Op != "||" || !b.p.isThis(l.Right) {
		return ast.NoNode, false
	}
	return b.p.strip(l.Left), true
}

// superInvocation matches the three lowered superclass constructor calls:
//
//	S.call(this, a, b)
//	S.apply(this, arguments)
//	S.call.apply(S, [this].concat(args))
func (b *classBuilder) superInvocation(id ast.NodeID) (args []ast.NodeID, rest string, ok bool) {
	p := b.p
	call, ok := ast.As[*ast.Call](p.arena, id)
	if !ok {
		return nil, "", false
	}
	callee, ok := ast.As[*ast.Member](p.arena, call.Callee)
	if !ok {
		return nil, "", false
	}
	how, _ := p.propName(callee)

	if b.isSuper(callee.Object) {
		if len(call.Args) == 0 || !p.isThis(call.Args[0]) {
			return nil, "", false
		}
		switch how {
		case "call":
			return call.Args[1:], "", true
		case "apply":
			if len(call.Args) == 2 && p.isIdent(call.Args[1], "arguments") {
				return []ast.NodeID{p.arena.New(&ast.Spread{Arg: p.arena.NewIdent("arguments")})}, "", true
			}
		}
		return nil, "", false
	}

	obj, ok := p.member(callee.Object, "call")
	if how != "apply" || !ok || !b.isSuper(obj) || len(call.Args) != 2 || !b.isSuper(call.Args[0]) {
		return nil, "", false
	}
	concat, ok := ast.As[*ast.Call](p.arena, call.Args[1])
	if !ok || len(concat.Args) != 1 {
		return nil, "", false
	}
	head, ok := p.member(concat.Callee, "concat")
	if !ok {
		return nil, "", false
	}
	arr, ok := ast.As[*ast.Array](p.arena, head)
	if !ok || len(arr.Elems) != 1 || !p.isThis(arr.Elems[0]) {
		return nil, "", false
	}
	name, ok := p.identName(concat.Args[0])
	if !ok {
		return nil, "", false
	}
	return []ast.NodeID{p.arena.New(&ast.Spread{Arg: p.arena.NewIdent(name)})}, name, true
}

// dropBareDeclaration removes `var name;` from body.
func (b *classBuilder) dropBareDeclaration(body *ast.Block, name string) {
	p := b.p
	for _, stmt := range body.Body {
		decl, ok := ast.As[*ast.VarDecl](p.arena, stmt)
		if !ok || len(decl.Decls) != 1 {
			continue
		}
		d, _ := ast.As[*ast.Declarator](p.arena, decl.Decls[0])
		if d != nil && !d.Init.Valid() && p.isIdent(d.ID, name) {
			p.removeStatement(stmt)
			return
		}
	}
}

// declaresInLoop matches the `for (var _len = arguments.length, args = ...)`
// loop that copies arguments into name.
func (p *pass) declaresInLoop(stmt ast.NodeID, name string) bool {
	loop, ok := ast.As[*ast.For](p.arena, stmt)
	if !ok {
		return false
	}
	decl, ok := ast.As[*ast.VarDecl](p.arena, loop.Init)
	if !ok {
		return false
	}
	return slices.ContainsFunc(decl.Decls, func(id ast.NodeID) bool {
		d, ok := ast.As[*ast.Declarator](p.arena, id)
		return ok && p.isIdent(d.ID, name)
	})
}

// stripHelperCalls drops `_classCallCheck(this, C)` statements and
// replaces `_assertThisInitialized(x)` with x.
func (b *classBuilder) stripHelperCalls(fn *ast.Function) {
	p := b.p
	if body, ok := ast.As[*ast.Block](p.arena, fn.Body); ok {
		body.Body = slices.DeleteFunc(body.Body, func(stmt ast.NodeID) bool {
			es, ok := ast.As[*ast.ExprStmt](p.arena, stmt)
			if !ok {
				return false
			}
			call, ok := ast.As[*ast.Call](p.arena, es.Expr)
			return ok && len(call.Args) > 0 && p.isThis(call.Args[0]) && matches(classCallCheck, p.calleeName(call))
		})
	}

	var asserts []ast.NodeID
	p.arena.Inspect(fn.Body, func(id ast.NodeID, n ast.Node) bool {
		if call, ok := n.(*ast.Call); ok && len(call.Args) == 1 && matches(assertInitialized, p.calleeName(call)) {
			asserts = append(asserts, id)
		}
		return true
	})
	for _, id := range slices.Backward(asserts) {
		call := p.arena.Get(id).(*ast.Call)
		p.replace(id, p.arena.Get(call.Args[0]))
	}
}

// calleeName returns the called function's name for `f(...)` and
// `obj.f(...)`.
func (p *pass) calleeName(call *ast.Call) string {
	switch n := p.arena.Get(p.strip(call.Callee)).(type) {
	case *ast.Ident:
		return n.Name
	case *ast.Member:
		name, _ := p.propName(n)
		return name
	}
	return ""
}

// inlineSelfAliases removes `var x = this` (and `this.props`,
// `this.constructor`) aliases, replacing each use of x with the aliased
// expression. Plain function expressions that use x become arrows; when a
// user cannot become an arrow the alias stays.
func (b *classBuilder) inlineSelfAliases(fn *ast.Function) {
	p := b.p
	body, ok := ast.As[*ast.Block](p.arena, fn.Body)
	if !ok {
		return
	}
	for _, stmt := range slices.Clone(body.Body) {
		decl, ok := ast.As[*ast.VarDecl](p.arena, stmt)
		if !ok || len(decl.Decls) != 1 {
			continue
		}
		d, _ := ast.As[*ast.Declarator](p.arena, decl.Decls[0])
		name, ok := p.identName(d.ID)
		if !ok || !b.isSelfExpr(d.Init) {
			continue
		}
		if b.inlineAlias(fn, stmt, name, d.Init) {
			p.removeStatement(stmt)
		}
	}
	body.Body = slices.DeleteFunc(body.Body, func(stmt ast.NodeID) bool {
		return p.arena.KindOf(stmt) == ast.KindEmpty
	})
}

func (b *classBuilder) isSelfExpr(id ast.NodeID) bool {
	p := b.p
	if p.arena.KindOf(id) == ast.KindThis {
		return true
	}
	m, ok := ast.As[*ast.Member](p.arena, id)
	if !ok || m.Computed || !p.isThis(m.Object) {
		return false
	}
	name, _ := p.propName(m)
	return name == "props" || name == "constructor"
}

// inlineAlias replaces every use of name under fn with a copy of init. It
// changes nothing and reports false if any use is a write, a shadowing
// declaration, or sits in a function that cannot become an arrow.
func (b *classBuilder) inlineAlias(fn *ast.Function, decl ast.NodeID, name string, init ast.NodeID) bool {
	p := b.p
	var uses []ast.NodeID
	lift := map[ast.NodeID]bool{}
	safe := true

	var visit func(id, parent ast.NodeID, enclosing []ast.NodeID)
	visit = func(id, parent ast.NodeID, enclosing []ast.NodeID) {
		if !safe || id == decl {
			return
		}
		switch n := p.arena.Get(id).(type) {
		case *ast.Ident:
			if n.Name != name || !isReference(p.arena.Get(parent), id) {
				return
			}
			if p.isWriteTarget(parent, id) {
				safe = false
				return
			}
			uses = append(uses, id)
			for _, f := range enclosing {
				lift[f] = true
			}
			return
		case *ast.Declarator:
			if p.isIdent(n.ID, name) {
				safe = false
				return
			}
		case *ast.Function:
			for _, param := range n.Params {
				if p.isIdent(param, name) {
					safe = false
					return
				}
			}
			if !n.Arrow {
				enclosing = append(slices.Clip(enclosing), id)
				if !b.canBecomeArrow(parent, id, n) {
					enclosing = append(enclosing, ast.NoNode)
				}
			}
		}
		for _, child := range ast.Children(p.arena.Get(id)) {
			visit(child, id, enclosing)
		}
	}
	for _, param := range fn.Params {
		visit(param, ast.NoNode, nil)
	}
	visit(fn.Body, ast.NoNode, nil)

	if !safe || lift[ast.NoNode] {
		return false
	}
	for f := range lift {
		inner, _ := ast.As[*ast.Function](p.arena, f)
		inner.Arrow, inner.ID = true, ast.NoNode
	}
	for _, use := range uses {
		p.replaceWithCopy(use, init)
	}
	return true
}

// canBecomeArrow reports whether the function expression at id keeps its
// meaning when written as an arrow.
func (b *classBuilder) canBecomeArrow(parent, id ast.NodeID, fn *ast.Function) bool {
	p := b.p
	if fn.Declaration || fn.Generator {
		return false
	}
	switch n := p.arena.Get(parent).(type) {
	case *ast.Property:
		if n.Method || n.Accessor != "" {
			return false
		}
	case *ast.Method:
		return false
	case *ast.New:
		if n.Callee == id {
			return false
		}
	}
	if name, ok := p.identName(fn.ID); ok && p.countRefs(fn.Body, name) > 0 {
		return false
	}
	return !p.usesOwnBindings(fn)
}

// resolveMirrors re-points locals that copy a `this.field` mirror at the
// field itself: `var a = this.props; var b = a;` gives `var b = this.props`.
func (b *classBuilder) resolveMirrors(fn *ast.Function) {
	p := b.p
	body, ok := ast.As[*ast.Block](p.arena, fn.Body)
	if !ok {
		return
	}
	mirrors := map[string]ast.NodeID{}
	for _, stmt := range body.Body {
		decl, ok := ast.As[*ast.VarDecl](p.arena, stmt)
		if !ok {
			continue
		}
		for _, id := range decl.Decls {
			d, _ := ast.As[*ast.Declarator](p.arena, id)
			name, ok := p.identName(d.ID)
			if !ok {
				continue
			}
			delete(mirrors, name)
			if p.isAssigned(fn.Body, name) {
				continue
			}
			switch init := p.arena.Get(d.Init).(type) {
			case *ast.Ident:
				if src, ok := mirrors[init.Name]; ok {
					p.replaceWithCopy(d.Init, src)
					mirrors[name] = d.Init
				}
			case *ast.Member:
				if init.Computed {
					continue
				}
				if p.isThis(init.Object) {
					mirrors[name] = d.Init
					continue
				}
				if obj, ok := p.identName(init.Object); ok {
					if src, ok := mirrors[obj]; ok {
						p.replaceWithCopy(init.Object, src)
						mirrors[name] = d.Init
					}
				}
			}
		}
	}
}

// trivialConstructor reports whether the constructor can be omitted:
// it is empty, or it only forwards its parameters to super.
func (b *classBuilder) trivialConstructor(fn *ast.Function) bool {
	p := b.p
	body, ok := ast.As[*ast.Block](p.arena, fn.Body)
	if !ok {
		return false
	}
	if len(body.Body) == 0 {
		return true
	}
	if len(body.Body) != 1 || !b.superExpr.Valid() {
		return false
	}
	es, ok := ast.As[*ast.ExprStmt](p.arena, body.Body[0])
	if !ok {
		return false
	}
	call, ok := ast.As[*ast.Call](p.arena, es.Expr)
	if !ok || p.arena.KindOf(call.Callee) != ast.KindSuper {
		return false
	}
	if len(call.Args) == 1 {
		if s, ok := ast.As[*ast.Spread](p.arena, call.Args[0]); ok && p.isIdent(s.Arg, "arguments") {
			return true
		}
	}
	if len(call.Args) != len(fn.Params) {
		return false
	}
	for i, param := range fn.Params {
		if p.forwardedName(param) == "" || p.forwardedName(param) != p.forwardedName(call.Args[i]) {
			return false
		}
	}
	return true
}

// forwardedName names the binding behind `x` or `...x`.
func (p *pass) forwardedName(id ast.NodeID) string {
	if s, ok := ast.As[*ast.Spread](p.arena, id); ok {
		name, _ := p.identName(s.Arg)
		return "..." + name
	}
	name, _ := p.identName(id)
	return name
}
