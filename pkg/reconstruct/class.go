package reconstruct

import (
	"fmt"
	"log/slog"
	"slices"

	"github.com/dlclark/regexp2"

	"debundle/pkg/ast"
)

var (
	identPattern       = regexp2.MustCompile(`^[A-Za-z_$][\w$]*$`, regexp2.None)
	createClassHelper  = regexp2.MustCompile(`createClass$`, regexp2.None)
	classCallCheck     = regexp2.MustCompile(`classCallCheck$`, regexp2.None)
	assertInitialized  = regexp2.MustCompile(`assertThisInitialized$`, regexp2.None)
	descriptorMetaKeys = []string{"enumerable", "configurable", "writable"}
)

// reconstructClass rewrites a declarator whose initializer is a lowered
// class into a class declaration or class expression.
func (p *pass) reconstructClass(id ast.NodeID, d *ast.Declarator, stack []ast.NodeID) bool {
	if !d.Init.Valid() {
		return false
	}
	if enc, _ := p.classify(d.Init); enc == ClassInvalid {
		return false
	}

	// All rewriting happens on a copy so an abort leaves the tree as it was.
	work := p.arena.Clone(d.Init)
	enc, c := p.classify(work)
	if c == nil {
		return false
	}
	p.classes[c.name] = c

	b := &classBuilder{p: p, c: c}
	class, err := b.build()
	if err == nil {
		err = p.placeClass(d, stack, c, class, b.leftovers)
	}
	if err != nil {
		p.logger.Debug("class left unchanged",
			slog.String("class", c.name),
			slog.String("encoding", enc.String()),
			slog.String("reason", err.Error()),
		)
		return false
	}
	p.report.Classes[enc]++
	return true
}

// placeClass splices the class into the tree. A single-declarator
// statement whose binding matches the class name becomes a declaration;
// everything else keeps the declarator and gets a class expression.
func (p *pass) placeClass(d *ast.Declarator, stack []ast.NodeID, c *classCandidate, class *ast.Class, leftovers []ast.NodeID) error {
	parent, grand := parentOf(stack), grandparentOf(stack)
	decl, _ := ast.As[*ast.VarDecl](p.arena, parent)
	binding, _ := p.identName(d.ID)

	if c.encoding != ClassNewWrapped && decl != nil && len(decl.Decls) == 1 &&
		binding == c.name && slices.Contains(ast.Children(p.arena.Get(grand)), parent) && p.statementList(grand) != nil {
		class.Declaration = true
		p.replace(parent, class)
		if len(leftovers) > 0 {
			p.insertAfter(grand, parent, leftovers...)
		}
		return nil
	}

	if len(leftovers) > 0 {
		return fmt.Errorf("%d factory statements have no place next to a class expression", len(leftovers))
	}
	if c.encoding == ClassNewWrapped {
		expr := p.arena.New(class)
		p.replace(d.Init, &ast.New{Callee: p.arena.New(&ast.Paren{Expr: expr}), Args: c.newArgs})
		return nil
	}
	p.replace(d.Init, class)
	return nil
}

// classBuilder carries one candidate through reconstruction.
type classBuilder struct {
	p *pass
	c *classCandidate

	inherit    ast.NodeID // inheritance registration statement
	superParam string     // factory parameter bound to the superclass
	superExpr  ast.NodeID
	superText  string

	methods   []ast.NodeID
	accessors []ast.NodeID
	leftovers []ast.NodeID
}

func (b *classBuilder) build() (*ast.Class, error) {
	p, c := b.p, b.c

	b.findSuperclass()
	if err := b.bindParams(); err != nil {
		return nil, err
	}
	if decl, ok := ast.As[*ast.VarDecl](p.arena, c.aliasDecl); !ok || len(decl.Decls) != 1 {
		return nil, fmt.Errorf("prototype alias shares its declaration")
	}

	for _, stmt := range c.body.Body {
		switch stmt {
		case c.ctor, c.aliasDecl, c.ret, b.inherit:
			continue
		}
		if err := b.member(stmt); err != nil {
			return nil, err
		}
	}

	ctor, _ := ast.As[*ast.Function](p.arena, c.ctor)
	if err := b.normalizeConstructor(ctor); err != nil {
		return nil, err
	}

	functions := []ast.NodeID{c.ctor}
	for _, m := range slices.Concat(b.methods, b.accessors) {
		functions = append(functions, p.arena.Get(m).(*ast.Method).Value)
	}
	for _, fn := range functions {
		f, _ := ast.As[*ast.Function](p.arena, fn)
		b.stripHelperCalls(f)
		b.inlineSelfAliases(f)
		b.resolveMirrors(f)
		if err := b.fixReferences(fn, true); err != nil {
			return nil, err
		}
	}
	for _, stmt := range b.leftovers {
		if err := b.fixReferences(stmt, false); err != nil {
			return nil, err
		}
	}

	class := &ast.Class{ID: p.arena.NewIdent(c.name)}
	if b.superExpr.Valid() {
		class.Super = b.superExpr
	}
	if !b.trivialConstructor(ctor) {
		ctor.ID, ctor.Declaration = ast.NoNode, false
		class.Members = append(class.Members, p.arena.New(&ast.Method{
			Key:        p.arena.NewIdent("constructor"),
			Value:      c.ctor,
			MethodKind: ast.MethodConstructor,
		}))
	}
	class.Members = append(class.Members, b.methods...)
	class.Members = append(class.Members, b.accessors...)
	return class, nil
}

// findSuperclass looks for `_inherits(C, S)` as the factory's first
// statement. When S is a factory parameter, the superclass is the matching
// argument of the factory call.
func (b *classBuilder) findSuperclass() {
	p, c := b.p, b.c
	first := c.body.Body[0]
	stmt, ok := ast.As[*ast.ExprStmt](p.arena, first)
	if !ok {
		return
	}
	call, ok := ast.As[*ast.Call](p.arena, p.strip(stmt.Expr))
	if !ok || len(call.Args) != 2 || !p.isIdent(call.Args[0], c.name) {
		return
	}
	switch p.arena.KindOf(call.Args[1]) {
	case ast.KindIdent, ast.KindMember:
	default:
		return
	}

	b.inherit = first
	b.superExpr = call.Args[1]
	if name, ok := p.identName(call.Args[1]); ok {
		if i := slices.IndexFunc(c.factory.Params, func(param ast.NodeID) bool { return p.isIdent(param, name) }); i >= 0 && i < len(c.invoke.Args) {
			b.superParam = name
			b.superExpr = c.invoke.Args[i]
		}
	}
	b.superText = p.print(p.strip(b.superExpr))
}

// bindParams substitutes the factory's remaining parameters with the
// arguments it was invoked with.
func (b *classBuilder) bindParams() error {
	p, c := b.p, b.c
	for i, param := range c.factory.Params {
		name, ok := p.identName(param)
		if !ok {
			return fmt.Errorf("factory parameter %d is a pattern", i)
		}
		if name == b.superParam {
			continue
		}
		if i >= len(c.invoke.Args) {
			if p.countRefs(c.factory.Body, name) > 0 {
				return fmt.Errorf("factory parameter %s has no argument", name)
			}
			continue
		}
		arg := c.invoke.Args[i]
		if !p.isPure(arg) || p.mentionsThis(arg) || p.isAssigned(c.factory.Body, name) {
			return fmt.Errorf("factory argument for %s cannot be inlined", name)
		}
		p.refs(c.factory.Body, func(id, _ ast.NodeID, ident *ast.Ident) {
			if ident.Name == name {
				p.replaceWithCopy(id, arg)
			}
		})
	}
	for _, arg := range c.invoke.Args[min(len(c.factory.Params), len(c.invoke.Args)):] {
		if !p.isPure(arg) {
			return fmt.Errorf("extra factory argument has side effects")
		}
	}
	return nil
}

// member sorts one factory statement into a method, accessors or a
// leftover kept after the class.
func (b *classBuilder) member(stmt ast.NodeID) error {
	p, c := b.p, b.c
	if p.arena.KindOf(stmt) == ast.KindEmpty {
		return nil
	}
	es, ok := ast.As[*ast.ExprStmt](p.arena, stmt)
	if !ok {
		return fmt.Errorf("factory holds a %s", p.arena.KindOf(stmt))
	}

	if call, ok := ast.As[*ast.Call](p.arena, p.strip(es.Expr)); ok && b.isCreateClass(call) {
		if !b.descriptors(call) {
			b.leftovers = append(b.leftovers, stmt)
		}
		return nil
	}

	assign, ok := ast.As[*ast.Assign](p.arena, p.strip(es.Expr))
	if !ok || assign.Op != "=" {
		b.leftovers = append(b.leftovers, stmt)
		return nil
	}
	target, ok := ast.As[*ast.Member](p.arena, assign.Left)
	if !ok {
		b.leftovers = append(b.leftovers, stmt)
		return nil
	}
	name, ok := p.propName(target)
	if !ok {
		b.leftovers = append(b.leftovers, stmt)
		return nil
	}

	var static bool
	switch {
	case p.isIdent(target.Object, c.alias), b.isClassPrototype(target.Object):
	case p.isIdent(target.Object, c.name):
		static = true
	default:
		b.leftovers = append(b.leftovers, stmt)
		return nil
	}

	fnID := p.strip(assign.Right)
	fn, ok := ast.As[*ast.Function](p.arena, fnID)
	if !ok || fn.Arrow || !b.detachName(fn) {
		b.leftovers = append(b.leftovers, stmt)
		return nil
	}
	b.methods = append(b.methods, b.method(name, fnID, ast.MethodNormal, static))
	return nil
}

func (b *classBuilder) isClassPrototype(id ast.NodeID) bool {
	obj, ok := b.p.member(id, "prototype")
	return ok && b.p.isIdent(obj, b.c.name)
}

// detachName drops a method function's own name unless the body uses it.
func (b *classBuilder) detachName(fn *ast.Function) bool {
	name, ok := b.p.identName(fn.ID)
	if !ok {
		return true
	}
	if b.p.countRefs(fn.Body, name) > 0 {
		return false
	}
	fn.ID = ast.NoNode
	return true
}

func (b *classBuilder) method(name string, fn ast.NodeID, kind ast.MethodKind, static bool) ast.NodeID {
	p := b.p
	var key ast.NodeID
	if matches(identPattern, name) {
		key = p.arena.NewIdent(name)
	} else {
		key = p.arena.NewString(name)
	}
	if f, ok := ast.As[*ast.Function](p.arena, fn); ok {
		f.Declaration = false
	}
	return p.arena.New(&ast.Method{Key: key, Value: fn, MethodKind: kind, Static: static})
}

func (b *classBuilder) isCreateClass(call *ast.Call) bool {
	p := b.p
	if len(call.Args) < 2 || len(call.Args) > 3 || !p.isIdent(call.Args[0], b.c.name) {
		return false
	}
	callee := p.strip(call.Callee)
	if m, ok := ast.As[*ast.Member](p.arena, callee); ok {
		name, ok := p.propName(m)
		return ok && matches(createClassHelper, name)
	}
	name, ok := p.identName(callee)
	return ok && matches(createClassHelper, name)
}

// descriptors converts `_createClass(C, protoProps, staticProps)`. It
// reports false, changing nothing, when any descriptor has an unknown
// shape.
func (b *classBuilder) descriptors(call *ast.Call) bool {
	p := b.p
	var methods, accessors []ast.NodeID
	for i, arg := range call.Args[1:] {
		static := i == 1
		if p.isNull(arg) || p.isVoid(arg) {
			continue
		}
		arr, ok := ast.As[*ast.Array](p.arena, arg)
		if !ok {
			return false
		}
		for _, el := range arr.Elems {
			m, a, ok := b.descriptor(el, static)
			if !ok {
				return false
			}
			methods = append(methods, m...)
			accessors = append(accessors, a...)
		}
	}
	b.methods = append(b.methods, methods...)
	b.accessors = append(b.accessors, accessors...)
	return true
}

func (b *classBuilder) descriptor(id ast.NodeID, static bool) (methods, accessors []ast.NodeID, ok bool) {
	p := b.p
	obj, ok := ast.As[*ast.Object](p.arena, id)
	if !ok {
		return nil, nil, false
	}
	var name string
	fns := map[string]ast.NodeID{}
	for _, propID := range obj.Props {
		prop, ok := ast.As[*ast.Property](p.arena, propID)
		if !ok || prop.Computed {
			return nil, nil, false
		}
		key, ok := p.identName(prop.Key)
		if !ok {
			if key, ok = p.stringValue(prop.Key); !ok {
				return nil, nil, false
			}
		}
		switch key {
		case "key":
			if name, ok = p.stringValue(prop.Value); !ok {
				return nil, nil, false
			}
		case "value", "get", "set":
			fn, ok := ast.As[*ast.Function](p.arena, p.strip(prop.Value))
			if !ok || fn.Arrow || !b.detachName(fn) {
				return nil, nil, false
			}
			fns[key] = p.strip(prop.Value)
		default:
			if !slices.Contains(descriptorMetaKeys, key) {
				return nil, nil, false
			}
		}
	}
	if name == "" || len(fns) == 0 {
		return nil, nil, false
	}
	if fn, ok := fns["value"]; ok {
		if len(fns) > 1 {
			return nil, nil, false
		}
		return []ast.NodeID{b.method(name, fn, ast.MethodNormal, static)}, nil, true
	}
	if fn, ok := fns["get"]; ok {
		accessors = append(accessors, b.method(name, fn, ast.MethodGet, static))
	}
	if fn, ok := fns["set"]; ok {
		accessors = append(accessors, b.method(name, fn, ast.MethodSet, static))
	}
	return nil, accessors, true
}

// isSuper reports whether id denotes the superclass.
func (b *classBuilder) isSuper(id ast.NodeID) bool {
	if !b.superExpr.Valid() {
		return false
	}
	id = b.p.strip(id)
	if b.superParam != "" && b.p.isIdent(id, b.superParam) {
		return true
	}
	return b.p.print(id) == b.superText
}

// fixReferences rewrites references inside a class member or leftover
// statement: prototype alias uses, `.constructor` indirections, superclass
// method calls and bare superclass parameter reads.
func (b *classBuilder) fixReferences(root ast.NodeID, inClass bool) error {
	p, c := b.p, b.c
	var err error
	var visit func(id, parent ast.NodeID)
	visit = func(id, parent ast.NodeID) {
		n := p.arena.Get(id)
		for _, child := range ast.Children(n) {
			visit(child, id)
		}
		switch n := n.(type) {
		case *ast.Ident:
			if !isReference(p.arena.Get(parent), id) {
				return
			}
			switch {
			case n.Name == c.alias:
				p.replace(id, &ast.Member{Object: p.arena.NewIdent(c.name), Property: p.arena.NewIdent("prototype")})
			case b.superParam != "" && n.Name == b.superParam:
				if !p.isPure(b.superExpr) {
					err = fmt.Errorf("superclass expression %s is read more than once", b.superText)
					return
				}
				p.replaceWithCopy(id, b.superExpr)
			}
		case *ast.Member:
			if name, ok := p.propName(n); ok && name == "constructor" && b.isClassPrototype(n.Object) {
				p.replace(id, &ast.Ident{Name: c.name})
			}
		case *ast.Call:
			if inClass {
				b.superMethodCall(id, n)
			}
		}
	}
	visit(root, ast.NoNode)
	return err
}

// superMethodCall rewrites `S.prototype.m.call(this, ...)` and
// `S.prototype.m.apply(this, arguments)` to `super.m(...)`.
func (b *classBuilder) superMethodCall(id ast.NodeID, call *ast.Call) {
	p := b.p
	invoke, ok := ast.As[*ast.Member](p.arena, call.Callee)
	if !ok || len(call.Args) == 0 || !p.isThis(call.Args[0]) {
		return
	}
	how, _ := p.propName(invoke)
	ref, ok := ast.As[*ast.Member](p.arena, invoke.Object)
	if !ok {
		return
	}
	name, ok := p.propName(ref)
	if !ok {
		return
	}
	proto, ok := p.member(ref.Object, "prototype")
	if !ok || !b.isSuper(proto) {
		return
	}

	var args []ast.NodeID
	switch how {
	case "call":
		args = call.Args[1:]
	case "apply":
		if len(call.Args) != 2 || !p.isIdent(call.Args[1], "arguments") {
			return
		}
		args = []ast.NodeID{p.arena.New(&ast.Spread{Arg: p.arena.NewIdent("arguments")})}
	default:
		return
	}

	callee := &ast.Member{Object: p.arena.New(&ast.Super{}), Property: p.arena.NewIdent(name)}
	if !matches(identPattern, name) {
		callee.Property, callee.Computed = p.arena.NewString(name), true
	}
	p.replace(id, &ast.Call{Callee: p.arena.New(callee), Args: args})
}
