package reconstruct

import "debundle/pkg/ast"

// ClassEncoding names the lowered shape a class declaration was compiled
// into.
type ClassEncoding int

const (
	ClassInvalid ClassEncoding = iota
	// ClassPlain is `var C = function (S) { function C() {} var P = C.prototype; ...; return C; }(Base)`.
	ClassPlain
	// ClassParenthesized is ClassPlain with the factory wrapped in parentheses.
	ClassParenthesized
	// ClassPrototypeAlias is a factory whose constructor, prototype alias
	// and return are not adjacent or whose arity differs from the call.
	ClassPrototypeAlias
	// ClassNewWrapped is `new (function () { ...; return C; }())(...)`.
	ClassNewWrapped
)

var classEncodingNames = [...]string{
	ClassInvalid:        "Invalid",
	ClassPlain:          "Plain",
	ClassParenthesized:  "Parenthesized",
	ClassPrototypeAlias: "ConstructorWithPrototypeAlias",
	ClassNewWrapped:     "NewExpressionWrapped",
}

func (e ClassEncoding) String() string {
	if int(e) >= 0 && int(e) < len(classEncodingNames) {
		return classEncodingNames[e]
	}
	return "Unknown"
}

// classCandidate is what classification found inside a factory: the
// constructor declaration, the prototype alias and the closing return.
type classCandidate struct {
	encoding ClassEncoding
	name     string

	invoke  *ast.Call
	factory *ast.Function
	body    *ast.Block
	newArgs []ast.NodeID

	ctor      ast.NodeID // function declaration statement
	alias     string
	aliasDecl ast.NodeID // VarDecl statement declaring the alias
	ret       ast.NodeID // `return C` statement
}

// classify decides which class encoding init is. It never mutates the
// tree; the candidate is nil exactly when the encoding is ClassInvalid.
func (p *pass) classify(init ast.NodeID) (ClassEncoding, *classCandidate) {
	if n, ok := ast.As[*ast.New](p.arena, init); ok {
		if p.arena.KindOf(n.Callee) != ast.KindParen {
			return ClassInvalid, nil
		}
		call, ok := ast.As[*ast.Call](p.arena, p.strip(n.Callee))
		if !ok {
			return ClassInvalid, nil
		}
		fn, ok := p.factoryFunction(call.Callee)
		if !ok {
			return ClassInvalid, nil
		}
		c := p.prototypeTriple(fn, false)
		if c == nil {
			return ClassInvalid, nil
		}
		c.invoke, c.factory, c.newArgs = call, fn, n.Args
		c.encoding = ClassNewWrapped
		return c.encoding, c
	}

	parenthesized := false
	if p.arena.KindOf(init) == ast.KindParen {
		parenthesized = true
		init = p.strip(init)
	}
	call, ok := ast.As[*ast.Call](p.arena, init)
	if !ok {
		return ClassInvalid, nil
	}
	if p.arena.KindOf(call.Callee) == ast.KindParen {
		parenthesized = true
	}
	fn, ok := p.factoryFunction(call.Callee)
	if !ok {
		return ClassInvalid, nil
	}

	c := p.prototypeTriple(fn, true)
	switch {
	case c != nil && len(fn.Params) == len(call.Args) && parenthesized:
		c.encoding = ClassParenthesized
	case c != nil && len(fn.Params) == len(call.Args):
		c.encoding = ClassPlain
	default:
		c = p.prototypeTriple(fn, false)
		if c == nil {
			return ClassInvalid, nil
		}
		c.encoding = ClassPrototypeAlias
		if parenthesized {
			c.encoding = ClassParenthesized
		}
	}
	c.invoke, c.factory = call, fn
	return c.encoding, c
}

func (p *pass) factoryFunction(callee ast.NodeID) (*ast.Function, bool) {
	fn, ok := ast.As[*ast.Function](p.arena, p.strip(callee))
	if !ok || fn.Arrow || fn.Async || fn.Generator || fn.ExprBody {
		return nil, false
	}
	return fn, true
}

// prototypeTriple finds `function C() {}`, `var P = C.prototype` and a
// final `return C` in the factory body. strict requires the alias to
// follow the constructor immediately.
func (p *pass) prototypeTriple(fn *ast.Function, strict bool) *classCandidate {
	body, ok := ast.As[*ast.Block](p.arena, fn.Body)
	if !ok || len(body.Body) < 3 {
		return nil
	}
	last := body.Body[len(body.Body)-1]
	ret, ok := ast.As[*ast.Return](p.arena, last)
	if !ok {
		return nil
	}
	name, ok := p.identName(ret.Arg)
	if !ok {
		return nil
	}

	ctorAt := -1
	for i, stmt := range body.Body {
		if decl, ok := ast.As[*ast.Function](p.arena, stmt); ok && decl.Declaration && p.isIdent(decl.ID, name) {
			ctorAt = i
			break
		}
	}
	if ctorAt < 0 {
		return nil
	}

	for i := ctorAt + 1; i < len(body.Body)-1; i++ {
		if strict && i > ctorAt+1 {
			break
		}
		decl, ok := ast.As[*ast.VarDecl](p.arena, body.Body[i])
		if !ok {
			continue
		}
		for _, id := range decl.Decls {
			d, ok := ast.As[*ast.Declarator](p.arena, id)
			if !ok {
				continue
			}
			alias, ok := p.identName(d.ID)
			if !ok {
				continue
			}
			if obj, ok := p.member(d.Init, "prototype"); ok && p.isIdent(obj, name) {
				return &classCandidate{
					name:      name,
					body:      body,
					ctor:      body.Body[ctorAt],
					alias:     alias,
					aliasDecl: body.Body[i],
					ret:       last,
				}
			}
		}
	}
	return nil
}
