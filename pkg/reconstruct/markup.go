package reconstruct

import (
	"slices"
	"strings"

	"github.com/dlclark/regexp2"

	"debundle/pkg/ast"
)

// runtimeKind identifies which lowering convention a markup factory call
// follows. It decides where the element key and the children live.
type runtimeKind int

const (
	runtimeNone runtimeKind = iota
	// runtimeClassic is createElement(tag, props, ...children).
	runtimeClassic
	// runtimeAutomatic is jsx(tag, props, key); children sit in props.
	runtimeAutomatic
	// runtimeAutomaticDev is jsxDEV(tag, props, key, isStatic, source, self).
	runtimeAutomaticDev
	// runtimeCustom is a factory declared in the file, called like jsx.
	runtimeCustom
)

var (
	classicFactory   = regexp2.MustCompile(`^_*createElement$`, regexp2.None)
	automaticFactory = regexp2.MustCompile(`jsxs?$`, regexp2.None)
	devFactory       = regexp2.MustCompile(`jsxs?DEV$`, regexp2.None)
	staticFactory    = regexp2.MustCompile(`jsxs(?:DEV)?$`, regexp2.None)
	intrinsicTag     = regexp2.MustCompile(`^[a-z][\w$-]*(?::[a-z][\w$-]*)?$`, regexp2.None)
)

func matches(re *regexp2.Regexp, s string) bool {
	ok, err := re.MatchString(s)
	return err == nil && ok
}

// runtimeOf classifies a call's callee as a markup factory. It also returns
// the factory's name.
func (p *pass) runtimeOf(callee ast.NodeID) (runtimeKind, string) {
	callee = p.strip(callee)
	if seq, ok := ast.As[*ast.Sequence](p.arena, callee); ok {
		if len(seq.Exprs) < 2 {
			return runtimeNone, ""
		}
		callee = p.strip(seq.Exprs[1])
	}

	var name string
	switch n := p.arena.Get(callee).(type) {
	case *ast.Ident:
		name = n.Name
	case *ast.Member:
		prop, ok := p.propName(n)
		if !ok {
			return runtimeNone, ""
		}
		name = prop
		if matches(classicFactory, name) && p.isHostObject(n.Object) {
			return runtimeNone, ""
		}
	default:
		return runtimeNone, ""
	}

	switch {
	case p.customRuntime != "" && name == p.customRuntime:
		return runtimeCustom, name
	case matches(devFactory, name):
		return runtimeAutomaticDev, name
	case matches(automaticFactory, name):
		return runtimeAutomatic, name
	case matches(classicFactory, name):
		return runtimeClassic, name
	}
	return runtimeNone, ""
}

// isHostObject reports whether receiver is a DOM object whose
// createElement builds real nodes.
func (p *pass) isHostObject(receiver ast.NodeID) bool {
	text := p.print(p.strip(receiver))
	for _, host := range p.opts.HostObjects {
		if text == host || strings.HasSuffix(text, "."+host) {
			return true
		}
	}
	return false
}

// isCustomRuntime matches the inline element helper transpilers emit:
//
//	REACT_ELEMENT_TYPE || (REACT_ELEMENT_TYPE = typeof Symbol === "function" &&
//	  Symbol.for && Symbol.for("react.element") || 0xeac7);
func (p *pass) isCustomRuntime(fn *ast.Function) bool {
	body, ok := ast.As[*ast.Block](p.arena, fn.Body)
	if !ok {
		return false
	}
	for _, stmt := range body.Body {
		es, ok := ast.As[*ast.ExprStmt](p.arena, stmt)
		if !ok {
			continue
		}
		outer, ok := ast.As[*ast.Logical](p.arena, p.strip(es.Expr))
		if !ok {
			continue
		}
		assign, ok := ast.As[*ast.Assign](p.arena, p.strip(outer.Right))
		if !ok {
			continue
		}
		fallback, ok := ast.As[*ast.Logical](p.arena, p.strip(assign.Right))
		if !ok {
			continue
		}
		guard, ok := ast.As[*ast.Logical](p.arena, p.strip(fallback.Left))
		if !ok {
			continue
		}
		call, ok := ast.As[*ast.Call](p.arena, p.strip(guard.Right))
		if !ok {
			continue
		}
		for _, arg := range call.Args {
			if v, ok := p.stringValue(arg); ok && v == "react.element" {
				return true
			}
		}
	}
	return false
}

// reconstructMarkup replaces a factory call with an element when its parent
// is a position an element may occupy.
func (p *pass) reconstructMarkup(id ast.NodeID, call *ast.Call, stack []ast.NodeID) error {
	kind, name := p.runtimeOf(call.Callee)
	if kind == runtimeNone {
		return nil
	}

	parent := parentOf(stack)
	if outer, ok := ast.As[*ast.Call](p.arena, parent); ok {
		if k, _ := p.runtimeOf(outer.Callee); k != runtimeNone {
			// Rebuilt together with the enclosing element.
			return nil
		}
	}
	if !p.elementAllowedIn(parent, id) {
		p.logParent(parent, "unsupported parent")
		return nil
	}

	elem, ok, err := p.buildElement(call, kind, name)
	if err != nil {
		return err
	}
	if !ok {
		p.logParent(id, "conservative bail-out")
		return nil
	}
	p.replace(id, elem)
	p.report.Elements++
	return nil
}

// elementAllowedIn reports whether parent holds id in a slot where an
// element can stand in for the call.
func (p *pass) elementAllowedIn(parent, id ast.NodeID) bool {
	switch n := p.arena.Get(parent).(type) {
	case *ast.Return:
		return n.Arg == id
	case *ast.Declarator:
		return n.Init == id
	case *ast.Assign:
		return n.Right == id
	case *ast.Conditional:
		return n.Cons == id || n.Alt == id
	case *ast.Logical:
		return n.Left == id || n.Right == id
	case *ast.Array:
		return slices.Contains(n.Elems, id)
	case *ast.Function:
		return n.Arrow && n.ExprBody && n.Body == id
	case *ast.Paren:
		return n.Expr == id
	}
	return false
}

// buildElement turns a factory call into an element node. ok is false when
// the call must stay as it is.
func (p *pass) buildElement(call *ast.Call, kind runtimeKind, name string) (ast.Node, bool, error) {
	if len(call.Args) == 0 {
		return nil, false, nil
	}
	tag := call.Args[0]
	switch p.arena.KindOf(tag) {
	case ast.KindCall, ast.KindBinary:
		return nil, false, nil
	}
	tagName, ok := p.tagName(tag)
	if !ok {
		return nil, false, nil
	}

	var props ast.NodeID
	if len(call.Args) > 1 {
		props = call.Args[1]
	}
	rest := slices.Clone(call.Args[min(2, len(call.Args)):])

	var key ast.NodeID
	static := matches(staticFactory, name)
	switch kind {
	case runtimeAutomatic, runtimeCustom:
		if len(rest) > 0 {
			key, rest = rest[0], rest[1:]
		}
	case runtimeAutomaticDev:
		if len(rest) > 0 {
			key = rest[0]
		}
		if len(rest) > 1 && p.isTruthyFlag(rest[1]) {
			static = true
		}
		if len(rest) >= 4 {
			rest = rest[:len(rest)-4]
		} else {
			rest = nil
		}
	}
	for _, arg := range rest {
		if p.arena.KindOf(arg) == ast.KindSpread {
			return nil, false, nil
		}
	}

	attrs, err := p.normalizeProps(props, false)
	if err != nil {
		return nil, false, err
	}

	var sources []ast.NodeID
	attrs = slices.DeleteFunc(attrs, func(attr ast.NodeID) bool {
		a, ok := ast.As[*ast.JSXAttr](p.arena, attr)
		if !ok || a.Name != "children" {
			return false
		}
		sources = append(sources, p.childrenOf(a.Value, static)...)
		return true
	})
	sources = append(sources, rest...)

	if key.Valid() && !p.isVoid(key) && !p.isNull(key) {
		attrs = append(attrs, p.arena.New(&ast.JSXAttr{Name: "key", Value: p.attrValue(key)}))
	}

	children := make([]ast.NodeID, 0, len(sources))
	for _, src := range sources {
		child, err := p.child(src)
		if err != nil {
			return nil, false, err
		}
		if p.arena.KindOf(child) == ast.KindJSXEmpty {
			continue
		}
		children = append(children, child)
	}

	return &ast.JSXElement{
		Name:        tagName,
		Attrs:       attrs,
		Children:    children,
		SelfClosing: len(children) == 0,
	}, true, nil
}

// tagName derives the element name, refusing tags whose meaning would
// change when written as markup.
func (p *pass) tagName(tag ast.NodeID) (string, bool) {
	switch n := p.arena.Get(tag).(type) {
	case *ast.Literal:
		if n.LitKind != ast.LitString || !matches(intrinsicTag, n.Value) {
			return "", false
		}
	case *ast.Ident:
		if n.Name == "" || (n.Name[0] >= 'a' && n.Name[0] <= 'z') {
			return "", false
		}
	case *ast.Member:
		if !p.isTagMember(tag) {
			return "", false
		}
	default:
		return "", false
	}
	text := p.print(tag)
	text = strings.TrimPrefix(text, `"`)
	text = strings.TrimSuffix(text, `"`)
	text = strings.TrimPrefix(text, `'`)
	text = strings.TrimSuffix(text, `'`)
	return text, true
}

// isTagMember accepts `a.b.c` and `this.a` chains.
func (p *pass) isTagMember(id ast.NodeID) bool {
	switch n := p.arena.Get(id).(type) {
	case *ast.Ident, *ast.This:
		return true
	case *ast.Member:
		return !n.Computed && !n.Optional && p.isTagMember(n.Object)
	}
	return false
}

// childrenOf unpacks the value of a children attribute.
func (p *pass) childrenOf(value ast.NodeID, static bool) []ast.NodeID {
	if !value.Valid() {
		return nil
	}
	if c, ok := ast.As[*ast.JSXExprContainer](p.arena, value); ok {
		value = c.Expr
	}
	if arr, ok := ast.As[*ast.Array](p.arena, p.strip(value)); ok && static {
		out := make([]ast.NodeID, 0, len(arr.Elems))
		for _, el := range arr.Elems {
			if el.Valid() {
				out = append(out, el)
			}
		}
		return out
	}
	return []ast.NodeID{value}
}

// child converts one positional argument into an element child.
func (p *pass) child(id ast.NodeID) (ast.NodeID, error) {
	inner := p.strip(id)
	switch n := p.arena.Get(inner).(type) {
	case *ast.JSXElement, *ast.JSXText:
		return inner, nil

	case *ast.Unary:
		if n.Op == "void" {
			return p.arena.New(&ast.JSXEmpty{}), nil
		}

	case *ast.Call:
		if kind, name := p.runtimeOf(n.Callee); kind != runtimeNone {
			elem, ok, err := p.buildElement(n, kind, name)
			if err != nil {
				return ast.NoNode, err
			}
			if ok {
				p.replace(inner, elem)
				p.report.Elements++
				return inner, nil
			}
		}

	case *ast.Conditional:
		if err := p.rebuildBranch(n.Cons); err != nil {
			return ast.NoNode, err
		}
		if err := p.rebuildBranch(n.Alt); err != nil {
			return ast.NoNode, err
		}

	case *ast.Logical:
		if err := p.rebuildBranch(n.Left); err != nil {
			return ast.NoNode, err
		}
		if err := p.rebuildBranch(n.Right); err != nil {
			return ast.NoNode, err
		}

	case *ast.Literal:
		if n.LitKind == ast.LitString && textSafe(n.Value) {
			return p.arena.New(&ast.JSXText{Value: n.Value}), nil
		}
	}
	return p.arena.New(&ast.JSXExprContainer{Expr: id}), nil
}

// rebuildBranch reconstructs a markup call sitting in a conditional or
// logical branch of a child expression.
func (p *pass) rebuildBranch(id ast.NodeID) error {
	inner := p.strip(id)
	call, ok := ast.As[*ast.Call](p.arena, inner)
	if !ok {
		return nil
	}
	kind, name := p.runtimeOf(call.Callee)
	if kind == runtimeNone {
		return nil
	}
	elem, ok, err := p.buildElement(call, kind, name)
	if err != nil || !ok {
		return err
	}
	p.replace(inner, elem)
	p.report.Elements++
	return nil
}

// textSafe reports whether s can be written as bare markup text.
func textSafe(s string) bool {
	return s != "" && strings.TrimSpace(s) == s && !strings.ContainsAny(s, "{}<>&\n\r\t")
}
