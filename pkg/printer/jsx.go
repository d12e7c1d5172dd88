package printer

import (
	"strings"

	"debundle/pkg/ast"
)

// emitJSXElement writes a markup element. Elements with children put each
// child on its own line, indented one level deeper than the opening tag.
func (p *Printer) emitJSXElement(e *ast.JSXElement) {
	p.write("<" + e.Name)
	for _, id := range e.Attrs {
		p.write(" ")
		p.emitJSXAttr(id)
	}

	children := p.renderedChildren(e.Children)
	if len(children) == 0 {
		if e.SelfClosing {
			p.write(" />")
		} else {
			p.write("></" + e.Name + ">")
		}
		return
	}

	p.write(">\n")
	p.indent()
	for _, child := range children {
		p.writeIndent()
		p.emitExprNoParen(child)
		p.write("\n")
	}
	p.dedent()
	p.writeIndent()
	p.write("</" + e.Name + ">")
}

func (p *Printer) renderedChildren(ids []ast.NodeID) []ast.NodeID {
	out := make([]ast.NodeID, 0, len(ids))
	for _, id := range ids {
		switch n := p.arena.Get(id).(type) {
		case nil, *ast.JSXEmpty:
			continue
		case *ast.JSXText:
			if strings.TrimSpace(n.Value) == "" {
				continue
			}
		}
		out = append(out, id)
	}
	return out
}

func (p *Printer) emitJSXAttr(id ast.NodeID) {
	switch a := p.arena.Get(id).(type) {
	case *ast.JSXSpreadAttr:
		p.write("{...")
		p.emitExpr(a.Arg, precAssign)
		p.write("}")

	case *ast.JSXAttr:
		p.write(a.Name)
		if !a.Value.Valid() {
			return
		}
		p.write("=")
		if lit, ok := ast.As[*ast.Literal](p.arena, a.Value); ok && lit.LitKind == ast.LitString {
			if attrSafe(lit.Value) {
				p.write(`"` + lit.Value + `"`)
			} else {
				p.write("{" + lit.Raw + "}")
			}
			return
		}
		if p.arena.KindOf(a.Value) == ast.KindJSXExprContainer || p.arena.KindOf(a.Value) == ast.KindJSXElement {
			p.emitExprNoParen(a.Value)
			return
		}
		p.write("{")
		p.emitExpr(a.Value, precLowest)
		p.write("}")
	}
}

// attrSafe reports whether s can be written as a quoted attribute value
// without changing its meaning.
func attrSafe(s string) bool {
	return !strings.ContainsAny(s, "\"\\\n\r&{}")
}
