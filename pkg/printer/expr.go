package printer

import (
	"strings"

	"debundle/pkg/ast"
)

// Operator precedence, lowest to highest.
const (
	precLowest = iota
	precSequence
	precAssign // assignment, arrow, yield
	precConditional
	precNullish
	precOr
	precAnd
	precBitOr
	precBitXor
	precBitAnd
	precEquality
	precRelational
	precShift
	precAdditive
	precMultiplicative
	precExponent
	precUnary
	precUpdate
	precCall // call, new, member access
	precPrimary
)

func binaryPrec(op string) int {
	switch op {
	case "??":
		return precNullish
	case "||":
		return precOr
	case "&&":
		return precAnd
	case "|":
		return precBitOr
	case "^":
		return precBitXor
	case "&":
		return precBitAnd
	case "==", "!=", "===", "!==":
		return precEquality
	case "<", ">", "<=", ">=", "instanceof", "in":
		return precRelational
	case "<<", ">>", ">>>":
		return precShift
	case "+", "-":
		return precAdditive
	case "*", "/", "%":
		return precMultiplicative
	case "**":
		return precExponent
	}
	return precPrimary
}

func (p *Printer) precOf(id ast.NodeID) int {
	switch n := p.arena.Get(id).(type) {
	case *ast.Sequence:
		return precSequence
	case *ast.Assign, *ast.Yield:
		return precAssign
	case *ast.Function:
		if n.Arrow {
			return precAssign
		}
		return precPrimary
	case *ast.Conditional:
		return precConditional
	case *ast.Logical:
		return binaryPrec(n.Op)
	case *ast.Binary:
		return binaryPrec(n.Op)
	case *ast.Unary, *ast.Await:
		return precUnary
	case *ast.Update:
		if n.Prefix {
			return precUnary
		}
		return precUpdate
	case *ast.Call, *ast.New, *ast.Member, *ast.TaggedTemplate:
		return precCall
	}
	return precPrimary
}

// emitExpr writes the expression id, parenthesized when its precedence is
// below minPrec.
func (p *Printer) emitExpr(id ast.NodeID, minPrec int) {
	if p.precOf(id) < minPrec {
		p.write("(")
		p.emitExprNoParen(id)
		p.write(")")
		return
	}
	p.emitExprNoParen(id)
}

func (p *Printer) emitExprNoParen(id ast.NodeID) {
	switch e := p.arena.Get(id).(type) {
	case *ast.Ident:
		p.write(e.Name)

	case *ast.Literal:
		p.write(e.Raw)

	case *ast.This:
		p.write("this")

	case *ast.Super:
		p.write("super")

	case *ast.Template:
		p.emitTemplate(e)

	case *ast.TaggedTemplate:
		p.emitExpr(e.Tag, precCall)
		p.emitExprNoParen(e.Quasi)

	case *ast.Array:
		p.write("[")
		for i, el := range e.Elems {
			if i > 0 {
				p.write(", ")
			}
			if el.Valid() {
				p.emitExpr(el, precAssign)
			}
		}
		if n := len(e.Elems); n > 0 && !e.Elems[n-1].Valid() {
			p.write(",")
		}
		p.write("]")

	case *ast.Object:
		p.emitObject(e)

	case *ast.Spread:
		p.write("...")
		p.emitExpr(e.Arg, precAssign)

	case *ast.Function:
		p.emitFunction(e)

	case *ast.Class:
		p.emitClass(e)

	case *ast.Unary:
		p.write(e.Op)
		if isWordOp(e.Op) || p.needsUnarySpace(e.Op, e.Arg) {
			p.write(" ")
		}
		p.emitExpr(e.Arg, precUnary)

	case *ast.Update:
		if e.Prefix {
			p.write(e.Op)
			p.emitExpr(e.Arg, precUnary)
		} else {
			p.emitExpr(e.Arg, precCall)
			p.write(e.Op)
		}

	case *ast.Binary:
		p.emitBinary(e.Op, e.Left, e.Right)

	case *ast.Logical:
		p.emitBinary(e.Op, e.Left, e.Right)

	case *ast.Assign:
		p.emitExpr(e.Left, precCall)
		p.write(" " + e.Op + " ")
		p.emitExpr(e.Right, precAssign)

	case *ast.Conditional:
		p.emitExpr(e.Test, precNullish)
		p.write(" ? ")
		p.emitExpr(e.Cons, precAssign)
		p.write(" : ")
		p.emitExpr(e.Alt, precAssign)

	case *ast.Call:
		p.emitExpr(e.Callee, precCall)
		if e.Optional {
			p.write("?.")
		}
		p.emitArgs(e.Args)

	case *ast.New:
		p.write("new ")
		if p.hasCallInChain(e.Callee) {
			p.write("(")
			p.emitExprNoParen(e.Callee)
			p.write(")")
		} else {
			p.emitExpr(e.Callee, precCall)
		}
		p.emitArgs(e.Args)

	case *ast.Member:
		p.emitMember(e)

	case *ast.Sequence:
		for i, ex := range e.Exprs {
			if i > 0 {
				p.write(", ")
			}
			p.emitExpr(ex, precAssign)
		}

	case *ast.Paren:
		p.write("(")
		p.emitExpr(e.Expr, precLowest)
		p.write(")")

	case *ast.Await:
		p.write("await ")
		p.emitExpr(e.Arg, precUnary)

	case *ast.Yield:
		p.write("yield")
		if e.Delegate {
			p.write("*")
		}
		if e.Arg.Valid() {
			p.write(" ")
			p.emitExpr(e.Arg, precAssign)
		}

	case *ast.Raw:
		p.write(e.Text)

	case *ast.JSXElement:
		p.emitJSXElement(e)

	case *ast.JSXExprContainer:
		p.write("{")
		p.emitExpr(e.Expr, precLowest)
		p.write("}")

	case *ast.JSXText:
		p.write(e.Value)

	case *ast.JSXEmpty:
		// renders nothing

	case nil:
		p.write("undefined")

	default:
		p.write("/* unsupported expression */")
	}
}

func isWordOp(op string) bool {
	return op == "typeof" || op == "void" || op == "delete"
}

// needsUnarySpace keeps `- -x` and `+ +x` from fusing into `--x`.
func (p *Printer) needsUnarySpace(op string, arg ast.NodeID) bool {
	switch a := p.arena.Get(arg).(type) {
	case *ast.Unary:
		return (op == "-" || op == "+") && strings.HasPrefix(a.Op, op)
	case *ast.Update:
		return a.Prefix && (op == "-" || op == "+") && strings.HasPrefix(a.Op, op)
	}
	return false
}

func (p *Printer) emitBinary(op string, left, right ast.NodeID) {
	prec := binaryPrec(op)
	leftMin, rightMin := prec, prec+1
	switch op {
	case "**":
		leftMin, rightMin = precUpdate, prec
	case "??":
		// `??` cannot mix with `||`/`&&` without parens.
		leftMin, rightMin = precBitOr, precBitOr
	}
	p.emitExpr(left, leftMin)
	p.write(" " + op + " ")
	p.emitExpr(right, rightMin)
}

func (p *Printer) emitArgs(args []ast.NodeID) {
	p.write("(")
	for i, arg := range args {
		if i > 0 {
			p.write(", ")
		}
		p.emitExpr(arg, precAssign)
	}
	p.write(")")
}

func (p *Printer) emitMember(e *ast.Member) {
	if lit, ok := ast.As[*ast.Literal](p.arena, e.Object); ok && lit.LitKind == ast.LitNumber && !e.Computed &&
		!strings.ContainsAny(lit.Raw, ".eExXoObB") {
		p.write("(" + lit.Raw + ")")
	} else {
		p.emitExpr(e.Object, precCall)
	}
	if e.Computed {
		if e.Optional {
			p.write("?.")
		}
		p.write("[")
		p.emitExpr(e.Property, precLowest)
		p.write("]")
		return
	}
	if e.Optional {
		p.write("?.")
	} else {
		p.write(".")
	}
	p.emitExprNoParen(e.Property)
}

// hasCallInChain reports whether a `new` callee contains a call that would
// otherwise bind the `new` arguments.
func (p *Printer) hasCallInChain(id ast.NodeID) bool {
	for {
		switch n := p.arena.Get(id).(type) {
		case *ast.Call:
			return true
		case *ast.Member:
			id = n.Object
		case *ast.TaggedTemplate:
			id = n.Tag
		default:
			return false
		}
	}
}

// startsAmbiguous reports whether an expression statement would begin with
// `function`, `class` or `{` and so needs wrapping parens.
func (p *Printer) startsAmbiguous(id ast.NodeID) bool {
	for {
		switch n := p.arena.Get(id).(type) {
		case *ast.Function:
			return !n.Arrow
		case *ast.Class, *ast.Object:
			return true
		case *ast.Call:
			if p.precOf(n.Callee) < precCall {
				return false
			}
			id = n.Callee
		case *ast.Member:
			if p.precOf(n.Object) < precCall {
				return false
			}
			id = n.Object
		case *ast.TaggedTemplate:
			id = n.Tag
		case *ast.Binary:
			if p.precOf(n.Left) < binaryPrec(n.Op) {
				return false
			}
			id = n.Left
		case *ast.Logical:
			if p.precOf(n.Left) < binaryPrec(n.Op) {
				return false
			}
			id = n.Left
		case *ast.Assign:
			if p.precOf(n.Left) < precCall {
				return false
			}
			id = n.Left
		case *ast.Conditional:
			if p.precOf(n.Test) < precNullish {
				return false
			}
			id = n.Test
		case *ast.Sequence:
			if len(n.Exprs) == 0 || p.precOf(n.Exprs[0]) < precAssign {
				return false
			}
			id = n.Exprs[0]
		case *ast.Update:
			if n.Prefix || p.precOf(n.Arg) < precCall {
				return false
			}
			id = n.Arg
		default:
			return false
		}
	}
}

func (p *Printer) emitTemplate(e *ast.Template) {
	p.write("`")
	for i, q := range e.Quasis {
		p.write(q)
		if i < len(e.Exprs) {
			p.write("${")
			p.emitExpr(e.Exprs[i], precLowest)
			p.write("}")
		}
	}
	p.write("`")
}

// Functions and classes

func (p *Printer) emitParams(params []ast.NodeID) {
	p.write("(")
	for i, param := range params {
		if i > 0 {
			p.write(", ")
		}
		p.emitExpr(param, precAssign)
	}
	p.write(")")
}

func (p *Printer) emitFunction(fn *ast.Function) {
	if fn.Async {
		p.write("async ")
	}
	if fn.Arrow {
		p.emitParams(fn.Params)
		p.write(" => ")
		if fn.ExprBody {
			if p.startsWithObject(fn.Body) {
				p.write("(")
				p.emitExpr(fn.Body, precLowest)
				p.write(")")
			} else {
				p.emitExpr(fn.Body, precAssign)
			}
			return
		}
		p.emitBlock(fn.Body)
		return
	}

	p.write("function")
	if fn.Generator {
		p.write("*")
	}
	if fn.ID.Valid() {
		p.write(" ")
		p.emitExprNoParen(fn.ID)
	} else if !fn.Generator {
		p.write(" ")
	}
	p.emitParams(fn.Params)
	p.write(" ")
	p.emitBlock(fn.Body)
}

// startsWithObject reports whether the leftmost token of id is `{`.
func (p *Printer) startsWithObject(id ast.NodeID) bool {
	for {
		switch n := p.arena.Get(id).(type) {
		case *ast.Object:
			return true
		case *ast.Member:
			id = n.Object
		case *ast.Call:
			id = n.Callee
		case *ast.Binary:
			id = n.Left
		case *ast.Logical:
			id = n.Left
		case *ast.Assign:
			id = n.Left
		case *ast.Conditional:
			id = n.Test
		case *ast.Sequence:
			if len(n.Exprs) == 0 {
				return false
			}
			id = n.Exprs[0]
		default:
			return false
		}
	}
}

func (p *Printer) emitKey(key ast.NodeID, computed bool) {
	if computed {
		p.write("[")
		p.emitExpr(key, precAssign)
		p.write("]")
		return
	}
	p.emitExprNoParen(key)
}

func (p *Printer) emitClass(c *ast.Class) {
	p.write("class")
	if c.ID.Valid() {
		p.write(" ")
		p.emitExprNoParen(c.ID)
	}
	if c.Super.Valid() {
		p.write(" extends ")
		p.emitExpr(c.Super, precCall)
	}
	if len(c.Members) == 0 {
		p.write(" {}")
		return
	}
	p.write(" {\n")
	p.indent()
	for i, id := range c.Members {
		if i > 0 {
			p.write("\n")
		}
		p.writeIndent()
		switch m := p.arena.Get(id).(type) {
		case *ast.Method:
			p.emitMethod(m)
			p.write("\n")
		case *ast.Field:
			if m.Static {
				p.write("static ")
			}
			p.emitKey(m.Key, m.Computed)
			if m.Value.Valid() {
				p.write(" = ")
				p.emitExpr(m.Value, precAssign)
			}
			p.write(";\n")
		case *ast.Raw:
			p.write(m.Text + "\n")
		}
	}
	p.dedent()
	p.writeIndent()
	p.write("}")
}

func (p *Printer) emitMethod(m *ast.Method) {
	if m.Static {
		p.write("static ")
	}
	switch m.MethodKind {
	case ast.MethodGet:
		p.write("get ")
	case ast.MethodSet:
		p.write("set ")
	}
	fn, _ := ast.As[*ast.Function](p.arena, m.Value)
	p.emitMethodTail(m.Key, m.Computed, fn)
}

// emitMethodTail writes `key(params) { body }` with async/generator markers.
func (p *Printer) emitMethodTail(key ast.NodeID, computed bool, fn *ast.Function) {
	if fn == nil {
		p.emitKey(key, computed)
		p.write("() {}")
		return
	}
	if fn.Async {
		p.write("async ")
	}
	if fn.Generator {
		p.write("*")
	}
	p.emitKey(key, computed)
	p.emitParams(fn.Params)
	p.write(" ")
	if fn.ExprBody {
		// Arrow values moved into method position keep their expression.
		p.write("{\n")
		p.indent()
		p.writeIndent()
		p.write("return ")
		p.emitExpr(fn.Body, precLowest)
		p.write(";\n")
		p.dedent()
		p.writeIndent()
		p.write("}")
		return
	}
	p.emitBlock(fn.Body)
}

// Objects

func (p *Printer) emitObject(o *ast.Object) {
	if len(o.Props) == 0 {
		p.write("{}")
		return
	}
	if !p.objectIsMultiline(o) {
		p.write("{ ")
		for i, id := range o.Props {
			if i > 0 {
				p.write(", ")
			}
			p.emitProperty(id)
		}
		p.write(" }")
		return
	}
	p.write("{\n")
	p.indent()
	for i, id := range o.Props {
		p.writeIndent()
		p.emitProperty(id)
		if i < len(o.Props)-1 {
			p.write(",")
		}
		p.write("\n")
	}
	p.dedent()
	p.writeIndent()
	p.write("}")
}

func (p *Printer) objectIsMultiline(o *ast.Object) bool {
	if len(o.Props) > 4 {
		return true
	}
	for _, id := range o.Props {
		prop, ok := ast.As[*ast.Property](p.arena, id)
		if !ok {
			continue
		}
		if prop.Method || prop.Accessor != "" {
			return true
		}
		switch v := p.arena.Get(prop.Value).(type) {
		case *ast.Function:
			if !v.ExprBody {
				return true
			}
		case *ast.Class, *ast.JSXElement:
			return true
		case *ast.Object:
			if len(v.Props) > 0 {
				return true
			}
		}
	}
	return false
}

func (p *Printer) emitProperty(id ast.NodeID) {
	prop, ok := ast.As[*ast.Property](p.arena, id)
	if !ok {
		// spread or raw entries
		p.emitExpr(id, precAssign)
		return
	}
	if prop.Accessor != "" {
		p.write(prop.Accessor + " ")
		fn, _ := ast.As[*ast.Function](p.arena, prop.Value)
		p.emitMethodTail(prop.Key, prop.Computed, fn)
		return
	}
	if prop.Method {
		if fn, ok := ast.As[*ast.Function](p.arena, prop.Value); ok && !fn.Arrow {
			p.emitMethodTail(prop.Key, prop.Computed, fn)
			return
		}
	}
	if !prop.Computed && p.isShorthand(prop) {
		p.emitExpr(prop.Value, precAssign)
		return
	}
	p.emitKey(prop.Key, prop.Computed)
	p.write(": ")
	p.emitExpr(prop.Value, precAssign)
}

// isShorthand reports whether the property can print as `name` or, in
// patterns, `name = default`.
func (p *Printer) isShorthand(prop *ast.Property) bool {
	key, ok := ast.As[*ast.Ident](p.arena, prop.Key)
	if !ok {
		return false
	}
	switch v := p.arena.Get(prop.Value).(type) {
	case *ast.Ident:
		return v.Name == key.Name
	case *ast.Assign:
		if !prop.Shorthand || v.Op != "=" {
			return false
		}
		left, ok := ast.As[*ast.Ident](p.arena, v.Left)
		return ok && left.Name == key.Name
	}
	return false
}
