package parser

import (
	"strings"

	sitter "github.com/smacker/go-tree-sitter"

	"debundle/pkg/ast"
)

// converter lowers a tree-sitter JavaScript CST into arena nodes. Shapes the
// reconstruction passes never look into are kept as ast.Raw source text.
type converter struct {
	arena *ast.Arena
	src   []byte
}

func (c *converter) text(n *sitter.Node) string {
	return n.Content(c.src)
}

// add stores node and records the position of ts.
func (c *converter) add(ts *sitter.Node, node ast.Node) ast.NodeID {
	id := c.arena.New(node)
	pt := ts.StartPoint()
	c.arena.SetPos(id, ast.Pos{
		Line:   int(pt.Row) + 1,
		Column: int(pt.Column) + 1,
		Offset: int(ts.StartByte()),
	})
	return id
}

func (c *converter) raw(ts *sitter.Node) ast.NodeID {
	return c.add(ts, &ast.Raw{Text: c.text(ts)})
}

// named returns the named children of n, comments excluded.
func named(n *sitter.Node) []*sitter.Node {
	if n == nil {
		return nil
	}
	count := int(n.NamedChildCount())
	out := make([]*sitter.Node, 0, count)
	for i := 0; i < count; i++ {
		child := n.NamedChild(i)
		if child == nil || isComment(child) {
			continue
		}
		out = append(out, child)
	}
	return out
}

func isComment(n *sitter.Node) bool {
	t := n.Type()
	return t == "comment" || t == "html_comment"
}

// hasToken reports whether n has a direct anonymous child spelled tok.
func hasToken(n *sitter.Node, tok string) bool {
	for i := 0; i < int(n.ChildCount()); i++ {
		child := n.Child(i)
		if child != nil && !child.IsNamed() && child.Type() == tok {
			return true
		}
	}
	return false
}

// unparen strips the parenthesized_expression tree-sitter puts around
// statement conditions.
func unparen(n *sitter.Node) *sitter.Node {
	if n != nil && n.Type() == "parenthesized_expression" {
		if inner := named(n); len(inner) == 1 {
			return inner[0]
		}
	}
	return n
}

func (c *converter) program(root *sitter.Node) ast.NodeID {
	prog := &ast.Program{}
	for _, child := range named(root) {
		prog.Body = append(prog.Body, c.stmt(child))
	}
	return c.add(root, prog)
}

// --- Statements ---

func (c *converter) stmt(n *sitter.Node) ast.NodeID {
	if n == nil {
		return ast.NoNode
	}
	switch n.Type() {
	case "expression_statement":
		kids := named(n)
		if len(kids) == 0 {
			return c.add(n, &ast.Empty{})
		}
		return c.add(n, &ast.ExprStmt{Expr: c.expr(kids[0])})

	case "variable_declaration", "lexical_declaration":
		return c.varDecl(n)

	case "function_declaration", "generator_function_declaration":
		return c.function(n, true)

	case "class_declaration":
		return c.class(n, true)

	case "return_statement":
		ret := &ast.Return{}
		if kids := named(n); len(kids) > 0 {
			ret.Arg = c.expr(kids[0])
		}
		return c.add(n, ret)

	case "statement_block":
		return c.block(n)

	case "if_statement":
		node := &ast.If{
			Test: c.expr(unparen(n.ChildByFieldName("condition"))),
			Cons: c.stmt(n.ChildByFieldName("consequence")),
		}
		if alt := n.ChildByFieldName("alternative"); alt != nil {
			if alt.Type() == "else_clause" {
				if kids := named(alt); len(kids) > 0 {
					node.Alt = c.stmt(kids[0])
				}
			} else {
				node.Alt = c.stmt(alt)
			}
		}
		return c.add(n, node)

	case "for_statement":
		return c.add(n, &ast.For{
			Init:   c.forClause(n.ChildByFieldName("initializer"), true),
			Test:   c.forClause(n.ChildByFieldName("condition"), false),
			Update: c.forClause(n.ChildByFieldName("increment"), false),
			Body:   c.stmt(n.ChildByFieldName("body")),
		})

	case "for_in_statement":
		node := &ast.ForIn{
			Right: c.expr(n.ChildByFieldName("right")),
			Body:  c.stmt(n.ChildByFieldName("body")),
			Await: hasToken(n, "await"),
		}
		if op := n.ChildByFieldName("operator"); op != nil {
			node.Of = op.Type() == "of"
		} else {
			node.Of = hasToken(n, "of")
		}
		left := n.ChildByFieldName("left")
		if kind := n.ChildByFieldName("kind"); kind != nil {
			decl := c.add(left, &ast.Declarator{ID: c.expr(left)})
			node.Left = c.add(kind, &ast.VarDecl{Keyword: kind.Type(), Decls: []ast.NodeID{decl}})
		} else {
			node.Left = c.forClause(left, true)
		}
		return c.add(n, node)

	case "while_statement":
		return c.add(n, &ast.While{
			Test: c.expr(unparen(n.ChildByFieldName("condition"))),
			Body: c.stmt(n.ChildByFieldName("body")),
		})

	case "do_statement":
		return c.add(n, &ast.DoWhile{
			Body: c.stmt(n.ChildByFieldName("body")),
			Test: c.expr(unparen(n.ChildByFieldName("condition"))),
		})

	case "break_statement", "continue_statement":
		node := &ast.Branch{Keyword: strings.TrimSuffix(n.Type(), "_statement")}
		if label := n.ChildByFieldName("label"); label != nil {
			node.Label = c.text(label)
		}
		return c.add(n, node)

	case "throw_statement":
		node := &ast.Throw{}
		if kids := named(n); len(kids) > 0 {
			node.Arg = c.expr(kids[0])
		}
		return c.add(n, node)

	case "try_statement":
		node := &ast.Try{Block: c.block(n.ChildByFieldName("body"))}
		if handler := n.ChildByFieldName("handler"); handler != nil {
			if param := handler.ChildByFieldName("parameter"); param != nil {
				node.Param = c.expr(param)
			}
			node.Handler = c.block(handler.ChildByFieldName("body"))
		}
		if fin := n.ChildByFieldName("finalizer"); fin != nil {
			node.Finalizer = c.block(fin.ChildByFieldName("body"))
		}
		return c.add(n, node)

	case "switch_statement":
		node := &ast.Switch{Disc: c.expr(unparen(n.ChildByFieldName("value")))}
		for _, clause := range named(n.ChildByFieldName("body")) {
			node.Cases = append(node.Cases, c.switchCase(clause))
		}
		return c.add(n, node)

	case "labeled_statement":
		node := &ast.Labeled{}
		if label := n.ChildByFieldName("label"); label != nil {
			node.Label = c.text(label)
		}
		if body := n.ChildByFieldName("body"); body != nil {
			node.Body = c.stmt(body)
		}
		return c.add(n, node)

	case "empty_statement":
		return c.add(n, &ast.Empty{})
	}

	return c.raw(n)
}

func (c *converter) block(n *sitter.Node) ast.NodeID {
	if n == nil {
		return ast.NoNode
	}
	blk := &ast.Block{Body: []ast.NodeID{}}
	for _, child := range named(n) {
		blk.Body = append(blk.Body, c.stmt(child))
	}
	return c.add(n, blk)
}

func (c *converter) varDecl(n *sitter.Node) ast.NodeID {
	keyword := "var"
	if kind := n.ChildByFieldName("kind"); kind != nil {
		keyword = kind.Type()
	}
	decl := &ast.VarDecl{Keyword: keyword}
	for _, child := range named(n) {
		if child.Type() != "variable_declarator" {
			continue
		}
		d := &ast.Declarator{ID: c.expr(child.ChildByFieldName("name"))}
		if value := child.ChildByFieldName("value"); value != nil {
			d.Init = c.expr(value)
		}
		decl.Decls = append(decl.Decls, c.add(child, d))
	}
	return c.add(n, decl)
}

// forClause converts the head pieces of a for statement. Older grammars
// wrap condition and update in expression_statement nodes.
func (c *converter) forClause(n *sitter.Node, allowDecl bool) ast.NodeID {
	if n == nil {
		return ast.NoNode
	}
	switch n.Type() {
	case "empty_statement", ";":
		return ast.NoNode
	case "expression_statement":
		kids := named(n)
		if len(kids) == 0 {
			return ast.NoNode
		}
		return c.expr(kids[0])
	case "variable_declaration", "lexical_declaration":
		if allowDecl {
			return c.varDecl(n)
		}
	}
	return c.expr(n)
}

func (c *converter) switchCase(n *sitter.Node) ast.NodeID {
	node := &ast.Case{}
	value := n.ChildByFieldName("value")
	for _, child := range named(n) {
		if value != nil && child.StartByte() == value.StartByte() && child.Type() == value.Type() {
			node.Test = c.expr(value)
			continue
		}
		node.Body = append(node.Body, c.stmt(child))
	}
	return c.add(n, node)
}

// --- Expressions ---

func (c *converter) expr(n *sitter.Node) ast.NodeID {
	if n == nil {
		return ast.NoNode
	}
	switch n.Type() {
	case "identifier", "shorthand_property_identifier", "shorthand_property_identifier_pattern",
		"property_identifier", "private_property_identifier", "statement_identifier", "undefined":
		return c.add(n, &ast.Ident{Name: c.text(n)})

	case "this":
		return c.add(n, &ast.This{})
	case "super":
		return c.add(n, &ast.Super{})

	case "true", "false":
		return c.add(n, &ast.Literal{LitKind: ast.LitBool, Raw: n.Type()})
	case "null":
		return c.add(n, &ast.Literal{LitKind: ast.LitNull, Raw: "null"})
	case "number":
		raw := c.text(n)
		kind := ast.LitNumber
		if strings.HasSuffix(raw, "n") {
			kind = ast.LitBigInt
		}
		return c.add(n, &ast.Literal{LitKind: kind, Raw: raw})
	case "string":
		raw := c.text(n)
		return c.add(n, &ast.Literal{LitKind: ast.LitString, Raw: raw, Value: unquote(raw)})
	case "regex":
		return c.add(n, &ast.Literal{LitKind: ast.LitRegExp, Raw: c.text(n)})

	case "template_string":
		return c.template(n)

	case "parenthesized_expression":
		kids := named(n)
		if len(kids) != 1 {
			return c.raw(n)
		}
		return c.add(n, &ast.Paren{Expr: c.expr(kids[0])})

	case "sequence_expression":
		seq := &ast.Sequence{}
		c.flattenSequence(n, seq)
		return c.add(n, seq)

	case "array", "array_pattern":
		return c.array(n)

	case "object", "object_pattern":
		return c.object(n)

	case "spread_element", "rest_pattern":
		kids := named(n)
		if len(kids) == 0 {
			return c.raw(n)
		}
		return c.add(n, &ast.Spread{Arg: c.expr(kids[0])})

	case "assignment_pattern", "object_assignment_pattern":
		return c.add(n, &ast.Assign{
			Op:    "=",
			Left:  c.expr(n.ChildByFieldName("left")),
			Right: c.expr(n.ChildByFieldName("right")),
		})

	case "function", "function_expression", "generator_function", "arrow_function":
		return c.function(n, false)

	case "class":
		return c.class(n, false)

	case "unary_expression":
		op := n.ChildByFieldName("operator")
		if op == nil {
			return c.raw(n)
		}
		return c.add(n, &ast.Unary{Op: op.Type(), Arg: c.expr(n.ChildByFieldName("argument"))})

	case "update_expression":
		op := n.ChildByFieldName("operator")
		arg := n.ChildByFieldName("argument")
		if op == nil || arg == nil {
			return c.raw(n)
		}
		return c.add(n, &ast.Update{
			Op:     op.Type(),
			Prefix: op.StartByte() < arg.StartByte(),
			Arg:    c.expr(arg),
		})

	case "binary_expression":
		op := n.ChildByFieldName("operator")
		if op == nil {
			return c.raw(n)
		}
		left := c.expr(n.ChildByFieldName("left"))
		right := c.expr(n.ChildByFieldName("right"))
		switch op.Type() {
		case "&&", "||", "??":
			return c.add(n, &ast.Logical{Op: op.Type(), Left: left, Right: right})
		}
		return c.add(n, &ast.Binary{Op: op.Type(), Left: left, Right: right})

	case "assignment_expression":
		return c.add(n, &ast.Assign{
			Op:    "=",
			Left:  c.expr(n.ChildByFieldName("left")),
			Right: c.expr(n.ChildByFieldName("right")),
		})

	case "augmented_assignment_expression":
		op := n.ChildByFieldName("operator")
		if op == nil {
			return c.raw(n)
		}
		return c.add(n, &ast.Assign{
			Op:    op.Type(),
			Left:  c.expr(n.ChildByFieldName("left")),
			Right: c.expr(n.ChildByFieldName("right")),
		})

	case "ternary_expression":
		return c.add(n, &ast.Conditional{
			Test: c.expr(n.ChildByFieldName("condition")),
			Cons: c.expr(n.ChildByFieldName("consequence")),
			Alt:  c.expr(n.ChildByFieldName("alternative")),
		})

	case "call_expression":
		return c.call(n)

	case "new_expression":
		node := &ast.New{Callee: c.expr(n.ChildByFieldName("constructor"))}
		if args := n.ChildByFieldName("arguments"); args != nil {
			node.Args = c.args(args)
		}
		return c.add(n, node)

	case "member_expression":
		return c.add(n, &ast.Member{
			Object:   c.expr(n.ChildByFieldName("object")),
			Property: c.expr(n.ChildByFieldName("property")),
			Optional: isOptional(n),
		})

	case "subscript_expression":
		return c.add(n, &ast.Member{
			Object:   c.expr(n.ChildByFieldName("object")),
			Property: c.expr(n.ChildByFieldName("index")),
			Computed: true,
			Optional: isOptional(n),
		})

	case "await_expression":
		kids := named(n)
		if len(kids) == 0 {
			return c.raw(n)
		}
		return c.add(n, &ast.Await{Arg: c.expr(kids[0])})

	case "yield_expression":
		node := &ast.Yield{Delegate: hasToken(n, "*")}
		if kids := named(n); len(kids) > 0 {
			node.Arg = c.expr(kids[0])
		}
		return c.add(n, node)
	}

	return c.raw(n)
}

func isOptional(n *sitter.Node) bool {
	return hasToken(n, "?.") || hasOptionalChain(n)
}

func hasOptionalChain(n *sitter.Node) bool {
	for i := 0; i < int(n.ChildCount()); i++ {
		child := n.Child(i)
		if child != nil && child.Type() == "optional_chain" {
			return true
		}
	}
	return false
}

func (c *converter) flattenSequence(n *sitter.Node, seq *ast.Sequence) {
	for _, child := range named(n) {
		if child.Type() == "sequence_expression" {
			c.flattenSequence(child, seq)
			continue
		}
		seq.Exprs = append(seq.Exprs, c.expr(child))
	}
}

func (c *converter) call(n *sitter.Node) ast.NodeID {
	callee := c.expr(n.ChildByFieldName("function"))
	args := n.ChildByFieldName("arguments")
	if args != nil && args.Type() == "template_string" {
		return c.add(n, &ast.TaggedTemplate{Tag: callee, Quasi: c.template(args)})
	}
	node := &ast.Call{Callee: callee, Args: []ast.NodeID{}, Optional: isOptional(n)}
	if args != nil {
		node.Args = c.args(args)
	}
	return c.add(n, node)
}

func (c *converter) args(n *sitter.Node) []ast.NodeID {
	out := []ast.NodeID{}
	for _, child := range named(n) {
		out = append(out, c.expr(child))
	}
	return out
}

// array keeps holes as NoNode entries.
func (c *converter) array(n *sitter.Node) ast.NodeID {
	arr := &ast.Array{Elems: []ast.NodeID{}}
	pendingHole := false
	for i := 0; i < int(n.ChildCount()); i++ {
		child := n.Child(i)
		if child == nil || isComment(child) {
			continue
		}
		switch {
		case child.Type() == "[":
			pendingHole = true
		case child.Type() == ",":
			if pendingHole {
				arr.Elems = append(arr.Elems, ast.NoNode)
			}
			pendingHole = true
		case child.Type() == "]":
		default:
			arr.Elems = append(arr.Elems, c.expr(child))
			pendingHole = false
		}
	}
	return c.add(n, arr)
}

func (c *converter) object(n *sitter.Node) ast.NodeID {
	obj := &ast.Object{Props: []ast.NodeID{}}
	for _, child := range named(n) {
		switch child.Type() {
		case "pair", "pair_pattern":
			key, computed := c.propertyKey(child.ChildByFieldName("key"))
			obj.Props = append(obj.Props, c.add(child, &ast.Property{
				Key:      key,
				Value:    c.expr(child.ChildByFieldName("value")),
				Computed: computed,
			}))

		case "shorthand_property_identifier", "shorthand_property_identifier_pattern":
			obj.Props = append(obj.Props, c.add(child, &ast.Property{
				Key:       c.add(child, &ast.Ident{Name: c.text(child)}),
				Value:     c.expr(child),
				Shorthand: true,
			}))

		case "object_assignment_pattern":
			// `{ a = 1 }` binds a with a default.
			left := child.ChildByFieldName("left")
			obj.Props = append(obj.Props, c.add(child, &ast.Property{
				Key:       c.add(left, &ast.Ident{Name: c.text(left)}),
				Value:     c.expr(child),
				Shorthand: true,
			}))

		case "method_definition":
			obj.Props = append(obj.Props, c.objectMethod(child))

		case "spread_element", "rest_pattern":
			obj.Props = append(obj.Props, c.expr(child))

		default:
			obj.Props = append(obj.Props, c.raw(child))
		}
	}
	return c.add(n, obj)
}

// propertyKey converts an object or class key. Plain names become Idents,
// string and numeric keys stay Literals.
func (c *converter) propertyKey(n *sitter.Node) (ast.NodeID, bool) {
	if n == nil {
		return ast.NoNode, false
	}
	if n.Type() == "computed_property_name" {
		kids := named(n)
		if len(kids) == 1 {
			return c.expr(kids[0]), true
		}
		return c.raw(n), true
	}
	return c.expr(n), false
}

func (c *converter) objectMethod(n *sitter.Node) ast.NodeID {
	key, computed := c.propertyKey(n.ChildByFieldName("name"))
	prop := &ast.Property{
		Key:      key,
		Computed: computed,
		Value:    c.methodFunction(n),
	}
	switch {
	case hasToken(n, "get"):
		prop.Accessor = "get"
	case hasToken(n, "set"):
		prop.Accessor = "set"
	default:
		prop.Method = true
	}
	return c.add(n, prop)
}

// methodFunction builds the Function value shared by object and class
// methods.
func (c *converter) methodFunction(n *sitter.Node) ast.NodeID {
	fn := &ast.Function{
		Params:    c.params(n.ChildByFieldName("parameters")),
		Body:      c.block(n.ChildByFieldName("body")),
		Async:     hasToken(n, "async"),
		Generator: hasToken(n, "*"),
	}
	return c.add(n, fn)
}

func (c *converter) params(n *sitter.Node) []ast.NodeID {
	out := []ast.NodeID{}
	for _, child := range named(n) {
		out = append(out, c.expr(child))
	}
	return out
}

func (c *converter) function(n *sitter.Node, declaration bool) ast.NodeID {
	fn := &ast.Function{
		Declaration: declaration,
		Async:       hasToken(n, "async"),
		Generator:   strings.HasPrefix(n.Type(), "generator_") || hasToken(n, "*"),
	}
	if name := n.ChildByFieldName("name"); name != nil {
		fn.ID = c.expr(name)
	}

	if n.Type() == "arrow_function" {
		fn.Arrow = true
		if single := n.ChildByFieldName("parameter"); single != nil {
			fn.Params = []ast.NodeID{c.expr(single)}
		} else {
			fn.Params = c.params(n.ChildByFieldName("parameters"))
		}
		body := n.ChildByFieldName("body")
		if body != nil && body.Type() != "statement_block" {
			fn.ExprBody = true
			fn.Body = c.expr(body)
		} else {
			fn.Body = c.block(body)
		}
		return c.add(n, fn)
	}

	fn.Params = c.params(n.ChildByFieldName("parameters"))
	fn.Body = c.block(n.ChildByFieldName("body"))
	return c.add(n, fn)
}

func (c *converter) class(n *sitter.Node, declaration bool) ast.NodeID {
	cls := &ast.Class{Declaration: declaration, Members: []ast.NodeID{}}
	if name := n.ChildByFieldName("name"); name != nil {
		cls.ID = c.expr(name)
	}
	for _, child := range named(n) {
		if child.Type() != "class_heritage" {
			continue
		}
		if kids := named(child); len(kids) > 0 {
			cls.Super = c.expr(kids[0])
		}
	}
	for _, member := range named(n.ChildByFieldName("body")) {
		switch member.Type() {
		case "method_definition":
			cls.Members = append(cls.Members, c.classMethod(member))
		case "field_definition", "public_field_definition":
			key, computed := c.propertyKey(member.ChildByFieldName("property"))
			field := &ast.Field{Key: key, Computed: computed, Static: hasToken(member, "static")}
			if value := member.ChildByFieldName("value"); value != nil {
				field.Value = c.expr(value)
			}
			cls.Members = append(cls.Members, c.add(member, field))
		default:
			cls.Members = append(cls.Members, c.raw(member))
		}
	}
	return c.add(n, cls)
}

func (c *converter) classMethod(n *sitter.Node) ast.NodeID {
	key, computed := c.propertyKey(n.ChildByFieldName("name"))
	m := &ast.Method{
		Key:      key,
		Value:    c.methodFunction(n),
		Static:   hasToken(n, "static"),
		Computed: computed,
	}
	switch {
	case hasToken(n, "get"):
		m.MethodKind = ast.MethodGet
	case hasToken(n, "set"):
		m.MethodKind = ast.MethodSet
	case !m.Static && !computed:
		if ident, ok := ast.As[*ast.Ident](c.arena, key); ok && ident.Name == "constructor" {
			m.MethodKind = ast.MethodConstructor
		}
	}
	return c.add(n, m)
}

// template splits a template_string into raw quasis and substitutions by
// byte range.
func (c *converter) template(n *sitter.Node) ast.NodeID {
	tpl := &ast.Template{}
	start := int(n.StartByte()) + 1 // after the opening backtick
	end := int(n.EndByte()) - 1
	for _, child := range named(n) {
		if child.Type() != "template_substitution" {
			continue
		}
		tpl.Quasis = append(tpl.Quasis, string(c.src[start:child.StartByte()]))
		if kids := named(child); len(kids) > 0 {
			tpl.Exprs = append(tpl.Exprs, c.expr(kids[0]))
		} else {
			tpl.Exprs = append(tpl.Exprs, c.raw(child))
		}
		start = int(child.EndByte())
	}
	if end < start {
		end = start
	}
	tpl.Quasis = append(tpl.Quasis, string(c.src[start:end]))
	return c.add(n, tpl)
}
