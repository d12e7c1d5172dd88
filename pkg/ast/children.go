package ast

import "slices"

// Children returns the handles directly owned by n, in source order.
// NoNode slots (absent optionals, array holes) are skipped.
func Children(n Node) []NodeID {
	var out []NodeID
	add := func(ids ...NodeID) {
		for _, id := range ids {
			if id.Valid() {
				out = append(out, id)
			}
		}
	}

	switch n := n.(type) {
	case *Program:
		add(n.Body...)
	case *VarDecl:
		add(n.Decls...)
	case *Declarator:
		add(n.ID, n.Init)
	case *ExprStmt:
		add(n.Expr)
	case *Return:
		add(n.Arg)
	case *If:
		add(n.Test, n.Cons, n.Alt)
	case *Block:
		add(n.Body...)
	case *For:
		add(n.Init, n.Test, n.Update, n.Body)
	case *ForIn:
		add(n.Left, n.Right, n.Body)
	case *While:
		add(n.Test, n.Body)
	case *DoWhile:
		add(n.Body, n.Test)
	case *Throw:
		add(n.Arg)
	case *Try:
		add(n.Block, n.Param, n.Handler, n.Finalizer)
	case *Switch:
		add(n.Disc)
		add(n.Cases...)
	case *Case:
		add(n.Test)
		add(n.Body...)
	case *Labeled:
		add(n.Body)
	case *ImportDecl:
		add(n.Specifiers...)
		add(n.Source)
	case *ImportSpec:
		add(n.Local)
	case *ExportDefault:
		add(n.Decl)
	case *ExportNamed:
		add(n.Decl)
		add(n.Specifiers...)
		add(n.Source)
	case *ExportSpec:
		add(n.Local)
	case *Template:
		add(n.Exprs...)
	case *TaggedTemplate:
		add(n.Tag, n.Quasi)
	case *Array:
		add(n.Elems...)
	case *Object:
		add(n.Props...)
	case *Property:
		add(n.Key, n.Value)
	case *Spread:
		add(n.Arg)
	case *Function:
		add(n.ID)
		add(n.Params...)
		add(n.Body)
	case *Class:
		add(n.ID, n.Super)
		add(n.Members...)
	case *Method:
		add(n.Key, n.Value)
	case *Field:
		add(n.Key, n.Value)
	case *Unary:
		add(n.Arg)
	case *Update:
		add(n.Arg)
	case *Binary:
		add(n.Left, n.Right)
	case *Logical:
		add(n.Left, n.Right)
	case *Assign:
		add(n.Left, n.Right)
	case *Conditional:
		add(n.Test, n.Cons, n.Alt)
	case *Call:
		add(n.Callee)
		add(n.Args...)
	case *New:
		add(n.Callee)
		add(n.Args...)
	case *Member:
		add(n.Object, n.Property)
	case *Sequence:
		add(n.Exprs...)
	case *Paren:
		add(n.Expr)
	case *Await:
		add(n.Arg)
	case *Yield:
		add(n.Arg)
	case *JSXElement:
		add(n.Attrs...)
		add(n.Children...)
	case *JSXAttr:
		add(n.Value)
	case *JSXSpreadAttr:
		add(n.Arg)
	case *JSXExprContainer:
		add(n.Expr)
	}
	return out
}

// ReplaceChild points the first slot of n holding old at repl. It reports
// false when n does not own old. Passing NoNode as repl clears a single
// slot; list entries are removed instead.
func ReplaceChild(n Node, old, repl NodeID) bool {
	if !old.Valid() {
		return false
	}
	one := func(slot *NodeID) bool {
		if *slot == old {
			*slot = repl
			return true
		}
		return false
	}
	list := func(slot *[]NodeID) bool {
		i := slices.Index(*slot, old)
		if i < 0 {
			return false
		}
		if repl.Valid() {
			(*slot)[i] = repl
		} else {
			*slot = slices.Delete(*slot, i, i+1)
		}
		return true
	}

	switch n := n.(type) {
	case *Program:
		return list(&n.Body)
	case *VarDecl:
		return list(&n.Decls)
	case *Declarator:
		return one(&n.ID) || one(&n.Init)
	case *ExprStmt:
		return one(&n.Expr)
	case *Return:
		return one(&n.Arg)
	case *If:
		return one(&n.Test) || one(&n.Cons) || one(&n.Alt)
	case *Block:
		return list(&n.Body)
	case *For:
		return one(&n.Init) || one(&n.Test) || one(&n.Update) || one(&n.Body)
	case *ForIn:
		return one(&n.Left) || one(&n.Right) || one(&n.Body)
	case *While:
		return one(&n.Test) || one(&n.Body)
	case *DoWhile:
		return one(&n.Body) || one(&n.Test)
	case *Throw:
		return one(&n.Arg)
	case *Try:
		return one(&n.Block) || one(&n.Param) || one(&n.Handler) || one(&n.Finalizer)
	case *Switch:
		return one(&n.Disc) || list(&n.Cases)
	case *Case:
		return one(&n.Test) || list(&n.Body)
	case *Labeled:
		return one(&n.Body)
	case *ImportDecl:
		return list(&n.Specifiers) || one(&n.Source)
	case *ImportSpec:
		return one(&n.Local)
	case *ExportDefault:
		return one(&n.Decl)
	case *ExportNamed:
		return one(&n.Decl) || list(&n.Specifiers) || one(&n.Source)
	case *ExportSpec:
		return one(&n.Local)
	case *Template:
		return list(&n.Exprs)
	case *TaggedTemplate:
		return one(&n.Tag) || one(&n.Quasi)
	case *Array:
		return list(&n.Elems)
	case *Object:
		return list(&n.Props)
	case *Property:
		return one(&n.Key) || one(&n.Value)
	case *Spread:
		return one(&n.Arg)
	case *Function:
		return one(&n.ID) || list(&n.Params) || one(&n.Body)
	case *Class:
		return one(&n.ID) || one(&n.Super) || list(&n.Members)
	case *Method:
		return one(&n.Key) || one(&n.Value)
	case *Field:
		return one(&n.Key) || one(&n.Value)
	case *Unary:
		return one(&n.Arg)
	case *Update:
		return one(&n.Arg)
	case *Binary:
		return one(&n.Left) || one(&n.Right)
	case *Logical:
		return one(&n.Left) || one(&n.Right)
	case *Assign:
		return one(&n.Left) || one(&n.Right)
	case *Conditional:
		return one(&n.Test) || one(&n.Cons) || one(&n.Alt)
	case *Call:
		return one(&n.Callee) || list(&n.Args)
	case *New:
		return one(&n.Callee) || list(&n.Args)
	case *Member:
		return one(&n.Object) || one(&n.Property)
	case *Sequence:
		return list(&n.Exprs)
	case *Paren:
		return one(&n.Expr)
	case *Await:
		return one(&n.Arg)
	case *Yield:
		return one(&n.Arg)
	case *JSXElement:
		return list(&n.Attrs) || list(&n.Children)
	case *JSXAttr:
		return one(&n.Value)
	case *JSXSpreadAttr:
		return one(&n.Arg)
	case *JSXExprContainer:
		return one(&n.Expr)
	}
	return false
}

// shallowCopy returns a copy of n whose child lists are independent of n.
func shallowCopy(n Node) Node {
	switch n := n.(type) {
	case *Program:
		c := *n
		c.Body = slices.Clone(n.Body)
		return &c
	case *VarDecl:
		c := *n
		c.Decls = slices.Clone(n.Decls)
		return &c
	case *Declarator:
		c := *n
		return &c
	case *ExprStmt:
		c := *n
		return &c
	case *Return:
		c := *n
		return &c
	case *If:
		c := *n
		return &c
	case *Block:
		c := *n
		c.Body = slices.Clone(n.Body)
		return &c
	case *For:
		c := *n
		return &c
	case *ForIn:
		c := *n
		return &c
	case *While:
		c := *n
		return &c
	case *DoWhile:
		c := *n
		return &c
	case *Branch:
		c := *n
		return &c
	case *Throw:
		c := *n
		return &c
	case *Try:
		c := *n
		return &c
	case *Switch:
		c := *n
		c.Cases = slices.Clone(n.Cases)
		return &c
	case *Case:
		c := *n
		c.Body = slices.Clone(n.Body)
		return &c
	case *Labeled:
		c := *n
		return &c
	case *Empty:
		return &Empty{}
	case *ImportDecl:
		c := *n
		c.Specifiers = slices.Clone(n.Specifiers)
		return &c
	case *ImportSpec:
		c := *n
		return &c
	case *ExportDefault:
		c := *n
		return &c
	case *ExportNamed:
		c := *n
		c.Specifiers = slices.Clone(n.Specifiers)
		return &c
	case *ExportSpec:
		c := *n
		return &c
	case *Ident:
		c := *n
		return &c
	case *Literal:
		c := *n
		return &c
	case *Template:
		c := *n
		c.Quasis = slices.Clone(n.Quasis)
		c.Exprs = slices.Clone(n.Exprs)
		return &c
	case *TaggedTemplate:
		c := *n
		return &c
	case *This:
		return &This{}
	case *Super:
		return &Super{}
	case *Array:
		c := *n
		c.Elems = slices.Clone(n.Elems)
		return &c
	case *Object:
		c := *n
		c.Props = slices.Clone(n.Props)
		return &c
	case *Property:
		c := *n
		return &c
	case *Spread:
		c := *n
		return &c
	case *Function:
		c := *n
		c.Params = slices.Clone(n.Params)
		return &c
	case *Class:
		c := *n
		c.Members = slices.Clone(n.Members)
		return &c
	case *Method:
		c := *n
		return &c
	case *Field:
		c := *n
		return &c
	case *Unary:
		c := *n
		return &c
	case *Update:
		c := *n
		return &c
	case *Binary:
		c := *n
		return &c
	case *Logical:
		c := *n
		return &c
	case *Assign:
		c := *n
		return &c
	case *Conditional:
		c := *n
		return &c
	case *Call:
		c := *n
		c.Args = slices.Clone(n.Args)
		return &c
	case *New:
		c := *n
		c.Args = slices.Clone(n.Args)
		return &c
	case *Member:
		c := *n
		return &c
	case *Sequence:
		c := *n
		c.Exprs = slices.Clone(n.Exprs)
		return &c
	case *Paren:
		c := *n
		return &c
	case *Await:
		c := *n
		return &c
	case *Yield:
		c := *n
		return &c
	case *Raw:
		c := *n
		return &c
	case *JSXElement:
		c := *n
		c.Attrs = slices.Clone(n.Attrs)
		c.Children = slices.Clone(n.Children)
		return &c
	case *JSXAttr:
		c := *n
		return &c
	case *JSXSpreadAttr:
		c := *n
		return &c
	case *JSXExprContainer:
		c := *n
		return &c
	case *JSXText:
		c := *n
		return &c
	case *JSXEmpty:
		return &JSXEmpty{}
	}
	return n
}
