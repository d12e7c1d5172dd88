package ast

import (
	"fmt"
	"strings"
)

// Inspect visits the subtree rooted at id in depth-first pre-order. When
// fn returns false the children of that node are skipped.
func (a *Arena) Inspect(id NodeID, fn func(id NodeID, n Node) bool) {
	n := a.Get(id)
	if n == nil {
		return
	}
	if !fn(id, n) {
		return
	}
	for _, child := range Children(n) {
		a.Inspect(child, fn)
	}
}

// Contains reports whether target occurs in the subtree rooted at id.
func (a *Arena) Contains(id, target NodeID) bool {
	found := false
	a.Inspect(id, func(cur NodeID, _ Node) bool {
		if cur == target {
			found = true
		}
		return !found
	})
	return found
}

// Dump renders the subtree rooted at id as an indented outline, one node
// per line. It is meant for tests and debugging.
func (a *Arena) Dump(id NodeID) string {
	var sb strings.Builder
	a.dump(&sb, id, 0)
	return sb.String()
}

func (a *Arena) dump(sb *strings.Builder, id NodeID, depth int) {
	n := a.Get(id)
	if n == nil {
		return
	}
	sb.WriteString(strings.Repeat("  ", depth))
	sb.WriteString(n.Kind().String())
	if detail := describe(n); detail != "" {
		sb.WriteString(" ")
		sb.WriteString(detail)
	}
	sb.WriteString("\n")
	for _, child := range Children(n) {
		a.dump(sb, child, depth+1)
	}
}

func describe(n Node) string {
	switch n := n.(type) {
	case *Ident:
		return n.Name
	case *Literal:
		return n.Raw
	case *VarDecl:
		return n.Keyword
	case *Unary:
		return n.Op
	case *Update:
		return n.Op
	case *Binary:
		return n.Op
	case *Logical:
		return n.Op
	case *Assign:
		return n.Op
	case *Branch:
		return strings.TrimSpace(n.Keyword + " " + n.Label)
	case *Labeled:
		return n.Label
	case *Raw:
		return fmt.Sprintf("%q", n.Text)
	case *Function:
		var flags []string
		if n.Declaration {
			flags = append(flags, "decl")
		}
		if n.Arrow {
			flags = append(flags, "arrow")
		}
		if n.Async {
			flags = append(flags, "async")
		}
		if n.Generator {
			flags = append(flags, "generator")
		}
		return strings.Join(flags, ",")
	case *Method:
		kind := [...]string{"method", "constructor", "get", "set"}[n.MethodKind]
		if n.Static {
			return "static " + kind
		}
		return kind
	case *ImportSpec:
		return [...]string{"named", "default", "namespace"}[n.SpecKind]
	case *JSXElement:
		if n.SelfClosing {
			return n.Name + " selfclosing"
		}
		return n.Name
	case *JSXAttr:
		return n.Name
	case *JSXText:
		return fmt.Sprintf("%q", n.Value)
	}
	return ""
}
