package reconstruct

import (
	"fmt"

	"github.com/dlclark/regexp2"

	"debundle/pkg/ast"
	"debundle/pkg/errors"
)

// attrNamePattern accepts keys that can be written as a markup attribute
// name, including hyphenated and namespaced ones.
var attrNamePattern = regexp2.MustCompile(`^[A-Za-z_$][\w$]*(?:[-:][\w$]+)*$`, regexp2.None)

// normalizeProps converts the props argument of a factory call into an
// attribute list. inSpread is set while expanding the arguments of a
// composed props call, where any leftover shape can stay a spread.
func (p *pass) normalizeProps(id ast.NodeID, inSpread bool) ([]ast.NodeID, error) {
	if !id.Valid() {
		return nil, nil
	}
	id = p.strip(id)
	if p.isNull(id) || p.isVoid(id) {
		return nil, nil
	}

	switch n := p.arena.Get(id).(type) {
	case *ast.Object:
		return p.objectAttrs(n), nil

	case *ast.Ident:
		return []ast.NodeID{p.spreadAttr(id)}, nil

	case *ast.Call:
		if inSpread || len(n.Args) < 2 || !p.isComposer(n.Callee) {
			return []ast.NodeID{p.spreadAttr(id)}, nil
		}
		var attrs []ast.NodeID
		for _, arg := range n.Args {
			if p.arena.KindOf(p.strip(arg)) == ast.KindIdent {
				attrs = append(attrs, p.spreadAttr(arg))
				continue
			}
			more, err := p.normalizeProps(arg, true)
			if err != nil {
				return nil, err
			}
			attrs = append(attrs, more...)
		}
		return attrs, nil

	case *ast.Conditional, *ast.Logical, *ast.Member:
		return []ast.NodeID{p.spreadAttr(id)}, nil
	}

	if inSpread {
		return []ast.NodeID{p.spreadAttr(id)}, nil
	}
	pos := p.arena.PosOf(id)
	return nil, (&errors.TransformError{
		Position: errors.Position{Line: pos.Line, Column: pos.Column, Offset: pos.Offset},
		Msg:      fmt.Sprintf("cannot convert %s props to attributes", p.arena.KindOf(id)),
	}).CausedBy(ErrUnsupportedProps)
}

// isComposer matches the callee of an `Object.assign`/`_extends` style
// props merge.
func (p *pass) isComposer(callee ast.NodeID) bool {
	switch p.arena.KindOf(p.strip(callee)) {
	case ast.KindIdent, ast.KindSequence, ast.KindMember:
		return true
	}
	return false
}

// objectAttrs converts an object literal entry by entry. Entries with no
// attribute spelling become spreads of a one-entry object.
func (p *pass) objectAttrs(obj *ast.Object) []ast.NodeID {
	attrs := make([]ast.NodeID, 0, len(obj.Props))
	for _, prop := range obj.Props {
		switch n := p.arena.Get(prop).(type) {
		case *ast.Spread:
			attrs = append(attrs, p.spreadAttr(n.Arg))
		case *ast.Property:
			name, ok := p.attrName(n)
			if !ok || n.Accessor != "" {
				attrs = append(attrs, p.spreadAttr(p.arena.New(&ast.Object{Props: []ast.NodeID{prop}})))
				continue
			}
			attrs = append(attrs, p.arena.New(&ast.JSXAttr{Name: name, Value: p.attrValue(n.Value)}))
		default:
			attrs = append(attrs, p.spreadAttr(p.arena.New(&ast.Object{Props: []ast.NodeID{prop}})))
		}
	}
	return attrs
}

func (p *pass) attrName(prop *ast.Property) (string, bool) {
	if prop.Computed {
		return "", false
	}
	if name, ok := p.identName(prop.Key); ok {
		return name, true
	}
	if s, ok := p.stringValue(prop.Key); ok && matches(attrNamePattern, s) {
		return s, true
	}
	return "", false
}

// attrValue wraps value for use as an attribute value. String literals are
// kept as they are.
func (p *pass) attrValue(value ast.NodeID) ast.NodeID {
	if _, ok := p.stringValue(value); ok {
		return value
	}
	return p.arena.New(&ast.JSXExprContainer{Expr: value})
}

func (p *pass) spreadAttr(arg ast.NodeID) ast.NodeID {
	return p.arena.New(&ast.JSXSpreadAttr{Arg: arg})
}
