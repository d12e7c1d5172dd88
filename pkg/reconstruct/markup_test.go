package reconstruct

import (
	"context"
	stderrors "errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"debundle/pkg/ast"
	"debundle/pkg/errors"
	"debundle/pkg/parser"
	"debundle/pkg/printer"
	"debundle/pkg/source"
)

// attrs renders an element's attributes as `name=value` and `...spread`.
func attrs(arena *ast.Arena, el *ast.JSXElement) []string {
	var out []string
	for _, id := range el.Attrs {
		switch a := arena.Get(id).(type) {
		case *ast.JSXAttr:
			if a.Value.Valid() {
				out = append(out, a.Name+"="+printer.Expr(arena, a.Value))
			} else {
				out = append(out, a.Name)
			}
		case *ast.JSXSpreadAttr:
			out = append(out, "..."+printer.Expr(arena, a.Arg))
		}
	}
	return out
}

func TestClassicFactoryCall(t *testing.T) {
	code := `function render(x) {
  return M.createElement("div", {id: x}, M.createElement("span", null));
}
`
	_, arena, root, report := transform(t, code)

	ret := collect[*ast.Return](arena, root)
	require.Len(t, ret, 1)
	div, ok := ast.As[*ast.JSXElement](arena, ret[0].Arg)
	require.True(t, ok, "return argument is %s", arena.KindOf(ret[0].Arg))

	assert.Equal(t, "div", div.Name)
	assert.Equal(t, []string{"id={x}"}, attrs(arena, div))
	assert.False(t, div.SelfClosing)
	require.Len(t, div.Children, 1)

	span, ok := ast.As[*ast.JSXElement](arena, div.Children[0])
	require.True(t, ok)
	assert.Equal(t, "span", span.Name)
	assert.Empty(t, span.Attrs)
	assert.True(t, span.SelfClosing)

	assert.Equal(t, 2, report.Elements)
	assert.Zero(t, report.Diagnostics)
}

func TestComposedSpreadProps(t *testing.T) {
	code := `function Wrapper(props) {
  return React.createElement(Foo, Object.assign({}, props, {extra: 1}));
}
`
	_, arena, root, _ := transform(t, code)

	els := collect[*ast.JSXElement](arena, root)
	require.Len(t, els, 1)
	assert.Equal(t, "Foo", els[0].Name)
	assert.Equal(t, []string{"...props", "extra={1}"}, attrs(arena, els[0]))
	assert.True(t, els[0].SelfClosing)
}

func TestPropsNormalization(t *testing.T) {
	tests := []struct {
		name  string
		props string
		want  []string
	}{
		{"null", `null`, nil},
		{"void sentinel", `void 0`, nil},
		{"identifier", `props`, []string{"...props"}},
		{"string value", `{className: "box"}`, []string{`className="box"`}},
		{"hyphenated key", `{"aria-label": label}`, []string{"aria-label={label}"}},
		{"object spread", `{...rest, id: 1}`, []string{"...rest", "id={1}"}},
		{"computed key", `{[key]: value}`, []string{"...{ [key]: value }"}},
		{"conditional", `cond ? a : b`, []string{"...cond ? a : b"}},
		{"logical", `a || b`, []string{"...a || b"}},
		{"member", `this.props`, []string{"...this.props"}},
		{"plain call", `getProps()`, []string{"...getProps()"}},
		{"extends helper", `_extends({}, base, {key2: k})`, []string{"...base", "key2={k}"}},
		{"indirect helper", `(0, _objectSpread2.default)({}, base, cond && extra)`, []string{"...base", "...cond && extra"}},
		{"nested composition", `Object.assign({}, a, Object.assign({}, b, c))`, []string{"...a", "...Object.assign({}, b, c)"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			code := "var el = React.createElement(Box, " + tt.props + ");\n"
			_, arena, root, _ := transform(t, code)
			els := collect[*ast.JSXElement](arena, root)
			require.Len(t, els, 1)
			assert.Equal(t, tt.want, attrs(arena, els[0]))
		})
	}
}

func TestUnsupportedPropsIsFatal(t *testing.T) {
	arena, root, err := parser.New().Parse(context.Background(),
		source.NewSourceFile("bad.js", "bad.js", "var a = 1;\nvar el = React.createElement(\"div\", \"oops\");\n"))
	require.NoError(t, err)

	_, err = Run(arena, root)
	require.Error(t, err)
	assert.True(t, stderrors.Is(err, ErrUnsupportedProps))

	var terr *errors.TransformError
	require.True(t, stderrors.As(err, &terr))
	assert.Equal(t, 2, terr.Line)
}

func TestAutomaticRuntime(t *testing.T) {
	code := `var _jsxRuntime = require("react/jsx-runtime");
function List(props) {
  return (0, _jsxRuntime.jsxs)("ul", {
    className: "list",
    children: [(0, _jsxRuntime.jsx)("li", {children: "one"}, "a"), (0, _jsxRuntime.jsx)("li", {children: props.label}, "b")]
  });
}
`
	_, arena, root, report := transform(t, code)

	ret := collect[*ast.Return](arena, root)
	require.Len(t, ret, 1)
	ul, ok := ast.As[*ast.JSXElement](arena, ret[0].Arg)
	require.True(t, ok)
	assert.Equal(t, []string{`className="list"`}, attrs(arena, ul))
	require.Len(t, ul.Children, 2)

	first := arena.Get(ul.Children[0]).(*ast.JSXElement)
	assert.Equal(t, []string{`key="a"`}, attrs(arena, first))
	require.Len(t, first.Children, 1)
	assert.Equal(t, &ast.JSXText{Value: "one"}, arena.Get(first.Children[0]))

	second := arena.Get(ul.Children[1]).(*ast.JSXElement)
	require.Len(t, second.Children, 1)
	assert.Equal(t, "{props.label}", printer.Expr(arena, second.Children[0]))

	assert.Equal(t, 3, report.Elements)
}

func TestAutomaticDevRuntime(t *testing.T) {
	code := `var el = _jsxDEV("p", {children: text}, void 0, false, {fileName: "a.js", lineNumber: 3}, this);
`
	_, arena, root, _ := transform(t, code)
	els := collect[*ast.JSXElement](arena, root)
	require.Len(t, els, 1)
	assert.Empty(t, els[0].Attrs)
	require.Len(t, els[0].Children, 1)
	assert.Equal(t, "{text}", printer.Expr(arena, els[0].Children[0]))
}

func TestCustomRuntime(t *testing.T) {
	code := `var REACT_ELEMENT_TYPE;
function _jsxHelper(type, props, key, children) {
  REACT_ELEMENT_TYPE || (REACT_ELEMENT_TYPE = typeof Symbol === "function" && Symbol.for && Symbol.for("react.element") || 0xeac7);
  return { $$typeof: REACT_ELEMENT_TYPE, type: type, key: key, props: props };
}
var icon = _jsxHelper(Icon, {size: 2}, void 0);
`
	_, arena, root, report := transform(t, code)
	els := collect[*ast.JSXElement](arena, root)
	require.Len(t, els, 1)
	assert.Equal(t, "Icon", els[0].Name)
	assert.Equal(t, []string{"size={2}"}, attrs(arena, els[0]))
	assert.Equal(t, 1, report.Elements)
}

func TestMarkupChildren(t *testing.T) {
	tests := []struct {
		name string
		args string
		want []string
	}{
		{"text", `"hello"`, []string{"hello"}},
		{"text with braces", `"{x}"`, []string{`{"{x}"}`}},
		{"padded text", `" a "`, []string{`{" a "}`}},
		{"void sentinel", `void 0`, nil},
		{"expression", `count + 1`, []string{"{count + 1}"}},
		{"conditional markup", `ok ? React.createElement("b", null) : null`, []string{"{ok ? <b /> : null}"}},
		{"logical markup", `ok && React.createElement("i", null)`, []string{"{ok && <i />}"}},
		{"parenthesized element", `(React.createElement("hr", null))`, []string{"<hr />"}},
		{"mixed", `"a", void 0, name`, []string{"a", "{name}"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			code := "var el = React.createElement(\"p\", null, " + tt.args + ");\n"
			_, arena, root, _ := transform(t, code)
			p, ok := ast.As[*ast.JSXElement](arena, collect[*ast.Declarator](arena, root)[0].Init)
			require.True(t, ok)

			var got []string
			for _, child := range p.Children {
				got = append(got, printer.Expr(arena, child))
			}
			assert.Equal(t, tt.want, got)
			assert.Equal(t, len(tt.want) == 0, p.SelfClosing)
		})
	}
}

func TestSelfClosingMatchesChildren(t *testing.T) {
	inputs := []string{
		`var a = React.createElement("div", null);`,
		`var a = React.createElement("div", null, void 0, void 0);`,
		`var a = React.createElement("div", {children: "x"});`,
		`var a = _jsx("div", {children: void 0});`,
		`var a = _jsxs("div", {children: [_jsx("i", {}), "t"]});`,
		`var a = _jsx(Foo, {children: _jsx(Bar, {})});`,
		`var a = [React.createElement("li", {key: 1}), React.createElement("li", {key: 2}, "two")];`,
	}
	for _, code := range inputs {
		_, arena, root, report := transform(t, code)
		els := collect[*ast.JSXElement](arena, root)
		require.NotEmpty(t, els, code)
		assert.Equal(t, len(els), report.Elements, code)
		for _, el := range els {
			assert.Equal(t, len(el.Children) == 0, el.SelfClosing, "%s: <%s>", code, el.Name)
		}
	}
}

func TestMarkupBailOuts(t *testing.T) {
	tests := []struct {
		name        string
		code        string
		diagnostics int
	}{
		{"lowercase identifier tag", `var a = React.createElement(tag, null);`, 1},
		{"call tag", `var a = React.createElement(getTag(), null);`, 1},
		{"binary tag", `var a = React.createElement(x + y, null);`, 1},
		{"odd string tag", `var a = React.createElement("Not Valid", null);`, 1},
		{"computed member tag", `var a = React.createElement(ns[name], null);`, 1},
		{"spread child", `var a = React.createElement("ul", null, ...items);`, 1},
		{"call argument parent", `render(React.createElement("div", null), root);`, 1},
		{"object property parent", `var o = { icon: React.createElement(Icon, null) };`, 1},
		{"host object", `var a = window.document.createElement("div");`, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, arena, root, report := transform(t, tt.code)
			assert.Empty(t, collect[*ast.JSXElement](arena, root))
			assert.Equal(t, tt.diagnostics, report.Diagnostics)
			assert.Contains(t, out, "createElement(")
		})
	}
}

func TestNestedMarkupInReturnPrints(t *testing.T) {
	out, _, _, _ := transform(t, `function App() {
  return React.createElement(Layout, {title: "Home"}, React.createElement("h1", null, "Welcome"));
}
`)
	assert.Contains(t, out, `<Layout title="Home">`)
	assert.Contains(t, out, "<h1>")
	assert.Contains(t, out, "Welcome")
	assert.Contains(t, out, "</Layout>")
	assert.False(t, strings.Contains(out, "createElement"))
}
