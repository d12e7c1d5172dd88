package printer

import (
	"context"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"debundle/pkg/ast"
	"debundle/pkg/parser"
	"debundle/pkg/source"
)

func TestPrintRoundTrip(t *testing.T) {
	tests := []struct {
		name string
		code string
	}{
		{"declarations", "var a = 1, b;\n"},
		{"arrow", "const f = (x) => x + 1;\n"},
		{"if chain", "if (a) {\n  b();\n} else if (c) {\n  d();\n} else {\n  e();\n}\n"},
		{"for", "for (var i = 0; i < n; i++) {\n  total += i;\n}\n"},
		{"for of", "for (const k of ks) {}\n"},
		{"do while", "do {\n  x--;\n} while (x);\n"},
		{"try", "try {\n  a();\n} catch (e) {\n  b(e);\n} finally {\n  c();\n}\n"},
		{"switch", "switch (x) {\n  case 1:\n    a();\n    break;\n  default:\n    b();\n}\n"},
		{"labeled loop", "outer: for (;;) {\n  break outer;\n}\n"},
		{"object", "x = { a: 1, b };\n"},
		{"object method", "var o = {\n  m() {}\n};\n"},
		{"template", "var s = `a${b}c`;\n"},
		{"iife", "(function () {})();\n"},
		{"generator", "async function* g() {\n  yield* h();\n}\n"},
		{"class", "class A extends B {\n  constructor() {\n    super();\n  }\n\n  static get x() {\n    return 1;\n  }\n}\n"},
		{"raw module syntax", "import x from \"y\";\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			arena, root, err := parser.New().Parse(context.Background(), source.NewStdinSource(tt.code))
			require.NoError(t, err)
			if diff := cmp.Diff(tt.code, Print(arena, root)); diff != "" {
				t.Errorf("round trip mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestExprPrecedence(t *testing.T) {
	a := ast.NewArena()
	id := a.NewIdent
	num := func(raw string) ast.NodeID { return a.New(&ast.Literal{LitKind: ast.LitNumber, Raw: raw}) }

	tests := []struct {
		name string
		expr ast.NodeID
		want string
	}{
		{"lower left operand", a.New(&ast.Binary{Op: "*", Left: a.New(&ast.Binary{Op: "+", Left: id("a"), Right: id("b")}), Right: id("c")}), "(a + b) * c"},
		{"right associativity", a.New(&ast.Binary{Op: "-", Left: id("a"), Right: a.New(&ast.Binary{Op: "-", Left: id("b"), Right: id("c")})}), "a - (b - c)"},
		{"left associativity", a.New(&ast.Binary{Op: "-", Left: a.New(&ast.Binary{Op: "-", Left: id("a"), Right: id("b")}), Right: id("c")}), "a - b - c"},
		{"nullish mixing", a.New(&ast.Logical{Op: "??", Left: a.New(&ast.Logical{Op: "||", Left: id("a"), Right: id("b")}), Right: id("c")}), "(a || b) ?? c"},
		{"double negation", a.New(&ast.Unary{Op: "-", Arg: a.New(&ast.Unary{Op: "-", Arg: id("x")})}), "- -x"},
		{"word operator", a.New(&ast.Unary{Op: "typeof", Arg: id("x")}), "typeof x"},
		{"boolean shorthand", a.New(&ast.Unary{Op: "!", Arg: num("0")}), "!0"},
		{"number member", a.NewMember(num("1"), "toString"), "(1).toString"},
		{"new with call callee", a.New(&ast.New{Callee: a.New(&ast.Call{Callee: id("f")})}), "new (f())()"},
		{"arrow returning object", a.New(&ast.Function{Arrow: true, ExprBody: true, Body: a.New(&ast.Object{})}), "() => ({})"},
		{"optional call", a.New(&ast.Call{Callee: id("a"), Optional: true}), "a?.()"},
		{"sequence argument", a.New(&ast.Call{Callee: id("f"), Args: []ast.NodeID{a.New(&ast.Sequence{Exprs: []ast.NodeID{id("a"), id("b")}})}}), "f((a, b))"},
		{"conditional in member", a.New(&ast.Member{Object: a.New(&ast.Conditional{Test: id("a"), Cons: id("b"), Alt: id("c")}), Property: id("d")}), "(a ? b : c).d"},
		{"string helper", a.NewString("say \"hi\"\n"), `"say \"hi\"\n"`},
		{"array hole", a.New(&ast.Array{Elems: []ast.NodeID{id("a"), ast.NoNode}}), "[a, ,]"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Expr(a, tt.expr))
		})
	}
}

func TestPrintMarkup(t *testing.T) {
	a := ast.NewArena()
	attr := func(name string, value ast.NodeID) ast.NodeID {
		return a.New(&ast.JSXAttr{Name: name, Value: value})
	}

	tests := []struct {
		name string
		elem *ast.JSXElement
		want string
	}{
		{
			name: "self closing",
			elem: &ast.JSXElement{Name: "div", SelfClosing: true},
			want: "<div />",
		},
		{
			name: "empty pair",
			elem: &ast.JSXElement{Name: "p"},
			want: "<p></p>",
		},
		{
			name: "attribute forms",
			elem: &ast.JSXElement{Name: "input", SelfClosing: true, Attrs: []ast.NodeID{
				attr("className", a.NewString("app")),
				attr("title", a.NewString(`a"b`)),
				attr("disabled", ast.NoNode),
				attr("onClick", a.NewIdent("handle")),
				a.New(&ast.JSXSpreadAttr{Arg: a.NewIdent("props")}),
			}},
			want: `<input className="app" title={"a\"b"} disabled onClick={handle} {...props} />`,
		},
		{
			name: "children",
			elem: &ast.JSXElement{Name: "p", Children: []ast.NodeID{
				a.New(&ast.JSXText{Value: "Hello"}),
				a.New(&ast.JSXText{Value: "  "}),
				a.New(&ast.JSXEmpty{}),
				a.New(&ast.JSXExprContainer{Expr: a.NewIdent("name")}),
				a.New(&ast.JSXElement{Name: "br", SelfClosing: true}),
			}},
			want: "<p>\n  Hello\n  {name}\n  <br />\n</p>",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Expr(a, a.New(tt.elem)))
		})
	}
}

func TestPrintNestedMarkupIndent(t *testing.T) {
	a := ast.NewArena()
	inner := a.New(&ast.JSXElement{Name: "span", Children: []ast.NodeID{a.New(&ast.JSXText{Value: "x"})}})
	outer := a.New(&ast.JSXElement{Name: "div", Children: []ast.NodeID{inner}})
	ret := a.New(&ast.Return{Arg: outer})
	fn := a.New(&ast.Function{ID: a.NewIdent("App"), Declaration: true, Body: a.New(&ast.Block{Body: []ast.NodeID{ret}})})
	prog := a.New(&ast.Program{Body: []ast.NodeID{fn}})

	want := "function App() {\n" +
		"  return <div>\n" +
		"    <span>\n" +
		"      x\n" +
		"    </span>\n" +
		"  </div>;\n" +
		"}\n"
	assert.Equal(t, want, Print(a, prog))
}

func TestPrintModules(t *testing.T) {
	a := ast.NewArena()
	imp := func(source string, specs ...ast.NodeID) ast.NodeID {
		return a.New(&ast.ImportDecl{Specifiers: specs, Source: a.NewString(source)})
	}
	spec := func(kind ast.SpecKind, local, imported string) ast.NodeID {
		return a.New(&ast.ImportSpec{SpecKind: kind, Local: a.NewIdent(local), Imported: imported})
	}
	export := func(local, exported string) ast.NodeID {
		return a.New(&ast.ExportSpec{Local: a.NewIdent(local), Exported: exported})
	}

	helper := a.New(&ast.Function{ID: a.NewIdent("helper"), Declaration: true, Body: a.New(&ast.Block{})})
	app := a.New(&ast.Class{ID: a.NewIdent("App"), Declaration: true})
	prog := a.New(&ast.Program{Body: []ast.NodeID{
		imp("react", spec(ast.SpecDefault, "React", "")),
		imp("jquery", spec(ast.SpecNamespace, "$", "")),
		imp("lodash", spec(ast.SpecDefault, "_", ""), spec(ast.SpecNamed, "map", "map"), spec(ast.SpecNamed, "each", "forEach")),
		imp("./polyfill"),
		a.New(&ast.Empty{}),
		a.New(&ast.ExportNamed{Decl: helper}),
		a.New(&ast.ExportNamed{Specifiers: []ast.NodeID{export("a", "a"), export("b", "c")}}),
		a.New(&ast.ExportDefault{Decl: app}),
		a.New(&ast.ExportDefault{Decl: a.NewIdent("App")}),
	}})

	want := "import React from \"react\";\n" +
		"import * as $ from \"jquery\";\n" +
		"import _, { map, forEach as each } from \"lodash\";\n" +
		"import \"./polyfill\";\n" +
		"\n" +
		"export function helper() {}\n" +
		"export { a, b as c };\n" +
		"export default class App {}\n" +
		"export default App;\n"
	if diff := cmp.Diff(want, Print(a, prog)); diff != "" {
		t.Errorf("module output mismatch (-want +got):\n%s", diff)
	}
}
