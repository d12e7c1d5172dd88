package parser

import (
	"context"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"debundle/pkg/ast"
	dberrors "debundle/pkg/errors"
	"debundle/pkg/source"
)

func parse(t *testing.T, code string) (*ast.Arena, ast.NodeID) {
	t.Helper()
	arena, root, err := New().Parse(context.Background(), source.NewSourceFile("test.js", "test.js", code))
	require.NoError(t, err)
	require.Equal(t, ast.KindProgram, arena.KindOf(root))
	return arena, root
}

// outline joins Dump lines.
func outline(lines ...string) string {
	return strings.Join(lines, "\n") + "\n"
}

func TestParseShapes(t *testing.T) {
	tests := []struct {
		name string
		code string
		want string
	}{
		{
			name: "var declarators",
			code: "var a = 1, b;",
			want: outline(
				"Program",
				"  VariableDeclaration var",
				"    VariableDeclarator",
				"      Identifier a",
				"      Literal 1",
				"    VariableDeclarator",
				"      Identifier b",
			),
		},
		{
			name: "arrow with expression body",
			code: "const f = (x) => x + 1;",
			want: outline(
				"Program",
				"  VariableDeclaration const",
				"    VariableDeclarator",
				"      Identifier f",
				"      Function arrow",
				"        Identifier x",
				"        BinaryExpression +",
				"          Identifier x",
				"          Literal 1",
			),
		},
		{
			name: "indirect call",
			code: "(0, _a.default)(!0);",
			want: outline(
				"Program",
				"  ExpressionStatement",
				"    CallExpression",
				"      ParenthesizedExpression",
				"        SequenceExpression",
				"          Literal 0",
				"          MemberExpression",
				"            Identifier _a",
				"            Identifier default",
				"      UnaryExpression !",
				"        Literal 0",
			),
		},
		{
			name: "logical assignment",
			code: "a = b || c;",
			want: outline(
				"Program",
				"  ExpressionStatement",
				"    AssignmentExpression =",
				"      Identifier a",
				"      LogicalExpression ||",
				"        Identifier b",
				"        Identifier c",
			),
		},
		{
			name: "class members",
			code: "class A extends B { constructor() { super(); } static get x() { return 1; } }",
			want: outline(
				"Program",
				"  Class",
				"    Identifier A",
				"    Identifier B",
				"    MethodDefinition constructor",
				"      Identifier constructor",
				"      Function",
				"        BlockStatement",
				"          ExpressionStatement",
				"            CallExpression",
				"              Super",
				"    MethodDefinition static get",
				"      Identifier x",
				"      Function",
				"        BlockStatement",
				"          ReturnStatement",
				"            Literal 1",
			),
		},
		{
			name: "object literal",
			code: "x = { a: 1, b, [k]: 2, m() {} };",
			want: outline(
				"Program",
				"  ExpressionStatement",
				"    AssignmentExpression =",
				"      Identifier x",
				"      ObjectExpression",
				"        Property",
				"          Identifier a",
				"          Literal 1",
				"        Property",
				"          Identifier b",
				"          Identifier b",
				"        Property",
				"          Identifier k",
				"          Literal 2",
				"        Property",
				"          Identifier m",
				"          Function",
				"            BlockStatement",
			),
		},
		{
			name: "comments are dropped",
			code: "// header\nfoo(); /* trailing */",
			want: outline(
				"Program",
				"  ExpressionStatement",
				"    CallExpression",
				"      Identifier foo",
			),
		},
		{
			name: "module syntax is kept verbatim",
			code: "import x from \"y\";",
			want: outline(
				"Program",
				`  Raw "import x from \"y\";"`,
			),
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			arena, root := parse(t, tt.code)
			if diff := cmp.Diff(tt.want, arena.Dump(root)); diff != "" {
				t.Errorf("tree mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestParseFlags(t *testing.T) {
	arena, root := parse(t, "x = { get a() {}, set a(v) {} };\nasync function* g() { yield* h(); }\nfor (const k of ks) {}\n")

	props := collect[*ast.Property](arena, root)
	require.Len(t, props, 2)
	assert.Equal(t, "get", props[0].Accessor)
	assert.Equal(t, "set", props[1].Accessor)
	assert.False(t, props[0].Method)

	fns := collect[*ast.Function](arena, root)
	var decl *ast.Function
	for _, fn := range fns {
		if fn.Declaration {
			decl = fn
		}
	}
	require.NotNil(t, decl)
	assert.True(t, decl.Async)
	assert.True(t, decl.Generator)

	yields := collect[*ast.Yield](arena, root)
	require.Len(t, yields, 1)
	assert.True(t, yields[0].Delegate)

	loops := collect[*ast.ForIn](arena, root)
	require.Len(t, loops, 1)
	assert.True(t, loops[0].Of)
	decls := collect[*ast.VarDecl](arena, root)
	require.Len(t, decls, 1)
	assert.Equal(t, "const", decls[0].Keyword)
}

func TestParseArrayHoles(t *testing.T) {
	tests := []struct {
		code  string
		holes []bool
	}{
		{"[1, 2];", []bool{false, false}},
		{"[, 1];", []bool{true, false}},
		{"[1, , 2];", []bool{false, true, false}},
		{"[];", []bool{}},
	}
	for _, tt := range tests {
		t.Run(tt.code, func(t *testing.T) {
			arena, root := parse(t, tt.code)
			arrays := collect[*ast.Array](arena, root)
			require.Len(t, arrays, 1)
			got := make([]bool, len(arrays[0].Elems))
			for i, el := range arrays[0].Elems {
				got[i] = !el.Valid()
			}
			assert.Equal(t, tt.holes, got)
		})
	}
}

func TestParseTemplate(t *testing.T) {
	arena, root := parse(t, "s = `a${b}c${d}`;")
	tpls := collect[*ast.Template](arena, root)
	require.Len(t, tpls, 1)
	assert.Equal(t, []string{"a", "c", ""}, tpls[0].Quasis)
	assert.Len(t, tpls[0].Exprs, 2)
}

func TestParseStringValues(t *testing.T) {
	arena, root := parse(t, `x = ["plain", 'single', "esc\"aped\n", "A\x42"];`)
	var values []string
	for _, lit := range collect[*ast.Literal](arena, root) {
		if lit.LitKind == ast.LitString {
			values = append(values, lit.Value)
		}
	}
	assert.Equal(t, []string{"plain", "single", "esc\"aped\n", "AB"}, values)
}

func TestParsePositions(t *testing.T) {
	arena, root := parse(t, "var a = 1;\n  foo();\n")
	prog, ok := ast.As[*ast.Program](arena, root)
	require.True(t, ok)
	require.Len(t, prog.Body, 2)
	assert.Equal(t, ast.Pos{Line: 1, Column: 1, Offset: 0}, arena.PosOf(prog.Body[0]))
	assert.Equal(t, ast.Pos{Line: 2, Column: 3, Offset: 13}, arena.PosOf(prog.Body[1]))
}

func TestParseErrors(t *testing.T) {
	ctx := context.Background()

	t.Run("syntax", func(t *testing.T) {
		src := source.NewSourceFile("bad.js", "bad.js", "var a = 1;\nvar = ;\n")
		_, root, err := New().Parse(ctx, src)
		assert.Equal(t, ast.NoNode, root)
		var syn *dberrors.SyntaxError
		require.ErrorAs(t, err, &syn)
		assert.Equal(t, 2, syn.Line)
		assert.Same(t, src, syn.Source)
	})

	t.Run("too large", func(t *testing.T) {
		_, _, err := New(WithMaxFileSize(4)).Parse(ctx, source.NewStdinSource("var a = 1;"))
		assert.ErrorIs(t, err, ErrFileTooLarge)
	})

	t.Run("invalid utf-8", func(t *testing.T) {
		_, _, err := New().Parse(ctx, source.NewStdinSource("var a = \"\xff\";"))
		assert.ErrorIs(t, err, ErrInvalidContent)
	})

	t.Run("canceled", func(t *testing.T) {
		canceled, cancel := context.WithCancel(ctx)
		cancel()
		_, _, err := New().Parse(canceled, source.NewStdinSource("var a = 1;"))
		assert.ErrorIs(t, err, context.Canceled)
	})
}

func TestUnquote(t *testing.T) {
	tests := []struct {
		raw  string
		want string
	}{
		{`"abc"`, "abc"},
		{`'a\'b'`, "a'b"},
		{`"tab\there"`, "tab\there"},
		{`"é"`, "é"},
		{`"\u{1F600}"`, "😀"},
		{`"line\
continued"`, "linecontinued"},
		{`""`, ""},
	}
	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			assert.Equal(t, tt.want, unquote(tt.raw))
		})
	}
}

func collect[T ast.Node](arena *ast.Arena, root ast.NodeID) []T {
	var out []T
	arena.Inspect(root, func(_ ast.NodeID, n ast.Node) bool {
		if v, ok := n.(T); ok {
			out = append(out, v)
		}
		return true
	})
	return out
}
