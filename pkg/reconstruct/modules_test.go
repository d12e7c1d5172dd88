package reconstruct

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestImports(t *testing.T) {
	tests := []struct {
		name    string
		code    string
		want    string
		imports int
	}{
		{
			name:    "default interop",
			code:    "var _foo = _interopRequireDefault(require(\"foo\"));\n_foo.default.bar();\n",
			want:    "import Foo from \"foo\";\n\nFoo.bar();\n",
			imports: 1,
		},
		{
			name:    "namespace interop",
			code:    "var _utils = _interopRequireWildcard(require(\"./utils\"));\n_utils.format(x);\n",
			want:    "import * as Utils from \"./utils\";\n\nUtils.format(x);\n",
			imports: 1,
		},
		{
			name:    "plain require",
			code:    "var _path = require(\"path\");\n_path.join(a, b);\n",
			want:    "import * as Path from \"path\";\n\nPath.join(a, b);\n",
			imports: 1,
		},
		{
			name:    "name collision",
			code:    "var React = window.React;\nvar _react = _interopRequireDefault(require(\"react\"));\n_react.default.render(React);\n",
			want:    "import React2 from \"react\";\n\nvar React = window.React;\nReact2.render(React);\n",
			imports: 1,
		},
		{
			name:    "alias exception",
			code:    "var _lodash = _interopRequireDefault(require(\"lodash\"));\n_lodash.default.map(xs, f);\n",
			want:    "import _ from \"lodash\";\n\n_.map(xs, f);\n",
			imports: 1,
		},
		{
			name:    "alias exception collision",
			code:    "var _lodash = require(\"lodash\");\nvar _ = 2;\n_lodash.map(_);\n",
			want:    "import * as _2 from \"lodash\";\n\nvar _ = 2;\n_2.map(_);\n",
			imports: 1,
		},
		{
			name:    "side effect require",
			code:    "require(\"./polyfill\");\nstart();\n",
			want:    "import \"./polyfill\";\n\nstart();\n",
			imports: 1,
		},
		{
			name: "declared wrapper is removed",
			code: `function _interopRequireDefault(obj) {
  return obj && obj.__esModule ? obj : { default: obj };
}
var _a = _interopRequireDefault(require("a"));
(0, _a.default)();
`,
			want:    "import A from \"a\";\n\nA();\n",
			imports: 1,
		},
		{
			name:    "runtime helper require is removed",
			code:    "var _interopRequireDefault = require(\"@babel/runtime/helpers/interopRequireDefault\");\nvar _a = _interopRequireDefault(require(\"a\"));\n_a.default();\n",
			want:    "import A from \"a\";\n\nA();\n",
			imports: 1,
		},
		{
			name:    "shared declaration",
			code:    "var _a = require(\"a\"), b = 2;\n_a.run(b);\n",
			want:    "import * as A from \"a\";\n\nvar b = 2;\nA.run(b);\n",
			imports: 1,
		},
		{
			name:    "nested require",
			code:    "function load() {\n  var _a = require(\"a\");\n  return _a;\n}\n",
			want:    "function load() {\n  var _a = require(\"a\");\n  return _a;\n}\n",
			imports: 0,
		},
		{
			name:    "dynamic module name",
			code:    "var _a = require(name);\n",
			want:    "var _a = require(name);\n",
			imports: 0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, _, _, report := transform(t, tt.code)
			assert.Equal(t, tt.want, out)
			assert.Equal(t, tt.imports, report.Imports)
		})
	}
}

func TestImportedBindingsLeaveNoUnderscoreNames(t *testing.T) {
	code := `var _react = _interopRequireDefault(require("react"));
var _classnames = _interopRequireDefault(require("classnames"));
var _api = _interopRequireWildcard(require("./api"));
function load(id) {
  return _api.fetch(id).then(function (res) {
    return (0, _classnames.default)(res.kind, _react.default.version);
  });
}
`
	out, _, _, report := transform(t, code)
	assert.Equal(t, 3, report.Imports)
	assert.Contains(t, out, "import React from \"react\";\nimport Classnames from \"classnames\";\nimport * as Api from \"./api\";\n\n")
	assert.Contains(t, out, "return Api.fetch(id)")
	assert.Contains(t, out, "return Classnames(res.kind, React.version);")
	assert.NotContains(t, out, "_react")
	assert.NotContains(t, out, "_classnames")
	assert.NotContains(t, out, "_api")
	assert.NotContains(t, out, ".default")
}

func TestExports(t *testing.T) {
	tests := []struct {
		name     string
		code     string
		contains []string
		absent   []string
	}{
		{
			name:     "default binding kept",
			code:     "function Foo() {}\nFoo.displayName = \"Foo\";\nexports.default = Foo;\n",
			contains: []string{"function Foo() {}\n", "Foo.displayName = \"Foo\";\n", "export default Foo;\n"},
			absent:   []string{"exports."},
		},
		{
			name:     "module exports is the default",
			code:     "var Store = createStore();\nStore.init();\nmodule.exports = Store;\n",
			contains: []string{"export default Store;\n"},
			absent:   []string{"module.exports"},
		},
		{
			name:     "function moves into export",
			code:     "function helper() {}\nexports.helper = helper;\n",
			contains: []string{"export function helper() {}"},
			absent:   []string{"exports."},
		},
		{
			name:     "default function moves into export",
			code:     "function App() {}\nexports.default = App;\n",
			contains: []string{"export default function App() {}"},
		},
		{
			name:     "single use variable becomes const",
			code:     "var a = compute();\nexports.b = a;\n",
			contains: []string{"export const b = compute();\n"},
			absent:   []string{"var a"},
		},
		{
			name:     "default variable is inlined",
			code:     "var _default = { name: \"x\" };\nexports.default = _default;\n",
			contains: []string{"export default { name: \"x\" };\n"},
			absent:   []string{"_default"},
		},
		{
			name:     "used variable is exported by name",
			code:     "var a = 1;\nexports.b = a;\nlog(a);\n",
			contains: []string{"var a = 1;\n", "export { a as b };\n", "log(a);\n"},
		},
		{
			name:     "imported binding is re-exported",
			code:     "var _b = require(\"b\");\nexports.b = _b;\n",
			contains: []string{"import * as B from \"b\";\n", "export { B as b };\n"},
		},
		{
			name:     "reserved word key is exported by name",
			code:     "var foo = 1;\nexports.class = foo;\n",
			contains: []string{"var foo = 1;\n", "export { foo as class };\n"},
			absent:   []string{"const class", "exports."},
		},
		{
			name:     "nested assignment is left alone",
			code:     "function f() {\n  exports.x = y;\n}\n",
			contains: []string{"exports.x = y;"},
			absent:   []string{"export "},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, _, _, _ := transform(t, tt.code)
			for _, s := range tt.contains {
				assert.Contains(t, out, s)
			}
			for _, s := range tt.absent {
				assert.NotContains(t, out, s)
			}
		})
	}
}

func TestDisplayNameRenamesFunction(t *testing.T) {
	tests := []struct {
		name     string
		code     string
		contains []string
		absent   []string
	}{
		{
			name:     "renamed with its export",
			code:     "function Foo() {\n  return 1;\n}\nFoo.displayName = \"Bar\";\nexports.default = Foo;\n",
			contains: []string{"function Bar() {\n", "Bar.displayName = \"Bar\";\n", "export default Bar;\n"},
			absent:   []string{"Foo"},
		},
		{
			name:     "earlier references follow",
			code:     "render(Foo);\nfunction Foo() {}\nFoo.displayName = \"Bar\";\n",
			contains: []string{"render(Bar);\n", "function Bar() {}\n"},
			absent:   []string{"Foo"},
		},
		{
			name:     "taken name gets a suffix",
			code:     "var Bar = 2;\nfunction Foo() {}\nFoo.displayName = \"Bar\";\nuse(Foo, Bar);\n",
			contains: []string{"var Bar = 2;\n", "function Bar2() {}\n", "Bar2.displayName = \"Bar\";\n", "use(Bar2, Bar);\n"},
			absent:   []string{"Foo"},
		},
		{
			name:     "invalid identifier is ignored",
			code:     "function Foo() {}\nFoo.displayName = \"Connect(Foo)\";\n",
			contains: []string{"function Foo() {}\n", "Foo.displayName = \"Connect(Foo)\";\n"},
		},
		{
			name:     "reserved word is ignored",
			code:     "function Foo() {}\nFoo.displayName = \"class\";\n",
			contains: []string{"function Foo() {}\n"},
		},
		{
			name:     "nested function is left alone",
			code:     "function outer() {\n  function Foo() {}\n  Foo.displayName = \"Bar\";\n}\n",
			contains: []string{"function Foo() {}", "Foo.displayName = \"Bar\";"},
			absent:   []string{"function Bar"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, _, _, _ := transform(t, tt.code)
			for _, s := range tt.contains {
				assert.Contains(t, out, s)
			}
			for _, s := range tt.absent {
				assert.NotContains(t, out, s)
			}
		})
	}
}

func TestExportResidue(t *testing.T) {
	code := `"use strict";
Object.defineProperty(exports, "__esModule", { value: true });
exports.run = exports.stop = void 0;
var run = function () {};
exports.run = run;
function stop() {}
exports.stop = stop;
`
	out, _, _, report := transform(t, code)
	assert.Equal(t, 2, report.Exports)
	assert.Equal(t, "\"use strict\";\nexport const run = function () {};\nexport function stop() {}\n", out)
}

func TestExportResidueKeptWhileExportsIsRead(t *testing.T) {
	code := `Object.defineProperty(exports, "__esModule", { value: true });
exports.a = void 0;
var a = 1;
exports.a = a;
console.log(exports);
`
	out, _, _, _ := transform(t, code)
	assert.Contains(t, out, "__esModule")
	assert.Contains(t, out, "exports.a = void 0;")
	assert.Contains(t, out, "export const a = 1;")
}
