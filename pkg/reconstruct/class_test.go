package reconstruct

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"debundle/pkg/ast"
	"debundle/pkg/printer"
)

// memberNames lists class members as `static name`, `get name` and so on.
func memberNames(t *testing.T, arena *ast.Arena, class *ast.Class) []string {
	t.Helper()
	var out []string
	for _, id := range class.Members {
		m, ok := ast.As[*ast.Method](arena, id)
		require.True(t, ok)
		name := printer.Expr(arena, m.Key)
		switch m.MethodKind {
		case ast.MethodGet:
			name = "get " + name
		case ast.MethodSet:
			name = "set " + name
		}
		if m.Static {
			name = "static " + name
		}
		out = append(out, name)
	}
	return out
}

func onlyClass(t *testing.T, arena *ast.Arena, root ast.NodeID) *ast.Class {
	t.Helper()
	classes := collect[*ast.Class](arena, root)
	require.Len(t, classes, 1)
	return classes[0]
}

func TestPrototypeStyleClass(t *testing.T) {
	code := `var Dog = function () {
  function Dog(name) {
    this.name = name;
  }
  var _proto = Dog.prototype;
  _proto.bark = function bark() {
    return this.name + " says woof";
  };
  return Dog;
}();
`
	out, arena, root, report := transform(t, code)

	class := onlyClass(t, arena, root)
	assert.True(t, class.Declaration)
	assert.Equal(t, "Dog", printer.Expr(arena, class.ID))
	assert.False(t, class.Super.Valid())
	assert.Equal(t, []string{"constructor", "bark"}, memberNames(t, arena, class))

	bark := arena.Get(class.Members[1]).(*ast.Method)
	assert.False(t, bark.Static)
	assert.Equal(t, ast.MethodNormal, bark.MethodKind)

	assert.Equal(t, 1, report.Classes[ClassPlain])
	assert.NotContains(t, out, "prototype")
	assert.NotContains(t, out, "_proto")
}

func TestDerivedClass(t *testing.T) {
	code := `var Puppy = function (_Dog) {
  _inheritsLoose(Puppy, _Dog);
  function Puppy(name) {
    var _this;
    _this = _Dog.call(this, name) || this;
    _this.small = true;
    return _this;
  }
  var _proto = Puppy.prototype;
  _proto.bark = function bark() {
    return _Dog.prototype.bark.call(this) + "!";
  };
  Puppy.create = function create(name) {
    return new Puppy(name);
  };
  return Puppy;
}(Dog);
`
	out, arena, root, report := transform(t, code)

	class := onlyClass(t, arena, root)
	assert.Equal(t, "Dog", printer.Expr(arena, class.Super))
	assert.Equal(t, []string{"constructor", "bark", "static create"}, memberNames(t, arena, class))
	assert.Equal(t, 1, report.Classes[ClassPlain])

	assert.Contains(t, out, "class Puppy extends Dog {")
	assert.Contains(t, out, "super(name);")
	assert.Contains(t, out, "this.small = true;")
	assert.Contains(t, out, "return super.bark() + \"!\";")
	assert.NotContains(t, out, "_this")
	assert.NotContains(t, out, "_Dog")
	assert.NotContains(t, out, "return this")
}

func TestSuperCallStatementShapes(t *testing.T) {
	tests := []struct {
		name     string
		ctor     string
		contains []string
		absent   []string
	}{
		{
			name: "declared alias",
			ctor: `function Child(x) {
    var _this = _Base.call(this, x) || this;
    _this.y = x;
    return _this;
  }`,
			contains: []string{"super(x);", "this.y = x;"},
			absent:   []string{"_this", "_Base"},
		},
		{
			name: "returned call",
			ctor: `function Child(x) {
    return _Base.call(this, x, 1) || this;
  }`,
			contains: []string{"constructor(x) {", "super(x, 1);"},
			absent:   []string{"_Base", "|| this"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			code := "var Child = function (_Base) {\n  _inheritsLoose(Child, _Base);\n  " + tt.ctor +
				"\n  return Child;\n}(Base);\n"
			out, arena, root, report := transform(t, code)

			class := onlyClass(t, arena, root)
			assert.Equal(t, "Base", printer.Expr(arena, class.Super))
			assert.Equal(t, 1, report.Classes[ClassPlain])
			assert.Contains(t, out, "class Child extends Base {")
			for _, s := range tt.contains {
				assert.Contains(t, out, s)
			}
			for _, s := range tt.absent {
				assert.NotContains(t, out, s)
			}
		})
	}
}

func TestSpreadConstructorAndArrowCallbacks(t *testing.T) {
	code := `var Button = function (_React$Component) {
  _inheritsLoose(Button, _React$Component);
  function Button() {
    var _this;
    for (var _len = arguments.length, args = new Array(_len), _key = 0; _key < _len; _key++) {
      args[_key] = arguments[_key];
    }
    _this = _React$Component.call.apply(_React$Component, [this].concat(args)) || this;
    _this.handleClick = function () {
      _this.setState({ clicked: true });
    };
    return _this;
  }
  var _proto = Button.prototype;
  _proto.render = function render() {
    return this.props.label;
  };
  return Button;
}(React.Component);
`
	out, arena, root, _ := transform(t, code)

	class := onlyClass(t, arena, root)
	assert.Equal(t, "React.Component", printer.Expr(arena, class.Super))

	ctor := arena.Get(arena.Get(class.Members[0]).(*ast.Method).Value).(*ast.Function)
	require.Len(t, ctor.Params, 1)
	assert.Equal(t, "...args", printer.Expr(arena, ctor.Params[0]))

	assert.Contains(t, out, "super(...args);")
	assert.Contains(t, out, "this.handleClick = () => {")
	assert.Contains(t, out, "this.setState(")
	assert.NotContains(t, out, "_len")
	assert.NotContains(t, out, "_this")
}

func TestAliasKeptWhenCallbackNeedsOwnThis(t *testing.T) {
	code := `var Widget = function () {
  function Widget(el) {
    var _this = this;
    el.onclick = function () {
      _this.clicked(this);
    };
  }
  var _proto = Widget.prototype;
  _proto.clicked = function clicked(target) {};
  return Widget;
}();
`
	out, _, _, _ := transform(t, code)
	assert.Contains(t, out, "var _this = this;")
	assert.Contains(t, out, "_this.clicked(this);")
}

func TestCreateClassAccessors(t *testing.T) {
	code := `var Temp = function () {
  function Temp() {
    this.c = 0;
  }
  var _proto = Temp.prototype;
  _proto.reset = function reset() {
    this.c = 0;
  };
  _createClass(Temp, [{
    key: "fahrenheit",
    get: function get() {
      return this.c * 1.8 + 32;
    },
    set: function set(f) {
      this.c = (f - 32) / 1.8;
    }
  }, {
    key: "describe",
    value: function describe() {
      return "temp";
    }
  }], [{
    key: "zero",
    get: function get() {
      return new Temp();
    }
  }]);
  return Temp;
}();
`
	_, arena, root, _ := transform(t, code)
	class := onlyClass(t, arena, root)
	assert.Equal(t,
		[]string{"constructor", "reset", "describe", "get fahrenheit", "set fahrenheit", "static get zero"},
		memberNames(t, arena, class))
}

func TestLeftoverStatementsFollowClass(t *testing.T) {
	code := `var Card = function () {
  function Card() {}
  var _proto = Card.prototype;
  _proto.open = function open() {};
  Card.defaultProps = { size: 1 };
  _proto.kind = "card";
  return Card;
}();
use(Card);
`
	out, arena, root, _ := transform(t, code)
	class := onlyClass(t, arena, root)
	assert.Equal(t, []string{"open"}, memberNames(t, arena, class))

	prog := arena.Get(root).(*ast.Program)
	require.Len(t, prog.Body, 4)
	assert.Equal(t, ast.KindClass, arena.KindOf(prog.Body[0]))
	assert.Equal(t, "Card.defaultProps = { size: 1 }", printer.Expr(arena, arena.Get(prog.Body[1]).(*ast.ExprStmt).Expr))
	assert.Equal(t, "Card.prototype.kind = \"card\"", printer.Expr(arena, arena.Get(prog.Body[2]).(*ast.ExprStmt).Expr))
	assert.Contains(t, out, "use(Card);")
}

func TestMirroredProperties(t *testing.T) {
	code := `var View = function () {
  function View() {}
  var _proto = View.prototype;
  _proto.render = function render() {
    var state = this.state;
    var current = state;
    var items = current.items;
    return items;
  };
  return View;
}();
`
	out, _, _, _ := transform(t, code)
	assert.Contains(t, out, "var current = this.state;")
	assert.Contains(t, out, "var items = this.state.items;")
}

func TestNewExpressionWrappedKeepsInstance(t *testing.T) {
	code := `var store = new (function () {
  function Store() {
    this.items = [];
  }
  var _proto = Store.prototype;
  _proto.add = function add(item) {
    this.items.push(item);
  };
  return Store;
}())();
`
	_, arena, root, report := transform(t, code)
	assert.Equal(t, 1, report.Classes[ClassNewWrapped])

	decl := collect[*ast.Declarator](arena, root)[0]
	n, ok := ast.As[*ast.New](arena, decl.Init)
	require.True(t, ok)
	class, ok := ast.As[*ast.Class](arena, arena.Get(n.Callee).(*ast.Paren).Expr)
	require.True(t, ok)
	assert.False(t, class.Declaration)
	assert.Equal(t, []string{"constructor", "add"}, memberNames(t, arena, class))
}

func TestPassthroughConstructorIsOmitted(t *testing.T) {
	code := `var Child = function (_Base) {
  _inheritsLoose(Child, _Base);
  function Child() {
    return _Base.apply(this, arguments) || this;
  }
  var _proto = Child.prototype;
  _proto.run = function run() {};
  return Child;
}(Base);
`
	_, arena, root, _ := transform(t, code)
	class := onlyClass(t, arena, root)
	assert.Equal(t, []string{"run"}, memberNames(t, arena, class))
}

func TestFactoryArgumentsAreInlined(t *testing.T) {
	code := `var Clock = function (moment) {
  function Clock() {}
  var _proto = Clock.prototype;
  _proto.now = function now() {
    return moment();
  };
  return Clock;
}(_moment.default);
`
	out, _, _, _ := transform(t, code)
	assert.Contains(t, out, "return _moment.default();")
}

func TestClassAbortsLeaveTreeUntouched(t *testing.T) {
	tests := []struct {
		name string
		code string
	}{
		{"derived without super call", `var A = function (_B) {
  _inheritsLoose(A, _B);
  function A() {
    this.x = 1;
  }
  var _proto = A.prototype;
  return A;
}(B);
`},
		{"impure factory argument", `var A = function (dep) {
  function A() {}
  var _proto = A.prototype;
  _proto.m = function m() {
    return dep;
  };
  return A;
}(load());
`},
		{"helper declaration in factory", `var A = function () {
  function A() {}
  var _proto = A.prototype;
  function helper() {}
  _proto.m = function m() {
    return helper();
  };
  return A;
}();
`},
		{"leftovers behind a renamed binding", `var B = function () {
  function A() {}
  var _proto = A.prototype;
  A.x = 1;
  return A;
}();
`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			arena, root := parse(t, tt.code)
			before := printer.Print(arena, root)
			report, err := Run(arena, root)
			require.NoError(t, err)
			assert.Equal(t, before, printer.Print(arena, root))
			assert.Empty(t, collect[*ast.Class](arena, root))
			assert.Zero(t, report.Total())
		})
	}
}

func TestClassificationIsExclusive(t *testing.T) {
	tests := []struct {
		name string
		init string
		want ClassEncoding
	}{
		{"plain", `function () { function A() {} var _p = A.prototype; return A; }()`, ClassPlain},
		{"plain with superclass", `function (_B) { _inherits(A, _B); function A() {} var _p = A.prototype; return A; }(B)`, ClassPlain},
		{"parenthesized callee", `(function () { function A() {} var _p = A.prototype; return A; })()`, ClassParenthesized},
		{"parenthesized call", `(function () { function A() {} var _p = A.prototype; return A; }())`, ClassParenthesized},
		{"alias not adjacent", `function () { function A() {} A.x = 1; var _p = A.prototype; return A; }()`, ClassPrototypeAlias},
		{"arity mismatch", `function (a, b) { function A() {} var _p = A.prototype; return A; }(1)`, ClassPrototypeAlias},
		{"new wrapped", `new (function () { function A() {} var _p = A.prototype; return A; }())()`, ClassNewWrapped},
		{"no alias", `function () { function A() {} A.x = 1; return A; }()`, ClassInvalid},
		{"returns other", `function () { function A() {} var _p = A.prototype; return _p; }()`, ClassInvalid},
		{"not a call", `function () { function A() {} var _p = A.prototype; return A; }`, ClassInvalid},
		{"arrow factory", `(() => { function A() {} var _p = A.prototype; return A; })()`, ClassInvalid},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			arena, root := parse(t, "var X = "+tt.init+";\n")
			p := testPass(arena, root)
			d := collect[*ast.Declarator](arena, root)[0]

			enc, c := p.classify(d.Init)
			assert.Equal(t, tt.want, enc)
			assert.Equal(t, enc == ClassInvalid, c == nil)
			if c != nil {
				assert.Equal(t, enc, c.encoding)
				assert.Equal(t, "A", c.name)
				assert.Equal(t, "_p", c.alias)
			}
		})
	}
}

func TestClassEncodingString(t *testing.T) {
	assert.Equal(t, "ConstructorWithPrototypeAlias", ClassPrototypeAlias.String())
	assert.Equal(t, "NewExpressionWrapped", ClassNewWrapped.String())
	assert.Equal(t, "Unknown", ClassEncoding(42).String())
}
