package ast

// --- Interfaces ---

// Node is the base interface for all syntax nodes stored in an Arena.
// Children are referenced by NodeID, never by pointer, so a node can be
// swapped out in place without touching its parent.
type Node interface {
	Kind() Kind
}

// Kind discriminates the closed set of node shapes.
type Kind uint8

const (
	KindInvalid Kind = iota

	// Program and statements
	KindProgram
	KindVarDecl
	KindDeclarator
	KindExprStmt
	KindReturn
	KindIf
	KindBlock
	KindFor
	KindForIn
	KindWhile
	KindDoWhile
	KindBranch
	KindThrow
	KindTry
	KindSwitch
	KindCase
	KindLabeled
	KindEmpty

	// Module declarations
	KindImportDecl
	KindImportSpec
	KindExportDefault
	KindExportNamed
	KindExportSpec

	// Expressions
	KindIdent
	KindLiteral
	KindTemplate
	KindTaggedTemplate
	KindThis
	KindSuper
	KindArray
	KindObject
	KindProperty
	KindSpread
	KindFunction
	KindClass
	KindMethod
	KindField
	KindUnary
	KindUpdate
	KindBinary
	KindLogical
	KindAssign
	KindConditional
	KindCall
	KindNew
	KindMember
	KindSequence
	KindParen
	KindAwait
	KindYield
	KindRaw

	// Markup
	KindJSXElement
	KindJSXAttr
	KindJSXSpreadAttr
	KindJSXExprContainer
	KindJSXText
	KindJSXEmpty
)

var kindNames = [...]string{
	KindInvalid:          "Invalid",
	KindProgram:          "Program",
	KindVarDecl:          "VariableDeclaration",
	KindDeclarator:       "VariableDeclarator",
	KindExprStmt:         "ExpressionStatement",
	KindReturn:           "ReturnStatement",
	KindIf:               "IfStatement",
	KindBlock:            "BlockStatement",
	KindFor:              "ForStatement",
	KindForIn:            "ForInStatement",
	KindWhile:            "WhileStatement",
	KindDoWhile:          "DoWhileStatement",
	KindBranch:           "BranchStatement",
	KindThrow:            "ThrowStatement",
	KindTry:              "TryStatement",
	KindSwitch:           "SwitchStatement",
	KindCase:             "SwitchCase",
	KindLabeled:          "LabeledStatement",
	KindEmpty:            "EmptyStatement",
	KindImportDecl:       "ImportDeclaration",
	KindImportSpec:       "ImportSpecifier",
	KindExportDefault:    "ExportDefaultDeclaration",
	KindExportNamed:      "ExportNamedDeclaration",
	KindExportSpec:       "ExportSpecifier",
	KindIdent:            "Identifier",
	KindLiteral:          "Literal",
	KindTemplate:         "TemplateLiteral",
	KindTaggedTemplate:   "TaggedTemplateExpression",
	KindThis:             "ThisExpression",
	KindSuper:            "Super",
	KindArray:            "ArrayExpression",
	KindObject:           "ObjectExpression",
	KindProperty:         "Property",
	KindSpread:           "SpreadElement",
	KindFunction:         "Function",
	KindClass:            "Class",
	KindMethod:           "MethodDefinition",
	KindField:            "PropertyDefinition",
	KindUnary:            "UnaryExpression",
	KindUpdate:           "UpdateExpression",
	KindBinary:           "BinaryExpression",
	KindLogical:          "LogicalExpression",
	KindAssign:           "AssignmentExpression",
	KindConditional:      "ConditionalExpression",
	KindCall:             "CallExpression",
	KindNew:              "NewExpression",
	KindMember:           "MemberExpression",
	KindSequence:         "SequenceExpression",
	KindParen:            "ParenthesizedExpression",
	KindAwait:            "AwaitExpression",
	KindYield:            "YieldExpression",
	KindRaw:              "Raw",
	KindJSXElement:       "JSXElement",
	KindJSXAttr:          "JSXAttribute",
	KindJSXSpreadAttr:    "JSXSpreadAttribute",
	KindJSXExprContainer: "JSXExpressionContainer",
	KindJSXText:          "JSXText",
	KindJSXEmpty:         "JSXEmptyExpression",
}

func (k Kind) String() string {
	if int(k) < len(kindNames) && kindNames[k] != "" {
		return kindNames[k]
	}
	return "Unknown"
}

// --- Program Node ---

// Program is the root node of a parsed file.
type Program struct {
	Body []NodeID
}

func (*Program) Kind() Kind { return KindProgram }

// --- Statement Nodes ---

// VarDecl is a `var`, `let` or `const` declaration.
type VarDecl struct {
	Keyword string // "var", "let" or "const"
	Decls   []NodeID
}

func (*VarDecl) Kind() Kind { return KindVarDecl }

// Declarator is one `id = init` entry of a VarDecl. Init may be NoNode.
type Declarator struct {
	ID   NodeID
	Init NodeID
}

func (*Declarator) Kind() Kind { return KindDeclarator }

type ExprStmt struct {
	Expr NodeID
}

func (*ExprStmt) Kind() Kind { return KindExprStmt }

type Return struct {
	Arg NodeID
}

func (*Return) Kind() Kind { return KindReturn }

type If struct {
	Test NodeID
	Cons NodeID
	Alt  NodeID
}

func (*If) Kind() Kind { return KindIf }

type Block struct {
	Body []NodeID
}

func (*Block) Kind() Kind { return KindBlock }

type For struct {
	Init   NodeID
	Test   NodeID
	Update NodeID
	Body   NodeID
}

func (*For) Kind() Kind { return KindFor }

// ForIn covers both `for (x in y)` and `for (x of y)`.
type ForIn struct {
	Left  NodeID
	Right NodeID
	Body  NodeID
	Of    bool
	Await bool
}

func (*ForIn) Kind() Kind { return KindForIn }

type While struct {
	Test NodeID
	Body NodeID
}

func (*While) Kind() Kind { return KindWhile }

type DoWhile struct {
	Body NodeID
	Test NodeID
}

func (*DoWhile) Kind() Kind { return KindDoWhile }

// Branch is `break` or `continue`, with an optional label.
type Branch struct {
	Keyword string
	Label   string
}

func (*Branch) Kind() Kind { return KindBranch }

type Throw struct {
	Arg NodeID
}

func (*Throw) Kind() Kind { return KindThrow }

type Try struct {
	Block     NodeID
	Param     NodeID
	Handler   NodeID
	Finalizer NodeID
}

func (*Try) Kind() Kind { return KindTry }

type Switch struct {
	Disc  NodeID
	Cases []NodeID
}

func (*Switch) Kind() Kind { return KindSwitch }

// Case is one `case`/`default` clause. Test is NoNode for `default`.
type Case struct {
	Test NodeID
	Body []NodeID
}

func (*Case) Kind() Kind { return KindCase }

type Labeled struct {
	Label string
	Body  NodeID
}

func (*Labeled) Kind() Kind { return KindLabeled }

type Empty struct{}

func (*Empty) Kind() Kind { return KindEmpty }

// --- Module Nodes ---

type ImportDecl struct {
	Specifiers []NodeID
	Source     NodeID // string Literal
}

func (*ImportDecl) Kind() Kind { return KindImportDecl }

type SpecKind uint8

const (
	SpecNamed SpecKind = iota
	SpecDefault
	SpecNamespace
)

// ImportSpec binds Local to the default export, the namespace, or the
// export named Imported.
type ImportSpec struct {
	SpecKind SpecKind
	Local    NodeID
	Imported string
}

func (*ImportSpec) Kind() Kind { return KindImportSpec }

type ExportDefault struct {
	Decl NodeID
}

func (*ExportDefault) Kind() Kind { return KindExportDefault }

// ExportNamed is either `export <declaration>` or `export { a as b }`.
type ExportNamed struct {
	Decl       NodeID
	Specifiers []NodeID
	Source     NodeID
}

func (*ExportNamed) Kind() Kind { return KindExportNamed }

type ExportSpec struct {
	Local    NodeID
	Exported string
}

func (*ExportSpec) Kind() Kind { return KindExportSpec }

// --- Expression Nodes ---

type Ident struct {
	Name string
}

func (*Ident) Kind() Kind { return KindIdent }

type LitKind uint8

const (
	LitString LitKind = iota
	LitNumber
	LitBool
	LitNull
	LitRegExp
	LitBigInt
)

// Literal keeps the source spelling in Raw. For strings Value holds the
// decoded contents.
type Literal struct {
	LitKind LitKind
	Raw     string
	Value   string
}

func (*Literal) Kind() Kind { return KindLiteral }

// Template is a template literal. Quasis are raw text chunks; there is
// always one more quasi than expressions.
type Template struct {
	Quasis []string
	Exprs  []NodeID
}

func (*Template) Kind() Kind { return KindTemplate }

type TaggedTemplate struct {
	Tag   NodeID
	Quasi NodeID
}

func (*TaggedTemplate) Kind() Kind { return KindTaggedTemplate }

type This struct{}

func (*This) Kind() Kind { return KindThis }

type Super struct{}

func (*Super) Kind() Kind { return KindSuper }

// Array is an array literal or array pattern. NoNode entries are holes.
type Array struct {
	Elems []NodeID
}

func (*Array) Kind() Kind { return KindArray }

// Object is an object literal or object pattern.
type Object struct {
	Props []NodeID
}

func (*Object) Kind() Kind { return KindObject }

// Property is one entry of an Object. A non-computed Key is an Ident that
// names the property and is not a variable reference.
type Property struct {
	Key       NodeID
	Value     NodeID
	Computed  bool
	Shorthand bool
	Method    bool
	Accessor  string // "", "get" or "set"
}

func (*Property) Kind() Kind { return KindProperty }

// Spread is `...arg` in calls, arrays and objects, and the rest element of
// patterns and parameter lists.
type Spread struct {
	Arg NodeID
}

func (*Spread) Kind() Kind { return KindSpread }

// Function covers declarations, expressions and arrows. For an arrow with
// an expression body, ExprBody is set and Body is that expression.
type Function struct {
	ID          NodeID
	Params      []NodeID
	Body        NodeID
	Declaration bool
	Arrow       bool
	ExprBody    bool
	Async       bool
	Generator   bool
}

func (*Function) Kind() Kind { return KindFunction }

type Class struct {
	ID          NodeID
	Super       NodeID
	Members     []NodeID
	Declaration bool
}

func (*Class) Kind() Kind { return KindClass }

type MethodKind uint8

const (
	MethodNormal MethodKind = iota
	MethodConstructor
	MethodGet
	MethodSet
)

// Method is a class member function. Value is a Function node.
type Method struct {
	Key        NodeID
	Value      NodeID
	MethodKind MethodKind
	Static     bool
	Computed   bool
}

func (*Method) Kind() Kind { return KindMethod }

// Field is a class field definition.
type Field struct {
	Key      NodeID
	Value    NodeID
	Static   bool
	Computed bool
}

func (*Field) Kind() Kind { return KindField }

type Unary struct {
	Op  string
	Arg NodeID
}

func (*Unary) Kind() Kind { return KindUnary }

type Update struct {
	Op     string
	Prefix bool
	Arg    NodeID
}

func (*Update) Kind() Kind { return KindUpdate }

type Binary struct {
	Op    string
	Left  NodeID
	Right NodeID
}

func (*Binary) Kind() Kind { return KindBinary }

// Logical is `&&`, `||` or `??`.
type Logical struct {
	Op    string
	Left  NodeID
	Right NodeID
}

func (*Logical) Kind() Kind { return KindLogical }

type Assign struct {
	Op    string
	Left  NodeID
	Right NodeID
}

func (*Assign) Kind() Kind { return KindAssign }

type Conditional struct {
	Test NodeID
	Cons NodeID
	Alt  NodeID
}

func (*Conditional) Kind() Kind { return KindConditional }

type Call struct {
	Callee   NodeID
	Args     []NodeID
	Optional bool
}

func (*Call) Kind() Kind { return KindCall }

type New struct {
	Callee NodeID
	Args   []NodeID
}

func (*New) Kind() Kind { return KindNew }

// Member is `obj.prop` or `obj[prop]`. A non-computed Property is an Ident
// naming the property.
type Member struct {
	Object   NodeID
	Property NodeID
	Computed bool
	Optional bool
}

func (*Member) Kind() Kind { return KindMember }

type Sequence struct {
	Exprs []NodeID
}

func (*Sequence) Kind() Kind { return KindSequence }

// Paren is an explicit grouping kept from the source.
type Paren struct {
	Expr NodeID
}

func (*Paren) Kind() Kind { return KindParen }

type Await struct {
	Arg NodeID
}

func (*Await) Kind() Kind { return KindAwait }

type Yield struct {
	Arg      NodeID
	Delegate bool
}

func (*Yield) Kind() Kind { return KindYield }

// Raw is source text carried through verbatim. It is opaque to every
// rewrite.
type Raw struct {
	Text string
}

func (*Raw) Kind() Kind { return KindRaw }

// --- Markup Nodes ---

// JSXElement is a reconstructed markup element.
type JSXElement struct {
	Name        string
	Attrs       []NodeID
	Children    []NodeID
	SelfClosing bool
}

func (*JSXElement) Kind() Kind { return KindJSXElement }

// JSXAttr is `name`, `name="text"` or `name={expr}`. Value is NoNode, a
// string Literal, or a JSXExprContainer.
type JSXAttr struct {
	Name  string
	Value NodeID
}

func (*JSXAttr) Kind() Kind { return KindJSXAttr }

type JSXSpreadAttr struct {
	Arg NodeID
}

func (*JSXSpreadAttr) Kind() Kind { return KindJSXSpreadAttr }

type JSXExprContainer struct {
	Expr NodeID
}

func (*JSXExprContainer) Kind() Kind { return KindJSXExprContainer }

type JSXText struct {
	Value string
}

func (*JSXText) Kind() Kind { return KindJSXText }

// JSXEmpty marks a child slot that renders nothing.
type JSXEmpty struct{}

func (*JSXEmpty) Kind() Kind { return KindJSXEmpty }
