package printer

import (
	"bytes"
	"fmt"

	"debundle/pkg/ast"
)

// Printer turns arena nodes back into JavaScript source. Output is
// deterministic: two-space indentation, one statement per line, and
// statement bodies always braced.
type Printer struct {
	arena       *ast.Arena
	indentLevel int
	buffer      bytes.Buffer
}

// New creates a printer over arena.
func New(arena *ast.Arena) *Printer {
	return &Printer{arena: arena}
}

// Print renders the program or statement rooted at root.
func Print(arena *ast.Arena, root ast.NodeID) string {
	return New(arena).Print(root)
}

// Expr renders a single expression.
func Expr(arena *ast.Arena, id ast.NodeID) string {
	p := New(arena)
	p.emitExpr(id, precLowest)
	return p.buffer.String()
}

// Print renders the program or statement rooted at root.
func (p *Printer) Print(root ast.NodeID) string {
	p.buffer.Reset()
	p.indentLevel = 0

	if prog, ok := ast.As[*ast.Program](p.arena, root); ok {
		p.emitProgram(prog)
	} else {
		p.emitStatement(root)
	}
	return p.buffer.String()
}

// Helper methods

func (p *Printer) indent() {
	p.indentLevel++
}

func (p *Printer) dedent() {
	if p.indentLevel > 0 {
		p.indentLevel--
	}
}

func (p *Printer) writeIndent() {
	for i := 0; i < p.indentLevel; i++ {
		p.buffer.WriteString("  ")
	}
}

func (p *Printer) writeLine(format string, args ...any) {
	p.writeIndent()
	fmt.Fprintf(&p.buffer, format, args...)
	p.buffer.WriteString("\n")
}

func (p *Printer) write(s string) {
	p.buffer.WriteString(s)
}

// Statement emitters

func (p *Printer) emitProgram(prog *ast.Program) {
	prevImport := false
	for _, id := range prog.Body {
		kind := p.arena.KindOf(id)
		if kind == ast.KindEmpty || kind == ast.KindInvalid {
			continue
		}
		isImport := kind == ast.KindImportDecl
		if prevImport && !isImport {
			p.write("\n")
		}
		prevImport = isImport
		p.emitStatement(id)
	}
}

func (p *Printer) emitStatement(id ast.NodeID) {
	if p.arena.KindOf(id) == ast.KindEmpty {
		return
	}
	p.writeIndent()
	p.emitStatementBody(id)
}

// emitStatementBody writes one statement starting at the current column and
// ends it with a newline.
func (p *Printer) emitStatementBody(id ast.NodeID) {
	switch s := p.arena.Get(id).(type) {
	case *ast.ExprStmt:
		if p.startsAmbiguous(s.Expr) {
			p.write("(")
			p.emitExpr(s.Expr, precLowest)
			p.write(");\n")
			return
		}
		p.emitExpr(s.Expr, precLowest)
		p.write(";\n")

	case *ast.VarDecl:
		p.emitVarDecl(s)
		p.write(";\n")

	case *ast.Function:
		p.emitFunction(s)
		p.write("\n")

	case *ast.Class:
		p.emitClass(s)
		p.write("\n")

	case *ast.Return:
		p.write("return")
		if s.Arg.Valid() {
			p.write(" ")
			p.emitExpr(s.Arg, precLowest)
		}
		p.write(";\n")

	case *ast.Throw:
		p.write("throw ")
		p.emitExpr(s.Arg, precLowest)
		p.write(";\n")

	case *ast.Block:
		p.emitBlock(id)
		p.write("\n")

	case *ast.If:
		p.emitIf(s)
		p.write("\n")

	case *ast.For:
		p.write("for (")
		if decl, ok := ast.As[*ast.VarDecl](p.arena, s.Init); ok {
			p.emitVarDecl(decl)
		} else if s.Init.Valid() {
			p.emitExpr(s.Init, precLowest)
		}
		p.write(";")
		if s.Test.Valid() {
			p.write(" ")
			p.emitExpr(s.Test, precLowest)
		}
		p.write(";")
		if s.Update.Valid() {
			p.write(" ")
			p.emitExpr(s.Update, precLowest)
		}
		p.write(") ")
		p.emitBody(s.Body)
		p.write("\n")

	case *ast.ForIn:
		p.write("for ")
		if s.Await {
			p.write("await ")
		}
		p.write("(")
		if decl, ok := ast.As[*ast.VarDecl](p.arena, s.Left); ok {
			p.emitVarDecl(decl)
		} else {
			p.emitExpr(s.Left, precCall)
		}
		if s.Of {
			p.write(" of ")
		} else {
			p.write(" in ")
		}
		p.emitExpr(s.Right, precAssign)
		p.write(") ")
		p.emitBody(s.Body)
		p.write("\n")

	case *ast.While:
		p.write("while (")
		p.emitExpr(s.Test, precLowest)
		p.write(") ")
		p.emitBody(s.Body)
		p.write("\n")

	case *ast.DoWhile:
		p.write("do ")
		p.emitBody(s.Body)
		p.write(" while (")
		p.emitExpr(s.Test, precLowest)
		p.write(");\n")

	case *ast.Branch:
		p.write(s.Keyword)
		if s.Label != "" {
			p.write(" " + s.Label)
		}
		p.write(";\n")

	case *ast.Try:
		p.write("try ")
		p.emitBlock(s.Block)
		if s.Handler.Valid() {
			p.write(" catch ")
			if s.Param.Valid() {
				p.write("(")
				p.emitExpr(s.Param, precAssign)
				p.write(") ")
			}
			p.emitBlock(s.Handler)
		}
		if s.Finalizer.Valid() {
			p.write(" finally ")
			p.emitBlock(s.Finalizer)
		}
		p.write("\n")

	case *ast.Switch:
		p.emitSwitch(s)

	case *ast.Labeled:
		p.write(s.Label + ": ")
		if !s.Body.Valid() || p.arena.KindOf(s.Body) == ast.KindEmpty {
			p.write(";\n")
			return
		}
		p.emitStatementBody(s.Body)

	case *ast.ImportDecl:
		p.emitImport(s)

	case *ast.ExportDefault:
		p.write("export default ")
		switch decl := p.arena.Get(s.Decl).(type) {
		case *ast.Function:
			if decl.Declaration {
				p.emitFunction(decl)
				p.write("\n")
				return
			}
		case *ast.Class:
			if decl.Declaration {
				p.emitClass(decl)
				p.write("\n")
				return
			}
		}
		p.emitExpr(s.Decl, precAssign)
		p.write(";\n")

	case *ast.ExportNamed:
		p.emitExportNamed(s)

	case *ast.Empty:
		p.write(";\n")

	case *ast.Raw:
		p.write(s.Text)
		p.write("\n")

	case nil:
		p.write(";\n")

	default:
		// Expression nodes spliced into statement slots
		p.emitExpr(id, precLowest)
		p.write(";\n")
	}
}

// emitBlock writes `{ ... }` without a trailing newline.
func (p *Printer) emitBlock(id ast.NodeID) {
	blk, ok := ast.As[*ast.Block](p.arena, id)
	if !ok {
		p.write("{}")
		return
	}
	body := p.nonEmpty(blk.Body)
	if len(body) == 0 {
		p.write("{}")
		return
	}
	p.write("{\n")
	p.indent()
	for _, stmt := range body {
		p.emitStatement(stmt)
	}
	p.dedent()
	p.writeIndent()
	p.write("}")
}

// emitBody writes a loop or branch body. Non-block bodies are braced.
func (p *Printer) emitBody(id ast.NodeID) {
	if p.arena.KindOf(id) == ast.KindBlock {
		p.emitBlock(id)
		return
	}
	if !id.Valid() || p.arena.KindOf(id) == ast.KindEmpty {
		p.write("{}")
		return
	}
	p.write("{\n")
	p.indent()
	p.emitStatement(id)
	p.dedent()
	p.writeIndent()
	p.write("}")
}

func (p *Printer) nonEmpty(ids []ast.NodeID) []ast.NodeID {
	out := make([]ast.NodeID, 0, len(ids))
	for _, id := range ids {
		if k := p.arena.KindOf(id); k != ast.KindEmpty && k != ast.KindInvalid {
			out = append(out, id)
		}
	}
	return out
}

func (p *Printer) emitIf(s *ast.If) {
	p.write("if (")
	p.emitExpr(s.Test, precLowest)
	p.write(") ")
	p.emitBody(s.Cons)
	if !s.Alt.Valid() {
		return
	}
	p.write(" else ")
	if alt, ok := ast.As[*ast.If](p.arena, s.Alt); ok {
		p.emitIf(alt)
		return
	}
	p.emitBody(s.Alt)
}

func (p *Printer) emitVarDecl(s *ast.VarDecl) {
	p.write(s.Keyword + " ")
	for i, id := range s.Decls {
		if i > 0 {
			p.write(", ")
		}
		d, ok := ast.As[*ast.Declarator](p.arena, id)
		if !ok {
			continue
		}
		p.emitExpr(d.ID, precAssign)
		if d.Init.Valid() {
			p.write(" = ")
			p.emitExpr(d.Init, precAssign)
		}
	}
}

func (p *Printer) emitSwitch(s *ast.Switch) {
	p.write("switch (")
	p.emitExpr(s.Disc, precLowest)
	p.write(") {\n")
	p.indent()
	for _, id := range s.Cases {
		c, ok := ast.As[*ast.Case](p.arena, id)
		if !ok {
			continue
		}
		p.writeIndent()
		if c.Test.Valid() {
			p.write("case ")
			p.emitExpr(c.Test, precLowest)
			p.write(":\n")
		} else {
			p.write("default:\n")
		}
		p.indent()
		for _, stmt := range p.nonEmpty(c.Body) {
			p.emitStatement(stmt)
		}
		p.dedent()
	}
	p.dedent()
	p.writeIndent()
	p.write("}\n")
}

func (p *Printer) emitImport(s *ast.ImportDecl) {
	p.write("import ")
	var named []*ast.ImportSpec
	wroteDefault := false
	for _, id := range s.Specifiers {
		spec, ok := ast.As[*ast.ImportSpec](p.arena, id)
		if !ok {
			continue
		}
		switch spec.SpecKind {
		case ast.SpecDefault:
			p.emitExpr(spec.Local, precPrimary)
			wroteDefault = true
		case ast.SpecNamespace:
			if wroteDefault {
				p.write(", ")
			}
			p.write("* as ")
			p.emitExpr(spec.Local, precPrimary)
			wroteDefault = true
		default:
			named = append(named, spec)
		}
	}
	if len(named) > 0 {
		if wroteDefault {
			p.write(", ")
		}
		p.write("{ ")
		for i, spec := range named {
			if i > 0 {
				p.write(", ")
			}
			local := p.identName(spec.Local)
			if spec.Imported != "" && spec.Imported != local {
				p.write(spec.Imported + " as ")
			}
			p.write(local)
		}
		p.write(" }")
	}
	if wroteDefault || len(named) > 0 {
		p.write(" from ")
	}
	p.emitExpr(s.Source, precPrimary)
	p.write(";\n")
}

func (p *Printer) emitExportNamed(s *ast.ExportNamed) {
	p.write("export ")
	if s.Decl.Valid() {
		p.emitStatementBody(s.Decl)
		return
	}
	p.write("{ ")
	for i, id := range s.Specifiers {
		spec, ok := ast.As[*ast.ExportSpec](p.arena, id)
		if !ok {
			continue
		}
		if i > 0 {
			p.write(", ")
		}
		local := p.identName(spec.Local)
		p.write(local)
		if spec.Exported != "" && spec.Exported != local {
			p.write(" as " + spec.Exported)
		}
	}
	p.write(" }")
	if s.Source.Valid() {
		p.write(" from ")
		p.emitExpr(s.Source, precPrimary)
	}
	p.write(";\n")
}

func (p *Printer) identName(id ast.NodeID) string {
	if ident, ok := ast.As[*ast.Ident](p.arena, id); ok {
		return ident.Name
	}
	return Expr(p.arena, id)
}
