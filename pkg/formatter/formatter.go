// Package formatter implements the Lox source code formatter.
//
// The formatter prints the syntax tree, so comments are dropped and for
// loops appear in their desugared while form.
package formatter

import (
	"strconv"
	"strings"

	"github.com/thomasrohde/golox/pkg/ast"
)

const indent = "  "

// Format pretty-prints a Lox AST back to source code.
func Format(program *ast.Program) string {
	if len(program.Statements) == 0 {
		return ""
	}
	var lines []string
	for _, s := range program.Statements {
		lines = append(lines, formatStmt(s, 0))
	}
	return strings.Join(lines, "\n") + "\n"
}

// HasComments reports whether source contains a // comment outside a
// string literal.
func HasComments(source string) bool {
	inString := false
	for i := 0; i < len(source); i++ {
		switch {
		case source[i] == '"':
			inString = !inString
		case !inString && source[i] == '/' && i+1 < len(source) && source[i+1] == '/':
			return true
		}
	}
	return false
}

func pad(depth int) string {
	return strings.Repeat(indent, depth)
}

// formatStmt renders s with nested lines indented relative to depth. The
// first line carries no indentation.
func formatStmt(s ast.Stmt, depth int) string {
	switch st := s.(type) {
	case *ast.ExprStmt:
		return formatExpr(st.Expr) + ";"
	case *ast.PrintStmt:
		return "print " + formatExpr(st.Expr) + ";"
	case *ast.VarStmt:
		if st.Init == nil {
			return "var " + st.Name + ";"
		}
		return "var " + st.Name + " = " + formatExpr(st.Init) + ";"
	case *ast.BlockStmt:
		return formatBlock(st.Statements, depth)
	case *ast.IfStmt:
		out := "if (" + formatExpr(st.Cond) + ") " + formatStmt(st.Then, depth)
		if st.Else != nil {
			if _, ok := st.Then.(*ast.BlockStmt); ok {
				out += " else "
			} else {
				out += "\n" + pad(depth) + "else "
			}
			out += formatStmt(st.Else, depth)
		}
		return out
	case *ast.WhileStmt:
		return "while (" + formatExpr(st.Cond) + ") " + formatStmt(st.Body, depth)
	case *ast.FunctionStmt:
		return "fun " + formatFunction(st, depth)
	case *ast.ReturnStmt:
		if st.Value == nil {
			return "return;"
		}
		return "return " + formatExpr(st.Value) + ";"
	case *ast.ClassStmt:
		return formatClass(st, depth)
	}
	return ""
}

func formatBlock(stmts []ast.Stmt, depth int) string {
	if len(stmts) == 0 {
		return "{}"
	}
	var b strings.Builder
	b.WriteString("{\n")
	for _, s := range stmts {
		b.WriteString(pad(depth + 1))
		b.WriteString(formatStmt(s, depth+1))
		b.WriteString("\n")
	}
	b.WriteString(pad(depth))
	b.WriteString("}")
	return b.String()
}

func formatFunction(fn *ast.FunctionStmt, depth int) string {
	params := make([]string, len(fn.Params))
	for i, p := range fn.Params {
		params[i] = p.Name
	}
	return fn.Name + "(" + strings.Join(params, ", ") + ") " + formatBlock(fn.Body, depth)
}

func formatClass(cls *ast.ClassStmt, depth int) string {
	head := "class " + cls.Name
	if cls.Superclass != nil {
		head += " < " + cls.Superclass.Name
	}
	if len(cls.Methods) == 0 {
		return head + " {}"
	}
	var b strings.Builder
	b.WriteString(head)
	b.WriteString(" {\n")
	for i, m := range cls.Methods {
		if i > 0 {
			b.WriteString("\n")
		}
		b.WriteString(pad(depth + 1))
		b.WriteString(formatFunction(m, depth+1))
		b.WriteString("\n")
	}
	b.WriteString(pad(depth))
	b.WriteString("}")
	return b.String()
}

func formatExpr(e ast.Expr) string {
	switch ex := e.(type) {
	case *ast.NumberLiteral:
		return formatNumber(ex.Value)
	case *ast.StringLiteral:
		return `"` + ex.Value + `"`
	case *ast.BoolLiteral:
		if ex.Value {
			return "true"
		}
		return "false"
	case *ast.NilLiteral:
		return "nil"
	case *ast.GroupingExpr:
		return "(" + formatExpr(ex.Expr) + ")"
	case *ast.UnaryExpr:
		return string(ex.Op) + formatExpr(ex.Operand)
	case *ast.BinaryExpr:
		return formatExpr(ex.Left) + " " + string(ex.Op) + " " + formatExpr(ex.Right)
	case *ast.LogicalExpr:
		return formatExpr(ex.Left) + " " + string(ex.Op) + " " + formatExpr(ex.Right)
	case *ast.VariableExpr:
		return ex.Name
	case *ast.AssignExpr:
		return ex.Name + " = " + formatExpr(ex.Value)
	case *ast.CallExpr:
		args := make([]string, len(ex.Args))
		for i, a := range ex.Args {
			args[i] = formatExpr(a)
		}
		return formatExpr(ex.Callee) + "(" + strings.Join(args, ", ") + ")"
	case *ast.GetExpr:
		return formatExpr(ex.Object) + "." + ex.Name
	case *ast.SetExpr:
		return formatExpr(ex.Object) + "." + ex.Name + " = " + formatExpr(ex.Value)
	case *ast.ThisExpr:
		return "this"
	case *ast.SuperExpr:
		return "super." + ex.Method
	}
	return ""
}

// formatNumber prints a literal in the lexer's digits[.digits] form.
func formatNumber(value float64) string {
	return strconv.FormatFloat(value, 'f', -1, 64)
}
