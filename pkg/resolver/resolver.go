// Package resolver implements the static resolution pass over a Lox program.
//
// The pass computes, for every local variable reference and every use of
// this and super, how many scopes separate the reference from its binding.
// References that resolve to no enclosing scope are left unrecorded and are
// looked up in the global environment at run time.
package resolver

import (
	"github.com/thomasrohde/golox/pkg/ast"
	"github.com/thomasrohde/golox/pkg/diagnostics"
)

// Locals receives each resolved reference and its scope distance.
type Locals interface {
	Resolve(expr ast.Expr, depth int)
}

// Table is a Locals backed by a map keyed on expression identity.
type Table map[ast.Expr]int

// Resolve records depth for expr.
func (t Table) Resolve(expr ast.Expr, depth int) {
	t[expr] = depth
}

type functionKind int

const (
	fnNone functionKind = iota
	fnFunction
	fnMethod
	fnInitializer
)

type classKind int

const (
	classNone classKind = iota
	classClass
	classSubclass
)

// scope maps a name to whether its initializer has finished resolving.
type scope map[string]bool

type resolver struct {
	locals   Locals
	reporter diagnostics.Reporter
	scopes   []scope
	function functionKind
	class    classKind
}

// Resolve walks stmts, recording local distances into locals and reporting
// every static error to reporter. It never stops at the first error.
func Resolve(stmts []ast.Stmt, locals Locals, reporter diagnostics.Reporter) {
	r := &resolver{locals: locals, reporter: reporter}
	r.resolveStmts(stmts)
}

// Program resolves prog into a fresh Table and returns it with the
// static diagnostics.
func Program(prog *ast.Program) (Table, []diagnostics.Diagnostic) {
	table := Table{}
	var c diagnostics.Collector
	Resolve(prog.Statements, table, &c)
	return table, c.Diags
}

func (r *resolver) addDiag(code, msg string, span ast.Span, lexeme string) {
	r.reporter.Report(diagnostics.MakeDiag(code, diagnostics.StageResolve, msg, &span, diagnostics.AtLexeme(lexeme)))
}

// --- Scopes ---

func (r *resolver) beginScope() {
	r.scopes = append(r.scopes, scope{})
}

func (r *resolver) endScope() {
	r.scopes = r.scopes[:len(r.scopes)-1]
}

func (r *resolver) innermost() scope {
	if len(r.scopes) == 0 {
		return nil
	}
	return r.scopes[len(r.scopes)-1]
}

// declare marks name as present but not yet initialized. Globals are not
// tracked.
func (r *resolver) declare(name string, span ast.Span) {
	sc := r.innermost()
	if sc == nil {
		return
	}
	if _, exists := sc[name]; exists {
		r.addDiag(diagnostics.EDupLocal, "Already a variable with this name in this scope.", span, name)
	}
	sc[name] = false
}

func (r *resolver) define(name string) {
	if sc := r.innermost(); sc != nil {
		sc[name] = true
	}
}

// resolveLocal records the distance to the innermost scope holding name.
func (r *resolver) resolveLocal(expr ast.Expr, name string) {
	for i := len(r.scopes) - 1; i >= 0; i-- {
		if _, ok := r.scopes[i][name]; ok {
			r.locals.Resolve(expr, len(r.scopes)-1-i)
			return
		}
	}
}

// --- Statements ---

func (r *resolver) resolveStmts(stmts []ast.Stmt) {
	for _, stmt := range stmts {
		r.resolveStmt(stmt)
	}
}

func (r *resolver) resolveStmt(stmt ast.Stmt) {
	switch s := stmt.(type) {
	case *ast.BlockStmt:
		r.beginScope()
		r.resolveStmts(s.Statements)
		r.endScope()

	case *ast.VarStmt:
		r.declare(s.Name, s.NameSpan)
		if s.Init != nil {
			r.resolveExpr(s.Init)
		}
		r.define(s.Name)

	case *ast.FunctionStmt:
		// Defined before the body so the function can refer to itself.
		r.declare(s.Name, s.NameSpan)
		r.define(s.Name)
		r.resolveFunction(s, fnFunction)

	case *ast.ClassStmt:
		r.resolveClass(s)

	case *ast.ExprStmt:
		r.resolveExpr(s.Expr)

	case *ast.PrintStmt:
		r.resolveExpr(s.Expr)

	case *ast.IfStmt:
		r.resolveExpr(s.Cond)
		r.resolveStmt(s.Then)
		if s.Else != nil {
			r.resolveStmt(s.Else)
		}

	case *ast.WhileStmt:
		r.resolveExpr(s.Cond)
		r.resolveStmt(s.Body)

	case *ast.ReturnStmt:
		if r.function == fnNone {
			r.addDiag(diagnostics.EReturnTopLevel, "Can't return from top-level code.", s.Span, "return")
		}
		if s.Value != nil {
			if r.function == fnInitializer {
				r.addDiag(diagnostics.EReturnInit, "Can't return a value from an initializer.", s.Span, "return")
			}
			r.resolveExpr(s.Value)
		}
	}
}

func (r *resolver) resolveFunction(fn *ast.FunctionStmt, kind functionKind) {
	enclosing := r.function
	r.function = kind
	defer func() { r.function = enclosing }()

	r.beginScope()
	for _, p := range fn.Params {
		r.declare(p.Name, p.Span)
		r.define(p.Name)
	}
	r.resolveStmts(fn.Body)
	r.endScope()
}

func (r *resolver) resolveClass(s *ast.ClassStmt) {
	enclosing := r.class
	r.class = classClass
	defer func() { r.class = enclosing }()

	r.declare(s.Name, s.NameSpan)
	r.define(s.Name)

	if s.Superclass != nil {
		if s.Superclass.Name == s.Name {
			r.addDiag(diagnostics.ESelfInherit, "A class can't inherit from itself.", s.Superclass.Span, s.Superclass.Name)
		}
		r.class = classSubclass
		r.resolveExpr(s.Superclass)

		r.beginScope()
		r.innermost()["super"] = true
	}

	r.beginScope()
	r.innermost()["this"] = true

	for _, method := range s.Methods {
		kind := fnMethod
		if method.Name == "init" {
			kind = fnInitializer
		}
		r.resolveFunction(method, kind)
	}

	r.endScope()
	if s.Superclass != nil {
		r.endScope()
	}
}

// --- Expressions ---

func (r *resolver) resolveExpr(expr ast.Expr) {
	switch e := expr.(type) {
	case *ast.VariableExpr:
		if sc := r.innermost(); sc != nil {
			if ready, declared := sc[e.Name]; declared && !ready {
				r.addDiag(diagnostics.EOwnInitializer, "Can't read local variable in its own initializer.", e.Span, e.Name)
			}
		}
		r.resolveLocal(e, e.Name)

	case *ast.AssignExpr:
		r.resolveExpr(e.Value)
		r.resolveLocal(e, e.Name)

	case *ast.BinaryExpr:
		r.resolveExpr(e.Left)
		r.resolveExpr(e.Right)

	case *ast.LogicalExpr:
		r.resolveExpr(e.Left)
		r.resolveExpr(e.Right)

	case *ast.UnaryExpr:
		r.resolveExpr(e.Operand)

	case *ast.GroupingExpr:
		r.resolveExpr(e.Expr)

	case *ast.CallExpr:
		r.resolveExpr(e.Callee)
		for _, arg := range e.Args {
			r.resolveExpr(arg)
		}

	case *ast.GetExpr:
		// Properties are looked up dynamically; only the object is resolved.
		r.resolveExpr(e.Object)

	case *ast.SetExpr:
		r.resolveExpr(e.Value)
		r.resolveExpr(e.Object)

	case *ast.ThisExpr:
		if r.class == classNone {
			r.addDiag(diagnostics.EThisOutsideClass, "Can't use 'this' outside of a class.", e.Span, "this")
			return
		}
		r.resolveLocal(e, "this")

	case *ast.SuperExpr:
		switch r.class {
		case classNone:
			r.addDiag(diagnostics.ESuperOutsideClass, "Can't use 'super' outside of a class.", e.Span, "super")
		case classClass:
			r.addDiag(diagnostics.ESuperNoSuperclass, "Can't use 'super' in a class with no superclass.", e.Span, "super")
		}
		r.resolveLocal(e, "super")

	case *ast.NumberLiteral, *ast.StringLiteral, *ast.BoolLiteral, *ast.NilLiteral:
		// nothing to resolve
	}
}
