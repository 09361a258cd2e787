package interpreter

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/thomasrohde/golox/pkg/ast"
	"github.com/thomasrohde/golox/pkg/diagnostics"
)

// DefaultMaxDepth bounds nested calls so runaway recursion is reported as
// a Lox error instead of exhausting the Go stack.
const DefaultMaxDepth = 10000

// Option configures an Interpreter.
type Option func(*Interpreter)

// WithOutput sets the writer that print statements write to.
func WithOutput(w io.Writer) Option {
	return func(in *Interpreter) { in.out = w }
}

// WithTrace installs a callback that receives execution trace events.
func WithTrace(fn func(TraceEvent)) Option {
	return func(in *Interpreter) { in.trace = fn }
}

// WithRunID tags every trace event with id.
func WithRunID(id string) Option {
	return func(in *Interpreter) { in.runID = id }
}

// WithNatives defines each native in the global scope.
func WithNatives(natives ...*Native) Option {
	return func(in *Interpreter) {
		for _, n := range natives {
			in.globals.Define(n.Name, n)
		}
	}
}

// WithMaxDepth overrides DefaultMaxDepth.
func WithMaxDepth(n int) Option {
	return func(in *Interpreter) { in.maxDepth = n }
}

// result reports how a statement finished: normally, or by a return
// statement carrying value.
type result struct {
	returned bool
	value    Value
}

// Interpreter evaluates resolved Lox programs. One Interpreter may run many
// programs in turn; globals and resolution data persist between runs. It is
// not safe for concurrent use.
type Interpreter struct {
	ctx      context.Context
	globals  *Environment
	env      *Environment
	locals   map[ast.Expr]int
	out      io.Writer
	trace    func(TraceEvent)
	runID    string
	maxDepth int
	depth    int
}

// New creates an interpreter with an empty global scope.
func New(opts ...Option) *Interpreter {
	globals := NewEnvironment(nil)
	in := &Interpreter{
		globals:  globals,
		env:      globals,
		locals:   make(map[ast.Expr]int),
		out:      os.Stdout,
		maxDepth: DefaultMaxDepth,
	}
	for _, opt := range opts {
		opt(in)
	}
	return in
}

// Globals returns the global environment.
func (in *Interpreter) Globals() *Environment {
	return in.globals
}

// Resolve records that expr refers to a binding depth scopes out from
// where it is evaluated. Expressions never resolved are globals.
func (in *Interpreter) Resolve(expr ast.Expr, depth int) {
	in.locals[expr] = depth
}

// Interpret executes stmts in order. The first runtime error stops
// execution and is returned as a *RuntimeError. ctx is checked on every
// loop iteration and call.
func (in *Interpreter) Interpret(ctx context.Context, stmts []ast.Stmt) error {
	in.ctx = ctx
	in.env = in.globals
	in.depth = 0

	span := stmtsSpan(stmts)
	in.emit(TraceRunStart, span, nil)

	for _, stmt := range stmts {
		res, err := in.execute(stmt)
		if err != nil {
			data := map[string]string{"error": err.Error()}
			var rerr *RuntimeError
			if errors.As(err, &rerr) {
				data["code"] = rerr.Code
			}
			in.emit(TraceRunEnd, span, data)
			return err
		}
		if res.returned {
			// The resolver rejects top-level return.
			return errors.New("return outside of a function")
		}
	}

	in.emit(TraceRunEnd, span, nil)
	return nil
}

func stmtsSpan(stmts []ast.Stmt) ast.Span {
	if len(stmts) == 0 {
		return ast.Span{}
	}
	first, last := stmts[0].NodeSpan(), stmts[len(stmts)-1].NodeSpan()
	return ast.Span{
		File:      first.File,
		StartLine: first.StartLine,
		StartCol:  first.StartCol,
		EndLine:   last.EndLine,
		EndCol:    last.EndCol,
	}
}

func (in *Interpreter) checkCancelled(span ast.Span) error {
	if in.ctx == nil {
		return nil
	}
	if err := in.ctx.Err(); err != nil {
		return newRuntimeError(diagnostics.ECancelled, "Execution cancelled.", span)
	}
	return nil
}

// --- Statements ---

func (in *Interpreter) execute(stmt ast.Stmt) (result, error) {
	switch s := stmt.(type) {
	case *ast.ExprStmt:
		_, err := in.evaluate(s.Expr)
		return result{}, err

	case *ast.PrintStmt:
		val, err := in.evaluate(s.Expr)
		if err != nil {
			return result{}, err
		}
		if _, err := fmt.Fprintln(in.out, Stringify(val)); err != nil {
			return result{}, newRuntimeError(diagnostics.EIO, err.Error(), s.Span)
		}
		return result{}, nil

	case *ast.VarStmt:
		var val Value = Nil{}
		if s.Init != nil {
			v, err := in.evaluate(s.Init)
			if err != nil {
				return result{}, err
			}
			val = v
		}
		in.env.Define(s.Name, val)
		return result{}, nil

	case *ast.BlockStmt:
		return in.executeBlock(s.Statements, NewEnvironment(in.env))

	case *ast.IfStmt:
		cond, err := in.evaluate(s.Cond)
		if err != nil {
			return result{}, err
		}
		if Truthy(cond) {
			return in.execute(s.Then)
		}
		if s.Else != nil {
			return in.execute(s.Else)
		}
		return result{}, nil

	case *ast.WhileStmt:
		for {
			if err := in.checkCancelled(s.Span); err != nil {
				return result{}, err
			}
			cond, err := in.evaluate(s.Cond)
			if err != nil {
				return result{}, err
			}
			if !Truthy(cond) {
				return result{}, nil
			}
			res, err := in.execute(s.Body)
			if err != nil || res.returned {
				return res, err
			}
		}

	case *ast.FunctionStmt:
		in.env.Define(s.Name, NewFunction(s, in.env, false))
		return result{}, nil

	case *ast.ReturnStmt:
		var val Value = Nil{}
		if s.Value != nil {
			v, err := in.evaluate(s.Value)
			if err != nil {
				return result{}, err
			}
			val = v
		}
		return result{returned: true, value: val}, nil

	case *ast.ClassStmt:
		return result{}, in.executeClass(s)
	}

	return result{}, fmt.Errorf("unknown statement type: %s", stmt.Kind())
}

// executeBlock runs stmts with env as the current scope. The previous
// scope is restored on every exit path.
func (in *Interpreter) executeBlock(stmts []ast.Stmt, env *Environment) (result, error) {
	previous := in.env
	in.env = env
	defer func() { in.env = previous }()

	for _, stmt := range stmts {
		res, err := in.execute(stmt)
		if err != nil || res.returned {
			return res, err
		}
	}
	return result{}, nil
}

func (in *Interpreter) executeClass(s *ast.ClassStmt) error {
	var superclass *Class
	if s.Superclass != nil {
		val, err := in.evaluate(s.Superclass)
		if err != nil {
			return err
		}
		sc, ok := val.(*Class)
		if !ok {
			return newRuntimeError(diagnostics.ESuperclass, "Superclass must be a class.", s.Superclass.Span)
		}
		superclass = sc
	}

	// Declared before the methods are built so they can name the class.
	in.env.Define(s.Name, Nil{})

	closure := in.env
	if superclass != nil {
		closure = NewEnvironment(in.env)
		closure.Define("super", superclass)
	}

	methods := make(map[string]*Function, len(s.Methods))
	for _, m := range s.Methods {
		methods[m.Name] = NewFunction(m, closure, m.Name == "init")
	}

	class := NewClass(s.Name, superclass, methods)
	data := map[string]string{"class": s.Name}
	if superclass != nil {
		data["superclass"] = superclass.Name
	}
	in.emit(TraceClassDefine, s.Span, data)

	return in.env.Assign(s.Name, class, s.NameSpan)
}

// --- Expressions ---

func (in *Interpreter) evaluate(expr ast.Expr) (Value, error) {
	switch e := expr.(type) {
	case *ast.NumberLiteral:
		return Number{Value: e.Value}, nil
	case *ast.StringLiteral:
		return String{Value: e.Value}, nil
	case *ast.BoolLiteral:
		return Bool{Value: e.Value}, nil
	case *ast.NilLiteral:
		return Nil{}, nil
	case *ast.GroupingExpr:
		return in.evaluate(e.Expr)
	case *ast.UnaryExpr:
		return in.evalUnary(e)
	case *ast.BinaryExpr:
		return in.evalBinary(e)
	case *ast.LogicalExpr:
		return in.evalLogical(e)
	case *ast.VariableExpr:
		return in.lookUpVariable(e.Name, e, e.Span)
	case *ast.AssignExpr:
		return in.evalAssign(e)
	case *ast.CallExpr:
		return in.evalCall(e)
	case *ast.GetExpr:
		return in.evalGet(e)
	case *ast.SetExpr:
		return in.evalSet(e)
	case *ast.ThisExpr:
		return in.lookUpVariable("this", e, e.Span)
	case *ast.SuperExpr:
		return in.evalSuper(e)
	}
	return nil, fmt.Errorf("unknown expression type: %s", expr.Kind())
}

// lookUpVariable reads a resolved local at its fixed distance, or a global
// by name.
func (in *Interpreter) lookUpVariable(name string, expr ast.Expr, span ast.Span) (Value, error) {
	if distance, ok := in.locals[expr]; ok {
		return in.env.GetAt(distance, name), nil
	}
	return in.globals.Get(name, span)
}

func (in *Interpreter) evalAssign(e *ast.AssignExpr) (Value, error) {
	val, err := in.evaluate(e.Value)
	if err != nil {
		return nil, err
	}
	if distance, ok := in.locals[e]; ok {
		in.env.AssignAt(distance, e.Name, val)
		return val, nil
	}
	if err := in.globals.Assign(e.Name, val, e.Span); err != nil {
		return nil, err
	}
	return val, nil
}

func (in *Interpreter) evalUnary(e *ast.UnaryExpr) (Value, error) {
	operand, err := in.evaluate(e.Operand)
	if err != nil {
		return nil, err
	}
	switch e.Op {
	case ast.OpNeg:
		n, ok := operand.(Number)
		if !ok {
			return nil, newRuntimeError(diagnostics.EOperand, "Operand must be a number.", e.Span)
		}
		return Number{Value: -n.Value}, nil
	case ast.OpNot:
		return Bool{Value: !Truthy(operand)}, nil
	}
	return nil, fmt.Errorf("unknown unary operator: %s", e.Op)
}

func (in *Interpreter) evalBinary(e *ast.BinaryExpr) (Value, error) {
	left, err := in.evaluate(e.Left)
	if err != nil {
		return nil, err
	}
	right, err := in.evaluate(e.Right)
	if err != nil {
		return nil, err
	}

	switch e.Op {
	case ast.OpEqEq:
		return Bool{Value: Equal(left, right)}, nil
	case ast.OpNotEq:
		return Bool{Value: !Equal(left, right)}, nil
	case ast.OpAdd:
		if l, ok := left.(Number); ok {
			if r, ok := right.(Number); ok {
				return Number{Value: l.Value + r.Value}, nil
			}
		}
		if l, ok := left.(String); ok {
			if r, ok := right.(String); ok {
				return String{Value: l.Value + r.Value}, nil
			}
		}
		return nil, newRuntimeError(diagnostics.EOperand, "Operands must be two numbers or two strings.", e.Span)
	}

	l, lok := left.(Number)
	r, rok := right.(Number)
	if !lok || !rok {
		return nil, newRuntimeError(diagnostics.EOperand, "Operands must be numbers.", e.Span)
	}

	switch e.Op {
	case ast.OpSub:
		return Number{Value: l.Value - r.Value}, nil
	case ast.OpMul:
		return Number{Value: l.Value * r.Value}, nil
	case ast.OpDiv:
		// IEEE-754: division by zero yields an infinity or NaN.
		return Number{Value: l.Value / r.Value}, nil
	case ast.OpGt:
		return Bool{Value: l.Value > r.Value}, nil
	case ast.OpGtEq:
		return Bool{Value: l.Value >= r.Value}, nil
	case ast.OpLt:
		return Bool{Value: l.Value < r.Value}, nil
	case ast.OpLtEq:
		return Bool{Value: l.Value <= r.Value}, nil
	}
	return nil, fmt.Errorf("unknown binary operator: %s", e.Op)
}

func (in *Interpreter) evalLogical(e *ast.LogicalExpr) (Value, error) {
	left, err := in.evaluate(e.Left)
	if err != nil {
		return nil, err
	}
	if e.Op == ast.OpOr {
		if Truthy(left) {
			return left, nil
		}
	} else if !Truthy(left) {
		return left, nil
	}
	return in.evaluate(e.Right)
}

func (in *Interpreter) evalCall(e *ast.CallExpr) (Value, error) {
	callee, err := in.evaluate(e.Callee)
	if err != nil {
		return nil, err
	}

	args := make([]Value, 0, len(e.Args))
	for _, argExpr := range e.Args {
		arg, err := in.evaluate(argExpr)
		if err != nil {
			return nil, err
		}
		args = append(args, arg)
	}

	fn, ok := callee.(Callable)
	if !ok {
		return nil, newRuntimeError(diagnostics.ENotCallable, "Can only call functions and classes.", e.Span)
	}
	if len(args) != fn.Arity() {
		return nil, newRuntimeError(diagnostics.EArity,
			fmt.Sprintf("Expected %d arguments but got %d.", fn.Arity(), len(args)), e.Span)
	}

	return in.call(fn, args, e.Span)
}

// call invokes fn with the depth limit, cancellation and tracing applied.
func (in *Interpreter) call(fn Callable, args []Value, span ast.Span) (Value, error) {
	if err := in.checkCancelled(span); err != nil {
		return nil, err
	}
	if in.depth >= in.maxDepth {
		return nil, newRuntimeError(diagnostics.EStackOverflow, "Stack overflow.", span)
	}

	name := calleeName(fn)
	in.emit(TraceCallStart, span, map[string]string{"callee": name})

	in.depth++
	val, err := fn.Call(in, args)
	in.depth--

	if err != nil {
		var rerr *RuntimeError
		if _, native := fn.(*Native); native && !errors.As(err, &rerr) {
			err = newRuntimeError(diagnostics.ENative, err.Error(), span)
		}
		in.emit(TraceCallEnd, span, map[string]string{"callee": name, "error": err.Error()})
		return nil, err
	}

	in.emit(TraceCallEnd, span, map[string]string{"callee": name, "result": TypeName(val)})
	return val, nil
}

func (in *Interpreter) evalGet(e *ast.GetExpr) (Value, error) {
	obj, err := in.evaluate(e.Object)
	if err != nil {
		return nil, err
	}
	inst, ok := obj.(*Instance)
	if !ok {
		return nil, newRuntimeError(diagnostics.ENotInstance, "Only instances have properties.", e.Span)
	}
	return inst.Get(e.Name, e.Span)
}

func (in *Interpreter) evalSet(e *ast.SetExpr) (Value, error) {
	obj, err := in.evaluate(e.Object)
	if err != nil {
		return nil, err
	}
	inst, ok := obj.(*Instance)
	if !ok {
		return nil, newRuntimeError(diagnostics.ENotInstance, "Only instances have fields.", e.Span)
	}
	val, err := in.evaluate(e.Value)
	if err != nil {
		return nil, err
	}
	inst.Set(e.Name, val)
	return val, nil
}

// evalSuper looks the method up starting at the superclass captured when
// the class was declared, then binds it to the current receiver, which
// lives one scope inside the super scope.
func (in *Interpreter) evalSuper(e *ast.SuperExpr) (Value, error) {
	distance, ok := in.locals[e]
	if !ok {
		return nil, fmt.Errorf("unresolved 'super' at line %d", e.Span.StartLine)
	}
	superclass, _ := in.env.GetAt(distance, "super").(*Class)
	receiver, _ := in.env.GetAt(distance-1, "this").(*Instance)
	if superclass == nil || receiver == nil {
		return nil, fmt.Errorf("malformed 'super' scope at line %d", e.Span.StartLine)
	}

	method := superclass.FindMethod(e.Method)
	if method == nil {
		return nil, undefinedProperty(e.Method, e.MethodSpan)
	}
	return method.Bind(receiver), nil
}
