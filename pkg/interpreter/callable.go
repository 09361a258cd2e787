package interpreter

import (
	"fmt"

	"github.com/thomasrohde/golox/pkg/ast"
	"github.com/thomasrohde/golox/pkg/diagnostics"
)

// Callable is implemented by every value that can appear as a callee.
type Callable interface {
	Value
	// Arity is the exact number of arguments Call accepts.
	Arity() int
	// Call runs the callable. The caller has already checked the arity.
	Call(in *Interpreter, args []Value) (Value, error)
}

// --- Function ---

// Function is a user-declared function or method closed over the
// environment active at its declaration.
type Function struct {
	decl          *ast.FunctionStmt
	closure       *Environment
	isInitializer bool
}

// NewFunction creates a function value for decl.
func NewFunction(decl *ast.FunctionStmt, closure *Environment, isInitializer bool) *Function {
	return &Function{decl: decl, closure: closure, isInitializer: isInitializer}
}

// Name returns the declared name.
func (f *Function) Name() string {
	return f.decl.Name
}

// Arity returns the declared parameter count.
func (f *Function) Arity() int {
	return len(f.decl.Params)
}

// Bind returns a copy of f whose closure has this bound to instance.
// Every call returns a new Function.
func (f *Function) Bind(instance *Instance) *Function {
	env := NewEnvironment(f.closure)
	env.Define("this", instance)
	return &Function{decl: f.decl, closure: env, isInitializer: f.isInitializer}
}

// Call binds the parameters in a fresh scope under the closure and runs the
// body. Initializers always yield the bound receiver.
func (f *Function) Call(in *Interpreter, args []Value) (Value, error) {
	env := NewEnvironment(f.closure)
	for i, p := range f.decl.Params {
		env.Define(p.Name, args[i])
	}

	res, err := in.executeBlock(f.decl.Body, env)
	if err != nil {
		return nil, err
	}

	if f.isInitializer {
		return f.closure.GetAt(0, "this"), nil
	}
	if res.returned {
		return res.value, nil
	}
	return Nil{}, nil
}

// --- Class ---

// Class is a Lox class. Calling it constructs an instance.
type Class struct {
	Name       string
	Superclass *Class
	Methods    map[string]*Function
}

// NewClass creates a class value. superclass may be nil.
func NewClass(name string, superclass *Class, methods map[string]*Function) *Class {
	return &Class{Name: name, Superclass: superclass, Methods: methods}
}

// FindMethod searches this class and then each superclass in turn.
func (c *Class) FindMethod(name string) *Function {
	for cls := c; cls != nil; cls = cls.Superclass {
		if m, ok := cls.Methods[name]; ok {
			return m
		}
	}
	return nil
}

// Arity is the arity of init, or 0 when no class in the chain defines one.
func (c *Class) Arity() int {
	if init := c.FindMethod("init"); init != nil {
		return init.Arity()
	}
	return 0
}

// Call allocates an instance and runs the initializer on it, if any.
func (c *Class) Call(in *Interpreter, args []Value) (Value, error) {
	instance := NewInstance(c)
	if init := c.FindMethod("init"); init != nil {
		if _, err := init.Bind(instance).Call(in, args); err != nil {
			return nil, err
		}
	}
	return instance, nil
}

// --- Instance ---

// Instance is an object of some class. Fields are created on first
// assignment; there is no declared field list.
type Instance struct {
	Class  *Class
	fields map[string]Value
}

// NewInstance creates an instance with no fields.
func NewInstance(class *Class) *Instance {
	return &Instance{Class: class, fields: make(map[string]Value)}
}

// Get returns the field name if set, otherwise the method name bound to
// this instance.
func (i *Instance) Get(name string, span ast.Span) (Value, error) {
	if val, ok := i.fields[name]; ok {
		return val, nil
	}
	if method := i.Class.FindMethod(name); method != nil {
		return method.Bind(i), nil
	}
	return nil, undefinedProperty(name, span)
}

// Set creates or overwrites field name.
func (i *Instance) Set(name string, val Value) {
	i.fields[name] = val
}

// Field returns a field without consulting methods.
func (i *Instance) Field(name string) (Value, bool) {
	val, ok := i.fields[name]
	return val, ok
}

func undefinedProperty(name string, span ast.Span) *RuntimeError {
	return newRuntimeError(diagnostics.EUndefinedProp, fmt.Sprintf("Undefined property '%s'.", name), span)
}

// --- Native ---

// Native is a builtin function implemented in Go.
type Native struct {
	Name   string
	Params int
	Fn     func(args []Value) (Value, error)
}

// Arity returns the fixed parameter count.
func (n *Native) Arity() int {
	return n.Params
}

// Call invokes the Go implementation.
func (n *Native) Call(_ *Interpreter, args []Value) (Value, error) {
	return n.Fn(args)
}
