package interpreter

import (
	"fmt"

	"github.com/thomasrohde/golox/pkg/ast"
	"github.com/thomasrohde/golox/pkg/diagnostics"
)

// Environment is one lexical scope: a name-to-value map chained to its
// enclosing scope. The global environment has no enclosing scope.
type Environment struct {
	values    map[string]Value
	enclosing *Environment
}

// NewEnvironment creates a scope whose parent is enclosing, which may be nil.
func NewEnvironment(enclosing *Environment) *Environment {
	return &Environment{
		values:    make(map[string]Value),
		enclosing: enclosing,
	}
}

// Enclosing returns the parent scope, or nil for the global scope.
func (e *Environment) Enclosing() *Environment {
	return e.enclosing
}

// Define binds name in this scope, overwriting any existing binding.
func (e *Environment) Define(name string, val Value) {
	e.values[name] = val
}

// Get looks name up in this scope and then each enclosing scope.
func (e *Environment) Get(name string, span ast.Span) (Value, error) {
	for env := e; env != nil; env = env.enclosing {
		if val, ok := env.values[name]; ok {
			return val, nil
		}
	}
	return nil, undefinedVariable(name, span)
}

// Assign updates the innermost existing binding of name. It never creates
// a binding.
func (e *Environment) Assign(name string, val Value, span ast.Span) error {
	for env := e; env != nil; env = env.enclosing {
		if _, ok := env.values[name]; ok {
			env.values[name] = val
			return nil
		}
	}
	return undefinedVariable(name, span)
}

// Ancestor follows the parent chain exactly distance times. Distances come
// from the resolver, so running off the chain is a bug.
func (e *Environment) Ancestor(distance int) *Environment {
	env := e
	for i := 0; i < distance; i++ {
		env = env.enclosing
	}
	return env
}

// GetAt reads name directly from the scope distance hops away.
func (e *Environment) GetAt(distance int, name string) Value {
	return e.Ancestor(distance).values[name]
}

// AssignAt writes name directly into the scope distance hops away.
func (e *Environment) AssignAt(distance int, name string, val Value) {
	e.Ancestor(distance).values[name] = val
}

func undefinedVariable(name string, span ast.Span) *RuntimeError {
	return newRuntimeError(diagnostics.EUndefinedVar, fmt.Sprintf("Undefined variable '%s'.", name), span)
}
