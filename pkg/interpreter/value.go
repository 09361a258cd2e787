// Package interpreter implements the Lox tree-walking evaluator and its
// runtime object model.
package interpreter

import (
	"math"
	"strconv"
)

// Value is the interface for all Lox runtime values.
// The sealed marker method restricts implementations to this package.
type Value interface {
	loxValue() // sealed marker
}

// Nil is the nil value.
type Nil struct{}

func (Nil) loxValue() {}

// Bool is a boolean value.
type Bool struct {
	Value bool
}

func (Bool) loxValue() {}

// Number is a double-precision number. Lox has no integer type.
type Number struct {
	Value float64
}

func (Number) loxValue() {}

// String is an immutable string value.
type String struct {
	Value string
}

func (String) loxValue() {}

func (*Function) loxValue() {}
func (*Class) loxValue()    {}
func (*Instance) loxValue() {}
func (*Native) loxValue()   {}

// Truthy reports whether v counts as true in a boolean context.
// nil and false are falsy; every other value, including 0 and "", is truthy.
func Truthy(v Value) bool {
	switch val := v.(type) {
	case Nil:
		return false
	case Bool:
		return val.Value
	}
	return true
}

// Equal compares two values without coercion. Numbers compare like boxed
// doubles: NaN equals NaN and 0 does not equal -0. Functions, classes and
// instances compare by identity.
func Equal(a, b Value) bool {
	switch av := a.(type) {
	case Nil:
		_, ok := b.(Nil)
		return ok
	case Bool:
		bv, ok := b.(Bool)
		return ok && av.Value == bv.Value
	case Number:
		bv, ok := b.(Number)
		if !ok {
			return false
		}
		if math.IsNaN(av.Value) && math.IsNaN(bv.Value) {
			return true
		}
		return math.Float64bits(av.Value) == math.Float64bits(bv.Value)
	case String:
		bv, ok := b.(String)
		return ok && av.Value == bv.Value
	}
	return a == b
}

// Stringify renders v the way print displays it.
func Stringify(v Value) string {
	switch val := v.(type) {
	case nil, Nil:
		return "nil"
	case Bool:
		if val.Value {
			return "true"
		}
		return "false"
	case Number:
		return formatNumber(val.Value)
	case String:
		return val.Value
	case *Function:
		return "<fn " + val.Name() + ">"
	case *Native:
		return "<native fn>"
	case *Class:
		return val.Name
	case *Instance:
		return val.Class.Name + " instance"
	}
	return "<unknown>"
}

func formatNumber(n float64) string {
	switch {
	case math.IsNaN(n):
		return "NaN"
	case math.IsInf(n, 1):
		return "Infinity"
	case math.IsInf(n, -1):
		return "-Infinity"
	}
	return strconv.FormatFloat(n, 'f', -1, 64)
}

// TypeName returns a short name for v's dynamic type, used in traces.
func TypeName(v Value) string {
	switch v.(type) {
	case Nil:
		return "nil"
	case Bool:
		return "boolean"
	case Number:
		return "number"
	case String:
		return "string"
	case *Function, *Native:
		return "function"
	case *Class:
		return "class"
	case *Instance:
		return "instance"
	}
	return "unknown"
}
