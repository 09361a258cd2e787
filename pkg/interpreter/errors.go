package interpreter

import (
	"github.com/thomasrohde/golox/pkg/ast"
	"github.com/thomasrohde/golox/pkg/diagnostics"
)

// RuntimeError is a Lox runtime error bound to the offending source location.
type RuntimeError struct {
	Code    string
	Message string
	Span    ast.Span
}

func newRuntimeError(code, message string, span ast.Span) *RuntimeError {
	return &RuntimeError{Code: code, Message: message, Span: span}
}

func (e *RuntimeError) Error() string {
	return e.Message
}

// Diagnostic converts the error for reporting.
func (e *RuntimeError) Diagnostic() diagnostics.Diagnostic {
	span := e.Span
	return diagnostics.MakeDiag(e.Code, diagnostics.StageRuntime, e.Message, &span, "")
}
