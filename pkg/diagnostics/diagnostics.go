// Package diagnostics defines Lox diagnostic types for lex, parse, resolve and runtime errors.
package diagnostics

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/thomasrohde/golox/pkg/ast"
)

// Diagnostic code constants.
const (
	ELex   = "E_LEX"
	EParse = "E_PARSE"

	ESelfInherit       = "E_SELF_INHERIT"
	EDupLocal          = "E_DUP_LOCAL"
	EOwnInitializer    = "E_OWN_INITIALIZER"
	EReturnTopLevel    = "E_RETURN_TOP_LEVEL"
	EReturnInit        = "E_RETURN_INIT"
	EThisOutsideClass  = "E_THIS_OUTSIDE_CLASS"
	ESuperOutsideClass = "E_SUPER_OUTSIDE_CLASS"
	ESuperNoSuperclass = "E_SUPER_NO_SUPERCLASS"

	EUndefinedVar  = "E_UNDEFINED_VAR"
	EUndefinedProp = "E_UNDEFINED_PROP"
	EOperand       = "E_OPERAND"
	ENotCallable   = "E_NOT_CALLABLE"
	EArity         = "E_ARITY"
	ENotInstance   = "E_NOT_INSTANCE"
	ESuperclass    = "E_SUPERCLASS"
	EStackOverflow = "E_STACK_OVERFLOW"
	ENative        = "E_NATIVE"
	ECancelled     = "E_CANCELLED"

	EIO     = "E_IO"
	EConfig = "E_CONFIG"
)

// Stage identifies which pass produced a diagnostic.
type Stage string

const (
	StageLex     Stage = "lex"
	StageParse   Stage = "parse"
	StageResolve Stage = "resolve"
	StageRuntime Stage = "runtime"
)

// Static reports whether diagnostics of this stage prevent execution.
func (s Stage) Static() bool {
	return s != StageRuntime
}

// Diagnostic represents a lex, parse, resolve, or runtime diagnostic.
type Diagnostic struct {
	Code    string    `json:"code"`
	Stage   Stage     `json:"stage"`
	Message string    `json:"message"`
	Span    *ast.Span `json:"span,omitempty"`
	// Where locates the offending token: "" , " at end" or " at 'x'".
	Where string `json:"where,omitempty"`
	Hint  string `json:"hint,omitempty"`
}

// MakeDiag creates a new Diagnostic.
func MakeDiag(code string, stage Stage, message string, span *ast.Span, where string) Diagnostic {
	return Diagnostic{
		Code:    code,
		Stage:   stage,
		Message: message,
		Span:    span,
		Where:   where,
	}
}

// AtLexeme builds the locator for a token with the given lexeme.
func AtLexeme(lexeme string) string {
	return fmt.Sprintf(" at '%s'", lexeme)
}

// AtEnd is the locator used for errors at end of input.
const AtEnd = " at end"

// Line returns the diagnostic's start line, or 0 when it has no span.
func (d Diagnostic) Line() int {
	if d.Span == nil {
		return 0
	}
	return d.Span.StartLine
}

// Reporter receives every user-visible diagnostic from the static passes.
type Reporter interface {
	Report(d Diagnostic)
}

// Collector is a Reporter that accumulates diagnostics in order.
type Collector struct {
	Diags []Diagnostic
}

// Report appends d.
func (c *Collector) Report(d Diagnostic) {
	c.Diags = append(c.Diags, d)
}

// HasErrors reports whether anything was collected.
func (c *Collector) HasErrors() bool {
	return len(c.Diags) > 0
}

// Style selects how diagnostics are rendered.
type Style string

const (
	StyleLox    Style = "lox"
	StylePretty Style = "pretty"
	StyleJSON   Style = "json"
)

// ParseStyle validates a style name.
func ParseStyle(s string) (Style, error) {
	switch Style(s) {
	case StyleLox, StylePretty, StyleJSON:
		return Style(s), nil
	case "":
		return StyleLox, nil
	}
	return "", fmt.Errorf("unknown diagnostics style %q (want lox, pretty or json)", s)
}

// FormatDiagnostic formats a single diagnostic for display.
func FormatDiagnostic(d Diagnostic, style Style) string {
	switch style {
	case StyleJSON:
		b, _ := json.Marshal(d)
		return string(b)
	case StylePretty:
		loc := "<unknown>"
		if d.Span != nil {
			loc = fmt.Sprintf("%s:%d:%d", d.Span.File, d.Span.StartLine, d.Span.StartCol)
		}
		out := fmt.Sprintf("error[%s]: %s\n  --> %s", d.Code, d.Message, loc)
		if d.Hint != "" {
			out += fmt.Sprintf("\n  hint: %s", d.Hint)
		}
		return out
	default:
		if d.Stage == StageRuntime {
			return fmt.Sprintf("%s\n[line %d]", d.Message, d.Line())
		}
		return fmt.Sprintf("[line %d] Error%s: %s", d.Line(), d.Where, d.Message)
	}
}

// FormatDiagnostics formats a slice of diagnostics for display.
func FormatDiagnostics(diags []Diagnostic, style Style) string {
	if style == StyleJSON {
		b, _ := json.Marshal(diags)
		return string(b)
	}
	sep := "\n"
	if style == StylePretty {
		sep = "\n\n"
	}
	parts := make([]string, len(diags))
	for i, d := range diags {
		parts[i] = FormatDiagnostic(d, style)
	}
	return strings.Join(parts, sep)
}
