package diagnostics_test

import (
	"strings"
	"testing"

	"github.com/thomasrohde/golox/pkg/ast"
	"github.com/thomasrohde/golox/pkg/diagnostics"
)

func TestMakeDiag(t *testing.T) {
	span := &ast.Span{File: "test.lox", StartLine: 1, StartCol: 1, EndLine: 1, EndCol: 5}
	d := diagnostics.MakeDiag(diagnostics.EParse, diagnostics.StageParse, "Expect expression.", span, diagnostics.AtEnd)

	if d.Code != diagnostics.EParse {
		t.Errorf("got Code = %q, want %q", d.Code, diagnostics.EParse)
	}
	if d.Line() != 1 {
		t.Errorf("got Line() = %d, want 1", d.Line())
	}
}

func TestFormatStaticLoxStyle(t *testing.T) {
	span := &ast.Span{File: "test.lox", StartLine: 3, StartCol: 5}
	d := diagnostics.MakeDiag(diagnostics.EOwnInitializer, diagnostics.StageResolve,
		"Can't read local variable in its own initializer.", span, diagnostics.AtLexeme("a"))

	got := diagnostics.FormatDiagnostic(d, diagnostics.StyleLox)
	want := "[line 3] Error at 'a': Can't read local variable in its own initializer."
	if got != want {
		t.Errorf("got %q, want %q", got, want)
	}
}

func TestFormatRuntimeLoxStyle(t *testing.T) {
	span := &ast.Span{File: "test.lox", StartLine: 7, StartCol: 1}
	d := diagnostics.MakeDiag(diagnostics.EOperand, diagnostics.StageRuntime, "Operand must be a number.", span, "")

	got := diagnostics.FormatDiagnostic(d, diagnostics.StyleLox)
	if got != "Operand must be a number.\n[line 7]" {
		t.Errorf("got %q", got)
	}
}

func TestFormatDiagnosticPretty(t *testing.T) {
	span := &ast.Span{File: "test.lox", StartLine: 3, StartCol: 5}
	d := diagnostics.MakeDiag(diagnostics.EUndefinedVar, diagnostics.StageRuntime, "Undefined variable 'x'.", span, "")
	d.Hint = "declare it with 'var'"

	out := diagnostics.FormatDiagnostic(d, diagnostics.StylePretty)
	if !strings.Contains(out, "error[E_UNDEFINED_VAR]") {
		t.Errorf("expected error code in output, got: %s", out)
	}
	if !strings.Contains(out, "test.lox:3:5") {
		t.Errorf("expected location in output, got: %s", out)
	}
	if !strings.Contains(out, "hint:") {
		t.Errorf("expected hint in output, got: %s", out)
	}
}

func TestFormatDiagnosticJSON(t *testing.T) {
	d := diagnostics.MakeDiag(diagnostics.ELex, diagnostics.StageLex, "Unexpected character.", nil, "")
	out := diagnostics.FormatDiagnostic(d, diagnostics.StyleJSON)
	if !strings.Contains(out, `"code":"E_LEX"`) {
		t.Errorf("expected JSON code in output, got: %s", out)
	}
	if !strings.Contains(out, `"stage":"lex"`) {
		t.Errorf("expected JSON stage in output, got: %s", out)
	}
}

func TestCollector(t *testing.T) {
	var c diagnostics.Collector
	if c.HasErrors() {
		t.Fatal("empty collector reports errors")
	}
	var r diagnostics.Reporter = &c
	r.Report(diagnostics.MakeDiag(diagnostics.EParse, diagnostics.StageParse, "one", nil, ""))
	r.Report(diagnostics.MakeDiag(diagnostics.EParse, diagnostics.StageParse, "two", nil, ""))
	if len(c.Diags) != 2 || c.Diags[1].Message != "two" {
		t.Errorf("collector lost ordering: %+v", c.Diags)
	}
}

func TestParseStyle(t *testing.T) {
	for _, s := range []string{"", "lox", "pretty", "json"} {
		if _, err := diagnostics.ParseStyle(s); err != nil {
			t.Errorf("ParseStyle(%q): unexpected error %v", s, err)
		}
	}
	if _, err := diagnostics.ParseStyle("xml"); err == nil {
		t.Error("expected error for unknown style")
	}
}
