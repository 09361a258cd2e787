package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"path/filepath"
	"strings"
	"testing"

	"github.com/thomasrohde/golox/internal/testutil"
	"github.com/thomasrohde/golox/pkg/diagnostics"
	"github.com/thomasrohde/golox/pkg/runtime"
)

// outcome is what the lox CLI would have written and returned.
type outcome struct {
	stdout   string
	stderr   string
	exitCode int
	diags    []diagnostics.Diagnostic
}

func TestConformance(t *testing.T) {
	dirs, err := testutil.ListScenarios(testutil.ScenariosDir)
	if err != nil {
		t.Fatalf("failed to list scenarios: %v", err)
	}
	if len(dirs) == 0 {
		t.Fatal("no scenarios found")
	}

	for _, dir := range dirs {
		dir := dir
		t.Run(filepath.Base(dir), func(t *testing.T) {
			scenario, err := testutil.LoadScenario(dir)
			if err != nil {
				t.Fatalf("failed to load scenario: %v", err)
			}

			source, filename, err := testutil.ReadProgramFile(dir, scenario.Cmd)
			if err != nil {
				t.Fatalf("failed to read program file: %v", err)
			}

			style := diagnostics.StyleLox
			if scenario.HasFlag("--pretty") {
				style = diagnostics.StylePretty
			}
			if scenario.HasFlag("--json") {
				style = diagnostics.StyleJSON
			}

			var got outcome
			switch scenario.Command() {
			case "run":
				got = runScenario(source, filename, style)
			case "check":
				got = checkScenario(source, filename, style)
			case "fmt":
				got = fmtScenario(source, filename, style)
			default:
				t.Skipf("unsupported command: %s", scenario.Command())
			}
			checkExpectations(t, got, scenario)
		})
	}
}

func runScenario(source, filename string, style diagnostics.Style) outcome {
	var stdout bytes.Buffer
	rt := runtime.New(runtime.WithOutput(&stdout), runtime.WithRunID("test"))
	err := rt.Run(context.Background(), source, filename)
	out := outcome{stdout: stdout.String(), exitCode: runtime.ExitCode(err)}
	if err != nil {
		out.diags, out.stderr = renderError(err, style)
	}
	return out
}

func checkScenario(source, filename string, style diagnostics.Style) outcome {
	diags := runtime.New().Check(source, filename)
	if len(diags) > 0 {
		return outcome{
			stderr:   diagnostics.FormatDiagnostics(diags, style) + "\n",
			exitCode: runtime.ExitStatic,
			diags:    diags,
		}
	}
	switch style {
	case diagnostics.StyleJSON:
		return outcome{stdout: "[]\n"}
	case diagnostics.StylePretty:
		return outcome{stdout: "No errors found.\n"}
	}
	return outcome{}
}

func fmtScenario(source, filename string, style diagnostics.Style) outcome {
	formatted, err := runtime.New().Format(source, filename)
	if err != nil {
		out := outcome{exitCode: runtime.ExitCode(err)}
		out.diags, out.stderr = renderError(err, style)
		return out
	}
	return outcome{stdout: formatted}
}

func renderError(err error, style diagnostics.Style) ([]diagnostics.Diagnostic, string) {
	var derr *runtime.DiagnosticError
	if errors.As(err, &derr) {
		return derr.Diagnostics, diagnostics.FormatDiagnostics(derr.Diagnostics, style) + "\n"
	}
	return nil, err.Error() + "\n"
}

func checkExpectations(t *testing.T, got outcome, scenario *testutil.Scenario) {
	t.Helper()
	want := scenario.Expect

	if got.exitCode != want.ExitCode {
		t.Errorf("exit code: got %d, want %d (stderr: %s)", got.exitCode, want.ExitCode, got.stderr)
	}
	if want.StdoutText != nil && got.stdout != *want.StdoutText {
		t.Errorf("stdout:\n  got:  %q\n  want: %q", got.stdout, *want.StdoutText)
	}
	if want.StdoutContains != "" && !strings.Contains(got.stdout, want.StdoutContains) {
		t.Errorf("stdout should contain %q, got: %q", want.StdoutContains, got.stdout)
	}
	if want.StderrText != nil && got.stderr != *want.StderrText {
		t.Errorf("stderr:\n  got:  %q\n  want: %q", got.stderr, *want.StderrText)
	}
	for _, sub := range want.StderrContains {
		if !strings.Contains(got.stderr, sub) {
			t.Errorf("stderr should contain %q, got: %q", sub, got.stderr)
		}
	}
	if want.StderrJSONSubset != nil {
		checkDiagSubset(t, got.diags, want.StderrJSONSubset)
	}
}

func checkDiagSubset(t *testing.T, diags []diagnostics.Diagnostic, subset json.RawMessage) {
	t.Helper()

	var expected []map[string]any
	if err := json.Unmarshal(subset, &expected); err != nil {
		t.Fatalf("failed to parse expected stderr JSON subset: %v", err)
	}

	diagsJSON, _ := json.Marshal(diags)
	var actual []map[string]any
	if err := json.Unmarshal(diagsJSON, &actual); err != nil {
		t.Fatalf("failed to parse actual diagnostics: %v", err)
	}

	for _, e := range expected {
		found := false
		for _, a := range actual {
			if testutil.IsSubset(e, a) {
				found = true
				break
			}
		}
		if !found {
			t.Errorf("stderr JSON subset not found: %v", e)
		}
	}
}
