package main

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/thomasrohde/golox/pkg/interpreter"
	"github.com/thomasrohde/golox/pkg/runtime"
)

func writeScript(t *testing.T, src string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "main.lox")
	if err := os.WriteFile(path, []byte(src), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestRunExitCodes(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	tests := []struct {
		name string
		args func(t *testing.T) []string
		want int
	}{
		{"no file", func(*testing.T) []string { return []string{"run"} }, runtime.ExitUsage},
		{"unknown flag command", func(*testing.T) []string { return []string{"--bogus"} }, runtime.ExitUsage},
		{"missing file", func(t *testing.T) []string {
			return []string{"run", filepath.Join(t.TempDir(), "nope.lox")}
		}, runtime.ExitIO},
		{"bare script", func(t *testing.T) []string { return []string{writeScript(t, "var a = 1;")} }, runtime.ExitOK},
		{"static error", func(t *testing.T) []string { return []string{"run", writeScript(t, "var;")} }, runtime.ExitStatic},
		{"runtime error", func(t *testing.T) []string { return []string{"run", writeScript(t, "nil();")} }, runtime.ExitRuntime},
		{"check ok", func(t *testing.T) []string { return []string{"check", writeScript(t, "var a;")} }, runtime.ExitOK},
		{"check error", func(t *testing.T) []string {
			return []string{"check", writeScript(t, "fun f() { return; } return;")}
		}, runtime.ExitStatic},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := run(tt.args(t)); got != tt.want {
				t.Errorf("exit code = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestFmtWrite(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	path := writeScript(t, "fun f(a,b){return a+b;}")
	if code := run([]string{"fmt", path, "--write"}); code != runtime.ExitOK {
		t.Fatalf("exit code %d", code)
	}
	got, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if string(got) != "fun f(a, b) {\n  return a + b;\n}\n" {
		t.Errorf("got %q", got)
	}
}

func TestRunWritesTraceFile(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	script := writeScript(t, "class A {} fun f() {} f(); f();")
	out := filepath.Join(t.TempDir(), "trace.jsonl")
	if code := run([]string{"run", script, "--trace-out", out}); code != runtime.ExitOK {
		t.Fatalf("exit code %d", code)
	}
	f, err := os.Open(out)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	summary, err := computeTraceSummary(f)
	if err != nil {
		t.Fatal(err)
	}
	if summary.Calls != 2 || summary.CallsByName["f"] != 2 {
		t.Errorf("got %+v", summary)
	}
	if len(summary.ClassesDefined) != 1 || summary.ClassesDefined[0] != "A" {
		t.Errorf("got classes %v", summary.ClassesDefined)
	}
}

func TestComputeTraceSummary(t *testing.T) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	rt := runtime.New(
		runtime.WithOutput(&bytes.Buffer{}),
		runtime.WithRunID("t1"),
		runtime.WithTrace(func(ev interpreter.TraceEvent) { _ = enc.Encode(ev) }),
	)
	err := rt.Run(context.Background(), `
fun ok() { return 1; }
fun bad() { return -"x"; }
ok();
bad();
`, "t.lox")
	if err == nil {
		t.Fatal("expected runtime error")
	}
	buf.WriteString("not json\n\n")

	summary, err := computeTraceSummary(&buf)
	if err != nil {
		t.Fatal(err)
	}
	if summary.RunID != "t1" {
		t.Errorf("run id %q", summary.RunID)
	}
	// run_start, 2x call_start, 2x call_end, run_end
	if summary.TotalEvents != 6 {
		t.Errorf("events = %d", summary.TotalEvents)
	}
	if summary.Calls != 2 || summary.CallErrors != 1 {
		t.Errorf("calls = %d, errors = %d", summary.Calls, summary.CallErrors)
	}
	if summary.Error != "Operand must be a number." {
		t.Errorf("error %q", summary.Error)
	}
	if summary.StartTime == "" || summary.EndTime == "" {
		t.Error("missing timestamps")
	}

	var text bytes.Buffer
	printTraceSummaryText(&text, summary)
	for _, want := range []string{"Run: t1", "Calls: 2 (1 failed)", "  bad: 1", "  ok: 1", "Error: Operand must be a number."} {
		if !strings.Contains(text.String(), want) {
			t.Errorf("text summary missing %q:\n%s", want, text.String())
		}
	}
}
