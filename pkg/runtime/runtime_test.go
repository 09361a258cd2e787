package runtime_test

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"strings"
	"testing"

	"github.com/thomasrohde/golox/pkg/config"
	"github.com/thomasrohde/golox/pkg/diagnostics"
	"github.com/thomasrohde/golox/pkg/interpreter"
	"github.com/thomasrohde/golox/pkg/runtime"
)

func newRuntime(out *bytes.Buffer, opts ...runtime.Option) *runtime.Runtime {
	return runtime.New(append([]runtime.Option{runtime.WithOutput(out)}, opts...)...)
}

func diagError(t *testing.T, err error) *runtime.DiagnosticError {
	t.Helper()
	var derr *runtime.DiagnosticError
	if !errors.As(err, &derr) {
		t.Fatalf("expected *DiagnosticError, got %v", err)
	}
	return derr
}

func TestRun(t *testing.T) {
	var out bytes.Buffer
	err := newRuntime(&out).Run(context.Background(), `
class Greeter {
  init(name) { this.name = name; }
  greet() { return "hi " + this.name; }
}
print Greeter("lox").greet();
`, "hello.lox")
	if err != nil {
		t.Fatal(err)
	}
	if out.String() != "hi lox\n" {
		t.Errorf("got %q", out.String())
	}
}

func TestRunExitCodes(t *testing.T) {
	tests := []struct {
		name string
		src  string
		code int
	}{
		{"ok", "print 1;", runtime.ExitOK},
		{"parse error", "print ;", runtime.ExitStatic},
		{"lex error", "print @;", runtime.ExitStatic},
		{"resolve error", "return 1;", runtime.ExitStatic},
		{"runtime error", "print -\"a\";", runtime.ExitRuntime},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var out bytes.Buffer
			err := newRuntime(&out).Run(context.Background(), tt.src, "t.lox")
			if got := runtime.ExitCode(err); got != tt.code {
				t.Errorf("exit code = %d, want %d (err %v)", got, tt.code, err)
			}
		})
	}
	if runtime.ExitCode(errors.New("other")) != runtime.ExitRuntime {
		t.Error("plain errors should map to the runtime exit code")
	}
}

func TestStaticErrorsPreventExecution(t *testing.T) {
	var out bytes.Buffer
	err := newRuntime(&out).Run(context.Background(), "print 1;\nfun f() { return; }\nprint this;", "t.lox")
	derr := diagError(t, err)
	if !derr.Static() || len(derr.Diagnostics) != 1 {
		t.Fatalf("got %v", derr.Diagnostics)
	}
	if derr.Diagnostics[0].Code != diagnostics.EThisOutsideClass {
		t.Errorf("got %s", derr.Diagnostics[0].Code)
	}
	if out.Len() != 0 {
		t.Errorf("nothing should run, got %q", out.String())
	}
}

func TestRuntimeErrorKeepsEarlierOutput(t *testing.T) {
	var out bytes.Buffer
	err := newRuntime(&out).Run(context.Background(), "print 1;\nprint undefined;\nprint 2;", "t.lox")
	derr := diagError(t, err)
	if derr.Static() {
		t.Error("runtime error reported as static")
	}
	d := derr.Diagnostics[0]
	if d.Code != diagnostics.EUndefinedVar || d.Line() != 2 {
		t.Errorf("got %+v", d)
	}
	if got := diagnostics.FormatDiagnostic(d, diagnostics.StyleLox); got != "Undefined variable 'undefined'.\n[line 2]" {
		t.Errorf("got %q", got)
	}
	if out.String() != "1\n" {
		t.Errorf("got %q", out.String())
	}
}

func TestSessionPersistsGlobals(t *testing.T) {
	var out bytes.Buffer
	s := newRuntime(&out).NewSession()
	ctx := context.Background()

	inputs := []struct {
		src     string
		wantErr bool
	}{
		{"var a = 1;", false},
		{"fun inc() { a = a + 1; return a; }", false},
		{"print inc();", false},
		{"print ;", true},
		{"print nope;", true},
		{"print inc();", false},
	}
	for _, in := range inputs {
		err := s.Exec(ctx, in.src, "<repl>")
		if (err != nil) != in.wantErr {
			t.Fatalf("%q: err = %v", in.src, err)
		}
	}
	if out.String() != "2\n3\n" {
		t.Errorf("got %q", out.String())
	}
}

func TestCheck(t *testing.T) {
	rt := runtime.New()
	if diags := rt.Check("var a = 1; print a;", "t.lox"); len(diags) != 0 {
		t.Errorf("unexpected diagnostics: %v", diags)
	}
	diags := rt.Check("{ var a = 1; var a = 2; }\nclass A < A {}", "t.lox")
	if len(diags) != 2 {
		t.Fatalf("expected 2 diagnostics, got %v", diags)
	}
	if diags[0].Code != diagnostics.EDupLocal || diags[1].Code != diagnostics.ESelfInherit {
		t.Errorf("got %s, %s", diags[0].Code, diags[1].Code)
	}
	// Runtime errors are not found by Check.
	if diags := rt.Check("print -nil;", "t.lox"); len(diags) != 0 {
		t.Errorf("got %v", diags)
	}
}

func TestFormat(t *testing.T) {
	rt := runtime.New()
	got, err := rt.Format("var  a=1 ;", "t.lox")
	if err != nil {
		t.Fatal(err)
	}
	if got != "var a = 1;\n" {
		t.Errorf("got %q", got)
	}
	if _, err := rt.Format("var", "t.lox"); err == nil {
		t.Error("expected parse error")
	}
}

func TestIncomplete(t *testing.T) {
	tests := []struct {
		src  string
		want bool
	}{
		{"print 1;", false},
		{"fun f() {", true},
		{"print (1 +", true},
		{"print \"open", true},
		{"print ;", false},
		{"print 1", true},
		{"print @ {", false},
	}
	for _, tt := range tests {
		if got := runtime.Incomplete(tt.src); got != tt.want {
			t.Errorf("Incomplete(%q) = %v, want %v", tt.src, got, tt.want)
		}
	}
}

func TestNativesFromConfig(t *testing.T) {
	cfg := config.Default()
	cfg.Natives.Deny = []string{"clock"}
	natives, err := runtime.NativesFromConfig(cfg)
	if err != nil {
		t.Fatal(err)
	}

	var out bytes.Buffer
	err = newRuntime(&out, runtime.WithNatives(natives...)).Run(context.Background(), "print clock;", "t.lox")
	if d := diagError(t, err).Diagnostics[0]; d.Code != diagnostics.EUndefinedVar {
		t.Errorf("clock should be undefined, got %+v", d)
	}

	cfg.Natives.Allow = []string{"missing"}
	if _, err := runtime.NativesFromConfig(cfg); err == nil {
		t.Error("expected error for unknown native")
	}
}

func TestTraceAndLogging(t *testing.T) {
	var out, logs bytes.Buffer
	var events []interpreter.TraceEventType
	logger := slog.New(slog.NewTextHandler(&logs, &slog.HandlerOptions{Level: slog.LevelDebug}))
	rt := newRuntime(&out,
		runtime.WithLogger(logger),
		runtime.WithRunID("r1"),
		runtime.WithTrace(func(ev interpreter.TraceEvent) {
			if ev.RunID != "r1" {
				t.Errorf("run id %q", ev.RunID)
			}
			events = append(events, ev.Event)
		}),
	)
	if err := rt.Run(context.Background(), "fun f() {} f();", "t.lox"); err != nil {
		t.Fatal(err)
	}
	if len(events) != 4 || events[0] != interpreter.TraceRunStart || events[3] != interpreter.TraceRunEnd {
		t.Errorf("got events %v", events)
	}
	for _, phase := range []string{"msg=parsed", "msg=resolved", `msg="run finished"`} {
		if !strings.Contains(logs.String(), phase) {
			t.Errorf("log missing %s:\n%s", phase, logs.String())
		}
	}
}

func TestMaxDepthAndCancellation(t *testing.T) {
	var out bytes.Buffer
	rt := newRuntime(&out, runtime.WithMaxDepth(50))
	err := rt.Run(context.Background(), "fun f() { f(); } f();", "t.lox")
	if d := diagError(t, err).Diagnostics[0]; d.Code != diagnostics.EStackOverflow {
		t.Errorf("got %+v", d)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err = rt.Run(ctx, "while (true) {}", "t.lox")
	if d := diagError(t, err).Diagnostics[0]; d.Code != diagnostics.ECancelled {
		t.Errorf("got %+v", d)
	}
}
