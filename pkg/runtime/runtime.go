// Package runtime provides the top-level Lox runtime orchestrator.
package runtime

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/thomasrohde/golox/pkg/config"
	"github.com/thomasrohde/golox/pkg/diagnostics"
	"github.com/thomasrohde/golox/pkg/formatter"
	"github.com/thomasrohde/golox/pkg/interpreter"
	"github.com/thomasrohde/golox/pkg/parser"
	"github.com/thomasrohde/golox/pkg/resolver"
	"github.com/thomasrohde/golox/pkg/stdlib"
)

// Process exit codes.
const (
	ExitOK      = 0
	ExitUsage   = 64
	ExitStatic  = 65
	ExitRuntime = 70
	ExitIO      = 74
)

// Runtime wires together all Lox components for program execution.
type Runtime struct {
	natives  []*interpreter.Native
	out      io.Writer
	logger   *slog.Logger
	runID    string
	trace    func(event interpreter.TraceEvent)
	maxDepth int
}

// Option is a functional option for configuring the Runtime.
type Option func(*Runtime)

// WithNatives replaces the native functions defined in every session.
func WithNatives(natives ...*interpreter.Native) Option {
	return func(rt *Runtime) {
		rt.natives = natives
	}
}

// WithOutput sets the writer print statements go to.
func WithOutput(w io.Writer) Option {
	return func(rt *Runtime) {
		rt.out = w
	}
}

// WithLogger sets the logger used for phase logging.
func WithLogger(l *slog.Logger) Option {
	return func(rt *Runtime) {
		rt.logger = l
	}
}

// WithRunID sets the run ID for trace events.
func WithRunID(id string) Option {
	return func(rt *Runtime) {
		rt.runID = id
	}
}

// WithTrace sets the trace callback.
func WithTrace(fn func(event interpreter.TraceEvent)) Option {
	return func(rt *Runtime) {
		rt.trace = fn
	}
}

// WithMaxDepth bounds nested calls.
func WithMaxDepth(n int) Option {
	return func(rt *Runtime) {
		rt.maxDepth = n
	}
}

// New creates a new Runtime with the given options.
// By default every registered native is defined and output goes to stdout.
func New(opts ...Option) *Runtime {
	rt := &Runtime{
		natives:  stdlib.Default().Natives(),
		out:      os.Stdout,
		logger:   slog.Default(),
		runID:    "cli",
		maxDepth: interpreter.DefaultMaxDepth,
	}
	for _, opt := range opts {
		opt(rt)
	}
	return rt
}

// NativesFromConfig selects natives from the default registry using the
// configuration's allow and deny lists.
func NativesFromConfig(cfg *config.Config) ([]*interpreter.Native, error) {
	return stdlib.Default().Select(cfg.Natives.Allow, cfg.Natives.Deny)
}

// Run parses, resolves, and executes a Lox program in a fresh session.
func (rt *Runtime) Run(ctx context.Context, source, filename string) error {
	return rt.NewSession().Exec(ctx, source, filename)
}

// Check parses and resolves a Lox program without executing it.
func (rt *Runtime) Check(source, filename string) []diagnostics.Diagnostic {
	program, diags := parser.Parse(source, filename)
	if len(diags) > 0 {
		return diags
	}
	_, rDiags := resolver.Program(program)
	return rDiags
}

// Format parses and formats a Lox program.
func (rt *Runtime) Format(source, filename string) (string, error) {
	program, diags := parser.Parse(source, filename)
	if len(diags) > 0 {
		return "", &DiagnosticError{Diagnostics: diags}
	}
	return formatter.Format(program), nil
}

// Session is one interpreter whose globals persist across Exec calls. The
// REPL runs every input line through a single Session.
type Session struct {
	rt     *Runtime
	interp *interpreter.Interpreter
}

// NewSession creates a session with the runtime's natives defined.
func (rt *Runtime) NewSession() *Session {
	interp := interpreter.New(
		interpreter.WithOutput(rt.out),
		interpreter.WithTrace(rt.trace),
		interpreter.WithRunID(rt.runID),
		interpreter.WithMaxDepth(rt.maxDepth),
		interpreter.WithNatives(rt.natives...),
	)
	return &Session{rt: rt, interp: interp}
}

// Exec runs source in the session. Static errors skip the whole input;
// a runtime error stops it. Either is returned as a *DiagnosticError.
func (s *Session) Exec(ctx context.Context, source, filename string) error {
	log := s.rt.logger.With("file", filename)

	var c diagnostics.Collector
	program := parser.ParseWith(source, filename, &c)
	log.Debug("parsed", "statements", len(program.Statements), "errors", len(c.Diags))
	if c.HasErrors() {
		return &DiagnosticError{Diagnostics: c.Diags}
	}

	resolver.Resolve(program.Statements, s.interp, &c)
	log.Debug("resolved", "errors", len(c.Diags))
	if c.HasErrors() {
		return &DiagnosticError{Diagnostics: c.Diags}
	}

	err := s.interp.Interpret(ctx, program.Statements)
	var rerr *interpreter.RuntimeError
	if errors.As(err, &rerr) {
		log.Debug("run failed", "code", rerr.Code, "line", rerr.Span.StartLine)
		return &DiagnosticError{Diagnostics: []diagnostics.Diagnostic{rerr.Diagnostic()}}
	}
	if err != nil {
		return fmt.Errorf("runtime: %w", err)
	}
	log.Debug("run finished")
	return nil
}

// Incomplete reports whether source fails to parse only because input ended
// too early, such as an unclosed block or string.
func Incomplete(source string) bool {
	_, diags := parser.Parse(source, "<repl>")
	if len(diags) == 0 {
		return false
	}
	for _, d := range diags {
		atEnd := d.Where == diagnostics.AtEnd ||
			(d.Code == diagnostics.ELex && d.Message == "Unterminated string.")
		if !atEnd {
			return false
		}
	}
	return true
}

// ExitCode maps an error returned by Run or Exec to a process exit code.
func ExitCode(err error) int {
	if err == nil {
		return ExitOK
	}
	var derr *DiagnosticError
	if errors.As(err, &derr) && derr.Static() {
		return ExitStatic
	}
	return ExitRuntime
}

// DiagnosticError wraps diagnostics as an error.
type DiagnosticError struct {
	Diagnostics []diagnostics.Diagnostic
}

func (e *DiagnosticError) Error() string {
	msgs := make([]string, len(e.Diagnostics))
	for i, d := range e.Diagnostics {
		msgs[i] = fmt.Sprintf("%s: %s", d.Code, d.Message)
	}
	return strings.Join(msgs, "; ")
}

// Static reports whether the error came from a static pass.
func (e *DiagnosticError) Static() bool {
	for _, d := range e.Diagnostics {
		if d.Stage.Static() {
			return true
		}
	}
	return false
}
