// Command lox is the Lox interpreter CLI entry point.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strings"

	"github.com/peterh/liner"

	"github.com/thomasrohde/golox/pkg/config"
	"github.com/thomasrohde/golox/pkg/diagnostics"
	"github.com/thomasrohde/golox/pkg/formatter"
	"github.com/thomasrohde/golox/pkg/interpreter"
	"github.com/thomasrohde/golox/pkg/runtime"
)

const usage = `usage: lox [command] [options]
commands:
  run <file> [--trace] [--trace-out <path>] [--pretty|--json]
  repl
  check <file> [--pretty|--json]
  fmt <file> [--write]
  trace <file.jsonl> [--json|--text]
  config
lox <file> runs a script; lox with no arguments starts the REPL.`

const promptCont = "... "

func main() {
	os.Exit(run(os.Args[1:]))
}

func run(args []string) int {
	if len(args) == 0 {
		return cmdRepl(nil)
	}

	switch args[0] {
	case "run":
		return cmdRun(args[1:])
	case "repl":
		return cmdRepl(args[1:])
	case "check":
		return cmdCheck(args[1:])
	case "fmt":
		return cmdFmt(args[1:])
	case "trace":
		return cmdTrace(args[1:])
	case "config":
		return cmdConfig(args[1:])
	case "help", "--help", "-h":
		fmt.Println(usage)
		return runtime.ExitOK
	}
	if !strings.HasPrefix(args[0], "-") {
		return cmdRun(args)
	}
	fmt.Fprintf(os.Stderr, "Unknown command: %s\n%s\n", args[0], usage)
	return runtime.ExitUsage
}

// setup loads the configuration for the working directory and installs the
// default logger. It returns a non-zero exit code on failure.
func setup() (*config.Config, int) {
	cwd, err := os.Getwd()
	if err != nil {
		cwd = "."
	}
	cfg, err := config.Load(cwd)
	if err != nil {
		hostError(diagnostics.EConfig, err.Error(), diagnostics.StylePretty)
		return nil, runtime.ExitUsage
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: cfg.Level()})))
	if cfg.Path != "" {
		slog.Debug("loaded config", "path", cfg.Path)
	}
	return cfg, runtime.ExitOK
}

// newRuntime builds a runtime with the configured natives.
func newRuntime(cfg *config.Config, opts ...runtime.Option) (*runtime.Runtime, int) {
	natives, err := runtime.NativesFromConfig(cfg)
	if err != nil {
		hostError(diagnostics.EConfig, err.Error(), cfg.Style())
		return nil, runtime.ExitUsage
	}
	opts = append([]runtime.Option{
		runtime.WithNatives(natives...),
		runtime.WithLogger(slog.Default()),
		runtime.WithMaxDepth(cfg.MaxDepth),
	}, opts...)
	return runtime.New(opts...), runtime.ExitOK
}

// styleFlag applies --pretty and --json overrides to the configured style.
func styleFlag(style diagnostics.Style, arg string) (diagnostics.Style, bool) {
	switch arg {
	case "--pretty":
		return diagnostics.StylePretty, true
	case "--json":
		return diagnostics.StyleJSON, true
	}
	return style, false
}

// hostError reports a failure outside any Lox program. Only the json style
// renders it as a diagnostic; the others print a plain line.
func hostError(code, msg string, style diagnostics.Style) {
	if style == diagnostics.StyleJSON {
		diag := diagnostics.MakeDiag(code, diagnostics.StageRuntime, msg, nil, "")
		fmt.Fprintln(os.Stderr, diagnostics.FormatDiagnostic(diag, style))
		return
	}
	fmt.Fprintf(os.Stderr, "lox: %s\n", msg)
}

func reportError(err error, style diagnostics.Style) int {
	var derr *runtime.DiagnosticError
	if errors.As(err, &derr) {
		fmt.Fprintln(os.Stderr, diagnostics.FormatDiagnostics(derr.Diagnostics, style))
	} else {
		fmt.Fprintln(os.Stderr, err.Error())
	}
	return runtime.ExitCode(err)
}

func cmdRun(args []string) int {
	cfg, code := setup()
	if code != 0 {
		return code
	}

	var file, traceOut string
	style := cfg.Style()
	traceEnabled := cfg.Trace

	for i := 0; i < len(args); i++ {
		if s, ok := styleFlag(style, args[i]); ok {
			style = s
			continue
		}
		switch args[i] {
		case "--trace":
			traceEnabled = true
		case "--trace-out":
			if i+1 < len(args) {
				i++
				traceOut = args[i]
				traceEnabled = true
			}
		default:
			if args[i] == "-" || !strings.HasPrefix(args[i], "-") {
				file = args[i]
			}
		}
	}

	if file == "" {
		fmt.Fprintln(os.Stderr, "usage: lox run <file> [--trace] [--trace-out <path>] [--pretty|--json]")
		return runtime.ExitUsage
	}

	source, filename, code := readSource(file, style)
	if code != 0 {
		return code
	}

	var opts []runtime.Option
	if traceEnabled {
		var w io.Writer = os.Stderr
		if traceOut != "" {
			f, err := os.Create(traceOut)
			if err != nil {
				hostError(diagnostics.EIO, fmt.Sprintf("cannot write trace: %s", traceOut), style)
				return runtime.ExitIO
			}
			defer f.Close()
			w = f
		}
		enc := json.NewEncoder(w)
		opts = append(opts, runtime.WithTrace(func(ev interpreter.TraceEvent) {
			_ = enc.Encode(ev)
		}))
	}

	rt, code := newRuntime(cfg, opts...)
	if code != 0 {
		return code
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := rt.Run(ctx, source, filename); err != nil {
		return reportError(err, style)
	}
	return runtime.ExitOK
}

func cmdRepl(_ []string) int {
	cfg, code := setup()
	if code != 0 {
		return code
	}
	rt, code := newRuntime(cfg)
	if code != 0 {
		return code
	}
	session := rt.NewSession()

	ln := liner.NewLiner()
	defer ln.Close()
	ln.SetCtrlCAborts(true)

	if histPath := cfg.HistoryPath(); histPath != "" {
		if f, err := os.Open(histPath); err == nil {
			_, _ = ln.ReadHistory(f)
			_ = f.Close()
		}
		defer func() {
			f, err := os.Create(histPath)
			if err != nil {
				slog.Warn("cannot write history", "path", histPath, "err", err)
				return
			}
			_, _ = ln.WriteHistory(f)
			_ = f.Close()
		}()
	}

	for {
		src, ok := readByParseProbe(ln, cfg.REPL.Prompt, promptCont)
		if !ok {
			fmt.Println()
			break
		}
		if strings.TrimSpace(src) == "" {
			continue
		}
		ln.AppendHistory(strings.ReplaceAll(src, "\n", " "))

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
		if err := session.Exec(ctx, src, "<repl>"); err != nil {
			reportError(err, cfg.Style())
		}
		stop()
	}
	return runtime.ExitOK
}

// readByParseProbe reads lines until they form input the parser does not
// consider cut short. It returns false at end of input.
func readByParseProbe(ln *liner.State, prompt, cont string) (string, bool) {
	var b strings.Builder

	for {
		p := prompt
		if b.Len() > 0 {
			p = cont
		}
		line, err := ln.Prompt(p)
		if errors.Is(err, io.EOF) {
			return "", false
		}
		if err != nil {
			// Ctrl-C drops the pending input.
			return "", true
		}

		if b.Len() > 0 {
			b.WriteByte('\n')
		}
		b.WriteString(line)

		src := b.String()
		if !runtime.Incomplete(src) {
			return src, true
		}
	}
}

func cmdCheck(args []string) int {
	cfg, code := setup()
	if code != 0 {
		return code
	}

	var file string
	style := cfg.Style()
	for _, arg := range args {
		if s, ok := styleFlag(style, arg); ok {
			style = s
			continue
		}
		if arg == "-" || !strings.HasPrefix(arg, "-") {
			file = arg
		}
	}

	if file == "" {
		fmt.Fprintln(os.Stderr, "usage: lox check <file> [--pretty|--json]")
		return runtime.ExitUsage
	}

	source, filename, code := readSource(file, style)
	if code != 0 {
		return code
	}

	diags := runtime.New().Check(source, filename)
	if len(diags) > 0 {
		fmt.Fprintln(os.Stderr, diagnostics.FormatDiagnostics(diags, style))
		return runtime.ExitStatic
	}

	switch style {
	case diagnostics.StyleJSON:
		fmt.Println("[]")
	case diagnostics.StylePretty:
		fmt.Println("No errors found.")
	}
	return runtime.ExitOK
}

func cmdFmt(args []string) int {
	cfg, code := setup()
	if code != 0 {
		return code
	}

	var file string
	write := false
	for _, arg := range args {
		switch arg {
		case "--write":
			write = true
		default:
			if arg == "-" || !strings.HasPrefix(arg, "-") {
				file = arg
			}
		}
	}

	if file == "" {
		fmt.Fprintln(os.Stderr, "usage: lox fmt <file> [--write]")
		return runtime.ExitUsage
	}
	if write && file == "-" {
		fmt.Fprintln(os.Stderr, "lox fmt: --write needs a file")
		return runtime.ExitUsage
	}

	source, filename, code := readSource(file, cfg.Style())
	if code != 0 {
		return code
	}

	formatted, err := runtime.New().Format(source, filename)
	if err != nil {
		return reportError(err, cfg.Style())
	}

	if formatter.HasComments(source) {
		fmt.Fprintln(os.Stderr, "warning: comments are not preserved by the formatter")
	}

	if write {
		if err := os.WriteFile(file, []byte(formatted), 0o644); err != nil {
			fmt.Fprintf(os.Stderr, "error writing file: %s\n", err)
			return runtime.ExitIO
		}
		return runtime.ExitOK
	}
	fmt.Print(formatted)
	return runtime.ExitOK
}

func cmdTrace(args []string) int {
	var file string
	textOutput := false

	for _, arg := range args {
		switch arg {
		case "--json":
			textOutput = false
		case "--text":
			textOutput = true
		default:
			if !strings.HasPrefix(arg, "-") {
				file = arg
			}
		}
	}

	if file == "" {
		fmt.Fprintln(os.Stderr, "usage: lox trace <file.jsonl> [--json|--text]")
		return runtime.ExitUsage
	}

	f, err := os.Open(file)
	if err != nil {
		hostError(diagnostics.EIO, fmt.Sprintf("cannot read file: %s", file), diagnostics.StylePretty)
		return runtime.ExitIO
	}
	defer f.Close()

	summary, err := computeTraceSummary(f)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error reading trace: %s\n", err)
		return runtime.ExitIO
	}

	if textOutput {
		printTraceSummaryText(os.Stdout, summary)
		return runtime.ExitOK
	}
	b, _ := json.Marshal(summary)
	fmt.Println(string(b))
	return runtime.ExitOK
}

func cmdConfig(_ []string) int {
	cfg, code := setup()
	if code != 0 {
		return code
	}
	out, err := cfg.Marshal()
	if err != nil {
		fmt.Fprintf(os.Stderr, "error rendering config: %s\n", err)
		return runtime.ExitUsage
	}
	if cfg.Path != "" {
		fmt.Printf("# %s\n", cfg.Path)
	} else {
		fmt.Println("# built-in defaults")
	}
	fmt.Print(string(out))
	return runtime.ExitOK
}

func readSource(file string, style diagnostics.Style) (string, string, int) {
	if file == "-" {
		data, err := io.ReadAll(os.Stdin)
		if err != nil {
			fmt.Fprintf(os.Stderr, "error reading stdin: %s\n", err)
			return "", "", runtime.ExitIO
		}
		return string(data), "<stdin>", 0
	}

	source, err := os.ReadFile(file)
	if err != nil {
		hostError(diagnostics.EIO, fmt.Sprintf("cannot read file: %s", file), style)
		return "", "", runtime.ExitIO
	}
	return string(source), file, 0
}
