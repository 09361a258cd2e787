// Package config loads Lox tool configuration from YAML files.
package config

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/thomasrohde/golox/pkg/diagnostics"
	"github.com/thomasrohde/golox/pkg/interpreter"
)

// ProjectFile is looked up in the project directory first.
const ProjectFile = ".lox.yml"

// Config is the effective tool configuration.
type Config struct {
	// Path is the file the configuration was read from; empty for defaults.
	Path string `yaml:"-"`

	Diagnostics string  `yaml:"diagnostics"`
	REPL        REPL    `yaml:"repl"`
	Natives     Natives `yaml:"natives"`
	Trace       bool    `yaml:"trace"`
	LogLevel    string  `yaml:"log_level"`
	// MaxDepth bounds nested calls before "Stack overflow." is raised.
	MaxDepth    int     `yaml:"max_depth"`
}

// REPL configures the interactive prompt.
type REPL struct {
	Prompt string `yaml:"prompt"`
	// History is the line history file; empty disables history.
	History string `yaml:"history"`
}

// Natives selects which native functions are defined. An empty Allow means
// every registered native; Deny overrides Allow.
type Natives struct {
	Allow []string `yaml:"allow,omitempty"`
	Deny  []string `yaml:"deny,omitempty"`
}

// ValidationError aggregates configuration validation failures.
type ValidationError struct {
	Path   string
	Issues []string
}

func (e *ValidationError) Error() string {
	if len(e.Issues) == 0 {
		return "config: invalid configuration"
	}
	var b strings.Builder
	b.WriteString("config validation failed")
	if e.Path != "" {
		b.WriteString(" (")
		b.WriteString(e.Path)
		b.WriteString(")")
	}
	b.WriteString(":")
	for _, issue := range e.Issues {
		b.WriteString("\n- ")
		b.WriteString(issue)
	}
	return b.String()
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Diagnostics: string(diagnostics.StyleLox),
		REPL: REPL{
			Prompt:  "> ",
			History: "~/.lox_history",
		},
		LogLevel: "warn",
		MaxDepth: interpreter.DefaultMaxDepth,
	}
}

// UserPath returns the per-user configuration file path.
func UserPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".lox", "config.yml"), nil
}

// Load resolves configuration with precedence project (.lox.yml in
// projectDir) → user (~/.lox/config.yml) → built-in defaults. The first
// file that exists wins; a file that exists but is invalid is an error.
func Load(projectDir string) (*Config, error) {
	cfg, err := LoadFile(filepath.Join(projectDir, ProjectFile))
	if err == nil || !errors.Is(err, fs.ErrNotExist) {
		return cfg, err
	}

	if userPath, herr := UserPath(); herr == nil {
		cfg, err := LoadFile(userPath)
		if err == nil || !errors.Is(err, fs.ErrNotExist) {
			return cfg, err
		}
	}

	return Default(), nil
}

// LoadFile reads one configuration file on top of the defaults. Unknown
// keys are rejected. A missing file yields an error wrapping fs.ErrNotExist.
func LoadFile(path string) (*Config, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("config: open %s: %w", path, err)
	}
	defer file.Close()

	cfg, err := Decode(file)
	if err != nil {
		var verr *ValidationError
		if errors.As(err, &verr) {
			verr.Path = path
			return nil, verr
		}
		return nil, fmt.Errorf("config: parse %s: %w", path, err)
	}
	cfg.Path = path
	return cfg, nil
}

// Decode reads YAML from r on top of the defaults and validates the result.
// An empty document yields the defaults.
func Decode(r io.Reader) (*Config, error) {
	decoder := yaml.NewDecoder(r)
	decoder.KnownFields(true)

	cfg := Default()
	if err := decoder.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks field values.
func (c *Config) Validate() error {
	var errs ValidationError
	if _, err := diagnostics.ParseStyle(c.Diagnostics); err != nil {
		errs.Issues = append(errs.Issues, fmt.Sprintf("diagnostics: %v", err))
	}
	if _, err := parseLevel(c.LogLevel); err != nil {
		errs.Issues = append(errs.Issues, fmt.Sprintf("log_level: %v", err))
	}
	if c.MaxDepth < 1 {
		errs.Issues = append(errs.Issues, fmt.Sprintf("max_depth must be at least 1, got %d", c.MaxDepth))
	}
	for i, name := range c.Natives.Allow {
		if name == "" {
			errs.Issues = append(errs.Issues, fmt.Sprintf("natives.allow[%d] must be a non-empty string", i))
		}
	}
	for i, name := range c.Natives.Deny {
		if name == "" {
			errs.Issues = append(errs.Issues, fmt.Sprintf("natives.deny[%d] must be a non-empty string", i))
		}
	}
	if len(errs.Issues) > 0 {
		return &errs
	}
	return nil
}

// Style returns the diagnostics output style.
func (c *Config) Style() diagnostics.Style {
	style, err := diagnostics.ParseStyle(c.Diagnostics)
	if err != nil {
		return diagnostics.StyleLox
	}
	return style
}

// Level returns the slog level for log_level.
func (c *Config) Level() slog.Level {
	level, err := parseLevel(c.LogLevel)
	if err != nil {
		return slog.LevelWarn
	}
	return level
}

func parseLevel(s string) (slog.Level, error) {
	var level slog.Level
	if s == "" {
		return slog.LevelWarn, nil
	}
	if err := level.UnmarshalText([]byte(s)); err != nil {
		return 0, fmt.Errorf("unknown level %q (want debug, info, warn or error)", s)
	}
	return level, nil
}

// HistoryPath returns the REPL history file with a leading ~ expanded, or
// "" when history is disabled.
func (c *Config) HistoryPath() string {
	path := c.REPL.History
	if path == "~" || strings.HasPrefix(path, "~/") {
		home, err := os.UserHomeDir()
		if err != nil {
			return ""
		}
		return filepath.Join(home, strings.TrimPrefix(path, "~"))
	}
	return path
}

// Marshal renders the configuration as YAML.
func (c *Config) Marshal() ([]byte, error) {
	return yaml.Marshal(c)
}
