// Package config resolves the launcher's settings from flags and environment variables.
//
// Precedence is flag, then environment variable, then the built-in default.
// The defaults reproduce the launcher's original fixed deployment: node running
// a single server script.
package config

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
	flag "github.com/spf13/pflag"
)

// Exported constants.
const (
	DefaultInterpreter = "node"
	DefaultName        = "Node.js"
	DefaultLogLevel    = slog.LevelWarn

	EnvInterpreter  = "INTERPRETER_CMD"
	EnvScript       = "SCRIPT_PATH"
	EnvName         = "SERVER_NAME"
	EnvStopOnSignal = "STOP_ON_SIGNAL"
	EnvLogLevel     = "LOG_LEVEL"
	EnvNoColor      = "NO_COLOR"
)

// Exported variables.
var (
	ErrAmbiguousScript = errors.New("script pattern matches more than one file")
	ErrInvalidBool     = errors.New("invalid boolean")
	ErrNoScriptMatch   = errors.New("script pattern matches no files")
	ErrUnknownLogLevel = errors.New("unknown log level")
)

// Config holds everything the launcher needs to run.
type Config struct {
	Interpreter  string
	Script       string
	ScriptArgs   []string
	Name         string
	StopOnSignal bool
	NoColor      bool
	LogLevel     slog.Level
}

// Parse builds a Config from command-line arguments (without the program name)
// and an environment lookup. Usage and parse errors are written to out.
// It returns flag.ErrHelp when help was requested.
func Parse(args []string, getenv func(string) string, out io.Writer) (Config, error) {
	if getenv == nil {
		getenv = func(string) string { return "" }
	}

	stopDefault, err := envBool(getenv, EnvStopOnSignal)
	if err != nil {
		return Config{}, err
	}

	var (
		cfg      Config
		logLevel string
	)

	flags := flag.NewFlagSet("serverlaunch", flag.ContinueOnError)
	flags.SetOutput(out)
	flags.SortFlags = false
	flags.StringVarP(&cfg.Interpreter, "interpreter", "i", envOr(getenv, EnvInterpreter, DefaultInterpreter),
		"Interpreter executable (overrides "+EnvInterpreter+")")
	flags.StringVarP(&cfg.Script, "script", "s", envOr(getenv, EnvScript, DefaultScript),
		"Server script path or glob pattern (overrides "+EnvScript+")")
	flags.StringVar(&cfg.Name, "name", envOr(getenv, EnvName, DefaultName),
		"Server name shown in status lines (overrides "+EnvName+")")
	flags.BoolVar(&cfg.StopOnSignal, "stop-on-signal", stopDefault,
		"Also stop the server on SIGINT/SIGTERM (overrides "+EnvStopOnSignal+")")
	flags.StringVar(&logLevel, "log-level", envOr(getenv, EnvLogLevel, DefaultLogLevel.String()),
		"Diagnostic log level: debug, info, warn, error (overrides "+EnvLogLevel+")")
	flags.BoolVar(&cfg.NoColor, "no-color", getenv(EnvNoColor) != "",
		"Disable styled status lines (set by "+EnvNoColor+")")

	flags.Usage = func() {
		_, _ = fmt.Fprintf(out, `serverlaunch - start a server script, stop it on ENTER

Usage:
  serverlaunch [flags] [-- script-args...]

Flags:
`)
		flags.PrintDefaults()
	}

	err = flags.Parse(args)
	if err != nil {
		return Config{}, fmt.Errorf("parsing flags: %w", err)
	}

	cfg.ScriptArgs = flags.Args()

	cfg.LogLevel, err = ParseLevel(logLevel)
	if err != nil {
		return Config{}, err
	}

	cfg.Script, err = ResolveScript(cfg.Script)
	if err != nil {
		return Config{}, err
	}

	return cfg, nil
}

// ParseLevel parses a slog level name, case-insensitively.
func ParseLevel(value string) (slog.Level, error) {
	var level slog.Level

	err := level.UnmarshalText([]byte(strings.TrimSpace(value)))
	if err != nil {
		return 0, fmt.Errorf("%w: %q", ErrUnknownLogLevel, value)
	}

	return level, nil
}

// ResolveScript returns the absolute script path. A path containing glob
// metacharacters is expanded and must match exactly one file.
func ResolveScript(path string) (string, error) {
	if !isPattern(path) {
		return absPath(path)
	}

	matches, err := doublestar.FilepathGlob(path, doublestar.WithFilesOnly())
	if err != nil {
		return "", fmt.Errorf("matching script pattern %q: %w", path, err)
	}

	switch len(matches) {
	case 0:
		return "", fmt.Errorf("%w: %q", ErrNoScriptMatch, path)
	case 1:
		return absPath(matches[0])
	default:
		return "", fmt.Errorf("%w: %q matches %s", ErrAmbiguousScript, path, strings.Join(matches, ", "))
	}
}

func absPath(path string) (string, error) {
	// Windows volume paths are kept as written; elsewhere they would be
	// mistaken for relative names.
	if filepath.IsAbs(path) || filepath.VolumeName(path) != "" || isWindowsDrivePath(path) {
		return path, nil
	}

	abs, err := filepath.Abs(path)
	if err != nil {
		return "", fmt.Errorf("resolving script path %q: %w", path, err)
	}

	return abs, nil
}

func envBool(getenv func(string) string, key string) (bool, error) {
	value := getenv(key)
	if value == "" {
		return false, nil
	}

	parsed, err := strconv.ParseBool(value)
	if err != nil {
		return false, fmt.Errorf("%w in %s: %q", ErrInvalidBool, key, value)
	}

	return parsed, nil
}

func envOr(getenv func(string) string, key, fallback string) string {
	if value := getenv(key); value != "" {
		return value
	}

	return fallback
}

func isPattern(path string) bool {
	return strings.ContainsAny(path, "*?[{")
}

// isWindowsDrivePath reports whether path looks like C:\... or C:/...
func isWindowsDrivePath(path string) bool {
	if len(path) < 3 || path[1] != ':' || (path[2] != '\\' && path[2] != '/') {
		return false
	}

	c := path[0]

	return ('a' <= c && c <= 'z') || ('A' <= c && c <= 'Z')
}
