// Package sh provides the process spawn and forced-termination primitives used by the launcher.
package sh

import (
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"strconv"
	"strings"
	"sync"
	"syscall"
)

// Exported variables.
var (
	ErrEmptyInterpreter = errors.New("interpreter cannot be empty")
	ErrProcessExited    = errors.New("process already exited")
)

// Child is the handle to a spawned server process.
// It is owned by a single caller; Kill is the only way to release it.
type Child struct {
	cmd  *exec.Cmd
	done chan struct{}

	mu      sync.Mutex
	stopped bool
	killErr error
}

// Exited reports whether the child has exited on its own or been killed.
func (c *Child) Exited() bool {
	select {
	case <-c.done:
		return true
	default:
		return false
	}
}

// Kill forcibly terminates the child and releases its handle.
// Only the first call acts; later calls return the first call's result.
// Killing a child that already exited returns an error wrapping ErrProcessExited.
func (c *Child) Kill() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.stopped {
		return c.killErr
	}

	c.stopped = true

	if c.Exited() {
		c.killErr = fmt.Errorf("killing process %d: %w", c.PID(), ErrProcessExited)
	} else {
		c.killErr = terminate(c.cmd.Process)
	}

	<-c.done

	return c.killErr
}

// PID returns the OS process identifier.
func (c *Child) PID() int {
	return c.cmd.Process.Pid
}

// ProcessState returns the exit state once the child has exited, nil before.
func (c *Child) ProcessState() *os.ProcessState {
	if !c.Exited() {
		return nil
	}

	return c.cmd.ProcessState
}

// wait reaps the child as soon as it exits so Exited is accurate and the OS
// handle is released. The exit status is kept in cmd.ProcessState.
func (c *Child) wait() {
	defer close(c.done)

	_ = c.cmd.Wait()
}

// CommandLine is an interpreter invocation of a single script.
type CommandLine struct {
	Interpreter string
	Script      string
	Args        []string
}

// Argv returns the arguments passed to the interpreter.
func (c CommandLine) Argv() []string {
	argv := make([]string, 0, 1+len(c.Args))
	argv = append(argv, c.Script)

	return append(argv, c.Args...)
}

// String renders the command line with the script path always quoted.
func (c CommandLine) String() string {
	var b strings.Builder

	b.WriteString(QuoteArg(c.Interpreter))
	b.WriteString(" ")
	b.WriteString(strconv.Quote(c.Script))

	for _, arg := range c.Args {
		b.WriteString(" ")
		b.WriteString(QuoteArg(arg))
	}

	return b.String()
}

// ProcessEnv provides the process execution environment for dependency injection.
type ProcessEnv struct {
	ExecCommand func(string, ...string) *exec.Cmd
	LookPath    func(string) (string, error)
	IsWindows   func() bool
	Stdout      io.Writer
	Stderr      io.Writer
}

// DefaultProcessEnv returns the standard OS implementations.
// The child shares the launcher's stdout and stderr.
func DefaultProcessEnv() *ProcessEnv {
	return &ProcessEnv{
		ExecCommand: exec.Command,
		LookPath:    exec.LookPath,
		IsWindows:   func() bool { return runtime.GOOS == "windows" },
		Stdout:      os.Stdout,
		Stderr:      os.Stderr,
	}
}

// SpawnError reports that the OS refused to create the child process.
type SpawnError struct {
	Command string
	Code    int
	Err     error
}

func (e *SpawnError) Error() string {
	return fmt.Sprintf("starting %s: %v (code %d)", e.Command, e.Err, e.Code)
}

func (e *SpawnError) Unwrap() error {
	return e.Err
}

// FormatCommand formats a command with proper quoting for display.
func FormatCommand(name string, args []string) string {
	parts := make([]string, 0, 1+len(args))

	parts = append(parts, QuoteArg(name))
	for _, arg := range args {
		parts = append(parts, QuoteArg(arg))
	}

	return strings.Join(parts, " ")
}

// QuoteArg quotes an argument for display.
func QuoteArg(value string) string {
	if value == "" {
		return `""`
	}

	if strings.ContainsAny(value, " \t\n\"") {
		return strconv.Quote(value)
	}

	return value
}

// ResolveInterpreter finds the interpreter executable, adding the Windows
// executable suffix to bare names first.
func ResolveInterpreter(env *ProcessEnv, name string) (string, error) {
	if env == nil {
		env = DefaultProcessEnv()
	}

	if name == "" {
		return "", ErrEmptyInterpreter
	}

	name = WithExeSuffix(env, name)

	path, err := env.LookPath(name)
	if err != nil {
		return "", fmt.Errorf("resolving interpreter %q: %w", name, err)
	}

	return path, nil
}

// Start spawns the command line as a child process.
// It returns either a running child or a *SpawnError, never both.
func Start(env *ProcessEnv, line CommandLine) (*Child, error) {
	if env == nil {
		env = DefaultProcessEnv()
	}

	path, err := ResolveInterpreter(env, line.Interpreter)
	if err != nil {
		return nil, &SpawnError{Command: line.String(), Code: spawnCode(err), Err: err}
	}

	cmd := env.ExecCommand(path, line.Argv()...)
	cmd.Stdout = env.Stdout
	cmd.Stderr = env.Stderr
	// The launcher owns the console read; the child gets the null device.
	cmd.Stdin = nil
	SetProcGroup(cmd)

	err = cmd.Start()
	if err != nil {
		return nil, &SpawnError{Command: line.String(), Code: spawnCode(err), Err: err}
	}

	child := &Child{cmd: cmd, done: make(chan struct{})}

	go child.wait()

	return child, nil
}

// WithExeSuffix appends ".exe" on Windows when the name has no extension.
func WithExeSuffix(env *ProcessEnv, name string) string {
	if env == nil {
		env = DefaultProcessEnv()
	}

	if !env.IsWindows() || filepath.Ext(name) != "" {
		return name
	}

	return name + ".exe"
}

// spawnCode extracts the OS error number from a spawn failure. It is never zero.
func spawnCode(err error) int {
	var errno syscall.Errno
	if errors.As(err, &errno) && errno != 0 {
		return int(errno)
	}

	if errors.Is(err, exec.ErrNotFound) || errors.Is(err, ErrEmptyInterpreter) {
		return notFoundCode
	}

	return 1
}
