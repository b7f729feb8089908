// Package launcher starts a server process, waits for a stop signal on stdin,
// then forcibly terminates the server.
//
// The sequence is linear: NotStarted, Starting, Running, Stopping, Stopped.
// A spawn failure ends in Failed instead. There is no supervision: a server
// that dies on its own is not restarted, and the launcher keeps waiting for
// input until the user asks it to stop.
package launcher

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/charmbracelet/lipgloss"

	"github.com/toejough/serverlaunch/internal/sh"
)

// Exported constants.
const (
	ExitOK           = 0
	ExitSpawnFailure = 1
)

// Launcher owns a single server child for its whole lifetime.
type Launcher struct {
	// Name is the server's display name in status lines.
	Name string

	Env    *sh.ProcessEnv
	In     io.Reader
	Out    io.Writer
	ErrOut io.Writer
	Logger *slog.Logger
	Styles Styles

	// Signals is an optional second wake source for WaitForStopSignal.
	// Nil means only console input stops the server.
	Signals <-chan os.Signal

	// Cleanup, when set, kills the child if the launcher is interrupted
	// while the child is running.
	Cleanup *sh.CleanupManager

	state State
}

// Run drives the whole sequence and returns the process exit code.
func (l *Launcher) Run(line sh.CommandLine) int {
	child, err := l.Start(line)
	if err != nil {
		code := 1

		var spawnErr *sh.SpawnError
		if errors.As(err, &spawnErr) {
			code = spawnErr.Code
		}

		l.printf(l.ErrOut, l.Styles.Failure, "Failed to start %s backend. Error: %d", l.Name, code)
		l.Logger.Debug("spawn failed", "error", err)

		return ExitSpawnFailure
	}

	l.printf(l.Out, l.Styles.Running, "%s server is running. Press ENTER to stop it...", l.Name)

	l.WaitForStopSignal()
	l.Stop(child)

	l.printf(l.Out, l.Styles.Stopped, "%s server stopped.", l.Name)

	return ExitOK
}

// Start asks the OS to create the server process.
func (l *Launcher) Start(line sh.CommandLine) (*sh.Child, error) {
	l.state = Starting
	l.Logger.Debug("spawning server",
		"command", line.String(),
		"argv", sh.FormatCommand(line.Interpreter, line.Argv()),
	)

	child, err := sh.Start(l.Env, line)
	if err != nil {
		l.state = Failed
		return nil, fmt.Errorf("starting %s server: %w", l.Name, err)
	}

	if l.Cleanup != nil {
		l.Cleanup.Register(child)
	}

	l.state = Running
	l.Logger.Info("server running", "pid", child.PID())

	return child, nil
}

// State reports where the launcher is in its sequence.
func (l *Launcher) State() State {
	return l.state
}

// Stop forcibly terminates the child and releases it.
// A failed termination, including one on a child that already exited, is
// logged and otherwise ignored.
func (l *Launcher) Stop(child *sh.Child) {
	l.state = Stopping

	err := child.Kill()

	if l.Cleanup != nil {
		l.Cleanup.Unregister(child)
	}

	switch {
	case err == nil:
		l.Logger.Info("server terminated", "pid", child.PID())
	case errors.Is(err, sh.ErrProcessExited):
		l.Logger.Info("server had already exited", "pid", child.PID())
	default:
		l.Logger.Warn("terminating server failed", "pid", child.PID(), "error", err)
	}

	l.state = Stopped
}

// WaitForStopSignal blocks until input arrives on In, In reaches end of
// input, or, when Signals is set, a signal is received.
func (l *Launcher) WaitForStopSignal() {
	if l.Signals == nil {
		l.logStopInput(readOnce(l.In))
		return
	}

	done := make(chan error, 1)

	// If a signal wins, this reader stays blocked on In. It is abandoned on
	// purpose: the launcher exits right after stopping the child.
	go func() {
		done <- readOnce(l.In)
	}()

	select {
	case err := <-done:
		l.logStopInput(err)
	case sig := <-l.Signals:
		l.Logger.Info("stop signal received", "signal", sig.String())
	}
}

func (l *Launcher) logStopInput(err error) {
	switch {
	case err == nil:
		l.Logger.Debug("stop input received")
	case errors.Is(err, io.EOF):
		l.Logger.Info("stdin closed, stopping server")
	default:
		l.Logger.Warn("reading stdin failed, stopping server", "error", err)
	}
}

func (l *Launcher) printf(w io.Writer, style lipgloss.Style, format string, args ...any) {
	_, _ = fmt.Fprintln(w, style.Render(fmt.Sprintf(format, args...)))
}

// State is a step in the launcher's sequence.
type State int

// States, in sequence order. Failed is terminal and only follows Starting.
const (
	NotStarted State = iota
	Starting
	Running
	Stopping
	Stopped
	Failed
)

func (s State) String() string {
	switch s {
	case NotStarted:
		return "NotStarted"
	case Starting:
		return "Starting"
	case Running:
		return "Running"
	case Stopping:
		return "Stopping"
	case Stopped:
		return "Stopped"
	case Failed:
		return "Failed"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

// unexported constants.
const (
	readChunk = 512
)

// readOnce returns after the first non-empty read or the first error.
func readOnce(in io.Reader) error {
	buf := make([]byte, readChunk)

	for {
		n, err := in.Read(buf)
		if n > 0 {
			return nil
		}

		if err != nil {
			return err
		}
	}
}
