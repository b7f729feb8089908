// Package main provides the serverlaunch CLI: it starts a server script under
// an interpreter, waits for ENTER, then forcibly terminates the server.
package main

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"

	flag "github.com/spf13/pflag"

	"github.com/toejough/serverlaunch/internal/config"
	"github.com/toejough/serverlaunch/internal/launcher"
	"github.com/toejough/serverlaunch/internal/sh"
)

func main() {
	os.Exit(runMain())
}

func runMain() int {
	return newLaunchRunner(os.Args[1:]).run()
}

// unexported constants.
const (
	exitConfigError = 2
)

// launchRunner holds state for a single serverlaunch invocation.
type launchRunner struct {
	args   []string
	getenv func(string) string
	stdin  io.Reader
	stdout io.Writer
	stderr io.Writer
	env    *sh.ProcessEnv
	exit   func(int)
}

func newLaunchRunner(args []string) *launchRunner {
	return &launchRunner{
		args:   args,
		getenv: os.Getenv,
		stdin:  os.Stdin,
		stdout: os.Stdout,
		stderr: os.Stderr,
		env:    sh.DefaultProcessEnv(),
		exit:   os.Exit,
	}
}

func (r *launchRunner) run() int {
	cfg, err := config.Parse(r.args, r.getenv, r.stderr)
	if errors.Is(err, flag.ErrHelp) {
		return launcher.ExitOK
	}

	if err != nil {
		fmt.Fprintf(r.stderr, "error: %v\n", err)
		return exitConfigError
	}

	logger := slog.New(slog.NewTextHandler(r.stderr, &slog.HandlerOptions{Level: cfg.LogLevel}))

	l := &launcher.Launcher{
		Name:   cfg.Name,
		Env:    r.env,
		In:     r.stdin,
		Out:    r.stdout,
		ErrOut: r.stderr,
		Logger: logger,
		Styles: launcher.StylesFor(r.stdout, cfg.NoColor),
	}

	if cfg.StopOnSignal {
		signals, stop := launcher.NotifyStop()
		defer stop()

		l.Signals = signals
	} else {
		// The child runs in its own process group, so an interrupt aimed at
		// the launcher never reaches it; kill it before exiting.
		l.Cleanup = sh.NewCleanupManager(func(sig os.Signal) {
			logger.Info("interrupted, server killed", "signal", sig.String())
			r.exit(sh.ExitCode(sig))
		})
		l.Cleanup.EnableCleanup()
	}

	return l.Run(sh.CommandLine{
		Interpreter: cfg.Interpreter,
		Script:      cfg.Script,
		Args:        cfg.ScriptArgs,
	})
}
