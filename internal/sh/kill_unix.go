//go:build !windows

package sh

import (
	"errors"
	"fmt"
	"os"
	"os/exec"
	"syscall"

	"golang.org/x/sys/unix"
)

// SetProcGroup configures the command to run in its own process group.
// A terminal Ctrl-C then reaches only the launcher, so the launcher must
// kill the group itself (see CleanupManager).
func SetProcGroup(cmd *exec.Cmd) {
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}
}

// unexported constants.
const (
	notFoundCode = int(unix.ENOENT)
)

// terminate kills the process and its entire process group.
func terminate(p *os.Process) error {
	// Kill the entire process group (negative PID)
	err := unix.Kill(-p.Pid, unix.SIGKILL)
	if err == nil {
		return nil
	}

	if !errors.Is(err, unix.ESRCH) {
		return fmt.Errorf("killing process group %d: %w", p.Pid, err)
	}

	// No group left; the leader may still be addressable on its own.
	err = p.Kill()
	if err == nil {
		return nil
	}

	if errors.Is(err, os.ErrProcessDone) || errors.Is(err, unix.ESRCH) {
		return fmt.Errorf("killing process %d: %w", p.Pid, ErrProcessExited)
	}

	return fmt.Errorf("killing process %d: %w", p.Pid, err)
}
