//go:build windows

package sh

import (
	"errors"
	"fmt"
	"os"
	"os/exec"

	"golang.org/x/sys/windows"
)

// SetProcGroup is a no-op on Windows.
// Job Objects would be needed for full process tree management.
func SetProcGroup(_ *exec.Cmd) {}

// unexported constants.
const (
	notFoundCode = int(windows.ERROR_FILE_NOT_FOUND)
)

// terminate calls TerminateProcess with exit code 0.
func terminate(p *os.Process) error {
	handle, err := windows.OpenProcess(windows.PROCESS_TERMINATE|windows.SYNCHRONIZE, false, uint32(p.Pid))
	if err != nil {
		if errors.Is(err, windows.ERROR_INVALID_PARAMETER) {
			return fmt.Errorf("opening process %d: %w", p.Pid, ErrProcessExited)
		}

		return fmt.Errorf("opening process %d: %w", p.Pid, err)
	}
	defer windows.CloseHandle(handle)

	err = windows.TerminateProcess(handle, 0)
	if err == nil {
		return nil
	}

	// TerminateProcess on an exited process fails with access denied.
	if errors.Is(err, windows.ERROR_ACCESS_DENIED) {
		return fmt.Errorf("terminating process %d: %w", p.Pid, ErrProcessExited)
	}

	return fmt.Errorf("terminating process %d: %w", p.Pid, err)
}
