package launcher

import (
	"os"
	"os/signal"
	"syscall"
)

// NotifyStop installs a handler for SIGINT and SIGTERM and returns the channel
// for Launcher.Signals along with a function that uninstalls the handler.
func NotifyStop() (<-chan os.Signal, func()) {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)

	return sigCh, func() { signal.Stop(sigCh) }
}
