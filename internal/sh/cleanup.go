package sh

import (
	"os"
	"os/signal"
	"sync"
	"syscall"
)

// CleanupManager kills registered children when the launcher is interrupted.
type CleanupManager struct {
	mu              sync.Mutex
	enabled         bool
	signalInstalled bool
	children        map[*Child]struct{}
	onSignal        func(os.Signal)
}

// NewCleanupManager creates a CleanupManager. After the children are killed,
// onSignal is called with the signal that triggered the cleanup; it normally
// exits the process.
func NewCleanupManager(onSignal func(os.Signal)) *CleanupManager {
	return &CleanupManager{
		children: make(map[*Child]struct{}),
		onSignal: onSignal,
	}
}

// EnableCleanup enables automatic cleanup of children on SIGINT/SIGTERM.
func (m *CleanupManager) EnableCleanup() {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.enabled {
		return
	}

	m.enabled = true

	if !m.signalInstalled {
		m.signalInstalled = true
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)

		go m.listen(sigCh)
	}
}

// KillAll kills every registered child.
func (m *CleanupManager) KillAll() {
	m.mu.Lock()

	children := make([]*Child, 0, len(m.children))
	for c := range m.children {
		children = append(children, c)
	}

	m.mu.Unlock()

	for _, c := range children {
		_ = c.Kill()
	}
}

// Register adds a child to the cleanup list. It is a no-op until cleanup is enabled.
func (m *CleanupManager) Register(c *Child) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.enabled {
		m.children[c] = struct{}{}
	}
}

// Unregister removes a child from the cleanup list.
func (m *CleanupManager) Unregister(c *Child) {
	m.mu.Lock()
	defer m.mu.Unlock()

	delete(m.children, c)
}

func (m *CleanupManager) listen(sigCh <-chan os.Signal) {
	sig := <-sigCh
	m.KillAll()

	if m.onSignal != nil {
		m.onSignal(sig)
	}
}

// ExitCode returns the conventional shell exit status for a fatal signal.
func ExitCode(sig os.Signal) int {
	if s, ok := sig.(syscall.Signal); ok {
		return exitCodeSignalBase + int(s)
	}

	return exitCodeSignalBase + int(syscall.SIGINT)
}

// unexported constants.
const (
	exitCodeSignalBase = 128
)
