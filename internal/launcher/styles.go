// Package launcher styling definitions.
// This file defines lipgloss styles for the launcher's status lines.

package launcher

import (
	"io"

	"github.com/charmbracelet/lipgloss"
	"golang.org/x/term"
)

// Styles holds the lipgloss styles used for status lines.
type Styles struct {
	// Running is the style for the startup confirmation (green).
	Running lipgloss.Style

	// Stopped is the style for the shutdown confirmation (bold).
	Stopped lipgloss.Style

	// Failure is the style for the spawn failure line (red).
	Failure lipgloss.Style
}

// DefaultStyles returns the standard styles for status lines.
func DefaultStyles() Styles {
	return Styles{
		Running: lipgloss.NewStyle().Foreground(lipgloss.Color("2")), // Green
		Stopped: lipgloss.NewStyle().Bold(true),
		Failure: lipgloss.NewStyle().Foreground(lipgloss.Color("1")), // Red
	}
}

// PlainStyles returns styles that render text unchanged.
func PlainStyles() Styles {
	return Styles{
		Running: lipgloss.NewStyle(),
		Stopped: lipgloss.NewStyle(),
		Failure: lipgloss.NewStyle(),
	}
}

// IsTerminal reports whether the stream is attached to a terminal.
func IsTerminal(stream any) bool {
	f, ok := stream.(interface{ Fd() uintptr })
	if !ok {
		return false
	}

	return term.IsTerminal(int(f.Fd()))
}

// StylesFor picks DefaultStyles for terminals and PlainStyles otherwise.
func StylesFor(out io.Writer, noColor bool) Styles {
	if noColor || !IsTerminal(out) {
		return PlainStyles()
	}

	return DefaultStyles()
}
