// Package ui styles the user-facing status lines printed by deployctl.
package ui

import (
	"github.com/charmbracelet/lipgloss/v2"
)

// Styles renders status messages. A zero Styles prints plain text.
type Styles struct {
	color bool
	warn  lipgloss.Style
	ok    lipgloss.Style
	err   lipgloss.Style
}

// New returns the status styles. With color disabled every method returns
// its input unchanged.
func New(color bool) *Styles {
	return &Styles{
		color: color,
		warn:  lipgloss.NewStyle().Foreground(lipgloss.Color("3")),
		ok:    lipgloss.NewStyle().Foreground(lipgloss.Color("2")),
		err:   lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("1")),
	}
}

// Warn highlights notices such as "<path> changed. Restarting...".
func (s *Styles) Warn(msg string) string { return s.render(s.warn, msg) }

// OK marks a successful pass.
func (s *Styles) OK(msg string) string { return s.render(s.ok, msg) }

// Error marks a fatal message.
func (s *Styles) Error(msg string) string { return s.render(s.err, msg) }

// Enabled reports whether styling is applied.
func (s *Styles) Enabled() bool { return s != nil && s.color }

func (s *Styles) render(style lipgloss.Style, msg string) string {
	if !s.Enabled() {
		return msg
	}

	return style.Render(msg)
}
