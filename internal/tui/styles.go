package tui

import "github.com/charmbracelet/lipgloss"

// Styles groups the lipgloss styles used by the terminal shell.
type Styles struct {
	Header    lipgloss.Style
	Live      lipgloss.Style
	Muted     lipgloss.Style
	User      lipgloss.Style
	Assistant lipgloss.Style
	Related   lipgloss.Style
	Error     lipgloss.Style
	Code      lipgloss.Style
	Spinner   lipgloss.Style
	Prompt    lipgloss.Style
}

// DefaultStyles returns the blue palette of the web widget.
func DefaultStyles() Styles {
	blue := lipgloss.Color("#2563EB")
	return Styles{
		Header:    lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#FFFFFF")).Background(blue).Padding(0, 1),
		Live:      lipgloss.NewStyle().Foreground(lipgloss.Color("#4ADE80")),
		Muted:     lipgloss.NewStyle().Foreground(lipgloss.Color("#9CA3AF")),
		User:      lipgloss.NewStyle().Bold(true).Foreground(blue),
		Assistant: lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#6366F1")),
		Related:   lipgloss.NewStyle().Foreground(lipgloss.Color("#374151")).PaddingLeft(2),
		Error:     lipgloss.NewStyle().Foreground(lipgloss.Color("#EF4444")),
		Code:      lipgloss.NewStyle().Foreground(lipgloss.Color("#93C5FD")).Background(lipgloss.Color("#0F172A")).Padding(0, 1),
		Spinner:   lipgloss.NewStyle().Foreground(lipgloss.Color("#60A5FA")),
		Prompt:    lipgloss.NewStyle().Foreground(blue),
	}
}
