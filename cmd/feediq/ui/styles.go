// Package ui renders the conversational intake in a terminal.
package ui

import "github.com/charmbracelet/lipgloss"

var (
	colorBrand   = lipgloss.Color("#4f46e5")
	colorMuted   = lipgloss.Color("#6b7280")
	colorSuccess = lipgloss.Color("#16a34a")
	colorWarning = lipgloss.Color("#d97706")
	colorDanger  = lipgloss.Color("#dc2626")
	colorStar    = lipgloss.Color("#facc15")
)

// Styles groups the lipgloss styles of the chat view
type Styles struct {
	Title   lipgloss.Style
	Bot     lipgloss.Style
	User    lipgloss.Style
	Prompt  lipgloss.Style
	Star    lipgloss.Style
	Empty   lipgloss.Style
	Help    lipgloss.Style
	Saved   lipgloss.Style
	Urgent  lipgloss.Style
	Warning lipgloss.Style
	Frame   lipgloss.Style
}

// DefaultStyles returns the chat palette
func DefaultStyles() Styles {
	return Styles{
		Title: lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#ffffff")).
			Background(colorBrand).
			Padding(0, 1),
		Bot:     lipgloss.NewStyle().Foreground(colorBrand),
		User:    lipgloss.NewStyle().Bold(true),
		Prompt:  lipgloss.NewStyle().Foreground(colorMuted),
		Star:    lipgloss.NewStyle().Foreground(colorStar),
		Empty:   lipgloss.NewStyle().Foreground(colorMuted),
		Help:    lipgloss.NewStyle().Foreground(colorMuted).Italic(true),
		Saved:   lipgloss.NewStyle().Foreground(colorSuccess).Bold(true),
		Urgent:  lipgloss.NewStyle().Foreground(colorDanger).Bold(true),
		Warning: lipgloss.NewStyle().Foreground(colorWarning),
		Frame: lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(colorBrand).
			Padding(0, 1),
	}
}
