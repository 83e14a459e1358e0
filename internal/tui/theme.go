package tui

import "github.com/charmbracelet/lipgloss"

var (
	HeaderStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#FAFAFA"))
	SubtextStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#888888"))
	ErrorStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#FF0000"))

	ActionLongStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#00FF00")).Bold(true)
	ActionShortStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#FF0000")).Bold(true)

	StatusActiveStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#FFFF00"))
	StatusWinStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("#00FF00"))
	StatusLossStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#FF0000"))
	StatusOtherStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#888888"))

	ProfitUpStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#00FF00"))
	ProfitDownStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#FF0000"))

	AccentStyle = lipgloss.NewStyle().Bold(true).
			Foreground(lipgloss.Color("#FAFAFA")).
			Background(lipgloss.Color("#7D56F4")).
			Padding(0, 1)
)
