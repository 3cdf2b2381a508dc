package tui

import "github.com/charmbracelet/lipgloss"

var (
	colorPrimary = lipgloss.Color("#8B5CF6") // Violet
	colorSuccess = lipgloss.Color("#10B981") // Emerald
	colorWarning = lipgloss.Color("#F59E0B") // Amber
	colorError   = lipgloss.Color("#EF4444") // Red
	colorMuted   = lipgloss.Color("#6B7280") // Gray
	colorText    = lipgloss.Color("#F8FAFC") // Slate 50
)

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(colorPrimary).
			MarginBottom(1)

	sectionStyle = lipgloss.NewStyle().
			Foreground(colorMuted).
			Bold(true)

	selectedStyle = lipgloss.NewStyle().
			Foreground(colorText).
			Background(colorPrimary).
			Padding(0, 1)

	itemStyle = lipgloss.NewStyle().
			Foreground(colorMuted).
			Padding(0, 1)

	statusStyle = lipgloss.NewStyle().
			Foreground(colorText).
			BorderStyle(lipgloss.NormalBorder()).
			BorderTop(true).
			BorderForeground(colorMuted).
			MarginTop(1)

	readyStyle = lipgloss.NewStyle().Foreground(colorSuccess)
	busyStyle  = lipgloss.NewStyle().Foreground(colorWarning)
	errorStyle = lipgloss.NewStyle().Foreground(colorError)
	helpStyle  = lipgloss.NewStyle().Foreground(colorMuted)
)
