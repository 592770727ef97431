package ui

import "github.com/charmbracelet/lipgloss"

// Colors used by the chat screen.
var (
	ColorRed    = lipgloss.Color("#FF0000")
	ColorGreen  = lipgloss.Color("#00FF00")
	ColorYellow = lipgloss.Color("#FFFF00")
	ColorCyan   = lipgloss.Color("#00FFFF")
	ColorGray   = lipgloss.Color("#666666")
	ColorWhite  = lipgloss.Color("#FFFFFF")
)

var (
	TitleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(ColorCyan)

	UserLabelStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(ColorGreen)

	AssistantLabelStyle = lipgloss.NewStyle().
				Bold(true).
				Foreground(ColorCyan)

	TypingStyle = lipgloss.NewStyle().
			Foreground(ColorYellow)

	TimestampStyle = lipgloss.NewStyle().
			Foreground(ColorGray)

	RecordingDotStyle = lipgloss.NewStyle().
				Foreground(ColorRed).
				Bold(true)

	IdleDotStyle = lipgloss.NewStyle().
			Foreground(ColorGray)

	StatusStyle = lipgloss.NewStyle().
			Foreground(ColorGray)

	ErrorTextStyle = lipgloss.NewStyle().
			Foreground(ColorRed)

	OKStyle = lipgloss.NewStyle().
		Foreground(ColorGreen)

	AlertStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(ColorRed).
			Padding(0, 1)

	AlertTitleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(ColorRed)

	HintStyle = lipgloss.NewStyle().
			Foreground(ColorYellow)
)
