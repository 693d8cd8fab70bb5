package tui

import "github.com/charmbracelet/lipgloss"

var (
	// Colors
	colorPrimary = lipgloss.Color("12")  // bright blue
	colorDim     = lipgloss.Color("240") // gray
	colorAlert   = lipgloss.Color("11")  // bright yellow
	colorText    = lipgloss.Color("252")

	styleTitle = lipgloss.NewStyle().
			Foreground(colorPrimary).
			Bold(true).
			Padding(0, 1)

	styleTimestamp = lipgloss.NewStyle().
			Foreground(colorDim)

	styleName = lipgloss.NewStyle().
			Bold(true)

	styleText = lipgloss.NewStyle().
			Foreground(colorText)

	styleDeleted = lipgloss.NewStyle().
			Foreground(colorDim).
			Italic(true)

	styleAction = lipgloss.NewStyle().
			Italic(true)

	// Status bar
	styleStatusBar = lipgloss.NewStyle().
			Foreground(colorDim).
			Padding(0, 1)

	styleResume = lipgloss.NewStyle().
			Foreground(lipgloss.Color("0")).
			Background(colorAlert).
			Bold(true).
			Padding(0, 1)
)
