package chatview

import "github.com/charmbracelet/lipgloss"

var (
	accent = lipgloss.Color("#8A6A45")
	ink    = lipgloss.Color("#3D2E22")
	border = lipgloss.Color("#E6DDD3")

	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(accent).
			Padding(0, 1)

	userStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FFFFFF")).
			Background(accent).
			Padding(0, 1)

	assistantStyle = lipgloss.NewStyle().
			Foreground(ink).
			Border(lipgloss.RoundedBorder()).
			BorderForeground(border).
			Padding(0, 1)

	cursorStyle  = lipgloss.NewStyle().Foreground(accent).Blink(true)
	spinnerStyle = lipgloss.NewStyle().Foreground(accent)
	helpStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
)
