package teleop

import "github.com/charmbracelet/lipgloss"

var (
	colorGreen  = lipgloss.Color("#98C379")
	colorYellow = lipgloss.Color("#E5C07B")
	colorRed    = lipgloss.Color("#E06C75")
	colorBlue   = lipgloss.Color("#61AFEF")
	colorMuted  = lipgloss.Color("#636B78")
	colorBorder = lipgloss.Color("#3F4451")
)

var (
	titleStyle = lipgloss.NewStyle().
			Foreground(colorBlue).
			Bold(true)

	panelStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(colorBorder).
			Padding(0, 1)

	labelStyle = lipgloss.NewStyle().
			Foreground(colorMuted).
			Width(9)

	errorStyle = lipgloss.NewStyle().
			Foreground(colorRed).
			Bold(true)

	stoppedStyle = lipgloss.NewStyle().
			Foreground(colorYellow)
)

func stateStyle(name string) lipgloss.Style {
	switch name {
	case "Running":
		return lipgloss.NewStyle().Foreground(colorGreen).Bold(true)
	case "Errored":
		return lipgloss.NewStyle().Foreground(colorRed).Bold(true)
	default:
		return lipgloss.NewStyle().Foreground(colorYellow)
	}
}
