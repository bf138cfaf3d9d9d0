package tui

import "github.com/charmbracelet/lipgloss"

var (
	colorActive   = lipgloss.Color("1")  // red
	colorIdle     = lipgloss.Color("2")  // green
	colorCooldown = lipgloss.Color("3")  // yellow
	colorHeader   = lipgloss.Color("12") // bright blue
	colorMuted    = lipgloss.Color("8")  // dim

	headerStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(colorHeader)

	subheaderStyle = lipgloss.NewStyle().
			Foreground(colorMuted)

	labelStyle = lipgloss.NewStyle().
			Foreground(colorMuted).
			Width(14)

	messageStyle = lipgloss.NewStyle().
			Bold(true).
			Padding(1, 2).
			Border(lipgloss.RoundedBorder()).
			BorderForeground(colorActive)

	statusBarStyle = lipgloss.NewStyle().
			Foreground(colorMuted)

	infoStyle = lipgloss.NewStyle().
			Foreground(colorMuted).
			Italic(true)
)

func phaseStyle(phase string) lipgloss.Style {
	switch phase {
	case "active":
		return lipgloss.NewStyle().Foreground(colorActive).Bold(true)
	case "cooldown":
		return lipgloss.NewStyle().Foreground(colorCooldown)
	default:
		return lipgloss.NewStyle().Foreground(colorIdle)
	}
}
