package tui

import "github.com/charmbracelet/lipgloss"

var (
	colorPrimary   = lipgloss.Color("#6C63FF")
	colorSecondary = lipgloss.Color("#2EC4B6")
	colorGoal      = lipgloss.Color("#9ECE6A")
	colorMuted     = lipgloss.Color("#666666")
	colorSuccess   = lipgloss.Color("#2ECC71")
	colorWarning   = lipgloss.Color("#F39C12")
	colorError     = lipgloss.Color("#E74C3C")
	colorFg        = lipgloss.Color("#C0CAF5")
	colorSubtle    = lipgloss.Color("#414868")
	colorHighlight = lipgloss.Color("#7AA2F7")
)

// disciplineColors are assigned to disciplines in first-studied order.
var disciplineColors = []string{"#6C63FF", "#2EC4B6", "#FF6B6B", "#F39C12", "#2ECC71", "#E74C3C", "#9B59B6", "#3498DB"}

func disciplineColor(i int) lipgloss.Color {
	if i < 0 {
		return colorSubtle
	}
	return lipgloss.Color(disciplineColors[i%len(disciplineColors)])
}

func fg(c lipgloss.Color) lipgloss.Style { return lipgloss.NewStyle().Foreground(c) }

var (
	inactiveTabStyle = fg(colorMuted).Padding(0, 2)
	activeTabStyle   = inactiveTabStyle.Bold(true).
				Foreground(colorPrimary).
				Border(lipgloss.NormalBorder(), false, false, true, false).
				BorderForeground(colorPrimary)

	panelStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(colorSubtle).
			Padding(1, 2)
	activePanelStyle = panelStyle.BorderForeground(colorPrimary)

	// The big clock; running and paused only change its color.
	timerStyle        = fg(colorPrimary).Bold(true).Align(lipgloss.Center)
	timerRunningStyle = timerStyle.Foreground(colorSuccess)
	timerPausedStyle  = timerStyle.Foreground(colorWarning)

	titleStyle     = fg(colorFg).Bold(true)
	mutedStyle     = fg(colorMuted)
	successStyle   = fg(colorSuccess)
	warningStyle   = fg(colorWarning)
	errorStyle     = fg(colorError)
	highlightStyle = fg(colorHighlight)

	headerStyle = lipgloss.NewStyle().Padding(0, 1)
	footerStyle = mutedStyle.Padding(0, 1)

	goalDoneStyle = fg(colorGoal)
	goalLeftStyle = fg(colorSubtle)
	rankStyle     = fg(colorSecondary).Bold(true)

	selectedItemStyle = fg(colorPrimary).Bold(true)
	normalItemStyle   = fg(colorFg)
)
