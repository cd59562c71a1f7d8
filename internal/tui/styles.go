package tui

import (
	"github.com/charmbracelet/lipgloss"

	"github.com/setoncarmichael/claude-usage-widget/internal/settings"
)

var (
	colorSurface1 = lipgloss.Color("#45475A")
	colorDim      = lipgloss.Color("#585B70")
	colorText     = lipgloss.Color("#CDD6F4")
	colorSubtext  = lipgloss.Color("#A6ADC8")
	colorPeach    = lipgloss.Color("#FAB387")
	colorRed      = lipgloss.Color("#F38BA8")
	colorSky      = lipgloss.Color("#89DCEB")
)

var (
	dimStyle = lipgloss.NewStyle().
			Foreground(colorDim)

	labelStyle = lipgloss.NewStyle().
			Foreground(colorSubtext)

	valueStyle = lipgloss.NewStyle().
			Foreground(colorText)

	errorStyle = lipgloss.NewStyle().
			Foreground(colorRed).
			Bold(true)

	noticeStyle = lipgloss.NewStyle().
			Foreground(colorPeach)

	infoStyle = lipgloss.NewStyle().
			Foreground(colorSky)

	helpStyle = lipgloss.NewStyle().
			Foreground(colorDim)

	gaugeTrackStyle = lipgloss.NewStyle().
			Foreground(colorSurface1)
)

// palette holds the user-configurable colors resolved from settings.
type palette struct {
	normal  lipgloss.Color
	warning lipgloss.Color
	danger  lipgloss.Color

	title  lipgloss.Style
	text   lipgloss.Style
	border lipgloss.Style
}

func newPalette(s settings.Settings) palette {
	return palette{
		normal:  lipgloss.Color(s.Colors.Normal.Start),
		warning: lipgloss.Color(s.Colors.Warning.Start),
		danger:  lipgloss.Color(s.Colors.Danger.Start),
		title: lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color(s.Theme.TextPrimary)),
		text: lipgloss.NewStyle().
			Foreground(lipgloss.Color(s.Theme.TextSecondary)),
		border: lipgloss.NewStyle().
			Foreground(lipgloss.Color(s.Theme.BorderColor)),
	}
}

// severityColor picks the gauge color for a used percentage. Thresholds are
// fractions of the window (0.75 → warn at 75% used).
func (p palette) severityColor(usedPercent, warnThresh, critThresh float64) lipgloss.Color {
	switch {
	case usedPercent >= critThresh*100:
		return p.danger
	case usedPercent >= warnThresh*100:
		return p.warning
	default:
		return p.normal
	}
}
