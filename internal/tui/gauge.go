package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// RenderUsageGauge produces a text gauge that fills from left to right as
// usage increases (0=empty, 100=full). If usedPercent < 0 it renders a
// dimmed track with "N/A".
func RenderUsageGauge(usedPercent float64, width int, color lipgloss.Color) string {
	if width < 5 {
		width = 5
	}

	if usedPercent < 0 {
		return gaugeTrackStyle.Render(strings.Repeat("─", width)) + dimStyle.Render(" N/A")
	}
	if usedPercent > 100 {
		usedPercent = 100
	}

	filled := int(usedPercent / 100 * float64(width))
	if filled < 1 && usedPercent > 0 {
		filled = 1
	}
	empty := width - filled

	filledStyle := lipgloss.NewStyle().Foreground(color)

	bar := filledStyle.Render(strings.Repeat("━", filled)) +
		gaugeTrackStyle.Render(strings.Repeat("━", empty))

	pctStyle := lipgloss.NewStyle().Foreground(color).Bold(true)
	return fmt.Sprintf("%s %s", bar, pctStyle.Render(fmt.Sprintf("%5.1f%%", usedPercent)))
}

// RenderElapsedTrack produces a compact inline track showing how far through
// a window's span the clock is. No percentage label.
func RenderElapsedTrack(elapsedPercent float64, width int) string {
	if width < 3 {
		width = 3
	}
	if elapsedPercent < 0 {
		return gaugeTrackStyle.Render(strings.Repeat("─", width))
	}
	if elapsedPercent > 100 {
		elapsedPercent = 100
	}

	filled := int(elapsedPercent / 100 * float64(width))
	empty := width - filled

	return dimStyle.Render(strings.Repeat("▪", filled)) +
		gaugeTrackStyle.Render(strings.Repeat("▫", empty))
}

// RenderShimmerGauge renders an animated placeholder bar while data loads.
func RenderShimmerGauge(width, frame int) string {
	if width < 5 {
		width = 5
	}
	pos := frame % width

	var b strings.Builder
	for i := 0; i < width; i++ {
		if i == pos {
			b.WriteString(dimStyle.Render("···"))
			i += 2
			continue
		}
		b.WriteString(gaugeTrackStyle.Render("━"))
	}
	return b.String()
}
