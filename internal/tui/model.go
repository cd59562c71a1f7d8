// Package tui renders the usage widget: two quota gauges with live reset
// countdowns, a short utilization history, and the session lifecycle states
// (login required, background re-login, fetch errors) in between.
package tui

import (
	"fmt"
	"strings"
	"time"

	"github.com/NimbleMarkets/ntcharts/sparkline"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/x/ansi"

	"github.com/setoncarmichael/claude-usage-widget/internal/claude"
	"github.com/setoncarmichael/claude-usage-widget/internal/scheduler"
	"github.com/setoncarmichael/claude-usage-widget/internal/settings"
)

type tickMsg time.Time

func tickCmd() tea.Cmd {
	return tea.Tick(150*time.Millisecond, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

type displayState int

const (
	stateLoading displayState = iota // authenticated, first fetch pending
	stateLoginRequired
	stateAutoLogin // silent re-login underway
	stateNoUsage   // fetched fine, account idle
	stateError     // fetch failed with nothing to show
	stateData
)

const (
	gaugeWidth = 24
	sparkKeep  = 120 // history points retained for the sparkline
)

type Model struct {
	events *Events

	settings      settings.Settings
	pal           palette
	warnThreshold float64
	critThreshold float64

	state        displayState
	showSettings bool
	snapshot     scheduler.Snapshot
	hasSnapshot  bool
	sparkValues  []float64
	lastUpdated  time.Time
	lastErr      string
	refreshing   bool
	animFrame    int
	width        int
	height       int

	onRefresh func()
	onLogin   func()
	onLogout  func()
}

func NewModel(s settings.Settings, warnThresh, critThresh float64, events *Events) Model {
	return Model{
		events:        events,
		settings:      s,
		pal:           newPalette(s),
		warnThreshold: warnThresh,
		critThreshold: critThresh,
		state:         stateLoading,
		width:         44,
	}
}

func (m *Model) SetOnRefresh(fn func()) { m.onRefresh = fn }
func (m *Model) SetOnLogin(fn func())   { m.onLogin = fn }
func (m *Model) SetOnLogout(fn func())  { m.onLogout = fn }

func (m Model) Init() tea.Cmd {
	return tea.Batch(m.events.wait(), tickCmd())
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		return m, nil

	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c":
			return m, tea.Quit
		case "r":
			return m.requestRefresh(), nil
		case "l":
			if m.onLogin != nil {
				m.onLogin()
			}
			return m, nil
		case "o":
			if m.onLogout != nil {
				m.onLogout()
			}
			return m, nil
		case "s":
			m.showSettings = !m.showSettings
			return m, nil
		case "esc":
			m.showSettings = false
			return m, nil
		}
		return m, nil

	case tickMsg:
		m.animFrame++
		return m, tickCmd()

	case loginSuccessMsg:
		if !m.hasSnapshot {
			m.state = stateLoading
		}
		return m, m.events.wait()

	case sessionExpiredMsg:
		m.state = stateLoginRequired
		return m, m.events.wait()

	case silentLoginStartedMsg:
		m.state = stateAutoLogin
		return m, m.events.wait()

	case silentLoginFailedMsg:
		m.state = stateLoginRequired
		return m, m.events.wait()

	case usageUpdatedMsg:
		m = m.applyUsage(msg.usage)
		return m, m.events.wait()

	case countdownMsg:
		m.snapshot = msg.snapshot
		m.hasSnapshot = true
		if m.state == stateData || m.state == stateNoUsage {
			m.state = dataState(msg.snapshot.NoUsage)
		}
		return m, m.events.wait()

	case fetchFailedMsg:
		m.refreshing = false
		m.lastErr = msg.err.Error()
		if !m.hasSnapshot {
			m.state = stateError
		}
		return m, m.events.wait()

	case refreshRequestedMsg:
		m.refreshing = true
		return m, m.events.wait()

	case historyMsg:
		m.sparkValues = msg.values
		if len(m.sparkValues) > sparkKeep {
			m.sparkValues = m.sparkValues[len(m.sparkValues)-sparkKeep:]
		}
		return m, m.events.wait()

	case settingsChangedMsg:
		m.settings = msg.settings
		m.pal = newPalette(msg.settings)
		return m, m.events.wait()
	}

	return m, nil
}

func (m Model) requestRefresh() Model {
	m.refreshing = true
	if m.onRefresh != nil {
		m.onRefresh()
	}
	return m
}

func (m Model) applyUsage(usage *claude.Usage) Model {
	m.refreshing = false
	m.lastErr = ""
	m.lastUpdated = time.Now()
	m.snapshot = scheduler.BuildSnapshot(usage, m.lastUpdated)
	m.hasSnapshot = true
	m.state = dataState(m.snapshot.NoUsage)

	m.sparkValues = append(m.sparkValues, usage.FiveHour.Clamped())
	if len(m.sparkValues) > sparkKeep {
		m.sparkValues = m.sparkValues[len(m.sparkValues)-sparkKeep:]
	}
	return m
}

func dataState(noUsage bool) displayState {
	if noUsage {
		return stateNoUsage
	}
	return stateData
}

func (m Model) View() string {
	if m.showSettings {
		return m.settingsView()
	}

	var lines []string
	lines = append(lines, m.pal.title.Render("Claude Usage"))
	lines = append(lines, "")

	switch m.state {
	case stateLoading:
		lines = append(lines, RenderShimmerGauge(gaugeWidth, m.animFrame))
		lines = append(lines, dimStyle.Render("Loading usage..."))

	case stateLoginRequired:
		lines = append(lines, noticeStyle.Render("Session expired"))
		lines = append(lines, labelStyle.Render("Sign in to Claude in the login window,"))
		lines = append(lines, labelStyle.Render("or press l to open it again."))

	case stateAutoLogin:
		lines = append(lines, RenderShimmerGauge(gaugeWidth, m.animFrame))
		lines = append(lines, infoStyle.Render("Reconnecting to Claude..."))

	case stateError:
		lines = append(lines, errorStyle.Render("Could not load usage"))
		lines = append(lines, dimStyle.Render(ansi.Truncate(m.lastErr, m.width-2, "…")))

	case stateNoUsage:
		lines = append(lines, valueStyle.Render("No usage yet"))
		lines = append(lines, labelStyle.Render("Send a message to start a session."))

	case stateData:
		lines = append(lines, m.renderWindows()...)
	}

	if spark := m.renderSparkline(); spark != "" {
		lines = append(lines, "")
		lines = append(lines, labelStyle.Render("History"))
		lines = append(lines, spark)
	}

	lines = append(lines, "")
	lines = append(lines, m.renderFooter())

	return strings.Join(lines, "\n")
}

func (m Model) renderWindows() []string {
	var lines []string
	vis := m.settings.Visibility

	if vis.SessionGaugeVisible() {
		lines = append(lines, m.renderWindow("Session (5h)", m.snapshot.Session)...)
	}
	if vis.WeeklyGaugeVisible() {
		if len(lines) > 0 {
			lines = append(lines, "")
		}
		lines = append(lines, m.renderWindow("Week", m.snapshot.Weekly)...)
	}
	return lines
}

func (m Model) renderWindow(label string, w scheduler.WindowView) []string {
	color := m.pal.severityColor(w.Percent, m.warnThreshold, m.critThreshold)
	lines := []string{
		labelStyle.Render(label),
		RenderUsageGauge(w.Percent, gaugeWidth, color),
	}
	if m.settings.Visibility.TimersVisible() {
		timer := "Resets in " + w.Remaining
		if w.Expired {
			timer = w.Remaining
		} else if w.NoReset {
			timer = "No reset scheduled " + w.Remaining
		}
		lines = append(lines,
			dimStyle.Render(timer)+" "+RenderElapsedTrack(w.ElapsedPercent, 10))
	}
	return lines
}

func (m Model) renderSparkline() string {
	if !m.settings.Visibility.SparklineVisible() || len(m.sparkValues) < 2 {
		return ""
	}
	if m.state != stateData && m.state != stateNoUsage {
		return ""
	}

	sl := sparkline.New(gaugeWidth, 2,
		sparkline.WithMaxValue(100),
		sparkline.WithStyle(lipgloss.NewStyle().Foreground(m.pal.normal)))
	sl.PushAll(m.sparkValues)
	sl.Draw()
	return sl.View()
}

func (m Model) renderFooter() string {
	var status string
	switch {
	case m.refreshing:
		status = infoStyle.Render("Refreshing...")
	case m.lastErr != "" && m.hasSnapshot:
		status = noticeStyle.Render("Last update failed, showing cached data")
	case !m.lastUpdated.IsZero():
		status = dimStyle.Render("Updated " + m.lastUpdated.Format("15:04:05"))
	}

	help := helpStyle.Render("r refresh · l login · o sign out · s settings · q quit")
	if status == "" {
		return help
	}
	return ansi.Truncate(status, m.width, "…") + "\n" + help
}

// settingsView is a read-only summary of the active preferences; editing
// happens in the settings file, which is live-reloaded.
func (m Model) settingsView() string {
	vis := m.settings.Visibility
	onOff := func(v bool) string {
		if v {
			return "on"
		}
		return "off"
	}

	lines := []string{
		m.pal.title.Render("Settings"),
		"",
		labelStyle.Render("Thresholds"),
		valueStyle.Render(fmt.Sprintf("  warn %.0f%%  crit %.0f%%", m.warnThreshold*100, m.critThreshold*100)),
		"",
		labelStyle.Render("Tray"),
		valueStyle.Render(fmt.Sprintf("  mode %s, window %s",
			m.settings.Tray.DisplayMode, m.settings.Tray.SourceWindow)),
		"",
		labelStyle.Render("Visibility"),
		valueStyle.Render(fmt.Sprintf("  session gauge %s · weekly gauge %s",
			onOff(vis.SessionGaugeVisible()), onOff(vis.WeeklyGaugeVisible()))),
		valueStyle.Render(fmt.Sprintf("  timers %s · sparkline %s",
			onOff(vis.TimersVisible()), onOff(vis.SparklineVisible()))),
		"",
		dimStyle.Render("Edit " + settings.Path()),
		"",
		helpStyle.Render("s close"),
	}
	return strings.Join(lines, "\n")
}

// TrayTitle renders the compact tray readout for the current state according
// to the user's tray preferences.
func TrayTitle(snapshot scheduler.Snapshot, hasData bool, prefs settings.TrayPreferences) string {
	if !hasData || prefs.DisplayMode == settings.TrayDisplayIcon {
		return ""
	}

	w := snapshot.Session
	if prefs.SourceWindow == "weekly" {
		w = snapshot.Weekly
	}

	switch prefs.DisplayMode {
	case settings.TrayDisplayPercent:
		return fmt.Sprintf("%.0f%%", w.Percent)
	case settings.TrayDisplayTime:
		return w.Remaining
	default:
		return ""
	}
}
