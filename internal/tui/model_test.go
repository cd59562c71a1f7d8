package tui

import (
	"errors"
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/setoncarmichael/claude-usage-widget/internal/claude"
	"github.com/setoncarmichael/claude-usage-widget/internal/scheduler"
	"github.com/setoncarmichael/claude-usage-widget/internal/settings"
)

func newTestModel(t *testing.T) Model {
	t.Helper()
	return NewModel(settings.DefaultSettings(), 0.75, 0.90, NewEvents())
}

func update(t *testing.T, m Model, msg tea.Msg) Model {
	t.Helper()
	next, _ := m.Update(msg)
	model, ok := next.(Model)
	if !ok {
		t.Fatalf("Update returned %T, want Model", next)
	}
	return model
}

func timePtr(t time.Time) *time.Time { return &t }

func activeUsage() *claude.Usage {
	reset := time.Now().Add(2 * time.Hour)
	weekly := time.Now().Add(3 * 24 * time.Hour)
	return &claude.Usage{
		FiveHour: claude.Window{Utilization: 42, ResetsAt: &reset},
		SevenDay: claude.Window{Utilization: 11, ResetsAt: &weekly},
	}
}

func TestModel_StartsLoading(t *testing.T) {
	m := newTestModel(t)
	if m.state != stateLoading {
		t.Fatalf("initial state = %v, want loading", m.state)
	}
	if !strings.Contains(m.View(), "Loading") {
		t.Fatal("loading view should mention loading")
	}
}

func TestModel_UsageArrives(t *testing.T) {
	m := newTestModel(t)
	m = update(t, m, usageUpdatedMsg{usage: activeUsage()})

	if m.state != stateData {
		t.Fatalf("state = %v, want data", m.state)
	}
	view := m.View()
	if !strings.Contains(view, "42.0%") {
		t.Fatalf("view should show session utilization, got:\n%s", view)
	}
	if !strings.Contains(view, "Resets in") {
		t.Fatalf("view should show the countdown, got:\n%s", view)
	}
}

func TestModel_NoUsageYet(t *testing.T) {
	m := newTestModel(t)
	m = update(t, m, usageUpdatedMsg{usage: &claude.Usage{}})

	if m.state != stateNoUsage {
		t.Fatalf("state = %v, want no-usage", m.state)
	}
	if !strings.Contains(m.View(), "No usage yet") {
		t.Fatal("view should distinguish an idle account from an error")
	}
}

func TestModel_SessionLifecycleStates(t *testing.T) {
	m := newTestModel(t)

	m = update(t, m, sessionExpiredMsg{})
	if m.state != stateLoginRequired {
		t.Fatalf("after expiry state = %v, want login-required", m.state)
	}
	if !strings.Contains(m.View(), "Session expired") {
		t.Fatal("login-required view should say the session expired")
	}

	m = update(t, m, silentLoginStartedMsg{})
	if m.state != stateAutoLogin {
		t.Fatalf("after silent start state = %v, want auto-login", m.state)
	}
	if !strings.Contains(m.View(), "Reconnecting") {
		t.Fatal("auto-login view should show the reconnect indicator")
	}

	m = update(t, m, silentLoginFailedMsg{})
	if m.state != stateLoginRequired {
		t.Fatalf("after silent failure state = %v, want login-required", m.state)
	}
}

func TestModel_FetchErrorWithoutDataShowsError(t *testing.T) {
	m := newTestModel(t)
	m = update(t, m, fetchFailedMsg{err: errors.New("connection refused")})

	if m.state != stateError {
		t.Fatalf("state = %v, want error", m.state)
	}
	if !strings.Contains(m.View(), "Could not load usage") {
		t.Fatal("error view should say usage failed to load")
	}
}

func TestModel_FetchErrorKeepsCachedData(t *testing.T) {
	m := newTestModel(t)
	m = update(t, m, usageUpdatedMsg{usage: activeUsage()})
	m = update(t, m, fetchFailedMsg{err: errors.New("gateway timeout")})

	if m.state != stateData {
		t.Fatalf("state = %v, want data despite failed refresh", m.state)
	}
	if !strings.Contains(m.View(), "cached data") {
		t.Fatal("view should flag the stale data")
	}
}

func TestModel_CountdownUpdatesSnapshot(t *testing.T) {
	m := newTestModel(t)
	m = update(t, m, usageUpdatedMsg{usage: activeUsage()})

	now := time.Now()
	snap := scheduler.BuildSnapshot(&claude.Usage{
		FiveHour: claude.Window{Utilization: 42, ResetsAt: timePtr(now.Add(30 * time.Minute))},
		SevenDay: claude.Window{Utilization: 11, ResetsAt: timePtr(now.Add(24 * time.Hour))},
	}, now)
	m = update(t, m, countdownMsg{snapshot: snap})

	if !strings.Contains(m.View(), "30m") {
		t.Fatalf("view should show the recomputed countdown, got:\n%s", m.View())
	}
}

func TestModel_RefreshKeyInvokesCallback(t *testing.T) {
	m := newTestModel(t)
	calls := 0
	m.SetOnRefresh(func() { calls++ })

	m = update(t, m, tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'r'}})
	if calls != 1 {
		t.Fatalf("refresh callback calls = %d, want 1", calls)
	}
	if !m.refreshing {
		t.Fatal("refreshing = false, want true")
	}

	m = update(t, m, usageUpdatedMsg{usage: activeUsage()})
	if m.refreshing {
		t.Fatal("refreshing should clear when usage arrives")
	}
}

func TestModel_LoginAndLogoutKeys(t *testing.T) {
	m := newTestModel(t)
	logins, logouts := 0, 0
	m.SetOnLogin(func() { logins++ })
	m.SetOnLogout(func() { logouts++ })

	m = update(t, m, tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'l'}})
	m = update(t, m, tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'o'}})

	if logins != 1 || logouts != 1 {
		t.Fatalf("logins=%d logouts=%d, want 1/1", logins, logouts)
	}
}

func TestModel_VisibilityPreferencesHideSections(t *testing.T) {
	off := false
	prefs := settings.DefaultSettings()
	prefs.Visibility.ShowWeeklyGauge = &off
	prefs.Visibility.ShowTimers = &off

	m := NewModel(prefs, 0.75, 0.90, NewEvents())
	m = update(t, m, usageUpdatedMsg{usage: activeUsage()})

	view := m.View()
	if strings.Contains(view, "Week") {
		t.Fatal("weekly gauge should be hidden")
	}
	if strings.Contains(view, "Resets in") {
		t.Fatal("timers should be hidden")
	}
}

func TestModel_SettingsSummaryToggle(t *testing.T) {
	m := newTestModel(t)
	m = update(t, m, usageUpdatedMsg{usage: activeUsage()})

	m = update(t, m, tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'s'}})
	view := m.View()
	if !strings.Contains(view, "Settings") {
		t.Fatal("settings summary should be shown")
	}
	if strings.Contains(view, "Resets in") {
		t.Fatal("usage body should be hidden behind the settings summary")
	}

	m = update(t, m, tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'s'}})
	if !strings.Contains(m.View(), "Resets in") {
		t.Fatal("usage body should return after closing the summary")
	}
}

func TestTrayTitle(t *testing.T) {
	now := time.Now()
	snap := scheduler.BuildSnapshot(&claude.Usage{
		FiveHour: claude.Window{Utilization: 42.4, ResetsAt: timePtr(now.Add(2*time.Hour + 15*time.Minute))},
		SevenDay: claude.Window{Utilization: 80, ResetsAt: timePtr(now.Add(24 * time.Hour))},
	}, now)

	tests := []struct {
		name    string
		prefs   settings.TrayPreferences
		hasData bool
		want    string
	}{
		{"icon mode", settings.TrayPreferences{DisplayMode: settings.TrayDisplayIcon}, true, ""},
		{"percent session", settings.TrayPreferences{DisplayMode: settings.TrayDisplayPercent, SourceWindow: "session"}, true, "42%"},
		{"percent weekly", settings.TrayPreferences{DisplayMode: settings.TrayDisplayPercent, SourceWindow: "weekly"}, true, "80%"},
		{"time session", settings.TrayPreferences{DisplayMode: settings.TrayDisplayTime, SourceWindow: "session"}, true, "2h 15m"},
		{"no data", settings.TrayPreferences{DisplayMode: settings.TrayDisplayPercent}, false, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := TrayTitle(snap, tt.hasData, tt.prefs); got != tt.want {
				t.Errorf("TrayTitle = %q, want %q", got, tt.want)
			}
		})
	}
}
