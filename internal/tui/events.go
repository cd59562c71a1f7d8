package tui

import (
	tea "github.com/charmbracelet/bubbletea"

	"github.com/setoncarmichael/claude-usage-widget/internal/claude"
	"github.com/setoncarmichael/claude-usage-widget/internal/credentials"
	"github.com/setoncarmichael/claude-usage-widget/internal/scheduler"
	"github.com/setoncarmichael/claude-usage-widget/internal/session"
	"github.com/setoncarmichael/claude-usage-widget/internal/settings"
)

type (
	loginSuccessMsg       struct{}
	sessionExpiredMsg     struct{}
	silentLoginStartedMsg struct{}
	silentLoginFailedMsg  struct{}
	usageUpdatedMsg       struct{ usage *claude.Usage }
	fetchFailedMsg        struct{ err error }
	refreshRequestedMsg   struct{}
	countdownMsg          struct{ snapshot scheduler.Snapshot }
	historyMsg            struct{ values []float64 }
	settingsChangedMsg    struct{ settings settings.Settings }
)

// Events bridges session lifecycle notifications into the bubbletea message
// loop. It implements session.Notifier; sends never block, the terminal just
// skips a beat when the program is busy.
type Events struct {
	ch chan tea.Msg
}

var _ session.Notifier = (*Events)(nil)

func NewEvents() *Events {
	return &Events{ch: make(chan tea.Msg, 32)}
}

func (e *Events) send(msg tea.Msg) {
	select {
	case e.ch <- msg:
	default:
	}
}

func (e *Events) LoginSuccess(credentials.Credential) { e.send(loginSuccessMsg{}) }
func (e *Events) SilentLoginStarted()                 { e.send(silentLoginStartedMsg{}) }
func (e *Events) SilentLoginFailed()                  { e.send(silentLoginFailedMsg{}) }
func (e *Events) SessionExpired()                     { e.send(sessionExpiredMsg{}) }
func (e *Events) UsageUpdated(usage *claude.Usage)    { e.send(usageUpdatedMsg{usage: usage}) }
func (e *Events) FetchFailed(err error)               { e.send(fetchFailedMsg{err: err}) }
func (e *Events) RefreshRequested()                   { e.send(refreshRequestedMsg{}) }

// Countdown feeds scheduler snapshots into the message loop; wire it as the
// scheduler's OnCountdown hook.
func (e *Events) Countdown(snapshot scheduler.Snapshot) {
	e.send(countdownMsg{snapshot: snapshot})
}

// History pushes a fresh utilization series for the sparkline, oldest first.
func (e *Events) History(values []float64) {
	e.send(historyMsg{values: values})
}

// SettingsChanged applies live-reloaded appearance preferences.
func (e *Events) SettingsChanged(s settings.Settings) {
	e.send(settingsChangedMsg{settings: s})
}

// wait returns a command that delivers the next queued message.
func (e *Events) wait() tea.Cmd {
	return func() tea.Msg {
		return <-e.ch
	}
}
