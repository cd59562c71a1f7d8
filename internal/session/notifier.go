package session

import (
	"github.com/setoncarmichael/claude-usage-widget/internal/claude"
	"github.com/setoncarmichael/claude-usage-widget/internal/credentials"
)

// Notifier is the contract between the session core and the presentation
// layer. Implementations must not block; they are invoked from lifecycle
// goroutines.
type Notifier interface {
	// LoginSuccess fires once per acquired credential.
	LoginSuccess(cred credentials.Credential)
	// SilentLoginStarted signals background recovery is underway; the UI
	// shows a non-blocking indicator instead of the login prompt.
	SilentLoginStarted()
	// SilentLoginFailed signals recovery gave up; a visible login window is
	// already opening.
	SilentLoginFailed()
	// SessionExpired signals the credential is gone and interactive login
	// is required.
	SessionExpired()
	// UsageUpdated delivers a fresh pair of usage windows.
	UsageUpdated(usage *claude.Usage)
	// FetchFailed reports a transient fetch problem; the credential is
	// still considered valid.
	FetchFailed(err error)
	// RefreshRequested echoes an explicit user refresh so the UI can show
	// activity.
	RefreshRequested()
}

// Fanout delivers every notification to each sink in order. Nil sinks are
// skipped so callers can wire optional listeners unconditionally.
type Fanout []Notifier

var _ Notifier = Fanout{}

func (f Fanout) LoginSuccess(cred credentials.Credential) {
	for _, n := range f {
		if n != nil {
			n.LoginSuccess(cred)
		}
	}
}

func (f Fanout) SilentLoginStarted() {
	for _, n := range f {
		if n != nil {
			n.SilentLoginStarted()
		}
	}
}

func (f Fanout) SilentLoginFailed() {
	for _, n := range f {
		if n != nil {
			n.SilentLoginFailed()
		}
	}
}

func (f Fanout) SessionExpired() {
	for _, n := range f {
		if n != nil {
			n.SessionExpired()
		}
	}
}

func (f Fanout) UsageUpdated(usage *claude.Usage) {
	for _, n := range f {
		if n != nil {
			n.UsageUpdated(usage)
		}
	}
}

func (f Fanout) FetchFailed(err error) {
	for _, n := range f {
		if n != nil {
			n.FetchFailed(err)
		}
	}
}

func (f Fanout) RefreshRequested() {
	for _, n := range f {
		if n != nil {
			n.RefreshRequested()
		}
	}
}
