package session

import (
	"context"
	"errors"
	"log"
	"sync"

	"github.com/setoncarmichael/claude-usage-widget/internal/credentials"
	"github.com/setoncarmichael/claude-usage-widget/internal/login"
)

type AuthState int

const (
	Uninitialized AuthState = iota
	Authenticated
	Unauthenticated
	SilentRecovering
)

func (s AuthState) String() string {
	switch s {
	case Authenticated:
		return "authenticated"
	case Unauthenticated:
		return "unauthenticated"
	case SilentRecovering:
		return "silent-recovering"
	default:
		return "uninitialized"
	}
}

// CookieClearer removes the provider's session cookie during logout.
// Best-effort: failures are logged and never block the logout.
type CookieClearer func(ctx context.Context) error

// Monitor is the single authority for the credential lifecycle: it decides
// what auth state the UI reflects, drives recovery when a session expires,
// and owns every transition between login attempts.
type Monitor struct {
	store    *credentials.Store
	logins   *login.Manager
	notifier Notifier
	clear    CookieClearer

	mu    sync.Mutex
	state AuthState

	// onAuthChanged resumes or suspends the polling scheduler.
	onAuthChanged func(authenticated bool)
}

type MonitorConfig struct {
	Store         *credentials.Store
	Logins        *login.Manager
	Notifier      Notifier
	CookieClearer CookieClearer
}

func NewMonitor(cfg MonitorConfig) *Monitor {
	n := cfg.Notifier
	if n == nil {
		n = Fanout{}
	}
	return &Monitor{
		store:    cfg.Store,
		logins:   cfg.Logins,
		notifier: n,
		clear:    cfg.CookieClearer,
		state:    Uninitialized,
	}
}

// OnAuthChanged registers the scheduler hook. Must be called before Start.
func (m *Monitor) OnAuthChanged(fn func(authenticated bool)) {
	m.onAuthChanged = fn
}

func (m *Monitor) State() AuthState {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// Start establishes the initial state. A stored credential counts as
// authenticated without verification; the first fetch proves it out and
// kicks off recovery if it is stale.
func (m *Monitor) Start(ctx context.Context) {
	if _, ok := m.store.Get(); ok {
		log.Printf("[session] stored credential found, starting authenticated")
		m.transition(Authenticated)
		return
	}

	log.Printf("[session] no stored credential, interactive login required")
	m.transition(Unauthenticated)
	m.notifier.SessionExpired()
	m.startInteractive(ctx)
}

// HandleAuthError reacts to a 401/403 from the usage endpoint: the stored
// credential is dead. Clears it and begins silent recovery; only when that
// is abandoned does the user see a login prompt.
func (m *Monitor) HandleAuthError(ctx context.Context) {
	m.mu.Lock()
	if m.state != Authenticated {
		// Already recovering or logged out; a second auth error from an
		// in-flight fetch changes nothing.
		m.mu.Unlock()
		return
	}
	m.state = SilentRecovering
	m.mu.Unlock()
	m.notifyAuthChanged(false)

	log.Printf("[session] auth error: clearing credential, starting silent recovery")
	if err := m.store.Clear(); err != nil {
		log.Printf("[session] clearing credential: %v", err)
	}
	m.logins.Invalidate()

	m.notifier.SilentLoginStarted()
	m.startSilent(ctx)
}

func (m *Monitor) startSilent(ctx context.Context) {
	err := m.logins.StartSilent(ctx, func(cred credentials.Credential, err error) {
		switch {
		case err == nil:
			m.loginResolved(cred)
		case errors.Is(err, login.ErrSuperseded):
			// Another attempt won; its resolution already moved the state.
		case errors.Is(err, login.ErrTimeout), errors.Is(err, login.ErrSurfaceClosed):
			log.Printf("[session] silent recovery abandoned: %v", err)
			m.transition(Unauthenticated)
			m.notifier.SilentLoginFailed()
			m.startInteractive(ctx)
		default:
			log.Printf("[session] silent recovery failed: %v", err)
			m.transition(Unauthenticated)
			m.notifier.SilentLoginFailed()
			m.startInteractive(ctx)
		}
	})
	if err != nil && !errors.Is(err, login.ErrAttemptActive) {
		log.Printf("[session] starting silent login: %v", err)
	}
}

func (m *Monitor) startInteractive(ctx context.Context) {
	err := m.logins.StartInteractive(ctx, func(cred credentials.Credential, err error) {
		switch {
		case err == nil:
			m.loginResolved(cred)
		case errors.Is(err, login.ErrSuperseded):
		case errors.Is(err, login.ErrSurfaceClosed):
			log.Printf("[session] login window closed without completing")
		default:
			log.Printf("[session] interactive login failed: %v", err)
		}
	})
	if errors.Is(err, login.ErrAttemptActive) {
		// Single-flight: the existing window remains the one login flow.
		log.Printf("[session] interactive login already open")
	} else if err != nil {
		log.Printf("[session] starting interactive login: %v", err)
	}
}

// RequestLogin opens interactive login on explicit user action.
func (m *Monitor) RequestLogin(ctx context.Context) {
	m.startInteractive(ctx)
}

func (m *Monitor) loginResolved(cred credentials.Credential) {
	log.Printf("[session] login resolved for organization %s", cred.OrganizationID)
	m.transition(Authenticated)
	m.notifier.LoginSuccess(cred)
}

// Logout is a user intent and always completes locally: the credential is
// cleared and interactive login opens regardless of whether the remote
// cookie removal succeeds.
func (m *Monitor) Logout(ctx context.Context) {
	log.Printf("[session] logout requested")

	if err := m.store.Clear(); err != nil {
		log.Printf("[session] clearing credential: %v", err)
	}
	m.logins.Invalidate()

	if m.clear != nil {
		if err := m.clear(ctx); err != nil {
			log.Printf("[session] clearing session cookie (ignored): %v", err)
		}
	}

	m.transition(Unauthenticated)
	m.notifier.SessionExpired()
	m.startInteractive(ctx)
}

func (m *Monitor) transition(next AuthState) {
	m.mu.Lock()
	prev := m.state
	m.state = next
	m.mu.Unlock()

	if prev != next {
		log.Printf("[session] %v -> %v", prev, next)
	}
	m.notifyAuthChanged(next == Authenticated)
}

func (m *Monitor) notifyAuthChanged(authenticated bool) {
	if m.onAuthChanged != nil {
		m.onAuthChanged(authenticated)
	}
}
