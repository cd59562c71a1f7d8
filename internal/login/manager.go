package login

import (
	"context"
	"log"
	"sync"
	"time"

	"github.com/setoncarmichael/claude-usage-widget/internal/browser"
	"github.com/setoncarmichael/claude-usage-widget/internal/credentials"
)

// SurfaceFactory opens a navigable surface pointed at the provider's login
// page. visible selects the interactive window over the hidden one.
type SurfaceFactory func(ctx context.Context, visible bool) (browser.Surface, error)

// CookieImporter checks passive sources (desktop app, installed browsers)
// for an existing session cookie.
type CookieImporter func(ctx context.Context) (value string, ok bool)

// ManagerConfig wires a Manager to its collaborators.
type ManagerConfig struct {
	Surfaces   SurfaceFactory
	Resolver   AccountResolver
	Store      *credentials.Store
	Domain     string
	CookieName string

	// ImportCookie is optional; when set, silent attempts try it before
	// opening a hidden surface.
	ImportCookie CookieImporter

	SilentTimeout time.Duration
	// PollInterval overrides attempt cadence (tests); zero uses per-mode
	// defaults.
	PollInterval time.Duration
}

// Manager owns all acquisition attempts. It enforces single-flight per
// variant and first-resolution-wins across variants: when an interactive and
// a silent attempt both resolve, only the first writes a credential and only
// the first reports success.
type Manager struct {
	cfg ManagerConfig

	mu                sync.Mutex
	interactiveActive bool
	silentActive      bool
	generation        int // bumped each time credentials are invalidated
	resolvedGen       int // generation of the last committed resolution
}

func NewManager(cfg ManagerConfig) *Manager {
	if cfg.SilentTimeout <= 0 {
		cfg.SilentTimeout = DefaultSilentTimeout
	}
	return &Manager{cfg: cfg, generation: 1}
}

// Invalidate marks the current login generation dead. Call after clearing
// credentials so the next resolution is accepted as the first for the new
// generation.
func (m *Manager) Invalidate() {
	m.mu.Lock()
	m.generation++
	m.mu.Unlock()
}

// InteractiveActive reports whether an interactive attempt is in flight.
func (m *Manager) InteractiveActive() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.interactiveActive
}

// StartInteractive opens a visible login window and reports the outcome via
// done, called exactly once from a separate goroutine. A second start while
// one is active returns ErrAttemptActive and leaves the existing window as
// the single interactive flow.
func (m *Manager) StartInteractive(ctx context.Context, done func(credentials.Credential, error)) error {
	m.mu.Lock()
	if m.interactiveActive {
		m.mu.Unlock()
		return ErrAttemptActive
	}
	m.interactiveActive = true
	gen := m.generation
	m.mu.Unlock()

	go func() {
		cred, err := m.runSurfaceAttempt(ctx, Interactive, gen)
		m.mu.Lock()
		m.interactiveActive = false
		m.mu.Unlock()
		done(cred, err)
	}()
	return nil
}

// StartSilent attempts background acquisition: first from passive cookie
// sources, then via a hidden surface bounded by the silent timeout. done is
// called exactly once from a separate goroutine; ErrTimeout means the caller
// should fall back to interactive login.
func (m *Manager) StartSilent(ctx context.Context, done func(credentials.Credential, error)) error {
	m.mu.Lock()
	if m.silentActive {
		m.mu.Unlock()
		return ErrAttemptActive
	}
	m.silentActive = true
	gen := m.generation
	m.mu.Unlock()

	go func() {
		cred, err := m.runSilent(ctx, gen)
		m.mu.Lock()
		m.silentActive = false
		m.mu.Unlock()
		done(cred, err)
	}()
	return nil
}

func (m *Manager) runSilent(ctx context.Context, gen int) (credentials.Credential, error) {
	if m.cfg.ImportCookie != nil {
		if sessionKey, ok := m.cfg.ImportCookie(ctx); ok {
			resolveCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
			orgID, err := m.cfg.Resolver.ResolveOrganizationID(resolveCtx, sessionKey)
			cancel()
			if err == nil {
				cred := credentials.Credential{SessionKey: sessionKey, OrganizationID: orgID}
				return m.commit(gen, cred, nil)
			}
			log.Printf("[login] imported cookie did not resolve: %v", err)
		}
	}

	return m.runSurfaceAttempt(ctx, Silent, gen)
}

func (m *Manager) runSurfaceAttempt(ctx context.Context, mode Mode, gen int) (credentials.Credential, error) {
	surface, err := m.cfg.Surfaces(ctx, mode == Interactive)
	if err != nil {
		return credentials.Credential{}, err
	}

	attempt := NewAttempt(AttemptConfig{
		Mode:         mode,
		Surface:      surface,
		Resolver:     m.cfg.Resolver,
		Domain:       m.cfg.Domain,
		CookieName:   m.cfg.CookieName,
		PollInterval: m.cfg.PollInterval,
		Deadline:     m.silentDeadline(mode),
	})

	cred, err := attempt.Run(ctx)
	return m.commit(gen, cred, err)
}

func (m *Manager) silentDeadline(mode Mode) time.Duration {
	if mode == Silent {
		return m.cfg.SilentTimeout
	}
	return 0
}

// commit persists a resolved credential if this generation has not already
// been satisfied. A losing concurrent resolution is discarded without a
// write so exactly one login-success can be observed per generation.
func (m *Manager) commit(gen int, cred credentials.Credential, err error) (credentials.Credential, error) {
	if err != nil {
		return credentials.Credential{}, err
	}

	m.mu.Lock()
	if m.resolvedGen >= gen {
		m.mu.Unlock()
		log.Printf("[login] discarding superseded resolution (gen=%d)", gen)
		return credentials.Credential{}, ErrSuperseded
	}
	m.resolvedGen = gen
	m.mu.Unlock()

	if err := m.cfg.Store.Set(cred); err != nil {
		return credentials.Credential{}, err
	}
	return cred, nil
}
