package login

import (
	"context"
	"log"
	"strings"
	"sync"
	"time"

	"github.com/setoncarmichael/claude-usage-widget/internal/browser"
	"github.com/setoncarmichael/claude-usage-widget/internal/credentials"
)

// AttemptConfig parameterizes one acquisition flow. The interactive and
// silent variants share this machinery; they differ only in mode, surface
// visibility (decided by the caller when opening the surface) and deadline.
type AttemptConfig struct {
	Mode       Mode
	Surface    browser.Surface
	Resolver   AccountResolver
	Domain     string // cookie domain to watch, e.g. "claude.ai"
	CookieName string // e.g. "sessionKey"

	// PollInterval overrides the mode's default cadence (tests).
	PollInterval time.Duration
	// Deadline bounds the attempt; zero means unbounded (interactive).
	Deadline time.Duration
}

// Attempt is one login flow against one surface.
//
// State machine: Idle → Polling on Run; Polling → Resolved when the session
// cookie is present and resolves to an account; Polling → Abandoned on
// deadline, surface closure, or context cancellation. Cookie checks fire on
// every load/navigation event and on the poll cadence, and are serialized:
// a tick is dropped while a prior check's network round-trip is pending.
type Attempt struct {
	cfg AttemptConfig

	mu       sync.Mutex
	state    State
	inFlight bool
}

func NewAttempt(cfg AttemptConfig) *Attempt {
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = cfg.Mode.PollInterval()
	}
	if cfg.Mode == Silent && cfg.Deadline <= 0 {
		cfg.Deadline = DefaultSilentTimeout
	}
	return &Attempt{cfg: cfg, state: StateIdle}
}

func (a *Attempt) State() State {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.state
}

type checkResult struct {
	cred credentials.Credential
	ok   bool
}

// Run drives the attempt until it settles. On success the surface is closed
// and the acquired credential returned. The returned error is ErrTimeout for
// an elapsed silent deadline, ErrSurfaceClosed when the surface disappears,
// or the context error on cancellation.
func (a *Attempt) Run(ctx context.Context) (credentials.Credential, error) {
	a.setState(StatePolling)
	log.Printf("[login] %s attempt polling (interval=%v deadline=%v)",
		a.cfg.Mode, a.cfg.PollInterval, a.cfg.Deadline)

	ticker := time.NewTicker(a.cfg.PollInterval)
	defer ticker.Stop()

	var deadlineC <-chan time.Time
	if a.cfg.Deadline > 0 {
		deadline := time.NewTimer(a.cfg.Deadline)
		defer deadline.Stop()
		deadlineC = deadline.C
	}

	results := make(chan checkResult, 1)

	// Check immediately: the surface may already carry a valid session.
	a.startCheck(ctx, results)

	for {
		select {
		case <-ctx.Done():
			a.abandon("context cancelled")
			return credentials.Credential{}, ctx.Err()

		case <-a.cfg.Surface.Done():
			a.abandon("surface closed")
			return credentials.Credential{}, ErrSurfaceClosed

		case <-deadlineC:
			a.abandon("deadline elapsed")
			a.cfg.Surface.Close()
			return credentials.Credential{}, ErrTimeout

		case ev := <-a.cfg.Surface.Events():
			if a.eventRelevant(ev) {
				a.startCheck(ctx, results)
			}

		case <-ticker.C:
			a.startCheck(ctx, results)

		case res := <-results:
			a.finishCheck()
			if res.ok {
				a.setState(StateResolved)
				a.cfg.Surface.Close()
				log.Printf("[login] %s attempt resolved", a.cfg.Mode)
				return res.cred, nil
			}
		}
	}
}

// eventRelevant ignores navigation to third-party pages (OAuth providers
// and the like); the cookie only appears under the provider's domain.
func (a *Attempt) eventRelevant(ev browser.Event) bool {
	if ev.Kind == browser.EventNavigated && ev.URL != "" {
		return strings.Contains(ev.URL, a.cfg.Domain)
	}
	return true
}

// startCheck launches one cookie-and-resolve round-trip unless one is
// already pending. The guard keeps polls serialized so two checks can never
// race to produce two credentials from one attempt.
func (a *Attempt) startCheck(ctx context.Context, results chan<- checkResult) {
	a.mu.Lock()
	if a.state != StatePolling || a.inFlight {
		a.mu.Unlock()
		return
	}
	a.inFlight = true
	a.mu.Unlock()

	go func() {
		results <- a.check(ctx)
	}()
}

func (a *Attempt) check(ctx context.Context) checkResult {
	checkCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	sessionKey, found, err := a.cfg.Surface.Cookie(checkCtx, a.cfg.Domain, a.cfg.CookieName)
	if err != nil {
		log.Printf("[login] %s cookie check failed: %v", a.cfg.Mode, err)
		return checkResult{}
	}
	if !found || sessionKey == "" {
		return checkResult{}
	}

	// Cookie present but the account may not be queryable yet; resolution
	// failure keeps the attempt polling rather than failing it.
	orgID, err := a.cfg.Resolver.ResolveOrganizationID(checkCtx, sessionKey)
	if err != nil {
		log.Printf("[login] %s account resolution not ready: %v", a.cfg.Mode, err)
		return checkResult{}
	}

	return checkResult{
		cred: credentials.Credential{SessionKey: sessionKey, OrganizationID: orgID},
		ok:   true,
	}
}

func (a *Attempt) finishCheck() {
	a.mu.Lock()
	a.inFlight = false
	a.mu.Unlock()
}

func (a *Attempt) setState(s State) {
	a.mu.Lock()
	a.state = s
	a.mu.Unlock()
}

func (a *Attempt) abandon(reason string) {
	a.setState(StateAbandoned)
	log.Printf("[login] %s attempt abandoned: %s", a.cfg.Mode, reason)
}
