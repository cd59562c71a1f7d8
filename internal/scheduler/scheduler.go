// Package scheduler drives the two timing loops behind the widget: the
// periodic usage fetch while a session is authenticated, and the per-second
// countdown recomputation that keeps the reset timers live between fetches.
package scheduler

import (
	"context"
	"errors"
	"log"
	"sync"
	"time"

	"github.com/setoncarmichael/claude-usage-widget/internal/claude"
	"github.com/setoncarmichael/claude-usage-widget/internal/session"
)

type Config struct {
	// Fetch performs one authenticated usage fetch.
	Fetch func(ctx context.Context) (*claude.Usage, error)

	// Notifier receives usage-updated, fetch-failed and refresh-requested
	// events.
	Notifier session.Notifier

	// OnAuthError is invoked when a fetch classifies as unauthorized; the
	// session monitor owns what happens next.
	OnAuthError func(ctx context.Context)

	// OnCountdown receives the recomputed display snapshot every countdown
	// tick. Optional.
	OnCountdown func(Snapshot)

	RefreshInterval   time.Duration // default 5m
	CountdownInterval time.Duration // default 1s
	SettleDelay       time.Duration // default 3s

	// Now is the clock; defaults to time.Now.
	Now func() time.Time
}

type Scheduler struct {
	cfg Config
	now func() time.Time

	mu            sync.Mutex
	usage         *claude.Usage
	authenticated bool
	sessionLatch  bool
	weeklyLatch   bool

	authCh  chan bool
	fetchCh chan struct{}
}

func New(cfg Config) *Scheduler {
	if cfg.RefreshInterval <= 0 {
		cfg.RefreshInterval = 5 * time.Minute
	}
	if cfg.CountdownInterval <= 0 {
		cfg.CountdownInterval = time.Second
	}
	if cfg.SettleDelay <= 0 {
		cfg.SettleDelay = 3 * time.Second
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	if cfg.Notifier == nil {
		cfg.Notifier = session.Fanout{}
	}
	return &Scheduler{
		cfg:     cfg,
		now:     cfg.Now,
		authCh:  make(chan bool, 8),
		fetchCh: make(chan struct{}, 1),
	}
}

// SetAuthenticated resumes or suspends the fetch loop. Entering the
// authenticated state triggers an immediate fetch.
func (s *Scheduler) SetAuthenticated(ok bool) {
	select {
	case s.authCh <- ok:
	default:
		// The loop is behind; the latest state still arrives via the
		// buffered sends ahead of this one.
	}
}

// RequestRefresh triggers an immediate fetch on explicit user action.
func (s *Scheduler) RequestRefresh() {
	s.cfg.Notifier.RefreshRequested()
	s.enqueueFetch()
}

func (s *Scheduler) enqueueFetch() {
	select {
	case s.fetchCh <- struct{}{}:
	default:
		// A fetch is already queued.
	}
}

// Usage returns the last fetched usage, or nil before the first success.
func (s *Scheduler) Usage() *claude.Usage {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.usage
}

// Run owns both loops until ctx is cancelled.
func (s *Scheduler) Run(ctx context.Context) {
	fetchTicker := time.NewTicker(s.cfg.RefreshInterval)
	defer fetchTicker.Stop()
	countdown := time.NewTicker(s.cfg.CountdownInterval)
	defer countdown.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Printf("[scheduler] stopping")
			return

		case authed := <-s.authCh:
			s.mu.Lock()
			was := s.authenticated
			s.authenticated = authed
			s.mu.Unlock()
			if authed && !was {
				s.doFetch(ctx)
				fetchTicker.Reset(s.cfg.RefreshInterval)
			}

		case <-fetchTicker.C:
			if s.isAuthenticated() {
				s.doFetch(ctx)
			}

		case <-s.fetchCh:
			if s.isAuthenticated() {
				s.doFetch(ctx)
				fetchTicker.Reset(s.cfg.RefreshInterval)
			}

		case <-countdown.C:
			snap, ok, expired := s.Tick(s.now())
			if !ok {
				continue
			}
			if expired {
				// One settle-delayed fetch per expiry; the latch in Tick
				// guarantees this cannot re-arm during the delay.
				log.Printf("[scheduler] window expired, refreshing in %v", s.cfg.SettleDelay)
				time.AfterFunc(s.cfg.SettleDelay, s.enqueueFetch)
			}
			if s.cfg.OnCountdown != nil {
				s.cfg.OnCountdown(snap)
			}
		}
	}
}

func (s *Scheduler) isAuthenticated() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.authenticated
}

func (s *Scheduler) doFetch(ctx context.Context) {
	fetchCtx, cancel := context.WithTimeout(ctx, 15*time.Second)
	defer cancel()

	usage, err := s.cfg.Fetch(fetchCtx)
	if err != nil {
		if errors.Is(err, claude.ErrUnauthorized) {
			log.Printf("[scheduler] fetch unauthorized, handing off to session monitor")
			if s.cfg.OnAuthError != nil {
				s.cfg.OnAuthError(ctx)
			}
			return
		}
		// Transient: keep the credential and whatever data we already show.
		log.Printf("[scheduler] fetch failed: %v", err)
		s.cfg.Notifier.FetchFailed(err)
		return
	}

	s.mu.Lock()
	s.usage = usage
	s.mu.Unlock()

	s.cfg.Notifier.UsageUpdated(usage)
}

// Tick recomputes the display snapshot for the given instant. It reports
// (snapshot, usage present, expiry refresh due). Recomputation is free of
// side effects apart from the one-shot expiry latches: for a fixed clock
// value, repeated calls return identical snapshots and request at most one
// refresh in total.
func (s *Scheduler) Tick(now time.Time) (Snapshot, bool, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.usage == nil {
		return Snapshot{}, false, false
	}

	expired := updateLatch(&s.sessionLatch, s.usage.FiveHour, now)
	expired = updateLatch(&s.weeklyLatch, s.usage.SevenDay, now) || expired

	return BuildSnapshot(s.usage, now), true, expired
}

// updateLatch arms once per expiry event and re-arms only when the window's
// remaining time goes positive again after a refresh.
func updateLatch(latch *bool, w claude.Window, now time.Time) bool {
	if !w.Expired(now) {
		*latch = false
		return false
	}
	if *latch {
		return false
	}
	*latch = true
	return true
}
