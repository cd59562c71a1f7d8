package login

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/setoncarmichael/claude-usage-widget/internal/browser"
	"github.com/setoncarmichael/claude-usage-widget/internal/credentials"
)

type surfaceRecorder struct {
	mu       sync.Mutex
	surfaces []*fakeSurface
	visible  []bool
}

func (r *surfaceRecorder) factory(prepare func(*fakeSurface, bool)) SurfaceFactory {
	return func(ctx context.Context, visible bool) (browser.Surface, error) {
		s := newFakeSurface()
		if prepare != nil {
			prepare(s, visible)
		}
		r.mu.Lock()
		r.surfaces = append(r.surfaces, s)
		r.visible = append(r.visible, visible)
		r.mu.Unlock()
		return s, nil
	}
}

func (r *surfaceRecorder) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.surfaces)
}

func newTestManager(t *testing.T, cfg ManagerConfig) (*Manager, *credentials.Store) {
	t.Helper()
	store := credentials.NewStoreAt(filepath.Join(t.TempDir(), "credentials.json"))
	cfg.Store = store
	if cfg.Domain == "" {
		cfg.Domain = "claude.ai"
	}
	if cfg.CookieName == "" {
		cfg.CookieName = "sessionKey"
	}
	if cfg.PollInterval == 0 {
		cfg.PollInterval = 10 * time.Millisecond
	}
	return NewManager(cfg), store
}

func TestManager_InteractiveSingleFlight(t *testing.T) {
	rec := &surfaceRecorder{}
	m, _ := newTestManager(t, ManagerConfig{
		Surfaces: rec.factory(nil),
		Resolver: &fakeResolver{},
	})

	done := func(credentials.Credential, error) {}
	if err := m.StartInteractive(context.Background(), done); err != nil {
		t.Fatalf("first start: %v", err)
	}

	// Give the goroutine a moment to open its surface.
	time.Sleep(30 * time.Millisecond)

	if err := m.StartInteractive(context.Background(), done); !errors.Is(err, ErrAttemptActive) {
		t.Fatalf("second start: expected ErrAttemptActive, got %v", err)
	}
	if rec.count() != 1 {
		t.Errorf("expected one surface, got %d", rec.count())
	}
}

func TestManager_SilentTimeoutFallsThrough(t *testing.T) {
	rec := &surfaceRecorder{}
	m, store := newTestManager(t, ManagerConfig{
		Surfaces:      rec.factory(nil), // cookie never appears
		Resolver:      &fakeResolver{},
		SilentTimeout: 50 * time.Millisecond,
	})

	errCh := make(chan error, 1)
	err := m.StartSilent(context.Background(), func(_ credentials.Credential, err error) {
		errCh <- err
	})
	if err != nil {
		t.Fatalf("start silent: %v", err)
	}

	select {
	case err := <-errCh:
		if !errors.Is(err, ErrTimeout) {
			t.Fatalf("expected ErrTimeout, got %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("silent attempt never settled")
	}
	if _, ok := store.Get(); ok {
		t.Error("no credential should be written by an abandoned attempt")
	}
}

func TestManager_SilentUsesImportedCookie(t *testing.T) {
	rec := &surfaceRecorder{}
	m, store := newTestManager(t, ManagerConfig{
		Surfaces: rec.factory(nil),
		Resolver: &fakeResolver{orgs: map[string]string{"sk-imported": "org-9"}},
		ImportCookie: func(ctx context.Context) (string, bool) {
			return "sk-imported", true
		},
	})

	credCh := make(chan credentials.Credential, 1)
	err := m.StartSilent(context.Background(), func(cred credentials.Credential, err error) {
		if err != nil {
			t.Errorf("unexpected error: %v", err)
		}
		credCh <- cred
	})
	if err != nil {
		t.Fatalf("start silent: %v", err)
	}

	select {
	case cred := <-credCh:
		if cred.OrganizationID != "org-9" {
			t.Errorf("unexpected credential %+v", cred)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("silent attempt never settled")
	}

	// Passive import satisfied the attempt without opening a surface.
	if rec.count() != 0 {
		t.Errorf("expected no surfaces, got %d", rec.count())
	}
	if got, ok := store.Get(); !ok || got.SessionKey != "sk-imported" {
		t.Errorf("expected persisted credential, got %+v (ok=%v)", got, ok)
	}
}

func TestManager_ImportedCookieThatFailsResolutionFallsBack(t *testing.T) {
	rec := &surfaceRecorder{}
	m, _ := newTestManager(t, ManagerConfig{
		Surfaces:      rec.factory(nil),
		Resolver:      &fakeResolver{}, // nothing resolves
		SilentTimeout: 50 * time.Millisecond,
		ImportCookie: func(ctx context.Context) (string, bool) {
			return "sk-stale", true
		},
	})

	errCh := make(chan error, 1)
	if err := m.StartSilent(context.Background(), func(_ credentials.Credential, err error) {
		errCh <- err
	}); err != nil {
		t.Fatalf("start silent: %v", err)
	}

	select {
	case err := <-errCh:
		if !errors.Is(err, ErrTimeout) {
			t.Fatalf("expected ErrTimeout after fallback attempt, got %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("silent attempt never settled")
	}
	// The stale import forced a real hidden-surface attempt.
	if rec.count() != 1 {
		t.Errorf("expected one hidden surface, got %d", rec.count())
	}
}

func TestManager_FirstResolutionWins(t *testing.T) {
	resolver := &fakeResolver{orgs: map[string]string{
		"sk-interactive": "org-interactive",
		"sk-silent":      "org-silent",
	}}

	rec := &surfaceRecorder{}
	m, store := newTestManager(t, ManagerConfig{
		Surfaces: rec.factory(func(s *fakeSurface, visible bool) {
			if !visible {
				// Silent surface has its cookie immediately.
				s.setCookie("sk-silent")
			} else {
				// Interactive cookie appears later.
				go func() {
					time.Sleep(120 * time.Millisecond)
					s.setCookie("sk-interactive")
				}()
			}
		}),
		Resolver:      resolver,
		SilentTimeout: 5 * time.Second,
	})

	type outcome struct {
		cred credentials.Credential
		err  error
	}
	results := make(chan outcome, 2)
	report := func(cred credentials.Credential, err error) {
		results <- outcome{cred, err}
	}

	if err := m.StartInteractive(context.Background(), report); err != nil {
		t.Fatal(err)
	}
	if err := m.StartSilent(context.Background(), report); err != nil {
		t.Fatal(err)
	}

	var wins, losses int
	var winner credentials.Credential
	for i := 0; i < 2; i++ {
		select {
		case o := <-results:
			switch {
			case o.err == nil:
				wins++
				winner = o.cred
			case errors.Is(o.err, ErrSuperseded):
				losses++
			default:
				t.Fatalf("unexpected outcome error: %v", o.err)
			}
		case <-time.After(5 * time.Second):
			t.Fatal("attempts never settled")
		}
	}

	if wins != 1 || losses != 1 {
		t.Fatalf("expected exactly one winner and one superseded, got wins=%d losses=%d", wins, losses)
	}
	stored, ok := store.Get()
	if !ok {
		t.Fatal("expected a persisted credential")
	}
	if stored != winner {
		t.Errorf("store holds %+v but winner was %+v", stored, winner)
	}
	// The silent attempt resolves first (cookie present immediately).
	if winner.OrganizationID != "org-silent" {
		t.Errorf("expected silent resolution to win, got %+v", winner)
	}
}

func TestManager_InvalidateAllowsNewGeneration(t *testing.T) {
	resolver := &fakeResolver{orgs: map[string]string{"sk-1": "org-1", "sk-2": "org-2"}}
	rec := &surfaceRecorder{}

	var cookie string
	var cookieMu sync.Mutex
	m, store := newTestManager(t, ManagerConfig{
		Surfaces: rec.factory(func(s *fakeSurface, visible bool) {
			cookieMu.Lock()
			s.setCookie(cookie)
			cookieMu.Unlock()
		}),
		Resolver: resolver,
	})

	run := func(want string) {
		t.Helper()
		done := make(chan error, 1)
		if err := m.StartSilent(context.Background(), func(_ credentials.Credential, err error) {
			done <- err
		}); err != nil {
			t.Fatal(err)
		}
		if err := <-done; err != nil {
			t.Fatalf("silent attempt failed: %v", err)
		}
		got, ok := store.Get()
		if !ok || got.SessionKey != want {
			t.Fatalf("expected stored session %q, got %+v (ok=%v)", want, got, ok)
		}
	}

	cookieMu.Lock()
	cookie = "sk-1"
	cookieMu.Unlock()
	run("sk-1")

	// Session expired: clear and invalidate, then a fresh silent login.
	if err := store.Clear(); err != nil {
		t.Fatal(err)
	}
	m.Invalidate()

	cookieMu.Lock()
	cookie = "sk-2"
	cookieMu.Unlock()
	run("sk-2")
}
