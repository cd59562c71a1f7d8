package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/samber/lo"

	"github.com/setoncarmichael/claude-usage-widget/internal/appupdate"
	"github.com/setoncarmichael/claude-usage-widget/internal/claude"
	"github.com/setoncarmichael/claude-usage-widget/internal/config"
	"github.com/setoncarmichael/claude-usage-widget/internal/credentials"
	"github.com/setoncarmichael/claude-usage-widget/internal/history"
	"github.com/setoncarmichael/claude-usage-widget/internal/scheduler"
	"github.com/setoncarmichael/claude-usage-widget/internal/session"
	"github.com/setoncarmichael/claude-usage-widget/internal/settings"
	"github.com/setoncarmichael/claude-usage-widget/internal/tui"
	"github.com/setoncarmichael/claude-usage-widget/internal/version"
)

const historyRetention = 30 * 24 * time.Hour

func runWidget(cfg config.Config) {
	prefs, err := settings.Load()
	if err != nil {
		log.Printf("[widget] settings load failed, using defaults: %v", err)
		prefs = settings.DefaultSettings()
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	store := credentials.NewStore()
	client := claude.NewClient(cfg.BaseURL)
	logins := newLoginManager(cfg, client, store)

	events := tui.NewEvents()

	hist, err := history.OpenStore(filepath.Join(config.ConfigDir(), "history.db"))
	if err != nil {
		log.Printf("[widget] history store unavailable: %v", err)
		hist = nil
	} else {
		defer hist.Close()
		if removed, err := hist.Prune(ctx, historyRetention); err != nil {
			log.Printf("[widget] history prune failed: %v", err)
		} else if removed > 0 {
			log.Printf("[widget] pruned %d old history snapshots", removed)
		}
		pushHistory(ctx, hist, events)
	}

	notifier := session.Fanout{events, &usageRecorder{ctx: ctx, hist: hist, events: events}}

	monitor := session.NewMonitor(session.MonitorConfig{
		Store:         store,
		Logins:        logins,
		Notifier:      notifier,
		CookieClearer: clearSessionCookie(cfg),
	})

	sched := scheduler.New(scheduler.Config{
		Fetch: func(ctx context.Context) (*claude.Usage, error) {
			cred, ok := store.Get()
			if !ok {
				return nil, claude.ErrUnauthorized
			}
			return client.FetchUsage(ctx, cred.SessionKey, cred.OrganizationID)
		},
		Notifier:          notifier,
		OnAuthError:       monitor.HandleAuthError,
		OnCountdown:       events.Countdown,
		RefreshInterval:   cfg.RefreshInterval(),
		CountdownInterval: cfg.CountdownInterval(),
		SettleDelay:       cfg.SettleDelay(),
	})
	monitor.OnAuthChanged(sched.SetAuthenticated)

	model := tui.NewModel(prefs, cfg.UI.WarnThreshold, cfg.UI.CritThreshold, events)
	model.SetOnRefresh(sched.RequestRefresh)
	model.SetOnLogin(func() { monitor.RequestLogin(ctx) })
	model.SetOnLogout(func() { go monitor.Logout(ctx) })

	if err := settings.Watch(ctx, settings.Path(), events.SettingsChanged); err != nil {
		log.Printf("[widget] settings watch unavailable: %v", err)
	}

	if cfg.App.CheckUpdates {
		go func() {
			result, err := appupdate.Check(ctx, appupdate.CheckOptions{CurrentVersion: version.Version})
			if err != nil {
				log.Printf("[widget] update check failed: %v", err)
				return
			}
			if result.UpdateAvailable {
				log.Printf("[widget] update available: %s (current %s), upgrade with: %s",
					result.LatestVersion, result.CurrentVersion, result.UpgradeHint)
			}
		}()
	}

	go sched.Run(ctx)
	monitor.Start(ctx)

	program := tea.NewProgram(model, tea.WithAltScreen())

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		cancel()
		program.Quit()
	}()

	if _, err := program.Run(); err != nil {
		log.SetOutput(os.Stderr)
		log.Fatalf("widget error: %v", err)
	}
}

// usageRecorder persists each successful fetch and refreshes the sparkline
// series. The embedded Fanout supplies no-op handlers for the rest of the
// lifecycle events.
type usageRecorder struct {
	session.Fanout
	ctx    context.Context
	hist   *history.Store
	events *tui.Events
}

func (r *usageRecorder) UsageUpdated(usage *claude.Usage) {
	if r.hist == nil {
		return
	}
	if err := r.hist.Record(r.ctx, usage); err != nil {
		log.Printf("[widget] history record failed: %v", err)
		return
	}
	pushHistory(r.ctx, r.hist, r.events)
}

func pushHistory(ctx context.Context, hist *history.Store, events *tui.Events) {
	snapshots, err := hist.Recent(ctx, 120)
	if err != nil {
		log.Printf("[widget] history read failed: %v", err)
		return
	}
	if len(snapshots) == 0 {
		return
	}
	// Recent returns newest first; the sparkline wants oldest first.
	values := lo.Map(lo.Reverse(snapshots), func(s history.Snapshot, _ int) float64 {
		return s.Session.Clamped()
	})
	events.History(values)
}
