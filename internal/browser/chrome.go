package browser

import (
	"context"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/chromedp/cdproto/network"
	"github.com/chromedp/cdproto/page"
	"github.com/chromedp/cdproto/storage"
	"github.com/chromedp/chromedp"

	"github.com/setoncarmichael/claude-usage-widget/internal/config"
)

type Options struct {
	// Visible opens a regular window the user can interact with; otherwise
	// the browser runs headless.
	Visible bool
	// URL is loaded immediately after the surface starts.
	URL string
	// UserDataDir holds the browser profile. Sharing one dir across
	// interactive and silent surfaces is what makes silent re-login work:
	// the profile keeps the provider's OAuth session between runs.
	UserDataDir string
}

// ProfileDir is the default shared Chrome profile location.
func ProfileDir() string {
	return filepath.Join(config.ConfigDir(), "browser-profile")
}

// ChromeSurface drives a Chrome instance over the DevTools protocol.
type ChromeSurface struct {
	ctx         context.Context
	cancel      context.CancelFunc
	allocCancel context.CancelFunc

	events chan Event
	done   chan struct{}

	closeOnce sync.Once
}

// OpenChrome launches Chrome, navigates to opts.URL, and begins relaying
// load/navigation events. The surface closes when Close is called, when the
// user closes the browser, or when parent is cancelled.
func OpenChrome(parent context.Context, opts Options) (*ChromeSurface, error) {
	dataDir := opts.UserDataDir
	if dataDir == "" {
		dataDir = ProfileDir()
	}
	if err := os.MkdirAll(dataDir, 0o755); err != nil {
		return nil, fmt.Errorf("creating browser profile dir: %w", err)
	}

	allocOpts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", !opts.Visible),
		chromedp.Flag("disable-gpu", !opts.Visible),
		chromedp.UserDataDir(dataDir),
	)
	if opts.Visible {
		allocOpts = append(allocOpts,
			chromedp.Flag("window-size", "800,700"),
			chromedp.Flag("app", opts.URL),
		)
	}

	allocCtx, allocCancel := chromedp.NewExecAllocator(parent, allocOpts...)
	ctx, cancel := chromedp.NewContext(allocCtx)

	s := &ChromeSurface{
		ctx:         ctx,
		cancel:      cancel,
		allocCancel: allocCancel,
		events:      make(chan Event, 16),
		done:        make(chan struct{}),
	}

	chromedp.ListenTarget(ctx, func(ev interface{}) {
		switch ev := ev.(type) {
		case *page.EventLoadEventFired:
			s.emit(Event{Kind: EventLoadFinished})
		case *page.EventFrameNavigated:
			if ev.Frame.ParentID == "" {
				s.emit(Event{Kind: EventNavigated, URL: ev.Frame.URL})
			}
		}
	})

	if err := chromedp.Run(ctx, chromedp.Navigate(opts.URL)); err != nil {
		cancel()
		allocCancel()
		return nil, fmt.Errorf("starting browser: %w", err)
	}

	go func() {
		<-ctx.Done()
		s.closeOnce.Do(func() { close(s.done) })
		log.Printf("[browser] surface closed (visible=%v)", opts.Visible)
	}()

	return s, nil
}

func (s *ChromeSurface) emit(ev Event) {
	select {
	case <-s.ctx.Done():
	case s.events <- ev:
	default:
		// A slow consumer loses an event; the poll cadence covers the gap.
	}
}

func (s *ChromeSurface) Events() <-chan Event {
	return s.events
}

func (s *ChromeSurface) Done() <-chan struct{} {
	return s.done
}

// Cookie reads a cookie from the running browser's jar.
func (s *ChromeSurface) Cookie(ctx context.Context, domain, name string) (string, bool, error) {
	select {
	case <-s.done:
		return "", false, fmt.Errorf("browser: surface closed")
	default:
	}

	var value string
	var found bool
	err := chromedp.Run(s.ctx, chromedp.ActionFunc(func(cdpCtx context.Context) error {
		cookies, err := storage.GetCookies().Do(cdpCtx)
		if err != nil {
			return err
		}
		for _, c := range cookies {
			if c.Name == name && strings.Contains(c.Domain, domain) {
				value = c.Value
				found = true
				return nil
			}
		}
		return nil
	}))
	if err != nil {
		return "", false, fmt.Errorf("reading cookies: %w", err)
	}
	return value, found, nil
}

// ClearCookie deletes a cookie from the browser profile.
func (s *ChromeSurface) ClearCookie(ctx context.Context, domain, name string) error {
	select {
	case <-s.done:
		return fmt.Errorf("browser: surface closed")
	default:
	}

	err := chromedp.Run(s.ctx, chromedp.ActionFunc(func(cdpCtx context.Context) error {
		return network.DeleteCookies(name).WithDomain(domain).Do(cdpCtx)
	}))
	if err != nil {
		return fmt.Errorf("clearing cookie %s: %w", name, err)
	}
	return nil
}

func (s *ChromeSurface) Close() {
	s.cancel()
	s.allocCancel()
}
