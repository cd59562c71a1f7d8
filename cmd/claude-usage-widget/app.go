package main

import (
	"context"
	"net/url"

	"github.com/setoncarmichael/claude-usage-widget/internal/browser"
	"github.com/setoncarmichael/claude-usage-widget/internal/claude"
	"github.com/setoncarmichael/claude-usage-widget/internal/config"
	"github.com/setoncarmichael/claude-usage-widget/internal/credentials"
	"github.com/setoncarmichael/claude-usage-widget/internal/login"
)

func cookieDomain(baseURL string) string {
	u, err := url.Parse(baseURL)
	if err != nil || u.Hostname() == "" {
		return "claude.ai"
	}
	return u.Hostname()
}

// newLoginManager wires the shared-profile Chrome surfaces and the system
// cookie importer into the acquisition manager.
func newLoginManager(cfg config.Config, client *claude.Client, store *credentials.Store) *login.Manager {
	domain := cookieDomain(cfg.BaseURL)

	return login.NewManager(login.ManagerConfig{
		Surfaces: func(ctx context.Context, visible bool) (browser.Surface, error) {
			return browser.OpenChrome(ctx, browser.Options{
				Visible:     visible,
				URL:         cfg.BaseURL,
				UserDataDir: browser.ProfileDir(),
			})
		},
		Resolver:   client,
		Store:      store,
		Domain:     domain,
		CookieName: claude.SessionCookieName,
		ImportCookie: func(ctx context.Context) (string, bool) {
			imported, ok := browser.ImportSessionCookie(ctx, domain, claude.SessionCookieName)
			if !ok {
				return "", false
			}
			return imported.Value, true
		},
		SilentTimeout: cfg.SilentLoginTimeout(),
	})
}

// clearSessionCookie drops the session cookie from the shared browser
// profile so the next login starts clean.
func clearSessionCookie(cfg config.Config) func(ctx context.Context) error {
	return func(ctx context.Context) error {
		surface, err := browser.OpenChrome(ctx, browser.Options{
			URL:         cfg.BaseURL,
			UserDataDir: browser.ProfileDir(),
		})
		if err != nil {
			return err
		}
		defer surface.Close()
		return surface.ClearCookie(ctx, cookieDomain(cfg.BaseURL), claude.SessionCookieName)
	}
}
