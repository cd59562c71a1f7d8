package browser

import (
	"context"
	"log"

	"github.com/browserutils/kooky"
	_ "github.com/browserutils/kooky/browser/all" // register cookie store finders
)

// ImportedCookie is a session cookie recovered from outside the widget: the
// Claude desktop app or an installed browser the user is already logged
// into. Silent login tries these before spinning up a hidden surface.
type ImportedCookie struct {
	Value  string
	Source string
}

// ImportSessionCookie looks for a sessionKey cookie in passive sources.
// Desktop app cookies win over browser jars because the desktop app session
// is the one most likely to still be valid.
func ImportSessionCookie(ctx context.Context, domain, name string) (ImportedCookie, bool) {
	if value, err := readDesktopAppCookie(domain, name); err == nil {
		log.Printf("[browser] imported %s cookie from desktop app", name)
		return ImportedCookie{Value: value, Source: "desktop-app"}, true
	} else {
		log.Printf("[browser] desktop app cookie unavailable: %v", err)
	}

	cookies, err := kooky.ReadCookies(ctx, kooky.Valid, kooky.DomainContains(domain), kooky.Name(name))
	if err != nil {
		log.Printf("[browser] browser cookie jars unavailable: %v", err)
		return ImportedCookie{}, false
	}

	// Several browsers may hold the cookie; prefer the freshest session.
	var best *kooky.Cookie
	for _, c := range cookies {
		if c.Value == "" {
			continue
		}
		if best == nil || c.Expires.After(best.Expires) {
			best = c
		}
	}
	if best == nil {
		return ImportedCookie{}, false
	}

	source := "browser"
	if best.Browser != nil {
		source = best.Browser.Browser()
	}
	log.Printf("[browser] imported %s cookie from %s", name, source)
	return ImportedCookie{Value: best.Value, Source: source}, true
}
