// Package browser provides the navigable web surfaces the login flows drive:
// a real Chrome window (visible for interactive login, headless for silent
// recovery) plus passive cookie sources that can satisfy a silent login
// without opening a surface at all.
package browser

import "context"

type EventKind int

const (
	// EventLoadFinished fires when a page finishes loading.
	EventLoadFinished EventKind = iota
	// EventNavigated fires when the top frame navigates to a new URL.
	EventNavigated
)

type Event struct {
	Kind EventKind
	URL  string
}

// Surface is a navigable web view. Implementations must guarantee that no
// event is delivered and no cookie read succeeds after Done is closed.
type Surface interface {
	// Events emits load and navigation events. No event arrives after Done
	// closes; select on both.
	Events() <-chan Event

	// Cookie reads a cookie by domain and name from the surface's jar.
	Cookie(ctx context.Context, domain, name string) (string, bool, error)

	// ClearCookie removes a cookie, best-effort.
	ClearCookie(ctx context.Context, domain, name string) error

	// Close tears the surface down. Safe to call more than once.
	Close()

	// Done is closed once the surface is gone, whether via Close or because
	// the user closed the window.
	Done() <-chan struct{}
}
