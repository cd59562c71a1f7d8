// Package login acquires session credentials by driving a navigable browser
// surface: a visible window the user logs into, or a hidden one that rides
// an existing browser-level session. Both variants watch the surface's
// cookie jar for the provider session cookie and exchange it for a verified
// account identifier.
package login

import (
	"context"
	"errors"
	"time"
)

type Mode int

const (
	// Interactive opens a visible window; the user authenticates manually.
	Interactive Mode = iota
	// Silent runs hidden and relies on an existing session (e.g. prior
	// OAuth) to produce a valid cookie without user interaction.
	Silent
)

func (m Mode) String() string {
	if m == Silent {
		return "silent"
	}
	return "interactive"
}

// PollInterval is the safety-net cadence for cookie checks, used alongside
// load/navigation events in case a session becomes ready without either.
func (m Mode) PollInterval() time.Duration {
	if m == Silent {
		return time.Second
	}
	return 2 * time.Second
}

// DefaultSilentTimeout bounds a silent attempt before falling back to
// interactive login.
const DefaultSilentTimeout = 15 * time.Second

type State int

const (
	StateIdle State = iota
	StatePolling
	StateResolved
	StateAbandoned
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StatePolling:
		return "polling"
	case StateResolved:
		return "resolved"
	default:
		return "abandoned"
	}
}

var (
	// ErrTimeout means a silent attempt's deadline elapsed without a
	// resolution. Expected, non-fatal; the caller falls back to interactive.
	ErrTimeout = errors.New("login: deadline elapsed")

	// ErrSurfaceClosed means the surface went away externally, e.g. the user
	// closed the login window.
	ErrSurfaceClosed = errors.New("login: surface closed")

	// ErrAttemptActive means an attempt of the same variant is already in
	// flight; the existing one is kept rather than duplicated.
	ErrAttemptActive = errors.New("login: attempt already active")

	// ErrSuperseded means another attempt resolved first; this attempt's
	// result was discarded and no credential was written.
	ErrSuperseded = errors.New("login: superseded by earlier resolution")
)

// AccountResolver exchanges a raw session token for the account identifier
// it belongs to.
type AccountResolver interface {
	ResolveOrganizationID(ctx context.Context, sessionKey string) (string, error)
}
