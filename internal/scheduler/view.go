package scheduler

import (
	"time"

	"github.com/setoncarmichael/claude-usage-widget/internal/claude"
)

// WindowView is a rate window rendered for display.
type WindowView struct {
	// Percent is utilization clamped to [0, 100].
	Percent float64
	// Remaining is the formatted time until reset, claude.NoResetPlaceholder
	// when the window carries no reset timestamp.
	Remaining string
	// ElapsedPercent is how far through the window's span the clock is,
	// -1 when unknown.
	ElapsedPercent float64
	Expired        bool
	NoReset        bool
}

// Snapshot is everything the widget needs to draw one frame of usage data.
type Snapshot struct {
	Session WindowView
	Weekly  WindowView
	NoUsage bool
	At      time.Time
}

// BuildSnapshot projects usage onto display values at the given instant.
func BuildSnapshot(u *claude.Usage, now time.Time) Snapshot {
	return Snapshot{
		Session: buildWindowView(u.FiveHour, claude.SessionSpan, now),
		Weekly:  buildWindowView(u.SevenDay, claude.WeeklySpan, now),
		NoUsage: u.NoUsageYet(),
		At:      now,
	}
}

func buildWindowView(w claude.Window, span time.Duration, now time.Time) WindowView {
	v := WindowView{
		Percent:        w.Clamped(),
		ElapsedPercent: w.ElapsedPercent(now, span),
		NoReset:        w.ResetsAt == nil,
	}
	remaining, ok := w.Remaining(now)
	switch {
	case !ok:
		v.Remaining = claude.NoResetPlaceholder
	case remaining <= 0:
		v.Expired = true
		v.Remaining = claude.FormatRemaining(0)
	default:
		v.Remaining = claude.FormatRemaining(remaining)
	}
	return v
}
