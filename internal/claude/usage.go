package claude

import (
	"fmt"
	"time"
)

// Window spans for elapsed-percentage math.
const (
	SessionSpan = 5 * time.Hour
	WeeklySpan  = 7 * 24 * time.Hour
)

// Window is one metered quota period as reported by the usage endpoint.
// Utilization is kept raw; the source occasionally reports values outside
// [0,100], so display code must go through Clamped.
type Window struct {
	Utilization float64
	ResetsAt    *time.Time
}

// Clamped returns the utilization bounded to [0,100] for display.
func (w Window) Clamped() float64 {
	switch {
	case w.Utilization < 0:
		return 0
	case w.Utilization > 100:
		return 100
	default:
		return w.Utilization
	}
}

// Remaining returns the time until the window resets, negative if the reset
// is already past, and false if the window has no reset scheduled.
func (w Window) Remaining(now time.Time) (time.Duration, bool) {
	if w.ResetsAt == nil {
		return 0, false
	}
	return w.ResetsAt.Sub(now), true
}

// Expired reports whether the window's reset time has passed.
func (w Window) Expired(now time.Time) bool {
	d, ok := w.Remaining(now)
	return ok && d <= 0
}

// ElapsedPercent returns how much of the window's span has elapsed, in
// [0,100]. Returns -1 when no reset is scheduled.
func (w Window) ElapsedPercent(now time.Time, span time.Duration) float64 {
	remaining, ok := w.Remaining(now)
	if !ok {
		return -1
	}
	if remaining <= 0 {
		return 100
	}
	if remaining >= span {
		return 0
	}
	return float64(span-remaining) / float64(span) * 100
}

// Usage is one full fetch result: the short (5-hour) and long (7-day)
// windows, replaced wholesale on every successful fetch.
type Usage struct {
	FiveHour Window
	SevenDay Window
}

// NoUsageYet reports the "no usage yet" state: both windows idle at zero
// with no reset scheduled. Distinct from an active window at 0% (which has
// a reset time) and from a fetch error (which produces no Usage at all).
func (u *Usage) NoUsageYet() bool {
	return u.FiveHour.Utilization == 0 && u.FiveHour.ResetsAt == nil &&
		u.SevenDay.Utilization == 0 && u.SevenDay.ResetsAt == nil
}

// FormatRemaining renders a countdown the way the widget displays it:
// "3d 4h" past a day, "2h 15m" past an hour, "42m" below, "Resetting..."
// once expired. Call with the value from Window.Remaining.
func FormatRemaining(d time.Duration) string {
	if d <= 0 {
		return "Resetting..."
	}

	hours := int(d.Hours())
	minutes := int(d.Minutes()) % 60

	switch {
	case hours >= 24:
		return fmt.Sprintf("%dd %dh", hours/24, hours%24)
	case hours > 0:
		return fmt.Sprintf("%dh %dm", hours, minutes)
	default:
		return fmt.Sprintf("%dm", minutes)
	}
}

// NoResetPlaceholder is shown when a window has no reset scheduled; the
// window starts counting once a message is sent.
const NoResetPlaceholder = "--:--"
