package scheduler

import (
	"testing"
	"time"

	"github.com/setoncarmichael/claude-usage-widget/internal/claude"
)

func TestBuildSnapshot(t *testing.T) {
	now := time.Date(2026, 8, 31, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		name        string
		usage       claude.Usage
		wantSession WindowView
		wantNoUsage bool
	}{
		{
			name: "active window",
			usage: claude.Usage{
				FiveHour: claude.Window{Utilization: 42, ResetsAt: timePtr(now.Add(2*time.Hour + 15*time.Minute))},
			},
			wantSession: WindowView{
				Percent:        42,
				Remaining:      "2h 15m",
				ElapsedPercent: 55,
			},
		},
		{
			name: "expired window",
			usage: claude.Usage{
				FiveHour: claude.Window{Utilization: 100, ResetsAt: timePtr(now.Add(-time.Minute))},
			},
			wantSession: WindowView{
				Percent:        100,
				Remaining:      "Resetting...",
				ElapsedPercent: 100,
				Expired:        true,
			},
		},
		{
			name: "overreported utilization clamps",
			usage: claude.Usage{
				FiveHour: claude.Window{Utilization: 104.2, ResetsAt: timePtr(now.Add(time.Hour))},
			},
			wantSession: WindowView{
				Percent:        100,
				Remaining:      "1h 0m",
				ElapsedPercent: 80,
			},
		},
		{
			name:  "no usage yet",
			usage: claude.Usage{},
			wantSession: WindowView{
				Percent:        0,
				Remaining:      claude.NoResetPlaceholder,
				ElapsedPercent: -1,
				NoReset:        true,
			},
			wantNoUsage: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			snap := BuildSnapshot(&tt.usage, now)
			if snap.Session != tt.wantSession {
				t.Errorf("session view = %+v, want %+v", snap.Session, tt.wantSession)
			}
			if snap.NoUsage != tt.wantNoUsage {
				t.Errorf("NoUsage = %v, want %v", snap.NoUsage, tt.wantNoUsage)
			}
			if snap.At != now {
				t.Errorf("At = %v, want %v", snap.At, now)
			}
		})
	}
}
