package tui

import (
	"strings"
	"testing"

	"github.com/charmbracelet/lipgloss"
)

func TestRenderUsageGauge_Percentages(t *testing.T) {
	color := lipgloss.Color("#8b5cf6")

	out := RenderUsageGauge(42, 20, color)
	if out == "" {
		t.Fatal("expected non-empty output")
	}
	if !strings.Contains(out, "42.0%") {
		t.Fatalf("output should contain '42.0%%', got %q", out)
	}

	out = RenderUsageGauge(0, 20, color)
	if !strings.Contains(out, "0.0%") {
		t.Fatalf("output should contain '0.0%%', got %q", out)
	}

	out = RenderUsageGauge(100, 20, color)
	if !strings.Contains(out, "100.0%") {
		t.Fatalf("output should contain '100.0%%', got %q", out)
	}
}

func TestRenderUsageGauge_OverflowClamps(t *testing.T) {
	out := RenderUsageGauge(130, 20, lipgloss.Color("#ef4444"))
	if !strings.Contains(out, "100.0%") {
		t.Fatalf("overflow should clamp to 100%%, got %q", out)
	}
}

func TestRenderUsageGauge_NegativeRendersNA(t *testing.T) {
	out := RenderUsageGauge(-1, 20, lipgloss.Color("#8b5cf6"))
	if !strings.Contains(out, "N/A") {
		t.Fatalf("negative percent should render N/A, got %q", out)
	}
}

func TestRenderUsageGauge_NarrowWidth(t *testing.T) {
	out := RenderUsageGauge(50, 2, lipgloss.Color("#8b5cf6"))
	if out == "" {
		t.Fatal("expected non-empty output for narrow width")
	}
	if !strings.Contains(out, "50.0%") {
		t.Fatalf("narrow output should still contain '50.0%%', got %q", out)
	}
}

func TestRenderElapsedTrack(t *testing.T) {
	if out := RenderElapsedTrack(-1, 10); !strings.Contains(out, "─") {
		t.Fatalf("unknown elapsed should render a dimmed track, got %q", out)
	}
	if out := RenderElapsedTrack(50, 10); !strings.Contains(out, "▪") || !strings.Contains(out, "▫") {
		t.Fatalf("half-elapsed track should mix filled and empty, got %q", out)
	}
	if out := RenderElapsedTrack(100, 10); strings.Contains(out, "▫") {
		t.Fatalf("fully elapsed track should not contain empty cells, got %q", out)
	}
}

func TestRenderShimmerGauge(t *testing.T) {
	out := RenderShimmerGauge(20, 0)
	if out == "" {
		t.Fatal("expected non-empty output")
	}
	if !strings.Contains(out, "···") {
		t.Fatalf("shimmer gauge should contain loading indicator, got %q", out)
	}
	for f := 0; f < 30; f++ {
		if RenderShimmerGauge(20, f) == "" {
			t.Fatalf("empty output at frame %d", f)
		}
	}
}

func TestSeverityColor(t *testing.T) {
	p := palette{
		normal:  lipgloss.Color("#8b5cf6"),
		warning: lipgloss.Color("#f59e0b"),
		danger:  lipgloss.Color("#ef4444"),
	}

	tests := []struct {
		percent float64
		want    lipgloss.Color
	}{
		{0, p.normal},
		{74.9, p.normal},
		{75, p.warning},
		{89.9, p.warning},
		{90, p.danger},
		{100, p.danger},
	}
	for _, tt := range tests {
		if got := p.severityColor(tt.percent, 0.75, 0.90); got != tt.want {
			t.Errorf("severityColor(%v) = %v, want %v", tt.percent, got, tt.want)
		}
	}
}
