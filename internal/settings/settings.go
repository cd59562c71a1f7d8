package settings

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/setoncarmichael/claude-usage-widget/internal/config"
)

// GradientStop is a two-color gradient for one gauge severity level.
type GradientStop struct {
	Start string `json:"start"`
	End   string `json:"end"`
}

type ColorPreferences struct {
	Normal  GradientStop `json:"normal"`
	Warning GradientStop `json:"warning"`
	Danger  GradientStop `json:"danger"`
}

type ThemePreferences struct {
	BackgroundStart string `json:"background_start"`
	BackgroundEnd   string `json:"background_end"`
	TextPrimary     string `json:"text_primary"`
	TextSecondary   string `json:"text_secondary"`
	TitleBarBg      string `json:"title_bar_bg"`
	TitleBarOpacity int    `json:"title_bar_opacity"` // 0-100
	BorderColor     string `json:"border_color"`
	BorderOpacity   int    `json:"border_opacity"` // 0-100
}

type TrayDisplayMode string

const (
	TrayDisplayIcon    TrayDisplayMode = "icon"
	TrayDisplayPercent TrayDisplayMode = "percent"
	TrayDisplayTime    TrayDisplayMode = "time"
)

type TrayPreferences struct {
	DisplayMode TrayDisplayMode `json:"display_mode"`
	// SourceWindow selects which usage window drives the tray readout.
	SourceWindow string `json:"source_window"` // "session" or "weekly"
}

type VisibilityPreferences struct {
	ShowSessionGauge *bool `json:"show_session_gauge,omitempty"`
	ShowWeeklyGauge  *bool `json:"show_weekly_gauge,omitempty"`
	ShowTimers       *bool `json:"show_timers,omitempty"`
	ShowSparkline    *bool `json:"show_sparkline,omitempty"`
}

type Settings struct {
	Colors     ColorPreferences      `json:"colors"`
	Theme      ThemePreferences      `json:"theme"`
	Tray       TrayPreferences       `json:"tray"`
	Visibility VisibilityPreferences `json:"visibility"`
}

func DefaultSettings() Settings {
	on := true
	return Settings{
		Colors: ColorPreferences{
			Normal:  GradientStop{Start: "#8b5cf6", End: "#a78bfa"},
			Warning: GradientStop{Start: "#f59e0b", End: "#fbbf24"},
			Danger:  GradientStop{Start: "#ef4444", End: "#f87171"},
		},
		Theme: ThemePreferences{
			BackgroundStart: "#1e1e2e",
			BackgroundEnd:   "#181825",
			TextPrimary:     "#cdd6f4",
			TextSecondary:   "#a6adc8",
			TitleBarBg:      "#11111b",
			TitleBarOpacity: 80,
			BorderColor:     "#313244",
			BorderOpacity:   60,
		},
		Tray: TrayPreferences{
			DisplayMode:  TrayDisplayIcon,
			SourceWindow: "session",
		},
		Visibility: VisibilityPreferences{
			ShowSessionGauge: &on,
			ShowWeeklyGauge:  &on,
			ShowTimers:       &on,
			ShowSparkline:    &on,
		},
	}
}

// SessionGaugeVisible reports visibility with the default applied.
func (v VisibilityPreferences) SessionGaugeVisible() bool {
	return v.ShowSessionGauge == nil || *v.ShowSessionGauge
}

func (v VisibilityPreferences) WeeklyGaugeVisible() bool {
	return v.ShowWeeklyGauge == nil || *v.ShowWeeklyGauge
}

func (v VisibilityPreferences) TimersVisible() bool {
	return v.ShowTimers == nil || *v.ShowTimers
}

func (v VisibilityPreferences) SparklineVisible() bool {
	return v.ShowSparkline == nil || *v.ShowSparkline
}

func Path() string {
	return filepath.Join(config.ConfigDir(), "settings.json")
}

func Load() (Settings, error) {
	return LoadFrom(Path())
}

// LoadFrom reads settings from path, merging defaults for any category or
// field the file does not set. A missing file yields pure defaults.
func LoadFrom(path string) (Settings, error) {
	s := DefaultSettings()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return s, nil
		}
		return s, fmt.Errorf("reading settings: %w", err)
	}

	if err := json.Unmarshal(data, &s); err != nil {
		return DefaultSettings(), fmt.Errorf("parsing settings %s: %w", path, err)
	}

	s.mergeDefaults()
	return s, nil
}

func (s *Settings) mergeDefaults() {
	def := DefaultSettings()

	mergeStop := func(dst *GradientStop, src GradientStop) {
		if dst.Start == "" {
			dst.Start = src.Start
		}
		if dst.End == "" {
			dst.End = src.End
		}
	}
	mergeStop(&s.Colors.Normal, def.Colors.Normal)
	mergeStop(&s.Colors.Warning, def.Colors.Warning)
	mergeStop(&s.Colors.Danger, def.Colors.Danger)

	if s.Theme.BackgroundStart == "" {
		s.Theme.BackgroundStart = def.Theme.BackgroundStart
	}
	if s.Theme.BackgroundEnd == "" {
		s.Theme.BackgroundEnd = def.Theme.BackgroundEnd
	}
	if s.Theme.TextPrimary == "" {
		s.Theme.TextPrimary = def.Theme.TextPrimary
	}
	if s.Theme.TextSecondary == "" {
		s.Theme.TextSecondary = def.Theme.TextSecondary
	}
	if s.Theme.TitleBarBg == "" {
		s.Theme.TitleBarBg = def.Theme.TitleBarBg
	}
	if s.Theme.TitleBarOpacity <= 0 || s.Theme.TitleBarOpacity > 100 {
		s.Theme.TitleBarOpacity = def.Theme.TitleBarOpacity
	}
	if s.Theme.BorderColor == "" {
		s.Theme.BorderColor = def.Theme.BorderColor
	}
	if s.Theme.BorderOpacity <= 0 || s.Theme.BorderOpacity > 100 {
		s.Theme.BorderOpacity = def.Theme.BorderOpacity
	}

	switch s.Tray.DisplayMode {
	case TrayDisplayIcon, TrayDisplayPercent, TrayDisplayTime:
	default:
		s.Tray.DisplayMode = def.Tray.DisplayMode
	}
	if s.Tray.SourceWindow != "session" && s.Tray.SourceWindow != "weekly" {
		s.Tray.SourceWindow = def.Tray.SourceWindow
	}
}

func Save(s Settings) error {
	return SaveTo(Path(), s)
}

func SaveTo(path string, s Settings) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating settings dir: %w", err)
	}

	data, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling settings: %w", err)
	}
	data = append(data, '\n')

	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("writing settings: %w", err)
	}
	return nil
}
