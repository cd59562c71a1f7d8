package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"time"
)

type UIConfig struct {
	RefreshIntervalSeconds    int     `json:"refresh_interval_seconds"`
	CountdownIntervalSeconds  int     `json:"countdown_interval_seconds"`
	SettleDelaySeconds        int     `json:"settle_delay_seconds"`
	SilentLoginTimeoutSeconds int     `json:"silent_login_timeout_seconds"`
	WarnThreshold             float64 `json:"warn_threshold"`
	CritThreshold             float64 `json:"crit_threshold"`
}

type AppConfig struct {
	LaunchAtLogin bool `json:"launch_at_login"`
	StartHidden   bool `json:"start_hidden"`
	CheckUpdates  bool `json:"check_updates"`
}

type Config struct {
	BaseURL string    `json:"base_url"`
	UI      UIConfig  `json:"ui"`
	App     AppConfig `json:"app"`
}

func DefaultConfig() Config {
	return Config{
		BaseURL: "https://claude.ai",
		UI: UIConfig{
			RefreshIntervalSeconds:    300,
			CountdownIntervalSeconds:  1,
			SettleDelaySeconds:        3,
			SilentLoginTimeoutSeconds: 15,
			WarnThreshold:             0.75,
			CritThreshold:             0.90,
		},
		App: AppConfig{
			CheckUpdates: true,
		},
	}
}

func (c Config) RefreshInterval() time.Duration {
	return time.Duration(c.UI.RefreshIntervalSeconds) * time.Second
}

func (c Config) CountdownInterval() time.Duration {
	return time.Duration(c.UI.CountdownIntervalSeconds) * time.Second
}

// SettleDelay is how long to wait after a usage window expires before
// refreshing, so the server has time to roll the counters over.
func (c Config) SettleDelay() time.Duration {
	return time.Duration(c.UI.SettleDelaySeconds) * time.Second
}

func (c Config) SilentLoginTimeout() time.Duration {
	return time.Duration(c.UI.SilentLoginTimeoutSeconds) * time.Second
}

func ConfigDir() string {
	if runtime.GOOS == "windows" {
		return filepath.Join(os.Getenv("APPDATA"), "claude-usage-widget")
	}
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".config", "claude-usage-widget")
}

func ConfigPath() string {
	return filepath.Join(ConfigDir(), "config.json")
}

func Load() (Config, error) {
	return LoadFrom(ConfigPath())
}

func LoadFrom(path string) (Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return cfg, fmt.Errorf("reading config: %w", err)
	}

	if err := json.Unmarshal(data, &cfg); err != nil {
		return DefaultConfig(), fmt.Errorf("parsing config %s: %w", path, err)
	}

	def := DefaultConfig()
	if cfg.BaseURL == "" {
		cfg.BaseURL = def.BaseURL
	}
	if cfg.UI.RefreshIntervalSeconds <= 0 {
		cfg.UI.RefreshIntervalSeconds = def.UI.RefreshIntervalSeconds
	}
	if cfg.UI.CountdownIntervalSeconds <= 0 {
		cfg.UI.CountdownIntervalSeconds = def.UI.CountdownIntervalSeconds
	}
	if cfg.UI.SettleDelaySeconds <= 0 {
		cfg.UI.SettleDelaySeconds = def.UI.SettleDelaySeconds
	}
	if cfg.UI.SilentLoginTimeoutSeconds <= 0 {
		cfg.UI.SilentLoginTimeoutSeconds = def.UI.SilentLoginTimeoutSeconds
	}
	if cfg.UI.WarnThreshold <= 0 || cfg.UI.WarnThreshold > 1 {
		cfg.UI.WarnThreshold = def.UI.WarnThreshold
	}
	if cfg.UI.CritThreshold <= 0 || cfg.UI.CritThreshold > 1 {
		cfg.UI.CritThreshold = def.UI.CritThreshold
	}

	return cfg, nil
}

func Save(cfg Config) error {
	return SaveTo(ConfigPath(), cfg)
}

func SaveTo(path string, cfg Config) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating config dir: %w", err)
	}

	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling config: %w", err)
	}
	data = append(data, '\n')

	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("writing config: %w", err)
	}
	return nil
}
