package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeConfigFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.toml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestLoadMergesFileOverDefaults(t *testing.T) {
	path := writeConfigFile(t, `
log_level = "debug"

[binance.trading]
order_quantity = 250.0
stop_loss_percent = 0.05

[scraper]
enabled = true
interval = "30s"
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if cfg.LogLevel != "debug" {
		t.Errorf("LogLevel = %q, want debug", cfg.LogLevel)
	}
	if cfg.Binance.Trading.OrderQuantity != 250 {
		t.Errorf("OrderQuantity = %v, want 250", cfg.Binance.Trading.OrderQuantity)
	}
	// 0.05 is the fractional form; Load normalizes it to a whole percent.
	if cfg.Binance.Trading.StopLossPercent != 5 {
		t.Errorf("StopLossPercent = %v, want 5", cfg.Binance.Trading.StopLossPercent)
	}
	// Untouched fields keep their defaults.
	if cfg.Binance.BaseURL != "https://api.binance.com" {
		t.Errorf("BaseURL = %q, want the default", cfg.Binance.BaseURL)
	}
	if !cfg.Scraper.Enabled || cfg.Scraper.Interval.Duration != 30*time.Second {
		t.Errorf("scraper = %+v", cfg.Scraper)
	}
}

func TestLoadAppliesEnvOverrides(t *testing.T) {
	path := writeConfigFile(t, `log_level = "info"`)

	t.Setenv("LISTINGBOT_BINANCE_API_KEY", "env-key")
	t.Setenv("LISTINGBOT_BINANCE_TEST", "false")
	t.Setenv("LISTINGBOT_LOG_LEVEL", "warn")
	t.Setenv("LISTINGBOT_SCRAPER_EXCLUSIONS", "Futures, Margin")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if cfg.Binance.APIKey != "env-key" {
		t.Errorf("APIKey = %q, want env-key", cfg.Binance.APIKey)
	}
	if cfg.Binance.Trading.Test {
		t.Error("Test = true, want env override to false")
	}
	if cfg.LogLevel != "warn" {
		t.Errorf("LogLevel = %q, want warn", cfg.LogLevel)
	}
	want := []string{"Futures", "Margin"}
	if len(cfg.Scraper.Exclusions) != len(want) {
		t.Fatalf("Exclusions = %v, want %v", cfg.Scraper.Exclusions, want)
	}
	for i, w := range want {
		if cfg.Scraper.Exclusions[i] != w {
			t.Errorf("Exclusions[%d] = %q, want %q", i, cfg.Scraper.Exclusions[i], w)
		}
	}
}

func TestLoadMissingFileFails(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "nope.toml")); err == nil {
		t.Error("Load accepted a missing file")
	}
}

func TestLoadRejectsOversizedPercent(t *testing.T) {
	path := writeConfigFile(t, `
[binance.trading]
stop_loss_percent = 150.0
`)
	if _, err := Load(path); err == nil {
		t.Error("Load accepted a percent above 100")
	}
}
