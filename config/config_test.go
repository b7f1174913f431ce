package config

import (
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.AirportCode != "KOAK" {
		t.Errorf("AirportCode = %q, want KOAK", cfg.AirportCode)
	}
	if cfg.Interval != time.Minute {
		t.Errorf("Interval = %v, want 1m", cfg.Interval)
	}
	if len(cfg.Tiers.Main) == 0 || len(cfg.Tiers.SupportAbove) == 0 {
		t.Errorf("default tiers missing: %+v", cfg.Tiers)
	}
	if cfg.Port != "8080" {
		t.Errorf("Port = %q, want 8080", cfg.Port)
	}
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("AIRPORT_CODE", "KSFO")
	t.Setenv("CHECK_INTERVAL", "120")
	t.Setenv("MAIN_PATTERNS", `^SFO_TWR$; ^SFO_E_TWR$`)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.AirportCode != "KSFO" {
		t.Errorf("AirportCode = %q, want KSFO", cfg.AirportCode)
	}
	if cfg.Interval != 2*time.Minute {
		t.Errorf("Interval = %v, want 2m", cfg.Interval)
	}
	if len(cfg.Tiers.Main) != 2 || cfg.Tiers.Main[0] != `^SFO_TWR$` {
		t.Errorf("Tiers.Main = %v", cfg.Tiers.Main)
	}
	// Tiers without overrides keep their defaults.
	if len(cfg.Tiers.SupportAbove) != 2 {
		t.Errorf("Tiers.SupportAbove = %v", cfg.Tiers.SupportAbove)
	}
}

func TestLoadRejectsBadPattern(t *testing.T) {
	t.Setenv("MAIN_PATTERNS", `^OAK_(TWR$`)
	if _, err := Load(); err == nil {
		t.Fatal("Load() expected error for invalid pattern")
	}
}

func TestLoadBadIntervalFallsBack(t *testing.T) {
	t.Setenv("CHECK_INTERVAL", "not-a-number")
	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Interval != time.Minute {
		t.Errorf("Interval = %v, want 1m fallback", cfg.Interval)
	}
}
