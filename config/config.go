// Package config loads runtime configuration from the environment.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/leftos/oak-tower-watcher-sub000/pkg/watcher"
	"github.com/leftos/oak-tower-watcher-sub000/vatsim"
)

// Default tier patterns watch Oakland tower with NorCal approach and
// Oakland center above it, and ground/delivery below.
var defaultTiers = watcher.TierConfig{
	Main:         []string{`^OAK_(?:[A-Z\d]+_)?TWR$`},
	SupportAbove: []string{`^NCT_APP$`, `^OAK_\d+_CTR$`},
	SupportBelow: []string{`^OAK_(?:[A-Z\d]+_)?GND$`, `^OAK_(?:[A-Z\d]+_)?DEL$`},
}

// Config holds every knob the watcher reads from the environment.
type Config struct {
	FeedURL     string
	RosterURL   string
	AirportCode string
	DisplayName string
	ServiceName string

	Tiers    watcher.TierConfig
	Interval time.Duration

	PushoverToken   string
	PushoverUserKey string

	DatabaseURL string
	Bucket      string
	LocalDir    string

	NATSURL     string
	NATSSubject string

	Port     string
	LockFile string
}

// Load reads configuration from the environment. Pattern lists are
// semicolon-separated; every pattern is compiled up front so a typo fails
// at startup rather than mid-cycle.
func Load() (*Config, error) {
	cfg := &Config{
		FeedURL:         envOr("VATSIM_FEED_URL", vatsim.DefaultFeedURL),
		RosterURL:       os.Getenv("ROSTER_URL"),
		AirportCode:     envOr("AIRPORT_CODE", "KOAK"),
		DisplayName:     envOr("AIRPORT_DISPLAY_NAME", "KOAK Main Facility"),
		ServiceName:     envOr("SERVICE_NAME", "oak_tower_watcher"),
		Interval:        time.Duration(envInt("CHECK_INTERVAL", 60)) * time.Second,
		PushoverToken:   os.Getenv("PUSHOVER_API_TOKEN"),
		PushoverUserKey: os.Getenv("PUSHOVER_USER_KEY"),
		DatabaseURL:     os.Getenv("DATABASE_URL"),
		Bucket:          os.Getenv("STORAGE_BUCKET"),
		LocalDir:        os.Getenv("LOCAL_STORAGE"),
		NATSURL:         os.Getenv("NATS_URL"),
		NATSSubject:     os.Getenv("NATS_SUBJECT"),
		Port:            envOr("PORT", "8080"),
		LockFile:        os.Getenv("LOCK_FILE"),
	}

	cfg.Tiers = watcher.TierConfig{
		Main:         patternList("MAIN_PATTERNS", defaultTiers.Main),
		SupportAbove: patternList("SUPPORT_ABOVE_PATTERNS", defaultTiers.SupportAbove),
		SupportBelow: patternList("SUPPORT_BELOW_PATTERNS", defaultTiers.SupportBelow),
	}
	if _, err := watcher.NewClassifier(cfg.Tiers); err != nil {
		return nil, fmt.Errorf("invalid facility patterns: %w", err)
	}
	return cfg, nil
}

func patternList(key string, fallback []string) []string {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	var patterns []string
	for _, p := range strings.Split(v, ";") {
		if p = strings.TrimSpace(p); p != "" {
			patterns = append(patterns, p)
		}
	}
	if len(patterns) == 0 {
		return fallback
	}
	return patterns
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}
