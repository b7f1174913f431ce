// Package store handles subscriber persistence. Two backends implement the
// same interface: Postgres for the multi-tenant web deployment and object
// storage (GCS or a local directory) for single-operator deployments.
package store

import (
	"context"
	"errors"
	"strings"

	"github.com/leftos/oak-tower-watcher-sub000/pkg/watcher"
)

// Subscriber is one notification recipient with optional personalized tier
// patterns. Subscribers with no patterns of their own follow the operator's
// default facility configuration.
type Subscriber struct {
	ID       string             `json:"id"`
	Email    string             `json:"email"`
	APIToken string             `json:"pushover_api_token"`
	UserKey  string             `json:"pushover_user_key"`
	Enabled  bool               `json:"notifications_enabled"`
	Patterns watcher.TierConfig `json:"facility_patterns"`

	// Per-status delivery metadata overrides. Empty maps fall through to
	// the package-level defaults.
	PriorityOverrides map[watcher.Status]int    `json:"priority_overrides,omitempty"`
	SoundOverrides    map[watcher.Status]string `json:"sound_overrides,omitempty"`

	// LastSeenStatus is the last personalized status this subscriber was
	// notified about. Empty means never notified.
	LastSeenStatus watcher.Status `json:"last_seen_status,omitempty"`
}

// HasCustomPatterns reports whether the subscriber configured any tier
// pattern of their own.
func (s *Subscriber) HasCustomPatterns() bool {
	return !s.Patterns.Empty()
}

// Deliverable reports whether the subscriber can be fanned out to.
func (s *Subscriber) Deliverable() bool {
	return s.Enabled && strings.TrimSpace(s.APIToken) != "" && strings.TrimSpace(s.UserKey) != ""
}

// ErrNotFound is returned when a subscriber does not exist.
var ErrNotFound = errors.New("store: subscriber not found")

// IsNotFound reports whether err indicates a missing subscriber.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// Store is the subscriber persistence surface the dispatcher and poller
// depend on.
type Store interface {
	// ListActive returns subscribers eligible for fan-out: enabled, with
	// delivery credentials, and (where the backend models it) active and
	// verified accounts.
	ListActive(ctx context.Context) ([]*Subscriber, error)
	// SetLastSeenStatus records the personalized status a subscriber was
	// just notified about. Called only after a successful send.
	SetLastSeenStatus(ctx context.Context, id string, status watcher.Status) error
}

// AggregatePatterns unions every subscriber's tier patterns, deduplicated
// and in first-seen order, so the poller watches every facility anyone
// cares about. Falls back to defaults when no subscriber has custom
// patterns; the defaults' tiers are always included so the operator's own
// facility keeps being watched.
func AggregatePatterns(subs []*Subscriber, defaults watcher.TierConfig) watcher.TierConfig {
	var out watcher.TierConfig
	out.Main = dedupe(defaults.Main)
	out.SupportAbove = dedupe(defaults.SupportAbove)
	out.SupportBelow = dedupe(defaults.SupportBelow)

	for _, sub := range subs {
		out.Main = appendNew(out.Main, sub.Patterns.Main)
		out.SupportAbove = appendNew(out.SupportAbove, sub.Patterns.SupportAbove)
		out.SupportBelow = appendNew(out.SupportBelow, sub.Patterns.SupportBelow)
	}
	return out
}

func dedupe(patterns []string) []string {
	return appendNew(nil, patterns)
}

func appendNew(dst, patterns []string) []string {
	seen := make(map[string]bool, len(dst))
	for _, p := range dst {
		seen[p] = true
	}
	for _, p := range patterns {
		if p == "" || seen[p] {
			continue
		}
		seen[p] = true
		dst = append(dst, p)
	}
	return dst
}
