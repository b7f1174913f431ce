// Package dispatch fans a facility status change out to subscribers, each
// evaluated against their own tier patterns, plus an optional operator
// recipient that follows the default configuration.
package dispatch

import (
	"context"
	"log/slog"

	"github.com/leftos/oak-tower-watcher-sub000/notify"
	"github.com/leftos/oak-tower-watcher-sub000/pkg/watcher"
	"github.com/leftos/oak-tower-watcher-sub000/store"
)

// Store is the subscriber surface the dispatcher needs.
type Store interface {
	ListActive(ctx context.Context) ([]*store.Subscriber, error)
	SetLastSeenStatus(ctx context.Context, id string, status watcher.Status) error
}

// Summary counts the outcome of one fan-out pass.
type Summary struct {
	Sent    int `json:"sent"`
	Failed  int `json:"failed"`
	Skipped int `json:"skipped"`
}

// Dispatcher evaluates and delivers notifications for one status cycle.
// One subscriber failing never blocks the rest; delivery is one attempt
// per recipient per cycle, so a missed push is corrected by the next
// transition rather than retried.
type Dispatcher struct {
	provider  notify.Provider
	store     Store
	formatter *notify.Formatter
	defaults  watcher.TierConfig
	logger    *slog.Logger

	// Operator ("legacy") recipient: a single Pushover credential pair
	// that receives every default-configuration transition unfiltered.
	operatorToken string
	operatorKey   string
}

// New builds a Dispatcher. store may be nil when running without
// subscribers; operator credentials may be empty when running without the
// operator recipient.
func New(provider notify.Provider, st Store, formatter *notify.Formatter, defaults watcher.TierConfig, operatorToken, operatorKey string, logger *slog.Logger) *Dispatcher {
	return &Dispatcher{
		provider:      provider,
		store:         st,
		formatter:     formatter,
		defaults:      defaults,
		logger:        logger,
		operatorToken: operatorToken,
		operatorKey:   operatorKey,
	}
}

// Dispatch delivers one detected transition. prev is the previous
// aggregate status under the default configuration, snap the freshly
// resolved snapshot, and pool the full set of active controllers from the
// same feed fetch (so each subscriber can be reclassified under their own
// patterns).
func (d *Dispatcher) Dispatch(ctx context.Context, prev watcher.Status, snap watcher.Snapshot, pool []watcher.Controller) Summary {
	var sum Summary

	d.notifyOperator(ctx, prev, snap, &sum)

	if d.store == nil {
		return sum
	}
	subs, err := d.store.ListActive(ctx)
	if err != nil {
		d.logger.Error("failed to list subscribers", "error", err)
		return sum
	}
	for _, sub := range subs {
		d.notifySubscriber(ctx, sub, snap, pool, &sum)
	}

	d.logger.Info("fan-out complete",
		"status", snap.Status, "sent", sum.Sent, "failed", sum.Failed, "skipped", sum.Skipped)
	return sum
}

func (d *Dispatcher) notifyOperator(ctx context.Context, prev watcher.Status, snap watcher.Snapshot, sum *Summary) {
	if d.operatorToken == "" || d.operatorKey == "" {
		return
	}
	title, body, _ := d.formatter.Format(prev, snap.Status, snap.Main, snap.SupportAbove, snap.SupportBelow)
	msg := notify.Message{
		Token:    d.operatorToken,
		UserKey:  d.operatorKey,
		Title:    title,
		Body:     body,
		Priority: notify.PriorityFor(snap.Status),
		Sound:    notify.SoundFor(snap.Status),
	}
	if err := d.provider.Send(ctx, msg); err != nil {
		d.logger.Error("operator notification failed", "error", err)
		sum.Failed++
		return
	}
	sum.Sent++
}

func (d *Dispatcher) notifySubscriber(ctx context.Context, sub *store.Subscriber, snap watcher.Snapshot, pool []watcher.Controller, sum *Summary) {
	patterns := d.defaults
	if sub.HasCustomPatterns() {
		patterns = sub.Patterns
	}
	classifier, err := watcher.NewClassifier(patterns)
	if err != nil {
		d.logger.Error("subscriber has invalid patterns", "subscriber", sub.ID, "error", err)
		sum.Failed++
		return
	}
	main, above, below := classifier.Classify(pool)
	localStatus := watcher.Resolve(main, above)

	if localStatus == sub.LastSeenStatus {
		sum.Skipped++
		return
	}
	prev := sub.LastSeenStatus
	if prev == "" {
		prev = watcher.StatusAllOffline
	}

	title, body, _ := d.formatter.Format(prev, localStatus, main, above, below)
	msg := notify.Message{
		Token:    sub.APIToken,
		UserKey:  sub.UserKey,
		Title:    title,
		Body:     body,
		Priority: priorityFor(sub, localStatus),
		Sound:    soundFor(sub, localStatus),
	}
	if err := d.provider.Send(ctx, msg); err != nil {
		d.logger.Error("subscriber notification failed", "subscriber", sub.ID, "error", err)
		sum.Failed++
		return
	}
	sum.Sent++

	// Recorded only after a successful send so a failed delivery is
	// retried on the next transition.
	if err := d.store.SetLastSeenStatus(ctx, sub.ID, localStatus); err != nil {
		d.logger.Warn("failed to record last seen status", "subscriber", sub.ID, "error", err)
	}
}

// SendTest pushes a fixed test notification to the given credentials.
func (d *Dispatcher) SendTest(ctx context.Context, token, userKey string) error {
	return d.provider.Send(ctx, notify.Message{
		Token:   token,
		UserKey: userKey,
		Title:   notify.TestTitle,
		Body:    notify.TestBody,
		Sound:   notify.TestSound,
	})
}

func priorityFor(sub *store.Subscriber, status watcher.Status) int {
	if p, ok := sub.PriorityOverrides[status]; ok {
		return p
	}
	return notify.PriorityFor(status)
}

func soundFor(sub *store.Subscriber, status watcher.Status) string {
	if s, ok := sub.SoundOverrides[status]; ok {
		return s
	}
	return notify.SoundFor(status)
}
