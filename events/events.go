// Package events publishes each successful status snapshot to NATS so
// other tools (dashboards, Discord bots, recorders) can consume the feed
// without polling this service.
package events

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/leftos/oak-tower-watcher-sub000/pkg/watcher"
)

// DefaultSubject is used when no subject is configured.
const DefaultSubject = "towerwatch.status"

// Publisher sends snapshots to a NATS subject.
type Publisher struct {
	nc      *nats.Conn
	subject string
	logger  *slog.Logger
}

// Connect dials NATS and returns a Publisher. The connection keeps
// reconnecting on its own; a publish during an outage fails and is simply
// superseded by the next cycle's snapshot.
func Connect(url, subject string, logger *slog.Logger) (*Publisher, error) {
	if subject == "" {
		subject = DefaultSubject
	}
	nc, err := nats.Connect(url,
		nats.MaxReconnects(-1),
		nats.ReconnectWait(2*time.Second),
		nats.RetryOnFailedConnect(true),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			logger.Warn("nats disconnected", "error", err)
		}),
		nats.ReconnectHandler(func(_ *nats.Conn) {
			logger.Info("nats reconnected")
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("connect to nats: %w", err)
	}
	return &Publisher{nc: nc, subject: subject, logger: logger}, nil
}

// Publish sends one snapshot as JSON.
func (p *Publisher) Publish(_ context.Context, snap watcher.Snapshot) error {
	data, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("marshal snapshot: %w", err)
	}
	if err := p.nc.Publish(p.subject, data); err != nil {
		return fmt.Errorf("publish snapshot: %w", err)
	}
	p.logger.Debug("snapshot published", "subject", p.subject, "status", snap.Status)
	return nil
}

// Close drains the connection.
func (p *Publisher) Close() {
	if err := p.nc.Drain(); err != nil {
		p.logger.Warn("nats drain failed", "error", err)
	}
}

// Nop discards snapshots. Useful where a publisher is required but event
// output is not configured.
type Nop struct{}

func (Nop) Publish(context.Context, watcher.Snapshot) error { return nil }
