package notify

import (
	"context"
	"log/slog"
	"sync"
)

// MockProvider logs sends instead of delivering them. Used in local
// development and as a recording fake in tests.
type MockProvider struct {
	logger *slog.Logger

	mu   sync.Mutex
	sent []Message
}

// NewMockProvider creates a new mock push provider.
func NewMockProvider(logger *slog.Logger) *MockProvider {
	return &MockProvider{logger: logger}
}

// Send records the message and logs it.
func (m *MockProvider) Send(_ context.Context, msg Message) error {
	m.mu.Lock()
	m.sent = append(m.sent, msg)
	m.mu.Unlock()

	m.logger.Info("MOCK PUSH",
		"title", msg.Title,
		"priority", msg.Priority,
		"sound", msg.Sound,
		"body_length", len(msg.Body))
	return nil
}

// Sent returns a copy of every message sent so far.
func (m *MockProvider) Sent() []Message {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]Message, len(m.sent))
	copy(out, m.sent)
	return out
}
