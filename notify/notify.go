// Package notify renders staffing-transition notifications and delivers
// them through pluggable push providers.
package notify

import (
	"context"
	"errors"
	"fmt"

	"github.com/leftos/oak-tower-watcher-sub000/pkg/watcher"
)

// Message is one push notification ready for delivery.
type Message struct {
	Token    string
	UserKey  string
	Title    string
	Body     string
	Priority int // -2..2
	Sound    string
	URL      string
	URLTitle string
	Device   string
}

// Provider defines the interface for push delivery implementations.
type Provider interface {
	// Send delivers a single message, returning a DeliveryError on failure.
	Send(ctx context.Context, msg Message) error
}

// DeliveryError indicates a provider-reported or transport-level send
// failure for a single recipient.
type DeliveryError struct {
	Provider string
	Reason   string
	Err      error
}

func (e *DeliveryError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s delivery failed: %s: %v", e.Provider, e.Reason, e.Err)
	}
	return fmt.Sprintf("%s delivery failed: %s", e.Provider, e.Reason)
}

func (e *DeliveryError) Unwrap() error { return e.Err }

// IsDeliveryError reports whether err is a per-recipient delivery failure.
func IsDeliveryError(err error) bool {
	var delivery *DeliveryError
	return errors.As(err, &delivery)
}

// PriorityFor returns the default delivery priority for a status.
func PriorityFor(status watcher.Status) int {
	switch status {
	case watcher.StatusMainAndAboveOnline:
		return 1
	case watcher.StatusError:
		return -1
	default:
		return 0
	}
}

// SoundFor returns the default notification sound for a status.
func SoundFor(status watcher.Status) string {
	switch status {
	case watcher.StatusMainAndAboveOnline:
		return "magic"
	case watcher.StatusMainOnline:
		return "pushover"
	case watcher.StatusAboveOnline:
		return "intermission"
	case watcher.StatusAllOffline:
		return "falling"
	case watcher.StatusError:
		return "none"
	default:
		return "pushover"
	}
}

// Test-notification content, used by the notify-test operation.
const (
	TestTitle = "VATSIM Monitor Test"
	TestBody  = "This is a test notification from VATSIM Tower Monitor."
	TestSound = "pushover"
)
