// Package watcher contains the core domain types for the VATSIM facility
// staffing watcher: observed controllers, facility tiers, aggregate status,
// and the immutable snapshots the poller produces each cycle.
package watcher

import "time"

// InactiveFrequency is the sentinel frequency VATSIM assigns to observers
// and other non-controlling connections. Controllers on it are excluded
// from classification entirely.
const InactiveFrequency = "199.998"

// Controller is one observed network participant from the data feed.
// Controllers are rebuilt fresh every poll cycle and never mutated.
type Controller struct {
	Callsign  string    `json:"callsign"`
	CID       string    `json:"cid"`
	Name      string    `json:"name"`
	Frequency string    `json:"frequency"`
	Rating    int       `json:"rating"`
	LogonTime time.Time `json:"logon_time,omitzero"`
	Server    string    `json:"server"`
}

// Active reports whether the controller is on a real frequency.
func (c Controller) Active() bool {
	return c.Frequency != InactiveFrequency
}

// Status is the aggregate staffing status of the watched facility set.
type Status string

// Status values, highest coverage first. StatusError never appears in a
// cached snapshot or as a transition baseline; it exists only so delivery
// metadata (priority, sound) can be mapped for failure notifications.
const (
	StatusMainAndAboveOnline Status = "main_facility_and_supporting_above_online"
	StatusMainOnline         Status = "main_facility_online"
	StatusAboveOnline        Status = "supporting_above_online"
	StatusAllOffline         Status = "all_offline"
	StatusError              Status = "error"
)

// TierConfig holds the ordered, case-insensitive callsign patterns that
// populate the three facility tiers. Precedence is fixed: Main >
// SupportAbove > SupportBelow.
type TierConfig struct {
	Main         []string `json:"main_facility"`
	SupportAbove []string `json:"supporting_above"`
	SupportBelow []string `json:"supporting_below"`
}

// Empty reports whether no tier has any pattern configured.
func (t TierConfig) Empty() bool {
	return len(t.Main) == 0 && len(t.SupportAbove) == 0 && len(t.SupportBelow) == 0
}

// Snapshot is the immutable result of one poll cycle.
type Snapshot struct {
	Main         []Controller `json:"main_controllers"`
	SupportAbove []Controller `json:"supporting_above"`
	SupportBelow []Controller `json:"supporting_below"`
	Status       Status       `json:"status"`
	Timestamp    time.Time    `json:"timestamp"`
	Success      bool         `json:"success"`
	ErrorMessage string       `json:"error,omitempty"`
}
