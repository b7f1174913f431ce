package notify

import (
	"strings"

	"github.com/leftos/oak-tower-watcher-sub000/pkg/watcher"
)

// Tone classes attached to formatted transitions, consumed by display
// surfaces that color-code notifications.
const (
	ToneSuccess = "success"
	ToneWarning = "warning"
	ToneError   = "error"
)

// Formatter renders staffing transitions into notification titles and
// bodies. Every ordered (previous, current) status pair produces non-empty
// content; the supporting-below tier is appended as context regardless of
// which tier changed.
type Formatter struct {
	// DisplayName is the operator-facing facility name, e.g. "KOAK Main
	// Facility".
	DisplayName string
	// Names maps CIDs to display names from the roster. May be nil.
	Names map[string]string
}

// Format renders the transition from prev to cur.
func (f *Formatter) Format(prev, cur watcher.Status, main, above, below []watcher.Controller) (title, body, tone string) {
	belowInfo := f.belowSuffix(below)

	switch cur {
	case watcher.StatusMainAndAboveOnline:
		mainInfo := f.controllerList(main, f.DisplayName+": ")
		aboveInfo := f.controllerList(above, "Supporting Above: ")
		body = mainInfo + "\n" + aboveInfo + belowInfo
		switch prev {
		case watcher.StatusMainOnline:
			title = "Supporting Above Facilities Now Online!"
		case watcher.StatusAboveOnline:
			title = f.DisplayName + " Now Online!"
		default:
			title = "Full Coverage Online!"
		}
		return title, body, ToneSuccess

	case watcher.StatusMainOnline:
		mainInfo := f.controllerList(main, "")
		switch prev {
		case watcher.StatusMainAndAboveOnline:
			title = "Supporting Above Facilities Now Offline"
			body = "Only " + f.DisplayName + " remains online\n" + mainInfo + belowInfo
			return title, body, ToneWarning
		case watcher.StatusAboveOnline:
			title = f.DisplayName + " Now Online!"
			body = f.DisplayName + " controller is now online\n" + mainInfo + belowInfo
			return title, body, ToneSuccess
		default:
			title = f.DisplayName + " Online!"
			body = mainInfo + " is now online!" + belowInfo
			return title, body, ToneSuccess
		}

	case watcher.StatusAboveOnline:
		aboveInfo := f.controllerList(above, "")
		switch prev {
		case watcher.StatusMainAndAboveOnline:
			title = f.DisplayName + " Now Offline"
			body = "Only supporting above facility remains online\n" + aboveInfo + belowInfo
		case watcher.StatusMainOnline:
			title = f.DisplayName + " Now Offline"
			body = f.DisplayName + " went offline, but " + aboveInfo + " is online" + belowInfo
		default:
			title = "Supporting Above Facility Online"
			body = f.DisplayName + " is offline, but " + aboveInfo + " is online" + belowInfo
		}
		return title, body, ToneWarning

	default: // all offline
		switch prev {
		case watcher.StatusMainAndAboveOnline:
			title = "All Facilities Now Offline"
			body = "Both " + f.DisplayName + " and supporting above controllers have gone offline" + belowInfo
		case watcher.StatusMainOnline:
			title = f.DisplayName + " Now Offline"
			body = f.DisplayName + " controller has gone offline" + belowInfo
		case watcher.StatusAboveOnline:
			title = "Supporting Above Facility Now Offline"
			body = "Supporting above controller has gone offline" + belowInfo
		default:
			title = "All Facilities Offline"
			body = "No " + f.DisplayName + " or supporting above controllers found" + belowInfo
		}
		return title, body, ToneError
	}
}

// resolveName picks the best display name for a controller: the feed name
// when it looks like a real name, otherwise the roster entry for the CID.
// Empty means no name is known and the callsign stands alone.
func (f *Formatter) resolveName(c watcher.Controller) string {
	name := strings.TrimSpace(c.Name)
	if name != "" && len(name) > 2 && !isNumeric(name) {
		return name
	}
	if roster, ok := f.Names[c.CID]; ok {
		return roster
	}
	return ""
}

func (f *Formatter) controllerList(controllers []watcher.Controller, prefix string) string {
	if len(controllers) == 0 {
		return ""
	}
	parts := make([]string, 0, len(controllers))
	for _, c := range controllers {
		if name := f.resolveName(c); name != "" {
			parts = append(parts, c.Callsign+" ("+name+")")
		} else {
			parts = append(parts, c.Callsign)
		}
	}
	return prefix + strings.Join(parts, ", ")
}

func (f *Formatter) belowSuffix(below []watcher.Controller) string {
	if len(below) == 0 {
		return ""
	}
	return "\nBelow: " + f.controllerList(below, "")
}

func isNumeric(s string) bool {
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return len(s) > 0
}
