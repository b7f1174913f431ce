package watcher

import "sort"

// Resolve determines the aggregate status from tier occupancy. Only the
// main and supporting-above tiers participate; supporting-below staffing
// never changes the status, it only enriches notification content.
func Resolve(main, supportAbove []Controller) Status {
	switch {
	case len(main) > 0 && len(supportAbove) > 0:
		return StatusMainAndAboveOnline
	case len(main) > 0:
		return StatusMainOnline
	case len(supportAbove) > 0:
		return StatusAboveOnline
	default:
		return StatusAllOffline
	}
}

// Changed reports whether current represents a transition from previous:
// either the aggregate status flipped, or the set of callsigns in any tier
// differs (order- and duplicate-insensitive). The latter catches controller
// rotation where one controller replaces another under the same status.
// A failed poll never registers as a change.
func Changed(current, previous Snapshot) bool {
	if !current.Success {
		return false
	}
	if current.Status != previous.Status {
		return true
	}
	return !sameCallsigns(current.Main, previous.Main) ||
		!sameCallsigns(current.SupportAbove, previous.SupportAbove) ||
		!sameCallsigns(current.SupportBelow, previous.SupportBelow)
}

func sameCallsigns(a, b []Controller) bool {
	as, bs := callsignSet(a), callsignSet(b)
	if len(as) != len(bs) {
		return false
	}
	for i := range as {
		if as[i] != bs[i] {
			return false
		}
	}
	return true
}

func callsignSet(controllers []Controller) []string {
	seen := make(map[string]bool, len(controllers))
	out := make([]string, 0, len(controllers))
	for _, c := range controllers {
		if seen[c.Callsign] {
			continue
		}
		seen[c.Callsign] = true
		out = append(out, c.Callsign)
	}
	sort.Strings(out)
	return out
}
