package notify

import (
	"strings"
	"testing"

	"github.com/leftos/oak-tower-watcher-sub000/pkg/watcher"
)

func testFormatter() *Formatter {
	return &Formatter{
		DisplayName: "KOAK Main Facility",
		Names:       map[string]string{"1234567": "Jamie Example"},
	}
}

// Every ordered (previous, current) pair over the four real statuses must
// produce a non-empty title and body.
func TestFormatCompleteness(t *testing.T) {
	statuses := []watcher.Status{
		watcher.StatusMainAndAboveOnline,
		watcher.StatusMainOnline,
		watcher.StatusAboveOnline,
		watcher.StatusAllOffline,
	}
	f := testFormatter()
	main := []watcher.Controller{{Callsign: "OAK_TWR", CID: "1234567", Frequency: "120.700"}}
	above := []watcher.Controller{{Callsign: "NCT_APP", Frequency: "135.650"}}

	for _, prev := range statuses {
		for _, cur := range statuses {
			title, body, tone := f.Format(prev, cur, main, above, nil)
			if title == "" {
				t.Errorf("Format(%s -> %s) returned empty title", prev, cur)
			}
			if body == "" {
				t.Errorf("Format(%s -> %s) returned empty body", prev, cur)
			}
			if tone != ToneSuccess && tone != ToneWarning && tone != ToneError {
				t.Errorf("Format(%s -> %s) tone = %q", prev, cur, tone)
			}
		}
	}
}

func TestFormatTransitions(t *testing.T) {
	f := testFormatter()
	main := []watcher.Controller{{Callsign: "OAK_TWR", CID: "1234567"}}
	above := []watcher.Controller{{Callsign: "NCT_APP"}}
	below := []watcher.Controller{{Callsign: "OAK_GND"}}

	tests := []struct {
		name       string
		prev, cur  watcher.Status
		wantTitle  string
		wantInBody []string
		wantTone   string
	}{
		{
			name:       "tower comes online from nothing",
			prev:       watcher.StatusAllOffline,
			cur:        watcher.StatusMainOnline,
			wantTitle:  "KOAK Main Facility Online!",
			wantInBody: []string{"OAK_TWR (Jamie Example)", "is now online!"},
			wantTone:   ToneSuccess,
		},
		{
			name:       "tower drops leaving approach",
			prev:       watcher.StatusMainAndAboveOnline,
			cur:        watcher.StatusAboveOnline,
			wantTitle:  "KOAK Main Facility Now Offline",
			wantInBody: []string{"Only supporting above facility remains online", "NCT_APP"},
			wantTone:   ToneWarning,
		},
		{
			name:       "everything drops",
			prev:       watcher.StatusMainOnline,
			cur:        watcher.StatusAllOffline,
			wantTitle:  "KOAK Main Facility Now Offline",
			wantInBody: []string{"controller has gone offline"},
			wantTone:   ToneError,
		},
		{
			name:       "full coverage reached",
			prev:       watcher.StatusMainOnline,
			cur:        watcher.StatusMainAndAboveOnline,
			wantTitle:  "Supporting Above Facilities Now Online!",
			wantInBody: []string{"KOAK Main Facility: OAK_TWR", "Supporting Above: NCT_APP"},
			wantTone:   ToneSuccess,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			title, body, tone := f.Format(tt.prev, tt.cur, main, above, below)
			if title != tt.wantTitle {
				t.Errorf("title = %q, want %q", title, tt.wantTitle)
			}
			for _, want := range tt.wantInBody {
				if !strings.Contains(body, want) {
					t.Errorf("body %q missing %q", body, want)
				}
			}
			if !strings.Contains(body, "Below: OAK_GND") {
				t.Errorf("body %q missing supporting-below context", body)
			}
			if tone != tt.wantTone {
				t.Errorf("tone = %q, want %q", tone, tt.wantTone)
			}
		})
	}
}

func TestResolveName(t *testing.T) {
	f := testFormatter()

	tests := []struct {
		name string
		ctrl watcher.Controller
		want string
	}{
		{"feed name preferred", watcher.Controller{Name: "Alex Sample", CID: "1234567"}, "Alex Sample"},
		{"numeric feed name falls back to roster", watcher.Controller{Name: "1000001", CID: "1234567"}, "Jamie Example"},
		{"short feed name falls back to roster", watcher.Controller{Name: "AB", CID: "1234567"}, "Jamie Example"},
		{"unknown cid yields empty", watcher.Controller{Name: "99", CID: "0000000"}, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := f.resolveName(tt.ctrl); got != tt.want {
				t.Errorf("resolveName() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestControllerListWithoutName(t *testing.T) {
	f := &Formatter{DisplayName: "KOAK Main Facility"}
	got := f.controllerList([]watcher.Controller{{Callsign: "OAK_TWR", Name: "12"}}, "")
	if got != "OAK_TWR" {
		t.Errorf("controllerList() = %q, want bare callsign", got)
	}
}

func TestPriorityAndSoundMaps(t *testing.T) {
	tests := []struct {
		status       watcher.Status
		wantPriority int
		wantSound    string
	}{
		{watcher.StatusMainAndAboveOnline, 1, "magic"},
		{watcher.StatusMainOnline, 0, "pushover"},
		{watcher.StatusAboveOnline, 0, "intermission"},
		{watcher.StatusAllOffline, 0, "falling"},
		{watcher.StatusError, -1, "none"},
	}

	for _, tt := range tests {
		if got := PriorityFor(tt.status); got != tt.wantPriority {
			t.Errorf("PriorityFor(%s) = %d, want %d", tt.status, got, tt.wantPriority)
		}
		if got := SoundFor(tt.status); got != tt.wantSound {
			t.Errorf("SoundFor(%s) = %q, want %q", tt.status, got, tt.wantSound)
		}
	}
}
