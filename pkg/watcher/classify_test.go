package watcher

import "testing"

func defaultTiers() TierConfig {
	return TierConfig{
		Main:         []string{`^OAK_(?:[A-Z\d]+_)?TWR$`},
		SupportAbove: []string{`^NCT_APP$`, `^OAK_\d+_CTR$`},
		SupportBelow: []string{`^OAK_(?:[A-Z\d]+_)?GND$`, `^OAK_(?:[A-Z\d]+_)?DEL$`},
	}
}

func active(callsign string) Controller {
	return Controller{Callsign: callsign, Frequency: "120.700"}
}

func TestClassify(t *testing.T) {
	c, err := NewClassifier(defaultTiers())
	if err != nil {
		t.Fatalf("NewClassifier() error = %v", err)
	}

	tests := []struct {
		name        string
		controllers []Controller
		wantMain    []string
		wantAbove   []string
		wantBelow   []string
	}{
		{
			name:        "single tower",
			controllers: []Controller{active("OAK_TWR")},
			wantMain:    []string{"OAK_TWR"},
		},
		{
			name:        "relief tower callsigns match main",
			controllers: []Controller{active("OAK_1_TWR"), active("OAK_A_TWR")},
			wantMain:    []string{"OAK_1_TWR", "OAK_A_TWR"},
		},
		{
			name:        "case insensitive",
			controllers: []Controller{active("oak_twr")},
			wantMain:    []string{"oak_twr"},
		},
		{
			name:        "all three tiers populated",
			controllers: []Controller{active("NCT_APP"), active("OAK_GND"), active("OAK_TWR"), active("OAK_36_CTR")},
			wantMain:    []string{"OAK_TWR"},
			wantAbove:   []string{"NCT_APP", "OAK_36_CTR"},
			wantBelow:   []string{"OAK_GND"},
		},
		{
			name:        "unrelated callsigns ignored",
			controllers: []Controller{active("SFO_TWR"), active("ZOA_CTR")},
		},
		{
			name: "inactive frequency excluded from every tier",
			controllers: []Controller{
				{Callsign: "OAK_TWR", Frequency: InactiveFrequency},
				{Callsign: "NCT_APP", Frequency: InactiveFrequency},
			},
		},
		{
			name:        "partial match is not a match",
			controllers: []Controller{active("OAK_TWR_EXTRA")},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			main, above, below := c.Classify(tt.controllers)
			checkCallsigns(t, "main", main, tt.wantMain)
			checkCallsigns(t, "supportAbove", above, tt.wantAbove)
			checkCallsigns(t, "supportBelow", below, tt.wantBelow)
		})
	}
}

// A callsign matching both a main and a supporting-above pattern must be
// assigned to main only.
func TestClassifyPrecedence(t *testing.T) {
	c, err := NewClassifier(TierConfig{
		Main:         []string{`^OAK_.*$`},
		SupportAbove: []string{`^OAK_36_CTR$`},
		SupportBelow: []string{`^OAK_.*$`},
	})
	if err != nil {
		t.Fatalf("NewClassifier() error = %v", err)
	}

	main, above, below := c.Classify([]Controller{active("OAK_36_CTR")})
	if len(main) != 1 || main[0].Callsign != "OAK_36_CTR" {
		t.Errorf("main = %v, want [OAK_36_CTR]", main)
	}
	if len(above) != 0 {
		t.Errorf("supportAbove = %v, want empty", above)
	}
	if len(below) != 0 {
		t.Errorf("supportBelow = %v, want empty", below)
	}
}

func TestNewClassifierBadPattern(t *testing.T) {
	_, err := NewClassifier(TierConfig{Main: []string{`^OAK_(TWR$`}})
	if err == nil {
		t.Fatal("NewClassifier() with unbalanced pattern should fail")
	}
}

func checkCallsigns(t *testing.T, tier string, got []Controller, want []string) {
	t.Helper()
	if len(got) != len(want) {
		t.Fatalf("%s = %v, want callsigns %v", tier, got, want)
	}
	for i, c := range got {
		if c.Callsign != want[i] {
			t.Errorf("%s[%d].Callsign = %q, want %q", tier, i, c.Callsign, want[i])
		}
	}
}
