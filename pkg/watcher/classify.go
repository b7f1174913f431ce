package watcher

import (
	"fmt"
	"regexp"
)

// Classifier assigns controllers to facility tiers by callsign pattern.
// Patterns are compiled once at construction; a pattern that fails to
// compile is a configuration error, not a per-poll condition.
type Classifier struct {
	main         []*regexp.Regexp
	supportAbove []*regexp.Regexp
	supportBelow []*regexp.Regexp
}

// NewClassifier compiles the tier patterns. Matching is case-insensitive
// and anchored to the whole callsign regardless of whether the pattern
// carries its own anchors.
func NewClassifier(cfg TierConfig) (*Classifier, error) {
	c := &Classifier{}
	for _, tier := range []struct {
		name     string
		patterns []string
		dst      *[]*regexp.Regexp
	}{
		{"main_facility", cfg.Main, &c.main},
		{"supporting_above", cfg.SupportAbove, &c.supportAbove},
		{"supporting_below", cfg.SupportBelow, &c.supportBelow},
	} {
		for _, p := range tier.patterns {
			re, err := regexp.Compile(`(?i)\A(?:` + p + `)\z`)
			if err != nil {
				return nil, fmt.Errorf("compile %s pattern %q: %w", tier.name, p, err)
			}
			*tier.dst = append(*tier.dst, re)
		}
	}
	return c, nil
}

// Classify splits controllers into the three tier lists. Controllers on the
// inactive frequency sentinel are dropped before any pattern is tested.
// Tiers are tested in precedence order and the first match wins, so an
// entity matching multiple tiers lands only in the highest one.
func (c *Classifier) Classify(controllers []Controller) (main, supportAbove, supportBelow []Controller) {
	for _, ctrl := range controllers {
		if !ctrl.Active() {
			continue
		}
		switch {
		case matchAny(c.main, ctrl.Callsign):
			main = append(main, ctrl)
		case matchAny(c.supportAbove, ctrl.Callsign):
			supportAbove = append(supportAbove, ctrl)
		case matchAny(c.supportBelow, ctrl.Callsign):
			supportBelow = append(supportBelow, ctrl)
		}
	}
	return main, supportAbove, supportBelow
}

func matchAny(patterns []*regexp.Regexp, callsign string) bool {
	for _, re := range patterns {
		if re.MatchString(callsign) {
			return true
		}
	}
	return false
}
