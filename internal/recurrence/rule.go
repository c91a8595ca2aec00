// Package recurrence parses recurrence rules and expands them into concrete
// occurrence timestamps within a bounded window.
package recurrence

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Freq is a recurrence frequency.
type Freq string

const (
	Daily   Freq = "DAILY"
	Weekly  Freq = "WEEKLY"
	Monthly Freq = "MONTHLY"
)

// Rule is a parsed recurrence rule. ByDay is only meaningful for weekly
// rules; an empty ByDay means "the anchor's weekday".
type Rule struct {
	Freq     Freq
	Interval int
	ByDay    []time.Weekday
}

// RuleError reports a malformed recurrence rule. Token carries the offending
// part of the rule text so callers can flag the item for review; an item whose
// rule fails to parse must never fall back to a default cadence.
type RuleError struct {
	Token string
	Msg   string
}

func (e *RuleError) Error() string {
	return fmt.Sprintf("recurrence rule error at %q: %s", e.Token, e.Msg)
}

var weekdayCodes = map[string]time.Weekday{
	"MO": time.Monday,
	"TU": time.Tuesday,
	"WE": time.Wednesday,
	"TH": time.Thursday,
	"FR": time.Friday,
	"SA": time.Saturday,
	"SU": time.Sunday,
}

// Parse parses RRULE-like text of the form
// "FREQ=WEEKLY;INTERVAL=2;BYDAY=MO,WE". Keys and values are
// case-insensitive. INTERVAL defaults to 1.
func Parse(text string) (Rule, error) {
	r := Rule{Interval: 1}
	seen := map[string]bool{}

	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return Rule{}, &RuleError{Token: text, Msg: "empty rule"}
	}

	for _, part := range strings.Split(trimmed, ";") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		key, value, ok := strings.Cut(part, "=")
		if !ok {
			return Rule{}, &RuleError{Token: part, Msg: "expected KEY=VALUE"}
		}
		key = strings.ToUpper(strings.TrimSpace(key))
		value = strings.TrimSpace(value)
		if seen[key] {
			return Rule{}, &RuleError{Token: part, Msg: "duplicate key"}
		}
		seen[key] = true

		switch key {
		case "FREQ":
			switch Freq(strings.ToUpper(value)) {
			case Daily:
				r.Freq = Daily
			case Weekly:
				r.Freq = Weekly
			case Monthly:
				r.Freq = Monthly
			default:
				return Rule{}, &RuleError{Token: value, Msg: "unsupported frequency"}
			}
		case "INTERVAL":
			n, err := strconv.Atoi(value)
			if err != nil || n < 1 {
				return Rule{}, &RuleError{Token: value, Msg: "interval must be an integer >= 1"}
			}
			r.Interval = n
		case "BYDAY":
			for _, code := range strings.Split(value, ",") {
				code = strings.ToUpper(strings.TrimSpace(code))
				wd, ok := weekdayCodes[code]
				if !ok {
					return Rule{}, &RuleError{Token: code, Msg: "unknown weekday code"}
				}
				r.ByDay = append(r.ByDay, wd)
			}
		default:
			return Rule{}, &RuleError{Token: key, Msg: "unknown key"}
		}
	}

	if r.Freq == "" {
		return Rule{}, &RuleError{Token: trimmed, Msg: "missing FREQ"}
	}
	if len(r.ByDay) > 0 && r.Freq != Weekly {
		return Rule{}, &RuleError{Token: "BYDAY", Msg: "BYDAY is only valid for weekly rules"}
	}
	return r, nil
}

// Summary renders a compact human-readable form used by the sprint index
// ("every 2 weeks on MO,WE").
func (r Rule) Summary() string {
	unit := map[Freq]string{Daily: "day", Weekly: "week", Monthly: "month"}[r.Freq]
	var b strings.Builder
	if r.Interval == 1 {
		fmt.Fprintf(&b, "every %s", unit)
	} else {
		fmt.Fprintf(&b, "every %d %ss", r.Interval, unit)
	}
	if len(r.ByDay) > 0 {
		codes := make([]string, len(r.ByDay))
		for i, wd := range r.ByDay {
			for code, w := range weekdayCodes {
				if w == wd {
					codes[i] = code
				}
			}
		}
		fmt.Fprintf(&b, " on %s", strings.Join(codes, ","))
	}
	return b.String()
}
