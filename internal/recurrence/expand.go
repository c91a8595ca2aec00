package recurrence

import (
	"sort"
	"time"
)

// civilDate is a calendar date free of any location, used so that stepping a
// recurrence never shifts the local wall-clock time across DST transitions.
type civilDate struct {
	year  int
	month time.Month
	day   int
}

func dateOf(t time.Time) civilDate {
	y, m, d := t.Date()
	return civilDate{y, m, d}
}

func (d civilDate) add(days int) civilDate {
	t := time.Date(d.year, d.month, d.day, 0, 0, 0, 0, time.UTC).AddDate(0, 0, days)
	return dateOf(t)
}

// at materializes the date at the given wall-clock time in loc. Occurrences
// are always rebuilt from date components, never by adding 24h durations.
func (d civilDate) at(hh, mm, ss, ns int, loc *time.Location) time.Time {
	return time.Date(d.year, d.month, d.day, hh, mm, ss, ns, loc)
}

func daysBetween(a, b civilDate) int {
	ta := time.Date(a.year, a.month, a.day, 0, 0, 0, 0, time.UTC)
	tb := time.Date(b.year, b.month, b.day, 0, 0, 0, 0, time.UTC)
	return int(tb.Sub(ta).Hours() / 24)
}

// mondayIndex maps a weekday onto its Monday-first position, matching how
// weekly cycles are counted.
func mondayIndex(wd time.Weekday) int { return (int(wd) + 6) % 7 }

// Occurrences expands rule into every occurrence timestamp t with
// anchor <= t, windowStart <= t <= windowEnd. All arithmetic happens in loc
// so a daily rule keeps its local wall-clock time across DST boundaries. The
// result is finite, ascending, and deterministic for identical inputs.
func Occurrences(rule Rule, anchor time.Time, loc *time.Location, windowStart, windowEnd time.Time) []time.Time {
	if loc == nil {
		loc = time.UTC
	}
	if windowEnd.Before(windowStart) {
		return nil
	}

	a := anchor.In(loc)
	hh, mm, ss := a.Clock()
	ns := a.Nanosecond()
	anchorDate := dateOf(a)
	wsDate := dateOf(windowStart.In(loc))

	inRange := func(t time.Time) bool {
		return !t.Before(anchor) && !t.Before(windowStart) && !t.After(windowEnd)
	}

	var out []time.Time
	switch rule.Freq {
	case Daily, Weekly:
		if rule.Freq == Weekly && len(rule.ByDay) > 0 {
			out = weeklyByDay(rule, anchorDate, hh, mm, ss, ns, loc, wsDate, windowEnd, inRange)
			break
		}
		stepDays := rule.Interval
		if rule.Freq == Weekly {
			stepDays = rule.Interval * 7
		}
		k := 0
		if db := daysBetween(anchorDate, wsDate); db > 0 {
			// Fast-forward near the window, backing off one step so the
			// boundary occurrence is never skipped.
			k = db/stepDays - 1
			if k < 0 {
				k = 0
			}
		}
		for {
			t := anchorDate.add(k * stepDays).at(hh, mm, ss, ns, loc)
			if t.After(windowEnd) {
				break
			}
			if inRange(t) {
				out = append(out, t)
			}
			k++
		}
	case Monthly:
		k := 0
		if mb := monthsBetween(anchorDate, wsDate); mb > 0 {
			k = mb/rule.Interval - 1
			if k < 0 {
				k = 0
			}
		}
		for {
			total := int(anchorDate.month) - 1 + k*rule.Interval
			yy := anchorDate.year + total/12
			mo := time.Month(total%12 + 1)
			// Probe the first of the month for loop termination; the target
			// day may not exist in this month.
			if time.Date(yy, mo, 1, hh, mm, ss, ns, loc).After(windowEnd) {
				break
			}
			t := time.Date(yy, mo, anchorDate.day, hh, mm, ss, ns, loc)
			// Short months (e.g. the 31st in February) yield no occurrence
			// rather than sliding into the next month.
			if t.Day() == anchorDate.day && inRange(t) {
				out = append(out, t)
			}
			k++
		}
	}
	return out
}

func weeklyByDay(rule Rule, anchorDate civilDate, hh, mm, ss, ns int, loc *time.Location, wsDate civilDate, windowEnd time.Time, inRange func(time.Time) bool) []time.Time {
	days := append([]time.Weekday(nil), rule.ByDay...)
	sort.Slice(days, func(i, j int) bool { return mondayIndex(days[i]) < mondayIndex(days[j]) })
	days = dedupeWeekdays(days)

	anchorMonday := anchorDate.add(-mondayIndex(time.Date(anchorDate.year, anchorDate.month, anchorDate.day, 0, 0, 0, 0, time.UTC).Weekday()))
	w := 0
	if db := daysBetween(anchorDate, wsDate); db > 0 {
		w = db/(7*rule.Interval) - 1
		if w < 0 {
			w = 0
		}
	}
	var out []time.Time
	for {
		weekMonday := anchorMonday.add(w * rule.Interval * 7)
		if weekMonday.at(hh, mm, ss, ns, loc).After(windowEnd) {
			break
		}
		for _, wd := range days {
			t := weekMonday.add(mondayIndex(wd)).at(hh, mm, ss, ns, loc)
			if t.After(windowEnd) {
				continue
			}
			if inRange(t) {
				out = append(out, t)
			}
		}
		w++
	}
	return out
}

func dedupeWeekdays(days []time.Weekday) []time.Weekday {
	out := days[:0]
	for i, d := range days {
		if i == 0 || days[i-1] != d {
			out = append(out, d)
		}
	}
	return out
}

func monthsBetween(a, b civilDate) int {
	return (b.year-a.year)*12 + int(b.month) - int(a.month)
}
