package recurrence

import (
	"testing"
	"time"
)

func mustParse(t *testing.T, text string) Rule {
	t.Helper()
	r, err := Parse(text)
	if err != nil {
		t.Fatalf("Parse(%q): %v", text, err)
	}
	return r
}

func TestOccurrencesDaily(t *testing.T) {
	loc := time.UTC
	anchor := time.Date(2025, 3, 1, 9, 0, 0, 0, loc)
	ws := time.Date(2025, 3, 1, 0, 0, 0, 0, loc)
	we := time.Date(2025, 3, 7, 23, 59, 59, 0, loc)

	got := Occurrences(mustParse(t, "FREQ=DAILY;INTERVAL=2"), anchor, loc, ws, we)
	want := []time.Time{
		time.Date(2025, 3, 1, 9, 0, 0, 0, loc),
		time.Date(2025, 3, 3, 9, 0, 0, 0, loc),
		time.Date(2025, 3, 5, 9, 0, 0, 0, loc),
		time.Date(2025, 3, 7, 9, 0, 0, 0, loc),
	}
	assertTimes(t, got, want)
}

func TestOccurrencesWindowBeforeAnchor(t *testing.T) {
	loc := time.UTC
	anchor := time.Date(2025, 6, 15, 8, 0, 0, 0, loc)
	ws := time.Date(2025, 6, 1, 0, 0, 0, 0, loc)
	we := time.Date(2025, 6, 14, 23, 0, 0, 0, loc)
	if got := Occurrences(mustParse(t, "FREQ=DAILY"), anchor, loc, ws, we); len(got) != 0 {
		t.Fatalf("expected no occurrences before anchor, got %v", got)
	}
}

func TestOccurrencesWeeklyByDay(t *testing.T) {
	loc := time.UTC
	// Anchor is Wednesday 2025-01-01.
	anchor := time.Date(2025, 1, 1, 7, 30, 0, 0, loc)
	ws := anchor
	we := time.Date(2025, 1, 15, 0, 0, 0, 0, loc)

	got := Occurrences(mustParse(t, "FREQ=WEEKLY;BYDAY=MO,WE"), anchor, loc, ws, we)
	want := []time.Time{
		time.Date(2025, 1, 1, 7, 30, 0, 0, loc),  // WE (anchor week MO is before anchor)
		time.Date(2025, 1, 6, 7, 30, 0, 0, loc),  // MO
		time.Date(2025, 1, 8, 7, 30, 0, 0, loc),  // WE
		time.Date(2025, 1, 13, 7, 30, 0, 0, loc), // MO
	}
	assertTimes(t, got, want)
}

func TestOccurrencesWeeklyInterval(t *testing.T) {
	loc := time.UTC
	// Anchor is Monday 2025-01-06.
	anchor := time.Date(2025, 1, 6, 18, 0, 0, 0, loc)
	ws := anchor
	we := time.Date(2025, 2, 10, 23, 0, 0, 0, loc)

	got := Occurrences(mustParse(t, "FREQ=WEEKLY;INTERVAL=2"), anchor, loc, ws, we)
	want := []time.Time{
		time.Date(2025, 1, 6, 18, 0, 0, 0, loc),
		time.Date(2025, 1, 20, 18, 0, 0, 0, loc),
		time.Date(2025, 2, 3, 18, 0, 0, 0, loc),
	}
	assertTimes(t, got, want)
}

func TestOccurrencesMonthlyShortMonths(t *testing.T) {
	loc := time.UTC
	anchor := time.Date(2025, 1, 31, 12, 0, 0, 0, loc)
	ws := anchor
	we := time.Date(2025, 5, 31, 23, 0, 0, 0, loc)

	got := Occurrences(mustParse(t, "FREQ=MONTHLY"), anchor, loc, ws, we)
	// February and April have no 31st; those months produce nothing.
	want := []time.Time{
		time.Date(2025, 1, 31, 12, 0, 0, 0, loc),
		time.Date(2025, 3, 31, 12, 0, 0, 0, loc),
		time.Date(2025, 5, 31, 12, 0, 0, 0, loc),
	}
	assertTimes(t, got, want)
}

func TestOccurrencesDailyAcrossDST(t *testing.T) {
	loc, err := time.LoadLocation("America/New_York")
	if err != nil {
		t.Skipf("tzdata unavailable: %v", err)
	}
	// US spring-forward was 2025-03-09.
	anchor := time.Date(2025, 3, 7, 9, 0, 0, 0, loc)
	ws := anchor
	we := time.Date(2025, 3, 11, 23, 0, 0, 0, loc)

	got := Occurrences(mustParse(t, "FREQ=DAILY"), anchor, loc, ws, we)
	if len(got) != 5 {
		t.Fatalf("expected 5 occurrences, got %d: %v", len(got), got)
	}
	for _, occ := range got {
		h, m, _ := occ.In(loc).Clock()
		if h != 9 || m != 0 {
			t.Errorf("occurrence %v drifted off 09:00 local", occ)
		}
	}
}

func TestOccurrencesDeterministic(t *testing.T) {
	loc := time.UTC
	anchor := time.Date(2025, 1, 1, 6, 0, 0, 0, loc)
	ws := time.Date(2025, 4, 1, 0, 0, 0, 0, loc)
	we := time.Date(2025, 4, 30, 23, 59, 0, 0, loc)
	rule := mustParse(t, "FREQ=WEEKLY;INTERVAL=3;BYDAY=TU,FR")

	first := Occurrences(rule, anchor, loc, ws, we)
	for i := 0; i < 3; i++ {
		assertTimes(t, Occurrences(rule, anchor, loc, ws, we), first)
	}
	// Ascending and strictly in-window.
	for i, occ := range first {
		if occ.Before(ws) || occ.After(we) {
			t.Errorf("occurrence %v outside window", occ)
		}
		if i > 0 && occ.Before(first[i-1]) {
			t.Errorf("occurrences not ascending at %d", i)
		}
	}
}

func TestOccurrencesEmptyWindow(t *testing.T) {
	loc := time.UTC
	anchor := time.Date(2025, 1, 1, 6, 0, 0, 0, loc)
	if got := Occurrences(mustParse(t, "FREQ=DAILY"), anchor, loc, anchor, anchor.Add(-time.Hour)); got != nil {
		t.Fatalf("inverted window should be empty, got %v", got)
	}
}

func assertTimes(t *testing.T, got, want []time.Time) {
	t.Helper()
	if len(got) != len(want) {
		t.Fatalf("got %d occurrences %v, want %d %v", len(got), got, len(want), want)
	}
	for i := range got {
		if !got[i].Equal(want[i]) {
			t.Errorf("occurrence[%d] = %v, want %v", i, got[i], want[i])
		}
	}
}
