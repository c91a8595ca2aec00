package model

import "testing"

func TestCanonicalTaskSynonyms(t *testing.T) {
	cases := map[string]Status{
		"In Progress": TaskInProgress,
		"in-progress": TaskInProgress,
		"WIP":         TaskInProgress,
		"doing":       TaskInProgress,
		"To Do":       TaskTodo,
		"Completed":   TaskDone,
		"on hold":     TaskBlocked,
	}
	for raw, want := range cases {
		got, ok := Canonical(KindTask, raw)
		if !ok || got != want {
			t.Errorf("Canonical(task, %q) = (%q, %v), want (%q, true)", raw, got, ok, want)
		}
	}
}

func TestCanonicalIdempotent(t *testing.T) {
	for _, st := range []Status{TaskTodo, TaskInProgress, TaskDone, TaskBlocked} {
		got, ok := Canonical(KindTask, string(st))
		if !ok || got != st {
			t.Errorf("Canonical(task, %q) = (%q, %v), want identity", st, got, ok)
		}
	}
	for _, st := range []Status{StoryBacklog, StoryInProgress, StoryDone} {
		got, ok := Canonical(KindStory, string(st))
		if !ok || got != st {
			t.Errorf("Canonical(story, %q) = (%q, %v), want identity", st, got, ok)
		}
	}
}

func TestCanonicalUnmapped(t *testing.T) {
	if _, ok := Canonical(KindTask, "archived"); ok {
		t.Fatalf("expected no mapping for 'archived'")
	}
	if _, ok := Canonical(KindTask, ""); ok {
		t.Fatalf("expected no mapping for empty string")
	}
	if _, ok := Canonical(KindTask, nil); ok {
		t.Fatalf("expected no mapping for nil")
	}
}

func TestCanonicalNumericLegacy(t *testing.T) {
	// JSON numbers arrive as float64.
	if got, ok := Canonical(KindTask, float64(1)); !ok || got != TaskInProgress {
		t.Fatalf("task code 1 = (%q, %v)", got, ok)
	}
	if got, ok := Canonical(KindStory, 0); !ok || got != StoryBacklog {
		t.Fatalf("story code 0 = (%q, %v)", got, ok)
	}
	if _, ok := Canonical(KindStory, 3); ok {
		t.Fatalf("story code 3 should be out of range")
	}
	if _, ok := Canonical(KindTask, -1); ok {
		t.Fatalf("negative code should be out of range")
	}
	if _, ok := Canonical(KindTask, 1.5); ok {
		t.Fatalf("fractional code should be unmapped")
	}
}

func TestCanonicalChoreUsesTaskEnum(t *testing.T) {
	if got, ok := Canonical(KindChore, "active"); !ok || got != TaskInProgress {
		t.Fatalf("chore 'active' = (%q, %v)", got, ok)
	}
}
