package assignment

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lodestone-app/lodestone/internal/model"
)

func TestCanTransition(t *testing.T) {
	legal := [][2]model.AssignmentStatus{
		{model.AssignmentPlanned, model.AssignmentInProgress},
		{model.AssignmentPlanned, model.AssignmentDeferred},
		{model.AssignmentPlanned, model.AssignmentSkipped},
		{model.AssignmentDeferred, model.AssignmentPlanned},
		{model.AssignmentDeferred, model.AssignmentSkipped},
		{model.AssignmentInProgress, model.AssignmentDone},
		{model.AssignmentInProgress, model.AssignmentSkipped},
	}
	for _, tr := range legal {
		assert.True(t, CanTransition(tr[0], tr[1]), "%s -> %s should be legal", tr[0], tr[1])
	}

	illegal := [][2]model.AssignmentStatus{
		{model.AssignmentPlanned, model.AssignmentDone},
		{model.AssignmentDeferred, model.AssignmentDone},
		{model.AssignmentDone, model.AssignmentPlanned},
		{model.AssignmentDone, model.AssignmentSkipped},
		{model.AssignmentSkipped, model.AssignmentPlanned},
		{model.AssignmentSkipped, model.AssignmentDone},
		{model.AssignmentInProgress, model.AssignmentPlanned},
	}
	for _, tr := range illegal {
		assert.False(t, CanTransition(tr[0], tr[1]), "%s -> %s should be illegal", tr[0], tr[1])
	}
}

func TestTransitionRejectsIllegal(t *testing.T) {
	a := model.PlanAssignment{AssignmentID: "a1", Status: model.AssignmentDone}
	err := Transition(&a, model.AssignmentPlanned)
	require.ErrorIs(t, err, model.ErrConflict)
	assert.Equal(t, model.AssignmentDone, a.Status)
}

func newTestDraft(status model.AssignmentStatus, blockID string) model.PlanAssignment {
	start := time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC)
	end := start.Add(30 * time.Minute)
	d := model.PlanAssignment{
		AssignmentID:     ID("o1", "2025-03-01", "i1"),
		PlanID:           model.PlanID("o1", "2025-03-01"),
		DayKey:           "2025-03-01",
		OwnerID:          "o1",
		ItemKind:         model.KindTask,
		ItemID:           "i1",
		Title:            "Write report",
		EstimatedMinutes: 30,
		Status:           status,
	}
	if blockID != "" {
		d.BlockID = &blockID
		d.Start = &start
		d.End = &end
	}
	return d
}

func TestMergeInsert(t *testing.T) {
	draft := newTestDraft(model.AssignmentPlanned, "b1")
	merged, changed := Merge(nil, draft)
	assert.True(t, changed)
	assert.Equal(t, draft, merged)
}

func TestMergeIdempotent(t *testing.T) {
	draft := newTestDraft(model.AssignmentPlanned, "b1")
	once, _ := Merge(nil, draft)
	twice, changed := Merge(&once, draft)
	assert.False(t, changed)
	assert.Equal(t, once, twice)
}

func TestMergeReplanMovesUndoneWork(t *testing.T) {
	existing := newTestDraft(model.AssignmentPlanned, "b1")
	draft := newTestDraft(model.AssignmentDeferred, "")

	merged, changed := Merge(&existing, draft)
	require.True(t, changed)
	assert.Equal(t, model.AssignmentDeferred, merged.Status)
	assert.Nil(t, merged.BlockID)
	assert.Nil(t, merged.Start)
}

func TestMergeProtectsProgress(t *testing.T) {
	for _, status := range []model.AssignmentStatus{
		model.AssignmentInProgress, model.AssignmentDone, model.AssignmentSkipped,
	} {
		existing := newTestDraft(status, "b1")
		existing.External = &model.ExternalLinks{GoogleEventID: "evt-1"}

		draft := newTestDraft(model.AssignmentPlanned, "b2")
		draft.Title = "Write report v2"
		draft.EstimatedMinutes = 45

		merged, changed := Merge(&existing, draft)
		require.True(t, changed, "cosmetic refresh counts as a change")
		assert.Equal(t, status, merged.Status, "schedule status must survive re-plan")
		assert.Equal(t, "b1", *merged.BlockID, "block binding must survive re-plan")
		assert.Equal(t, "Write report v2", merged.Title)
		assert.Equal(t, 45, merged.EstimatedMinutes)
		assert.Equal(t, "evt-1", merged.External.GoogleEventID, "external linkage is preserved, never originated")
	}
}

func TestMergeNoChangeNoWrite(t *testing.T) {
	existing := newTestDraft(model.AssignmentDone, "b1")
	draft := newTestDraft(model.AssignmentPlanned, "b2")
	draft.Title = existing.Title
	draft.EstimatedMinutes = existing.EstimatedMinutes

	_, changed := Merge(&existing, draft)
	assert.False(t, changed, "terminal assignment with identical cosmetics needs no write")
}
