// Package storetest provides a reusable compliance suite that every
// store.Store implementation must pass. Driver packages call Run from their
// own tests so memory, sqlite, and postgres stay behaviorally aligned.
package storetest

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lodestone-app/lodestone/internal/model"
	"github.com/lodestone-app/lodestone/internal/store"
)

// Factory builds a fresh, empty store for a single test.
type Factory func(t *testing.T) store.Store

// Run executes the compliance suite against the given store factory.
func Run(t *testing.T, makeStore Factory) {
	t.Run("Items", func(t *testing.T) { testItems(t, makeStore(t)) })
	t.Run("ItemsBatch", func(t *testing.T) { testItemsBatch(t, makeStore(t)) })
	t.Run("Blocks", func(t *testing.T) { testBlocks(t, makeStore(t)) })
	t.Run("Assignments", func(t *testing.T) { testAssignments(t, makeStore(t)) })
	t.Run("Index", func(t *testing.T) { testIndex(t, makeStore(t)) })
}

func ts(h int) time.Time {
	return time.Date(2025, 6, 1, h, 0, 0, 0, time.UTC)
}

func sampleItem(id, owner string) *model.Item {
	return &model.Item{
		ItemID:           id,
		Kind:             model.KindTask,
		OwnerID:          owner,
		Title:            "Write report",
		EstimatedMinutes: 30,
		Priority:         2,
		Status:           "todo",
		CreationTime:     ts(8),
		UpdateTime:       ts(9),
	}
}

func testItems(t *testing.T, s store.Store) {
	ctx := context.Background()

	_, err := s.Items().Get(ctx, "missing")
	require.ErrorIs(t, err, model.ErrNotFound)

	rrule := "FREQ=WEEKLY;BYDAY=MO"
	due := ts(10)
	it := sampleItem("item-1", "owner-a")
	it.RRule = &rrule
	it.NextDue = &due
	require.NoError(t, s.Items().Upsert(ctx, []*model.Item{it}))

	got, err := s.Items().Get(ctx, "item-1")
	require.NoError(t, err)
	assert.Equal(t, "Write report", got.Title)
	require.NotNil(t, got.RRule)
	assert.Equal(t, rrule, *got.RRule)
	require.NotNil(t, got.NextDue)
	assert.True(t, got.NextDue.Equal(due))
	assert.Equal(t, "todo", got.Status)

	// upsert replaces in place
	it.Title = "Write quarterly report"
	require.NoError(t, s.Items().Upsert(ctx, []*model.Item{it}))
	got, err = s.Items().Get(ctx, "item-1")
	require.NoError(t, err)
	assert.Equal(t, "Write quarterly report", got.Title)

	// numeric legacy statuses survive the round trip as float64
	legacy := sampleItem("item-2", "owner-a")
	legacy.Status = float64(1)
	require.NoError(t, s.Items().Upsert(ctx, []*model.Item{legacy}))
	got, err = s.Items().Get(ctx, "item-2")
	require.NoError(t, err)
	assert.Equal(t, float64(1), got.Status)

	unowned := sampleItem("item-3", "")
	require.NoError(t, s.Items().Upsert(ctx, []*model.Item{unowned}))

	byOwner, err := s.Items().ListByOwner(ctx, "owner-a")
	require.NoError(t, err)
	require.Len(t, byOwner, 2)
	assert.Equal(t, "item-1", byOwner[0].ItemID)

	owners, err := s.Items().ListOwners(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"owner-a"}, owners)

	orphans, err := s.Items().ListUnowned(ctx)
	require.NoError(t, err)
	require.Len(t, orphans, 1)
	assert.Equal(t, "item-3", orphans[0].ItemID)

	existing, err := s.Items().ExistingIDs(ctx, []string{"item-1", "nope", "item-3"})
	require.NoError(t, err)
	assert.Equal(t, map[string]bool{"item-1": true, "item-3": true}, existing)

	require.NoError(t, s.Items().Delete(ctx, []string{"item-3"}))
	_, err = s.Items().Get(ctx, "item-3")
	assert.ErrorIs(t, err, model.ErrNotFound)
}

func testItemsBatch(t *testing.T, s store.Store) {
	ctx := context.Background()

	over := make([]*model.Item, store.MaxBatchSize+1)
	for i := range over {
		over[i] = sampleItem("x", "o")
	}
	err := s.Items().Upsert(ctx, over)
	require.ErrorIs(t, err, model.ErrValidation)

	ids := make([]string, store.MaxBatchSize+1)
	for i := range ids {
		ids[i] = "x"
	}
	_, err = s.Items().ExistingIDs(ctx, ids)
	require.ErrorIs(t, err, model.ErrValidation)
	require.ErrorIs(t, s.Items().Delete(ctx, ids), model.ErrValidation)
}

func testBlocks(t *testing.T, s store.Store) {
	ctx := context.Background()
	loc, err := time.LoadLocation("America/New_York")
	if err != nil {
		loc = time.UTC
	}

	theme := "deep-work"
	morning := model.Block{
		BlockID: "blk-1",
		OwnerID: "owner-a",
		Start:   time.Date(2025, 6, 2, 9, 0, 0, 0, loc),
		End:     time.Date(2025, 6, 2, 11, 0, 0, 0, loc),
		Persona: model.PersonaWork,
		ThemeID: &theme,
	}
	evening := model.Block{
		BlockID:              "blk-2",
		OwnerID:              "owner-a",
		Start:                time.Date(2025, 6, 2, 19, 0, 0, 0, loc),
		End:                  time.Date(2025, 6, 2, 20, 0, 0, 0, loc),
		Persona:              model.PersonaPersonal,
		DailyCapacityMinutes: 45,
	}
	otherDay := model.Block{
		BlockID: "blk-3",
		OwnerID: "owner-a",
		Start:   time.Date(2025, 6, 3, 9, 0, 0, 0, loc),
		End:     time.Date(2025, 6, 3, 10, 0, 0, 0, loc),
		Persona: model.PersonaWork,
	}
	require.NoError(t, s.Blocks().Upsert(ctx, []model.Block{morning, evening, otherDay}))

	got, err := s.Blocks().ListByOwnerDay(ctx, "owner-a", "2025-06-02")
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "blk-1", got[0].BlockID)
	require.NotNil(t, got[0].ThemeID)
	assert.Equal(t, "deep-work", *got[0].ThemeID)
	assert.Equal(t, 45, got[1].DailyCapacityMinutes)
	assert.True(t, got[0].Start.Equal(morning.Start))

	none, err := s.Blocks().ListByOwnerDay(ctx, "owner-b", "2025-06-02")
	require.NoError(t, err)
	assert.Empty(t, none)
}

func testAssignments(t *testing.T, s store.Store) {
	ctx := context.Background()

	_, err := s.Assignments().Get(ctx, "missing")
	require.ErrorIs(t, err, model.ErrNotFound)

	blockID := "blk-1"
	start := ts(9)
	end := ts(10)
	a := &model.PlanAssignment{
		AssignmentID:     "asg-1",
		PlanID:           model.PlanID("owner-a", "2025-06-02"),
		DayKey:           "2025-06-02",
		OwnerID:          "owner-a",
		ItemKind:         model.KindTask,
		ItemID:           "item-1",
		Title:            "Write report",
		EstimatedMinutes: 60,
		BlockID:          &blockID,
		Start:            &start,
		End:              &end,
		Status:           model.AssignmentPlanned,
		External:         &model.ExternalLinks{GoogleEventID: "gcal-123"},
		CreationTime:     ts(8),
		UpdateTime:       ts(8),
	}
	deferred := &model.PlanAssignment{
		AssignmentID: "asg-2",
		PlanID:       model.PlanID("owner-a", "2025-06-02"),
		DayKey:       "2025-06-02",
		OwnerID:      "owner-a",
		ItemKind:     model.KindChore,
		ItemID:       "item-2",
		Title:        "Water plants",
		Status:       model.AssignmentDeferred,
		CreationTime: ts(8),
		UpdateTime:   ts(8),
	}
	require.NoError(t, s.Assignments().Upsert(ctx, []*model.PlanAssignment{a, deferred}))

	got, err := s.Assignments().Get(ctx, "asg-1")
	require.NoError(t, err)
	assert.Equal(t, model.AssignmentPlanned, got.Status)
	require.NotNil(t, got.External)
	assert.Equal(t, "gcal-123", got.External.GoogleEventID)
	require.NotNil(t, got.Start)
	assert.True(t, got.Start.Equal(start))

	got, err = s.Assignments().Get(ctx, "asg-2")
	require.NoError(t, err)
	assert.Nil(t, got.BlockID)
	assert.Nil(t, got.Start)
	assert.Nil(t, got.External)

	// status advance persists
	a.Status = model.AssignmentInProgress
	a.UpdateTime = ts(11)
	require.NoError(t, s.Assignments().Upsert(ctx, []*model.PlanAssignment{a}))
	got, err = s.Assignments().Get(ctx, "asg-1")
	require.NoError(t, err)
	assert.Equal(t, model.AssignmentInProgress, got.Status)

	plan, err := s.Assignments().ListByPlan(ctx, "owner-a", "2025-06-02")
	require.NoError(t, err)
	require.Len(t, plan, 2)
	assert.Equal(t, "asg-1", plan[0].AssignmentID)

	empty, err := s.Assignments().ListByPlan(ctx, "owner-a", "2025-06-03")
	require.NoError(t, err)
	assert.Empty(t, empty)
}

func testIndex(t *testing.T, s store.Store) {
	ctx := context.Background()

	_, err := s.Index().Get(ctx, "missing")
	require.ErrorIs(t, err, model.ErrNotFound)

	entries := []*model.IndexEntry{
		{
			ItemID:       "item-1",
			OwnerUID:     "owner-a",
			Kind:         model.KindTask,
			Title:        "Write report",
			Status:       "in_progress",
			LastActivity: ts(9),
			UpdatedAt:    ts(9),
		},
		{
			ItemID:       "item-2",
			OwnerUID:     "owner-a",
			Kind:         model.KindChore,
			Title:        "Water plants",
			Recurrence:   "every 2 days",
			LastActivity: ts(7),
			UpdatedAt:    ts(7),
		},
		{
			ItemID:       "item-3",
			OwnerUID:     "owner-b",
			Kind:         model.KindStory,
			Title:        "Ship onboarding flow",
			Status:       "backlog",
			LastActivity: ts(6),
			UpdatedAt:    ts(6),
		},
	}
	require.NoError(t, s.Index().Upsert(ctx, entries))

	got, err := s.Index().Get(ctx, "item-2")
	require.NoError(t, err)
	assert.Equal(t, "every 2 days", got.Recurrence)
	assert.Equal(t, "", got.Status)

	byOwner, err := s.Index().ListByOwner(ctx, "owner-a")
	require.NoError(t, err)
	require.Len(t, byOwner, 2)

	all, err := s.Index().ListAll(ctx)
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, "item-1", all[0].ItemID)

	// backfill overwrites in place
	entries[1].Status = "todo"
	entries[1].UpdatedAt = ts(10)
	require.NoError(t, s.Index().Upsert(ctx, entries[1:2]))
	got, err = s.Index().Get(ctx, "item-2")
	require.NoError(t, err)
	assert.Equal(t, "todo", got.Status)
	assert.True(t, got.UpdatedAt.Equal(ts(10)))

	require.NoError(t, s.Index().Delete(ctx, []string{"item-1", "item-3"}))
	all, err = s.Index().ListAll(ctx)
	require.NoError(t, err)
	require.Len(t, all, 1)
	assert.Equal(t, "item-2", all[0].ItemID)
}
