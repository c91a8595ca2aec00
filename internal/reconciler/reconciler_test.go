package reconciler

import (
	"context"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lodestone-app/lodestone/internal/model"
	"github.com/lodestone-app/lodestone/internal/store"
	"github.com/lodestone-app/lodestone/internal/store/memory"
)

func ts(h int) time.Time {
	return time.Date(2025, 6, 1, h, 0, 0, 0, time.UTC)
}

func newTestReconciler(s store.Store) *Reconciler {
	r := New(s, zerolog.Nop())
	r.now = func() time.Time { return ts(12) }
	return r
}

func seedItem(t *testing.T, s store.Store, id, owner, title string, status any) *model.Item {
	t.Helper()
	it := &model.Item{
		ItemID:       id,
		Kind:         model.KindTask,
		OwnerID:      owner,
		Title:        title,
		Status:       status,
		CreationTime: ts(8),
		UpdateTime:   ts(9),
	}
	require.NoError(t, s.Items().Upsert(context.Background(), []*model.Item{it}))
	return it
}

func entryFor(it *model.Item, status string) *model.IndexEntry {
	return &model.IndexEntry{
		ItemID:       it.ItemID,
		OwnerUID:     it.OwnerID,
		Kind:         it.Kind,
		Title:        it.Title,
		Status:       status,
		LastActivity: it.UpdateTime,
		UpdatedAt:    ts(9),
	}
}

func TestReconcileRemovesOrphans(t *testing.T) {
	ctx := context.Background()
	s := memory.New()

	// 7 live items with up-to-date entries, 3 orphaned entries
	var entries []*model.IndexEntry
	for _, id := range []string{"a", "b", "c", "d", "e", "f", "g"} {
		it := seedItem(t, s, id, "owner-1", "Task "+id, "todo")
		entries = append(entries, entryFor(it, "todo"))
	}
	for _, id := range []string{"gone-1", "gone-2", "gone-3"} {
		entries = append(entries, &model.IndexEntry{
			ItemID:       id,
			OwnerUID:     "owner-1",
			Kind:         model.KindTask,
			Title:        "Deleted",
			LastActivity: ts(5),
			UpdatedAt:    ts(5),
		})
	}
	require.NoError(t, s.Index().Upsert(ctx, entries))

	rep, err := newTestReconciler(s).ReconcileOwner(ctx, "owner-1")
	require.NoError(t, err)

	assert.Equal(t, 10, rep.Scanned)
	assert.Equal(t, 3, rep.OrphansRemoved)
	assert.Equal(t, 0, rep.FieldsBackfilled)

	remaining, err := s.Index().ListAll(ctx)
	require.NoError(t, err)
	require.Len(t, remaining, 7)
	for _, e := range remaining {
		// untouched entries keep their original write timestamp
		assert.True(t, e.UpdatedAt.Equal(ts(9)), "entry %s was rewritten", e.ItemID)
	}
}

func TestReconcileBackfillsDerivedFields(t *testing.T) {
	ctx := context.Background()
	s := memory.New()

	rrule := "FREQ=WEEKLY;INTERVAL=2;BYDAY=MO,WE"
	it := seedItem(t, s, "item-1", "owner-1", "Mow the lawn", "wip")
	it.RRule = &rrule
	require.NoError(t, s.Items().Upsert(ctx, []*model.Item{it}))

	// stale entry: legacy status text, no recurrence summary
	require.NoError(t, s.Index().Upsert(ctx, []*model.IndexEntry{{
		ItemID:       "item-1",
		OwnerUID:     "owner-1",
		Kind:         model.KindTask,
		Title:        "Mow the lawn",
		Status:       "wip",
		LastActivity: ts(5),
		UpdatedAt:    ts(5),
	}}))

	rep, err := newTestReconciler(s).ReconcileOwner(ctx, "owner-1")
	require.NoError(t, err)
	assert.Equal(t, 1, rep.FieldsBackfilled)

	got, err := s.Index().Get(ctx, "item-1")
	require.NoError(t, err)
	assert.Equal(t, "in_progress", got.Status)
	assert.Equal(t, "every 2 weeks on MO,WE", got.Recurrence)
	assert.True(t, got.LastActivity.Equal(ts(9)))
	assert.True(t, got.UpdatedAt.Equal(ts(12)))
}

func TestReconcileCreatesMissingEntries(t *testing.T) {
	ctx := context.Background()
	s := memory.New()
	seedItem(t, s, "item-1", "owner-1", "New task", "todo")

	rep, err := newTestReconciler(s).ReconcileOwner(ctx, "owner-1")
	require.NoError(t, err)
	assert.Equal(t, 1, rep.FieldsBackfilled)

	got, err := s.Index().Get(ctx, "item-1")
	require.NoError(t, err)
	assert.Equal(t, "todo", got.Status)
}

func TestReconcileMalformedRuleLeavesSummaryEmpty(t *testing.T) {
	ctx := context.Background()
	s := memory.New()

	bad := "FREQ=SOMETIMES"
	it := seedItem(t, s, "item-1", "owner-1", "Odd chore", "todo")
	it.RRule = &bad
	require.NoError(t, s.Items().Upsert(ctx, []*model.Item{it}))

	rep, err := newTestReconciler(s).ReconcileOwner(ctx, "owner-1")
	require.NoError(t, err)
	assert.Equal(t, 1, rep.FieldsBackfilled)

	got, err := s.Index().Get(ctx, "item-1")
	require.NoError(t, err)
	assert.Equal(t, "", got.Recurrence)
}

func TestReconcileIdempotent(t *testing.T) {
	ctx := context.Background()
	s := memory.New()
	seedItem(t, s, "item-1", "owner-1", "Task", "todo")

	r := newTestReconciler(s)
	first, err := r.ReconcileOwner(ctx, "owner-1")
	require.NoError(t, err)
	assert.Equal(t, 1, first.FieldsBackfilled)

	second, err := r.ReconcileOwner(ctx, "owner-1")
	require.NoError(t, err)
	assert.Equal(t, 0, second.FieldsBackfilled)
	assert.Equal(t, 0, second.OrphansRemoved)
}

func TestReconcileReportsDuplicates(t *testing.T) {
	ctx := context.Background()
	s := memory.New()

	seedItem(t, s, "item-1", "owner-1", "Buy milk", "todo")
	seedItem(t, s, "item-2", "owner-1", "  BUY   Milk!! ", "todo")
	seedItem(t, s, "item-3", "owner-1", "Walk the dog", "todo")
	// same title under a different owner is not a duplicate
	seedItem(t, s, "item-4", "owner-2", "Buy milk", "todo")

	rep, err := newTestReconciler(s).ReconcileAll(ctx)
	require.NoError(t, err)

	require.Len(t, rep.Duplicates, 1)
	assert.Equal(t, "owner-1", rep.Duplicates[0].OwnerID)
	assert.Equal(t, "buy milk", rep.Duplicates[0].Key)
	assert.Equal(t, []string{"item-1", "item-2"}, rep.Duplicates[0].ItemIDs)
}

func TestReconcileAllCoversUnownedItems(t *testing.T) {
	ctx := context.Background()
	s := memory.New()
	seedItem(t, s, "item-1", "owner-1", "Owned", "todo")
	seedItem(t, s, "item-2", "", "Unowned", "todo")

	rep, err := newTestReconciler(s).ReconcileAll(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, rep.FieldsBackfilled)

	got, err := s.Index().Get(ctx, "item-2")
	require.NoError(t, err)
	assert.Equal(t, "", got.OwnerUID)
}
