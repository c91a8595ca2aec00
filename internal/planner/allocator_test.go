package planner

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lodestone-app/lodestone/internal/model"
)

var day = time.Date(2025, 3, 3, 0, 0, 0, 0, time.UTC) // a Monday

func strPtr(s string) *string { return &s }

func testItem(id string, minutes, priority int) *model.Item {
	due := day.Add(10 * time.Hour)
	return &model.Item{
		ItemID:           id,
		Kind:             model.KindTask,
		OwnerID:          "o1",
		Title:            "item " + id,
		EstimatedMinutes: minutes,
		Priority:         priority,
		NextDue:          &due,
		CreationTime:     day.Add(-24 * time.Hour),
	}
}

func testBlock(id string, startHour, endHour, capacity int, theme string) model.Block {
	b := model.Block{
		BlockID:              id,
		OwnerID:              "o1",
		Start:                day.Add(time.Duration(startHour) * time.Hour),
		End:                  day.Add(time.Duration(endHour) * time.Hour),
		Persona:              model.PersonaPersonal,
		DailyCapacityMinutes: capacity,
	}
	if theme != "" {
		b.ThemeID = strPtr(theme)
	}
	return b
}

func TestPlanDayCapacityBound(t *testing.T) {
	// One 60-minute-capacity block, three 30-minute candidates of equal
	// priority: first two planned, third deferred.
	in := Input{
		OwnerID: "o1",
		Day:     day,
		Loc:     time.UTC,
		Blocks:  []model.Block{testBlock("b1", 9, 12, 60, "chores")},
		Items: []*model.Item{
			withTheme(testItem("i1", 30, 2), "chores"),
			withTheme(testItem("i2", 30, 2), "chores"),
			withTheme(testItem("i3", 30, 2), "chores"),
		},
	}
	drafts, issues := PlanDay(in)
	require.Empty(t, issues)
	require.Len(t, drafts, 3)

	assert.Equal(t, model.AssignmentPlanned, drafts[0].Status)
	assert.Equal(t, model.AssignmentPlanned, drafts[1].Status)
	assert.Equal(t, model.AssignmentDeferred, drafts[2].Status)
	assert.Nil(t, drafts[2].BlockID)
}

func withTheme(it *model.Item, theme string) *model.Item {
	it.ThemeID = strPtr(theme)
	return it
}

func TestPlanDayZeroBlocksDefersAll(t *testing.T) {
	in := Input{
		OwnerID: "o1",
		Day:     day,
		Loc:     time.UTC,
		Items:   []*model.Item{testItem("i1", 15, 1), testItem("i2", 15, 1)},
	}
	drafts, _ := PlanDay(in)
	require.Len(t, drafts, 2)
	for _, d := range drafts {
		assert.Equal(t, model.AssignmentDeferred, d.Status)
	}
}

func TestPlanDayOversizedItemDeferred(t *testing.T) {
	in := Input{
		OwnerID: "o1",
		Day:     day,
		Loc:     time.UTC,
		Blocks:  []model.Block{testBlock("b1", 9, 10, 0, "")}, // 60 min wall clock
		Items:   []*model.Item{testItem("big", 90, 1)},
	}
	drafts, _ := PlanDay(in)
	require.Len(t, drafts, 1)
	assert.Equal(t, model.AssignmentDeferred, drafts[0].Status, "oversized items defer, never truncate")
}

func TestPlanDaySortOrder(t *testing.T) {
	// Higher-priority item wins capacity even when listed last; among equal
	// priority, the shorter item goes first.
	in := Input{
		OwnerID: "o1",
		Day:     day,
		Loc:     time.UTC,
		Blocks:  []model.Block{testBlock("b1", 9, 12, 45, "")},
		Items: []*model.Item{
			testItem("long-low", 40, 5),
			testItem("short-high", 20, 1),
			testItem("shorter-high", 10, 1),
		},
	}
	drafts, _ := PlanDay(in)
	require.Len(t, drafts, 3)
	assert.Equal(t, "shorter-high", drafts[0].ItemID)
	assert.Equal(t, model.AssignmentPlanned, drafts[0].Status)
	assert.Equal(t, "short-high", drafts[1].ItemID)
	assert.Equal(t, model.AssignmentPlanned, drafts[1].Status)
	assert.Equal(t, "long-low", drafts[2].ItemID)
	assert.Equal(t, model.AssignmentDeferred, drafts[2].Status)
}

func TestPlanDayThemeFallback(t *testing.T) {
	in := Input{
		OwnerID: "o1",
		Day:     day,
		Loc:     time.UTC,
		Blocks: []model.Block{
			testBlock("themed", 9, 10, 30, "deep-work"),
			testBlock("open", 10, 12, 120, ""),
		},
		Items: []*model.Item{
			withTheme(testItem("fits-theme", 30, 1), "deep-work"),
			withTheme(testItem("overflows-theme", 30, 2), "deep-work"),
			withTheme(testItem("no-such-theme", 30, 3), "errands"),
		},
	}
	drafts, _ := PlanDay(in)
	require.Len(t, drafts, 3)
	byItem := map[string]model.PlanAssignment{}
	for _, d := range drafts {
		byItem[d.ItemID] = d
	}
	assert.Equal(t, "themed", *byItem["fits-theme"].BlockID)
	assert.Equal(t, "open", *byItem["overflows-theme"].BlockID, "theme group full falls back to unthemed")
	assert.Equal(t, "open", *byItem["no-such-theme"].BlockID, "unknown theme falls back to unthemed")
}

func TestPlanDayRecurringCandidates(t *testing.T) {
	anchor := time.Date(2025, 1, 6, 8, 0, 0, 0, time.UTC) // a Monday
	rule := "FREQ=WEEKLY;BYDAY=MO"
	recurring := &model.Item{
		ItemID:           "chore-1",
		Kind:             model.KindChore,
		OwnerID:          "o1",
		Title:            "water plants",
		EstimatedMinutes: 10,
		Priority:         3,
		RRule:            &rule,
		DTStart:          &anchor,
		CreationTime:     anchor,
	}
	offDay := *recurring
	offDay.ItemID = "chore-2"
	tuesdayRule := "FREQ=WEEKLY;BYDAY=TU"
	offDay.RRule = &tuesdayRule

	badRule := *recurring
	badRule.ItemID = "chore-3"
	broken := "FREQ=SOMETIMES"
	badRule.RRule = &broken

	in := Input{
		OwnerID: "o1",
		Day:     day,
		Loc:     time.UTC,
		Blocks:  []model.Block{testBlock("b1", 9, 12, 120, "")},
		Items:   []*model.Item{recurring, &offDay, &badRule},
	}
	drafts, issues := PlanDay(in)

	require.Len(t, drafts, 1, "only the Monday rule falls on the day")
	assert.Equal(t, "chore-1", drafts[0].ItemID)

	require.Len(t, issues, 1)
	assert.Equal(t, "chore-3", issues[0].ItemID)
}

func TestPlanDayOneDraftPerItem(t *testing.T) {
	// Due on the day and recurring on the day: still a single draft.
	anchor := time.Date(2025, 1, 6, 8, 0, 0, 0, time.UTC)
	rule := "FREQ=WEEKLY;BYDAY=MO"
	due := day.Add(9 * time.Hour)
	it := &model.Item{
		ItemID:           "both",
		Kind:             model.KindTask,
		OwnerID:          "o1",
		Title:            "both paths",
		EstimatedMinutes: 20,
		Priority:         1,
		NextDue:          &due,
		RRule:            &rule,
		DTStart:          &anchor,
		CreationTime:     anchor,
	}
	drafts, _ := PlanDay(Input{OwnerID: "o1", Day: day, Loc: time.UTC,
		Blocks: []model.Block{testBlock("b1", 9, 10, 0, "")}, Items: []*model.Item{it}})
	require.Len(t, drafts, 1)
}

func TestPlanDayIdempotent(t *testing.T) {
	items := make([]*model.Item, 0, 8)
	for i := 0; i < 8; i++ {
		items = append(items, testItem(fmt.Sprintf("i%d", i), 10+5*i, i%3))
	}
	in := Input{
		OwnerID: "o1",
		Day:     day,
		Loc:     time.UTC,
		Blocks: []model.Block{
			testBlock("b1", 9, 11, 60, ""),
			testBlock("b2", 14, 16, 45, "chores"),
		},
		Items: items,
	}
	first, _ := PlanDay(in)
	second, _ := PlanDay(in)
	assert.Equal(t, first, second, "identical inputs must yield identical drafts")
}

func TestPlanDayCapacityInvariant(t *testing.T) {
	items := make([]*model.Item, 0, 12)
	for i := 0; i < 12; i++ {
		items = append(items, testItem(fmt.Sprintf("i%d", i), 25, 1))
	}
	blocks := []model.Block{
		testBlock("b1", 9, 11, 70, ""),
		testBlock("b2", 14, 15, 0, "chores"), // 60 min wall clock
	}
	drafts, _ := PlanDay(Input{OwnerID: "o1", Day: day, Loc: time.UTC, Blocks: blocks, Items: items})

	plannedMinutes := map[string]int{}
	for _, d := range drafts {
		if d.Status == model.AssignmentPlanned {
			require.NotNil(t, d.BlockID)
			plannedMinutes[*d.BlockID] += d.EstimatedMinutes
		}
	}
	assert.LessOrEqual(t, plannedMinutes["b1"], 70)
	assert.LessOrEqual(t, plannedMinutes["b2"], 60)
}
