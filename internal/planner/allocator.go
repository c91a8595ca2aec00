// Package planner turns due and recurring items into capacity-bounded daily
// assignment drafts.
package planner

import (
	"sort"
	"time"

	"github.com/lodestone-app/lodestone/internal/assignment"
	"github.com/lodestone-app/lodestone/internal/model"
	"github.com/lodestone-app/lodestone/internal/recurrence"
)

// Input carries everything one owner-day allocation needs. Scope is always
// caller-supplied; the allocator keeps no state between runs.
type Input struct {
	OwnerID string
	Day     time.Time // any instant within the target day
	Loc     *time.Location
	Blocks  []model.Block
	Items   []*model.Item
}

// ItemIssue reports an item excluded from the run, typically for a malformed
// recurrence rule. The rest of the batch is unaffected.
type ItemIssue struct {
	ItemID string
	Err    error
}

// blockGroup pools the blocks sharing one (theme, persona) identity for the
// day, with a shared remaining-capacity counter.
type blockGroup struct {
	theme     string
	persona   model.Persona
	blocks    []*model.Block
	remaining int
	// cursor tracks wall-clock placement per block for concrete start/end
	// times; capacity, not the cursor, decides admission.
	cursors []time.Time
}

// PlanDay produces exactly one assignment draft per eligible candidate:
// planned with a block binding when a matching group has room, deferred
// otherwise. Re-running with identical inputs yields identical drafts.
func PlanDay(in Input) ([]model.PlanAssignment, []ItemIssue) {
	loc := in.Loc
	if loc == nil {
		loc = time.UTC
	}
	day := in.Day.In(loc)
	dayKey := model.DayKey(day)
	dayStart := time.Date(day.Year(), day.Month(), day.Day(), 0, 0, 0, 0, loc)
	dayEnd := dayStart.AddDate(0, 0, 1).Add(-time.Nanosecond)

	candidates, issues := selectCandidates(in.Items, loc, dayKey, dayStart, dayEnd)

	// Lower priority number first; among equals, shorter items first so more
	// items fit. This greedy order is a deliberate simplification, not an
	// optimal packing.
	sort.SliceStable(candidates, func(i, j int) bool {
		a, b := candidates[i], candidates[j]
		if a.Priority != b.Priority {
			return a.Priority < b.Priority
		}
		if a.EstimatedMinutes != b.EstimatedMinutes {
			return a.EstimatedMinutes < b.EstimatedMinutes
		}
		if !a.CreationTime.Equal(b.CreationTime) {
			return a.CreationTime.Before(b.CreationTime)
		}
		return a.ItemID < b.ItemID
	})

	groups := groupBlocks(in.Blocks, dayKey, loc)

	drafts := make([]model.PlanAssignment, 0, len(candidates))
	for _, item := range candidates {
		draft := assignment.NewDraft(in.OwnerID, dayKey, item)
		if g := findGroup(groups, item.Theme(), item.EstimatedMinutes); g != nil {
			g.place(&draft, item.EstimatedMinutes)
		} else {
			// No room anywhere: a first-class outcome, visible to the user as
			// "not scheduled today", never a dropped item.
			draft.Status = model.AssignmentDeferred
		}
		drafts = append(drafts, draft)
	}
	return drafts, issues
}

// selectCandidates partitions items into those explicitly due on the day and
// recurring items whose expansion covers the day, deduplicated by item.
func selectCandidates(items []*model.Item, loc *time.Location, dayKey string, dayStart, dayEnd time.Time) ([]*model.Item, []ItemIssue) {
	var out []*model.Item
	var issues []ItemIssue
	picked := make(map[string]bool, len(items))

	add := func(it *model.Item) {
		if !picked[it.ItemID] {
			picked[it.ItemID] = true
			out = append(out, it)
		}
	}

	for _, it := range items {
		if it.NextDue != nil && model.DayKey(it.NextDue.In(loc)) == dayKey {
			add(it)
			continue
		}
		if !it.IsRecurring() {
			continue
		}
		rule, err := recurrence.Parse(*it.RRule)
		if err != nil {
			// Malformed rules exclude only this item; guessing a default
			// cadence would silently mis-schedule it.
			issues = append(issues, ItemIssue{ItemID: it.ItemID, Err: err})
			continue
		}
		anchor := it.CreationTime
		if it.DTStart != nil {
			anchor = *it.DTStart
		}
		if occ := recurrence.Occurrences(rule, anchor, loc, dayStart, dayEnd); len(occ) > 0 {
			add(it)
		}
	}
	return out, issues
}

func groupBlocks(blocks []model.Block, dayKey string, loc *time.Location) []*blockGroup {
	byKey := map[string]*blockGroup{}
	var order []*blockGroup
	for i := range blocks {
		b := &blocks[i]
		if model.DayKey(b.Start.In(loc)) != dayKey {
			continue
		}
		key := b.Theme() + "\x00" + string(b.Persona)
		g, ok := byKey[key]
		if !ok {
			g = &blockGroup{theme: b.Theme(), persona: b.Persona}
			byKey[key] = g
			order = append(order, g)
		}
		g.blocks = append(g.blocks, b)
	}
	for _, g := range order {
		sort.Slice(g.blocks, func(i, j int) bool {
			if !g.blocks[i].Start.Equal(g.blocks[j].Start) {
				return g.blocks[i].Start.Before(g.blocks[j].Start)
			}
			return g.blocks[i].BlockID < g.blocks[j].BlockID
		})
		g.remaining = groupCapacity(g.blocks)
		g.cursors = make([]time.Time, len(g.blocks))
		for i, b := range g.blocks {
			g.cursors[i] = b.Start
		}
	}
	// Deterministic group precedence: earliest block first, id as tiebreak.
	sort.Slice(order, func(i, j int) bool {
		a, b := order[i].blocks[0], order[j].blocks[0]
		if !a.Start.Equal(b.Start) {
			return a.Start.Before(b.Start)
		}
		return a.BlockID < b.BlockID
	})
	return order
}

// groupCapacity resolves the shared ceiling for blocks with one (owner,
// theme, day) identity. An explicit per-theme ceiling caps the whole group
// (the smallest wins when several disagree); otherwise capacity is the sum of
// wall-clock spans.
func groupCapacity(blocks []*model.Block) int {
	explicit := 0
	sum := 0
	for _, b := range blocks {
		sum += b.CapacityMinutes()
		if b.DailyCapacityMinutes > 0 && (explicit == 0 || b.DailyCapacityMinutes < explicit) {
			explicit = b.DailyCapacityMinutes
		}
	}
	if explicit > 0 {
		return explicit
	}
	return sum
}

// findGroup returns the first group matching the theme with room, falling
// back to the first unthemed group with room. Oversized items match nothing
// and defer; they are never force-fit by truncation.
func findGroup(groups []*blockGroup, theme string, minutes int) *blockGroup {
	for _, g := range groups {
		if g.theme == theme && g.remaining >= minutes {
			return g
		}
	}
	if theme != "" {
		for _, g := range groups {
			if g.theme == "" && g.remaining >= minutes {
				return g
			}
		}
	}
	return nil
}

// place binds the draft into the group, decrements shared capacity, and
// assigns concrete start/end times when the item fits a block's remaining
// wall-clock span.
func (g *blockGroup) place(draft *model.PlanAssignment, minutes int) {
	g.remaining -= minutes
	draft.Status = model.AssignmentPlanned

	dur := time.Duration(minutes) * time.Minute
	for i, b := range g.blocks {
		if g.cursors[i].Add(dur).After(b.End) {
			continue
		}
		id := b.BlockID
		start := g.cursors[i]
		end := start.Add(dur)
		draft.BlockID = &id
		draft.Start = &start
		draft.End = &end
		g.cursors[i] = end
		return
	}
	// Capacity admitted the item but no single block has contiguous room
	// left; bind to the group's first block without concrete times.
	id := g.blocks[0].BlockID
	draft.BlockID = &id
}
