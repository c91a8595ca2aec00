package assignment

import (
	"fmt"

	"github.com/lodestone-app/lodestone/internal/model"
)

// legalTransitions encodes the assignment state machine:
// planned → in_progress → done, planned ↔ deferred, and any non-terminal
// state → skipped. done and skipped are terminal in both directions for
// automatic transitions.
var legalTransitions = map[model.AssignmentStatus][]model.AssignmentStatus{
	model.AssignmentPlanned:    {model.AssignmentInProgress, model.AssignmentDeferred, model.AssignmentSkipped},
	model.AssignmentDeferred:   {model.AssignmentPlanned, model.AssignmentSkipped},
	model.AssignmentInProgress: {model.AssignmentDone, model.AssignmentSkipped},
}

// CanTransition reports whether moving from one status to another is legal.
// Staying in the current status is always allowed.
func CanTransition(from, to model.AssignmentStatus) bool {
	if from == to {
		return true
	}
	for _, next := range legalTransitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// Transition applies a user- or policy-driven status change in place,
// rejecting anything the state machine forbids.
func Transition(a *model.PlanAssignment, to model.AssignmentStatus) error {
	if !CanTransition(a.Status, to) {
		return fmt.Errorf("%w: assignment %s cannot move %s -> %s",
			model.ErrConflict, a.AssignmentID, a.Status, to)
	}
	a.Status = to
	return nil
}

// Merge folds a freshly allocated draft into the existing persisted
// assignment, if any. It is pure: callers persist the result themselves.
//
// With no existing assignment the draft is inserted as-is. When the existing
// assignment is in a user- or execution-driven state (in_progress, done,
// skipped) the draft's schedule fields are discarded so a re-plan never
// clobbers manual progress; only the title snapshot and estimate refresh.
// When the existing assignment is planned or deferred the draft replaces the
// schedule fields entirely. External linkage is always carried over from the
// existing record; the planner never originates it.
//
// The changed result is false when merging produced no observable difference,
// letting callers skip the write.
func Merge(existing *model.PlanAssignment, draft model.PlanAssignment) (merged model.PlanAssignment, changed bool) {
	if existing == nil {
		return draft, true
	}

	merged = *existing
	merged.Title = draft.Title
	merged.EstimatedMinutes = draft.EstimatedMinutes

	if !existing.Status.Terminal() && existing.Status != model.AssignmentInProgress {
		merged.Status = draft.Status
		merged.BlockID = draft.BlockID
		merged.Start = draft.Start
		merged.End = draft.End
	}

	return merged, !equalAssignments(existing, &merged)
}

func equalAssignments(a, b *model.PlanAssignment) bool {
	if a.Status != b.Status || a.Title != b.Title || a.EstimatedMinutes != b.EstimatedMinutes {
		return false
	}
	if !equalStringPtr(a.BlockID, b.BlockID) {
		return false
	}
	if (a.Start == nil) != (b.Start == nil) || (a.Start != nil && !a.Start.Equal(*b.Start)) {
		return false
	}
	if (a.End == nil) != (b.End == nil) || (a.End != nil && !a.End.Equal(*b.End)) {
		return false
	}
	return true
}

func equalStringPtr(a, b *string) bool {
	if (a == nil) != (b == nil) {
		return false
	}
	return a == nil || *a == *b
}
