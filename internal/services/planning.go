// Package services composes the planner core into operations the API,
// scheduler, and CLI all share: plan a day, reconcile the index, audit
// ownership.
package services

import (
	"context"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"

	"github.com/lodestone-app/lodestone/internal/assignment"
	"github.com/lodestone-app/lodestone/internal/metrics"
	"github.com/lodestone-app/lodestone/internal/model"
	"github.com/lodestone-app/lodestone/internal/planner"
	"github.com/lodestone-app/lodestone/internal/store"
)

// PlanResult reports the outcome of planning one owner's day.
type PlanResult struct {
	PlanID      string                  `json:"planId"`
	DayKey      string                  `json:"dayKey"`
	Planned     int                     `json:"planned"`
	Deferred    int                     `json:"deferred"`
	Written     int                     `json:"written"`
	Issues      []ItemIssue             `json:"issues,omitempty"`
	Assignments []*model.PlanAssignment `json:"assignments"`
}

// ItemIssue is the wire form of an item excluded from a planning run.
type ItemIssue struct {
	ItemID string `json:"itemId"`
	Reason string `json:"reason"`
}

// PlanningService turns a day's items and blocks into persisted assignments.
type PlanningService struct {
	store store.Store
	log   zerolog.Logger
	now   func() time.Time
}

// NewPlanningService constructs a PlanningService.
func NewPlanningService(s store.Store, log zerolog.Logger) *PlanningService {
	return &PlanningService{
		store: s,
		log:   log.With().Str("component", "planning").Logger(),
		now:   time.Now,
	}
}

// PlanDay allocates the owner's items into the given day's blocks and merges
// the resulting drafts into any previously persisted assignments. Only
// assignments that actually changed are written, in bounded batches. The call
// is idempotent: re-planning an unchanged day writes nothing.
func (s *PlanningService) PlanDay(ctx context.Context, ownerID string, day time.Time, loc *time.Location) (*PlanResult, error) {
	if loc == nil {
		loc = time.UTC
	}
	dayKey := model.DayKey(day.In(loc))

	items, err := s.store.Items().ListByOwner(ctx, ownerID)
	if err != nil {
		metrics.PlanRuns.WithLabelValues("error").Inc()
		return nil, errors.Wrap(err, "load items")
	}
	blocks, err := s.store.Blocks().ListByOwnerDay(ctx, ownerID, dayKey)
	if err != nil {
		metrics.PlanRuns.WithLabelValues("error").Inc()
		return nil, errors.Wrap(err, "load blocks")
	}
	existing, err := s.store.Assignments().ListByPlan(ctx, ownerID, dayKey)
	if err != nil {
		metrics.PlanRuns.WithLabelValues("error").Inc()
		return nil, errors.Wrap(err, "load existing assignments")
	}
	byID := make(map[string]*model.PlanAssignment, len(existing))
	for _, a := range existing {
		byID[a.AssignmentID] = a
	}

	drafts, issues := planner.PlanDay(planner.Input{
		OwnerID: ownerID,
		Day:     day,
		Loc:     loc,
		Blocks:  blocks,
		Items:   items,
	})

	result := &PlanResult{
		PlanID: model.PlanID(ownerID, dayKey),
		DayKey: dayKey,
	}
	for _, issue := range issues {
		result.Issues = append(result.Issues, ItemIssue{ItemID: issue.ItemID, Reason: issue.Err.Error()})
	}

	now := s.now().UTC()
	var toWrite []*model.PlanAssignment
	for i := range drafts {
		prev := byID[drafts[i].AssignmentID]
		merged, changed := assignment.Merge(prev, drafts[i])
		if changed {
			if prev == nil {
				merged.CreationTime = now
			}
			merged.UpdateTime = now
			cp := merged
			toWrite = append(toWrite, &cp)
		}

		final := merged
		result.Assignments = append(result.Assignments, &final)
		switch final.Status {
		case model.AssignmentPlanned:
			result.Planned++
		case model.AssignmentDeferred:
			result.Deferred++
		}
	}

	if err := s.persist(ctx, toWrite); err != nil {
		metrics.PlanRuns.WithLabelValues("error").Inc()
		return nil, err
	}
	result.Written = len(toWrite)

	metrics.PlanRuns.WithLabelValues("ok").Inc()
	metrics.ItemsPlanned.Add(float64(result.Planned))
	metrics.ItemsDeferred.Add(float64(result.Deferred))
	s.log.Info().
		Str("owner_id", ownerID).
		Str("day", dayKey).
		Int("planned", result.Planned).
		Int("deferred", result.Deferred).
		Int("written", result.Written).
		Int("issues", len(result.Issues)).
		Msg("planned day")
	return result, nil
}

// persist writes assignments in chunks no larger than the store batch limit,
// retrying each chunk on transient failure. A chunk that keeps failing aborts
// the run with its position in the error so the caller knows how far writes
// progressed.
func (s *PlanningService) persist(ctx context.Context, list []*model.PlanAssignment) error {
	total := (len(list) + store.MaxBatchSize - 1) / store.MaxBatchSize
	for i := 0; len(list) > 0; i++ {
		n := store.MaxBatchSize
		if len(list) < n {
			n = len(list)
		}
		chunk := list[:n]
		list = list[n:]

		op := func() error {
			err := s.store.Assignments().Upsert(ctx, chunk)
			if errors.Is(err, model.ErrValidation) {
				return backoff.Permanent(err)
			}
			if err != nil {
				metrics.BatchRetries.Inc()
			}
			return err
		}
		policy := backoff.WithContext(backoff.WithMaxRetries(backoff.NewExponentialBackOff(), 3), ctx)
		if err := backoff.Retry(op, policy); err != nil {
			return errors.Wrapf(err, "persist assignments chunk %d/%d", i+1, total)
		}
	}
	return nil
}
