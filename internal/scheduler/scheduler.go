// Package scheduler runs the recurring background jobs: the nightly planning
// sweep and periodic index reconciliation.
package scheduler

import (
	"context"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"

	"github.com/lodestone-app/lodestone/internal/services"
	"github.com/lodestone-app/lodestone/internal/store"
)

// jobTimeout bounds a single scheduled run so a stuck store cannot pile up
// overlapping jobs.
const jobTimeout = 10 * time.Minute

// Scheduler owns the cron runner and its jobs.
type Scheduler struct {
	cron      *cron.Cron
	store     store.Store
	planning  *services.PlanningService
	reconcile *services.ReconcileService
	loc       *time.Location
	log       zerolog.Logger
	now       func() time.Time
}

// New constructs a Scheduler. Jobs fire in loc, which also decides what
// "today" means for the planning sweep.
func New(s store.Store, loc *time.Location, log zerolog.Logger) *Scheduler {
	if loc == nil {
		loc = time.UTC
	}
	return &Scheduler{
		cron:      cron.New(cron.WithLocation(loc)),
		store:     s,
		planning:  services.NewPlanningService(s, log),
		reconcile: services.NewReconcileService(s, log),
		loc:       loc,
		log:       log.With().Str("component", "scheduler").Logger(),
		now:       time.Now,
	}
}

// Start registers the jobs and begins firing them. An empty cron spec
// disables that job.
func (s *Scheduler) Start(planSpec, reconcileSpec string) error {
	if planSpec != "" {
		if _, err := s.cron.AddFunc(planSpec, s.runPlanSweep); err != nil {
			return err
		}
		s.log.Info().Str("spec", planSpec).Msg("planning sweep scheduled")
	}
	if reconcileSpec != "" {
		if _, err := s.cron.AddFunc(reconcileSpec, s.runReconcile); err != nil {
			return err
		}
		s.log.Info().Str("spec", reconcileSpec).Msg("reconciliation scheduled")
	}
	s.cron.Start()
	return nil
}

// Stop halts the cron runner and returns a context that completes when any
// in-flight job finishes.
func (s *Scheduler) Stop() context.Context { return s.cron.Stop() }

func (s *Scheduler) runPlanSweep() {
	ctx, cancel := context.WithTimeout(context.Background(), jobTimeout)
	defer cancel()
	if err := s.PlanAll(ctx); err != nil {
		s.log.Error().Stack().Err(err).Msg("planning sweep failed")
	}
}

func (s *Scheduler) runReconcile() {
	ctx, cancel := context.WithTimeout(context.Background(), jobTimeout)
	defer cancel()
	if _, err := s.reconcile.Reconcile(ctx, ""); err != nil {
		s.log.Error().Stack().Err(err).Msg("scheduled reconciliation failed")
	}
}

// PlanAll plans today for every known owner. One owner failing does not stop
// the sweep; the first error is reported after all owners were attempted.
func (s *Scheduler) PlanAll(ctx context.Context) error {
	owners, err := s.store.Items().ListOwners(ctx)
	if err != nil {
		return err
	}
	today := s.now().In(s.loc)

	var firstErr error
	for _, owner := range owners {
		if _, err := s.planning.PlanDay(ctx, owner, today, s.loc); err != nil {
			s.log.Error().Stack().Err(err).Str("owner_id", owner).Msg("owner planning failed")
			if firstErr == nil {
				firstErr = err
			}
		}
	}
	return firstErr
}
