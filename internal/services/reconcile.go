package services

import (
	"context"

	"github.com/rs/zerolog"

	"github.com/lodestone-app/lodestone/internal/metrics"
	"github.com/lodestone-app/lodestone/internal/reconciler"
	"github.com/lodestone-app/lodestone/internal/store"
)

// ReconcileService runs index reconciliation and records its outcomes.
type ReconcileService struct {
	rec *reconciler.Reconciler
	log zerolog.Logger
}

// NewReconcileService constructs a ReconcileService.
func NewReconcileService(s store.Store, log zerolog.Logger) *ReconcileService {
	return &ReconcileService{
		rec: reconciler.New(s, log),
		log: log.With().Str("component", "reconcile").Logger(),
	}
}

// Reconcile runs the backfill, orphan, and duplicate passes. An empty ownerID
// reconciles every owner plus unowned items.
func (s *ReconcileService) Reconcile(ctx context.Context, ownerID string) (*reconciler.Report, error) {
	var rep *reconciler.Report
	var err error
	if ownerID == "" {
		rep, err = s.rec.ReconcileAll(ctx)
	} else {
		rep, err = s.rec.ReconcileOwner(ctx, ownerID)
	}
	if err != nil {
		metrics.ReconcileRuns.WithLabelValues("error").Inc()
		return nil, err
	}

	metrics.ReconcileRuns.WithLabelValues("ok").Inc()
	metrics.OrphansRemoved.Add(float64(rep.OrphansRemoved))
	metrics.FieldsBackfilled.Add(float64(rep.FieldsBackfilled))
	return rep, nil
}
