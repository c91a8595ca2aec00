// Package metrics exposes Prometheus collectors for the planner core. All
// collectors are registered on the default registry and served by the
// /metrics endpoint.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// ItemsPlanned counts items placed into a block during planning.
	ItemsPlanned = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "lodestone",
		Name:      "items_planned_total",
		Help:      "Items allocated to a block by the capacity planner.",
	})

	// ItemsDeferred counts items that did not fit the day's capacity.
	ItemsDeferred = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "lodestone",
		Name:      "items_deferred_total",
		Help:      "Items deferred because no block had remaining capacity.",
	})

	// PlanRuns counts planning runs by outcome.
	PlanRuns = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "lodestone",
		Name:      "plan_runs_total",
		Help:      "Planning runs partitioned by outcome.",
	}, []string{"outcome"})

	// ReconcileRuns counts reconciliation runs by outcome.
	ReconcileRuns = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "lodestone",
		Name:      "reconcile_runs_total",
		Help:      "Index reconciliation runs partitioned by outcome.",
	}, []string{"outcome"})

	// OrphansRemoved counts index entries deleted by the orphan pass.
	OrphansRemoved = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "lodestone",
		Name:      "index_orphans_removed_total",
		Help:      "Orphaned index entries removed during reconciliation.",
	})

	// FieldsBackfilled counts index entries rewritten by the backfill pass.
	FieldsBackfilled = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "lodestone",
		Name:      "index_fields_backfilled_total",
		Help:      "Index entries rewritten with recomputed derived fields.",
	})

	// BatchRetries counts store batch writes that were retried.
	BatchRetries = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "lodestone",
		Name:      "store_batch_retries_total",
		Help:      "Store batch writes retried after a transient failure.",
	})
)
