// Package store defines the document-store persistence surface the planner
// core consumes: point reads, filtered queries by owner/day, and bounded
// batched upserts/deletes. No multi-batch transactional atomicity is assumed.
package store

import (
	"context"

	"github.com/lodestone-app/lodestone/internal/model"
)

// MaxBatchSize bounds a single batched write or existence check.
// Implementations reject larger batches with model.ErrValidation; chunking is
// the caller's job.
const MaxBatchSize = 500

// Store exposes persistence operations required by services.
// Implementations live under internal/store/<driver>/.
type Store interface {
	Items() Items
	Blocks() Blocks
	Assignments() Assignments
	Index() Index
}

type Items interface {
	Get(ctx context.Context, itemID string) (*model.Item, error)
	ListByOwner(ctx context.Context, ownerID string) ([]*model.Item, error)
	// ListOwners returns the distinct non-empty owner ids present.
	ListOwners(ctx context.Context) ([]string, error)
	// ListUnowned returns items whose owner id is empty. Such items are
	// defects surfaced by audit, never auto-assigned.
	ListUnowned(ctx context.Context) ([]*model.Item, error)
	// ExistingIDs reports which of the given ids resolve to live items.
	// len(ids) must not exceed MaxBatchSize.
	ExistingIDs(ctx context.Context, ids []string) (map[string]bool, error)
	Upsert(ctx context.Context, items []*model.Item) error
	Delete(ctx context.Context, itemIDs []string) error
}

type Blocks interface {
	ListByOwnerDay(ctx context.Context, ownerID, dayKey string) ([]model.Block, error)
	Upsert(ctx context.Context, blocks []model.Block) error
}

type Assignments interface {
	Get(ctx context.Context, assignmentID string) (*model.PlanAssignment, error)
	ListByPlan(ctx context.Context, ownerID, dayKey string) ([]*model.PlanAssignment, error)
	Upsert(ctx context.Context, assignments []*model.PlanAssignment) error
}

type Index interface {
	Get(ctx context.Context, itemID string) (*model.IndexEntry, error)
	ListByOwner(ctx context.Context, ownerID string) ([]*model.IndexEntry, error)
	ListAll(ctx context.Context) ([]*model.IndexEntry, error)
	Upsert(ctx context.Context, entries []*model.IndexEntry) error
	Delete(ctx context.Context, itemIDs []string) error
}
