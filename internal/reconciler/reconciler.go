// Package reconciler keeps the denormalized sprint index consistent with the
// item collection. It backfills derived fields, removes orphaned entries, and
// reports candidate duplicate items. Every pass is idempotent and safe to
// re-run from the beginning.
package reconciler

import (
	"context"
	"sort"
	"time"

	"github.com/rs/zerolog"

	"github.com/lodestone-app/lodestone/internal/model"
	"github.com/lodestone-app/lodestone/internal/normalize"
	"github.com/lodestone-app/lodestone/internal/recurrence"
	"github.com/lodestone-app/lodestone/internal/store"
)

// DuplicateGroup names items belonging to one owner whose titles normalize to
// the same key. Merging is left to the user; the reconciler only reports.
type DuplicateGroup struct {
	OwnerID string   `json:"ownerId"`
	Key     string   `json:"key"`
	ItemIDs []string `json:"itemIds"`
}

// Report summarizes one reconciliation run. Scanned counts index entries
// examined during the orphan pass.
type Report struct {
	Scanned          int              `json:"scanned"`
	OrphansRemoved   int              `json:"orphansRemoved"`
	FieldsBackfilled int              `json:"fieldsBackfilled"`
	Duplicates       []DuplicateGroup `json:"duplicates,omitempty"`
}

// Reconciler runs index maintenance passes against a store.
type Reconciler struct {
	store store.Store
	log   zerolog.Logger
	now   func() time.Time
}

// New constructs a Reconciler.
func New(s store.Store, log zerolog.Logger) *Reconciler {
	return &Reconciler{store: s, log: log.With().Str("component", "reconciler").Logger(), now: time.Now}
}

// ReconcileOwner runs all three passes scoped to a single owner.
func (r *Reconciler) ReconcileOwner(ctx context.Context, ownerID string) (*Report, error) {
	items, err := r.store.Items().ListByOwner(ctx, ownerID)
	if err != nil {
		return nil, err
	}
	entries, err := r.store.Index().ListByOwner(ctx, ownerID)
	if err != nil {
		return nil, err
	}
	return r.run(ctx, items, entries)
}

// ReconcileAll runs all three passes across every owner plus unowned items.
func (r *Reconciler) ReconcileAll(ctx context.Context) (*Report, error) {
	owners, err := r.store.Items().ListOwners(ctx)
	if err != nil {
		return nil, err
	}
	var items []*model.Item
	for _, owner := range owners {
		batch, err := r.store.Items().ListByOwner(ctx, owner)
		if err != nil {
			return nil, err
		}
		items = append(items, batch...)
	}
	unowned, err := r.store.Items().ListUnowned(ctx)
	if err != nil {
		return nil, err
	}
	items = append(items, unowned...)

	entries, err := r.store.Index().ListAll(ctx)
	if err != nil {
		return nil, err
	}
	return r.run(ctx, items, entries)
}

func (r *Reconciler) run(ctx context.Context, items []*model.Item, entries []*model.IndexEntry) (*Report, error) {
	rep := &Report{Scanned: len(entries)}

	current := make(map[string]*model.IndexEntry, len(entries))
	for _, e := range entries {
		current[e.ItemID] = e
	}

	if err := r.backfill(ctx, items, current, rep); err != nil {
		return nil, err
	}
	if err := r.removeOrphans(ctx, entries, rep); err != nil {
		return nil, err
	}
	rep.Duplicates = r.findDuplicates(items)

	r.log.Info().
		Int("scanned", rep.Scanned).
		Int("orphans_removed", rep.OrphansRemoved).
		Int("fields_backfilled", rep.FieldsBackfilled).
		Int("duplicate_groups", len(rep.Duplicates)).
		Msg("reconcile pass complete")
	return rep, nil
}

// backfill recomputes each item's derived index entry and writes only the
// entries whose fields actually changed, keeping write volume minimal.
func (r *Reconciler) backfill(ctx context.Context, items []*model.Item, current map[string]*model.IndexEntry, rep *Report) error {
	var changed []*model.IndexEntry
	for _, it := range items {
		want := r.derive(it)
		if have, ok := current[it.ItemID]; ok && sameEntry(have, want) {
			continue
		}
		changed = append(changed, want)
	}
	for _, chunk := range chunkEntries(changed, store.MaxBatchSize) {
		if err := r.store.Index().Upsert(ctx, chunk); err != nil {
			return err
		}
		rep.FieldsBackfilled += len(chunk)
	}
	return nil
}

// derive projects an Item into its index entry. Unmapped statuses project to
// the empty string rather than failing the pass; a malformed recurrence rule
// yields an empty summary the same way.
func (r *Reconciler) derive(it *model.Item) *model.IndexEntry {
	e := &model.IndexEntry{
		ItemID:       it.ItemID,
		OwnerUID:     it.OwnerID,
		Kind:         it.Kind,
		Title:        it.Title,
		LastActivity: it.UpdateTime,
		UpdatedAt:    r.now().UTC(),
	}
	if st, ok := model.Canonical(it.Kind, it.Status); ok {
		e.Status = string(st)
	}
	if it.IsRecurring() {
		rule, err := recurrence.Parse(*it.RRule)
		if err != nil {
			r.log.Warn().Str("item_id", it.ItemID).Err(err).Msg("skipping recurrence summary for malformed rule")
		} else {
			e.Recurrence = rule.Summary()
		}
	}
	return e
}

// sameEntry compares everything except UpdatedAt, which only moves when a
// write happens.
func sameEntry(a, b *model.IndexEntry) bool {
	return a.OwnerUID == b.OwnerUID &&
		a.Kind == b.Kind &&
		a.Title == b.Title &&
		a.Status == b.Status &&
		a.Recurrence == b.Recurrence &&
		a.LastActivity.Equal(b.LastActivity)
}

// removeOrphans deletes index entries whose source item no longer exists.
// Existence checks and deletes both run in bounded chunks so large
// collections never hit single-operation size limits.
func (r *Reconciler) removeOrphans(ctx context.Context, entries []*model.IndexEntry, rep *Report) error {
	ids := make([]string, 0, len(entries))
	for _, e := range entries {
		ids = append(ids, e.ItemID)
	}

	var orphans []string
	for _, chunk := range chunkStrings(ids, store.MaxBatchSize) {
		existing, err := r.store.Items().ExistingIDs(ctx, chunk)
		if err != nil {
			return err
		}
		for _, id := range chunk {
			if !existing[id] {
				orphans = append(orphans, id)
			}
		}
	}

	for _, chunk := range chunkStrings(orphans, store.MaxBatchSize) {
		if err := r.store.Index().Delete(ctx, chunk); err != nil {
			return err
		}
		rep.OrphansRemoved += len(chunk)
	}
	return nil
}

// findDuplicates groups items by normalized title key within each owner and
// reports groups of two or more. Read-only.
func (r *Reconciler) findDuplicates(items []*model.Item) []DuplicateGroup {
	type groupKey struct{ owner, key string }
	groups := map[groupKey][]string{}
	for _, it := range items {
		key := normalize.Key(it.Title)
		if key == "" {
			continue
		}
		gk := groupKey{owner: it.OwnerID, key: key}
		groups[gk] = append(groups[gk], it.ItemID)
	}

	var out []DuplicateGroup
	for gk, ids := range groups {
		if len(ids) < 2 {
			continue
		}
		sort.Strings(ids)
		out = append(out, DuplicateGroup{OwnerID: gk.owner, Key: gk.key, ItemIDs: ids})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].OwnerID != out[j].OwnerID {
			return out[i].OwnerID < out[j].OwnerID
		}
		return out[i].Key < out[j].Key
	})
	return out
}

func chunkStrings(in []string, size int) [][]string {
	var out [][]string
	for len(in) > 0 {
		n := size
		if len(in) < n {
			n = len(in)
		}
		out = append(out, in[:n])
		in = in[n:]
	}
	return out
}

func chunkEntries(in []*model.IndexEntry, size int) [][]*model.IndexEntry {
	var out [][]*model.IndexEntry
	for len(in) > 0 {
		n := size
		if len(in) < n {
			n = len(in)
		}
		out = append(out, in[:n])
		in = in[n:]
	}
	return out
}
