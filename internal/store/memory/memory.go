// Package memory provides an in-memory store.Store used by tests and local
// development. Reads and writes copy records so callers never share state
// with the store.
package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/lodestone-app/lodestone/internal/model"
	"github.com/lodestone-app/lodestone/internal/store"
)

// New returns an empty in-memory store.
func New() store.Store {
	s := &memStore{
		items:       map[string]model.Item{},
		blocks:      map[string]model.Block{},
		assignments: map[string]model.PlanAssignment{},
		index:       map[string]model.IndexEntry{},
	}
	return s
}

type memStore struct {
	mu          sync.RWMutex
	items       map[string]model.Item
	blocks      map[string]model.Block
	assignments map[string]model.PlanAssignment
	index       map[string]model.IndexEntry
}

func (s *memStore) Items() store.Items             { return (*memItems)(s) }
func (s *memStore) Blocks() store.Blocks           { return (*memBlocks)(s) }
func (s *memStore) Assignments() store.Assignments { return (*memAssignments)(s) }
func (s *memStore) Index() store.Index             { return (*memIndex)(s) }

// HealthPing implements health.HealthPinger.
func (s *memStore) HealthPing(ctx context.Context) error { return ctx.Err() }

func checkBatch(n int) error {
	if n > store.MaxBatchSize {
		return fmt.Errorf("%w: batch of %d exceeds limit %d", model.ErrValidation, n, store.MaxBatchSize)
	}
	return nil
}

// --- Items ---

type memItems memStore

func (s *memItems) Get(_ context.Context, itemID string) (*model.Item, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	it, ok := s.items[itemID]
	if !ok {
		return nil, model.ErrNotFound
	}
	out := it
	return &out, nil
}

func (s *memItems) ListByOwner(_ context.Context, ownerID string) ([]*model.Item, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*model.Item
	for _, it := range s.items {
		if it.OwnerID == ownerID {
			cp := it
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ItemID < out[j].ItemID })
	return out, nil
}

func (s *memItems) ListOwners(_ context.Context) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	seen := map[string]bool{}
	var out []string
	for _, it := range s.items {
		if it.OwnerID != "" && !seen[it.OwnerID] {
			seen[it.OwnerID] = true
			out = append(out, it.OwnerID)
		}
	}
	sort.Strings(out)
	return out, nil
}

func (s *memItems) ListUnowned(_ context.Context) ([]*model.Item, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*model.Item
	for _, it := range s.items {
		if it.OwnerID == "" {
			cp := it
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ItemID < out[j].ItemID })
	return out, nil
}

func (s *memItems) ExistingIDs(_ context.Context, ids []string) (map[string]bool, error) {
	if err := checkBatch(len(ids)); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(map[string]bool, len(ids))
	for _, id := range ids {
		if _, ok := s.items[id]; ok {
			out[id] = true
		}
	}
	return out, nil
}

func (s *memItems) Upsert(_ context.Context, items []*model.Item) error {
	if err := checkBatch(len(items)); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, it := range items {
		s.items[it.ItemID] = *it
	}
	return nil
}

func (s *memItems) Delete(_ context.Context, itemIDs []string) error {
	if err := checkBatch(len(itemIDs)); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, id := range itemIDs {
		delete(s.items, id)
	}
	return nil
}

// --- Blocks ---

type memBlocks memStore

func (s *memBlocks) ListByOwnerDay(_ context.Context, ownerID, dayKey string) ([]model.Block, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []model.Block
	for _, b := range s.blocks {
		if b.OwnerID == ownerID && model.DayKey(b.Start) == dayKey {
			out = append(out, b)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].BlockID < out[j].BlockID })
	return out, nil
}

func (s *memBlocks) Upsert(_ context.Context, blocks []model.Block) error {
	if err := checkBatch(len(blocks)); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, b := range blocks {
		s.blocks[b.BlockID] = b
	}
	return nil
}

// --- Assignments ---

type memAssignments memStore

func (s *memAssignments) Get(_ context.Context, assignmentID string) (*model.PlanAssignment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	a, ok := s.assignments[assignmentID]
	if !ok {
		return nil, model.ErrNotFound
	}
	out := a
	return &out, nil
}

func (s *memAssignments) ListByPlan(_ context.Context, ownerID, dayKey string) ([]*model.PlanAssignment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*model.PlanAssignment
	for _, a := range s.assignments {
		if a.OwnerID == ownerID && a.DayKey == dayKey {
			cp := a
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].AssignmentID < out[j].AssignmentID })
	return out, nil
}

func (s *memAssignments) Upsert(_ context.Context, assignments []*model.PlanAssignment) error {
	if err := checkBatch(len(assignments)); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, a := range assignments {
		s.assignments[a.AssignmentID] = *a
	}
	return nil
}

// --- Index ---

type memIndex memStore

func (s *memIndex) Get(_ context.Context, itemID string) (*model.IndexEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.index[itemID]
	if !ok {
		return nil, model.ErrNotFound
	}
	out := e
	return &out, nil
}

func (s *memIndex) ListByOwner(_ context.Context, ownerID string) ([]*model.IndexEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*model.IndexEntry
	for _, e := range s.index {
		if e.OwnerUID == ownerID {
			cp := e
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ItemID < out[j].ItemID })
	return out, nil
}

func (s *memIndex) ListAll(_ context.Context) ([]*model.IndexEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*model.IndexEntry
	for _, e := range s.index {
		cp := e
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ItemID < out[j].ItemID })
	return out, nil
}

func (s *memIndex) Upsert(_ context.Context, entries []*model.IndexEntry) error {
	if err := checkBatch(len(entries)); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, e := range entries {
		s.index[e.ItemID] = *e
	}
	return nil
}

func (s *memIndex) Delete(_ context.Context, itemIDs []string) error {
	if err := checkBatch(len(itemIDs)); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, id := range itemIDs {
		delete(s.index, id)
	}
	return nil
}
