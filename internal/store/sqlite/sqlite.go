// Package sqlite implements store.Store on a local SQLite file, the
// single-user deployment target.
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/lodestone-app/lodestone/internal/model"
	"github.com/lodestone-app/lodestone/internal/store"
)

// New opens (or creates) the database at path and ensures the schema.
func New(path string) (store.Store, error) {
	db, err := Open(path)
	if err != nil {
		return nil, err
	}
	if err := EnsureSchema(db); err != nil {
		_ = db.Close()
		return nil, err
	}
	return NewWithDB(db), nil
}

// NewWithDB wires a store over an existing connection (used by the factory
// and tests).
func NewWithDB(db *sql.DB) store.Store { return &sqlStore{db: db} }

type sqlStore struct{ db *sql.DB }

func (s *sqlStore) Items() store.Items             { return &items{db: s.db} }
func (s *sqlStore) Blocks() store.Blocks           { return &blocks{db: s.db} }
func (s *sqlStore) Assignments() store.Assignments { return &assignments{db: s.db} }
func (s *sqlStore) Index() store.Index             { return &index{db: s.db} }

// HealthPing implements health.HealthPinger.
func (s *sqlStore) HealthPing(ctx context.Context) error { return s.db.PingContext(ctx) }

// Timestamps are stored as RFC3339Nano text, preserving the original UTC
// offset so day keys survive round-trips.
func encTime(t time.Time) string { return t.Format(time.RFC3339Nano) }

func decTime(s string) (time.Time, error) { return time.Parse(time.RFC3339Nano, s) }

func encTimePtr(t *time.Time) any {
	if t == nil {
		return nil
	}
	return encTime(*t)
}

func decTimePtr(ns sql.NullString) (*time.Time, error) {
	if !ns.Valid {
		return nil, nil
	}
	t, err := decTime(ns.String)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

func strOrNil(ns sql.NullString) *string {
	if !ns.Valid {
		return nil
	}
	s := ns.String
	return &s
}

func checkBatch(n int) error {
	if n > store.MaxBatchSize {
		return fmt.Errorf("%w: batch of %d exceeds limit %d", model.ErrValidation, n, store.MaxBatchSize)
	}
	return nil
}

// inTx runs fn inside one transaction so a chunk is applied all-or-nothing.
func inTx(ctx context.Context, db *sql.DB, fn func(*sql.Tx) error) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	if err := fn(tx); err != nil {
		_ = tx.Rollback()
		return err
	}
	return tx.Commit()
}

// --- Items ---

type items struct{ db *sql.DB }

const itemCols = `ItemId, Kind, OwnerId, Title, EstimatedMinutes, Priority, ThemeId, RRule, DTStart, NextDue, StatusRaw, CreationTime, UpdateTime`

func scanItem(row interface{ Scan(...any) error }) (*model.Item, error) {
	var it model.Item
	var kind string
	var theme, rrule, dtstart, nextDue, statusRaw sql.NullString
	var created, updated string
	if err := row.Scan(&it.ItemID, &kind, &it.OwnerID, &it.Title, &it.EstimatedMinutes, &it.Priority,
		&theme, &rrule, &dtstart, &nextDue, &statusRaw, &created, &updated); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, model.ErrNotFound
		}
		return nil, err
	}
	it.Kind = model.ItemKind(kind)
	it.ThemeID = strOrNil(theme)
	it.RRule = strOrNil(rrule)
	var err error
	if it.DTStart, err = decTimePtr(dtstart); err != nil {
		return nil, err
	}
	if it.NextDue, err = decTimePtr(nextDue); err != nil {
		return nil, err
	}
	if statusRaw.Valid && statusRaw.String != "" {
		if err := json.Unmarshal([]byte(statusRaw.String), &it.Status); err != nil {
			// Legacy rows may hold bare strings rather than JSON.
			it.Status = statusRaw.String
		}
	}
	if it.CreationTime, err = decTime(created); err != nil {
		return nil, err
	}
	if it.UpdateTime, err = decTime(updated); err != nil {
		return nil, err
	}
	return &it, nil
}

func (r *items) Get(ctx context.Context, itemID string) (*model.Item, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+itemCols+` FROM Items WHERE ItemId = ?`, itemID)
	return scanItem(row)
}

func (r *items) listWhere(ctx context.Context, where string, args ...any) ([]*model.Item, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT `+itemCols+` FROM Items `+where+` ORDER BY ItemId`, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []*model.Item
	for rows.Next() {
		it, err := scanItem(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, it)
	}
	return out, rows.Err()
}

func (r *items) ListByOwner(ctx context.Context, ownerID string) ([]*model.Item, error) {
	return r.listWhere(ctx, `WHERE OwnerId = ?`, ownerID)
}

func (r *items) ListUnowned(ctx context.Context) ([]*model.Item, error) {
	return r.listWhere(ctx, `WHERE OwnerId = ''`)
}

func (r *items) ListOwners(ctx context.Context) ([]string, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT DISTINCT OwnerId FROM Items WHERE OwnerId != '' ORDER BY OwnerId`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		out = append(out, id)
	}
	return out, rows.Err()
}

func (r *items) ExistingIDs(ctx context.Context, ids []string) (map[string]bool, error) {
	if err := checkBatch(len(ids)); err != nil {
		return nil, err
	}
	out := make(map[string]bool, len(ids))
	if len(ids) == 0 {
		return out, nil
	}
	args := make([]any, len(ids))
	for i, id := range ids {
		args[i] = id
	}
	q := `SELECT ItemId FROM Items WHERE ItemId IN (?` + strings.Repeat(",?", len(ids)-1) + `)`
	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		out[id] = true
	}
	return out, rows.Err()
}

func (r *items) Upsert(ctx context.Context, list []*model.Item) error {
	if err := checkBatch(len(list)); err != nil {
		return err
	}
	return inTx(ctx, r.db, func(tx *sql.Tx) error {
		for _, it := range list {
			var statusRaw any
			if it.Status != nil {
				b, err := json.Marshal(it.Status)
				if err != nil {
					return fmt.Errorf("%w: item %s status: %v", model.ErrValidation, it.ItemID, err)
				}
				statusRaw = string(b)
			}
			_, err := tx.ExecContext(ctx, `
                INSERT INTO Items (`+itemCols+`) VALUES (?,?,?,?,?,?,?,?,?,?,?,?,?)
                ON CONFLICT(ItemId) DO UPDATE SET
                    Kind=excluded.Kind, OwnerId=excluded.OwnerId, Title=excluded.Title,
                    EstimatedMinutes=excluded.EstimatedMinutes, Priority=excluded.Priority,
                    ThemeId=excluded.ThemeId, RRule=excluded.RRule, DTStart=excluded.DTStart,
                    NextDue=excluded.NextDue, StatusRaw=excluded.StatusRaw,
                    UpdateTime=excluded.UpdateTime`,
				it.ItemID, string(it.Kind), it.OwnerID, it.Title, it.EstimatedMinutes, it.Priority,
				it.ThemeID, it.RRule, encTimePtr(it.DTStart), encTimePtr(it.NextDue), statusRaw,
				encTime(it.CreationTime), encTime(it.UpdateTime))
			if err != nil {
				return err
			}
		}
		return nil
	})
}

func (r *items) Delete(ctx context.Context, itemIDs []string) error {
	if err := checkBatch(len(itemIDs)); err != nil {
		return err
	}
	return inTx(ctx, r.db, func(tx *sql.Tx) error {
		for _, id := range itemIDs {
			if _, err := tx.ExecContext(ctx, `DELETE FROM Items WHERE ItemId = ?`, id); err != nil {
				return err
			}
		}
		return nil
	})
}

// --- Blocks ---

type blocks struct{ db *sql.DB }

func (r *blocks) ListByOwnerDay(ctx context.Context, ownerID, dayKey string) ([]model.Block, error) {
	rows, err := r.db.QueryContext(ctx, `
        SELECT BlockId, OwnerId, StartTime, EndTime, Persona, ThemeId, DailyCapacityMinutes
        FROM Blocks WHERE OwnerId = ? AND DayKey = ? ORDER BY BlockId`, ownerID, dayKey)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []model.Block
	for rows.Next() {
		var b model.Block
		var start, end, persona string
		var theme sql.NullString
		if err := rows.Scan(&b.BlockID, &b.OwnerID, &start, &end, &persona, &theme, &b.DailyCapacityMinutes); err != nil {
			return nil, err
		}
		if b.Start, err = decTime(start); err != nil {
			return nil, err
		}
		if b.End, err = decTime(end); err != nil {
			return nil, err
		}
		b.Persona = model.Persona(persona)
		b.ThemeID = strOrNil(theme)
		out = append(out, b)
	}
	return out, rows.Err()
}

func (r *blocks) Upsert(ctx context.Context, list []model.Block) error {
	if err := checkBatch(len(list)); err != nil {
		return err
	}
	return inTx(ctx, r.db, func(tx *sql.Tx) error {
		for _, b := range list {
			_, err := tx.ExecContext(ctx, `
                INSERT INTO Blocks (BlockId, OwnerId, DayKey, StartTime, EndTime, Persona, ThemeId, DailyCapacityMinutes)
                VALUES (?,?,?,?,?,?,?,?)
                ON CONFLICT(BlockId) DO UPDATE SET
                    OwnerId=excluded.OwnerId, DayKey=excluded.DayKey, StartTime=excluded.StartTime,
                    EndTime=excluded.EndTime, Persona=excluded.Persona, ThemeId=excluded.ThemeId,
                    DailyCapacityMinutes=excluded.DailyCapacityMinutes`,
				b.BlockID, b.OwnerID, model.DayKey(b.Start), encTime(b.Start), encTime(b.End),
				string(b.Persona), b.ThemeID, b.DailyCapacityMinutes)
			if err != nil {
				return err
			}
		}
		return nil
	})
}

// --- Assignments ---

type assignments struct{ db *sql.DB }

const assignmentCols = `AssignmentId, PlanId, DayKey, OwnerId, ItemKind, ItemId, Title, EstimatedMinutes, BlockId, StartTime, EndTime, Status, ExternalJson, CreationTime, UpdateTime`

func scanAssignment(row interface{ Scan(...any) error }) (*model.PlanAssignment, error) {
	var a model.PlanAssignment
	var kind, status string
	var blockID, start, end, external sql.NullString
	var created, updated string
	if err := row.Scan(&a.AssignmentID, &a.PlanID, &a.DayKey, &a.OwnerID, &kind, &a.ItemID,
		&a.Title, &a.EstimatedMinutes, &blockID, &start, &end, &status, &external, &created, &updated); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, model.ErrNotFound
		}
		return nil, err
	}
	a.ItemKind = model.ItemKind(kind)
	a.Status = model.AssignmentStatus(status)
	a.BlockID = strOrNil(blockID)
	var err error
	if a.Start, err = decTimePtr(start); err != nil {
		return nil, err
	}
	if a.End, err = decTimePtr(end); err != nil {
		return nil, err
	}
	if external.Valid && external.String != "" {
		var links model.ExternalLinks
		if err := json.Unmarshal([]byte(external.String), &links); err != nil {
			return nil, err
		}
		a.External = &links
	}
	if a.CreationTime, err = decTime(created); err != nil {
		return nil, err
	}
	if a.UpdateTime, err = decTime(updated); err != nil {
		return nil, err
	}
	return &a, nil
}

func (r *assignments) Get(ctx context.Context, assignmentID string) (*model.PlanAssignment, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+assignmentCols+` FROM PlanAssignments WHERE AssignmentId = ?`, assignmentID)
	return scanAssignment(row)
}

func (r *assignments) ListByPlan(ctx context.Context, ownerID, dayKey string) ([]*model.PlanAssignment, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT `+assignmentCols+` FROM PlanAssignments WHERE OwnerId = ? AND DayKey = ? ORDER BY AssignmentId`, ownerID, dayKey)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []*model.PlanAssignment
	for rows.Next() {
		a, err := scanAssignment(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

func (r *assignments) Upsert(ctx context.Context, list []*model.PlanAssignment) error {
	if err := checkBatch(len(list)); err != nil {
		return err
	}
	return inTx(ctx, r.db, func(tx *sql.Tx) error {
		for _, a := range list {
			var external any
			if a.External != nil {
				b, err := json.Marshal(a.External)
				if err != nil {
					return err
				}
				external = string(b)
			}
			_, err := tx.ExecContext(ctx, `
                INSERT INTO PlanAssignments (`+assignmentCols+`) VALUES (?,?,?,?,?,?,?,?,?,?,?,?,?,?,?)
                ON CONFLICT(AssignmentId) DO UPDATE SET
                    PlanId=excluded.PlanId, DayKey=excluded.DayKey, OwnerId=excluded.OwnerId,
                    ItemKind=excluded.ItemKind, ItemId=excluded.ItemId, Title=excluded.Title,
                    EstimatedMinutes=excluded.EstimatedMinutes, BlockId=excluded.BlockId,
                    StartTime=excluded.StartTime, EndTime=excluded.EndTime, Status=excluded.Status,
                    ExternalJson=excluded.ExternalJson, UpdateTime=excluded.UpdateTime`,
				a.AssignmentID, a.PlanID, a.DayKey, a.OwnerID, string(a.ItemKind), a.ItemID,
				a.Title, a.EstimatedMinutes, a.BlockID, encTimePtr(a.Start), encTimePtr(a.End),
				string(a.Status), external, encTime(a.CreationTime), encTime(a.UpdateTime))
			if err != nil {
				return err
			}
		}
		return nil
	})
}

// --- Index ---

type index struct{ db *sql.DB }

const indexCols = `ItemId, OwnerUid, Kind, Title, Status, Recurrence, LastActivity, UpdatedAt`

func scanIndexEntry(row interface{ Scan(...any) error }) (*model.IndexEntry, error) {
	var e model.IndexEntry
	var kind, lastActivity, updatedAt string
	if err := row.Scan(&e.ItemID, &e.OwnerUID, &kind, &e.Title, &e.Status, &e.Recurrence, &lastActivity, &updatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, model.ErrNotFound
		}
		return nil, err
	}
	e.Kind = model.ItemKind(kind)
	var err error
	if e.LastActivity, err = decTime(lastActivity); err != nil {
		return nil, err
	}
	if e.UpdatedAt, err = decTime(updatedAt); err != nil {
		return nil, err
	}
	return &e, nil
}

func (r *index) Get(ctx context.Context, itemID string) (*model.IndexEntry, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+indexCols+` FROM SprintIndex WHERE ItemId = ?`, itemID)
	return scanIndexEntry(row)
}

func (r *index) list(ctx context.Context, where string, args ...any) ([]*model.IndexEntry, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT `+indexCols+` FROM SprintIndex `+where+` ORDER BY ItemId`, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []*model.IndexEntry
	for rows.Next() {
		e, err := scanIndexEntry(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

func (r *index) ListByOwner(ctx context.Context, ownerID string) ([]*model.IndexEntry, error) {
	return r.list(ctx, `WHERE OwnerUid = ?`, ownerID)
}

func (r *index) ListAll(ctx context.Context) ([]*model.IndexEntry, error) {
	return r.list(ctx, ``)
}

func (r *index) Upsert(ctx context.Context, entries []*model.IndexEntry) error {
	if err := checkBatch(len(entries)); err != nil {
		return err
	}
	return inTx(ctx, r.db, func(tx *sql.Tx) error {
		for _, e := range entries {
			_, err := tx.ExecContext(ctx, `
                INSERT INTO SprintIndex (`+indexCols+`) VALUES (?,?,?,?,?,?,?,?)
                ON CONFLICT(ItemId) DO UPDATE SET
                    OwnerUid=excluded.OwnerUid, Kind=excluded.Kind, Title=excluded.Title,
                    Status=excluded.Status, Recurrence=excluded.Recurrence,
                    LastActivity=excluded.LastActivity, UpdatedAt=excluded.UpdatedAt`,
				e.ItemID, e.OwnerUID, string(e.Kind), e.Title, e.Status, e.Recurrence,
				encTime(e.LastActivity), encTime(e.UpdatedAt))
			if err != nil {
				return err
			}
		}
		return nil
	})
}

func (r *index) Delete(ctx context.Context, itemIDs []string) error {
	if err := checkBatch(len(itemIDs)); err != nil {
		return err
	}
	return inTx(ctx, r.db, func(tx *sql.Tx) error {
		for _, id := range itemIDs {
			if _, err := tx.ExecContext(ctx, `DELETE FROM SprintIndex WHERE ItemId = ?`, id); err != nil {
				return err
			}
		}
		return nil
	})
}
