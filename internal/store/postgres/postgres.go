// Package postgres implements store.Store on PostgreSQL via the pgx stdlib
// driver, the hosted deployment target.
package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	_ "github.com/jackc/pgx/v5/stdlib"

	"github.com/lodestone-app/lodestone/internal/model"
	"github.com/lodestone-app/lodestone/internal/store"
)

// Open opens a PostgreSQL connection using the pgx stdlib driver and verifies
// connectivity.
func Open(dsn string) (*sql.DB, error) {
	if dsn == "" {
		return nil, fmt.Errorf("postgres DSN is empty")
	}
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, err
	}
	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, err
	}
	return db, nil
}

// Bootstrap opens the database and ensures the planner schema exists.
func Bootstrap(ctx context.Context, dsn string) (store.Store, error) {
	db, err := Open(dsn)
	if err != nil {
		return nil, err
	}
	if err := ensureSchema(ctx, db); err != nil {
		_ = db.Close()
		return nil, err
	}
	return NewWithDB(db), nil
}

// NewWithDB constructs a Postgres store backed directly by database/sql.
func NewWithDB(db *sql.DB) store.Store { return &pgStore{db: db} }

type pgStore struct{ db *sql.DB }

func (s *pgStore) Items() store.Items             { return &items{db: s.db} }
func (s *pgStore) Blocks() store.Blocks           { return &blocks{db: s.db} }
func (s *pgStore) Assignments() store.Assignments { return &assignments{db: s.db} }
func (s *pgStore) Index() store.Index             { return &index{db: s.db} }

// HealthPing implements health.HealthPinger.
func (s *pgStore) HealthPing(ctx context.Context) error { return s.db.PingContext(ctx) }

func ensureSchema(ctx context.Context, db *sql.DB) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS items (
            item_id TEXT PRIMARY KEY,
            kind TEXT NOT NULL,
            owner_id TEXT NOT NULL DEFAULT '',
            title TEXT NOT NULL,
            estimated_minutes INT NOT NULL DEFAULT 0,
            priority INT NOT NULL DEFAULT 0,
            theme_id TEXT,
            rrule TEXT,
            dtstart TIMESTAMPTZ,
            next_due TIMESTAMPTZ,
            status_raw JSONB,
            creation_time TIMESTAMPTZ NOT NULL,
            update_time TIMESTAMPTZ NOT NULL
        )`,
		`CREATE INDEX IF NOT EXISTS idx_items_owner ON items(owner_id)`,
		`CREATE TABLE IF NOT EXISTS blocks (
            block_id TEXT PRIMARY KEY,
            owner_id TEXT NOT NULL,
            day_key TEXT NOT NULL,
            start_time TIMESTAMPTZ NOT NULL,
            end_time TIMESTAMPTZ NOT NULL,
            persona TEXT NOT NULL,
            theme_id TEXT,
            daily_capacity_minutes INT NOT NULL DEFAULT 0
        )`,
		`CREATE INDEX IF NOT EXISTS idx_blocks_owner_day ON blocks(owner_id, day_key)`,
		`CREATE TABLE IF NOT EXISTS plan_assignments (
            assignment_id TEXT PRIMARY KEY,
            plan_id TEXT NOT NULL,
            day_key TEXT NOT NULL,
            owner_id TEXT NOT NULL,
            item_kind TEXT NOT NULL,
            item_id TEXT NOT NULL,
            title TEXT NOT NULL,
            estimated_minutes INT NOT NULL DEFAULT 0,
            block_id TEXT,
            start_time TIMESTAMPTZ,
            end_time TIMESTAMPTZ,
            status TEXT NOT NULL,
            external JSONB,
            creation_time TIMESTAMPTZ NOT NULL,
            update_time TIMESTAMPTZ NOT NULL
        )`,
		`CREATE INDEX IF NOT EXISTS idx_assignments_plan ON plan_assignments(owner_id, day_key)`,
		`CREATE TABLE IF NOT EXISTS sprint_index (
            item_id TEXT PRIMARY KEY,
            owner_uid TEXT NOT NULL,
            kind TEXT NOT NULL,
            title TEXT NOT NULL,
            status TEXT NOT NULL DEFAULT '',
            recurrence TEXT NOT NULL DEFAULT '',
            last_activity TIMESTAMPTZ NOT NULL,
            updated_at TIMESTAMPTZ NOT NULL
        )`,
		`CREATE INDEX IF NOT EXISTS idx_sprint_index_owner ON sprint_index(owner_uid)`,
	}
	for _, s := range stmts {
		if _, err := db.ExecContext(ctx, s); err != nil {
			return err
		}
	}
	return nil
}

func checkBatch(n int) error {
	if n > store.MaxBatchSize {
		return fmt.Errorf("%w: batch of %d exceeds limit %d", model.ErrValidation, n, store.MaxBatchSize)
	}
	return nil
}

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

const itemCols = `item_id, kind, owner_id, title, estimated_minutes, priority, theme_id, rrule, dtstart, next_due, status_raw, creation_time, update_time`

func scanItem(row interface{ Scan(...any) error }) (*model.Item, error) {
	var it model.Item
	var kind string
	var theme, rrule sql.NullString
	var dtstart, nextDue sql.NullTime
	var statusRaw []byte
	if err := row.Scan(&it.ItemID, &kind, &it.OwnerID, &it.Title, &it.EstimatedMinutes, &it.Priority,
		&theme, &rrule, &dtstart, &nextDue, &statusRaw, &it.CreationTime, &it.UpdateTime); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, model.ErrNotFound
		}
		return nil, err
	}
	it.Kind = model.ItemKind(kind)
	if theme.Valid {
		it.ThemeID = &theme.String
	}
	if rrule.Valid {
		it.RRule = &rrule.String
	}
	if dtstart.Valid {
		t := dtstart.Time
		it.DTStart = &t
	}
	if nextDue.Valid {
		t := nextDue.Time
		it.NextDue = &t
	}
	if len(statusRaw) > 0 {
		if err := json.Unmarshal(statusRaw, &it.Status); err != nil {
			return nil, err
		}
	}
	return &it, nil
}

func (r *items) Get(ctx context.Context, itemID string) (*model.Item, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+itemCols+` FROM items WHERE item_id=$1`, itemID)
	return scanItem(row)
}

func (r *items) listWhere(ctx context.Context, where string, args ...any) ([]*model.Item, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT `+itemCols+` FROM items `+where+` ORDER BY item_id`, args...)
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
	return r.listWhere(ctx, `WHERE owner_id=$1`, ownerID)
}

func (r *items) ListUnowned(ctx context.Context) ([]*model.Item, error) {
	return r.listWhere(ctx, `WHERE owner_id=''`)
}

func (r *items) ListOwners(ctx context.Context) ([]string, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT DISTINCT owner_id FROM items WHERE owner_id != '' ORDER BY owner_id`)
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
	rows, err := r.db.QueryContext(ctx, `SELECT item_id FROM items WHERE item_id = ANY($1)`, ids)
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
				statusRaw = b
			}
			_, err := tx.ExecContext(ctx, `
                INSERT INTO items (`+itemCols+`)
                VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13)
                ON CONFLICT (item_id) DO UPDATE SET
                    kind=EXCLUDED.kind, owner_id=EXCLUDED.owner_id, title=EXCLUDED.title,
                    estimated_minutes=EXCLUDED.estimated_minutes, priority=EXCLUDED.priority,
                    theme_id=EXCLUDED.theme_id, rrule=EXCLUDED.rrule, dtstart=EXCLUDED.dtstart,
                    next_due=EXCLUDED.next_due, status_raw=EXCLUDED.status_raw,
                    update_time=EXCLUDED.update_time`,
				it.ItemID, string(it.Kind), it.OwnerID, it.Title, it.EstimatedMinutes, it.Priority,
				it.ThemeID, it.RRule, it.DTStart, it.NextDue, statusRaw, it.CreationTime, it.UpdateTime)
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
	if len(itemIDs) == 0 {
		return nil
	}
	return inTx(ctx, r.db, func(tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx, `DELETE FROM items WHERE item_id = ANY($1)`, itemIDs)
		return err
	})
}

// --- Blocks ---

type blocks struct{ db *sql.DB }

func (r *blocks) ListByOwnerDay(ctx context.Context, ownerID, dayKey string) ([]model.Block, error) {
	rows, err := r.db.QueryContext(ctx, `
        SELECT block_id, owner_id, start_time, end_time, persona, theme_id, daily_capacity_minutes
        FROM blocks WHERE owner_id=$1 AND day_key=$2 ORDER BY block_id`, ownerID, dayKey)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []model.Block
	for rows.Next() {
		var b model.Block
		var persona string
		var theme sql.NullString
		if err := rows.Scan(&b.BlockID, &b.OwnerID, &b.Start, &b.End, &persona, &theme, &b.DailyCapacityMinutes); err != nil {
			return nil, err
		}
		b.Persona = model.Persona(persona)
		if theme.Valid {
			b.ThemeID = &theme.String
		}
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
                INSERT INTO blocks (block_id, owner_id, day_key, start_time, end_time, persona, theme_id, daily_capacity_minutes)
                VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
                ON CONFLICT (block_id) DO UPDATE SET
                    owner_id=EXCLUDED.owner_id, day_key=EXCLUDED.day_key, start_time=EXCLUDED.start_time,
                    end_time=EXCLUDED.end_time, persona=EXCLUDED.persona, theme_id=EXCLUDED.theme_id,
                    daily_capacity_minutes=EXCLUDED.daily_capacity_minutes`,
				b.BlockID, b.OwnerID, model.DayKey(b.Start), b.Start, b.End, string(b.Persona), b.ThemeID, b.DailyCapacityMinutes)
			if err != nil {
				return err
			}
		}
		return nil
	})
}

// --- Assignments ---

type assignments struct{ db *sql.DB }

const assignmentCols = `assignment_id, plan_id, day_key, owner_id, item_kind, item_id, title, estimated_minutes, block_id, start_time, end_time, status, external, creation_time, update_time`

func scanAssignment(row interface{ Scan(...any) error }) (*model.PlanAssignment, error) {
	var a model.PlanAssignment
	var kind, status string
	var blockID sql.NullString
	var start, end sql.NullTime
	var external []byte
	if err := row.Scan(&a.AssignmentID, &a.PlanID, &a.DayKey, &a.OwnerID, &kind, &a.ItemID,
		&a.Title, &a.EstimatedMinutes, &blockID, &start, &end, &status, &external,
		&a.CreationTime, &a.UpdateTime); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, model.ErrNotFound
		}
		return nil, err
	}
	a.ItemKind = model.ItemKind(kind)
	a.Status = model.AssignmentStatus(status)
	if blockID.Valid {
		a.BlockID = &blockID.String
	}
	if start.Valid {
		t := start.Time
		a.Start = &t
	}
	if end.Valid {
		t := end.Time
		a.End = &t
	}
	if len(external) > 0 {
		var links model.ExternalLinks
		if err := json.Unmarshal(external, &links); err != nil {
			return nil, err
		}
		a.External = &links
	}
	return &a, nil
}

func (r *assignments) Get(ctx context.Context, assignmentID string) (*model.PlanAssignment, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+assignmentCols+` FROM plan_assignments WHERE assignment_id=$1`, assignmentID)
	return scanAssignment(row)
}

func (r *assignments) ListByPlan(ctx context.Context, ownerID, dayKey string) ([]*model.PlanAssignment, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT `+assignmentCols+` FROM plan_assignments WHERE owner_id=$1 AND day_key=$2 ORDER BY assignment_id`, ownerID, dayKey)
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
				external = b
			}
			_, err := tx.ExecContext(ctx, `
                INSERT INTO plan_assignments (`+assignmentCols+`)
                VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15)
                ON CONFLICT (assignment_id) DO UPDATE SET
                    plan_id=EXCLUDED.plan_id, day_key=EXCLUDED.day_key, owner_id=EXCLUDED.owner_id,
                    item_kind=EXCLUDED.item_kind, item_id=EXCLUDED.item_id, title=EXCLUDED.title,
                    estimated_minutes=EXCLUDED.estimated_minutes, block_id=EXCLUDED.block_id,
                    start_time=EXCLUDED.start_time, end_time=EXCLUDED.end_time, status=EXCLUDED.status,
                    external=EXCLUDED.external, update_time=EXCLUDED.update_time`,
				a.AssignmentID, a.PlanID, a.DayKey, a.OwnerID, string(a.ItemKind), a.ItemID,
				a.Title, a.EstimatedMinutes, a.BlockID, a.Start, a.End, string(a.Status),
				external, a.CreationTime, a.UpdateTime)
			if err != nil {
				return err
			}
		}
		return nil
	})
}

// --- Index ---

type index struct{ db *sql.DB }

const indexCols = `item_id, owner_uid, kind, title, status, recurrence, last_activity, updated_at`

func scanIndexEntry(row interface{ Scan(...any) error }) (*model.IndexEntry, error) {
	var e model.IndexEntry
	var kind string
	if err := row.Scan(&e.ItemID, &e.OwnerUID, &kind, &e.Title, &e.Status, &e.Recurrence, &e.LastActivity, &e.UpdatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, model.ErrNotFound
		}
		return nil, err
	}
	e.Kind = model.ItemKind(kind)
	return &e, nil
}

func (r *index) Get(ctx context.Context, itemID string) (*model.IndexEntry, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+indexCols+` FROM sprint_index WHERE item_id=$1`, itemID)
	return scanIndexEntry(row)
}

func (r *index) list(ctx context.Context, where string, args ...any) ([]*model.IndexEntry, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT `+indexCols+` FROM sprint_index `+where+` ORDER BY item_id`, args...)
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
	return r.list(ctx, `WHERE owner_uid=$1`, ownerID)
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
                INSERT INTO sprint_index (`+indexCols+`)
                VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
                ON CONFLICT (item_id) DO UPDATE SET
                    owner_uid=EXCLUDED.owner_uid, kind=EXCLUDED.kind, title=EXCLUDED.title,
                    status=EXCLUDED.status, recurrence=EXCLUDED.recurrence,
                    last_activity=EXCLUDED.last_activity, updated_at=EXCLUDED.updated_at`,
				e.ItemID, e.OwnerUID, string(e.Kind), e.Title, e.Status, e.Recurrence,
				e.LastActivity, e.UpdatedAt)
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
	if len(itemIDs) == 0 {
		return nil
	}
	return inTx(ctx, r.db, func(tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx, `DELETE FROM sprint_index WHERE item_id = ANY($1)`, itemIDs)
		return err
	})
}
