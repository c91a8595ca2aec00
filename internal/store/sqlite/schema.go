package sqlite

import "database/sql"

// EnsureSchema creates the planner tables if they do not exist.
func EnsureSchema(db *sql.DB) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS Items (
            ItemId TEXT PRIMARY KEY,
            Kind TEXT NOT NULL,
            OwnerId TEXT NOT NULL DEFAULT '',
            Title TEXT NOT NULL,
            EstimatedMinutes INTEGER NOT NULL DEFAULT 0,
            Priority INTEGER NOT NULL DEFAULT 0,
            ThemeId TEXT,
            RRule TEXT,
            DTStart TEXT,
            NextDue TEXT,
            StatusRaw TEXT,
            CreationTime TEXT NOT NULL,
            UpdateTime TEXT NOT NULL
        );`,
		`CREATE INDEX IF NOT EXISTS IdxItemsOwner ON Items(OwnerId);`,
		`CREATE TABLE IF NOT EXISTS Blocks (
            BlockId TEXT PRIMARY KEY,
            OwnerId TEXT NOT NULL,
            DayKey TEXT NOT NULL,
            StartTime TEXT NOT NULL,
            EndTime TEXT NOT NULL,
            Persona TEXT NOT NULL,
            ThemeId TEXT,
            DailyCapacityMinutes INTEGER NOT NULL DEFAULT 0
        );`,
		`CREATE INDEX IF NOT EXISTS IdxBlocksOwnerDay ON Blocks(OwnerId, DayKey);`,
		`CREATE TABLE IF NOT EXISTS PlanAssignments (
            AssignmentId TEXT PRIMARY KEY,
            PlanId TEXT NOT NULL,
            DayKey TEXT NOT NULL,
            OwnerId TEXT NOT NULL,
            ItemKind TEXT NOT NULL,
            ItemId TEXT NOT NULL,
            Title TEXT NOT NULL,
            EstimatedMinutes INTEGER NOT NULL DEFAULT 0,
            BlockId TEXT,
            StartTime TEXT,
            EndTime TEXT,
            Status TEXT NOT NULL,
            ExternalJson TEXT,
            CreationTime TEXT NOT NULL,
            UpdateTime TEXT NOT NULL
        );`,
		`CREATE INDEX IF NOT EXISTS IdxAssignmentsPlan ON PlanAssignments(OwnerId, DayKey);`,
		`CREATE TABLE IF NOT EXISTS SprintIndex (
            ItemId TEXT PRIMARY KEY,
            OwnerUid TEXT NOT NULL,
            Kind TEXT NOT NULL,
            Title TEXT NOT NULL,
            Status TEXT NOT NULL DEFAULT '',
            Recurrence TEXT NOT NULL DEFAULT '',
            LastActivity TEXT NOT NULL,
            UpdatedAt TEXT NOT NULL
        );`,
		`CREATE INDEX IF NOT EXISTS IdxSprintIndexOwner ON SprintIndex(OwnerUid);`,
	}
	for _, s := range stmts {
		if _, err := db.Exec(s); err != nil {
			return err
		}
	}
	return nil
}
