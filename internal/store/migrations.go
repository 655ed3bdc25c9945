package store

import (
	"fmt"
)

type migration struct {
	Version     int
	Description string
	SQL         string
}

var migrations = []migration{
	{
		Version:     1,
		Description: "habits: goal definitions",
		SQL: `
CREATE TABLE habits (
    id              TEXT PRIMARY KEY,
    user_id         TEXT NOT NULL,
    name            TEXT NOT NULL,
    habit_type      TEXT NOT NULL CHECK (habit_type IN ('simple', 'quantity', 'duration', 'schedule', 'avoidance')),

    -- Goal parameters
    goal_target     REAL,
    goal_direction  TEXT,
    target_time     TEXT,
    unit            TEXT,

    -- Frequency specification
    frequency       TEXT NOT NULL DEFAULT 'daily' CHECK (frequency IN ('daily', 'per_week', 'weekdays')),
    times_per_week  INTEGER NOT NULL DEFAULT 0,
    weekdays        TEXT,

    archived        INTEGER NOT NULL DEFAULT 0,
    sort_order      INTEGER NOT NULL DEFAULT 0,
    created_at      INTEGER NOT NULL,
    updated_at      INTEGER NOT NULL
);

CREATE INDEX idx_habits_user          ON habits(user_id, archived);
CREATE INDEX idx_habits_user_order    ON habits(user_id, sort_order);
`,
	},
	{
		Version:     2,
		Description: "habit_events: one row per habit per calendar date",
		SQL: `
CREATE TABLE habit_events (
    id          TEXT PRIMARY KEY,
    habit_id    TEXT NOT NULL,
    user_id     TEXT NOT NULL,
    date        TEXT NOT NULL,
    status      TEXT NOT NULL CHECK (status IN ('completed', 'skipped', 'failed', 'not_marked')),
    value       REAL,
    note        TEXT,
    logged_at   INTEGER,
    created_at  INTEGER NOT NULL,
    updated_at  INTEGER NOT NULL,

    UNIQUE (habit_id, date),
    FOREIGN KEY (habit_id) REFERENCES habits(id)
);

CREATE INDEX idx_events_user_date  ON habit_events(user_id, date);
CREATE INDEX idx_events_habit_date ON habit_events(habit_id, date);
`,
	},
	{
		Version:     3,
		Description: "journal_entries: free-text journal",
		SQL: `
CREATE TABLE journal_entries (
    id          TEXT PRIMARY KEY,
    user_id     TEXT NOT NULL,
    title       TEXT NOT NULL DEFAULT '',
    content     TEXT NOT NULL DEFAULT '',
    date        TEXT NOT NULL,
    created_at  INTEGER NOT NULL
);

CREATE INDEX idx_journal_user_date ON journal_entries(user_id, date DESC);
`,
	},
	{
		Version:     4,
		Description: "daily_plans: which habits a user planned for a date",
		SQL: `
CREATE TABLE daily_plans (
    id          TEXT PRIMARY KEY,
    user_id     TEXT NOT NULL,
    date        TEXT NOT NULL,
    habit_ids   TEXT NOT NULL DEFAULT '[]',
    created_at  INTEGER NOT NULL,

    UNIQUE (user_id, date)
);
`,
	},
	{
		Version:     5,
		Description: "correlation cache and trigger trackers, one row per user",
		SQL: `
CREATE TABLE correlation_cache (
    user_id      TEXT PRIMARY KEY,
    results      TEXT NOT NULL DEFAULT '[]',
    computed_at  INTEGER NOT NULL,
    valid_until  INTEGER NOT NULL
);

CREATE TABLE correlation_trackers (
    user_id              TEXT PRIMARY KEY,
    last_update          INTEGER NOT NULL DEFAULT 0,
    total_events         INTEGER NOT NULL DEFAULT 0,
    events_since_update  INTEGER NOT NULL DEFAULT 0
);
`,
	},
}

func (db *DB) migrate() error {
	// Create schema_versions table if it doesn't exist
	_, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS schema_versions (
			version     INTEGER PRIMARY KEY,
			description TEXT NOT NULL,
			applied_at  INTEGER NOT NULL DEFAULT (strftime('%s', 'now') * 1000)
		)
	`)
	if err != nil {
		return fmt.Errorf("create schema_versions: %w", err)
	}

	for _, m := range migrations {
		var count int
		err := db.QueryRow("SELECT COUNT(*) FROM schema_versions WHERE version = ?", m.Version).Scan(&count)
		if err != nil {
			return fmt.Errorf("check migration %d: %w", m.Version, err)
		}
		if count > 0 {
			continue
		}

		tx, err := db.Begin()
		if err != nil {
			return fmt.Errorf("begin migration %d: %w", m.Version, err)
		}

		if _, err := tx.Exec(m.SQL); err != nil {
			tx.Rollback()
			return fmt.Errorf("migration %d (%s): %w", m.Version, m.Description, err)
		}

		if _, err := tx.Exec(
			"INSERT INTO schema_versions (version, description) VALUES (?, ?)",
			m.Version, m.Description,
		); err != nil {
			tx.Rollback()
			return fmt.Errorf("record migration %d: %w", m.Version, err)
		}

		if err := tx.Commit(); err != nil {
			return fmt.Errorf("commit migration %d: %w", m.Version, err)
		}
	}

	return nil
}

// SchemaVersion returns the current schema version.
func (db *DB) SchemaVersion() (int, error) {
	var version int
	err := db.QueryRow("SELECT COALESCE(MAX(version), 0) FROM schema_versions").Scan(&version)
	return version, err
}
