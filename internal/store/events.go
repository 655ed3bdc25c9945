package store

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// EventStatus is the outcome recorded for a habit on a calendar date.
type EventStatus string

const (
	StatusCompleted EventStatus = "completed"
	StatusSkipped   EventStatus = "skipped"
	StatusFailed    EventStatus = "failed"
	StatusNotMarked EventStatus = "not_marked"
)

var validStatuses = map[EventStatus]bool{
	StatusCompleted: true,
	StatusSkipped:   true,
	StatusFailed:    true,
	StatusNotMarked: true,
}

// HabitEvent records a habit's outcome for one calendar date.
// At most one event exists per (habit, date); the first log for a date
// inserts and later logs update in place.
type HabitEvent struct {
	ID        string      `json:"id"`
	HabitID   string      `json:"habit_id"`
	UserID    string      `json:"user_id"`
	Date      string      `json:"date"` // YYYY-MM-DD
	Status    EventStatus `json:"status"`
	Value     *float64    `json:"value,omitempty"`
	Note      string      `json:"note,omitempty"`
	LoggedAt  *int64      `json:"logged_at,omitempty"`
	CreatedAt int64       `json:"created_at"`
	UpdatedAt int64       `json:"updated_at"`
}

// ValidDate reports whether s is a well-formed YYYY-MM-DD calendar date.
func ValidDate(s string) bool {
	_, err := time.Parse("2006-01-02", s)
	return err == nil && len(s) == 10
}

// LogEvent validates and upserts an event for (habit, date).
// Rejected outright: malformed dates, unknown statuses, events against a habit the
// user does not own, and completed quantity/duration events with no value.
func (db *DB) LogEvent(ev *HabitEvent) error {
	if !ValidDate(ev.Date) {
		return ErrBadDate
	}
	if ev.Status == "" {
		ev.Status = StatusCompleted
	}
	if !validStatuses[ev.Status] {
		return ErrBadStatus
	}

	habit, err := db.GetHabit(ev.HabitID)
	if err != nil {
		return err
	}
	if habit == nil {
		return ErrNotFound
	}
	if habit.UserID != ev.UserID {
		return ErrNotOwner
	}
	if habit.NeedsValue() && ev.Status == StatusCompleted && ev.Value == nil {
		return ErrValueRequired
	}

	existing, err := db.GetEvent(ev.HabitID, ev.Date)
	if err != nil {
		return err
	}

	now := time.Now().UnixMilli()
	if existing != nil {
		_, err = db.Exec(`
			UPDATE habit_events SET status = ?, value = ?, note = ?, logged_at = ?, updated_at = ?
			WHERE id = ?
		`, ev.Status, nullFloat(ev.Value), ev.Note, nullInt(ev.LoggedAt), now, existing.ID)
		if err != nil {
			return fmt.Errorf("update event: %w", err)
		}
		ev.ID = existing.ID
		ev.CreatedAt = existing.CreatedAt
		ev.UpdatedAt = now
		return nil
	}

	if ev.ID == "" {
		ev.ID = uuid.NewString()
	}
	_, err = db.Exec(`
		INSERT INTO habit_events (id, habit_id, user_id, date, status, value, note, logged_at, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, ev.ID, ev.HabitID, ev.UserID, ev.Date, ev.Status, nullFloat(ev.Value), ev.Note, nullInt(ev.LoggedAt), now, now)
	if err != nil {
		return fmt.Errorf("insert event: %w", err)
	}
	ev.CreatedAt = now
	ev.UpdatedAt = now
	return nil
}

// GetEvent returns the event for (habit, date), or nil if none recorded.
func (db *DB) GetEvent(habitID, date string) (*HabitEvent, error) {
	row := db.QueryRow(eventSelect+" WHERE habit_id = ? AND date = ?", habitID, date)
	ev, err := scanEvent(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get event: %w", err)
	}
	return ev, nil
}

// EventsForHabit returns a habit's events ordered by date ascending.
// If since is non-empty, only events on or after that date are returned.
func (db *DB) EventsForHabit(habitID, since string) ([]HabitEvent, error) {
	query := eventSelect + " WHERE habit_id = ?"
	args := []any{habitID}
	if since != "" {
		query += " AND date >= ?"
		args = append(args, since)
	}
	query += " ORDER BY date"

	rows, err := db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("events for habit: %w", err)
	}
	defer rows.Close()
	return scanEvents(rows)
}

// EventsForUser returns all of a user's events on or after since, date ascending.
func (db *DB) EventsForUser(userID, since string) ([]HabitEvent, error) {
	rows, err := db.Query(eventSelect+`
		WHERE user_id = ? AND date >= ?
		ORDER BY date
	`, userID, since)
	if err != nil {
		return nil, fmt.Errorf("events for user: %w", err)
	}
	defer rows.Close()
	return scanEvents(rows)
}

// EventsOnDate returns all of a user's events for a single date, keyed by habit ID.
func (db *DB) EventsOnDate(userID, date string) (map[string]HabitEvent, error) {
	rows, err := db.Query(eventSelect+" WHERE user_id = ? AND date = ?", userID, date)
	if err != nil {
		return nil, fmt.Errorf("events on date: %w", err)
	}
	defer rows.Close()

	events, err := scanEvents(rows)
	if err != nil {
		return nil, err
	}
	byHabit := make(map[string]HabitEvent, len(events))
	for _, ev := range events {
		byHabit[ev.HabitID] = ev
	}
	return byHabit, nil
}

// CountCompleted returns the user's lifetime count of completed events.
func (db *DB) CountCompleted(userID string) (int, error) {
	var count int
	err := db.QueryRow(
		"SELECT COUNT(*) FROM habit_events WHERE user_id = ? AND status = 'completed'", userID,
	).Scan(&count)
	return count, err
}

const eventSelect = `
	SELECT id, habit_id, user_id, date, status, value, note, logged_at, created_at, updated_at
	FROM habit_events`

func scanEvent(row rowScanner) (*HabitEvent, error) {
	var ev HabitEvent
	var value sql.NullFloat64
	var note sql.NullString
	var loggedAt sql.NullInt64
	err := row.Scan(&ev.ID, &ev.HabitID, &ev.UserID, &ev.Date, &ev.Status,
		&value, &note, &loggedAt, &ev.CreatedAt, &ev.UpdatedAt)
	if err != nil {
		return nil, err
	}
	if value.Valid {
		ev.Value = &value.Float64
	}
	ev.Note = note.String
	if loggedAt.Valid {
		ev.LoggedAt = &loggedAt.Int64
	}
	return &ev, nil
}

func scanEvents(rows *sql.Rows) ([]HabitEvent, error) {
	var events []HabitEvent
	for rows.Next() {
		ev, err := scanEvent(rows)
		if err != nil {
			return nil, fmt.Errorf("scan event: %w", err)
		}
		events = append(events, *ev)
	}
	return events, rows.Err()
}

func nullFloat(f *float64) any {
	if f == nil {
		return nil
	}
	return *f
}

func nullInt(i *int64) any {
	if i == nil {
		return nil
	}
	return *i
}
