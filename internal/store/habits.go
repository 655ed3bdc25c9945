package store

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// HabitType classifies how a habit's goal is measured.
type HabitType string

const (
	HabitSimple    HabitType = "simple"    // done / not done
	HabitQuantity  HabitType = "quantity"  // numeric target, e.g. glasses of water
	HabitDuration  HabitType = "duration"  // minutes spent
	HabitSchedule  HabitType = "schedule"  // done by a target time
	HabitAvoidance HabitType = "avoidance" // refrain from something
)

// Frequency describes how often a habit is expected.
type Frequency string

const (
	FreqDaily    Frequency = "daily"
	FreqPerWeek  Frequency = "per_week"
	FreqWeekdays Frequency = "weekdays"
)

// Habit is a user-defined goal. Archival is a soft delete.
type Habit struct {
	ID            string    `json:"id"`
	UserID        string    `json:"user_id"`
	Name          string    `json:"name"`
	Type          HabitType `json:"type"`
	GoalTarget    float64   `json:"goal_target,omitempty"`
	GoalDirection string    `json:"goal_direction,omitempty"` // "at_least" or "at_most"
	TargetTime    string    `json:"target_time,omitempty"`    // HH:MM for schedule habits
	Unit          string    `json:"unit,omitempty"`
	Frequency     Frequency `json:"frequency"`
	TimesPerWeek  int       `json:"times_per_week,omitempty"`
	Weekdays      string    `json:"weekdays,omitempty"` // comma-separated, e.g. "mon,wed,fri"
	Archived      bool      `json:"archived"`
	SortOrder     int       `json:"sort_order"`
	CreatedAt     int64     `json:"created_at"`
	UpdatedAt     int64     `json:"updated_at"`
}

var validHabitTypes = map[HabitType]bool{
	HabitSimple:    true,
	HabitQuantity:  true,
	HabitDuration:  true,
	HabitSchedule:  true,
	HabitAvoidance: true,
}

// NeedsValue reports whether a completed event for this habit requires a numeric value.
func (h *Habit) NeedsValue() bool {
	return h.Type == HabitQuantity || h.Type == HabitDuration
}

// CreateHabit inserts a new habit. Assigns an ID if empty.
func (db *DB) CreateHabit(h *Habit) error {
	if h.UserID == "" {
		return fmt.Errorf("create habit: user_id required")
	}
	if h.Name == "" {
		return fmt.Errorf("create habit: name required")
	}
	if !validHabitTypes[h.Type] {
		return fmt.Errorf("create habit: invalid type %q", h.Type)
	}
	if h.ID == "" {
		h.ID = uuid.NewString()
	}
	if h.Frequency == "" {
		h.Frequency = FreqDaily
	}

	now := time.Now().UnixMilli()
	_, err := db.Exec(`
		INSERT INTO habits (id, user_id, name, habit_type, goal_target, goal_direction, target_time, unit,
			frequency, times_per_week, weekdays, archived, sort_order, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, h.ID, h.UserID, h.Name, h.Type, h.GoalTarget, h.GoalDirection, h.TargetTime, h.Unit,
		h.Frequency, h.TimesPerWeek, h.Weekdays, boolInt(h.Archived), h.SortOrder, now, now)
	if err != nil {
		return fmt.Errorf("create habit: %w", err)
	}
	h.CreatedAt = now
	h.UpdatedAt = now
	return nil
}

// GetHabit returns a habit by ID, or nil if not found.
func (db *DB) GetHabit(id string) (*Habit, error) {
	row := db.QueryRow(habitSelect+" WHERE id = ?", id)
	h, err := scanHabit(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get habit: %w", err)
	}
	return h, nil
}

// ListActiveHabits returns a user's non-archived habits in display order.
func (db *DB) ListActiveHabits(userID string) ([]Habit, error) {
	rows, err := db.Query(habitSelect+`
		WHERE user_id = ? AND archived = 0
		ORDER BY sort_order, created_at
	`, userID)
	if err != nil {
		return nil, fmt.Errorf("list active habits: %w", err)
	}
	defer rows.Close()

	var habits []Habit
	for rows.Next() {
		h, err := scanHabit(rows)
		if err != nil {
			return nil, fmt.Errorf("scan habit: %w", err)
		}
		habits = append(habits, *h)
	}
	return habits, rows.Err()
}

// ArchiveHabit soft-deletes a habit. Rejects if the habit belongs to another user.
func (db *DB) ArchiveHabit(id, userID string) error {
	h, err := db.GetHabit(id)
	if err != nil {
		return err
	}
	if h == nil {
		return ErrNotFound
	}
	if h.UserID != userID {
		return ErrNotOwner
	}

	now := time.Now().UnixMilli()
	_, err = db.Exec("UPDATE habits SET archived = 1, updated_at = ? WHERE id = ?", now, id)
	if err != nil {
		return fmt.Errorf("archive habit: %w", err)
	}
	return nil
}

const habitSelect = `
	SELECT id, user_id, name, habit_type, goal_target, goal_direction, target_time, unit,
		frequency, times_per_week, weekdays, archived, sort_order, created_at, updated_at
	FROM habits`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanHabit(row rowScanner) (*Habit, error) {
	var h Habit
	var archived int
	var goalTarget sql.NullFloat64
	var goalDirection, targetTime, unit, weekdays sql.NullString
	err := row.Scan(&h.ID, &h.UserID, &h.Name, &h.Type, &goalTarget, &goalDirection, &targetTime, &unit,
		&h.Frequency, &h.TimesPerWeek, &weekdays, &archived, &h.SortOrder, &h.CreatedAt, &h.UpdatedAt)
	if err != nil {
		return nil, err
	}
	h.GoalTarget = goalTarget.Float64
	h.GoalDirection = goalDirection.String
	h.TargetTime = targetTime.String
	h.Unit = unit.String
	h.Weekdays = weekdays.String
	h.Archived = archived != 0
	return &h, nil
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
