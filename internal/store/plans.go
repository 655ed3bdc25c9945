package store

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// DailyPlan names the habits a user committed to for one date.
type DailyPlan struct {
	ID        string   `json:"id"`
	UserID    string   `json:"user_id"`
	Date      string   `json:"date"`
	HabitIDs  []string `json:"habit_ids"`
	CreatedAt int64    `json:"created_at"`
}

// SavePlan upserts the plan for (user, date).
func (db *DB) SavePlan(p *DailyPlan) error {
	if !ValidDate(p.Date) {
		return ErrBadDate
	}
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	ids, err := json.Marshal(p.HabitIDs)
	if err != nil {
		return fmt.Errorf("marshal habit ids: %w", err)
	}

	now := time.Now().UnixMilli()
	_, err = db.Exec(`
		INSERT INTO daily_plans (id, user_id, date, habit_ids, created_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT (user_id, date) DO UPDATE SET habit_ids = excluded.habit_ids
	`, p.ID, p.UserID, p.Date, string(ids), now)
	if err != nil {
		return fmt.Errorf("save plan: %w", err)
	}
	p.CreatedAt = now
	return nil
}

// GetPlan returns the plan for (user, date), or nil if none exists.
func (db *DB) GetPlan(userID, date string) (*DailyPlan, error) {
	var p DailyPlan
	var ids string
	err := db.QueryRow(`
		SELECT id, user_id, date, habit_ids, created_at
		FROM daily_plans WHERE user_id = ? AND date = ?
	`, userID, date).Scan(&p.ID, &p.UserID, &p.Date, &ids, &p.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get plan: %w", err)
	}
	if err := json.Unmarshal([]byte(ids), &p.HabitIDs); err != nil {
		return nil, fmt.Errorf("decode habit ids: %w", err)
	}
	return &p, nil
}
