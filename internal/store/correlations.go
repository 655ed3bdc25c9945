package store

import (
	"database/sql"
	"encoding/json"
	"fmt"
)

// CorrelationResult is one discovered pairwise relationship between habits.
// Derived data: regenerated wholesale on recomputation, never edited in place.
type CorrelationResult struct {
	HabitA      string  `json:"habit_a"`
	HabitB      string  `json:"habit_b"`
	Correlation float64 `json:"correlation"` // P(B|A) - P(B|not A), in [-1, 1]
	Confidence  float64 `json:"confidence"`  // in [0, 1]
	SampleSize  int     `json:"sample_size"` // valid days used
	Description string  `json:"description"`
}

// CorrelationCache is a user's cached correlation results. One row per user,
// overwritten wholesale on recomputation; concurrent writers are last-wins
// since the contents are fully recomputable.
type CorrelationCache struct {
	UserID     string
	Results    []CorrelationResult
	ComputedAt int64
	ValidUntil int64
}

// CorrelationTracker gates recomputation. One row per user, created lazily
// on the first event.
type CorrelationTracker struct {
	UserID            string
	LastUpdate        int64 // 0 until the first recomputation
	TotalEvents       int
	EventsSinceUpdate int
}

// SaveCorrelationCache overwrites the user's cache row.
func (db *DB) SaveCorrelationCache(c *CorrelationCache) error {
	results := c.Results
	if results == nil {
		results = []CorrelationResult{}
	}
	data, err := json.Marshal(results)
	if err != nil {
		return fmt.Errorf("marshal results: %w", err)
	}

	_, err = db.Exec(`
		INSERT INTO correlation_cache (user_id, results, computed_at, valid_until)
		VALUES (?, ?, ?, ?)
		ON CONFLICT (user_id) DO UPDATE SET
			results = excluded.results,
			computed_at = excluded.computed_at,
			valid_until = excluded.valid_until
	`, c.UserID, string(data), c.ComputedAt, c.ValidUntil)
	if err != nil {
		return fmt.Errorf("save correlation cache: %w", err)
	}
	return nil
}

// GetCorrelationCache returns the user's cache row, or nil if none exists.
// Expiry is the caller's concern; reads never mutate the row.
func (db *DB) GetCorrelationCache(userID string) (*CorrelationCache, error) {
	var c CorrelationCache
	var data string
	err := db.QueryRow(`
		SELECT user_id, results, computed_at, valid_until
		FROM correlation_cache WHERE user_id = ?
	`, userID).Scan(&c.UserID, &data, &c.ComputedAt, &c.ValidUntil)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get correlation cache: %w", err)
	}
	if err := json.Unmarshal([]byte(data), &c.Results); err != nil {
		return nil, fmt.Errorf("decode results: %w", err)
	}
	return &c, nil
}

// GetTracker returns the user's trigger tracker, or nil if none exists.
func (db *DB) GetTracker(userID string) (*CorrelationTracker, error) {
	var t CorrelationTracker
	err := db.QueryRow(`
		SELECT user_id, last_update, total_events, events_since_update
		FROM correlation_trackers WHERE user_id = ?
	`, userID).Scan(&t.UserID, &t.LastUpdate, &t.TotalEvents, &t.EventsSinceUpdate)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get tracker: %w", err)
	}
	return &t, nil
}

// SaveTracker upserts the user's trigger tracker.
func (db *DB) SaveTracker(t *CorrelationTracker) error {
	_, err := db.Exec(`
		INSERT INTO correlation_trackers (user_id, last_update, total_events, events_since_update)
		VALUES (?, ?, ?, ?)
		ON CONFLICT (user_id) DO UPDATE SET
			last_update = excluded.last_update,
			total_events = excluded.total_events,
			events_since_update = excluded.events_since_update
	`, t.UserID, t.LastUpdate, t.TotalEvents, t.EventsSinceUpdate)
	if err != nil {
		return fmt.Errorf("save tracker: %w", err)
	}
	return nil
}
