package store

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// JournalEntry is a dated free-text note.
type JournalEntry struct {
	ID        string `json:"id"`
	UserID    string `json:"user_id"`
	Title     string `json:"title"`
	Content   string `json:"content"`
	Date      string `json:"date"` // YYYY-MM-DD
	CreatedAt int64  `json:"created_at"`
}

// CreateEntry inserts a journal entry. Assigns an ID if empty.
func (db *DB) CreateEntry(e *JournalEntry) error {
	if e.UserID == "" {
		return fmt.Errorf("create entry: user_id required")
	}
	if !ValidDate(e.Date) {
		return ErrBadDate
	}
	if e.ID == "" {
		e.ID = uuid.NewString()
	}

	now := time.Now().UnixMilli()
	_, err := db.Exec(`
		INSERT INTO journal_entries (id, user_id, title, content, date, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`, e.ID, e.UserID, e.Title, e.Content, e.Date, now)
	if err != nil {
		return fmt.Errorf("create entry: %w", err)
	}
	e.CreatedAt = now
	return nil
}

// SearchEntries returns entries whose title or content contains the query,
// case-insensitively, most recent first, capped at limit.
func (db *DB) SearchEntries(userID, query string, limit int) ([]JournalEntry, error) {
	if limit <= 0 {
		limit = 5
	}
	pattern := "%" + strings.ToLower(query) + "%"

	rows, err := db.Query(`
		SELECT id, user_id, title, content, date, created_at
		FROM journal_entries
		WHERE user_id = ? AND (LOWER(title) LIKE ? OR LOWER(content) LIKE ?)
		ORDER BY date DESC, created_at DESC
		LIMIT ?
	`, userID, pattern, pattern, limit)
	if err != nil {
		return nil, fmt.Errorf("search entries: %w", err)
	}
	defer rows.Close()

	var entries []JournalEntry
	for rows.Next() {
		var e JournalEntry
		if err := rows.Scan(&e.ID, &e.UserID, &e.Title, &e.Content, &e.Date, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan entry: %w", err)
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}
