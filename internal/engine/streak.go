package engine

import (
	"fmt"
	"time"

	"github.com/mlowery/ritual/internal/store"
)

// StreakType classifies a habit's streak state.
type StreakType string

const (
	StreakNew     StreakType = "new"     // no events recorded yet
	StreakCurrent StreakType = "current" // an unbroken run ending today
	StreakBroken  StreakType = "broken"  // history exists but today's run is over
)

// StreakInfo is the result of a streak computation for one habit.
type StreakInfo struct {
	Current       int        `json:"current_streak"`
	Longest       int        `json:"longest_streak"`
	LastEventDate string     `json:"last_event_date,omitempty"`
	Type          StreakType `json:"streak_type"`
}

const dateLayout = "2006-01-02"

// Streak computes the current and longest streak for a habit as of today.
// Pure read; no side effects.
func Streak(db *store.DB, habitID string, today time.Time) (*StreakInfo, error) {
	events, err := db.EventsForHabit(habitID, "")
	if err != nil {
		return nil, fmt.Errorf("streak: %w", err)
	}
	return StreakFromEvents(events, today), nil
}

// StreakFromEvents computes streaks over an in-memory event slice.
// The current streak walks backward day by day from today: a day counts only
// if it has an event with status completed, and the first missing or
// non-completed day ends the walk. The longest streak is the maximum run of
// consecutive completed calendar dates anywhere in the history — one missed
// day breaks a run entirely.
func StreakFromEvents(events []store.HabitEvent, today time.Time) *StreakInfo {
	if len(events) == 0 {
		return &StreakInfo{Type: StreakNew}
	}

	completed := make(map[string]bool, len(events))
	lastDate := ""
	for _, ev := range events {
		if ev.Status == store.StatusCompleted {
			completed[ev.Date] = true
		}
		if ev.Date > lastDate {
			lastDate = ev.Date
		}
	}

	current := 0
	for day := today; completed[day.Format(dateLayout)]; day = day.AddDate(0, 0, -1) {
		current++
	}

	longest := longestRun(completed)

	info := &StreakInfo{
		Current:       current,
		Longest:       longest,
		LastEventDate: lastDate,
		Type:          StreakBroken,
	}
	if current > 0 {
		info.Type = StreakCurrent
	}
	return info
}

// longestRun finds the maximum run of consecutive calendar dates in the set.
func longestRun(completed map[string]bool) int {
	longest := 0
	for date := range completed {
		day, err := time.Parse(dateLayout, date)
		if err != nil {
			continue
		}
		// Only start counting at the beginning of a run.
		if completed[day.AddDate(0, 0, -1).Format(dateLayout)] {
			continue
		}
		run := 0
		for d := day; completed[d.Format(dateLayout)]; d = d.AddDate(0, 0, 1) {
			run++
		}
		if run > longest {
			longest = run
		}
	}
	return longest
}

// StreakSummary aggregates streak state across a user's active habits.
type StreakSummary struct {
	ActiveHabits    int     `json:"active_habits"`
	WithStreak      int     `json:"with_streak"`
	AvgStreak       float64 `json:"avg_streak"`
	CompletedEvents int     `json:"completed_events"`
	StreakBreaks    int     `json:"streak_breaks"`
}

// Summary computes the cross-habit streak summary for a user.
func Summary(db *store.DB, userID string, today time.Time) (*StreakSummary, error) {
	habits, err := db.ListActiveHabits(userID)
	if err != nil {
		return nil, fmt.Errorf("summary: %w", err)
	}

	sum := &StreakSummary{ActiveHabits: len(habits)}

	totalStreak := 0
	todayStr := today.Format(dateLayout)
	for _, h := range habits {
		events, err := db.EventsForHabit(h.ID, "")
		if err != nil {
			return nil, fmt.Errorf("summary events for %s: %w", h.ID, err)
		}
		info := StreakFromEvents(events, today)
		if info.Current > 0 {
			sum.WithStreak++
		}
		totalStreak += info.Current
		sum.StreakBreaks += countBreaks(events, todayStr)
	}
	if len(habits) > 0 {
		sum.AvgStreak = float64(totalStreak) / float64(len(habits))
	}

	completed, err := db.CountCompleted(userID)
	if err != nil {
		return nil, fmt.Errorf("summary completed count: %w", err)
	}
	sum.CompletedEvents = completed

	return sum, nil
}

// countBreaks counts transitions from a completed day to a non-completed day:
// each maximal run of consecutive completed dates that does not extend to
// today is one break.
func countBreaks(events []store.HabitEvent, today string) int {
	completed := make(map[string]bool, len(events))
	for _, ev := range events {
		if ev.Status == store.StatusCompleted {
			completed[ev.Date] = true
		}
	}

	breaks := 0
	for date := range completed {
		day, err := time.Parse(dateLayout, date)
		if err != nil {
			continue
		}
		// A run's end is a completed day with no completed day after it.
		if completed[day.AddDate(0, 0, 1).Format(dateLayout)] {
			continue
		}
		if date != today {
			breaks++
		}
	}
	return breaks
}
