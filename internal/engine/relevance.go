package engine

import (
	"sort"
	"strings"

	"github.com/mlowery/ritual/internal/store"
)

// Relevance scoring thresholds. Hand-tuned: a literal name match always
// outranks a category-keyword match.
const (
	scoreNameMatch    = 1.0
	scoreKeywordMatch = 0.7
	maxRelevantHabits = 3
)

// Taxonomy maps a semantic category to its ordered keyword list. It is
// injectable so deployments can extend or localize it without touching the
// ranking algorithm.
type Taxonomy map[string][]string

// DefaultTaxonomy returns the built-in category keyword lists.
func DefaultTaxonomy() Taxonomy {
	return Taxonomy{
		"sleep":        {"sleep", "bed", "bedtime", "nap", "rest", "tired", "wake"},
		"exercise":     {"exercise", "workout", "gym", "run", "running", "walk", "walking", "yoga", "cardio", "lift"},
		"diet":         {"diet", "eat", "eating", "food", "meal", "sugar", "protein", "water", "snack"},
		"screen-time":  {"screen", "phone", "scroll", "scrolling", "social media", "tv", "youtube"},
		"meditation":   {"meditation", "meditate", "mindfulness", "breathe", "breathing", "calm"},
		"journaling":   {"journal", "journaling", "write", "writing", "gratitude"},
		"substances":   {"alcohol", "drink", "drinking", "smoke", "smoking", "caffeine", "coffee", "vape"},
		"productivity": {"work", "focus", "study", "read", "reading", "pomodoro"},
		"social":       {"friend", "friends", "family", "call", "social", "connect"},
	}
}

// RelevantHabit is a ranked habit stripped to what the assistant needs.
// Scores are internal and never leak out.
type RelevantHabit struct {
	ID   string          `json:"id"`
	Name string          `json:"name"`
	Type store.HabitType `json:"type"`
}

// RankHabits scores habits against a free-text query in two passes.
// Pass 1: a habit whose name appears in the query (case-insensitive
// substring) scores 1.0. Pass 2: for habits not already matched, if the query
// contains a taxonomy keyword and the habit's name contains that keyword or
// its category token, the habit scores 0.7. Returns at most 3 habits, best
// first.
func RankHabits(habits []store.Habit, query string, tax Taxonomy) []RelevantHabit {
	q := strings.ToLower(query)
	if strings.TrimSpace(q) == "" {
		return nil
	}

	type scored struct {
		habit store.Habit
		score float64
		order int
	}
	var matches []scored
	matched := make(map[string]bool)

	for i, h := range habits {
		if strings.Contains(q, strings.ToLower(h.Name)) {
			matches = append(matches, scored{h, scoreNameMatch, i})
			matched[h.ID] = true
		}
	}

	for i, h := range habits {
		if matched[h.ID] {
			continue
		}
		name := strings.ToLower(h.Name)
		for category, keywords := range tax {
			hit := false
			for _, kw := range keywords {
				if strings.Contains(q, kw) && (strings.Contains(name, kw) || strings.Contains(name, category)) {
					hit = true
					break
				}
			}
			if hit {
				matches = append(matches, scored{h, scoreKeywordMatch, i})
				matched[h.ID] = true
				break
			}
		}
	}

	sort.SliceStable(matches, func(a, b int) bool {
		if matches[a].score != matches[b].score {
			return matches[a].score > matches[b].score
		}
		return matches[a].order < matches[b].order
	})
	if len(matches) > maxRelevantHabits {
		matches = matches[:maxRelevantHabits]
	}

	out := make([]RelevantHabit, len(matches))
	for i, m := range matches {
		out[i] = RelevantHabit{ID: m.habit.ID, Name: m.habit.Name, Type: m.habit.Type}
	}
	return out
}
