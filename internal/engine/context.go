package engine

import (
	"fmt"
	"strings"
	"time"

	"github.com/mlowery/ritual/internal/store"
)

// ContextOpts controls context assembly for one request.
type ContextOpts struct {
	TZOffsetMinutes *int // caller's offset from UTC in minutes, east positive; nil = UTC
	WindowDays      int  // deep-dive trailing window (default 30)
	JournalLimit    int  // max journal matches (default 5)
}

const (
	defaultWindowDays   = 30
	defaultJournalLimit = 5
	maxInsightsInPrompt = 3
	maxJournalInPrompt  = 3
	journalExcerptLen   = 200
)

// HabitToday pairs a habit with its status for the current date.
type HabitToday struct {
	Habit  store.Habit       `json:"habit"`
	Status store.EventStatus `json:"status"`
	Value  *float64          `json:"value,omitempty"`
	Note   string            `json:"note,omitempty"`
}

// PlanSummary is today's daily-plan completion count.
type PlanSummary struct {
	Total     int `json:"total"`
	Completed int `json:"completed"`
}

// DeepDive is the detailed history for the most query-relevant habit.
type DeepDive struct {
	Habit          store.Habit        `json:"habit"`
	Events         []store.HabitEvent `json:"events"`
	Streak         *StreakInfo        `json:"streak"`
	CompletionRate float64            `json:"completion_rate"`
}

// QueryContext is the request-scoped snapshot handed to the assistant.
// Never persisted.
type QueryContext struct {
	Date           string                    `json:"date"`
	Habits         []HabitToday              `json:"habits"`
	Plan           *PlanSummary              `json:"plan,omitempty"`
	RelevantHabits []RelevantHabit           `json:"relevant_habits,omitempty"`
	DeepDive       *DeepDive                 `json:"deep_dive,omitempty"`
	Journal        []store.JournalEntry      `json:"journal,omitempty"`
	Insights       []store.CorrelationResult `json:"insights,omitempty"`
}

// Assembler builds bounded, relevance-ranked context snapshots.
type Assembler struct {
	DB       *store.DB
	Taxonomy Taxonomy
	Now      func() time.Time
}

// NewAssembler creates an Assembler with the default taxonomy.
func NewAssembler(db *store.DB) *Assembler {
	return &Assembler{
		DB:       db,
		Taxonomy: DefaultTaxonomy(),
		Now:      time.Now,
	}
}

// LocalDate derives the caller's calendar date from the optional timezone
// offset, falling back to UTC.
func (a *Assembler) LocalDate(opts ContextOpts) string {
	now := a.Now().UTC()
	if opts.TZOffsetMinutes != nil {
		now = now.Add(time.Duration(*opts.TZOffsetMinutes) * time.Minute)
	}
	return now.Format(dateLayout)
}

// BuildContext assembles the snapshot for a user. The basic context (date,
// active habits, today's statuses, plan completion) is always included;
// relevance ranking, the deep dive, journal matches, and cached correlation
// insights are added only when a query is supplied.
func (a *Assembler) BuildContext(userID, query string, opts ContextOpts) (*QueryContext, error) {
	if opts.WindowDays <= 0 {
		opts.WindowDays = defaultWindowDays
	}
	if opts.JournalLimit <= 0 {
		opts.JournalLimit = defaultJournalLimit
	}

	date := a.LocalDate(opts)
	qc := &QueryContext{Date: date}

	habits, err := a.DB.ListActiveHabits(userID)
	if err != nil {
		return nil, fmt.Errorf("build context: %w", err)
	}

	todays, err := a.DB.EventsOnDate(userID, date)
	if err != nil {
		return nil, fmt.Errorf("build context events: %w", err)
	}

	for _, h := range habits {
		ht := HabitToday{Habit: h, Status: store.StatusNotMarked}
		if ev, ok := todays[h.ID]; ok {
			ht.Status = ev.Status
			ht.Value = ev.Value
			ht.Note = ev.Note
		}
		qc.Habits = append(qc.Habits, ht)
	}

	plan, err := a.DB.GetPlan(userID, date)
	if err != nil {
		return nil, fmt.Errorf("build context plan: %w", err)
	}
	if plan != nil {
		ps := &PlanSummary{Total: len(plan.HabitIDs)}
		for _, id := range plan.HabitIDs {
			if ev, ok := todays[id]; ok && ev.Status == store.StatusCompleted {
				ps.Completed++
			}
		}
		qc.Plan = ps
	}

	if strings.TrimSpace(query) == "" {
		return qc, nil
	}

	qc.RelevantHabits = RankHabits(habits, query, a.Taxonomy)

	if len(qc.RelevantHabits) > 0 {
		dive, err := a.deepDive(qc.RelevantHabits[0].ID, habits, date, opts.WindowDays)
		if err != nil {
			return nil, err
		}
		qc.DeepDive = dive
	}

	entries, err := a.DB.SearchEntries(userID, query, opts.JournalLimit)
	if err != nil {
		return nil, fmt.Errorf("build context journal: %w", err)
	}
	qc.Journal = entries

	qc.Insights = a.insightsFor(userID, qc.RelevantHabits)

	return qc, nil
}

func (a *Assembler) deepDive(habitID string, habits []store.Habit, date string, windowDays int) (*DeepDive, error) {
	var habit *store.Habit
	for i := range habits {
		if habits[i].ID == habitID {
			habit = &habits[i]
			break
		}
	}
	if habit == nil {
		return nil, nil
	}

	today, err := time.Parse(dateLayout, date)
	if err != nil {
		return nil, fmt.Errorf("deep dive date: %w", err)
	}
	since := today.AddDate(0, 0, -windowDays).Format(dateLayout)

	events, err := a.DB.EventsForHabit(habitID, since)
	if err != nil {
		return nil, fmt.Errorf("deep dive events: %w", err)
	}

	completed := 0
	for _, ev := range events {
		if ev.Status == store.StatusCompleted {
			completed++
		}
	}
	rate := 0.0
	if len(events) > 0 {
		rate = float64(completed) / float64(len(events))
	}

	return &DeepDive{
		Habit:          *habit,
		Events:         events,
		Streak:         StreakFromEvents(events, today),
		CompletionRate: rate,
	}, nil
}

// insightsFor pulls cached correlations, preferring pairs that mention an
// already-relevant habit. Cache only — never a synchronous recompute; any
// failure here degrades to no insights.
func (a *Assembler) insightsFor(userID string, relevant []RelevantHabit) []store.CorrelationResult {
	cached, err := FastInsights(a.DB, userID, a.Now().UTC())
	if err != nil || len(cached) == 0 {
		return nil
	}

	picked := cached
	if len(relevant) > 0 {
		names := make(map[string]bool, len(relevant))
		for _, r := range relevant {
			names[strings.ToLower(r.Name)] = true
		}
		var filtered []store.CorrelationResult
		for _, c := range cached {
			if names[strings.ToLower(c.HabitA)] || names[strings.ToLower(c.HabitB)] {
				filtered = append(filtered, c)
			}
		}
		if len(filtered) > 0 {
			picked = filtered
		}
	}

	if len(picked) > maxInsightsInPrompt {
		picked = picked[:maxInsightsInPrompt]
	}
	return picked
}

// RenderPrompt serializes a context snapshot into the bounded text block
// injected as the assistant's system-prompt prefix.
func RenderPrompt(qc *QueryContext) string {
	var b strings.Builder

	fmt.Fprintf(&b, "Today is %s.\n", qc.Date)

	if len(qc.Habits) > 0 {
		b.WriteString("\nHabits and today's status:\n")
		for _, ht := range qc.Habits {
			line := fmt.Sprintf("- %s: %s", ht.Habit.Name, ht.Status)
			if ht.Value != nil {
				line += fmt.Sprintf(" (%.1f %s)", *ht.Value, ht.Habit.Unit)
			}
			if ht.Note != "" {
				line += fmt.Sprintf(" — note: %s", ht.Note)
			}
			b.WriteString(line + "\n")
		}
	}

	if qc.Plan != nil {
		fmt.Fprintf(&b, "\nToday's plan: %d of %d done.\n", qc.Plan.Completed, qc.Plan.Total)
	}

	if qc.DeepDive != nil {
		d := qc.DeepDive
		fmt.Fprintf(&b, "\nFocus habit: %s\n", d.Habit.Name)
		fmt.Fprintf(&b, "- current streak: %d days (longest %d)\n", d.Streak.Current, d.Streak.Longest)
		fmt.Fprintf(&b, "- completion rate: %.0f%% over recent history\n", d.CompletionRate*100)
		if pattern := lastSevenDays(d, qc.Date); pattern != "" {
			fmt.Fprintf(&b, "- last 7 days: %s\n", pattern)
		}
	}

	journal := qc.Journal
	if len(journal) > maxJournalInPrompt {
		journal = journal[:maxJournalInPrompt]
	}
	if len(journal) > 0 {
		b.WriteString("\nJournal entries that may be related:\n")
		for _, e := range journal {
			fmt.Fprintf(&b, "- [%s] %s: %s\n", e.Date, e.Title, excerpt(e.Content, journalExcerptLen))
		}
	}

	if len(qc.Insights) > 0 {
		b.WriteString("\nPatterns from this user's data:\n")
		for _, c := range qc.Insights {
			fmt.Fprintf(&b, "- %s\n", c.Description)
		}
	}

	return b.String()
}

// lastSevenDays renders a compact completed/missed pattern ending today.
func lastSevenDays(d *DeepDive, date string) string {
	today, err := time.Parse(dateLayout, date)
	if err != nil {
		return ""
	}
	status := make(map[string]store.EventStatus, len(d.Events))
	for _, ev := range d.Events {
		status[ev.Date] = ev.Status
	}

	marks := make([]string, 0, 7)
	for i := 6; i >= 0; i-- {
		day := today.AddDate(0, 0, -i).Format(dateLayout)
		switch status[day] {
		case store.StatusCompleted:
			marks = append(marks, "✓")
		case store.StatusSkipped:
			marks = append(marks, "~")
		case store.StatusFailed:
			marks = append(marks, "✗")
		default:
			marks = append(marks, "·")
		}
	}
	return strings.Join(marks, " ")
}

func excerpt(s string, max int) string {
	s = strings.TrimSpace(s)
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	return string(runes[:max]) + "…"
}
