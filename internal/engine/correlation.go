package engine

import (
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/mlowery/ritual/internal/store"
)

// Tuning for correlation discovery and the adaptive recomputation trigger.
// The thresholds are behavioral constants, not principled statistics; change
// them and the insights users see change with them.
const (
	defaultMinSampleSize = 14
	defaultDaysBack      = 60

	correlationNoiseFloor = 0.15
	confidenceSaturation  = 30 // valid days for full confidence
	maxResults            = 10

	cacheTTL = 7 * 24 * time.Hour

	// Trigger gates: all must hold before a recompute fires.
	triggerMinNewEvents      = 6
	triggerMinLifetimeEvents = 14
	triggerMinInterval       = 3 * 24 * time.Hour

	// Relaxed parameters used by triggered recomputation.
	triggerMinSampleSize = 10
	triggerDaysBack      = 45
)

// CalcOpts controls a correlation calculation.
type CalcOpts struct {
	MinSampleSize int       // minimum valid days per pair (default 14)
	DaysBack      int       // trailing window (default 60)
	Now           time.Time // injection point for tests (default time.Now)
}

func (o CalcOpts) withDefaults() CalcOpts {
	if o.MinSampleSize <= 0 {
		o.MinSampleSize = defaultMinSampleSize
	}
	if o.DaysBack <= 0 {
		o.DaysBack = defaultDaysBack
	}
	if o.Now.IsZero() {
		o.Now = time.Now().UTC()
	}
	return o
}

// Calculate discovers pairwise habit correlations for a user over a trailing
// window. Correlation is the difference of conditional completion
// probabilities P(B|A) - P(B|not A), not a Pearson coefficient. A day is
// valid for a pair if at least one of the two habits has a recorded event
// that day. Returns up to 10 results sorted by |correlation| descending.
func Calculate(db *store.DB, userID string, opts CalcOpts) ([]store.CorrelationResult, error) {
	opts = opts.withDefaults()

	habits, err := db.ListActiveHabits(userID)
	if err != nil {
		return nil, fmt.Errorf("calculate: %w", err)
	}
	if len(habits) < 2 {
		return []store.CorrelationResult{}, nil
	}

	since := opts.Now.AddDate(0, 0, -opts.DaysBack).Format(dateLayout)
	events, err := db.EventsForUser(userID, since)
	if err != nil {
		return nil, fmt.Errorf("calculate events: %w", err)
	}

	active := make(map[string]bool, len(habits))
	for _, h := range habits {
		active[h.ID] = true
	}

	// perDate[date][habitID] = completed. Presence means an event was recorded.
	perDate := make(map[string]map[string]bool)
	for _, ev := range events {
		if !active[ev.HabitID] {
			continue
		}
		day := perDate[ev.Date]
		if day == nil {
			day = make(map[string]bool)
			perDate[ev.Date] = day
		}
		day[ev.HabitID] = ev.Status == store.StatusCompleted
	}

	var results []store.CorrelationResult
	for i := 0; i < len(habits); i++ {
		for j := i + 1; j < len(habits); j++ {
			r := correlatePair(perDate, habits[i], habits[j], opts.MinSampleSize)
			if r != nil {
				results = append(results, *r)
			}
		}
	}

	sort.SliceStable(results, func(a, b int) bool {
		return math.Abs(results[a].Correlation) > math.Abs(results[b].Correlation)
	})
	if len(results) > maxResults {
		results = results[:maxResults]
	}
	if results == nil {
		results = []store.CorrelationResult{}
	}
	return results, nil
}

// correlatePair computes the conditional-probability correlation for one pair,
// or nil if the pair has too little data to say anything.
func correlatePair(perDate map[string]map[string]bool, a, b store.Habit, minSample int) *store.CorrelationResult {
	var validDays, bothCompleted, aCompleted, bCompleted, notABCompleted, aNotCompleted int

	for _, day := range perDate {
		aDone, aHas := day[a.ID]
		bDone, bHas := day[b.ID]
		if !aHas && !bHas {
			continue
		}
		validDays++

		aOK := aHas && aDone
		bOK := bHas && bDone
		if aOK {
			aCompleted++
		} else {
			aNotCompleted++
		}
		if bOK {
			bCompleted++
		}
		if aOK && bOK {
			bothCompleted++
		}
		if !aOK && bOK {
			notABCompleted++
		}
	}

	if validDays < minSample {
		return nil
	}
	// Conditional probability is undefined if either habit was never completed.
	if aCompleted == 0 || bCompleted == 0 {
		return nil
	}

	pGivenA := float64(bothCompleted) / float64(aCompleted)
	pGivenNotA := 0.0
	if aNotCompleted > 0 {
		pGivenNotA = float64(notABCompleted) / float64(aNotCompleted)
	}
	correlation := pGivenA - pGivenNotA

	if math.Abs(correlation) < correlationNoiseFloor {
		return nil
	}

	confidence := float64(validDays) / confidenceSaturation
	if confidence > 1 {
		confidence = 1
	}

	return &store.CorrelationResult{
		HabitA:      a.Name,
		HabitB:      b.Name,
		Correlation: correlation,
		Confidence:  confidence,
		SampleSize:  validDays,
		Description: describeCorrelation(a.Name, b.Name, correlation),
	}
}

func describeCorrelation(a, b string, correlation float64) string {
	direction := "more"
	if correlation < 0 {
		direction = "less"
	}
	pct := int(math.Round(math.Abs(correlation) * 100))
	return fmt.Sprintf("When you complete %s, you're %d%% %s likely to complete %s", a, pct, direction, b)
}

// SaveInsights writes results into the user's cache with a 7-day validity window.
func SaveInsights(db *store.DB, userID string, results []store.CorrelationResult, now time.Time) error {
	return db.SaveCorrelationCache(&store.CorrelationCache{
		UserID:     userID,
		Results:    results,
		ComputedAt: now.UnixMilli(),
		ValidUntil: now.Add(cacheTTL).UnixMilli(),
	})
}

// FastInsights reads cached correlations only. A missing or expired cache
// yields an empty list — never a synchronous O(habits squared) recompute.
func FastInsights(db *store.DB, userID string, now time.Time) ([]store.CorrelationResult, error) {
	cache, err := db.GetCorrelationCache(userID)
	if err != nil {
		return nil, fmt.Errorf("fast insights: %w", err)
	}
	if cache == nil || now.UnixMilli() > cache.ValidUntil {
		return []store.CorrelationResult{}, nil
	}
	return cache.Results, nil
}

// TriggerUpdate records one new event in the user's tracker and recomputes the
// correlation cache when the debounce gates allow it: at least 6 events since
// the last update, at least 14 lifetime events, and at least 3 days since the
// last update. Returns whether a recompute fired.
//
// Callers must treat failures as best-effort: log and drop, never fail the
// event write that triggered this.
func TriggerUpdate(db *store.DB, userID string, now time.Time) (bool, error) {
	tracker, err := db.GetTracker(userID)
	if err != nil {
		return false, fmt.Errorf("trigger: %w", err)
	}
	if tracker == nil {
		tracker = &store.CorrelationTracker{UserID: userID}
	}
	tracker.TotalEvents++
	tracker.EventsSinceUpdate++

	fire := tracker.EventsSinceUpdate >= triggerMinNewEvents &&
		tracker.TotalEvents >= triggerMinLifetimeEvents &&
		now.UnixMilli()-tracker.LastUpdate >= triggerMinInterval.Milliseconds()

	if !fire {
		if err := db.SaveTracker(tracker); err != nil {
			return false, fmt.Errorf("trigger save tracker: %w", err)
		}
		return false, nil
	}

	results, err := Calculate(db, userID, CalcOpts{
		MinSampleSize: triggerMinSampleSize,
		DaysBack:      triggerDaysBack,
		Now:           now,
	})
	if err != nil {
		return false, fmt.Errorf("trigger recompute: %w", err)
	}
	if err := SaveInsights(db, userID, results, now); err != nil {
		return false, fmt.Errorf("trigger save insights: %w", err)
	}

	tracker.LastUpdate = now.UnixMilli()
	tracker.EventsSinceUpdate = 0
	if err := db.SaveTracker(tracker); err != nil {
		return false, fmt.Errorf("trigger save tracker: %w", err)
	}
	return true, nil
}
