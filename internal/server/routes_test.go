package server

import (
	"net/http"
	"testing"

	"github.com/mlowery/ritual/internal/llm"
	"github.com/mlowery/ritual/internal/store"
)

func createHabit(t *testing.T, s *Server, name string) store.Habit {
	t.Helper()
	var habit store.Habit
	w := do(t, s, "POST", "/api/habits", map[string]any{"name": name, "type": "simple"}, &habit)
	if w.Code != http.StatusCreated {
		t.Fatalf("create habit: status = %d: %s", w.Code, w.Body.String())
	}
	return habit
}

func TestCreateAndListHabits(t *testing.T) {
	s, _ := testServer(t, nil)

	habit := createHabit(t, s, "Meditation")
	if habit.ID == "" || habit.UserID != "u1" {
		t.Errorf("got %+v", habit)
	}

	var resp struct {
		Habits []store.Habit `json:"habits"`
	}
	w := do(t, s, "GET", "/api/habits", nil, &resp)
	if w.Code != http.StatusOK {
		t.Fatalf("list: status = %d", w.Code)
	}
	if len(resp.Habits) != 1 || resp.Habits[0].Name != "Meditation" {
		t.Errorf("got %v", resp.Habits)
	}
}

func TestCreateHabitBadType(t *testing.T) {
	s, _ := testServer(t, nil)

	w := do(t, s, "POST", "/api/habits", map[string]any{"name": "X", "type": "bogus"}, nil)
	if w.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", w.Code)
	}
}

func TestArchiveHabit(t *testing.T) {
	s, _ := testServer(t, nil)
	habit := createHabit(t, s, "Running")

	w := do(t, s, "POST", "/api/habits/"+habit.ID+"/archive", nil, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("archive: status = %d", w.Code)
	}

	w = do(t, s, "POST", "/api/habits/missing/archive", nil, nil)
	if w.Code != http.StatusNotFound {
		t.Errorf("archive missing: status = %d, want 404", w.Code)
	}
}

func TestLogEvent(t *testing.T) {
	s, _ := testServer(t, nil)
	habit := createHabit(t, s, "Meditation")

	var ev store.HabitEvent
	w := do(t, s, "POST", "/api/habits/"+habit.ID+"/events",
		map[string]any{"date": "2026-08-31", "status": "completed"}, &ev)
	if w.Code != http.StatusCreated {
		t.Fatalf("status = %d: %s", w.Code, w.Body.String())
	}
	if ev.ID == "" || ev.Status != store.StatusCompleted {
		t.Errorf("got %+v", ev)
	}

	w = do(t, s, "POST", "/api/habits/"+habit.ID+"/events",
		map[string]any{"date": "not-a-date", "status": "completed"}, nil)
	if w.Code != http.StatusBadRequest {
		t.Errorf("bad date: status = %d, want 400", w.Code)
	}

	w = do(t, s, "POST", "/api/habits/missing/events",
		map[string]any{"date": "2026-08-31", "status": "completed"}, nil)
	if w.Code != http.StatusNotFound {
		t.Errorf("missing habit: status = %d, want 404", w.Code)
	}
}

func TestLogEventValueRequired(t *testing.T) {
	s, _ := testServer(t, nil)

	var habit store.Habit
	w := do(t, s, "POST", "/api/habits",
		map[string]any{"name": "Water", "type": "quantity", "goal_value": 2.0, "unit": "liters"}, &habit)
	if w.Code != http.StatusCreated {
		t.Fatalf("create: status = %d: %s", w.Code, w.Body.String())
	}

	w = do(t, s, "POST", "/api/habits/"+habit.ID+"/events",
		map[string]any{"date": "2026-08-31", "status": "completed"}, nil)
	if w.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400 for completed quantity without value", w.Code)
	}

	w = do(t, s, "POST", "/api/habits/"+habit.ID+"/events",
		map[string]any{"date": "2026-08-31", "status": "completed", "value": 2.5}, nil)
	if w.Code != http.StatusCreated {
		t.Errorf("status = %d, want 201 with value", w.Code)
	}
}

func TestLogEventSurvivesTriggerFailure(t *testing.T) {
	s, db := testServer(t, nil)
	habit := createHabit(t, s, "Meditation")

	// Break the correlation trigger's storage. The event write is the primary
	// operation and must not care.
	if _, err := db.Exec("DROP TABLE correlation_trackers"); err != nil {
		t.Fatalf("drop table: %v", err)
	}

	var ev store.HabitEvent
	w := do(t, s, "POST", "/api/habits/"+habit.ID+"/events",
		map[string]any{"date": "2026-08-31", "status": "completed"}, &ev)
	if w.Code != http.StatusCreated {
		t.Fatalf("status = %d, want 201 despite trigger failure: %s", w.Code, w.Body.String())
	}

	got, err := db.GetEvent(habit.ID, "2026-08-31")
	if err != nil {
		t.Fatalf("GetEvent: %v", err)
	}
	if got == nil || got.Status != store.StatusCompleted {
		t.Errorf("event not persisted: %+v", got)
	}
}

func TestStreakEndpoint(t *testing.T) {
	s, _ := testServer(t, nil)
	habit := createHabit(t, s, "Meditation")

	var info struct {
		Current int    `json:"current_streak"`
		Type    string `json:"streak_type"`
	}
	w := do(t, s, "GET", "/api/habits/"+habit.ID+"/streak", nil, &info)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	if info.Type != "new" {
		t.Errorf("streak_type = %s, want new", info.Type)
	}

	w = do(t, s, "GET", "/api/habits/missing/streak", nil, nil)
	if w.Code != http.StatusNotFound {
		t.Errorf("missing: status = %d, want 404", w.Code)
	}
}

func TestStreakSummaryEndpoint(t *testing.T) {
	s, _ := testServer(t, nil)
	createHabit(t, s, "Meditation")

	var sum struct {
		ActiveHabits int `json:"active_habits"`
	}
	w := do(t, s, "GET", "/api/streaks", nil, &sum)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	if sum.ActiveHabits != 1 {
		t.Errorf("active_habits = %d, want 1", sum.ActiveHabits)
	}
}

func TestCorrelationsEmpty(t *testing.T) {
	s, _ := testServer(t, nil)

	var resp struct {
		Count        int                       `json:"count"`
		Correlations []store.CorrelationResult `json:"correlations"`
	}
	w := do(t, s, "GET", "/api/correlations", nil, &resp)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	if resp.Count != 0 || resp.Correlations == nil {
		t.Errorf("got %+v, want empty non-nil list", resp)
	}
}

func TestRefreshCorrelationsAccepted(t *testing.T) {
	s, _ := testServer(t, nil)

	w := do(t, s, "POST", "/api/correlations/refresh", nil, nil)
	if w.Code != http.StatusAccepted {
		t.Errorf("status = %d, want 202", w.Code)
	}
}

func TestJournalCreateAndSearch(t *testing.T) {
	s, _ := testServer(t, nil)

	var entry store.JournalEntry
	w := do(t, s, "POST", "/api/journal",
		map[string]any{"title": "Sleep notes", "content": "slept better after meditating", "date": "2026-08-30"}, &entry)
	if w.Code != http.StatusCreated {
		t.Fatalf("create: status = %d: %s", w.Code, w.Body.String())
	}

	var resp struct {
		Count   int                  `json:"count"`
		Entries []store.JournalEntry `json:"entries"`
	}
	w = do(t, s, "GET", "/api/journal?q=sleep", nil, &resp)
	if w.Code != http.StatusOK {
		t.Fatalf("search: status = %d", w.Code)
	}
	if resp.Count != 1 || resp.Entries[0].Title != "Sleep notes" {
		t.Errorf("got %+v", resp)
	}

	w = do(t, s, "GET", "/api/journal", nil, nil)
	if w.Code != http.StatusBadRequest {
		t.Errorf("missing q: status = %d, want 400", w.Code)
	}
}

func TestPlanRoutes(t *testing.T) {
	s, _ := testServer(t, nil)
	habit := createHabit(t, s, "Meditation")

	var plan store.DailyPlan
	w := do(t, s, "PUT", "/api/plans/2026-08-31",
		map[string]any{"habit_ids": []string{habit.ID}}, &plan)
	if w.Code != http.StatusOK {
		t.Fatalf("save: status = %d: %s", w.Code, w.Body.String())
	}
	if plan.Date != "2026-08-31" || len(plan.HabitIDs) != 1 {
		t.Errorf("got %+v", plan)
	}

	var got store.DailyPlan
	w = do(t, s, "GET", "/api/plans/2026-08-31", nil, &got)
	if w.Code != http.StatusOK {
		t.Fatalf("get: status = %d", w.Code)
	}
	if got.HabitIDs[0] != habit.ID {
		t.Errorf("got %+v", got)
	}

	w = do(t, s, "GET", "/api/plans/2026-01-01", nil, nil)
	if w.Code != http.StatusNotFound {
		t.Errorf("missing plan: status = %d, want 404", w.Code)
	}

	w = do(t, s, "PUT", "/api/plans/bad-date", map[string]any{"habit_ids": []string{}}, nil)
	if w.Code != http.StatusBadRequest {
		t.Errorf("bad date: status = %d, want 400", w.Code)
	}
}

func TestChatWithoutModel(t *testing.T) {
	s, _ := testServer(t, nil)

	var resp struct {
		Reply string `json:"reply"`
	}
	w := do(t, s, "POST", "/api/chat", map[string]any{"query": "how am I doing?"}, &resp)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200 even without a model", w.Code)
	}
	if resp.Reply == "" {
		t.Error("expected a fallback reply")
	}
}

func TestChatWithMock(t *testing.T) {
	mock := &llm.MockClient{Response: &llm.Response{Content: "Keep it up!"}}
	s, _ := testServer(t, mock)
	createHabit(t, s, "Meditation")

	var resp struct {
		Reply string `json:"reply"`
	}
	w := do(t, s, "POST", "/api/chat", map[string]any{"query": "how is my meditation going?"}, &resp)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	if resp.Reply != "Keep it up!" {
		t.Errorf("reply = %q", resp.Reply)
	}
	if len(mock.Systems) != 1 {
		t.Fatalf("model called %d times, want 1", len(mock.Systems))
	}

	w = do(t, s, "POST", "/api/chat", map[string]any{}, nil)
	if w.Code != http.StatusBadRequest {
		t.Errorf("empty query: status = %d, want 400", w.Code)
	}
}
