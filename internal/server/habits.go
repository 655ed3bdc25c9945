package server

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/mlowery/ritual/internal/engine"
	"github.com/mlowery/ritual/internal/store"
)

func (s *Server) handleCreateHabit(w http.ResponseWriter, r *http.Request) {
	var habit store.Habit
	if err := json.NewDecoder(r.Body).Decode(&habit); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json")
		return
	}
	habit.UserID = userID(r)

	if err := s.db.CreateHabit(&habit); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	writeJSON(w, http.StatusCreated, habit)
}

func (s *Server) handleListHabits(w http.ResponseWriter, r *http.Request) {
	habits, err := s.db.ListActiveHabits(userID(r))
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if habits == nil {
		habits = []store.Habit{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"habits": habits})
}

func (s *Server) handleArchiveHabit(w http.ResponseWriter, r *http.Request) {
	err := s.db.ArchiveHabit(chi.URLParam(r, "habitID"), userID(r))
	switch {
	case errors.Is(err, store.ErrNotFound):
		writeError(w, http.StatusNotFound, "habit not found")
	case errors.Is(err, store.ErrNotOwner):
		writeError(w, http.StatusForbidden, "not your habit")
	case err != nil:
		writeError(w, http.StatusInternalServerError, err.Error())
	default:
		writeJSON(w, http.StatusOK, map[string]string{"status": "archived"})
	}
}

func (s *Server) handleLogEvent(w http.ResponseWriter, r *http.Request) {
	var ev store.HabitEvent
	if err := json.NewDecoder(r.Body).Decode(&ev); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json")
		return
	}
	ev.HabitID = chi.URLParam(r, "habitID")
	ev.UserID = userID(r)

	err := s.db.LogEvent(&ev)
	switch {
	case errors.Is(err, store.ErrNotFound):
		writeError(w, http.StatusNotFound, "habit not found")
		return
	case errors.Is(err, store.ErrNotOwner):
		writeError(w, http.StatusForbidden, "not your habit")
		return
	case errors.Is(err, store.ErrBadDate), errors.Is(err, store.ErrBadStatus), errors.Is(err, store.ErrValueRequired):
		writeError(w, http.StatusBadRequest, err.Error())
		return
	case err != nil:
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	// Best-effort: the correlation trigger must never fail or block the write.
	if _, err := engine.TriggerUpdate(s.db, ev.UserID, time.Now().UTC()); err != nil {
		log.Printf("correlation trigger failed for %s: %v", ev.UserID, err)
	}

	writeJSON(w, http.StatusCreated, ev)
}

func (s *Server) handleStreak(w http.ResponseWriter, r *http.Request) {
	habitID := chi.URLParam(r, "habitID")

	habit, err := s.db.GetHabit(habitID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if habit == nil {
		writeError(w, http.StatusNotFound, "habit not found")
		return
	}
	if habit.UserID != userID(r) {
		writeError(w, http.StatusForbidden, "not your habit")
		return
	}

	info, err := engine.Streak(s.db, habitID, localToday(r))
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, info)
}

func (s *Server) handleStreakSummary(w http.ResponseWriter, r *http.Request) {
	sum, err := engine.Summary(s.db, userID(r), localToday(r))
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, sum)
}

// localToday derives "today" from the optional tz_offset query parameter
// (minutes east of UTC), matching the assembler's date handling.
func localToday(r *http.Request) time.Time {
	now := time.Now().UTC()
	if off := r.URL.Query().Get("tz_offset"); off != "" {
		if minutes, err := strconv.Atoi(off); err == nil {
			now = now.Add(time.Duration(minutes) * time.Minute)
		}
	}
	return now
}
