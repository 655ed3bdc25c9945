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

func (s *Server) handleCorrelations(w http.ResponseWriter, r *http.Request) {
	results, err := engine.FastInsights(s.db, userID(r), time.Now().UTC())
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"count":        len(results),
		"correlations": results,
	})
}

// handleRefreshCorrelations forces a full recomputation in the background.
// Returns 202 immediately; the cache is overwritten when the work finishes.
func (s *Server) handleRefreshCorrelations(w http.ResponseWriter, r *http.Request) {
	user := userID(r)
	go func() {
		now := time.Now().UTC()
		results, err := engine.Calculate(s.db, user, engine.CalcOpts{Now: now})
		if err != nil {
			log.Printf("correlation refresh failed for %s: %v", user, err)
			return
		}
		if err := engine.SaveInsights(s.db, user, results, now); err != nil {
			log.Printf("correlation refresh save failed for %s: %v", user, err)
		}
	}()

	writeJSON(w, http.StatusAccepted, map[string]string{"status": "recomputing"})
}

func (s *Server) handleCreateEntry(w http.ResponseWriter, r *http.Request) {
	var entry store.JournalEntry
	if err := json.NewDecoder(r.Body).Decode(&entry); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json")
		return
	}
	entry.UserID = userID(r)

	err := s.db.CreateEntry(&entry)
	switch {
	case errors.Is(err, store.ErrBadDate):
		writeError(w, http.StatusBadRequest, err.Error())
	case err != nil:
		writeError(w, http.StatusInternalServerError, err.Error())
	default:
		writeJSON(w, http.StatusCreated, entry)
	}
}

func (s *Server) handleSearchJournal(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query().Get("q")
	if query == "" {
		writeError(w, http.StatusBadRequest, "q parameter required")
		return
	}

	limit := 5
	if l := r.URL.Query().Get("limit"); l != "" {
		if n, err := strconv.Atoi(l); err == nil && n > 0 {
			limit = n
		}
	}

	entries, err := s.db.SearchEntries(userID(r), query, limit)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if entries == nil {
		entries = []store.JournalEntry{}
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"query":   query,
		"count":   len(entries),
		"entries": entries,
	})
}

func (s *Server) handleSavePlan(w http.ResponseWriter, r *http.Request) {
	var req struct {
		HabitIDs []string `json:"habit_ids"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json")
		return
	}

	plan := &store.DailyPlan{
		UserID:   userID(r),
		Date:     chi.URLParam(r, "date"),
		HabitIDs: req.HabitIDs,
	}
	err := s.db.SavePlan(plan)
	switch {
	case errors.Is(err, store.ErrBadDate):
		writeError(w, http.StatusBadRequest, err.Error())
	case err != nil:
		writeError(w, http.StatusInternalServerError, err.Error())
	default:
		writeJSON(w, http.StatusOK, plan)
	}
}

func (s *Server) handleGetPlan(w http.ResponseWriter, r *http.Request) {
	plan, err := s.db.GetPlan(userID(r), chi.URLParam(r, "date"))
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if plan == nil {
		writeError(w, http.StatusNotFound, "no plan for that date")
		return
	}
	writeJSON(w, http.StatusOK, plan)
}
