package server

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/mlowery/ritual/internal/engine"
)

const chatTimeout = 60 * time.Second

// handleChat assembles habit context for the query and asks the model
// collaborator. Always answers 200 with some text; model failures come back
// as the engine's fallback string, never as an error status.
func (s *Server) handleChat(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Query           string `json:"query"`
		TZOffsetMinutes *int   `json:"tz_offset_minutes"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json")
		return
	}
	if req.Query == "" {
		writeError(w, http.StatusBadRequest, "query required")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), chatTimeout)
	defer cancel()

	reply := s.assembler.Chat(ctx, s.llm, userID(r), req.Query, engine.ContextOpts{
		TZOffsetMinutes: req.TZOffsetMinutes,
		WindowDays:      s.chatWindowDays,
		JournalLimit:    s.chatJournalLimit,
	})

	writeJSON(w, http.StatusOK, map[string]string{"reply": reply})
}
