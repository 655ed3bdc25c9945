package server

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/mlowery/ritual/internal/engine"
	"github.com/mlowery/ritual/internal/llm"
	"github.com/mlowery/ritual/internal/store"
)

// Server is the ritual HTTP API server.
type Server struct {
	db        *store.DB
	assembler *engine.Assembler
	llm       llm.Client
	router    chi.Router
	version   string
	started   time.Time

	chatWindowDays   int
	chatJournalLimit int
}

// New creates a new Server. The LLM client may be nil; chat then degrades to
// its fallback response.
func New(db *store.DB, client llm.Client, version string) *Server {
	s := &Server{
		db:        db,
		assembler: engine.NewAssembler(db),
		llm:       client,
		version:   version,
		started:   time.Now(),
	}
	s.routes()
	return s
}

// SetChatConfig overrides the assembler's deep-dive window and journal cap.
// Zero values keep the engine defaults.
func (s *Server) SetChatConfig(windowDays, journalLimit int) {
	s.chatWindowDays = windowDays
	s.chatJournalLimit = journalLimit
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

func (s *Server) routes() {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(middleware.RealIP)

	r.Route("/api", func(r chi.Router) {
		r.Get("/health", s.handleHealth)

		r.Group(func(r chi.Router) {
			r.Use(requireUser)

			r.Post("/habits", s.handleCreateHabit)
			r.Get("/habits", s.handleListHabits)
			r.Post("/habits/{habitID}/archive", s.handleArchiveHabit)
			r.Post("/habits/{habitID}/events", s.handleLogEvent)
			r.Get("/habits/{habitID}/streak", s.handleStreak)
			r.Get("/streaks", s.handleStreakSummary)

			r.Get("/correlations", s.handleCorrelations)
			r.Post("/correlations/refresh", s.handleRefreshCorrelations)

			r.Post("/journal", s.handleCreateEntry)
			r.Get("/journal", s.handleSearchJournal)

			r.Put("/plans/{date}", s.handleSavePlan)
			r.Get("/plans/{date}", s.handleGetPlan)

			r.Post("/chat", s.handleChat)
		})
	})

	s.router = r
}

type ctxKey int

const userKey ctxKey = 0

// requireUser extracts the opaque user id supplied by the identity layer.
// The core never authenticates; it only scopes data to the id it is handed.
func requireUser(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		userID := r.Header.Get("X-User-ID")
		if userID == "" {
			writeError(w, http.StatusUnauthorized, "X-User-ID header required")
			return
		}
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), userKey, userID)))
	})
}

func userID(r *http.Request) string {
	id, _ := r.Context().Value(userKey).(string)
	return id
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	dbOK := true
	if err := s.db.Ping(); err != nil {
		dbOK = false
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"status":  "ok",
		"version": s.version,
		"uptime":  time.Since(s.started).Seconds(),
		"db":      dbOK,
		"db_path": s.db.Path,
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
