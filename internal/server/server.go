package server

import (
	"log/slog"
	"net/http"
	"sync"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/claude/repflow/internal/session"
	"github.com/claude/repflow/internal/storage"
)

// Server holds dependencies for HTTP handlers and the live session table.
type Server struct {
	db        *storage.DB
	deps      session.Deps
	engineCfg session.RunnerConfig
	log       *slog.Logger
	apiKey    string
	router    chi.Router

	// Fallback warmup/stretch durations for plans that leave them unset.
	defaultWarmupSec  int
	defaultStretchSec int

	mu      sync.Mutex
	runners map[uuid.UUID]*session.Runner
}

// SetPlanDefaults sets the warmup and stretch durations used when a plan
// does not specify its own.
func (s *Server) SetPlanDefaults(warmupSec, stretchSec int) {
	s.defaultWarmupSec = warmupSec
	s.defaultStretchSec = stretchSec
}

// New creates a new Server with all routes configured. deps are handed to
// every session runner the server starts.
func New(db *storage.DB, deps session.Deps, engineCfg session.RunnerConfig, apiKey string, log *slog.Logger) *Server {
	s := &Server{
		db:        db,
		deps:      deps,
		engineCfg: engineCfg,
		log:       log,
		apiKey:    apiKey,
		router:    chi.NewRouter(),
		runners:   make(map[uuid.UUID]*session.Runner),
	}
	s.routes()
	return s
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

func (s *Server) routes() {
	s.router.Use(RequestLogging(s.log))
	s.router.Use(CORS)

	// Session control endpoints (API key required)
	s.router.Route("/api/v1/sessions", func(r chi.Router) {
		r.Use(APIKeyAuth(s.apiKey))
		r.Post("/", s.handleCreateSession)
		r.Get("/", s.handleListSessions)
		r.Route("/{id}", func(r chi.Router) {
			r.Get("/", s.handleGetSession)
			r.Delete("/", s.handleDropSession)
			r.Get("/summary", s.handleSessionSummary)
			r.Post("/sets", s.handleCompleteSet)
			r.Patch("/sets", s.handleEditSet)
			r.Delete("/sets", s.handleDeleteSet)
			r.Post("/skip-rest", s.handleSkipRest)
			r.Post("/skip-transition", s.handleSkipTransition)
			r.Post("/finish-warmup", s.handleFinishWarmup)
			r.Post("/finish-stretch", s.handleFinishStretch)
			r.Post("/decline-challenge", s.handleDeclineChallenge)
			r.Post("/pause", s.handlePause)
			r.Post("/resume", s.handleResume)
			r.Post("/jump", s.handleJump)
			r.Post("/skip-exercise", s.handleSkipExercise)
			r.Post("/swap-exercise", s.handleSwapExercise)
			r.Post("/insert-exercise", s.handleInsertExercise)
			r.Post("/move-exercise", s.handleMoveExercise)
			r.Post("/drink", s.handleDrink)
			r.Post("/quit", s.handleQuit)
		})
	})

	// History API endpoints (no auth — tsnet handles access)
	s.router.Get("/api/v1/history", s.handleQueryHistory)
	s.router.Get("/api/v1/prs", s.handlePersonalRecords)
	s.router.Get("/api/v1/logs", s.handleQueryLogs)
	s.router.Get("/api/v1/logs/{id}", s.handleGetLog)
	s.router.Get("/api/v1/stats/rest", s.handleRestStats)
	s.router.Get("/api/v1/stats/volume", s.handleVolumeSummary)
}

// runner looks up a live session by ID.
func (s *Server) runner(id uuid.UUID) (*session.Runner, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.runners[id]
	return r, ok
}

func (s *Server) addRunner(r *session.Runner) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.runners[r.SessionID()] = r
}

func (s *Server) removeRunner(id uuid.UUID) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.runners[id]; !ok {
		return false
	}
	delete(s.runners, id)
	return true
}
