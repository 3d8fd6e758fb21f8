package server

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/lazypower/rooted/internal/engine"
	"github.com/lazypower/rooted/internal/store"
)

// Server is the rooted HTTP API server.
type Server struct {
	db          *store.DB
	engine      *engine.Engine
	log         *zap.Logger
	router      chi.Router
	version     string
	defaultUser string
	started     time.Time
}

// Options configures optional server behaviour.
type Options struct {
	DefaultUser string // user for requests without X-User-ID
	Logger      *zap.Logger
}

// New creates a new Server. eng may be nil, in which case memory routes
// answer 503.
func New(db *store.DB, eng *engine.Engine, version string, opts Options) *Server {
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	if opts.DefaultUser == "" {
		opts.DefaultUser = "local"
	}
	s := &Server{
		db:          db,
		engine:      eng,
		log:         opts.Logger.Named("server"),
		version:     version,
		defaultUser: opts.DefaultUser,
		started:     time.Now(),
	}
	s.routes()
	return s
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

func (s *Server) routes() {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(s.requestLogger)
	r.Use(middleware.Recoverer)

	r.Route("/api", func(r chi.Router) {
		r.Get("/health", s.handleHealth)

		r.Group(func(r chi.Router) {
			r.Use(s.withUser)
			r.Use(s.requireEngine)

			r.Post("/chat", s.handleChat)
			r.Get("/memory", s.handleMemoryPreview)
			r.Get("/memories", s.handleListMemories)
			r.Post("/memories", s.handleProcessCandidates)
			r.Delete("/memories/{id}", s.handleDeleteMemory)
			r.Get("/tree", s.handleTree)
			r.Get("/profile", s.handleProfile)
			r.Post("/decay", s.handleDecay)
			r.Get("/history", s.handleHistory)
		})
	})

	s.router = r
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	dbOK := true
	if err := s.db.Ping(); err != nil {
		dbOK = false
	}
	schema, _ := s.db.SchemaVersion()

	writeJSON(w, http.StatusOK, map[string]any{
		"status":  "ok",
		"version": s.version,
		"uptime":  time.Since(s.started).Seconds(),
		"db":      dbOK,
		"db_path": s.db.Path,
		"schema":  schema,
		"engine":  s.engine != nil,
	})
}
