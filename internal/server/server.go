// Package server exposes the daily session store, the completion merger and
// the point ledger over HTTP.
package server

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/sadopc/focusd/internal/points"
	"github.com/sadopc/focusd/internal/session"
	"github.com/sadopc/focusd/internal/store"
)

// Tasks is the minimal task collaborator the API needs.
type Tasks interface {
	CreateTask(ctx context.Context, userID, title string) (*store.Task, error)
	GetTask(ctx context.Context, userID string, id int64) (*store.Task, error)
	ListTasks(ctx context.Context, userID string) ([]store.Task, error)
	SetTaskCompleted(ctx context.Context, userID string, id int64, completed bool) (*store.Task, error)
}

type Pinger interface {
	Ping(ctx context.Context) error
}

type Config struct {
	Sessions *session.Service
	Points   *points.Engine
	Tasks    Tasks
	DB       Pinger
	// DevUser is used when a request carries no identity header. Empty
	// rejects such requests with 401.
	DevUser string
	Logger  *slog.Logger
}

type Server struct {
	sessions *session.Service
	points   *points.Engine
	tasks    Tasks
	db       Pinger
	devUser  string
	log      *slog.Logger
}

func New(cfg Config) *Server {
	s := &Server{
		sessions: cfg.Sessions,
		points:   cfg.Points,
		tasks:    cfg.Tasks,
		db:       cfg.DB,
		devUser:  cfg.DevUser,
		log:      cfg.Logger,
	}
	if s.log == nil {
		s.log = slog.Default()
	}
	return s
}

// Handler builds the router.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	r.Get("/healthz", s.health())

	r.Group(func(r chi.Router) {
		r.Use(s.extractUser)

		r.Route("/session", func(r chi.Router) {
			r.Post("/active", s.reportActive())
			r.Post("/complete", s.completeSession())
			r.Get("/today", s.today())
			r.Delete("/today", s.resetToday())
			r.Get("/month/{year}/{month}", s.month())
			r.Get("/all", s.allDays())
		})

		r.Route("/tasks", func(r chi.Router) {
			r.Get("/", s.listTasks())
			r.Post("/", s.createTask())
			r.Put("/{id}", s.toggleTask())
		})

		r.Route("/points", func(r chi.Router) {
			r.Get("/me", s.balance())
			r.Get("/history", s.history())
			r.Get("/streak", s.streak())
		})
	})
	return r
}

// ListenAndServe serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	errc := make(chan error, 1)
	go func() {
		s.log.Info("listening", "addr", addr)
		errc <- srv.ListenAndServe()
	}()

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	s.log.Info("shutting down")
	return srv.Shutdown(shutdownCtx)
}

func (s *Server) health() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if s.db != nil {
			if err := s.db.Ping(r.Context()); err != nil {
				s.log.Warn("health check failed", "err", err)
				respondJSON(w, map[string]string{"status": "unavailable"}, http.StatusServiceUnavailable)
				return
			}
		}
		respondJSON(w, map[string]string{"status": "ok"}, http.StatusOK)
	}
}
