package server

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/sadopc/focusd/internal/points"
	"github.com/sadopc/focusd/internal/session"
	"github.com/sadopc/focusd/internal/store"
)

func (s *Server) listTasks() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ts, err := s.tasks.ListTasks(r.Context(), userID(r))
		if err != nil {
			s.respondFailure(w, r, err)
			return
		}
		respondJSON(w, ts, http.StatusOK)
	}
}

func (s *Server) createTask() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Title string `json:"title"`
		}
		if err := decodeJSON(r, &req); err != nil {
			s.respondFailure(w, r, err)
			return
		}
		title := strings.TrimSpace(req.Title)
		if title == "" {
			s.respondFailure(w, r, &session.ValidationError{Field: "title", Msg: "is required"})
			return
		}

		t, err := s.tasks.CreateTask(r.Context(), userID(r), title)
		if err != nil {
			s.respondFailure(w, r, err)
			return
		}
		respondJSON(w, t, http.StatusCreated)
	}
}

// toggleTask sets a task's completed flag and applies the matching point
// rule. A withheld or failed award never fails the toggle itself.
func (s *Server) toggleTask() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
		if err != nil {
			s.respondFailure(w, r, &session.ValidationError{Field: "id", Msg: "must be a number"})
			return
		}
		var req struct {
			Completed *bool `json:"completed"`
		}
		if err := decodeJSON(r, &req); err != nil {
			s.respondFailure(w, r, err)
			return
		}
		if req.Completed == nil {
			s.respondFailure(w, r, &session.ValidationError{Field: "completed", Msg: "is required"})
			return
		}

		user := userID(r)
		t, err := s.tasks.SetTaskCompleted(r.Context(), user, id, *req.Completed)
		if err != nil {
			s.respondFailure(w, r, err)
			return
		}

		var outcome *points.Outcome
		if out, err := s.points.ToggleTask(r.Context(), user, t.ID, t.Title, t.Completed); err != nil {
			s.log.Warn("task points failed", "user", user, "task", t.ID, "err", err)
		} else {
			outcome = &out
		}

		respondJSON(w, struct {
			*store.Task
			Points *points.Outcome `json:"points,omitempty"`
		}{t, outcome}, http.StatusOK)
	}
}
