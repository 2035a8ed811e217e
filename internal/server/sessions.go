package server

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/sadopc/focusd/internal/points"
	"github.com/sadopc/focusd/internal/session"
	"github.com/sadopc/focusd/internal/store"
)

// dayResponse is a daily record with its derived total.
type dayResponse struct {
	store.DailySession
	TotalMinutes int `json:"totalMinutes"`
	GoalMinutes  int `json:"goalMinutes"`
}

func (s *Server) day(d *store.DailySession) dayResponse {
	return dayResponse{DailySession: *d, TotalMinutes: d.TotalMinutes(), GoalMinutes: s.sessions.Goal()}
}

func (s *Server) days(ds []store.DailySession) []dayResponse {
	out := make([]dayResponse, 0, len(ds))
	for i := range ds {
		out = append(out, s.day(&ds[i]))
	}
	return out
}

func (s *Server) reportActive() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Minutes             *int  `json:"minutes"`
			SessionStartInstant int64 `json:"sessionStartInstant"`
		}
		if err := decodeJSON(r, &req); err != nil {
			s.respondFailure(w, r, err)
			return
		}
		if req.Minutes == nil {
			s.respondFailure(w, r, &session.ValidationError{Field: "minutes", Msg: "is required"})
			return
		}

		d, err := s.sessions.ReportActive(r.Context(), userID(r), *req.Minutes, req.SessionStartInstant)
		if err != nil {
			s.respondFailure(w, r, err)
			return
		}
		respondJSON(w, s.day(d), http.StatusOK)
	}
}

func (s *Server) completeSession() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Minutes     *int   `json:"minutes"`
			SessionType string `json:"sessionType"`
			IntervalID  string `json:"intervalId"`
		}
		if err := decodeJSON(r, &req); err != nil {
			s.respondFailure(w, r, err)
			return
		}
		if req.Minutes == nil {
			s.respondFailure(w, r, &session.ValidationError{Field: "minutes", Msg: "is required"})
			return
		}

		res, err := s.sessions.Complete(r.Context(), userID(r), session.Completion{
			Minutes:     *req.Minutes,
			SessionType: req.SessionType,
			IntervalID:  req.IntervalID,
		})
		if err != nil {
			s.respondFailure(w, r, err)
			return
		}
		respondJSON(w, struct {
			dayResponse
			Points *points.Outcome `json:"points,omitempty"`
			Streak *points.Outcome `json:"streak,omitempty"`
		}{s.day(res.Day), res.Points, res.Streak}, http.StatusOK)
	}
}

func (s *Server) today() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		d, err := s.sessions.TodayRecord(r.Context(), userID(r))
		if err != nil {
			s.respondFailure(w, r, err)
			return
		}
		respondJSON(w, s.day(d), http.StatusOK)
	}
}

func (s *Server) resetToday() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := s.sessions.ResetToday(r.Context(), userID(r)); err != nil {
			s.respondFailure(w, r, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

func (s *Server) month() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		year, err := strconv.Atoi(chi.URLParam(r, "year"))
		if err != nil {
			s.respondFailure(w, r, &session.ValidationError{Field: "year", Msg: "must be a number"})
			return
		}
		month, err := strconv.Atoi(chi.URLParam(r, "month"))
		if err != nil {
			s.respondFailure(w, r, &session.ValidationError{Field: "month", Msg: "must be a number"})
			return
		}

		ds, err := s.sessions.Month(r.Context(), userID(r), year, time.Month(month))
		if err != nil {
			s.respondFailure(w, r, err)
			return
		}
		respondJSON(w, s.days(ds), http.StatusOK)
	}
}

func (s *Server) allDays() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ds, err := s.sessions.All(r.Context(), userID(r))
		if err != nil {
			s.respondFailure(w, r, err)
			return
		}
		respondJSON(w, s.days(ds), http.StatusOK)
	}
}
