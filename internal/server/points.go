package server

import (
	"net/http"
	"strconv"

	"github.com/sadopc/focusd/internal/session"
)

const (
	defaultHistoryLimit = 20
	maxHistoryLimit     = 100
)

func (s *Server) balance() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		st, err := s.points.Balance(r.Context(), userID(r))
		if err != nil {
			s.respondFailure(w, r, err)
			return
		}
		respondJSON(w, st, http.StatusOK)
	}
}

func (s *Server) history() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		limit := defaultHistoryLimit
		if v := r.URL.Query().Get("limit"); v != "" {
			n, err := strconv.Atoi(v)
			if err != nil || n <= 0 {
				s.respondFailure(w, r, &session.ValidationError{Field: "limit", Msg: "must be a positive number"})
				return
			}
			limit = min(n, maxHistoryLimit)
		}

		txs, err := s.points.History(r.Context(), userID(r), limit)
		if err != nil {
			s.respondFailure(w, r, err)
			return
		}
		respondJSON(w, txs, http.StatusOK)
	}
}

func (s *Server) streak() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		st, err := s.sessions.Streaks(r.Context(), userID(r))
		if err != nil {
			s.respondFailure(w, r, err)
			return
		}
		respondJSON(w, st, http.StatusOK)
	}
}
