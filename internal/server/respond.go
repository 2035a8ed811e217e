package server

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/sadopc/focusd/internal/session"
	"github.com/sadopc/focusd/internal/store"
)

func respondJSON(w http.ResponseWriter, data any, status int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		slog.Warn("failed to encode response", "err", err)
	}
}

type errorBody struct {
	Error     string `json:"error"`
	Field     string `json:"field,omitempty"`
	Retryable bool   `json:"retryable,omitempty"`
}

func respondError(w http.ResponseWriter, message string, status int) {
	respondJSON(w, errorBody{Error: message}, status)
}

// respondFailure maps a service error to a status code. Validation problems
// are the caller's fault; missing tasks are 404; everything else is a
// persistence failure the client may retry.
func (s *Server) respondFailure(w http.ResponseWriter, r *http.Request, err error) {
	var ve *session.ValidationError
	switch {
	case errors.As(err, &ve):
		respondJSON(w, errorBody{Error: ve.Msg, Field: ve.Field}, http.StatusBadRequest)
	case errors.Is(err, session.ErrValidation):
		respondError(w, err.Error(), http.StatusBadRequest)
	case errors.Is(err, store.ErrNotFound):
		respondError(w, "not found", http.StatusNotFound)
	default:
		s.log.Error("request failed", "method", r.Method, "path", r.URL.Path, "err", err)
		respondJSON(w, errorBody{Error: "storage unavailable", Retryable: true}, http.StatusServiceUnavailable)
	}
}

func decodeJSON(r *http.Request, v any) error {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		return &session.ValidationError{Field: "body", Msg: "invalid request body"}
	}
	return nil
}
