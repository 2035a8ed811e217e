package server

import (
	"context"
	"net/http"
)

type contextKey string

const userIDKey contextKey = "userId"

// identityHeaders are set by the authenticating reverse proxy, in order of
// preference.
var identityHeaders = []string{"X-Auth-User", "X-Forwarded-User", "Remote-User"}

func (s *Server) extractUser(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var userID string
		for _, h := range identityHeaders {
			if userID = r.Header.Get(h); userID != "" {
				break
			}
		}

		if userID == "" && s.devUser != "" {
			userID = s.devUser
			s.log.Debug("no auth header, using dev user", "user", userID)
		}
		if userID == "" {
			respondError(w, "unauthorized", http.StatusUnauthorized)
			return
		}

		ctx := context.WithValue(r.Context(), userIDKey, userID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func userID(r *http.Request) string {
	id, _ := r.Context().Value(userIDKey).(string)
	return id
}
