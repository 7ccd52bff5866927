package server

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/benzaid32/virtuoso-ai-music-lab/core/auth"
	"github.com/benzaid32/virtuoso-ai-music-lab/logger"
)

type contextKey string

const subjectContextKey contextKey = "subject"

// AuthMiddleware checks for a valid bearer token. When auth is disabled in
// the configuration, requests pass through untouched.
func (h *APIHandler) AuthMiddleware(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !h.cfg.AuthEnabled {
			next.ServeHTTP(w, r)
			return
		}

		authHeader := r.Header.Get("Authorization")
		if authHeader == "" {
			writeError(w, http.StatusUnauthorized, "Authorization header is required")
			return
		}

		parts := strings.Split(authHeader, " ")
		if len(parts) != 2 || parts[0] != "Bearer" {
			writeError(w, http.StatusUnauthorized, "Invalid authorization header format")
			return
		}

		subject, err := auth.ParseToken(h.cfg.AuthSecret, parts[1])
		if err != nil {
			logger.Warn("[Auth] Rejected token", logger.ErrorField(err))
			writeError(w, http.StatusUnauthorized, "Invalid token")
			return
		}

		ctx := context.WithValue(r.Context(), subjectContextKey, subject)
		next.ServeHTTP(w, r.WithContext(ctx))
	}
}

// GetSubjectFromContext extracts the token subject from the request context.
func GetSubjectFromContext(ctx context.Context) (string, error) {
	subject, ok := ctx.Value(subjectContextKey).(string)
	if !ok {
		return "", fmt.Errorf("subject not found in context")
	}
	return subject, nil
}
