package api

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"reqbridge/internal/core"
	"reqbridge/internal/logger"
	"reqbridge/internal/service"
)

func LoggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		// Wrap ResponseWriter to capture status code
		rw := &responseWriter{w, http.StatusOK}

		next.ServeHTTP(rw, r)

		duration := time.Since(start)
		logger.Info.Printf("%s %s %d %v", r.Method, r.URL.Path, rw.status, duration)
	})
}

// Custom response writer to capture status code
type responseWriter struct {
	http.ResponseWriter
	status int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.status = code
	rw.ResponseWriter.WriteHeader(code)
}

// Context keys
type key int

const (
	UserKey key = iota
)

// AuthMiddleware validates the bearer token and stores the resolved user in
// the request context. 401 on missing/invalid token, 403 on disabled account.
func AuthMiddleware(authSvc *service.AuthService) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			header := r.Header.Get("Authorization")
			if header == "" || !strings.HasPrefix(header, "Bearer ") {
				writeError(w, http.StatusUnauthorized, "missing bearer token")
				return
			}

			user, err := authSvc.VerifyToken(strings.TrimPrefix(header, "Bearer "))
			if err != nil {
				if errors.Is(err, core.ErrAccountDisabled) {
					writeError(w, http.StatusForbidden, err.Error())
					return
				}
				writeError(w, http.StatusUnauthorized, core.ErrInvalidToken.Error())
				return
			}

			ctx := context.WithValue(r.Context(), UserKey, user)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// UserFrom returns the authenticated user stored by AuthMiddleware, or nil.
func UserFrom(r *http.Request) *core.User {
	user, _ := r.Context().Value(UserKey).(*core.User)
	return user
}
