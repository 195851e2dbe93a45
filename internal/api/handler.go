package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"reqbridge/internal/core"
	"reqbridge/internal/service"
)

// Version is reported by the health endpoint.
const Version = "1.0.0"

type Handler struct {
	authSvc      *service.AuthService
	forwarder    *service.Forwarder
	requests     core.RequestRepository
	environments core.EnvironmentRepository
	startedAt    time.Time
}

func NewHandler(authSvc *service.AuthService, forwarder *service.Forwarder, requests core.RequestRepository, environments core.EnvironmentRepository) *Handler {
	return &Handler{
		authSvc:      authSvc,
		forwarder:    forwarder,
		requests:     requests,
		environments: environments,
		startedAt:    time.Now(),
	}
}

// Routes wires the full HTTP surface.
func (h *Handler) Routes() http.Handler {
	r := chi.NewRouter()
	r.Use(LoggingMiddleware)

	// Brute force protection on the public auth endpoints
	authLimiter := NewRateLimiter(10, 5)

	r.Get("/health", h.Health)

	r.Route("/api", func(r chi.Router) {
		r.Route("/auth", func(r chi.Router) {
			r.With(authLimiter.Middleware).Post("/register", h.Register)
			r.With(authLimiter.Middleware).Post("/login", h.Login)
			r.With(authLimiter.Middleware).Post("/send-code", h.SendCode)

			r.Group(func(r chi.Router) {
				r.Use(AuthMiddleware(h.authSvc))
				r.Get("/profile", h.Profile)
			})
		})

		r.Group(func(r chi.Router) {
			r.Use(AuthMiddleware(h.authSvc))
			r.Post("/requests/save", h.SaveRequest)
			r.Post("/requests/favorite", h.FavoriteRequest)
			r.Get("/requests/saved", h.ListSaved)
			r.Get("/requests/favorites", h.ListFavorites)
			r.Get("/environments", h.ListEnvironments)
			r.Post("/environments", h.CreateEnvironment)
			r.Post("/proxy", h.Proxy)
		})
	})

	return r
}

func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":    "ok",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
		"uptime":    int64(time.Since(h.startedAt).Seconds()),
		"version":   Version,
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]any{
		"success": false,
		"error":   message,
	})
}

// statusForError maps domain errors onto HTTP statuses for the auth surface.
func statusForError(err error) int {
	var validation *core.ValidationError
	var conflict *core.ConflictError
	switch {
	case errors.As(err, &validation), errors.As(err, &conflict):
		return http.StatusBadRequest
	case errors.Is(err, core.ErrInvalidCredentials), errors.Is(err, core.ErrAccountDisabled):
		return http.StatusBadRequest
	case errors.Is(err, core.ErrInvalidToken):
		return http.StatusUnauthorized
	default:
		return http.StatusInternalServerError
	}
}
