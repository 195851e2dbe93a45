package api

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/google/uuid"

	"reqbridge/internal/core"
)

type saveRequestBody struct {
	Name    string            `json:"name"`
	URL     string            `json:"url"`
	Method  string            `json:"method"`
	Params  map[string]string `json:"params"`
	Headers map[string]string `json:"headers"`
	Body    string            `json:"body"`
	Auth    core.AuthConfig   `json:"auth"`
	Folder  string            `json:"folder"`
}

func (h *Handler) SaveRequest(w http.ResponseWriter, r *http.Request) {
	req, ok := h.decodeRequestBody(w, r)
	if !ok {
		return
	}

	saved := &core.SavedRequest{
		ID:        uuid.NewString(),
		UserID:    UserFrom(r).ID,
		Name:      req.Name,
		Method:    defaultMethod(req.Method),
		URL:       req.URL,
		Headers:   req.Headers,
		Params:    req.Params,
		Body:      req.Body,
		Auth:      req.Auth,
		CreatedAt: time.Now(),
	}
	if err := h.requests.SaveRequest(saved); err != nil {
		writeError(w, http.StatusInternalServerError, "failed to save request")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"request": saved,
	})
}

func (h *Handler) FavoriteRequest(w http.ResponseWriter, r *http.Request) {
	req, ok := h.decodeRequestBody(w, r)
	if !ok {
		return
	}

	fav := &core.FavoriteRequest{
		ID:        uuid.NewString(),
		UserID:    UserFrom(r).ID,
		Name:      req.Name,
		Method:    defaultMethod(req.Method),
		URL:       req.URL,
		Headers:   req.Headers,
		Params:    req.Params,
		Body:      req.Body,
		Auth:      req.Auth,
		Folder:    req.Folder,
		CreatedAt: time.Now(),
	}
	if err := h.requests.SaveFavorite(fav); err != nil {
		writeError(w, http.StatusInternalServerError, "failed to save favorite")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"success":  true,
		"favorite": fav,
	})
}

func (h *Handler) ListSaved(w http.ResponseWriter, r *http.Request) {
	requests, err := h.requests.ListSaved(UserFrom(r).ID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to list requests")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"success":  true,
		"requests": requests,
	})
}

func (h *Handler) ListFavorites(w http.ResponseWriter, r *http.Request) {
	favorites, err := h.requests.ListFavorites(UserFrom(r).ID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to list favorites")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"success":   true,
		"favorites": favorites,
	})
}

type environmentBody struct {
	Name      string            `json:"name"`
	Variables map[string]string `json:"variables"`
}

func (h *Handler) CreateEnvironment(w http.ResponseWriter, r *http.Request) {
	var req environmentBody
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	if req.Name == "" {
		writeError(w, http.StatusBadRequest, "missing required field: name")
		return
	}

	env := &core.Environment{
		ID:        uuid.NewString(),
		UserID:    UserFrom(r).ID,
		Name:      req.Name,
		Variables: req.Variables,
	}
	if env.Variables == nil {
		env.Variables = map[string]string{}
	}
	if err := h.environments.Create(env); err != nil {
		writeError(w, http.StatusInternalServerError, "failed to create environment")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"success":     true,
		"environment": env,
	})
}

func (h *Handler) ListEnvironments(w http.ResponseWriter, r *http.Request) {
	envs, err := h.environments.ListByUser(UserFrom(r).ID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to list environments")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"success":      true,
		"environments": envs,
	})
}

func (h *Handler) decodeRequestBody(w http.ResponseWriter, r *http.Request) (*saveRequestBody, bool) {
	var req saveRequestBody
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return nil, false
	}
	if req.URL == "" {
		writeError(w, http.StatusBadRequest, "missing required field: url")
		return nil, false
	}
	return &req, true
}

func defaultMethod(method string) string {
	if method == "" {
		return http.MethodGet
	}
	return method
}
