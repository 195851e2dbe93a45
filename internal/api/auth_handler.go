package api

import (
	"encoding/json"
	"net/http"

	"reqbridge/internal/logger"
	"reqbridge/internal/service"
)

type registerRequest struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
	Phone    string `json:"phone"`
}

func (h *Handler) Register(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}

	user, token, err := h.authSvc.Register(req.Username, req.Email, req.Password, req.Phone)
	if err != nil {
		writeError(w, statusForError(err), err.Error())
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"user":    user,
		"token":   token,
	})
}

type loginRequest struct {
	Username         string `json:"username"`
	Email            string `json:"email"`
	Password         string `json:"password"`
	Phone            string `json:"phone"`
	VerificationCode string `json:"verificationCode"`
}

func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}

	user, token, err := h.authSvc.Login(service.LoginInput{
		Username: req.Username,
		Email:    req.Email,
		Password: req.Password,
		Phone:    req.Phone,
		Code:     req.VerificationCode,
	})
	if err != nil {
		writeError(w, statusForError(err), err.Error())
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"user":    user,
		"token":   token,
	})
}

type sendCodeRequest struct {
	Phone string `json:"phone"`
}

func (h *Handler) SendCode(w http.ResponseWriter, r *http.Request) {
	var req sendCodeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	if req.Phone == "" {
		writeError(w, http.StatusBadRequest, "missing required field: phone")
		return
	}

	code, err := h.authSvc.SendVerificationCode(req.Phone)
	if err != nil {
		writeError(w, statusForError(err), err.Error())
		return
	}

	// Stand-in for an SMS gateway; the code never reaches the response body
	logger.Info.Printf("verification code for %s: %s", req.Phone, code)

	writeJSON(w, http.StatusOK, map[string]any{"success": true})
}

func (h *Handler) Profile(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"user":    UserFrom(r),
	})
}
