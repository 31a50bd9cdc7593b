package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"go.uber.org/zap"

	"github.com/readyset/realtor/internal/auth"
	"github.com/readyset/realtor/internal/store"
)

type registerRequest struct {
	Email         string `json:"email"`
	Password      string `json:"password"`
	FullName      string `json:"full_name"`
	CompanyName   string `json:"company_name,omitempty"`
	LicenseNumber string `json:"license_number,omitempty"`
	Role          string `json:"role,omitempty"`
}

type tokenResponse struct {
	Token string      `json:"access_token"`
	User  *store.User `json:"user"`
}

func (h *Handler) register(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		badRequest(w, err.Error())
		return
	}
	if req.Email == "" || req.Password == "" {
		badRequest(w, "email and password are required")
		return
	}

	hash, err := h.auth.HashPassword(req.Password)
	if err != nil {
		writeError(w, err)
		return
	}

	user := &store.User{
		Email:         req.Email,
		FullName:      req.FullName,
		CompanyName:   req.CompanyName,
		LicenseNumber: req.LicenseNumber,
		Role:          store.UserRole(req.Role),
		PasswordHash:  hash,
	}
	if user.Role == "" {
		user.Role = store.RoleAgent
	}
	if err := h.store.CreateUser(r.Context(), user); err != nil {
		writeError(w, err)
		return
	}

	token, err := h.auth.IssueToken(auth.Claims{UserID: user.ID, Email: user.Email, Role: string(user.Role)})
	if err != nil {
		writeError(w, err)
		return
	}
	h.logger.Info("user registered", zap.String("user_id", user.ID), zap.String("email", user.Email))
	writeJSON(w, http.StatusCreated, tokenResponse{Token: token, User: user})
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (h *Handler) login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		badRequest(w, err.Error())
		return
	}

	user, err := h.store.GetUserByEmail(r.Context(), req.Email)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "invalid credentials"})
			return
		}
		writeError(w, err)
		return
	}
	if !h.auth.VerifyPassword(req.Password, user.PasswordHash) {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "invalid credentials"})
		return
	}

	token, err := h.auth.IssueToken(auth.Claims{UserID: user.ID, Email: user.Email, Role: string(user.Role)})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, tokenResponse{Token: token, User: user})
}
