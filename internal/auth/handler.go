// Package auth exposes the signup/login HTTP surface.
package auth

import (
	"encoding/json"
	"errors"
	"net/http"

	"go.uber.org/zap"

	"github.com/librarium-io/librarium/internal/token"
	"github.com/librarium-io/librarium/internal/user"
)

type Handler struct {
	users  *user.Service
	tokens *token.Manager
	logger *zap.SugaredLogger
}

func NewHandler(users *user.Service, tokens *token.Manager, logger *zap.SugaredLogger) *Handler {
	return &Handler{users: users, tokens: tokens, logger: logger}
}

// SignupRequest request body for the signup endpoint.
type SignupRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
	Role     string `json:"role"`
}

func (h *Handler) Signup(w http.ResponseWriter, r *http.Request) {
	var req SignupRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.logger.Debugw("invalid signup payload", "err", err)
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid payload"})
		return
	}
	u, err := h.users.Signup(r.Context(), req.Username, req.Password, req.Role)
	if err != nil {
		switch {
		case errors.Is(err, user.ErrDuplicateUsername), errors.Is(err, user.ErrInvalidRole):
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		case errors.Is(err, user.ErrRateLimited):
			writeJSON(w, http.StatusTooManyRequests, map[string]string{"error": err.Error()})
		default:
			h.logger.Warnw("signup failed", "err", err)
			writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "signup failed"})
		}
		return
	}
	writeJSON(w, http.StatusOK, u)
}

// LoginRequest login payload.
type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// TokenResponse is the bearer token envelope returned on login.
type TokenResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
}

func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.logger.Debugw("invalid login payload", "err", err)
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid payload"})
		return
	}
	u, err := h.users.Authenticate(r.Context(), req.Username, req.Password)
	if err != nil {
		switch {
		case errors.Is(err, user.ErrBadCredentials):
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		case errors.Is(err, user.ErrRateLimited):
			writeJSON(w, http.StatusTooManyRequests, map[string]string{"error": err.Error()})
		default:
			h.logger.Warnw("login failed", "err", err)
			writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "login failed"})
		}
		return
	}
	signed, err := h.tokens.Issue(u.Username, u.Role)
	if err != nil {
		h.logger.Errorw("token issuance failed", "err", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "login failed"})
		return
	}
	writeJSON(w, http.StatusOK, TokenResponse{AccessToken: signed, TokenType: "bearer"})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
