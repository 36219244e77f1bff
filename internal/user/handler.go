package user

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"go.uber.org/zap"

	"github.com/librarium-io/librarium/internal/guard"
	historyentity "github.com/librarium-io/librarium/internal/history/entity"
)

// HistoryLister is the read-only ledger projection the member surface
// exposes.
type HistoryLister interface {
	ListAll(ctx context.Context) ([]*historyentity.Entry, error)
	ListForMember(ctx context.Context, memberID int64) ([]*historyentity.Entry, error)
}

// Handler exposes the librarian-facing member management endpoints plus the
// member self-service ones (own history, own soft delete).
type Handler struct {
	svc    *Service
	ledger HistoryLister
	logger *zap.SugaredLogger
}

func NewHandler(svc *Service, ledger HistoryLister, logger *zap.SugaredLogger) *Handler {
	return &Handler{svc: svc, ledger: ledger, logger: logger}
}

// MemberRequest is the body for member create/update.
type MemberRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
	Role     string `json:"role"`
}

func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	var req MemberRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid payload"})
		return
	}
	// Role is forced to MEMBER on this surface, whatever was submitted.
	u, err := h.svc.CreateMember(r.Context(), req.Username, req.Password)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, u)
}

func (h *Handler) Update(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		h.writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid member id"})
		return
	}
	var req MemberRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid payload"})
		return
	}
	u, err := h.svc.UpdateMember(r.Context(), id, req.Username, req.Password, req.Role)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, u)
}

func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		h.writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid member id"})
		return
	}
	u, err := h.svc.SoftDeleteMember(r.Context(), id)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, u)
}

func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	h.listMembers(w, r, true)
}

func (h *Handler) ListDeleted(w http.ResponseWriter, r *http.Request) {
	h.listMembers(w, r, false)
}

func (h *Handler) listMembers(w http.ResponseWriter, r *http.Request, defaultActive bool) {
	active := defaultActive
	if v := r.URL.Query().Get("active"); v != "" {
		parsed, err := strconv.ParseBool(v)
		if err != nil {
			h.writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid active flag"})
			return
		}
		active = parsed
	}
	members, err := h.svc.ListMembers(r.Context(), active, queryInt(r, "skip", 0), queryInt(r, "limit", 100))
	if err != nil {
		h.logger.Warnw("list members failed", "err", err)
		h.writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "list members failed"})
		return
	}
	h.writeJSON(w, http.StatusOK, members)
}

// HistoryAll returns the full lending ledger (librarian view).
func (h *Handler) HistoryAll(w http.ResponseWriter, r *http.Request) {
	entries, err := h.ledger.ListAll(r.Context())
	if err != nil {
		h.logger.Warnw("list history failed", "err", err)
		h.writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "list history failed"})
		return
	}
	h.writeJSON(w, http.StatusOK, entries)
}

// MyHistory returns the calling member's own ledger entries.
func (h *Handler) MyHistory(w http.ResponseWriter, r *http.Request) {
	caller, ok := guard.CallerFromContext(r.Context())
	if !ok {
		h.writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "could not validate credentials"})
		return
	}
	entries, err := h.ledger.ListForMember(r.Context(), caller.ID)
	if err != nil {
		h.logger.Warnw("list history failed", "err", err)
		h.writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "list history failed"})
		return
	}
	h.writeJSON(w, http.StatusOK, entries)
}

// DeleteMe soft-deletes the calling member's own account.
func (h *Handler) DeleteMe(w http.ResponseWriter, r *http.Request) {
	caller, ok := guard.CallerFromContext(r.Context())
	if !ok {
		h.writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "could not validate credentials"})
		return
	}
	u, err := h.svc.SoftDeleteMember(r.Context(), caller.ID)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, u)
}

func (h *Handler) writeServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ErrNotFound):
		h.writeJSON(w, http.StatusNotFound, map[string]string{"error": err.Error()})
	case errors.Is(err, ErrDuplicateUsername), errors.Is(err, ErrInvalidRole):
		h.writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
	default:
		h.logger.Warnw("member operation failed", "err", err)
		h.writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "operation failed"})
	}
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func queryInt(r *http.Request, name string, fallback int) int {
	v := r.URL.Query().Get(name)
	if v == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(v)
	if err != nil || parsed < 0 {
		return fallback
	}
	return parsed
}
