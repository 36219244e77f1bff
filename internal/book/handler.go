package book

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"go.uber.org/zap"

	"github.com/librarium-io/librarium/internal/guard"
	"github.com/librarium-io/librarium/internal/lending"
)

// Handler exposes catalog CRUD plus the borrow/return endpoints that
// delegate to the lending service.
type Handler struct {
	svc     *Service
	lending *lending.Service
	logger  *zap.SugaredLogger
}

func NewHandler(svc *Service, lendSvc *lending.Service, logger *zap.SugaredLogger) *Handler {
	return &Handler{svc: svc, lending: lendSvc, logger: logger}
}

// CreateRequest body for adding a book.
type CreateRequest struct {
	Title  string `json:"title"`
	Author string `json:"author"`
}

// UpdateRequest body for a partial book update; absent fields stay as-is.
type UpdateRequest struct {
	Title  *string `json:"title"`
	Author *string `json:"author"`
	Status *string `json:"status"`
}

func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	var req CreateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid payload"})
		return
	}
	b, err := h.svc.Create(r.Context(), req.Title, req.Author)
	if err != nil {
		h.logger.Warnw("create book failed", "err", err)
		h.writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "create book failed"})
		return
	}
	h.writeJSON(w, http.StatusOK, b)
}

func (h *Handler) Update(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		h.writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid book id"})
		return
	}
	var req UpdateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid payload"})
		return
	}
	b, err := h.svc.Update(r.Context(), id, req.Title, req.Author, req.Status)
	if err != nil {
		h.writeCatalogError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, b)
}

func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		h.writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid book id"})
		return
	}
	b, err := h.svc.Delete(r.Context(), id)
	if err != nil {
		h.writeCatalogError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, b)
}

func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	books, err := h.svc.List(r.Context(), queryInt(r, "skip", 0), queryInt(r, "limit", 100))
	if err != nil {
		h.logger.Warnw("list books failed", "err", err)
		h.writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "list books failed"})
		return
	}
	h.writeJSON(w, http.StatusOK, books)
}

func (h *Handler) Available(w http.ResponseWriter, r *http.Request) {
	books, err := h.svc.ListAvailable(r.Context())
	if err != nil {
		h.logger.Warnw("list available books failed", "err", err)
		h.writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "list books failed"})
		return
	}
	h.writeJSON(w, http.StatusOK, books)
}

func (h *Handler) Borrow(w http.ResponseWriter, r *http.Request) {
	id, caller, ok := h.lendingParams(w, r)
	if !ok {
		return
	}
	b, err := h.lending.Borrow(r.Context(), id, caller.ID)
	if err != nil {
		h.writeLendingError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, b)
}

func (h *Handler) Return(w http.ResponseWriter, r *http.Request) {
	id, caller, ok := h.lendingParams(w, r)
	if !ok {
		return
	}
	b, err := h.lending.Return(r.Context(), id, caller.ID)
	if err != nil {
		h.writeLendingError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, b)
}

func (h *Handler) lendingParams(w http.ResponseWriter, r *http.Request) (int64, guard.Caller, bool) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		h.writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid book id"})
		return 0, guard.Caller{}, false
	}
	caller, ok := guard.CallerFromContext(r.Context())
	if !ok {
		h.writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "could not validate credentials"})
		return 0, guard.Caller{}, false
	}
	return id, caller, true
}

func (h *Handler) writeCatalogError(w http.ResponseWriter, err error) {
	if errors.Is(err, ErrNotFound) {
		h.writeJSON(w, http.StatusNotFound, map[string]string{"error": err.Error()})
		return
	}
	h.logger.Warnw("catalog operation failed", "err", err)
	h.writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "operation failed"})
}

func (h *Handler) writeLendingError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, lending.ErrBookNotFound):
		h.writeJSON(w, http.StatusNotFound, map[string]string{"error": err.Error()})
	case errors.Is(err, lending.ErrBookNotAvailable), errors.Is(err, lending.ErrNotBorrowedByCaller):
		h.writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
	default:
		h.logger.Warnw("lending operation failed", "err", err)
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
