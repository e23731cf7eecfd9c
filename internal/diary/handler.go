package diary

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/redmonkez12/diary-api/internal/auth"
	"github.com/redmonkez12/diary-api/internal/httputil"
	"github.com/redmonkez12/diary-api/internal/logging"
)

const (
	defaultPageSize = 20
	maxPageSize     = 100
)

// Handler contains HTTP handlers for diary entry endpoints
type Handler struct {
	service *Service
}

func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

// Create adds a diary entry
// @Summary      Create a diary entry
// @Tags         entries
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        request body EntryRequest true "Entry"
// @Success      201 {object} Entry
// @Failure      400 {object} httputil.ErrorResponse
// @Router       /api/entries [post]
func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	logger := logging.GetLoggerFromContext(r.Context())
	userID, _ := auth.GetUserIDFromContext(r.Context())

	var req EntryRequest
	if err := httputil.DecodeJSON(w, r, &req); err != nil {
		logger.Warn("invalid diary entry request body", "error", err.Error())
		httputil.RespondErrorWithCode(w, "invalid request body", httputil.CodeInvalidRequestBody, http.StatusBadRequest)
		return
	}

	entry, err := h.service.Create(r.Context(), userID, req)
	if err != nil {
		h.respondError(w, r, "failed to create diary entry", err)
		return
	}

	httputil.RespondJSON(w, entry, http.StatusCreated)
}

// List returns the caller's entries, newest first
// @Summary      List diary entries
// @Tags         entries
// @Produce      json
// @Security     BearerAuth
// @Param        limit  query int false "Page size (max 100)"
// @Param        offset query int false "Entries to skip"
// @Success      200 {object} Page
// @Failure      400 {object} httputil.ErrorResponse
// @Router       /api/entries [get]
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	logger := logging.GetLoggerFromContext(r.Context())
	userID, _ := auth.GetUserIDFromContext(r.Context())

	limit, offset, ok := parsePagination(r)
	if !ok {
		httputil.RespondErrorWithCode(w, "limit must be 1-100 and offset must not be negative", httputil.CodeInvalidPagination, http.StatusBadRequest)
		return
	}

	page, err := h.service.List(r.Context(), userID, limit, offset)
	if err != nil {
		logger.Error("failed to list diary entries", "error", err.Error())
		httputil.RespondErrorWithCode(w, "failed to list diary entries", httputil.CodeInternalError, http.StatusInternalServerError)
		return
	}

	httputil.RespondJSON(w, page, http.StatusOK)
}

// Get returns one entry
// @Summary      Get a diary entry
// @Tags         entries
// @Produce      json
// @Security     BearerAuth
// @Param        id path string true "Entry id"
// @Success      200 {object} Entry
// @Failure      404 {object} httputil.ErrorResponse
// @Router       /api/entries/{id} [get]
func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	userID, _ := auth.GetUserIDFromContext(r.Context())

	id, ok := entryID(w, r)
	if !ok {
		return
	}

	entry, err := h.service.Get(r.Context(), userID, id)
	if err != nil {
		h.respondError(w, r, "failed to get diary entry", err)
		return
	}

	httputil.RespondJSON(w, entry, http.StatusOK)
}

// Update replaces an entry
// @Summary      Update a diary entry
// @Tags         entries
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id      path string       true "Entry id"
// @Param        request body EntryRequest true "Entry"
// @Success      200 {object} Entry
// @Failure      400 {object} httputil.ErrorResponse
// @Failure      404 {object} httputil.ErrorResponse
// @Router       /api/entries/{id} [put]
func (h *Handler) Update(w http.ResponseWriter, r *http.Request) {
	logger := logging.GetLoggerFromContext(r.Context())
	userID, _ := auth.GetUserIDFromContext(r.Context())

	id, ok := entryID(w, r)
	if !ok {
		return
	}

	var req EntryRequest
	if err := httputil.DecodeJSON(w, r, &req); err != nil {
		logger.Warn("invalid diary entry request body", "error", err.Error())
		httputil.RespondErrorWithCode(w, "invalid request body", httputil.CodeInvalidRequestBody, http.StatusBadRequest)
		return
	}

	entry, err := h.service.Update(r.Context(), userID, id, req)
	if err != nil {
		h.respondError(w, r, "failed to update diary entry", err)
		return
	}

	httputil.RespondJSON(w, entry, http.StatusOK)
}

// Delete removes an entry
// @Summary      Delete a diary entry
// @Tags         entries
// @Security     BearerAuth
// @Param        id path string true "Entry id"
// @Success      204
// @Failure      404 {object} httputil.ErrorResponse
// @Router       /api/entries/{id} [delete]
func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	userID, _ := auth.GetUserIDFromContext(r.Context())

	id, ok := entryID(w, r)
	if !ok {
		return
	}

	if err := h.service.Delete(r.Context(), userID, id); err != nil {
		h.respondError(w, r, "failed to delete diary entry", err)
		return
	}

	httputil.RespondNoContent(w)
}

func (h *Handler) respondError(w http.ResponseWriter, r *http.Request, message string, err error) {
	switch {
	case errors.Is(err, ErrNotFound):
		httputil.RespondErrorWithCode(w, "diary entry not found", httputil.CodeEntryNotFound, http.StatusNotFound)
	case errors.Is(err, ErrTitleRequired), errors.Is(err, ErrContentRequired),
		errors.Is(err, ErrTitleTooLong), errors.Is(err, ErrMoodTooLong):
		httputil.RespondErrorWithCode(w, err.Error(), httputil.CodeValidationFailed, http.StatusBadRequest)
	default:
		logging.GetLoggerFromContext(r.Context()).Error(message, "error", err.Error())
		httputil.RespondErrorWithCode(w, message, httputil.CodeInternalError, http.StatusInternalServerError)
	}
}

// entryID parses the id URL parameter; an unparseable id cannot exist
func entryID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		httputil.RespondErrorWithCode(w, "diary entry not found", httputil.CodeEntryNotFound, http.StatusNotFound)
		return uuid.Nil, false
	}
	return id, true
}

func parsePagination(r *http.Request) (limit, offset int, ok bool) {
	limit, offset = defaultPageSize, 0
	q := r.URL.Query()

	if v := q.Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 || n > maxPageSize {
			return 0, 0, false
		}
		limit = n
	}

	if v := q.Get("offset"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			return 0, 0, false
		}
		offset = n
	}

	return limit, offset, true
}
