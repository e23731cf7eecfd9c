package recommendation

import (
	"net/http"
	"strconv"

	"github.com/redmonkez12/diary-api/internal/auth"
	"github.com/redmonkez12/diary-api/internal/httputil"
	"github.com/redmonkez12/diary-api/internal/logging"
)

const (
	defaultHistory = 10
	maxHistory     = 50
)

// Handler contains HTTP handlers for recommendation endpoints
type Handler struct {
	generator *Generator
	store     Store
}

func NewHandler(generator *Generator, store Store) *Handler {
	return &Handler{generator: generator, store: store}
}

// History returns the caller's latest recommendations
// @Summary      List recommendations
// @Tags         recommendations
// @Produce      json
// @Security     BearerAuth
// @Param        limit query int false "How many (max 50)"
// @Success      200 {array} Recommendation
// @Failure      400 {object} httputil.ErrorResponse
// @Router       /api/recommendations [get]
func (h *Handler) History(w http.ResponseWriter, r *http.Request) {
	logger := logging.GetLoggerFromContext(r.Context())
	userID, _ := auth.GetUserIDFromContext(r.Context())

	limit := defaultHistory
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 || n > maxHistory {
			httputil.RespondErrorWithCode(w, "limit must be between 1 and 50", httputil.CodeInvalidPagination, http.StatusBadRequest)
			return
		}
		limit = n
	}

	recs, err := h.store.ListRecent(r.Context(), userID, limit)
	if err != nil {
		logger.Error("failed to list recommendations", "error", err.Error())
		httputil.RespondErrorWithCode(w, "failed to list recommendations", httputil.CodeInternalError, http.StatusInternalServerError)
		return
	}

	httputil.RespondJSON(w, recs, http.StatusOK)
}

// Generate creates a recommendation now
// @Summary      Generate a recommendation
// @Tags         recommendations
// @Produce      json
// @Security     BearerAuth
// @Success      201 {object} Recommendation
// @Failure      502 {object} httputil.ErrorResponse
// @Router       /api/recommendations [post]
func (h *Handler) Generate(w http.ResponseWriter, r *http.Request) {
	logger := logging.GetLoggerFromContext(r.Context())
	userID, _ := auth.GetUserIDFromContext(r.Context())

	rec, err := h.generator.GenerateRecommendation(r.Context(), userID)
	if err != nil {
		logger.Error("failed to generate recommendation", "error", err.Error())
		httputil.RespondErrorWithCode(w, "failed to generate recommendation", httputil.CodeGenerationFailed, http.StatusBadGateway)
		return
	}

	httputil.RespondJSON(w, rec, http.StatusCreated)
}
