package pat

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/redmonkez12/diary-api/internal/auth"
	"github.com/redmonkez12/diary-api/internal/httputil"
	"github.com/redmonkez12/diary-api/internal/logging"
	"github.com/redmonkez12/diary-api/internal/ratelimit"
)

// RateLimiter limits token creation per user
type RateLimiter interface {
	CheckWithPurpose(ctx context.Context, key, purpose string) (bool, error)
	RecordWithPurpose(ctx context.Context, key, purpose string) error
}

// Handler contains HTTP handlers for personal access token endpoints
type Handler struct {
	service     *Service
	rateLimiter RateLimiter
}

func NewHandler(service *Service, rateLimiter RateLimiter) *Handler {
	return &Handler{service: service, rateLimiter: rateLimiter}
}

// Create issues a new personal access token
// @Summary      Create a personal access token
// @Description  The plaintext token is returned only in this response
// @Tags         tokens
// @Produce      json
// @Security     BearerAuth
// @Success      201 {object} CreateResult
// @Failure      401 {object} httputil.ErrorResponse
// @Failure      429 {object} httputil.ErrorResponse
// @Failure      500 {object} httputil.ErrorResponse
// @Router       /api/tokens [post]
func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	logger := logging.GetLoggerFromContext(r.Context())

	userID, ok := auth.GetUserIDFromContext(r.Context())
	if !ok {
		httputil.RespondErrorWithCode(w, "missing authentication", httputil.CodeMissingAuth, http.StatusUnauthorized)
		return
	}

	if h.rateLimiter != nil {
		exceeded, err := h.rateLimiter.CheckWithPurpose(r.Context(), userID, ratelimit.PurposeTokenCreate)
		if err != nil {
			logger.Error("failed to check token rate limit", "error", err.Error())
		} else if exceeded {
			logger.Warn("token creation rate limit exceeded", "user_id", userID)
			httputil.RespondErrorWithCode(w, "too many requests, please try again later", httputil.CodeTooManyRequests, http.StatusTooManyRequests)
			return
		}
	}

	result, err := h.service.CreateToken(r.Context(), userID)
	if err != nil {
		logger.Error("failed to create personal access token", "error", err.Error())
		httputil.RespondErrorWithCode(w, "failed to create token", httputil.CodeInternalError, http.StatusInternalServerError)
		return
	}

	if h.rateLimiter != nil {
		if err := h.rateLimiter.RecordWithPurpose(r.Context(), userID, ratelimit.PurposeTokenCreate); err != nil {
			logger.Error("failed to record token creation", "error", err.Error())
		}
	}

	w.Header().Set("Cache-Control", "no-store")
	httputil.RespondJSON(w, result, http.StatusCreated)
}

// List returns the caller's tokens without their secrets
// @Summary      List personal access tokens
// @Tags         tokens
// @Produce      json
// @Security     BearerAuth
// @Success      200 {array} Summary
// @Failure      401 {object} httputil.ErrorResponse
// @Failure      500 {object} httputil.ErrorResponse
// @Router       /api/tokens [get]
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	logger := logging.GetLoggerFromContext(r.Context())

	userID, ok := auth.GetUserIDFromContext(r.Context())
	if !ok {
		httputil.RespondErrorWithCode(w, "missing authentication", httputil.CodeMissingAuth, http.StatusUnauthorized)
		return
	}

	tokens, err := h.service.GetUserTokens(r.Context(), userID)
	if err != nil {
		logger.Error("failed to list personal access tokens", "error", err.Error())
		httputil.RespondErrorWithCode(w, "failed to list tokens", httputil.CodeInternalError, http.StatusInternalServerError)
		return
	}

	httputil.RespondJSON(w, tokens, http.StatusOK)
}

// Revoke deactivates one of the caller's tokens
// @Summary      Revoke a personal access token
// @Tags         tokens
// @Security     BearerAuth
// @Param        id path string true "Token id"
// @Success      204
// @Failure      401 {object} httputil.ErrorResponse
// @Failure      404 {object} httputil.ErrorResponse
// @Router       /api/tokens/{id} [delete]
func (h *Handler) Revoke(w http.ResponseWriter, r *http.Request) {
	userID, ok := auth.GetUserIDFromContext(r.Context())
	if !ok {
		httputil.RespondErrorWithCode(w, "missing authentication", httputil.CodeMissingAuth, http.StatusUnauthorized)
		return
	}

	if !h.service.RevokeToken(r.Context(), chi.URLParam(r, "id"), userID) {
		httputil.RespondErrorWithCode(w, "token not found", httputil.CodeTokenNotFound, http.StatusNotFound)
		return
	}

	httputil.RespondNoContent(w)
}
