package settings

import (
	"context"
	"errors"
	"net/http"

	"github.com/redmonkez12/diary-api/internal/auth"
	"github.com/redmonkez12/diary-api/internal/httputil"
	"github.com/redmonkez12/diary-api/internal/logging"
	"github.com/redmonkez12/diary-api/internal/ratelimit"
)

// TestSender delivers a recommendation email right away
type TestSender interface {
	SendTest(ctx context.Context, s *EmailSettings) (string, error)
}

// RateLimiter limits test sends per user
type RateLimiter interface {
	CheckWithPurpose(ctx context.Context, key, purpose string) (bool, error)
	RecordWithPurpose(ctx context.Context, key, purpose string) error
}

// TestSendResponse is returned when a test email was accepted
type TestSendResponse struct {
	OperationID string `json:"operationId"`
	Message     string `json:"message"`
}

// Handler contains HTTP handlers for email settings endpoints
type Handler struct {
	service     *Service
	sender      TestSender
	rateLimiter RateLimiter
}

func NewHandler(service *Service, sender TestSender, rateLimiter RateLimiter) *Handler {
	return &Handler{service: service, sender: sender, rateLimiter: rateLimiter}
}

// Get returns the caller's email settings
// @Summary      Get email settings
// @Tags         email-settings
// @Produce      json
// @Security     BearerAuth
// @Success      200 {object} EmailSettings
// @Failure      404 {object} httputil.ErrorResponse
// @Router       /api/email-settings [get]
func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	logger := logging.GetLoggerFromContext(r.Context())
	userID, _ := auth.GetUserIDFromContext(r.Context())

	s, err := h.service.Get(r.Context(), userID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			httputil.RespondErrorWithCode(w, "email settings not found", httputil.CodeSettingsNotFound, http.StatusNotFound)
			return
		}
		logger.Error("failed to get email settings", "error", err.Error())
		httputil.RespondErrorWithCode(w, "failed to get email settings", httputil.CodeInternalError, http.StatusInternalServerError)
		return
	}

	httputil.RespondJSON(w, s, http.StatusOK)
}

// Put creates or replaces the caller's email settings
// @Summary      Save email settings
// @Description  The recipient address is taken from the caller's identity
// @Tags         email-settings
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        request body UpdateRequest true "Settings"
// @Success      200 {object} EmailSettings
// @Failure      400 {object} httputil.ErrorResponse
// @Router       /api/email-settings [put]
func (h *Handler) Put(w http.ResponseWriter, r *http.Request) {
	logger := logging.GetLoggerFromContext(r.Context())
	identity, _ := auth.IdentityFromContext(r.Context())

	var req UpdateRequest
	if err := httputil.DecodeJSON(w, r, &req); err != nil {
		logger.Warn("invalid email settings request body", "error", err.Error())
		httputil.RespondErrorWithCode(w, "invalid request body", httputil.CodeInvalidRequestBody, http.StatusBadRequest)
		return
	}

	saved, err := h.service.Save(r.Context(), identity, req)
	if err != nil {
		switch {
		case errors.Is(err, ErrInvalidTime):
			httputil.RespondErrorWithCode(w, err.Error(), httputil.CodeInvalidTime, http.StatusBadRequest)
		case errors.Is(err, ErrInvalidTimeZone):
			httputil.RespondErrorWithCode(w, err.Error(), httputil.CodeInvalidTimeZone, http.StatusBadRequest)
		case errors.Is(err, ErrEmailUnknown):
			httputil.RespondErrorWithCode(w, err.Error(), httputil.CodeEmailUnknown, http.StatusBadRequest)
		default:
			logger.Error("failed to save email settings", "error", err.Error())
			httputil.RespondErrorWithCode(w, "failed to save email settings", httputil.CodeInternalError, http.StatusInternalServerError)
		}
		return
	}

	httputil.RespondJSON(w, saved, http.StatusOK)
}

// Delete removes the caller's email settings
// @Summary      Delete email settings
// @Tags         email-settings
// @Security     BearerAuth
// @Success      204
// @Failure      404 {object} httputil.ErrorResponse
// @Router       /api/email-settings [delete]
func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	logger := logging.GetLoggerFromContext(r.Context())
	userID, _ := auth.GetUserIDFromContext(r.Context())

	if err := h.service.Delete(r.Context(), userID); err != nil {
		if errors.Is(err, ErrNotFound) {
			httputil.RespondErrorWithCode(w, "email settings not found", httputil.CodeSettingsNotFound, http.StatusNotFound)
			return
		}
		logger.Error("failed to delete email settings", "error", err.Error())
		httputil.RespondErrorWithCode(w, "failed to delete email settings", httputil.CodeInternalError, http.StatusInternalServerError)
		return
	}

	httputil.RespondNoContent(w)
}

// SendTest sends a recommendation email immediately
// @Summary      Send a test email
// @Description  Generates a recommendation and emails it now without affecting the schedule
// @Tags         email-settings
// @Produce      json
// @Security     BearerAuth
// @Success      202 {object} TestSendResponse
// @Failure      404 {object} httputil.ErrorResponse
// @Failure      429 {object} httputil.ErrorResponse
// @Failure      502 {object} httputil.ErrorResponse
// @Router       /api/email-settings/test [post]
func (h *Handler) SendTest(w http.ResponseWriter, r *http.Request) {
	logger := logging.GetLoggerFromContext(r.Context())
	userID, _ := auth.GetUserIDFromContext(r.Context())

	if h.rateLimiter != nil {
		exceeded, err := h.rateLimiter.CheckWithPurpose(r.Context(), userID, ratelimit.PurposeTestEmail)
		if err != nil {
			logger.Error("failed to check test email rate limit", "error", err.Error())
		} else if exceeded {
			httputil.RespondErrorWithCode(w, "too many requests, please try again later", httputil.CodeTooManyRequests, http.StatusTooManyRequests)
			return
		}
	}

	s, err := h.service.Get(r.Context(), userID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			httputil.RespondErrorWithCode(w, "email settings not found", httputil.CodeSettingsNotFound, http.StatusNotFound)
			return
		}
		logger.Error("failed to get email settings", "error", err.Error())
		httputil.RespondErrorWithCode(w, "failed to get email settings", httputil.CodeInternalError, http.StatusInternalServerError)
		return
	}

	if h.rateLimiter != nil {
		if err := h.rateLimiter.RecordWithPurpose(r.Context(), userID, ratelimit.PurposeTestEmail); err != nil {
			logger.Error("failed to record test email", "error", err.Error())
		}
	}

	operationID, err := h.sender.SendTest(r.Context(), s)
	if err != nil {
		logger.Error("test email failed", "error", err.Error())
		httputil.RespondErrorWithCode(w, "failed to send test email", httputil.CodeEmailSendFailed, http.StatusBadGateway)
		return
	}

	httputil.RespondJSON(w, TestSendResponse{
		OperationID: operationID,
		Message:     "Test email accepted for delivery to " + s.Email,
	}, http.StatusAccepted)
}
