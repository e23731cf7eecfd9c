package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	httpSwagger "github.com/swaggo/http-swagger"

	"github.com/redmonkez12/diary-api/internal/auth"
	"github.com/redmonkez12/diary-api/internal/config"
	"github.com/redmonkez12/diary-api/internal/diary"
	"github.com/redmonkez12/diary-api/internal/httputil"
	"github.com/redmonkez12/diary-api/internal/logging"
	"github.com/redmonkez12/diary-api/internal/pat"
	"github.com/redmonkez12/diary-api/internal/recommendation"
	"github.com/redmonkez12/diary-api/internal/settings"
)

// Handlers groups the API handlers mounted under /api
type Handlers struct {
	Tokens          *pat.Handler
	Settings        *settings.Handler
	Entries         *diary.Handler
	Recommendations *recommendation.Handler
}

// NewRouter creates and configures the HTTP router
func NewRouter(cfg *config.Config, h Handlers, authMiddleware *auth.Middleware, authorizer *auth.Authorizer, logger *logging.Logger) *chi.Mux {
	r := chi.NewRouter()

	// CORS - must be first
	if len(cfg.Server.TrustedOrigins) > 0 {
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins:   cfg.Server.TrustedOrigins,
			AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
			AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
			ExposedHeaders:   []string{"Content-Length"},
			AllowCredentials: true,
			MaxAge:           300, // 5 minutes
		}))
	}

	r.Use(SecurityHeaders(!cfg.Server.IsDevelopment()))
	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(logging.RequestLogger(logger))
	r.Use(middleware.Compress(5))

	r.Get("/health", handleHealth)
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())

	// Swagger UI - only in development
	if cfg.Server.IsDevelopment() {
		logger.Info("Swagger UI enabled at /swagger/*")
		r.Get("/swagger/*", httpSwagger.WrapHandler)
	}

	r.Route("/api", func(r chi.Router) {
		r.Use(authMiddleware.RequireAuth)
		r.Use(authorizer.Require)

		r.Get("/me", handleMe)

		r.Route("/tokens", func(r chi.Router) {
			r.Post("/", h.Tokens.Create)
			r.Get("/", h.Tokens.List)
			r.Delete("/{id}", h.Tokens.Revoke)
		})

		r.Route("/email-settings", func(r chi.Router) {
			r.Get("/", h.Settings.Get)
			r.Put("/", h.Settings.Put)
			r.Delete("/", h.Settings.Delete)
			r.Post("/test", h.Settings.SendTest)
		})

		r.Route("/entries", func(r chi.Router) {
			r.Get("/", h.Entries.List)
			r.Post("/", h.Entries.Create)
			r.Get("/{id}", h.Entries.Get)
			r.Put("/{id}", h.Entries.Update)
			r.Delete("/{id}", h.Entries.Delete)
		})

		r.Route("/recommendations", func(r chi.Router) {
			r.Get("/", h.Recommendations.History)
			r.Post("/", h.Recommendations.Generate)
		})
	})

	return r
}

// handleHealth is a simple health check endpoint
// @Summary      Health check
// @Description  Check if the API is running
// @Tags         health
// @Produce      json
// @Success      200 {object} map[string]string
// @Router       /health [get]
func handleHealth(w http.ResponseWriter, r *http.Request) {
	httputil.RespondJSON(w, map[string]string{"status": "api is running"}, http.StatusOK)
}

// MeResponse describes the authenticated caller
type MeResponse struct {
	ID         string `json:"id"`
	Name       string `json:"name"`
	Email      string `json:"email,omitempty"`
	AuthMethod string `json:"authMethod"`
	TokenID    string `json:"tokenId,omitempty"`
}

// handleMe echoes the caller's identity
// @Summary      Current identity
// @Description  Returns who the request is authenticated as
// @Tags         identity
// @Produce      json
// @Security     BearerAuth
// @Success      200 {object} MeResponse
// @Failure      401 {object} httputil.ErrorResponse
// @Router       /api/me [get]
func handleMe(w http.ResponseWriter, r *http.Request) {
	identity, ok := auth.IdentityFromContext(r.Context())
	if !ok {
		httputil.RespondErrorWithCode(w, "missing authentication", httputil.CodeMissingAuth, http.StatusUnauthorized)
		return
	}

	httputil.RespondJSON(w, MeResponse{
		ID:         identity.Subject,
		Name:       identity.Name,
		Email:      identity.Email,
		AuthMethod: string(identity.Method()),
		TokenID:    identity.Claim(auth.ClaimPATID),
	}, http.StatusOK)
}
