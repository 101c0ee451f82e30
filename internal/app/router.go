package app

import (
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/getkin/kin-openapi/openapi3"
	"github.com/go-chi/chi/v5"
	openapimiddleware "github.com/oapi-codegen/nethttp-middleware"

	"github.com/haulops-platform/api/internal/ai"
	"github.com/haulops-platform/api/internal/audit"
	"github.com/haulops-platform/api/internal/config"
	"github.com/haulops-platform/api/internal/handlers"
	"github.com/haulops-platform/api/internal/httpx"
	"github.com/haulops-platform/api/internal/middleware"
	"github.com/haulops-platform/api/internal/store"
)

func NewRouter(cfg config.Config, st *store.Store, logger *slog.Logger) (http.Handler, error) {
	specPath := filepath.Join("openapi.yaml")
	if _, err := os.Stat(specPath); err != nil {
		return nil, fmt.Errorf("openapi spec not found at %s: %w", specPath, err)
	}

	loader := openapi3.NewLoader()
	doc, err := loader.LoadFromFile(specPath)
	if err != nil {
		return nil, fmt.Errorf("load openapi spec: %w", err)
	}
	if err := doc.Validate(loader.Context); err != nil {
		return nil, fmt.Errorf("validate openapi spec: %w", err)
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.SecurityHeaders(cfg.Env))
	r.Use(middleware.CORS(cfg.CORSAllowedOrigins))
	r.Use(middleware.Logging(logger))
	r.Use(middleware.LimitBodyBytesWithOverrides(cfg.APIMaxBodyBytes, []middleware.BodyLimitOverride{
		{PathPrefix: "/imports", MaxBytes: cfg.ImportMaxFileBytes + 1<<20},
	}))

	api := chi.NewRouter()
	api.Use(openapimiddleware.OapiRequestValidatorWithOptions(doc, &openapimiddleware.Options{
		SilenceServersWarning: true,
		ErrorHandler: func(w http.ResponseWriter, message string, statusCode int) {
			requestID := w.Header().Get("X-Request-Id")
			httpx.WriteJSON(w, statusCode, httpx.ErrorEnvelope{
				Error:     httpx.ErrorBody{Code: "validation_error", Message: message},
				RequestID: requestID,
			})
		},
	}))

	var aiClient *ai.Client
	if cfg.AIEnabled {
		aiClient = ai.NewClient(cfg.AIBaseURL, cfg.AIAPIKey, cfg.AIModel, logger)
	}

	auditLogger := audit.NewLogger(st)
	h := handlers.NewServer(cfg, st, auditLogger, logger, aiClient)

	authMW := middleware.AuthMiddleware{Store: st, CookieName: cfg.SessionCookieName}
	loginLimiter := middleware.NewLoginRateLimiter(10, time.Minute)

	api.Group(func(public chi.Router) {
		public.With(loginLimiter.Middleware).Post("/auth/login", h.PostAuthLogin)
		public.Get("/health", h.GetHealth)
	})

	api.Group(func(protected chi.Router) {
		protected.Use(authMW.RequireAuth)
		protected.Get("/auth/me", h.GetAuthMe)
		protected.Get("/auth/csrf", h.GetAuthCsrf)
		protected.With(middleware.EnforceCSRF(cfg.CSRFEnforce)).Post("/auth/logout", h.PostAuthLogout)

		protected.Get("/imports/runs", h.GetImportsRuns)
		protected.Get("/imports/runs/{runId}", h.GetImportsRunID)
		protected.Get("/imports/runs/{runId}/report", h.GetImportsRunIDReport)
		protected.Get("/imports/runs/{runId}/errors.csv", h.GetImportsRunIDErrorsCsv)
		protected.Get("/imports/templates/{entity}.csv", h.GetImportsTemplateCsv)

		protected.With(middleware.EnforceCSRF(cfg.CSRFEnforce)).
			Post("/imports/{entity}/mapping-suggest", h.PostImportsMappingSuggest)
		protected.With(middleware.EnforceCSRF(cfg.CSRFEnforce)).
			Post("/imports/{entity}/preview", h.PostImportsEntityPreview)
		protected.With(
			middleware.RequireRole("owner", "admin", "dispatcher"),
			middleware.EnforceCSRF(cfg.CSRFEnforce),
		).Post("/imports/{entity}/commit", h.PostImportsEntityCommit)

		protected.Get("/exports/customers.csv", h.GetExportsCustomersCsv)
		protected.Get("/exports/drivers.csv", h.GetExportsDriversCsv)
		protected.Get("/exports/trucks.csv", h.GetExportsTrucksCsv)
		protected.Get("/exports/loads.csv", h.GetExportsLoadsCsv)
	})

	r.Mount("/api", api)
	return r, nil
}
