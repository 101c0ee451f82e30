package handlers

import (
	"log/slog"
	"net/http"
	"strings"

	"github.com/google/uuid"

	"github.com/haulops-platform/api/internal/ai"
	"github.com/haulops-platform/api/internal/audit"
	"github.com/haulops-platform/api/internal/config"
	"github.com/haulops-platform/api/internal/httpx"
	"github.com/haulops-platform/api/internal/importer"
	"github.com/haulops-platform/api/internal/middleware"
	"github.com/haulops-platform/api/internal/store"
)

type Server struct {
	Config config.Config
	Store  *store.Store
	Audit  *audit.Logger
	Logger *slog.Logger
	AI     *ai.Client
}

func NewServer(cfg config.Config, st *store.Store, auditLogger *audit.Logger, logger *slog.Logger, aiClient *ai.Client) *Server {
	return &Server{Config: cfg, Store: st, Audit: auditLogger, Logger: logger, AI: aiClient}
}

func (s *Server) GetHealth(w http.ResponseWriter, r *http.Request) {
	httpx.WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// valueFixer returns the import engine's correction backend, or nil when AI
// enrichment is disabled. The nil check must happen on the concrete type; a
// typed nil inside the interface would defeat the engine's own guard.
func (s *Server) valueFixer() importer.ValueFixer {
	if s.AI == nil {
		return nil
	}
	return s.AI
}

func requireActorIDs(w http.ResponseWriter, r *http.Request) (middleware.Actor, uuid.UUID, uuid.UUID, bool) {
	actor, ok := middleware.ActorFromContext(r.Context())
	if !ok {
		httpx.WriteError(w, r, http.StatusUnauthorized, "unauthorized", "Authentication required", nil)
		return middleware.Actor{}, uuid.Nil, uuid.Nil, false
	}
	tenantID, err := uuid.Parse(actor.TenantID)
	if err != nil {
		httpx.WriteError(w, r, http.StatusUnauthorized, "unauthorized", "Invalid tenant", nil)
		return middleware.Actor{}, uuid.Nil, uuid.Nil, false
	}
	userID, err := uuid.Parse(actor.UserID)
	if err != nil {
		httpx.WriteError(w, r, http.StatusUnauthorized, "unauthorized", "Invalid user", nil)
		return middleware.Actor{}, uuid.Nil, uuid.Nil, false
	}
	return actor, tenantID, userID, true
}

func derefString(value *string) string {
	if value == nil {
		return ""
	}
	return *value
}

func stringPtrOrNil(value string) *string {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return nil
	}
	return &trimmed
}
