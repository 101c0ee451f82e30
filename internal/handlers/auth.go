package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	openapi_types "github.com/oapi-codegen/runtime/types"

	"github.com/haulops-platform/api/internal/audit"
	"github.com/haulops-platform/api/internal/auth"
	"github.com/haulops-platform/api/internal/httpx"
	"github.com/haulops-platform/api/internal/middleware"
)

type loginRequest struct {
	Email    openapi_types.Email `json:"email"`
	Password string              `json:"password"`
}

type sessionUser struct {
	ID       uuid.UUID           `json:"id"`
	Email    openapi_types.Email `json:"email"`
	FullName string              `json:"fullName"`
	Role     string              `json:"role"`
}

type sessionTenant struct {
	ID   uuid.UUID `json:"id"`
	Slug string    `json:"slug"`
	Name string    `json:"name"`
}

type authSessionResponse struct {
	User   sessionUser   `json:"user"`
	Tenant sessionTenant `json:"tenant"`
}

func (s *Server) PostAuthLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httpx.WriteError(w, r, http.StatusBadRequest, "invalid_body", "Malformed JSON body", nil)
		return
	}

	user, err := s.Store.GetUserByEmail(r.Context(), string(req.Email))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			httpx.WriteError(w, r, http.StatusUnauthorized, "invalid_credentials", "Invalid email or password", nil)
			return
		}
		httpx.WriteError(w, r, http.StatusInternalServerError, "internal_error", "Failed to load user", nil)
		return
	}

	if !user.IsActive {
		httpx.WriteError(w, r, http.StatusUnauthorized, "invalid_credentials", "Invalid email or password", nil)
		return
	}
	ok, err := auth.VerifyPassword(req.Password, user.PasswordHash)
	if err != nil {
		httpx.WriteError(w, r, http.StatusInternalServerError, "internal_error", "Password verification failed", nil)
		return
	}
	if !ok {
		httpx.WriteError(w, r, http.StatusUnauthorized, "invalid_credentials", "Invalid email or password", nil)
		return
	}

	if old, err := r.Cookie(s.Config.SessionCookieName); err == nil && old.Value != "" {
		_ = s.Store.DeleteSessionByTokenHash(r.Context(), auth.HashToken(old.Value))
	}

	sessionToken, err := auth.GenerateToken()
	if err != nil {
		httpx.WriteError(w, r, http.StatusInternalServerError, "internal_error", "Failed to create session", nil)
		return
	}
	csrfToken, err := auth.GenerateToken()
	if err != nil {
		httpx.WriteError(w, r, http.StatusInternalServerError, "internal_error", "Failed to create CSRF token", nil)
		return
	}

	expiresAt := time.Now().Add(s.Config.SessionTTL)
	if err := s.Store.CreateSession(r.Context(), uuid.New(), user.ID, auth.HashToken(sessionToken), csrfToken, expiresAt); err != nil {
		httpx.WriteError(w, r, http.StatusInternalServerError, "internal_error", "Failed to save session", nil)
		return
	}

	http.SetCookie(w, &http.Cookie{
		Name:     s.Config.SessionCookieName,
		Value:    sessionToken,
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
		Secure:   s.Config.SecureCookies,
		Expires:  expiresAt,
	})

	userID := user.ID
	_ = s.Audit.Log(r.Context(), audit.Entry{
		TenantID:   user.TenantID,
		UserID:     &userID,
		Action:     "auth.login",
		EntityType: "session",
		RequestID:  middleware.RequestIDFromContext(r.Context()),
	})

	tenant, err := s.Store.GetTenant(r.Context(), user.TenantID)
	if err != nil {
		httpx.WriteError(w, r, http.StatusInternalServerError, "internal_error", "Failed to load tenant", nil)
		return
	}

	httpx.WriteJSON(w, http.StatusOK, authSessionResponse{
		User: sessionUser{
			ID:       user.ID,
			Email:    openapi_types.Email(user.Email),
			FullName: strings.TrimSpace(user.FirstName + " " + user.LastName),
			Role:     user.Role,
		},
		Tenant: sessionTenant{
			ID:   tenant.ID,
			Slug: tenant.Slug,
			Name: tenant.Name,
		},
	})
}

func (s *Server) PostAuthLogout(w http.ResponseWriter, r *http.Request) {
	actor, tenantID, userID, ok := requireActorIDs(w, r)
	if !ok {
		return
	}

	sessionID, err := uuid.Parse(actor.SessionID)
	if err != nil {
		httpx.WriteError(w, r, http.StatusUnauthorized, "unauthorized", "Invalid session", nil)
		return
	}

	if err := s.Store.DeleteSession(r.Context(), sessionID); err != nil {
		httpx.WriteError(w, r, http.StatusInternalServerError, "internal_error", "Failed to revoke session", nil)
		return
	}

	http.SetCookie(w, &http.Cookie{
		Name:     s.Config.SessionCookieName,
		Value:    "",
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
		Secure:   s.Config.SecureCookies,
		MaxAge:   -1,
	})

	_ = s.Audit.Log(r.Context(), audit.Entry{
		TenantID:   tenantID,
		UserID:     &userID,
		Action:     "auth.logout",
		EntityType: "session",
		RequestID:  middleware.RequestIDFromContext(r.Context()),
	})

	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) GetAuthMe(w http.ResponseWriter, r *http.Request) {
	actor, tenantID, userID, ok := requireActorIDs(w, r)
	if !ok {
		return
	}

	httpx.WriteJSON(w, http.StatusOK, authSessionResponse{
		User: sessionUser{
			ID:       userID,
			Email:    openapi_types.Email(actor.Email),
			FullName: actor.FullName,
			Role:     actor.Role,
		},
		Tenant: sessionTenant{
			ID:   tenantID,
			Slug: actor.TenantSlug,
			Name: actor.TenantName,
		},
	})
}

func (s *Server) GetAuthCsrf(w http.ResponseWriter, r *http.Request) {
	actor, ok := middleware.ActorFromContext(r.Context())
	if !ok {
		httpx.WriteError(w, r, http.StatusUnauthorized, "unauthorized", "Authentication required", nil)
		return
	}

	httpx.WriteJSON(w, http.StatusOK, map[string]string{"csrfToken": actor.CSRFToken})
}
