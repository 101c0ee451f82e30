package app

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"

	"github.com/haulops-platform/api/internal/auth"
	"github.com/haulops-platform/api/internal/config"
	"github.com/haulops-platform/api/internal/store"
)

const testCookieName = "ho_sess"

func TestLoginAndMe(t *testing.T) {
	env := setupTestEnv(t)
	ctx := context.Background()

	seedTenantUser(t, ctx, env.pool, "tenant-login", "Tenant Login", "login@example.com", "Password123!", "admin")

	cookie := login(t, env.router, "login@example.com", "Password123!")
	status, body := request(t, env.router, http.MethodGet, "/api/auth/me", nil, cookie, "")
	if status != http.StatusOK {
		t.Fatalf("expected 200 from /auth/me, got %d (%s)", status, string(body))
	}

	var me struct {
		User struct {
			Email string `json:"email"`
			Role  string `json:"role"`
		} `json:"user"`
		Tenant struct {
			Slug string `json:"slug"`
		} `json:"tenant"`
	}
	if err := json.Unmarshal(body, &me); err != nil {
		t.Fatalf("parse /auth/me body: %v", err)
	}
	if me.User.Email != "login@example.com" || me.User.Role != "admin" {
		t.Fatalf("unexpected principal: %+v", me.User)
	}
	if me.Tenant.Slug != "tenant-login" {
		t.Fatalf("unexpected tenant slug %q", me.Tenant.Slug)
	}

	payload, _ := json.Marshal(map[string]string{"email": "login@example.com", "password": "wrong"})
	status, _ = request(t, env.router, http.MethodPost, "/api/auth/login", payload, nil, "")
	if status != http.StatusUnauthorized {
		t.Fatalf("expected 401 for bad password, got %d", status)
	}
}

func TestLogoutRevokesSession(t *testing.T) {
	env := setupTestEnv(t)
	ctx := context.Background()

	seedTenantUser(t, ctx, env.pool, "tenant-session", "Tenant Session", "session@example.com", "Password123!", "admin")

	cookie := login(t, env.router, "session@example.com", "Password123!")
	status, _ := request(t, env.router, http.MethodGet, "/api/auth/me", nil, cookie, "")
	if status != http.StatusOK {
		t.Fatalf("expected 200 before logout, got %d", status)
	}

	csrf := csrfToken(t, env.router, cookie)
	status, _ = request(t, env.router, http.MethodPost, "/api/auth/logout", nil, cookie, csrf)
	if status != http.StatusNoContent {
		t.Fatalf("expected 204 logout response, got %d", status)
	}

	status, _ = request(t, env.router, http.MethodGet, "/api/auth/me", nil, cookie, "")
	if status != http.StatusUnauthorized {
		t.Fatalf("expected 401 after logout, got %d", status)
	}
}

func TestImportPreviewDoesNotPersist(t *testing.T) {
	env := setupTestEnv(t)
	ctx := context.Background()

	tenantID := seedTenantUser(t, ctx, env.pool, "tenant-preview", "Tenant Preview", "preview@example.com", "Password123!", "admin")

	cookie := login(t, env.router, "preview@example.com", "Password123!")
	csrf := csrfToken(t, env.router, cookie)

	csv := "Customer Name,MC Number,Phone\nAcme Logistics,MC123456,555-0100\nGlobe Freight,MC654321,555-0200\n"
	status, body := uploadImport(t, env.router, cookie, csrf, "/api/imports/customers/preview", csv, "")
	if status != http.StatusOK {
		t.Fatalf("expected 200 preview, got %d (%s)", status, string(body))
	}

	var result struct {
		Run struct {
			Summary struct {
				Total   int  `json:"total"`
				Created int  `json:"created"`
				Success bool `json:"success"`
			} `json:"summary"`
		} `json:"run"`
		Preview []any `json:"preview"`
	}
	if err := json.Unmarshal(body, &result); err != nil {
		t.Fatalf("parse preview body: %v", err)
	}
	if result.Run.Summary.Total != 2 || result.Run.Summary.Created != 2 || !result.Run.Summary.Success {
		t.Fatalf("unexpected preview summary: %+v", result.Run.Summary)
	}
	if len(result.Preview) != 2 {
		t.Fatalf("expected 2 preview entries, got %d", len(result.Preview))
	}

	var count int
	if err := env.pool.QueryRow(ctx, `SELECT COUNT(*) FROM customers WHERE tenant_id = $1`, tenantID).Scan(&count); err != nil {
		t.Fatalf("count customers: %v", err)
	}
	if count != 0 {
		t.Fatalf("preview persisted %d customers", count)
	}
}

func TestImportCommitIsIdempotent(t *testing.T) {
	env := setupTestEnv(t)
	ctx := context.Background()

	tenantID := seedTenantUser(t, ctx, env.pool, "tenant-commit", "Tenant Commit", "commit@example.com", "Password123!", "admin")

	cookie := login(t, env.router, "commit@example.com", "Password123!")
	csrf := csrfToken(t, env.router, cookie)

	csv := "Customer Name,MC Number,Phone\nAcme Logistics,MC123456,555-0100\nGlobe Freight,MC654321,555-0200\n"
	status, body := uploadImport(t, env.router, cookie, csrf, "/api/imports/customers/commit", csv, "")
	if status != http.StatusOK {
		t.Fatalf("expected 200 commit, got %d (%s)", status, string(body))
	}
	summary := parseSummary(t, body)
	if summary.Created != 2 || summary.Errors != 0 {
		t.Fatalf("first commit: expected 2 created, got %+v", summary)
	}

	status, body = uploadImport(t, env.router, cookie, csrf, "/api/imports/customers/commit", csv, "")
	if status != http.StatusOK {
		t.Fatalf("expected 200 on re-import, got %d (%s)", status, string(body))
	}
	summary = parseSummary(t, body)
	if summary.Created != 0 || summary.Skipped != 2 {
		t.Fatalf("re-import: expected 2 skipped, got %+v", summary)
	}

	var count int
	if err := env.pool.QueryRow(ctx, `SELECT COUNT(*) FROM customers WHERE tenant_id = $1`, tenantID).Scan(&count); err != nil {
		t.Fatalf("count customers: %v", err)
	}
	if count != 2 {
		t.Fatalf("expected 2 customers after re-import, got %d", count)
	}
}

func TestImportCommitRequiresRole(t *testing.T) {
	env := setupTestEnv(t)
	ctx := context.Background()

	seedTenantUser(t, ctx, env.pool, "tenant-role", "Tenant Role", "viewer@example.com", "Password123!", "viewer")

	cookie := login(t, env.router, "viewer@example.com", "Password123!")
	csrf := csrfToken(t, env.router, cookie)

	csv := "Customer Name\nAcme Logistics\n"
	status, _ := uploadImport(t, env.router, cookie, csrf, "/api/imports/customers/commit", csv, "")
	if status != http.StatusForbidden {
		t.Fatalf("expected 403 for viewer commit, got %d", status)
	}

	status, _ = uploadImport(t, env.router, cookie, csrf, "/api/imports/customers/preview", csv, "")
	if status != http.StatusOK {
		t.Fatalf("expected 200 for viewer preview, got %d", status)
	}
}

func TestImportRunTenantIsolation(t *testing.T) {
	env := setupTestEnv(t)
	ctx := context.Background()

	seedTenantUser(t, ctx, env.pool, "tenant-iso-a", "Tenant Iso A", "iso-a@example.com", "Password123!", "admin")
	seedTenantUser(t, ctx, env.pool, "tenant-iso-b", "Tenant Iso B", "iso-b@example.com", "Password123!", "admin")

	cookieA := login(t, env.router, "iso-a@example.com", "Password123!")
	csrfA := csrfToken(t, env.router, cookieA)

	csv := "Customer Name\nAcme Logistics\n"
	status, body := uploadImport(t, env.router, cookieA, csrfA, "/api/imports/customers/commit", csv, "")
	if status != http.StatusOK {
		t.Fatalf("expected 200 commit, got %d (%s)", status, string(body))
	}
	var result struct {
		Run struct {
			ID string `json:"id"`
		} `json:"run"`
	}
	if err := json.Unmarshal(body, &result); err != nil {
		t.Fatalf("parse commit body: %v", err)
	}
	if _, err := uuid.Parse(result.Run.ID); err != nil {
		t.Fatalf("run id missing: %v", err)
	}

	cookieB := login(t, env.router, "iso-b@example.com", "Password123!")
	status, _ = request(t, env.router, http.MethodGet, "/api/imports/runs/"+result.Run.ID, nil, cookieB, "")
	if status != http.StatusNotFound {
		t.Fatalf("expected 404 for cross-tenant run read, got %d", status)
	}
}

func TestImportTemplateAndErrorsCsv(t *testing.T) {
	env := setupTestEnv(t)
	ctx := context.Background()

	seedTenantUser(t, ctx, env.pool, "tenant-csv", "Tenant CSV", "csv@example.com", "Password123!", "admin")

	cookie := login(t, env.router, "csv@example.com", "Password123!")
	status, body := request(t, env.router, http.MethodGet, "/api/imports/templates/drivers.csv", nil, cookie, "")
	if status != http.StatusOK {
		t.Fatalf("expected 200 template, got %d", status)
	}
	if !bytes.Contains(body, []byte("driverNumber")) {
		t.Fatalf("template missing driverNumber header: %s", string(body))
	}

	csrf := csrfToken(t, env.router, cookie)
	csv := "Customer Name,Phone\n,555-0100\n"
	status, body = uploadImport(t, env.router, cookie, csrf, "/api/imports/customers/commit", csv, "")
	if status != http.StatusOK {
		t.Fatalf("expected 200 commit, got %d (%s)", status, string(body))
	}
	var result struct {
		Run struct {
			ID string `json:"id"`
		} `json:"run"`
	}
	if err := json.Unmarshal(body, &result); err != nil {
		t.Fatalf("parse commit body: %v", err)
	}

	status, body = request(t, env.router, http.MethodGet, "/api/imports/runs/"+result.Run.ID+"/errors.csv", nil, cookie, "")
	if status != http.StatusOK {
		t.Fatalf("expected 200 errors csv, got %d", status)
	}
	if !bytes.Contains(body, []byte("row_number")) {
		t.Fatalf("errors csv missing header: %s", string(body))
	}
}

type testEnv struct {
	pool   *pgxpool.Pool
	router http.Handler
}

func setupTestEnv(t *testing.T) testEnv {
	t.Helper()
	databaseURL := os.Getenv("TEST_DATABASE_URL")
	if databaseURL == "" {
		t.Skip("TEST_DATABASE_URL is not set")
	}

	// NewRouter loads openapi.yaml relative to the working directory.
	t.Chdir(filepath.Join("..", ".."))

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		t.Fatalf("connect test db: %v", err)
	}
	t.Cleanup(pool.Close)

	resetSchema(t, ctx, pool, databaseURL)

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	cfg := config.Config{
		Addr:               ":0",
		DatabaseURL:        databaseURL,
		Env:                "test",
		APIMaxBodyBytes:    2 << 20,
		ImportMaxFileBytes: 25 << 20,
		ImportMaxRows:      10000,
		SessionCookieName:  testCookieName,
		SessionTTL:         12 * time.Hour,
		CSRFEnforce:        true,
		Import: config.ImportConfig{
			BatchSize:           50,
			PreviewCap:          10,
			LoadPreviewCap:      100,
			MaxRowMessages:      500,
			DefaultPayRate:      0.65,
			HighMileageMiles:    4000,
			MaxCargoWeightLbs:   80000,
			MaxPlausibleRevenue: 100000,
		},
	}

	router, err := NewRouter(cfg, store.New(pool), logger)
	if err != nil {
		t.Fatalf("create router: %v", err)
	}

	return testEnv{pool: pool, router: router}
}

func resetSchema(t *testing.T, ctx context.Context, pool *pgxpool.Pool, databaseURL string) {
	t.Helper()

	if _, err := pool.Exec(ctx, `DROP SCHEMA public CASCADE; CREATE SCHEMA public;`); err != nil {
		t.Fatalf("drop schema: %v", err)
	}

	db, err := sql.Open("pgx", databaseURL)
	if err != nil {
		t.Fatalf("open migration db: %v", err)
	}
	defer db.Close()
	if err := goose.Up(db, "migrations"); err != nil {
		t.Fatalf("apply migrations: %v", err)
	}
}

func seedTenantUser(t *testing.T, ctx context.Context, pool *pgxpool.Pool, slug, name, email, password, role string) uuid.UUID {
	t.Helper()
	var tenantID uuid.UUID
	if err := pool.QueryRow(ctx, `INSERT INTO tenants (slug, name) VALUES ($1, $2) RETURNING id`, slug, name).Scan(&tenantID); err != nil {
		t.Fatalf("seed tenant: %v", err)
	}

	passwordHash, err := auth.HashPassword(password)
	if err != nil {
		t.Fatalf("hash password: %v", err)
	}
	if _, err := pool.Exec(ctx, `
		INSERT INTO users (tenant_id, email, first_name, last_name, role, password_hash, is_active)
		VALUES ($1, $2, 'Test', 'User', $3, $4, TRUE)
	`, tenantID, email, role, passwordHash); err != nil {
		t.Fatalf("seed user: %v", err)
	}

	if _, err := pool.Exec(ctx, `
		INSERT INTO billing_entities (tenant_id, number, company_name, is_default)
		VALUES ($1, 'MC-999999', $2, TRUE)
	`, tenantID, name); err != nil {
		t.Fatalf("seed billing entity: %v", err)
	}
	return tenantID
}

func login(t *testing.T, router http.Handler, email, password string) *http.Cookie {
	t.Helper()
	payload, _ := json.Marshal(map[string]string{"email": email, "password": password})
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/auth/login", bytes.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	req.RemoteAddr = "127.0.0.1:12345"
	router.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		body, _ := io.ReadAll(rec.Result().Body)
		t.Fatalf("login expected 200, got %d with body: %s", rec.Code, string(body))
	}

	for _, c := range rec.Result().Cookies() {
		if c.Name == testCookieName {
			return c
		}
	}
	t.Fatal("session cookie not set")
	return nil
}

func csrfToken(t *testing.T, router http.Handler, session *http.Cookie) string {
	t.Helper()
	status, body := request(t, router, http.MethodGet, "/api/auth/csrf", nil, session, "")
	if status != http.StatusOK {
		t.Fatalf("csrf expected 200, got %d (%s)", status, string(body))
	}
	var payload map[string]string
	if err := json.Unmarshal(body, &payload); err != nil {
		t.Fatalf("parse csrf body: %v", err)
	}
	return payload["csrfToken"]
}

type summaryPayload struct {
	Total   int  `json:"total"`
	Created int  `json:"created"`
	Updated int  `json:"updated"`
	Skipped int  `json:"skipped"`
	Errors  int  `json:"errors"`
	Success bool `json:"success"`
}

func parseSummary(t *testing.T, body []byte) summaryPayload {
	t.Helper()
	var result struct {
		Run struct {
			Summary summaryPayload `json:"summary"`
		} `json:"run"`
	}
	if err := json.Unmarshal(body, &result); err != nil {
		t.Fatalf("parse summary: %v", err)
	}
	return result.Run.Summary
}

func uploadImport(t *testing.T, router http.Handler, session *http.Cookie, csrf, path, csvContent, options string) (int, []byte) {
	t.Helper()

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	part, err := mw.CreateFormFile("file", "upload.csv")
	if err != nil {
		t.Fatalf("create form file: %v", err)
	}
	if _, err := io.WriteString(part, csvContent); err != nil {
		t.Fatalf("write csv part: %v", err)
	}
	if options != "" {
		if err := mw.WriteField("options", options); err != nil {
			t.Fatalf("write options part: %v", err)
		}
	}
	if err := mw.Close(); err != nil {
		t.Fatalf("close multipart writer: %v", err)
	}

	req := httptest.NewRequest(http.MethodPost, path, &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	req.RemoteAddr = "127.0.0.1:12345"
	if session != nil {
		req.AddCookie(session)
	}
	if csrf != "" {
		req.Header.Set("X-CSRF-Token", csrf)
	}
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	body, _ := io.ReadAll(rec.Result().Body)
	return rec.Code, body
}

func request(t *testing.T, router http.Handler, method, path string, body []byte, session *http.Cookie, csrf string) (int, []byte) {
	t.Helper()
	req := httptest.NewRequest(method, path, bytes.NewReader(body))
	req.RemoteAddr = "127.0.0.1:12345"
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if session != nil {
		req.AddCookie(session)
	}
	if csrf != "" {
		req.Header.Set("X-CSRF-Token", csrf)
	}
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	resBody, _ := io.ReadAll(rec.Result().Body)
	return rec.Code, resBody
}
