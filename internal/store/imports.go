package store

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/haulops-platform/api/internal/model"
)

func (s *Store) InsertImportRun(ctx context.Context, run model.ImportRun) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO import_runs (id, tenant_id, entity, mode, filename, file_sha256, mapping_json,
			summary_json, status)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		run.ID, run.TenantID, run.Entity, run.Mode, run.Filename, run.FileSHA256,
		run.MappingJSON, run.SummaryJSON, run.Status)
	if err != nil {
		return fmt.Errorf("insert import run: %w", err)
	}
	return nil
}

func (s *Store) CompleteImportRun(ctx context.Context, id uuid.UUID, status string, summaryJSON []byte) error {
	_, err := s.pool.Exec(ctx, `
		UPDATE import_runs SET status = $2, summary_json = $3, completed_at = now()
		WHERE id = $1`, id, status, summaryJSON)
	if err != nil {
		return fmt.Errorf("complete import run: %w", err)
	}
	return nil
}

func (s *Store) GetImportRun(ctx context.Context, tenantID, id uuid.UUID) (model.ImportRun, error) {
	var run model.ImportRun
	err := s.pool.QueryRow(ctx, `
		SELECT id, tenant_id, entity, mode, filename, file_sha256, mapping_json, summary_json,
			status, created_at, completed_at
		FROM import_runs WHERE tenant_id = $1 AND id = $2`, tenantID, id).
		Scan(&run.ID, &run.TenantID, &run.Entity, &run.Mode, &run.Filename, &run.FileSHA256,
			&run.MappingJSON, &run.SummaryJSON, &run.Status, &run.CreatedAt, &run.CompletedAt)
	if err != nil {
		return model.ImportRun{}, fmt.Errorf("get import run: %w", err)
	}
	return run, nil
}

func (s *Store) ListImportRuns(ctx context.Context, tenantID uuid.UUID, limit int) ([]model.ImportRun, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, tenant_id, entity, mode, filename, file_sha256, mapping_json, summary_json,
			status, created_at, completed_at
		FROM import_runs WHERE tenant_id = $1
		ORDER BY created_at DESC
		LIMIT $2`, tenantID, limit)
	if err != nil {
		return nil, fmt.Errorf("list import runs: %w", err)
	}
	defer rows.Close()

	var out []model.ImportRun
	for rows.Next() {
		var run model.ImportRun
		if err := rows.Scan(&run.ID, &run.TenantID, &run.Entity, &run.Mode, &run.Filename,
			&run.FileSHA256, &run.MappingJSON, &run.SummaryJSON, &run.Status, &run.CreatedAt,
			&run.CompletedAt); err != nil {
			return nil, fmt.Errorf("scan import run: %w", err)
		}
		out = append(out, run)
	}
	return out, rows.Err()
}

func (s *Store) InsertImportRowResults(ctx context.Context, results []model.ImportRowResult) error {
	batch := &pgx.Batch{}
	for _, r := range results {
		batch.Queue(`
			INSERT INTO import_row_results (id, tenant_id, import_run_id, row_number, severity,
				field, message, raw_value)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
			r.ID, r.TenantID, r.ImportRunID, r.RowNumber, r.Severity, r.Field, r.Message, r.RawValue)
	}
	return s.sendBatch(ctx, batch)
}

func (s *Store) ListImportRowResults(ctx context.Context, tenantID, runID uuid.UUID) ([]model.ImportRowResult, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, tenant_id, import_run_id, row_number, severity, field, message, raw_value
		FROM import_row_results
		WHERE tenant_id = $1 AND import_run_id = $2
		ORDER BY row_number`, tenantID, runID)
	if err != nil {
		return nil, fmt.Errorf("list import row results: %w", err)
	}
	defer rows.Close()

	var out []model.ImportRowResult
	for rows.Next() {
		var r model.ImportRowResult
		if err := rows.Scan(&r.ID, &r.TenantID, &r.ImportRunID, &r.RowNumber, &r.Severity,
			&r.Field, &r.Message, &r.RawValue); err != nil {
			return nil, fmt.Errorf("scan import row result: %w", err)
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

func (s *Store) InsertAuditEntry(ctx context.Context, entry model.AuditEntry) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO audit_logs (id, tenant_id, user_id, action, entity_type, entity_id, request_id, metadata)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		entry.ID, entry.TenantID, entry.UserID, entry.Action, entry.EntityType, entry.EntityID,
		entry.RequestID, entry.Metadata)
	if err != nil {
		return fmt.Errorf("insert audit log: %w", err)
	}
	return nil
}

// Principal is everything the session middleware needs about an
// authenticated request.
type Principal struct {
	SessionID  uuid.UUID
	UserID     uuid.UUID
	TenantID   uuid.UUID
	Email      string
	FullName   string
	Role       string
	TenantSlug string
	TenantName string
	CSRFToken  string
	ExpiresAt  time.Time
}

func (s *Store) GetUserByEmail(ctx context.Context, email string) (model.User, error) {
	var u model.User
	err := s.pool.QueryRow(ctx, `
		SELECT id, tenant_id, email, first_name, last_name, phone, role, password_hash, is_active
		FROM users WHERE lower(email) = lower($1)`, email).
		Scan(&u.ID, &u.TenantID, &u.Email, &u.FirstName, &u.LastName, &u.Phone, &u.Role,
			&u.PasswordHash, &u.IsActive)
	if err != nil {
		return model.User{}, err
	}
	return u, nil
}

func (s *Store) GetTenant(ctx context.Context, id uuid.UUID) (model.Tenant, error) {
	var t model.Tenant
	err := s.pool.QueryRow(ctx, `SELECT id, slug, name, created_at FROM tenants WHERE id = $1`, id).
		Scan(&t.ID, &t.Slug, &t.Name, &t.CreatedAt)
	if err != nil {
		return model.Tenant{}, err
	}
	return t, nil
}

func (s *Store) CreateSession(ctx context.Context, id, userID uuid.UUID, tokenHash, csrfToken string, expiresAt time.Time) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO sessions (id, user_id, token_hash, csrf_token, expires_at)
		VALUES ($1, $2, $3, $4, $5)`, id, userID, tokenHash, csrfToken, expiresAt)
	if err != nil {
		return fmt.Errorf("create session: %w", err)
	}
	return nil
}

func (s *Store) GetSessionPrincipalByTokenHash(ctx context.Context, tokenHash string) (Principal, error) {
	var p Principal
	err := s.pool.QueryRow(ctx, `
		SELECT s.id, u.id, u.tenant_id, u.email, trim(u.first_name || ' ' || u.last_name),
			u.role, t.slug, t.name, s.csrf_token, s.expires_at
		FROM sessions s
		JOIN users u ON u.id = s.user_id
		JOIN tenants t ON t.id = u.tenant_id
		WHERE s.token_hash = $1 AND s.expires_at > now() AND u.is_active`, tokenHash).
		Scan(&p.SessionID, &p.UserID, &p.TenantID, &p.Email, &p.FullName, &p.Role,
			&p.TenantSlug, &p.TenantName, &p.CSRFToken, &p.ExpiresAt)
	if err != nil {
		return Principal{}, err
	}
	return p, nil
}

func (s *Store) TouchSession(ctx context.Context, sessionID uuid.UUID) error {
	_, err := s.pool.Exec(ctx, `UPDATE sessions SET last_seen_at = now() WHERE id = $1`, sessionID)
	return err
}

func (s *Store) DeleteSession(ctx context.Context, sessionID uuid.UUID) error {
	_, err := s.pool.Exec(ctx, `DELETE FROM sessions WHERE id = $1`, sessionID)
	return err
}

func (s *Store) DeleteSessionByTokenHash(ctx context.Context, tokenHash string) error {
	_, err := s.pool.Exec(ctx, `DELETE FROM sessions WHERE token_hash = $1`, tokenHash)
	return err
}
