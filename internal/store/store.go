// Package store is the hand-rolled pgx data layer. Bulk inserts ride a
// pgx.Batch with ON CONFLICT DO NOTHING so duplicate rows are skipped, not
// fatal; batch updates run inside one transaction.
package store

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/haulops-platform/api/internal/model"
)

type Store struct {
	pool *pgxpool.Pool
}

func New(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

// inTx runs fn inside a transaction, rolling back on error.
func (s *Store) inTx(ctx context.Context, fn func(pgx.Tx) error) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx)
	if err := fn(tx); err != nil {
		return err
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}

// sendBatch queues one statement per record and checks every result.
func (s *Store) sendBatch(ctx context.Context, batch *pgx.Batch) error {
	results := s.pool.SendBatch(ctx, batch)
	defer results.Close()
	for i := 0; i < batch.Len(); i++ {
		if _, err := results.Exec(); err != nil {
			return fmt.Errorf("batch statement %d: %w", i, err)
		}
	}
	return nil
}

// nullableTime maps the zero time to NULL.
func nullableTime(t time.Time) *time.Time {
	if t.IsZero() {
		return nil
	}
	return &t
}

func lowered(values []string) []string {
	out := make([]string, len(values))
	for i, v := range values {
		out[i] = strings.ToLower(strings.TrimSpace(v))
	}
	return out
}

func (s *Store) ListBillingEntities(ctx context.Context, tenantID uuid.UUID) ([]model.BillingEntity, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, tenant_id, number, company_name, is_default
		FROM billing_entities
		WHERE tenant_id = $1
		ORDER BY company_name`, tenantID)
	if err != nil {
		return nil, fmt.Errorf("list billing entities: %w", err)
	}
	defer rows.Close()

	var out []model.BillingEntity
	for rows.Next() {
		var b model.BillingEntity
		if err := rows.Scan(&b.ID, &b.TenantID, &b.Number, &b.CompanyName, &b.IsDefault); err != nil {
			return nil, fmt.Errorf("scan billing entity: %w", err)
		}
		out = append(out, b)
	}
	return out, rows.Err()
}

func (s *Store) ListDispatchers(ctx context.Context, tenantID uuid.UUID) ([]model.User, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, tenant_id, email, first_name, last_name, phone, role, is_active
		FROM users
		WHERE tenant_id = $1 AND is_active AND role IN ('dispatcher', 'admin', 'owner')
		ORDER BY last_name, first_name`, tenantID)
	if err != nil {
		return nil, fmt.Errorf("list dispatchers: %w", err)
	}
	defer rows.Close()

	var out []model.User
	for rows.Next() {
		var u model.User
		if err := rows.Scan(&u.ID, &u.TenantID, &u.Email, &u.FirstName, &u.LastName, &u.Phone, &u.Role, &u.IsActive); err != nil {
			return nil, fmt.Errorf("scan user: %w", err)
		}
		out = append(out, u)
	}
	return out, rows.Err()
}

// BulkInsertDispatchers creates placeholder dispatcher accounts. The per-tenant
// email uniqueness makes the insert idempotent across concurrent imports.
func (s *Store) BulkInsertDispatchers(ctx context.Context, users []model.User) error {
	batch := &pgx.Batch{}
	for _, u := range users {
		batch.Queue(`
			INSERT INTO users (id, tenant_id, email, first_name, last_name, phone, role, password_hash, is_active)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
			ON CONFLICT DO NOTHING`,
			u.ID, u.TenantID, u.Email, u.FirstName, u.LastName, u.Phone, u.Role, u.PasswordHash, u.IsActive)
	}
	return s.sendBatch(ctx, batch)
}

func (s *Store) GetDispatchersByNames(ctx context.Context, tenantID uuid.UUID, names []string) ([]model.User, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, tenant_id, email, first_name, last_name, phone, role, is_active
		FROM users
		WHERE tenant_id = $1 AND lower(trim(first_name || ' ' || last_name)) = ANY($2)`,
		tenantID, lowered(names))
	if err != nil {
		return nil, fmt.Errorf("get dispatchers by names: %w", err)
	}
	defer rows.Close()

	var out []model.User
	for rows.Next() {
		var u model.User
		if err := rows.Scan(&u.ID, &u.TenantID, &u.Email, &u.FirstName, &u.LastName, &u.Phone, &u.Role, &u.IsActive); err != nil {
			return nil, fmt.Errorf("scan user: %w", err)
		}
		out = append(out, u)
	}
	return out, rows.Err()
}
