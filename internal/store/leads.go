package store

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/haulops-platform/api/internal/model"
)

const leadColumns = `id, tenant_id, lead_number, first_name, last_name, phone, email, status,
	priority, source, cdl_class, city, state, notes, import_batch_id, created_at, updated_at`

func scanLead(row pgx.Row) (model.Lead, error) {
	var l model.Lead
	err := row.Scan(&l.ID, &l.TenantID, &l.LeadNumber, &l.FirstName, &l.LastName, &l.Phone,
		&l.Email, &l.Status, &l.Priority, &l.Source, &l.CDLClass, &l.City, &l.State, &l.Notes,
		&l.ImportBatchID, &l.CreatedAt, &l.UpdatedAt)
	return l, err
}

func (s *Store) ListLeads(ctx context.Context, tenantID uuid.UUID) ([]model.Lead, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT `+leadColumns+` FROM leads WHERE tenant_id = $1 ORDER BY created_at DESC`, tenantID)
	if err != nil {
		return nil, fmt.Errorf("list leads: %w", err)
	}
	defer rows.Close()

	var out []model.Lead
	for rows.Next() {
		l, err := scanLead(rows)
		if err != nil {
			return nil, fmt.Errorf("scan lead: %w", err)
		}
		out = append(out, l)
	}
	return out, rows.Err()
}

const insertLeadSQL = `
	INSERT INTO leads (id, tenant_id, lead_number, first_name, last_name, phone, email, status,
		priority, source, cdl_class, city, state, notes, import_batch_id)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)`

func leadArgs(l model.Lead) []any {
	return []any{l.ID, l.TenantID, l.LeadNumber, l.FirstName, l.LastName, l.Phone, l.Email,
		l.Status, l.Priority, l.Source, l.CDLClass, l.City, l.State, l.Notes, l.ImportBatchID}
}

func (s *Store) BulkInsertLeads(ctx context.Context, leads []model.Lead) error {
	batch := &pgx.Batch{}
	for _, l := range leads {
		batch.Queue(insertLeadSQL+` ON CONFLICT DO NOTHING`, leadArgs(l)...)
	}
	return s.sendBatch(ctx, batch)
}

func (s *Store) InsertLead(ctx context.Context, l model.Lead) error {
	if _, err := s.pool.Exec(ctx, insertLeadSQL, leadArgs(l)...); err != nil {
		return fmt.Errorf("insert lead: %w", err)
	}
	return nil
}

const updateLeadSQL = `
	UPDATE leads SET lead_number = $3, first_name = $4, last_name = $5, phone = $6, email = $7,
		status = $8, priority = $9, source = $10, cdl_class = $11, city = $12, state = $13,
		notes = $14, import_batch_id = $15, updated_at = now()
	WHERE id = $1 AND tenant_id = $2`

func (s *Store) UpdateLeads(ctx context.Context, leads []model.Lead) error {
	return s.inTx(ctx, func(tx pgx.Tx) error {
		for _, l := range leads {
			if _, err := tx.Exec(ctx, updateLeadSQL, leadArgs(l)...); err != nil {
				return fmt.Errorf("update lead %s: %w", l.ID, err)
			}
		}
		return nil
	})
}

func (s *Store) UpdateLead(ctx context.Context, l model.Lead) error {
	if _, err := s.pool.Exec(ctx, updateLeadSQL, leadArgs(l)...); err != nil {
		return fmt.Errorf("update lead: %w", err)
	}
	return nil
}
