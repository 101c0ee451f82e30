package store

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/haulops-platform/api/internal/model"
)

const customerColumns = `id, tenant_id, customer_number, name, type, address, city, state, zip,
	phone, email, billing_emails, credit_rate, notes, import_batch_id, created_at, updated_at`

func scanCustomer(row pgx.Row) (model.Customer, error) {
	var c model.Customer
	err := row.Scan(&c.ID, &c.TenantID, &c.CustomerNumber, &c.Name, &c.Type, &c.Address,
		&c.City, &c.State, &c.Zip, &c.Phone, &c.Email, &c.BillingEmails, &c.CreditRate,
		&c.Notes, &c.ImportBatchID, &c.CreatedAt, &c.UpdatedAt)
	return c, err
}

func (s *Store) ListCustomers(ctx context.Context, tenantID uuid.UUID) ([]model.Customer, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT `+customerColumns+` FROM customers WHERE tenant_id = $1 ORDER BY name`, tenantID)
	if err != nil {
		return nil, fmt.Errorf("list customers: %w", err)
	}
	defer rows.Close()

	var out []model.Customer
	for rows.Next() {
		c, err := scanCustomer(rows)
		if err != nil {
			return nil, fmt.Errorf("scan customer: %w", err)
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

const insertCustomerSQL = `
	INSERT INTO customers (id, tenant_id, customer_number, name, type, address, city, state, zip,
		phone, email, billing_emails, credit_rate, notes, import_batch_id)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)`

func customerArgs(c model.Customer) []any {
	return []any{c.ID, c.TenantID, c.CustomerNumber, c.Name, c.Type, c.Address, c.City, c.State,
		c.Zip, c.Phone, c.Email, c.BillingEmails, c.CreditRate, c.Notes, c.ImportBatchID}
}

func (s *Store) BulkInsertCustomers(ctx context.Context, customers []model.Customer) error {
	batch := &pgx.Batch{}
	for _, c := range customers {
		batch.Queue(insertCustomerSQL+` ON CONFLICT DO NOTHING`, customerArgs(c)...)
	}
	return s.sendBatch(ctx, batch)
}

func (s *Store) InsertCustomer(ctx context.Context, c model.Customer) error {
	if _, err := s.pool.Exec(ctx, insertCustomerSQL, customerArgs(c)...); err != nil {
		return fmt.Errorf("insert customer: %w", err)
	}
	return nil
}

const updateCustomerSQL = `
	UPDATE customers SET customer_number = $3, name = $4, type = $5, address = $6, city = $7,
		state = $8, zip = $9, phone = $10, email = $11, billing_emails = $12, credit_rate = $13,
		notes = $14, import_batch_id = $15, updated_at = now()
	WHERE id = $1 AND tenant_id = $2`

func (s *Store) UpdateCustomers(ctx context.Context, customers []model.Customer) error {
	return s.inTx(ctx, func(tx pgx.Tx) error {
		for _, c := range customers {
			if _, err := tx.Exec(ctx, updateCustomerSQL, customerArgs(c)...); err != nil {
				return fmt.Errorf("update customer %s: %w", c.ID, err)
			}
		}
		return nil
	})
}

func (s *Store) UpdateCustomer(ctx context.Context, c model.Customer) error {
	if _, err := s.pool.Exec(ctx, updateCustomerSQL, customerArgs(c)...); err != nil {
		return fmt.Errorf("update customer: %w", err)
	}
	return nil
}

func (s *Store) GetCustomersByNames(ctx context.Context, tenantID uuid.UUID, names []string) ([]model.Customer, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT `+customerColumns+` FROM customers
		WHERE tenant_id = $1 AND lower(name) = ANY($2)`, tenantID, lowered(names))
	if err != nil {
		return nil, fmt.Errorf("get customers by names: %w", err)
	}
	defer rows.Close()

	var out []model.Customer
	for rows.Next() {
		c, err := scanCustomer(rows)
		if err != nil {
			return nil, fmt.Errorf("scan customer: %w", err)
		}
		out = append(out, c)
	}
	return out, rows.Err()
}
