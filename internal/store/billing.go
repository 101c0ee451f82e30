package store

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/haulops-platform/api/internal/model"
)

const invoiceColumns = `id, tenant_id, invoice_number, customer_id, load_id, status, amount,
	balance_due, issued_date, due_date, paid_date, import_batch_id, created_at, updated_at`

func scanInvoice(row pgx.Row) (model.Invoice, error) {
	var inv model.Invoice
	var issued, due *time.Time
	err := row.Scan(&inv.ID, &inv.TenantID, &inv.InvoiceNumber, &inv.CustomerID, &inv.LoadID,
		&inv.Status, &inv.Amount, &inv.BalanceDue, &issued, &due, &inv.PaidDate,
		&inv.ImportBatchID, &inv.CreatedAt, &inv.UpdatedAt)
	if issued != nil {
		inv.IssuedDate = *issued
	}
	if due != nil {
		inv.DueDate = *due
	}
	return inv, err
}

func (s *Store) ListInvoices(ctx context.Context, tenantID uuid.UUID) ([]model.Invoice, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT `+invoiceColumns+` FROM invoices WHERE tenant_id = $1 ORDER BY issued_date DESC NULLS LAST`, tenantID)
	if err != nil {
		return nil, fmt.Errorf("list invoices: %w", err)
	}
	defer rows.Close()

	var out []model.Invoice
	for rows.Next() {
		inv, err := scanInvoice(rows)
		if err != nil {
			return nil, fmt.Errorf("scan invoice: %w", err)
		}
		out = append(out, inv)
	}
	return out, rows.Err()
}

const insertInvoiceSQL = `
	INSERT INTO invoices (id, tenant_id, invoice_number, customer_id, load_id, status, amount,
		balance_due, issued_date, due_date, paid_date, import_batch_id)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`

func invoiceArgs(inv model.Invoice) []any {
	return []any{inv.ID, inv.TenantID, inv.InvoiceNumber, inv.CustomerID, inv.LoadID, inv.Status,
		inv.Amount, inv.BalanceDue, nullableTime(inv.IssuedDate), nullableTime(inv.DueDate),
		inv.PaidDate, inv.ImportBatchID}
}

func (s *Store) BulkInsertInvoices(ctx context.Context, invoices []model.Invoice) error {
	batch := &pgx.Batch{}
	for _, inv := range invoices {
		batch.Queue(insertInvoiceSQL+` ON CONFLICT DO NOTHING`, invoiceArgs(inv)...)
	}
	return s.sendBatch(ctx, batch)
}

func (s *Store) InsertInvoice(ctx context.Context, inv model.Invoice) error {
	if _, err := s.pool.Exec(ctx, insertInvoiceSQL, invoiceArgs(inv)...); err != nil {
		return fmt.Errorf("insert invoice: %w", err)
	}
	return nil
}

const updateInvoiceSQL = `
	UPDATE invoices SET invoice_number = $3, customer_id = $4, load_id = $5, status = $6,
		amount = $7, balance_due = $8, issued_date = $9, due_date = $10, paid_date = $11,
		import_batch_id = $12, updated_at = now()
	WHERE id = $1 AND tenant_id = $2`

func (s *Store) UpdateInvoices(ctx context.Context, invoices []model.Invoice) error {
	return s.inTx(ctx, func(tx pgx.Tx) error {
		for _, inv := range invoices {
			if _, err := tx.Exec(ctx, updateInvoiceSQL, invoiceArgs(inv)...); err != nil {
				return fmt.Errorf("update invoice %s: %w", inv.ID, err)
			}
		}
		return nil
	})
}

func (s *Store) UpdateInvoice(ctx context.Context, inv model.Invoice) error {
	if _, err := s.pool.Exec(ctx, updateInvoiceSQL, invoiceArgs(inv)...); err != nil {
		return fmt.Errorf("update invoice: %w", err)
	}
	return nil
}

const settlementColumns = `id, tenant_id, settlement_number, driver_id, period_start, period_end,
	status, gross_pay, deductions, net_pay, import_batch_id, created_at, updated_at`

func scanSettlement(row pgx.Row) (model.Settlement, error) {
	var st model.Settlement
	var start, end *time.Time
	err := row.Scan(&st.ID, &st.TenantID, &st.SettlementNumber, &st.DriverID, &start, &end,
		&st.Status, &st.GrossPay, &st.Deductions, &st.NetPay, &st.ImportBatchID,
		&st.CreatedAt, &st.UpdatedAt)
	if start != nil {
		st.PeriodStart = *start
	}
	if end != nil {
		st.PeriodEnd = *end
	}
	return st, err
}

func (s *Store) ListSettlements(ctx context.Context, tenantID uuid.UUID) ([]model.Settlement, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT `+settlementColumns+` FROM settlements WHERE tenant_id = $1 ORDER BY period_start DESC NULLS LAST`, tenantID)
	if err != nil {
		return nil, fmt.Errorf("list settlements: %w", err)
	}
	defer rows.Close()

	var out []model.Settlement
	for rows.Next() {
		st, err := scanSettlement(rows)
		if err != nil {
			return nil, fmt.Errorf("scan settlement: %w", err)
		}
		out = append(out, st)
	}
	return out, rows.Err()
}

const insertSettlementSQL = `
	INSERT INTO settlements (id, tenant_id, settlement_number, driver_id, period_start, period_end,
		status, gross_pay, deductions, net_pay, import_batch_id)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`

func settlementArgs(st model.Settlement) []any {
	return []any{st.ID, st.TenantID, st.SettlementNumber, st.DriverID,
		nullableTime(st.PeriodStart), nullableTime(st.PeriodEnd), st.Status, st.GrossPay,
		st.Deductions, st.NetPay, st.ImportBatchID}
}

func (s *Store) BulkInsertSettlements(ctx context.Context, settlements []model.Settlement) error {
	batch := &pgx.Batch{}
	for _, st := range settlements {
		batch.Queue(insertSettlementSQL+` ON CONFLICT DO NOTHING`, settlementArgs(st)...)
	}
	return s.sendBatch(ctx, batch)
}

func (s *Store) InsertSettlement(ctx context.Context, st model.Settlement) error {
	if _, err := s.pool.Exec(ctx, insertSettlementSQL, settlementArgs(st)...); err != nil {
		return fmt.Errorf("insert settlement: %w", err)
	}
	return nil
}

const updateSettlementSQL = `
	UPDATE settlements SET settlement_number = $3, driver_id = $4, period_start = $5,
		period_end = $6, status = $7, gross_pay = $8, deductions = $9, net_pay = $10,
		import_batch_id = $11, updated_at = now()
	WHERE id = $1 AND tenant_id = $2`

func (s *Store) UpdateSettlements(ctx context.Context, settlements []model.Settlement) error {
	return s.inTx(ctx, func(tx pgx.Tx) error {
		for _, st := range settlements {
			if _, err := tx.Exec(ctx, updateSettlementSQL, settlementArgs(st)...); err != nil {
				return fmt.Errorf("update settlement %s: %w", st.ID, err)
			}
		}
		return nil
	})
}

func (s *Store) UpdateSettlement(ctx context.Context, st model.Settlement) error {
	if _, err := s.pool.Exec(ctx, updateSettlementSQL, settlementArgs(st)...); err != nil {
		return fmt.Errorf("update settlement: %w", err)
	}
	return nil
}
