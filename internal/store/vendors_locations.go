package store

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/haulops-platform/api/internal/model"
)

const vendorColumns = `id, tenant_id, vendor_number, name, type, email, phone, website, address,
	city, state, zip, import_batch_id, created_at, updated_at`

func scanVendor(row pgx.Row) (model.Vendor, error) {
	var v model.Vendor
	err := row.Scan(&v.ID, &v.TenantID, &v.VendorNumber, &v.Name, &v.Type, &v.Email, &v.Phone,
		&v.Website, &v.Address, &v.City, &v.State, &v.Zip, &v.ImportBatchID, &v.CreatedAt, &v.UpdatedAt)
	return v, err
}

func (s *Store) ListVendors(ctx context.Context, tenantID uuid.UUID) ([]model.Vendor, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT `+vendorColumns+` FROM vendors WHERE tenant_id = $1 ORDER BY name`, tenantID)
	if err != nil {
		return nil, fmt.Errorf("list vendors: %w", err)
	}
	defer rows.Close()

	var out []model.Vendor
	for rows.Next() {
		v, err := scanVendor(rows)
		if err != nil {
			return nil, fmt.Errorf("scan vendor: %w", err)
		}
		out = append(out, v)
	}
	return out, rows.Err()
}

const insertVendorSQL = `
	INSERT INTO vendors (id, tenant_id, vendor_number, name, type, email, phone, website, address,
		city, state, zip, import_batch_id)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)`

func vendorArgs(v model.Vendor) []any {
	return []any{v.ID, v.TenantID, v.VendorNumber, v.Name, v.Type, v.Email, v.Phone, v.Website,
		v.Address, v.City, v.State, v.Zip, v.ImportBatchID}
}

func (s *Store) BulkInsertVendors(ctx context.Context, vendors []model.Vendor) error {
	batch := &pgx.Batch{}
	for _, v := range vendors {
		batch.Queue(insertVendorSQL+` ON CONFLICT DO NOTHING`, vendorArgs(v)...)
	}
	return s.sendBatch(ctx, batch)
}

func (s *Store) InsertVendor(ctx context.Context, v model.Vendor) error {
	if _, err := s.pool.Exec(ctx, insertVendorSQL, vendorArgs(v)...); err != nil {
		return fmt.Errorf("insert vendor: %w", err)
	}
	return nil
}

const updateVendorSQL = `
	UPDATE vendors SET vendor_number = $3, name = $4, type = $5, email = $6, phone = $7,
		website = $8, address = $9, city = $10, state = $11, zip = $12, import_batch_id = $13,
		updated_at = now()
	WHERE id = $1 AND tenant_id = $2`

func (s *Store) UpdateVendors(ctx context.Context, vendors []model.Vendor) error {
	return s.inTx(ctx, func(tx pgx.Tx) error {
		for _, v := range vendors {
			if _, err := tx.Exec(ctx, updateVendorSQL, vendorArgs(v)...); err != nil {
				return fmt.Errorf("update vendor %s: %w", v.ID, err)
			}
		}
		return nil
	})
}

func (s *Store) UpdateVendor(ctx context.Context, v model.Vendor) error {
	if _, err := s.pool.Exec(ctx, updateVendorSQL, vendorArgs(v)...); err != nil {
		return fmt.Errorf("update vendor: %w", err)
	}
	return nil
}

const locationColumns = `id, tenant_id, location_number, name, company, address, city, state, zip,
	contact_name, contact_phone, type, notes, import_batch_id, created_at, updated_at`

func scanLocation(row pgx.Row) (model.Location, error) {
	var l model.Location
	err := row.Scan(&l.ID, &l.TenantID, &l.LocationNumber, &l.Name, &l.Company, &l.Address,
		&l.City, &l.State, &l.Zip, &l.ContactName, &l.ContactPhone, &l.Type, &l.Notes,
		&l.ImportBatchID, &l.CreatedAt, &l.UpdatedAt)
	return l, err
}

func (s *Store) ListLocations(ctx context.Context, tenantID uuid.UUID) ([]model.Location, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT `+locationColumns+` FROM locations WHERE tenant_id = $1 ORDER BY name`, tenantID)
	if err != nil {
		return nil, fmt.Errorf("list locations: %w", err)
	}
	defer rows.Close()

	var out []model.Location
	for rows.Next() {
		l, err := scanLocation(rows)
		if err != nil {
			return nil, fmt.Errorf("scan location: %w", err)
		}
		out = append(out, l)
	}
	return out, rows.Err()
}

const insertLocationSQL = `
	INSERT INTO locations (id, tenant_id, location_number, name, company, address, city, state, zip,
		contact_name, contact_phone, type, notes, import_batch_id)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)`

func locationArgs(l model.Location) []any {
	return []any{l.ID, l.TenantID, l.LocationNumber, l.Name, l.Company, l.Address, l.City,
		l.State, l.Zip, l.ContactName, l.ContactPhone, l.Type, l.Notes, l.ImportBatchID}
}

func (s *Store) BulkInsertLocations(ctx context.Context, locations []model.Location) error {
	batch := &pgx.Batch{}
	for _, l := range locations {
		batch.Queue(insertLocationSQL+` ON CONFLICT DO NOTHING`, locationArgs(l)...)
	}
	return s.sendBatch(ctx, batch)
}

func (s *Store) InsertLocation(ctx context.Context, l model.Location) error {
	if _, err := s.pool.Exec(ctx, insertLocationSQL, locationArgs(l)...); err != nil {
		return fmt.Errorf("insert location: %w", err)
	}
	return nil
}

const updateLocationSQL = `
	UPDATE locations SET location_number = $3, name = $4, company = $5, address = $6, city = $7,
		state = $8, zip = $9, contact_name = $10, contact_phone = $11, type = $12, notes = $13,
		import_batch_id = $14, updated_at = now()
	WHERE id = $1 AND tenant_id = $2`

func (s *Store) UpdateLocations(ctx context.Context, locations []model.Location) error {
	return s.inTx(ctx, func(tx pgx.Tx) error {
		for _, l := range locations {
			if _, err := tx.Exec(ctx, updateLocationSQL, locationArgs(l)...); err != nil {
				return fmt.Errorf("update location %s: %w", l.ID, err)
			}
		}
		return nil
	})
}

func (s *Store) UpdateLocation(ctx context.Context, l model.Location) error {
	if _, err := s.pool.Exec(ctx, updateLocationSQL, locationArgs(l)...); err != nil {
		return fmt.Errorf("update location: %w", err)
	}
	return nil
}
