package store

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/haulops-platform/api/internal/model"
)

const driverColumns = `id, tenant_id, user_id, driver_number, first_name, last_name, email, phone,
	type, status, license_number, license_state, license_expiry, medical_card_expiry, pay_rate,
	address, city, state, zip, billing_entity_id, import_batch_id, created_at, updated_at`

func scanDriver(row pgx.Row) (model.Driver, error) {
	var d model.Driver
	err := row.Scan(&d.ID, &d.TenantID, &d.UserID, &d.DriverNumber, &d.FirstName, &d.LastName,
		&d.Email, &d.Phone, &d.Type, &d.Status, &d.LicenseNumber, &d.LicenseState,
		&d.LicenseExpiry, &d.MedicalCardExpiry, &d.PayRate, &d.Address, &d.City, &d.State,
		&d.Zip, &d.BillingEntityID, &d.ImportBatchID, &d.CreatedAt, &d.UpdatedAt)
	return d, err
}

func (s *Store) ListDrivers(ctx context.Context, tenantID uuid.UUID) ([]model.Driver, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT `+driverColumns+` FROM drivers WHERE tenant_id = $1 ORDER BY last_name, first_name`, tenantID)
	if err != nil {
		return nil, fmt.Errorf("list drivers: %w", err)
	}
	defer rows.Close()

	var out []model.Driver
	for rows.Next() {
		d, err := scanDriver(rows)
		if err != nil {
			return nil, fmt.Errorf("scan driver: %w", err)
		}
		out = append(out, d)
	}
	return out, rows.Err()
}

const insertDriverSQL = `
	INSERT INTO drivers (id, tenant_id, user_id, driver_number, first_name, last_name, email, phone,
		type, status, license_number, license_state, license_expiry, medical_card_expiry, pay_rate,
		address, city, state, zip, billing_entity_id, import_batch_id)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19, $20, $21)`

func driverArgs(d model.Driver) []any {
	return []any{d.ID, d.TenantID, d.UserID, d.DriverNumber, d.FirstName, d.LastName, d.Email,
		d.Phone, d.Type, d.Status, d.LicenseNumber, d.LicenseState, d.LicenseExpiry,
		d.MedicalCardExpiry, d.PayRate, d.Address, d.City, d.State, d.Zip, d.BillingEntityID,
		d.ImportBatchID}
}

func (s *Store) BulkInsertDrivers(ctx context.Context, drivers []model.Driver) error {
	batch := &pgx.Batch{}
	for _, d := range drivers {
		batch.Queue(insertDriverSQL+` ON CONFLICT DO NOTHING`, driverArgs(d)...)
	}
	return s.sendBatch(ctx, batch)
}

func (s *Store) InsertDriver(ctx context.Context, d model.Driver) error {
	if _, err := s.pool.Exec(ctx, insertDriverSQL, driverArgs(d)...); err != nil {
		return fmt.Errorf("insert driver: %w", err)
	}
	return nil
}

const updateDriverSQL = `
	UPDATE drivers SET driver_number = $3, first_name = $4, last_name = $5, email = $6, phone = $7,
		type = $8, status = $9, license_number = $10, license_state = $11, license_expiry = $12,
		medical_card_expiry = $13, pay_rate = $14, address = $15, city = $16, state = $17, zip = $18,
		billing_entity_id = $19, import_batch_id = $20, updated_at = now()
	WHERE id = $1 AND tenant_id = $2`

func driverUpdateArgs(d model.Driver) []any {
	return []any{d.ID, d.TenantID, d.DriverNumber, d.FirstName, d.LastName, d.Email, d.Phone,
		d.Type, d.Status, d.LicenseNumber, d.LicenseState, d.LicenseExpiry, d.MedicalCardExpiry,
		d.PayRate, d.Address, d.City, d.State, d.Zip, d.BillingEntityID, d.ImportBatchID}
}

func (s *Store) UpdateDrivers(ctx context.Context, drivers []model.Driver) error {
	return s.inTx(ctx, func(tx pgx.Tx) error {
		for _, d := range drivers {
			if _, err := tx.Exec(ctx, updateDriverSQL, driverUpdateArgs(d)...); err != nil {
				return fmt.Errorf("update driver %s: %w", d.ID, err)
			}
		}
		return nil
	})
}

func (s *Store) UpdateDriver(ctx context.Context, d model.Driver) error {
	if _, err := s.pool.Exec(ctx, updateDriverSQL, driverUpdateArgs(d)...); err != nil {
		return fmt.Errorf("update driver: %w", err)
	}
	return nil
}

func (s *Store) GetDriversByNames(ctx context.Context, tenantID uuid.UUID, names []string) ([]model.Driver, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT `+driverColumns+` FROM drivers
		WHERE tenant_id = $1 AND lower(trim(first_name || ' ' || last_name)) = ANY($2)`,
		tenantID, lowered(names))
	if err != nil {
		return nil, fmt.Errorf("get drivers by names: %w", err)
	}
	defer rows.Close()

	var out []model.Driver
	for rows.Next() {
		d, err := scanDriver(rows)
		if err != nil {
			return nil, fmt.Errorf("scan driver: %w", err)
		}
		out = append(out, d)
	}
	return out, rows.Err()
}

const truckColumns = `id, tenant_id, truck_number, vin, make, model, year, license_plate, state,
	equipment, capacity_lbs, status, registration_expiry, inspection_expiry, billing_entity_id,
	assigned_driver_id, import_batch_id, created_at, updated_at`

func scanTruck(row pgx.Row) (model.Truck, error) {
	var t model.Truck
	var regExpiry, inspExpiry *time.Time
	err := row.Scan(&t.ID, &t.TenantID, &t.TruckNumber, &t.VIN, &t.Make, &t.Model, &t.Year,
		&t.LicensePlate, &t.State, &t.Equipment, &t.CapacityLbs, &t.Status,
		&regExpiry, &inspExpiry, &t.BillingEntityID, &t.AssignedDriverID,
		&t.ImportBatchID, &t.CreatedAt, &t.UpdatedAt)
	if regExpiry != nil {
		t.RegistrationExpiry = *regExpiry
	}
	if inspExpiry != nil {
		t.InspectionExpiry = *inspExpiry
	}
	return t, err
}

func (s *Store) ListTrucks(ctx context.Context, tenantID uuid.UUID) ([]model.Truck, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT `+truckColumns+` FROM trucks WHERE tenant_id = $1 ORDER BY truck_number`, tenantID)
	if err != nil {
		return nil, fmt.Errorf("list trucks: %w", err)
	}
	defer rows.Close()

	var out []model.Truck
	for rows.Next() {
		t, err := scanTruck(rows)
		if err != nil {
			return nil, fmt.Errorf("scan truck: %w", err)
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

const insertTruckSQL = `
	INSERT INTO trucks (id, tenant_id, truck_number, vin, make, model, year, license_plate, state,
		equipment, capacity_lbs, status, registration_expiry, inspection_expiry, billing_entity_id,
		assigned_driver_id, import_batch_id)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17)`

func truckArgs(t model.Truck) []any {
	return []any{t.ID, t.TenantID, t.TruckNumber, t.VIN, t.Make, t.Model, t.Year, t.LicensePlate,
		t.State, t.Equipment, t.CapacityLbs, t.Status, nullableTime(t.RegistrationExpiry),
		nullableTime(t.InspectionExpiry), t.BillingEntityID, t.AssignedDriverID, t.ImportBatchID}
}

func (s *Store) BulkInsertTrucks(ctx context.Context, trucks []model.Truck) error {
	batch := &pgx.Batch{}
	for _, t := range trucks {
		batch.Queue(insertTruckSQL+` ON CONFLICT DO NOTHING`, truckArgs(t)...)
	}
	return s.sendBatch(ctx, batch)
}

func (s *Store) InsertTruck(ctx context.Context, t model.Truck) error {
	if _, err := s.pool.Exec(ctx, insertTruckSQL, truckArgs(t)...); err != nil {
		return fmt.Errorf("insert truck: %w", err)
	}
	return nil
}

const updateTruckSQL = `
	UPDATE trucks SET truck_number = $3, vin = $4, make = $5, model = $6, year = $7,
		license_plate = $8, state = $9, equipment = $10, capacity_lbs = $11, status = $12,
		registration_expiry = $13, inspection_expiry = $14, billing_entity_id = $15,
		assigned_driver_id = $16, import_batch_id = $17, updated_at = now()
	WHERE id = $1 AND tenant_id = $2`

func (s *Store) UpdateTrucks(ctx context.Context, trucks []model.Truck) error {
	return s.inTx(ctx, func(tx pgx.Tx) error {
		for _, t := range trucks {
			if _, err := tx.Exec(ctx, updateTruckSQL, truckArgs(t)...); err != nil {
				return fmt.Errorf("update truck %s: %w", t.ID, err)
			}
		}
		return nil
	})
}

func (s *Store) UpdateTruck(ctx context.Context, t model.Truck) error {
	if _, err := s.pool.Exec(ctx, updateTruckSQL, truckArgs(t)...); err != nil {
		return fmt.Errorf("update truck: %w", err)
	}
	return nil
}

func (s *Store) GetTrucksByNumbers(ctx context.Context, tenantID uuid.UUID, numbers []string) ([]model.Truck, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT `+truckColumns+` FROM trucks
		WHERE tenant_id = $1 AND lower(truck_number) = ANY($2)`, tenantID, lowered(numbers))
	if err != nil {
		return nil, fmt.Errorf("get trucks by numbers: %w", err)
	}
	defer rows.Close()

	var out []model.Truck
	for rows.Next() {
		t, err := scanTruck(rows)
		if err != nil {
			return nil, fmt.Errorf("scan truck: %w", err)
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

const trailerColumns = `id, tenant_id, trailer_number, vin, make, model, equipment, status,
	billing_entity_id, import_batch_id, created_at, updated_at`

func scanTrailer(row pgx.Row) (model.Trailer, error) {
	var t model.Trailer
	err := row.Scan(&t.ID, &t.TenantID, &t.TrailerNumber, &t.VIN, &t.Make, &t.Model,
		&t.Equipment, &t.Status, &t.BillingEntityID, &t.ImportBatchID, &t.CreatedAt, &t.UpdatedAt)
	return t, err
}

func (s *Store) ListTrailers(ctx context.Context, tenantID uuid.UUID) ([]model.Trailer, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT `+trailerColumns+` FROM trailers WHERE tenant_id = $1 ORDER BY trailer_number`, tenantID)
	if err != nil {
		return nil, fmt.Errorf("list trailers: %w", err)
	}
	defer rows.Close()

	var out []model.Trailer
	for rows.Next() {
		t, err := scanTrailer(rows)
		if err != nil {
			return nil, fmt.Errorf("scan trailer: %w", err)
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

const insertTrailerSQL = `
	INSERT INTO trailers (id, tenant_id, trailer_number, vin, make, model, equipment, status,
		billing_entity_id, import_batch_id)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`

func trailerArgs(t model.Trailer) []any {
	return []any{t.ID, t.TenantID, t.TrailerNumber, t.VIN, t.Make, t.Model, t.Equipment,
		t.Status, t.BillingEntityID, t.ImportBatchID}
}

func (s *Store) BulkInsertTrailers(ctx context.Context, trailers []model.Trailer) error {
	batch := &pgx.Batch{}
	for _, t := range trailers {
		batch.Queue(insertTrailerSQL+` ON CONFLICT DO NOTHING`, trailerArgs(t)...)
	}
	return s.sendBatch(ctx, batch)
}

func (s *Store) InsertTrailer(ctx context.Context, t model.Trailer) error {
	if _, err := s.pool.Exec(ctx, insertTrailerSQL, trailerArgs(t)...); err != nil {
		return fmt.Errorf("insert trailer: %w", err)
	}
	return nil
}

const updateTrailerSQL = `
	UPDATE trailers SET trailer_number = $3, vin = $4, make = $5, model = $6, equipment = $7,
		status = $8, billing_entity_id = $9, import_batch_id = $10, updated_at = now()
	WHERE id = $1 AND tenant_id = $2`

func (s *Store) UpdateTrailers(ctx context.Context, trailers []model.Trailer) error {
	return s.inTx(ctx, func(tx pgx.Tx) error {
		for _, t := range trailers {
			if _, err := tx.Exec(ctx, updateTrailerSQL, trailerArgs(t)...); err != nil {
				return fmt.Errorf("update trailer %s: %w", t.ID, err)
			}
		}
		return nil
	})
}

func (s *Store) UpdateTrailer(ctx context.Context, t model.Trailer) error {
	if _, err := s.pool.Exec(ctx, updateTrailerSQL, trailerArgs(t)...); err != nil {
		return fmt.Errorf("update trailer: %w", err)
	}
	return nil
}

func (s *Store) GetTrailersByNumbers(ctx context.Context, tenantID uuid.UUID, numbers []string) ([]model.Trailer, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT `+trailerColumns+` FROM trailers
		WHERE tenant_id = $1 AND lower(trailer_number) = ANY($2)`, tenantID, lowered(numbers))
	if err != nil {
		return nil, fmt.Errorf("get trailers by numbers: %w", err)
	}
	defer rows.Close()

	var out []model.Trailer
	for rows.Next() {
		t, err := scanTrailer(rows)
		if err != nil {
			return nil, fmt.Errorf("scan trailer: %w", err)
		}
		out = append(out, t)
	}
	return out, rows.Err()
}
