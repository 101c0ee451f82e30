package store

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/haulops-platform/api/internal/model"
)

const loadColumns = `id, tenant_id, load_number, customer_id, driver_id, truck_id, trailer_id,
	dispatcher_id, billing_entity_id, status, equipment, revenue, driver_pay, profit,
	revenue_per_mile, total_miles, loaded_miles, empty_miles, weight_lbs, commodity,
	reference_number, pickup_city, pickup_state, pickup_zip, pickup_address, delivery_city,
	delivery_state, delivery_zip, delivery_address, pickup_date, delivery_date, notes,
	import_batch_id, created_at, updated_at`

func scanLoad(row pgx.Row) (model.Load, error) {
	var l model.Load
	var pickup, delivery *time.Time
	err := row.Scan(&l.ID, &l.TenantID, &l.LoadNumber, &l.CustomerID, &l.DriverID, &l.TruckID,
		&l.TrailerID, &l.DispatcherID, &l.BillingEntityID, &l.Status, &l.Equipment, &l.Revenue,
		&l.DriverPay, &l.Profit, &l.RevenuePerMile, &l.TotalMiles, &l.LoadedMiles, &l.EmptyMiles,
		&l.WeightLbs, &l.Commodity, &l.ReferenceNumber, &l.PickupCity, &l.PickupState,
		&l.PickupZip, &l.PickupAddress, &l.DeliveryCity, &l.DeliveryState, &l.DeliveryZip,
		&l.DeliveryAddress, &pickup, &delivery, &l.Notes, &l.ImportBatchID, &l.CreatedAt, &l.UpdatedAt)
	if pickup != nil {
		l.PickupDate = *pickup
	}
	if delivery != nil {
		l.DeliveryDate = *delivery
	}
	return l, err
}

func (s *Store) ListLoads(ctx context.Context, tenantID uuid.UUID) ([]model.Load, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT `+loadColumns+` FROM loads WHERE tenant_id = $1 ORDER BY pickup_date DESC NULLS LAST`, tenantID)
	if err != nil {
		return nil, fmt.Errorf("list loads: %w", err)
	}
	defer rows.Close()

	var out []model.Load
	for rows.Next() {
		l, err := scanLoad(rows)
		if err != nil {
			return nil, fmt.Errorf("scan load: %w", err)
		}
		out = append(out, l)
	}
	return out, rows.Err()
}

const insertLoadSQL = `
	INSERT INTO loads (id, tenant_id, load_number, customer_id, driver_id, truck_id, trailer_id,
		dispatcher_id, billing_entity_id, status, equipment, revenue, driver_pay, profit,
		revenue_per_mile, total_miles, loaded_miles, empty_miles, weight_lbs, commodity,
		reference_number, pickup_city, pickup_state, pickup_zip, pickup_address, delivery_city,
		delivery_state, delivery_zip, delivery_address, pickup_date, delivery_date, notes,
		import_batch_id)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19,
		$20, $21, $22, $23, $24, $25, $26, $27, $28, $29, $30, $31, $32, $33)`

func loadArgs(l model.Load) []any {
	return []any{l.ID, l.TenantID, l.LoadNumber, l.CustomerID, l.DriverID, l.TruckID, l.TrailerID,
		l.DispatcherID, l.BillingEntityID, l.Status, l.Equipment, l.Revenue, l.DriverPay,
		l.Profit, l.RevenuePerMile, l.TotalMiles, l.LoadedMiles, l.EmptyMiles, l.WeightLbs,
		l.Commodity, l.ReferenceNumber, l.PickupCity, l.PickupState, l.PickupZip, l.PickupAddress,
		l.DeliveryCity, l.DeliveryState, l.DeliveryZip, l.DeliveryAddress,
		nullableTime(l.PickupDate), nullableTime(l.DeliveryDate), l.Notes, l.ImportBatchID}
}

func (s *Store) BulkInsertLoads(ctx context.Context, loads []model.Load) error {
	batch := &pgx.Batch{}
	for _, l := range loads {
		batch.Queue(insertLoadSQL+` ON CONFLICT DO NOTHING`, loadArgs(l)...)
	}
	return s.sendBatch(ctx, batch)
}

func (s *Store) InsertLoad(ctx context.Context, l model.Load) error {
	if _, err := s.pool.Exec(ctx, insertLoadSQL, loadArgs(l)...); err != nil {
		return fmt.Errorf("insert load: %w", err)
	}
	return nil
}

const updateLoadSQL = `
	UPDATE loads SET load_number = $3, customer_id = $4, driver_id = $5, truck_id = $6,
		trailer_id = $7, dispatcher_id = $8, billing_entity_id = $9, status = $10, equipment = $11,
		revenue = $12, driver_pay = $13, profit = $14, revenue_per_mile = $15, total_miles = $16,
		loaded_miles = $17, empty_miles = $18, weight_lbs = $19, commodity = $20,
		reference_number = $21, pickup_city = $22, pickup_state = $23, pickup_zip = $24,
		pickup_address = $25, delivery_city = $26, delivery_state = $27, delivery_zip = $28,
		delivery_address = $29, pickup_date = $30, delivery_date = $31, notes = $32,
		import_batch_id = $33, updated_at = now()
	WHERE id = $1 AND tenant_id = $2`

func (s *Store) UpdateLoads(ctx context.Context, loads []model.Load) error {
	return s.inTx(ctx, func(tx pgx.Tx) error {
		for _, l := range loads {
			if _, err := tx.Exec(ctx, updateLoadSQL, loadArgs(l)...); err != nil {
				return fmt.Errorf("update load %s: %w", l.ID, err)
			}
		}
		return nil
	})
}

func (s *Store) UpdateLoad(ctx context.Context, l model.Load) error {
	if _, err := s.pool.Exec(ctx, updateLoadSQL, loadArgs(l)...); err != nil {
		return fmt.Errorf("update load: %w", err)
	}
	return nil
}
