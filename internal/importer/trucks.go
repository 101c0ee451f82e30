package importer

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"

	"github.com/haulops-platform/api/internal/model"
)

var truckFieldSpecs = []FieldSpec{
	{Field: "truckNumber", Synonyms: []string{"truck number", "truck no", "truck", "unit", "unit number", "tractor", "tractor number", "number"}},
	{Field: "vin", Synonyms: []string{"vin number", "serial", "serial number", "vehicle identification number"}},
	{Field: "make", Synonyms: []string{"manufacturer", "brand"}},
	{Field: "model", Synonyms: []string{"truck model"}},
	{Field: "year", Synonyms: []string{"model year", "yr"}},
	{Field: "licensePlate", Synonyms: []string{"plate", "plate number", "tag", "tag number"}},
	{Field: "state", Synonyms: []string{"plate state", "registration state", "st"}},
	{Field: "equipment", Synonyms: []string{"equipment type", "trailer type", "type"}},
	{Field: "capacityLbs", Synonyms: []string{"capacity", "max weight", "gvwr", "payload"}},
	{Field: "status", Synonyms: []string{"truck status", "unit status"}},
	{Field: "registrationExpiry", Synonyms: []string{"registration", "registration expiration", "reg expiry", "reg expiration"}},
	{Field: "inspectionExpiry", Synonyms: []string{"inspection", "inspection expiration", "dot inspection", "annual inspection"}},
}

func truckKeys(number, vin string) []string {
	var keys []string
	if normalizeKey(number) != "" {
		keys = append(keys, "num:"+stripLeadingZeros(normalizeKey(number)))
	}
	if normalizeKey(vin) != "" {
		keys = append(keys, "vin:"+normalizeKey(vin))
	}
	return keys
}

func (e *Engine) ImportTrucks(ctx context.Context, rows []Row, opts Options) (*Result, error) {
	res := newResult(len(rows), e.cfg.MaxRowMessages)

	existing, err := e.store.ListTrucks(ctx, e.tenantID)
	if err != nil {
		return nil, fmt.Errorf("list trucks: %w", err)
	}
	billingEntity, err := e.defaultBillingEntity(ctx, opts)
	if err != nil {
		return nil, err
	}

	seen := newKeySet()
	stored := map[string]model.Truck{}
	for _, t := range existing {
		for _, k := range truckKeys(t.TruckNumber, t.VIN) {
			seen.Add(k)
			stored[k] = t
		}
	}

	queue := newFixQueue()
	for _, row := range rows {
		if raw := rawValue(row, truckFieldSpecs, "equipment", opts); raw != "" {
			if _, ok := parseEquipment(raw); !ok {
				queue.add("equipment", raw)
			}
		}
		for _, f := range []string{"registrationExpiry", "inspectionExpiry"} {
			if raw := rawValue(row, truckFieldSpecs, f, opts); raw != "" {
				if _, ok := ParseDate(raw); !ok {
					queue.add(f, raw)
				}
			}
		}
	}
	fixes := e.corrections(ctx, queue)

	var creates []pending[model.Truck]
	var updates []pending[model.Truck]
	createIdx := map[string]int{}
	updateIdx := map[uuid.UUID]int{}

	for i, row := range rows {
		rowNum := i + 1
		number := specValue(row, truckFieldSpecs, "truckNumber", opts, res, rowNum)
		vin := specValue(row, truckFieldSpecs, "vin", opts, res, rowNum)
		if number == "" && vin == "" {
			res.Errorf(rowNum, "truckNumber", "truck number or VIN is required")
			continue
		}

		record := model.Truck{
			ID:              uuid.New(),
			TenantID:        e.tenantID,
			TruckNumber:     number,
			VIN:             vin,
			Make:            specValue(row, truckFieldSpecs, "make", opts, res, rowNum),
			Model:           specValue(row, truckFieldSpecs, "model", opts, res, rowNum),
			LicensePlate:    specValue(row, truckFieldSpecs, "licensePlate", opts, res, rowNum),
			Equipment:       model.EquipmentDryVan,
			Status:          "active",
			BillingEntityID: billingEntity,
			ImportBatchID:   opts.ImportBatchID,
		}
		if record.TruckNumber == "" {
			record.TruckNumber = syntheticNumber("T", record.ID)
		}

		if raw := specValue(row, truckFieldSpecs, "state", opts, res, rowNum); raw != "" {
			record.State = NormalizeState(raw)
		}
		if raw := specValue(row, truckFieldSpecs, "year", opts, res, rowNum); raw != "" {
			if year, err := strconv.Atoi(raw); err == nil && year > 1950 && year < 2100 {
				record.Year = year
			} else {
				res.Warnf(rowNum, "year", "implausible year %q", raw)
			}
		}
		if raw := specValue(row, truckFieldSpecs, "equipment", opts, res, rowNum); raw != "" {
			eq, ok := parseEquipment(raw)
			if !ok {
				if fixed, found := fixes.fix("equipment", raw); found {
					eq, ok = parseEquipment(fixed)
				}
			}
			if !ok {
				res.Warnf(rowNum, "equipment", "unrecognized equipment type %q, defaulted to dry van", raw)
			}
			record.Equipment = eq
		}
		if raw := specValue(row, truckFieldSpecs, "capacityLbs", opts, res, rowNum); raw != "" {
			if capacity, ok := ParseNumber(raw); ok && capacity > 0 {
				record.CapacityLbs = int(capacity)
			}
		}
		if raw := specValue(row, truckFieldSpecs, "status", opts, res, rowNum); raw != "" {
			record.Status = normalizeKey(raw)
		}

		parseExpiry := func(field, raw string) (time.Time, bool) {
			if d, ok := ParseDate(raw); ok {
				return d, true
			}
			if fixed, found := fixes.fix(field, raw); found {
				return ParseDate(fixed)
			}
			return time.Time{}, false
		}
		if raw := specValue(row, truckFieldSpecs, "registrationExpiry", opts, res, rowNum); raw != "" {
			if d, ok := parseExpiry("registrationExpiry", raw); ok {
				record.RegistrationExpiry = d
			} else {
				res.Warnf(rowNum, "registrationExpiry", "could not parse date %q", raw)
			}
		}
		if raw := specValue(row, truckFieldSpecs, "inspectionExpiry", opts, res, rowNum); raw != "" {
			if d, ok := parseExpiry("inspectionExpiry", raw); ok {
				record.InspectionExpiry = d
			} else {
				res.Warnf(rowNum, "inspectionExpiry", "could not parse date %q", raw)
			}
		}

		keys := truckKeys(record.TruckNumber, record.VIN)
		if dupKey := firstSeen(seen, keys); dupKey != "" {
			if prior, inStorage := stored[dupKey]; inStorage {
				if !opts.UpdateExisting {
					res.Warnf(rowNum, "truckNumber", "truck %s already exists, skipped (updateExisting is off)", record.TruckNumber)
					res.Summary.Skipped++
					continue
				}
				merged := mergeTruck(prior, record)
				if idx, ok := updateIdx[prior.ID]; ok {
					updates[idx] = pending[model.Truck]{Row: rowNum, Record: merged}
					res.Summary.Skipped++
					continue
				}
				updateIdx[prior.ID] = len(updates)
				updates = append(updates, pending[model.Truck]{Row: rowNum, Record: merged})
				continue
			}
			if idx, ok := createIdx[dupKey]; ok {
				record.ID = creates[idx].Record.ID
				creates[idx] = pending[model.Truck]{Row: rowNum, Record: record}
				res.Summary.Skipped++
				res.Warnf(rowNum, "", "duplicate of an earlier row in this file, keeping the latest values")
				continue
			}
		}

		seen.Add(keys...)
		for _, k := range keys {
			createIdx[k] = len(creates)
		}
		creates = append(creates, pending[model.Truck]{Row: rowNum, Record: record})
		res.addPreview(e.previewCap("trucks"), truckPreview(record, "create"))
	}

	for _, p := range updates {
		res.addPreview(e.previewCap("trucks"), truckPreview(p.Record, "update"))
	}

	if opts.PreviewOnly {
		res.Summary.Created = len(creates)
		res.Summary.Updated = len(updates)
		return e.finalize("trucks", res), nil
	}

	res.Summary.Created = persistCreates(ctx, creates, e.cfg.BatchSize,
		e.store.BulkInsertTrucks, e.store.InsertTruck, func(t model.Truck) any {
			return truckPreview(t, "create")
		}, res)
	res.Summary.Updated = persistUpdates(ctx, updates,
		e.store.UpdateTrucks, e.store.UpdateTruck, res)
	return e.finalize("trucks", res), nil
}

func mergeTruck(current, next model.Truck) model.Truck {
	merged := current
	merged.VIN = overwrite(current.VIN, next.VIN)
	merged.Make = overwrite(current.Make, next.Make)
	merged.Model = overwrite(current.Model, next.Model)
	merged.LicensePlate = overwrite(current.LicensePlate, next.LicensePlate)
	merged.State = overwrite(current.State, next.State)
	if next.Year != 0 {
		merged.Year = next.Year
	}
	if next.CapacityLbs != 0 {
		merged.CapacityLbs = next.CapacityLbs
	}
	if !next.RegistrationExpiry.IsZero() {
		merged.RegistrationExpiry = next.RegistrationExpiry
	}
	if !next.InspectionExpiry.IsZero() {
		merged.InspectionExpiry = next.InspectionExpiry
	}
	return merged
}

func truckPreview(t model.Truck, action string) map[string]any {
	return map[string]any{
		"action":      action,
		"id":          t.ID,
		"truckNumber": t.TruckNumber,
		"vin":         t.VIN,
		"make":        t.Make,
		"model":       t.Model,
		"equipment":   t.Equipment,
	}
}
