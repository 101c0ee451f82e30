package importer

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/haulops-platform/api/internal/model"
)

var driverFieldSpecs = []FieldSpec{
	{Field: "driverNumber", Synonyms: []string{"driver number", "driver no", "driver id", "employee number", "employee id", "number"}},
	{Field: "name", Synonyms: []string{"driver name", "driver", "full name", "employee name"}},
	{Field: "firstName", Synonyms: []string{"first", "fname", "given name"}},
	{Field: "lastName", Synonyms: []string{"last", "lname", "surname", "family name"}},
	{Field: "email", Synonyms: []string{"email address", "e-mail"}},
	{Field: "phone", Synonyms: []string{"phone number", "cell", "cell phone", "mobile", "tel"}},
	{Field: "type", Synonyms: []string{"driver type", "employment type", "classification"}},
	{Field: "status", Synonyms: []string{"driver status", "duty status"}},
	{Field: "licenseNumber", Synonyms: []string{"license", "cdl", "cdl number", "license no", "dl number"}},
	{Field: "licenseState", Synonyms: []string{"cdl state", "dl state", "license st"}},
	{Field: "licenseExpiry", Synonyms: []string{"license expiration", "cdl expiry", "cdl expiration", "license exp", "dl expiry"}},
	{Field: "medicalCardExpiry", Synonyms: []string{"medical expiry", "medical expiration", "med card", "med card expiry", "dot medical", "physical expiry"}},
	{Field: "payRate", Synonyms: []string{"pay rate", "rate", "cpm", "per mile", "rate per mile", "pay per mile"}},
	{Field: "truck", Synonyms: []string{"truck number", "unit", "unit number", "truck no", "assigned truck"}},
	{Field: "address", Synonyms: []string{"street", "street address", "home address"}},
	{Field: "city", Synonyms: []string{"town"}},
	{Field: "state", Synonyms: []string{"st", "province"}},
	{Field: "zip", Synonyms: []string{"zip code", "postal code", "zipcode"}},
}

func driverKeys(number, email string) []string {
	var keys []string
	if normalizeKey(number) != "" {
		keys = append(keys, "num:"+stripLeadingZeros(normalizeKey(number)))
	}
	if normalizeKey(email) != "" {
		keys = append(keys, "email:"+normalizeKey(email))
	}
	return keys
}

func (e *Engine) ImportDrivers(ctx context.Context, rows []Row, opts Options) (*Result, error) {
	res := newResult(len(rows), e.cfg.MaxRowMessages)

	existing, err := e.store.ListDrivers(ctx, e.tenantID)
	if err != nil {
		return nil, fmt.Errorf("list drivers: %w", err)
	}
	billingEntity, err := e.defaultBillingEntity(ctx, opts)
	if err != nil {
		return nil, err
	}

	seen := newKeySet()
	stored := map[string]model.Driver{}
	for _, d := range existing {
		for _, k := range driverKeys(d.DriverNumber, d.Email) {
			seen.Add(k)
			stored[k] = d
		}
	}

	queue := newFixQueue()
	for _, row := range rows {
		for _, f := range []string{"licenseExpiry", "medicalCardExpiry"} {
			if raw := rawValue(row, driverFieldSpecs, f, opts); raw != "" {
				if _, ok := ParseDate(raw); !ok {
					queue.add(f, raw)
				}
			}
		}
		if raw := rawValue(row, driverFieldSpecs, "type", opts); raw != "" {
			if _, ok := parseDriverType(raw); !ok {
				queue.add("driverType", raw)
			}
		}
		if raw := rawValue(row, driverFieldSpecs, "status", opts); raw != "" {
			if _, ok := parseDriverStatus(raw); !ok {
				queue.add("driverStatus", raw)
			}
		}
	}
	fixes := e.corrections(ctx, queue)

	parseDateFixed := func(field, raw string) (time.Time, bool) {
		if d, ok := ParseDate(raw); ok {
			return d, true
		}
		if fixed, found := fixes.fix(field, raw); found {
			return ParseDate(fixed)
		}
		return time.Time{}, false
	}

	var creates []pending[model.Driver]
	var updates []pending[model.Driver]
	createIdx := map[string]int{}
	updateIdx := map[uuid.UUID]int{}

	for i, row := range rows {
		rowNum := i + 1
		first := specValue(row, driverFieldSpecs, "firstName", opts, res, rowNum)
		last := specValue(row, driverFieldSpecs, "lastName", opts, res, rowNum)
		if first == "" && last == "" {
			first, last = splitName(specValue(row, driverFieldSpecs, "name", opts, res, rowNum))
		}
		if first == "" && last == "" {
			res.Errorf(rowNum, "name", "driver name is required")
			continue
		}

		record := model.Driver{
			ID:              uuid.New(),
			TenantID:        e.tenantID,
			DriverNumber:    specValue(row, driverFieldSpecs, "driverNumber", opts, res, rowNum),
			FirstName:       first,
			LastName:        last,
			Email:           specValue(row, driverFieldSpecs, "email", opts, res, rowNum),
			Phone:           specValue(row, driverFieldSpecs, "phone", opts, res, rowNum),
			Type:            model.DriverCompany,
			Status:          model.DriverAvailable,
			LicenseNumber:   specValue(row, driverFieldSpecs, "licenseNumber", opts, res, rowNum),
			Address:         specValue(row, driverFieldSpecs, "address", opts, res, rowNum),
			City:            specValue(row, driverFieldSpecs, "city", opts, res, rowNum),
			Zip:             specValue(row, driverFieldSpecs, "zip", opts, res, rowNum),
			BillingEntityID: billingEntity,
			ImportBatchID:   opts.ImportBatchID,
		}
		// Number-less rosters are common. Phone digits, then the assigned
		// truck, make stable stand-ins that survive a re-import of the same
		// sheet; the synthetic number is the last resort.
		if record.DriverNumber == "" {
			record.DriverNumber = digitsOnly(record.Phone)
		}
		if record.DriverNumber == "" {
			record.DriverNumber = specValue(row, driverFieldSpecs, "truck", opts, res, rowNum)
		}
		if record.DriverNumber == "" {
			record.DriverNumber = syntheticNumber("D", record.ID)
		}

		if raw := specValue(row, driverFieldSpecs, "type", opts, res, rowNum); raw != "" {
			t, ok := parseDriverType(raw)
			if !ok {
				if fixed, found := fixes.fix("driverType", raw); found {
					t, ok = parseDriverType(fixed)
				}
			}
			if !ok {
				res.Warnf(rowNum, "type", "unrecognized driver type %q, defaulted to company driver", raw)
			}
			record.Type = t
		}
		if raw := specValue(row, driverFieldSpecs, "status", opts, res, rowNum); raw != "" {
			s, ok := parseDriverStatus(raw)
			if !ok {
				if fixed, found := fixes.fix("driverStatus", raw); found {
					s, ok = parseDriverStatus(fixed)
				}
			}
			if !ok {
				res.Warnf(rowNum, "status", "unrecognized driver status %q, defaulted to available", raw)
			}
			record.Status = s
		}

		record.LicenseState = NormalizeState(specValue(row, driverFieldSpecs, "licenseState", opts, res, rowNum))
		if raw := specValue(row, driverFieldSpecs, "state", opts, res, rowNum); raw != "" {
			record.State = NormalizeState(raw)
		}

		// Compliance dates default a year out so a roster without expiry
		// columns does not instantly flag every driver.
		fallbackExpiry := time.Now().UTC().AddDate(1, 0, 0)
		record.LicenseExpiry = fallbackExpiry
		record.MedicalCardExpiry = fallbackExpiry
		if raw := specValue(row, driverFieldSpecs, "licenseExpiry", opts, res, rowNum); raw != "" {
			if d, ok := parseDateFixed("licenseExpiry", raw); ok {
				record.LicenseExpiry = d
			} else {
				res.Warnf(rowNum, "licenseExpiry", "could not parse date %q", raw)
			}
		}
		if raw := specValue(row, driverFieldSpecs, "medicalCardExpiry", opts, res, rowNum); raw != "" {
			if d, ok := parseDateFixed("medicalCardExpiry", raw); ok {
				record.MedicalCardExpiry = d
			} else {
				res.Warnf(rowNum, "medicalCardExpiry", "could not parse date %q", raw)
			}
		}

		if raw := specValue(row, driverFieldSpecs, "payRate", opts, res, rowNum); raw != "" {
			if rate, ok := ParseNumber(raw); ok {
				record.PayRate = rate
			} else {
				res.Warnf(rowNum, "payRate", "could not parse pay rate %q", raw)
			}
		}
		if record.PayRate == 0 {
			record.PayRate = e.cfg.DefaultPayRate
		}

		keys := driverKeys(record.DriverNumber, record.Email)
		if dupKey := firstSeen(seen, keys); dupKey != "" {
			if prior, inStorage := stored[dupKey]; inStorage {
				if !opts.UpdateExisting {
					res.Warnf(rowNum, "name", "driver %s %s already exists, skipped (updateExisting is off)", record.FirstName, record.LastName)
					res.Summary.Skipped++
					continue
				}
				merged := mergeDriver(prior, record)
				if idx, ok := updateIdx[prior.ID]; ok {
					updates[idx] = pending[model.Driver]{Row: rowNum, Record: merged}
					res.Summary.Skipped++
					continue
				}
				updateIdx[prior.ID] = len(updates)
				updates = append(updates, pending[model.Driver]{Row: rowNum, Record: merged})
				continue
			}
			if idx, ok := createIdx[dupKey]; ok {
				record.ID = creates[idx].Record.ID
				creates[idx] = pending[model.Driver]{Row: rowNum, Record: record}
				res.Summary.Skipped++
				res.Warnf(rowNum, "", "duplicate of an earlier row in this file, keeping the latest values")
				continue
			}
		}

		seen.Add(keys...)
		for _, k := range keys {
			createIdx[k] = len(creates)
		}
		creates = append(creates, pending[model.Driver]{Row: rowNum, Record: record})
		res.addPreview(e.previewCap("drivers"), driverPreview(record, "create"))
	}

	for _, p := range updates {
		res.addPreview(e.previewCap("drivers"), driverPreview(p.Record, "update"))
	}

	if opts.PreviewOnly {
		res.Summary.Created = len(creates)
		res.Summary.Updated = len(updates)
		return e.finalize("drivers", res), nil
	}

	res.Summary.Created = persistCreates(ctx, creates, e.cfg.BatchSize,
		e.store.BulkInsertDrivers, e.store.InsertDriver, func(d model.Driver) any {
			return driverPreview(d, "create")
		}, res)
	res.Summary.Updated = persistUpdates(ctx, updates,
		e.store.UpdateDrivers, e.store.UpdateDriver, res)
	return e.finalize("drivers", res), nil
}

func mergeDriver(current, next model.Driver) model.Driver {
	merged := current
	merged.FirstName = overwrite(current.FirstName, next.FirstName)
	merged.LastName = overwrite(current.LastName, next.LastName)
	merged.Email = overwrite(current.Email, next.Email)
	merged.Phone = overwrite(current.Phone, next.Phone)
	merged.LicenseNumber = overwrite(current.LicenseNumber, next.LicenseNumber)
	merged.LicenseState = overwrite(current.LicenseState, next.LicenseState)
	merged.Address = overwrite(current.Address, next.Address)
	merged.City = overwrite(current.City, next.City)
	merged.State = overwrite(current.State, next.State)
	merged.Zip = overwrite(current.Zip, next.Zip)
	if next.PayRate != 0 {
		merged.PayRate = next.PayRate
	}
	return merged
}

func driverPreview(d model.Driver, action string) map[string]any {
	return map[string]any{
		"action":       action,
		"id":           d.ID,
		"driverNumber": d.DriverNumber,
		"firstName":    d.FirstName,
		"lastName":     d.LastName,
		"type":         d.Type,
		"status":       d.Status,
	}
}
