package importer

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/haulops-platform/api/internal/model"
)

var vendorFieldSpecs = []FieldSpec{
	{Field: "vendorNumber", Synonyms: []string{"vendor number", "vendor no", "account number", "account", "number", "id"}},
	{Field: "name", Synonyms: []string{"vendor name", "vendor", "company", "company name", "supplier", "payee"}},
	{Field: "type", Synonyms: []string{"vendor type", "category", "service type"}},
	{Field: "email", Synonyms: []string{"email address", "e-mail", "contact email"}},
	{Field: "phone", Synonyms: []string{"phone number", "telephone", "contact phone", "tel"}},
	{Field: "website", Synonyms: []string{"web", "url", "site"}},
	{Field: "address", Synonyms: []string{"street", "street address", "address 1"}},
	{Field: "city", Synonyms: []string{"town"}},
	{Field: "state", Synonyms: []string{"st", "province"}},
	{Field: "zip", Synonyms: []string{"zip code", "postal code", "zipcode"}},
}

func vendorKeys(number, name string) []string {
	var keys []string
	if normalizeKey(number) != "" {
		keys = append(keys, "num:"+normalizeKey(number))
	}
	if normalizeKey(name) != "" {
		keys = append(keys, "name:"+normalizeKey(name))
	}
	return keys
}

func (e *Engine) ImportVendors(ctx context.Context, rows []Row, opts Options) (*Result, error) {
	res := newResult(len(rows), e.cfg.MaxRowMessages)

	existing, err := e.store.ListVendors(ctx, e.tenantID)
	if err != nil {
		return nil, fmt.Errorf("list vendors: %w", err)
	}
	seen := newKeySet()
	stored := map[string]model.Vendor{}
	for _, v := range existing {
		for _, k := range vendorKeys(v.VendorNumber, v.Name) {
			seen.Add(k)
			stored[k] = v
		}
	}

	queue := newFixQueue()
	for _, row := range rows {
		if raw := rawValue(row, vendorFieldSpecs, "type", opts); raw != "" {
			if _, ok := parseVendorType(raw); !ok {
				queue.add("vendorType", raw)
			}
		}
		if raw := rawValue(row, vendorFieldSpecs, "state", opts); raw != "" && NormalizeState(raw) == "" {
			queue.add("state", raw)
		}
	}
	fixes := e.corrections(ctx, queue)

	var creates []pending[model.Vendor]
	var updates []pending[model.Vendor]
	createIdx := map[string]int{}
	updateIdx := map[uuid.UUID]int{}

	for i, row := range rows {
		rowNum := i + 1
		name := specValue(row, vendorFieldSpecs, "name", opts, res, rowNum)
		number := specValue(row, vendorFieldSpecs, "vendorNumber", opts, res, rowNum)
		if name == "" && number == "" {
			res.Errorf(rowNum, "name", "vendor name or number is required")
			continue
		}

		record := model.Vendor{
			ID:            uuid.New(),
			TenantID:      e.tenantID,
			VendorNumber:  number,
			Name:          name,
			Type:          model.VendorOther,
			Email:         specValue(row, vendorFieldSpecs, "email", opts, res, rowNum),
			Phone:         specValue(row, vendorFieldSpecs, "phone", opts, res, rowNum),
			Website:       specValue(row, vendorFieldSpecs, "website", opts, res, rowNum),
			Address:       specValue(row, vendorFieldSpecs, "address", opts, res, rowNum),
			City:          specValue(row, vendorFieldSpecs, "city", opts, res, rowNum),
			Zip:           specValue(row, vendorFieldSpecs, "zip", opts, res, rowNum),
			ImportBatchID: opts.ImportBatchID,
		}

		if raw := specValue(row, vendorFieldSpecs, "type", opts, res, rowNum); raw != "" {
			t, ok := parseVendorType(raw)
			if !ok {
				if fixed, found := fixes.fix("vendorType", raw); found {
					t, ok = parseVendorType(fixed)
				}
			}
			if !ok {
				res.Warnf(rowNum, "type", "unrecognized vendor type %q, defaulted to other", raw)
			}
			record.Type = t
		}

		if raw := specValue(row, vendorFieldSpecs, "state", opts, res, rowNum); raw != "" {
			state := NormalizeState(raw)
			if state == "" {
				if fixed, found := fixes.fix("state", raw); found {
					state = NormalizeState(fixed)
				}
			}
			if state == "" {
				res.Warnf(rowNum, "state", "unrecognized state %q", raw)
			}
			record.State = state
		}

		if record.City == "" && record.State == "" {
			if parts := ParseLocation(record.Address); parts != nil && parts.City != "" {
				record.Address = parts.Address
				record.City = parts.City
				record.State = parts.State
				record.Zip = overwrite(record.Zip, parts.Zip)
			}
		}

		keys := vendorKeys(record.VendorNumber, record.Name)
		if dupKey := firstSeen(seen, keys); dupKey != "" {
			if prior, inStorage := stored[dupKey]; inStorage {
				if !opts.UpdateExisting {
					res.Warnf(rowNum, "name", "vendor %q already exists, skipped (updateExisting is off)", record.Name)
					res.Summary.Skipped++
					continue
				}
				merged := mergeVendor(prior, record)
				if idx, ok := updateIdx[prior.ID]; ok {
					updates[idx] = pending[model.Vendor]{Row: rowNum, Record: merged}
					res.Summary.Skipped++
					continue
				}
				updateIdx[prior.ID] = len(updates)
				updates = append(updates, pending[model.Vendor]{Row: rowNum, Record: merged})
				continue
			}
			if idx, ok := createIdx[dupKey]; ok {
				record.ID = creates[idx].Record.ID
				creates[idx] = pending[model.Vendor]{Row: rowNum, Record: record}
				res.Summary.Skipped++
				res.Warnf(rowNum, "", "duplicate of an earlier row in this file, keeping the latest values")
				continue
			}
		}

		seen.Add(keys...)
		for _, k := range keys {
			createIdx[k] = len(creates)
		}
		creates = append(creates, pending[model.Vendor]{Row: rowNum, Record: record})
		res.addPreview(e.previewCap("vendors"), vendorPreview(record, "create"))
	}

	for _, p := range updates {
		res.addPreview(e.previewCap("vendors"), vendorPreview(p.Record, "update"))
	}

	if opts.PreviewOnly {
		res.Summary.Created = len(creates)
		res.Summary.Updated = len(updates)
		return e.finalize("vendors", res), nil
	}

	res.Summary.Created = persistCreates(ctx, creates, e.cfg.BatchSize,
		e.store.BulkInsertVendors, e.store.InsertVendor, func(v model.Vendor) any {
			return vendorPreview(v, "create")
		}, res)
	res.Summary.Updated = persistUpdates(ctx, updates,
		e.store.UpdateVendors, e.store.UpdateVendor, res)
	return e.finalize("vendors", res), nil
}

func mergeVendor(current, next model.Vendor) model.Vendor {
	merged := current
	merged.VendorNumber = overwrite(current.VendorNumber, next.VendorNumber)
	merged.Name = overwrite(current.Name, next.Name)
	merged.Email = overwrite(current.Email, next.Email)
	merged.Phone = overwrite(current.Phone, next.Phone)
	merged.Website = overwrite(current.Website, next.Website)
	merged.Address = overwrite(current.Address, next.Address)
	merged.City = overwrite(current.City, next.City)
	merged.State = overwrite(current.State, next.State)
	merged.Zip = overwrite(current.Zip, next.Zip)
	if next.Type != model.VendorOther {
		merged.Type = next.Type
	}
	return merged
}

func vendorPreview(v model.Vendor, action string) map[string]any {
	return map[string]any{
		"action":       action,
		"id":           v.ID,
		"vendorNumber": v.VendorNumber,
		"name":         v.Name,
		"type":         v.Type,
		"city":         v.City,
		"state":        v.State,
	}
}
