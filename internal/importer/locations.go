package importer

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/haulops-platform/api/internal/model"
)

var locationFieldSpecs = []FieldSpec{
	{Field: "locationNumber", Synonyms: []string{"location number", "location no", "number", "id", "code"}},
	{Field: "name", Synonyms: []string{"location name", "location", "facility", "facility name", "site"}},
	{Field: "company", Synonyms: []string{"company name", "business", "business name"}},
	{Field: "address", Synonyms: []string{"street", "street address", "address 1", "full address"}},
	{Field: "city", Synonyms: []string{"town"}},
	{Field: "state", Synonyms: []string{"st", "province"}},
	{Field: "zip", Synonyms: []string{"zip code", "postal code", "zipcode"}},
	{Field: "contactName", Synonyms: []string{"contact", "contact person", "attn", "attention"}},
	{Field: "contactPhone", Synonyms: []string{"phone", "phone number", "contact number", "tel"}},
	{Field: "type", Synonyms: []string{"location type", "category", "role"}},
	{Field: "notes", Synonyms: []string{"note", "comments", "comment", "remarks"}},
}

// locationKey is a composite: locations have no reliable single identifier,
// so identity is the name+address+city+state tuple.
func locationKey(l model.Location) string {
	return compositeKey(l.Name, l.Address, l.City, l.State)
}

func (e *Engine) ImportLocations(ctx context.Context, rows []Row, opts Options) (*Result, error) {
	res := newResult(len(rows), e.cfg.MaxRowMessages)

	existing, err := e.store.ListLocations(ctx, e.tenantID)
	if err != nil {
		return nil, fmt.Errorf("list locations: %w", err)
	}
	seen := newKeySet()
	stored := map[string]model.Location{}
	for _, l := range existing {
		k := locationKey(l)
		seen.Add(k)
		stored[k] = l
	}

	queue := newFixQueue()
	for _, row := range rows {
		if raw := rawValue(row, locationFieldSpecs, "type", opts); raw != "" {
			if _, ok := parseLocationType(raw); !ok {
				queue.add("locationType", raw)
			}
		}
		if raw := rawValue(row, locationFieldSpecs, "state", opts); raw != "" && NormalizeState(raw) == "" {
			queue.add("state", raw)
		}
	}
	fixes := e.corrections(ctx, queue)

	var creates []pending[model.Location]
	var updates []pending[model.Location]
	createIdx := map[string]int{}
	updateIdx := map[uuid.UUID]int{}

	for i, row := range rows {
		rowNum := i + 1
		name := specValue(row, locationFieldSpecs, "name", opts, res, rowNum)
		address := specValue(row, locationFieldSpecs, "address", opts, res, rowNum)
		if name == "" && address == "" {
			res.Errorf(rowNum, "name", "location name or address is required")
			continue
		}

		record := model.Location{
			ID:             uuid.New(),
			TenantID:       e.tenantID,
			LocationNumber: specValue(row, locationFieldSpecs, "locationNumber", opts, res, rowNum),
			Name:           name,
			Company:        specValue(row, locationFieldSpecs, "company", opts, res, rowNum),
			Address:        address,
			City:           specValue(row, locationFieldSpecs, "city", opts, res, rowNum),
			Zip:            specValue(row, locationFieldSpecs, "zip", opts, res, rowNum),
			ContactName:    specValue(row, locationFieldSpecs, "contactName", opts, res, rowNum),
			ContactPhone:   specValue(row, locationFieldSpecs, "contactPhone", opts, res, rowNum),
			Type:           model.LocationOther,
			Notes:          specValue(row, locationFieldSpecs, "notes", opts, res, rowNum),
			ImportBatchID:  opts.ImportBatchID,
		}

		if raw := specValue(row, locationFieldSpecs, "state", opts, res, rowNum); raw != "" {
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

		if raw := specValue(row, locationFieldSpecs, "type", opts, res, rowNum); raw != "" {
			t, ok := parseLocationType(raw)
			if !ok {
				if fixed, found := fixes.fix("locationType", raw); found {
					t, ok = parseLocationType(fixed)
				}
			}
			if !ok {
				res.Warnf(rowNum, "type", "unrecognized location type %q, defaulted to other", raw)
			}
			record.Type = t
		}

		key := locationKey(record)
		if seen.Seen(key) {
			if prior, inStorage := stored[key]; inStorage {
				if !opts.UpdateExisting {
					res.Warnf(rowNum, "name", "location %q already exists, skipped (updateExisting is off)", record.Name)
					res.Summary.Skipped++
					continue
				}
				merged := mergeLocation(prior, record)
				if idx, ok := updateIdx[prior.ID]; ok {
					updates[idx] = pending[model.Location]{Row: rowNum, Record: merged}
					res.Summary.Skipped++
					continue
				}
				updateIdx[prior.ID] = len(updates)
				updates = append(updates, pending[model.Location]{Row: rowNum, Record: merged})
				continue
			}
			if idx, ok := createIdx[key]; ok {
				record.ID = creates[idx].Record.ID
				creates[idx] = pending[model.Location]{Row: rowNum, Record: record}
				res.Summary.Skipped++
				res.Warnf(rowNum, "", "duplicate of an earlier row in this file, keeping the latest values")
				continue
			}
		}

		seen.Add(key)
		createIdx[key] = len(creates)
		creates = append(creates, pending[model.Location]{Row: rowNum, Record: record})
		res.addPreview(e.previewCap("locations"), locationPreview(record, "create"))
	}

	for _, p := range updates {
		res.addPreview(e.previewCap("locations"), locationPreview(p.Record, "update"))
	}

	if opts.PreviewOnly {
		res.Summary.Created = len(creates)
		res.Summary.Updated = len(updates)
		return e.finalize("locations", res), nil
	}

	res.Summary.Created = persistCreates(ctx, creates, e.cfg.BatchSize,
		e.store.BulkInsertLocations, e.store.InsertLocation, func(l model.Location) any {
			return locationPreview(l, "create")
		}, res)
	res.Summary.Updated = persistUpdates(ctx, updates,
		e.store.UpdateLocations, e.store.UpdateLocation, res)
	return e.finalize("locations", res), nil
}

func mergeLocation(current, next model.Location) model.Location {
	merged := current
	merged.LocationNumber = overwrite(current.LocationNumber, next.LocationNumber)
	merged.Company = overwrite(current.Company, next.Company)
	merged.Zip = overwrite(current.Zip, next.Zip)
	merged.ContactName = overwrite(current.ContactName, next.ContactName)
	merged.ContactPhone = overwrite(current.ContactPhone, next.ContactPhone)
	merged.Notes = overwrite(current.Notes, next.Notes)
	if next.Type != model.LocationOther {
		merged.Type = next.Type
	}
	return merged
}

func locationPreview(l model.Location, action string) map[string]any {
	return map[string]any{
		"action":  action,
		"id":      l.ID,
		"name":    l.Name,
		"address": l.Address,
		"city":    l.City,
		"state":   l.State,
		"type":    l.Type,
	}
}
