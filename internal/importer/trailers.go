package importer

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/haulops-platform/api/internal/model"
)

var trailerFieldSpecs = []FieldSpec{
	{Field: "trailerNumber", Synonyms: []string{"trailer number", "trailer no", "trailer", "unit", "unit number", "number"}},
	{Field: "vin", Synonyms: []string{"vin number", "serial", "serial number"}},
	{Field: "make", Synonyms: []string{"manufacturer", "brand"}},
	{Field: "model", Synonyms: []string{"trailer model"}},
	{Field: "equipment", Synonyms: []string{"equipment type", "trailer type", "type"}},
	{Field: "status", Synonyms: []string{"trailer status", "unit status"}},
}

func trailerKeys(number, vin string) []string {
	var keys []string
	if normalizeKey(number) != "" {
		keys = append(keys, "num:"+stripLeadingZeros(normalizeKey(number)))
	}
	if normalizeKey(vin) != "" {
		keys = append(keys, "vin:"+normalizeKey(vin))
	}
	return keys
}

func (e *Engine) ImportTrailers(ctx context.Context, rows []Row, opts Options) (*Result, error) {
	res := newResult(len(rows), e.cfg.MaxRowMessages)

	existing, err := e.store.ListTrailers(ctx, e.tenantID)
	if err != nil {
		return nil, fmt.Errorf("list trailers: %w", err)
	}
	billingEntity, err := e.defaultBillingEntity(ctx, opts)
	if err != nil {
		return nil, err
	}

	seen := newKeySet()
	stored := map[string]model.Trailer{}
	for _, t := range existing {
		for _, k := range trailerKeys(t.TrailerNumber, t.VIN) {
			seen.Add(k)
			stored[k] = t
		}
	}

	queue := newFixQueue()
	for _, row := range rows {
		if raw := rawValue(row, trailerFieldSpecs, "equipment", opts); raw != "" {
			if _, ok := parseEquipment(raw); !ok {
				queue.add("equipment", raw)
			}
		}
	}
	fixes := e.corrections(ctx, queue)

	var creates []pending[model.Trailer]
	var updates []pending[model.Trailer]
	createIdx := map[string]int{}
	updateIdx := map[uuid.UUID]int{}

	for i, row := range rows {
		rowNum := i + 1
		number := specValue(row, trailerFieldSpecs, "trailerNumber", opts, res, rowNum)
		vin := specValue(row, trailerFieldSpecs, "vin", opts, res, rowNum)
		if number == "" && vin == "" {
			res.Errorf(rowNum, "trailerNumber", "trailer number or VIN is required")
			continue
		}

		record := model.Trailer{
			ID:              uuid.New(),
			TenantID:        e.tenantID,
			TrailerNumber:   number,
			VIN:             vin,
			Make:            specValue(row, trailerFieldSpecs, "make", opts, res, rowNum),
			Model:           specValue(row, trailerFieldSpecs, "model", opts, res, rowNum),
			Equipment:       model.EquipmentDryVan,
			Status:          "active",
			BillingEntityID: billingEntity,
			ImportBatchID:   opts.ImportBatchID,
		}
		if record.TrailerNumber == "" {
			record.TrailerNumber = syntheticNumber("TR", record.ID)
		}

		if raw := specValue(row, trailerFieldSpecs, "equipment", opts, res, rowNum); raw != "" {
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
		if raw := specValue(row, trailerFieldSpecs, "status", opts, res, rowNum); raw != "" {
			record.Status = normalizeKey(raw)
		}

		keys := trailerKeys(record.TrailerNumber, record.VIN)
		if dupKey := firstSeen(seen, keys); dupKey != "" {
			if prior, inStorage := stored[dupKey]; inStorage {
				if !opts.UpdateExisting {
					res.Warnf(rowNum, "trailerNumber", "trailer %s already exists, skipped (updateExisting is off)", record.TrailerNumber)
					res.Summary.Skipped++
					continue
				}
				merged := mergeTrailer(prior, record)
				if idx, ok := updateIdx[prior.ID]; ok {
					updates[idx] = pending[model.Trailer]{Row: rowNum, Record: merged}
					res.Summary.Skipped++
					continue
				}
				updateIdx[prior.ID] = len(updates)
				updates = append(updates, pending[model.Trailer]{Row: rowNum, Record: merged})
				continue
			}
			if idx, ok := createIdx[dupKey]; ok {
				record.ID = creates[idx].Record.ID
				creates[idx] = pending[model.Trailer]{Row: rowNum, Record: record}
				res.Summary.Skipped++
				res.Warnf(rowNum, "", "duplicate of an earlier row in this file, keeping the latest values")
				continue
			}
		}

		seen.Add(keys...)
		for _, k := range keys {
			createIdx[k] = len(creates)
		}
		creates = append(creates, pending[model.Trailer]{Row: rowNum, Record: record})
		res.addPreview(e.previewCap("trailers"), trailerPreview(record, "create"))
	}

	for _, p := range updates {
		res.addPreview(e.previewCap("trailers"), trailerPreview(p.Record, "update"))
	}

	if opts.PreviewOnly {
		res.Summary.Created = len(creates)
		res.Summary.Updated = len(updates)
		return e.finalize("trailers", res), nil
	}

	res.Summary.Created = persistCreates(ctx, creates, e.cfg.BatchSize,
		e.store.BulkInsertTrailers, e.store.InsertTrailer, func(t model.Trailer) any {
			return trailerPreview(t, "create")
		}, res)
	res.Summary.Updated = persistUpdates(ctx, updates,
		e.store.UpdateTrailers, e.store.UpdateTrailer, res)
	return e.finalize("trailers", res), nil
}

func mergeTrailer(current, next model.Trailer) model.Trailer {
	merged := current
	merged.VIN = overwrite(current.VIN, next.VIN)
	merged.Make = overwrite(current.Make, next.Make)
	merged.Model = overwrite(current.Model, next.Model)
	if next.Equipment != model.EquipmentDryVan {
		merged.Equipment = next.Equipment
	}
	merged.Status = overwrite(current.Status, next.Status)
	return merged
}

func trailerPreview(t model.Trailer, action string) map[string]any {
	return map[string]any{
		"action":        action,
		"id":            t.ID,
		"trailerNumber": t.TrailerNumber,
		"vin":           t.VIN,
		"equipment":     t.Equipment,
	}
}
