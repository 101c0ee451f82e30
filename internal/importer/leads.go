package importer

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/haulops-platform/api/internal/model"
)

var leadFieldSpecs = []FieldSpec{
	{Field: "leadNumber", Synonyms: []string{"lead number", "lead no", "lead id", "number"}},
	{Field: "name", Synonyms: []string{"lead name", "applicant", "applicant name", "full name", "driver name"}},
	{Field: "firstName", Synonyms: []string{"first", "fname", "given name"}},
	{Field: "lastName", Synonyms: []string{"last", "lname", "surname"}},
	{Field: "phone", Synonyms: []string{"phone number", "cell", "cell phone", "mobile", "contact number", "tel"}},
	{Field: "email", Synonyms: []string{"email address", "e-mail"}},
	{Field: "status", Synonyms: []string{"lead status", "stage", "pipeline stage"}},
	{Field: "priority", Synonyms: []string{"lead priority", "rank"}},
	{Field: "source", Synonyms: []string{"lead source", "campaign", "referral", "referral source", "channel"}},
	{Field: "cdlClass", Synonyms: []string{"cdl", "cdl class", "license class", "class"}},
	{Field: "city", Synonyms: []string{"town"}},
	{Field: "state", Synonyms: []string{"st", "province"}},
	{Field: "notes", Synonyms: []string{"note", "comments", "comment", "remarks"}},
}

// leadKeys: phone digits beat formatting differences, plus the email.
func leadKeys(phone, email string) []string {
	var keys []string
	if d := digitsOnly(phone); len(d) >= 7 {
		keys = append(keys, "phone:"+d)
	}
	if normalizeKey(email) != "" {
		keys = append(keys, "email:"+normalizeKey(email))
	}
	return keys
}

func (e *Engine) ImportLeads(ctx context.Context, rows []Row, opts Options) (*Result, error) {
	res := newResult(len(rows), e.cfg.MaxRowMessages)

	existing, err := e.store.ListLeads(ctx, e.tenantID)
	if err != nil {
		return nil, fmt.Errorf("list leads: %w", err)
	}
	seen := newKeySet()
	stored := map[string]model.Lead{}
	for _, l := range existing {
		for _, k := range leadKeys(l.Phone, l.Email) {
			seen.Add(k)
			stored[k] = l
		}
	}

	queue := newFixQueue()
	for _, row := range rows {
		if raw := rawValue(row, leadFieldSpecs, "status", opts); raw != "" {
			if _, ok := parseLeadStatus(raw); !ok {
				queue.add("leadStatus", raw)
			}
		}
	}
	fixes := e.corrections(ctx, queue)

	var creates []pending[model.Lead]
	var updates []pending[model.Lead]
	createIdx := map[string]int{}
	updateIdx := map[uuid.UUID]int{}

	for i, row := range rows {
		rowNum := i + 1
		first := specValue(row, leadFieldSpecs, "firstName", opts, res, rowNum)
		last := specValue(row, leadFieldSpecs, "lastName", opts, res, rowNum)
		if first == "" && last == "" {
			first, last = splitName(specValue(row, leadFieldSpecs, "name", opts, res, rowNum))
		}
		phone := specValue(row, leadFieldSpecs, "phone", opts, res, rowNum)
		email := specValue(row, leadFieldSpecs, "email", opts, res, rowNum)
		if phone == "" && email == "" {
			res.Errorf(rowNum, "phone", "a phone number or email is required")
			continue
		}
		if first == "" && last == "" {
			res.Errorf(rowNum, "name", "lead name is required")
			continue
		}

		record := model.Lead{
			ID:            uuid.New(),
			TenantID:      e.tenantID,
			LeadNumber:    specValue(row, leadFieldSpecs, "leadNumber", opts, res, rowNum),
			FirstName:     first,
			LastName:      last,
			Phone:         phone,
			Email:         email,
			Status:        model.LeadNew,
			Priority:      normalizeKey(specValue(row, leadFieldSpecs, "priority", opts, res, rowNum)),
			Source:        specValue(row, leadFieldSpecs, "source", opts, res, rowNum),
			CDLClass:      specValue(row, leadFieldSpecs, "cdlClass", opts, res, rowNum),
			City:          specValue(row, leadFieldSpecs, "city", opts, res, rowNum),
			Notes:         specValue(row, leadFieldSpecs, "notes", opts, res, rowNum),
			ImportBatchID: opts.ImportBatchID,
		}
		if raw := specValue(row, leadFieldSpecs, "state", opts, res, rowNum); raw != "" {
			record.State = NormalizeState(raw)
		}
		if raw := specValue(row, leadFieldSpecs, "status", opts, res, rowNum); raw != "" {
			s, ok := parseLeadStatus(raw)
			if !ok {
				if fixed, found := fixes.fix("leadStatus", raw); found {
					s, ok = parseLeadStatus(fixed)
				}
			}
			if !ok {
				res.Warnf(rowNum, "status", "unrecognized lead status %q, defaulted to new", raw)
			}
			record.Status = s
		}

		keys := leadKeys(record.Phone, record.Email)
		if dupKey := firstSeen(seen, keys); dupKey != "" {
			if prior, inStorage := stored[dupKey]; inStorage {
				if !opts.UpdateExisting {
					res.Warnf(rowNum, "", "lead matching %q already exists, skipped (updateExisting is off)", dupKey)
					res.Summary.Skipped++
					continue
				}
				merged := mergeLead(prior, record)
				if idx, ok := updateIdx[prior.ID]; ok {
					updates[idx] = pending[model.Lead]{Row: rowNum, Record: merged}
					res.Summary.Skipped++
					continue
				}
				updateIdx[prior.ID] = len(updates)
				updates = append(updates, pending[model.Lead]{Row: rowNum, Record: merged})
				continue
			}
			if idx, ok := createIdx[dupKey]; ok {
				record.ID = creates[idx].Record.ID
				creates[idx] = pending[model.Lead]{Row: rowNum, Record: record}
				res.Summary.Skipped++
				res.Warnf(rowNum, "", "duplicate of an earlier row in this file, keeping the latest values")
				continue
			}
		}

		seen.Add(keys...)
		for _, k := range keys {
			createIdx[k] = len(creates)
		}
		creates = append(creates, pending[model.Lead]{Row: rowNum, Record: record})
		res.addPreview(e.previewCap("leads"), leadPreview(record, "create"))
	}

	for _, p := range updates {
		res.addPreview(e.previewCap("leads"), leadPreview(p.Record, "update"))
	}

	if opts.PreviewOnly {
		res.Summary.Created = len(creates)
		res.Summary.Updated = len(updates)
		return e.finalize("leads", res), nil
	}

	res.Summary.Created = persistCreates(ctx, creates, e.cfg.BatchSize,
		e.store.BulkInsertLeads, e.store.InsertLead, func(l model.Lead) any {
			return leadPreview(l, "create")
		}, res)
	res.Summary.Updated = persistUpdates(ctx, updates,
		e.store.UpdateLeads, e.store.UpdateLead, res)
	return e.finalize("leads", res), nil
}

func mergeLead(current, next model.Lead) model.Lead {
	merged := current
	merged.LeadNumber = overwrite(current.LeadNumber, next.LeadNumber)
	merged.FirstName = overwrite(current.FirstName, next.FirstName)
	merged.LastName = overwrite(current.LastName, next.LastName)
	merged.Phone = overwrite(current.Phone, next.Phone)
	merged.Email = overwrite(current.Email, next.Email)
	merged.Priority = overwrite(current.Priority, next.Priority)
	merged.Source = overwrite(current.Source, next.Source)
	merged.CDLClass = overwrite(current.CDLClass, next.CDLClass)
	merged.City = overwrite(current.City, next.City)
	merged.State = overwrite(current.State, next.State)
	merged.Notes = overwrite(current.Notes, next.Notes)
	if next.Status != model.LeadNew {
		merged.Status = next.Status
	}
	return merged
}

func leadPreview(l model.Lead, action string) map[string]any {
	return map[string]any{
		"action":    action,
		"id":        l.ID,
		"firstName": l.FirstName,
		"lastName":  l.LastName,
		"phone":     l.Phone,
		"email":     l.Email,
		"status":    l.Status,
	}
}
