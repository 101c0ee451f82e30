package importer

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/haulops-platform/api/internal/model"
)

var customerFieldSpecs = []FieldSpec{
	{Field: "customerNumber", Synonyms: []string{"customer number", "cust no", "account number", "account", "number", "id"}},
	{Field: "name", Synonyms: []string{"customer name", "customer", "company", "company name", "broker", "broker name", "client"}},
	{Field: "type", Synonyms: []string{"customer type", "category"}},
	{Field: "address", Synonyms: []string{"street", "street address", "address 1", "address line 1"}},
	{Field: "city", Synonyms: []string{"town"}},
	{Field: "state", Synonyms: []string{"st", "province"}},
	{Field: "zip", Synonyms: []string{"zip code", "postal code", "zipcode"}},
	{Field: "phone", Synonyms: []string{"phone number", "telephone", "contact phone", "tel"}},
	{Field: "email", Synonyms: []string{"email address", "e-mail", "contact email"}},
	{Field: "billingEmails", Synonyms: []string{"billing email", "billing emails", "invoice email", "ap email", "accounts payable email"}},
	{Field: "creditRate", Synonyms: []string{"credit rate", "credit limit", "credit", "factoring rate"}},
	{Field: "notes", Synonyms: []string{"note", "comments", "comment", "remarks"}},
}

// customerKeys lists every dedup key a customer record claims: its customer
// number and its case-folded name, whichever are present.
func customerKeys(number, name string) []string {
	var keys []string
	if normalizeKey(number) != "" {
		keys = append(keys, "num:"+normalizeKey(number))
	}
	if normalizeKey(name) != "" {
		keys = append(keys, "name:"+normalizeKey(name))
	}
	return keys
}

func (e *Engine) ImportCustomers(ctx context.Context, rows []Row, opts Options) (*Result, error) {
	res := newResult(len(rows), e.cfg.MaxRowMessages)

	existing, err := e.store.ListCustomers(ctx, e.tenantID)
	if err != nil {
		return nil, fmt.Errorf("list customers: %w", err)
	}
	seen := newKeySet()
	stored := map[string]model.Customer{}
	for _, c := range existing {
		for _, k := range customerKeys(c.CustomerNumber, c.Name) {
			seen.Add(k)
			stored[k] = c
		}
	}

	queue := newFixQueue()
	for _, row := range rows {
		if raw := rawValue(row, customerFieldSpecs, "type", opts); raw != "" {
			if _, ok := parseCustomerType(raw); !ok {
				queue.add("customerType", raw)
			}
		}
		if raw := rawValue(row, customerFieldSpecs, "state", opts); raw != "" && NormalizeState(raw) == "" {
			queue.add("state", raw)
		}
	}
	fixes := e.corrections(ctx, queue)

	var creates []pending[model.Customer]
	var updates []pending[model.Customer]
	createIdx := map[string]int{}
	updateIdx := map[uuid.UUID]int{}

	for i, row := range rows {
		rowNum := i + 1
		name := specValue(row, customerFieldSpecs, "name", opts, res, rowNum)
		number := specValue(row, customerFieldSpecs, "customerNumber", opts, res, rowNum)
		if name == "" && number == "" {
			res.Errorf(rowNum, "name", "customer name or number is required")
			continue
		}

		record := model.Customer{
			ID:             uuid.New(),
			TenantID:       e.tenantID,
			CustomerNumber: number,
			Name:           name,
			Type:           model.CustomerBroker,
			Address:        specValue(row, customerFieldSpecs, "address", opts, res, rowNum),
			City:           specValue(row, customerFieldSpecs, "city", opts, res, rowNum),
			Phone:          specValue(row, customerFieldSpecs, "phone", opts, res, rowNum),
			Email:          specValue(row, customerFieldSpecs, "email", opts, res, rowNum),
			BillingEmails:  specValue(row, customerFieldSpecs, "billingEmails", opts, res, rowNum),
			Notes:          specValue(row, customerFieldSpecs, "notes", opts, res, rowNum),
			ImportBatchID:  opts.ImportBatchID,
		}
		record.Zip = specValue(row, customerFieldSpecs, "zip", opts, res, rowNum)

		if raw := specValue(row, customerFieldSpecs, "type", opts, res, rowNum); raw != "" {
			t, ok := parseCustomerType(raw)
			if !ok {
				if fixed, found := fixes.fix("customerType", raw); found {
					t, ok = parseCustomerType(fixed)
				}
			}
			if !ok {
				res.Warnf(rowNum, "type", "unrecognized customer type %q, defaulted to broker", raw)
			}
			record.Type = t
		}

		if raw := specValue(row, customerFieldSpecs, "state", opts, res, rowNum); raw != "" {
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

		// Composite "123 Main St, Springfield, IL 62701" in the address
		// column fills whatever city/state/zip the row left blank.
		if record.City == "" && record.State == "" {
			if parts := ParseLocation(record.Address); parts != nil && parts.City != "" {
				record.Address = parts.Address
				record.City = parts.City
				record.State = parts.State
				record.Zip = overwrite(record.Zip, parts.Zip)
			}
		}

		if raw := specValue(row, customerFieldSpecs, "creditRate", opts, res, rowNum); raw != "" {
			if rate, ok := ParseNumber(raw); ok {
				record.CreditRate = &rate
			} else {
				res.Warnf(rowNum, "creditRate", "could not parse credit rate %q", raw)
			}
		}

		keys := customerKeys(record.CustomerNumber, record.Name)
		if dupKey := firstSeen(seen, keys); dupKey != "" {
			if prior, inStorage := stored[dupKey]; inStorage {
				if !opts.UpdateExisting {
					res.Warnf(rowNum, "name", "customer %q already exists, skipped (updateExisting is off)", record.Name)
					res.Summary.Skipped++
					continue
				}
				merged := mergeCustomer(prior, record)
				if idx, ok := updateIdx[prior.ID]; ok {
					// Repeated in file: keep the latest values.
					updates[idx] = pending[model.Customer]{Row: rowNum, Record: merged}
					res.Summary.Skipped++
					continue
				}
				updateIdx[prior.ID] = len(updates)
				updates = append(updates, pending[model.Customer]{Row: rowNum, Record: merged})
				continue
			}
			if idx, ok := createIdx[dupKey]; ok {
				record.ID = creates[idx].Record.ID
				creates[idx] = pending[model.Customer]{Row: rowNum, Record: record}
				res.Summary.Skipped++
				res.Warnf(rowNum, "", "duplicate of an earlier row in this file, keeping the latest values")
				continue
			}
		}

		seen.Add(keys...)
		for _, k := range keys {
			createIdx[k] = len(creates)
		}
		creates = append(creates, pending[model.Customer]{Row: rowNum, Record: record})
		res.addPreview(e.previewCap("customers"), customerPreview(record, "create"))
	}

	for _, p := range updates {
		res.addPreview(e.previewCap("customers"), customerPreview(p.Record, "update"))
	}

	if opts.PreviewOnly {
		res.Summary.Created = len(creates)
		res.Summary.Updated = len(updates)
		return e.finalize("customers", res), nil
	}

	res.Summary.Created = persistCreates(ctx, creates, e.cfg.BatchSize,
		e.store.BulkInsertCustomers, e.store.InsertCustomer, func(c model.Customer) any {
			return customerPreview(c, "create")
		}, res)
	res.Summary.Updated = persistUpdates(ctx, updates,
		e.store.UpdateCustomers, e.store.UpdateCustomer, res)
	return e.finalize("customers", res), nil
}

// mergeCustomer lays the incoming row over the stored record, keeping stored
// values wherever the row is blank.
func mergeCustomer(current, next model.Customer) model.Customer {
	merged := current
	merged.CustomerNumber = overwrite(current.CustomerNumber, next.CustomerNumber)
	merged.Name = overwrite(current.Name, next.Name)
	merged.Address = overwrite(current.Address, next.Address)
	merged.City = overwrite(current.City, next.City)
	merged.State = overwrite(current.State, next.State)
	merged.Zip = overwrite(current.Zip, next.Zip)
	merged.Phone = overwrite(current.Phone, next.Phone)
	merged.Email = overwrite(current.Email, next.Email)
	merged.BillingEmails = overwrite(current.BillingEmails, next.BillingEmails)
	merged.Notes = overwrite(current.Notes, next.Notes)
	if next.CreditRate != nil {
		merged.CreditRate = next.CreditRate
	}
	return merged
}

func customerPreview(c model.Customer, action string) map[string]any {
	return map[string]any{
		"action":         action,
		"id":             c.ID,
		"customerNumber": c.CustomerNumber,
		"name":           c.Name,
		"type":           c.Type,
		"city":           c.City,
		"state":          c.State,
	}
}

// firstSeen returns the first key already claimed, or "".
func firstSeen(s *keySet, keys []string) string {
	for _, k := range keys {
		if s.Seen(k) {
			return k
		}
	}
	return ""
}
