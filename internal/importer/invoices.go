package importer

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/haulops-platform/api/internal/model"
)

var invoiceFieldSpecs = []FieldSpec{
	{Field: "invoiceNumber", Synonyms: []string{"invoice number", "invoice no", "invoice", "inv", "inv number", "number"}},
	{Field: "customer", Synonyms: []string{"customer name", "bill to", "broker", "client"}},
	{Field: "load", Synonyms: []string{"load number", "load no", "load id", "trip number", "pro number"}},
	{Field: "status", Synonyms: []string{"invoice status", "payment status"}},
	{Field: "amount", Synonyms: []string{"invoice amount", "total", "total amount", "charge", "rate"}},
	{Field: "balanceDue", Synonyms: []string{"balance", "outstanding", "amount due", "open balance"}},
	{Field: "issuedDate", Synonyms: []string{"invoice date", "issued", "date", "billed date"}},
	{Field: "dueDate", Synonyms: []string{"due", "payment due", "due by"}},
	{Field: "paidDate", Synonyms: []string{"paid", "payment date", "date paid"}},
}

func (e *Engine) ImportInvoices(ctx context.Context, rows []Row, opts Options) (*Result, error) {
	res := newResult(len(rows), e.cfg.MaxRowMessages)

	var (
		existing  []model.Invoice
		customers []model.Customer
		loads     []model.Load
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) { existing, err = e.store.ListInvoices(gctx, e.tenantID); return })
	g.Go(func() (err error) { customers, err = e.store.ListCustomers(gctx, e.tenantID); return })
	g.Go(func() (err error) { loads, err = e.store.ListLoads(gctx, e.tenantID); return })
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("load lookup tables: %w", err)
	}

	cache := NewLookupCache()
	for _, c := range customers {
		cache.Register(kindCustomer, c.CustomerNumber, c.ID)
		cache.Register(kindCustomer, c.Name, c.ID)
	}
	loadsByNumber := map[string]model.Load{}
	for _, l := range loads {
		loadsByNumber[loadKey(l.LoadNumber)] = l
	}

	seen := newKeySet()
	stored := map[string]model.Invoice{}
	for _, inv := range existing {
		k := normalizeKey(inv.InvoiceNumber)
		seen.Add(k)
		stored[k] = inv
	}

	queue := newFixQueue()
	for _, row := range rows {
		for _, f := range []string{"issuedDate", "dueDate", "paidDate"} {
			if raw := rawValue(row, invoiceFieldSpecs, f, opts); raw != "" {
				if _, ok := ParseDate(raw); !ok {
					queue.add(f, raw)
				}
			}
		}
		if raw := rawValue(row, invoiceFieldSpecs, "status", opts); raw != "" {
			if _, ok := parseInvoiceStatus(raw); !ok {
				queue.add("invoiceStatus", raw)
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

	var creates []pending[model.Invoice]
	var updates []pending[model.Invoice]
	createIdx := map[string]int{}
	updateIdx := map[uuid.UUID]int{}

	for i, row := range rows {
		rowNum := i + 1
		number := specValue(row, invoiceFieldSpecs, "invoiceNumber", opts, res, rowNum)
		if number == "" {
			res.Errorf(rowNum, "invoiceNumber", "invoice number is required")
			continue
		}

		record := model.Invoice{
			ID:            uuid.New(),
			TenantID:      e.tenantID,
			InvoiceNumber: number,
			Status:        model.InvoiceSent,
			ImportBatchID: opts.ImportBatchID,
		}

		// Customer comes from the row or, failing that, from the linked load.
		var linked *model.Load
		if loadNum := specValue(row, invoiceFieldSpecs, "load", opts, res, rowNum); loadNum != "" {
			if l, ok := loadsByNumber[loadKey(loadNum)]; ok {
				linked = &l
				id := l.ID
				record.LoadID = &id
			} else {
				res.Warnf(rowNum, "load", "load %q not found", loadNum)
			}
		}
		customerName := specValue(row, invoiceFieldSpecs, "customer", opts, res, rowNum)
		if id, ok := cache.Resolve(kindCustomer, customerName); ok {
			record.CustomerID = id
		} else if linked != nil {
			record.CustomerID = linked.CustomerID
		} else {
			res.Errorf(rowNum, "customer", "customer is required")
			continue
		}

		if raw := specValue(row, invoiceFieldSpecs, "status", opts, res, rowNum); raw != "" {
			s, ok := parseInvoiceStatus(raw)
			if !ok {
				if fixed, found := fixes.fix("invoiceStatus", raw); found {
					s, ok = parseInvoiceStatus(fixed)
				}
			}
			if !ok {
				res.Warnf(rowNum, "status", "unrecognized invoice status %q, defaulted to sent", raw)
			}
			record.Status = s
		}

		if raw := specValue(row, invoiceFieldSpecs, "amount", opts, res, rowNum); raw != "" {
			if amount, ok := ParseNumber(raw); ok {
				record.Amount = amount
			} else {
				res.Warnf(rowNum, "amount", "could not parse amount %q", raw)
			}
		}
		if record.Amount == 0 && linked != nil {
			record.Amount = linked.Revenue
		}
		if record.Amount < 0 {
			res.Warnf(rowNum, "amount", "negative invoice amount %.2f", record.Amount)
		}

		if raw := specValue(row, invoiceFieldSpecs, "balanceDue", opts, res, rowNum); raw != "" {
			if balance, ok := ParseNumber(raw); ok {
				record.BalanceDue = balance
			}
		} else if record.Status != model.InvoicePaid && record.Status != model.InvoiceVoid {
			record.BalanceDue = record.Amount
		}

		if raw := specValue(row, invoiceFieldSpecs, "issuedDate", opts, res, rowNum); raw != "" {
			if d, ok := parseDateFixed("issuedDate", raw); ok {
				record.IssuedDate = d
			} else {
				res.Warnf(rowNum, "issuedDate", "could not parse date %q", raw)
			}
		}
		if raw := specValue(row, invoiceFieldSpecs, "dueDate", opts, res, rowNum); raw != "" {
			if d, ok := parseDateFixed("dueDate", raw); ok {
				record.DueDate = d
			}
		}
		if record.DueDate.IsZero() && !record.IssuedDate.IsZero() {
			record.DueDate = record.IssuedDate.AddDate(0, 0, 30)
		}
		if raw := specValue(row, invoiceFieldSpecs, "paidDate", opts, res, rowNum); raw != "" {
			if d, ok := parseDateFixed("paidDate", raw); ok {
				record.PaidDate = &d
				record.Status = model.InvoicePaid
				record.BalanceDue = 0
			}
		}

		key := normalizeKey(record.InvoiceNumber)
		if seen.Seen(key) {
			if prior, inStorage := stored[key]; inStorage {
				if !opts.UpdateExisting {
					res.Warnf(rowNum, "invoiceNumber", "invoice %s already exists, skipped (updateExisting is off)", record.InvoiceNumber)
					res.Summary.Skipped++
					continue
				}
				merged := mergeInvoice(prior, record)
				if idx, ok := updateIdx[prior.ID]; ok {
					updates[idx] = pending[model.Invoice]{Row: rowNum, Record: merged}
					res.Summary.Skipped++
					continue
				}
				updateIdx[prior.ID] = len(updates)
				updates = append(updates, pending[model.Invoice]{Row: rowNum, Record: merged})
				continue
			}
			if idx, ok := createIdx[key]; ok {
				record.ID = creates[idx].Record.ID
				creates[idx] = pending[model.Invoice]{Row: rowNum, Record: record}
				res.Summary.Skipped++
				res.Warnf(rowNum, "invoiceNumber", "duplicate invoice number in this file, keeping the latest values")
				continue
			}
		}

		seen.Add(key)
		createIdx[key] = len(creates)
		creates = append(creates, pending[model.Invoice]{Row: rowNum, Record: record})
		res.addPreview(e.previewCap("invoices"), invoicePreview(record, "create"))
	}

	for _, p := range updates {
		res.addPreview(e.previewCap("invoices"), invoicePreview(p.Record, "update"))
	}

	if opts.PreviewOnly {
		res.Summary.Created = len(creates)
		res.Summary.Updated = len(updates)
		return e.finalize("invoices", res), nil
	}

	res.Summary.Created = persistCreates(ctx, creates, e.cfg.BatchSize,
		e.store.BulkInsertInvoices, e.store.InsertInvoice, func(inv model.Invoice) any {
			return invoicePreview(inv, "create")
		}, res)
	res.Summary.Updated = persistUpdates(ctx, updates,
		e.store.UpdateInvoices, e.store.UpdateInvoice, res)
	return e.finalize("invoices", res), nil
}

func mergeInvoice(current, next model.Invoice) model.Invoice {
	merged := next
	merged.ID = current.ID
	merged.TenantID = current.TenantID
	merged.CreatedAt = current.CreatedAt
	if next.LoadID == nil {
		merged.LoadID = current.LoadID
	}
	if next.PaidDate == nil {
		merged.PaidDate = current.PaidDate
	}
	if next.IssuedDate.IsZero() {
		merged.IssuedDate = current.IssuedDate
	}
	if next.DueDate.IsZero() {
		merged.DueDate = current.DueDate
	}
	return merged
}

func invoicePreview(inv model.Invoice, action string) map[string]any {
	return map[string]any{
		"action":        action,
		"id":            inv.ID,
		"invoiceNumber": inv.InvoiceNumber,
		"status":        inv.Status,
		"amount":        inv.Amount,
		"balanceDue":    inv.BalanceDue,
	}
}
