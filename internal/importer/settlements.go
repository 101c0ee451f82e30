package importer

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/haulops-platform/api/internal/model"
)

var settlementFieldSpecs = []FieldSpec{
	{Field: "settlementNumber", Synonyms: []string{"settlement number", "settlement no", "settlement", "statement number", "statement", "number"}},
	{Field: "driver", Synonyms: []string{"driver name", "driver number", "driver id", "payee"}},
	{Field: "periodStart", Synonyms: []string{"period start", "start date", "from", "week start", "pay period start"}},
	{Field: "periodEnd", Synonyms: []string{"period end", "end date", "to", "week end", "pay period end"}},
	{Field: "status", Synonyms: []string{"settlement status", "payment status"}},
	{Field: "grossPay", Synonyms: []string{"gross", "gross pay", "gross amount", "earnings", "total pay"}},
	{Field: "deductions", Synonyms: []string{"deduction", "total deductions", "advances", "chargebacks"}},
	{Field: "netPay", Synonyms: []string{"net", "net pay", "net amount", "check amount", "paid amount"}},
}

// settlementKeys: the settlement number when present, plus the
// driver+period composite which identifies number-less statements.
func settlementKeys(number string, driverID uuid.UUID, start, end time.Time) []string {
	var keys []string
	if normalizeKey(number) != "" {
		keys = append(keys, "num:"+normalizeKey(number))
	}
	if driverID != uuid.Nil && !start.IsZero() && !end.IsZero() {
		keys = append(keys, fmt.Sprintf("period:%s:%s:%s",
			driverID, start.Format("2006-01-02"), end.Format("2006-01-02")))
	}
	return keys
}

func (e *Engine) ImportSettlements(ctx context.Context, rows []Row, opts Options) (*Result, error) {
	res := newResult(len(rows), e.cfg.MaxRowMessages)

	var (
		existing []model.Settlement
		drivers  []model.Driver
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) { existing, err = e.store.ListSettlements(gctx, e.tenantID); return })
	g.Go(func() (err error) { drivers, err = e.store.ListDrivers(gctx, e.tenantID); return })
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("load lookup tables: %w", err)
	}

	cache := NewLookupCache()
	for _, d := range drivers {
		cache.Register(kindDriver, d.DriverNumber, d.ID)
		cache.Register(kindDriver, d.FirstName+" "+d.LastName, d.ID)
		cache.Register(kindDriver, d.Email, d.ID)
	}

	seen := newKeySet()
	stored := map[string]model.Settlement{}
	for _, s := range existing {
		for _, k := range settlementKeys(s.SettlementNumber, s.DriverID, s.PeriodStart, s.PeriodEnd) {
			seen.Add(k)
			stored[k] = s
		}
	}

	queue := newFixQueue()
	for _, row := range rows {
		for _, f := range []string{"periodStart", "periodEnd"} {
			if raw := rawValue(row, settlementFieldSpecs, f, opts); raw != "" {
				if _, ok := ParseDate(raw); !ok {
					queue.add(f, raw)
				}
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

	var creates []pending[model.Settlement]
	var updates []pending[model.Settlement]
	createIdx := map[string]int{}
	updateIdx := map[uuid.UUID]int{}

	for i, row := range rows {
		rowNum := i + 1
		driverRef := specValue(row, settlementFieldSpecs, "driver", opts, res, rowNum)
		driverID, ok := cache.Resolve(kindDriver, driverRef)
		if !ok {
			res.Errorf(rowNum, "driver", "driver %q not found", driverRef)
			continue
		}

		record := model.Settlement{
			ID:               uuid.New(),
			TenantID:         e.tenantID,
			SettlementNumber: specValue(row, settlementFieldSpecs, "settlementNumber", opts, res, rowNum),
			DriverID:         driverID,
			Status:           model.SettlementDraft,
			ImportBatchID:    opts.ImportBatchID,
		}

		if raw := specValue(row, settlementFieldSpecs, "periodStart", opts, res, rowNum); raw != "" {
			if d, ok := parseDateFixed("periodStart", raw); ok {
				record.PeriodStart = d
			} else {
				res.Warnf(rowNum, "periodStart", "could not parse date %q", raw)
			}
		}
		if raw := specValue(row, settlementFieldSpecs, "periodEnd", opts, res, rowNum); raw != "" {
			if d, ok := parseDateFixed("periodEnd", raw); ok {
				record.PeriodEnd = d
			} else {
				res.Warnf(rowNum, "periodEnd", "could not parse date %q", raw)
			}
		}
		if record.SettlementNumber == "" && (record.PeriodStart.IsZero() || record.PeriodEnd.IsZero()) {
			res.Errorf(rowNum, "settlementNumber", "settlement number or a full pay period is required")
			continue
		}
		if !record.PeriodStart.IsZero() && !record.PeriodEnd.IsZero() &&
			record.PeriodEnd.Before(record.PeriodStart) {
			res.Warnf(rowNum, "periodEnd", "period end precedes period start")
		}

		if raw := specValue(row, settlementFieldSpecs, "status", opts, res, rowNum); raw != "" {
			if s, ok := parseSettlementStatus(raw); ok {
				record.Status = s
			} else {
				res.Warnf(rowNum, "status", "unrecognized settlement status %q, defaulted to draft", raw)
			}
		}

		if raw := specValue(row, settlementFieldSpecs, "grossPay", opts, res, rowNum); raw != "" {
			if v, ok := ParseNumber(raw); ok {
				record.GrossPay = v
			} else {
				res.Warnf(rowNum, "grossPay", "could not parse amount %q", raw)
			}
		}
		if raw := specValue(row, settlementFieldSpecs, "deductions", opts, res, rowNum); raw != "" {
			if v, ok := ParseNumber(raw); ok {
				record.Deductions = v
			}
		}
		if raw := specValue(row, settlementFieldSpecs, "netPay", opts, res, rowNum); raw != "" {
			if v, ok := ParseNumber(raw); ok {
				record.NetPay = v
			}
		}
		if record.NetPay == 0 && record.GrossPay != 0 {
			record.NetPay = round2(record.GrossPay - record.Deductions)
		}
		if record.NetPay < 0 {
			res.Warnf(rowNum, "netPay", "deductions exceed gross pay, net is negative")
		}

		keys := settlementKeys(record.SettlementNumber, record.DriverID, record.PeriodStart, record.PeriodEnd)
		if dupKey := firstSeen(seen, keys); dupKey != "" {
			if prior, inStorage := stored[dupKey]; inStorage {
				if !opts.UpdateExisting {
					res.Warnf(rowNum, "", "settlement matching %q already exists, skipped (updateExisting is off)", dupKey)
					res.Summary.Skipped++
					continue
				}
				merged := mergeSettlement(prior, record)
				if idx, ok := updateIdx[prior.ID]; ok {
					updates[idx] = pending[model.Settlement]{Row: rowNum, Record: merged}
					res.Summary.Skipped++
					continue
				}
				updateIdx[prior.ID] = len(updates)
				updates = append(updates, pending[model.Settlement]{Row: rowNum, Record: merged})
				continue
			}
			if idx, ok := createIdx[dupKey]; ok {
				record.ID = creates[idx].Record.ID
				creates[idx] = pending[model.Settlement]{Row: rowNum, Record: record}
				res.Summary.Skipped++
				res.Warnf(rowNum, "", "duplicate of an earlier row in this file, keeping the latest values")
				continue
			}
		}

		seen.Add(keys...)
		for _, k := range keys {
			createIdx[k] = len(creates)
		}
		creates = append(creates, pending[model.Settlement]{Row: rowNum, Record: record})
		res.addPreview(e.previewCap("settlements"), settlementPreview(record, "create"))
	}

	for _, p := range updates {
		res.addPreview(e.previewCap("settlements"), settlementPreview(p.Record, "update"))
	}

	if opts.PreviewOnly {
		res.Summary.Created = len(creates)
		res.Summary.Updated = len(updates)
		return e.finalize("settlements", res), nil
	}

	res.Summary.Created = persistCreates(ctx, creates, e.cfg.BatchSize,
		e.store.BulkInsertSettlements, e.store.InsertSettlement, func(s model.Settlement) any {
			return settlementPreview(s, "create")
		}, res)
	res.Summary.Updated = persistUpdates(ctx, updates,
		e.store.UpdateSettlements, e.store.UpdateSettlement, res)
	return e.finalize("settlements", res), nil
}

func mergeSettlement(current, next model.Settlement) model.Settlement {
	merged := next
	merged.ID = current.ID
	merged.TenantID = current.TenantID
	merged.CreatedAt = current.CreatedAt
	merged.SettlementNumber = overwrite(current.SettlementNumber, next.SettlementNumber)
	if next.PeriodStart.IsZero() {
		merged.PeriodStart = current.PeriodStart
	}
	if next.PeriodEnd.IsZero() {
		merged.PeriodEnd = current.PeriodEnd
	}
	return merged
}

func settlementPreview(s model.Settlement, action string) map[string]any {
	return map[string]any{
		"action":           action,
		"id":               s.ID,
		"settlementNumber": s.SettlementNumber,
		"driverId":         s.DriverID,
		"status":           s.Status,
		"grossPay":         s.GrossPay,
		"netPay":           s.NetPay,
	}
}
