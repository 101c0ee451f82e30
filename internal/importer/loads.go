package importer

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/haulops-platform/api/internal/model"
)

var loadFieldSpecs = []FieldSpec{
	{Field: "loadNumber", Synonyms: []string{"load number", "load no", "load id", "load", "trip number", "trip", "trip id", "order number", "order", "pro number", "pro"}},
	{Field: "customer", Synonyms: []string{"customer name", "broker", "broker name", "bill to", "client", "shipper"}},
	{Field: "driver", Synonyms: []string{"driver name", "driver 1", "primary driver"}},
	{Field: "truck", Synonyms: []string{"truck number", "unit", "unit number", "tractor", "truck no"}},
	{Field: "trailer", Synonyms: []string{"trailer number", "trailer no"}},
	{Field: "dispatcher", Synonyms: []string{"dispatcher name", "dispatch", "booked by"}},
	{Field: "status", Synonyms: []string{"load status", "trip status"}},
	{Field: "equipment", Synonyms: []string{"equipment type", "trailer type"}},
	{Field: "revenue", Synonyms: []string{"rate", "linehaul", "line haul", "gross", "gross revenue", "total rate", "amount", "price", "customer rate"}},
	{Field: "driverPay", Synonyms: []string{"driver pay", "pay", "driver rate", "driver amount", "settlement amount"}},
	{Field: "totalMiles", Synonyms: []string{"miles", "total miles", "trip miles", "distance"}},
	{Field: "loadedMiles", Synonyms: []string{"loaded miles", "linehaul miles", "billed miles"}},
	{Field: "emptyMiles", Synonyms: []string{"empty miles", "deadhead", "deadhead miles", "dh miles"}},
	{Field: "weight", Synonyms: []string{"weight lbs", "cargo weight", "gross weight", "lbs"}},
	{Field: "commodity", Synonyms: []string{"freight", "product", "cargo", "commodity type"}},
	{Field: "referenceNumber", Synonyms: []string{"reference", "ref", "ref number", "bol", "bol number", "po number", "po"}},
	{Field: "pickupDate", Synonyms: []string{"pickup", "pu date", "ship date", "pick up date", "origin date", "pickup date/time"}},
	{Field: "deliveryDate", Synonyms: []string{"delivery", "del date", "drop date", "delivered", "destination date", "delivery date/time"}},
	{Field: "pickupLocation", Synonyms: []string{"origin", "pickup location", "pickup address", "from", "pickup city state", "origin city"}},
	{Field: "pickupCity", Synonyms: []string{"origin city", "pu city", "from city"}},
	{Field: "pickupState", Synonyms: []string{"origin state", "pu state", "from state"}},
	{Field: "pickupZip", Synonyms: []string{"origin zip", "pu zip", "from zip"}},
	{Field: "deliveryLocation", Synonyms: []string{"destination", "delivery location", "delivery address", "to", "delivery city state", "destination city"}},
	{Field: "deliveryCity", Synonyms: []string{"destination city", "del city", "to city"}},
	{Field: "deliveryState", Synonyms: []string{"destination state", "del state", "to state"}},
	{Field: "deliveryZip", Synonyms: []string{"destination zip", "del zip", "to zip"}},
	{Field: "billingEntity", Synonyms: []string{"billing entity", "authority", "mc", "mc number", "company"}},
	{Field: "notes", Synonyms: []string{"note", "comments", "comment", "remarks"}},
}

func loadKey(number string) string {
	return normalizeKey(number)
}

// lastStop tracks the most recent delivery seen for a driver while a file is
// processed, so overlapping assignments surface as warnings.
type lastStop struct {
	delivered time.Time
	row       int
}

func (e *Engine) ImportLoads(ctx context.Context, rows []Row, opts Options) (*Result, error) {
	res := newResult(len(rows), e.cfg.MaxRowMessages)

	cache, err := e.loadRefCache(ctx, opts)
	if err != nil {
		return nil, err
	}
	existing, err := e.store.ListLoads(ctx, e.tenantID)
	if err != nil {
		return nil, fmt.Errorf("list loads: %w", err)
	}
	seen := newKeySet()
	stored := map[string]model.Load{}
	for _, l := range existing {
		k := loadKey(l.LoadNumber)
		seen.Add(k)
		stored[k] = l
	}

	// Scan pass: find every referenced entity the cache cannot resolve and
	// every raw value the deterministic parsers reject.
	missingCustomers := newMissingRefs()
	missingDrivers := newMissingRefs()
	missingTrucks := newMissingRefs()
	missingTrailers := newMissingRefs()
	missingDispatchers := newMissingRefs()
	queue := newFixQueue()
	for _, row := range rows {
		if name := rawValue(row, loadFieldSpecs, "customer", opts); name != "" {
			if _, ok := cache.Resolve(kindCustomer, name); !ok {
				missingCustomers.add(name)
			}
		}
		if name := rawValue(row, loadFieldSpecs, "driver", opts); name != "" {
			if _, ok := cache.Resolve(kindDriver, name); !ok {
				missingDrivers.add(name)
			}
		}
		if number := rawValue(row, loadFieldSpecs, "truck", opts); number != "" {
			if _, ok := cache.Resolve(kindTruck, number); !ok {
				missingTrucks.add(number)
			}
		}
		if number := rawValue(row, loadFieldSpecs, "trailer", opts); number != "" {
			if _, ok := cache.Resolve(kindTrailer, number); !ok {
				missingTrailers.add(number)
			}
		}
		if name := rawValue(row, loadFieldSpecs, "dispatcher", opts); name != "" {
			if _, ok := cache.Resolve(kindDispatcher, name); !ok {
				missingDispatchers.add(name)
			}
		}
		for _, f := range []string{"pickupDate", "deliveryDate"} {
			if raw := rawValue(row, loadFieldSpecs, f, opts); raw != "" {
				if _, ok := ParseDate(raw); !ok {
					queue.add(f, raw)
				}
			}
		}
		if raw := rawValue(row, loadFieldSpecs, "status", opts); raw != "" {
			if _, ok := parseLoadStatus(raw); !ok {
				queue.add("loadStatus", raw)
			}
		}
		if raw := rawValue(row, loadFieldSpecs, "equipment", opts); raw != "" {
			if _, ok := parseEquipment(raw); !ok {
				queue.add("equipment", raw)
			}
		}
	}
	fixes := e.corrections(ctx, queue)

	if err := e.provisionReferences(ctx, cache, missingCustomers, missingDrivers,
		missingTrucks, missingTrailers, missingDispatchers, opts, res); err != nil {
		return nil, err
	}

	parseDateFixed := func(field, raw string) (time.Time, bool) {
		if d, ok := ParseDate(raw); ok {
			return d, true
		}
		if fixed, found := fixes.fix(field, raw); found {
			return ParseDate(fixed)
		}
		return time.Time{}, false
	}

	var creates []pending[model.Load]
	var updates []pending[model.Load]
	createIdx := map[string]int{}
	updateIdx := map[uuid.UUID]int{}
	lastStops := map[uuid.UUID]lastStop{}

	for i, row := range rows {
		rowNum := i + 1
		recordID := uuid.New()
		number := specValue(row, loadFieldSpecs, "loadNumber", opts, res, rowNum)
		// Rate confirmations and settlement sheets often arrive without a
		// trip number; a synthetic one keeps the row importable.
		if number == "" {
			number = syntheticNumber("L", recordID)
			res.Warnf(rowNum, "loadNumber", "load number missing, generated %s", number)
		}

		customerName := specValue(row, loadFieldSpecs, "customer", opts, res, rowNum)
		customerID, ok := cache.Resolve(kindCustomer, customerName)
		if !ok {
			res.Errorf(rowNum, "customer", "customer is required")
			continue
		}

		record := model.Load{
			ID:              recordID,
			TenantID:        e.tenantID,
			LoadNumber:      number,
			CustomerID:      customerID,
			Status:          model.LoadStatusDelivered,
			Equipment:       model.EquipmentDryVan,
			Commodity:       specValue(row, loadFieldSpecs, "commodity", opts, res, rowNum),
			ReferenceNumber: specValue(row, loadFieldSpecs, "referenceNumber", opts, res, rowNum),
			Notes:           specValue(row, loadFieldSpecs, "notes", opts, res, rowNum),
			ImportBatchID:   opts.ImportBatchID,
		}

		if name := specValue(row, loadFieldSpecs, "driver", opts, res, rowNum); name != "" {
			if id, ok := cache.Resolve(kindDriver, name); ok {
				record.DriverID = &id
			} else {
				res.Warnf(rowNum, "driver", "driver %q not found", name)
			}
		}
		if number := specValue(row, loadFieldSpecs, "truck", opts, res, rowNum); number != "" {
			if id, ok := cache.Resolve(kindTruck, number); ok {
				record.TruckID = &id
			} else {
				res.Warnf(rowNum, "truck", "truck %q not found", number)
			}
		}
		if number := specValue(row, loadFieldSpecs, "trailer", opts, res, rowNum); number != "" {
			if id, ok := cache.Resolve(kindTrailer, number); ok {
				record.TrailerID = &id
			}
		}
		if name := specValue(row, loadFieldSpecs, "dispatcher", opts, res, rowNum); name != "" {
			if id, ok := cache.Resolve(kindDispatcher, name); ok {
				record.DispatcherID = &id
			} else {
				res.Warnf(rowNum, "dispatcher", "dispatcher %q not found", name)
			}
		}
		if key := specValue(row, loadFieldSpecs, "billingEntity", opts, res, rowNum); key != "" {
			if id, ok := cache.Resolve(kindBillingEntity, key); ok {
				record.BillingEntityID = &id
			}
		}
		if record.BillingEntityID == nil {
			if id, ok := cache.Default(kindBillingEntity); ok {
				record.BillingEntityID = &id
			}
		}

		if raw := specValue(row, loadFieldSpecs, "status", opts, res, rowNum); raw != "" {
			s, ok := parseLoadStatus(raw)
			if !ok {
				if fixed, found := fixes.fix("loadStatus", raw); found {
					s, ok = parseLoadStatus(fixed)
				}
			}
			if !ok {
				res.Warnf(rowNum, "status", "unrecognized load status %q, defaulted to delivered", raw)
			}
			record.Status = s
		}
		if raw := specValue(row, loadFieldSpecs, "equipment", opts, res, rowNum); raw != "" {
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

		if raw := specValue(row, loadFieldSpecs, "pickupDate", opts, res, rowNum); raw != "" {
			if d, ok := parseDateFixed("pickupDate", raw); ok {
				record.PickupDate = d
			} else {
				res.Warnf(rowNum, "pickupDate", "could not parse date %q", raw)
			}
		}
		if raw := specValue(row, loadFieldSpecs, "deliveryDate", opts, res, rowNum); raw != "" {
			if d, ok := parseDateFixed("deliveryDate", raw); ok {
				record.DeliveryDate = d
			} else {
				res.Warnf(rowNum, "deliveryDate", "could not parse date %q", raw)
			}
		}
		if !record.PickupDate.IsZero() && !record.DeliveryDate.IsZero() &&
			record.DeliveryDate.Before(record.PickupDate) {
			res.Warnf(rowNum, "deliveryDate", "delivery date precedes pickup date")
		}

		resolveStop(row, opts, res, rowNum, "pickup",
			&record.PickupAddress, &record.PickupCity, &record.PickupState, &record.PickupZip)
		resolveStop(row, opts, res, rowNum, "delivery",
			&record.DeliveryAddress, &record.DeliveryCity, &record.DeliveryState, &record.DeliveryZip)

		e.resolveFinancials(row, opts, res, rowNum, &record)

		key := loadKey(record.LoadNumber)
		if seen.Seen(key) {
			if prior, inStorage := stored[key]; inStorage {
				if !opts.UpdateExisting {
					res.Warnf(rowNum, "loadNumber", "load %s already exists, skipped (updateExisting is off)", record.LoadNumber)
					res.Summary.Skipped++
					continue
				}
				merged := mergeLoad(prior, record)
				if idx, ok := updateIdx[prior.ID]; ok {
					updates[idx] = pending[model.Load]{Row: rowNum, Record: merged}
					res.Summary.Skipped++
					continue
				}
				updateIdx[prior.ID] = len(updates)
				updates = append(updates, pending[model.Load]{Row: rowNum, Record: merged})
				continue
			}
			if idx, ok := createIdx[key]; ok {
				record.ID = creates[idx].Record.ID
				creates[idx] = pending[model.Load]{Row: rowNum, Record: record}
				res.Summary.Skipped++
				res.Warnf(rowNum, "loadNumber", "duplicate load number in this file, keeping the latest values")
				continue
			}
		}

		if record.DriverID != nil && !record.PickupDate.IsZero() {
			if prev, ok := lastStops[*record.DriverID]; ok && record.PickupDate.Before(prev.delivered) {
				res.Warnf(rowNum, "pickupDate", "pickup precedes the driver's delivery on row %d", prev.row)
			}
			if !record.DeliveryDate.IsZero() {
				if prev, ok := lastStops[*record.DriverID]; !ok || record.DeliveryDate.After(prev.delivered) {
					lastStops[*record.DriverID] = lastStop{delivered: record.DeliveryDate, row: rowNum}
				}
			}
		}

		seen.Add(key)
		createIdx[key] = len(creates)
		creates = append(creates, pending[model.Load]{Row: rowNum, Record: record})
		res.addPreview(e.previewCap("loads"), loadPreview(cache, record, "create"))
	}

	for _, p := range updates {
		res.addPreview(e.previewCap("loads"), loadPreview(cache, p.Record, "update"))
	}

	if opts.PreviewOnly {
		res.Summary.Created = len(creates)
		res.Summary.Updated = len(updates)
		return e.finalize("loads", res), nil
	}

	res.Summary.Created = persistCreates(ctx, creates, e.cfg.BatchSize,
		e.store.BulkInsertLoads, e.store.InsertLoad, func(l model.Load) any {
			return loadPreview(cache, l, "create")
		}, res)
	res.Summary.Updated = persistUpdates(ctx, updates,
		e.store.UpdateLoads, e.store.UpdateLoad, res)
	return e.finalize("loads", res), nil
}

// resolveStop fills one side of the lane from either discrete city/state/zip
// columns or a composite location column.
func resolveStop(row Row, opts Options, res *Result, rowNum int, side string,
	address, city, state, zip *string) {
	*city = specValue(row, loadFieldSpecs, side+"City", opts, res, rowNum)
	*zip = specValue(row, loadFieldSpecs, side+"Zip", opts, res, rowNum)
	if raw := specValue(row, loadFieldSpecs, side+"State", opts, res, rowNum); raw != "" {
		st := NormalizeState(raw)
		if st == "" {
			res.Warnf(rowNum, side+"State", "unrecognized state %q", raw)
		}
		*state = st
	}
	composite := specValue(row, loadFieldSpecs, side+"Location", opts, res, rowNum)
	if composite == "" {
		return
	}
	parts := ParseLocation(composite)
	if parts == nil {
		*address = overwrite(*address, composite)
		return
	}
	*address = overwrite(*address, parts.Address)
	*city = overwrite(*city, parts.City)
	*state = overwrite(*state, parts.State)
	*zip = overwrite(*zip, parts.Zip)
}

// resolveFinancials parses the money and mileage columns, closes the
// total = loaded + empty identity from whichever two sides are present, and
// applies the plausibility heuristics. Anomalies warn; they never block the
// row.
func (e *Engine) resolveFinancials(row Row, opts Options, res *Result, rowNum int, record *model.Load) {
	money := func(field string) (float64, bool) {
		raw := specValue(row, loadFieldSpecs, field, opts, res, rowNum)
		if raw == "" {
			return 0, false
		}
		v, ok := ParseNumber(raw)
		if !ok {
			res.Warnf(rowNum, field, "could not parse number %q", raw)
		}
		return v, ok
	}

	revenue, hasRevenue := money("revenue")
	pay, hasPay := money("driverPay")
	total, hasTotal := money("totalMiles")
	loaded, hasLoaded := money("loadedMiles")
	empty, hasEmpty := money("emptyMiles")
	weight, hasWeight := money("weight")

	switch {
	case !hasTotal && hasLoaded:
		total = loaded + empty
	case hasTotal && !hasLoaded && hasEmpty:
		loaded = total - empty
	case hasTotal && hasLoaded && !hasEmpty:
		empty = total - loaded
	}
	if empty < 0 {
		res.Warnf(rowNum, "emptyMiles", "loaded miles exceed total miles")
		empty = 0
	}
	if loaded < 0 {
		loaded = 0
	}
	if hasTotal && hasLoaded && hasEmpty && total != loaded+empty {
		res.Warnf(rowNum, "totalMiles", "total miles (%.0f) do not equal loaded (%.0f) plus empty (%.0f)", total, loaded, empty)
	}

	// A driver pay equal to revenue is almost always the revenue column
	// copied twice; rebuild pay from miles at the default rate.
	if hasPay && hasRevenue && revenue > 0 && pay == revenue {
		if total > 0 {
			pay = round2(total * e.cfg.DefaultPayRate)
			res.Warnf(rowNum, "driverPay", "driver pay equals revenue, recalculated as %.0f mi x %.2f = %.2f", total, e.cfg.DefaultPayRate, pay)
		} else {
			res.Warnf(rowNum, "driverPay", "driver pay equals revenue and no mileage to recalculate from")
		}
	}

	// Settlement columns are frequently absent from dispatch sheets; the
	// default per-mile rate gives a usable estimate.
	if !hasPay && total > 0 {
		pay = round2(total * e.cfg.DefaultPayRate)
		res.Warnf(rowNum, "driverPay", "driver pay missing, estimated as %.0f mi x %.2f = %.2f", total, e.cfg.DefaultPayRate, pay)
	}

	if hasRevenue && revenue < 0 {
		res.Warnf(rowNum, "revenue", "negative revenue %.2f", revenue)
	}
	if revenue > e.cfg.MaxPlausibleRevenue {
		res.Warnf(rowNum, "revenue", "revenue %.2f exceeds plausible maximum %.0f", revenue, e.cfg.MaxPlausibleRevenue)
	}
	if total > e.cfg.HighMileageMiles {
		res.Warnf(rowNum, "totalMiles", "%.0f miles exceeds %.0f for a single load", total, e.cfg.HighMileageMiles)
	}
	if hasWeight && weight > e.cfg.MaxCargoWeightLbs {
		res.Warnf(rowNum, "weight", "weight %.0f lbs exceeds legal gross %.0f", weight, e.cfg.MaxCargoWeightLbs)
	}

	record.Revenue = revenue
	record.DriverPay = pay
	record.TotalMiles = total
	record.LoadedMiles = loaded
	record.EmptyMiles = empty
	record.WeightLbs = weight
	record.Profit = round2(revenue - pay)
	if record.Profit < 0 && revenue > 0 {
		res.Warnf(rowNum, "driverPay", "driver pay exceeds revenue, profit is negative")
	}
	if total > 0 {
		record.RevenuePerMile = round2(revenue / total)
	}
}

func mergeLoad(current, next model.Load) model.Load {
	merged := next
	merged.ID = current.ID
	merged.TenantID = current.TenantID
	merged.CreatedAt = current.CreatedAt
	if next.DriverID == nil {
		merged.DriverID = current.DriverID
	}
	if next.TruckID == nil {
		merged.TruckID = current.TruckID
	}
	if next.TrailerID == nil {
		merged.TrailerID = current.TrailerID
	}
	if next.DispatcherID == nil {
		merged.DispatcherID = current.DispatcherID
	}
	merged.Notes = overwrite(current.Notes, next.Notes)
	return merged
}

// loadPreview renders a compact load row; referenced entities created during
// this run surface their provisional label instead of just an id.
func loadPreview(cache *LookupCache, l model.Load, action string) map[string]any {
	entry := map[string]any{
		"action":     action,
		"id":         l.ID,
		"loadNumber": l.LoadNumber,
		"status":     l.Status,
		"revenue":    l.Revenue,
		"driverPay":  l.DriverPay,
		"totalMiles": l.TotalMiles,
		"customerId": refLabel(cache, l.CustomerID),
	}
	if l.DriverID != nil {
		entry["driverId"] = refLabel(cache, *l.DriverID)
	}
	if l.TruckID != nil {
		entry["truckId"] = refLabel(cache, *l.TruckID)
	}
	if l.TrailerID != nil {
		entry["trailerId"] = refLabel(cache, *l.TrailerID)
	}
	if l.DispatcherID != nil {
		entry["dispatcherId"] = refLabel(cache, *l.DispatcherID)
	}
	return entry
}

func refLabel(cache *LookupCache, id uuid.UUID) string {
	if label := cache.ProvisionalLabel(id); label != "" {
		return label
	}
	return id.String()
}
