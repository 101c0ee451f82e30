package importer

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/haulops-platform/api/internal/model"
)

// loadRefCache reads every lookup table the load importer resolves against.
// The six reads are independent, so they run concurrently.
func (e *Engine) loadRefCache(ctx context.Context, opts Options) (*LookupCache, error) {
	cache := NewLookupCache()

	var (
		customers []model.Customer
		drivers   []model.Driver
		trucks    []model.Truck
		trailers  []model.Trailer
		users     []model.User
		billing   []model.BillingEntity
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) { customers, err = e.store.ListCustomers(gctx, e.tenantID); return })
	g.Go(func() (err error) { drivers, err = e.store.ListDrivers(gctx, e.tenantID); return })
	g.Go(func() (err error) { trucks, err = e.store.ListTrucks(gctx, e.tenantID); return })
	g.Go(func() (err error) { trailers, err = e.store.ListTrailers(gctx, e.tenantID); return })
	g.Go(func() (err error) { users, err = e.store.ListDispatchers(gctx, e.tenantID); return })
	g.Go(func() (err error) { billing, err = e.store.ListBillingEntities(gctx, e.tenantID); return })
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("load lookup tables: %w", err)
	}

	for _, c := range customers {
		cache.Register(kindCustomer, c.CustomerNumber, c.ID)
		cache.Register(kindCustomer, c.Name, c.ID)
	}
	for _, d := range drivers {
		cache.Register(kindDriver, d.DriverNumber, d.ID)
		cache.Register(kindDriver, d.FirstName+" "+d.LastName, d.ID)
		cache.Register(kindDriver, d.Email, d.ID)
	}
	for _, t := range trucks {
		cache.Register(kindTruck, t.TruckNumber, t.ID)
	}
	for _, t := range trailers {
		cache.Register(kindTrailer, t.TrailerNumber, t.ID)
	}
	for _, u := range users {
		cache.Register(kindDispatcher, u.FirstName+" "+u.LastName, u.ID)
		cache.Register(kindDispatcher, u.Email, u.ID)
	}
	for _, b := range billing {
		cache.Register(kindBillingEntity, b.Number, b.ID)
		cache.Register(kindBillingEntity, b.CompanyName, b.ID)
		if b.IsDefault {
			cache.SetDefault(kindBillingEntity, b.ID)
		}
	}
	// Caller override beats the tenant default.
	if key := strings.TrimSpace(opts.CurrentBillingEntity); key != "" {
		if id, ok := cache.Resolve(kindBillingEntity, key); ok {
			cache.SetDefault(kindBillingEntity, id)
		}
	}
	return cache, nil
}

// defaultBillingEntity resolves the billing entity stamped on new records:
// the caller's override when it names a known entity, otherwise the tenant
// default, otherwise nil.
func (e *Engine) defaultBillingEntity(ctx context.Context, opts Options) (*uuid.UUID, error) {
	entities, err := e.store.ListBillingEntities(ctx, e.tenantID)
	if err != nil {
		return nil, fmt.Errorf("list billing entities: %w", err)
	}
	if key := normalizeKey(opts.CurrentBillingEntity); key != "" {
		for _, b := range entities {
			if normalizeKey(b.Number) == key || normalizeKey(b.CompanyName) == key {
				id := b.ID
				return &id, nil
			}
		}
	}
	for _, b := range entities {
		if b.IsDefault {
			id := b.ID
			return &id, nil
		}
	}
	return nil, nil
}

// missingRefs is one scan pass worth of referenced-but-unknown natural keys,
// deduplicated with original casing preserved for placeholder creation.
type missingRefs struct {
	order []string
	seen  map[string]struct{}
}

func newMissingRefs() *missingRefs {
	return &missingRefs{seen: map[string]struct{}{}}
}

func (m *missingRefs) add(key string) {
	norm := normalizeKey(key)
	if norm == "" {
		return
	}
	if _, ok := m.seen[norm]; ok {
		return
	}
	m.seen[norm] = struct{}{}
	m.order = append(m.order, strings.TrimSpace(key))
}

func (m *missingRefs) values() []string { return m.order }

// provisionReferences creates placeholder records for every entity a load
// file mentions that storage does not have yet, then folds the resulting ids
// back into the cache. In preview mode nothing is written; ids are minted
// locally and labeled so the preview can show what would be created.
//
// Bulk creation is duplicate-tolerant and followed by a natural-key re-read,
// so two concurrent imports provisioning the same customer converge on one
// record.
func (e *Engine) provisionReferences(
	ctx context.Context,
	cache *LookupCache,
	customers, drivers, trucks, trailers, dispatchers *missingRefs,
	opts Options,
	res *Result,
) error {
	if opts.PreviewOnly {
		// Nothing is written in preview; ids are minted locally and the
		// label carries a preview: prefix so callers can tell.
		mint := func(kind string, keys []string) {
			for _, key := range keys {
				id := uuid.New()
				cache.Register(kind, key, id)
				cache.MarkProvisional(id, "preview:"+provisionalLabel(kind, key))
			}
		}
		mint(kindCustomer, customers.values())
		mint(kindDriver, drivers.values())
		mint(kindTruck, trucks.values())
		mint(kindTrailer, trailers.values())
		mint(kindDispatcher, dispatchers.values())
		return nil
	}

	g, gctx := errgroup.WithContext(ctx)
	var (
		newCustomers   []model.Customer
		newDrivers     []model.Driver
		newTrucks      []model.Truck
		newTrailers    []model.Trailer
		newDispatchers []model.User
	)
	if names := customers.values(); len(names) > 0 {
		g.Go(func() error {
			records := make([]model.Customer, len(names))
			for i, name := range names {
				records[i] = placeholderCustomer(e.tenantID, name, opts.ImportBatchID)
			}
			if err := e.store.BulkInsertCustomers(gctx, records); err != nil {
				return fmt.Errorf("provision customers: %w", err)
			}
			created, err := e.store.GetCustomersByNames(gctx, e.tenantID, names)
			if err != nil {
				return fmt.Errorf("read back provisioned customers: %w", err)
			}
			newCustomers = created
			return nil
		})
	}
	if names := drivers.values(); len(names) > 0 {
		g.Go(func() error {
			records := make([]model.Driver, len(names))
			for i, name := range names {
				records[i] = placeholderDriver(e.tenantID, name, opts.ImportBatchID)
			}
			if err := e.store.BulkInsertDrivers(gctx, records); err != nil {
				return fmt.Errorf("provision drivers: %w", err)
			}
			created, err := e.store.GetDriversByNames(gctx, e.tenantID, names)
			if err != nil {
				return fmt.Errorf("read back provisioned drivers: %w", err)
			}
			newDrivers = created
			return nil
		})
	}
	if numbers := trucks.values(); len(numbers) > 0 {
		g.Go(func() error {
			records := make([]model.Truck, len(numbers))
			for i, number := range numbers {
				records[i] = placeholderTruck(e.tenantID, number, opts.ImportBatchID)
			}
			if err := e.store.BulkInsertTrucks(gctx, records); err != nil {
				return fmt.Errorf("provision trucks: %w", err)
			}
			created, err := e.store.GetTrucksByNumbers(gctx, e.tenantID, numbers)
			if err != nil {
				return fmt.Errorf("read back provisioned trucks: %w", err)
			}
			newTrucks = created
			return nil
		})
	}
	if numbers := trailers.values(); len(numbers) > 0 {
		g.Go(func() error {
			records := make([]model.Trailer, len(numbers))
			for i, number := range numbers {
				records[i] = placeholderTrailer(e.tenantID, number, opts.ImportBatchID)
			}
			if err := e.store.BulkInsertTrailers(gctx, records); err != nil {
				return fmt.Errorf("provision trailers: %w", err)
			}
			created, err := e.store.GetTrailersByNumbers(gctx, e.tenantID, numbers)
			if err != nil {
				return fmt.Errorf("read back provisioned trailers: %w", err)
			}
			newTrailers = created
			return nil
		})
	}
	if names := dispatchers.values(); len(names) > 0 {
		g.Go(func() error {
			records := make([]model.User, len(names))
			for i, name := range names {
				records[i] = placeholderDispatcher(e.tenantID, name)
			}
			if err := e.store.BulkInsertDispatchers(gctx, records); err != nil {
				return fmt.Errorf("provision dispatchers: %w", err)
			}
			created, err := e.store.GetDispatchersByNames(gctx, e.tenantID, names)
			if err != nil {
				return fmt.Errorf("read back provisioned dispatchers: %w", err)
			}
			newDispatchers = created
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	for _, c := range newCustomers {
		cache.Register(kindCustomer, c.Name, c.ID)
		cache.Register(kindCustomer, c.CustomerNumber, c.ID)
		cache.MarkProvisional(c.ID, provisionalLabel(kindCustomer, c.Name))
	}
	for _, d := range newDrivers {
		cache.Register(kindDriver, d.FirstName+" "+d.LastName, d.ID)
		cache.Register(kindDriver, d.DriverNumber, d.ID)
		cache.MarkProvisional(d.ID, provisionalLabel(kindDriver, d.FirstName+" "+d.LastName))
	}
	for _, t := range newTrucks {
		cache.Register(kindTruck, t.TruckNumber, t.ID)
		cache.MarkProvisional(t.ID, provisionalLabel(kindTruck, t.TruckNumber))
	}
	for _, t := range newTrailers {
		cache.Register(kindTrailer, t.TrailerNumber, t.ID)
		cache.MarkProvisional(t.ID, provisionalLabel(kindTrailer, t.TrailerNumber))
	}
	for _, u := range newDispatchers {
		cache.Register(kindDispatcher, u.FirstName+" "+u.LastName, u.ID)
		cache.Register(kindDispatcher, u.Email, u.ID)
		cache.MarkProvisional(u.ID, provisionalLabel(kindDispatcher, u.FirstName+" "+u.LastName))
	}

	if n := len(newCustomers) + len(newDrivers) + len(newTrucks) + len(newTrailers) + len(newDispatchers); n > 0 {
		e.log.Info("provisioned referenced entities",
			"customers", len(newCustomers),
			"drivers", len(newDrivers),
			"trucks", len(newTrucks),
			"trailers", len(newTrailers),
			"dispatchers", len(newDispatchers),
		)
		res.Warnf(0, "", "auto-created %d referenced record(s) that were not found: review placeholder details", n)
	}
	return nil
}

// placeholderCustomer fills the minimum profile for a customer we only know
// by name. The synthetic customer number keeps the unique key satisfied
// until someone edits the record.
func placeholderCustomer(tenantID uuid.UUID, name string, batchID *uuid.UUID) model.Customer {
	id := uuid.New()
	return model.Customer{
		ID:             id,
		TenantID:       tenantID,
		CustomerNumber: syntheticNumber("C", id),
		Name:           strings.TrimSpace(name),
		Type:           model.CustomerBroker,
		ImportBatchID:  batchID,
	}
}

// placeholderDriver splits the display name and future-dates the compliance
// fields so the new driver does not immediately trip expiry alerts.
func placeholderDriver(tenantID uuid.UUID, name string, batchID *uuid.UUID) model.Driver {
	id := uuid.New()
	first, last := splitName(name)
	expiry := time.Now().UTC().AddDate(1, 0, 0)
	return model.Driver{
		ID:                id,
		TenantID:          tenantID,
		DriverNumber:      syntheticNumber("D", id),
		FirstName:         first,
		LastName:          last,
		Type:              model.DriverCompany,
		Status:            model.DriverAvailable,
		LicenseExpiry:     expiry,
		MedicalCardExpiry: expiry,
		ImportBatchID:     batchID,
	}
}

// placeholderDispatcher creates a dispatcher account for a name a load file
// mentions. The email is derived from the name so concurrent imports collide
// on the per-tenant unique index and converge on one row; the empty password
// hash cannot pass verification, so nobody can sign in as the placeholder
// until an admin sets a real password.
func placeholderDispatcher(tenantID uuid.UUID, name string) model.User {
	first, last := splitName(name)
	return model.User{
		ID:        uuid.New(),
		TenantID:  tenantID,
		Email:     normalizeKey(name) + "@placeholder.invalid",
		FirstName: first,
		LastName:  last,
		Role:      "dispatcher",
		IsActive:  true,
	}
}

func placeholderTruck(tenantID uuid.UUID, number string, batchID *uuid.UUID) model.Truck {
	return model.Truck{
		ID:            uuid.New(),
		TenantID:      tenantID,
		TruckNumber:   strings.TrimSpace(number),
		Equipment:     model.EquipmentDryVan,
		Status:        "active",
		ImportBatchID: batchID,
	}
}

func placeholderTrailer(tenantID uuid.UUID, number string, batchID *uuid.UUID) model.Trailer {
	return model.Trailer{
		ID:            uuid.New(),
		TenantID:      tenantID,
		TrailerNumber: strings.TrimSpace(number),
		Equipment:     model.EquipmentDryVan,
		Status:        "active",
		ImportBatchID: batchID,
	}
}

// syntheticNumber derives a short unique identifier from the record's own id.
func syntheticNumber(prefix string, id uuid.UUID) string {
	return prefix + "-" + strings.ToUpper(id.String()[:8])
}
