package importer

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/uuid"

	"github.com/haulops-platform/api/internal/model"
)

// fakeStore is an in-memory Store for engine tests. Bulk inserts mirror the
// production duplicate-tolerant behavior loosely: they append everything they
// are given, since the engine is expected to dedup before persisting.
// Failures are injected per entity (whole-chunk) or per record name.
type fakeStore struct {
	mu sync.Mutex

	billing     []model.BillingEntity
	dispatchers []model.User
	customers   []model.Customer
	vendors     []model.Vendor
	locations   []model.Location
	drivers     []model.Driver
	trucks      []model.Truck
	trailers    []model.Trailer
	loads       []model.Load
	invoices    []model.Invoice
	settlements []model.Settlement
	leads       []model.Lead

	// failBulk forces the bulk path for an entity ("customers", "loads", ...)
	// to error so per-record fallback runs.
	failBulk map[string]bool
	// poisonNames makes single-record inserts fail for records whose natural
	// key matches.
	poisonNames map[string]bool
}

func newFakeStore() *fakeStore {
	return &fakeStore{failBulk: map[string]bool{}, poisonNames: map[string]bool{}}
}

func (f *fakeStore) poisoned(key string) bool {
	return f.poisonNames[normalizeKey(key)]
}

func (f *fakeStore) ListBillingEntities(ctx context.Context, tenantID uuid.UUID) ([]model.BillingEntity, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]model.BillingEntity(nil), f.billing...), nil
}

func (f *fakeStore) ListDispatchers(ctx context.Context, tenantID uuid.UUID) ([]model.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]model.User(nil), f.dispatchers...), nil
}

func (f *fakeStore) BulkInsertDispatchers(ctx context.Context, users []model.User) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.dispatchers = append(f.dispatchers, users...)
	return nil
}

func (f *fakeStore) GetDispatchersByNames(ctx context.Context, tenantID uuid.UUID, names []string) ([]model.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	want := map[string]bool{}
	for _, n := range names {
		want[normalizeKey(n)] = true
	}
	var out []model.User
	for _, u := range f.dispatchers {
		if want[normalizeKey(u.FirstName+" "+u.LastName)] {
			out = append(out, u)
		}
	}
	return out, nil
}

func (f *fakeStore) ListCustomers(ctx context.Context, tenantID uuid.UUID) ([]model.Customer, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]model.Customer(nil), f.customers...), nil
}

func (f *fakeStore) BulkInsertCustomers(ctx context.Context, customers []model.Customer) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failBulk["customers"] {
		return fmt.Errorf("bulk insert rejected")
	}
	f.customers = append(f.customers, customers...)
	return nil
}

func (f *fakeStore) InsertCustomer(ctx context.Context, customer model.Customer) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.poisoned(customer.Name) {
		return fmt.Errorf("constraint violation")
	}
	f.customers = append(f.customers, customer)
	return nil
}

func (f *fakeStore) UpdateCustomers(ctx context.Context, customers []model.Customer) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failBulk["customer-updates"] {
		return fmt.Errorf("batch update rejected")
	}
	for _, c := range customers {
		f.replaceCustomer(c)
	}
	return nil
}

func (f *fakeStore) UpdateCustomer(ctx context.Context, customer model.Customer) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.poisoned(customer.Name) {
		return fmt.Errorf("constraint violation")
	}
	f.replaceCustomer(customer)
	return nil
}

func (f *fakeStore) replaceCustomer(customer model.Customer) {
	for i, c := range f.customers {
		if c.ID == customer.ID {
			f.customers[i] = customer
			return
		}
	}
	f.customers = append(f.customers, customer)
}

func (f *fakeStore) GetCustomersByNames(ctx context.Context, tenantID uuid.UUID, names []string) ([]model.Customer, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	want := map[string]bool{}
	for _, n := range names {
		want[normalizeKey(n)] = true
	}
	var out []model.Customer
	for _, c := range f.customers {
		if want[normalizeKey(c.Name)] {
			out = append(out, c)
		}
	}
	return out, nil
}

func (f *fakeStore) ListVendors(ctx context.Context, tenantID uuid.UUID) ([]model.Vendor, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]model.Vendor(nil), f.vendors...), nil
}

func (f *fakeStore) BulkInsertVendors(ctx context.Context, vendors []model.Vendor) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failBulk["vendors"] {
		return fmt.Errorf("bulk insert rejected")
	}
	f.vendors = append(f.vendors, vendors...)
	return nil
}

func (f *fakeStore) InsertVendor(ctx context.Context, vendor model.Vendor) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.vendors = append(f.vendors, vendor)
	return nil
}

func (f *fakeStore) UpdateVendors(ctx context.Context, vendors []model.Vendor) error { return nil }
func (f *fakeStore) UpdateVendor(ctx context.Context, vendor model.Vendor) error     { return nil }

func (f *fakeStore) ListLocations(ctx context.Context, tenantID uuid.UUID) ([]model.Location, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]model.Location(nil), f.locations...), nil
}

func (f *fakeStore) BulkInsertLocations(ctx context.Context, locations []model.Location) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.locations = append(f.locations, locations...)
	return nil
}

func (f *fakeStore) InsertLocation(ctx context.Context, location model.Location) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.locations = append(f.locations, location)
	return nil
}

func (f *fakeStore) UpdateLocations(ctx context.Context, locations []model.Location) error { return nil }
func (f *fakeStore) UpdateLocation(ctx context.Context, location model.Location) error     { return nil }

func (f *fakeStore) ListDrivers(ctx context.Context, tenantID uuid.UUID) ([]model.Driver, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]model.Driver(nil), f.drivers...), nil
}

func (f *fakeStore) BulkInsertDrivers(ctx context.Context, drivers []model.Driver) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failBulk["drivers"] {
		return fmt.Errorf("bulk insert rejected")
	}
	f.drivers = append(f.drivers, drivers...)
	return nil
}

func (f *fakeStore) InsertDriver(ctx context.Context, driver model.Driver) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.drivers = append(f.drivers, driver)
	return nil
}

func (f *fakeStore) UpdateDrivers(ctx context.Context, drivers []model.Driver) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, d := range drivers {
		for i, cur := range f.drivers {
			if cur.ID == d.ID {
				f.drivers[i] = d
			}
		}
	}
	return nil
}

func (f *fakeStore) UpdateDriver(ctx context.Context, driver model.Driver) error { return nil }

func (f *fakeStore) GetDriversByNames(ctx context.Context, tenantID uuid.UUID, names []string) ([]model.Driver, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	want := map[string]bool{}
	for _, n := range names {
		want[normalizeKey(n)] = true
	}
	var out []model.Driver
	for _, d := range f.drivers {
		if want[normalizeKey(d.FirstName+" "+d.LastName)] {
			out = append(out, d)
		}
	}
	return out, nil
}

func (f *fakeStore) ListTrucks(ctx context.Context, tenantID uuid.UUID) ([]model.Truck, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]model.Truck(nil), f.trucks...), nil
}

func (f *fakeStore) BulkInsertTrucks(ctx context.Context, trucks []model.Truck) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.trucks = append(f.trucks, trucks...)
	return nil
}

func (f *fakeStore) InsertTruck(ctx context.Context, truck model.Truck) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.trucks = append(f.trucks, truck)
	return nil
}

func (f *fakeStore) UpdateTrucks(ctx context.Context, trucks []model.Truck) error { return nil }
func (f *fakeStore) UpdateTruck(ctx context.Context, truck model.Truck) error     { return nil }

func (f *fakeStore) GetTrucksByNumbers(ctx context.Context, tenantID uuid.UUID, numbers []string) ([]model.Truck, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	want := map[string]bool{}
	for _, n := range numbers {
		want[normalizeKey(n)] = true
	}
	var out []model.Truck
	for _, t := range f.trucks {
		if want[normalizeKey(t.TruckNumber)] {
			out = append(out, t)
		}
	}
	return out, nil
}

func (f *fakeStore) ListTrailers(ctx context.Context, tenantID uuid.UUID) ([]model.Trailer, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]model.Trailer(nil), f.trailers...), nil
}

func (f *fakeStore) BulkInsertTrailers(ctx context.Context, trailers []model.Trailer) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.trailers = append(f.trailers, trailers...)
	return nil
}

func (f *fakeStore) InsertTrailer(ctx context.Context, trailer model.Trailer) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.trailers = append(f.trailers, trailer)
	return nil
}

func (f *fakeStore) UpdateTrailers(ctx context.Context, trailers []model.Trailer) error { return nil }
func (f *fakeStore) UpdateTrailer(ctx context.Context, trailer model.Trailer) error     { return nil }

func (f *fakeStore) GetTrailersByNumbers(ctx context.Context, tenantID uuid.UUID, numbers []string) ([]model.Trailer, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	want := map[string]bool{}
	for _, n := range numbers {
		want[normalizeKey(n)] = true
	}
	var out []model.Trailer
	for _, t := range f.trailers {
		if want[normalizeKey(t.TrailerNumber)] {
			out = append(out, t)
		}
	}
	return out, nil
}

func (f *fakeStore) ListLoads(ctx context.Context, tenantID uuid.UUID) ([]model.Load, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]model.Load(nil), f.loads...), nil
}

func (f *fakeStore) BulkInsertLoads(ctx context.Context, loads []model.Load) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failBulk["loads"] {
		return fmt.Errorf("bulk insert rejected")
	}
	f.loads = append(f.loads, loads...)
	return nil
}

func (f *fakeStore) InsertLoad(ctx context.Context, load model.Load) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.poisoned(load.LoadNumber) {
		return fmt.Errorf("constraint violation")
	}
	f.loads = append(f.loads, load)
	return nil
}

func (f *fakeStore) UpdateLoads(ctx context.Context, loads []model.Load) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, l := range loads {
		for i, cur := range f.loads {
			if cur.ID == l.ID {
				f.loads[i] = l
			}
		}
	}
	return nil
}

func (f *fakeStore) UpdateLoad(ctx context.Context, load model.Load) error { return nil }

func (f *fakeStore) ListInvoices(ctx context.Context, tenantID uuid.UUID) ([]model.Invoice, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]model.Invoice(nil), f.invoices...), nil
}

func (f *fakeStore) BulkInsertInvoices(ctx context.Context, invoices []model.Invoice) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.invoices = append(f.invoices, invoices...)
	return nil
}

func (f *fakeStore) InsertInvoice(ctx context.Context, invoice model.Invoice) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.invoices = append(f.invoices, invoice)
	return nil
}

func (f *fakeStore) UpdateInvoices(ctx context.Context, invoices []model.Invoice) error { return nil }
func (f *fakeStore) UpdateInvoice(ctx context.Context, invoice model.Invoice) error     { return nil }

func (f *fakeStore) ListSettlements(ctx context.Context, tenantID uuid.UUID) ([]model.Settlement, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]model.Settlement(nil), f.settlements...), nil
}

func (f *fakeStore) BulkInsertSettlements(ctx context.Context, settlements []model.Settlement) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.settlements = append(f.settlements, settlements...)
	return nil
}

func (f *fakeStore) InsertSettlement(ctx context.Context, settlement model.Settlement) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.settlements = append(f.settlements, settlement)
	return nil
}

func (f *fakeStore) UpdateSettlements(ctx context.Context, settlements []model.Settlement) error {
	return nil
}
func (f *fakeStore) UpdateSettlement(ctx context.Context, settlement model.Settlement) error {
	return nil
}

func (f *fakeStore) ListLeads(ctx context.Context, tenantID uuid.UUID) ([]model.Lead, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]model.Lead(nil), f.leads...), nil
}

func (f *fakeStore) BulkInsertLeads(ctx context.Context, leads []model.Lead) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.leads = append(f.leads, leads...)
	return nil
}

func (f *fakeStore) InsertLead(ctx context.Context, lead model.Lead) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.leads = append(f.leads, lead)
	return nil
}

func (f *fakeStore) UpdateLeads(ctx context.Context, leads []model.Lead) error { return nil }
func (f *fakeStore) UpdateLead(ctx context.Context, lead model.Lead) error     { return nil }
