package importer

import (
	"context"

	"github.com/google/uuid"

	"github.com/haulops-platform/api/internal/model"
)

// Store is the persistence surface the engine needs. Bulk inserts are
// duplicate-tolerant: a record whose unique key already exists is skipped,
// not an error. Batch updates run in a single transaction.
type Store interface {
	// Tenant-scoped reference data.
	ListBillingEntities(ctx context.Context, tenantID uuid.UUID) ([]model.BillingEntity, error)
	ListDispatchers(ctx context.Context, tenantID uuid.UUID) ([]model.User, error)
	BulkInsertDispatchers(ctx context.Context, users []model.User) error
	GetDispatchersByNames(ctx context.Context, tenantID uuid.UUID, names []string) ([]model.User, error)

	ListCustomers(ctx context.Context, tenantID uuid.UUID) ([]model.Customer, error)
	BulkInsertCustomers(ctx context.Context, customers []model.Customer) error
	InsertCustomer(ctx context.Context, customer model.Customer) error
	UpdateCustomers(ctx context.Context, customers []model.Customer) error
	UpdateCustomer(ctx context.Context, customer model.Customer) error
	GetCustomersByNames(ctx context.Context, tenantID uuid.UUID, names []string) ([]model.Customer, error)

	ListVendors(ctx context.Context, tenantID uuid.UUID) ([]model.Vendor, error)
	BulkInsertVendors(ctx context.Context, vendors []model.Vendor) error
	InsertVendor(ctx context.Context, vendor model.Vendor) error
	UpdateVendors(ctx context.Context, vendors []model.Vendor) error
	UpdateVendor(ctx context.Context, vendor model.Vendor) error

	ListLocations(ctx context.Context, tenantID uuid.UUID) ([]model.Location, error)
	BulkInsertLocations(ctx context.Context, locations []model.Location) error
	InsertLocation(ctx context.Context, location model.Location) error
	UpdateLocations(ctx context.Context, locations []model.Location) error
	UpdateLocation(ctx context.Context, location model.Location) error

	ListDrivers(ctx context.Context, tenantID uuid.UUID) ([]model.Driver, error)
	BulkInsertDrivers(ctx context.Context, drivers []model.Driver) error
	InsertDriver(ctx context.Context, driver model.Driver) error
	UpdateDrivers(ctx context.Context, drivers []model.Driver) error
	UpdateDriver(ctx context.Context, driver model.Driver) error
	GetDriversByNames(ctx context.Context, tenantID uuid.UUID, names []string) ([]model.Driver, error)

	ListTrucks(ctx context.Context, tenantID uuid.UUID) ([]model.Truck, error)
	BulkInsertTrucks(ctx context.Context, trucks []model.Truck) error
	InsertTruck(ctx context.Context, truck model.Truck) error
	UpdateTrucks(ctx context.Context, trucks []model.Truck) error
	UpdateTruck(ctx context.Context, truck model.Truck) error
	GetTrucksByNumbers(ctx context.Context, tenantID uuid.UUID, numbers []string) ([]model.Truck, error)

	ListTrailers(ctx context.Context, tenantID uuid.UUID) ([]model.Trailer, error)
	BulkInsertTrailers(ctx context.Context, trailers []model.Trailer) error
	InsertTrailer(ctx context.Context, trailer model.Trailer) error
	UpdateTrailers(ctx context.Context, trailers []model.Trailer) error
	UpdateTrailer(ctx context.Context, trailer model.Trailer) error
	GetTrailersByNumbers(ctx context.Context, tenantID uuid.UUID, numbers []string) ([]model.Trailer, error)

	ListLoads(ctx context.Context, tenantID uuid.UUID) ([]model.Load, error)
	BulkInsertLoads(ctx context.Context, loads []model.Load) error
	InsertLoad(ctx context.Context, load model.Load) error
	UpdateLoads(ctx context.Context, loads []model.Load) error
	UpdateLoad(ctx context.Context, load model.Load) error

	ListInvoices(ctx context.Context, tenantID uuid.UUID) ([]model.Invoice, error)
	BulkInsertInvoices(ctx context.Context, invoices []model.Invoice) error
	InsertInvoice(ctx context.Context, invoice model.Invoice) error
	UpdateInvoices(ctx context.Context, invoices []model.Invoice) error
	UpdateInvoice(ctx context.Context, invoice model.Invoice) error

	ListSettlements(ctx context.Context, tenantID uuid.UUID) ([]model.Settlement, error)
	BulkInsertSettlements(ctx context.Context, settlements []model.Settlement) error
	InsertSettlement(ctx context.Context, settlement model.Settlement) error
	UpdateSettlements(ctx context.Context, settlements []model.Settlement) error
	UpdateSettlement(ctx context.Context, settlement model.Settlement) error

	ListLeads(ctx context.Context, tenantID uuid.UUID) ([]model.Lead, error)
	BulkInsertLeads(ctx context.Context, leads []model.Lead) error
	InsertLead(ctx context.Context, lead model.Lead) error
	UpdateLeads(ctx context.Context, leads []model.Lead) error
	UpdateLead(ctx context.Context, lead model.Lead) error
}
