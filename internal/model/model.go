package model

import (
	"time"

	"github.com/google/uuid"
)

type LoadStatus string

const (
	LoadStatusPending       LoadStatus = "pending"
	LoadStatusAssigned      LoadStatus = "assigned"
	LoadStatusEnRoutePickup LoadStatus = "en_route_pickup"
	LoadStatusAtPickup      LoadStatus = "at_pickup"
	LoadStatusInTransit     LoadStatus = "in_transit"
	LoadStatusDelivered     LoadStatus = "delivered"
	LoadStatusInvoiced      LoadStatus = "invoiced"
	LoadStatusPaid          LoadStatus = "paid"
	LoadStatusCancelled     LoadStatus = "cancelled"
)

type EquipmentType string

const (
	EquipmentDryVan    EquipmentType = "dry_van"
	EquipmentReefer    EquipmentType = "reefer"
	EquipmentFlatbed   EquipmentType = "flatbed"
	EquipmentStepDeck  EquipmentType = "step_deck"
	EquipmentTanker    EquipmentType = "tanker"
	EquipmentPowerOnly EquipmentType = "power_only"
	EquipmentBoxTruck  EquipmentType = "box_truck"
)

type CustomerType string

const (
	CustomerDirect           CustomerType = "direct"
	CustomerBroker           CustomerType = "broker"
	CustomerFreightForwarder CustomerType = "freight_forwarder"
	CustomerThirdPartyLog    CustomerType = "third_party_logistics"
)

type DriverType string

const (
	DriverCompany       DriverType = "company_driver"
	DriverLease         DriverType = "lease"
	DriverOwnerOperator DriverType = "owner_operator"
)

type DriverStatus string

const (
	DriverAvailable DriverStatus = "available"
	DriverOnDuty    DriverStatus = "on_duty"
	DriverDriving   DriverStatus = "driving"
	DriverOffDuty   DriverStatus = "off_duty"
	DriverOnLeave   DriverStatus = "on_leave"
	DriverInTransit DriverStatus = "in_transit"
	DriverInactive  DriverStatus = "inactive"
)

type VendorType string

const (
	VendorFuel        VendorType = "fuel"
	VendorMaintenance VendorType = "maintenance"
	VendorInsurance   VendorType = "insurance"
	VendorParts       VendorType = "parts"
	VendorTolls       VendorType = "tolls"
	VendorOther       VendorType = "other"
)

type LocationType string

const (
	LocationShipper   LocationType = "shipper"
	LocationConsignee LocationType = "consignee"
	LocationWarehouse LocationType = "warehouse"
	LocationYard      LocationType = "yard"
	LocationOther     LocationType = "other"
)

type LeadStatus string

const (
	LeadNew          LeadStatus = "new"
	LeadContacted    LeadStatus = "contacted"
	LeadQualified    LeadStatus = "qualified"
	LeadDocsPending  LeadStatus = "documents_pending"
	LeadDocsComplete LeadStatus = "documents_collected"
	LeadInterview    LeadStatus = "interview"
	LeadOffer        LeadStatus = "offer"
	LeadHired        LeadStatus = "hired"
	LeadRejected     LeadStatus = "rejected"
)

type InvoiceStatus string

const (
	InvoiceDraft   InvoiceStatus = "draft"
	InvoiceSent    InvoiceStatus = "sent"
	InvoicePaid    InvoiceStatus = "paid"
	InvoiceOverdue InvoiceStatus = "overdue"
	InvoiceVoid    InvoiceStatus = "void"
)

type SettlementStatus string

const (
	SettlementDraft    SettlementStatus = "draft"
	SettlementApproved SettlementStatus = "approved"
	SettlementPaid     SettlementStatus = "paid"
)

type Tenant struct {
	ID        uuid.UUID
	Slug      string
	Name      string
	CreatedAt time.Time
}

// BillingEntity is an operating authority (MC number) a tenant runs loads
// under. One of them is the tenant default used as the last-resort fallback
// when an import row does not name one.
type BillingEntity struct {
	ID          uuid.UUID
	TenantID    uuid.UUID
	Number      string
	CompanyName string
	IsDefault   bool
}

type User struct {
	ID           uuid.UUID
	TenantID     uuid.UUID
	Email        string
	FirstName    string
	LastName     string
	Phone        string
	Role         string
	PasswordHash string
	IsActive     bool
}

type Customer struct {
	ID             uuid.UUID
	TenantID       uuid.UUID
	CustomerNumber string
	Name           string
	Type           CustomerType
	Address        string
	City           string
	State          string
	Zip            string
	Phone          string
	Email          string
	BillingEmails  string
	CreditRate     *float64
	Notes          string
	ImportBatchID  *uuid.UUID
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

type Driver struct {
	ID                uuid.UUID
	TenantID          uuid.UUID
	UserID            *uuid.UUID
	DriverNumber      string
	FirstName         string
	LastName          string
	Email             string
	Phone             string
	Type              DriverType
	Status            DriverStatus
	LicenseNumber     string
	LicenseState      string
	LicenseExpiry     time.Time
	MedicalCardExpiry time.Time
	PayRate           float64
	Address           string
	City              string
	State             string
	Zip               string
	BillingEntityID   *uuid.UUID
	ImportBatchID     *uuid.UUID
	CreatedAt         time.Time
	UpdatedAt         time.Time
}

type Truck struct {
	ID                 uuid.UUID
	TenantID           uuid.UUID
	TruckNumber        string
	VIN                string
	Make               string
	Model              string
	Year               int
	LicensePlate       string
	State              string
	Equipment          EquipmentType
	CapacityLbs        int
	Status             string
	RegistrationExpiry time.Time
	InspectionExpiry   time.Time
	BillingEntityID    *uuid.UUID
	AssignedDriverID   *uuid.UUID
	ImportBatchID      *uuid.UUID
	CreatedAt          time.Time
	UpdatedAt          time.Time
}

type Trailer struct {
	ID              uuid.UUID
	TenantID        uuid.UUID
	TrailerNumber   string
	VIN             string
	Make            string
	Model           string
	Equipment       EquipmentType
	Status          string
	BillingEntityID *uuid.UUID
	ImportBatchID   *uuid.UUID
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

type Vendor struct {
	ID            uuid.UUID
	TenantID      uuid.UUID
	VendorNumber  string
	Name          string
	Type          VendorType
	Email         string
	Phone         string
	Website       string
	Address       string
	City          string
	State         string
	Zip           string
	ImportBatchID *uuid.UUID
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

type Location struct {
	ID             uuid.UUID
	TenantID       uuid.UUID
	LocationNumber string
	Name           string
	Company        string
	Address        string
	City           string
	State          string
	Zip            string
	ContactName    string
	ContactPhone   string
	Type           LocationType
	Notes          string
	ImportBatchID  *uuid.UUID
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

type Load struct {
	ID              uuid.UUID
	TenantID        uuid.UUID
	LoadNumber      string
	CustomerID      uuid.UUID
	DriverID        *uuid.UUID
	TruckID         *uuid.UUID
	TrailerID       *uuid.UUID
	DispatcherID    *uuid.UUID
	BillingEntityID *uuid.UUID
	Status          LoadStatus
	Equipment       EquipmentType
	Revenue         float64
	DriverPay       float64
	Profit          float64
	RevenuePerMile  float64
	TotalMiles      float64
	LoadedMiles     float64
	EmptyMiles      float64
	WeightLbs       float64
	Commodity       string
	ReferenceNumber string
	PickupCity      string
	PickupState     string
	PickupZip       string
	PickupAddress   string
	DeliveryCity    string
	DeliveryState   string
	DeliveryZip     string
	DeliveryAddress string
	PickupDate      time.Time
	DeliveryDate    time.Time
	Notes           string
	ImportBatchID   *uuid.UUID
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

type Invoice struct {
	ID            uuid.UUID
	TenantID      uuid.UUID
	InvoiceNumber string
	CustomerID    uuid.UUID
	LoadID        *uuid.UUID
	Status        InvoiceStatus
	Amount        float64
	BalanceDue    float64
	IssuedDate    time.Time
	DueDate       time.Time
	PaidDate      *time.Time
	ImportBatchID *uuid.UUID
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

type Settlement struct {
	ID               uuid.UUID
	TenantID         uuid.UUID
	SettlementNumber string
	DriverID         uuid.UUID
	PeriodStart      time.Time
	PeriodEnd        time.Time
	Status           SettlementStatus
	GrossPay         float64
	Deductions       float64
	NetPay           float64
	ImportBatchID    *uuid.UUID
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

type Lead struct {
	ID            uuid.UUID
	TenantID      uuid.UUID
	LeadNumber    string
	FirstName     string
	LastName      string
	Phone         string
	Email         string
	Status        LeadStatus
	Priority      string
	Source        string
	CDLClass      string
	City          string
	State         string
	Notes         string
	ImportBatchID *uuid.UUID
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

type ImportRun struct {
	ID          uuid.UUID
	TenantID    uuid.UUID
	Entity      string
	Mode        string
	Filename    string
	FileSHA256  string
	MappingJSON []byte
	SummaryJSON []byte
	Status      string
	CreatedAt   time.Time
	CompletedAt *time.Time
}

type ImportRowResult struct {
	ID          uuid.UUID
	TenantID    uuid.UUID
	ImportRunID uuid.UUID
	RowNumber   int
	Severity    string
	Field       *string
	Message     string
	RawValue    *string
}

type AuditEntry struct {
	ID         uuid.UUID
	TenantID   uuid.UUID
	UserID     *uuid.UUID
	Action     string
	EntityType string
	EntityID   *uuid.UUID
	RequestID  *string
	Metadata   []byte
	CreatedAt  time.Time
}
