package importer

import (
	"strings"

	"github.com/haulops-platform/api/internal/model"
)

// Enum parsing is synonym-tolerant: input is lowercased and stripped of
// separators before lookup, so "Dry Van", "DRY-VAN", and "dryvan" all land
// on the same value. Each parser returns its default and false for input it
// does not recognize, so callers can queue the raw value for correction.

func enumKey(raw string) string {
	k := strings.ToLower(strings.TrimSpace(raw))
	k = strings.NewReplacer(" ", "", "_", "", "-", "", "/", "").Replace(k)
	return k
}

var equipmentSynonyms = map[string]model.EquipmentType{
	"dryvan": model.EquipmentDryVan, "van": model.EquipmentDryVan, "dv": model.EquipmentDryVan,
	"reefer": model.EquipmentReefer, "refrigerated": model.EquipmentReefer, "rf": model.EquipmentReefer,
	"flatbed": model.EquipmentFlatbed, "flat": model.EquipmentFlatbed, "fb": model.EquipmentFlatbed,
	"stepdeck": model.EquipmentStepDeck, "stepdecktrailer": model.EquipmentStepDeck, "sd": model.EquipmentStepDeck,
	"tanker": model.EquipmentTanker, "tank": model.EquipmentTanker,
	"poweronly": model.EquipmentPowerOnly, "po": model.EquipmentPowerOnly,
	"boxtruck": model.EquipmentBoxTruck, "box": model.EquipmentBoxTruck, "straighttruck": model.EquipmentBoxTruck,
}

func parseEquipment(raw string) (model.EquipmentType, bool) {
	if v, ok := equipmentSynonyms[enumKey(raw)]; ok {
		return v, true
	}
	return model.EquipmentDryVan, false
}

var loadStatusSynonyms = map[string]model.LoadStatus{
	"pending": model.LoadStatusPending, "new": model.LoadStatusPending, "open": model.LoadStatusPending,
	"booked": model.LoadStatusAssigned, "assigned": model.LoadStatusAssigned, "dispatched": model.LoadStatusAssigned,
	"covered": model.LoadStatusAssigned,
	"enroutepickup": model.LoadStatusEnRoutePickup, "enroutetopickup": model.LoadStatusEnRoutePickup,
	"atpickup": model.LoadStatusAtPickup, "atshipper": model.LoadStatusAtPickup, "loading": model.LoadStatusAtPickup,
	"intransit": model.LoadStatusInTransit, "enroute": model.LoadStatusInTransit, "rolling": model.LoadStatusInTransit,
	"delivered": model.LoadStatusDelivered, "completed": model.LoadStatusDelivered, "complete": model.LoadStatusDelivered,
	"done": model.LoadStatusDelivered, "pod": model.LoadStatusDelivered,
	"invoiced": model.LoadStatusInvoiced, "billed": model.LoadStatusInvoiced,
	"paid": model.LoadStatusPaid, "settled": model.LoadStatusPaid, "closed": model.LoadStatusPaid,
	"cancelled": model.LoadStatusCancelled, "canceled": model.LoadStatusCancelled, "tonu": model.LoadStatusCancelled,
}

func parseLoadStatus(raw string) (model.LoadStatus, bool) {
	if v, ok := loadStatusSynonyms[enumKey(raw)]; ok {
		return v, true
	}
	return model.LoadStatusDelivered, false
}

var customerTypeSynonyms = map[string]model.CustomerType{
	"direct": model.CustomerDirect, "shipper": model.CustomerDirect, "directshipper": model.CustomerDirect,
	"broker": model.CustomerBroker, "brokerage": model.CustomerBroker, "freightbroker": model.CustomerBroker,
	"freightforwarder": model.CustomerFreightForwarder, "forwarder": model.CustomerFreightForwarder,
	"3pl": model.CustomerThirdPartyLog, "thirdpartylogistics": model.CustomerThirdPartyLog,
}

func parseCustomerType(raw string) (model.CustomerType, bool) {
	if v, ok := customerTypeSynonyms[enumKey(raw)]; ok {
		return v, true
	}
	return model.CustomerBroker, false
}

var driverTypeSynonyms = map[string]model.DriverType{
	"company": model.DriverCompany, "companydriver": model.DriverCompany, "w2": model.DriverCompany,
	"lease": model.DriverLease, "leaseoperator": model.DriverLease, "leasepurchase": model.DriverLease,
	"owneroperator": model.DriverOwnerOperator, "oo": model.DriverOwnerOperator, "op": model.DriverOwnerOperator,
	"owner": model.DriverOwnerOperator, "1099": model.DriverOwnerOperator,
}

func parseDriverType(raw string) (model.DriverType, bool) {
	if v, ok := driverTypeSynonyms[enumKey(raw)]; ok {
		return v, true
	}
	return model.DriverCompany, false
}

var driverStatusSynonyms = map[string]model.DriverStatus{
	"available": model.DriverAvailable, "active": model.DriverAvailable, "ready": model.DriverAvailable,
	"onduty": model.DriverOnDuty,
	"driving": model.DriverDriving,
	"offduty": model.DriverOffDuty, "off": model.DriverOffDuty, "home": model.DriverOffDuty,
	"onleave": model.DriverOnLeave, "leave": model.DriverOnLeave, "vacation": model.DriverOnLeave,
	"intransit": model.DriverInTransit, "enroute": model.DriverInTransit,
	"inactive": model.DriverInactive, "terminated": model.DriverInactive, "quit": model.DriverInactive,
}

func parseDriverStatus(raw string) (model.DriverStatus, bool) {
	if v, ok := driverStatusSynonyms[enumKey(raw)]; ok {
		return v, true
	}
	return model.DriverAvailable, false
}

var vendorTypeSynonyms = map[string]model.VendorType{
	"fuel": model.VendorFuel, "fuelcard": model.VendorFuel, "gas": model.VendorFuel,
	"maintenance": model.VendorMaintenance, "repair": model.VendorMaintenance, "shop": model.VendorMaintenance,
	"service": model.VendorMaintenance,
	"insurance": model.VendorInsurance,
	"parts":     model.VendorParts,
	"tolls":     model.VendorTolls, "toll": model.VendorTolls,
	"other": model.VendorOther, "misc": model.VendorOther,
}

func parseVendorType(raw string) (model.VendorType, bool) {
	if v, ok := vendorTypeSynonyms[enumKey(raw)]; ok {
		return v, true
	}
	return model.VendorOther, false
}

var locationTypeSynonyms = map[string]model.LocationType{
	"shipper": model.LocationShipper, "pickup": model.LocationShipper, "origin": model.LocationShipper,
	"consignee": model.LocationConsignee, "receiver": model.LocationConsignee, "delivery": model.LocationConsignee,
	"destination": model.LocationConsignee,
	"warehouse":   model.LocationWarehouse, "dc": model.LocationWarehouse, "distributioncenter": model.LocationWarehouse,
	"yard": model.LocationYard, "terminal": model.LocationYard, "dropyard": model.LocationYard,
	"other": model.LocationOther,
}

func parseLocationType(raw string) (model.LocationType, bool) {
	if v, ok := locationTypeSynonyms[enumKey(raw)]; ok {
		return v, true
	}
	return model.LocationOther, false
}

var leadStatusSynonyms = map[string]model.LeadStatus{
	"new": model.LeadNew, "open": model.LeadNew,
	"contacted": model.LeadContacted, "called": model.LeadContacted, "reached": model.LeadContacted,
	"qualified": model.LeadQualified, "prequalified": model.LeadQualified,
	"documentspending": model.LeadDocsPending, "docspending": model.LeadDocsPending,
	"documentscollected": model.LeadDocsComplete, "docscollected": model.LeadDocsComplete,
	"docscomplete": model.LeadDocsComplete,
	"interview":    model.LeadInterview, "interviewing": model.LeadInterview,
	"offer": model.LeadOffer, "offered": model.LeadOffer,
	"hired": model.LeadHired, "onboarded": model.LeadHired,
	"rejected": model.LeadRejected, "declined": model.LeadRejected, "notqualified": model.LeadRejected,
	"dnq": model.LeadRejected,
}

func parseLeadStatus(raw string) (model.LeadStatus, bool) {
	if v, ok := leadStatusSynonyms[enumKey(raw)]; ok {
		return v, true
	}
	return model.LeadNew, false
}

var invoiceStatusSynonyms = map[string]model.InvoiceStatus{
	"draft": model.InvoiceDraft, "pending": model.InvoiceDraft, "unbilled": model.InvoiceDraft,
	"sent": model.InvoiceSent, "open": model.InvoiceSent, "issued": model.InvoiceSent,
	"submitted": model.InvoiceSent, "factored": model.InvoiceSent,
	"paid": model.InvoicePaid, "settled": model.InvoicePaid, "closed": model.InvoicePaid,
	"overdue": model.InvoiceOverdue, "pastdue": model.InvoiceOverdue, "late": model.InvoiceOverdue,
	"void": model.InvoiceVoid, "voided": model.InvoiceVoid, "cancelled": model.InvoiceVoid,
	"canceled": model.InvoiceVoid,
}

func parseInvoiceStatus(raw string) (model.InvoiceStatus, bool) {
	if v, ok := invoiceStatusSynonyms[enumKey(raw)]; ok {
		return v, true
	}
	return model.InvoiceSent, false
}

var settlementStatusSynonyms = map[string]model.SettlementStatus{
	"draft": model.SettlementDraft, "pending": model.SettlementDraft, "open": model.SettlementDraft,
	"approved": model.SettlementApproved, "finalized": model.SettlementApproved, "final": model.SettlementApproved,
	"paid": model.SettlementPaid, "settled": model.SettlementPaid, "closed": model.SettlementPaid,
}

func parseSettlementStatus(raw string) (model.SettlementStatus, bool) {
	if v, ok := settlementStatusSynonyms[enumKey(raw)]; ok {
		return v, true
	}
	return model.SettlementDraft, false
}
