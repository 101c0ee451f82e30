package importer

import (
	"context"
	"strings"
	"testing"

	"github.com/google/uuid"

	"github.com/haulops-platform/api/internal/model"
)

func seedBilling(fs *fakeStore, e *Engine) model.BillingEntity {
	b := model.BillingEntity{
		ID:          uuid.New(),
		TenantID:    e.tenantID,
		Number:      "MC-100001",
		CompanyName: "Haul Co",
		IsDefault:   true,
	}
	fs.billing = append(fs.billing, b)
	return b
}

func TestImportLoadsProvisionsMissingReferences(t *testing.T) {
	fs := newFakeStore()
	e := testEngine(fs)
	billing := seedBilling(fs, e)

	rows := []Row{{
		"Load Number": "L-1001",
		"Customer":    "Acme Logistics",
		"Driver":      "John Smith",
		"Truck":       "0042",
		"Dispatcher":  "Dana Ops",
		"Rate":        "$2,500.00",
		"Miles":       "1000",
	}}
	res, err := e.ImportLoads(context.Background(), rows, Options{})
	if err != nil {
		t.Fatalf("ImportLoads: %v", err)
	}
	if res.Summary.Created != 1 || res.Summary.Errors != 0 {
		t.Fatalf("unexpected summary: %+v", res.Summary)
	}

	if len(fs.customers) != 1 || fs.customers[0].Name != "Acme Logistics" {
		t.Fatalf("customer not provisioned: %+v", fs.customers)
	}
	if !strings.HasPrefix(fs.customers[0].CustomerNumber, "C-") {
		t.Fatalf("placeholder customer missing synthetic number: %q", fs.customers[0].CustomerNumber)
	}
	if len(fs.drivers) != 1 || fs.drivers[0].FirstName != "John" || fs.drivers[0].LastName != "Smith" {
		t.Fatalf("driver not provisioned: %+v", fs.drivers)
	}
	if len(fs.trucks) != 1 || fs.trucks[0].TruckNumber != "0042" {
		t.Fatalf("truck not provisioned: %+v", fs.trucks)
	}
	if len(fs.dispatchers) != 1 || fs.dispatchers[0].FirstName != "Dana" || fs.dispatchers[0].LastName != "Ops" {
		t.Fatalf("dispatcher not provisioned: %+v", fs.dispatchers)
	}
	if fs.dispatchers[0].Role != "dispatcher" {
		t.Fatalf("placeholder dispatcher has role %q", fs.dispatchers[0].Role)
	}
	if fs.dispatchers[0].PasswordHash != "" {
		t.Fatal("placeholder dispatcher must not carry a usable password")
	}

	if len(fs.loads) != 1 {
		t.Fatalf("expected 1 load, got %d", len(fs.loads))
	}
	l := fs.loads[0]
	if l.CustomerID != fs.customers[0].ID {
		t.Fatal("load not linked to provisioned customer")
	}
	if l.DriverID == nil || *l.DriverID != fs.drivers[0].ID {
		t.Fatal("load not linked to provisioned driver")
	}
	if l.TruckID == nil || *l.TruckID != fs.trucks[0].ID {
		t.Fatal("load not linked to provisioned truck")
	}
	if l.DispatcherID == nil || *l.DispatcherID != fs.dispatchers[0].ID {
		t.Fatal("load not linked to provisioned dispatcher")
	}
	if l.BillingEntityID == nil || *l.BillingEntityID != billing.ID {
		t.Fatal("default billing entity not stamped")
	}
	if l.Revenue != 2500 || l.TotalMiles != 1000 || l.RevenuePerMile != 2.5 {
		t.Fatalf("financials wrong: %+v", l)
	}

	found := false
	for _, w := range res.Warnings {
		if strings.Contains(w.Error, "auto-created") {
			found = true
		}
	}
	if !found {
		t.Fatalf("expected an auto-created warning, got %+v", res.Warnings)
	}
}

func TestImportLoadsPreviewMintsProvisionalLabels(t *testing.T) {
	fs := newFakeStore()
	e := testEngine(fs)
	seedBilling(fs, e)

	rows := []Row{{
		"Load Number": "L-1001",
		"Customer":    "Acme Logistics",
	}}
	res, err := e.ImportLoads(context.Background(), rows, Options{PreviewOnly: true})
	if err != nil {
		t.Fatalf("ImportLoads: %v", err)
	}
	if res.Summary.Created != 1 {
		t.Fatalf("unexpected summary: %+v", res.Summary)
	}
	if len(fs.customers) != 0 || len(fs.loads) != 0 {
		t.Fatal("preview must not write")
	}
	if len(res.Preview) != 1 {
		t.Fatalf("expected 1 preview entry, got %d", len(res.Preview))
	}
	entry := res.Preview[0].(map[string]any)
	label, _ := entry["customerId"].(string)
	if !strings.HasPrefix(label, "preview:new:customer:") {
		t.Fatalf("expected provisional customer label, got %q", label)
	}
}

func TestImportLoadsRowValidation(t *testing.T) {
	fs := newFakeStore()
	e := testEngine(fs)
	seedBilling(fs, e)

	rows := []Row{
		{"Customer": "Acme Logistics"}, // no load number
		{"Load Number": "L-1"},         // no customer
		{"Load Number": "L-2", "Customer": "Acme Logistics"},
	}
	res, err := e.ImportLoads(context.Background(), rows, Options{})
	if err != nil {
		t.Fatalf("ImportLoads: %v", err)
	}
	if res.Summary.Errors != 1 || res.Summary.Created != 2 {
		t.Fatalf("unexpected summary: %+v", res.Summary)
	}
	if !res.Conserved() {
		t.Fatalf("summary does not reconcile: %+v", res.Summary)
	}
	if len(res.Errors) != 1 || res.Errors[0].Field != "customer" {
		t.Fatalf("unexpected errors: %+v", res.Errors)
	}

	// The number-less row gets a synthesized number and a warning, not an error.
	var synthesized string
	for _, w := range res.Warnings {
		if w.Row == 1 && w.Field == "loadNumber" {
			synthesized = w.Error
		}
	}
	if synthesized == "" {
		t.Fatalf("expected a synthesized load number warning on row 1, got %+v", res.Warnings)
	}
	if len(fs.loads) != 2 {
		t.Fatalf("expected 2 loads, got %d", len(fs.loads))
	}
	if !strings.HasPrefix(fs.loads[0].LoadNumber, "L-") || fs.loads[0].LoadNumber == "L-2" {
		t.Fatalf("synthesized load number wrong: %q", fs.loads[0].LoadNumber)
	}
}

func TestImportLoadsDuplicateNumberKeepsLatest(t *testing.T) {
	fs := newFakeStore()
	e := testEngine(fs)
	seedBilling(fs, e)

	rows := []Row{
		{"Load Number": "L-1001", "Customer": "Acme Logistics", "Rate": "1000"},
		{"Load Number": "l-1001", "Customer": "Acme Logistics", "Rate": "1200"},
	}
	res, err := e.ImportLoads(context.Background(), rows, Options{})
	if err != nil {
		t.Fatalf("ImportLoads: %v", err)
	}
	if res.Summary.Created != 1 || res.Summary.Skipped != 1 {
		t.Fatalf("unexpected summary: %+v", res.Summary)
	}
	if len(fs.loads) != 1 || fs.loads[0].Revenue != 1200 {
		t.Fatalf("latest row not kept: %+v", fs.loads)
	}
}

func TestImportLoadsUpdateExistingMerges(t *testing.T) {
	fs := newFakeStore()
	e := testEngine(fs)
	seedBilling(fs, e)
	customerID := uuid.New()
	driverID := uuid.New()
	fs.customers = []model.Customer{{ID: customerID, TenantID: e.tenantID, Name: "Acme Logistics"}}
	fs.drivers = []model.Driver{{ID: driverID, TenantID: e.tenantID, DriverNumber: "D-1", FirstName: "John", LastName: "Smith"}}
	existing := model.Load{
		ID:         uuid.New(),
		TenantID:   e.tenantID,
		LoadNumber: "L-1001",
		CustomerID: customerID,
		DriverID:   &driverID,
		Revenue:    1000,
	}
	fs.loads = []model.Load{existing}

	// The row carries no driver; the stored assignment must survive.
	rows := []Row{{"Load Number": "L-1001", "Customer": "Acme Logistics", "Rate": "1500"}}
	res, err := e.ImportLoads(context.Background(), rows, Options{UpdateExisting: true})
	if err != nil {
		t.Fatalf("ImportLoads: %v", err)
	}
	if res.Summary.Updated != 1 {
		t.Fatalf("unexpected summary: %+v", res.Summary)
	}
	l := fs.loads[0]
	if l.ID != existing.ID || l.Revenue != 1500 {
		t.Fatalf("update result wrong: %+v", l)
	}
	if l.DriverID == nil || *l.DriverID != driverID {
		t.Fatal("sparse row dropped the stored driver assignment")
	}
}

func TestImportLoadsCompositeStops(t *testing.T) {
	fs := newFakeStore()
	e := testEngine(fs)
	seedBilling(fs, e)

	rows := []Row{{
		"Load Number": "L-1001",
		"Customer":    "Acme Logistics",
		"Origin":      "123 Dock Rd, Laredo, TX 78040",
		"Destination": "Chicago, IL",
	}}
	res, err := e.ImportLoads(context.Background(), rows, Options{})
	if err != nil {
		t.Fatalf("ImportLoads: %v", err)
	}
	if res.Summary.Created != 1 {
		t.Fatalf("unexpected summary: %+v", res.Summary)
	}
	l := fs.loads[0]
	if l.PickupAddress != "123 Dock Rd" || l.PickupCity != "Laredo" || l.PickupState != "TX" || l.PickupZip != "78040" {
		t.Fatalf("pickup stop wrong: %+v", l)
	}
	if l.DeliveryCity != "Chicago" || l.DeliveryState != "IL" {
		t.Fatalf("delivery stop wrong: %+v", l)
	}
}

func TestResolveFinancialsMileageClosure(t *testing.T) {
	e := testEngine(newFakeStore())

	cases := []struct {
		name                 string
		row                  Row
		total, loaded, empty float64
	}{
		{"total from loaded+empty", Row{"Loaded Miles": "800", "Empty Miles": "200"}, 1000, 800, 200},
		{"loaded from total-empty", Row{"Miles": "1000", "Empty Miles": "200"}, 1000, 800, 200},
		{"empty from total-loaded", Row{"Miles": "1000", "Loaded Miles": "800"}, 1000, 800, 200},
	}
	for _, tc := range cases {
		res := newResult(1, 100)
		var record model.Load
		e.resolveFinancials(tc.row, Options{}, res, 1, &record)
		if record.TotalMiles != tc.total || record.LoadedMiles != tc.loaded || record.EmptyMiles != tc.empty {
			t.Fatalf("%s: got total=%v loaded=%v empty=%v", tc.name, record.TotalMiles, record.LoadedMiles, record.EmptyMiles)
		}
	}
}

func TestResolveFinancialsPayEqualsRevenue(t *testing.T) {
	e := testEngine(newFakeStore())
	res := newResult(1, 100)
	var record model.Load
	e.resolveFinancials(Row{"Rate": "2000", "Driver Pay": "2000", "Miles": "1000"}, Options{}, res, 1, &record)
	// 1000 mi at the 0.65 default rate
	if record.DriverPay != 650 {
		t.Fatalf("pay not recalculated: %v", record.DriverPay)
	}
	if record.Profit != 1350 {
		t.Fatalf("profit wrong: %v", record.Profit)
	}
	if len(res.Warnings) == 0 {
		t.Fatal("expected a recalculation warning")
	}
}

func TestResolveFinancialsAnomaliesWarnNotBlock(t *testing.T) {
	e := testEngine(newFakeStore())
	res := newResult(1, 100)
	var record model.Load
	e.resolveFinancials(Row{
		"Rate":         "150000",
		"Miles":        "5000",
		"Cargo Weight": "90000",
	}, Options{}, res, 1, &record)

	if len(res.Errors) != 0 {
		t.Fatalf("anomalies must not error: %+v", res.Errors)
	}
	fields := map[string]bool{}
	for _, w := range res.Warnings {
		fields[w.Field] = true
	}
	for _, f := range []string{"revenue", "totalMiles", "weight"} {
		if !fields[f] {
			t.Fatalf("missing %s warning in %+v", f, res.Warnings)
		}
	}
	if record.Revenue != 150000 || record.WeightLbs != 90000 {
		t.Fatalf("values must persist despite warnings: %+v", record)
	}
}

func TestResolveFinancialsUnparseablePayWarnsNotErrors(t *testing.T) {
	e := testEngine(newFakeStore())
	res := newResult(1, 100)
	var record model.Load
	e.resolveFinancials(Row{"Rate": "1500", "Driver Pay": "N/A", "Miles": "500"}, Options{}, res, 1, &record)

	if len(res.Errors) != 0 {
		t.Fatalf("unparseable pay must not error: %+v", res.Errors)
	}
	found := false
	for _, w := range res.Warnings {
		if w.Field == "driverPay" {
			found = true
		}
	}
	if !found {
		t.Fatalf("expected a driverPay warning, got %+v", res.Warnings)
	}
	// With the pay column unusable, the default per-mile rate fills in.
	if record.Revenue != 1500 || record.DriverPay != 325 {
		t.Fatalf("unexpected financials: %+v", record)
	}
}

func TestResolveFinancialsEstimatesMissingPay(t *testing.T) {
	e := testEngine(newFakeStore())
	res := newResult(1, 100)
	var record model.Load
	e.resolveFinancials(Row{"Rate": "1500", "Miles": "500"}, Options{}, res, 1, &record)

	// 500 mi at the 0.65 default rate
	if record.DriverPay != 325 {
		t.Fatalf("pay not estimated: %v", record.DriverPay)
	}
	if record.Profit != 1175 {
		t.Fatalf("profit wrong: %v", record.Profit)
	}
	found := false
	for _, w := range res.Warnings {
		if w.Field == "driverPay" && strings.Contains(w.Error, "estimated") {
			found = true
		}
	}
	if !found {
		t.Fatalf("expected an estimation warning, got %+v", res.Warnings)
	}
}

// A dispatch sheet with no load number and no pay column still imports end to
// end on an empty tenant: references are provisioned, the number is
// synthesized, and pay is estimated from miles.
func TestImportLoadsBareDispatchSheet(t *testing.T) {
	fs := newFakeStore()
	e := testEngine(fs)
	seedBilling(fs, e)

	rows := []Row{{
		"Customer": "Acme",
		"Driver":   "John Doe",
		"Truck":    "101",
		"Revenue":  "1500",
		"Miles":    "500",
		"Status":   "DELIVERED",
	}}
	res, err := e.ImportLoads(context.Background(), rows, Options{})
	if err != nil {
		t.Fatalf("ImportLoads: %v", err)
	}
	if res.Summary.Errors != 0 || res.Summary.Created != 1 {
		t.Fatalf("unexpected summary: %+v", res.Summary)
	}
	if len(fs.customers) != 1 || len(fs.drivers) != 1 || len(fs.trucks) != 1 {
		t.Fatalf("references not provisioned: %d customers, %d drivers, %d trucks",
			len(fs.customers), len(fs.drivers), len(fs.trucks))
	}
	if len(fs.loads) != 1 {
		t.Fatalf("expected 1 load, got %d", len(fs.loads))
	}
	l := fs.loads[0]
	if !strings.HasPrefix(l.LoadNumber, "L-") {
		t.Fatalf("expected a synthesized load number, got %q", l.LoadNumber)
	}
	if l.Status != model.LoadStatusDelivered {
		t.Fatalf("status wrong: %q", l.Status)
	}
	if l.Revenue != 1500 || l.TotalMiles != 500 {
		t.Fatalf("financials wrong: %+v", l)
	}
	// 500 mi at the 0.65 default rate
	if l.DriverPay != 325 {
		t.Fatalf("pay not estimated: %v", l.DriverPay)
	}
}

func TestImportLoadsStoredDuplicateSkipWarns(t *testing.T) {
	fs := newFakeStore()
	e := testEngine(fs)
	seedBilling(fs, e)
	customerID := uuid.New()
	fs.customers = []model.Customer{{ID: customerID, TenantID: e.tenantID, Name: "Acme Logistics"}}
	fs.loads = []model.Load{{
		ID:         uuid.New(),
		TenantID:   e.tenantID,
		LoadNumber: "L-1001",
		CustomerID: customerID,
	}}

	rows := []Row{{"Load Number": "L-1001", "Customer": "Acme Logistics", "Rate": "900"}}
	res, err := e.ImportLoads(context.Background(), rows, Options{})
	if err != nil {
		t.Fatalf("ImportLoads: %v", err)
	}
	if res.Summary.Skipped != 1 || res.Summary.Created != 0 {
		t.Fatalf("unexpected summary: %+v", res.Summary)
	}
	found := false
	for _, w := range res.Warnings {
		if w.Field == "loadNumber" && strings.Contains(w.Error, "already exists") {
			found = true
		}
	}
	if !found {
		t.Fatalf("expected an already-exists warning, got %+v", res.Warnings)
	}
}

func TestImportLoadsDriverScheduleOverlapWarns(t *testing.T) {
	fs := newFakeStore()
	e := testEngine(fs)
	seedBilling(fs, e)
	driverID := uuid.New()
	customerID := uuid.New()
	fs.customers = []model.Customer{{ID: customerID, TenantID: e.tenantID, Name: "Acme Logistics"}}
	fs.drivers = []model.Driver{{ID: driverID, TenantID: e.tenantID, DriverNumber: "D-1", FirstName: "John", LastName: "Smith"}}

	rows := []Row{
		{"Load Number": "L-1", "Customer": "Acme Logistics", "Driver": "John Smith",
			"Pickup": "2024-03-01", "Delivery": "2024-03-05"},
		{"Load Number": "L-2", "Customer": "Acme Logistics", "Driver": "John Smith",
			"Pickup": "2024-03-03", "Delivery": "2024-03-07"},
	}
	res, err := e.ImportLoads(context.Background(), rows, Options{})
	if err != nil {
		t.Fatalf("ImportLoads: %v", err)
	}
	if res.Summary.Created != 2 {
		t.Fatalf("unexpected summary: %+v", res.Summary)
	}
	found := false
	for _, w := range res.Warnings {
		if w.Row == 2 && w.Field == "pickupDate" {
			found = true
		}
	}
	if !found {
		t.Fatalf("expected overlap warning on row 2, got %+v", res.Warnings)
	}
}
