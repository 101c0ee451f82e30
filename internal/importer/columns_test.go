package importer

import "testing"

func TestValueResolutionOrder(t *testing.T) {
	row := Row{
		"name":          "Canonical Co",
		"Company Name":  "Mapped Co",
		"customer name": "Synonym Co",
	}

	// exact system field key wins over everything
	if got := Value(row, "name", map[string]string{"Company Name": "name"}, []string{"customer name"}); got != "Canonical Co" {
		t.Fatalf("exact key: got %q", got)
	}

	// caller mapping beats synonyms
	delete(row, "name")
	if got := Value(row, "name", map[string]string{"Company Name": "name"}, []string{"customer name"}); got != "Mapped Co" {
		t.Fatalf("mapped column: got %q", got)
	}

	// synonym list is the last resort
	delete(row, "Company Name")
	if got := Value(row, "name", nil, []string{"customer name"}); got != "Synonym Co" {
		t.Fatalf("synonym: got %q", got)
	}

	delete(row, "customer name")
	if got := Value(row, "name", nil, []string{"customer name"}); got != "" {
		t.Fatalf("absent field: got %q", got)
	}
}

func TestValueHeaderNormalization(t *testing.T) {
	row := Row{"MC_Number": "MC123456", "Phone #": "555-0100"}
	if got := Value(row, "mcNumber", nil, []string{"mc number"}); got != "MC123456" {
		t.Fatalf("underscore header: got %q", got)
	}
	if got := Value(row, "phone", nil, []string{"phone"}); got != "555-0100" {
		t.Fatalf("punctuated header: got %q", got)
	}
}

func TestValueSkipsEmptyCells(t *testing.T) {
	row := Row{"Company Name": "   ", "customer name": "Fallback Co"}
	if got := Value(row, "name", map[string]string{"Company Name": "name"}, []string{"customer name"}); got != "Fallback Co" {
		t.Fatalf("blank mapped cell should fall through, got %q", got)
	}
}

func TestValueStringifiesCellTypes(t *testing.T) {
	row := Row{"miles": float64(480), "active": true}
	if got := Value(row, "miles", nil, []string{"miles"}); got != "480" {
		t.Fatalf("float cell: got %q", got)
	}
	if got := Value(row, "active", nil, []string{"active"}); got != "true" {
		t.Fatalf("bool cell: got %q", got)
	}
}

func TestResolveFieldDefaults(t *testing.T) {
	spec := FieldSpec{Field: "status", Synonyms: []string{"load status"}, Default: "pending", WarnIfDefaulted: true}
	res := &Result{}

	if got := resolveField(Row{"load status": "delivered"}, spec, nil, res, 1); got != "delivered" {
		t.Fatalf("present value: got %q", got)
	}
	if len(res.Warnings) != 0 {
		t.Fatalf("unexpected warnings: %+v", res.Warnings)
	}

	if got := resolveField(Row{}, spec, nil, res, 2); got != "pending" {
		t.Fatalf("defaulted value: got %q", got)
	}
	if len(res.Warnings) != 1 || res.Warnings[0].Row != 2 || res.Warnings[0].Field != "status" {
		t.Fatalf("expected one defaulting warning, got %+v", res.Warnings)
	}
}

func TestOverwrite(t *testing.T) {
	if got := overwrite("old", "new"); got != "new" {
		t.Fatalf("got %q", got)
	}
	if got := overwrite("old", "  "); got != "old" {
		t.Fatalf("sparse update must keep current, got %q", got)
	}
	if got := overwrite("", "x "); got != "x" {
		t.Fatalf("got %q", got)
	}
}

func TestFieldsFor(t *testing.T) {
	for _, entity := range Entities() {
		if len(FieldsFor(entity)) == 0 {
			t.Fatalf("entity %q has no fields", entity)
		}
	}
	if got := FieldsFor("widgets"); len(got) != 0 {
		t.Fatalf("unknown entity should have no fields, got %v", got)
	}
}

func TestSuggestMapping(t *testing.T) {
	headers := []string{"Customer Name", "Billing Email", "Phone Number", "Mystery Column"}
	got := SuggestMapping("customers", headers)
	if got["Customer Name"] != "name" {
		t.Fatalf("Customer Name: got %q", got["Customer Name"])
	}
	if got["Billing Email"] != "billingEmails" {
		t.Fatalf("Billing Email: got %q", got["Billing Email"])
	}
	if got["Phone Number"] != "phone" {
		t.Fatalf("Phone Number: got %q", got["Phone Number"])
	}
	if _, ok := got["Mystery Column"]; ok {
		t.Fatal("unmatched header must be absent")
	}

	if got := SuggestMapping("widgets", headers); len(got) != 0 {
		t.Fatalf("unknown entity: got %v", got)
	}
}
