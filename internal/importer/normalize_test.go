package importer

import (
	"testing"
	"time"
)

func TestParseDateFormats(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"2024-03-15", "2024-03-15"},
		{"2024/03/15", "2024-03-15"},
		{"03/15/2024", "2024-03-15"},
		{"3/5/2024", "2024-03-05"},
		{"03-15-2024", "2024-03-15"},
		{"3/5/24", "2024-03-05"},
		{"Mar 15, 2024", "2024-03-15"},
		{"March 15, 2024", "2024-03-15"},
		{"15 Mar 2024", "2024-03-15"},
		{"15-Mar-2024", "2024-03-15"},
		{"2024-03-15 09:30:00", "2024-03-15"},
		{"03/15/2024 09:30", "2024-03-15"},
		{" 2024-03-15 ", "2024-03-15"},
	}
	for _, tc := range cases {
		got, ok := ParseDate(tc.in)
		if !ok {
			t.Fatalf("ParseDate(%q) failed", tc.in)
		}
		if got.Format("2006-01-02") != tc.want {
			t.Fatalf("ParseDate(%q) = %s, want %s", tc.in, got.Format("2006-01-02"), tc.want)
		}
	}
}

func TestParseDateExcelSerial(t *testing.T) {
	// 45370 is 2024-03-19 in the 1900 date system.
	got, ok := ParseDate("45370")
	if !ok {
		t.Fatal("ParseDate rejected excel serial")
	}
	want := time.Date(2024, time.March, 19, 0, 0, 0, 0, time.UTC)
	if !got.Equal(want) {
		t.Fatalf("ParseDate(45370) = %s, want %s", got, want)
	}
}

func TestParseDateRejectsGarbage(t *testing.T) {
	for _, in := range []string{"", "not a date", "13/45/2024", "99", "123456789"} {
		if _, ok := ParseDate(in); ok {
			t.Fatalf("ParseDate(%q) unexpectedly succeeded", in)
		}
	}
}

func TestParseNumber(t *testing.T) {
	cases := []struct {
		in   string
		want float64
	}{
		{"1500", 1500},
		{"1,500.25", 1500.25},
		{"$2,350.00", 2350},
		{"  42 ", 42},
		{"-15.5", -15.5},
		{"(250.00)", -250},
		{"$ 1,200", 1200},
		{"480 mi", 480},
		{"44000 lbs", 44000},
		{"0.58", 0.58},
	}
	for _, tc := range cases {
		got, ok := ParseNumber(tc.in)
		if !ok {
			t.Fatalf("ParseNumber(%q) failed", tc.in)
		}
		if got != tc.want {
			t.Fatalf("ParseNumber(%q) = %v, want %v", tc.in, got, tc.want)
		}
	}
	for _, in := range []string{"", "abc", "$", "N/A"} {
		if _, ok := ParseNumber(in); ok {
			t.Fatalf("ParseNumber(%q) unexpectedly succeeded", in)
		}
	}
}

func TestNormalizeState(t *testing.T) {
	cases := map[string]string{
		"TX":         "TX",
		"tx":         "TX",
		"Texas":      "TX",
		"texas":      "TX",
		"New York":   "NY",
		"new jersey": "NJ",
		"DC":         "DC",
		"ZZ":         "",
		"Ontario":    "",
		"":           "",
	}
	for in, want := range cases {
		if got := NormalizeState(in); got != want {
			t.Fatalf("NormalizeState(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestParseLocation(t *testing.T) {
	cases := []struct {
		in   string
		want LocationParts
	}{
		{"123 Main St, Springfield, IL 62701", LocationParts{Address: "123 Main St", City: "Springfield", State: "IL", Zip: "62701"}},
		{"Dallas, TX", LocationParts{City: "Dallas", State: "TX"}},
		{"Springfield, Illinois", LocationParts{City: "Springfield", State: "IL"}},
		{"Dallas TX 75201", LocationParts{City: "Dallas", State: "TX", Zip: "75201"}},
		{"Kansas City, MO 64101", LocationParts{City: "Kansas City", State: "MO", Zip: "64101"}},
		{"450 Dock Rd, Suite 2, Newark, NJ 07102", LocationParts{Address: "450 Dock Rd, Suite 2", City: "Newark", State: "NJ", Zip: "07102"}},
	}
	for _, tc := range cases {
		got := ParseLocation(tc.in)
		if got == nil {
			t.Fatalf("ParseLocation(%q) = nil", tc.in)
		}
		if *got != tc.want {
			t.Fatalf("ParseLocation(%q) = %+v, want %+v", tc.in, *got, tc.want)
		}
	}
	if got := ParseLocation("just some words"); got != nil {
		t.Fatalf("expected nil for unstructured input, got %+v", *got)
	}
	if got := ParseLocation(""); got != nil {
		t.Fatalf("expected nil for empty input, got %+v", *got)
	}
}

func TestSplitName(t *testing.T) {
	cases := []struct {
		in          string
		first, last string
	}{
		{"John Smith", "John", "Smith"},
		{"Cher", "Cher", ""},
		{"Mary Ann Van Der Berg", "Mary", "Ann Van Der Berg"},
		{"  ", "", ""},
	}
	for _, tc := range cases {
		first, last := splitName(tc.in)
		if first != tc.first || last != tc.last {
			t.Fatalf("splitName(%q) = (%q, %q), want (%q, %q)", tc.in, first, last, tc.first, tc.last)
		}
	}
}

func TestDigitsOnly(t *testing.T) {
	if got := digitsOnly("(555) 010-0199 x12"); got != "555010019912" {
		t.Fatalf("digitsOnly = %q", got)
	}
	if got := digitsOnly("no digits"); got != "" {
		t.Fatalf("digitsOnly = %q, want empty", got)
	}
}

func TestStripLeadingZeros(t *testing.T) {
	cases := map[string]string{"000123": "123", "0": "0", "0000": "0", "42": "42", "": ""}
	for in, want := range cases {
		if got := stripLeadingZeros(in); got != want {
			t.Fatalf("stripLeadingZeros(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestFixQueueAndCorrections(t *testing.T) {
	q := newFixQueue()
	if !q.empty() {
		t.Fatal("fresh queue should be empty")
	}
	q.add("state", "Texsa")
	q.add("state", "Texsa")
	q.add("state", "")
	q.add("date", "sometime in march")
	if q.empty() {
		t.Fatal("queue should not be empty")
	}
	grouped := q.grouped()
	if len(grouped["state"]) != 1 || len(grouped["date"]) != 1 {
		t.Fatalf("unexpected grouping: %+v", grouped)
	}

	c := newCorrections()
	c.merge(map[string]map[string]string{
		"state": {"Texsa": "TX", "blank": ""},
	})
	if fixed, ok := c.fix("state", "Texsa"); !ok || fixed != "TX" {
		t.Fatalf("fix(state, Texsa) = (%q, %v)", fixed, ok)
	}
	if _, ok := c.fix("state", "blank"); ok {
		t.Fatal("empty corrections must be dropped")
	}
	if _, ok := c.fix("date", "sometime in march"); ok {
		t.Fatal("unresolved field should miss")
	}
}
