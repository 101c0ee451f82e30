package importer

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"
)

func stringify(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return strings.TrimSpace(t)
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case float32:
		return strconv.FormatFloat(float64(t), 'f', -1, 32)
	case int:
		return strconv.Itoa(t)
	case int64:
		return strconv.FormatInt(t, 10)
	case bool:
		return strconv.FormatBool(t)
	case time.Time:
		return t.Format("2006-01-02")
	default:
		return strings.TrimSpace(fmt.Sprint(t))
	}
}

var dateFormats = []string{
	"2006-01-02",
	"2006/01/02",
	"01/02/2006",
	"1/2/2006",
	"01-02-2006",
	"1-2-2006",
	"01/02/06",
	"1/2/06",
	"Jan 2, 2006",
	"January 2, 2006",
	"2 Jan 2006",
	"02-Jan-2006",
	"02-Jan-06",
	"2006-01-02 15:04:05",
	"01/02/2006 15:04",
	time.RFC3339,
}

// excel serial date epoch (with the 1900 leap-year bug accounted for)
var excelEpoch = time.Date(1899, time.December, 30, 0, 0, 0, 0, time.UTC)

// ParseDate accepts the date shapes that show up in dispatch spreadsheets:
// ISO, US slash/dash forms, spelled-out months, datetime strings, and Excel
// serial numbers. Returns the zero time and false when nothing matches.
func ParseDate(raw string) (time.Time, bool) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return time.Time{}, false
	}
	for _, format := range dateFormats {
		parsed, err := time.Parse(format, s)
		if err != nil {
			continue
		}
		return time.Date(parsed.Year(), parsed.Month(), parsed.Day(), 0, 0, 0, 0, time.UTC), true
	}
	if serial, err := strconv.ParseFloat(s, 64); err == nil && serial > 20000 && serial < 80000 {
		d := excelEpoch.AddDate(0, 0, int(serial))
		return d, true
	}
	return time.Time{}, false
}

var numberCleaner = strings.NewReplacer("$", "", ",", "", " ", "", "mi", "", "lbs", "", "lb", "")

// ParseNumber strips currency symbols, thousands separators, and common unit
// suffixes before parsing. Accounting-style parentheses read as negatives.
func ParseNumber(raw string) (float64, bool) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return 0, false
	}
	negative := false
	if strings.HasPrefix(s, "(") && strings.HasSuffix(s, ")") {
		negative = true
		s = s[1 : len(s)-1]
	}
	s = numberCleaner.Replace(strings.ToLower(s))
	if s == "" {
		return 0, false
	}
	parsed, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, false
	}
	if negative {
		parsed = -parsed
	}
	return parsed, true
}

func round2(v float64) float64 {
	if v < 0 {
		return float64(int64(v*100-0.5)) / 100
	}
	return float64(int64(v*100+0.5)) / 100
}

var stateNames = map[string]string{
	"alabama": "AL", "alaska": "AK", "arizona": "AZ", "arkansas": "AR",
	"california": "CA", "colorado": "CO", "connecticut": "CT", "delaware": "DE",
	"florida": "FL", "georgia": "GA", "hawaii": "HI", "idaho": "ID",
	"illinois": "IL", "indiana": "IN", "iowa": "IA", "kansas": "KS",
	"kentucky": "KY", "louisiana": "LA", "maine": "ME", "maryland": "MD",
	"massachusetts": "MA", "michigan": "MI", "minnesota": "MN", "mississippi": "MS",
	"missouri": "MO", "montana": "MT", "nebraska": "NE", "nevada": "NV",
	"new hampshire": "NH", "new jersey": "NJ", "new mexico": "NM", "new york": "NY",
	"north carolina": "NC", "north dakota": "ND", "ohio": "OH", "oklahoma": "OK",
	"oregon": "OR", "pennsylvania": "PA", "rhode island": "RI", "south carolina": "SC",
	"south dakota": "SD", "tennessee": "TN", "texas": "TX", "utah": "UT",
	"vermont": "VT", "virginia": "VA", "washington": "WA", "west virginia": "WV",
	"wisconsin": "WI", "wyoming": "WY", "district of columbia": "DC",
}

var stateCodes = func() map[string]struct{} {
	codes := make(map[string]struct{}, len(stateNames))
	for _, code := range stateNames {
		codes[code] = struct{}{}
	}
	return codes
}()

// NormalizeState maps a US state name or abbreviation to its 2-letter code.
// Unknown values return the empty string; callers decide the fallback.
func NormalizeState(raw string) string {
	s := strings.TrimSpace(raw)
	if s == "" {
		return ""
	}
	upper := strings.ToUpper(s)
	if len(upper) == 2 {
		if _, ok := stateCodes[upper]; ok {
			return upper
		}
		return ""
	}
	if code, ok := stateNames[strings.ToLower(s)]; ok {
		return code
	}
	return ""
}

// LocationParts is the result of splitting a free-text address line.
type LocationParts struct {
	Address string
	City    string
	State   string
	Zip     string
}

var zipPattern = regexp.MustCompile(`\b(\d{5})(?:-\d{4})?\b`)

// ParseLocation heuristically separates street / city / state / zip from a
// single composite field such as "123 Main St, Springfield, IL 62701" or
// "Dallas, TX". Returns nil when no city/state structure is recognizable.
func ParseLocation(raw string) *LocationParts {
	s := strings.TrimSpace(raw)
	if s == "" {
		return nil
	}

	zip := ""
	if m := zipPattern.FindStringSubmatch(s); m != nil {
		zip = m[1]
	}

	segments := strings.Split(s, ",")
	for i := range segments {
		segments[i] = strings.TrimSpace(segments[i])
	}

	// The state (with optional trailing zip) lives in the last segment;
	// everything before the city segment is street address.
	last := segments[len(segments)-1]
	lastWords := strings.Fields(zipPattern.ReplaceAllString(last, ""))

	state := ""
	if len(lastWords) > 0 {
		state = NormalizeState(strings.Join(lastWords, " "))
		if state == "" {
			state = NormalizeState(lastWords[len(lastWords)-1])
		}
	}

	parts := &LocationParts{State: state, Zip: zip}
	switch {
	case len(segments) >= 3:
		parts.Address = strings.Join(segments[:len(segments)-2], ", ")
		parts.City = segments[len(segments)-2]
	case len(segments) == 2:
		parts.City = segments[0]
		if state == "" && len(lastWords) > 0 {
			// "Springfield, Illinois" with no zip still counts
			parts.State = NormalizeState(last)
		}
	default:
		// single segment: try "City ST" or "City ST 12345"
		words := strings.Fields(zipPattern.ReplaceAllString(s, ""))
		if len(words) >= 2 {
			if st := NormalizeState(words[len(words)-1]); st != "" {
				parts.State = st
				parts.City = strings.Join(words[:len(words)-1], " ")
			}
		}
	}

	if parts.City == "" && parts.State == "" && parts.Zip == "" {
		return nil
	}
	return parts
}

func splitName(full string) (first, last string) {
	fields := strings.Fields(strings.TrimSpace(full))
	switch len(fields) {
	case 0:
		return "", ""
	case 1:
		return fields[0], ""
	default:
		return fields[0], strings.Join(fields[1:], " ")
	}
}

func stripLeadingZeros(s string) string {
	trimmed := strings.TrimLeft(s, "0")
	if trimmed == "" && s != "" {
		return "0"
	}
	return trimmed
}

func normalizeKey(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

func digitsOnly(s string) string {
	var b strings.Builder
	for _, r := range s {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// fixQueue accumulates raw values that failed every deterministic parser,
// grouped by field name, for one batched correction call.
type fixQueue struct {
	byField map[string]map[string]struct{}
}

func newFixQueue() *fixQueue {
	return &fixQueue{byField: map[string]map[string]struct{}{}}
}

func (q *fixQueue) add(field, raw string) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return
	}
	set, ok := q.byField[field]
	if !ok {
		set = map[string]struct{}{}
		q.byField[field] = set
	}
	set[raw] = struct{}{}
}

func (q *fixQueue) empty() bool { return len(q.byField) == 0 }

func (q *fixQueue) grouped() map[string][]string {
	out := make(map[string][]string, len(q.byField))
	for field, set := range q.byField {
		values := make([]string, 0, len(set))
		for v := range set {
			values = append(values, v)
		}
		out[field] = values
	}
	return out
}

// corrections holds collaborator-normalized values keyed by field and raw
// input. A field the collaborator could not confidently normalize is simply
// absent.
type corrections struct {
	byField map[string]map[string]string
}

func newCorrections() *corrections {
	return &corrections{byField: map[string]map[string]string{}}
}

func (c *corrections) merge(resolved map[string]map[string]string) {
	for field, values := range resolved {
		if c.byField[field] == nil {
			c.byField[field] = map[string]string{}
		}
		for raw, fixed := range values {
			if strings.TrimSpace(fixed) == "" {
				continue
			}
			c.byField[field][raw] = fixed
		}
	}
}

func (c *corrections) fix(field, raw string) (string, bool) {
	values, ok := c.byField[field]
	if !ok {
		return "", false
	}
	fixed, ok := values[strings.TrimSpace(raw)]
	return fixed, ok
}
