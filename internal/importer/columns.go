package importer

import (
	"strings"
)

// FieldSpec declares how one canonical system field is located in arbitrary
// input and what happens when it is absent. Centralizing the default policy
// here keeps the row processors free of scattered inline fallbacks.
type FieldSpec struct {
	Field           string
	Synonyms        []string
	Default         string
	WarnIfDefaulted bool
}

func normalizeHeaderKey(raw string) string {
	replacer := strings.NewReplacer(" ", "", "_", "", "-", "", ".", "", "/", "", "#", "")
	return replacer.Replace(strings.ToLower(strings.TrimPrefix(strings.TrimSpace(raw), "\uFEFF")))
}

// Value resolves a canonical system field within an arbitrary row.
// Resolution order: an exact systemField key on the row (pre-mapped
// callers), then any caller-mapped source columns targeting the field, then
// the static synonym list. Lookups are case- and punctuation-insensitive.
// Absence is a normal outcome; the empty string means "not present".
func Value(row Row, systemField string, mapping map[string]string, synonyms []string) string {
	if v, ok := row[systemField]; ok {
		if s := stringify(v); s != "" {
			return s
		}
	}

	var insensitive map[string]string
	lookup := func(header string) (string, bool) {
		if v, ok := row[header]; ok {
			if s := stringify(v); s != "" {
				return s, true
			}
		}
		if insensitive == nil {
			insensitive = make(map[string]string, len(row))
			for k, v := range row {
				s := stringify(v)
				if s == "" {
					continue
				}
				nk := normalizeHeaderKey(k)
				if _, dup := insensitive[nk]; !dup {
					insensitive[nk] = s
				}
			}
		}
		s, ok := insensitive[normalizeHeaderKey(header)]
		return s, ok
	}

	for source, target := range mapping {
		if target != systemField {
			continue
		}
		if s, ok := lookup(source); ok {
			return s
		}
	}

	// A case or punctuation variant of the canonical field name ("Phone",
	// "phone_number") counts as a direct hit.
	if s, ok := lookup(systemField); ok {
		return s
	}

	for _, synonym := range synonyms {
		if s, ok := lookup(synonym); ok {
			return s
		}
	}
	return ""
}

// resolveField applies a FieldSpec: locate the value, fall back to the
// declared default, and record a warning when a defaulted value is marked
// as worth surfacing.
func resolveField(row Row, spec FieldSpec, mapping map[string]string, res *Result, rowNum int) string {
	v := Value(row, spec.Field, mapping, spec.Synonyms)
	if v != "" {
		return v
	}
	if spec.Default != "" && spec.WarnIfDefaulted {
		res.Warnf(rowNum, spec.Field, "%s missing, defaulted to %s", spec.Field, spec.Default)
	}
	return spec.Default
}

// specValue resolves field out of an entity's FieldSpec table.
func specValue(row Row, specs []FieldSpec, field string, opts Options, res *Result, rowNum int) string {
	for _, spec := range specs {
		if spec.Field == field {
			return resolveField(row, spec, opts.ColumnMapping, res, rowNum)
		}
	}
	return ""
}

// rawValue is specValue without default application, for scan passes that
// only want to know what the file actually says.
func rawValue(row Row, specs []FieldSpec, field string, opts Options) string {
	for _, spec := range specs {
		if spec.Field == field {
			return Value(row, spec.Field, opts.ColumnMapping, spec.Synonyms)
		}
	}
	return ""
}

// overwrite returns next when non-empty, keeping current otherwise. Update
// merges use it so a sparse row cannot blank out stored data.
func overwrite(current, next string) string {
	if strings.TrimSpace(next) != "" {
		return strings.TrimSpace(next)
	}
	return current
}
