package importer

// specsFor returns the field table for an entity, nil for unknown entities.
func specsFor(entity string) []FieldSpec {
	switch entity {
	case "customers":
		return customerFieldSpecs
	case "vendors":
		return vendorFieldSpecs
	case "locations":
		return locationFieldSpecs
	case "drivers":
		return driverFieldSpecs
	case "trucks":
		return truckFieldSpecs
	case "trailers":
		return trailerFieldSpecs
	case "loads":
		return loadFieldSpecs
	case "invoices":
		return invoiceFieldSpecs
	case "settlements":
		return settlementFieldSpecs
	case "leads":
		return leadFieldSpecs
	}
	return nil
}

// FieldsFor lists the canonical system fields an entity accepts, in spec
// order. Empty for unknown entities.
func FieldsFor(entity string) []string {
	specs := specsFor(entity)
	fields := make([]string, 0, len(specs))
	for _, s := range specs {
		fields = append(fields, s.Field)
	}
	return fields
}

// SuggestMapping places file headers onto system fields using the synonym
// tables alone: the deterministic arm of mapping suggestion. Headers that
// match nothing are left out; the caller may hand those to the AI client.
func SuggestMapping(entity string, headers []string) map[string]string {
	specs := specsFor(entity)
	if len(specs) == 0 {
		return map[string]string{}
	}
	index := map[string]string{}
	for _, spec := range specs {
		index[normalizeHeaderKey(spec.Field)] = spec.Field
		for _, syn := range spec.Synonyms {
			key := normalizeHeaderKey(syn)
			if _, taken := index[key]; !taken {
				index[key] = spec.Field
			}
		}
	}
	out := map[string]string{}
	for _, header := range headers {
		if field, ok := index[normalizeHeaderKey(header)]; ok {
			out[header] = field
		}
	}
	return out
}
