package importer

import "strings"

// keySet tracks dedup keys already claimed within a run: keys of records
// present in storage plus keys of rows accepted earlier in the same file.
// Keys are case-insensitive.
type keySet struct {
	keys map[string]struct{}
}

func newKeySet() *keySet {
	return &keySet{keys: map[string]struct{}{}}
}

func (s *keySet) Seen(key string) bool {
	norm := normalizeKey(key)
	if norm == "" {
		return false
	}
	_, ok := s.keys[norm]
	return ok
}

func (s *keySet) Add(keys ...string) {
	for _, key := range keys {
		norm := normalizeKey(key)
		if norm == "" {
			continue
		}
		s.keys[norm] = struct{}{}
	}
}

// compositeKey joins non-identifying parts into one dedup key, e.g. a
// location's name|address|city|state.
func compositeKey(parts ...string) string {
	lowered := make([]string, len(parts))
	for i, p := range parts {
		lowered[i] = normalizeKey(p)
	}
	return strings.Join(lowered, "|")
}
