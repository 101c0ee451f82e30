package importer

import (
	"strings"

	"github.com/google/uuid"
)

// Cache kinds. Each kind is an independent key space.
const (
	kindCustomer      = "customer"
	kindDriver        = "driver"
	kindTruck         = "truck"
	kindTrailer       = "trailer"
	kindDispatcher    = "dispatcher"
	kindBillingEntity = "billing_entity"
)

// LookupCache resolves free-text references ("JOHN SMITH", "TRK-0042",
// "Acme Logistics") to entity ids. Keys are registered under every spelling
// variant we expect to see in a file: trimmed+lowercased, and for numeric
// identifiers also the leading-zero-stripped form.
type LookupCache struct {
	byKind      map[string]map[string]uuid.UUID
	defaults    map[string]uuid.UUID
	provisional map[uuid.UUID]string
}

func NewLookupCache() *LookupCache {
	return &LookupCache{
		byKind:      map[string]map[string]uuid.UUID{},
		defaults:    map[string]uuid.UUID{},
		provisional: map[uuid.UUID]string{},
	}
}

// Register indexes id under key and its normalized variants. Empty keys are
// ignored. First registration wins so storage-order lookups stay stable.
func (c *LookupCache) Register(kind, key string, id uuid.UUID) {
	norm := normalizeKey(key)
	if norm == "" || id == uuid.Nil {
		return
	}
	keys := c.byKind[kind]
	if keys == nil {
		keys = map[string]uuid.UUID{}
		c.byKind[kind] = keys
	}
	if _, exists := keys[norm]; !exists {
		keys[norm] = id
	}
	if stripped := stripLeadingZeros(norm); stripped != norm {
		if _, exists := keys[stripped]; !exists {
			keys[stripped] = id
		}
	}
}

// Resolve looks key up in kind, trying the normalized form first and then
// the leading-zero-stripped form.
func (c *LookupCache) Resolve(kind, key string) (uuid.UUID, bool) {
	norm := normalizeKey(key)
	if norm == "" {
		return uuid.Nil, false
	}
	keys, ok := c.byKind[kind]
	if !ok {
		return uuid.Nil, false
	}
	if id, ok := keys[norm]; ok {
		return id, true
	}
	if stripped := stripLeadingZeros(norm); stripped != norm {
		if id, ok := keys[stripped]; ok {
			return id, true
		}
	}
	return uuid.Nil, false
}

// SetDefault records the tenant-level fallback for a kind, e.g. the default
// billing entity applied when a row names none.
func (c *LookupCache) SetDefault(kind string, id uuid.UUID) {
	if id != uuid.Nil {
		c.defaults[kind] = id
	}
}

func (c *LookupCache) Default(kind string) (uuid.UUID, bool) {
	id, ok := c.defaults[kind]
	return id, ok
}

// MarkProvisional tags an id as created (or, in preview, pretend-created)
// during this run, with a human-readable label for preview output.
func (c *LookupCache) MarkProvisional(id uuid.UUID, label string) {
	if id != uuid.Nil {
		c.provisional[id] = label
	}
}

// ProvisionalLabel returns the preview label for an id minted this run,
// or "" for ids that existed before the import.
func (c *LookupCache) ProvisionalLabel(id uuid.UUID) string {
	return c.provisional[id]
}

// provisionalLabel builds the "new:<kind>:<key>" label used in previews.
func provisionalLabel(kind, key string) string {
	return "new:" + kind + ":" + strings.TrimSpace(key)
}
