// Package importer ingests heterogeneous spreadsheet rows for each business
// entity and reconciles them against stored records: fuzzy multi-key
// matching, two-tier deduplication, dependent-entity provisioning, defensive
// defaulting, anomaly heuristics, and batched persistence with row-level
// fallback.
package importer

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/uuid"

	"github.com/haulops-platform/api/internal/config"
)

// Row is one untyped input row: source column name to raw cell value.
// Values may be string, float64, bool, time.Time, or nil depending on the
// upstream parser (CSV readers hand us strings, excelize hands us a mix).
type Row map[string]any

// Options is the caller-supplied configuration for one import run, uniform
// across entity types.
type Options struct {
	PreviewOnly    bool
	UpdateExisting bool
	// CurrentBillingEntity names the billing entity (authority number or
	// company name) stamped onto new records when a row does not carry one.
	CurrentBillingEntity string
	// ColumnMapping maps source header -> system field. May be empty, in
	// which case synonym matching is the sole mechanism.
	ColumnMapping map[string]string
	ImportBatchID *uuid.UUID
}

// RowIssue is one error or warning attributed to an input row.
type RowIssue struct {
	Row   int    `json:"row"`
	Field string `json:"field,omitempty"`
	Error string `json:"error"`
}

type Summary struct {
	Total   int `json:"total"`
	Created int `json:"created"`
	Updated int `json:"updated"`
	Skipped int `json:"skipped"`
	Errors  int `json:"errors"`
}

// Result is the single value returned by every import run. Per-row failures
// land in Errors/Warnings; nothing per-row is ever raised as a Go error.
type Result struct {
	Success  bool       `json:"success"`
	Created  []any      `json:"created"`
	Errors   []RowIssue `json:"errors"`
	Warnings []RowIssue `json:"warnings"`
	Preview  []any      `json:"preview,omitempty"`
	Summary  Summary    `json:"summary"`

	maxIssues int
	truncated int
}

func newResult(total, maxIssues int) *Result {
	return &Result{
		Success:   true,
		Created:   []any{},
		Errors:    []RowIssue{},
		Warnings:  []RowIssue{},
		Summary:   Summary{Total: total},
		maxIssues: maxIssues,
	}
}

// Errorf records a row-level error. The row is excluded from persistence by
// the caller; the issue list is bounded so a pathological file cannot balloon
// the response.
func (r *Result) Errorf(row int, field, format string, args ...any) {
	r.Summary.Errors++
	if r.maxIssues > 0 && len(r.Errors) >= r.maxIssues {
		r.truncated++
		return
	}
	r.Errors = append(r.Errors, RowIssue{Row: row, Field: field, Error: fmt.Sprintf(format, args...)})
}

// Warnf records a recoverable issue; the row still persists.
func (r *Result) Warnf(row int, field, format string, args ...any) {
	if r.maxIssues > 0 && len(r.Warnings) >= r.maxIssues {
		return
	}
	r.Warnings = append(r.Warnings, RowIssue{Row: row, Field: field, Error: fmt.Sprintf(format, args...)})
}

// addPreview appends a preview entry unless the cap is reached.
func (r *Result) addPreview(capacity int, entry any) {
	if len(r.Preview) < capacity {
		r.Preview = append(r.Preview, entry)
	}
}

// Conserved reports whether every input row landed in exactly one outcome
// bucket.
func (r *Result) Conserved() bool {
	s := r.Summary
	return s.Created+s.Updated+s.Skipped+s.Errors == s.Total
}

// ValueFixer is the Text-Completion Collaborator surface the normalizer
// uses for batched correction of values every deterministic parser rejected.
// Implementations must treat every call as fallible; the engine degrades to
// leaving values absent when the fixer errors.
type ValueFixer interface {
	FixValues(ctx context.Context, byField map[string][]string) (map[string]map[string]string, error)
}

// Engine holds the per-tenant collaborators shared by all entity importers.
type Engine struct {
	store    Store
	tenantID uuid.UUID
	cfg      config.ImportConfig
	log      *slog.Logger
	fixer    ValueFixer // nil when AI enrichment is disabled
}

func NewEngine(store Store, tenantID uuid.UUID, cfg config.ImportConfig, log *slog.Logger, fixer ValueFixer) *Engine {
	if log == nil {
		log = slog.Default()
	}
	return &Engine{store: store, tenantID: tenantID, cfg: cfg, log: log, fixer: fixer}
}

// Entities lists the entity types the engine can import, in the order the
// bulk endpoint processes them (reference data before loads).
func Entities() []string {
	return []string{
		"customers", "vendors", "locations", "drivers", "trucks", "trailers",
		"loads", "invoices", "settlements", "leads",
	}
}

// Import dispatches to the entity-specific importer.
func (e *Engine) Import(ctx context.Context, entity string, rows []Row, opts Options) (*Result, error) {
	switch strings.ToLower(strings.TrimSpace(entity)) {
	case "customers":
		return e.ImportCustomers(ctx, rows, opts)
	case "vendors":
		return e.ImportVendors(ctx, rows, opts)
	case "locations":
		return e.ImportLocations(ctx, rows, opts)
	case "drivers":
		return e.ImportDrivers(ctx, rows, opts)
	case "trucks":
		return e.ImportTrucks(ctx, rows, opts)
	case "trailers":
		return e.ImportTrailers(ctx, rows, opts)
	case "loads":
		return e.ImportLoads(ctx, rows, opts)
	case "invoices":
		return e.ImportInvoices(ctx, rows, opts)
	case "settlements":
		return e.ImportSettlements(ctx, rows, opts)
	case "leads":
		return e.ImportLeads(ctx, rows, opts)
	default:
		return nil, fmt.Errorf("unknown import entity %q", entity)
	}
}

// corrections runs the batched value-correction pass over every raw value
// the deterministic parsers rejected. Failure of the collaborator leaves the
// corrections empty; the pipeline proceeds with what it has.
func (e *Engine) corrections(ctx context.Context, queue *fixQueue) *corrections {
	fixed := newCorrections()
	if e.fixer == nil || queue.empty() {
		return fixed
	}
	byField := queue.grouped()
	resolved, err := e.fixer.FixValues(ctx, byField)
	if err != nil {
		e.log.Warn("value correction call failed, proceeding without enrichment", "error", err)
		return fixed
	}
	fixed.merge(resolved)
	return fixed
}

// finalize runs the bookkeeping shared by every entity importer: the
// success flag tracks row errors, and a summary that does not reconcile with
// the input row count indicates a counting bug worth logging.
func (e *Engine) finalize(entity string, res *Result) *Result {
	res.Success = res.Summary.Errors == 0
	if res.truncated > 0 {
		e.log.Warn("row error list truncated", "entity", entity, "omitted", res.truncated)
	}
	if !res.Conserved() {
		e.log.Error("import summary does not reconcile with input rows",
			"entity", entity, "summary", res.Summary)
	}
	e.log.Info("import finished", "entity", entity,
		"total", res.Summary.Total, "created", res.Summary.Created,
		"updated", res.Summary.Updated, "skipped", res.Summary.Skipped,
		"errors", res.Summary.Errors)
	return res
}

func (e *Engine) previewCap(entity string) int {
	if entity == "loads" {
		return e.cfg.LoadPreviewCap
	}
	return e.cfg.PreviewCap
}
